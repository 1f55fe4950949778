package httpapi

import (
	"net/http"
	"strings"

	"findmyservice.org/internal/audit"
	"findmyservice.org/internal/auth"
	"findmyservice.org/internal/market"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "name, email and password are required")
		return
	}
	role, err := market.ParseRole(req.Role)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	switch role {
	case market.RoleProvider:
		p := &market.Provider{Name: req.Name, Email: req.Email, PasswordHash: hash}
		if err := a.store.Providers().Create(r.Context(), p); err != nil {
			handleMarketError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
			"provider_id": p.ID, "role": string(role),
		})
		writeJSON(w, http.StatusCreated, map[string]any{
			"providerId": p.ID,
			"name":       p.Name,
			"email":      p.Email,
			"role":       string(role),
		})
	default:
		u := &market.User{Name: req.Name, Email: req.Email, PasswordHash: hash, Role: role}
		if err := a.store.Users().Create(r.Context(), u); err != nil {
			handleMarketError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
			"user_id": u.ID, "role": string(role),
		})
		writeJSON(w, http.StatusCreated, map[string]any{
			"userId": u.ID,
			"name":   u.Name,
			"email":  u.Email,
			"role":   string(role),
		})
	}
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}
	role, err := market.ParseRole(req.Role)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}

	if role == market.RoleProvider {
		a.loginProvider(w, r, req, role)
		return
	}
	a.loginUser(w, r, req, role)
}

func (a *API) loginUser(w http.ResponseWriter, r *http.Request, req loginRequest, role market.Role) {
	u, err := a.store.Users().FindByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := auth.VerifyPassword(u.PasswordHash, req.Password); err != nil {
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if u.Role != role {
		writeError(w, r, http.StatusForbidden, "role does not match this account")
		return
	}

	token, expiresAt, err := auth.IssueToken(u.ID, u.Email, string(u.Role), a.tokenTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id": u.ID, "role": string(u.Role),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"userId":    u.ID,
		"expiresAt": expiresAt.UTC(),
	})
}

func (a *API) loginProvider(w http.ResponseWriter, r *http.Request, req loginRequest, role market.Role) {
	p, err := a.store.Providers().FindByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := auth.VerifyPassword(p.PasswordHash, req.Password); err != nil {
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := auth.IssueToken(p.ID, p.Email, string(role), a.tokenTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"provider_id": p.ID, "role": string(role),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"providerId": p.ID,
		"expiresAt":  expiresAt.UTC(),
	})
}
