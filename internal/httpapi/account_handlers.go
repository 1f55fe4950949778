package httpapi

import (
	"net/http"
	"strings"

	"findmyservice.org/internal/audit"
	"findmyservice.org/internal/auth"
	"findmyservice.org/internal/market"
)

type accountUpdateRequest struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

// --- users ---

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, err := requireRole(r.Context(), market.RoleAdmin); err != nil {
			handleMarketError(w, r, err)
			return
		}
		users, err := a.store.Users().List(r.Context())
		if err != nil {
			handleMarketError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	default:
		methodNotAllowed(w, r, http.MethodGet)
	}
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/users/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getUser(w, r, id)
	case http.MethodPut:
		a.updateUser(w, r, id)
	case http.MethodDelete:
		a.deleteUser(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, id string) {
	u, err := a.store.Users().Find(r.Context(), id)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}
	if err := verifyOwner(r.Context(), u.ID); err != nil {
		handleMarketError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request, id string) {
	u, err := a.store.Users().Find(r.Context(), id)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}
	if err := verifyOwner(r.Context(), u.ID); err != nil {
		handleMarketError(w, r, err)
		return
	}

	var req accountUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := applyAccountUpdate(&u.Name, &u.Email, &u.PasswordHash, req); err != nil {
		handleMarketError(w, r, err)
		return
	}
	if err := a.store.Users().Update(r.Context(), u); err != nil {
		handleMarketError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.update", map[string]any{"user_id": u.ID})
	writeJSON(w, http.StatusOK, u)
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request, id string) {
	u, err := a.store.Users().Find(r.Context(), id)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}
	if err := verifyOwner(r.Context(), u.ID); err != nil {
		handleMarketError(w, r, err)
		return
	}
	if err := a.store.Users().Delete(r.Context(), id); err != nil {
		handleMarketError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.delete", map[string]any{"user_id": id})
	w.WriteHeader(http.StatusNoContent)
}

// --- providers ---

func (a *API) handleProvidersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		providers, err := a.store.Providers().List(r.Context())
		if err != nil {
			handleMarketError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, providers)
	default:
		methodNotAllowed(w, r, http.MethodGet)
	}
}

func (a *API) handleProviderResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/providers/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if rest, ok := strings.CutSuffix(path, "/services"); ok {
		id := strings.TrimSuffix(rest, "/")
		if id == "" || strings.Contains(id, "/") {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.listProviderServices(w, r, id)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getProvider(w, r, path)
	case http.MethodPut:
		a.updateProvider(w, r, path)
	case http.MethodDelete:
		a.deleteProvider(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) getProvider(w http.ResponseWriter, r *http.Request, id string) {
	p, err := a.store.Providers().Find(r.Context(), id)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) listProviderServices(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := a.store.Providers().Find(r.Context(), id); err != nil {
		handleMarketError(w, r, err)
		return
	}
	services, err := a.store.Services().ListByProvider(r.Context(), id)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, services)
}

func (a *API) updateProvider(w http.ResponseWriter, r *http.Request, id string) {
	p, err := a.store.Providers().Find(r.Context(), id)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}
	if err := verifyOwner(r.Context(), p.ID); err != nil {
		handleMarketError(w, r, err)
		return
	}

	var req accountUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := applyAccountUpdate(&p.Name, &p.Email, &p.PasswordHash, req); err != nil {
		handleMarketError(w, r, err)
		return
	}
	if err := a.store.Providers().Update(r.Context(), p); err != nil {
		handleMarketError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "provider.update", map[string]any{"provider_id": p.ID})
	writeJSON(w, http.StatusOK, p)
}

func (a *API) deleteProvider(w http.ResponseWriter, r *http.Request, id string) {
	p, err := a.store.Providers().Find(r.Context(), id)
	if err != nil {
		handleMarketError(w, r, err)
		return
	}
	if err := verifyOwner(r.Context(), p.ID); err != nil {
		handleMarketError(w, r, err)
		return
	}
	if err := a.store.Providers().Delete(r.Context(), id); err != nil {
		handleMarketError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "provider.delete", map[string]any{"provider_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func applyAccountUpdate(name, email, passwordHash *string, req accountUpdateRequest) error {
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			return wrapInvalid("name cannot be empty")
		}
		*name = trimmed
	}
	if req.Email != nil {
		trimmed := strings.TrimSpace(*req.Email)
		if trimmed == "" {
			return wrapInvalid("email cannot be empty")
		}
		*email = trimmed
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return err
		}
		*passwordHash = hash
	}
	return nil
}
