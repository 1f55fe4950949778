package httpapi

import (
	"net/http"
	"strings"

	"findmyservice.org/internal/auth"
	"findmyservice.org/internal/market"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// withAuth resolves an optional bearer token into a request principal.
// Requests without an Authorization header proceed anonymously; per-route
// guards decide what anonymity is allowed to do. A present but invalid
// token is rejected outright. A valid token whose role claim is missing or
// unknown also proceeds anonymously rather than failing the request.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		header := strings.TrimSpace(r.Header.Get(authHeader))
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(header)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := auth.VerifyToken(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}

		role, err := market.ParseRole(claims.Role)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		if _, ok := auth.PrincipalFromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), auth.Principal{
			ID:    claims.UserID,
			Email: claims.Subject,
			Role:  role,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(header string) (string, error) {
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errInvalidScheme
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errMissingToken
	}
	return token, nil
}
