package httpapi

import (
	"context"
	"errors"
	"fmt"

	"findmyservice.org/internal/auth"
	"findmyservice.org/internal/market"
)

var (
	errInvalidScheme = errors.New("invalid authorization scheme")
	errMissingToken  = errors.New("missing bearer token")
)

func wrapInvalid(msg string) error {
	return fmt.Errorf("%w: %s", market.ErrInvalidArgument, msg)
}

// verifyOwner allows the request when the caller is an admin or when its
// identity exactly matches the resource owner. It runs before any
// mutation is attempted.
func verifyOwner(ctx context.Context, ownerID string) error {
	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return market.ErrUnauthenticated
	}
	if principal.Role == market.RoleAdmin {
		return nil
	}
	if principal.ID != "" && principal.ID == ownerID {
		return nil
	}
	return fmt.Errorf("%w: you do not have permission to access this resource", market.ErrForbidden)
}

// requireRole returns the principal when its role is one of the allowed
// set; eligibility here is independent of resource ownership.
func requireRole(ctx context.Context, roles ...market.Role) (auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return auth.Principal{}, market.ErrUnauthenticated
	}
	for _, role := range roles {
		if principal.Role == role {
			return principal, nil
		}
	}
	return auth.Principal{}, fmt.Errorf("%w: role %s is not allowed here", market.ErrForbidden, principal.Role)
}
