package auth

import (
	"context"
	"strings"
)

// Role constants for staff authorisation.
const (
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// Identity is the verified staff principal.
type Identity struct {
	UID   string
	Email string
	Roles []string
}

// HasRole reports whether the identity carries role, ignoring case.
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	for _, r := range i.Roles {
		if strings.EqualFold(r, strings.TrimSpace(role)) {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the identity carries any of roles.
func (i *Identity) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if i.HasRole(role) {
			return true
		}
	}
	return false
}

type identityKey struct{}

// WithIdentity stores identity on ctx.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity stored by the middleware.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	return identity, ok && identity != nil
}

// Actor names whoever is acting on ctx: the staff email, else the UID, else fallback.
func Actor(ctx context.Context, fallback string) string {
	if identity, ok := IdentityFromContext(ctx); ok {
		if email := strings.TrimSpace(identity.Email); email != "" {
			return email
		}
		if uid := strings.TrimSpace(identity.UID); uid != "" {
			return uid
		}
	}
	return fallback
}
