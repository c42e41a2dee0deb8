package auth

import (
	"context"
	"slices"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleStaff  Role = "staff"
	RoleDoctor Role = "doctor"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff || r == RoleDoctor
}

// Identity is who is calling. TenantID always comes from here, never from
// a request body or query string.
type Identity struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Role     Role
}

// Is reports whether the identity holds one of roles.
func (id Identity) Is(roles ...Role) bool {
	return slices.Contains(roles, id.Role)
}

// Actor is the audit-log representation of the caller.
func (id Identity) Actor() string {
	return string(id.Role) + ":" + id.UserID.String()
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
