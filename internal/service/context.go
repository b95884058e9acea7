package service

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const (
	ctxUserIDKey ctxKey = "userID"
	ctxRoleKey   ctxKey = "role"
)

func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxUserIDKey, id)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ctxUserIDKey).(uuid.UUID)
	return v, ok
}

type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

func (r Role) IsStaff() bool { return r == RoleAdmin || r == RoleStaff }

func WithRole(ctx context.Context, r Role) context.Context {
	return context.WithValue(ctx, ctxRoleKey, r)
}

func RoleFromContext(ctx context.Context) (Role, bool) {
	v, ok := ctx.Value(ctxRoleKey).(Role)
	return v, ok
}

// requireStaff trusts whatever identity the transport put on the context.
func requireStaff(ctx context.Context) (uuid.UUID, error) {
	uid, ok := UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, ErrUnauthorized
	}
	role, _ := RoleFromContext(ctx)
	if !role.IsStaff() {
		return uuid.Nil, ErrForbidden
	}
	return uid, nil
}

func requireAdmin(ctx context.Context) error {
	if _, ok := UserIDFromContext(ctx); !ok {
		return ErrUnauthorized
	}
	if role, _ := RoleFromContext(ctx); role != RoleAdmin {
		return ErrForbidden
	}
	return nil
}
