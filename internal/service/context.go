package service

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const (
	ctxUserIDKey ctxKey = "userID"
	ctxTenantKey ctxKey = "tenantID"
	ctxRoleKey   ctxKey = "role"
)

type Role string

const (
	RoleAdmin    Role = "ROLE_ADMIN"
	RoleManager  Role = "ROLE_MANAGER"
	RoleSupplier Role = "ROLE_SUPPLIER"
	RoleClient   Role = "ROLE_CLIENT"
)

// Privileged — роли, которым доступны неопубликованные позиции каталога
// и ручные движения по любому поставщику.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleManager
}

func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxUserIDKey, id)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ctxUserIDKey).(uuid.UUID)
	return v, ok
}

func WithTenantID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxTenantKey, id)
}

func TenantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ctxTenantKey).(uuid.UUID)
	return v, ok
}

func WithRole(ctx context.Context, r Role) context.Context {
	return context.WithValue(ctx, ctxRoleKey, r)
}

func RoleFromContext(ctx context.Context) (Role, bool) {
	v, ok := ctx.Value(ctxRoleKey).(Role)
	return v, ok
}
