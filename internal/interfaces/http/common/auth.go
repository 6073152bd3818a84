package common

import "context"

type contextKey string

const adminContextKey contextKey = "adminUser"

// AdminUser represents the JWT-derived staff principal.
type AdminUser struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ContextWithAdmin stores the authenticated staff member into context.
func ContextWithAdmin(ctx context.Context, user AdminUser) context.Context {
	return context.WithValue(ctx, adminContextKey, user)
}

// AdminFromContext extracts the authenticated staff member from context.
func AdminFromContext(ctx context.Context) (AdminUser, bool) {
	user, ok := ctx.Value(adminContextKey).(AdminUser)
	return user, ok
}
