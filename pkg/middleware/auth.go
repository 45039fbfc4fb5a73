package middleware

import (
	"context"
	"log/slog"
	"strings"

	"github.com/utafrali/ForumGo/pkg/logger"
)

type contextKeyType string

const (
	userIDKey contextKeyType = "user_id"
	roleKey   contextKeyType = "role"
)

const bearerScheme = "bearer"

// BearerToken extracts the token from an Authorization header value of the
// form "Bearer <token>". The scheme is matched case-insensitively; an empty
// header, another scheme or an empty token yields ok == false.
func BearerToken(header string) (token string, ok bool) {
	scheme, rest, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(rest)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// WithPrincipal records the authenticated user's id and role on ctx and
// re-enriches the request-scoped logger with user_id.
func WithPrincipal(ctx context.Context, userID, role string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, roleKey, role)
	ctx = logger.WithUserID(ctx, userID)
	return logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("user_id", userID)))
}

// UserIDFromContext returns the id stored by WithPrincipal.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// RoleFromContext returns the role stored by WithPrincipal.
func RoleFromContext(ctx context.Context) string {
	if role, ok := ctx.Value(roleKey).(string); ok {
		return role
	}
	return ""
}
