package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/ForumGo/internal/authz"
	"github.com/utafrali/ForumGo/internal/domain"
	"github.com/utafrali/ForumGo/internal/service"
	"github.com/utafrali/ForumGo/pkg/middleware"
)

type contextKey string

const (
	authenticatedKey contextKey = "authenticated"
	resourceKey      contextKey = "resource"
)

// ContentTypeJSON rejects request bodies that declare a non-JSON content type.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hasBody := r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch
		ct := r.Header.Get("Content-Type")
		if hasBody && ct != "" && !strings.HasPrefix(ct, "application/json") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnsupportedMediaType)
			_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AuthenticatedFromContext returns the result stored by Authenticate or
// OptionalAuthenticate, or nil for anonymous requests.
func AuthenticatedFromContext(ctx context.Context) *service.Authenticated {
	a, _ := ctx.Value(authenticatedKey).(*service.Authenticated)
	return a
}

// IdentityFromContext returns the authenticated identity, or nil.
func IdentityFromContext(ctx context.Context) *domain.Identity {
	if a := AuthenticatedFromContext(ctx); a != nil {
		return a.Identity
	}
	return nil
}

// ResourceFromContext returns the resource loaded by RequireOwnership.
func ResourceFromContext(ctx context.Context) *domain.Resource {
	res, _ := ctx.Value(resourceKey).(*domain.Resource)
	return res
}

func withAuthenticated(ctx context.Context, a *service.Authenticated) context.Context {
	ctx = context.WithValue(ctx, authenticatedKey, a)
	return middleware.WithPrincipal(ctx, a.Identity.ID, a.Identity.Role)
}

// AuthMiddleware mounts the authentication and authorization gates.
type AuthMiddleware struct {
	authenticator *service.Authenticator
	authorizer    *authz.Authorizer
	logger        *slog.Logger
}

// NewAuthMiddleware creates the gate middleware.
func NewAuthMiddleware(authenticator *service.Authenticator, authorizer *authz.Authorizer, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{authenticator: authenticator, authorizer: authorizer, logger: logger}
}

// Authenticate rejects the request unless it carries a valid, unrevoked
// credential for an existing user.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result, err := m.authenticator.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, r, err, m.logger)
			return
		}
		next.ServeHTTP(w, r.WithContext(withAuthenticated(r.Context(), result)))
	})
}

// OptionalAuthenticate attaches an identity when one can be established and
// otherwise lets the request through anonymously.
func (m *AuthMiddleware) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if result := m.authenticator.AuthenticateOptional(r.Context(), r.Header.Get("Authorization")); result != nil {
			r = r.WithContext(withAuthenticated(r.Context(), result))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits identities holding one of roles; with no roles any
// authenticated identity passes. Mount after Authenticate.
func (m *AuthMiddleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if identity == nil {
				writeError(w, r, domain.NewAuthError(domain.NoCredential, nil), m.logger)
				return
			}
			if len(roles) > 0 && !authz.HasRole(identity, roles...) {
				writeError(w, r, domain.NewAuthError(domain.PermissionDenied, nil), m.logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireVerifiedEmail admits identities with a verified email address.
func (m *AuthMiddleware) RequireVerifiedEmail(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := authz.RequireVerifiedEmail(IdentityFromContext(r.Context())); err != nil {
			writeError(w, r, err, m.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireOwnership loads the resource named by urlParam and admits its owner,
// moderators and admins. The resource is stored in the request context.
func (m *AuthMiddleware) RequireOwnership(kind, urlParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := m.authorizer.AuthorizeOwnership(r.Context(), IdentityFromContext(r.Context()), kind, chi.URLParam(r, urlParam))
			if err != nil {
				writeError(w, r, err, m.logger)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), resourceKey, res)))
		})
	}
}

// SelfOrElevated admits the user whose id is in urlParam, moderators and admins.
func (m *AuthMiddleware) SelfOrElevated(urlParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if identity == nil {
				writeError(w, r, domain.NewAuthError(domain.NoCredential, nil), m.logger)
				return
			}
			if !authz.IsOwnerOrElevated(identity, chi.URLParam(r, urlParam)) {
				writeError(w, r, domain.NewAuthError(domain.PermissionDenied, nil), m.logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
