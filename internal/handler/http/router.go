package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/ForumGo/internal/domain"
	"github.com/utafrali/ForumGo/internal/service"
	"github.com/utafrali/ForumGo/pkg/health"
	"github.com/utafrali/ForumGo/pkg/middleware"
)

// RouterConfig carries everything NewRouter mounts.
type RouterConfig struct {
	ServiceName string
	Sessions    *service.SessionService
	Auth        *AuthMiddleware
	Health      *health.Handler
	Metrics     *middleware.HTTPMetrics
	Gatherer    prometheus.Gatherer
	RateLimiter *middleware.RateLimiter
	CORS        middleware.CORSConfig
	PprofCIDRs  []string
	Logger      *slog.Logger
}

// NewRouter creates a chi router with all forum API routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	logger := cfg.Logger

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	authn := cfg.Auth
	authHandler := NewAuthHandler(cfg.Sessions, logger)
	userHandler := NewUserHandler(cfg.Sessions, logger)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.NoStore)

		// Public, rate limited per client IP.
		r.Group(func(r chi.Router) {
			if cfg.RateLimiter != nil {
				r.Use(cfg.RateLimiter.Middleware)
			}
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(authn.Authenticate)
			r.Get("/me", authHandler.Me)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)
			r.Post("/logout-all", authHandler.LogoutAll)
		})
	})

	r.Route("/api/v1/users/{userId}", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(authn.Authenticate)

		r.With(authn.RequireRole(domain.RoleAdmin, domain.RoleModerator)).Get("/", userHandler.GetUser)
		r.With(authn.RequireRole(domain.RoleAdmin)).Delete("/", userHandler.DeleteUser)
		r.With(authn.SelfOrElevated("userId")).Get("/profile", userHandler.GetUser)
	})

	r.Route("/api/v1/posts", func(r chi.Router) {
		r.Use(authn.Authenticate)

		r.With(authn.RequireVerifiedEmail).Post("/", Admitted)
		r.With(authn.RequireOwnership(domain.ResourcePost, "slug")).Put("/{slug}", Admitted)
		r.With(authn.RequireOwnership(domain.ResourcePost, "slug")).Delete("/{slug}", Admitted)
	})

	r.Route("/api/v1/comments", func(r chi.Router) {
		r.Use(authn.Authenticate)

		r.With(authn.RequireOwnership(domain.ResourceComment, "commentId")).Put("/{commentId}", Admitted)
		r.With(authn.RequireOwnership(domain.ResourceComment, "commentId")).Delete("/{commentId}", Admitted)
	})

	r.Route("/api/v1/votes", func(r chi.Router) {
		r.Use(authn.OptionalAuthenticate)

		r.Get("/counts/{targetType}/{targetId}", VoteCounts)
	})

	return r
}
