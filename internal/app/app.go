package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/ForumGo/internal/auth"
	"github.com/utafrali/ForumGo/internal/authz"
	"github.com/utafrali/ForumGo/internal/config"
	"github.com/utafrali/ForumGo/internal/event"
	handler "github.com/utafrali/ForumGo/internal/handler/http"
	"github.com/utafrali/ForumGo/internal/repository"
	"github.com/utafrali/ForumGo/internal/repository/guarded"
	"github.com/utafrali/ForumGo/internal/repository/postgres"
	redisrepo "github.com/utafrali/ForumGo/internal/repository/redis"
	"github.com/utafrali/ForumGo/internal/service"
	"github.com/utafrali/ForumGo/internal/sweeper"
	"github.com/utafrali/ForumGo/migrations"
	"github.com/utafrali/ForumGo/pkg/database"
	"github.com/utafrali/ForumGo/pkg/health"
	pkgkafka "github.com/utafrali/ForumGo/pkg/kafka"
	"github.com/utafrali/ForumGo/pkg/middleware"
	"github.com/utafrali/ForumGo/pkg/tracing"
)

const (
	serviceName    = "forum-api"
	serviceVersion = "0.1.0"

	rateLimiterIdleTTL = 10 * time.Minute
)

// App wires together all dependencies and runs the forum API.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	sweeper        *sweeper.Sweeper
	rateLimiter    *middleware.RateLimiter
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clock := clockwork.NewRealClock()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, cfg.TracingConfig(serviceName, serviceVersion))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pool, err := database.NewPostgresPool(ctx, cfg.PostgresConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if threshold := cfg.SlowQueryThreshold(); threshold > 0 {
		database.SetSlowQueryLogging(threshold, logger)
	}

	// Metrics registry.
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := database.RegisterPoolMetrics(reg, pool, serviceName); err != nil {
		pool.Close()
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})

	// Revocation store backend.
	var (
		rawStore    repository.RevocationStore
		redisClient *redis.Client
	)
	switch cfg.RevocationBackend {
	case config.BackendRedis:
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisConfig(), logger)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis", slog.String("addr", cfg.RedisConfig().Addr()))
		healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
		rawStore = redisrepo.NewRevocationStore(redisClient, clock)
	default:
		rawStore = postgres.NewRevocationStore(pool, clock)
	}
	logger.Info("revocation store selected", slog.String("backend", cfg.RevocationBackend))

	guardCfg := guarded.DefaultConfig(cfg.RevocationBackend)
	guardCfg.CallTimeout = cfg.StoreCallTimeout
	store := guarded.New(rawStore, guardCfg, reg, logger)

	// Initialize Kafka producer with connection validation and retry.
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	reg.MustRegister(producer.Collector())
	if err := pingKafkaWithRetry(ctx, producer, logger); err != nil {
		logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// Build the dependency graph.
	codec, err := auth.NewCodec(auth.CodecConfig{
		Secret:   cfg.JWTSecret,
		Lifetime: cfg.CredentialLifetime,
		Issuer:   cfg.JWTIssuer,
	}, clock)
	if err != nil {
		closeAll(producer, redisClient, pool)
		return nil, fmt.Errorf("init credential codec: %w", err)
	}

	users := postgres.NewUserRepository(pool)
	resources := postgres.NewResourceLookup(pool)
	eventProducer := event.NewProducer(producer, logger)

	authenticator := service.NewAuthenticator(codec, store, users, reg, logger)
	sessions := service.NewSessionService(codec, store, users, eventProducer, clock, cfg.BcryptCost, logger)
	authMiddleware := handler.NewAuthMiddleware(authenticator, authz.NewAuthorizer(resources), logger)

	// Sweeps use the raw store and never count against the breaker.
	sw, err := sweeper.New(rawStore, sweeper.Config{
		Interval: cfg.SweepInterval,
		Timeout:  cfg.SweepTimeout,
	}, clock, reg, logger)
	if err != nil {
		closeAll(producer, redisClient, pool)
		return nil, fmt.Errorf("init sweeper: %w", err)
	}

	rateLimiter := middleware.NewRateLimiter(cfg.LoginRateLimitRPS, cfg.LoginRateLimitBurst, rateLimiterIdleTTL, clock, logger).
		TrustProxies(cfg.TrustedProxyCIDRs)

	// HTTP router.
	router := handler.NewRouter(handler.RouterConfig{
		ServiceName: serviceName,
		Sessions:    sessions,
		Auth:        authMiddleware,
		Health:      healthHandler,
		Metrics:     middleware.NewHTTPMetrics(reg, serviceName),
		Gatherer:    reg,
		RateLimiter: rateLimiter,
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Environment:    cfg.Environment,
		},
		PprofCIDRs: cfg.PprofAllowedCIDRs,
		Logger:     logger,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		producer:       producer,
		httpServer:     httpServer,
		sweeper:        sw,
		rateLimiter:    rateLimiter,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and background jobs, then blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Start background jobs.
	go a.rateLimiter.Run(ctx)
	go func() {
		// Entries that expired while the process was down.
		_, _ = a.sweeper.SweepOnce(ctx)
	}()
	a.sweeper.Start(ctx)

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Revocation sweeper
// 3. Tracer (flush pending spans from drained requests)
// 4. Kafka producer
// 5. Redis client, when selected
// 6. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Stop the sweeper before its store goes away.
	a.sweeper.Stop()

	// 3. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 4. Close Kafka producer.
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 5. Close Redis client.
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 6. Close PostgreSQL pool.
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeAll releases connections opened before a failed init step.
func closeAll(producer *pkgkafka.Producer, redisClient *redis.Client, pool *pgxpool.Pool) {
	_ = producer.Close()
	if redisClient != nil {
		_ = redisClient.Close()
	}
	pool.Close()
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s/4s with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		err := producer.Ping(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < 2 {
			base := time.Duration(1<<uint(attempt)) * time.Second
			jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter for retry backoff
			wait := base + jitter
			logger.Warn("kafka producer ping failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", 3),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", lastErr)
}
