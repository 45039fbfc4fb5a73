package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/utafrali/ForumGo/pkg/config"
	"github.com/utafrali/ForumGo/pkg/database"
	"github.com/utafrali/ForumGo/pkg/tracing"
)

const defaultJWTSecret = "change-this-to-a-secure-secret"

// Revocation store backends.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds all configuration for the forum API.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"FORUM_HTTP_PORT" envDefault:"8080"`

	// PostgreSQL
	PostgresHost     string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string        `env:"POSTGRES_USER" envDefault:"forum"`
	PostgresPass     string        `env:"POSTGRES_PASSWORD" envDefault:"forum_secret"`
	PostgresDB       string        `env:"FORUM_DB_NAME" envDefault:"forum_db"`
	PostgresSSL      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns       int32         `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns       int32         `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLife    time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdle    time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	SlowQueryThresMS int           `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Revocation store
	RevocationBackend string        `env:"REVOCATION_BACKEND" envDefault:"postgres"`
	StoreCallTimeout  time.Duration `env:"STORE_CALL_TIMEOUT" envDefault:"2s"`
	SweepInterval     time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
	SweepTimeout      time.Duration `env:"SWEEP_TIMEOUT" envDefault:"1m"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT
	JWTSecret          string        `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTIssuer          string        `env:"JWT_ISSUER" envDefault:"forum-api"`
	CredentialLifetime time.Duration `env:"CREDENTIAL_LIFETIME" envDefault:"168h"`
	BcryptCost         int           `env:"BCRYPT_COST" envDefault:"12"`

	// Rate limiting on register/login
	LoginRateLimitRPS   float64 `env:"LOGIN_RATE_LIMIT_RPS" envDefault:"1"`
	LoginRateLimitBurst int     `env:"LOGIN_RATE_LIMIT_BURST" envDefault:"10"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// pprof, disabled when empty
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`

	// Reverse proxies whose forwarding headers name the client
	TrustedProxyCIDRs []string `env:"TRUSTED_PROXY_CIDRS" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load forum config: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field rules after parsing.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	switch c.RevocationBackend {
	case BackendPostgres, BackendRedis:
	default:
		return fmt.Errorf("REVOCATION_BACKEND must be %q or %q, got %q", BackendPostgres, BackendRedis, c.RevocationBackend)
	}

	if c.CredentialLifetime <= 0 {
		return fmt.Errorf("CREDENTIAL_LIFETIME must be positive, got %s", c.CredentialLifetime)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	}
	if c.StoreCallTimeout <= 0 {
		return fmt.Errorf("STORE_CALL_TIMEOUT must be positive, got %s", c.StoreCallTimeout)
	}
	if c.LoginRateLimitRPS <= 0 || c.LoginRateLimitBurst < 1 {
		return fmt.Errorf("login rate limit must be positive, got %v rps burst %d", c.LoginRateLimitRPS, c.LoginRateLimitBurst)
	}

	// In non-development environments, require an explicitly set, strong JWT secret.
	if c.Environment != "development" {
		if c.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", c.Environment)
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(c.JWTSecret))
		}
	}

	return nil
}

// PostgresConfig returns the pool settings for the forum database.
func (c *Config) PostgresConfig() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: c.DBMaxConnLife,
		MaxConnIdleTime: c.DBMaxConnIdle,
	}
}

// RedisConfig returns the client settings for the revocation store.
func (c *Config) RedisConfig() database.RedisConfig {
	cfg := database.DefaultRedisConfig()
	cfg.Host = c.RedisHost
	cfg.Port = c.RedisPort
	cfg.Password = c.RedisPassword
	cfg.DB = c.RedisDB
	return cfg
}

// TracingConfig returns the tracer settings.
func (c *Config) TracingConfig(serviceName, version string) tracing.Config {
	return tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTELEndpoint,
		SampleRate:     c.OTELSampleRate,
		Enabled:        c.OTELEnabled,
	}
}

// SlowQueryThreshold returns the slow query log threshold.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryThresMS) * time.Millisecond
}
