package guarded

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/ForumGo/internal/repository"
)

// ErrStoreUnavailable is returned when the wrapped store fails, times out or
// the breaker is open.
var ErrStoreUnavailable = errors.New("revocation store unavailable")

// Config holds the deadline and circuit breaker settings of a guarded store.
type Config struct {
	// Name identifies the breaker in metrics and logs.
	Name string

	// CallTimeout bounds every call to the wrapped store.
	CallTimeout time.Duration

	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state for clearing counts.
	Interval time.Duration

	// Timeout is how long the breaker stays open before moving to half-open.
	Timeout time.Duration

	// FailureRatio trips the breaker once reached.
	FailureRatio float64

	// MinRequests is the minimum number of calls before FailureRatio is evaluated.
	MinRequests uint32
}

// DefaultConfig returns sensible defaults for a guarded revocation store.
func DefaultConfig(name string) Config {
	return Config{
		Name:         name,
		CallTimeout:  2 * time.Second,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// Store decorates a RevocationStore with a per-call deadline and a circuit
// breaker. Every failure is reported as ErrStoreUnavailable.
type Store struct {
	next    repository.RevocationStore
	breaker *gobreaker.CircuitBreaker[any]
	timeout time.Duration
	name    string
	state   *prometheus.GaugeVec
	calls   *prometheus.CounterVec
}

// New wraps next and registers the breaker metrics with reg.
func New(next repository.RevocationStore, cfg Config, reg prometheus.Registerer, logger *slog.Logger) *Store {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultConfig(cfg.Name).CallTimeout
	}

	state := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "revocation_store_breaker_state",
		Help: "Current state of the revocation store circuit breaker (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "revocation_store_calls_total",
		Help: "Total number of revocation store calls by operation and result",
	}, []string{"name", "operation", "result"})
	reg.MustRegister(state, calls)

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			state.WithLabelValues(name).Set(stateToFloat(to))
		},
		// Callers that hang up do not count against the store.
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
	}
	state.WithLabelValues(cfg.Name).Set(0)

	return &Store{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
		timeout: cfg.CallTimeout,
		name:    cfg.Name,
		state:   state,
		calls:   calls,
	}
}

// stateToFloat maps gobreaker states to prometheus gauge values.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// State returns the current state of the circuit breaker.
func (s *Store) State() gobreaker.State {
	return s.breaker.State()
}

// Revoke implements repository.RevocationStore.
func (s *Store) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := call(ctx, s, "revoke", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.next.Revoke(ctx, token, expiresAt)
	})
	return err
}

// IsRevoked implements repository.RevocationStore.
func (s *Store) IsRevoked(ctx context.Context, token string) (bool, error) {
	return call(ctx, s, "is_revoked", func(ctx context.Context) (bool, error) {
		return s.next.IsRevoked(ctx, token)
	})
}

// PurgeExpired implements repository.RevocationStore.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return call(ctx, s, "purge_expired", func(ctx context.Context) (int64, error) {
		return s.next.PurgeExpired(ctx, now)
	})
}

func call[T any](ctx context.Context, s *Store, op string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.breaker.Execute(func() (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		result := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			result = "rejected"
		}
		s.calls.WithLabelValues(s.name, op, result).Inc()
		return zero, fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
	}

	s.calls.WithLabelValues(s.name, op, "ok").Inc()
	return res.(T), nil
}
