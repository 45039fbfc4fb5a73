package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
)

// Purger removes revocation entries that expired at or before now.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Config holds sweeper timing.
type Config struct {
	// Interval between two sweeps.
	Interval time.Duration

	// Timeout bounds a single sweep.
	Timeout time.Duration
}

// DefaultConfig returns an hourly sweep with a one minute budget.
func DefaultConfig() Config {
	return Config{Interval: time.Hour, Timeout: time.Minute}
}

// Sweeper periodically purges expired revocation entries. Stale entries are
// also dropped lazily by the store, so a missed sweep only costs space.
type Sweeper struct {
	purger   Purger
	clock    clockwork.Clock
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	sweeps  *prometheus.CounterVec
	removed prometheus.Counter

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Sweeper and registers its metrics with reg.
func New(purger Purger, cfg Config, clock clockwork.Clock, reg prometheus.Registerer, logger *slog.Logger) (*Sweeper, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", cfg.Interval)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	s := &Sweeper{
		purger:   purger,
		clock:    clock,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		logger:   logger,
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revocation_sweeps_total",
			Help: "Total number of revocation cleanup sweeps by result",
		}, []string{"result"}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "revocation_entries_purged_total",
			Help: "Total number of expired revocation entries removed by sweeps",
		}),
	}
	reg.MustRegister(s.sweeps, s.removed)

	return s, nil
}

// Start launches the sweep loop. It returns immediately; calling it on a
// running sweeper does nothing.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx, s.done)

	s.logger.Info("revocation sweeper started", slog.Duration("interval", s.interval))
}

// Stop cancels the loop and waits for it to exit. It is safe to call more
// than once and before Start.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	s.logger.Info("revocation sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			// Failures are logged and counted; the next tick runs regardless.
			_, _ = s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single purge with the current clock time.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	removed, err := s.purger.PurgeExpired(ctx, s.clock.Now())
	if err != nil {
		s.sweeps.WithLabelValues("error").Inc()
		s.logger.ErrorContext(ctx, "revocation sweep failed", slog.String("error", err.Error()))
		return 0, fmt.Errorf("purge expired revocations: %w", err)
	}

	s.sweeps.WithLabelValues("success").Inc()
	s.removed.Add(float64(removed))
	s.logger.InfoContext(ctx, "revocation sweep completed", slog.Int64("removed", removed))

	return removed, nil
}
