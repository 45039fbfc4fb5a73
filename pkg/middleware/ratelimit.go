package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	apperrors "github.com/utafrali/ForumGo/pkg/errors"
	"github.com/utafrali/ForumGo/pkg/httputil"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a per-client-IP token bucket.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	trusted  []*net.IPNet
}

// NewRateLimiter allows rps requests per second per IP with the given burst.
// Idle visitors are forgotten after ttl once Run is started.
func NewRateLimiter(rps float64, burst int, ttl time.Duration, clock clockwork.Clock, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		ttl:      ttl,
		clock:    clock,
		logger:   logger,
	}
}

// TrustProxies lets forwarding headers identify the client when the direct
// peer is inside one of cidrs. Without it every peer is its own client.
func (l *RateLimiter) TrustProxies(cidrs []string) *RateLimiter {
	l.trusted = ParseCIDRs(cidrs, l.logger)
	return l
}

// Run evicts idle visitors every ttl until ctx is done.
func (l *RateLimiter) Run(ctx context.Context) {
	ticker := l.clock.NewTicker(l.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			l.evictIdle()
		}
	}
}

func (l *RateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (l *RateLimiter) evictIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, ip)
		}
	}
}

func (l *RateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// Middleware rejects requests over the limit with 429 RATE_LIMIT_EXCEEDED.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r, l.trusted)
		if !l.allow(ip) {
			l.logger.WarnContext(r.Context(), "rate limit exceeded",
				slog.String("ip", ip),
				slog.String("path", r.URL.Path),
			)
			httputil.WriteError(w, r, apperrors.TooManyRequests("too many requests"), l.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}
