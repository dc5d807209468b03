package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/clock"
	apperrors "github.com/jkindrix/pitchcheck/internal/errors"
)

// Defaults used when the configured values are not positive.
const (
	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = time.Minute
)

// RateLimiter is a fixed-window limiter per client address. Most API calls
// end in a generation request, so the whole API shares one allowance.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*allowance
	rate    int
	window  time.Duration
	clock   clock.Clock
	logger  *zap.Logger
	onLimit func()

	done     chan struct{}
	stopOnce sync.Once
}

type allowance struct {
	left    int
	resetAt time.Time
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithLimiterClock sets the time source used for windows.
func WithLimiterClock(c clock.Clock) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.clock = c
	}
}

// NewRateLimiter creates a limiter allowing rate requests per window and
// starts the loop that forgets idle clients. Call Stop to end the loop.
func NewRateLimiter(rate int, window time.Duration, logger *zap.Logger, opts ...RateLimiterOption) *RateLimiter {
	if rate <= 0 {
		rate = DefaultRateLimitRequests
	}
	if window <= 0 {
		window = DefaultRateLimitWindow
	}
	rl := &RateLimiter{
		clients: make(map[string]*allowance),
		rate:    rate,
		window:  window,
		clock:   clock.New(),
		logger:  logger,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(rl)
	}

	go rl.forgetIdle()

	return rl
}

// OnLimit registers fn to be called for every rejected request.
func (rl *RateLimiter) OnLimit(fn func()) {
	rl.onLimit = fn
}

// Stop ends the cleanup loop. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) forgetIdle() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

// sweep drops clients whose window ended more than a window ago.
func (rl *RateLimiter) sweep() {
	now := rl.clock.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, a := range rl.clients {
		if now.Sub(a.resetAt) > rl.window {
			delete(rl.clients, key)
		}
	}
}

// take spends one request for key. It reports whether the request is
// allowed, how many remain and when the window resets.
func (rl *RateLimiter) take(key string) (bool, int, time.Time) {
	now := rl.clock.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	a, ok := rl.clients[key]
	if !ok || !now.Before(a.resetAt) {
		a = &allowance{left: rl.rate, resetAt: now.Add(rl.window)}
		rl.clients[key] = a
	}
	if a.left == 0 {
		return false, 0, a.resetAt
	}
	a.left--
	return true, a.left, a.resetAt
}

// RateLimit returns HTTP middleware that rate limits requests per client.
// Put it after chi's RealIP so proxied clients are told apart.
func RateLimit(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			ok, left, resetAt := rl.take(key)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(rl.rate))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(left))

			if !ok {
				LoggerWithCorrelation(r.Context(), rl.logger).Warn("rate limit exceeded",
					zap.String("client", key),
					zap.String("path", r.URL.Path),
				)
				if rl.onLimit != nil {
					rl.onLimit()
				}
				retry := int(resetAt.Sub(rl.clock.Now()).Seconds() + 0.999)
				if retry < 1 {
					retry = 1
				}
				h.Set("Retry-After", strconv.Itoa(retry))
				writeError(w, apperrors.ErrRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey is the host part of RemoteAddr.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
