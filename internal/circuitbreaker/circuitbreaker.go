// Package circuitbreaker stops calling a generation provider that keeps
// failing and probes it again after a cool-down.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/clock"
	apperrors "github.com/jkindrix/pitchcheck/internal/errors"
)

// State is the position of the breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var stateNames = [...]string{StateClosed: "closed", StateOpen: "open", StateHalfOpen: "half-open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// ErrCircuitOpen is returned, without calling the protected function, while
// the breaker is open or all half-open probes are in flight.
var ErrCircuitOpen = apperrors.ErrCircuitOpen

// Config holds the thresholds of a breaker.
type Config struct {
	// FailureThreshold consecutive failures open the circuit.
	FailureThreshold int
	// SuccessThreshold consecutive half-open successes close it again.
	SuccessThreshold int
	// OpenTimeout is the cool-down before the first probe.
	OpenTimeout time.Duration
	// HalfOpenMaxRequests caps the probes let through while half-open.
	HalfOpenMaxRequests int
}

// DefaultConfig returns the thresholds used for generation providers.
func DefaultConfig() *Config {
	return &Config{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		OpenTimeout:         30 * time.Second,
		HalfOpenMaxRequests: 2,
	}
}

// StateChangeFunc is called with the breaker locked after every transition.
type StateChangeFunc func(name string, from, to State)

// CircuitBreaker is safe for concurrent use.
type CircuitBreaker struct {
	name          string
	cfg           Config
	clock         clock.Clock
	onStateChange StateChangeFunc
	logger        *zap.Logger

	mu        sync.Mutex
	state     State
	failures  int // consecutive, closed or half-open
	successes int // consecutive, half-open only
	probes    int
	openedAt  time.Time
}

// Option configures a CircuitBreaker.
type Option func(*CircuitBreaker)

// WithClock overrides the time source.
func WithClock(c clock.Clock) Option {
	return func(cb *CircuitBreaker) { cb.clock = c }
}

// WithStateChange registers a transition callback.
func WithStateChange(fn StateChangeFunc) Option {
	return func(cb *CircuitBreaker) { cb.onStateChange = fn }
}

// New creates a closed breaker. A nil cfg uses DefaultConfig.
func New(name string, cfg *Config, logger *zap.Logger, opts ...Option) *CircuitBreaker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cb := &CircuitBreaker{
		name:   name,
		cfg:    *cfg,
		clock:  clock.New(),
		logger: logger.With(zap.String("breaker", name)),
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// Execute runs fn unless the circuit is open. Only errors for which
// IsFailure holds count against the circuit.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !cb.admit() {
		return ErrCircuitOpen
	}
	err := fn(ctx)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.clock.Since(cb.openedAt) < cb.cfg.OpenTimeout {
			return false
		}
		cb.transition(StateHalfOpen)
	}
	if cb.state == StateHalfOpen {
		if cb.probes >= cb.cfg.HalfOpenMaxRequests {
			return false
		}
		cb.probes++
	}
	return true
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !IsFailure(err) {
		cb.failures = 0
		if cb.state == StateHalfOpen {
			cb.successes++
			if cb.successes >= cb.cfg.SuccessThreshold {
				cb.logger.Info("generation provider recovered")
				cb.transition(StateClosed)
			}
		}
		return
	}

	cb.failures++
	switch {
	case cb.state == StateHalfOpen:
		cb.logger.Warn("probe failed, circuit open again", zap.Error(err))
		cb.transition(StateOpen)
	case cb.state == StateClosed && cb.failures >= cb.cfg.FailureThreshold:
		cb.logger.Warn("circuit opened", zap.Int("failures", cb.failures), zap.Error(err))
		cb.transition(StateOpen)
	}
}

// transition must be called with mu held.
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	cb.state = to
	cb.failures, cb.successes, cb.probes = 0, 0, 0
	if to == StateOpen {
		cb.openedAt = cb.clock.Now()
	}
	if cb.onStateChange != nil && from != to {
		cb.onStateChange(cb.name, from, to)
	}
}

// Name returns the breaker's name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// State returns the current state. An open breaker whose cool-down has
// passed still reports open until the next call probes it.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// IsFailure reports whether err counts against the circuit. Caller
// cancellation, the breaker's own rejection and user errors do not.
func IsFailure(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, context.Canceled),
		errors.Is(err, ErrCircuitOpen):
		return false
	}
	return !apperrors.IsUserError(err)
}
