// Package shutdown orders the teardown of the server's dependencies.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrDraining is reported by the readiness probe once shutdown has begun.
var ErrDraining = errors.New("server is shutting down")

// Phase groups hooks that may run concurrently. Phases run in order.
type Phase int

const (
	// PhaseHTTP stops the listener and waits for in-flight chat turns.
	PhaseHTTP Phase = iota
	// PhaseBackground stops background loops such as the rate limiter sweep.
	PhaseBackground
	// PhaseEvents flushes the event bus.
	PhaseEvents
	// PhaseStorage closes the database pool, the cache and provider clients.
	PhaseStorage

	numPhases
)

var phaseNames = [numPhases]string{"http", "background", "events", "storage"}

func (p Phase) String() string {
	if p < 0 || p >= numPhases {
		return "unknown"
	}
	return phaseNames[p]
}

type hook struct {
	name string
	fn   func(ctx context.Context) error
}

// Config holds configuration for the shutdown coordinator.
type Config struct {
	// Timeout bounds the hooks of every phase together.
	Timeout time.Duration
	// DrainDelay is waited after readiness starts failing and before the
	// first phase. It does not count against Timeout.
	DrainDelay time.Duration
}

const defaultTimeout = 30 * time.Second

// Coordinator runs shutdown hooks phase by phase, exactly once.
type Coordinator struct {
	cfg    Config
	logger *zap.Logger

	mu    sync.Mutex
	hooks [numPhases][]hook

	once     sync.Once
	draining chan struct{}
	done     chan struct{}
	err      error
}

// NewCoordinator creates a Coordinator. A nil or zero-timeout cfg uses a
// 30 second timeout.
func NewCoordinator(cfg *Config, logger *zap.Logger) *Coordinator {
	c := &Coordinator{
		logger:   logger.Named("shutdown"),
		draining: make(chan struct{}),
		done:     make(chan struct{}),
	}
	if cfg != nil {
		c.cfg = *cfg
	}
	if c.cfg.Timeout <= 0 {
		c.cfg.Timeout = defaultTimeout
	}
	return c
}

// RegisterFunc adds fn to phase. Hooks of one phase run concurrently.
func (c *Coordinator) RegisterFunc(phase Phase, name string, fn func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks[phase] = append(c.hooks[phase], hook{name: name, fn: fn})
}

// RegisterCloser adds a hook without context or error, such as a pool's
// Close.
func (c *Coordinator) RegisterCloser(phase Phase, name string, fn func()) {
	c.RegisterFunc(phase, name, func(context.Context) error {
		fn()
		return nil
	})
}

// Shutdown starts the sequence on the first call and waits for it. The
// returned error joins every failed hook; ctx only bounds the wait.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.once.Do(func() {
		close(c.draining)
		go c.run()
	})
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ShutdownCh is closed when shutdown starts.
func (c *Coordinator) ShutdownCh() <-chan struct{} {
	return c.draining
}

func (c *Coordinator) run() {
	defer close(c.done)

	if d := c.cfg.DrainDelay; d > 0 {
		c.logger.Info("draining before shutdown", zap.Duration("delay", d))
		time.Sleep(d)
	}

	// Detached from the signal that triggered the shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()

	c.logger.Info("shutting down", zap.Duration("timeout", c.cfg.Timeout))
	start := time.Now()

	var errs []error
	for p := Phase(0); p < numPhases; p++ {
		c.mu.Lock()
		hooks := c.hooks[p]
		c.mu.Unlock()
		if len(hooks) == 0 {
			continue
		}

		errs = append(errs, c.runPhase(ctx, p, hooks)...)
		if err := ctx.Err(); err != nil {
			c.logger.Error("shutdown timed out", zap.Stringer("phase", p))
			errs = append(errs, err)
			break
		}
	}

	c.err = errors.Join(errs...)
	c.logger.Info("shutdown finished",
		zap.Duration("took", time.Since(start)),
		zap.Int("failed_hooks", len(errs)),
	)
}

func (c *Coordinator) runPhase(ctx context.Context, p Phase, hooks []hook) []error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, h := range hooks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			err := h.fn(ctx)
			log := c.logger.With(
				zap.String("hook", h.name),
				zap.Stringer("phase", p),
				zap.Duration("took", time.Since(start)),
			)
			if err == nil {
				log.Debug("hook done")
				return
			}
			log.Error("hook failed", zap.Error(err))
			mu.Lock()
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
			mu.Unlock()
		}()
	}
	wg.Wait()
	return errs
}

// Pinger checks a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessProbe fails once shutdown starts so load balancers stop routing
// new chat sessions here, and otherwise defers to the wrapped dependency.
type ReadinessProbe struct {
	next     Pinger
	draining atomic.Bool
}

// NewReadinessProbe watches coordinator for shutdown. next may be nil.
func NewReadinessProbe(coordinator *Coordinator, next Pinger) *ReadinessProbe {
	rp := &ReadinessProbe{next: next}
	go func() {
		<-coordinator.ShutdownCh()
		rp.draining.Store(true)
	}()
	return rp
}

// Draining reports whether shutdown has started.
func (rp *ReadinessProbe) Draining() bool {
	return rp.draining.Load()
}

// Ping returns ErrDraining during shutdown, else the wrapped check's result.
func (rp *ReadinessProbe) Ping(ctx context.Context) error {
	if rp.draining.Load() {
		return ErrDraining
	}
	if rp.next == nil {
		return nil
	}
	return rp.next.Ping(ctx)
}
