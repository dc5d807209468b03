package handler

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/ratelimit"
)

// Health statuses reported by /health.
const (
	StatusOK        = "ok"
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthChecker is anything that can be pinged: the database, the cache, or
// the readiness probe.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// AIHealthChecker reports the generator's circuit breaker.
type AIHealthChecker interface {
	IsCircuitOpen() bool
}

// BudgetReporter exposes the generation budget.
type BudgetReporter interface {
	Stats() ratelimit.BudgetStats
}

// HealthHandlerConfig holds the dependencies of HealthHandler. Only Logger
// is required.
type HealthHandlerConfig struct {
	HealthChecker   HealthChecker
	AIHealthChecker AIHealthChecker
	// CacheChecker is optional; a failing cache degrades but does not fail.
	CacheChecker HealthChecker
	// Budget is optional; an exhausted window degrades.
	Budget BudgetReporter
	// Readiness replaces the database ping on /ready when set.
	Readiness HealthChecker
	Version   string
	Logger    *zap.Logger
}

// component is one entry of the /health report. A failing critical
// component makes the service unhealthy; any other failure only degrades it.
type component struct {
	name     string
	critical bool
	check    func(ctx context.Context) error
}

// HealthHandler serves /health, /ready and /live.
type HealthHandler struct {
	components []component
	readiness  HealthChecker
	version    string
	logger     *zap.Logger
}

var (
	errCircuitOpen     = errors.New("circuit breaker open, generation temporarily unavailable")
	errBudgetExhausted = errors.New("generation budget exhausted for the current window")
)

// NewHealthHandler creates a HealthHandler. It panics without a logger.
func NewHealthHandler(cfg HealthHandlerConfig) *HealthHandler {
	if cfg.Logger == nil {
		panic("logger is required")
	}

	h := &HealthHandler{
		readiness: cfg.Readiness,
		version:   cfg.Version,
		logger:    cfg.Logger,
	}
	if h.readiness == nil {
		h.readiness = cfg.HealthChecker
	}

	if db := cfg.HealthChecker; db != nil {
		h.components = append(h.components, component{name: "database", critical: true, check: db.Ping})
	}
	if breaker := cfg.AIHealthChecker; breaker != nil {
		h.components = append(h.components, component{name: "ai_service", check: func(context.Context) error {
			if breaker.IsCircuitOpen() {
				return errCircuitOpen
			}
			return nil
		}})
	}
	if cache := cfg.CacheChecker; cache != nil {
		h.components = append(h.components, component{name: "cache", check: cache.Ping})
	}
	if budget := cfg.Budget; budget != nil {
		h.components = append(h.components, component{name: "generation_budget", check: func(context.Context) error {
			s := budget.Stats()
			if s.MinuteRemaining == 0 || s.HourRemaining == 0 || s.DayRemaining == 0 {
				return errBudgetExhausted
			}
			return nil
		}})
	}
	return h
}

// RegisterRoutes registers health routes on the router.
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReadiness)
	r.Get("/live", h.HandleLiveness)
}

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status  string                     `json:"status"`
	Version string                     `json:"version,omitempty"`
	Checks  map[string]ComponentHealth `json:"checks,omitempty"`
}

// ComponentHealth is the state of one dependency.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HandleHealth checks every dependency concurrently. Only a failing
// database answers 503.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	errs := make([]error, len(h.components))
	var wg sync.WaitGroup
	for i, c := range h.components {
		wg.Add(1)
		go func(i int, c component) {
			defer wg.Done()
			errs[i] = c.check(ctx)
		}(i, c)
	}
	wg.Wait()

	resp := HealthResponse{Status: StatusOK, Version: h.version, Checks: make(map[string]ComponentHealth, len(h.components))}
	var failed []string
	for i, c := range h.components {
		if errs[i] == nil {
			resp.Checks[c.name] = ComponentHealth{Status: StatusHealthy}
			continue
		}
		failed = append(failed, c.name)
		state := StatusDegraded
		if c.critical {
			state = StatusUnhealthy
			resp.Status = StatusUnhealthy
		} else if resp.Status == StatusOK {
			resp.Status = StatusDegraded
		}
		resp.Checks[c.name] = ComponentHealth{Status: state, Message: errs[i].Error()}
	}

	code := http.StatusOK
	if resp.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		h.logger.Warn("health check failing", zap.String("status", resp.Status), zap.Strings("components", failed))
	}
	JSON(w, code, resp)
}

// HandleReadiness answers 503 while the readiness check fails, which
// includes the whole shutdown drain.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.readiness != nil {
		if err := h.readiness.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", zap.Error(err))
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	_, _ = w.Write([]byte("ready"))
}

// HandleLiveness always answers 200.
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("alive"))
}
