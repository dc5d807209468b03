// Package ratelimit caps how much text generation the service requests.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/ai"
	"github.com/jkindrix/pitchcheck/internal/clock"
	"github.com/jkindrix/pitchcheck/internal/config"
	apperrors "github.com/jkindrix/pitchcheck/internal/errors"
)

// Rejection reasons, also used as metric labels.
const (
	ReasonConcurrent = "concurrent"
	ReasonMinute     = "minute"
	ReasonHour       = "hour"
	ReasonDay        = "day"
)

// Errors returned by Budget.Acquire.
var (
	ErrConcurrentLimit = errors.New("concurrent generation limit exceeded")
	ErrMinuteLimit     = errors.New("minute generation limit exceeded")
	ErrHourLimit       = errors.New("hour generation limit exceeded")
	ErrDayLimit        = errors.New("day generation limit exceeded")
)

// RejectionRecorder is notified of every refused acquisition.
type RejectionRecorder interface {
	RecordBudgetRejection(reason string)
}

// BudgetConfig holds the caps of a Budget. A zero value disables that cap.
type BudgetConfig struct {
	PerMinute     int
	PerHour       int
	PerDay        int
	MaxConcurrent int
}

// BudgetConfigFrom reads the budget caps from the LLM configuration.
func BudgetConfigFrom(cfg *config.LLMConfig) *BudgetConfig {
	return &BudgetConfig{
		PerMinute:     cfg.PerMinute,
		PerHour:       cfg.PerHour,
		PerDay:        cfg.PerDay,
		MaxConcurrent: cfg.MaxConcurrent,
	}
}

// Budget limits generation calls per minute, hour and day, and how many may
// run at once. It is safe for concurrent use.
type Budget struct {
	mu sync.Mutex

	maxConcurrent int
	active        int

	// nil buckets are unlimited
	minute *window
	hour   *window
	day    *window

	totalRequests int64
	totalRejected int64

	recorder RejectionRecorder
	logger   *zap.Logger
	clock    clock.Clock
}

// BudgetOption configures a Budget.
type BudgetOption func(*Budget)

// WithClock sets the time source of the windows.
func WithClock(c clock.Clock) BudgetOption {
	return func(b *Budget) {
		b.clock = c
	}
}

// NewBudget creates a Budget. recorder may be nil.
func NewBudget(cfg *BudgetConfig, recorder RejectionRecorder, logger *zap.Logger, opts ...BudgetOption) *Budget {
	if cfg == nil {
		cfg = &BudgetConfig{}
	}
	b := &Budget{
		maxConcurrent: cfg.MaxConcurrent,
		recorder:      recorder,
		logger:        logger,
		clock:         clock.New(),
	}
	for _, opt := range opts {
		opt(b)
	}
	now := b.clock.Now()
	b.minute = newWindow(cfg.PerMinute, time.Minute, now)
	b.hour = newWindow(cfg.PerHour, time.Hour, now)
	b.day = newWindow(cfg.PerDay, 24*time.Hour, now)
	return b
}

// Acquire takes one slot from every cap or none of them. Each successful
// Acquire must be paired with a Release.
func (b *Budget) Acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalRequests++
	now := b.clock.Now()

	if b.maxConcurrent > 0 && b.active >= b.maxConcurrent {
		return b.reject(ReasonConcurrent, ErrConcurrentLimit)
	}
	if !b.minute.take(now) {
		return b.reject(ReasonMinute, ErrMinuteLimit)
	}
	if !b.hour.take(now) {
		b.minute.give()
		return b.reject(ReasonHour, ErrHourLimit)
	}
	if !b.day.take(now) {
		b.minute.give()
		b.hour.give()
		return b.reject(ReasonDay, ErrDayLimit)
	}

	b.active++
	return nil
}

// Release returns the concurrency slot taken by Acquire. Window slots are
// only returned when their period rolls over.
func (b *Budget) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active > 0 {
		b.active--
	}
}

func (b *Budget) reject(reason string, err error) error {
	b.totalRejected++
	b.logger.Warn("generation budget exhausted",
		zap.String("reason", reason),
		zap.Int("active", b.active),
		zap.Int64("total_rejected", b.totalRejected),
	)
	if b.recorder != nil {
		b.recorder.RecordBudgetRejection(reason)
	}
	return err
}

// BudgetStats is a snapshot of a Budget. Remaining values are -1 for
// disabled caps.
type BudgetStats struct {
	Active          int   `json:"active"`
	MaxConcurrent   int   `json:"max_concurrent"`
	MinuteRemaining int   `json:"minute_remaining"`
	HourRemaining   int   `json:"hour_remaining"`
	DayRemaining    int   `json:"day_remaining"`
	TotalRequests   int64 `json:"total_requests"`
	TotalRejected   int64 `json:"total_rejected"`
}

// Stats returns current usage.
func (b *Budget) Stats() BudgetStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	return BudgetStats{
		Active:          b.active,
		MaxConcurrent:   b.maxConcurrent,
		MinuteRemaining: b.minute.remaining(now),
		HourRemaining:   b.hour.remaining(now),
		DayRemaining:    b.day.remaining(now),
		TotalRequests:   b.totalRequests,
		TotalRejected:   b.totalRejected,
	}
}

// window is a fixed-period counter that refills completely when its period
// elapses.
type window struct {
	max     int
	period  time.Duration
	tokens  int
	resetAt time.Time
}

func newWindow(limit int, period time.Duration, now time.Time) *window {
	if limit <= 0 {
		return nil
	}
	return &window{max: limit, period: period, tokens: limit, resetAt: now.Add(period)}
}

func (w *window) take(now time.Time) bool {
	if w == nil {
		return true
	}
	w.refill(now)
	if w.tokens <= 0 {
		return false
	}
	w.tokens--
	return true
}

func (w *window) give() {
	if w != nil && w.tokens < w.max {
		w.tokens++
	}
}

func (w *window) remaining(now time.Time) int {
	if w == nil {
		return -1
	}
	w.refill(now)
	return w.tokens
}

func (w *window) refill(now time.Time) {
	if !now.Before(w.resetAt) {
		w.tokens = w.max
		w.resetAt = now.Add(w.period)
	}
}

// Generator spends budget for every call to the wrapped generator.
type Generator struct {
	next   ai.Generator
	budget *Budget
}

// LimitGenerator wraps next with budget.
func LimitGenerator(next ai.Generator, budget *Budget) *Generator {
	return &Generator{next: next, budget: budget}
}

// Generate implements ai.Generator. A refused call fails with RATE_LIMITED
// without reaching the provider.
func (g *Generator) Generate(ctx context.Context, req ai.Request) (string, error) {
	if err := g.budget.Acquire(); err != nil {
		return "", apperrors.Wrap(err, "generate "+req.Purpose, apperrors.CodeRateLimited, "generation budget exhausted, try again later")
	}
	defer g.budget.Release()
	return g.next.Generate(ctx, req)
}
