// Package ai provides the text-generation capability used by the interviewer,
// the question writer and the insight analyst.
package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/circuitbreaker"
	apperrors "github.com/jkindrix/pitchcheck/internal/errors"
)

// DefaultTimeout bounds a single generation call.
const DefaultTimeout = 30 * time.Second

// Request purposes.
const (
	PurposeTurn      = "turn"
	PurposeInsight   = "insight"
	PurposeQuestions = "questions"
)

var errEmptyOutput = errors.New("empty output")

// Request describes one generation call.
type Request struct {
	// Purpose labels the call for metrics and logs (turn, insight, questions).
	Purpose     string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	// Schema, when set, asks the provider for JSON output matching it.
	Schema *Schema
}

// Generator produces text for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Provider is a single generation backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Recorder receives one observation per generation call.
type Recorder interface {
	RecordGeneration(provider, purpose, outcome string, duration time.Duration)
}

// Outcome labels passed to Recorder.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeTimeout     = "timeout"
	OutcomeCircuitOpen = "circuit_open"
)

// Client wraps a Provider with a timeout, a circuit breaker and metrics.
type Client struct {
	provider Provider
	breaker  *circuitbreaker.CircuitBreaker
	timeout  time.Duration
	recorder Recorder
	logger   *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) ClientOption {
	return func(c *Client) { c.recorder = r }
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(cb *circuitbreaker.CircuitBreaker) ClientOption {
	return func(c *Client) { c.breaker = cb }
}

// NewClient creates a Client around provider.
func NewClient(provider Provider, logger *zap.Logger, opts ...ClientOption) *Client {
	c := &Client{
		provider: provider,
		timeout:  DefaultTimeout,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = circuitbreaker.New(provider.Name()+"-generation", nil, logger)
	}
	return c
}

// Provider returns the wrapped provider's name.
func (c *Client) Provider() string {
	return c.provider.Name()
}

// Breaker exposes the circuit breaker for health reporting.
func (c *Client) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

// IsCircuitOpen reports whether generation calls are currently rejected.
func (c *Client) IsCircuitOpen() bool {
	return c.breaker.State() == circuitbreaker.StateOpen
}

// Generate runs one generation call. The result is trimmed; an empty result,
// a provider error, an open circuit or a timeout yield an *apperrors.Error.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	name := c.provider.Name()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var text string
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		out, err := c.provider.Complete(ctx, req)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(out)
		if text == "" {
			return errEmptyOutput
		}
		return nil
	})

	outcome := OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		outcome = OutcomeCircuitOpen
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		outcome = OutcomeTimeout
		err = context.DeadlineExceeded
	default:
		outcome = OutcomeFailure
	}

	duration := time.Since(start)
	if c.recorder != nil {
		c.recorder.RecordGeneration(name, req.Purpose, outcome, duration)
	}

	if err != nil {
		c.logger.Warn("generation failed",
			zap.String("provider", name),
			zap.String("purpose", req.Purpose),
			zap.String("outcome", outcome),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		if outcome == OutcomeCircuitOpen {
			return "", err
		}
		return "", apperrors.GenerationError(name, err)
	}

	c.logger.Debug("generation completed",
		zap.String("provider", name),
		zap.String("purpose", req.Purpose),
		zap.Int("output_length", len(text)),
		zap.Duration("duration", duration),
	)
	return text, nil
}
