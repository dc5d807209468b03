package ai

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/circuitbreaker"
	"github.com/jkindrix/pitchcheck/internal/config"
)

// BreakerObserver is notified of circuit breaker transitions.
type BreakerObserver interface {
	SetCircuitBreakerState(name string, state int)
}

// NewProvider builds the provider selected by cfg.Provider.
func NewProvider(ctx context.Context, cfg *config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		return NewOpenAIProvider(cfg.OpenAI), nil
	case config.ProviderAnthropic:
		return NewAnthropicProvider(cfg.Anthropic), nil
	case config.ProviderGemini:
		return NewGeminiProvider(ctx, cfg.Gemini)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

// NewFromConfig builds a Client for the configured provider. rec may be nil;
// when it also implements BreakerObserver it receives breaker transitions.
func NewFromConfig(ctx context.Context, cfg *config.LLMConfig, rec Recorder, logger *zap.Logger) (*Client, error) {
	provider, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newClientFromConfig(provider, cfg, rec, logger), nil
}

func newClientFromConfig(provider Provider, cfg *config.LLMConfig, rec Recorder, logger *zap.Logger) *Client {
	cbConfig := circuitbreaker.DefaultConfig()
	if cfg.BreakerFailures > 0 {
		cbConfig.FailureThreshold = cfg.BreakerFailures
	}
	if cfg.BreakerTimeout > 0 {
		cbConfig.OpenTimeout = cfg.BreakerTimeout
	}

	var cbOpts []circuitbreaker.Option
	if obs, ok := rec.(BreakerObserver); ok {
		cbOpts = append(cbOpts, circuitbreaker.WithStateChange(func(name string, _, to circuitbreaker.State) {
			obs.SetCircuitBreakerState(name, int(to))
		}))
	}
	breaker := circuitbreaker.New(provider.Name()+"-generation", cbConfig, logger, cbOpts...)

	opts := []ClientOption{WithTimeout(cfg.Timeout), WithBreaker(breaker)}
	if rec != nil {
		opts = append(opts, WithRecorder(rec))
	}
	return NewClient(provider, logger, opts...)
}

// Close releases provider resources, if any.
func (c *Client) Close() error {
	if closer, ok := c.provider.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
