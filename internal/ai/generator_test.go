package ai

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/circuitbreaker"
	apperrors "github.com/jkindrix/pitchcheck/internal/errors"
)

type fakeProvider struct {
	mu       sync.Mutex
	output   string
	err      error
	delay    time.Duration
	requests []Request
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.output, f.err
}

type recordedCall struct {
	provider, purpose, outcome string
}

type fakeRecorder struct {
	mu     sync.Mutex
	calls  []recordedCall
	states []int
}

func (r *fakeRecorder) RecordGeneration(provider, purpose, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{provider, purpose, outcome})
}

func (r *fakeRecorder) SetCircuitBreakerState(_ string, state int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func TestClient_Generate_TrimsOutput(t *testing.T) {
	provider := &fakeProvider{output: "  Hi, I'm Alex!\n"}
	rec := &fakeRecorder{}
	client := NewClient(provider, zap.NewNop(), WithRecorder(rec))

	got, err := client.Generate(context.Background(), Request{Purpose: "turn", Prompt: "hello"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "Hi, I'm Alex!" {
		t.Errorf("Generate() = %q", got)
	}
	if len(rec.calls) != 1 || rec.calls[0] != (recordedCall{"fake", "turn", OutcomeSuccess}) {
		t.Errorf("recorded %+v", rec.calls)
	}
}

func TestClient_Generate_Errors(t *testing.T) {
	tests := []struct {
		name        string
		provider    *fakeProvider
		timeout     time.Duration
		wantCode    apperrors.Code
		wantOutcome string
	}{
		{
			name:        "empty output",
			provider:    &fakeProvider{output: "   \n"},
			wantCode:    apperrors.CodeGenerationFailed,
			wantOutcome: OutcomeFailure,
		},
		{
			name:        "provider error",
			provider:    &fakeProvider{err: errors.New("connection refused")},
			wantCode:    apperrors.CodeGenerationFailed,
			wantOutcome: OutcomeFailure,
		},
		{
			name:        "timeout",
			provider:    &fakeProvider{output: "late", delay: time.Second},
			timeout:     20 * time.Millisecond,
			wantCode:    apperrors.CodeGenerationFailed,
			wantOutcome: OutcomeTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			opts := []ClientOption{WithRecorder(rec)}
			if tt.timeout > 0 {
				opts = append(opts, WithTimeout(tt.timeout))
			}
			client := NewClient(tt.provider, zap.NewNop(), opts...)

			_, err := client.Generate(context.Background(), Request{Purpose: "insight"})
			if err == nil {
				t.Fatal("expected error")
			}
			if code := apperrors.GetCode(err); code != tt.wantCode {
				t.Errorf("code = %s, want %s", code, tt.wantCode)
			}
			if !apperrors.IsGenerationError(err) {
				t.Error("expected a generation error")
			}
			if len(rec.calls) != 1 || rec.calls[0].outcome != tt.wantOutcome {
				t.Errorf("recorded %+v, want outcome %s", rec.calls, tt.wantOutcome)
			}
		})
	}
}

func TestClient_Generate_TimeoutWrapsDeadline(t *testing.T) {
	client := NewClient(&fakeProvider{delay: time.Second}, zap.NewNop(), WithTimeout(10*time.Millisecond))

	_, err := client.Generate(context.Background(), Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded in chain, got %v", err)
	}
}

func TestClient_Generate_CircuitOpens(t *testing.T) {
	provider := &fakeProvider{err: errors.New("boom")}
	rec := &fakeRecorder{}
	cb := circuitbreaker.New("test", &circuitbreaker.Config{
		FailureThreshold:    2,
		SuccessThreshold:    1,
		OpenTimeout:         time.Hour,
		HalfOpenMaxRequests: 1,
	}, zap.NewNop())
	client := NewClient(provider, zap.NewNop(), WithBreaker(cb), WithRecorder(rec))

	for i := 0; i < 2; i++ {
		_, _ = client.Generate(context.Background(), Request{})
	}

	_, err := client.Generate(context.Background(), Request{})
	if code := apperrors.GetCode(err); code != apperrors.CodeCircuitOpen {
		t.Fatalf("code = %s, want %s", code, apperrors.CodeCircuitOpen)
	}
	if len(provider.requests) != 2 {
		t.Errorf("provider called %d times, want 2", len(provider.requests))
	}
	if last := rec.calls[len(rec.calls)-1]; last.outcome != OutcomeCircuitOpen {
		t.Errorf("last outcome = %s", last.outcome)
	}
}

func TestClient_ProviderName(t *testing.T) {
	client := NewClient(&fakeProvider{}, zap.NewNop())
	if client.Provider() != "fake" {
		t.Errorf("Provider() = %q", client.Provider())
	}
	if client.Breaker().Name() != "fake-generation" {
		t.Errorf("breaker name = %q", client.Breaker().Name())
	}
}
