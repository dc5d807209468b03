package shutdown

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error { return m.err }

func TestCoordinator_Register(t *testing.T) {
	coord := NewCoordinator(nil, zap.NewNop())

	coord.RegisterFunc(PhaseStorage, "database", func(ctx context.Context) error { return nil })
	coord.RegisterCloser(PhaseStorage, "cache", func() {})

	if len(coord.hooks[PhaseStorage]) != 2 {
		t.Errorf("expected 2 hooks, got %d", len(coord.hooks[PhaseStorage]))
	}
}

func TestCoordinator_Shutdown_PhasesRunInOrder(t *testing.T) {
	coord := NewCoordinator(&Config{Timeout: 5 * time.Second}, zap.NewNop())

	var order []Phase
	var mu sync.Mutex

	// Register in reverse to show that registration order does not matter.
	for p := numPhases - 1; p >= 0; p-- {
		coord.RegisterFunc(p, p.String(), func(ctx context.Context) error {
			mu.Lock()
			order = append(order, p)
			mu.Unlock()
			return nil
		})
	}

	if err := coord.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	expected := []Phase{PhaseHTTP, PhaseBackground, PhaseEvents, PhaseStorage}
	if len(order) != len(expected) {
		t.Fatalf("expected %d phases, got %d", len(expected), len(order))
	}
	for i, p := range expected {
		if order[i] != p {
			t.Errorf("phase %d: expected %v, got %v", i, p, order[i])
		}
	}
}

func TestCoordinator_Shutdown_ServicesInPhaseRunConcurrently(t *testing.T) {
	coord := NewCoordinator(&Config{Timeout: 5 * time.Second}, zap.NewNop())

	var concurrent, maxConcurrent int32
	var mu sync.Mutex

	for i := 0; i < 3; i++ {
		coord.RegisterFunc(PhaseStorage, "svc", func(ctx context.Context) error {
			current := atomic.AddInt32(&concurrent, 1)
			mu.Lock()
			if current > maxConcurrent {
				maxConcurrent = current
			}
			mu.Unlock()

			time.Sleep(50 * time.Millisecond)
			atomic.AddInt32(&concurrent, -1)
			return nil
		})
	}

	if err := coord.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if maxConcurrent < 2 {
		t.Errorf("expected concurrent execution, maxConcurrent = %d", maxConcurrent)
	}
}

func TestCoordinator_Shutdown_JoinsErrors(t *testing.T) {
	coord := NewCoordinator(&Config{Timeout: 5 * time.Second}, zap.NewNop())

	errNATS := errors.New("drain failed")
	laterRan := false
	coord.RegisterFunc(PhaseEvents, "nats", func(ctx context.Context) error { return errNATS })
	coord.RegisterFunc(PhaseStorage, "database", func(ctx context.Context) error {
		laterRan = true
		return nil
	})

	err := coord.Shutdown(context.Background())
	if !errors.Is(err, errNATS) {
		t.Errorf("Shutdown() error = %v, want it to wrap %v", err, errNATS)
	}
	if !laterRan {
		t.Error("a failed hook must not stop later phases")
	}
}

func TestCoordinator_Shutdown_RespectsTimeout(t *testing.T) {
	coord := NewCoordinator(&Config{Timeout: 100 * time.Millisecond}, zap.NewNop())

	coord.RegisterFunc(PhaseHTTP, "slow-http", func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	start := time.Now()
	err := coord.Shutdown(context.Background())

	if time.Since(start) > 500*time.Millisecond {
		t.Error("shutdown should have timed out quickly")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Shutdown() error = %v, want deadline exceeded", err)
	}
}

func TestCoordinator_DrainDelay(t *testing.T) {
	coord := NewCoordinator(&Config{Timeout: time.Second, DrainDelay: 100 * time.Millisecond}, zap.NewNop())
	probe := NewReadinessProbe(coord, nil)

	var stoppedAt time.Time
	coord.RegisterFunc(PhaseHTTP, "http-server", func(ctx context.Context) error {
		stoppedAt = time.Now()
		if !probe.Draining() {
			t.Error("readiness should fail before the listener stops")
		}
		return nil
	})

	start := time.Now()
	if err := coord.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if stoppedAt.Sub(start) < 100*time.Millisecond {
		t.Errorf("listener stopped after %v, want at least the drain delay", stoppedAt.Sub(start))
	}
}

func TestCoordinator_ShutdownOnlyOnce(t *testing.T) {
	coord := NewCoordinator(nil, zap.NewNop())

	var callCount int32
	coord.RegisterFunc(PhaseStorage, "svc", func(ctx context.Context) error {
		atomic.AddInt32(&callCount, 1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = coord.Shutdown(context.Background())
		}()
	}
	wg.Wait()

	if atomic.LoadInt32(&callCount) != 1 {
		t.Errorf("expected shutdown called once, got %d", callCount)
	}
}

func TestCoordinator_ShutdownCh(t *testing.T) {
	coord := NewCoordinator(nil, zap.NewNop())

	select {
	case <-coord.ShutdownCh():
		t.Error("shutdown channel should not be closed initially")
	default:
	}

	go coord.Shutdown(context.Background())

	select {
	case <-coord.ShutdownCh():
	case <-time.After(100 * time.Millisecond):
		t.Error("shutdown channel should be closed after Shutdown()")
	}
}

func TestReadinessProbe(t *testing.T) {
	coord := NewCoordinator(nil, zap.NewNop())
	dbErr := errors.New("connection refused")
	db := &mockPinger{}
	probe := NewReadinessProbe(coord, db)

	if err := probe.Ping(context.Background()); err != nil {
		t.Errorf("Ping() = %v, want nil", err)
	}

	db.err = dbErr
	if err := probe.Ping(context.Background()); !errors.Is(err, dbErr) {
		t.Errorf("Ping() = %v, want database error", err)
	}

	if err := coord.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)

	if !probe.Draining() {
		t.Error("probe should be draining after shutdown")
	}
	if err := probe.Ping(context.Background()); !errors.Is(err, ErrDraining) {
		t.Errorf("Ping() = %v, want ErrDraining", err)
	}
}

func TestReadinessProbe_NoDependency(t *testing.T) {
	probe := NewReadinessProbe(NewCoordinator(nil, zap.NewNop()), nil)
	if err := probe.Ping(context.Background()); err != nil {
		t.Errorf("Ping() = %v", err)
	}
}

func TestPhase_String(t *testing.T) {
	tests := []struct {
		phase    Phase
		expected string
	}{
		{PhaseHTTP, "http"},
		{PhaseBackground, "background"},
		{PhaseEvents, "events"},
		{PhaseStorage, "storage"},
		{Phase(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.phase.String(); got != tt.expected {
				t.Errorf("Phase.String() = %q, expected %q", got, tt.expected)
			}
		})
	}
}
