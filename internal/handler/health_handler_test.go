package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/ratelimit"
)

func TestHealthHandler_HandleHealth(t *testing.T) {
	tests := []struct {
		name       string
		dbErr      error
		open       bool
		cache      *mockPinger
		wantStatus string
		wantCode   int
	}{
		{"all healthy", nil, false, &mockPinger{}, "ok", http.StatusOK},
		{"database down", errors.New("connection refused"), false, nil, "unhealthy", http.StatusServiceUnavailable},
		{"circuit open", nil, true, nil, "degraded", http.StatusOK},
		{"cache down", nil, false, &mockPinger{err: errors.New("redis: nil")}, "degraded", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := HealthHandlerConfig{
				HealthChecker:   &mockPinger{err: tt.dbErr},
				AIHealthChecker: &mockBreaker{open: tt.open},
				Version:         "test",
				Logger:          zap.NewNop(),
			}
			if tt.cache != nil {
				cfg.CacheChecker = tt.cache
			}
			h := NewHealthHandler(cfg)

			rec := httptest.NewRecorder()
			h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", rec.Code, tt.wantCode)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", resp.Status, tt.wantStatus)
			}
			if _, ok := resp.Checks["database"]; !ok {
				t.Error("expected database check")
			}
			if _, ok := resp.Checks["cache"]; ok != (tt.cache != nil) {
				t.Errorf("cache check present = %v", ok)
			}
		})
	}
}

func TestHealthHandler_Budget(t *testing.T) {
	tests := []struct {
		name       string
		stats      ratelimit.BudgetStats
		wantStatus string
	}{
		{"room left", ratelimit.BudgetStats{MinuteRemaining: 3, HourRemaining: 10, DayRemaining: 50}, StatusOK},
		{"caps disabled", ratelimit.BudgetStats{MinuteRemaining: -1, HourRemaining: -1, DayRemaining: -1}, StatusOK},
		{"minute spent", ratelimit.BudgetStats{MinuteRemaining: 0, HourRemaining: 10, DayRemaining: 50}, StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(HealthHandlerConfig{
				HealthChecker: &mockPinger{},
				Budget:        &mockBudget{stats: tt.stats},
				Logger:        zap.NewNop(),
			})

			rec := httptest.NewRecorder()
			h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", resp.Status, tt.wantStatus)
			}
			if rec.Code != http.StatusOK {
				t.Errorf("an exhausted budget must not fail the probe, got %d", rec.Code)
			}
		})
	}
}

func TestHealthHandler_Probes(t *testing.T) {
	h := NewHealthHandler(HealthHandlerConfig{
		HealthChecker: &mockPinger{err: errors.New("down")},
		Logger:        zap.NewNop(),
	})

	rec := httptest.NewRecorder()
	h.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readiness status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.HandleLiveness(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "alive" {
		t.Errorf("liveness = %d %q", rec.Code, rec.Body.String())
	}
}

func TestHealthHandler_ReadinessOverride(t *testing.T) {
	h := NewHealthHandler(HealthHandlerConfig{
		HealthChecker: &mockPinger{},
		Readiness:     &mockPinger{err: errors.New("server is shutting down")},
		Logger:        zap.NewNop(),
	})

	rec := httptest.NewRecorder()
	h.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readiness status = %d, want 503 while draining", rec.Code)
	}
}
