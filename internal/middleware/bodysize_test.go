package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/jkindrix/pitchcheck/internal/errors"
)

func TestBodySizeLimiter_AllowsSmallBody(t *testing.T) {
	handler := BodySizeLimiter(1024)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("unexpected read error: %v", err)
			return
		}
		w.Write(body)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/chatbot/message", strings.NewReader(`{"message":"hi"}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if rec.Body.String() != `{"message":"hi"}` {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestBodySizeLimiter_RejectsLargeContentLength(t *testing.T) {
	handler := BodySizeLimiter(100)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called for oversized request")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/company/save", strings.NewReader("small"))
	req.ContentLength = 200
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected status 413, got %d", rec.Code)
	}
	var resp apperrors.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp.Error.Code != apperrors.CodeValidation {
		t.Errorf("code = %s", resp.Error.Code)
	}
}

func TestBodySizeLimiter_MaxBytesReaderEnforces(t *testing.T) {
	var readErr error
	handler := BodySizeLimiter(10)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))

	// Unknown length skips the Content-Length check.
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 20)))
	req.ContentLength = -1
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var maxErr *http.MaxBytesError
	if readErr == nil || !errors.As(readErr, &maxErr) {
		t.Errorf("expected MaxBytesError, got %v", readErr)
	}
}

func TestBodySizeLimiter_EmptyBody(t *testing.T) {
	called := false
	handler := BodySizeLimiter(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/companies", nil))

	if !called {
		t.Error("requests without a body should pass through")
	}
}

func TestBodySizeLimiter_ZeroUsesDefault(t *testing.T) {
	handler := BodySizeLimiter(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		length int64
		want   int
	}{
		{DefaultMaxBodySize, http.StatusOK},
		{DefaultMaxBodySize + 1, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api/company/save", strings.NewReader("{}"))
		req.ContentLength = tt.length
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("Content-Length %d: status = %d, want %d", tt.length, rec.Code, tt.want)
		}
	}
}
