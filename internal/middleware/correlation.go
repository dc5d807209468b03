package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// CorrelationIDHeader carries an ID that spans a whole chat session when
	// the client reuses it across initiate and message calls.
	CorrelationIDHeader = "X-Correlation-ID"
	// RequestIDHeader is unique per request.
	RequestIDHeader = "X-Request-ID"

	maxCorrelationIDLength = 128
)

type requestIDsKey struct{}

// requestIDs is stored once per request.
type requestIDs struct {
	correlation string
	request     string
	start       time.Time
}

// RequestCorrelation attaches correlation and request IDs to every request
// and echoes them in the response headers.
type RequestCorrelation struct {
	logger *zap.Logger
}

// NewRequestCorrelation creates a new correlation middleware.
func NewRequestCorrelation(logger *zap.Logger) *RequestCorrelation {
	return &RequestCorrelation{logger: logger}
}

// Middleware returns the HTTP middleware handler. A client-supplied
// correlation ID is kept unless it is empty or oversized; request IDs are
// always generated here.
func (rc *RequestCorrelation) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := requestIDs{
			correlation: r.Header.Get(CorrelationIDHeader),
			request:     uuid.NewString(),
			start:       time.Now(),
		}
		if ids.correlation == "" || len(ids.correlation) > maxCorrelationIDLength {
			if ids.correlation != "" {
				rc.logger.Debug("discarding oversized correlation id",
					zap.Int("length", len(ids.correlation)),
					zap.String("request_id", ids.request),
				)
			}
			ids.correlation = uuid.NewString()
		}

		w.Header().Set(CorrelationIDHeader, ids.correlation)
		w.Header().Set(RequestIDHeader, ids.request)

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDsKey{}, ids)))
	})
}

func idsFrom(ctx context.Context) requestIDs {
	ids, _ := ctx.Value(requestIDsKey{}).(requestIDs)
	return ids
}

// GetCorrelationID returns the correlation ID of ctx, or "".
func GetCorrelationID(ctx context.Context) string {
	return idsFrom(ctx).correlation
}

// GetRequestID returns the request ID of ctx, or "".
func GetRequestID(ctx context.Context) string {
	return idsFrom(ctx).request
}

// GetRequestStartTime returns when the request entered the middleware, or
// the zero time.
func GetRequestStartTime(ctx context.Context) time.Time {
	return idsFrom(ctx).start
}

// WithCorrelationID returns a context carrying id, keeping any request ID.
// Jobs started outside HTTP use it to link their logs and events.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	ids := idsFrom(ctx)
	ids.correlation = id
	return context.WithValue(ctx, requestIDsKey{}, ids)
}

// LoggerWithCorrelation returns logger with the request's IDs attached.
func LoggerWithCorrelation(ctx context.Context, logger *zap.Logger) *zap.Logger {
	ids := idsFrom(ctx)
	fields := make([]zap.Field, 0, 2)
	if ids.correlation != "" {
		fields = append(fields, zap.String("correlation_id", ids.correlation))
	}
	if ids.request != "" {
		fields = append(fields, zap.String("request_id", ids.request))
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}
