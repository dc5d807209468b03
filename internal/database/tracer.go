package database

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// DefaultSlowQueryThreshold is the duration above which a query is logged as slow.
const DefaultSlowQueryThreshold = 200 * time.Millisecond

// QueryObserver receives the outcome of every traced query.
type QueryObserver interface {
	ObserveQuery(operation string, duration time.Duration, err error)
}

// QueryTracer implements pgx.QueryTracer, logging slow or failed queries and
// forwarding timings to an observer.
type QueryTracer struct {
	slow     time.Duration
	observer QueryObserver
	logger   *zap.Logger
}

// NewQueryTracer creates a tracer. observer may be nil.
func NewQueryTracer(slow time.Duration, observer QueryObserver, logger *zap.Logger) *QueryTracer {
	return &QueryTracer{
		slow:     slow,
		observer: observer,
		logger:   logger.Named("query"),
	}
}

type traceKey struct{}

type traceData struct {
	start time.Time
	sql   string
}

// TraceQueryStart implements pgx.QueryTracer.
func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceKey{}, &traceData{start: time.Now(), sql: data.SQL})
}

// TraceQueryEnd implements pgx.QueryTracer.
func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	td, ok := ctx.Value(traceKey{}).(*traceData)
	if !ok {
		return
	}
	duration := time.Since(td.start)
	operation := Operation(td.sql)

	if t.observer != nil {
		t.observer.ObserveQuery(operation, duration, data.Err)
	}

	switch {
	case data.Err != nil:
		t.logger.Warn("query failed",
			zap.String("operation", operation),
			zap.String("sql", truncateSQL(td.sql, 300)),
			zap.Duration("duration", duration),
			zap.Error(data.Err),
		)
	case duration >= t.slow:
		t.logger.Warn("slow query detected",
			zap.String("operation", operation),
			zap.String("sql", truncateSQL(td.sql, 300)),
			zap.Duration("duration", duration),
			zap.Duration("threshold", t.slow),
		)
	}
}

// Operation returns the lower-cased leading SQL keyword (select, insert, ...).
func Operation(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	op := strings.ToLower(fields[0])
	if op == "with" {
		return "select"
	}
	return op
}

func truncateSQL(sql string, maxLen int) string {
	sql = strings.Join(strings.Fields(sql), " ")
	if len(sql) <= maxLen {
		return sql
	}
	return sql[:maxLen-3] + "..."
}
