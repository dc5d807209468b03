package database

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingObserver struct {
	mu    sync.Mutex
	ops   []string
	fails int
}

func (r *recordingObserver) ObserveQuery(op string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
	if err != nil {
		r.fails++
	}
}

func TestOperation(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{"SELECT id FROM companies", "select"},
		{"\n\t\tINSERT INTO messages ...", "insert"},
		{"delete from companies where id = $1", "delete"},
		{"WITH next AS (SELECT 1) SELECT * FROM next", "select"},
		{"   ", "unknown"},
	}

	for _, tt := range tests {
		if got := Operation(tt.sql); got != tt.want {
			t.Errorf("Operation(%q) = %q, want %q", tt.sql, got, tt.want)
		}
	}
}

func TestTruncateSQL(t *testing.T) {
	if got := truncateSQL("SELECT\n\t  1", 100); got != "SELECT 1" {
		t.Errorf("truncateSQL() = %q", got)
	}
	long := strings.Repeat("x", 50)
	if got := truncateSQL(long, 10); got != "xxxxxxx..." {
		t.Errorf("truncateSQL() = %q", got)
	}
}

func TestQueryTracer(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	rec := &recordingObserver{}
	tracer := NewQueryTracer(time.Hour, rec, zap.New(core))

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})

	ctx = tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "INSERT INTO x"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: errors.New("boom")})

	// End without start is ignored.
	tracer.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})

	if len(rec.ops) != 2 || rec.ops[0] != "select" || rec.ops[1] != "insert" {
		t.Errorf("observed ops = %v", rec.ops)
	}
	if rec.fails != 1 {
		t.Errorf("observed failures = %d, want 1", rec.fails)
	}
	if logs.FilterMessage("query failed").Len() != 1 {
		t.Errorf("expected one failure log, got %d", logs.FilterMessage("query failed").Len())
	}
	if logs.FilterMessage("slow query detected").Len() != 0 {
		t.Error("no query should be slow with a one hour threshold")
	}
}

func TestQueryTracer_Slow(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	tracer := NewQueryTracer(0, nil, zap.New(core))

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})

	if logs.FilterMessage("slow query detected").Len() != 1 {
		t.Error("expected slow query log with zero threshold")
	}
}
