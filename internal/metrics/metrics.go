// Package metrics provides Prometheus metrics collection for the application.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeTimeout     = "timeout"
	OutcomeCircuitOpen = "circuit_open"
)

// Generation purposes.
const (
	PurposeTurn      = "turn"
	PurposeInsight   = "insight"
	PurposeQuestions = "questions"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Generation provider metrics
	GenerationCallsTotal   *prometheus.CounterVec
	GenerationCallDuration *prometheus.HistogramVec
	CircuitBreakerState    *prometheus.GaugeVec

	// Interview metrics
	SessionsStartedTotal *prometheus.CounterVec
	TurnsTotal           *prometheus.CounterVec
	MessagesAppended     *prometheus.CounterVec
	CompaniesCreated     *prometheus.CounterVec
	CustomersCreated     prometheus.Counter
	InsightsGenerated    *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Rate limiting
	RateLimitHitsTotal       prometheus.Counter
	GenerationBudgetRejected *prometheus.CounterVec

	registry   prometheus.Gatherer
	registerer prometheus.Registerer
}

// NewMetrics creates a new Metrics instance registered with the default registry.
func NewMetrics() *Metrics {
	m := newMetricsWithRegistry(prometheus.DefaultRegisterer)
	m.registry = prometheus.DefaultGatherer
	m.registerer = prometheus.DefaultRegisterer
	return m
}

// NewMetricsWithRegistry creates metrics using a custom registry (for testing).
func NewMetricsWithRegistry(reg *prometheus.Registry) *Metrics {
	m := newMetricsWithRegistry(reg)
	m.registry = reg
	m.registerer = reg
	return m
}

func newMetricsWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitchcheck_http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status code",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pitchcheck_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "route"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pitchcheck_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		GenerationCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitchcheck_generation_calls_total",
				Help: "Text generation calls by provider, purpose and outcome",
			},
			[]string{"provider", "purpose", "outcome"},
		),
		GenerationCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pitchcheck_generation_call_duration_seconds",
				Help:    "Duration of text generation calls",
				Buckets: []float64{.25, .5, 1, 2, 5, 10, 15, 30, 60},
			},
			[]string{"provider", "purpose"},
		),
		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pitchcheck_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"name"},
		),

		SessionsStartedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitchcheck_sessions_started_total",
				Help: "Session initializations by kind (new or resumed)",
			},
			[]string{"kind"},
		),
		TurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitchcheck_turns_total",
				Help: "Turn executions by mode (question or follow_up) and outcome",
			},
			[]string{"mode", "outcome"},
		),
		MessagesAppended: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitchcheck_messages_appended_total",
				Help: "Transcript messages appended by speaker",
			},
			[]string{"speaker"},
		),
		CompaniesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitchcheck_companies_created_total",
				Help: "Company creations by outcome (success, failure, compensated, orphaned)",
			},
			[]string{"outcome"},
		),
		CustomersCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pitchcheck_customers_created_total",
				Help: "Interview participants registered",
			},
		),
		InsightsGenerated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitchcheck_insights_generated_total",
				Help: "Insight reports by kind (empty or analyzed) and outcome",
			},
			[]string{"kind", "outcome"},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pitchcheck_db_query_duration_seconds",
				Help:    "Database query duration by operation",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation"},
		),
		DBQueryErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitchcheck_db_query_errors_total",
				Help: "Database query errors by operation",
			},
			[]string{"operation"},
		),

		RateLimitHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pitchcheck_rate_limit_hits_total",
				Help: "Requests rejected by the rate limiter",
			},
		),
		GenerationBudgetRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitchcheck_generation_budget_rejected_total",
				Help: "Generation calls refused by the budget, by exhausted cap",
			},
			[]string{"reason"},
		),
	}
}

// Handler returns the Prometheus HTTP handler for scraping metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request metrics labelled by the matched chi route
// pattern, which keeps customer IDs out of the label set.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		route := routePattern(r)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.written = true
	return rw.ResponseWriter.Write(b)
}

// RecordGeneration records one call to a generation provider.
func (m *Metrics) RecordGeneration(provider, purpose, outcome string, duration time.Duration) {
	m.GenerationCallsTotal.WithLabelValues(provider, purpose, outcome).Inc()
	m.GenerationCallDuration.WithLabelValues(provider, purpose).Observe(duration.Seconds())
}

// SetCircuitBreakerState records a breaker's state (0=closed, 1=open, 2=half-open).
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordSessionStarted records a session initialization. resumed is true
// when the transcript already existed.
func (m *Metrics) RecordSessionStarted(resumed bool) {
	kind := "new"
	if resumed {
		kind = "resumed"
	}
	m.SessionsStartedTotal.WithLabelValues(kind).Inc()
}

// RecordTurn records a turn execution.
func (m *Metrics) RecordTurn(followUp bool, success bool) {
	mode := "question"
	if followUp {
		mode = "follow_up"
	}
	m.TurnsTotal.WithLabelValues(mode, outcome(success)).Inc()
}

// RecordMessageAppended records a transcript append.
func (m *Metrics) RecordMessageAppended(speaker string) {
	m.MessagesAppended.WithLabelValues(speaker).Inc()
}

// RecordCompanyCreated records the outcome of a company creation.
func (m *Metrics) RecordCompanyCreated(result string) {
	m.CompaniesCreated.WithLabelValues(result).Inc()
}

// RecordCustomerCreated records a new interview participant.
func (m *Metrics) RecordCustomerCreated() {
	m.CustomersCreated.Inc()
}

// RecordInsights records an insight report.
func (m *Metrics) RecordInsights(empty bool, success bool) {
	kind := "analyzed"
	if empty {
		kind = "empty"
	}
	m.InsightsGenerated.WithLabelValues(kind, outcome(success)).Inc()
}

// ObserveQuery implements database.QueryObserver.
func (m *Metrics) ObserveQuery(operation string, duration time.Duration, err error) {
	m.DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordRateLimitHit records a rejected request.
func (m *Metrics) RecordRateLimitHit() {
	m.RateLimitHitsTotal.Inc()
}

// RecordBudgetRejection implements ratelimit.RejectionRecorder.
func (m *Metrics) RecordBudgetRejection(reason string) {
	m.GenerationBudgetRejected.WithLabelValues(reason).Inc()
}

// PoolStatter reports connection pool usage.
type PoolStatter interface {
	PoolStats() (acquired, idle, total int32)
}

// ObservePool exports the pool's connection counts, read at scrape time.
func (m *Metrics) ObservePool(pool PoolStatter) {
	factory := promauto.With(m.registerer)
	gauge := func(name, help string, pick func(acquired, idle, total int32) int32) {
		factory.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, func() float64 {
			return float64(pick(pool.PoolStats()))
		})
	}
	gauge("pitchcheck_db_connections_acquired", "Connections currently in use",
		func(a, _, _ int32) int32 { return a })
	gauge("pitchcheck_db_connections_idle", "Idle connections in the pool",
		func(_, i, _ int32) int32 { return i })
	gauge("pitchcheck_db_connections_total", "Connections open in the pool",
		func(_, _, t int32) int32 { return t })
}

func outcome(success bool) string {
	if success {
		return OutcomeSuccess
	}
	return OutcomeFailure
}
