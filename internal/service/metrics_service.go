package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/mathfacts-api/internal/mastery"
)

// Conflict reasons reported by submission_conflicts_total.
const (
	ConflictNotOpen   = "not_open"
	ConflictClosed    = "closed"
	ConflictDuplicate = "duplicate"
)

// MetricsService encapsulates Prometheus instrumentation. A nil
// *MetricsService is valid and records nothing.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	attempts        *prometheus.CounterVec
	scores          *prometheus.HistogramVec
	promotions      *prometheus.CounterVec
	conflicts       *prometheus.CounterVec
}

// NewMetricsService registers HTTP and mastery collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "policy_cache_hits_total",
		Help: "Resolved policy cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "policy_cache_misses_total",
		Help: "Resolved policy cache misses",
	})

	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attempts_submitted_total",
		Help: "Graded attempts persisted, by operation and mastery outcome",
	}, []string{"operation", "mastery"})

	scores := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "attempt_score_percent",
		Help:    "Distribution of attempt scores in percent",
		Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	}, []string{"operation"})

	promotions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mastery_promotions_total",
		Help: "Mastery transitions applied, by kind (level_up, rollover, complete)",
	}, []string{"operation", "kind"})

	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "submission_conflicts_total",
		Help: "Rejected submissions by reason",
	}, []string{"reason"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHits, cacheMisses, attempts, scores, promotions, conflicts, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		attempts:        attempts,
		scores:          scores,
		promotions:      promotions,
		conflicts:       conflicts,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a policy cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		return
	}
	m.cacheMisses.Inc()
}

// RecordSubmission records a persisted attempt.
func (m *MetricsService) RecordSubmission(op mastery.Operation, score, total int) {
	if m == nil {
		return
	}
	isMastery := total > 0 && score == total
	m.attempts.WithLabelValues(string(op), fmt.Sprintf("%t", isMastery)).Inc()
	if total > 0 {
		m.scores.WithLabelValues(string(op)).Observe(float64(score) * 100 / float64(total))
	}
}

// RecordPromotion records an applied mastery transition.
func (m *MetricsService) RecordPromotion(t *mastery.Transition) {
	if m == nil || t == nil {
		return
	}
	kind := "level_up"
	switch {
	case t.Promoted:
		kind = "rollover"
	case t.CurriculumDone:
		kind = "complete"
	}
	m.promotions.WithLabelValues(string(t.Operation), kind).Inc()
}

// RecordConflict records a rejected submission.
func (m *MetricsService) RecordConflict(reason string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(reason).Inc()
}
