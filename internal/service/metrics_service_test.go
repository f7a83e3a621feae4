package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/mathfacts-api/internal/mastery"
)

func TestMetricsServiceRecords(t *testing.T) {
	m := NewMetricsService()

	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/student/progress", http.StatusOK, 20*time.Millisecond)
	m.RecordSubmission(mastery.OperationMul, 5, 5)
	m.RecordSubmission(mastery.OperationMul, 3, 5)
	m.RecordConflict(ConflictDuplicate)
	m.RecordPromotion(&mastery.Transition{Operation: mastery.OperationDiv, CurriculumDone: true})

	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestTotal.WithLabelValues("GET", "/api/v1/student/progress", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.attempts.WithLabelValues("MUL", "true")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.attempts.WithLabelValues("MUL", "false")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.conflicts.WithLabelValues(ConflictDuplicate)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.promotions.WithLabelValues("DIV", "complete")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "attempts_submitted_total")
}

func TestMetricsServiceNilIsSafe(t *testing.T) {
	var m *MetricsService

	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
		m.RecordCacheOperation(true)
		m.RecordSubmission(mastery.OperationAdd, 1, 1)
		m.RecordPromotion(&mastery.Transition{})
		m.RecordConflict(ConflictClosed)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
