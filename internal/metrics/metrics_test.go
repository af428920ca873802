package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	t.Parallel()

	m := New()
	m.CalculationObserved(nil)
	m.CalculationObserved(nil)
	m.CalculationObserved(errors.New("overlap"))
	m.ProgressUpdateObserved(errors.New("out of bounds"))
	m.JobObserved("pending")
	m.JobObserved("done")
	m.JobObserved("done")

	if got := testutil.ToFloat64(m.calculations.WithLabelValues(OutcomeSuccess)); got != 2 {
		t.Fatalf("expected 2 successful calculations, got %v", got)
	}
	if got := testutil.ToFloat64(m.calculations.WithLabelValues(OutcomeFailure)); got != 1 {
		t.Fatalf("expected 1 failed calculation, got %v", got)
	}
	if got := testutil.ToFloat64(m.progressUpdates.WithLabelValues(OutcomeFailure)); got != 1 {
		t.Fatalf("expected 1 failed progress update, got %v", got)
	}
	if got := testutil.ToFloat64(m.jobs.WithLabelValues("done")); got != 2 {
		t.Fatalf("expected 2 done jobs, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.CalculationObserved(nil)
	m.ProgressUpdateObserved(nil)
	m.JobObserved("done")
	m.HTTPObserved(http.MethodGet, "/healthz", http.StatusOK, time.Millisecond)
}

func TestHandlerExposesCollectors(t *testing.T) {
	t.Parallel()

	m := New()
	m.HTTPObserved(http.MethodPost, "/prayer-debt/calculate", http.StatusOK, 25*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`prayerdebt_http_requests_total{code="200",method="POST",route="/prayer-debt/calculate"} 1`,
		`prayerdebt_http_request_duration_seconds_count{route="/prayer-debt/calculate"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in exposition:\n%s", want, body)
		}
	}
}
