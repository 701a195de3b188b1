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

func TestObserveCompose(t *testing.T) {
	m := New()
	m.ObserveCompose(2*time.Millisecond, 5, 1)
	m.ObserveCompose(time.Millisecond, 3, 0)

	if got := testutil.ToFloat64(m.eventsPlaced); got != 8 {
		t.Fatalf("placed=%v want 8", got)
	}
	if got := testutil.ToFloat64(m.eventsRejected); got != 1 {
		t.Fatalf("rejected=%v want 1", got)
	}
}

func TestRefreshAndFetch(t *testing.T) {
	m := New()
	m.Refresh(nil, 12)
	m.Refresh(errors.New("boom"), 12)
	m.ICSFetch("work", "stale")

	if got := testutil.ToFloat64(m.refreshRuns.WithLabelValues("error")); got != 1 {
		t.Fatalf("error runs=%v", got)
	}
	if got := testutil.ToFloat64(m.storedEvents); got != 12 {
		t.Fatalf("stored=%v", got)
	}
	if got := testutil.ToFloat64(m.icsFetches.WithLabelValues("work", "stale")); got != 1 {
		t.Fatalf("fetches=%v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveCompose(time.Second, 1, 1)
	m.ICSFetch("a", "fresh")
	m.Refresh(nil, 0)

	h := m.Instrument("x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("code=%d", rec.Code)
	}
}

func TestHandlerExposesInstrumentedRoutes(t *testing.T) {
	m := New()
	h := m.Instrument("health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `timelinecal_http_requests_total{route="health",status="204"} 1`) {
		t.Fatalf("missing request sample:\n%s", body)
	}
}
