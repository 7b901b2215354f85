package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"coachdesk/internal/adapters/metrics"
)

func scrape(t *testing.T, c *metrics.Collector) string {
	t.Helper()
	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)
	return string(body)
}

// TestTimingMiddleware_EmitsEntry verifies that a request entry is recorded.
func TestTimingMiddleware_EmitsEntry(t *testing.T) {
	collector := metrics.NewCollector()
	handler := Timing(collector, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if collector.TotalRecorded() != 1 {
		t.Errorf("TotalRecorded = %d, want 1", collector.TotalRecorded())
	}
}

// TestTimingMiddleware_LabelsMatchedRoute verifies the mux pattern, not the raw path,
// becomes the route label.
func TestTimingMiddleware_LabelsMatchedRoute(t *testing.T) {
	collector := metrics.NewCollector()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/check-ins/{id}", func(w http.ResponseWriter, r *http.Request) {
		SetRoute(r.Context(), r.Pattern)
		w.WriteHeader(http.StatusCreated)
	})
	handler := Timing(collector, 0)(mux)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/check-ins/ci-42", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/nowhere", nil))

	out := scrape(t, collector)
	if !strings.Contains(out, `route="POST /api/check-ins/{id}",status="201"`) {
		t.Errorf("matched route label missing:\n%s", out)
	}
	if !strings.Contains(out, `route="unmatched",status="404"`) {
		t.Errorf("unmatched label missing:\n%s", out)
	}
	if strings.Contains(out, "ci-42") {
		t.Error("raw path leaked into labels")
	}
}

// TestTimingMiddleware_CapturesStatusCode verifies the status code is captured.
func TestTimingMiddleware_CapturesStatusCode(t *testing.T) {
	collector := metrics.NewCollector()
	handler := Timing(collector, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/missing", nil))

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
	if !strings.Contains(scrape(t, collector), `status="404"`) {
		t.Error("404 not recorded")
	}
}

// TestTimingMiddleware_NilCollector verifies middleware works without a collector.
func TestTimingMiddleware_NilCollector(t *testing.T) {
	handler := Timing(nil, time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/test", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

// TestTimingMiddleware_HandlerPanic verifies the deferred recording runs when the
// handler panics, and the panic still propagates.
func TestTimingMiddleware_HandlerPanic(t *testing.T) {
	collector := metrics.NewCollector()
	handler := Timing(collector, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic to propagate, got nil")
		}
		if collector.TotalRecorded() != 1 {
			t.Errorf("TotalRecorded = %d, want 1 (defer must run even on panic)", collector.TotalRecorded())
		}
	}()

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/panic", nil))
}

// TestTimingMiddleware_PoolNoStateLeak verifies that statusWriter pool reuse
// does not leak status codes between requests.
func TestTimingMiddleware_PoolNoStateLeak(t *testing.T) {
	collector := metrics.NewCollector()

	handler500 := Timing(collector, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	rr1 := httptest.NewRecorder()
	handler500.ServeHTTP(rr1, httptest.NewRequest("GET", "/api/fail", nil))
	if rr1.Code != 500 {
		t.Errorf("request 1 status = %d, want 500", rr1.Code)
	}

	// Implicit 200: a leaked writer would report 500 again.
	handler200 := Timing(collector, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	handler200.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/ok", nil))

	out := scrape(t, collector)
	if !strings.Contains(out, `method="GET",route="unmatched",status="200"`) {
		t.Errorf("implicit 200 not recorded:\n%s", out)
	}
}

// BenchmarkTimingMiddleware measures per-request overhead.
func BenchmarkTimingMiddleware(b *testing.B) {
	collector := metrics.NewCollector()
	handler := Timing(collector, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest("GET", "/api/bench", nil)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}
