package capture

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/janisto/analytics-status/internal/service/routemetric"
)

func newRouter(c *Capture) chi.Router {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID, c.Middleware())
	router.Get("/api/analytics/*", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "Would this work"}`))
	})
	router.Get("/api/v1/metrics/{group}/details", func(w http.ResponseWriter, r *http.Request) {
		routemetric.ObserveDB(r.Context(), 5*time.Millisecond)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	return router
}

func serve(h http.Handler, method, target string) {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "203.0.113.9:4312"
	req.Header.Set("User-Agent", "capture-test/1.0")
	h.ServeHTTP(httptest.NewRecorder(), req)
}

func closeCapture(t *testing.T, c *Capture) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestMiddlewareRecordsRequest(t *testing.T) {
	store := routemetric.NewMockStore()
	c := New(store, 8)
	serve(newRouter(c), http.MethodGet, "/api/analytics/daily")
	closeCapture(t, c)

	got := store.Recorded()
	if len(got) != 1 {
		t.Fatalf("expected 1 metric, got %d", len(got))
	}
	m := got[0]
	if m.RoutePath != "/api/analytics/*" || m.RouteGroup != "analytics" || m.HTTPMethod != http.MethodGet {
		t.Fatalf("unexpected route fields %+v", m)
	}
	if m.StatusCode != http.StatusOK || m.IsError || m.ErrorMessage != "" {
		t.Fatalf("unexpected status fields %+v", m)
	}
	if m.ResponseSize != len(`{"status": "Would this work"}`) {
		t.Fatalf("unexpected response size %d", m.ResponseSize)
	}
	if m.IPAddress != "203.0.113.9" || m.UserAgent != "capture-test/1.0" || m.RequestID == "" {
		t.Fatalf("unexpected request context %+v", m)
	}
	if m.Timestamp.IsZero() || m.Timestamp.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %v", m.Timestamp)
	}
}

func TestMiddlewareRecordsErrorsAndDBTime(t *testing.T) {
	store := routemetric.NewMockStore()
	c := New(store, 8)
	serve(newRouter(c), http.MethodGet, "/api/v1/metrics/analytics/details")
	closeCapture(t, c)

	got := store.Recorded()
	if len(got) != 1 {
		t.Fatalf("expected 1 metric, got %d", len(got))
	}
	m := got[0]
	if !m.IsError || m.StatusCode != http.StatusServiceUnavailable || m.ErrorMessage != "Service Unavailable" {
		t.Fatalf("expected error metric, got %+v", m)
	}
	if m.RouteGroup != "metrics" {
		t.Fatalf("expected metrics group, got %q", m.RouteGroup)
	}
	if m.DBQueryDuration != 5 {
		t.Fatalf("expected 5ms database time, got %v", m.DBQueryDuration)
	}
	if m.HandlerDuration < 0 || m.HandlerDuration > m.TotalDuration {
		t.Fatalf("handler duration %v out of range (total %v)", m.HandlerDuration, m.TotalDuration)
	}
}

func TestMiddlewareLabelsUnmatchedRoutes(t *testing.T) {
	store := routemetric.NewMockStore()
	c := New(store, 8)
	serve(newRouter(c), http.MethodGet, "/nope")
	closeCapture(t, c)

	got := store.Recorded()
	if len(got) != 1 || got[0].RoutePath != routemetric.UnmatchedRoute || got[0].StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected metrics %+v", got)
	}
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, routemetric.Metric) error {
	return errors.New("insert failed")
}

func TestWriteFailuresAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := newCapture(failingRecorder{}, 8, zap.New(core))
	serve(newRouter(c), http.MethodGet, "/api/analytics/x")
	closeCapture(t, c)

	entries := logs.FilterMessage("failed to save route metric").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 failure log, got %d", len(entries))
	}
	if entries[0].Level != zapcore.ErrorLevel {
		t.Fatalf("expected error level, got %v", entries[0].Level)
	}
	if route := entries[0].ContextMap()["route"]; route != "/api/analytics/*" {
		t.Fatalf("expected route field, got %v", route)
	}
}

type blockingRecorder struct {
	release chan struct{}
	mu      sync.Mutex
	count   int
}

func (b *blockingRecorder) Record(context.Context, routemetric.Metric) error {
	<-b.release
	b.mu.Lock()
	b.count++
	b.mu.Unlock()
	return nil
}

func TestFullQueueDropsMetrics(t *testing.T) {
	rec := &blockingRecorder{release: make(chan struct{})}
	c := New(rec, 1)
	router := newRouter(c)
	for range 3 {
		serve(router, http.MethodGet, "/api/analytics/x")
	}
	close(rec.release)
	closeCapture(t, c)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.count >= 3 || rec.count == 0 {
		t.Fatalf("expected some metrics dropped, recorded %d", rec.count)
	}
}

func TestCloseTimesOutWhileWriting(t *testing.T) {
	rec := &blockingRecorder{release: make(chan struct{})}
	c := New(rec, 4)
	serve(newRouter(c), http.MethodGet, "/api/analytics/x")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	close(rec.release)
	closeCapture(t, c)
}

func TestRequestsAfterCloseAreDropped(t *testing.T) {
	store := routemetric.NewMockStore()
	c := New(store, 4)
	router := newRouter(c)
	closeCapture(t, c)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/analytics/x", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected request to be served, got %d", resp.Code)
	}
	if n := len(store.Recorded()); n != 0 {
		t.Fatalf("expected no metrics after close, got %d", n)
	}
	closeCapture(t, c)
}

func TestTruncateAndClientIP(t *testing.T) {
	if got := truncate("abcdef", 3); got != "abc" {
		t.Fatalf("truncate: got %q", got)
	}
	if got := truncate("ab", 3); got != "ab" {
		t.Fatalf("truncate: got %q", got)
	}
	if got := clientIP("[2001:db8::1]:443"); got != "2001:db8::1" {
		t.Fatalf("clientIP: got %q", got)
	}
	if got := clientIP("198.51.100.4"); got != "198.51.100.4" {
		t.Fatalf("clientIP: got %q", got)
	}
}
