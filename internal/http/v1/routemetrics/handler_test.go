package routemetrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	svc "github.com/janisto/analytics-status/internal/service/routemetric"
)

func seededStore(t *testing.T) *svc.MockStore {
	t.Helper()
	store := svc.NewMockStore()
	now := time.Now().UTC()
	for _, m := range []svc.Metric{
		{RouteGroup: "analytics", RoutePath: "/api/analytics", HTTPMethod: http.MethodGet, TotalDuration: 10, Timestamp: now},
		{RouteGroup: "analytics", RoutePath: "/api/analytics", HTTPMethod: http.MethodGet, TotalDuration: 20, Timestamp: now},
		{RouteGroup: "analytics", RoutePath: "/api/analytics", HTTPMethod: http.MethodGet, TotalDuration: 30, Timestamp: now.Add(-30 * time.Hour)},
		{RouteGroup: "analytics", RoutePath: "/api/analytics", HTTPMethod: http.MethodPost, TotalDuration: 1, IsError: true, StatusCode: 405, Timestamp: now},
		{RouteGroup: "health", RoutePath: "/health", HTTPMethod: http.MethodGet, TotalDuration: 2, Timestamp: now},
	} {
		if err := store.Record(context.Background(), m); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	return store
}

func newTestAPI(q svc.Querier) http.Handler {
	router := chi.NewRouter()
	api := humachi.New(router, huma.DefaultConfig("RouteMetricsTest", "test"))
	Register(api, q)
	return router
}

func getJSON(t *testing.T, h http.Handler, target string, out any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Accept", "application/json")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if out != nil && resp.Code == http.StatusOK {
		if err := json.Unmarshal(resp.Body.Bytes(), out); err != nil {
			t.Fatalf("json unmarshal: %v (%s)", err, resp.Body.String())
		}
	}
	return resp.Code
}

func TestComparison(t *testing.T) {
	h := newTestAPI(seededStore(t))

	var got []GroupPerformance
	if code := getJSON(t, h, Prefix+"/comparison", &got); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(got) != 2 || got[0].RouteGroup != "analytics" || got[0].RequestCount != 3 || got[0].AvgDuration != 20 {
		t.Fatalf("unexpected comparison %+v", got)
	}
}

func TestErrorRates(t *testing.T) {
	h := newTestAPI(seededStore(t))

	var got []ErrorRate
	if code := getJSON(t, h, Prefix+"/errors", &got); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(got) != 2 || got[0].ErrorCount != 1 || got[0].TotalRequests != 4 || got[0].ErrorPercentage != 25 {
		t.Fatalf("unexpected error rates %+v", got)
	}
	if got[1].RouteGroup != "health" || got[1].ErrorCount != 0 {
		t.Fatalf("unexpected health rate %+v", got[1])
	}
}

func TestDetails(t *testing.T) {
	h := newTestAPI(seededStore(t))

	var got []RoutePerformance
	if code := getJSON(t, h, Prefix+"/analytics/details", &got); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(got) != 2 {
		t.Fatalf("expected GET and POST rows, got %+v", got)
	}
	if got[0].HTTPMethod != http.MethodGet || got[0].MinDuration != 10 || got[0].MaxDuration != 30 {
		t.Fatalf("unexpected GET row %+v", got[0])
	}
	if got[1].HTTPMethod != http.MethodPost || got[1].ErrorCount != 1 {
		t.Fatalf("unexpected POST row %+v", got[1])
	}
}

func TestDetailsUnknownGroupIsEmpty(t *testing.T) {
	h := newTestAPI(seededStore(t))

	req := httptest.NewRequest(http.MethodGet, Prefix+"/reports/details", nil)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || strings.TrimSpace(resp.Body.String()) != "[]" {
		t.Fatalf("expected 200 with empty list, got %d %s", resp.Code, resp.Body.String())
	}
}

func TestPercentilesDefaultWindow(t *testing.T) {
	h := newTestAPI(seededStore(t))

	var got map[string]PercentileStats
	if code := getJSON(t, h, Prefix+"/analytics/percentiles", &got); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if got["GET"].P50 != 10 || got["GET"].P99 != 10 {
		t.Fatalf("expected 24h window to exclude the 30h sample, got %+v", got["GET"])
	}
	for _, method := range svc.PercentileMethods {
		if _, ok := got[method]; !ok {
			t.Fatalf("expected %s key in %+v", method, got)
		}
	}
}

func TestPercentilesCustomWindow(t *testing.T) {
	h := newTestAPI(seededStore(t))

	var got map[string]PercentileStats
	if code := getJSON(t, h, Prefix+"/analytics/percentiles?hours=48", &got); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if got["GET"].P99 != 20 || got["GET"].P50 != 20 {
		t.Fatalf("expected 48h window to include three samples, got %+v", got["GET"])
	}
}

func TestTimeSeries(t *testing.T) {
	h := newTestAPI(seededStore(t))

	var got []TimeSeriesPoint
	if code := getJSON(t, h, Prefix+"/analytics/timeseries?hours=72", &got); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(got) != 2 {
		t.Fatalf("expected two hourly buckets, got %+v", got)
	}
	if !got[0].TimeBucket.Before(got[1].TimeBucket) {
		t.Fatalf("expected ascending buckets, got %+v", got)
	}
	if got[1].RequestCount != 3 || got[1].TimeBucket.Minute() != 0 {
		t.Fatalf("unexpected latest bucket %+v", got[1])
	}
}

func TestInputValidation(t *testing.T) {
	h := newTestAPI(seededStore(t))

	for _, target := range []string{
		Prefix + "/analytics/percentiles?hours=0",
		Prefix + "/analytics/timeseries?hours=721",
		Prefix + "/analytics/timeseries?hours=abc",
		Prefix + "/Bad!Group/details",
	} {
		if code := getJSON(t, h, target, nil); code != http.StatusUnprocessableEntity {
			t.Errorf("%s: expected 422, got %d", target, code)
		}
	}
}

func TestStoreFailureReturnsProblem(t *testing.T) {
	store := svc.NewMockStore()
	store.Err = errors.New("connection refused")
	h := newTestAPI(store)

	for _, target := range []string{
		Prefix + "/comparison",
		Prefix + "/errors",
		Prefix + "/analytics/details",
		Prefix + "/analytics/percentiles",
		Prefix + "/analytics/timeseries",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)

		if resp.Code != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500, got %d", target, resp.Code)
		}
		var problem huma.ErrorModel
		if err := json.Unmarshal(resp.Body.Bytes(), &problem); err != nil {
			t.Fatalf("%s: json unmarshal: %v", target, err)
		}
		if problem.Detail != msgQueryFailed {
			t.Fatalf("%s: expected generic detail, got %q", target, problem.Detail)
		}
	}
}
