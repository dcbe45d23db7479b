package routemetric

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculatePercentiles(t *testing.T) {
	assert.Equal(t, PercentileStats{}, CalculatePercentiles(nil))
	assert.Equal(t, PercentileStats{P50: 7, P75: 7, P90: 7, P95: 7, P99: 7}, CalculatePercentiles([]float64{7}))

	sorted := make([]float64, 100)
	for i := range sorted {
		sorted[i] = float64(i + 1)
	}
	assert.Equal(t, PercentileStats{P50: 50, P75: 75, P90: 90, P95: 95, P99: 99}, CalculatePercentiles(sorted))
}

func TestRouteGroup(t *testing.T) {
	tests := map[string]string{
		"":                                  UnmatchedRoute,
		UnmatchedRoute:                      UnmatchedRoute,
		"/":                                 "root",
		"/health":                           "health",
		"/ready":                            "ready",
		"/api/analytics":                    "analytics",
		"/api/analytics/*":                  "analytics",
		"/api/v1/metrics/comparison":        "metrics",
		"/api/v1/metrics/{group}/details":   "metrics",
		"/v2/Reports":                       "reports",
		"/api/{id}":                         "root",
		"/api-docs":                         "api-docs",
		"/vx/things":                        "vx",
	}
	for pattern, want := range tests {
		assert.Equal(t, want, RouteGroup(pattern), pattern)
	}
}

func TestDBTimer(t *testing.T) {
	ObserveDB(context.Background(), time.Second)

	ctx, timer := WithDBTimer(context.Background())
	ObserveDB(ctx, 2*time.Millisecond)
	ObserveDB(ctx, 3*time.Millisecond)
	assert.Equal(t, 5*time.Millisecond, timer.Elapsed())

	var nilTimer *DBTimer
	assert.Zero(t, nilTimer.Elapsed())
}

func TestMockStoreAggregates(t *testing.T) {
	store := NewMockStore()
	now := time.Now().UTC()
	ctx := context.Background()
	for _, m := range []Metric{
		{RouteGroup: "analytics", RoutePath: "/api/analytics", HTTPMethod: "GET", TotalDuration: 2, Timestamp: now},
		{RouteGroup: "analytics", RoutePath: "/api/analytics", HTTPMethod: "GET", TotalDuration: 4, Timestamp: now},
		{RouteGroup: "analytics", RoutePath: "/api/analytics", HTTPMethod: "POST", TotalDuration: 1, IsError: true, Timestamp: now},
		{RouteGroup: "health", RoutePath: "/health", HTTPMethod: "GET", TotalDuration: 1, Timestamp: now.Add(-48 * time.Hour)},
	} {
		assert.NoError(t, store.Record(ctx, m))
	}

	comparison, err := store.Comparison(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []GroupPerformance{
		{RouteGroup: "analytics", AvgDuration: 3, RequestCount: 2},
		{RouteGroup: "health", AvgDuration: 1, RequestCount: 1},
	}, comparison)

	rates, err := store.ErrorRates(ctx)
	assert.NoError(t, err)
	assert.InDelta(t, 33.33, rates[0].ErrorPercentage, 0.01)

	series, err := store.TimeSeries(ctx, "health", 24)
	assert.NoError(t, err)
	assert.Empty(t, series)
}
