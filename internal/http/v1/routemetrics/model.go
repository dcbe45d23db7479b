package routemetrics

import (
	"time"

	svc "github.com/janisto/analytics-status/internal/service/routemetric"
)

// GroupPerformance is the average latency of successful requests per group.
type GroupPerformance struct {
	RouteGroup   string  `json:"routeGroup" doc:"Route group" example:"analytics"`
	AvgDuration  float64 `json:"avgDuration" doc:"Average total duration in milliseconds" example:"1.25"`
	RequestCount int64   `json:"requestCount" doc:"Successful requests" example:"120"`
}

// RoutePerformance summarizes one route and method.
type RoutePerformance struct {
	RoutePath     string  `json:"routePath" doc:"Route pattern" example:"/api/analytics"`
	HTTPMethod    string  `json:"httpMethod" doc:"HTTP method" example:"GET"`
	AvgDuration   float64 `json:"avgDuration" doc:"Average total duration in milliseconds"`
	MinDuration   float64 `json:"minDuration" doc:"Fastest request in milliseconds"`
	MaxDuration   float64 `json:"maxDuration" doc:"Slowest request in milliseconds"`
	AvgDBDuration float64 `json:"avgDbDuration" doc:"Average database time in milliseconds"`
	RequestCount  int64   `json:"requestCount" doc:"All requests"`
	ErrorCount    int64   `json:"errorCount" doc:"Requests answered with status 400 or above"`
}

// PercentileStats holds latency percentiles in milliseconds.
type PercentileStats struct {
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// ErrorRate is the share of failed requests per group.
type ErrorRate struct {
	RouteGroup      string  `json:"routeGroup" example:"analytics"`
	TotalRequests   int64   `json:"totalRequests" example:"200"`
	ErrorCount      int64   `json:"errorCount" example:"3"`
	ErrorPercentage float64 `json:"errorPercentage" doc:"Percentage rounded to two decimals" example:"1.5"`
}

// TimeSeriesPoint is one hourly bucket.
type TimeSeriesPoint struct {
	TimeBucket   time.Time `json:"timeBucket" doc:"Start of the hour (UTC)"`
	AvgDuration  float64   `json:"avgDuration" doc:"Average total duration in milliseconds"`
	RequestCount int64     `json:"requestCount"`
}

func mapSlice[S, T any](in []S, f func(S) T) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}

func toGroupPerformance(g svc.GroupPerformance) GroupPerformance {
	return GroupPerformance{RouteGroup: g.RouteGroup, AvgDuration: g.AvgDuration, RequestCount: g.RequestCount}
}

func toRoutePerformance(r svc.RoutePerformance) RoutePerformance {
	return RoutePerformance{
		RoutePath:     r.RoutePath,
		HTTPMethod:    r.HTTPMethod,
		AvgDuration:   r.AvgDuration,
		MinDuration:   r.MinDuration,
		MaxDuration:   r.MaxDuration,
		AvgDBDuration: r.AvgDBDuration,
		RequestCount:  r.RequestCount,
		ErrorCount:    r.ErrorCount,
	}
}

func toPercentiles(in map[string]svc.PercentileStats) map[string]PercentileStats {
	out := make(map[string]PercentileStats, len(in))
	for method, p := range in {
		out[method] = PercentileStats{P50: p.P50, P75: p.P75, P90: p.P90, P95: p.P95, P99: p.P99}
	}
	return out
}

func toErrorRate(e svc.ErrorRate) ErrorRate {
	return ErrorRate{
		RouteGroup:      e.RouteGroup,
		TotalRequests:   e.TotalRequests,
		ErrorCount:      e.ErrorCount,
		ErrorPercentage: e.ErrorPercentage,
	}
}

func toTimeSeriesPoint(p svc.TimeSeriesPoint) TimeSeriesPoint {
	return TimeSeriesPoint{TimeBucket: p.TimeBucket.UTC(), AvgDuration: p.AvgDuration, RequestCount: p.RequestCount}
}
