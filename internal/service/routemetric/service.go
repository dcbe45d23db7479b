// Package routemetric stores one row per served request and answers the
// aggregate queries behind the /api/v1/metrics endpoints.
package routemetric

import (
	"context"
	"time"
)

// Metric is one captured request. Durations are milliseconds.
type Metric struct {
	RoutePath       string
	HTTPMethod      string
	RouteGroup      string
	TotalDuration   float64
	DBQueryDuration float64
	HandlerDuration float64
	StatusCode      int
	ResponseSize    int
	IsError         bool
	ErrorMessage    string
	RequestID       string
	Timestamp       time.Time
	UserAgent       string
	IPAddress       string
}

// GroupPerformance is the successful-request latency of one route group.
type GroupPerformance struct {
	RouteGroup   string
	AvgDuration  float64
	RequestCount int64
}

// RoutePerformance summarizes one route and method inside a group.
type RoutePerformance struct {
	RoutePath     string
	HTTPMethod    string
	AvgDuration   float64
	MinDuration   float64
	MaxDuration   float64
	AvgDBDuration float64
	RequestCount  int64
	ErrorCount    int64
}

// PercentileStats holds nearest-rank latency percentiles.
type PercentileStats struct {
	P50 float64
	P75 float64
	P90 float64
	P95 float64
	P99 float64
}

// ErrorRate is the share of failed requests in a route group.
type ErrorRate struct {
	RouteGroup      string
	TotalRequests   int64
	ErrorCount      int64
	ErrorPercentage float64
}

// TimeSeriesPoint is one hourly bucket.
type TimeSeriesPoint struct {
	TimeBucket   time.Time
	AvgDuration  float64
	RequestCount int64
}

// PercentileMethods are the methods reported by Percentiles, in order.
var PercentileMethods = []string{"GET", "POST", "PUT", "DELETE"}

// Recorder persists captured requests.
type Recorder interface {
	Record(ctx context.Context, m Metric) error
}

// Querier answers the aggregate queries. Window arguments are in hours,
// counted back from now.
type Querier interface {
	Comparison(ctx context.Context) ([]GroupPerformance, error)
	RouteDetails(ctx context.Context, group string) ([]RoutePerformance, error)
	Percentiles(ctx context.Context, group string, hours int) (map[string]PercentileStats, error)
	ErrorRates(ctx context.Context) ([]ErrorRate, error)
	TimeSeries(ctx context.Context, group string, hours int) ([]TimeSeriesPoint, error)
}

// Store is the full route metric storage.
type Store interface {
	Recorder
	Querier
}
