// Package routemetrics exposes read-only aggregates over captured requests.
package routemetrics

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/janisto/analytics-status/internal/platform/logging"
	svc "github.com/janisto/analytics-status/internal/service/routemetric"
)

// Prefix is the mount point of every route metric operation.
const Prefix = "/api/v1/metrics"

const msgQueryFailed = "metrics query failed"

var tags = []string{"Route metrics"}

// Register adds the route metric operations backed by q.
func Register(api huma.API, q svc.Querier) {
	huma.Register(api, huma.Operation{
		OperationID: "get-route-metrics-comparison",
		Method:      http.MethodGet,
		Path:        Prefix + "/comparison",
		Summary:     "Compare route groups",
		Description: "Average duration and count of successful requests per route group.",
		Tags:        tags,
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, _ *struct{}) (*ComparisonOutput, error) {
		res, err := q.Comparison(ctx)
		if err != nil {
			return nil, queryFailed(ctx, "comparison", err)
		}
		return &ComparisonOutput{Body: mapSlice(res, toGroupPerformance)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-route-metrics-errors",
		Method:      http.MethodGet,
		Path:        Prefix + "/errors",
		Summary:     "Error rates",
		Description: "Share of requests answered with status 400 or above, per route group.",
		Tags:        tags,
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, _ *struct{}) (*ErrorRatesOutput, error) {
		res, err := q.ErrorRates(ctx)
		if err != nil {
			return nil, queryFailed(ctx, "errors", err)
		}
		return &ErrorRatesOutput{Body: mapSlice(res, toErrorRate)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-route-metrics-details",
		Method:      http.MethodGet,
		Path:        Prefix + "/{group}/details",
		Summary:     "Route details",
		Description: "Latency and error counts per route and method within a group.",
		Tags:        tags,
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, in *GroupInput) (*DetailsOutput, error) {
		res, err := q.RouteDetails(ctx, in.Group)
		if err != nil {
			return nil, queryFailed(ctx, "details", err)
		}
		return &DetailsOutput{Body: mapSlice(res, toRoutePerformance)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-route-metrics-percentiles",
		Method:      http.MethodGet,
		Path:        Prefix + "/{group}/percentiles",
		Summary:     "Latency percentiles",
		Description: "P50 to P99 of successful requests per method over the last hours.",
		Tags:        tags,
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, in *WindowInput) (*PercentilesOutput, error) {
		res, err := q.Percentiles(ctx, in.Group, in.Hours)
		if err != nil {
			return nil, queryFailed(ctx, "percentiles", err)
		}
		return &PercentilesOutput{Body: toPercentiles(res)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-route-metrics-timeseries",
		Method:      http.MethodGet,
		Path:        Prefix + "/{group}/timeseries",
		Summary:     "Hourly time series",
		Description: "Average duration and request count per hour over the last hours.",
		Tags:        tags,
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, in *WindowInput) (*TimeSeriesOutput, error) {
		res, err := q.TimeSeries(ctx, in.Group, in.Hours)
		if err != nil {
			return nil, queryFailed(ctx, "timeseries", err)
		}
		return &TimeSeriesOutput{Body: mapSlice(res, toTimeSeriesPoint)}, nil
	})
}

func queryFailed(ctx context.Context, name string, err error) error {
	logging.LogError(ctx, "route metrics query failed", err, zap.String("query", name))
	return huma.Error500InternalServerError(msgQueryFailed)
}
