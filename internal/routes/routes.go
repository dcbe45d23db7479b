// Package routes wires every HTTP route of the service.
package routes

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/janisto/analytics-status/internal/http/health"
	"github.com/janisto/analytics-status/internal/http/v1/analytics"
	"github.com/janisto/analytics-status/internal/http/v1/routemetrics"
	"github.com/janisto/analytics-status/internal/platform/metrics"
	"github.com/janisto/analytics-status/internal/service/routemetric"
)

// Deps are the optional collaborators of the route set.
type Deps struct {
	// ReadyTimeout bounds each readiness check.
	ReadyTimeout time.Duration
	// Database is pinged by the readiness probe; nil when not configured.
	Database health.Pinger
	// Metrics serves the Prometheus exposition; nil disables the endpoint.
	Metrics http.Handler
	// RouteMetrics answers the /api/v1/metrics queries; nil leaves them unmounted.
	RouteMetrics routemetric.Querier
}

// Register wires all routes into api and its underlying router.
func Register(api huma.API, router chi.Router, deps Deps) {
	health.Register(api, deps.ReadyTimeout, health.Check{Name: "database", Pinger: deps.Database})

	analytics.Register(api)
	router.Get(analytics.Path+"/*", analytics.Handler())

	if deps.RouteMetrics != nil {
		routemetrics.Register(api, deps.RouteMetrics)
	}
	if deps.Metrics != nil {
		router.Method(http.MethodGet, metrics.Path, deps.Metrics)
	}
}
