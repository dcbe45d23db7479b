// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/janisto/analytics-status/internal/platform/logging"
)

const (
	checkOK      = "ok"
	checkSkipped = "skipped"
	checkFailed  = "failed"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Check is a named readiness dependency. A nil Pinger marks the dependency as
// not configured; it is reported as skipped and does not affect readiness.
type Check struct {
	Name   string
	Pinger Pinger
}

// LiveData is the liveness payload.
type LiveData struct {
	Status string `json:"status" doc:"Liveness status" example:"healthy"`
}

// LiveOutput wraps LiveData.
type LiveOutput struct {
	Body LiveData
}

// ReadyData is the readiness payload.
type ReadyData struct {
	Status string            `json:"status" doc:"Readiness status" example:"ready"`
	Checks map[string]string `json:"checks" doc:"Per-dependency result: ok, skipped or failed"`
}

// ReadyOutput wraps ReadyData.
type ReadyOutput struct {
	Body ReadyData
}

// Register adds GET /health and GET /ready. Each readiness check gets its own
// timeout derived from the request context.
func Register(api huma.API, timeout time.Duration, checks ...Check) {
	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Liveness probe",
		Tags:        []string{"Health"},
	}, func(ctx context.Context, _ *struct{}) (*LiveOutput, error) {
		return &LiveOutput{Body: LiveData{Status: "healthy"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-ready",
		Method:      http.MethodGet,
		Path:        "/ready",
		Summary:     "Readiness probe",
		Tags:        []string{"Health"},
		Errors:      []int{http.StatusServiceUnavailable},
	}, func(ctx context.Context, _ *struct{}) (*ReadyOutput, error) {
		return ready(ctx, timeout, checks)
	})
}

func ready(ctx context.Context, timeout time.Duration, checks []Check) (*ReadyOutput, error) {
	results := make(map[string]string, len(checks))
	var errs []error
	for _, c := range checks {
		if c.Pinger == nil {
			results[c.Name] = checkSkipped
			continue
		}
		if err := ping(ctx, timeout, c.Pinger); err != nil {
			results[c.Name] = checkFailed
			logging.LogWarn(ctx, "readiness check failed", zap.String("check", c.Name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
			continue
		}
		results[c.Name] = checkOK
	}
	if len(errs) > 0 {
		return nil, huma.Error503ServiceUnavailable("dependency unavailable", errs...)
	}
	return &ReadyOutput{Body: ReadyData{Status: "ready", Checks: results}}, nil
}

func ping(ctx context.Context, timeout time.Duration, p Pinger) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return p.PingContext(ctx)
}
