// Package analytics serves the analytics status acknowledgement.
package analytics

import (
	"context"
	"net/http"
	"reflect"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/janisto/analytics-status/internal/platform/logging"
	"github.com/janisto/analytics-status/internal/status"
)

const (
	// Path is the mount point of the status endpoint. Every subpath answers the same.
	Path = "/api/analytics"
	// JSONOnly is the operation metadata key marking responses that never negotiate CBOR.
	JSONOnly = "jsonOnly"
)

// Register adds the documented GET operation for Path.
func Register(api huma.API) {
	schema := api.OpenAPI().Components.Schemas.Schema(reflect.TypeFor[status.Response](), true, "AnalyticsStatus")

	huma.Register(api, huma.Operation{
		OperationID: "get-analytics-status",
		Method:      http.MethodGet,
		Path:        Path,
		Summary:     "Get analytics status",
		Description: "Returns a fixed acknowledgement. Path, query, headers and body are ignored.",
		Tags:        []string{"Analytics"},
		Metadata:    map[string]any{JSONOnly: true},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Fixed acknowledgement",
				Content: map[string]*huma.MediaType{
					status.ContentType: {Schema: schema},
				},
			},
		},
	}, getHandler)
}

func getHandler(context.Context, *struct{}) (*StatusOutput, error) {
	return &StatusOutput{ContentType: status.ContentType, Body: status.Body()}, nil
}

// Handler serves the acknowledgement over plain net/http. It is mounted for the
// subpaths of Path, which the huma operation does not cover.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", status.ContentType)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(status.Body()); err != nil {
			logging.LogWarn(r.Context(), "failed to write analytics status", zap.Error(err))
		}
	}
}
