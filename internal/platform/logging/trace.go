package logging

import (
	"fmt"
	"os"
	"regexp"
	"sync"

	"go.uber.org/zap"
)

const traceparentHeader = "traceparent"

// W3C Trace Context: {version}-{trace-id}-{parent-id}-{trace-flags}
var traceparentRe = regexp.MustCompile(`^([0-9a-f]{2})-([0-9a-f]{32})-([0-9a-f]{16})-([0-9a-f]{2})$`)

var (
	projectIDOnce   sync.Once
	cachedProjectID string
)

// cloudTrace is the Cloud Logging view of a traceparent header.
type cloudTrace struct {
	Resource string
	SpanID   string
	Sampled  bool
}

// parseTraceparent maps a traceparent header to a Cloud Trace resource within projectID.
// It reports false when the project is unknown or the header is malformed.
func parseTraceparent(header, projectID string) (cloudTrace, bool) {
	if projectID == "" {
		return cloudTrace{}, false
	}
	m := traceparentRe.FindStringSubmatch(header)
	if m == nil || m[2] == "00000000000000000000000000000000" {
		return cloudTrace{}, false
	}
	return cloudTrace{
		Resource: fmt.Sprintf("projects/%s/traces/%s", projectID, m[2]),
		SpanID:   m[3],
		Sampled:  m[4] == "01",
	}, true
}

func (t cloudTrace) fields() []zap.Field {
	return []zap.Field{
		zap.String("logging.googleapis.com/trace", t.Resource),
		zap.String("logging.googleapis.com/spanId", t.SpanID),
		zap.Bool("logging.googleapis.com/trace_sampled", t.Sampled),
	}
}

func resolveProjectID() string {
	projectIDOnce.Do(func() {
		for _, key := range []string{"GOOGLE_CLOUD_PROJECT", "GCP_PROJECT", "GCLOUD_PROJECT", "PROJECT_ID"} {
			if v := os.Getenv(key); v != "" {
				cachedProjectID = v
				return
			}
		}
	})
	return cachedProjectID
}
