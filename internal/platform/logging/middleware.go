package logging

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RequestLogger stores a logger enriched with the request ID and Cloud Trace
// metadata in the request context. The correlation ID is the trace resource
// when available, the request ID otherwise.
func RequestLogger() func(http.Handler) http.Handler {
	return requestLogger(resolveProjectID)
}

func requestLogger(projectID func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reqID := chimiddleware.GetReqID(ctx)

			logger := Logger()
			var fields []zap.Field
			correlation := reqID
			if trace, ok := parseTraceparent(r.Header.Get(traceparentHeader), projectID()); ok {
				fields = append(fields, trace.fields()...)
				correlation = trace.Resource
			}
			if reqID != "" {
				fields = append(fields, zap.String("requestId", reqID))
			}
			if len(fields) > 0 {
				logger = logger.With(fields...)
			}

			ctx = WithTraceID(ctx, correlation)
			ctx = WithLogger(ctx, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccessLogger writes one structured summary per request using the request-scoped logger.
func AccessLogger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			LoggerFromContext(r.Context()).Info(
				"request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.String("remoteIp", r.RemoteAddr),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
