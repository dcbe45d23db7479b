// Package capture records every served request as a route metric. Rows are
// written asynchronously so storage latency never reaches the client.
package capture

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/janisto/analytics-status/internal/platform/logging"
	"github.com/janisto/analytics-status/internal/service/routemetric"
)

const (
	// DefaultQueueSize bounds the number of metrics waiting to be written.
	DefaultQueueSize = 1024
	writeTimeout     = 5 * time.Second

	maxUserAgent = 255
	maxIPAddress = 45
	maxRequestID = 128
)

// Capture queues one routemetric.Metric per request and writes them on a
// background goroutine. Close drains the queue.
type Capture struct {
	rec   routemetric.Recorder
	queue chan routemetric.Metric
	done  chan struct{}
	now   func() time.Time
	log   *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// New starts the writer goroutine. queueSize <= 0 selects DefaultQueueSize.
func New(rec routemetric.Recorder, queueSize int) *Capture {
	return newCapture(rec, queueSize, logging.Logger())
}

func newCapture(rec routemetric.Recorder, queueSize int, log *zap.Logger) *Capture {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	c := &Capture{
		rec:   rec,
		queue: make(chan routemetric.Metric, queueSize),
		done:  make(chan struct{}),
		now:   time.Now,
		log:   log,
	}
	go c.run()
	return c
}

func (c *Capture) run() {
	defer close(c.done)
	for m := range c.queue {
		ctx, cancel := context.WithTimeout(logging.WithLogger(context.Background(), c.log), writeTimeout)
		if err := c.rec.Record(ctx, m); err != nil {
			logging.LogError(ctx, "failed to save route metric", err,
				zap.String("route", m.RoutePath),
				zap.String("requestId", m.RequestID),
			)
		}
		cancel()
	}
}

// Close stops accepting metrics and waits until queued ones are written or ctx ends.
func (c *Capture) Close(ctx context.Context) error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.queue)
	}
	c.mu.Unlock()

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Middleware measures the request, including database time reported through
// routemetric.ObserveDB, and enqueues the metric. A full queue drops the metric.
func (c *Capture) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := c.now()
			ctx, timer := routemetric.WithDBTimer(r.Context())
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(ctx))

			c.enqueue(r, newMetric(r, ww, start, c.now().Sub(start), timer.Elapsed()))
		})
	}
}

func (c *Capture) enqueue(r *http.Request, m routemetric.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		logging.LogWarn(r.Context(), "route metric dropped after close", zap.String("route", m.RoutePath))
		return
	}
	select {
	case c.queue <- m:
	default:
		logging.LogWarn(r.Context(), "route metric queue full, dropping", zap.String("route", m.RoutePath))
	}
}

func newMetric(r *http.Request, ww chimiddleware.WrapResponseWriter, start time.Time, total, db time.Duration) routemetric.Metric {
	pattern := routemetric.UnmatchedRoute
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		pattern = rctx.RoutePattern()
	}
	status := ww.Status()
	if status == 0 {
		status = http.StatusOK
	}
	totalMS := millis(total)
	dbMS := millis(db)

	m := routemetric.Metric{
		RoutePath:       pattern,
		HTTPMethod:      r.Method,
		RouteGroup:      routemetric.RouteGroup(pattern),
		TotalDuration:   totalMS,
		DBQueryDuration: dbMS,
		HandlerDuration: max(totalMS-dbMS, 0),
		StatusCode:      status,
		ResponseSize:    ww.BytesWritten(),
		IsError:         status >= http.StatusBadRequest,
		RequestID:       truncate(chimiddleware.GetReqID(r.Context()), maxRequestID),
		Timestamp:       start.UTC(),
		UserAgent:       truncate(r.UserAgent(), maxUserAgent),
		IPAddress:       truncate(clientIP(r.RemoteAddr), maxIPAddress),
	}
	if m.IsError {
		m.ErrorMessage = http.StatusText(status)
	}
	return m
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func clientIP(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
