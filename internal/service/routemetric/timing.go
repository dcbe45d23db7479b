package routemetric

import (
	"context"
	"sync/atomic"
	"time"
)

type dbTimerKey struct{}

// DBTimer accumulates the time spent in database calls for one request.
type DBTimer struct {
	nanos atomic.Int64
}

// Elapsed returns the accumulated database time.
func (t *DBTimer) Elapsed() time.Duration {
	if t == nil {
		return 0
	}
	return time.Duration(t.nanos.Load())
}

// WithDBTimer attaches a fresh timer to ctx.
func WithDBTimer(ctx context.Context) (context.Context, *DBTimer) {
	t := &DBTimer{}
	return context.WithValue(ctx, dbTimerKey{}, t), t
}

// ObserveDB adds d to the timer in ctx, if any.
func ObserveDB(ctx context.Context, d time.Duration) {
	if t, ok := ctx.Value(dbTimerKey{}).(*DBTimer); ok {
		t.nanos.Add(int64(d))
	}
}
