package routemetric

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

// MockStore implements Store in memory for unit tests. Aggregates are
// computed over the recorded metrics; Err, when set, fails every query.
type MockStore struct {
	mu      sync.RWMutex
	metrics []Metric
	now     func() time.Time

	Err error
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{now: time.Now}
}

func (m *MockStore) Record(_ context.Context, metric Metric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = append(m.metrics, metric)
	return nil
}

// Recorded returns a copy of every recorded metric.
func (m *MockStore) Recorded() []Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.metrics)
}

func (m *MockStore) Comparison(context.Context) ([]GroupPerformance, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	sums := map[string]*GroupPerformance{}
	for _, metric := range m.Recorded() {
		if metric.IsError {
			continue
		}
		g := sums[metric.RouteGroup]
		if g == nil {
			g = &GroupPerformance{RouteGroup: metric.RouteGroup}
			sums[metric.RouteGroup] = g
		}
		g.AvgDuration += metric.TotalDuration
		g.RequestCount++
	}
	out := []GroupPerformance{}
	for _, g := range sums {
		g.AvgDuration /= float64(g.RequestCount)
		out = append(out, *g)
	}
	slices.SortFunc(out, func(a, b GroupPerformance) int { return cmp.Compare(a.RouteGroup, b.RouteGroup) })
	return out, nil
}

func (m *MockStore) RouteDetails(_ context.Context, group string) ([]RoutePerformance, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	type key struct{ path, method string }
	sums := map[key]*RoutePerformance{}
	for _, metric := range m.Recorded() {
		if metric.RouteGroup != group {
			continue
		}
		k := key{metric.RoutePath, metric.HTTPMethod}
		r := sums[k]
		if r == nil {
			r = &RoutePerformance{
				RoutePath:   metric.RoutePath,
				HTTPMethod:  metric.HTTPMethod,
				MinDuration: metric.TotalDuration,
				MaxDuration: metric.TotalDuration,
			}
			sums[k] = r
		}
		r.AvgDuration += metric.TotalDuration
		r.AvgDBDuration += metric.DBQueryDuration
		r.MinDuration = min(r.MinDuration, metric.TotalDuration)
		r.MaxDuration = max(r.MaxDuration, metric.TotalDuration)
		r.RequestCount++
		if metric.IsError {
			r.ErrorCount++
		}
	}
	out := []RoutePerformance{}
	for _, r := range sums {
		r.AvgDuration /= float64(r.RequestCount)
		r.AvgDBDuration /= float64(r.RequestCount)
		out = append(out, *r)
	}
	slices.SortFunc(out, func(a, b RoutePerformance) int {
		return cmp.Or(cmp.Compare(a.RoutePath, b.RoutePath), cmp.Compare(a.HTTPMethod, b.HTTPMethod))
	})
	return out, nil
}

func (m *MockStore) Percentiles(_ context.Context, group string, hours int) (map[string]PercentileStats, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	since := m.now().Add(-time.Duration(hours) * time.Hour)
	out := make(map[string]PercentileStats, len(PercentileMethods))
	for _, method := range PercentileMethods {
		var durations []float64
		for _, metric := range m.Recorded() {
			if metric.RouteGroup == group && metric.HTTPMethod == method && !metric.IsError && !metric.Timestamp.Before(since) {
				durations = append(durations, metric.TotalDuration)
			}
		}
		slices.Sort(durations)
		out[method] = CalculatePercentiles(durations)
	}
	return out, nil
}

func (m *MockStore) ErrorRates(context.Context) ([]ErrorRate, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	sums := map[string]*ErrorRate{}
	for _, metric := range m.Recorded() {
		e := sums[metric.RouteGroup]
		if e == nil {
			e = &ErrorRate{RouteGroup: metric.RouteGroup}
			sums[metric.RouteGroup] = e
		}
		e.TotalRequests++
		if metric.IsError {
			e.ErrorCount++
		}
	}
	out := []ErrorRate{}
	for _, e := range sums {
		e.ErrorPercentage = float64(e.ErrorCount) * 100 / float64(e.TotalRequests)
		out = append(out, *e)
	}
	slices.SortFunc(out, func(a, b ErrorRate) int { return cmp.Compare(a.RouteGroup, b.RouteGroup) })
	return out, nil
}

func (m *MockStore) TimeSeries(_ context.Context, group string, hours int) ([]TimeSeriesPoint, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	since := m.now().Add(-time.Duration(hours) * time.Hour)
	buckets := map[time.Time]*TimeSeriesPoint{}
	for _, metric := range m.Recorded() {
		if metric.RouteGroup != group || metric.Timestamp.Before(since) {
			continue
		}
		b := metric.Timestamp.UTC().Truncate(time.Hour)
		p := buckets[b]
		if p == nil {
			p = &TimeSeriesPoint{TimeBucket: b}
			buckets[b] = p
		}
		p.AvgDuration += metric.TotalDuration
		p.RequestCount++
	}
	out := []TimeSeriesPoint{}
	for _, p := range buckets {
		p.AvgDuration /= float64(p.RequestCount)
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b TimeSeriesPoint) int { return a.TimeBucket.Compare(b.TimeBucket) })
	return out, nil
}

var _ Store = (*MockStore)(nil)
