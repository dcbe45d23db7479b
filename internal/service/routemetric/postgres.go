package routemetric

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	insertMetricSQL = `INSERT INTO route_metrics (
	route_path, http_method, route_group, total_duration, db_query_duration, handler_duration,
	status_code, response_size, is_error, error_message, request_id, recorded_at, user_agent, ip_address
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	comparisonSQL = `SELECT route_group, AVG(total_duration)::float8, COUNT(*)
FROM route_metrics
WHERE is_error = false
GROUP BY route_group
ORDER BY route_group`

	routeDetailsSQL = `SELECT route_path, http_method,
	AVG(total_duration)::float8, MIN(total_duration), MAX(total_duration),
	AVG(db_query_duration)::float8, COUNT(*), COUNT(*) FILTER (WHERE is_error)
FROM route_metrics
WHERE route_group = $1
GROUP BY route_path, http_method
ORDER BY route_path, http_method`

	durationsSQL = `SELECT total_duration
FROM route_metrics
WHERE route_group = $1 AND http_method = $2 AND is_error = false
	AND recorded_at >= now() - make_interval(hours => $3)
ORDER BY total_duration`

	errorRatesSQL = `SELECT route_group, COUNT(*), COUNT(*) FILTER (WHERE is_error),
	ROUND(100.0 * COUNT(*) FILTER (WHERE is_error) / COUNT(*), 2)::float8
FROM route_metrics
GROUP BY route_group
ORDER BY route_group`

	timeSeriesSQL = `SELECT date_trunc('hour', recorded_at) AS bucket, AVG(total_duration)::float8, COUNT(*)
FROM route_metrics
WHERE route_group = $1 AND recorded_at >= now() - make_interval(hours => $2)
GROUP BY bucket
ORDER BY bucket`
)

// PostgresStore implements Store on the route_metrics table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store on an open pool. The schema is created by
// the database migrations.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Record inserts one captured request.
func (s *PostgresStore) Record(ctx context.Context, m Metric) error {
	_, err := s.db.ExecContext(ctx, insertMetricSQL,
		m.RoutePath, m.HTTPMethod, m.RouteGroup,
		m.TotalDuration, m.DBQueryDuration, m.HandlerDuration,
		m.StatusCode, m.ResponseSize, m.IsError, m.ErrorMessage,
		m.RequestID, m.Timestamp.UTC(), m.UserAgent, m.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("insert route metric: %w", err)
	}
	return nil
}

func (s *PostgresStore) Comparison(ctx context.Context) ([]GroupPerformance, error) {
	return query(ctx, s.db, "comparison", comparisonSQL, func(rows *sql.Rows) (GroupPerformance, error) {
		var g GroupPerformance
		err := rows.Scan(&g.RouteGroup, &g.AvgDuration, &g.RequestCount)
		return g, err
	})
}

func (s *PostgresStore) RouteDetails(ctx context.Context, group string) ([]RoutePerformance, error) {
	return query(ctx, s.db, "route details", routeDetailsSQL, func(rows *sql.Rows) (RoutePerformance, error) {
		var r RoutePerformance
		err := rows.Scan(&r.RoutePath, &r.HTTPMethod, &r.AvgDuration, &r.MinDuration, &r.MaxDuration,
			&r.AvgDBDuration, &r.RequestCount, &r.ErrorCount)
		return r, err
	}, group)
}

// Percentiles computes successful-request percentiles per method in
// PercentileMethods. Methods without samples report zero values.
func (s *PostgresStore) Percentiles(ctx context.Context, group string, hours int) (map[string]PercentileStats, error) {
	out := make(map[string]PercentileStats, len(PercentileMethods))
	for _, method := range PercentileMethods {
		durations, err := query(ctx, s.db, "durations", durationsSQL, func(rows *sql.Rows) (float64, error) {
			var d float64
			err := rows.Scan(&d)
			return d, err
		}, group, method, hours)
		if err != nil {
			return nil, err
		}
		out[method] = CalculatePercentiles(durations)
	}
	return out, nil
}

func (s *PostgresStore) ErrorRates(ctx context.Context) ([]ErrorRate, error) {
	return query(ctx, s.db, "error rates", errorRatesSQL, func(rows *sql.Rows) (ErrorRate, error) {
		var e ErrorRate
		err := rows.Scan(&e.RouteGroup, &e.TotalRequests, &e.ErrorCount, &e.ErrorPercentage)
		return e, err
	})
}

func (s *PostgresStore) TimeSeries(ctx context.Context, group string, hours int) ([]TimeSeriesPoint, error) {
	return query(ctx, s.db, "time series", timeSeriesSQL, func(rows *sql.Rows) (TimeSeriesPoint, error) {
		var p TimeSeriesPoint
		err := rows.Scan(&p.TimeBucket, &p.AvgDuration, &p.RequestCount)
		p.TimeBucket = p.TimeBucket.UTC()
		return p, err
	}, group, hours)
}

// query runs q and scans every row. The result is never nil. Time spent is
// added to the request's DBTimer.
func query[T any](ctx context.Context, db *sql.DB, name, q string, scan func(*sql.Rows) (T, error), args ...any) ([]T, error) {
	defer func(start time.Time) { ObserveDB(ctx, time.Since(start)) }(time.Now())

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", name, err)
	}
	return out, nil
}

var _ Store = (*PostgresStore)(nil)
