package routemetrics

// ComparisonOutput lists every route group.
type ComparisonOutput struct {
	Body []GroupPerformance
}

// DetailsOutput lists the routes of one group.
type DetailsOutput struct {
	Body []RoutePerformance
}

// PercentilesOutput maps HTTP method to latency percentiles.
type PercentilesOutput struct {
	Body map[string]PercentileStats
}

// ErrorRatesOutput lists the error share of every group.
type ErrorRatesOutput struct {
	Body []ErrorRate
}

// TimeSeriesOutput lists hourly buckets in ascending order.
type TimeSeriesOutput struct {
	Body []TimeSeriesPoint
}
