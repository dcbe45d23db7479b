package routemetric

// CalculatePercentiles returns P50 through P99 of sorted, which must be in
// ascending order. An empty input yields zero values.
func CalculatePercentiles(sorted []float64) PercentileStats {
	if len(sorted) == 0 {
		return PercentileStats{}
	}
	return PercentileStats{
		P50: percentile(sorted, 0.50),
		P75: percentile(sorted, 0.75),
		P90: percentile(sorted, 0.90),
		P95: percentile(sorted, 0.95),
		P99: percentile(sorted, 0.99),
	}
}

// percentile picks the element at floor((n-1)*p), without interpolation.
func percentile(sorted []float64, p float64) float64 {
	return sorted[int(float64(len(sorted)-1)*p)]
}
