package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
// By defining them all in one place, we ensure consistency in naming and labeling.
type Service struct {
	ImportRuns         *prometheus.CounterVec
	ImportRowsWritten  *prometheus.CounterVec
	RecomputeRuns      prometheus.Counter
	RecomputeDuration  prometheus.Histogram
	StandingsQueries   prometheus.Counter
	StartupTimeSeconds prometheus.Gauge
}
