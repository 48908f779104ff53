package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the engines from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncImportRuns(kind string)
	AddImportRowsWritten(kind string, rows int)
	IncRecomputeRuns()
	ObserveRecomputeDuration(duration float64)
	IncStandingsQueries()
	SetStartupTime(duration float64)
}
