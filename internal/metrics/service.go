package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		ImportRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "league_import_runs_total",
			Help: "The total number of bulk import batches, per import kind.",
		}, []string{"kind"}),
		ImportRowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "league_import_rows_written_total",
			Help: "The total number of rows written by bulk imports, per import kind.",
		}, []string{"kind"}),
		RecomputeRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "league_recompute_runs_total",
			Help: "The total number of round recompute runs.",
		}),
		RecomputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "league_recompute_duration_seconds",
			Help:    "The duration of full recompute passes.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		StandingsQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "league_standings_queries_total",
			Help: "The total number of standings aggregations served.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "league_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.ImportRuns,
		s.ImportRowsWritten,
		s.RecomputeRuns,
		s.RecomputeDuration,
		s.StandingsQueries,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncImportRuns(kind string) {
	s.ImportRuns.WithLabelValues(kind).Inc()
}

func (s *Service) AddImportRowsWritten(kind string, rows int) {
	s.ImportRowsWritten.WithLabelValues(kind).Add(float64(rows))
}

func (s *Service) IncRecomputeRuns() {
	s.RecomputeRuns.Inc()
}

func (s *Service) ObserveRecomputeDuration(duration float64) {
	s.RecomputeDuration.Observe(duration)
}

func (s *Service) IncStandingsQueries() {
	s.StandingsQueries.Inc()
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
