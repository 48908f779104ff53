package http

import (
	"net/http"

	"github.com/peladahub/peladahub/internal/cashbox"
	"github.com/peladahub/peladahub/internal/config"
	"github.com/peladahub/peladahub/internal/importer"
	"github.com/peladahub/peladahub/internal/league"
	"github.com/peladahub/peladahub/internal/metrics"
	"github.com/peladahub/peladahub/internal/recompute"
	"github.com/peladahub/peladahub/internal/standings"
)

func NewServer(
	store league.Store,
	engine *recompute.Engine,
	imp *importer.Importer,
	aggregator *standings.Aggregator,
	snapshots *standings.SnapshotStore,
	cashboxStore *cashbox.Store,
	metricsSvc metrics.Metrics,
	metricsHandler http.Handler,
	cfg config.Config,
) *Server {
	server := &Server{
		Store:          store,
		Engine:         engine,
		Importer:       imp,
		Aggregator:     aggregator,
		Snapshots:      snapshots,
		Cashbox:        cashboxStore,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Cfg:            cfg,
		Router:         http.NewServeMux(),
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	s.Router.Handle("/metrics", s.MetricsHandler)
	s.Router.Handle("/health", Chain(s.HealthCheckHandler(), paramsMiddleware))

	s.Router.Handle("/players", Chain(s.ListPlayersHandler(), paramsMiddleware))
	s.Router.Handle("/rounds", Chain(s.ListRoundsHandler(), paramsMiddleware))
	s.Router.Handle("/round", Chain(s.RoundDetailHandler(), paramsMiddleware))
	s.Router.Handle("/attendance", Chain(s.MarkAttendanceHandler(), paramsMiddleware))

	s.Router.Handle("/import/players", Chain(s.ImportPlayersHandler(), paramsMiddleware))
	s.Router.Handle("/import/teams", Chain(s.ImportTeamResultsHandler(), paramsMiddleware))
	s.Router.Handle("/import/links", Chain(s.ImportPlayerLinksHandler(), paramsMiddleware))
	s.Router.Handle("/import/cards", Chain(s.ImportCardsHandler(), paramsMiddleware))
	s.Router.Handle("/import/goalkeepers", Chain(s.ImportGoalkeeperOverridesHandler(), paramsMiddleware))

	s.Router.Handle("/recompute", Chain(s.RecomputeHandler(), paramsMiddleware))
	s.Router.Handle("/standings", Chain(s.StandingsHandler(), paramsMiddleware))

	s.Router.Handle("/rounds/delete", Chain(s.DeleteRoundHandler(), paramsMiddleware))
	s.Router.Handle("/rounds/delete-entries", Chain(s.DeleteRoundEntriesHandler(), paramsMiddleware))
	s.Router.Handle("/teams/delete", Chain(s.DeleteTeamHandler(), paramsMiddleware))

	s.Router.Handle("/cashbox/summary", Chain(s.CashboxSummaryHandler(), paramsMiddleware))
	s.Router.Handle("/cashbox/balance", Chain(s.CashboxBalanceHandler(), paramsMiddleware))
	s.Router.Handle("/cashbox/opening", Chain(s.CashboxOpeningHandler(), paramsMiddleware))
	s.Router.Handle("/cashbox/paid", Chain(s.CashboxPaidHandler(), paramsMiddleware))
	s.Router.Handle("/cashbox/extra", Chain(s.CashboxExtraHandler(), paramsMiddleware))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
