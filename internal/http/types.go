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

type Server struct {
	Store          league.Store
	Engine         *recompute.Engine
	Importer       *importer.Importer
	Aggregator     *standings.Aggregator
	Snapshots      *standings.SnapshotStore
	Cashbox        *cashbox.Store
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Cfg            config.Config
	Router         *http.ServeMux
}
