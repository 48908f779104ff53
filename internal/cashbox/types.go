package cashbox

import (
	"database/sql"
	"sync"

	"github.com/peladahub/peladahub/internal/league"
)

// Extra entry directions.
const (
	ExtraIn  = "IN"
	ExtraOut = "OUT"
)

// Store handles the monthly cashbox: dues, per-game fees, card fines and
// free-form extras. It only consumes the standings engine's outputs.
type Store struct {
	db     *sql.DB
	league league.Store
	mu     sync.RWMutex
}

// Extra is one free-form cash movement.
type Extra struct {
	ID          int64   `json:"id"`
	Date        string  `json:"date"`
	Season      string  `json:"season"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Value       float64 `json:"value"`
}

// MonthSummary is the cash balance of one month of a season.
type MonthSummary struct {
	Season      string  `json:"season"`
	Month       int     `json:"month"`
	MonthlyDues float64 `json:"monthly_dues"`
	CasualFees  float64 `json:"casual_fees"`
	CardFines   float64 `json:"card_fines"`
	ExtraIn     float64 `json:"extra_in"`
	CourtRent   float64 `json:"court_rent"`
	RefereeFees float64 `json:"referee_fees"`
	ExtraOut    float64 `json:"extra_out"`
	TotalIn     float64 `json:"total_in"`
	TotalOut    float64 `json:"total_out"`
	Balance     float64 `json:"balance"`
}

// New creates a cashbox store. Fee settings are read through the league store.
func New(db *sql.DB, leagueStore league.Store) *Store {
	return &Store{db: db, league: leagueStore}
}
