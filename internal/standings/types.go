package standings

import (
	"database/sql"
	"fmt"
	"sync"
)

// Mode selects how a window filters rounds.
type Mode string

const (
	ModeAll       Mode = "all"
	ModeRange     Mode = "range"
	ModeSeason    Mode = "season"
	ModeUpToRound Mode = "up_to_round"
)

// Window is the time filter a standings aggregation runs over.
type Window struct {
	Mode    Mode   `json:"mode"`
	Start   string `json:"start,omitempty"` // ISO date, inclusive
	End     string `json:"end,omitempty"`   // ISO date, inclusive
	Season  string `json:"season,omitempty"`
	RoundID int64  `json:"round_id,omitempty"`
}

// AllTime covers every round.
func AllTime() Window { return Window{Mode: ModeAll} }

// DateRange covers rounds within [start, end].
func DateRange(start, end string) Window {
	return Window{Mode: ModeRange, Start: start, End: end}
}

// Season covers rounds tagged with the given season.
func Season(tag string) Window { return Window{Mode: ModeSeason, Season: tag} }

// UpToRound covers every round from the earliest date up to the given
// round's date.
func UpToRound(roundID int64) Window {
	return Window{Mode: ModeUpToRound, RoundID: roundID}
}

// Label is the stable identity of a window, used as the snapshot key.
func (w Window) Label() string {
	switch w.Mode {
	case ModeRange:
		return fmt.Sprintf("range:%s..%s", w.Start, w.End)
	case ModeSeason:
		return "season:" + w.Season
	case ModeUpToRound:
		return fmt.Sprintf("upto:%d", w.RoundID)
	default:
		return "all"
	}
}

// Row is one ranked player within its partition. Trend is nil when the
// player has no previous-window rank (or the window holds fewer than two
// rounds); positive values mean the player moved up.
type Row struct {
	Position    int     `json:"position"`
	PlayerID    int64   `json:"player_id"`
	Name        string  `json:"name"`
	Role        string  `json:"role"`
	PhotoBonus  int     `json:"photo_bonus"`
	Points      int     `json:"points"`
	Wins        int     `json:"wins"`
	Draws       int     `json:"draws"`
	RedCards    int     `json:"red_cards"`
	YellowCards int     `json:"yellow_cards"`
	WiltedBall  int     `json:"wilted_ball"`
	Presences   int     `json:"presences"`
	PhotoRate   float64 `json:"photo_rate"`
	Trend       *int    `json:"trend"`
}

// Table is a windowed standings result, partitioned by role. Goalkeepers and
// field players are ranked independently.
type Table struct {
	Window       string `json:"window"`
	Goalkeepers  []Row  `json:"goalkeepers"`
	FieldPlayers []Row  `json:"field_players"`
}

// Aggregator computes windowed standings over the fact table.
type Aggregator struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates an aggregator over the given database handle.
func New(db *sql.DB) *Aggregator {
	return &Aggregator{db: db}
}
