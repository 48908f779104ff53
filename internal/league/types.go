package league

import (
	"database/sql"
	"sync"
)

// Player roles, derived from the position code on import.
const (
	RoleGoalkeeper = "GOALKEEPER"
	RoleField      = "FIELD"
)

// Payment plans. Only the cashbox cares about these.
const (
	PlanMonthly = "MONTHLY"
	PlanCasual  = "CASUAL"
)

// PositionGoalkeeper is the position code that marks a player as a goalkeeper.
const PositionGoalkeeper = "GK"

// store handles all database operations for the league.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Player is a registered league member. Players are never hard-deleted;
// they are deactivated via the Active flag.
type Player struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Nickname     string `json:"nickname"`
	Position     string `json:"position"`
	Role         string `json:"role"`
	IsGoalkeeper bool   `json:"is_goalkeeper"`
	Plan         string `json:"plan"`
	Active       bool   `json:"active"`
}

// Round is one dated session. At most one round exists per calendar date.
type Round struct {
	ID              int64  `json:"id"`
	Date            string `json:"date"` // ISO yyyy-mm-dd
	Season          string `json:"season"`
	Label           string `json:"label"`
	Closed          bool   `json:"closed"`
	FourGoalkeepers bool   `json:"four_goalkeepers"`
}

// TeamRound is one side within one round's draw, keyed by (round, name).
type TeamRound struct {
	ID      int64  `json:"id"`
	RoundID int64  `json:"round_id"`
	Name    string `json:"name"`
	Wins    int    `json:"wins"`
	Draws   int    `json:"draws"`
	Points  int    `json:"points"`
}

// Entry is the per-player-per-round fact row. TeamRoundID is nil when the
// player was recorded without a team. When IndividualOverride is set the
// recompute engine must not touch Wins/Draws/Points.
type Entry struct {
	ID                 int64  `json:"id"`
	RoundID            int64  `json:"round_id"`
	PlayerID           int64  `json:"player_id"`
	TeamRoundID        *int64 `json:"team_round_id"`
	Presence           bool   `json:"presence"`
	Wins               int    `json:"wins"`
	Draws              int    `json:"draws"`
	Points             int    `json:"points"`
	YellowCards        int    `json:"yellow_cards"`
	RedCards           int    `json:"red_cards"`
	PhotoBonus         bool   `json:"photo_bonus"`
	WiltedBall         bool   `json:"wilted_ball"`
	IndividualOverride bool   `json:"individual_override"`
}

// CalcPoints derives team points from win and draw counts.
func CalcPoints(wins, draws int) int {
	return wins*3 + draws
}
