package importer

// The row types below are the post-mapping contract of the import surface.
// Header detection and column mapping live in external glue; the core only
// ever sees these fixed records. Numeric and date cells arrive as raw
// strings and are parsed here, so one bad cell skips one row, never a batch.

// PlayerRow registers or updates a player.
type PlayerRow struct {
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
	Position string `json:"position"`
	Plan     string `json:"plan"`
}

// TeamResultRow carries one team's win/draw counts for one date.
type TeamResultRow struct {
	Date   string `json:"date"`
	Season string `json:"season"`
	Team   string `json:"team"`
	Wins   string `json:"wins"`
	Draws  string `json:"draws"`
}

// PlayerLinkRow assigns one player to one team for one date.
type PlayerLinkRow struct {
	Date   string `json:"date"`
	Player string `json:"player"`
	Team   string `json:"team"`
}

// CardRow carries one player's cards for one date. Multiple rows per player
// aggregate additively within a batch.
type CardRow struct {
	Date   string `json:"date"`
	Player string `json:"player"`
	Yellow string `json:"yellow"`
	Red    string `json:"red"`
}

// GoalkeeperRow carries an individual scoreline override for one goalkeeper.
// Points is optional; when blank it derives from wins and draws.
type GoalkeeperRow struct {
	Date       string `json:"date"`
	Goalkeeper string `json:"player"`
	Wins       string `json:"wins"`
	Draws      string `json:"draws"`
	Points     string `json:"points"`
}

// Report summarizes a bulk import for caller-side surfacing. Row-level
// problems are counted here, never raised.
type Report struct {
	BatchID        string `json:"batch_id"`
	Processed      int    `json:"processed"`
	Written        int    `json:"written"`
	MissingPlayers int    `json:"missing_players"`
	ParseErrors    int    `json:"parse_errors"`
}
