// Package standings aggregates the per-round fact rows into ranked,
// partitioned leaderboards over arbitrary time windows. It only reads the
// fact table and is independent of when the recompute engine last ran.
package standings

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/peladahub/peladahub/internal/league"
)

// Standings aggregates every player's fact rows inside the window and ranks
// them. Players without a single attendance in the window are excluded, not
// zero-filled.
func (a *Aggregator) Standings(w Window) (*Table, error) {
	rows, err := a.aggregate(w)
	if err != nil {
		return nil, err
	}

	goalkeepers, fieldPlayers := partition(rows)

	table := &Table{
		Window:       w.Label(),
		Goalkeepers:  goalkeepers,
		FieldPlayers: fieldPlayers,
	}
	if err := a.applyTrends(w, table); err != nil {
		return nil, err
	}
	return table, nil
}

// aggregate runs the windowed aggregation and returns the sorted, unranked
// rows for both partitions together.
func (a *Aggregator) aggregate(w Window) ([]Row, error) {
	where, params, err := a.windowFilter(w)
	if err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	query := fmt.Sprintf(`
		SELECT
			p.id,
			COALESCE(NULLIF(TRIM(p.nickname), ''), p.name) AS display_name,
			UPPER(COALESCE(NULLIF(p.role, ''), CASE WHEN p.is_goalkeeper = 1 THEN '%s' ELSE '%s' END)) AS role,
			COALESCE(SUM(pr.photo_bonus), 0),
			COALESCE(SUM(pr.points), 0),
			COALESCE(SUM(pr.wins), 0),
			COALESCE(SUM(pr.draws), 0),
			COALESCE(SUM(pr.red_cards), 0),
			COALESCE(SUM(pr.yellow_cards), 0),
			COALESCE(SUM(pr.wilted_ball), 0),
			COALESCE(SUM(CASE WHEN pr.presence = 1 THEN 1 ELSE 0 END), 0) AS presences
		FROM players p
		LEFT JOIN player_round pr ON pr.player_id = p.id
		LEFT JOIN rounds r ON r.id = pr.round_id
		%s
		GROUP BY p.id, display_name, role
		HAVING presences > 0`, league.RoleGoalkeeper, league.RoleField, where)

	dbRows, err := a.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate standings: %w", err)
	}
	defer dbRows.Close()

	var rows []Row
	for dbRows.Next() {
		var row Row
		err := dbRows.Scan(&row.PlayerID, &row.Name, &row.Role, &row.PhotoBonus, &row.Points,
			&row.Wins, &row.Draws, &row.RedCards, &row.YellowCards, &row.WiltedBall, &row.Presences)
		if err != nil {
			return nil, err
		}
		if row.Presences > 0 {
			row.PhotoRate = float64(row.PhotoBonus) / float64(row.Presences)
		}
		rows = append(rows, row)
	}
	if err := dbRows.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(rows, compareRows)
	return rows, nil
}

// compareRows is the fixed total ranking order. Cards and wilted-ball counts
// rank ascending; everything else descending. The final player-id key keeps
// unresolvable ties deterministic.
func compareRows(a, b Row) int {
	if c := cmp.Compare(b.PhotoBonus, a.PhotoBonus); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Points, a.Points); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Wins, a.Wins); c != 0 {
		return c
	}
	if c := cmp.Compare(a.RedCards, b.RedCards); c != 0 {
		return c
	}
	if c := cmp.Compare(a.YellowCards, b.YellowCards); c != 0 {
		return c
	}
	if c := cmp.Compare(a.WiltedBall, b.WiltedBall); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Presences, a.Presences); c != 0 {
		return c
	}
	if c := cmp.Compare(b.PhotoRate, a.PhotoRate); c != 0 {
		return c
	}
	return cmp.Compare(a.PlayerID, b.PlayerID)
}

// partition splits the sorted rows into the two independently positioned
// leaderboards.
func partition(rows []Row) (goalkeepers, fieldPlayers []Row) {
	for _, row := range rows {
		if row.Role == league.RoleGoalkeeper {
			row.Position = len(goalkeepers) + 1
			goalkeepers = append(goalkeepers, row)
		} else {
			row.Position = len(fieldPlayers) + 1
			fieldPlayers = append(fieldPlayers, row)
		}
	}
	return goalkeepers, fieldPlayers
}

// windowFilter renders the SQL filter for a window. An up-to-round window
// resolves to the date range ending at that round's date.
func (a *Aggregator) windowFilter(w Window) (string, []any, error) {
	switch w.Mode {
	case ModeRange:
		return "WHERE r.date >= ? AND r.date <= ?", []any{w.Start, w.End}, nil
	case ModeSeason:
		return "WHERE COALESCE(r.season, '') = ?", []any{w.Season}, nil
	case ModeUpToRound:
		end, err := a.roundDate(w.RoundID)
		if err != nil {
			return "", nil, err
		}
		return "WHERE r.date <= ?", []any{end}, nil
	default:
		return "", nil, nil
	}
}

func (a *Aggregator) roundDate(roundID int64) (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var date string
	err := a.db.QueryRow("SELECT date FROM rounds WHERE id = ?", roundID).Scan(&date)
	if err != nil {
		return "", fmt.Errorf("failed to resolve date of round %d: %w", roundID, err)
	}
	return date, nil
}

// roundDatesInWindow lists the dates of the rounds a window covers, in
// chronological order.
func (a *Aggregator) roundDatesInWindow(w Window) ([]string, error) {
	where, params, err := a.windowFilter(w)
	if err != nil {
		return nil, err
	}
	// The aggregation filter aliases rounds as r.
	query := "SELECT r.date FROM rounds r " + where + " ORDER BY r.date ASC, r.id ASC"

	a.mu.RLock()
	defer a.mu.RUnlock()

	rows, err := a.db.Query(query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// applyTrends computes each player's movement versus the window as it stood
// before the most recent round in view. With fewer than two rounds in the
// window every trend stays nil.
func (a *Aggregator) applyTrends(w Window, table *Table) error {
	dates, err := a.roundDatesInWindow(w)
	if err != nil {
		return err
	}
	if len(dates) < 2 {
		return nil
	}

	start := w.Start
	if w.Mode != ModeRange {
		start = dates[0]
	}
	prevEnd := dates[len(dates)-2]

	prevRows, err := a.aggregate(DateRange(start, prevEnd))
	if err != nil {
		return err
	}
	prevGoalkeepers, prevFieldPlayers := partition(prevRows)

	applyPartitionTrends(table.Goalkeepers, prevGoalkeepers)
	applyPartitionTrends(table.FieldPlayers, prevFieldPlayers)
	return nil
}

func applyPartitionTrends(current, previous []Row) {
	prevPositions := make(map[int64]int, len(previous))
	for _, row := range previous {
		prevPositions[row.PlayerID] = row.Position
	}
	for i := range current {
		if prev, ok := prevPositions[current[i].PlayerID]; ok {
			delta := prev - current[i].Position
			current[i].Trend = &delta
		}
	}
}
