package league

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// New creates a new league Store backed by the given database handle.
func New(db *sql.DB) Store {
	return &store{db: db}
}

// ---------------------------------------------------------------------------
// Settings

func (s *store) GetSetting(key, def string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value sql.NullString
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return def, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %q: %w", key, err)
	}
	if !value.Valid || value.String == "" {
		return def, nil
	}
	return value.String, nil
}

func (s *store) SetSetting(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// SeedDefaultSettings inserts the settings a fresh league starts with,
// without touching keys the operator already changed.
func (s *store) SeedDefaultSettings() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	defaults := map[string]string{
		"league_name":           "Sunday League",
		"use_cards":             "1",
		"has_referee":           "0",
		"players_per_team_line": "5",
	}
	for key, value := range defaults {
		_, err := s.db.Exec("INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)", key, value)
		if err != nil {
			return fmt.Errorf("failed to seed setting %q: %w", key, err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Players

// UpsertPlayer inserts or updates a player keyed on the unique name.
// An upserted player is always reactivated.
func (s *store) UpsertPlayer(p Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nickname := strings.TrimSpace(p.Nickname)
	if nickname == "" {
		nickname = p.Name
	}
	_, err := s.db.Exec(`
		INSERT INTO players (name, nickname, position, role, is_goalkeeper, plan, active)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(name) DO UPDATE SET
			nickname = excluded.nickname,
			position = excluded.position,
			role = excluded.role,
			is_goalkeeper = excluded.is_goalkeeper,
			plan = excluded.plan,
			active = 1`,
		p.Name, nickname, p.Position, p.Role, boolToInt(p.IsGoalkeeper), p.Plan)
	return err
}

// FindPlayerByName looks a player up by exact, case-insensitive match against
// either the name or the nickname. Returns nil when no player matches.
// The comparison happens in Go: SQLite's NOCASE only folds ASCII, which would
// miss accented names like "JOÃO" vs "João".
func (s *store) FindPlayerByName(name string) (*Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, nil
	}
	rows, err := s.db.Query(`
		SELECT id, name, COALESCE(nickname, ''), COALESCE(position, ''), COALESCE(role, ''), is_goalkeeper, COALESCE(plan, ''), active
		FROM players ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to find player %q: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to find player %q: %w", name, err)
		}
		if strings.EqualFold(strings.TrimSpace(p.Name), trimmed) ||
			strings.EqualFold(strings.TrimSpace(p.Nickname), trimmed) {
			return p, nil
		}
	}
	return nil, rows.Err()
}

func (s *store) GetPlayer(id int64) (*Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, name, COALESCE(nickname, ''), COALESCE(position, ''), COALESCE(role, ''), is_goalkeeper, COALESCE(plan, ''), active
		FROM players WHERE id = ?`, id)
	p, err := scanPlayer(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("player %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *store) AllPlayers() ([]Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, name, COALESCE(nickname, ''), COALESCE(position, ''), COALESCE(role, ''), is_goalkeeper, COALESCE(plan, ''), active
		FROM players ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			log.Error("Failed to scan player row", "error", err)
			continue
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

func (s *store) DeactivatePlayer(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("UPDATE players SET active = 0 WHERE id = ?", id)
	return err
}

// FillBlankNicknames defaults the nickname to the name wherever it is blank.
func (s *store) FillBlankNicknames() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("UPDATE players SET nickname = name WHERE nickname IS NULL OR TRIM(nickname) = ''")
	return err
}

func scanPlayer(scanner interface{ Scan(...any) error }) (*Player, error) {
	var (
		p            Player
		isGoalkeeper int
		active       int
	)
	err := scanner.Scan(&p.ID, &p.Name, &p.Nickname, &p.Position, &p.Role, &isGoalkeeper, &p.Plan, &active)
	if err != nil {
		return nil, err
	}
	p.IsGoalkeeper = isGoalkeeper == 1
	p.Active = active == 1
	return &p, nil
}

// ---------------------------------------------------------------------------
// Rounds

// ResolveOrCreateRound maps a calendar date to its unique round, creating one
// when absent. When season is non-empty and the round already exists, the
// stored season is updated in place (last writer wins).
func (s *store) ResolveOrCreateRound(dateISO, season string, fourGoalkeepers bool) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	err := s.db.QueryRow("SELECT id FROM rounds WHERE date = ?", dateISO).Scan(&id)
	switch {
	case err == nil:
		if season != "" {
			if _, err := s.db.Exec("UPDATE rounds SET season = ? WHERE id = ?", season, id); err != nil {
				return 0, false, fmt.Errorf("failed to update season for round %d: %w", id, err)
			}
		}
		return id, false, nil
	case err != sql.ErrNoRows:
		return 0, false, fmt.Errorf("failed to look up round for %s: %w", dateISO, err)
	}

	res, err := s.db.Exec(`
		INSERT INTO rounds (date, season, label, closed, four_goalkeepers)
		VALUES (?, NULLIF(?, ''), '', 0, ?)`, dateISO, season, boolToInt(fourGoalkeepers))
	if err != nil {
		return 0, false, fmt.Errorf("failed to create round for %s: %w", dateISO, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, false, err
	}
	log.Info("Created round", "roundID", id, "date", dateISO, "season", season)
	return id, true, nil
}

func (s *store) GetRound(id int64) (*Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, date, COALESCE(season, ''), label, closed, four_goalkeepers
		FROM rounds WHERE id = ?`, id)
	r, err := scanRound(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("round %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// AllRounds returns every round in chronological order (date, then id).
func (s *store) AllRounds() ([]Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, date, COALESCE(season, ''), label, closed, four_goalkeepers
		FROM rounds ORDER BY date ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rounds []Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			log.Error("Failed to scan round row", "error", err)
			continue
		}
		rounds = append(rounds, *r)
	}
	return rounds, rows.Err()
}

func (s *store) SetRoundLabel(id int64, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("UPDATE rounds SET label = ? WHERE id = ?", label, id)
	return err
}

func (s *store) CloseAllRounds() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("UPDATE rounds SET closed = 1")
	return err
}

// DeleteRound removes a round with its teams and fact rows.
func (s *store) DeleteRound(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, stmt := range []string{
		"DELETE FROM player_round WHERE round_id = ?",
		"DELETE FROM teams_round WHERE round_id = ?",
		"DELETE FROM rounds WHERE id = ?",
	} {
		if _, err := tx.Exec(stmt, id); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to delete round %d: %w", id, err)
		}
	}
	return tx.Commit()
}

func scanRound(scanner interface{ Scan(...any) error }) (*Round, error) {
	var (
		r      Round
		closed int
		fourGK int
	)
	err := scanner.Scan(&r.ID, &r.Date, &r.Season, &r.Label, &closed, &fourGK)
	if err != nil {
		return nil, err
	}
	r.Closed = closed == 1
	r.FourGoalkeepers = fourGK == 1
	return &r, nil
}

// ---------------------------------------------------------------------------
// Teams in round

// NormalizeTeamLabel canonicalizes a raw team label. Slot-style labels
// ("slot 2", "Slot 3") become "Team N"; recognized labels are exactly
// Team 1..Team 4 and anything else falls back to "Team 1".
func NormalizeTeamLabel(raw string) string {
	label := strings.TrimSpace(raw)
	lower := strings.ToLower(label)
	if strings.HasPrefix(lower, "slot") || strings.HasPrefix(lower, "team") {
		fields := strings.Fields(label)
		if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil && n >= 1 && n <= 4 {
			return fmt.Sprintf("Team %d", n)
		}
	}
	return "Team 1"
}

// ResolveOrCreateTeam maps a (round, label) pair to its team, creating a
// zeroed team when absent. Idempotent under equivalent label spellings.
func (s *store) ResolveOrCreateTeam(roundID int64, rawLabel string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := NormalizeTeamLabel(rawLabel)
	var id int64
	err := s.db.QueryRow("SELECT id FROM teams_round WHERE round_id = ? AND name = ?", roundID, name).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case err != sql.ErrNoRows:
		return 0, fmt.Errorf("failed to look up team %q in round %d: %w", name, roundID, err)
	}

	res, err := s.db.Exec(`
		INSERT INTO teams_round (round_id, name, wins, draws, points) VALUES (?, ?, 0, 0, 0)`,
		roundID, name)
	if err != nil {
		return 0, fmt.Errorf("failed to create team %q in round %d: %w", name, roundID, err)
	}
	return res.LastInsertId()
}

// InsertTeam inserts a team with its imported win/draw counts. The label is
// normalized and points are derived.
func (s *store) InsertTeam(roundID int64, name string, wins, draws int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		INSERT INTO teams_round (round_id, name, wins, draws, points) VALUES (?, ?, ?, ?, ?)`,
		roundID, NormalizeTeamLabel(name), wins, draws, CalcPoints(wins, draws))
	if err != nil {
		return 0, fmt.Errorf("failed to insert team in round %d: %w", roundID, err)
	}
	return res.LastInsertId()
}

func (s *store) TeamsForRound(roundID int64) ([]TeamRound, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, round_id, name, wins, draws, points
		FROM teams_round WHERE round_id = ? ORDER BY name`, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []TeamRound
	for rows.Next() {
		var t TeamRound
		if err := rows.Scan(&t.ID, &t.RoundID, &t.Name, &t.Wins, &t.Draws, &t.Points); err != nil {
			log.Error("Failed to scan team row", "error", err)
			continue
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (s *store) SetTeamPoints(teamID int64, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("UPDATE teams_round SET points = ? WHERE id = ?", points, teamID)
	return err
}

func (s *store) DeleteTeamsForRound(roundID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM teams_round WHERE round_id = ?", roundID)
	return err
}

// DeleteTeam removes one team and the fact rows linked to it.
func (s *store) DeleteTeam(roundID, teamID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM player_round WHERE round_id = ? AND team_round_id = ?", roundID, teamID); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec("DELETE FROM teams_round WHERE id = ?", teamID); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Fact rows

func (s *store) EntriesForRound(roundID int64) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, round_id, player_id, team_round_id, presence, wins, draws, points,
		       yellow_cards, red_cards, photo_bonus, wilted_ball, individual_override
		FROM player_round WHERE round_id = ?`, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			log.Error("Failed to scan fact row", "error", err)
			continue
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// EntryTeamLink returns the team link of a player's fact row, nil when the
// row is absent or teamless.
func (s *store) EntryTeamLink(roundID, playerID int64) (*int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var link sql.NullInt64
	err := s.db.QueryRow(`
		SELECT team_round_id FROM player_round WHERE round_id = ? AND player_id = ?`,
		roundID, playerID).Scan(&link)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !link.Valid {
		return nil, nil
	}
	return &link.Int64, nil
}

// MarkAttendance records a presence-only fact row for the player.
func (s *store) MarkAttendance(roundID, playerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO player_round (round_id, player_id, presence)
		VALUES (?, ?, 1)
		ON CONFLICT(round_id, player_id) DO UPDATE SET presence = 1`,
		roundID, playerID)
	return err
}

func (s *store) SetEntryTeamLink(roundID, playerID, teamRoundID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO player_round (round_id, player_id, presence, team_round_id)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(round_id, player_id) DO UPDATE SET
			presence = 1,
			team_round_id = excluded.team_round_id`,
		roundID, playerID, teamRoundID)
	return err
}

func (s *store) SetEntryCards(roundID, playerID int64, yellow, red int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO player_round (round_id, player_id, presence, yellow_cards, red_cards)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(round_id, player_id) DO UPDATE SET
			presence = 1,
			yellow_cards = excluded.yellow_cards,
			red_cards = excluded.red_cards`,
		roundID, playerID, yellow, red)
	return err
}

// SetEntryOverride freezes a player's scoreline against recompute propagation.
// A nil teamRoundID keeps whatever link the row already has.
func (s *store) SetEntryOverride(roundID, playerID int64, teamRoundID *int64, wins, draws, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if teamRoundID == nil {
		_, err := s.db.Exec(`
			INSERT INTO player_round (round_id, player_id, presence, wins, draws, points, individual_override)
			VALUES (?, ?, 1, ?, ?, ?, 1)
			ON CONFLICT(round_id, player_id) DO UPDATE SET
				presence = 1,
				wins = excluded.wins,
				draws = excluded.draws,
				points = excluded.points,
				individual_override = 1`,
			roundID, playerID, wins, draws, points)
		return err
	}
	_, err := s.db.Exec(`
		INSERT INTO player_round (round_id, player_id, team_round_id, presence, wins, draws, points, individual_override)
		VALUES (?, ?, ?, 1, ?, ?, ?, 1)
		ON CONFLICT(round_id, player_id) DO UPDATE SET
			team_round_id = excluded.team_round_id,
			presence = 1,
			wins = excluded.wins,
			draws = excluded.draws,
			points = excluded.points,
			individual_override = 1`,
		roundID, playerID, *teamRoundID, wins, draws, points)
	return err
}

// ApplyTeamScore copies a team's scoreline onto a fact row and forces presence.
func (s *store) ApplyTeamScore(entryID int64, wins, draws, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE player_round SET wins = ?, draws = ?, points = ?, presence = 1 WHERE id = ?`,
		wins, draws, points, entryID)
	return err
}

func (s *store) ClearTeamLinks(roundID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("UPDATE player_round SET team_round_id = NULL WHERE round_id = ?", roundID)
	return err
}

func (s *store) ClearCards(roundID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("UPDATE player_round SET yellow_cards = 0, red_cards = 0 WHERE round_id = ?", roundID)
	return err
}

// ClearGoalkeeperOverrides drops the override flag for goalkeepers only;
// field players in the round are untouched.
func (s *store) ClearGoalkeeperOverrides(roundID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE player_round SET individual_override = 0
		WHERE round_id = ?
		  AND player_id IN (SELECT id FROM players WHERE role = ? OR is_goalkeeper = 1)`,
		roundID, RoleGoalkeeper)
	return err
}

func (s *store) ResetAwards(roundID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("UPDATE player_round SET photo_bonus = 0, wilted_ball = 0 WHERE round_id = ?", roundID)
	return err
}

func (s *store) SetPhotoBonus(roundID, teamRoundID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE player_round SET photo_bonus = 1 WHERE round_id = ? AND team_round_id = ?`,
		roundID, teamRoundID)
	return err
}

func (s *store) SetWiltedBall(roundID, teamRoundID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE player_round SET wilted_ball = 1 WHERE round_id = ? AND team_round_id = ?`,
		roundID, teamRoundID)
	return err
}

func (s *store) DeleteEntriesForRound(roundID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM player_round WHERE round_id = ?", roundID)
	return err
}

func scanEntry(scanner interface{ Scan(...any) error }) (*Entry, error) {
	var (
		e        Entry
		teamLink sql.NullInt64
		presence int
		photo    int
		wilted   int
		override int
	)
	err := scanner.Scan(&e.ID, &e.RoundID, &e.PlayerID, &teamLink, &presence, &e.Wins, &e.Draws,
		&e.Points, &e.YellowCards, &e.RedCards, &photo, &wilted, &override)
	if err != nil {
		return nil, err
	}
	if teamLink.Valid {
		e.TeamRoundID = &teamLink.Int64
	}
	e.Presence = presence == 1
	e.PhotoBonus = photo == 1
	e.WiltedBall = wilted == 1
	e.IndividualOverride = override == 1
	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
