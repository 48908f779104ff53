package cashbox

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/peladahub/peladahub/internal/league"
)

// SetOpening upserts the opening balance of a season.
func (s *Store) SetOpening(season string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO cash_opening (season, opening) VALUES (?, ?)
		ON CONFLICT(season) DO UPDATE SET opening = excluded.opening`, season, value)
	return err
}

// Opening returns a season's opening balance, zero when unset.
func (s *Store) Opening(season string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var opening float64
	err := s.db.QueryRow("SELECT opening FROM cash_opening WHERE season = ?", season).Scan(&opening)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return opening, err
}

// SetMonthlyPaid flags whether a monthly-plan player paid a given month.
func (s *Store) SetMonthlyPaid(season string, playerID int64, month int, paid bool) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("month %d out of range", month)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	paidInt := 0
	if paid {
		paidInt = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO cash_month_flags (season, player_id, month, paid)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(season, player_id, month) DO UPDATE SET paid = excluded.paid`,
		season, playerID, month, paidInt)
	return err
}

// AddExtra records a free-form cash movement.
func (s *Store) AddExtra(e Extra) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		INSERT INTO cash_extra (date, season, type, description, value)
		VALUES (?, ?, ?, ?, ?)`, e.Date, e.Season, e.Type, e.Description, e.Value)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// DeleteExtra removes a cash movement.
func (s *Store) DeleteExtra(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM cash_extra WHERE id = ?", id)
	return err
}

// MonthSummary aggregates one month's cash movements: dues collected from
// monthly-plan players, per-game fees from casual presences, card fines,
// extras, court rent and referee fees.
func (s *Store) MonthSummary(season string, month int) (*MonthSummary, error) {
	monthlyFee, err := s.feeSetting("monthly_fee")
	if err != nil {
		return nil, err
	}
	singleFee, err := s.feeSetting("single_fee")
	if err != nil {
		return nil, err
	}
	rent, err := s.feeSetting("rent_court")
	if err != nil {
		return nil, err
	}
	refereeFee, err := s.feeSetting("referee_fee")
	if err != nil {
		return nil, err
	}
	yellowFine, err := s.feeSetting("yellow_card_fee")
	if err != nil {
		return nil, err
	}
	redFine, err := s.feeSetting("red_card_fee")
	if err != nil {
		return nil, err
	}
	hasReferee, err := s.league.GetSetting("has_referee", "0")
	if err != nil {
		return nil, err
	}

	start, end, err := monthBounds(season, month)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var paidCount int
	err = s.db.QueryRow(`
		SELECT COUNT(*)
		FROM cash_month_flags f
		JOIN players p ON p.id = f.player_id
		WHERE f.season = ? AND f.month = ? AND f.paid = 1
		  AND COALESCE(p.plan, ?) = ? AND p.active = 1`,
		season, month, league.PlanMonthly, league.PlanMonthly).Scan(&paidCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count paid dues: %w", err)
	}

	var casualPresences int
	err = s.db.QueryRow(`
		SELECT COUNT(*)
		FROM player_round pr
		JOIN rounds r ON r.id = pr.round_id
		JOIN players p ON p.id = pr.player_id
		WHERE pr.presence = 1 AND p.plan = ? AND r.date BETWEEN ? AND ?`,
		league.PlanCasual, start, end).Scan(&casualPresences)
	if err != nil {
		return nil, fmt.Errorf("failed to count casual presences: %w", err)
	}

	var yellow, red int
	err = s.db.QueryRow(`
		SELECT COALESCE(SUM(pr.yellow_cards), 0), COALESCE(SUM(pr.red_cards), 0)
		FROM player_round pr
		JOIN rounds r ON r.id = pr.round_id
		WHERE r.date BETWEEN ? AND ?`, start, end).Scan(&yellow, &red)
	if err != nil {
		return nil, fmt.Errorf("failed to sum cards: %w", err)
	}

	var roundsInMonth int
	err = s.db.QueryRow("SELECT COUNT(*) FROM rounds WHERE date BETWEEN ? AND ?", start, end).Scan(&roundsInMonth)
	if err != nil {
		return nil, err
	}

	var extraIn, extraOut float64
	rows, err := s.db.Query(`
		SELECT COALESCE(type, ''), COALESCE(value, 0)
		FROM cash_extra WHERE season = ? AND date BETWEEN ? AND ?`, season, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var value float64
		if err := rows.Scan(&kind, &value); err != nil {
			log.Error("Failed to scan cash extra row", "error", err)
			continue
		}
		switch kind {
		case ExtraIn:
			extraIn += value
		case ExtraOut:
			extraOut += value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	summary := &MonthSummary{
		Season:      season,
		Month:       month,
		MonthlyDues: float64(paidCount) * monthlyFee,
		CasualFees:  float64(casualPresences) * singleFee,
		CardFines:   float64(yellow)*yellowFine + float64(red)*redFine,
		ExtraIn:     extraIn,
		CourtRent:   rent,
		ExtraOut:    extraOut,
	}
	if hasReferee == "1" {
		summary.RefereeFees = refereeFee * float64(roundsInMonth)
	}
	summary.TotalIn = summary.MonthlyDues + summary.CasualFees + summary.CardFines + summary.ExtraIn
	summary.TotalOut = summary.CourtRent + summary.RefereeFees + summary.ExtraOut
	summary.Balance = summary.TotalIn - summary.TotalOut
	return summary, nil
}

// SeasonRunningBalance accumulates the opening balance plus every month's
// balance up to and including upToMonth.
func (s *Store) SeasonRunningBalance(season string, upToMonth int) (float64, error) {
	opening, err := s.Opening(season)
	if err != nil {
		return 0, err
	}
	total := opening
	for month := 1; month <= upToMonth; month++ {
		summary, err := s.MonthSummary(season, month)
		if err != nil {
			return 0, err
		}
		total += summary.Balance
	}
	return total, nil
}

func (s *Store) feeSetting(key string) (float64, error) {
	raw, err := s.league.GetSetting(key, "0")
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Warn("Unparseable fee setting, treating as zero", "key", key, "value", raw)
		return 0, nil
	}
	return value, nil
}

// monthBounds returns the inclusive ISO date range of a month within a
// season's year.
func monthBounds(season string, month int) (string, string, error) {
	year, err := strconv.Atoi(season)
	if err != nil {
		year = time.Now().Year()
	}
	if month < 1 || month > 12 {
		return "", "", fmt.Errorf("month %d out of range", month)
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format("2006-01-02"), last.Format("2006-01-02"), nil
}
