// Package importer implements the bulk replace pipelines. Every pipeline is
// scoped per source date: an import for a given date fully supersedes the
// prior data of its category for that date, it never merges additively.
package importer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/peladahub/peladahub/internal/league"
	"github.com/peladahub/peladahub/internal/metrics"
	"github.com/peladahub/peladahub/internal/recompute"
)

// Importer runs the bulk replace pipelines against one league store.
type Importer struct {
	store   league.Store
	engine  *recompute.Engine
	metrics metrics.Metrics
}

// New creates an importer. The recompute engine is invoked on every round a
// batch touches.
func New(store league.Store, engine *recompute.Engine, m metrics.Metrics) *Importer {
	return &Importer{store: store, engine: engine, metrics: m}
}

func newReport() Report {
	return Report{BatchID: uuid.NewString()}
}

// ImportPlayers upserts players keyed on name. A blank nickname defaults to
// the name; the GK position code marks a goalkeeper.
func (i *Importer) ImportPlayers(rows []PlayerRow) (Report, error) {
	report := newReport()
	i.metrics.IncImportRuns("players")

	for _, row := range rows {
		report.Processed++
		name := strings.TrimSpace(row.Name)
		if name == "" {
			report.ParseErrors++
			continue
		}

		position := strings.ToUpper(strings.TrimSpace(row.Position))
		role := league.RoleField
		isGoalkeeper := position == league.PositionGoalkeeper
		if isGoalkeeper {
			role = league.RoleGoalkeeper
		}
		plan := strings.ToUpper(strings.TrimSpace(row.Plan))
		if plan == "" {
			plan = league.PlanMonthly
		}

		err := i.store.UpsertPlayer(league.Player{
			Name:         name,
			Nickname:     strings.TrimSpace(row.Nickname),
			Position:     position,
			Role:         role,
			IsGoalkeeper: isGoalkeeper,
			Plan:         plan,
		})
		if err != nil {
			return report, fmt.Errorf("failed to upsert player %q: %w", name, err)
		}
		report.Written++
	}

	if err := i.store.FillBlankNicknames(); err != nil {
		return report, err
	}
	i.metrics.AddImportRowsWritten("players", report.Written)
	log.Info("Imported players", "batchID", report.BatchID, "written", report.Written, "processed", report.Processed)
	return report, nil
}

// ImportTeamResults replaces each touched round's teams with the batch rows.
func (i *Importer) ImportTeamResults(rows []TeamResultRow) (Report, error) {
	report := newReport()
	i.metrics.IncImportRuns("teams")

	byDate := make(map[string][]TeamResultRow)
	for _, row := range rows {
		report.Processed++
		dateISO, ok := ParseDate(row.Date)
		if !ok {
			report.ParseErrors++
			continue
		}
		byDate[dateISO] = append(byDate[dateISO], row)
	}

	for _, dateISO := range sortedKeys(byDate) {
		group := byDate[dateISO]

		season := ""
		for _, row := range group {
			if s := NormalizeSeason(row.Season); s != "" {
				season = s
				break
			}
		}
		roundID, _, err := i.store.ResolveOrCreateRound(dateISO, season, false)
		if err != nil {
			return report, err
		}

		if err := i.store.DeleteTeamsForRound(roundID); err != nil {
			return report, fmt.Errorf("failed to clear teams for round %d: %w", roundID, err)
		}

		for _, row := range group {
			wins, winsOK := parseCount(row.Wins)
			draws, drawsOK := parseCount(row.Draws)
			if !winsOK || !drawsOK {
				report.ParseErrors++
				continue
			}
			if _, err := i.store.InsertTeam(roundID, row.Team, wins, draws); err != nil {
				return report, err
			}
			report.Written++
		}

		if err := i.engine.RecomputeRound(roundID); err != nil {
			return report, err
		}
	}

	i.metrics.AddImportRowsWritten("teams", report.Written)
	log.Info("Imported team results", "batchID", report.BatchID, "written", report.Written, "processed", report.Processed, "parseErrors", report.ParseErrors)
	return report, nil
}

// ImportPlayerLinks replaces each touched round's player-to-team links. Every
// link in the round is cleared first, so a player omitted from the new batch
// for that date ends up teamless while keeping presence and cards.
func (i *Importer) ImportPlayerLinks(rows []PlayerLinkRow) (Report, error) {
	report := newReport()
	i.metrics.IncImportRuns("links")

	byDate := make(map[string][]PlayerLinkRow)
	for _, row := range rows {
		report.Processed++
		if strings.TrimSpace(row.Player) == "" || strings.TrimSpace(row.Team) == "" {
			report.ParseErrors++
			continue
		}
		dateISO, ok := ParseDate(row.Date)
		if !ok {
			report.ParseErrors++
			continue
		}
		byDate[dateISO] = append(byDate[dateISO], row)
	}

	for _, dateISO := range sortedKeys(byDate) {
		roundID, _, err := i.store.ResolveOrCreateRound(dateISO, "", false)
		if err != nil {
			return report, err
		}

		if err := i.store.ClearTeamLinks(roundID); err != nil {
			return report, fmt.Errorf("failed to clear team links for round %d: %w", roundID, err)
		}

		for _, row := range byDate[dateISO] {
			player, err := i.store.FindPlayerByName(row.Player)
			if err != nil {
				return report, err
			}
			if player == nil {
				report.MissingPlayers++
				log.Warn("Skipping link for unknown player", "player", row.Player, "date", dateISO)
				continue
			}

			teamID, err := i.store.ResolveOrCreateTeam(roundID, row.Team)
			if err != nil {
				return report, err
			}
			if err := i.store.SetEntryTeamLink(roundID, player.ID, teamID); err != nil {
				return report, err
			}
			report.Written++
		}

		if err := i.engine.RecomputeRound(roundID); err != nil {
			return report, err
		}
	}

	i.metrics.AddImportRowsWritten("links", report.Written)
	log.Info("Imported player links", "batchID", report.BatchID, "written", report.Written, "missing", report.MissingPlayers)
	return report, nil
}

// ImportCards replaces each touched round's card counts. Card counts of every
// fact row in the round are zeroed first; multiple batch rows for the same
// player on the same date aggregate additively before being written.
func (i *Importer) ImportCards(rows []CardRow) (Report, error) {
	report := newReport()
	i.metrics.IncImportRuns("cards")

	type cardTotals struct {
		player      string
		yellow, red int
	}
	byDate := make(map[string]map[string]*cardTotals)
	for _, row := range rows {
		report.Processed++
		dateISO, ok := ParseDate(row.Date)
		if !ok {
			report.ParseErrors++
			continue
		}
		yellow, yellowOK := parseCount(row.Yellow)
		red, redOK := parseCount(row.Red)
		if !yellowOK || !redOK {
			report.ParseErrors++
			continue
		}

		key := strings.ToLower(strings.TrimSpace(row.Player))
		if byDate[dateISO] == nil {
			byDate[dateISO] = make(map[string]*cardTotals)
		}
		if totals, ok := byDate[dateISO][key]; ok {
			totals.yellow += yellow
			totals.red += red
		} else {
			byDate[dateISO][key] = &cardTotals{player: row.Player, yellow: yellow, red: red}
		}
	}

	for _, dateISO := range sortedKeys(byDate) {
		roundID, _, err := i.store.ResolveOrCreateRound(dateISO, "", false)
		if err != nil {
			return report, err
		}

		if err := i.store.ClearCards(roundID); err != nil {
			return report, fmt.Errorf("failed to clear cards for round %d: %w", roundID, err)
		}

		for _, key := range sortedKeys(byDate[dateISO]) {
			totals := byDate[dateISO][key]
			player, err := i.store.FindPlayerByName(totals.player)
			if err != nil {
				return report, err
			}
			if player == nil {
				report.MissingPlayers++
				log.Warn("Skipping cards for unknown player", "player", totals.player, "date", dateISO)
				continue
			}
			if err := i.store.SetEntryCards(roundID, player.ID, totals.yellow, totals.red); err != nil {
				return report, err
			}
			report.Written++
		}

		// Cards never change points, but keep the round's derived fields consistent.
		if err := i.engine.RecomputeRound(roundID); err != nil {
			return report, err
		}
	}

	i.metrics.AddImportRowsWritten("cards", report.Written)
	log.Info("Imported cards", "batchID", report.BatchID, "written", report.Written, "missing", report.MissingPlayers)
	return report, nil
}

// ImportGoalkeeperOverrides replaces the individual overrides of each touched
// round's goalkeepers. Field players keep their overrides; an existing team
// link is preserved so the awards still reach the goalkeeper.
func (i *Importer) ImportGoalkeeperOverrides(rows []GoalkeeperRow) (Report, error) {
	report := newReport()
	i.metrics.IncImportRuns("goalkeepers")

	type gkTotals struct {
		goalkeeper          string
		wins, draws, points int
		explicitPoints      bool
	}
	byDate := make(map[string]map[string]*gkTotals)
	for _, row := range rows {
		report.Processed++
		dateISO, ok := ParseDate(row.Date)
		if !ok {
			report.ParseErrors++
			continue
		}
		wins, winsOK := parseCount(row.Wins)
		draws, drawsOK := parseCount(row.Draws)
		if !winsOK || !drawsOK {
			report.ParseErrors++
			continue
		}
		points, pointsOK := 0, false
		if strings.TrimSpace(row.Points) != "" {
			if n, ok := parseCount(row.Points); ok {
				points, pointsOK = n, true
			} else {
				report.ParseErrors++
				continue
			}
		}

		key := strings.ToLower(strings.TrimSpace(row.Goalkeeper))
		if byDate[dateISO] == nil {
			byDate[dateISO] = make(map[string]*gkTotals)
		}
		if totals, ok := byDate[dateISO][key]; ok {
			totals.wins += wins
			totals.draws += draws
			totals.points += points
			totals.explicitPoints = totals.explicitPoints || pointsOK
		} else {
			byDate[dateISO][key] = &gkTotals{goalkeeper: row.Goalkeeper, wins: wins, draws: draws, points: points, explicitPoints: pointsOK}
		}
	}

	for _, dateISO := range sortedKeys(byDate) {
		roundID, _, err := i.store.ResolveOrCreateRound(dateISO, "", false)
		if err != nil {
			return report, err
		}

		if err := i.store.ClearGoalkeeperOverrides(roundID); err != nil {
			return report, fmt.Errorf("failed to clear goalkeeper overrides for round %d: %w", roundID, err)
		}

		for _, key := range sortedKeys(byDate[dateISO]) {
			totals := byDate[dateISO][key]
			player, err := i.store.FindPlayerByName(totals.goalkeeper)
			if err != nil {
				return report, err
			}
			if player == nil {
				report.MissingPlayers++
				log.Warn("Skipping override for unknown goalkeeper", "player", totals.goalkeeper, "date", dateISO)
				continue
			}

			teamLink, err := i.store.EntryTeamLink(roundID, player.ID)
			if err != nil {
				return report, err
			}
			points := totals.points
			if !totals.explicitPoints {
				points = league.CalcPoints(totals.wins, totals.draws)
			}
			if err := i.store.SetEntryOverride(roundID, player.ID, teamLink, totals.wins, totals.draws, points); err != nil {
				return report, err
			}
			report.Written++
		}

		if err := i.engine.RecomputeRound(roundID); err != nil {
			return report, err
		}
	}

	i.metrics.AddImportRowsWritten("goalkeepers", report.Written)
	log.Info("Imported goalkeeper overrides", "batchID", report.BatchID, "written", report.Written, "missing", report.MissingPlayers)
	return report, nil
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
