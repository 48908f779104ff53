// Package recompute derives team points, propagates them onto fact rows and
// assigns the round awards. It is purely derivative: re-running it with
// unchanged inputs yields identical outputs.
package recompute

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/peladahub/peladahub/internal/league"
)

// Engine recalculates derived fields from the raw per-round inputs.
type Engine struct {
	store league.Store
}

// New creates an engine bound to the given store.
func New(store league.Store) *Engine {
	return &Engine{store: store}
}

// RecomputeRound recalculates one round:
//  1. team points from win/draw counts,
//  2. propagation of the team scoreline onto every linked, non-overridden
//     fact row (forcing presence),
//  3. the photo-bonus and wilted-ball awards under the strict-uniqueness rule.
//
// Missing teams or players never fail the recompute; they only limit what
// gets propagated.
func (e *Engine) RecomputeRound(roundID int64) error {
	teams, err := e.store.TeamsForRound(roundID)
	if err != nil {
		return fmt.Errorf("failed to load teams for round %d: %w", roundID, err)
	}

	type score struct {
		wins, draws, points int
	}
	scores := make(map[int64]score, len(teams))
	for _, t := range teams {
		points := league.CalcPoints(t.Wins, t.Draws)
		scores[t.ID] = score{wins: t.Wins, draws: t.Draws, points: points}
		if err := e.store.SetTeamPoints(t.ID, points); err != nil {
			return fmt.Errorf("failed to persist points for team %d: %w", t.ID, err)
		}
	}
	if len(teams) == 0 {
		return nil
	}

	entries, err := e.store.EntriesForRound(roundID)
	if err != nil {
		return fmt.Errorf("failed to load fact rows for round %d: %w", roundID, err)
	}
	for _, entry := range entries {
		if entry.TeamRoundID == nil || entry.IndividualOverride {
			continue
		}
		sc, ok := scores[*entry.TeamRoundID]
		if !ok {
			continue
		}
		if err := e.store.ApplyTeamScore(entry.ID, sc.wins, sc.draws, sc.points); err != nil {
			return fmt.Errorf("failed to propagate team score to entry %d: %w", entry.ID, err)
		}
	}

	return e.assignAwards(roundID, teams)
}

// assignAwards resets both award flags for the whole round, then sets them
// only when exactly one team holds the extreme. A tie at either extreme
// suppresses that award.
func (e *Engine) assignAwards(roundID int64, teams []league.TeamRound) error {
	first := league.CalcPoints(teams[0].Wins, teams[0].Draws)
	maxPoints, minPoints := first, first
	for _, t := range teams {
		points := league.CalcPoints(t.Wins, t.Draws)
		if points > maxPoints {
			maxPoints = points
		}
		if points < minPoints {
			minPoints = points
		}
	}

	var winners, losers []int64
	for _, t := range teams {
		points := league.CalcPoints(t.Wins, t.Draws)
		if points == maxPoints {
			winners = append(winners, t.ID)
		}
		if points == minPoints {
			losers = append(losers, t.ID)
		}
	}

	if err := e.store.ResetAwards(roundID); err != nil {
		return fmt.Errorf("failed to reset awards for round %d: %w", roundID, err)
	}
	if len(winners) == 1 {
		if err := e.store.SetPhotoBonus(roundID, winners[0]); err != nil {
			return fmt.Errorf("failed to set photo bonus for round %d: %w", roundID, err)
		}
	}
	if len(losers) == 1 {
		if err := e.store.SetWiltedBall(roundID, losers[0]); err != nil {
			return fmt.Errorf("failed to set wilted ball for round %d: %w", roundID, err)
		}
	}
	return nil
}

// RecomputeAll runs RecomputeRound over every round in chronological order.
// With regenerateLabels the ordinal round labels are reassigned from that
// order; with closeAll every round is marked closed afterwards.
func (e *Engine) RecomputeAll(closeAll, regenerateLabels bool) error {
	rounds, err := e.store.AllRounds()
	if err != nil {
		return fmt.Errorf("failed to list rounds: %w", err)
	}
	for _, r := range rounds {
		if err := e.RecomputeRound(r.ID); err != nil {
			return err
		}
	}
	if regenerateLabels {
		if err := e.RegenerateLabels(); err != nil {
			return err
		}
	}
	if closeAll {
		if err := e.store.CloseAllRounds(); err != nil {
			return fmt.Errorf("failed to close rounds: %w", err)
		}
	}
	log.Info("Recomputed all rounds", "count", len(rounds), "closed", closeAll)
	return nil
}

// RegenerateLabels rewrites every round's ordinal label from its 1-based
// chronological position.
func (e *Engine) RegenerateLabels() error {
	rounds, err := e.store.AllRounds()
	if err != nil {
		return err
	}
	for i, r := range rounds {
		label := fmt.Sprintf("%dº Round", i+1)
		if err := e.store.SetRoundLabel(r.ID, label); err != nil {
			return fmt.Errorf("failed to relabel round %d: %w", r.ID, err)
		}
	}
	return nil
}
