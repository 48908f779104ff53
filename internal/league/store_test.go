package league_test

import (
	"database/sql"
	"testing"

	"github.com/peladahub/peladahub/internal/database"
	"github.com/peladahub/peladahub/internal/league"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, teardown, err := database.InitDB(":memory:", "", "")
	require.NoError(t, err, "test database setup should not fail")
	t.Cleanup(teardown)
	return db
}

func TestSettings(t *testing.T) {
	store := league.New(setupTestDB(t))

	value, err := store.GetSetting("league_name", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", value, "missing keys should return the default")

	require.NoError(t, store.SetSetting("league_name", "Tuesday Pickup"))
	require.NoError(t, store.SetSetting("league_name", "Sunday Pickup"))

	value, err = store.GetSetting("league_name", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "Sunday Pickup", value, "the last write should win")
}

func TestSeedDefaultSettings_DoesNotOverwrite(t *testing.T) {
	store := league.New(setupTestDB(t))

	require.NoError(t, store.SetSetting("use_cards", "0"))
	require.NoError(t, store.SeedDefaultSettings())

	value, err := store.GetSetting("use_cards", "")
	require.NoError(t, err)
	assert.Equal(t, "0", value, "seeding must not clobber operator settings")

	value, err = store.GetSetting("players_per_team_line", "")
	require.NoError(t, err)
	assert.Equal(t, "5", value)
}

func TestUpsertPlayer(t *testing.T) {
	store := league.New(setupTestDB(t))

	require.NoError(t, store.UpsertPlayer(league.Player{
		Name:     "Alice Johnson",
		Position: "GK",
		Role:     league.RoleGoalkeeper,
		Plan:     league.PlanMonthly,
	}))

	p, err := store.FindPlayerByName("Alice Johnson")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Alice Johnson", p.Nickname, "a blank nickname should default to the name")
	assert.True(t, p.Active)

	require.NoError(t, store.DeactivatePlayer(p.ID))

	// Re-importing the same player reactivates and updates in place.
	require.NoError(t, store.UpsertPlayer(league.Player{
		Name:     "Alice Johnson",
		Nickname: "Ali",
		Position: "GK",
		Role:     league.RoleGoalkeeper,
		Plan:     league.PlanCasual,
	}))

	updated, err := store.GetPlayer(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ali", updated.Nickname)
	assert.Equal(t, league.PlanCasual, updated.Plan)
	assert.True(t, updated.Active, "an upsert should reactivate the player")

	players, err := store.AllPlayers()
	require.NoError(t, err)
	assert.Len(t, players, 1, "the upsert must not duplicate the player")
}

func TestFindPlayerByName(t *testing.T) {
	store := league.New(setupTestDB(t))

	require.NoError(t, store.UpsertPlayer(league.Player{Name: "Bob Smith", Nickname: "Bobby", Role: league.RoleField, Plan: league.PlanMonthly}))
	require.NoError(t, store.UpsertPlayer(league.Player{Name: "João Silva", Nickname: "Jô", Role: league.RoleField, Plan: league.PlanMonthly}))

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"exact name", "Bob Smith", "Bob Smith"},
		{"case insensitive name", "bob smith", "Bob Smith"},
		{"nickname", "BOBBY", "Bob Smith"},
		{"surrounding whitespace", "  Bobby  ", "Bob Smith"},
		{"accented name uppercased", "JOÃO SILVA", "João Silva"},
		{"accented name lowercased", "joão silva", "João Silva"},
		{"accented nickname", "JÔ", "João Silva"},
		{"unknown", "Charlie", ""},
		{"blank", "   ", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := store.FindPlayerByName(tc.query)
			require.NoError(t, err)
			if tc.want != "" {
				require.NotNil(t, p)
				assert.Equal(t, tc.want, p.Name)
			} else {
				assert.Nil(t, p, "lookup misses return nil without an error")
			}
		})
	}
}

func TestResolveOrCreateRound(t *testing.T) {
	store := league.New(setupTestDB(t))

	id, created, err := store.ResolveOrCreateRound("2025-03-02", "2025", false)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := store.ResolveOrCreateRound("2025-03-02", "", false)
	require.NoError(t, err)
	assert.False(t, created, "the same date must resolve to the existing round")
	assert.Equal(t, id, again)

	round, err := store.GetRound(id)
	require.NoError(t, err)
	assert.Equal(t, "2025", round.Season, "an empty season must not erase the stored one")

	_, _, err = store.ResolveOrCreateRound("2025-03-02", "2026", false)
	require.NoError(t, err)
	round, err = store.GetRound(id)
	require.NoError(t, err)
	assert.Equal(t, "2026", round.Season, "a non-empty season update is last writer wins")
}

func TestAllRounds_ChronologicalOrder(t *testing.T) {
	store := league.New(setupTestDB(t))

	for _, date := range []string{"2025-03-16", "2025-03-02", "2025-03-09"} {
		_, _, err := store.ResolveOrCreateRound(date, "2025", false)
		require.NoError(t, err)
	}

	rounds, err := store.AllRounds()
	require.NoError(t, err)
	require.Len(t, rounds, 3)
	assert.Equal(t, "2025-03-02", rounds[0].Date)
	assert.Equal(t, "2025-03-09", rounds[1].Date)
	assert.Equal(t, "2025-03-16", rounds[2].Date)
}

func TestNormalizeTeamLabel(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Team 2", "Team 2"},
		{"team 3", "Team 3"},
		{"slot 4", "Team 4"},
		{"Slot 1", "Team 1"},
		{"  team 2  ", "Team 2"},
		{"Team 5", "Team 1"},
		{"slot 0", "Team 1"},
		{"The Reds", "Team 1"},
		{"", "Team 1"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, league.NormalizeTeamLabel(tc.raw), "raw label %q", tc.raw)
	}
}

func TestResolveOrCreateTeam(t *testing.T) {
	store := league.New(setupTestDB(t))

	roundID, _, err := store.ResolveOrCreateRound("2025-03-02", "2025", false)
	require.NoError(t, err)

	id, err := store.ResolveOrCreateTeam(roundID, "slot 2")
	require.NoError(t, err)

	again, err := store.ResolveOrCreateTeam(roundID, "Team 2")
	require.NoError(t, err)
	assert.Equal(t, id, again, "equivalent label spellings must resolve to one team")

	teams, err := store.TeamsForRound(roundID)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "Team 2", teams[0].Name)
}

func TestEntryUpserts(t *testing.T) {
	store := league.New(setupTestDB(t))

	roundID, _, err := store.ResolveOrCreateRound("2025-03-02", "2025", false)
	require.NoError(t, err)
	require.NoError(t, store.UpsertPlayer(league.Player{Name: "Alice", Role: league.RoleField, Plan: league.PlanMonthly}))
	alice, err := store.FindPlayerByName("Alice")
	require.NoError(t, err)

	teamID, err := store.ResolveOrCreateTeam(roundID, "Team 1")
	require.NoError(t, err)

	require.NoError(t, store.MarkAttendance(roundID, alice.ID))
	require.NoError(t, store.SetEntryTeamLink(roundID, alice.ID, teamID))
	require.NoError(t, store.SetEntryCards(roundID, alice.ID, 2, 1))

	entries, err := store.EntriesForRound(roundID)
	require.NoError(t, err)
	require.Len(t, entries, 1, "all three writes should land on one fact row")

	e := entries[0]
	assert.True(t, e.Presence)
	require.NotNil(t, e.TeamRoundID)
	assert.Equal(t, teamID, *e.TeamRoundID)
	assert.Equal(t, 2, e.YellowCards)
	assert.Equal(t, 1, e.RedCards)

	link, err := store.EntryTeamLink(roundID, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.Equal(t, teamID, *link)
}

func TestSetEntryOverride_PreservesLinkWhenNil(t *testing.T) {
	store := league.New(setupTestDB(t))

	roundID, _, err := store.ResolveOrCreateRound("2025-03-02", "2025", false)
	require.NoError(t, err)
	require.NoError(t, store.UpsertPlayer(league.Player{Name: "Gus", Position: "GK", Role: league.RoleGoalkeeper, IsGoalkeeper: true, Plan: league.PlanMonthly}))
	gus, err := store.FindPlayerByName("Gus")
	require.NoError(t, err)
	teamID, err := store.ResolveOrCreateTeam(roundID, "Team 2")
	require.NoError(t, err)

	require.NoError(t, store.SetEntryTeamLink(roundID, gus.ID, teamID))
	require.NoError(t, store.SetEntryOverride(roundID, gus.ID, nil, 4, 1, 13))

	entries, err := store.EntriesForRound(roundID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.True(t, e.IndividualOverride)
	assert.Equal(t, 4, e.Wins)
	assert.Equal(t, 1, e.Draws)
	assert.Equal(t, 13, e.Points)
	require.NotNil(t, e.TeamRoundID, "a nil link argument must keep the existing link")
	assert.Equal(t, teamID, *e.TeamRoundID)
}

func TestClearGoalkeeperOverrides_LeavesFieldPlayers(t *testing.T) {
	store := league.New(setupTestDB(t))

	roundID, _, err := store.ResolveOrCreateRound("2025-03-02", "2025", false)
	require.NoError(t, err)
	require.NoError(t, store.UpsertPlayer(league.Player{Name: "Gus", Position: "GK", Role: league.RoleGoalkeeper, IsGoalkeeper: true, Plan: league.PlanMonthly}))
	require.NoError(t, store.UpsertPlayer(league.Player{Name: "Fred", Role: league.RoleField, Plan: league.PlanMonthly}))
	gus, err := store.FindPlayerByName("Gus")
	require.NoError(t, err)
	fred, err := store.FindPlayerByName("Fred")
	require.NoError(t, err)

	require.NoError(t, store.SetEntryOverride(roundID, gus.ID, nil, 2, 0, 6))
	require.NoError(t, store.SetEntryOverride(roundID, fred.ID, nil, 1, 0, 3))

	require.NoError(t, store.ClearGoalkeeperOverrides(roundID))

	entries, err := store.EntriesForRound(roundID)
	require.NoError(t, err)
	byPlayer := map[int64]league.Entry{}
	for _, e := range entries {
		byPlayer[e.PlayerID] = e
	}
	assert.False(t, byPlayer[gus.ID].IndividualOverride, "goalkeeper overrides should be cleared")
	assert.True(t, byPlayer[fred.ID].IndividualOverride, "field player overrides must survive")
}

func TestDeleteRound_CascadesTeamsAndEntries(t *testing.T) {
	db := setupTestDB(t)
	store := league.New(db)

	roundID, _, err := store.ResolveOrCreateRound("2025-03-02", "2025", false)
	require.NoError(t, err)
	require.NoError(t, store.UpsertPlayer(league.Player{Name: "Alice", Role: league.RoleField, Plan: league.PlanMonthly}))
	alice, err := store.FindPlayerByName("Alice")
	require.NoError(t, err)
	teamID, err := store.ResolveOrCreateTeam(roundID, "Team 1")
	require.NoError(t, err)
	require.NoError(t, store.SetEntryTeamLink(roundID, alice.ID, teamID))

	require.NoError(t, store.DeleteRound(roundID))

	for _, q := range []string{
		"SELECT COUNT(*) FROM rounds",
		"SELECT COUNT(*) FROM teams_round",
		"SELECT COUNT(*) FROM player_round",
	} {
		var n int
		require.NoError(t, db.QueryRow(q).Scan(&n))
		assert.Zero(t, n, q)
	}
}

func TestDeleteTeam_RemovesLinkedEntriesOnly(t *testing.T) {
	store := league.New(setupTestDB(t))

	roundID, _, err := store.ResolveOrCreateRound("2025-03-02", "2025", false)
	require.NoError(t, err)
	require.NoError(t, store.UpsertPlayer(league.Player{Name: "Alice", Role: league.RoleField, Plan: league.PlanMonthly}))
	require.NoError(t, store.UpsertPlayer(league.Player{Name: "Bob", Role: league.RoleField, Plan: league.PlanMonthly}))
	alice, err := store.FindPlayerByName("Alice")
	require.NoError(t, err)
	bob, err := store.FindPlayerByName("Bob")
	require.NoError(t, err)

	team1, err := store.ResolveOrCreateTeam(roundID, "Team 1")
	require.NoError(t, err)
	team2, err := store.ResolveOrCreateTeam(roundID, "Team 2")
	require.NoError(t, err)
	require.NoError(t, store.SetEntryTeamLink(roundID, alice.ID, team1))
	require.NoError(t, store.SetEntryTeamLink(roundID, bob.ID, team2))

	require.NoError(t, store.DeleteTeam(roundID, team1))

	entries, err := store.EntriesForRound(roundID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, bob.ID, entries[0].PlayerID)

	teams, err := store.TeamsForRound(roundID)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "Team 2", teams[0].Name)
}

func TestCalcPoints(t *testing.T) {
	assert.Equal(t, 0, league.CalcPoints(0, 0))
	assert.Equal(t, 7, league.CalcPoints(2, 1))
	assert.Equal(t, 3, league.CalcPoints(0, 3))
}
