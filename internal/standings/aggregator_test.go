package standings_test

import (
	"database/sql"
	"testing"

	"github.com/peladahub/peladahub/internal/database"
	"github.com/peladahub/peladahub/internal/importer"
	"github.com/peladahub/peladahub/internal/league"
	"github.com/peladahub/peladahub/internal/metrics"
	"github.com/peladahub/peladahub/internal/recompute"
	"github.com/peladahub/peladahub/internal/standings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	db         *sql.DB
	store      league.Store
	importer   *importer.Importer
	aggregator *standings.Aggregator
}

func setup(t *testing.T) *harness {
	t.Helper()
	db, teardown, err := database.InitDB(":memory:", "", "")
	require.NoError(t, err, "test database setup should not fail")
	t.Cleanup(teardown)

	store := league.New(db)
	return &harness{
		db:         db,
		store:      store,
		importer:   importer.New(store, recompute.New(store), metrics.NewMock()),
		aggregator: standings.New(db),
	}
}

// importRound loads one full round: team results plus player links.
func (h *harness) importRound(t *testing.T, date, season string, teams []importer.TeamResultRow, links []importer.PlayerLinkRow) {
	t.Helper()
	for i := range teams {
		teams[i].Date = date
		teams[i].Season = season
	}
	for i := range links {
		links[i].Date = date
	}
	_, err := h.importer.ImportTeamResults(teams)
	require.NoError(t, err)
	_, err = h.importer.ImportPlayerLinks(links)
	require.NoError(t, err)
}

func (h *harness) seedPlayers(t *testing.T, rows ...importer.PlayerRow) {
	t.Helper()
	_, err := h.importer.ImportPlayers(rows)
	require.NoError(t, err)
}

func rowFor(t *testing.T, rows []standings.Row, name string) standings.Row {
	t.Helper()
	for _, r := range rows {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("no standings row for %q", name)
	return standings.Row{}
}

func TestStandings_ExcludesAbsentPlayers(t *testing.T) {
	h := setup(t)
	h.seedPlayers(t,
		importer.PlayerRow{Name: "Alice"},
		importer.PlayerRow{Name: "Bob"},
		importer.PlayerRow{Name: "Never Shows"},
	)
	h.importRound(t, "02/03/2025", "2025",
		[]importer.TeamResultRow{
			{Team: "Team 1", Wins: "2", Draws: "0"},
			{Team: "Team 2", Wins: "1", Draws: "0"},
		},
		[]importer.PlayerLinkRow{
			{Player: "Alice", Team: "Team 1"},
			{Player: "Bob", Team: "Team 2"},
		})

	table, err := h.aggregator.Standings(standings.AllTime())
	require.NoError(t, err)

	require.Len(t, table.FieldPlayers, 2, "a player with zero presences must not appear")
	for _, row := range table.FieldPlayers {
		assert.NotEqual(t, "Never Shows", row.Name)
	}
	assert.Equal(t, "all", table.Window)
}

func TestStandings_RankingOrder(t *testing.T) {
	h := setup(t)
	h.seedPlayers(t,
		importer.PlayerRow{Name: "Winner"},
		importer.PlayerRow{Name: "Clean"},
		importer.PlayerRow{Name: "Carded"},
	)
	h.importRound(t, "02/03/2025", "2025",
		[]importer.TeamResultRow{
			{Team: "Team 1", Wins: "3", Draws: "0"},
			{Team: "Team 2", Wins: "1", Draws: "0"},
			{Team: "Team 3", Wins: "1", Draws: "0"},
		},
		[]importer.PlayerLinkRow{
			{Player: "Winner", Team: "Team 1"},
			{Player: "Clean", Team: "Team 2"},
			{Player: "Carded", Team: "Team 3"},
		})
	// Clean and Carded tie on every scoring column; the red card decides.
	_, err := h.importer.ImportCards([]importer.CardRow{
		{Date: "02/03/2025", Player: "Carded", Yellow: "0", Red: "1"},
	})
	require.NoError(t, err)

	table, err := h.aggregator.Standings(standings.AllTime())
	require.NoError(t, err)
	require.Len(t, table.FieldPlayers, 3)

	assert.Equal(t, "Winner", table.FieldPlayers[0].Name, "the photo bonus ranks first")
	assert.Equal(t, 1, table.FieldPlayers[0].Position)
	assert.Equal(t, "Clean", table.FieldPlayers[1].Name, "fewer red cards break the points tie")
	assert.Equal(t, 2, table.FieldPlayers[1].Position)
	assert.Equal(t, "Carded", table.FieldPlayers[2].Name)
	assert.Equal(t, 3, table.FieldPlayers[2].Position)
}

func TestStandings_PartitionsByRole(t *testing.T) {
	h := setup(t)
	h.seedPlayers(t,
		importer.PlayerRow{Name: "Gus", Position: "GK"},
		importer.PlayerRow{Name: "Fred"},
	)
	h.importRound(t, "02/03/2025", "2025",
		[]importer.TeamResultRow{
			{Team: "Team 1", Wins: "1", Draws: "0"},
			{Team: "Team 2", Wins: "2", Draws: "0"},
		},
		[]importer.PlayerLinkRow{
			{Player: "Gus", Team: "Team 1"},
			{Player: "Fred", Team: "Team 2"},
		})

	table, err := h.aggregator.Standings(standings.AllTime())
	require.NoError(t, err)

	require.Len(t, table.Goalkeepers, 1)
	require.Len(t, table.FieldPlayers, 1)
	assert.Equal(t, 1, table.Goalkeepers[0].Position, "partitions rank independently")
	assert.Equal(t, 1, table.FieldPlayers[0].Position)
	assert.Equal(t, league.RoleGoalkeeper, table.Goalkeepers[0].Role)
}

func TestStandings_Windows(t *testing.T) {
	h := setup(t)
	h.seedPlayers(t, importer.PlayerRow{Name: "Alice"})

	// Two seasons, one round each; Alice wins both.
	h.importRound(t, "02/03/2025", "2025",
		[]importer.TeamResultRow{{Team: "Team 1", Wins: "2", Draws: "1"}},
		[]importer.PlayerLinkRow{{Player: "Alice", Team: "Team 1"}})
	h.importRound(t, "01/03/2026", "2026",
		[]importer.TeamResultRow{{Team: "Team 1", Wins: "1", Draws: "0"}},
		[]importer.PlayerLinkRow{{Player: "Alice", Team: "Team 1"}})

	all, err := h.aggregator.Standings(standings.AllTime())
	require.NoError(t, err)
	assert.Equal(t, 10, rowFor(t, all.FieldPlayers, "Alice").Points)
	assert.Equal(t, 2, rowFor(t, all.FieldPlayers, "Alice").Presences)

	first, err := h.aggregator.Standings(standings.Season("2025"))
	require.NoError(t, err)
	second, err := h.aggregator.Standings(standings.Season("2026"))
	require.NoError(t, err)
	assert.Equal(t, 7, rowFor(t, first.FieldPlayers, "Alice").Points)
	assert.Equal(t, 3, rowFor(t, second.FieldPlayers, "Alice").Points)

	sum := rowFor(t, first.FieldPlayers, "Alice").Points + rowFor(t, second.FieldPlayers, "Alice").Points
	assert.Equal(t, rowFor(t, all.FieldPlayers, "Alice").Points, sum, "season partitions sum to the all-time total")

	ranged, err := h.aggregator.Standings(standings.DateRange("2025-01-01", "2025-12-31"))
	require.NoError(t, err)
	assert.Equal(t, 7, rowFor(t, ranged.FieldPlayers, "Alice").Points)

	rounds, err := h.store.AllRounds()
	require.NoError(t, err)
	upTo, err := h.aggregator.Standings(standings.UpToRound(rounds[0].ID))
	require.NoError(t, err)
	assert.Equal(t, 7, rowFor(t, upTo.FieldPlayers, "Alice").Points)
	assert.Equal(t, 1, rowFor(t, upTo.FieldPlayers, "Alice").Presences)
}

func TestStandings_Trends(t *testing.T) {
	h := setup(t)
	h.seedPlayers(t,
		importer.PlayerRow{Name: "Riser"},
		importer.PlayerRow{Name: "Faller"},
	)

	// Round 1: Faller wins. Round 2: Riser wins twice, overtaking.
	h.importRound(t, "02/03/2025", "2025",
		[]importer.TeamResultRow{
			{Team: "Team 1", Wins: "1", Draws: "0"},
			{Team: "Team 2", Wins: "0", Draws: "0"},
		},
		[]importer.PlayerLinkRow{
			{Player: "Faller", Team: "Team 1"},
			{Player: "Riser", Team: "Team 2"},
		})
	h.importRound(t, "09/03/2025", "2025",
		[]importer.TeamResultRow{
			{Team: "Team 1", Wins: "0", Draws: "0"},
			{Team: "Team 2", Wins: "3", Draws: "0"},
		},
		[]importer.PlayerLinkRow{
			{Player: "Faller", Team: "Team 1"},
			{Player: "Riser", Team: "Team 2"},
		})

	table, err := h.aggregator.Standings(standings.AllTime())
	require.NoError(t, err)
	require.Len(t, table.FieldPlayers, 2)

	riser := rowFor(t, table.FieldPlayers, "Riser")
	faller := rowFor(t, table.FieldPlayers, "Faller")
	require.NotNil(t, riser.Trend)
	require.NotNil(t, faller.Trend)
	assert.Equal(t, 1, *riser.Trend, "moving from second to first is +1")
	assert.Equal(t, -1, *faller.Trend)
}

func TestStandings_TrendsNilWithSingleRound(t *testing.T) {
	h := setup(t)
	h.seedPlayers(t, importer.PlayerRow{Name: "Alice"})
	h.importRound(t, "02/03/2025", "2025",
		[]importer.TeamResultRow{{Team: "Team 1", Wins: "1", Draws: "0"}},
		[]importer.PlayerLinkRow{{Player: "Alice", Team: "Team 1"}})

	table, err := h.aggregator.Standings(standings.AllTime())
	require.NoError(t, err)
	require.Len(t, table.FieldPlayers, 1)
	assert.Nil(t, table.FieldPlayers[0].Trend, "one round gives no previous window to compare against")
}

func TestStandings_TrendNilForNewcomer(t *testing.T) {
	h := setup(t)
	h.seedPlayers(t,
		importer.PlayerRow{Name: "Veteran"},
		importer.PlayerRow{Name: "Newcomer"},
	)
	h.importRound(t, "02/03/2025", "2025",
		[]importer.TeamResultRow{{Team: "Team 1", Wins: "1", Draws: "0"}},
		[]importer.PlayerLinkRow{{Player: "Veteran", Team: "Team 1"}})
	h.importRound(t, "09/03/2025", "2025",
		[]importer.TeamResultRow{
			{Team: "Team 1", Wins: "1", Draws: "0"},
			{Team: "Team 2", Wins: "0", Draws: "1"},
		},
		[]importer.PlayerLinkRow{
			{Player: "Veteran", Team: "Team 1"},
			{Player: "Newcomer", Team: "Team 2"},
		})

	table, err := h.aggregator.Standings(standings.AllTime())
	require.NoError(t, err)

	assert.NotNil(t, rowFor(t, table.FieldPlayers, "Veteran").Trend)
	assert.Nil(t, rowFor(t, table.FieldPlayers, "Newcomer").Trend, "a player absent from the previous window has no trend")
}

func TestStandings_UsesNickname(t *testing.T) {
	h := setup(t)
	h.seedPlayers(t, importer.PlayerRow{Name: "Alice Johnson", Nickname: "Ali"})
	h.importRound(t, "02/03/2025", "2025",
		[]importer.TeamResultRow{{Team: "Team 1", Wins: "1", Draws: "0"}},
		[]importer.PlayerLinkRow{{Player: "Ali", Team: "Team 1"}})

	table, err := h.aggregator.Standings(standings.AllTime())
	require.NoError(t, err)
	require.Len(t, table.FieldPlayers, 1)
	assert.Equal(t, "Ali", table.FieldPlayers[0].Name)
}

func TestSnapshotRoundtrip(t *testing.T) {
	h := setup(t)
	h.seedPlayers(t, importer.PlayerRow{Name: "Alice"})
	h.importRound(t, "02/03/2025", "2025",
		[]importer.TeamResultRow{{Team: "Team 1", Wins: "2", Draws: "0"}},
		[]importer.PlayerLinkRow{{Player: "Alice", Team: "Team 1"}})

	snapshots := standings.NewSnapshotStore(h.db)

	_, found, err := snapshots.Load("all")
	require.NoError(t, err)
	assert.False(t, found, "loading a missing snapshot is not an error")

	table, err := h.aggregator.Standings(standings.AllTime())
	require.NoError(t, err)
	require.NoError(t, snapshots.Save(table))

	loaded, found, err := snapshots.Load("all")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, table, loaded)

	// Saving again under the same window overwrites in place.
	require.NoError(t, snapshots.Save(table))
	_, found, err = snapshots.Load("all")
	require.NoError(t, err)
	assert.True(t, found)
}
