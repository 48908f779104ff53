package league

// Store defines the persistent operations over the league's relational data.
// Every core engine (importers, recompute, standings) receives a Store
// explicitly instead of reaching for ambient state.
type Store interface {
	// Settings
	GetSetting(key, def string) (string, error)
	SetSetting(key, value string) error
	SeedDefaultSettings() error

	// Players
	UpsertPlayer(p Player) error
	FindPlayerByName(name string) (*Player, error)
	GetPlayer(id int64) (*Player, error)
	AllPlayers() ([]Player, error)
	DeactivatePlayer(id int64) error
	FillBlankNicknames() error

	// Rounds
	ResolveOrCreateRound(dateISO, season string, fourGoalkeepers bool) (int64, bool, error)
	GetRound(id int64) (*Round, error)
	AllRounds() ([]Round, error)
	SetRoundLabel(id int64, label string) error
	CloseAllRounds() error
	DeleteRound(id int64) error

	// Teams in round
	ResolveOrCreateTeam(roundID int64, rawLabel string) (int64, error)
	InsertTeam(roundID int64, name string, wins, draws int) (int64, error)
	TeamsForRound(roundID int64) ([]TeamRound, error)
	SetTeamPoints(teamID int64, points int) error
	DeleteTeamsForRound(roundID int64) error
	DeleteTeam(roundID, teamID int64) error

	// Fact rows
	EntriesForRound(roundID int64) ([]Entry, error)
	EntryTeamLink(roundID, playerID int64) (*int64, error)
	MarkAttendance(roundID, playerID int64) error
	SetEntryTeamLink(roundID, playerID, teamRoundID int64) error
	SetEntryCards(roundID, playerID int64, yellow, red int) error
	SetEntryOverride(roundID, playerID int64, teamRoundID *int64, wins, draws, points int) error
	ApplyTeamScore(entryID int64, wins, draws, points int) error
	ClearTeamLinks(roundID int64) error
	ClearCards(roundID int64) error
	ClearGoalkeeperOverrides(roundID int64) error
	ResetAwards(roundID int64) error
	SetPhotoBonus(roundID, teamRoundID int64) error
	SetWiltedBall(roundID, teamRoundID int64) error
	DeleteEntriesForRound(roundID int64) error
}
