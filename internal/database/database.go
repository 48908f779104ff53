package database

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// InitDB opens the league database and brings the schema up to date.
// dbPath is a local SQLite file (or ":memory:"); when primaryURL is set the
// remote Turso database is used instead.
func InitDB(dbPath, primaryURL, authToken string) (*sql.DB, func(), error) {
	var (
		db  *sql.DB
		err error
	)
	if primaryURL == "" {
		log.Info("Initializing local SQLite database", "path", dbPath)
		db, err = sql.Open("sqlite3", dbPath)
	} else {
		log.Info("Initializing Turso database", "url", primaryURL)
		db, err = sql.Open("libsql", primaryURL+"?authToken="+authToken)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err = Migrate(db); err != nil {
		db.Close()
		return nil, nil, err
	}

	teardown := func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", "error", err)
		}
	}
	return db, teardown, nil
}

// Migrate runs the embedded schema migrations and the fact-table repair.
// It is idempotent and safe to run on every startup.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := RepairDuplicateEntries(db); err != nil {
		return fmt.Errorf("failed to repair duplicate fact rows: %w", err)
	}

	log.Info("Database schema is up to date")
	return nil
}

// RepairDuplicateEntries collapses legacy duplicate (round, player) fact rows
// into a single row by taking the component-wise maximum, then enforces the
// uniqueness constraint so new duplicates cannot appear.
func RepairDuplicateEntries(db *sql.DB) error {
	var dupes int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM (
			SELECT 1 FROM player_round GROUP BY round_id, player_id HAVING COUNT(*) > 1
		)`).Scan(&dupes)
	if err != nil {
		return err
	}

	if dupes > 0 {
		log.Warn("Collapsing duplicate player_round rows", "groups", dupes)
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		stmts := []string{
			`CREATE TEMPORARY TABLE _player_round_dedup AS
			 SELECT MIN(pr.id) AS id,
			        pr.round_id,
			        pr.player_id,
			        MAX(pr.team_round_id) AS team_round_id,
			        MAX(pr.presence) AS presence,
			        MAX(pr.wins) AS wins,
			        MAX(pr.draws) AS draws,
			        MAX(pr.points) AS points,
			        MAX(pr.yellow_cards) AS yellow_cards,
			        MAX(pr.red_cards) AS red_cards,
			        MAX(pr.photo_bonus) AS photo_bonus,
			        MAX(pr.wilted_ball) AS wilted_ball,
			        MAX(pr.individual_override) AS individual_override
			   FROM player_round pr
			  GROUP BY pr.round_id, pr.player_id`,
			`DELETE FROM player_round`,
			`INSERT INTO player_round (id, round_id, player_id, team_round_id, presence, wins, draws, points, yellow_cards, red_cards, photo_bonus, wilted_ball, individual_override)
			 SELECT id, round_id, player_id, team_round_id, presence, wins, draws, points, yellow_cards, red_cards, photo_bonus, wilted_ball, individual_override
			   FROM _player_round_dedup`,
			`DROP TABLE _player_round_dedup`,
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return err
			}
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}

	_, err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_player_round_unique ON player_round(round_id, player_id)`)
	return err
}
