package config

// Config holds all configuration for the application.
type Config struct {
	DBName string
	Port   string
	Turso  TursoConfig
}

// TursoConfig points at a remote Turso database. When PrimaryURL is empty a
// local SQLite file is used instead.
type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}
