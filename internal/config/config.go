package config

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables and .env file.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}

	getEnv := func(key, def string) string {
		if value, ok := os.LookupEnv(key); ok && value != "" {
			return value
		}
		return def
	}

	return Config{
		DBName: getEnv("DB_NAME", "league.db"),
		Port:   getEnv("PORT", "8080"),
		Turso: TursoConfig{
			PrimaryURL: getEnv("TURSO_PRIMARY_URL", ""),
			AuthToken:  getEnv("TURSO_AUTH_TOKEN", ""),
		},
	}
}
