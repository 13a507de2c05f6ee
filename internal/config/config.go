package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	DiscordToken string
	DBPath       string
	AdminPort    string
	LogLevel     string

	// Local data files the seed catalog is built from.
	SeedPath      string
	GenderPath    string
	EvolutionPath string

	// Optional upstream feeds; when set, the feeds client refreshes
	// the local gender/evolution files from these URLs.
	GenderFeedURL    string
	EvolutionFeedURL string

	CommandPrefix string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DiscordToken:     getEnv("DISCORD_TOKEN", ""),
		DBPath:           getEnv("DB_PATH", "marketpoll.db"),
		AdminPort:        getEnv("ADMIN_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		SeedPath:         getEnv("SEED_PATH", "data/market_seeds.csv"),
		GenderPath:       getEnv("GENDER_PATH", "data/golden_genders.csv"),
		EvolutionPath:    getEnv("EVOLUTION_PATH", "data/evolutions.json"),
		GenderFeedURL:    getEnv("GENDER_FEED_URL", ""),
		EvolutionFeedURL: getEnv("EVOLUTION_FEED_URL", ""),
		CommandPrefix:    getEnv("COMMAND_PREFIX", "!"),
	}

	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN is required")
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("admin_port", cfg.AdminPort).
		Str("seed_path", cfg.SeedPath).
		Str("gender_path", cfg.GenderPath).
		Str("evolution_path", cfg.EvolutionPath).
		Str("log_level", cfg.LogLevel).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
