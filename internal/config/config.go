package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// defaultCategories are seeded for every new user unless overridden with
// DEFAULT_CATEGORIES.
const defaultCategories = "Work,Personal,Health,Learning,Shopping"

// Config keeps runtime settings for the API server and the bot.
type Config struct {
	DatabaseDriver    string
	DatabaseURL       string
	DBLogLevel        string
	HTTPAddr          string
	JWTSecret         string
	TokenTTL          time.Duration
	TelegramToken     string
	ReportInterval    time.Duration
	ReportTime        string
	DefaultCategories []string
}

// Load reads configuration from an optional .env file, an optional config
// file at path, and environment variables, in increasing precedence.
func Load(path string) (Config, error) {
	dotenv, err := godotenv.Read()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_URL", "task_tracker.db")
	v.SetDefault("DB_LOG_LEVEL", "warn")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("REPORT_INTERVAL_HOURS", 5)
	v.SetDefault("DEFAULT_CATEGORIES", defaultCategories)
	// .env only supplies defaults so that the config file and the real
	// environment both override it.
	for key, value := range dotenv {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	cfg := Config{
		DatabaseDriver:    strings.ToLower(strings.TrimSpace(v.GetString("DATABASE_DRIVER"))),
		DatabaseURL:       strings.TrimSpace(v.GetString("DATABASE_URL")),
		DBLogLevel:        strings.ToLower(strings.TrimSpace(v.GetString("DB_LOG_LEVEL"))),
		HTTPAddr:          strings.TrimSpace(v.GetString("HTTP_ADDR")),
		JWTSecret:         strings.TrimSpace(v.GetString("JWT_SECRET")),
		TokenTTL:          v.GetDuration("TOKEN_TTL"),
		TelegramToken:     strings.TrimSpace(v.GetString("TELEGRAM_TOKEN")),
		ReportInterval:    parseInterval(strings.TrimSpace(v.GetString("REPORT_INTERVAL_HOURS"))),
		ReportTime:        strings.TrimSpace(v.GetString("REPORT_TIME")),
		DefaultCategories: splitNames(v.GetString("DEFAULT_CATEGORIES")),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "task_tracker.db"
	}

	switch cfg.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return cfg, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}

	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}

	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.ReportTime != "" {
		if _, err := time.Parse("15:04", cfg.ReportTime); err != nil {
			return cfg, fmt.Errorf("invalid REPORT_TIME %q, expected HH:MM", cfg.ReportTime)
		}
	}

	return cfg, nil
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}

// splitNames parses a comma-separated list, dropping blanks and duplicates.
func splitNames(raw string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
