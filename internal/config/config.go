package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the server and bot.
type Config struct {
	DatabaseURL    string
	HTTPAddr       string
	TelegramToken  string
	TelegramChatID int64
	ReportInterval time.Duration
	ReportAt       string
	SeedDefaults   bool
}

// BotEnabled reports whether a Telegram token was configured.
func (c Config) BotEnabled() bool {
	return c.TelegramToken != ""
}

// Load reads configuration from environment variables with sane defaults.
// Values from a .env file in the working directory are applied first
// without overriding variables already set.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	cfg := Config{
		DatabaseURL:    get("DATABASE_URL"),
		HTTPAddr:       get("HTTP_ADDR"),
		TelegramToken:  get("TELEGRAM_TOKEN"),
		ReportInterval: parseInterval(get("REPORT_INTERVAL_HOURS")),
		ReportAt:       get("REPORT_AT"),
		SeedDefaults:   true,
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "taskflow.db"
	}

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	if cfg.ReportInterval == 0 {
		cfg.ReportInterval = 5 * time.Hour
	}

	if raw := get("SEED_DEFAULTS"); raw != "" {
		seed, err := strconv.ParseBool(raw)
		if err != nil {
			return cfg, fmt.Errorf("SEED_DEFAULTS: %w", err)
		}
		cfg.SeedDefaults = seed
	}

	if raw := get("TELEGRAM_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("TELEGRAM_CHAT_ID must be a number: %w", err)
		}
		cfg.TelegramChatID = id
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
