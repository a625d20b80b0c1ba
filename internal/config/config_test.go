package config

import (
	"testing"
	"time"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.DatabaseURL != "taskflow.db" || cfg.HTTPAddr != ":8080" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.ReportInterval != 5*time.Hour || !cfg.SeedDefaults || cfg.BotEnabled() {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"DATABASE_URL":          " data/tasks.db ",
		"HTTP_ADDR":             "127.0.0.1:9000",
		"TELEGRAM_TOKEN":        "token",
		"TELEGRAM_CHAT_ID":      "-100123",
		"REPORT_INTERVAL_HOURS": "1.5",
		"REPORT_AT":             "08:00",
		"SEED_DEFAULTS":         "false",
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.DatabaseURL != "data/tasks.db" || cfg.HTTPAddr != "127.0.0.1:9000" {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.BotEnabled() || cfg.TelegramChatID != -100123 {
		t.Errorf("telegram = %q %d", cfg.TelegramToken, cfg.TelegramChatID)
	}
	if cfg.ReportInterval != 90*time.Minute || cfg.ReportAt != "08:00" || cfg.SeedDefaults {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	if _, err := FromEnv(envMap(map[string]string{"TELEGRAM_CHAT_ID": "abc"})); err == nil {
		t.Error("bad chat id accepted")
	}
	if _, err := FromEnv(envMap(map[string]string{"SEED_DEFAULTS": "maybe"})); err == nil {
		t.Error("bad bool accepted")
	}
	cfg, err := FromEnv(envMap(map[string]string{"REPORT_INTERVAL_HOURS": "-3"}))
	if err != nil || cfg.ReportInterval != 5*time.Hour {
		t.Errorf("negative interval = (%v, %v), want default", cfg.ReportInterval, err)
	}
}
