package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("BOT_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("BOT_USERSBOX_TOKEN", "secret")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.FreeAttempts != 1 {
		t.Fatalf("FreeAttempts = %d, want 1", cfg.FreeAttempts)
	}
	if cfg.Usersbox.BaseURL != "https://api.usersbox.ru/v1" {
		t.Fatalf("Usersbox.BaseURL = %q", cfg.Usersbox.BaseURL)
	}
	if cfg.Usersbox.Timeout != 15*time.Second {
		t.Fatalf("Usersbox.Timeout = %v", cfg.Usersbox.Timeout)
	}
	if cfg.DB.Driver != "postgres" {
		t.Fatalf("DB.Driver = %q", cfg.DB.Driver)
	}
	if cfg.HTTP.Port != "8001" {
		t.Fatalf("HTTP.Port = %q", cfg.HTTP.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("BOT_DB_DRIVER", "sqlite")
	t.Setenv("BOT_FREE_ATTEMPTS", "3")
	t.Setenv("BOT_HTTP_ALLOWED_CIDRS", "149.154.160.0/20,91.108.4.0/22")
	t.Setenv("BOT_REDIS_ENABLED", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.DB.Driver != "sqlite" || cfg.FreeAttempts != 3 || !cfg.Redis.Enabled {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if len(cfg.HTTP.AllowedCIDRs) != 2 {
		t.Fatalf("AllowedCIDRs = %v", cfg.HTTP.AllowedCIDRs)
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := &Config{DB: DBConfig{Driver: "mysql"}, FreeAttempts: -1}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	for _, want := range []string{"BOT_TELEGRAM_TOKEN", "BOT_USERSBOX_TOKEN", "BOT_FREE_ATTEMPTS", "mysql"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}
