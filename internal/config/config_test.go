package config

import (
	"chograce/internal/race"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "DATABASE_URL", "MAX_HITS", "PODIUM_SIZE", "FALLBACK_TIMEOUT",
		"MOVE_COOLDOWN", "FINISH_LEDGER", "ROOM_TTL", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chograce.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, "")
	}
	if cfg.MaxHits != 10 {
		t.Errorf("MaxHits = %d, want %d", cfg.MaxHits, 10)
	}
	if cfg.FallbackTimeout != 5*time.Minute {
		t.Errorf("FallbackTimeout = %v, want %v", cfg.FallbackTimeout, 5*time.Minute)
	}
	if cfg.MoveCooldown != 100*time.Millisecond {
		t.Errorf("MoveCooldown = %v, want 100ms", cfg.MoveCooldown)
	}
	if cfg.FinishLedger != "retain" {
		t.Errorf("FinishLedger = %q, want retain", cfg.FinishLedger)
	}
	if cfg.Level() != log.InfoLevel {
		t.Errorf("Level = %v, want info", cfg.Level())
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("DATABASE_URL", "postgres://localhost/chograce")
	t.Setenv("MAX_HITS", "5")
	t.Setenv("FALLBACK_TIMEOUT", "90s")
	t.Setenv("FINISH_LEDGER", "scrub")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != "3000" {
		t.Errorf("Port = %q, want %q", cfg.Port, "3000")
	}
	if cfg.DatabaseURL != "postgres://localhost/chograce" {
		t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, "postgres://localhost/chograce")
	}
	if cfg.MaxHits != 5 {
		t.Errorf("MaxHits = %d, want %d", cfg.MaxHits, 5)
	}
	if cfg.FallbackTimeout != 90*time.Second {
		t.Errorf("FallbackTimeout = %v, want 90s", cfg.FallbackTimeout)
	}
	if cfg.Level() != log.DebugLevel {
		t.Errorf("Level = %v, want debug", cfg.Level())
	}

	sc := cfg.Session()
	if sc.MaxHits != 5 || sc.Ledger != race.LedgerScrub || sc.Policy.FallbackTimeout != 90*time.Second {
		t.Errorf("Session() = %+v", sc)
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_HITS", "abc")
	t.Setenv("ROOM_TTL", "soon")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.MaxHits != 10 {
		t.Errorf("MaxHits = %d, want %d (fallback)", cfg.MaxHits, 10)
	}
	if cfg.RoomTTL != time.Hour {
		t.Errorf("RoomTTL = %v, want 1h (fallback)", cfg.RoomTTL)
	}
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "port: \"9000\"\nmax_hits: 7\npodium_size: 2\nfallback_timeout: 2m\nfinish_ledger: scrub\n")
	t.Setenv("MAX_HITS", "12")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want 9000 from file", cfg.Port)
	}
	if cfg.MaxHits != 12 {
		t.Errorf("MaxHits = %d, want 12 from env", cfg.MaxHits)
	}
	if cfg.PodiumSize != 2 || cfg.FallbackTimeout != 2*time.Minute || cfg.FinishLedger != "scrub" {
		t.Errorf("file values not applied: %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should be an error")
	}
	if _, err := Load(writeFile(t, "max_hits: [1, 2]\n")); err == nil {
		t.Error("malformed file should be an error")
	}

	t.Setenv("FINISH_LEDGER", "shred")
	if _, err := Load(""); err == nil {
		t.Error("unknown ledger should be an error")
	}
	t.Setenv("FINISH_LEDGER", "")

	t.Setenv("LOG_LEVEL", "chatty")
	if _, err := Load(""); err == nil {
		t.Error("unknown log level should be an error")
	}
	t.Setenv("LOG_LEVEL", "")

	t.Setenv("MAX_HITS", "0")
	if _, err := Load(""); err == nil {
		t.Error("zero max hits should be an error")
	}
}
