package config

import (
	"chograce/internal/race"
	"chograce/internal/session"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port            string        `yaml:"port"`
	DatabaseURL     string        `yaml:"database_url"`
	MaxHits         int           `yaml:"max_hits"`
	PodiumSize      int           `yaml:"podium_size"`
	FallbackTimeout time.Duration `yaml:"fallback_timeout"`
	MoveCooldown    time.Duration `yaml:"move_cooldown"`
	FinishLedger    string        `yaml:"finish_ledger"`
	RoomTTL         time.Duration `yaml:"room_ttl"`
	LogLevel        string        `yaml:"log_level"`
}

func Default() Config {
	return Config{
		Port:            "8080",
		MaxHits:         race.DefaultMaxHits,
		PodiumSize:      race.DefaultPodiumSize,
		FallbackTimeout: race.DefaultFallbackTimeout,
		MoveCooldown:    100 * time.Millisecond,
		FinishLedger:    string(race.LedgerRetain),
		RoomTTL:         1 * time.Hour,
		LogLevel:        "info",
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (if any), then environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.MaxHits = getEnvInt("MAX_HITS", cfg.MaxHits)
	cfg.PodiumSize = getEnvInt("PODIUM_SIZE", cfg.PodiumSize)
	cfg.FallbackTimeout = getEnvDuration("FALLBACK_TIMEOUT", cfg.FallbackTimeout)
	cfg.MoveCooldown = getEnvDuration("MOVE_COOLDOWN", cfg.MoveCooldown)
	cfg.FinishLedger = getEnv("FINISH_LEDGER", cfg.FinishLedger)
	cfg.RoomTTL = getEnvDuration("ROOM_TTL", cfg.RoomTTL)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.MaxHits <= 0 {
		return fmt.Errorf("max_hits must be positive, got %d", c.MaxHits)
	}
	if c.PodiumSize <= 0 {
		return fmt.Errorf("podium_size must be positive, got %d", c.PodiumSize)
	}
	if _, err := race.ParseFinishLedger(c.FinishLedger); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

func (c Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Session returns the race settings every room in this process shares.
func (c Config) Session() session.Config {
	ledger, err := race.ParseFinishLedger(c.FinishLedger)
	if err != nil {
		ledger = race.LedgerRetain
	}
	cfg := session.DefaultConfig()
	cfg.MaxHits = c.MaxHits
	cfg.Ledger = ledger
	cfg.Policy = race.CompletionPolicy{
		PodiumSize:      c.PodiumSize,
		FallbackTimeout: c.FallbackTimeout,
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
