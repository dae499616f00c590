package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"wealthwars/internal/game"
)

type APIConfig struct {
	Addr              string
	DatabaseURL       string
	RedisURL          string
	CatalogFile       string
	SlotCooldown      time.Duration
	ChargeRefillAfter time.Duration
	RNGSeed           int64
}

type WorkerConfig struct {
	DatabaseURL      string
	RedisURL         string
	CatalogFile      string
	LeaderboardEvery time.Duration
	RunOnce          bool
}

type CLIConfig struct {
	APIBaseURL string
	NoColor    bool
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("WW_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:              addr,
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:          strings.TrimSpace(os.Getenv("REDIS_URL")),
		CatalogFile:       strings.TrimSpace(os.Getenv("WW_CATALOG_FILE")),
		SlotCooldown:      envDurationDefault("WW_SLOT_COOLDOWN", game.DefaultSlotEditCooldown),
		ChargeRefillAfter: envDurationDefault("WW_CHARGE_REFILL_AFTER", 0),
		RNGSeed:           envIntDefault("WW_RNG_SEED", 0),
	}
	if cfg.SlotCooldown <= 0 {
		return cfg, fmt.Errorf("WW_SLOT_COOLDOWN must be > 0")
	}
	if cfg.ChargeRefillAfter < 0 {
		return cfg, fmt.Errorf("WW_CHARGE_REFILL_AFTER must be >= 0")
	}
	return cfg, nil
}

// Rules applies the configured overrides to the default engine rules.
func (c APIConfig) Rules() game.Rules {
	r := game.DefaultRules()
	r.SlotEditCooldown = c.SlotCooldown
	r.ChargeRefillAfter = c.ChargeRefillAfter
	return r
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	cfg := WorkerConfig{
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:         strings.TrimSpace(os.Getenv("REDIS_URL")),
		CatalogFile:      strings.TrimSpace(os.Getenv("WW_CATALOG_FILE")),
		LeaderboardEvery: envDurationDefault("WW_LEADERBOARD_EVERY", time.Minute),
		RunOnce:          envBoolDefault("WW_WORKER_RUN_ONCE", false),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.LeaderboardEvery <= 0 {
		return cfg, fmt.Errorf("WW_LEADERBOARD_EVERY must be > 0")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("WW_API_BASE_URL", "http://localhost:8080"), "/"),
		NoColor:    envBoolDefault("WW_NO_COLOR", false),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envIntDefault(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
