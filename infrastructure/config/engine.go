package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EngineConfig bundles every cmd/engine startup knob — service identity,
// store backend selection, cache, and the balance constants mechanics.Config
// validates — grounded on the teacher's pkg/config.Config: an env-tagged
// struct, an optional YAML file read before the environment is applied, and
// envdecode doing the final override pass over a godotenv-loaded .env.
type EngineConfig struct {
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`

	StoreBackend string `yaml:"store_backend" env:"STORE_BACKEND"` // "memory" or "postgres"
	PostgresDSN  string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`

	CacheEnabled    bool   `yaml:"cache_enabled" env:"CACHE_ENABLED"`
	RedisAddr       string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword   string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB         int    `yaml:"redis_db" env:"REDIS_DB"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds" env:"CACHE_TTL_SECONDS"`

	TickIntervalMS       int `yaml:"tick_interval_ms" env:"TICK_INTERVAL_MS"`
	StarvationThresholdS int `yaml:"starvation_threshold_seconds" env:"STARVATION_THRESHOLD_SECONDS"`
	PerOwnerConcurrency  int `yaml:"per_owner_concurrency" env:"PER_OWNER_CONCURRENCY"`
	PerServerConcurrency int `yaml:"per_server_concurrency" env:"PER_SERVER_CONCURRENCY"`

	BaseSuccessRate      float64 `yaml:"base_success_rate" env:"BASE_SUCCESS_RATE"`
	BaseExperience       uint64  `yaml:"base_experience" env:"BASE_EXPERIENCE"`
	ExperienceScaling    float64 `yaml:"experience_scaling" env:"EXPERIENCE_SCALING"`
	OptimizationFloor    float64 `yaml:"optimization_floor" env:"OPTIMIZATION_FLOOR"`
	DefaultInterestRate  float64 `yaml:"default_interest_rate" env:"DEFAULT_INTEREST_RATE"`
	MarketElasticity     float64 `yaml:"market_elasticity" env:"MARKET_ELASTICITY"`
	MaxSkill             uint8   `yaml:"max_skill" env:"MAX_SKILL"`
	DiminishingFactor    float64 `yaml:"diminishing_factor" env:"DIMINISHING_FACTOR"`
	SkillProgressionBase uint32  `yaml:"skill_progression_base" env:"SKILL_PROGRESSION_BASE"`
}

// DefaultEngineConfig returns the same balance defaults as
// mechanics.DefaultConfig, plus sane infrastructure defaults (in-memory
// store, cache off).
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		ServiceName: "hackerexperience-engine",

		StoreBackend: "memory",

		CacheEnabled:    false,
		RedisAddr:       "localhost:6379",
		CacheTTLSeconds: 30,

		TickIntervalMS:       100,
		StarvationThresholdS: 30,
		PerOwnerConcurrency:  10,
		PerServerConcurrency: 50,

		BaseSuccessRate:      0.5,
		BaseExperience:       1000,
		ExperienceScaling:    1.1,
		OptimizationFloor:    0.1,
		DefaultInterestRate:  0.05,
		MarketElasticity:     0.5,
		MaxSkill:             100,
		DiminishingFactor:    2.0,
		SkillProgressionBase: 10,
	}
}

// LoadEngineConfig loads a .env file if present, layers an optional YAML
// file named by CONFIG_FILE over the defaults, then lets envdecode apply
// environment-variable overrides on top — the same three-stage precedence
// the teacher's pkg/config.Load follows.
func LoadEngineConfig() (*EngineConfig, error) {
	_ = godotenv.Load()

	cfg := DefaultEngineConfig()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envdecode.Decode(&cfg); err != nil {
		// envdecode errors when none of the tagged fields were present in
		// the environment; treat that as "no overrides" rather than fatal,
		// the same relaxation the teacher's Load applies.
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	return &cfg, nil
}
