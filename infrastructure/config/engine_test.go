package config

import "testing"

func TestDefaultEngineConfigHasSaneDefaults(t *testing.T) {
	cfg := DefaultEngineConfig()
	if cfg.StoreBackend != "memory" {
		t.Errorf("default StoreBackend = %q, want %q", cfg.StoreBackend, "memory")
	}
	if cfg.CacheEnabled {
		t.Error("cache should default to disabled")
	}
	if cfg.TickIntervalMS <= 0 {
		t.Errorf("TickIntervalMS = %v, want > 0", cfg.TickIntervalMS)
	}
}

func TestLoadEngineConfigAppliesEnvOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://example/db")
	t.Setenv("CACHE_ENABLED", "true")
	t.Setenv("MAX_SKILL", "200")

	cfg, err := LoadEngineConfig()
	if err != nil {
		t.Fatalf("LoadEngineConfig() error = %v", err)
	}
	if cfg.StoreBackend != "postgres" {
		t.Errorf("StoreBackend = %q, want %q", cfg.StoreBackend, "postgres")
	}
	if cfg.PostgresDSN != "postgres://example/db" {
		t.Errorf("PostgresDSN = %q, want the env override", cfg.PostgresDSN)
	}
	if !cfg.CacheEnabled {
		t.Error("CacheEnabled should be overridden to true")
	}
	if cfg.MaxSkill != 200 {
		t.Errorf("MaxSkill = %v, want 200", cfg.MaxSkill)
	}
	// Anything not overridden keeps its default.
	if cfg.ServiceName != DefaultEngineConfig().ServiceName {
		t.Errorf("ServiceName = %q, want unchanged default %q", cfg.ServiceName, DefaultEngineConfig().ServiceName)
	}
}

func TestLoadEngineConfigRejectsUnreadableConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", "/nonexistent/path/to/config.yaml")
	if _, err := LoadEngineConfig(); err == nil {
		t.Error("expected an error for an unreadable CONFIG_FILE")
	}
}
