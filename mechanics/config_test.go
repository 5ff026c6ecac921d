package mechanics

import "testing"

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig() should validate, got %v", err)
	}
}

func TestConfigValidateRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(c *Config)
	}{
		{"base success rate over 1", func(c *Config) { c.BaseSuccessRate = 1.5 }},
		{"base success rate negative", func(c *Config) { c.BaseSuccessRate = -0.1 }},
		{"experience scaling not > 1", func(c *Config) { c.ExperienceScaling = 1.0 }},
		{"optimization floor zero", func(c *Config) { c.OptimizationFloor = 0 }},
		{"interest rate below -1", func(c *Config) { c.DefaultInterestRate = -2.0 }},
		{"market elasticity zero", func(c *Config) { c.MarketElasticity = 0 }},
		{"max skill zero", func(c *Config) { c.MaxSkill = 0 }},
		{"diminishing factor zero", func(c *Config) { c.DiminishingFactor = 0 }},
		{"tick interval zero", func(c *Config) { c.TickInterval = 0 }},
		{"starvation threshold zero", func(c *Config) { c.StarvationThreshold = 0 }},
		{"per owner concurrency zero", func(c *Config) { c.PerOwnerConcurrency = 0 }},
		{"per server concurrency zero", func(c *Config) { c.PerServerConcurrency = 0 }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := DefaultConfig()
			c.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected Validate to reject out-of-range config")
			}
		})
	}
}

func TestNewRefusesInvalidConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New should refuse a zero-value Config")
	}
	eng, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New(DefaultConfig()) should succeed, got %v", err)
	}
	if eng.Config != DefaultConfig() {
		t.Error("Engine.Config should hold the config it was constructed with")
	}
}
