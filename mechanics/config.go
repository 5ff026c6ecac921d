package mechanics

import (
	"fmt"
	"time"
)

// Config bundles every balance constant the formulas in this package are
// parameterized by (spec §4.9 "Mechanics Engine Facade (C9)"). Validate
// enforces the documented range of each constant; the engine refuses to
// start otherwise.
type Config struct {
	// success_probability
	BaseSuccessRate float64

	// experience_required
	BaseExperience    uint64
	ExperienceScaling float64 // must be > 1

	// process_time
	OptimizationFloor float64 // minimum resource-efficiency divisor (0.1 in the reference)

	// compound_interest
	DefaultInterestRate float64 // must be >= -1

	// market_price
	MarketElasticity float64

	// skill_progression
	MaxSkill             uint8
	DiminishingFactor    float64
	SkillProgressionBase uint32

	// process engine plumbing, not formulas, but validated alongside them
	// since both gate whether the facade is safe to start.
	TickInterval         time.Duration
	StarvationThreshold  time.Duration
	PerOwnerConcurrency  int
	PerServerConcurrency int
}

// DefaultConfig returns sane defaults matching the reference implementation's
// constants.
func DefaultConfig() Config {
	return Config{
		BaseSuccessRate:      0.5,
		BaseExperience:       1000,
		ExperienceScaling:    1.1,
		OptimizationFloor:    0.1,
		DefaultInterestRate:  0.05,
		MarketElasticity:     0.5,
		MaxSkill:             100,
		DiminishingFactor:    2.0,
		SkillProgressionBase: 10,
		TickInterval:         100 * time.Millisecond,
		StarvationThreshold:  30 * time.Second,
		PerOwnerConcurrency:  10,
		PerServerConcurrency: 50,
	}
}

// Validate checks every constant lies in its documented range (spec §4.9).
func (c Config) Validate() error {
	if c.BaseSuccessRate < 0 || c.BaseSuccessRate > 1 {
		return fmt.Errorf("mechanics: BaseSuccessRate must be in [0,1], got %v", c.BaseSuccessRate)
	}
	if c.ExperienceScaling <= 1.0 {
		return fmt.Errorf("mechanics: ExperienceScaling must be > 1, got %v", c.ExperienceScaling)
	}
	if c.OptimizationFloor <= 0 {
		return fmt.Errorf("mechanics: OptimizationFloor must be > 0, got %v", c.OptimizationFloor)
	}
	if c.DefaultInterestRate < -1.0 {
		return fmt.Errorf("mechanics: DefaultInterestRate must be >= -1, got %v", c.DefaultInterestRate)
	}
	if c.MarketElasticity <= 0 {
		return fmt.Errorf("mechanics: MarketElasticity must be > 0, got %v", c.MarketElasticity)
	}
	if c.MaxSkill == 0 {
		return fmt.Errorf("mechanics: MaxSkill must be > 0")
	}
	if c.DiminishingFactor <= 0 {
		return fmt.Errorf("mechanics: DiminishingFactor must be > 0, got %v", c.DiminishingFactor)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("mechanics: TickInterval must be > 0, got %v", c.TickInterval)
	}
	if c.StarvationThreshold <= 0 {
		return fmt.Errorf("mechanics: StarvationThreshold must be > 0, got %v", c.StarvationThreshold)
	}
	if c.PerOwnerConcurrency <= 0 {
		return fmt.Errorf("mechanics: PerOwnerConcurrency must be > 0, got %v", c.PerOwnerConcurrency)
	}
	if c.PerServerConcurrency <= 0 {
		return fmt.Errorf("mechanics: PerServerConcurrency must be > 0, got %v", c.PerServerConcurrency)
	}
	return nil
}

// Engine is the validated, configured facade over the C1 formulas used by
// C7/C8 (spec §4.9). It exists so the executor and engine facade never touch
// raw package-level formula functions without a validated Config behind them.
type Engine struct {
	Config Config
}

// New constructs an Engine, refusing to start on an invalid Config.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{Config: cfg}, nil
}
