// Package mechanics implements the pure game-mechanics formulas (spec §4.1
// "Formulas (C1)") and the validated configuration facade around them (spec
// §4.9 "Mechanics Engine Facade (C9)"). Every formula here is ported 1:1 from
// he-game-mechanics/src/formulas.rs::Formulas to preserve exact balance
// parity with the prototype this spec was distilled from.
package mechanics

import (
	"math"
	"time"

	domainerrors "github.com/techmad220/hackerexperience-go/infrastructure/errors"
)

const log2 = 0.6931471805599453

// SuccessProbability combines base rate, skill, difficulty, equipment and
// luck into a probability in [0,1] (spec §4.1).
//
//	clamp01( base_rate * (1 + skill_bonus(skill)) * exp(-0.1*difficulty) * clamp(equipment_bonus,0,2) * luck )
//	skill_bonus(s) = log2(s/100) for s>0
func SuccessProbability(baseRate float64, skill uint8, difficulty uint32, equipmentBonus, luck float64) (float64, error) {
	if baseRate < 0.0 || baseRate > 1.0 {
		return 0, domainerrors.FormulaError(domainerrors.FormulaInvalidParameter, "base_rate")
	}

	var skillBonus float64
	if skill > 0 {
		skillBonus = math.Log(float64(skill)/100.0) / log2
	}

	difficultyModifier := math.Exp(-0.1 * float64(difficulty))
	equipment := clamp(equipmentBonus, 0.0, 2.0)

	raw := baseRate * (1.0 + skillBonus) * difficultyModifier * equipment * luck
	return clamp(raw, 0.0, 1.0), nil
}

// ExperienceRequired returns base_exp * level^scaling; scaling must be > 1.
func ExperienceRequired(level uint32, baseExp uint64, scaling float64) (uint64, error) {
	if level == 0 {
		return 0, nil
	}
	if scaling <= 1.0 {
		return 0, domainerrors.FormulaError(domainerrors.FormulaInvalidParameter, "scaling")
	}

	raw := float64(baseExp) * math.Pow(float64(level), scaling)
	if raw > math.MaxUint64 {
		return 0, domainerrors.FormulaError(domainerrors.FormulaOverflow, "experience_required")
	}
	return uint64(raw), nil
}

// ProcessTime returns a duration >= 1 second based on complexity and resources.
//
//	efficiency = (ln(cpu/100)+1) * sqrt(ram/1000) * optimization, floored at 0.1
//	duration   = base_time * complexity / efficiency
func ProcessTime(baseTime time.Duration, complexity float64, cpu, ram float64, optimization float64) (time.Duration, error) {
	if complexity <= 0.0 {
		return 0, domainerrors.FormulaError(domainerrors.FormulaInvalidParameter, "complexity")
	}

	cpuEfficiency := math.Log(cpu/100.0) + 1.0
	ramEfficiency := math.Sqrt(ram / 1000.0)
	totalEfficiency := cpuEfficiency * ramEfficiency * optimization
	if totalEfficiency < 0.1 {
		totalEfficiency = 0.1
	}

	rawSeconds := baseTime.Seconds() * complexity / totalEfficiency
	seconds := int64(rawSeconds)
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second, nil
}

// CombatDamage returns raw combat effectiveness given attacker/defender skill
// and equipment ratios and a random variance factor.
func CombatDamage(baseDamage uint32, attackerSkill, defenderSkill uint8, attackerEquipment, defenderEquipment, randomFactor float64) (uint32, error) {
	skillRatio := (float64(attackerSkill) + 1.0) / (float64(defenderSkill) + 1.0)
	defEquip := defenderEquipment
	if defEquip < 0.1 {
		defEquip = 0.1
	}
	equipmentRatio := attackerEquipment / defEquip

	raw := float64(baseDamage) * skillRatio * equipmentRatio * randomFactor
	const maxDamage = float64(math.MaxUint32) / 2
	if raw > maxDamage {
		raw = maxDamage
	}
	if raw < 0 {
		raw = 0
	}
	return uint32(raw), nil
}

// CompoundInterest returns principal * (1+rate)^periods.
func CompoundInterest(principal int64, rate float64, periods uint32) (int64, error) {
	if rate < -1.0 {
		return 0, domainerrors.FormulaError(domainerrors.FormulaInvalidParameter, "interest_rate")
	}

	factor := math.Pow(1.0+rate, float64(periods))
	final := float64(principal) * factor
	if final > math.MaxInt64 || final < math.MinInt64 {
		return 0, domainerrors.FormulaError(domainerrors.FormulaOverflow, "compound_interest")
	}
	return int64(final), nil
}

// MarketPrice returns base_price * (demand/supply)^elasticity * volatility,
// floored at 0.01.
func MarketPrice(basePrice, supply, demand, elasticity, volatility float64) (float64, error) {
	if supply <= 0.0 || demand <= 0.0 {
		return 0, domainerrors.FormulaError(domainerrors.FormulaInvalidParameter, "supply_or_demand")
	}

	ratio := demand / supply
	modifier := math.Pow(ratio, elasticity)
	price := basePrice * modifier * volatility
	if price < 0.01 {
		price = 0.01
	}
	return price, nil
}

// fiberSpeedKmPerSec approximates propagation speed in fiber-optic cable.
const fiberSpeedKmPerSec = 200_000.0

// NetworkLatency returns base_latency + propagation_delay + processing_delay
// (all in milliseconds).
func NetworkLatency(baseLatencyMs uint32, distanceKm, infrastructureQuality, congestionFactor float64) (uint32, error) {
	propagationDelay := (distanceKm / fiberSpeedKmPerSec) * 1000.0
	infra := infrastructureQuality
	if infra < 0.1 {
		infra = 0.1
	}
	infrastructureDelay := 1.0 / infra

	total := float64(baseLatencyMs) + propagationDelay + infrastructureDelay + congestionFactor
	if total < 0 {
		total = 0
	}
	return uint32(total), nil
}

// SkillProgression returns base_gain scaled down by diminishing returns as
// current_skill approaches max_skill.
func SkillProgression(baseGain uint32, currentSkill, maxSkill uint8, diminishingFactor float64) (uint32, error) {
	if currentSkill > maxSkill {
		return 0, domainerrors.FormulaError(domainerrors.FormulaInvalidParameter, "current_skill")
	}
	if maxSkill == 0 {
		return 0, domainerrors.FormulaError(domainerrors.FormulaInvalidParameter, "max_skill")
	}

	skillRatio := float64(currentSkill) / float64(maxSkill)
	diminishing := math.Pow(1.0-skillRatio, diminishingFactor)
	gain := float64(baseGain) * diminishing
	if gain < 0 {
		gain = 0
	}
	return uint32(gain), nil
}

// MemberContribution is one member's (contribution, weight) pair for
// ClanReputation.
type MemberContribution struct {
	Contribution uint32
	Weight       float64
}

// ClanReputation sums base reputation, weighted member contributions, war
// bonus (10 per victory, -5 per defeat) and penalties, floored at zero.
func ClanReputation(baseReputation int32, contributions []MemberContribution, warVictories, warDefeats uint32, penalties int32) (int32, error) {
	var sum float64
	for _, c := range contributions {
		sum += float64(c.Contribution) * c.Weight
	}
	warBonus := int32(warVictories)*10 - int32(warDefeats)*5

	total := baseReputation + int32(sum) + warBonus - penalties
	if total < 0 {
		total = 0
	}
	return total, nil
}

// ResourceConsumption returns base_consumption scaled by efficiency and a
// load multiplier that grows linearly with load up to a 2x cap.
func ResourceConsumption(baseConsumption uint32, efficiencyFactor, currentLoad, maxLoad float64) (uint32, error) {
	if maxLoad <= 0.0 {
		return 0, domainerrors.FormulaError(domainerrors.FormulaInvalidParameter, "max_load")
	}

	loadRatio := currentLoad / maxLoad
	if loadRatio > 1.0 {
		loadRatio = 1.0
	}
	loadMultiplier := 1.0 + loadRatio

	consumption := float64(baseConsumption) * efficiencyFactor * loadMultiplier
	if consumption < 0 {
		consumption = 0
	}
	return uint32(consumption), nil
}

// NormalDistributionProbability evaluates the normal PDF at value.
func NormalDistributionProbability(value, mean, stdDev float64) (float64, error) {
	if stdDev <= 0.0 {
		return 0, domainerrors.FormulaError(domainerrors.FormulaInvalidParameter, "std_dev")
	}

	variance := stdDev * stdDev
	diff := value - mean
	exponent := -(diff * diff) / (2.0 * variance)
	probability := (1.0 / (stdDev * math.Sqrt(2.0*math.Pi))) * math.Exp(exponent)
	return probability, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
