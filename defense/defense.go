// Package defense implements the Defense Engine (spec §4.5 "Defense Engine
// (C5)"): firewall strength, IDS effectiveness and the attack-attempt
// decision function, grounded on
// he-helix-security/src/intrusion.rs::IntrusionDetector's threat-scoring and
// ThreatLevel bucketing, adapted from a request-classifier into the
// spec's deterministic (blocked, detected, threat_level, actions) function
// over a hack attempt against a target server's firewall/IDS.
package defense

import (
	"math"
	"math/rand"

	"github.com/techmad220/hackerexperience-go/domain/server"
)

// FirewallLevel buckets a numeric firewall strength into a named band.
type FirewallLevel string

const (
	FirewallNone     FirewallLevel = "none"
	FirewallLow      FirewallLevel = "low"
	FirewallModerate FirewallLevel = "moderate"
	FirewallHigh     FirewallLevel = "high"
	FirewallMaximum  FirewallLevel = "maximum"
)

// FirewallStrength is the result of evaluating a target's firewall posture
// (spec §4.5).
type FirewallStrength struct {
	Level         FirewallLevel
	NumericValue  float64
	BlockingRules int
}

// EvaluateFirewall computes firewall strength from the target's effective
// hardware, its installed firewall software version, and the quality/
// coverage of its configured rules. Monotonic in every input (spec §4.5).
func EvaluateFirewall(hw server.HardwareSpec, firewallVersion int, ruleQuality, ruleCoverage float64) FirewallStrength {
	hwFactor := 1.0 + math.Log1p(hw.CPU/100.0)
	swEffectiveness := 1.0 + float64(firewallVersion)*0.15

	quality := clamp01(ruleQuality)
	coverage := clamp01(ruleCoverage)

	numeric := hwFactor * swEffectiveness * quality * coverage

	return FirewallStrength{
		Level:         firewallLevelFor(numeric),
		NumericValue:  numeric,
		BlockingRules: int(coverage * 100),
	}
}

func firewallLevelFor(numeric float64) FirewallLevel {
	switch {
	case numeric >= 8:
		return FirewallMaximum
	case numeric >= 5:
		return FirewallHigh
	case numeric >= 2.5:
		return FirewallModerate
	case numeric > 0:
		return FirewallLow
	default:
		return FirewallNone
	}
}

// IDSReport is the result of evaluating a target's intrusion detection
// posture (spec §4.5).
type IDSReport struct {
	DetectionRate     float64 // in [0,1]
	ResponseTimeSecs  float64
}

// EvaluateIDS computes detection rate and response time from the target's
// effective hardware, its IDS software version, network topology complexity
// and uptime fraction. Detection rate rises with accuracy/rules/topology/
// uptime with diminishing returns; response time falls with hardware and
// complexity (spec §4.5).
func EvaluateIDS(hw server.HardwareSpec, idsVersion int, topologyComplexity, uptimeFraction float64) IDSReport {
	accuracy := 1.0 - math.Exp(-float64(idsVersion)*0.3)
	topology := clamp01(topologyComplexity)
	uptime := clamp01(uptimeFraction)

	raw := accuracy * (0.5 + 0.3*topology + 0.2*uptime)
	detectionRate := clamp01(1.0 - math.Exp(-3*raw))

	cpuFactor := 1.0 + hw.CPU/200.0
	responseTime := 5.0 / (cpuFactor * (1.0 + topology))
	if responseTime < 0.1 {
		responseTime = 0.1
	}

	return IDSReport{DetectionRate: detectionRate, ResponseTimeSecs: responseTime}
}

// Method is an attack technique's profile against a target's defenses.
type Method struct {
	Name        string
	Penetration float64 // attacking strength
}

// resistanceCoeff scales how effectively the firewall resists a given attack
// method; an unlisted method gets the neutral coefficient.
func resistanceCoeff(method Method) float64 {
	switch method.Name {
	case "brute_force":
		return 0.8
	case "exploit":
		return 1.2
	case "ddos":
		return 0.5
	default:
		return 1.0
	}
}

// stealthPenalty models detection odds falling off as an attack lingers
// (elapsed in seconds): the longer an attempt runs undetected, the more
// likely a later sample still catches it, up to a ceiling of 1.0.
func stealthPenalty(elapsedSeconds float64) float64 {
	return clamp01(1.0 - math.Exp(-elapsedSeconds/30.0))
}

// ThreatLevel buckets an attack attempt's severity, grounded on
// intrusion.rs::ThreatLevel.
type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "low"
	ThreatMedium   ThreatLevel = "medium"
	ThreatHigh     ThreatLevel = "high"
	ThreatCritical ThreatLevel = "critical"
)

// Action is one response the defense engine may take against a detected or
// blocked attempt.
type Action string

const (
	ActionLogEntry     Action = "log_entry"
	ActionAlertOwner   Action = "alert_owner"
	ActionAutoBan      Action = "auto_ban"
	ActionRevokeSession Action = "revoke_session"
)

// AttackOutcome is the result of AnalyzeAttackAttempt (spec §4.5).
type AttackOutcome struct {
	Blocked     bool
	Detected    bool
	ThreatLevel ThreatLevel
	Actions     map[Action]bool
}

// HasAction reports whether a is in the outcome's action set.
func (o AttackOutcome) HasAction(a Action) bool { return o.Actions[a] }

// AnalyzeAttackAttempt is the deterministic decision function of spec §4.5.
// rng is consulted for the detection roll; pass nil in production to use a
// process-seeded source, or a seeded *rand.Rand in tests for reproducible
// results (spec §9 Open Question, resolved in favor of injectable RNG).
func AnalyzeAttackAttempt(method Method, firewall FirewallStrength, ids IDSReport, attackerSkill uint8, elapsedSeconds float64, rng *rand.Rand) AttackOutcome {
	if rng == nil {
		rng = rand.New(rand.NewSource(defaultSeed()))
	}

	blocked := method.Penetration < firewall.NumericValue*resistanceCoeff(method)
	detected := rng.Float64() < ids.DetectionRate*stealthPenalty(elapsedSeconds)

	level := threatLevelFor(blocked, detected, attackerSkill, elapsedSeconds)

	actions := make(map[Action]bool)
	if detected {
		actions[ActionLogEntry] = true
	}
	switch level {
	case ThreatCritical:
		actions[ActionLogEntry] = true
		actions[ActionAlertOwner] = true
		actions[ActionAutoBan] = true
		actions[ActionRevokeSession] = true
	case ThreatHigh:
		actions[ActionLogEntry] = true
		actions[ActionAlertOwner] = true
		if detected {
			actions[ActionAutoBan] = true
		}
	case ThreatMedium:
		if detected {
			actions[ActionLogEntry] = true
			actions[ActionAlertOwner] = true
		}
	case ThreatLow:
		// at most LogEntry, already set above if detected.
	}

	return AttackOutcome{Blocked: blocked, Detected: detected, ThreatLevel: level, Actions: actions}
}

func threatLevelFor(blocked, detected bool, attackerSkill uint8, elapsedSeconds float64) ThreatLevel {
	switch {
	case detected && !blocked && attackerSkill >= 80:
		return ThreatCritical
	case detected && !blocked:
		return ThreatHigh
	case detected && blocked:
		return ThreatMedium
	case !detected && elapsedSeconds > 120:
		return ThreatMedium
	default:
		return ThreatLow
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// defaultSeed avoids depending on wall-clock time at package scope; callers
// that care about production randomness quality should inject their own
// *rand.Rand seeded from a real entropy source.
func defaultSeed() int64 { return 0x5DEECE66D }
