package defense

import (
	"math/rand"
	"testing"

	"github.com/techmad220/hackerexperience-go/domain/server"
)

func TestEvaluateFirewallMonotonicInVersion(t *testing.T) {
	hw := server.HardwareSpec{CPU: 500, RAM: 1000, Disk: 100, Net: 10}
	low := EvaluateFirewall(hw, 1, 0.8, 0.8)
	high := EvaluateFirewall(hw, 5, 0.8, 0.8)

	if high.NumericValue <= low.NumericValue {
		t.Fatalf("expected higher firewall version to raise numeric value: low=%v high=%v", low.NumericValue, high.NumericValue)
	}
}

func TestEvaluateFirewallMonotonicInCoverage(t *testing.T) {
	hw := server.HardwareSpec{CPU: 500, RAM: 1000, Disk: 100, Net: 10}
	narrow := EvaluateFirewall(hw, 3, 0.8, 0.2)
	broad := EvaluateFirewall(hw, 3, 0.8, 0.9)

	if broad.NumericValue <= narrow.NumericValue {
		t.Fatalf("expected broader rule coverage to raise numeric value: narrow=%v broad=%v", narrow.NumericValue, broad.NumericValue)
	}
}

func TestEvaluateIDSDetectionRateInRange(t *testing.T) {
	hw := server.HardwareSpec{CPU: 500, RAM: 1000, Disk: 100, Net: 10}
	report := EvaluateIDS(hw, 4, 0.7, 0.9)
	if report.DetectionRate < 0 || report.DetectionRate > 1 {
		t.Fatalf("detection rate out of [0,1]: %v", report.DetectionRate)
	}
	if report.ResponseTimeSecs <= 0 {
		t.Fatalf("response time must be positive, got %v", report.ResponseTimeSecs)
	}
}

func TestAnalyzeAttackAttemptDeterministicWithSeededRNG(t *testing.T) {
	firewall := FirewallStrength{NumericValue: 10}
	ids := IDSReport{DetectionRate: 0.9}
	method := Method{Name: "exploit", Penetration: 1}

	r1 := rand.New(rand.NewSource(42))
	r2 := rand.New(rand.NewSource(42))

	out1 := AnalyzeAttackAttempt(method, firewall, ids, 50, 10, r1)
	out2 := AnalyzeAttackAttempt(method, firewall, ids, 50, 10, r2)

	if out1.Blocked != out2.Blocked || out1.Detected != out2.Detected || out1.ThreatLevel != out2.ThreatLevel {
		t.Fatalf("same seed should produce identical decisions: %+v vs %+v", out1, out2)
	}
}

func TestAnalyzeAttackAttemptAlwaysBlockedWhenPenetrationLow(t *testing.T) {
	firewall := FirewallStrength{NumericValue: 1000}
	ids := IDSReport{DetectionRate: 0}
	method := Method{Name: "brute_force", Penetration: 0.001}

	out := AnalyzeAttackAttempt(method, firewall, ids, 10, 1, rand.New(rand.NewSource(1)))
	if !out.Blocked {
		t.Fatalf("overwhelming firewall strength should block a weak attempt")
	}
}

func TestAnalyzeAttackAttemptDetectedAlwaysLogsEntry(t *testing.T) {
	firewall := FirewallStrength{NumericValue: 1}
	ids := IDSReport{DetectionRate: 1.0}
	method := Method{Name: "exploit", Penetration: 100}

	out := AnalyzeAttackAttempt(method, firewall, ids, 90, 9999, rand.New(rand.NewSource(7)))
	if !out.Detected {
		t.Fatalf("detection rate of 1.0 with long elapsed time should detect")
	}
	if !out.HasAction(ActionLogEntry) {
		t.Fatalf("a detected attempt must always include ActionLogEntry")
	}
}
