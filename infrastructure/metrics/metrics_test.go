package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("test-engine", reg)

	if m == nil {
		t.Fatal("expected metrics instance, got nil")
	}
	if m.TickDuration == nil || m.ProcessesAdmitted == nil || m.AttacksTotal == nil {
		t.Fatal("expected core collectors to be non-nil")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected metrics to be registered")
	}
}

func TestRecordTickAndAdmission(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("test-engine", reg)

	m.RecordTick(5 * time.Millisecond)
	m.RecordAdmission("critical")
	m.RecordRejection("cap")
	m.RecordFinished("completed")
}

func TestSetResourceUtilizationAndQueueDepths(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("test-engine", reg)

	m.SetResourceUtilization("srv-1", "cpu", 0.5)
	m.SetQueueDepths(3, 7)
}

func TestRecordAttackAndStoreOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("test-engine", reg)

	m.RecordAttack("blocked")
	m.RecordStoreOperation("get_server", "success", time.Millisecond)
}
