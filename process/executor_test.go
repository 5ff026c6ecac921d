package process

import (
	"testing"
	"time"

	domainprocess "github.com/techmad220/hackerexperience-go/domain/process"
	"github.com/techmad220/hackerexperience-go/domain/server"
	"github.com/techmad220/hackerexperience-go/infrastructure/logging"
)

func newTestExecutor(perOwnerCap, perServerCap int) *Executor {
	sched := NewScheduler(30 * time.Second)
	log := logging.New("process-test", "error", "text")
	return NewExecutor(sched, perOwnerCap, perServerCap, log)
}

// TestCriticalAdmittedBeforeNormal exercises spec S2: with CPU=100 free and
// two Queued processes requiring CPU=100 — one Normal, one Critical — the
// Critical one is admitted first.
func TestCriticalAdmittedBeforeNormal(t *testing.T) {
	exec := newTestExecutor(10, 50)
	exec.RegisterServer("srv-a", server.HardwareSpec{CPU: 100, RAM: 1000, Disk: 1000, Net: 100})

	now := time.Unix(0, 0)

	normal := domainprocess.Process{
		ID: "p-normal", OwnerID: "owner-1", SourceID: "srv-a",
		Priority: domainprocess.PriorityNormal,
		ResourcesRequired: server.HardwareSpec{CPU: 100},
		TimeEstimated: time.Minute, TimeRemaining: time.Minute,
		QueuedAt: now,
	}
	critical := domainprocess.Process{
		ID: "p-critical", OwnerID: "owner-2", SourceID: "srv-a",
		Priority: domainprocess.PriorityCritical,
		ResourcesRequired: server.HardwareSpec{CPU: 100},
		TimeEstimated: time.Minute, TimeRemaining: time.Minute,
		QueuedAt: now,
	}

	exec.Submit(normal)
	exec.Submit(critical)

	exec.Tick(100*time.Millisecond, now)

	criticalStatus, ok := exec.Status("p-critical")
	if !ok || criticalStatus.State != domainprocess.StateRunning {
		t.Fatalf("expected critical process to be admitted first, got %+v ok=%v", criticalStatus, ok)
	}
	if _, ok := exec.Status("p-normal"); ok {
		t.Fatalf("normal process should not be admitted while CPU is exhausted by critical")
	}
}

// TestProcessCompletesAndReturnsResources drives enough ticks for a process
// to finish and verifies its resources return to the free pool.
func TestProcessCompletesAndReturnsResources(t *testing.T) {
	exec := newTestExecutor(10, 50)
	exec.RegisterServer("srv-a", server.HardwareSpec{CPU: 100, RAM: 1000, Disk: 1000, Net: 100})

	now := time.Unix(0, 0)
	p := domainprocess.Process{
		ID: "p-1", OwnerID: "owner-1", SourceID: "srv-a",
		Priority:          domainprocess.PriorityNormal,
		ResourcesRequired: server.HardwareSpec{CPU: 50, RAM: 50},
		TimeEstimated:     time.Second,
		TimeRemaining:     time.Second,
		QueuedAt:          now,
	}
	exec.Submit(p)

	result := exec.Tick(0, now) // admits the process
	if len(result.Completed) != 0 {
		t.Fatalf("process should not complete on the admitting tick")
	}

	now = now.Add(time.Second)
	result = exec.Tick(time.Second, now)
	if len(result.Completed) != 1 || result.Completed[0].ID != "p-1" {
		t.Fatalf("expected p-1 to complete, got %+v", result.Completed)
	}

	exec.mu.Lock()
	free := exec.serverFree["srv-a"]
	exec.mu.Unlock()
	if free.CPU != 100 || free.RAM != 1000 {
		t.Fatalf("expected full resources returned after completion, got %+v", free)
	}
}

// TestPauseFreezesProgressAcrossTicks exercises invariant 5: pausing a
// process preserves progress exactly across any number of ticks.
func TestPauseFreezesProgressAcrossTicks(t *testing.T) {
	exec := newTestExecutor(10, 50)
	exec.RegisterServer("srv-a", server.HardwareSpec{CPU: 100})

	now := time.Unix(0, 0)
	p := domainprocess.Process{
		ID: "p-1", OwnerID: "owner-1", SourceID: "srv-a",
		ResourcesRequired: server.HardwareSpec{CPU: 10},
		TimeEstimated:     10 * time.Second,
		TimeRemaining:     10 * time.Second,
		QueuedAt:          now,
	}
	exec.Submit(p)
	exec.Tick(0, now)

	now = now.Add(2 * time.Second)
	exec.Tick(2*time.Second, now)

	status, _ := exec.Status("p-1")
	progressBeforePause := status.Progress

	if err := exec.Pause("p-1"); err != nil {
		t.Fatalf("unexpected pause error: %v", err)
	}

	for i := 0; i < 5; i++ {
		now = now.Add(time.Second)
		exec.Tick(time.Second, now)
	}

	status, _ = exec.Status("p-1")
	if status.Progress != progressBeforePause {
		t.Fatalf("paused progress should not change: before=%v after=%v", progressBeforePause, status.Progress)
	}
}

// TestCancelQueuedProducesNoCompletionEffect exercises invariant 6.
func TestCancelQueuedProducesNoCompletionEffect(t *testing.T) {
	exec := newTestExecutor(1, 50) // cap of 1 so the second submission stays queued
	exec.RegisterServer("srv-a", server.HardwareSpec{CPU: 10})

	now := time.Unix(0, 0)
	first := domainprocess.Process{
		ID: "p-first", OwnerID: "owner-1", SourceID: "srv-a",
		ResourcesRequired: server.HardwareSpec{CPU: 10},
		TimeEstimated:     time.Minute, TimeRemaining: time.Minute, QueuedAt: now,
	}
	second := domainprocess.Process{
		ID: "p-second", OwnerID: "owner-1", SourceID: "srv-a",
		ResourcesRequired: server.HardwareSpec{CPU: 10},
		TimeEstimated: time.Minute, TimeRemaining: time.Minute, QueuedAt: now,
	}
	exec.Submit(first)
	exec.Submit(second)
	exec.Tick(0, now)

	if _, ok := exec.Status("p-second"); ok {
		t.Fatalf("p-second should still be queued, not running, given the owner cap of 1")
	}

	cancelled, ok := exec.CancelQueued("p-second")
	if !ok {
		t.Fatalf("expected p-second to be found and cancelled while queued")
	}
	if cancelled.State != domainprocess.StateCancelled {
		t.Fatalf("expected Cancelled state, got %v", cancelled.State)
	}
}
