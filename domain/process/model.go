// Package process defines the Process aggregate (spec §3 "Process") and its
// completion-effect sum type. Per spec §9, process "subclasses" (Download,
// Upload, Crack, ...) in the source this was distilled from are replaced
// here by a single Process struct carrying a tagged CompletionEffect,
// dispatched by package effects at completion time rather than through
// virtual methods bound at construction.
package process

import (
	"time"

	"github.com/techmad220/hackerexperience-go/domain/server"
)

// ID identifies a process.
type ID string

// Kind names what kind of operation a process performs.
type Kind string

const (
	KindFileDownload    Kind = "file_download"
	KindFileUpload      Kind = "file_upload"
	KindInstall         Kind = "install"
	KindPasswordCrack   Kind = "password_crack"
	KindDeleteLog       Kind = "delete_log"
	KindHideLog         Kind = "hide_log"
	KindDDoS            Kind = "ddos"
	KindBankTransfer    Kind = "bank_transfer"
	KindMissionComplete Kind = "mission_complete"
	KindWarEnd          Kind = "war_end"
)

// Priority is the scheduling priority band (spec §4.6). Larger values sort
// first in the ready queue.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// Bump returns p raised by one band, capped at Critical — used by the
// scheduler's starvation control.
func (p Priority) Bump() Priority {
	if p >= PriorityCritical {
		return PriorityCritical
	}
	return p + 1
}

// State is the process lifecycle state (spec §3).
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// CompletionEffect names the effect to apply when a process completes
// successfully, plus whatever data effects.Applier needs at that time. It is
// the sum-type replacement for virtual-dispatch process subclasses (spec §9).
type CompletionEffect struct {
	Kind Kind
	// Generic key/value payload the applier interprets per Kind, e.g.
	// {"file_id": "...", "required_version": "2"}.
	Data map[string]string
}

// Process is a single long-running operation (spec §3).
type Process struct {
	ID         ID
	Kind       Kind
	OwnerID    string // player id
	SourceID   server.ID
	TargetID   server.ID // optional; zero value means no target
	TargetFile string    // optional file/log reference

	Priority Priority
	State    State

	ResourcesRequired  server.HardwareSpec
	ResourcesAllocated server.HardwareSpec

	Progress       float64 // [0.0, 1.0], monotonically non-decreasing while Running
	TimeStarted    time.Time
	TimeEstimated  time.Duration
	TimeRemaining  time.Duration
	QueuedAt       time.Time
	CompletionTime time.Time // set once State == Completed

	Effect CompletionEffect
	Data   map[string]string

	FailureReason string
}

// IsActive reports whether the process still occupies scheduler/executor
// bookkeeping (Queued or Running).
func (p Process) IsActive() bool {
	return p.State == StateQueued || p.State == StateRunning
}

// DedupKey identifies the (owner, kind, target, target-file, locality) tuple
// spec §3 limits to at most one Running-or-Queued process at a time.
type DedupKey struct {
	OwnerID    string
	Kind       Kind
	TargetID   server.ID
	TargetFile string
	SourceID   server.ID
}

// Key returns the dedup key for p.
func (p Process) Key() DedupKey {
	return DedupKey{
		OwnerID:    p.OwnerID,
		Kind:       p.Kind,
		TargetID:   p.TargetID,
		TargetFile: p.TargetFile,
		SourceID:   p.SourceID,
	}
}
