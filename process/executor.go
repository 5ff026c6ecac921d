// Package process implements the Process Scheduler (C6) and Process
// Executor (C7) of spec §4.6/§4.7, grounded on
// he-game-mechanics/src/engine/process_engine.rs::{ProcessScheduler,
// ProcessExecutor, ProcessEngine}. The Rust prototype fuses scheduling,
// execution and resource bookkeeping into one ProcessEngine; this package
// keeps Scheduler and Executor as two collaborating types (matching the
// spec's C6/C7 split) with Executor as the tick-driving owner of both.
package process

import (
	"sort"
	"sync"
	"time"

	domainprocess "github.com/techmad220/hackerexperience-go/domain/process"
	"github.com/techmad220/hackerexperience-go/domain/server"
	domainerrors "github.com/techmad220/hackerexperience-go/infrastructure/errors"
	"github.com/techmad220/hackerexperience-go/infrastructure/logging"
	"github.com/techmad220/hackerexperience-go/resources"
)

// rejectKind distinguishes why an admission attempt failed, since a
// cap-exceeded process is retried next tick while a resource-exhausted one
// parks until a resource return promotes it (spec §4.6).
type rejectKind int

const (
	rejectNone rejectKind = iota
	rejectCap
	rejectResources
)

// Executor drives the tick loop of spec §4.7, owning the running set, the
// free-resource pool per server, and the Scheduler's two sub-queues.
type Executor struct {
	mu sync.Mutex

	scheduler *Scheduler
	running   map[domainprocess.ID]*domainprocess.Process

	pendingCancel map[domainprocess.ID]bool

	serverFree    map[server.ID]server.HardwareSpec
	serverCeiling map[server.ID]server.HardwareSpec

	ownerRunning  map[string]int
	serverRunning map[server.ID]int

	perOwnerCap  int
	perServerCap int

	submitBuf []domainprocess.Process

	log *logging.Logger
}

// NewExecutor constructs an Executor bound to scheduler, with the given
// per-owner and per-server concurrency caps (spec §4.6 "Admission policy").
func NewExecutor(scheduler *Scheduler, perOwnerCap, perServerCap int, log *logging.Logger) *Executor {
	return &Executor{
		scheduler:     scheduler,
		running:       make(map[domainprocess.ID]*domainprocess.Process),
		pendingCancel: make(map[domainprocess.ID]bool),
		serverFree:    make(map[server.ID]server.HardwareSpec),
		serverCeiling: make(map[server.ID]server.HardwareSpec),
		ownerRunning:  make(map[string]int),
		serverRunning: make(map[server.ID]int),
		perOwnerCap:   perOwnerCap,
		perServerCap:  perServerCap,
		log:           log,
	}
}

// RegisterServer informs the executor of a server's current effective
// hardware. The first registration seeds the free pool at full capacity;
// later calls only refresh the ceiling new Deallocate calls saturate at,
// since the free pool itself is owned exclusively by the executor once a
// server is known to it (spec §5 "Shared-resource policy").
func (e *Executor) RegisterServer(id server.ID, effective server.HardwareSpec) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.serverCeiling[id] = effective
	if _, ok := e.serverFree[id]; !ok {
		e.serverFree[id] = effective
	}
}

// Submit enqueues p into the submit buffer, drained at the start of the
// next Tick (spec §4.7 "Suspension points"). Safe for concurrent callers.
func (e *Executor) Submit(p domainprocess.Process) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.submitBuf = append(e.submitBuf, p)
}

// Pause transitions a Running process to Paused in place; resources remain
// allocated (spec §4.7 step 3 — "by design to prevent gaming").
func (e *Executor) Pause(id domainprocess.ID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.running[id]
	if !ok {
		return domainerrors.NotFound("process", string(id))
	}
	if p.State != domainprocess.StateRunning {
		return domainerrors.InvalidState(string(domainprocess.StateRunning), string(p.State))
	}
	p.State = domainprocess.StatePaused
	return nil
}

// Resume transitions a Paused process back to Running.
func (e *Executor) Resume(id domainprocess.ID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.running[id]
	if !ok {
		return domainerrors.NotFound("process", string(id))
	}
	if p.State != domainprocess.StatePaused {
		return domainerrors.InvalidState(string(domainprocess.StatePaused), string(p.State))
	}
	p.State = domainprocess.StateRunning
	return nil
}

// CancelRunning marks a Running or Paused process for cancellation at the
// next tick boundary (spec §5 "Running→Cancelled at the next tick
// boundary"). Returns NotFound if id is not currently in the running set.
func (e *Executor) CancelRunning(id domainprocess.ID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.running[id]; !ok {
		return domainerrors.NotFound("process", string(id))
	}
	e.pendingCancel[id] = true
	return nil
}

// CancelQueued removes a Queued process from the scheduler immediately
// (spec §5 "Queued→Cancelled immediately"), returning it for caller
// bookkeeping (e.g. worldstore status update). No completion effect is
// ever produced for a queued cancellation.
func (e *Executor) CancelQueued(id domainprocess.ID) (domainprocess.Process, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.scheduler.CancelQueued(id)
	if ok {
		p.State = domainprocess.StateCancelled
	}
	return p, ok
}

// Status returns the current state of a running-or-paused process.
func (e *Executor) Status(id domainprocess.ID) (domainprocess.Process, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.running[id]
	if !ok {
		return domainprocess.Process{}, false
	}
	return *p, true
}

// RunningCount returns how many processes are currently occupying the
// running set (Running or Paused; both hold resources and a concurrency
// slot).
func (e *Executor) RunningCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.running)
}

// QueuedCount returns how many processes currently sit in the scheduler's
// ready+waiting queues, for metrics/observability callers.
func (e *Executor) QueuedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scheduler.Len()
}

// TickResult is the observable outcome of one Tick call.
type TickResult struct {
	// Completed holds processes that finished this tick, in ascending
	// (completion time, id) order (spec §4.7 "Ordering guarantees").
	Completed []domainprocess.Process
	// Cancelled holds processes cancelled at this tick boundary (were
	// Running or Paused when CancelRunning was called).
	Cancelled []domainprocess.Process
}

// Tick advances the simulation by elapsed, anchored at now (spec §4.7
// "Tick loop"). It is the sole mutator of running-process state and the
// free-resource pools; callers must serialize calls to Tick (the spec's
// "single logical tick loop").
func (e *Executor) Tick(elapsed time.Duration, now time.Time) TickResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.drainSubmitBuffer(now)

	cancelled := e.processPendingCancels(now)
	completed := e.advanceRunning(elapsed, now)

	e.scheduler.BumpStarved(now)
	e.scheduler.PromoteWaiting()

	e.admit(now)

	return TickResult{Completed: completed, Cancelled: cancelled}
}

func (e *Executor) drainSubmitBuffer(now time.Time) {
	buf := e.submitBuf
	e.submitBuf = nil
	for _, p := range buf {
		if p.QueuedAt.IsZero() {
			p.QueuedAt = now
		}
		p.State = domainprocess.StateQueued
		e.scheduler.Enqueue(p, p.QueuedAt)
	}
}

func (e *Executor) processPendingCancels(now time.Time) []domainprocess.Process {
	if len(e.pendingCancel) == 0 {
		return nil
	}
	var cancelled []domainprocess.Process
	for id := range e.pendingCancel {
		p, ok := e.running[id]
		if !ok {
			continue
		}
		e.releaseResources(*p)
		p.State = domainprocess.StateCancelled
		cancelled = append(cancelled, *p)
		delete(e.running, id)
	}
	e.pendingCancel = make(map[domainprocess.ID]bool)
	return cancelled
}

func (e *Executor) advanceRunning(elapsed time.Duration, now time.Time) []domainprocess.Process {
	var justCompletedIDs []domainprocess.ID

	for id, p := range e.running {
		if p.State != domainprocess.StateRunning {
			continue
		}

		if p.TimeEstimated > 0 {
			p.Progress += float64(elapsed) / float64(p.TimeEstimated)
		}
		if p.Progress > 1.0 {
			p.Progress = 1.0
		}
		p.TimeRemaining -= elapsed
		if p.TimeRemaining < 0 {
			p.TimeRemaining = 0
		}

		if p.Progress >= 1.0 || p.TimeRemaining == 0 {
			p.State = domainprocess.StateCompleted
			p.Progress = 1.0
			p.CompletionTime = now
			justCompletedIDs = append(justCompletedIDs, id)
		}
	}

	completed := make([]domainprocess.Process, 0, len(justCompletedIDs))
	for _, id := range justCompletedIDs {
		p := e.running[id]
		e.releaseResources(*p)
		completed = append(completed, *p)
		delete(e.running, id)
	}

	sort.Slice(completed, func(i, j int) bool {
		if !completed[i].CompletionTime.Equal(completed[j].CompletionTime) {
			return completed[i].CompletionTime.Before(completed[j].CompletionTime)
		}
		return completed[i].ID < completed[j].ID
	})

	return completed
}

func (e *Executor) releaseResources(p domainprocess.Process) {
	free := e.serverFree[p.SourceID]
	ceiling := e.serverCeiling[p.SourceID]
	resources.Deallocate(e.log, &free, p.ResourcesAllocated, ceiling)
	e.serverFree[p.SourceID] = free

	e.ownerRunning[p.OwnerID]--
	e.serverRunning[p.SourceID]--
}

func (e *Executor) admit(now time.Time) {
	type deferredEntry struct {
		process   domainprocess.Process
		queueTime time.Time
	}
	var deferred []deferredEntry

	for {
		p, queueTime, ok := e.scheduler.PopReady()
		if !ok {
			break
		}

		switch e.canAdmit(p) {
		case rejectNone:
			free := e.serverFree[p.SourceID]
			resources.Allocate(&free, p.ResourcesRequired)
			e.serverFree[p.SourceID] = free

			p.State = domainprocess.StateRunning
			p.TimeStarted = now
			p.ResourcesAllocated = p.ResourcesRequired
			e.running[p.ID] = &p

			e.ownerRunning[p.OwnerID]++
			e.serverRunning[p.SourceID]++
		case rejectResources:
			e.scheduler.ParkWaiting(p)
		case rejectCap:
			deferred = append(deferred, deferredEntry{p, queueTime})
		}
	}

	for _, d := range deferred {
		e.scheduler.RequeueReady(d.process, d.queueTime)
	}
}

// canAdmit implements spec §4.6's admission policy: per-owner cap (Critical
// bypasses by one slot, never bypasses hardware), per-server cap, and
// resource fit against the server's free pool.
func (e *Executor) canAdmit(p domainprocess.Process) rejectKind {
	ownerCap := e.perOwnerCap
	if p.Priority == domainprocess.PriorityCritical {
		ownerCap++
	}
	if e.ownerRunning[p.OwnerID] >= ownerCap {
		return rejectCap
	}
	if e.serverRunning[p.SourceID] >= e.perServerCap {
		return rejectCap
	}

	free, known := e.serverFree[p.SourceID]
	if !known || !resources.CanAllocate(p.ResourcesRequired, free) {
		return rejectResources
	}
	return rejectNone
}
