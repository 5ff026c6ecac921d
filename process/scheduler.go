package process

import (
	"container/heap"
	"time"

	domainprocess "github.com/techmad220/hackerexperience-go/domain/process"
)

// Scheduler owns the two-stage queue of spec §4.6: a ready_queue max-heap
// and a waiting_queue FIFO for processes rejected purely for lack of
// resources, grounded on process_engine.rs::ProcessScheduler.
type Scheduler struct {
	ready   readyHeap
	waiting []domainprocess.Process

	starvationThreshold time.Duration
}

// NewScheduler constructs an empty Scheduler.
func NewScheduler(starvationThreshold time.Duration) *Scheduler {
	s := &Scheduler{starvationThreshold: starvationThreshold}
	heap.Init(&s.ready)
	return s
}

// Enqueue places p on the ready_queue with the given queue time.
func (s *Scheduler) Enqueue(p domainprocess.Process, queueTime time.Time) {
	heap.Push(&s.ready, &readyItem{process: p, queueTime: queueTime})
}

// Len reports the total number of processes the scheduler is holding,
// across both sub-queues.
func (s *Scheduler) Len() int { return len(s.ready) + len(s.waiting) }

// ReadyLen reports the number of processes currently eligible for an
// admission attempt.
func (s *Scheduler) ReadyLen() int { return len(s.ready) }

// PopReady removes and returns the highest-priority ready process, along
// with the queue time it was enqueued with.
func (s *Scheduler) PopReady() (domainprocess.Process, time.Time, bool) {
	if len(s.ready) == 0 {
		return domainprocess.Process{}, time.Time{}, false
	}
	item := heap.Pop(&s.ready).(*readyItem)
	return item.process, item.queueTime, true
}

// RequeueReady pushes p back onto the ready_queue with its original queue
// time preserved, used when an admission attempt is deferred to the next
// tick rather than rejected outright (e.g. a concurrency cap, not a
// resource shortfall).
func (s *Scheduler) RequeueReady(p domainprocess.Process, queueTime time.Time) {
	heap.Push(&s.ready, &readyItem{process: p, queueTime: queueTime})
}

// ParkWaiting moves p to the waiting_queue FIFO: it failed admission for
// lack of resources and will only be retried once PromoteWaiting is called
// (spec §4.6 "promoted en masse when the executor signals a resource
// return").
func (s *Scheduler) ParkWaiting(p domainprocess.Process) {
	s.waiting = append(s.waiting, p)
}

// PromoteWaiting moves every parked process back onto the ready_queue,
// preserving original queue time so starvation bumps already applied are
// not lost.
func (s *Scheduler) PromoteWaiting() {
	for _, p := range s.waiting {
		heap.Push(&s.ready, &readyItem{process: p, queueTime: p.QueuedAt})
	}
	s.waiting = s.waiting[:0]
}

// BumpStarved raises the effective priority of every ready process that has
// been waiting longer than the configured starvation threshold, capped at
// Critical (spec §4.6 "Starvation control"). The bump is reflected in the
// heap immediately by re-heapifying.
func (s *Scheduler) BumpStarved(now time.Time) {
	changed := false
	for _, item := range s.ready {
		if now.Sub(item.queueTime) >= s.starvationThreshold {
			bumped := item.process.Priority.Bump()
			if bumped != item.process.Priority {
				item.process.Priority = bumped
				changed = true
			}
		}
	}
	if changed {
		heap.Init(&s.ready)
	}
}

// CancelQueued removes a queued process by id from either sub-queue,
// returning it and true if found (spec §5 "cancel(id) transitions
// Queued→Cancelled immediately").
func (s *Scheduler) CancelQueued(id domainprocess.ID) (domainprocess.Process, bool) {
	for _, item := range s.ready {
		if item.process.ID == id {
			removed := heap.Remove(&s.ready, item.index).(*readyItem)
			return removed.process, true
		}
	}
	for i, p := range s.waiting {
		if p.ID == id {
			s.waiting = append(s.waiting[:i], s.waiting[i+1:]...)
			return p, true
		}
	}
	return domainprocess.Process{}, false
}
