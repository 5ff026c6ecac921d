package process

import (
	"container/heap"
	"time"

	domainprocess "github.com/techmad220/hackerexperience-go/domain/process"
)

// readyItem wraps a Process with the queue_time the heap orders on,
// grounded on process_engine.rs::QueuedProcess (priority desc, then older
// queue_time first) plus the spec's additional lower-id tie-break (spec
// §4.6 "Tie-breaks").
type readyItem struct {
	process   domainprocess.Process
	queueTime time.Time
	index     int
}

// readyHeap is a container/heap.Interface implementing the ready_queue
// max-heap: highest effective priority first, ties broken by older
// queue_time, then by lower process id (spec §4.6).
type readyHeap []*readyItem

func (h readyHeap) Len() int { return len(h) }

func (h readyHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.process.Priority != b.process.Priority {
		return a.process.Priority > b.process.Priority
	}
	if !a.queueTime.Equal(b.queueTime) {
		return a.queueTime.Before(b.queueTime)
	}
	return a.process.ID < b.process.ID
}

func (h readyHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *readyHeap) Push(x any) {
	item := x.(*readyItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *readyHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

var _ heap.Interface = (*readyHeap)(nil)
