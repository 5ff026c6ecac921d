package events

import (
	"context"
	"sync"
)

// MemoryPublisher is the default Publisher: an in-memory fan-out to a set of
// buffered per-subscriber channels, grounded on the teacher's in-process
// pub/sub used by its WS-adjacent notification paths. A slow subscriber
// drops events rather than blocking Publish, matching "observing events and
// pushing updates to clients" as a best-effort notification path, not a
// durable queue.
type MemoryPublisher struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]chan Event
}

// NewMemoryPublisher builds an empty fan-out publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{subs: make(map[uint64]chan Event)}
}

// Subscribe registers a new subscriber with a channel buffered to bufSize.
func (p *MemoryPublisher) Subscribe(bufSize int) *Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	id := p.nextID
	ch := make(chan Event, bufSize)
	p.subs[id] = ch
	return &Subscription{id: id, p: p, ch: ch}
}

func (p *MemoryPublisher) unsubscribe(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ch, ok := p.subs[id]; ok {
		close(ch)
		delete(p.subs, id)
	}
}

// Publish fans e out to every current subscriber whose recipient list is
// either empty (broadcast) or contains one of e.Recipients. Delivery to a
// full channel is dropped, never blocked.
func (p *MemoryPublisher) Publish(ctx context.Context, e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, ch := range p.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

var _ Publisher = (*MemoryPublisher)(nil)
