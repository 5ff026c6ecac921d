package events

import "context"

// Publisher delivers events to subscribers. The simulation core holds one
// through this interface only; cmd/gateway is what turns delivered events
// into a gorilla/websocket broadcast.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Subscription is a handle returned by MemoryPublisher.Subscribe; call
// Unsubscribe to stop receiving events and release the channel.
type Subscription struct {
	id uint64
	p  *MemoryPublisher
	ch chan Event
}

// Events returns the channel this subscription delivers to.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Unsubscribe removes the subscription and closes its channel.
func (s *Subscription) Unsubscribe() {
	s.p.unsubscribe(s.id)
}
