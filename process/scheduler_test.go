package process

import (
	"testing"
	"time"

	domainprocess "github.com/techmad220/hackerexperience-go/domain/process"
)

func TestReadyQueueOrdersByPriorityThenAgeThenID(t *testing.T) {
	s := NewScheduler(time.Minute)
	base := time.Unix(0, 0)

	s.Enqueue(domainprocess.Process{ID: "b", Priority: domainprocess.PriorityNormal}, base.Add(time.Second))
	s.Enqueue(domainprocess.Process{ID: "a", Priority: domainprocess.PriorityNormal}, base.Add(time.Second))
	s.Enqueue(domainprocess.Process{ID: "z", Priority: domainprocess.PriorityHigh}, base.Add(2*time.Second))
	s.Enqueue(domainprocess.Process{ID: "old", Priority: domainprocess.PriorityNormal}, base)

	order := []domainprocess.ID{}
	for {
		p, _, ok := s.PopReady()
		if !ok {
			break
		}
		order = append(order, p.ID)
	}

	want := []domainprocess.ID{"z", "old", "a", "b"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
}

func TestBumpStarvedPromotesPriority(t *testing.T) {
	s := NewScheduler(10 * time.Second)
	base := time.Unix(0, 0)

	s.Enqueue(domainprocess.Process{ID: "stale", Priority: domainprocess.PriorityLow}, base)
	s.Enqueue(domainprocess.Process{ID: "fresh", Priority: domainprocess.PriorityLow}, base.Add(9*time.Second))

	s.BumpStarved(base.Add(11 * time.Second))

	p, _, _ := s.PopReady()
	if p.ID != "stale" {
		t.Fatalf("expected starved process to sort first after bump, got %v", p.ID)
	}
	if p.Priority != domainprocess.PriorityNormal {
		t.Fatalf("expected bump from Low to Normal, got %v", p.Priority)
	}
}

func TestParkWaitingThenPromote(t *testing.T) {
	s := NewScheduler(time.Minute)
	p, _, ok := s.PopReady()
	if ok {
		t.Fatalf("expected empty scheduler, got %+v", p)
	}

	s.ParkWaiting(domainprocess.Process{ID: "parked", QueuedAt: time.Unix(0, 0)})
	if s.ReadyLen() != 0 {
		t.Fatalf("parked process should not be ready yet")
	}

	s.PromoteWaiting()
	if s.ReadyLen() != 1 {
		t.Fatalf("expected promoted process to become ready")
	}
	promoted, _, _ := s.PopReady()
	if promoted.ID != "parked" {
		t.Fatalf("expected the parked process back, got %v", promoted.ID)
	}
}
