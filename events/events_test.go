package events

import (
	"context"
	"testing"
	"time"

	"github.com/techmad220/hackerexperience-go/domain/player"
)

func TestMemoryPublisherDeliversToSubscriber(t *testing.T) {
	p := NewMemoryPublisher()
	sub := p.Subscribe(4)
	defer sub.Unsubscribe()

	p.Publish(context.Background(), MoneyReceived(player.ID("p1"), 500, time.Unix(0, 0)))

	select {
	case e := <-sub.Events():
		if e.Kind != KindMoneyReceived || e.Data["amount"] != "500" {
			t.Fatalf("unexpected event: %+v", e)
		}
	default:
		t.Fatalf("expected event to be delivered")
	}
}

func TestMemoryPublisherDropsOnFullChannel(t *testing.T) {
	p := NewMemoryPublisher()
	sub := p.Subscribe(1)
	defer sub.Unsubscribe()

	p.Publish(context.Background(), LevelUp(player.ID("p1"), 2, time.Unix(0, 0)))
	p.Publish(context.Background(), LevelUp(player.ID("p1"), 3, time.Unix(0, 0)))

	if len(sub.Events()) != 1 {
		t.Fatalf("expected exactly one buffered event, got %d", len(sub.Events()))
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	p := NewMemoryPublisher()
	sub := p.Subscribe(1)
	sub.Unsubscribe()

	_, ok := <-sub.Events()
	if ok {
		t.Fatalf("expected channel closed after unsubscribe")
	}
}
