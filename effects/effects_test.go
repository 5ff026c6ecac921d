package effects

import (
	"context"
	"testing"
	"time"

	"github.com/techmad220/hackerexperience-go/domain/player"
	domainprocess "github.com/techmad220/hackerexperience-go/domain/process"
	"github.com/techmad220/hackerexperience-go/domain/server"
	"github.com/techmad220/hackerexperience-go/events"
	"github.com/techmad220/hackerexperience-go/worldstore/memory"
)

func TestApplyBankTransferMovesMoney(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	_ = store.CreatePlayer(ctx, player.Player{ID: "p1", Money: 300})
	_ = store.CreatePlayer(ctx, player.Player{ID: "p2", Money: 0})

	a := New(nil, nil)
	p := domainprocess.Process{
		ID:      "proc-1",
		Kind:    domainprocess.KindBankTransfer,
		OwnerID: "p1",
		Effect: domainprocess.CompletionEffect{
			Kind: domainprocess.KindBankTransfer,
			Data: map[string]string{"to": "p2", "amount": "100"},
		},
	}

	if err := a.Apply(ctx, store, p, time.Unix(0, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p1, _ := store.GetPlayer(ctx, "p1")
	p2, _ := store.GetPlayer(ctx, "p2")
	if p1.Money != 200 || p2.Money != 100 {
		t.Fatalf("expected balances 200/100, got %v/%v", p1.Money, p2.Money)
	}
}

func TestApplyPasswordCrackDropsSecurityAndAppendsLog(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	_ = store.CreateServer(ctx, server.Server{ID: "victim", IP: "1.1.1.1", SecurityLevel: 5, Owner: server.OwnerPlayer, OwnerID: "victim-owner"})
	_ = store.CreateServer(ctx, server.Server{ID: "attacker-src", IP: "2.2.2.2", Owner: server.OwnerPlayer, OwnerID: "attacker"})
	_ = store.CreateSoftware(ctx, "attacker-src", server.Software{ID: "sw-cracker", ServerID: "attacker-src", Type: server.SoftwareCracker, Version: 3})
	_ = store.CreatePlayer(ctx, player.Player{ID: "victim-owner"})

	published := []events.Event{}
	pub := &captureBus{out: &published}
	a := New(nil, pub)

	p := domainprocess.Process{
		ID:       "proc-2",
		Kind:     domainprocess.KindPasswordCrack,
		OwnerID:  "attacker",
		SourceID: "attacker-src",
		TargetID: "victim",
		Effect:   domainprocess.CompletionEffect{Kind: domainprocess.KindPasswordCrack},
	}
	if err := a.Apply(ctx, store, p, time.Unix(0, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	srv, _ := store.GetServer(ctx, "victim")
	if srv.SecurityLevel != 0 {
		t.Fatalf("expected security level dropped to 0, got %v", srv.SecurityLevel)
	}
	if len(published) != 2 {
		t.Fatalf("expected HackSuccessful + ServerCompromised events, got %d", len(published))
	}
}

func TestApplyPasswordCrackRejectsInsufficientCracker(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	_ = store.CreateServer(ctx, server.Server{ID: "victim", IP: "1.1.1.1", SecurityLevel: 5, Owner: server.OwnerPlayer, OwnerID: "victim-owner"})
	_ = store.CreateServer(ctx, server.Server{ID: "attacker-src", IP: "2.2.2.2", Owner: server.OwnerPlayer, OwnerID: "attacker"})
	_ = store.CreateSoftware(ctx, "attacker-src", server.Software{ID: "sw-cracker", ServerID: "attacker-src", Type: server.SoftwareCracker, Version: 1})
	_ = store.CreatePlayer(ctx, player.Player{ID: "victim-owner"})

	a := New(nil, nil)
	p := domainprocess.Process{
		ID:       "proc-2b",
		Kind:     domainprocess.KindPasswordCrack,
		OwnerID:  "attacker",
		SourceID: "attacker-src",
		TargetID: "victim",
		Effect: domainprocess.CompletionEffect{
			Kind: domainprocess.KindPasswordCrack,
			Data: map[string]string{"required_cracker_version": "2"},
		},
	}
	if err := a.Apply(ctx, store, p, time.Unix(0, 0)); err == nil {
		t.Fatal("expected error for insufficient cracker version, got nil")
	}

	srv, _ := store.GetServer(ctx, "victim")
	if srv.SecurityLevel != 5 {
		t.Fatalf("expected security level untouched on failed precondition, got %v", srv.SecurityLevel)
	}
}

func TestApplyDDoSHitRejectsInsufficientViruses(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	_ = store.CreateServer(ctx, server.Server{ID: "attacker-src", IP: "2.2.2.2", Owner: server.OwnerPlayer, OwnerID: "attacker"})
	_ = store.CreateServer(ctx, server.Server{ID: "victim", IP: "1.1.1.1", SecurityLevel: 0, Owner: server.OwnerPlayer, OwnerID: "victim-owner"})
	_ = store.CreateSoftware(ctx, "attacker-src", server.Software{ID: "sw-ddos-1", ServerID: "attacker-src", Type: server.SoftwareDDoS, Version: 1, Running: true})

	a := New(nil, nil)
	p := domainprocess.Process{
		ID:       "proc-ddos",
		Kind:     domainprocess.KindDDoS,
		OwnerID:  "attacker",
		SourceID: "attacker-src",
		TargetID: "victim",
		Effect: domainprocess.CompletionEffect{
			Kind: domainprocess.KindDDoS,
			Data: map[string]string{"war_id": "war-1", "power": "5"},
		},
	}
	if err := a.Apply(ctx, store, p, time.Unix(0, 0)); err == nil {
		t.Fatal("expected error for insufficient running ddos viruses, got nil")
	}
}

func TestApplyDDoSHitRejectsUncompromisedTarget(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	_ = store.CreateServer(ctx, server.Server{ID: "attacker-src", IP: "2.2.2.2", Owner: server.OwnerPlayer, OwnerID: "attacker"})
	_ = store.CreateServer(ctx, server.Server{ID: "victim", IP: "1.1.1.1", SecurityLevel: 5, Owner: server.OwnerPlayer, OwnerID: "victim-owner"})
	for i := 0; i < 3; i++ {
		_ = store.CreateSoftware(ctx, "attacker-src", server.Software{
			ID: server.SoftwareID("sw-ddos-" + string(rune('a'+i))), ServerID: "attacker-src",
			Type: server.SoftwareDDoS, Version: 1, Running: true,
		})
	}

	a := New(nil, nil)
	p := domainprocess.Process{
		ID:       "proc-ddos-2",
		Kind:     domainprocess.KindDDoS,
		OwnerID:  "attacker",
		SourceID: "attacker-src",
		TargetID: "victim",
		Effect: domainprocess.CompletionEffect{
			Kind: domainprocess.KindDDoS,
			Data: map[string]string{"war_id": "war-1", "power": "5"},
		},
	}
	if err := a.Apply(ctx, store, p, time.Unix(0, 0)); err == nil {
		t.Fatal("expected error when target is not in the hacked-db, got nil")
	}
}

func TestDistributeBountyRoundsUpAndStaysExact(t *testing.T) {
	contributions := map[player.ID]int64{"a": 1, "b": 1, "c": 1}
	shares := distributeBounty(contributions, 3, 10)

	var total int64
	for _, v := range shares {
		total += v
	}
	if total != 10 {
		t.Fatalf("expected shares to sum exactly to bounty, got %d", total)
	}
}

func TestApplyWarEndArchivesAndDistributesBounty(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	_ = store.CreatePlayer(ctx, player.Player{ID: "p1"})
	_ = store.CreatePlayer(ctx, player.Player{ID: "p2"})
	_ = store.UpdateClan(ctx, player.Clan{ID: "c1"})
	_ = store.UpdateClan(ctx, player.Clan{ID: "c2"})
	_ = store.UpdateWar(ctx, player.ClanWar{
		ID: "war-1", Clan1: "c1", Clan2: "c2", Bounty: 100, Status: player.WarActive,
		Contributions: map[player.ID]int64{"p1": 3, "p2": 1},
	})

	a := New(nil, nil)
	p := domainprocess.Process{
		ID:      "proc-3",
		Kind:    domainprocess.KindWarEnd,
		OwnerID: "p1",
		Effect:  domainprocess.CompletionEffect{Kind: domainprocess.KindWarEnd, Data: map[string]string{"war_id": "war-1"}},
	}
	if err := a.Apply(ctx, store, p, time.Unix(0, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	war, _ := store.GetWar(ctx, "war-1")
	if war.Status != player.WarArchived {
		t.Fatalf("expected war archived, got %v", war.Status)
	}
	p1, _ := store.GetPlayer(ctx, "p1")
	p2, _ := store.GetPlayer(ctx, "p2")
	if p1.Money+p2.Money != 100 {
		t.Fatalf("expected total distributed to equal bounty, got %d+%d", p1.Money, p2.Money)
	}
	if p1.Money <= p2.Money {
		t.Fatalf("expected higher contributor to earn more, got p1=%d p2=%d", p1.Money, p2.Money)
	}
}

type captureBus struct {
	out *[]events.Event
}

func (c *captureBus) Publish(ctx context.Context, e events.Event) {
	*c.out = append(*c.out, e)
}
