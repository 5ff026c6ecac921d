package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/techmad220/hackerexperience-go/domain/audit"
	"github.com/techmad220/hackerexperience-go/domain/cursor"
	domainnetwork "github.com/techmad220/hackerexperience-go/domain/network"
	"github.com/techmad220/hackerexperience-go/domain/player"
	domainprocess "github.com/techmad220/hackerexperience-go/domain/process"
	"github.com/techmad220/hackerexperience-go/domain/server"
	domainerrors "github.com/techmad220/hackerexperience-go/infrastructure/errors"
	"github.com/techmad220/hackerexperience-go/worldstore"
	"github.com/techmad220/hackerexperience-go/worldstore/postgres/migrations"
)

// openTestStore opens a connection against TEST_POSTGRES_DSN, applies the
// schema, truncates every table and returns a fresh Store — grounded on the
// teacher's internal/app/storage/postgres/store_test.go integration-test
// shape (skip unless a real database is configured; no mock substitutes for
// testing the actual SQL against a real server).
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := migrations.Apply(context.Background(), db.DB); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	for _, table := range []string{"audit_log", "connections", "tunnels", "processes", "missions", "clan_wars", "clans", "players", "servers"} {
		if _, err := db.Exec("TRUNCATE TABLE " + table + " CASCADE"); err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}

	return New(db)
}

func TestServerCRUDRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	srv := server.Server{
		ID: "srv-1", IP: "1.2.3.4", Owner: server.OwnerPlayer, OwnerID: "p1",
		Hardware: server.HardwareSpec{CPU: 100, RAM: 100, Disk: 100, Net: 100}, HardwareHP: 1,
		Software: []server.Software{{ID: "sw-1", ServerID: "srv-1", Type: server.SoftwareCracker, Version: 2}},
	}
	if err := s.CreateServer(ctx, srv); err != nil {
		t.Fatalf("create server: %v", err)
	}

	got, err := s.GetServer(ctx, "srv-1")
	if err != nil {
		t.Fatalf("get server: %v", err)
	}
	if got.IP != srv.IP || len(got.Software) != 1 || got.Software[0].Type != server.SoftwareCracker {
		t.Fatalf("round-tripped server mismatch: %+v", got)
	}

	byIP, err := s.GetServerByIP(ctx, "1.2.3.4")
	if err != nil || byIP.ID != "srv-1" {
		t.Fatalf("get server by ip: %+v, %v", byIP, err)
	}

	if err := s.DeleteServer(ctx, "srv-1"); err != nil {
		t.Fatalf("delete server: %v", err)
	}
	if _, err := s.GetServer(ctx, "srv-1"); !domainerrors.Is(err, domainerrors.KindNotFound) {
		t.Fatalf("expected NotFound after delete, got %v", err)
	}
}

func TestTransferMoneyAtomicity(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_ = s.CreatePlayer(ctx, player.Player{ID: "p1", Money: 100})
	_ = s.CreatePlayer(ctx, player.Player{ID: "p2", Money: 0})

	if err := s.TransferMoney(ctx, "p1", "p2", 40); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	p1, _ := s.GetPlayer(ctx, "p1")
	p2, _ := s.GetPlayer(ctx, "p2")
	if p1.Money != 60 || p2.Money != 40 {
		t.Fatalf("unexpected balances: p1=%d p2=%d", p1.Money, p2.Money)
	}

	if err := s.TransferMoney(ctx, "p1", "p2", 1000); !domainerrors.Is(err, domainerrors.KindInsufficientFunds) {
		t.Fatalf("expected InsufficientFunds, got %v", err)
	}
	p1, _ = s.GetPlayer(ctx, "p1")
	if p1.Money != 60 {
		t.Fatalf("balance must be unchanged after a failed transfer, got %d", p1.Money)
	}
}

func TestProcessDedupAndPagination(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_ = s.CreatePlayer(ctx, player.Player{ID: "p1"})
	_ = s.CreateServer(ctx, server.Server{ID: "srv-1", IP: "1.1.1.1", Hardware: server.HardwareSpec{CPU: 1, RAM: 1, Disk: 1, Net: 1}})

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		p := domainprocess.Process{
			ID: domainprocess.ID("proc-" + string(rune('a'+i))), Kind: domainprocess.KindFileDownload,
			OwnerID: "p1", SourceID: "srv-1", State: domainprocess.StateQueued,
			QueuedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.CreateProcess(ctx, p); err != nil {
			t.Fatalf("create process %d: %v", i, err)
		}
	}

	_, found, err := s.FindRunningOrQueued(ctx, domainprocess.DedupKey{OwnerID: "p1", Kind: domainprocess.KindFileDownload, SourceID: "srv-1"})
	if err != nil || !found {
		t.Fatalf("expected an existing running-or-queued process, found=%v err=%v", found, err)
	}

	page, err := s.QueryProcessesForOwner(ctx, "p1", cursor.Cursor{Direction: cursor.Asc}, 2)
	if err != nil {
		t.Fatalf("query page 1: %v", err)
	}
	if len(page.Items) != 2 || !page.HasNext {
		t.Fatalf("expected a 2-item page with more to come, got %d items hasNext=%v", len(page.Items), page.HasNext)
	}
}

func TestTunnelAndConnectionRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tunnel := domainnetwork.Tunnel{ID: "t1", Gateway: "srv-1", Target: "srv-2", Hops: []server.ID{"hop-1"}}
	if err := s.CreateTunnel(ctx, tunnel); err != nil {
		t.Fatalf("create tunnel: %v", err)
	}
	got, err := s.GetTunnel(ctx, "t1")
	if err != nil || len(got.Hops) != 1 || got.Hops[0] != "hop-1" {
		t.Fatalf("tunnel round-trip mismatch: %+v, %v", got, err)
	}

	conn := domainnetwork.Connection{ID: "c1", TunnelID: "t1", Type: domainnetwork.ConnectionSSH}
	if err := s.CreateConnection(ctx, conn); err != nil {
		t.Fatalf("create connection: %v", err)
	}
	conns, err := s.ConnectionsForTunnel(ctx, "t1")
	if err != nil || len(conns) != 1 {
		t.Fatalf("connections for tunnel: %+v, %v", conns, err)
	}
}

func TestAuditLogSequencing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_ = s.CreateServer(ctx, server.Server{ID: "srv-1", IP: "1.1.1.1", Hardware: server.HardwareSpec{CPU: 1, RAM: 1, Disk: 1, Net: 1}})

	seq1, err := s.AppendLog(ctx, "srv-1", audit.Entry{Action: audit.ActionLogin})
	if err != nil || seq1 != 1 {
		t.Fatalf("expected first seq 1, got %d, %v", seq1, err)
	}
	seq2, err := s.AppendLog(ctx, "srv-1", audit.Entry{Action: audit.ActionCrack})
	if err != nil || seq2 != 2 {
		t.Fatalf("expected second seq 2, got %d, %v", seq2, err)
	}

	if err := s.TombstoneLog(ctx, "srv-1", seq2, "p1"); err != nil {
		t.Fatalf("tombstone: %v", err)
	}
	entry, err := s.GetLog(ctx, "srv-1", seq2)
	if err != nil || !entry.Tombstoned || entry.EditedBy == nil || *entry.EditedBy != "p1" {
		t.Fatalf("expected tombstoned entry edited by p1, got %+v, %v", entry, err)
	}
}

func TestWithTxnRollsBackOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_ = s.CreatePlayer(ctx, player.Player{ID: "p1", Money: 10})

	boom := errTest("boom")
	err := s.WithTxn(ctx, func(ctx context.Context, txn worldstore.Store) error {
		if err := txn.UpdatePlayer(ctx, player.Player{ID: "p1", Money: 999}); err != nil {
			return err
		}
		return boom
	})
	if err != boom {
		t.Fatalf("expected the sentinel error back, got %v", err)
	}

	p1, _ := s.GetPlayer(ctx, "p1")
	if p1.Money != 10 {
		t.Fatalf("expected rollback to leave money untouched, got %d", p1.Money)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
