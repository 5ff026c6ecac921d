// Package worldstore defines the World Store abstraction (spec §4.2 "World
// Store (C2)"): the sole owner of persistent entities, exposed as a narrow
// transactional interface so the process engine and effect applier never
// embed SQL or hold long-lived mutable references to shared state (spec §9
// "SQL strings embedded in domain code... The core speaks to WorldStore
// traits only"). Segmented per entity, grounded on the teacher's
// infrastructure/database repository-interface split
// (UserRepository/GasBankRepository/... composed into RepositoryInterface).
package worldstore

import (
	"context"
	"time"

	"github.com/techmad220/hackerexperience-go/domain/audit"
	"github.com/techmad220/hackerexperience-go/domain/cursor"
	domainnetwork "github.com/techmad220/hackerexperience-go/domain/network"
	"github.com/techmad220/hackerexperience-go/domain/player"
	domainprocess "github.com/techmad220/hackerexperience-go/domain/process"
	"github.com/techmad220/hackerexperience-go/domain/server"
)

// ServerRepository owns Server and Software entities.
type ServerRepository interface {
	GetServer(ctx context.Context, id server.ID) (server.Server, error)
	GetServerByIP(ctx context.Context, ip string) (server.Server, error)
	CreateServer(ctx context.Context, s server.Server) error
	UpdateServer(ctx context.Context, s server.Server) error
	DeleteServer(ctx context.Context, id server.ID) error

	GetSoftware(ctx context.Context, serverID server.ID, id server.SoftwareID) (server.Software, error)
	CreateSoftware(ctx context.Context, serverID server.ID, sw server.Software) error
	UpdateSoftware(ctx context.Context, serverID server.ID, sw server.Software) error
	DeleteSoftware(ctx context.Context, serverID server.ID, id server.SoftwareID) error
}

// PlayerRepository owns Player entities and the money-transfer invariant.
type PlayerRepository interface {
	GetPlayer(ctx context.Context, id player.ID) (player.Player, error)
	CreatePlayer(ctx context.Context, p player.Player) error
	UpdatePlayer(ctx context.Context, p player.Player) error

	// TransferMoney atomically debits from and credits to; fails with
	// InsufficientFunds when the debit would make from's balance negative,
	// leaving both balances untouched (spec §4.2, invariant 4 of §8).
	TransferMoney(ctx context.Context, from, to player.ID, amount int64) error

	GetClan(ctx context.Context, id player.ClanID) (player.Clan, error)
	UpdateClan(ctx context.Context, c player.Clan) error
	GetWar(ctx context.Context, id player.WarID) (player.ClanWar, error)
	UpdateWar(ctx context.Context, w player.ClanWar) error
	ListActiveWarsEndingBy(ctx context.Context, now time.Time) ([]player.ClanWar, error)

	GetMission(ctx context.Context, id string) (player.Mission, error)
	UpdateMission(ctx context.Context, m player.Mission) error
}

// ProcessRepository owns Process entities and the per-server log sequence.
type ProcessRepository interface {
	GetProcess(ctx context.Context, id domainprocess.ID) (domainprocess.Process, error)
	CreateProcess(ctx context.Context, p domainprocess.Process) error
	UpdateProcess(ctx context.Context, p domainprocess.Process) error
	DeleteProcess(ctx context.Context, id domainprocess.ID) error

	// FindRunningOrQueued looks up an existing process matching key, used to
	// enforce the at-most-one-Running-or-Queued dedup invariant (spec §3).
	FindRunningOrQueued(ctx context.Context, key domainprocess.DedupKey) (domainprocess.Process, bool, error)

	// QueryProcessesForOwner returns a cursor-paginated list ordered by
	// queue time (spec §6 "QueryProcesses").
	QueryProcessesForOwner(ctx context.Context, owner player.ID, c cursor.Cursor, limit int) (cursor.Page[domainprocess.Process], error)
}

// NetworkRepository owns Tunnel and Connection entities.
type NetworkRepository interface {
	GetTunnel(ctx context.Context, id domainnetwork.TunnelID) (domainnetwork.Tunnel, error)
	CreateTunnel(ctx context.Context, t domainnetwork.Tunnel) error
	DeleteTunnel(ctx context.Context, id domainnetwork.TunnelID) error

	GetConnection(ctx context.Context, id domainnetwork.ConnectionID) (domainnetwork.Connection, error)
	CreateConnection(ctx context.Context, c domainnetwork.Connection) error
	UpdateConnection(ctx context.Context, c domainnetwork.Connection) error
	ConnectionsForTunnel(ctx context.Context, tunnelID domainnetwork.TunnelID) ([]domainnetwork.Connection, error)
}

// AuditRepository owns the per-server append-only log.
type AuditRepository interface {
	// AppendLog assigns the next sequence number for serverID and returns
	// it; sequence numbers are strictly increasing per server (spec §4.2).
	AppendLog(ctx context.Context, serverID server.ID, entry audit.Entry) (uint64, error)
	GetLog(ctx context.Context, serverID server.ID, seq uint64) (audit.Entry, error)
	TombstoneLog(ctx context.Context, serverID server.ID, seq uint64, editedBy string) error
	HideLog(ctx context.Context, serverID server.ID, seq uint64) error
}

// Store is the full World Store surface (spec §4.2). All mutating calls are
// only valid inside a WithTxn scope; implementations may also allow direct
// calls outside a txn for single-operation convenience, documented per
// implementation.
type Store interface {
	ServerRepository
	PlayerRepository
	ProcessRepository
	NetworkRepository
	AuditRepository

	// WithTxn runs fn against a transactional view of the store, committing
	// on nil return and rolling back on error or panic (spec §4.2
	// "with_txn(fn(&mut Txn) → R)"). fn receives the same Store interface,
	// bound to the transaction, so callers compose freely.
	WithTxn(ctx context.Context, fn func(ctx context.Context, txn Store) error) error
}
