// Package memory is the in-memory default World Store implementation (spec
// §4.2), grounded on the teacher's mock_repository.go in-process fake used
// for tests, generalized here to also serve as the engine's non-durable
// default (no production deployment of this simulation core needs a
// database backing for a single-process instance — package
// worldstore/postgres exists for that).
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/techmad220/hackerexperience-go/domain/audit"
	"github.com/techmad220/hackerexperience-go/domain/cursor"
	domainnetwork "github.com/techmad220/hackerexperience-go/domain/network"
	"github.com/techmad220/hackerexperience-go/domain/player"
	domainprocess "github.com/techmad220/hackerexperience-go/domain/process"
	"github.com/techmad220/hackerexperience-go/domain/server"
	domainerrors "github.com/techmad220/hackerexperience-go/infrastructure/errors"
	"github.com/techmad220/hackerexperience-go/worldstore"
)

// Store is a mutex-guarded in-memory implementation of worldstore.Store.
// One global lock serializes all reads and writes; this is simpler than the
// spec's per-shard-key ordering scheme but preserves the same externally
// observable contract (shard-key ordering exists to allow concurrent
// unrelated shards to proceed without contending a single lock — a
// refinement worth making if profiling ever shows this lock is hot).
type Store struct {
	mu sync.Mutex

	servers      map[server.ID]server.Server
	serversByIP  map[string]server.ID
	players      map[player.ID]player.Player
	clans        map[player.ClanID]player.Clan
	wars         map[player.WarID]player.ClanWar
	missions     map[string]player.Mission
	processes    map[domainprocess.ID]domainprocess.Process
	tunnels      map[domainnetwork.TunnelID]domainnetwork.Tunnel
	connections  map[domainnetwork.ConnectionID]domainnetwork.Connection
	logs         map[server.ID][]audit.Entry
}

// New constructs an empty in-memory Store.
func New() *Store {
	return &Store{
		servers:     make(map[server.ID]server.Server),
		serversByIP: make(map[string]server.ID),
		players:     make(map[player.ID]player.Player),
		clans:       make(map[player.ClanID]player.Clan),
		wars:        make(map[player.WarID]player.ClanWar),
		missions:    make(map[string]player.Mission),
		processes:   make(map[domainprocess.ID]domainprocess.Process),
		tunnels:     make(map[domainnetwork.TunnelID]domainnetwork.Tunnel),
		connections: make(map[domainnetwork.ConnectionID]domainnetwork.Connection),
		logs:        make(map[server.ID][]audit.Entry),
	}
}

var _ worldstore.Store = (*Store)(nil)

// WithTxn runs fn against this same Store. The in-memory implementation has
// no partial-failure mode to roll back from (every mutation is a plain map
// write guarded by mu), so "rollback on error" degrades to "no mutation
// partially applied" by construction: every exported mutator here either
// fully succeeds or returns before touching its map.
func (s *Store) WithTxn(ctx context.Context, fn func(ctx context.Context, txn worldstore.Store) error) error {
	return fn(ctx, s)
}

func (s *Store) GetServer(ctx context.Context, id server.ID) (server.Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv, ok := s.servers[id]
	if !ok {
		return server.Server{}, domainerrors.NotFound("server", string(id))
	}
	return srv, nil
}

func (s *Store) GetServerByIP(ctx context.Context, ip string) (server.Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.serversByIP[ip]
	if !ok {
		return server.Server{}, domainerrors.NotFound("server", ip)
	}
	return s.servers[id], nil
}

func (s *Store) CreateServer(ctx context.Context, srv server.Server) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers[srv.ID] = srv
	s.serversByIP[srv.IP] = srv.ID
	return nil
}

func (s *Store) UpdateServer(ctx context.Context, srv server.Server) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.servers[srv.ID]; !ok {
		return domainerrors.NotFound("server", string(srv.ID))
	}
	s.servers[srv.ID] = srv
	s.serversByIP[srv.IP] = srv.ID
	return nil
}

func (s *Store) DeleteServer(ctx context.Context, id server.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv, ok := s.servers[id]
	if !ok {
		return domainerrors.NotFound("server", string(id))
	}
	delete(s.servers, id)
	delete(s.serversByIP, srv.IP)
	return nil
}

func (s *Store) GetSoftware(ctx context.Context, serverID server.ID, id server.SoftwareID) (server.Software, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv, ok := s.servers[serverID]
	if !ok {
		return server.Software{}, domainerrors.NotFound("server", string(serverID))
	}
	sw, ok := srv.FindSoftware(id)
	if !ok {
		return server.Software{}, domainerrors.NotFound("software", string(id))
	}
	return sw, nil
}

func (s *Store) CreateSoftware(ctx context.Context, serverID server.ID, sw server.Software) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv, ok := s.servers[serverID]
	if !ok {
		return domainerrors.NotFound("server", string(serverID))
	}
	srv.Software = append(srv.Software, sw)
	s.servers[serverID] = srv
	return nil
}

func (s *Store) UpdateSoftware(ctx context.Context, serverID server.ID, sw server.Software) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv, ok := s.servers[serverID]
	if !ok {
		return domainerrors.NotFound("server", string(serverID))
	}
	for i, existing := range srv.Software {
		if existing.ID == sw.ID {
			srv.Software[i] = sw
			s.servers[serverID] = srv
			return nil
		}
	}
	return domainerrors.NotFound("software", string(sw.ID))
}

func (s *Store) DeleteSoftware(ctx context.Context, serverID server.ID, id server.SoftwareID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv, ok := s.servers[serverID]
	if !ok {
		return domainerrors.NotFound("server", string(serverID))
	}
	for i, existing := range srv.Software {
		if existing.ID == id {
			srv.Software = append(srv.Software[:i], srv.Software[i+1:]...)
			s.servers[serverID] = srv
			return nil
		}
	}
	return domainerrors.NotFound("software", string(id))
}

func (s *Store) GetPlayer(ctx context.Context, id player.ID) (player.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return player.Player{}, domainerrors.NotFound("player", string(id))
	}
	return p, nil
}

func (s *Store) CreatePlayer(ctx context.Context, p player.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[p.ID] = p
	return nil
}

func (s *Store) UpdatePlayer(ctx context.Context, p player.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[p.ID]; !ok {
		return domainerrors.NotFound("player", string(p.ID))
	}
	s.players[p.ID] = p
	return nil
}

// TransferMoney atomically debits from and credits to, failing with
// InsufficientFunds without mutating either balance when the debit would
// go negative (spec §4.2, invariant 4 of §8).
func (s *Store) TransferMoney(ctx context.Context, from, to player.ID, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fromP, ok := s.players[from]
	if !ok {
		return domainerrors.NotFound("player", string(from))
	}
	toP, ok := s.players[to]
	if !ok {
		return domainerrors.NotFound("player", string(to))
	}

	if fromP.Money < amount {
		return domainerrors.InsufficientFunds(amount - fromP.Money)
	}

	fromP.Money -= amount
	toP.Money += amount
	s.players[from] = fromP
	s.players[to] = toP
	return nil
}

func (s *Store) GetClan(ctx context.Context, id player.ClanID) (player.Clan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clans[id]
	if !ok {
		return player.Clan{}, domainerrors.NotFound("clan", string(id))
	}
	return c, nil
}

func (s *Store) UpdateClan(ctx context.Context, c player.Clan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clans[c.ID] = c
	return nil
}

func (s *Store) GetWar(ctx context.Context, id player.WarID) (player.ClanWar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wars[id]
	if !ok {
		return player.ClanWar{}, domainerrors.NotFound("war", string(id))
	}
	return w, nil
}

func (s *Store) UpdateWar(ctx context.Context, w player.ClanWar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wars[w.ID] = w
	return nil
}

// ListActiveWarsEndingBy returns every WarActive war whose End is at or
// before now, the candidate set the WarEnd effect sweeps each tick.
func (s *Store) ListActiveWarsEndingBy(ctx context.Context, now time.Time) ([]player.ClanWar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []player.ClanWar
	for _, w := range s.wars {
		if w.Status == player.WarActive && w.HasEnded(now) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetMission(ctx context.Context, id string) (player.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.missions[id]
	if !ok {
		return player.Mission{}, domainerrors.NotFound("mission", id)
	}
	return m, nil
}

func (s *Store) UpdateMission(ctx context.Context, m player.Mission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missions[m.ID] = m
	return nil
}

func (s *Store) GetProcess(ctx context.Context, id domainprocess.ID) (domainprocess.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.processes[id]
	if !ok {
		return domainprocess.Process{}, domainerrors.NotFound("process", string(id))
	}
	return p, nil
}

func (s *Store) CreateProcess(ctx context.Context, p domainprocess.Process) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processes[p.ID] = p
	return nil
}

func (s *Store) UpdateProcess(ctx context.Context, p domainprocess.Process) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.processes[p.ID]; !ok {
		return domainerrors.NotFound("process", string(p.ID))
	}
	s.processes[p.ID] = p
	return nil
}

func (s *Store) DeleteProcess(ctx context.Context, id domainprocess.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.processes[id]; !ok {
		return domainerrors.NotFound("process", string(id))
	}
	delete(s.processes, id)
	return nil
}

func (s *Store) FindRunningOrQueued(ctx context.Context, key domainprocess.DedupKey) (domainprocess.Process, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.processes {
		if !p.IsActive() {
			continue
		}
		if p.Key() == key {
			return p, true, nil
		}
	}
	return domainprocess.Process{}, false, nil
}

func (s *Store) QueryProcessesForOwner(ctx context.Context, owner player.ID, c cursor.Cursor, limit int) (cursor.Page[domainprocess.Process], error) {
	s.mu.Lock()
	matches := make([]domainprocess.Process, 0)
	for _, p := range s.processes {
		if p.OwnerID == string(owner) {
			matches = append(matches, p)
		}
	}
	s.mu.Unlock()

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].QueuedAt.Equal(matches[j].QueuedAt) {
			return matches[i].QueuedAt.Before(matches[j].QueuedAt)
		}
		return matches[i].ID < matches[j].ID
	})

	start := 0
	if c.ID != nil {
		for i, p := range matches {
			if string(p.ID) == *c.ID {
				start = i + 1
				break
			}
		}
	}

	limit = cursor.ClampLimit(limit)
	end := start + limit
	hasNext := end < len(matches)
	if end > len(matches) {
		end = len(matches)
	}

	page := matches[start:end]
	next := ""
	if hasNext && len(page) > 0 {
		lastID := string(page[len(page)-1].ID)
		next = cursor.Encode(cursor.Cursor{ID: &lastID, Direction: c.Direction})
	}

	return cursor.Page[domainprocess.Process]{Items: page, NextCursor: next, HasNext: hasNext}, nil
}

func (s *Store) GetTunnel(ctx context.Context, id domainnetwork.TunnelID) (domainnetwork.Tunnel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tunnels[id]
	if !ok {
		return domainnetwork.Tunnel{}, domainerrors.NotFound("tunnel", string(id))
	}
	return t, nil
}

func (s *Store) CreateTunnel(ctx context.Context, t domainnetwork.Tunnel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tunnels[t.ID] = t
	return nil
}

func (s *Store) DeleteTunnel(ctx context.Context, id domainnetwork.TunnelID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tunnels[id]; !ok {
		return domainerrors.NotFound("tunnel", string(id))
	}
	delete(s.tunnels, id)
	return nil
}

func (s *Store) GetConnection(ctx context.Context, id domainnetwork.ConnectionID) (domainnetwork.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.connections[id]
	if !ok {
		return domainnetwork.Connection{}, domainerrors.NotFound("connection", string(id))
	}
	return c, nil
}

func (s *Store) CreateConnection(ctx context.Context, c domainnetwork.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections[c.ID] = c
	return nil
}

func (s *Store) UpdateConnection(ctx context.Context, c domainnetwork.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.connections[c.ID]; !ok {
		return domainerrors.NotFound("connection", string(c.ID))
	}
	s.connections[c.ID] = c
	return nil
}

func (s *Store) ConnectionsForTunnel(ctx context.Context, tunnelID domainnetwork.TunnelID) ([]domainnetwork.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domainnetwork.Connection
	for _, c := range s.connections {
		if c.TunnelID == tunnelID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AppendLog assigns the next sequence number for serverID (strictly
// increasing, non-decreasing timestamp per spec §4.2) and appends entry.
func (s *Store) AppendLog(ctx context.Context, serverID server.ID, entry audit.Entry) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.logs[serverID]
	seq := uint64(1)
	if len(existing) > 0 {
		seq = existing[len(existing)-1].Seq + 1
	}
	entry.ServerID = serverID
	entry.Seq = seq
	s.logs[serverID] = append(existing, entry)
	return seq, nil
}

func (s *Store) GetLog(ctx context.Context, serverID server.ID, seq uint64) (audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.logs[serverID] {
		if e.Seq == seq {
			return e, nil
		}
	}
	return audit.Entry{}, domainerrors.NotFound("log", strconv.FormatUint(seq, 10))
}

func (s *Store) TombstoneLog(ctx context.Context, serverID server.ID, seq uint64, editedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.logs[serverID] {
		if e.Seq == seq {
			e.Tombstoned = true
			e.EditedBy = &editedBy
			s.logs[serverID][i] = e
			return nil
		}
	}
	return domainerrors.NotFound("log", strconv.FormatUint(seq, 10))
}

func (s *Store) HideLog(ctx context.Context, serverID server.ID, seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.logs[serverID] {
		if e.Seq == seq {
			e.Hidden = true
			s.logs[serverID][i] = e
			return nil
		}
	}
	return domainerrors.NotFound("log", strconv.FormatUint(seq, 10))
}
