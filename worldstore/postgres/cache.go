package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/techmad220/hackerexperience-go/domain/player"
	"github.com/techmad220/hackerexperience-go/domain/server"
	"github.com/techmad220/hackerexperience-go/infrastructure/metrics"
	"github.com/techmad220/hackerexperience-go/worldstore"
)

// CachedStore wraps a worldstore.Store with a Redis read-through cache for
// GetServer/GetPlayer, the two lookups every process-admission check and
// every effect application hits at least once (spec §4.2). The rest of the
// Store surface passes straight through uncached: mutations invalidate the
// relevant key so a stale read is never served after a write through this
// wrapper, and the go-redis/redis/v8 client is a teacher go.mod dependency
// that nothing in the teacher's own source actually imports — this is where
// it finally earns its place.
type CachedStore struct {
	worldstore.Store
	rdb *redis.Client
	ttl time.Duration
	m   *metrics.Metrics
}

// NewCachedStore wraps inner with a Redis read-through cache. m may be nil
// to skip store-operation metrics recording.
func NewCachedStore(inner worldstore.Store, rdb *redis.Client, ttl time.Duration, m *metrics.Metrics) *CachedStore {
	return &CachedStore{Store: inner, rdb: rdb, ttl: ttl, m: m}
}

var _ worldstore.Store = (*CachedStore)(nil)

func serverCacheKey(id server.ID) string { return "server:" + string(id) }
func playerCacheKey(id player.ID) string { return "player:" + string(id) }

func (c *CachedStore) recordOp(operation, status string, d time.Duration) {
	if c.m != nil {
		c.m.RecordStoreOperation(operation, status, d)
	}
}

// GetServer checks Redis first, falling back to the wrapped Store and
// populating the cache on a miss. Redis errors other than redis.Nil degrade
// to a pass-through read rather than failing the caller — the cache is a
// performance optimization, not a source of truth.
func (c *CachedStore) GetServer(ctx context.Context, id server.ID) (server.Server, error) {
	start := time.Now()
	key := serverCacheKey(id)

	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var srv server.Server
		if jerr := json.Unmarshal(raw, &srv); jerr == nil {
			c.recordOp("get_server", "cache_hit", time.Since(start))
			return srv, nil
		}
	}

	srv, err := c.Store.GetServer(ctx, id)
	if err != nil {
		c.recordOp("get_server", "miss_error", time.Since(start))
		return server.Server{}, err
	}
	c.recordOp("get_server", "cache_miss", time.Since(start))

	if raw, jerr := json.Marshal(srv); jerr == nil {
		_ = c.rdb.Set(ctx, key, raw, c.ttl).Err()
	}
	return srv, nil
}

func (c *CachedStore) CreateServer(ctx context.Context, srv server.Server) error {
	if err := c.Store.CreateServer(ctx, srv); err != nil {
		return err
	}
	c.invalidateServer(ctx, srv.ID)
	return nil
}

func (c *CachedStore) UpdateServer(ctx context.Context, srv server.Server) error {
	if err := c.Store.UpdateServer(ctx, srv); err != nil {
		return err
	}
	c.invalidateServer(ctx, srv.ID)
	return nil
}

func (c *CachedStore) DeleteServer(ctx context.Context, id server.ID) error {
	if err := c.Store.DeleteServer(ctx, id); err != nil {
		return err
	}
	c.invalidateServer(ctx, id)
	return nil
}

func (c *CachedStore) CreateSoftware(ctx context.Context, serverID server.ID, sw server.Software) error {
	if err := c.Store.CreateSoftware(ctx, serverID, sw); err != nil {
		return err
	}
	c.invalidateServer(ctx, serverID)
	return nil
}

func (c *CachedStore) UpdateSoftware(ctx context.Context, serverID server.ID, sw server.Software) error {
	if err := c.Store.UpdateSoftware(ctx, serverID, sw); err != nil {
		return err
	}
	c.invalidateServer(ctx, serverID)
	return nil
}

func (c *CachedStore) DeleteSoftware(ctx context.Context, serverID server.ID, id server.SoftwareID) error {
	if err := c.Store.DeleteSoftware(ctx, serverID, id); err != nil {
		return err
	}
	c.invalidateServer(ctx, serverID)
	return nil
}

func (c *CachedStore) invalidateServer(ctx context.Context, id server.ID) {
	_ = c.rdb.Del(ctx, serverCacheKey(id)).Err()
}

// GetPlayer mirrors GetServer's read-through behavior for the Player entity.
func (c *CachedStore) GetPlayer(ctx context.Context, id player.ID) (player.Player, error) {
	start := time.Now()
	key := playerCacheKey(id)

	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var p player.Player
		if jerr := json.Unmarshal(raw, &p); jerr == nil {
			c.recordOp("get_player", "cache_hit", time.Since(start))
			return p, nil
		}
	}

	p, err := c.Store.GetPlayer(ctx, id)
	if err != nil {
		c.recordOp("get_player", "miss_error", time.Since(start))
		return player.Player{}, err
	}
	c.recordOp("get_player", "cache_miss", time.Since(start))

	if raw, jerr := json.Marshal(p); jerr == nil {
		_ = c.rdb.Set(ctx, key, raw, c.ttl).Err()
	}
	return p, nil
}

func (c *CachedStore) CreatePlayer(ctx context.Context, p player.Player) error {
	if err := c.Store.CreatePlayer(ctx, p); err != nil {
		return err
	}
	c.invalidatePlayer(ctx, p.ID)
	return nil
}

func (c *CachedStore) UpdatePlayer(ctx context.Context, p player.Player) error {
	if err := c.Store.UpdatePlayer(ctx, p); err != nil {
		return err
	}
	c.invalidatePlayer(ctx, p.ID)
	return nil
}

func (c *CachedStore) TransferMoney(ctx context.Context, from, to player.ID, amount int64) error {
	if err := c.Store.TransferMoney(ctx, from, to, amount); err != nil {
		return err
	}
	c.invalidatePlayer(ctx, from)
	c.invalidatePlayer(ctx, to)
	return nil
}

func (c *CachedStore) invalidatePlayer(ctx context.Context, id player.ID) {
	_ = c.rdb.Del(ctx, playerCacheKey(id)).Err()
}

// WithTxn bypasses the cache entirely for the duration of the transaction:
// the callback receives the wrapped Store directly so every read inside a
// transaction goes straight to Postgres, never a stale cache entry, while
// the pre-transaction invalidation from whichever mutator opened the
// transaction's surrounding request still fires on this wrapper.
func (c *CachedStore) WithTxn(ctx context.Context, fn func(ctx context.Context, txn worldstore.Store) error) error {
	return c.Store.WithTxn(ctx, fn)
}
