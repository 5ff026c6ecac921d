package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	domainnetwork "github.com/techmad220/hackerexperience-go/domain/network"
	"github.com/techmad220/hackerexperience-go/domain/server"
	domainerrors "github.com/techmad220/hackerexperience-go/infrastructure/errors"
)

type tunnelRow struct {
	ID        string          `db:"id"`
	Gateway   string          `db:"gateway"`
	Target    string          `db:"target"`
	Hops      json.RawMessage `db:"hops"`
	IsCyclic  bool            `db:"is_cyclic"`
	CreatedAt time.Time       `db:"created_at"`
}

func (r tunnelRow) toDomain() (domainnetwork.Tunnel, error) {
	var hops []server.ID
	if len(r.Hops) > 0 {
		if err := json.Unmarshal(r.Hops, &hops); err != nil {
			return domainnetwork.Tunnel{}, domainerrors.StoreError("scan_tunnel", err)
		}
	}
	return domainnetwork.Tunnel{
		ID: domainnetwork.TunnelID(r.ID), Gateway: server.ID(r.Gateway), Target: server.ID(r.Target),
		Hops: hops, IsCyclic: r.IsCyclic, CreatedAt: r.CreatedAt,
	}, nil
}

func (s *Store) GetTunnel(ctx context.Context, id domainnetwork.TunnelID) (domainnetwork.Tunnel, error) {
	var row tunnelRow
	err := sqlx.GetContext(ctx, s.ext, &row, `
		SELECT id, gateway, target, hops, is_cyclic, created_at FROM tunnels WHERE id = $1`, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return domainnetwork.Tunnel{}, domainerrors.NotFound("tunnel", string(id))
	}
	if err != nil {
		return domainnetwork.Tunnel{}, domainerrors.StoreError("get_tunnel", err)
	}
	return row.toDomain()
}

func (s *Store) CreateTunnel(ctx context.Context, t domainnetwork.Tunnel) error {
	hopsJSON, err := json.Marshal(t.Hops)
	if err != nil {
		return domainerrors.StoreError("create_tunnel", err)
	}
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = s.ext.ExecContext(ctx, `
		INSERT INTO tunnels (id, gateway, target, hops, is_cyclic, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(t.ID), string(t.Gateway), string(t.Target), hopsJSON, t.IsCyclic, createdAt)
	if err != nil {
		return domainerrors.StoreError("create_tunnel", err)
	}
	return nil
}

func (s *Store) DeleteTunnel(ctx context.Context, id domainnetwork.TunnelID) error {
	result, err := s.ext.ExecContext(ctx, `DELETE FROM tunnels WHERE id = $1`, string(id))
	if err != nil {
		return domainerrors.StoreError("delete_tunnel", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domainerrors.NotFound("tunnel", string(id))
	}
	return nil
}

type connectionRow struct {
	ID         string          `db:"id"`
	TunnelID   string          `db:"tunnel_id"`
	Type       string          `db:"type"`
	Metadata   json.RawMessage `db:"metadata"`
	CreatedAt  time.Time       `db:"created_at"`
	ClosedAt   sql.NullTime    `db:"closed_at"`
	CloseCause string          `db:"close_cause"`
}

func (r connectionRow) toDomain() (domainnetwork.Connection, error) {
	var metadata map[string]string
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &metadata); err != nil {
			return domainnetwork.Connection{}, domainerrors.StoreError("scan_connection", err)
		}
	}
	return domainnetwork.Connection{
		ID: domainnetwork.ConnectionID(r.ID), TunnelID: domainnetwork.TunnelID(r.TunnelID),
		Type: domainnetwork.ConnectionType(r.Type), Metadata: metadata, CreatedAt: r.CreatedAt,
		ClosedAt: timePtrFromNull(r.ClosedAt), CloseCause: domainnetwork.CloseReason(r.CloseCause),
	}, nil
}

func (s *Store) GetConnection(ctx context.Context, id domainnetwork.ConnectionID) (domainnetwork.Connection, error) {
	var row connectionRow
	err := sqlx.GetContext(ctx, s.ext, &row, `
		SELECT id, tunnel_id, type, metadata, created_at, closed_at, close_cause
		FROM connections WHERE id = $1`, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return domainnetwork.Connection{}, domainerrors.NotFound("connection", string(id))
	}
	if err != nil {
		return domainnetwork.Connection{}, domainerrors.StoreError("get_connection", err)
	}
	return row.toDomain()
}

func (s *Store) CreateConnection(ctx context.Context, c domainnetwork.Connection) error {
	metadataJSON, err := json.Marshal(c.Metadata)
	if err != nil {
		return domainerrors.StoreError("create_connection", err)
	}
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = s.ext.ExecContext(ctx, `
		INSERT INTO connections (id, tunnel_id, type, metadata, created_at, closed_at, close_cause)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(c.ID), string(c.TunnelID), string(c.Type), metadataJSON, createdAt,
		nullTimePtr(c.ClosedAt), string(c.CloseCause))
	if err != nil {
		return domainerrors.StoreError("create_connection", err)
	}
	return nil
}

func (s *Store) UpdateConnection(ctx context.Context, c domainnetwork.Connection) error {
	metadataJSON, err := json.Marshal(c.Metadata)
	if err != nil {
		return domainerrors.StoreError("update_connection", err)
	}
	result, err := s.ext.ExecContext(ctx, `
		UPDATE connections SET tunnel_id = $2, type = $3, metadata = $4, closed_at = $5, close_cause = $6
		WHERE id = $1`,
		string(c.ID), string(c.TunnelID), string(c.Type), metadataJSON, nullTimePtr(c.ClosedAt), string(c.CloseCause))
	if err != nil {
		return domainerrors.StoreError("update_connection", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domainerrors.NotFound("connection", string(c.ID))
	}
	return nil
}

func (s *Store) ConnectionsForTunnel(ctx context.Context, tunnelID domainnetwork.TunnelID) ([]domainnetwork.Connection, error) {
	var rows []connectionRow
	err := sqlx.SelectContext(ctx, s.ext, &rows, `
		SELECT id, tunnel_id, type, metadata, created_at, closed_at, close_cause
		FROM connections WHERE tunnel_id = $1 ORDER BY id`, string(tunnelID))
	if err != nil {
		return nil, domainerrors.StoreError("connections_for_tunnel", err)
	}
	out := make([]domainnetwork.Connection, 0, len(rows))
	for _, r := range rows {
		c, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
