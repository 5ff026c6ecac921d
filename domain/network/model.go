// Package network defines Tunnel, Connection and Bounce (spec §3 "Tunnel",
// "Connection"), grounded on he-helix-network/src/model.rs's Tunnel/
// Connection/Bounce shapes.
package network

import (
	"time"

	"github.com/techmad220/hackerexperience-go/domain/server"
)

// TunnelID identifies a tunnel.
type TunnelID string

// ConnectionID identifies a connection.
type ConnectionID string

// ConnectionType names the kind of connection carried over a tunnel.
type ConnectionType string

const (
	ConnectionSSH    ConnectionType = "ssh"
	ConnectionFTP    ConnectionType = "ftp"
	ConnectionPublic ConnectionType = "public"
)

// Tunnel is an ordered pair (gateway, target) plus an optional bounce chain
// of intermediate hops (spec §3).
type Tunnel struct {
	ID        TunnelID
	Gateway   server.ID
	Target    server.ID
	Hops      []server.ID // intermediate bounce hops, gateway -> ... -> target
	IsCyclic  bool        // true iff Gateway == Target, explicitly marked
	CreatedAt time.Time
}

// HopCount returns the number of intermediate hops.
func (t Tunnel) HopCount() int { return len(t.Hops) }

// HasBounce reports whether the tunnel routes through any intermediate hop.
func (t Tunnel) HasBounce() bool { return len(t.Hops) > 0 }

// CloseReason tags why a Connection was closed.
type CloseReason string

const (
	CloseExplicit    CloseReason = "explicit"
	CloseTunnelTorn  CloseReason = "tunnel_torn_down"
	CloseIdleTimeout CloseReason = "idle_timeout"
)

// Connection is a specific connection type carried within a tunnel (spec §3).
type Connection struct {
	ID         ConnectionID
	TunnelID   TunnelID
	Type       ConnectionType
	Metadata   map[string]string
	CreatedAt  time.Time
	ClosedAt   *time.Time
	CloseCause CloseReason
}

// IsActive reports whether the connection is open (spec §3 invariant: active
// iff close time is absent).
func (c Connection) IsActive() bool { return c.ClosedAt == nil }
