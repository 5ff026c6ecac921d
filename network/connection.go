package network

import (
	"time"

	"github.com/techmad220/hackerexperience-go/domain/network"
)

// IdleTimeouts maps a connection type to how long it may sit idle before
// CheckIdle closes it (spec §4.4 "Connection lifecycle").
type IdleTimeouts map[network.ConnectionType]time.Duration

// DefaultIdleTimeouts mirrors the reference implementation's per-type idle
// windows: interactive SSH sessions are given much more slack than bulk FTP
// transfers or anonymous public connections.
func DefaultIdleTimeouts() IdleTimeouts {
	return IdleTimeouts{
		network.ConnectionSSH:    30 * time.Minute,
		network.ConnectionFTP:    5 * time.Minute,
		network.ConnectionPublic: 2 * time.Minute,
	}
}

// Close marks c closed with the given reason at now, recording the reason
// tag the spec requires on every close.
func Close(c *network.Connection, reason network.CloseReason, now time.Time) {
	t := now
	c.ClosedAt = &t
	c.CloseCause = reason
}

// CheckIdle closes c with CloseIdleTimeout if it has been open longer than
// its type's configured idle window and lastActivity precedes the cutoff.
func CheckIdle(timeouts IdleTimeouts, c *network.Connection, lastActivity, now time.Time) bool {
	if !c.IsActive() {
		return false
	}
	window, ok := timeouts[c.Type]
	if !ok {
		return false
	}
	if now.Sub(lastActivity) < window {
		return false
	}
	Close(c, network.CloseIdleTimeout, now)
	return true
}

// CloseAllForTunnel closes every active connection on a torn-down tunnel
// with CloseTunnelTorn, per spec §4.4's "(b) owning tunnel torn down".
func CloseAllForTunnel(conns []*network.Connection, now time.Time) {
	for _, c := range conns {
		if c.IsActive() {
			Close(c, network.CloseTunnelTorn, now)
		}
	}
}
