// Package network implements tunnel construction and route finding (spec
// §4.4 "Network Model (C4)"), grounded on
// he-helix-network/src/model.rs::Tunnel/Connection/Bounce. The adjacency
// graph and ip→server resolution are owned by package worldstore; this
// package depends only on the small Resolver/Graph seams below so it never
// reaches back into worldstore (spec §9's arena/index re-architecture note:
// engines hold ids and talk through narrow seams, not shared mutable state).
package network

import (
	"sort"
	"time"

	"github.com/techmad220/hackerexperience-go/domain/network"
	"github.com/techmad220/hackerexperience-go/domain/server"
	domainerrors "github.com/techmad220/hackerexperience-go/infrastructure/errors"
)

// Resolver looks up the server behind an ip and reports online status,
// satisfied by worldstore.Store in production and an in-memory fake in
// tests.
type Resolver interface {
	ResolveIP(ip string) (server.ID, bool)
	IsOnline(id server.ID) bool
}

// Graph exposes the static adjacency the world generator produced, used by
// FindRoute's breadth-first search. Neighbors must be returned in a stable
// order for FindRoute's tie-break to be deterministic; callers that don't
// care about ordering can sort by ip before returning.
type Graph interface {
	Neighbors(id server.ID) []server.ID
	IPOf(id server.ID) string
}

// BuildTunnel resolves targetIP and each hop ip in bounce to a server id,
// verifies every hop is online, and returns a Tunnel ordered
// source->...->target (spec §4.4 "Tunnel construction").
func BuildTunnel(r Resolver, newID network.TunnelID, source server.ID, targetIP string, bounce []string, now time.Time) (network.Tunnel, error) {
	targetID, ok := r.ResolveIP(targetIP)
	if !ok {
		return network.Tunnel{}, domainerrors.InvalidRoute("target ip does not resolve to a server")
	}

	hops := make([]server.ID, 0, len(bounce))
	for _, ip := range bounce {
		hopID, ok := r.ResolveIP(ip)
		if !ok {
			return network.Tunnel{}, domainerrors.InvalidRoute("bounce hop ip does not resolve to a server")
		}
		if !r.IsOnline(hopID) {
			return network.Tunnel{}, domainerrors.HopOffline(ip)
		}
		hops = append(hops, hopID)
	}

	return network.Tunnel{
		ID:        newID,
		Gateway:   source,
		Target:    targetID,
		Hops:      hops,
		IsCyclic:  source == targetID,
		CreatedAt: now,
	}, nil
}

// FindRoute returns the breadth-first shortest path from source to target
// over g, ties broken by lower ip string (spec §4.4 "Route finding"). An
// identical source and target yields an empty path with isCyclic = true.
// A target unreachable from source yields InvalidRoute.
func FindRoute(g Graph, source, target server.ID) (path []server.ID, isCyclic bool, err error) {
	if source == target {
		return nil, true, nil
	}

	type queued struct {
		id   server.ID
		path []server.ID
	}

	visited := map[server.ID]bool{source: true}
	queue := []queued{{id: source, path: nil}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		neighbors := append([]server.ID(nil), g.Neighbors(cur.id)...)
		sort.Slice(neighbors, func(i, j int) bool {
			return g.IPOf(neighbors[i]) < g.IPOf(neighbors[j])
		})

		for _, n := range neighbors {
			if visited[n] {
				continue
			}
			visited[n] = true
			nextPath := append(append([]server.ID(nil), cur.path...), n)
			if n == target {
				return nextPath, false, nil
			}
			queue = append(queue, queued{id: n, path: nextPath})
		}
	}

	return nil, false, domainerrors.InvalidRoute("target unreachable from source")
}
