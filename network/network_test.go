package network

import (
	"testing"
	"time"

	"github.com/techmad220/hackerexperience-go/domain/network"
	"github.com/techmad220/hackerexperience-go/domain/server"
	domainerrors "github.com/techmad220/hackerexperience-go/infrastructure/errors"
)

type fakeResolver struct {
	byIP   map[string]server.ID
	online map[server.ID]bool
}

func (f fakeResolver) ResolveIP(ip string) (server.ID, bool) {
	id, ok := f.byIP[ip]
	return id, ok
}

func (f fakeResolver) IsOnline(id server.ID) bool {
	return f.online[id]
}

func TestBuildTunnelSimple(t *testing.T) {
	r := fakeResolver{
		byIP:   map[string]server.ID{"1.2.3.4": "srv-b"},
		online: map[server.ID]bool{"srv-b": true},
	}

	tun, err := BuildTunnel(r, "tun-1", "srv-a", "1.2.3.4", nil, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tun.Gateway != "srv-a" || tun.Target != "srv-b" {
		t.Fatalf("unexpected tunnel endpoints: %+v", tun)
	}
	if tun.IsCyclic {
		t.Fatalf("distinct source/target should not be cyclic")
	}
	if tun.HasBounce() {
		t.Fatalf("no bounce requested, HasBounce should be false")
	}
}

func TestBuildTunnelUnresolvableTarget(t *testing.T) {
	r := fakeResolver{byIP: map[string]server.ID{}}
	_, err := BuildTunnel(r, "tun-1", "srv-a", "9.9.9.9", nil, time.Unix(0, 0))
	if !domainerrors.Is(err, domainerrors.KindInvalidRoute) {
		t.Fatalf("expected InvalidRoute, got %v", err)
	}
}

func TestBuildTunnelOfflineHop(t *testing.T) {
	r := fakeResolver{
		byIP: map[string]server.ID{
			"1.2.3.4": "srv-b",
			"5.6.7.8": "srv-hop",
		},
		online: map[server.ID]bool{"srv-b": true, "srv-hop": false},
	}

	_, err := BuildTunnel(r, "tun-1", "srv-a", "1.2.3.4", []string{"5.6.7.8"}, time.Unix(0, 0))
	if !domainerrors.Is(err, domainerrors.KindHopOffline) {
		t.Fatalf("expected HopOffline, got %v", err)
	}
}

type fakeGraph struct {
	edges map[server.ID][]server.ID
	ips   map[server.ID]string
}

func (g fakeGraph) Neighbors(id server.ID) []server.ID { return g.edges[id] }
func (g fakeGraph) IPOf(id server.ID) string           { return g.ips[id] }

func TestFindRouteCyclic(t *testing.T) {
	path, cyclic, err := FindRoute(fakeGraph{}, "srv-a", "srv-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cyclic || len(path) != 0 {
		t.Fatalf("identical source/target must yield empty cyclic path, got %v cyclic=%v", path, cyclic)
	}
}

func TestFindRouteShortestPathTieBreakByIP(t *testing.T) {
	// a -> {b, c} -> d ; b and c both reach d in one hop, b's ip sorts lower.
	g := fakeGraph{
		edges: map[server.ID][]server.ID{
			"a": {"c", "b"}, // deliberately unsorted to exercise the tie-break
			"b": {"d"},
			"c": {"d"},
		},
		ips: map[server.ID]string{
			"a": "10.0.0.1", "b": "10.0.0.2", "c": "10.0.0.3", "d": "10.0.0.4",
		},
	}

	path, cyclic, err := FindRoute(g, "a", "d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cyclic {
		t.Fatalf("distinct source/target should not be cyclic")
	}
	if len(path) != 2 || path[0] != "b" || path[1] != "d" {
		t.Fatalf("expected path [b d] via lower-ip tie-break, got %v", path)
	}
}

func TestFindRouteUnreachable(t *testing.T) {
	g := fakeGraph{edges: map[server.ID][]server.ID{"a": {}}}
	_, _, err := FindRoute(g, "a", "z")
	if !domainerrors.Is(err, domainerrors.KindInvalidRoute) {
		t.Fatalf("expected InvalidRoute for unreachable target, got %v", err)
	}
}

func TestConnectionIdleTimeout(t *testing.T) {
	timeouts := DefaultIdleTimeouts()
	c := &network.Connection{Type: network.ConnectionPublic}

	start := time.Unix(0, 0)
	if CheckIdle(timeouts, c, start, start.Add(time.Minute)) {
		t.Fatalf("one minute is within the public idle window")
	}
	if !c.IsActive() {
		t.Fatalf("connection should still be active")
	}

	closed := CheckIdle(timeouts, c, start, start.Add(3*time.Minute))
	if !closed {
		t.Fatalf("three minutes should exceed the public idle window")
	}
	if c.IsActive() {
		t.Fatalf("connection should now be closed")
	}
	if c.CloseCause != network.CloseIdleTimeout {
		t.Fatalf("expected CloseIdleTimeout, got %v", c.CloseCause)
	}
}

func TestCloseAllForTunnel(t *testing.T) {
	a := &network.Connection{}
	b := &network.Connection{}
	CloseAllForTunnel([]*network.Connection{a, b}, time.Unix(0, 0))
	if a.IsActive() || b.IsActive() {
		t.Fatalf("expected both connections closed")
	}
	if a.CloseCause != network.CloseTunnelTorn || b.CloseCause != network.CloseTunnelTorn {
		t.Fatalf("expected CloseTunnelTorn reason")
	}
}
