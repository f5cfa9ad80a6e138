package routing

import (
	"net/netip"
	"testing"
)

func TestTableLookupLongestPrefixWins(t *testing.T) {
	tbl := NewTable()
	tbl.Insert(Route{Prefix: netip.MustParsePrefix("10.0.0.0/8"), Iface: 1})
	tbl.Insert(Route{Prefix: netip.MustParsePrefix("10.0.0.0/24"), Iface: 2})

	route, ok := tbl.Lookup(netip.MustParseAddr("10.0.0.5"))
	if !ok {
		t.Fatal("want a match")
	}
	if route.Iface != 2 {
		t.Errorf("want the more specific /24 route (iface 2), got iface %d", route.Iface)
	}
}

func TestTableLookupNoMatch(t *testing.T) {
	tbl := NewTable()
	tbl.Insert(Route{Prefix: netip.MustParsePrefix("10.0.0.0/24"), Iface: 1})
	_, ok := tbl.Lookup(netip.MustParseAddr("192.168.1.1"))
	if ok {
		t.Error("want no match for an address outside every prefix")
	}
}

func TestTableLookupTieBreaksByInsertionOrder(t *testing.T) {
	tbl := NewTable()
	tbl.Insert(Route{Prefix: netip.MustParsePrefix("10.0.0.0/24"), Iface: 1})
	tbl.Insert(Route{Prefix: netip.MustParsePrefix("10.0.0.0/24"), Iface: 2})

	route, ok := tbl.Lookup(netip.MustParseAddr("10.0.0.5"))
	if !ok {
		t.Fatal("want a match")
	}
	if route.Iface != 1 {
		t.Errorf("want the earlier-inserted route (iface 1) to win the tie, got iface %d", route.Iface)
	}
}

func TestTableRemove(t *testing.T) {
	tbl := NewTable()
	prefix := netip.MustParsePrefix("10.0.0.0/24")
	tbl.Insert(Route{Prefix: prefix, Iface: 1})
	tbl.Remove(prefix)
	_, ok := tbl.Lookup(netip.MustParseAddr("10.0.0.5"))
	if ok {
		t.Error("want no match after Remove")
	}
}

func TestTableRoutesOrdering(t *testing.T) {
	tbl := NewTable()
	tbl.Insert(Route{Prefix: netip.MustParsePrefix("0.0.0.0/0"), Iface: 0})
	tbl.Insert(Route{Prefix: netip.MustParsePrefix("10.0.0.0/24"), Iface: 1})
	tbl.Insert(Route{Prefix: netip.MustParsePrefix("10.0.0.0/8"), Iface: 2})

	routes := tbl.Routes()
	if len(routes) != 3 {
		t.Fatalf("want 3 routes, got %d", len(routes))
	}
	if routes[0].Iface != 1 || routes[1].Iface != 2 || routes[2].Iface != 0 {
		t.Errorf("want routes ordered by descending prefix length (1, 2, 0), got (%d, %d, %d)",
			routes[0].Iface, routes[1].Iface, routes[2].Iface)
	}
}

func TestTableNextHopZeroMeansOnLink(t *testing.T) {
	tbl := NewTable()
	tbl.Insert(Route{Prefix: netip.MustParsePrefix("10.0.0.0/24"), Iface: 1})
	route, ok := tbl.Lookup(netip.MustParseAddr("10.0.0.5"))
	if !ok {
		t.Fatal("want a match")
	}
	if route.NextHop.IsValid() {
		t.Error("want a zero NextHop for an on-link route")
	}
}
