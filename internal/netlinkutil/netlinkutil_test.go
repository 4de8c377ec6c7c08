package netlinkutil

import (
	"net"
	"testing"
)

// The rtnetlink-backed functions require a real kernel netlink socket
// and have no unit tests; only the pure formatting helper is unit
// tested here.

func TestAddrCIDR(t *testing.T) {
	got := addrCIDR(net.ParseIP("192.168.1.5"), 24)
	want := "192.168.1.5/24"
	if got != want {
		t.Fatalf("addrCIDR() = %q, want %q", got, want)
	}
}
