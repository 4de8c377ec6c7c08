// Package netlinkutil wraps the handful of kernel queries the
// supervisors and connection manager need: the current default route,
// an interface's first IPv4 address, its operstate, and flushing /
// downing an interface. Each operation dials its own rtnetlink
// connection and closes it before returning, matching the one-shot
// query style the teacher uses rtnetlink for (as opposed to holding a
// long-lived watch connection, which is what the teacher's
// netlink.Watcher does for events - this package only ever polls).
//
// All three read operations swallow kernel-side errors and return a
// zero value rather than propagating them: a link that's mid-removal
// or a netlink dial that races a network namespace change is routine,
// not exceptional, for a reconcile loop that just tries again next
// iteration.
package netlinkutil

import (
	"net"
	"strconv"

	"github.com/jsimonetti/rtnetlink"
	"golang.org/x/sys/unix"
)

// DefaultRoute is the selected default route: the lowest-RTA_PRIORITY
// default route's output interface name and gateway. Both fields are
// empty if there is no default route at all.
type DefaultRoute struct {
	Ifname string
	IP     string
}

// GetDefaultRoute enumerates the kernel's IPv4 default routes and
// returns the one with the lowest priority (ties broken by whichever
// the kernel returned first).
func GetDefaultRoute() DefaultRoute {
	conn, err := rtnetlink.Dial(nil)
	if err != nil {
		return DefaultRoute{}
	}
	defer conn.Close()

	routes, err := conn.Route.List()
	if err != nil {
		return DefaultRoute{}
	}

	var (
		havePrio bool
		prio     uint32
		oif      uint32
		gw       net.IP
	)

	for _, r := range routes {
		if r.Attributes.Dst != nil {
			continue // not a default route
		}
		if r.Family != 2 { // AF_INET
			continue
		}

		p := r.Attributes.Priority
		if !havePrio || p < prio {
			havePrio = true
			prio = p
			oif = r.Attributes.OutIface
			gw = r.Attributes.Gateway
		}
	}

	if !havePrio || oif == 0 {
		return DefaultRoute{}
	}

	links, err := conn.Link.List()
	if err != nil {
		return DefaultRoute{}
	}

	for _, l := range links {
		if l.Index == oif {
			ret := DefaultRoute{Ifname: l.Attributes.Name}
			if gw != nil {
				ret.IP = gw.String()
			}
			return ret
		}
	}

	return DefaultRoute{}
}

// GetAddress returns the first IPv4 local address on ifname, formatted
// as CIDR ("192.168.1.5/24"), or "" if the interface has none or
// ifname is empty.
func GetAddress(ifname string) string {
	if ifname == "" {
		return ""
	}

	conn, err := rtnetlink.Dial(nil)
	if err != nil {
		return ""
	}
	defer conn.Close()

	idx, ok := linkIndex(conn, ifname)
	if !ok {
		return ""
	}

	addrs, err := conn.Address.List()
	if err != nil {
		return ""
	}

	for _, a := range addrs {
		if a.Index != idx || a.Family != 2 {
			continue
		}
		if a.Attributes.Local == nil {
			continue
		}
		return addrCIDR(a.Attributes.Local, a.PrefixLength)
	}

	return ""
}

// GetOperstate returns IFLA_OPERSTATE for ifname ("up", "down",
// "unknown", ...) or "" if unknown.
func GetOperstate(ifname string) string {
	if ifname == "" {
		return ""
	}

	conn, err := rtnetlink.Dial(nil)
	if err != nil {
		return ""
	}
	defer conn.Close()

	links, err := conn.Link.List()
	if err != nil {
		return ""
	}

	for _, l := range links {
		if l.Attributes.Name == ifname {
			return l.Attributes.OperationalState.String()
		}
	}

	return ""
}

// IfaceDown flushes every IPv4 address from ifname and sets the link
// administratively down. Never errors out - a missing interface is a
// no-op.
func IfaceDown(ifname string) {
	if ifname == "" {
		return
	}

	conn, err := rtnetlink.Dial(nil)
	if err != nil {
		return
	}
	defer conn.Close()

	idx, ok := linkIndex(conn, ifname)
	if !ok {
		return
	}

	addrs, err := conn.Address.List()
	if err == nil {
		for _, a := range addrs {
			if a.Index == idx {
				_ = conn.Address.Delete(&a)
			}
		}
	}

	_ = conn.Link.Set(&rtnetlink.LinkMessage{
		Index:  idx,
		Flags:  0,
		Change: unix.IFF_UP,
	})
}

func linkIndex(conn *rtnetlink.Conn, ifname string) (uint32, bool) {
	links, err := conn.Link.List()
	if err != nil {
		return 0, false
	}
	for _, l := range links {
		if l.Attributes.Name == ifname {
			return l.Index, true
		}
	}
	return 0, false
}

func addrCIDR(ip net.IP, prefix uint8) string {
	return ip.String() + "/" + strconv.Itoa(int(prefix))
}
