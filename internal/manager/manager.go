// Package manager implements the connection manager (spec.md §4.9): it
// owns one supervisor per link kind plus the manager-loop worker that
// keeps resolv.conf in sync with whichever link currently holds the
// default route, and periodically re-probes online reachability.
package manager

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rehivetech/netconnectd/internal/netconfig"
	"github.com/rehivetech/netconnectd/internal/netlinkutil"
	"github.com/rehivetech/netconnectd/internal/networkd"
	"github.com/rehivetech/netconnectd/internal/supervisor"
	"github.com/rehivetech/netconnectd/internal/wpacli"
)

// eventWait bounds how long the manager loop waits for a connectivity
// event before re-checking the default route on its own, per spec.md
// §4.9.
const eventWait = 10 * time.Second

// probePeriod is the periodic re-probe interval once online, per
// spec.md §4.9's "30 min" wording.
const probePeriod = 30 * time.Minute

var fallbackDNS = []string{"8.8.8.8", "8.8.4.4"}

// Manager is the connection manager.
type Manager struct {
	lan        *supervisor.Base
	wifiClient *supervisor.WifiClientSupervisor
	wifiAP     *supervisor.Base
	lte        *supervisor.Base

	connEvent      *supervisor.ConnEvent
	resolvConfPath string

	mu        sync.Mutex
	testHost  string
	online    bool
	lastCheck int64
	dns       []string
}

// New builds a Manager with its four supervisors sharing one
// connectivity event; the LAN and both Wi-Fi supervisors also share one
// networkd.Writer (the LTE supervisor writes no networkd file), per
// spec.md §4.9's "owns one supervisor of each kind".
func New(networkdDir, resolvConfPath, testHost string) *Manager {
	connEvent := supervisor.NewConnEvent()
	w := networkd.New(networkdDir)

	return &Manager{
		lan:            supervisor.NewLAN(w, connEvent),
		wifiClient:     supervisor.NewWifiClient(w, connEvent),
		wifiAP:         supervisor.NewWifiAP(w, connEvent),
		lte:            supervisor.NewLTE(connEvent),
		connEvent:      connEvent,
		resolvConfPath: resolvConfPath,
		testHost:       testHost,
		dns:            fallbackDNS,
	}
}

// Connect forwards each sub-config to its matching supervisor; a nil
// sub-config disables that link, per spec.md §4.9. Distinguishing a
// present-but-null key from an absent one is the IPC layer's job
// (ipcserver calls ConnectKind only for keys actually present in the
// request), so by the time a DaemonConfig reaches here every field is
// forwarded unconditionally.
func (m *Manager) Connect(cfg netconfig.DaemonConfig) {
	m.lan.Connect(cfg.LAN)
	m.wifiClient.Connect(cfg.WifiClient)
	m.wifiAP.Connect(cfg.WifiAP)
	m.lte.Connect(cfg.LTE)
}

// ConnectKind forwards a single sub-config to the named supervisor,
// letting callers (ipcserver) honour "only the keys present in the
// request" without needing a key-presence marker on DaemonConfig
// itself.
func (m *Manager) ConnectKind(kind string, cfg *netconfig.LinkConfig) error {
	switch kind {
	case "lan":
		m.lan.Connect(cfg)
	case "wifi_client":
		m.wifiClient.Connect(cfg)
	case "wifi_ap":
		m.wifiAP.Connect(cfg)
	case "lte":
		m.lte.Connect(cfg)
	default:
		return fmt.Errorf("unknown link kind %q", kind)
	}
	return nil
}

// Status aggregates the four supervisor statuses, the manager status,
// and the current default route, per spec.md §4.9.
func (m *Manager) Status() netconfig.AggregateStatus {
	m.mu.Lock()
	ncstatus := netconfig.ManagerStatus{
		Online:          m.online,
		LastOnlineCheck: m.lastCheck,
		TestHost:        m.testHost,
		DNS:             append([]string(nil), m.dns...),
	}
	m.mu.Unlock()

	route := netlinkutil.GetDefaultRoute()

	return netconfig.AggregateStatus{
		LTE:        m.lte.Status(),
		WifiClient: m.wifiClient.Status(),
		WifiAP:     m.wifiAP.Status(),
		LAN:        m.lan.Status(),
		NCStatus:   ncstatus,
		GW:         netconfig.DefaultRoute{Ifname: route.Ifname, IP: route.IP},
	}
}

// ConnectionInfo calls info() on the named supervisor, per spec.md
// §4.9.
func (m *Manager) ConnectionInfo(kind string) (netconfig.InfoRecord, error) {
	switch kind {
	case "lte":
		return m.lte.Info(), nil
	case "wifi_client":
		return m.wifiClient.Info(), nil
	case "wifi_ap":
		return m.wifiAP.Info(), nil
	case "lan":
		return m.lan.Info(), nil
	default:
		return nil, fmt.Errorf("unknown link kind %q", kind)
	}
}

// WifiScan delegates to the Wi-Fi client supervisor, per spec.md §4.9.
func (m *Manager) WifiScan() []wpacli.ScanResult {
	return m.wifiClient.Scan()
}

// OnlineCheck signals the connectivity event so the manager loop
// re-probes at once, per spec.md §4.9.
func (m *Manager) OnlineCheck() {
	m.connEvent.Signal()
}

// Config updates manager-scope fields; currently only test_host, per
// spec.md §4.9.
func (m *Manager) Config(testHost string) {
	if testHost == "" {
		return
	}
	m.mu.Lock()
	m.testHost = testHost
	m.mu.Unlock()
	m.connEvent.Signal()
}

// Run drives the manager loop described in spec.md §4.9 until ctx is
// cancelled.
func (m *Manager) Run(ctx context.Context) {
	var nextProbe time.Time

	for {
		triggered := false
		select {
		case <-ctx.Done():
			return
		case <-m.connEvent.Chan():
			triggered = true
		case <-time.After(eventWait):
		}

		m.syncNameservers()

		route := netlinkutil.GetDefaultRoute()
		if route.Ifname == "" {
			m.setOnline(false)
			continue
		}

		due := triggered || time.Now().After(nextProbe)
		if !due {
			continue
		}

		m.mu.Lock()
		host := m.testHost
		m.mu.Unlock()

		online := probe(ctx, host)
		m.setOnline(online)
		if online {
			nextProbe = time.Now().Add(probePeriod)
		} else {
			nextProbe = time.Time{}
		}
	}
}

func (m *Manager) setOnline(online bool) {
	m.mu.Lock()
	m.online = online
	m.lastCheck = time.Now().Unix()
	m.mu.Unlock()
}

// syncNameservers implements the name-server policy of spec.md §4.9:
// a ppp* default route takes DNS from the LTE supervisor's status;
// otherwise the host network-config service is asked for the
// interface's reported DNS list; absent both, the fallback list wins.
// Unlike original_source/src/netconnect.py::set_nameservers, which
// unconditionally rewrites resolv.conf with the fallback list right
// before returning whatever list it actually computed, this writes
// resolv.conf exactly once with the list it decided on.
func (m *Manager) syncNameservers() {
	route := netlinkutil.GetDefaultRoute()

	var dns []string
	switch {
	case route.Ifname == "":
		dns = fallbackDNS
	case strings.HasPrefix(route.Ifname, "ppp"):
		if status := m.lte.Status(); len(status.DNS) > 0 {
			dns = status.DNS
		} else {
			dns = fallbackDNS
		}
	default:
		if queried, ok := queryNetworkctlDNS(route.Ifname); ok {
			dns = queried
		} else {
			dns = fallbackDNS
		}
	}

	m.mu.Lock()
	m.dns = dns
	m.mu.Unlock()

	networkd.WriteResolvConf(m.resolvConfPath, dns)
}

// queryNetworkctlDNS asks systemd-networkd for ifname's resolved DNS
// servers via `networkctl status`, tokenising its free-form output
// exactly as original_source/src/netconnect.py does: find the "DNS:"
// token, then collect subsequent tokens while they parse as IP
// addresses.
func queryNetworkctlDNS(ifname string) ([]string, bool) {
	out, err := exec.Command("networkctl", "status", ifname, "--no-page").Output()
	if err != nil {
		return nil, false
	}

	fields := strings.Fields(string(out))
	idx := -1
	for i, f := range fields {
		if f == "DNS:" {
			idx = i + 1
			break
		}
	}
	if idx < 0 {
		return nil, false
	}

	var dns []string
	for _, f := range fields[idx:] {
		if net.ParseIP(f) == nil {
			break
		}
		dns = append(dns, f)
	}
	if len(dns) == 0 {
		return nil, false
	}
	return dns, true
}
