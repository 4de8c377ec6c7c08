package supervisor

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rehivetech/netconnectd/internal/device"
	"github.com/rehivetech/netconnectd/internal/dial"
	"github.com/rehivetech/netconnectd/internal/netconfig"
	"github.com/rehivetech/netconnectd/internal/netlinkutil"
	"github.com/rehivetech/netconnectd/internal/networkd"
	"github.com/rehivetech/netconnectd/internal/wpacli"
)

const wifiClientKind = "wifi_client"
const wifiClientMetric = 512
const wifiClientSleep = 5 * time.Second

// WifiClientSupervisor is the Wi-Fi client supervisor. It embeds Base
// for connect/reconnect/status/info/clean and adds Scan(), since
// wifi_scan() (spec.md §4.9) is specific to this link kind.
type WifiClientSupervisor struct {
	*Base
	st *wifiClientState
}

// NewWifiClient builds the Wi-Fi client supervisor: auxiliary =
// wpa_supplicant against a generated 3-network-block config, CONNECTED
// iff the control socket reports wpa_state=COMPLETED, per spec.md §4.8.
func NewWifiClient(w *networkd.Writer, connEvent *ConnEvent) *WifiClientSupervisor {
	st := &wifiClientState{}
	base := New(wifiClientKind, connEvent, wifiClientLoop(w, st), wifiClientClean(w, st), wifiClientInfo(st))
	return &WifiClientSupervisor{Base: base, st: st}
}

// Scan delegates to the control-socket client created by the running
// worker, or returns nil if the worker hasn't started one yet.
func (s *WifiClientSupervisor) Scan() []wpacli.ScanResult {
	return s.st.Scan()
}

type wifiClientState struct {
	mu     sync.Mutex
	proc   *exec.Cmd
	exited bool
	cli    *wpacli.Client
	ifname string
}

func (st *wifiClientState) setClient(c *wpacli.Client) {
	st.mu.Lock()
	st.cli = c
	st.mu.Unlock()
}

func (st *wifiClientState) client() *wpacli.Client {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.cli
}

// startReaper records that a newly spawned wpa_supplicant is running and
// waits for it in the background, so hasExited() reflects an unsolicited
// crash as soon as it happens rather than staying stuck at ProcessState's
// nil zero value, which is only ever set by an explicit Wait() call.
func (st *wifiClientState) startReaper(cmd *exec.Cmd) {
	st.mu.Lock()
	st.exited = false
	st.mu.Unlock()

	go func() {
		_ = cmd.Wait()
		st.mu.Lock()
		st.exited = true
		st.mu.Unlock()
	}()
}

func (st *wifiClientState) hasExited() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.exited
}

func wifiClientLoop(w *networkd.Writer, st *wifiClientState) LoopFunc {
	return func(ctx context.Context, cfg netconfig.LinkConfig, pub *Publisher) {
		wasComplete := false
		for {
			if ctx.Err() != nil {
				stopWifiSupplicant(st)
				return
			}

			iface, ok := device.Match(device.Enumerate(), selectorFrom(cfg))
			if !ok {
				pub.SetIfname("")
				pub.SetError("NO_DEVICE_DETECTED")
				if w.Remove(wifiClientKind) {
					networkd.RestartService("systemd-networkd")
				}
				stopWifiSupplicant(st)
				if !Sleep(ctx, wifiClientSleep) {
					return
				}
				continue
			}

			pub.ClearError()
			pub.SetIfname(iface.Ifname)
			st.ifname = iface.Ifname

			changed, err := w.Write(wifiClientKind, cfg.IPv4, networkd.Match{MAC: iface.MAC}, wifiClientMetric, false)
			if err == nil && changed {
				pub.SetStatus(netconfig.StatusConnecting)
				networkd.RestartService("systemd-networkd")
			}

			var params netconfig.WifiClientParams
			if cfg.WifiClient != nil {
				params = *cfg.WifiClient
			}
			if changed, _ := dial.WriteWifiSupplicantConfig(params); changed {
				pub.SetStatus(netconfig.StatusConnecting)
			}

			if st.proc == nil {
				pub.SetStatus(netconfig.StatusConnecting)
				killByPrefix("wpa_supplicant")
				args := dial.WifiSupplicantCommand(iface.Ifname)
				cmd := exec.Command(args[0], args[1:]...)
				if cmd.Start() == nil {
					st.proc = cmd
					st.startReaper(cmd)
				}
				st.setClient(wpacli.New(iface.Ifname))
			}

			if st.proc != nil && st.hasExited() {
				st.proc = nil
				pub.SetStatus(netconfig.StatusNotConnected)
			}

			if cli := st.client(); cli != nil {
				if status, ok := cli.Status(); ok {
					complete := status.State == "COMPLETED"
					if complete != wasComplete {
						pub.SignalConnectivity()
						wasComplete = complete
					}
					if complete {
						pub.SetStatus(netconfig.StatusConnected)
					} else if pub.Snapshot().Status == netconfig.StatusConnected {
						pub.SetStatus(netconfig.StatusNotConnected)
					}
				}
			}

			if !Sleep(ctx, wifiClientSleep) {
				stopWifiSupplicant(st)
				return
			}
		}
	}
}

func wifiClientClean(w *networkd.Writer, st *wifiClientState) CleanFunc {
	return func(pub *Publisher) {
		if w.Remove(wifiClientKind) {
			networkd.RestartService("systemd-networkd")
		}
		stopWifiSupplicant(st)
		if ifname := pub.Snapshot().Ifname; ifname != "" {
			netlinkutil.IfaceDown(ifname)
		}
	}
}

func wifiClientInfo(st *wifiClientState) InfoFunc {
	return func(pub *Publisher) netconfig.InfoRecord {
		ifname := pub.Snapshot().Ifname
		rec := netconfig.InfoRecord{
			"address": netlinkutil.GetAddress(ifname),
			"ifstate": netlinkutil.GetOperstate(ifname),
		}
		if cli := st.client(); cli != nil {
			if status, ok := cli.Status(); ok {
				rec["wireless_status"] = status
			}
		}
		return rec
	}
}

func (st *wifiClientState) Scan() []wpacli.ScanResult {
	cli := st.client()
	if cli == nil {
		return nil
	}
	return cli.Scan()
}

func stopWifiSupplicant(st *wifiClientState) {
	killByPrefix("wpa_supplicant")
	st.proc = nil
}

func killByPrefix(name string) {
	out, err := exec.Command("pgrep", "^"+name).Output()
	if err != nil {
		return
	}
	for _, pid := range strings.Fields(string(out)) {
		_ = exec.Command("kill", "-TERM", pid).Run()
	}
}
