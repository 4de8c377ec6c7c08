package supervisor

import (
	"context"
	"time"

	"github.com/rehivetech/netconnectd/internal/device"
	"github.com/rehivetech/netconnectd/internal/netconfig"
	"github.com/rehivetech/netconnectd/internal/netlinkutil"
	"github.com/rehivetech/netconnectd/internal/networkd"
)

const lanKind = "lan"
const lanMetric = 1024
const lanSleep = 5 * time.Second

// NewLAN builds the LAN supervisor: no auxiliary daemon, CONNECTED iff
// the matched interface's operstate is UP, per spec.md §4.8.
func NewLAN(w *networkd.Writer, connEvent *ConnEvent) *Base {
	return New(lanKind, connEvent, lanLoop(w), lanClean(w), lanInfo)
}

func lanLoop(w *networkd.Writer) LoopFunc {
	return func(ctx context.Context, cfg netconfig.LinkConfig, pub *Publisher) {
		lastOperstate := ""
		for {
			if ctx.Err() != nil {
				return
			}

			iface, ok := device.Match(device.Enumerate(), selectorFrom(cfg))
			if !ok {
				pub.SetIfname("")
				pub.SetError("NO_DEVICE_DETECTED")
				if w.Remove(lanKind) {
					networkd.RestartService("systemd-networkd")
				}
				if !Sleep(ctx, lanSleep) {
					return
				}
				continue
			}

			pub.ClearError()
			pub.SetIfname(iface.Ifname)

			changed, err := w.Write(lanKind, cfg.IPv4, networkd.Match{MAC: iface.MAC, Ifname: iface.Ifname}, lanMetric, false)
			if err == nil && changed {
				pub.SetStatus(netconfig.StatusConnecting)
				networkd.RestartService("systemd-networkd")
			}

			operstate := netlinkutil.GetOperstate(iface.Ifname)
			if operstate != lastOperstate {
				pub.SignalConnectivity()
				lastOperstate = operstate
			}
			if operstateUp(operstate) {
				pub.SetStatus(netconfig.StatusConnected)
			} else if pub.Snapshot().Status != netconfig.StatusConnecting {
				pub.SetStatus(netconfig.StatusNotConnected)
			}

			if !Sleep(ctx, lanSleep) {
				return
			}
		}
	}
}

func lanClean(w *networkd.Writer) CleanFunc {
	return func(pub *Publisher) {
		if w.Remove(lanKind) {
			networkd.RestartService("systemd-networkd")
		}
		if ifname := pub.Snapshot().Ifname; ifname != "" {
			netlinkutil.IfaceDown(ifname)
		}
	}
}

func lanInfo(pub *Publisher) netconfig.InfoRecord {
	ifname := pub.Snapshot().Ifname
	return netconfig.InfoRecord{
		"address": netlinkutil.GetAddress(ifname),
		"ifstate": netlinkutil.GetOperstate(ifname),
	}
}

func selectorFrom(cfg netconfig.LinkConfig) device.Selector {
	return device.Selector{Name: cfg.Name, MAC: cfg.MAC, USBPort: cfg.USBPort}
}

// operstateUp reports whether an IFLA_OPERSTATE string (as returned by
// netlinkutil.GetOperstate, e.g. "up", "down", "unknown") means the link is up.
func operstateUp(operstate string) bool {
	return operstate == "up"
}
