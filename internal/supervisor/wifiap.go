package supervisor

import (
	"context"
	"time"

	"github.com/rehivetech/netconnectd/internal/device"
	"github.com/rehivetech/netconnectd/internal/dial"
	"github.com/rehivetech/netconnectd/internal/hostapdctl"
	"github.com/rehivetech/netconnectd/internal/netconfig"
	"github.com/rehivetech/netconnectd/internal/netlinkutil"
	"github.com/rehivetech/netconnectd/internal/networkd"
)

const wifiAPKind = "wifi_ap"
const wifiAPMetric = 512
const wifiAPSleep = 5 * time.Second
const wifiAPSettleDelay = 1 * time.Second

// NewWifiAP builds the Wi-Fi AP supervisor: auxiliary = hostapd,
// CONNECTED iff the hostapd child is still alive one second after
// spawn, per spec.md §4.8.
func NewWifiAP(w *networkd.Writer, connEvent *ConnEvent) *Base {
	st := &hostapdState{}
	return New(wifiAPKind, connEvent, wifiAPLoop(w, st), wifiAPClean(w, st), wifiAPInfo)
}

type hostapdState struct {
	proc *hostapdctl.Process
}

func wifiAPLoop(w *networkd.Writer, st *hostapdState) LoopFunc {
	return func(ctx context.Context, cfg netconfig.LinkConfig, pub *Publisher) {
		for {
			if ctx.Err() != nil {
				stopHostapd(st)
				return
			}

			iface, ok := device.Match(device.Enumerate(), selectorFrom(cfg))
			if !ok {
				pub.SetIfname("")
				pub.SetError("NO_DEVICE_DETECTED")
				if w.Remove(wifiAPKind) {
					networkd.RestartService("systemd-networkd")
				}
				stopHostapd(st)
				if !Sleep(ctx, wifiAPSleep) {
					return
				}
				continue
			}

			pub.ClearError()
			pub.SetIfname(iface.Ifname)

			changed, err := w.Write(wifiAPKind, cfg.IPv4, networkd.Match{MAC: iface.MAC}, wifiAPMetric, true)
			if err == nil && changed {
				pub.SetStatus(netconfig.StatusConnecting)
				networkd.RestartService("systemd-networkd")
			}

			var params netconfig.WifiAPParams
			if cfg.WifiAP != nil {
				params = *cfg.WifiAP
			}
			if changed, _ := dial.WriteHostapdConfig(iface.Ifname, params); changed {
				pub.SetStatus(netconfig.StatusConnecting)
			}

			if st.proc == nil || !st.proc.Running() {
				pub.SetStatus(netconfig.StatusConnecting)
				hostapdctl.KillAllByName()
				if proc, err := hostapdctl.Start(); err == nil {
					st.proc = proc
				}
			}

			if !Sleep(ctx, wifiAPSettleDelay) {
				stopHostapd(st)
				return
			}

			if st.proc != nil && st.proc.Running() {
				pub.SetStatus(netconfig.StatusConnected)
			} else {
				pub.SetStatus(netconfig.StatusNotConnected)
			}

			if !Sleep(ctx, wifiAPSleep-wifiAPSettleDelay) {
				stopHostapd(st)
				return
			}
		}
	}
}

func wifiAPClean(w *networkd.Writer, st *hostapdState) CleanFunc {
	return func(pub *Publisher) {
		if w.Remove(wifiAPKind) {
			networkd.RestartService("systemd-networkd")
		}
		stopHostapd(st)
		if ifname := pub.Snapshot().Ifname; ifname != "" {
			netlinkutil.IfaceDown(ifname)
		}
	}
}

func wifiAPInfo(pub *Publisher) netconfig.InfoRecord {
	ifname := pub.Snapshot().Ifname
	return netconfig.InfoRecord{
		"address": netlinkutil.GetAddress(ifname),
		"ifstate": netlinkutil.GetOperstate(ifname),
	}
}

func stopHostapd(st *hostapdState) {
	hostapdctl.KillAllByName()
	if st.proc != nil {
		st.proc.Stop()
		st.proc = nil
	}
}
