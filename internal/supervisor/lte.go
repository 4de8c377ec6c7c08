package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/rehivetech/netconnectd/internal/atmodem"
	"github.com/rehivetech/netconnectd/internal/device"
	"github.com/rehivetech/netconnectd/internal/dial"
	"github.com/rehivetech/netconnectd/internal/netconfig"
	"github.com/rehivetech/netconnectd/internal/netlinkutil"
	"github.com/rehivetech/netconnectd/internal/pppsession"
)

const lteKind = "lte"
const lteSleep = 10 * time.Second
const pppdPath = "/usr/sbin/pppd"
const chatPath = "/usr/sbin/chat"

// modemPorts locates which of a modem's enumerated tty ports carry AT
// control traffic vs. the PPP data stream, keyed by USB vendor:product
// id. This is a minimal built-in subset of what the original keeps in
// a separate modem_defs.json; unlisted modems are simply not dialled,
// matching original_source/src/lte.py::_get_modem's "usbid not in
// MODEM_DEFS -> None" behaviour.
var modemPorts = map[string]struct{ Control, Data int }{
	"12d1:1506": {Control: 2, Data: 0}, // Huawei E3372h
	"12d1:1001": {Control: 1, Data: 0}, // Huawei E173
	"2c7c:0125": {Control: 3, Data: 4}, // Quectel EC25
}

type modemSelection struct {
	controlPort string
	dataPort    string
}

func selectModem(iface device.Interface) (modemSelection, bool) {
	def, ok := modemPorts[iface.USBID]
	if !ok {
		return modemSelection{}, false
	}

	ports := iface.TTYs
	control, data := def.Control, def.Data
	if iface.USBID == "12d1:1506" && len(ports) == 2 {
		// firmware variant exposing only two serial ports
		control, data = 0, 1
	} else if len(ports) < control+1 || len(ports) < data+1 {
		return modemSelection{}, false
	}

	return modemSelection{
		controlPort: "/dev/" + ports[control],
		dataPort:    "/dev/" + ports[data],
	}, true
}

// NewLTE builds the LTE supervisor: auxiliary = a PPP session dialled
// only once the AT client reports the modem registered, per spec.md
// §4.8.
func NewLTE(connEvent *ConnEvent) *Base {
	st := &lteState{modem: atmodem.NewClient()}
	return New(lteKind, connEvent, lteLoop(st), lteClean(st), lteInfo(st))
}

type lteState struct {
	modem   *atmodem.Client
	ppp     *pppsession.Session
	lastErr string
}

func lteLoop(st *lteState) LoopFunc {
	return func(ctx context.Context, cfg netconfig.LinkConfig, pub *Publisher) {
		pub.SetStatus(netconfig.StatusNotConnected)

		for {
			if ctx.Err() != nil {
				teardownLTE(st)
				return
			}

			if st.ppp == nil {
				pub.SetIfname("")
				iface, sel, ok := findModem(cfg)
				if !ok {
					pub.SetError("NO_DEVICE_DETECTED")
				} else if registered, err := st.modem.Registered(sel.controlPort); err != nil || !registered {
					pub.SetError("NOT_REGISTERED")
				} else {
					pub.ClearError()
					pub.SetStatus(netconfig.StatusConnecting)
					dialLTE(st, pub, cfg, iface, sel)
				}
			}

			if st.ppp != nil {
				connected, err := st.ppp.Connected()
				if err != nil {
					pub.SetError(fmt.Sprintf("connection interrupted: %v", err))
					pub.SetStatus(netconfig.StatusNotConnected)
					st.ppp = nil
				} else if !connected {
					pub.SetError("connection interrupted")
					pub.SetStatus(netconfig.StatusNotConnected)
					st.ppp = nil
				}
			}

			if st.lastErr != errString(pub.Snapshot().Error) {
				st.lastErr = errString(pub.Snapshot().Error)
			}

			if !Sleep(ctx, lteSleep) {
				teardownLTE(st)
				return
			}
		}
	}
}

func findModem(cfg netconfig.LinkConfig) (device.Interface, modemSelection, bool) {
	for _, iface := range device.Enumerate() {
		if iface.Type != device.TypeGSMModem {
			continue
		}
		sel, ok := selectModem(iface)
		if !ok {
			continue
		}
		return iface, sel, true
	}
	_ = cfg
	return device.Interface{}, modemSelection{}, false
}

func dialLTE(st *lteState, pub *Publisher, cfg netconfig.LinkConfig, iface device.Interface, sel modemSelection) {
	var params netconfig.LTEParams
	if cfg.LTE != nil {
		params = *cfg.LTE
	}

	if err := dial.WriteChatScript(params.APN, params.Number); err != nil {
		pub.SetError(err.Error())
		return
	}

	args := dial.PPPDArgs(sel.dataPort, chatPath, params)
	session, err := pppsession.Start(pppdPath, args)
	if err != nil {
		pub.SetError("cannot connect: " + err.Error())
		return
	}

	st.ppp = session
	pub.SetStatus(netconfig.StatusConnected)
	pub.ClearError()
	pub.SetIfname("ppp0")
	pub.SetDNS(session.DNS())
	_ = iface
}

func teardownLTE(st *lteState) {
	if st.ppp != nil {
		st.ppp.Disconnect()
		st.ppp = nil
	}
}

func lteClean(st *lteState) CleanFunc {
	return func(pub *Publisher) {
		teardownLTE(st)
	}
}

func lteInfo(st *lteState) InfoFunc {
	return func(pub *Publisher) netconfig.InfoRecord {
		rec := netconfig.InfoRecord{
			"address": netlinkutil.GetAddress("ppp0"),
			"ifstate": netlinkutil.GetOperstate("ppp0"),
		}
		iface, sel, ok := findModem(netconfig.LinkConfig{})
		if !ok {
			return rec
		}
		if signal, err := st.modem.Signal(sel.controlPort); err == nil {
			rec["modem_signal"] = signal
		}
		if model, err := st.modem.Model(sel.controlPort); err == nil {
			rec["modem_info"] = model
		}
		if op, err := st.modem.Operator(sel.controlPort); err == nil {
			rec["operator_info"] = op
		}
		if info, err := st.modem.NetworkInfo(sel.controlPort); err == nil {
			rec["network_info"] = info
		}
		_ = iface
		return rec
	}
}

func errString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
