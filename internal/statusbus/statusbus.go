// Package statusbus is the additive D-Bus status-change signal bus
// described in SPEC_FULL.md §6.3, grounded directly in the teacher's
// internal/dbus.Service: connect to a bus, emit a signal whenever the
// polled aggregate status differs from the last one published. Unlike the teacher this package
// exports no methods and no properties - it is signal-only, a push
// complement to the request/reply socket rather than a second RPC
// surface.
package statusbus

import (
	"encoding/json"
	"log"
	"reflect"

	"github.com/godbus/dbus/v5"
	"github.com/rehivetech/netconnectd/internal/netconfig"
)

const (
	objectPath = "/org/rehivetech/Netconnectd"
	ifaceName  = "org.rehivetech.Netconnectd"
	signalName = ifaceName + ".StatusChanged"
)

// Bus emits StatusChanged signals on a D-Bus session or system bus.
// A nil *Bus is valid: Publish and Close on it are no-ops, and Watch
// still updates *last but publishes nothing, so callers
// that couldn't reach a bus (no bus available e.g. in a container
// without dbus-daemon) can keep running without a nil check at every
// call site.
type Bus struct {
	conn *dbus.Conn
}

// New connects to busType ("session" or "system") and returns a Bus.
// Failure to connect is not fatal to the daemon: it's logged and a
// nil *Bus (safe no-op) is returned instead, since the signal bus is
// additive per SPEC_FULL.md §6.3.
func New(busType string) *Bus {
	var conn *dbus.Conn
	var err error

	if busType == "system" {
		conn, err = dbus.SystemBus()
	} else {
		conn, err = dbus.SessionBus()
	}
	if err != nil {
		log.Printf("statusbus: cannot connect to %s bus: %v", busType, err)
		return nil
	}

	return &Bus{conn: conn}
}

// Close releases the underlying bus connection.
func (b *Bus) Close() {
	if b == nil || b.conn == nil {
		return
	}
	b.conn.Close()
}

// Publish emits StatusChanged carrying status marshalled to the same
// JSON shape the "status" IPC function returns.
func (b *Bus) Publish(status netconfig.AggregateStatus) {
	if b == nil || b.conn == nil {
		return
	}

	payload, err := json.Marshal(status)
	if err != nil {
		log.Printf("statusbus: cannot marshal status: %v", err)
		return
	}

	if err := b.conn.Emit(objectPath, signalName, string(payload)); err != nil {
		log.Printf("statusbus: failed to emit %s: %v", signalName, err)
	}
}

// Watch calls fetch once and, if the result differs from *last, stores
// it in *last and publishes it. It does not loop and is decoupled from
// the manager's own loop timing: the caller decides when to poll.
func (b *Bus) Watch(fetch func() netconfig.AggregateStatus, last *netconfig.AggregateStatus) {
	current := fetch()
	if statusesEqual(current, *last) {
		return
	}
	*last = current
	b.Publish(current)
}

func statusesEqual(a, b netconfig.AggregateStatus) bool {
	return reflect.DeepEqual(a, b)
}
