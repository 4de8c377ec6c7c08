// Package supervisor implements the per-link "reconcile loop" worker
// described in spec.md §4.7-4.8: a base type owning cfg/status/worker
// state plus connect/reconnect/status/info/clean, and one file per
// link kind (lan.go, wificlient.go, wifiap.go, lte.go) supplying the
// loop body. Grounded in the teacher's watcher goroutine lifecycle
// (internal/netlink/watcher.go: a cancellable goroutine publishing
// into a lock-guarded struct) generalised from "watch the kernel" to
// "drive an external daemon toward a declarative configuration".
package supervisor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/rehivetech/netconnectd/internal/netconfig"
)

// joinTimeout bounds how long Reconnect waits for the previous
// worker to exit before giving up and proceeding anyway, per spec.md
// §5's "bounded join".
const joinTimeout = 5 * time.Second

// LoopFunc is a reconcile loop body. It must return promptly after
// ctx is cancelled; it never returns on its own otherwise.
type LoopFunc func(ctx context.Context, cfg netconfig.LinkConfig, pub *Publisher)

// CleanFunc tears down whatever a link kind's declarative file, child
// process and interface state might still exist, whether or not a
// worker is currently running.
type CleanFunc func(pub *Publisher)

// InfoFunc returns the kind-specific live augmentation fields for
// info(). May be called with no worker running.
type InfoFunc func(pub *Publisher) netconfig.InfoRecord

// Base is the common supervisor object each link kind builds on.
type Base struct {
	Name string

	mu     sync.Mutex
	cfg    *netconfig.LinkConfig
	status netconfig.LinkStatus
	cancel context.CancelFunc
	wg     sync.WaitGroup

	loop    LoopFunc
	cleanFn CleanFunc
	infoFn  InfoFunc

	connEvent *ConnEvent
}

// New constructs a Base for a link kind named name (used only in log
// messages and panics-never error text).
func New(name string, connEvent *ConnEvent, loop LoopFunc, cleanFn CleanFunc, infoFn InfoFunc) *Base {
	return &Base{
		Name:      name,
		status:    netconfig.LinkStatus{Status: netconfig.StatusInactive},
		loop:      loop,
		cleanFn:   cleanFn,
		infoFn:    infoFn,
		connEvent: connEvent,
	}
}

// Connect stores cfg (nil disables the link) and restarts the worker.
func (b *Base) Connect(cfg *netconfig.LinkConfig) {
	b.mu.Lock()
	b.cfg = cfg
	b.mu.Unlock()
	b.Reconnect()
}

// Reconnect terminates any running worker, resets the published
// status to INACTIVE, and - if a configuration is present - starts a
// fresh worker running the reconcile loop; otherwise runs clean(),
// before the reset so that it still sees the last published ifname.
func (b *Base) Reconnect() {
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.mu.Unlock()
	b.joinPrevious()

	b.mu.Lock()
	cfg := b.cfg
	b.mu.Unlock()

	pub := &Publisher{b: b}

	if cfg == nil && b.cleanFn != nil {
		b.cleanFn(pub)
	}

	b.mu.Lock()
	b.status = netconfig.LinkStatus{Status: netconfig.StatusInactive, Config: cfg}
	b.mu.Unlock()
	b.connEvent.Signal()

	if cfg == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.loop(ctx, *cfg, pub)
	}()
}

func (b *Base) joinPrevious() {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(joinTimeout):
		log.Printf("supervisor(%s): previous worker did not terminate within %s", b.Name, joinTimeout)
	}
}

// Status returns a snapshot of the published status record.
func (b *Base) Status() netconfig.LinkStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Info returns the published status plus the kind-specific live
// augmentation fields.
func (b *Base) Info() netconfig.InfoRecord {
	status := b.Status()
	rec := netconfig.InfoRecord{
		"status": string(status.Status),
		"ifname": status.Ifname,
	}
	if b.infoFn != nil {
		pub := &Publisher{b: b}
		for k, v := range b.infoFn(pub) {
			rec[k] = v
		}
	}
	return rec
}

// Clean tears down side effects without touching worker state,
// e.g. for use at daemon shutdown.
func (b *Base) Clean() {
	if b.cleanFn != nil {
		b.cleanFn(&Publisher{b: b})
	}
}

// Publisher is the write side of Base exposed to a running reconcile
// loop: it mutates published status under the base's lock and signals
// the connectivity event on edge transitions, per spec.md §4.8's "edge
// transitions ... trigger the connectivity event" rule.
type Publisher struct {
	b *Base
}

// SetStatus updates the published status, signalling the
// connectivity event iff the status actually changed.
func (p *Publisher) SetStatus(s netconfig.Status) {
	p.b.mu.Lock()
	changed := p.b.status.Status != s
	p.b.status.Status = s
	p.b.mu.Unlock()
	if changed {
		p.b.connEvent.Signal()
	}
}

// SetError updates the published error, without itself signalling
// the connectivity event (only status/ifname transitions do, per
// spec.md §4.8).
func (p *Publisher) SetError(msg string) {
	p.b.mu.Lock()
	p.b.status.Error = netconfig.ErrString(msg)
	p.b.mu.Unlock()
}

// ClearError is SetError("").
func (p *Publisher) ClearError() {
	p.SetError("")
}

// SetIfname updates the published interface name, signalling the
// connectivity event iff it changed.
func (p *Publisher) SetIfname(ifname string) {
	p.b.mu.Lock()
	changed := p.b.status.Ifname != ifname
	p.b.status.Ifname = ifname
	p.b.mu.Unlock()
	if changed {
		p.b.connEvent.Signal()
	}
}

// SetDNS updates the published DNS list.
func (p *Publisher) SetDNS(dns []string) {
	p.b.mu.Lock()
	p.b.status.DNS = dns
	p.b.mu.Unlock()
}

// Snapshot returns the current published status.
func (p *Publisher) Snapshot() netconfig.LinkStatus {
	return p.b.Status()
}

// SignalConnectivity explicitly wakes the manager's probe wait, for
// transitions Set* doesn't already cover (e.g. AT info log points).
func (p *Publisher) SignalConnectivity() {
	p.b.connEvent.Signal()
}

// Sleep blocks for d or until ctx is cancelled, returning false in
// the latter case so the caller's reconcile loop can exit promptly.
func Sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
