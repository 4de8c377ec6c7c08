// Package hostapdctl manages the hostapd process backing a wifi-AP
// link: start it against the rendered config, and find/signal any
// running instance by process name, grounded in
// original_source/src/wifi_ap.py's Popen/_terminate_hostapd.
package hostapdctl

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rehivetech/netconnectd/internal/dial"
)

// Process is a running hostapd instance. exited/waitErr are maintained
// by a background goroutine calling cmd.Wait(), since ProcessState is
// only ever populated by Wait() and nothing else reaps this process
// between reconcile iterations - matching wifi_ap.py's per-iteration
// proc.poll() liveness check.
type Process struct {
	cmd *exec.Cmd

	mu      sync.Mutex
	exited  bool
	waitErr error
	done    chan struct{}
}

// Start launches hostapd against dial.HostapdConf.
func Start() (*Process, error) {
	cmd := exec.Command(dial.HostapdCommand()[0], dial.HostapdCommand()[1:]...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("hostapdctl: start: %w", err)
	}

	p := &Process{cmd: cmd, done: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		p.exited = true
		p.waitErr = err
		p.mu.Unlock()
		close(p.done)
	}()
	return p, nil
}

// Running reports whether the process is still alive, reflecting an
// unsolicited crash as soon as the background Wait() goroutine observes it.
func (p *Process) Running() bool {
	if p == nil || p.cmd.Process == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.exited
}

// Stop terminates the process and waits briefly for it to exit.
func (p *Process) Stop() {
	if p == nil || p.cmd.Process == nil {
		return
	}
	_ = p.cmd.Process.Signal(syscall.SIGTERM)

	select {
	case <-p.done:
	case <-time.After(4 * time.Second):
		_ = p.cmd.Process.Kill()
		<-p.done
	}
}

// KillAllByName sends SIGTERM to every running process whose name
// starts with "hostapd", matching _terminate_hostapd's psutil sweep -
// used to clean up instances this daemon didn't itself spawn (e.g.
// left over from a previous crashed run).
func KillAllByName() {
	out, err := exec.Command("pgrep", "^hostapd").Output()
	if err != nil {
		return
	}
	for _, pidStr := range strings.Fields(string(out)) {
		cmd := exec.Command("kill", "-TERM", pidStr)
		_ = cmd.Run()
	}
}
