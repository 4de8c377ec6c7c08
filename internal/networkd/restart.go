package networkd

import (
	"context"
	"log"
	"os/exec"
	"time"
)

// Systemctl is the path to the systemctl binary, overridable in tests.
var Systemctl = "/bin/systemctl"

// RestartService restarts a systemd unit, e.g. "systemd-networkd". Errors
// are logged, not returned: per spec, "races here are benign (later
// restart wins)" and a restart failure is not something a reconcile
// loop can usefully react to beyond retrying on its next pass.
func RestartService(service string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, Systemctl, "restart", service)
	if err := cmd.Run(); err != nil {
		log.Printf("networkd: restart %s failed: %v", service, err)
	}
}
