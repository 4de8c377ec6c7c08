// Package wpacli wraps the wpa_cli control tool for the wifi-client
// link, grounded in original_source/src/wifi_client.py's _wpacli,
// _wifi_status and _scan methods.
package wpacli

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rehivetech/netconnectd/internal/dial"
)

// WpaCli is the path to the wpa_cli binary, matching
// original_source/src/wifi_client.py's WPACLI constant.
var WpaCli = "/sbin/wpa_cli"

// commandTimeout bounds each wpa_cli invocation, matching the
// original's run(..., timeout=1).
const commandTimeout = 1 * time.Second

// Status is the parsed reply to `wpa_cli status` plus `signal_poll`.
type Status struct {
	State string `json:"state"` // e.g. "COMPLETED", "DISCONNECTED", "SCANNING"
	SSID  string `json:"ssid"`
	RSSI  int    `json:"rssi"`
}

// ScanResult is one row of `wpa_cli scan_result`, shaped to match the
// wifi_scan wire record of spec.md §6 ({ssid, channel, enc, signal}).
type ScanResult struct {
	SSID      string `json:"ssid"`
	Channel   string `json:"channel"`
	Encrypted bool   `json:"enc"`
	SignalDBm int    `json:"signal"`
}

// Client issues at most one wpa_cli command at a time against a given
// interface, mirroring the original's per-instance lock around the
// subprocess call.
type Client struct {
	mu     sync.Mutex
	Ifname string
}

// New returns a Client bound to ifname.
func New(ifname string) *Client {
	return &Client{Ifname: ifname}
}

// run invokes `wpa_cli -p <ctrl> -i <ifname> <command>` and returns
// its stdout, or "" if it failed or timed out.
func (c *Client) run(command string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, WpaCli, "-p", dial.WifiSupplicantCtrl, "-i", c.Ifname, command)
	out, err := cmd.Output()
	if err != nil {
		return "", false
	}
	return string(out), true
}

// Status runs `status` then `signal_poll` and assembles the combined
// wpa_state/ssid/RSSI view, defaulting RSSI to -99 as the original
// does when signal_poll hasn't produced a reading yet.
func (c *Client) Status() (Status, bool) {
	out, ok := c.run("status")
	if !ok {
		return Status{}, false
	}
	result := parseStatus(out)

	if signalOut, ok := c.run("signal_poll"); ok {
		applyRSSI(&result, signalOut)
	}

	return result, true
}

func parseStatus(out string) Status {
	result := Status{State: "DISCONNECTED", SSID: "", RSSI: -99}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "wpa_state") && strings.Contains(line, "=") {
			result.State = strings.TrimSpace(strings.SplitN(line, "=", 2)[1])
		}
		if strings.HasPrefix(line, "ssid") && strings.Contains(line, "=") {
			result.SSID = strings.TrimSpace(strings.SplitN(line, "=", 2)[1])
		}
	}
	return result
}

func applyRSSI(result *Status, out string) {
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "RSSI") && strings.Contains(line, "=") {
			if rssi, err := strconv.Atoi(strings.TrimSpace(strings.SplitN(line, "=", 2)[1])); err == nil {
				result.RSSI = rssi
			}
			return
		}
	}
}

// Scan triggers a scan, waits 3 seconds for it to complete (matching
// the original's fixed sleep, since wpa_cli has no blocking scan
// command), and returns the parsed scan_result table.
func (c *Client) Scan() []ScanResult {
	if _, ok := c.run("scan"); !ok {
		return nil
	}
	time.Sleep(3 * time.Second)

	out, ok := c.run("scan_result")
	if !ok {
		return []ScanResult{}
	}
	return parseScanResult(out)
}

func parseScanResult(out string) []ScanResult {
	var results []ScanResult
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "bssid") || strings.TrimSpace(line) == "" {
			continue
		}
		row := strings.Fields(line)
		if len(row) < 4 {
			continue
		}

		rec := ScanResult{Channel: row[1], Encrypted: row[3] != "[ESS]"}
		if len(row) >= 5 {
			rec.SSID = strings.Join(row[4:], " ")
		}
		if signal, err := strconv.Atoi(row[2]); err == nil {
			rec.SignalDBm = signal/2 - 100
		}
		results = append(results, rec)
	}
	return results
}
