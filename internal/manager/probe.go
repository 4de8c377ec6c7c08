package manager

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"os/exec"
	"time"
)

// resolveAttempts are the increasing timeouts for the DNS phase of the
// online probe (spec.md §4.10): up to three tries, 1s/2s/3s, any
// success short-circuits the remaining tries.
var resolveAttempts = []time.Duration{1 * time.Second, 2 * time.Second, 3 * time.Second}

// reachAttempts bounds the second phase: up to two ICMP+HTTPS rounds.
const reachAttempts = 2

// probe implements the online-reachability check against host. It
// never logs and never panics; every failure path simply returns false
// so the manager loop can schedule a retry.
func probe(ctx context.Context, host string) bool {
	if !resolves(ctx, host) {
		return false
	}
	return reachable(ctx, host)
}

func resolves(ctx context.Context, host string) bool {
	var resolver net.Resolver
	for _, timeout := range resolveAttempts {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		_, err := resolver.LookupHost(attemptCtx, host)
		cancel()
		if err == nil {
			return true
		}
	}
	return false
}

func reachable(ctx context.Context, host string) bool {
	for i := 0; i < reachAttempts; i++ {
		if pingOnce(ctx, host) || headOnce(ctx, host) {
			return true
		}
	}
	return false
}

// pingOnce shells out to the system ping binary for a short burst
// rather than crafting raw ICMP sockets, matching the "short ICMP
// burst" wording of spec.md §4.10 without requiring CAP_NET_RAW.
func pingOnce(ctx context.Context, host string) bool {
	cmd := exec.CommandContext(ctx, "ping", "-c", "1", "-W", "2", host)
	return cmd.Run() == nil
}

func headOnce(ctx context.Context, host string) bool {
	client := &http.Client{
		Timeout: 3 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: false},
		},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, "https://"+host+"/", nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}
