// Package config is the daemon's bootstrap configuration: a plain
// struct built once at process start from CLI flags, matching the
// teacher's cmd/x-network/main.go flag wiring. No file is loaded,
// watched, or merged - that layer is explicitly out of scope
// (SPEC_FULL.md §A.1).
package config

// Config holds everything cmd/netconnectd needs to construct the
// manager, the IPC server and the status bus.
type Config struct {
	SocketPath     string
	NetworkdDir    string
	ResolvConfPath string
	TestHost       string
	BusType        string
	Debug          bool
}

// Default returns the built-in defaults, overridden by flags in
// cmd/netconnectd/main.go.
func Default() Config {
	return Config{
		SocketPath:     "/run/netconnectd/ipc.sock",
		NetworkdDir:    "/etc/systemd/network",
		ResolvConfPath: "/etc/resolv.conf",
		TestHost:       "www.google.com",
		BusType:        "session",
		Debug:          false,
	}
}
