package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rehivetech/netconnectd/internal/config"
	"github.com/rehivetech/netconnectd/internal/ipcserver"
	"github.com/rehivetech/netconnectd/internal/manager"
	"github.com/rehivetech/netconnectd/internal/statusbus"
)

var (
	socketPath  = flag.String("socket", "", "Path to the IPC unix socket (default /run/netconnectd/ipc.sock)")
	networkdDir = flag.String("networkd-dir", "", "Directory for generated systemd-networkd .network files")
	resolvConf  = flag.String("resolv-conf", "", "Path to the resolv.conf this daemon manages")
	testHost    = flag.String("test-host", "", "Hostname used by the online-reachability probe")
	busType     = flag.String("bus", "session", "D-Bus bus type: session or system")
	debug       = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	cfg := config.Default()
	cfg.BusType = *busType
	cfg.Debug = *debug
	if *socketPath != "" {
		cfg.SocketPath = *socketPath
	}
	if *networkdDir != "" {
		cfg.NetworkdDir = *networkdDir
	}
	if *resolvConf != "" {
		cfg.ResolvConfPath = *resolvConf
	}
	if *testHost != "" {
		cfg.TestHost = *testHost
	}

	log.Println("netconnectd starting...")

	mgr := manager.New(cfg.NetworkdDir, cfg.ResolvConfPath, cfg.TestHost)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mgr.Run(ctx)
	log.Println("connection manager running")

	bus := statusbus.New(cfg.BusType)
	if bus != nil {
		defer bus.Close()
		log.Printf("status bus registered on %s bus", cfg.BusType)
		go watchStatus(ctx, mgr, bus)
	}

	srv, err := ipcserver.New(mgr, cfg.SocketPath)
	if err != nil {
		log.Fatalf("failed to bind IPC socket: %v", err)
	}
	defer srv.Close()
	go func() {
		if err := srv.Serve(); err != nil {
			log.Printf("ipc server stopped: %v", err)
		}
	}()
	log.Printf("IPC server listening on %s", cfg.SocketPath)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Println("netconnectd ready")
	<-sigChan
	log.Println("shutting down...")
}

// watchStatus polls the manager's aggregate status once a second and
// publishes a StatusChanged signal whenever it differs from the last
// one published, per SPEC_FULL.md §6.3.
func watchStatus(ctx context.Context, mgr *manager.Manager, bus *statusbus.Bus) {
	lastStatus := mgr.Status()
	bus.Publish(lastStatus)

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bus.Watch(mgr.Status, &lastStatus)
		}
	}
}
