// Package ipcserver implements the request/reply endpoint of spec.md
// §4.11 / §6.1: a Unix domain socket serving one newline-delimited
// JSON request per connection, dispatching each {src_mid, func,
// params} envelope to the manager and replying {mod_name, status,
// message}. The transport choice (net.UnixListener, not the opaque
// wire format the spec leaves open) is recorded in SPEC_FULL.md §6.1.
package ipcserver

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/rehivetech/netconnectd/internal/device"
	"github.com/rehivetech/netconnectd/internal/manager"
	"github.com/rehivetech/netconnectd/internal/netconfig"
)

// modName identifies this endpoint in every reply, matching
// original_source/src/interface_netconnect.py's _MOD_NAME.
const modName = "netconnect-interface"

// clientTimeout bounds both the read and the write side of a single
// request, per spec.md §6.1's "client timeout on both send and
// receive: 5 s".
const clientTimeout = 5 * time.Second

// Request is the wire envelope of an incoming call.
type Request struct {
	SrcMID string            `json:"src_mid"`
	Func   string            `json:"func"`
	Params []json.RawMessage `json:"params"`
}

// Reply is the wire envelope sent back.
type Reply struct {
	ModName string      `json:"mod_name"`
	Status  string      `json:"status"`
	Message interface{} `json:"message"`
}

// Server binds socketPath and serves requests against mgr until
// Close is called.
type Server struct {
	mgr      *manager.Manager
	listener *net.UnixListener
	path     string
}

// New binds a SOCK_STREAM Unix socket at socketPath, removing any
// stale socket file left behind by a previous process first.
func New(mgr *manager.Manager, socketPath string) (*Server, error) {
	_ = os.Remove(socketPath)

	addr, err := net.ResolveUnixAddr("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("ipcserver: resolve %s: %w", socketPath, err)
	}

	listener, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("ipcserver: listen %s: %w", socketPath, err)
	}

	return &Server{mgr: mgr, listener: listener, path: socketPath}, nil
}

// Close stops accepting new connections and removes the socket file.
func (s *Server) Close() {
	s.listener.Close()
	os.Remove(s.path)
}

// Serve accepts connections until the listener is closed, handling
// each on its own goroutine. It returns nil when the listener is
// closed deliberately (Close was called).
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("ipcserver: accept: %w", err)
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(clientTimeout))

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}

	var req Request
	if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
		s.reply(conn, Reply{ModName: modName, Status: "error", Message: "malformed request: " + err.Error()})
		return
	}

	reply := s.dispatch(req)
	s.reply(conn, reply)
}

func (s *Server) reply(conn net.Conn, reply Reply) {
	conn.SetDeadline(time.Now().Add(clientTimeout))
	payload, err := json.Marshal(reply)
	if err != nil {
		log.Printf("ipcserver: cannot marshal reply: %v", err)
		return
	}
	payload = append(payload, '\n')
	if _, err := conn.Write(payload); err != nil {
		log.Printf("ipcserver: write failed: %v", err)
	}
}

func (s *Server) dispatch(req Request) Reply {
	message, err := s.call(req.Func, req.Params)
	if err != nil {
		return Reply{ModName: modName, Status: "error", Message: err.Error()}
	}
	return Reply{ModName: modName, Status: "success", Message: message}
}

func (s *Server) call(fn string, params []json.RawMessage) (interface{}, error) {
	switch fn {
	case "echo":
		var values []interface{}
		for _, p := range params {
			var v interface{}
			if err := json.Unmarshal(p, &v); err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return values, nil

	case "status":
		return s.mgr.Status(), nil

	case "connect":
		if len(params) < 1 {
			return nil, fmt.Errorf("connect requires a config argument")
		}
		return map[string]interface{}{}, s.connect(params[0])

	case "connection_info":
		var kind string
		if len(params) < 1 {
			return nil, fmt.Errorf("connection_info requires a kind argument")
		}
		if err := json.Unmarshal(params[0], &kind); err != nil {
			return nil, err
		}
		return s.mgr.ConnectionInfo(kind)

	case "wifi_scan":
		return s.mgr.WifiScan(), nil

	case "interfaces":
		return interfaceRecords(device.Enumerate()), nil

	case "online_check":
		s.mgr.OnlineCheck()
		return map[string]interface{}{}, nil

	case "config":
		if len(params) < 1 {
			return nil, fmt.Errorf("config requires a config argument")
		}
		return map[string]interface{}{}, s.applyConfig(params[0])

	default:
		return nil, fmt.Errorf("Function %s is not implemented.", fn)
	}
}

// connect decodes the raw "cfg" object key-by-key so that only keys
// actually present in the request are forwarded, per spec.md §4.9's
// "for each key in {...} present in cfg".
func (s *Server) connect(raw json.RawMessage) error {
	var byKind map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byKind); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	for _, kind := range []string{"lte", "wifi_client", "wifi_ap", "lan"} {
		value, present := byKind[kind]
		if !present {
			continue
		}
		var cfg *netconfig.LinkConfig
		if string(value) != "null" {
			cfg = &netconfig.LinkConfig{}
			if err := json.Unmarshal(value, cfg); err != nil {
				return fmt.Errorf("connect: %s: %w", kind, err)
			}
		}
		if err := s.mgr.ConnectKind(kind, cfg); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) applyConfig(raw json.RawMessage) error {
	var body struct {
		TestHost string `json:"test_host"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	s.mgr.Config(body.TestHost)
	return nil
}

// interfaceRecord is the JSON shape of spec.md §3's interface record.
type interfaceRecord struct {
	Ifname string   `json:"ifname,omitempty"`
	MAC    string   `json:"mac,omitempty"`
	IfType string   `json:"iftype"`
	Bus    string   `json:"bus"`
	Port   string   `json:"port,omitempty"`
	USBID  string   `json:"usbid,omitempty"`
	TTYs   []string `json:"ttys"`
}

func interfaceRecords(ifaces []device.Interface) []interfaceRecord {
	records := make([]interfaceRecord, 0, len(ifaces))
	for _, iface := range ifaces {
		records = append(records, interfaceRecord{
			Ifname: iface.Ifname,
			MAC:    iface.MAC,
			IfType: string(iface.Type),
			Bus:    string(iface.Bus),
			Port:   iface.Port,
			USBID:  iface.USBID,
			TTYs:   iface.TTYs,
		})
	}
	return records
}
