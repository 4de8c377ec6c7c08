package ipcserver

import (
	"bufio"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehivetech/netconnectd/internal/manager"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	mgr := manager.New(t.TempDir(), filepath.Join(t.TempDir(), "resolv.conf"), "example.com")
	socketPath := filepath.Join(t.TempDir(), "ipc.sock")

	srv, err := New(mgr, socketPath)
	require.NoError(t, err)
	go srv.Serve()
	t.Cleanup(srv.Close)

	return srv, socketPath
}

func roundTrip(t *testing.T, socketPath string, req Request) Reply {
	t.Helper()
	conn, err := net.DialTimeout("unix", socketPath, time.Second)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	payload, err := json.Marshal(req)
	require.NoError(t, err)
	payload = append(payload, '\n')
	_, err = conn.Write(payload)
	require.NoError(t, err)

	scanner := bufio.NewScanner(conn)
	require.True(t, scanner.Scan())

	var reply Reply
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &reply))
	return reply
}

func TestEchoReturnsParamsUnchanged(t *testing.T) {
	_, socketPath := newTestServer(t)

	reply := roundTrip(t, socketPath, Request{
		SrcMID: "test",
		Func:   "echo",
		Params: []json.RawMessage{[]byte(`"a"`), []byte(`42`)},
	})

	assert.Equal(t, "success", reply.Status)
	assert.Equal(t, "netconnect-interface", reply.ModName)
	assert.Equal(t, []interface{}{"a", float64(42)}, reply.Message)
}

func TestUnknownFuncReturnsError(t *testing.T) {
	_, socketPath := newTestServer(t)

	reply := roundTrip(t, socketPath, Request{SrcMID: "test", Func: "bogus"})

	assert.Equal(t, "error", reply.Status)
	assert.Equal(t, "Function bogus is not implemented.", reply.Message)
}

func TestStatusReturnsAggregateRecord(t *testing.T) {
	_, socketPath := newTestServer(t)

	reply := roundTrip(t, socketPath, Request{SrcMID: "test", Func: "status"})

	assert.Equal(t, "success", reply.Status)
	body, ok := reply.Message.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, body, "lte")
	assert.Contains(t, body, "wifi_client")
	assert.Contains(t, body, "ncstatus")
}

func TestConnectionInfoUnknownKindReturnsError(t *testing.T) {
	_, socketPath := newTestServer(t)

	reply := roundTrip(t, socketPath, Request{
		SrcMID: "test",
		Func:   "connection_info",
		Params: []json.RawMessage{[]byte(`"bogus"`)},
	})

	assert.Equal(t, "error", reply.Status)
}

func TestConnectWithPartialConfigOnlyTouchesPresentKeys(t *testing.T) {
	_, socketPath := newTestServer(t)

	reply := roundTrip(t, socketPath, Request{
		SrcMID: "test",
		Func:   "connect",
		Params: []json.RawMessage{[]byte(`{"lan": {"name": "eth0", "ipv4": {"dhcp": true}}}`)},
	})

	assert.Equal(t, "success", reply.Status)

	status := roundTrip(t, socketPath, Request{SrcMID: "test", Func: "status"})
	body, ok := status.Message.(map[string]interface{})
	require.True(t, ok)
	lan, ok := body["lan"].(map[string]interface{})
	require.True(t, ok)
	assert.NotNil(t, lan["config"], "the lan key was present and must be applied")
	wifiClient, ok := body["wifi_client"].(map[string]interface{})
	require.True(t, ok)
	assert.Nil(t, wifiClient["config"], "the wifi_client key was absent and must stay untouched")
	assert.Equal(t, "INACTIVE", wifiClient["status"])
}

func TestInterfacesReturnsAList(t *testing.T) {
	_, socketPath := newTestServer(t)

	reply := roundTrip(t, socketPath, Request{SrcMID: "test", Func: "interfaces"})

	assert.Equal(t, "success", reply.Status)
	_, ok := reply.Message.([]interface{})
	assert.True(t, ok)
}
