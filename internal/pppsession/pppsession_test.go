package pppsession

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakePppd(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pppd")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestStartReturnsOnIPUpFinished(t *testing.T) {
	path := fakePppd(t, "echo 'local  IP address 10.0.0.1'\necho 'remote IP address 10.0.0.2'\necho 'ip-up finished'\nsleep 5\n")

	s, err := Start(path, nil)
	require.NoError(t, err)
	defer s.Disconnect()

	assert.Equal(t, "10.0.0.1", s.LocalAddr())
	assert.Equal(t, "10.0.0.2", s.RemoteAddr())
}

func TestStartReturnsErrorOnNonZeroExit(t *testing.T) {
	path := fakePppd(t, "echo 'Connect script failed'\nexit 8\n")

	_, err := Start(path, nil)
	require.Error(t, err)

	var ppErr *Error
	require.ErrorAs(t, err, &ppErr)
	assert.Equal(t, 8, ppErr.Code)
}

func TestStartRejectsMissingBinary(t *testing.T) {
	_, err := Start(filepath.Join(t.TempDir(), "does-not-exist"), nil)
	assert.Error(t, err)
}

func TestDNSParsesMultipleAddresses(t *testing.T) {
	s := &Session{}
	s.append("DNS address 8.8.8.8\n")
	s.append("DNS address 8.8.4.4\n")

	assert.Equal(t, []string{"8.8.8.8", "8.8.4.4"}, s.DNS())
}
