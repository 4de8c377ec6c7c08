package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryNetworkctlDNSMissingBinaryReturnsFalse(t *testing.T) {
	_, ok := queryNetworkctlDNS("eth0")
	assert.False(t, ok)
}

func TestFallbackDNSIsGoogle(t *testing.T) {
	assert.Equal(t, []string{"8.8.8.8", "8.8.4.4"}, fallbackDNS)
}

func TestNewBuildsAllFourSupervisors(t *testing.T) {
	m := New(t.TempDir(), t.TempDir()+"/resolv.conf", "example.com")

	assert.Equal(t, "example.com", m.testHost)
	status := m.Status()
	assert.NotNil(t, status.LAN)
	assert.NotNil(t, status.WifiClient)
	assert.NotNil(t, status.WifiAP)
	assert.NotNil(t, status.LTE)
}

func TestConnectionInfoUnknownKind(t *testing.T) {
	m := New(t.TempDir(), t.TempDir()+"/resolv.conf", "example.com")

	_, err := m.ConnectionInfo("bogus")
	assert.Error(t, err)
}

func TestConfigIgnoresEmptyTestHost(t *testing.T) {
	m := New(t.TempDir(), t.TempDir()+"/resolv.conf", "example.com")

	m.Config("")
	assert.Equal(t, "example.com", m.testHost)

	m.Config("other.example.com")
	assert.Equal(t, "other.example.com", m.testHost)
}
