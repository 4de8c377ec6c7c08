package device

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestEnumerateMergesUSBAndClassNet(t *testing.T) {
	usbRoot := t.TempDir()
	classNetRoot := t.TempDir()
	sysBusUSB = usbRoot
	sysClassNet = classNetRoot
	t.Cleanup(func() {
		sysBusUSB = "/sys/bus/usb/devices"
		sysClassNet = "/sys/class/net"
	})

	// A USB wired NIC at port 4-1:1.0.
	writeFile(t, filepath.Join(usbRoot, "4-1:1.0", "idVendor"), "0bda\n")
	writeFile(t, filepath.Join(usbRoot, "4-1:1.0", "idProduct"), "8153\n")
	require.NoError(t, os.MkdirAll(filepath.Join(usbRoot, "4-1:1.0", "net", "eth1"), 0o755))

	// A USB modem exposing two tty ports under the same usbid.
	writeFile(t, filepath.Join(usbRoot, "3-1:1.0", "idVendor"), "12d1\n")
	writeFile(t, filepath.Join(usbRoot, "3-1:1.0", "idProduct"), "1506\n")
	require.NoError(t, os.MkdirAll(filepath.Join(usbRoot, "3-1:1.0", "ttyUSB0"), 0o755))
	writeFile(t, filepath.Join(usbRoot, "3-1:1.1", "idVendor"), "12d1\n")
	writeFile(t, filepath.Join(usbRoot, "3-1:1.1", "idProduct"), "1506\n")
	require.NoError(t, os.MkdirAll(filepath.Join(usbRoot, "3-1:1.1", "ttyUSB1"), 0o755))

	// The USB NIC's /sys/class/net entry, plus a builtin interface (lo)
	// only visible via /sys/class/net.
	writeFile(t, filepath.Join(classNetRoot, "eth1", "address"), "aa:bb:cc:dd:ee:ff\n")
	writeFile(t, filepath.Join(classNetRoot, "lo", "address"), "00:00:00:00:00:00\n")

	list := Enumerate()

	var eth1Count int
	var sawModem bool
	for _, rec := range list {
		if rec.Ifname == "eth1" {
			eth1Count++
			assert.Equal(t, "aa:bb:cc:dd:ee:ff", rec.MAC, "eth1 MAC should come from the USB net/ dir match, not be duplicated")
		}
		if rec.Type == TypeGSMModem {
			sawModem = true
			assert.Equal(t, "ppp", rec.Ifname)
			assert.ElementsMatch(t, []string{"ttyUSB0", "ttyUSB1"}, rec.TTYs)
		}
	}

	assert.Equal(t, 1, eth1Count, "expected eth1 to be enumerated exactly once")
	assert.True(t, sawModem, "expected a synthesised ppp/gsm_modem record")
}

func TestSameHardware(t *testing.T) {
	a := Interface{USBID: "12d1:1506", Ifname: "wwan0"}
	b := Interface{USBID: "12d1:1506", Ifname: "wwan1"}
	c := Interface{Ifname: "wwan0"}

	assert.True(t, a.SameHardware(b), "same usbid should match regardless of ifname")
	assert.True(t, a.SameHardware(c), "fallback to ifname when usbid absent on one side")
}

func TestMatchPrefersFirstEnumerated(t *testing.T) {
	list := []Interface{
		{Ifname: "eth0", Bus: BusBuiltin},
		{Ifname: "eth1", Bus: BusUSB, Port: "4-1:1.0"},
	}

	iface, ok := Match(list, Selector{USBPort: "4-1:1.0"})
	require.True(t, ok)
	assert.Equal(t, "eth1", iface.Ifname)

	_, ok = Match(list, Selector{Name: "eth9"})
	assert.False(t, ok)
}
