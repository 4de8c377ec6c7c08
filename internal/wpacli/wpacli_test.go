package wpacli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	out := "bssid=aa:bb:cc:dd:ee:ff\nssid=home\npairwise_cipher=CCMP\nwpa_state=COMPLETED\n"
	result := parseStatus(out)
	assert.Equal(t, "COMPLETED", result.State)
	assert.Equal(t, "home", result.SSID)
	assert.Equal(t, -99, result.RSSI, "RSSI defaults to -99 until signal_poll is applied")
}

func TestApplyRSSI(t *testing.T) {
	result := Status{RSSI: -99}
	applyRSSI(&result, "RSSI=-62\nLINKSPEED=65\n")
	assert.Equal(t, -62, result.RSSI)
}

func TestApplyRSSILeavesDefaultWhenMissing(t *testing.T) {
	result := Status{RSSI: -99}
	applyRSSI(&result, "LINKSPEED=65\n")
	assert.Equal(t, -99, result.RSSI)
}

func TestParseScanResult(t *testing.T) {
	out := "bssid / frequency / signal level / flags / ssid\n" +
		"aa:bb:cc:dd:ee:ff\t2412\t-62\t[WPA2-PSK-CCMP][ESS]\tHomeNet\n" +
		"11:22:33:44:55:66\t2437\t-70\t[ESS]\tOpenNet\n\n"

	results := parseScanResult(out)
	if assert.Len(t, results, 2) {
		assert.Equal(t, "HomeNet", results[0].SSID)
		assert.True(t, results[0].Encrypted)
		assert.Equal(t, -62/2-100, results[0].SignalDBm)

		assert.Equal(t, "OpenNet", results[1].SSID)
		assert.False(t, results[1].Encrypted)
	}
}

func TestParseScanResultSkipsHeaderAndBlankLines(t *testing.T) {
	results := parseScanResult("bssid / frequency\n\n")
	assert.Empty(t, results)
}
