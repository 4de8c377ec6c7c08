package dial

import (
	"fmt"

	"github.com/rehivetech/netconnectd/internal/netconfig"
)

// HostapdConf is the fixed path hostapd's rendered config is written
// to, matching original_source/src/wifi_ap.py's HOSTAPD_CONF.
const HostapdConf = "/tmp/netconnect_hostapd.conf"

// DefaultAPChannel is used when a wifi-AP config doesn't name one.
const DefaultAPChannel = 5

// DefaultAPSSID is used when a wifi-AP config doesn't name one.
const DefaultAPSSID = "NetconnectAP"

// HostapdConfig renders hostapd's config file, appending the WPA-PSK
// block only when a key is set (an open AP otherwise), matching
// original_source/src/wifi_ap.py's HOSTAPD_CONF_CONTENT/_ENC_CONTENT.
func HostapdConfig(ifname string, params netconfig.WifiAPParams) string {
	ssid := params.SSID
	if ssid == "" {
		ssid = DefaultAPSSID
	}
	channel := params.Channel
	if channel == 0 {
		channel = DefaultAPChannel
	}

	content := fmt.Sprintf(`
interface=%s
ieee80211n=1
hw_mode=g
ssid=%s
channel=%d
`, ifname, ssid, channel)

	if params.Key != "" {
		content += fmt.Sprintf(`
wpa=1
wpa_passphrase=%s
wpa_key_mgmt=WPA-PSK
wpa_pairwise=TKIP CCMP
`, params.Key)
	}

	return content
}

// WriteHostapdConfig writes the rendered config only if it changed.
func WriteHostapdConfig(ifname string, params netconfig.WifiAPParams) (bool, error) {
	return writeIfChanged(HostapdConf, HostapdConfig(ifname, params))
}

// HostapdCommand returns hostapd's argv, matching
// HOSTAPD_CMD = '/usr/sbin/hostapd %s'.
func HostapdCommand() []string {
	return []string{"/usr/sbin/hostapd", HostapdConf}
}
