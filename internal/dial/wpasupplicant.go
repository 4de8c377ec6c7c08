// Package dial renders the on-disk configuration files and process
// command lines needed to bring up a wifi-client, wifi-AP or LTE
// link, grounded in original_source/src/wifi_client.py,
// original_source/src/wifi_ap.py and original_source/src/lte.py.
package dial

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rehivetech/netconnectd/internal/netconfig"
)

// WifiSupplicantConf is where the rendered wpa_supplicant config is
// written, matching the original's fixed /tmp path.
const WifiSupplicantConf = "/tmp/netconnect_wpa_supplicant.conf"

// WifiSupplicantCtrl is the wpa_supplicant control socket directory
// both the daemon and wpa_cli invocations agree on.
const WifiSupplicantCtrl = "/tmp/netconnect_wpa_supplicant.ctrl"

// minPSKLength is the shortest a WPA-PSK passphrase may legally be;
// shorter keys are replaced with a dummy one so wpa_supplicant still
// starts (the dummy network block simply never associates).
const minPSKLength = 8

// WifiSupplicantConfig renders the three fixed network{} blocks (WPA-PSK,
// WEP, open) plus ctrl_interface, exactly as
// original_source/src/wifi_client.py's WPASUPPLICANT_CONF_CONTENT does.
func WifiSupplicantConfig(params netconfig.WifiClientParams) string {
	ssid := params.SSID
	if ssid == "" {
		ssid = "UNKNOWN"
	}
	key := params.Key
	if key == "" {
		key = "UNKNOWN"
	}
	psk := key
	if len(psk) < minPSKLength {
		psk = "dummy123"
	}

	return fmt.Sprintf(`
# WPA/WPA2
network={
    ssid="%s"
    key_mgmt=WPA-PSK
    psk="%s"
}
# WEP
network={
    ssid="%s"
    key_mgmt=NONE
    wep_key0="%s"
    wep_tx_keyidx=0
}
#OPEN
network={
    ssid="%s"
    key_mgmt=NONE
}
ctrl_interface=%s
`, ssid, psk, ssid, key, ssid, WifiSupplicantCtrl)
}

// WriteWifiSupplicantConfig writes the rendered config only if its
// content changed, matching original_source/src/tools.py::write_if_changed.
func WriteWifiSupplicantConfig(params netconfig.WifiClientParams) (bool, error) {
	return writeIfChanged(WifiSupplicantConf, WifiSupplicantConfig(params))
}

// WifiSupplicantCommand returns the wpa_supplicant argv for bringing
// up ifname against the rendered config, matching
// WPASUPPLICANT_CMD = '/sbin/wpa_supplicant -Dwext -i %s -c %s'.
func WifiSupplicantCommand(ifname string) []string {
	return []string{"/sbin/wpa_supplicant", "-Dwext", "-i", ifname, "-c", WifiSupplicantConf}
}

func writeIfChanged(path, content string) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("dial: create %s: %w", filepath.Dir(path), err)
	}
	existing, err := os.ReadFile(path)
	if err == nil && string(existing) == content {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("dial: write %s: %w", path, err)
	}
	return true, nil
}
