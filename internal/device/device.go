// Package device enumerates network interfaces by walking the USB
// topology under /sys/bus/usb/devices and the flat interface list under
// /sys/class/net, the same two sources the original Python tools.netifaces()
// combined (original_source/src/tools.py: get_usb_devices + get_netifaces).
// A directory under the USB bus counts as a USB device when it holds
// idVendor/idProduct files; an interface counts as wireless when
// /sys/class/net/<ifname>/wireless exists. No device/subsystem symlink is
// read.
//
// Nothing here is cached: every call walks the filesystem fresh, since the
// daemon must observe hotplug/unplug between reconcile iterations.
package device

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// sysClassNet and sysBusUSB are package-level variables rather than
// constants so tests can point them at a fixture tree under t.TempDir();
// production code never reassigns them.
var (
	sysClassNet = "/sys/class/net"
	sysBusUSB   = "/sys/bus/usb/devices"
)

// IfaceType enumerates the kinds of interface this package can produce.
type IfaceType string

const (
	TypeWired    IfaceType = "wired"
	TypeWifi     IfaceType = "wifi"
	TypeGSMModem IfaceType = "gsm_modem"
)

// Bus is where the interface physically attaches.
type Bus string

const (
	BusUSB     Bus = "usb"
	BusBuiltin Bus = "builtin"
)

// Interface is one record of the enumeration: a network interface, or a
// USB modem that only exposes serial ports (ifname is synthesised as
// "ppp" in that case, matching the original).
type Interface struct {
	Ifname string
	MAC    string
	Type   IfaceType
	Bus    Bus
	Port   string // USB topology path, e.g. "4-1:1.0"
	USBID  string // "idVendor:idProduct"
	TTYs   []string
}

// SameHardware reports whether a and b describe the same physical
// device: matching usbid, or matching ifname when usbid is absent
// (builtin interfaces have no usbid).
func (a Interface) SameHardware(b Interface) bool {
	if a.USBID != "" && b.USBID != "" {
		return a.USBID == b.USBID
	}
	return a.Ifname != "" && a.Ifname == b.Ifname
}

// Enumerate walks the USB bus followed by /sys/class/net and returns the
// merged interface list in discovery order. USB network interfaces and
// USB modems (serial-only) are discovered first; any /sys/class/net
// entry not already present by ifname is appended afterwards.
func Enumerate() []Interface {
	var list []Interface
	walkUSB(sysBusUSB, &list)

	for _, rec := range scanClassNet() {
		found := false
		for _, existing := range list {
			if existing.Ifname == rec.Ifname {
				found = true
				break
			}
		}
		if !found {
			list = append(list, rec)
		}
	}

	return list
}

// walkUSB makes one pass over the /sys/bus/usb/devices tree (a flat directory of
// device nodes, each potentially exposing a net/ or tty subdirectory,
// rather than a true tree - but devices sharing a usbid are the
// sub-interfaces of the same physical gadget and must be correlated).
func walkUSB(root string, list *[]Interface) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return
	}

	// Stable order keeps "first match wins" in device.Match deterministic
	// across repeated calls, per spec: ties broken by enumeration order.
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		devPath := filepath.Join(root, name)
		usbid := readUSBID(devPath)
		if usbid == "" {
			continue
		}

		if netDir := firstSubdir(filepath.Join(devPath, "net")); netDir != "" {
			rec := Interface{
				Ifname: netDir,
				Bus:    BusUSB,
				Port:   name,
				USBID:  usbid,
				Type:   TypeWired,
			}
			if isWireless(netDir) {
				rec.Type = TypeWifi
			}
			rec.MAC = readMAC(netDir)
			*list = append(*list, rec)
			continue
		}

		if tty := ttyName(devPath); tty != "" {
			mergeTTY(list, usbid, name, tty)
		}
	}
}

// mergeTTY appends tty to the record sharing usbid, creating a
// gsm_modem pseudo-record (ifname "ppp") if none exists yet - this is
// the "afterwards... creating a pseudo-record" rule from the spec.
func mergeTTY(list *[]Interface, usbid, port, tty string) {
	for i := range *list {
		if (*list)[i].USBID == usbid {
			(*list)[i].TTYs = append((*list)[i].TTYs, tty)
			sort.Strings((*list)[i].TTYs)
			return
		}
	}

	*list = append(*list, Interface{
		Ifname: "ppp",
		Bus:    BusUSB,
		Port:   port,
		USBID:  usbid,
		Type:   TypeGSMModem,
		TTYs:   []string{tty},
	})
}

func scanClassNet() []Interface {
	entries, err := os.ReadDir(sysClassNet)
	if err != nil {
		return nil
	}

	var list []Interface
	for _, e := range entries {
		ifname := e.Name()
		rec := Interface{Ifname: ifname, Bus: BusBuiltin, Type: TypeWired}
		rec.MAC = readMAC(ifname)
		if isWireless(ifname) {
			rec.Type = TypeWifi
		}
		list = append(list, rec)
	}
	return list
}

func firstSubdir(netDir string) string {
	entries, err := os.ReadDir(netDir)
	if err != nil || len(entries) == 0 {
		return ""
	}
	return entries[0].Name()
}

func isWireless(ifname string) bool {
	_, err := os.Stat(filepath.Join(sysClassNet, ifname, "wireless"))
	return err == nil
}

func readMAC(ifname string) string {
	b, err := os.ReadFile(filepath.Join(sysClassNet, ifname, "address"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// readUSBID reads idVendor/idProduct from a USB device directory and
// returns "vendor:product", or "" if this directory is not itself a
// USB device node (USB buses enumerate hubs, root ports and the
// devices hanging off them all in the same flat directory).
func readUSBID(devPath string) string {
	vendor, err := os.ReadFile(filepath.Join(devPath, "idVendor"))
	if err != nil {
		return ""
	}
	product, err := os.ReadFile(filepath.Join(devPath, "idProduct"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(vendor)) + ":" + strings.TrimSpace(string(product))
}

// ttyName returns the tty device node name exposed directly under
// devPath (a "tty" or "ttyUSB0"-style subdirectory), or "" if this USB
// interface has none.
func ttyName(devPath string) string {
	entries, err := os.ReadDir(devPath)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if name == "tty" {
			if sub := firstSubdir(filepath.Join(devPath, "tty")); sub != "" {
				return sub
			}
			continue
		}
		if strings.HasPrefix(name, "ttyUSB") || strings.HasPrefix(name, "ttyACM") {
			return name
		}
	}
	return ""
}
