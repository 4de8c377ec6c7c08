package device

// Selector is the subset of a LinkConfig the device matcher cares
// about: bind by interface name, by MAC, or by USB topology port.
type Selector struct {
	Name    string
	MAC     string
	USBPort string
}

// Match returns the first enumerated interface satisfying sel, in
// enumeration order - "if multiple candidate interfaces match, the
// first in enumeration order wins".
func Match(list []Interface, sel Selector) (Interface, bool) {
	for _, iface := range list {
		if sel.MAC != "" && iface.MAC == sel.MAC {
			return iface, true
		}
		if sel.Name != "" && iface.Ifname == sel.Name {
			return iface, true
		}
		if sel.USBPort != "" && iface.Bus == BusUSB && iface.Port == sel.USBPort {
			return iface, true
		}
	}

	return Interface{}, false
}
