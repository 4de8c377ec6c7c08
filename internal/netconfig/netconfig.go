// Package netconfig holds the declarative configuration and status types
// shared across the supervisors and the connection manager. None of these
// types carry behavior of their own; they are the data model described in
// the link config / link status sections of the design.
package netconfig

// IPv4 is the address configuration recognised by every supervisor kind.
type IPv4 struct {
	DHCP    bool     `json:"dhcp"`
	IP      string   `json:"ip,omitempty"`
	Netmask string   `json:"netmask,omitempty"`
	Gateway string   `json:"gw,omitempty"`
	DNS     []string `json:"dns,omitempty"`
}

// WifiClientParams are the wifi_client-kind-specific fields.
type WifiClientParams struct {
	SSID string `json:"ssid"`
	Key  string `json:"key,omitempty"`
}

// WifiAPParams are the wifi_ap-kind-specific fields.
type WifiAPParams struct {
	SSID    string `json:"ssid"`
	Channel int    `json:"channel"`
	Key     string `json:"key,omitempty"`
}

// LTEParams are the lte-kind-specific fields.
type LTEParams struct {
	APN      string `json:"apn"`
	Number   string `json:"number"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
}

// LinkConfig is the opaque-to-the-caller dictionary handed to a single
// supervisor's connect(cfg). Name/MAC/USBPort are hardware selectors;
// exactly one is normally set. The device matcher checks every set
// selector against each enumerated interface in turn, and the first
// interface matching any of them wins.
type LinkConfig struct {
	Name    string `json:"name,omitempty"`
	MAC     string `json:"mac,omitempty"`
	USBPort string `json:"usb_port,omitempty"`

	IPv4 IPv4 `json:"ipv4"`

	WifiClient *WifiClientParams `json:"wifi_client,omitempty"`
	WifiAP     *WifiAPParams     `json:"wifi_ap,omitempty"`
	LTE        *LTEParams        `json:"lte,omitempty"`
}

// DaemonConfig is the top-level connect() request: one optional
// LinkConfig per link kind. Manager.Connect forwards every field, so a
// nil pointer disables that link. The IPC layer (see ipcserver) does not
// use this type: it leaves a kind whose key is absent untouched, disables
// one whose key is null, and forwards each present key through
// Manager.ConnectKind.
type DaemonConfig struct {
	LTE        *LinkConfig `json:"lte"`
	WifiClient *LinkConfig `json:"wifi_client"`
	WifiAP     *LinkConfig `json:"wifi_ap"`
	LAN        *LinkConfig `json:"lan"`
}

// Status values a supervisor can publish.
type Status string

const (
	StatusInactive     Status = "INACTIVE"
	StatusNotConnected Status = "NOT_CONNECTED"
	StatusConnecting   Status = "CONNECTING"
	StatusConnected    Status = "CONNECTED"
)

// LinkStatus is the concurrently-readable record a supervisor publishes.
type LinkStatus struct {
	Status Status      `json:"status"`
	Error  *string     `json:"error"`
	Config *LinkConfig `json:"config"`
	Ifname string      `json:"ifname,omitempty"`
	DNS    []string    `json:"dns,omitempty"`
}

// DefaultRoute is the active outbound interface and its gateway, or both
// empty if there currently is none.
type DefaultRoute struct {
	Ifname string `json:"ifname,omitempty"`
	IP     string `json:"ip,omitempty"`
}

// ManagerStatus is the manager-scope published record.
type ManagerStatus struct {
	Online          bool     `json:"online"`
	LastOnlineCheck int64    `json:"last_online_check"`
	TestHost        string   `json:"test_host"`
	DNS             []string `json:"dns"`
}

// AggregateStatus is the reply payload of the "status" IPC func.
type AggregateStatus struct {
	LTE        LinkStatus    `json:"lte"`
	WifiClient LinkStatus    `json:"wifi_client"`
	WifiAP     LinkStatus    `json:"wifi_ap"`
	LAN        LinkStatus    `json:"lan"`
	NCStatus   ManagerStatus `json:"ncstatus"`
	GW         DefaultRoute  `json:"gw"`
}

// InfoRecord is the free-form "live augmentation" payload returned by a
// supervisor's info() operation (§4.7): published status plus
// kernel-observed address/operstate/ifname and kind-specific fields
// (e.g. wireless_status, modem_signal). Kept as a map rather than a
// fixed struct since its shape genuinely varies per link kind, exactly
// as the original's per-kind info() dict does.
type InfoRecord map[string]interface{}

// ErrString is a convenience for building the *string fields above.
func ErrString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
