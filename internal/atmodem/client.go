package atmodem

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// maxReadChars bounds how many bytes Send will read while waiting for
// a terminated response, mirroring original_source/src/at_modem.py's
// "maximum chars to be read" loop of 100 iterations.
const maxReadChars = 100

// SignalInfo is the parsed reply to AT+CSQ.
type SignalInfo struct {
	RSSI  int    // dBm
	Level int    // 0-3 coarse bucket, scaled against LevelMax
	BER   string // raw bit error rate field, kept opaque like the original
}

// LevelMax is the denominator SignalInfo.Level is expressed against
// (the original always reports level as "n out of 3").
const LevelMax = 3

// NetworkInfo is the parsed reply to AT+CREG? (and, if not registered,
// AT+CPIN?).
type NetworkInfo struct {
	Registered bool
	SimReady   bool
}

// ModelInfo is the parsed reply to AT+CGMI / AT+CGMM / ATI.
type ModelInfo struct {
	Vendor  string
	Product string
	Rev     string
}

// OperatorInfo is the parsed reply to AT+COPS?.
type OperatorInfo struct {
	Operator string
}

var (
	csqPattern = regexp.MustCompile(`^\+CSQ: ([0-9]{1,3}),([0-9]{1,3})`)
	cregPattern = regexp.MustCompile(`^\+CREG: ([0-9]),([0-9])`)
	cpinReadyPattern = regexp.MustCompile(`^\+CPIN: READY`)
	copsPattern = regexp.MustCompile(`^\+COPS:.*?,.*?,"(.*)"`)
	revisionPattern = regexp.MustCompile(`(?m)^Revision: (.*)$`)
)

// Client talks AT commands over one modem's control tty. Exactly one
// command may be outstanding at a time, enforced by mu, matching the
// exclusive serial access the original guards with a process lock.
type Client struct {
	mu sync.Mutex
}

// NewClient returns a ready-to-use Client.
func NewClient() *Client {
	return &Client{}
}

// Send writes atcmd (CR-terminated) to dev and reads until the parser
// recognises a terminated response, a read times out, or maxReadChars
// bytes have been read without one; the last two return an error. If
// expectOK is true and the final line isn't
// "OK", Send returns an error - the original's "not ok" contract,
// reshaped into Go's error idiom instead of a nil-sentinel.
func (c *Client) Send(dev, atcmd string, expectOK bool) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(dev, mode)
	if err != nil {
		return nil, fmt.Errorf("atmodem: open %s: %w", dev, err)
	}
	defer port.Close()

	if err := port.SetReadTimeout(500 * time.Millisecond); err != nil {
		return nil, fmt.Errorf("atmodem: set read timeout on %s: %w", dev, err)
	}

	if _, err := port.Write([]byte(atcmd + "\r")); err != nil {
		return nil, fmt.Errorf("atmodem: write to %s: %w", dev, err)
	}

	p := NewParser()
	buf := make([]byte, 1)
	for i := 0; i < maxReadChars; i++ {
		n, err := port.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("atmodem: read from %s: %w", dev, err)
		}
		if n == 0 {
			return nil, fmt.Errorf("atmodem: read timeout on %s", dev)
		}
		p.Feed(buf[0])
		if res := p.Response(); res != nil {
			return endOK(res, expectOK)
		}
	}

	return nil, fmt.Errorf("atmodem: no terminated response from %s", dev)
}

func endOK(res []string, expectOK bool) ([]string, error) {
	if expectOK && (len(res) == 0 || res[len(res)-1] != "OK") {
		return nil, fmt.Errorf("atmodem: command did not end in OK: %v", res)
	}
	return res, nil
}

// Signal runs AT+CSQ and converts the raw rssi/ber pair into dBm and a
// coarse signal-quality bucket, per original_source/src/at_modem.py's
// signal() docstring.
func (c *Client) Signal(dev string) (SignalInfo, error) {
	res, err := c.Send(dev, "AT+CSQ", true)
	if err != nil {
		return SignalInfo{}, err
	}
	if len(res) == 0 {
		return SignalInfo{}, fmt.Errorf("atmodem: empty CSQ response")
	}
	return parseCSQ(res[0])
}

func parseCSQ(line string) (SignalInfo, error) {
	m := csqPattern.FindStringSubmatch(line)
	if m == nil {
		return SignalInfo{}, fmt.Errorf("atmodem: unparseable CSQ reply %q", line)
	}

	rawRSSI, _ := strconv.Atoi(m[1])
	rssi := -(113 - rawRSSI*2)
	if rawRSSI < 2 || rawRSSI > 30 {
		rssi = -113
	}

	var level int
	switch {
	case rssi <= -95:
		level = 0
	case rssi <= -85:
		level = 1
	case rssi <= -75:
		level = 2
	default:
		level = 3
	}

	return SignalInfo{RSSI: rssi, Level: level, BER: m[2]}, nil
}

// Registered runs AT+CREG? and reports whether stat is 1 (registered,
// home) or 5 (registered, roaming).
func (c *Client) Registered(dev string) (bool, error) {
	res, err := c.Send(dev, "AT+CREG?", true)
	if err != nil {
		return false, err
	}
	if len(res) == 0 {
		return false, fmt.Errorf("atmodem: empty CREG response")
	}
	return parseCREGRegistered(res[0])
}

func parseCREGRegistered(line string) (bool, error) {
	m := cregPattern.FindStringSubmatch(line)
	if m == nil {
		return false, fmt.Errorf("atmodem: unparseable CREG reply %q", line)
	}
	stat := m[2]
	return stat == "1" || stat == "5", nil
}

// NetworkInfo runs AT+CREG? and, when not registered, AT+CPIN? to
// distinguish "no signal yet" from "no SIM".
func (c *Client) NetworkInfo(dev string) (NetworkInfo, error) {
	registered, err := c.Registered(dev)
	if err != nil {
		return NetworkInfo{}, err
	}

	info := NetworkInfo{Registered: registered, SimReady: true}
	if registered {
		return info, nil
	}

	res, err := c.Send(dev, "AT+CPIN?", false)
	if err != nil || len(res) == 0 {
		info.SimReady = false
		return info, nil
	}
	info.SimReady = cpinReadyPattern.MatchString(res[0])
	return info, nil
}

// Model runs AT+CGMI, AT+CGMM and ATI to assemble vendor/product/rev.
// A failure of ATI (some modems don't implement it) is tolerated, as
// in the original's try/except around the revision lookup.
func (c *Client) Model(dev string) (ModelInfo, error) {
	vendor, err := c.Send(dev, "AT+CGMI", true)
	if err != nil || len(vendor) == 0 {
		return ModelInfo{}, fmt.Errorf("atmodem: CGMI failed: %w", err)
	}

	product, err := c.Send(dev, "AT+CGMM", true)
	if err != nil || len(product) == 0 {
		return ModelInfo{}, fmt.Errorf("atmodem: CGMM failed: %w", err)
	}

	info := ModelInfo{Vendor: strings.Title(strings.ToLower(vendor[0])), Product: product[0]}

	if res, err := c.Send(dev, "ATI", true); err == nil && len(res) > 2 {
		if m := revisionPattern.FindStringSubmatch(res[2]); m != nil {
			info.Rev = m[1]
		}
	}

	return info, nil
}

// Operator enables extended +COPS reporting and reads back the
// current operator name.
func (c *Client) Operator(dev string) (OperatorInfo, error) {
	if _, err := c.Send(dev, "AT+COPS=3,0", true); err != nil {
		return OperatorInfo{}, err
	}

	res, err := c.Send(dev, "AT+COPS?", true)
	if err != nil || len(res) == 0 {
		return OperatorInfo{}, fmt.Errorf("atmodem: COPS? failed: %w", err)
	}

	return parseCOPS(res[0])
}

func parseCOPS(line string) (OperatorInfo, error) {
	m := copsPattern.FindStringSubmatch(line)
	if m == nil {
		return OperatorInfo{}, fmt.Errorf("atmodem: unparseable COPS reply %q", line)
	}
	return OperatorInfo{Operator: m[1]}, nil
}

// NdisConnect starts a Huawei-style NDIS data session for apn.
func (c *Client) NdisConnect(dev, apn string) error {
	_, err := c.Send(dev, fmt.Sprintf(`AT^NDISDUP=1,1,"%s"`, apn), true)
	return err
}

// NdisDisconnect tears down the NDIS data session.
func (c *Client) NdisDisconnect(dev string) error {
	_, err := c.Send(dev, "AT^NDISDUP=1,0", true)
	return err
}

// NdisConnected reports whether the NDIS session is up or coming up,
// per AT^NDISSTATQRY?'s documented status codes 0/1/2.
func (c *Client) NdisConnected(dev string) (bool, error) {
	res, err := c.Send(dev, "AT^NDISSTATQRY?", false)
	if err != nil || len(res) == 0 || len(res[0]) < 15 {
		return false, fmt.Errorf("atmodem: NDISSTATQRY failed: %w", err)
	}
	status := res[0][14]
	return status == '1' || status == '2', nil
}
