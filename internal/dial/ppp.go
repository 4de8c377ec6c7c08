package dial

import (
	"fmt"
	"os"

	"github.com/rehivetech/netconnectd/internal/netconfig"
)

// ChatScriptPath is the fixed path the rendered chat script is
// written to, matching original_source/src/lte.py's CHATSCRIPT_PATH.
const ChatScriptPath = "/tmp/gsm-keeper.chat"

const chatScriptTemplate = `ABORT 'BUSY'
ABORT 'NO CARRIER'
ABORT 'VOICE'
ABORT 'NO DIALTONE'
ABORT 'NO DIAL TONE'
ABORT 'NO ANSWER'
ABORT 'DELAYED'
REPORT CONNECT
TIMEOUT 6
'' 'ATQ0'
'OK-AT-OK' 'ATZ'
TIMEOUT 3
'OK\d-AT-OK' 'ATI'
'OK' 'ATZ'
'OK' 'AT+CFUN=1'
'OK' 'ATQ0 V1 E1 S0=0 &C1 &D2 +FCLASS=0'
'OK-AT-OK' AT+CGDCONT=1,"IP","%s"
'OK' 'ATDT%s'
TIMEOUT 30
CONNECT ''
`

// ChatScript renders the chat(8) script dialling apn/number, matching
// original_source/src/lte.py's CHATSCRIPT template.
func ChatScript(apn, number string) string {
	return fmt.Sprintf(chatScriptTemplate, apn, number)
}

// WriteChatScript writes the rendered chat script unconditionally -
// unlike the networkd/wpa_supplicant/hostapd renderers, the original
// always rewrites this file before each dial attempt rather than
// diffing it, since pppd reads it once per invocation anyway.
func WriteChatScript(apn, number string) error {
	if err := os.WriteFile(ChatScriptPath, []byte(ChatScript(apn, number)), 0o644); err != nil {
		return fmt.Errorf("dial: write %s: %w", ChatScriptPath, err)
	}
	return nil
}

// PPPDArgs builds pppd's argument list for an LTE dial, matching
// original_source/src/lte.py's PPPD_PARAMS template. chatPath is the
// path to the chat(8) binary.
func PPPDArgs(dataPort, chatPath string, params netconfig.LTEParams) []string {
	args := []string{
		dataPort, "921600", "lock", "passive", "defaultroute",
		"noipdefault", "usepeerdns", "hide-password", "replacedefaultroute", "nodetach",
		"lcp-echo-failure", "0", "lcp-echo-interval", "0",
		"connect", fmt.Sprintf("%s -v -t 20 -f %s", chatPath, ChatScriptPath),
	}
	if params.User != "" {
		args = append(args, "user", params.User)
		if params.Password != "" {
			args = append(args, "password", params.Password)
		}
	} else {
		args = append(args, "noauth")
	}
	return args
}
