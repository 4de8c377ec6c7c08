package atmodem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSQRSSIConversion(t *testing.T) {
	cases := []struct {
		raw      string
		wantRSSI int
	}{
		{"+CSQ: 2,99", -109},
		{"+CSQ: 15,99", -83},
		{"+CSQ: 30,99", -53},
		{"+CSQ: 0,99", -113},
		{"+CSQ: 1,99", -113},
		{"+CSQ: 31,99", -113},
		{"+CSQ: 99,99", -113},
	}
	for _, tc := range cases {
		info, err := parseCSQ(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.wantRSSI, info.RSSI, tc.raw)
	}
}

func TestParseCSQLevelBuckets(t *testing.T) {
	cases := []struct {
		raw       string
		wantLevel int
	}{
		{"+CSQ: 2,99", 0},  // -109 dBm, marginal
		{"+CSQ: 11,99", 1}, // -91 dBm, ok
		{"+CSQ: 15,99", 2}, // -83 dBm, good
		{"+CSQ: 30,99", 3}, // -53 dBm, excellent
	}
	for _, tc := range cases {
		info, err := parseCSQ(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.wantLevel, info.Level, tc.raw)
	}
}

func TestParseCSQBEREchoedVerbatim(t *testing.T) {
	info, err := parseCSQ("+CSQ: 15,7")
	require.NoError(t, err)
	assert.Equal(t, "7", info.BER)
}

func TestParseCSQRejectsGarbage(t *testing.T) {
	_, err := parseCSQ("garbage")
	assert.Error(t, err)
}

func TestParseCREGRegistered(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"+CREG: 0,1", true},
		{"+CREG: 0,5", true},
		{"+CREG: 0,2", false},
		{"+CREG: 0,0", false},
	}
	for _, tc := range cases {
		got, err := parseCREGRegistered(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestParseCREGRejectsGarbage(t *testing.T) {
	_, err := parseCREGRegistered("not a creg line")
	assert.Error(t, err)
}

func TestParseCOPS(t *testing.T) {
	info, err := parseCOPS(`+COPS: 0,0,"Vodafone CZ"`)
	require.NoError(t, err)
	assert.Equal(t, "Vodafone CZ", info.Operator)
}

func TestParseCOPSRejectsGarbage(t *testing.T) {
	_, err := parseCOPS("+COPS: nothing useful here")
	assert.Error(t, err)
}

func TestEndOKRejectsNonOKTermination(t *testing.T) {
	_, err := endOK([]string{"+CSQ: 15,99", "ERROR"}, true)
	assert.Error(t, err)

	res, err := endOK([]string{"+CSQ: 15,99", "OK"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"+CSQ: 15,99", "OK"}, res)
}

func TestEndOKIgnoresTerminationWhenNotExpected(t *testing.T) {
	res, err := endOK([]string{"^NDISSTATQRY: 0,,,\"IPV4\""}, false)
	require.NoError(t, err)
	assert.Len(t, res, 1)
}
