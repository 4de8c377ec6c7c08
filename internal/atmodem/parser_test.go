package atmodem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func feedString(p *Parser, s string) {
	for i := 0; i < len(s); i++ {
		p.Feed(s[i])
	}
}

func TestParserCapturesOKResponse(t *testing.T) {
	p := NewParser()
	feedString(p, "\r\nOK\r\n")

	assert.Equal(t, []string{"OK"}, p.Response())
}

func TestParserCapturesMultiLineResponse(t *testing.T) {
	p := NewParser()
	feedString(p, "\r\n+CSQ: 15,99\r\n\r\nOK\r\n")

	assert.Equal(t, []string{"+CSQ: 15,99", "OK"}, p.Response())
}

func TestParserIgnoresEchoBeforeFirstDelimiter(t *testing.T) {
	p := NewParser()
	// a modem in echo mode reflects the command itself before the CRLF
	// that starts the real response; bytes before the first \r\n never
	// form a captured line.
	feedString(p, "AT+CSQ\r\r\nOK\r\n")

	assert.Equal(t, []string{"OK"}, p.Response())
}

func TestParserStopsAtErrorPrefix(t *testing.T) {
	p := NewParser()
	feedString(p, "\r\n+CME ERROR: 10\r\n")

	assert.Equal(t, []string{"+CME ERROR: 10"}, p.Response())
}

func TestParserNoResponseBeforeTerminator(t *testing.T) {
	p := NewParser()
	feedString(p, "\r\n+CSQ: 15,99\r\n")

	assert.Nil(t, p.Response())
}

func TestParserFreezesAfterTerminator(t *testing.T) {
	p := NewParser()
	feedString(p, "\r\nOK\r\n")
	before := p.Response()

	feedString(p, "\r\nignored\r\n")
	assert.Equal(t, before, p.Response(), "bytes fed after termination must not alter the response")
}

func TestParserResetAllowsReuse(t *testing.T) {
	p := NewParser()
	feedString(p, "\r\nOK\r\n")
	p.Reset()

	assert.Nil(t, p.Response())

	feedString(p, "\r\nERROR\r\n")
	assert.Equal(t, []string{"ERROR"}, p.Response())
}

func TestParserNoCarrierTerminates(t *testing.T) {
	p := NewParser()
	feedString(p, "\r\nNO CARRIER\r\n")

	assert.Equal(t, []string{"NO CARRIER"}, p.Response())
}
