// Package atmodem implements a line-oriented AT-command parser and a
// serialised client for talking to a GSM/LTE modem over its control
// tty, grounded in original_source/src/at_modem.py. The parser is
// rewritten as the small state machine the design notes (spec.md §9)
// call for - states {seekingLine, inLine} plus one byte of delimiter
// lookback - rather than the original's repeated regex re-scan of a
// growing buffer, while remaining behaviourally identical: every
// complete "\r\n<content>\r\n" span becomes one captured line (content
// here is exactly what original_source's non-greedy regex captures:
// any run of one or more bytes strictly between two \r\n delimiters),
// and once the last captured line is a terminator, the whole line list
// is frozen as the parsed response.
package atmodem

import "strings"

var finalResponses = []string{"OK", "ERROR", "NO CARRIER"}

// errorPrefixes are final responses identified by prefix rather than
// exact match (the numeric code follows the colon).
var errorPrefixes = []string{"+CME ERROR:", "+CMS ERROR:"}

type lineState int

const (
	seekingLine lineState = iota // between lines, watching for the \r\n that starts one
	inLine                       // accumulating content, watching for the \r\n that ends it
)

// Parser accumulates characters fed one at a time and exposes the
// captured response lines once a terminator line is seen.
type Parser struct {
	state   lineState
	lastTwo [2]byte // rolling lookback, used to detect "\r\n"
	n       int     // how many of lastTwo are valid (0, 1, or 2)

	cur      strings.Builder
	lines    []string
	response []string
}

// NewParser returns a ready-to-feed Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Reset clears any accumulated buffer and parsed response, making the
// parser ready to feed a new command's reply.
func (p *Parser) Reset() {
	p.state = seekingLine
	p.n = 0
	p.cur.Reset()
	p.lines = nil
	p.response = nil
}

// Feed processes one character of modem output.
func (p *Parser) Feed(c byte) {
	if p.response != nil {
		return // already terminated; ignore further bytes until Reset
	}

	sawCRLF := p.push(c)

	switch p.state {
	case seekingLine:
		if sawCRLF {
			p.state = inLine
			p.cur.Reset()
		}
	case inLine:
		if sawCRLF {
			line := p.cur.String()
			// the \n we just consumed was preceded by \r: trim that \r
			// off the accumulated content (it was appended before we
			// recognised the pair).
			line = strings.TrimSuffix(line, "\r")
			if line == "" {
				// no content between the two delimiters: the second \r\n
				// opens the next line instead of closing an empty one.
				p.cur.Reset()
				return
			}
			p.lines = append(p.lines, line)
			p.checkTerminator(line)
			p.state = seekingLine
			p.cur.Reset()
		} else {
			p.cur.WriteByte(c)
		}
	}
}

// push records c into the 2-byte lookback window and reports whether
// the window now ends in "\r\n".
func (p *Parser) push(c byte) bool {
	p.lastTwo[0] = p.lastTwo[1]
	p.lastTwo[1] = c
	if p.n < 2 {
		p.n++
	}
	return p.n == 2 && p.lastTwo[0] == '\r' && p.lastTwo[1] == '\n'
}

func (p *Parser) checkTerminator(line string) {
	for _, t := range finalResponses {
		if line == t {
			p.freeze()
			return
		}
	}
	for _, prefix := range errorPrefixes {
		if strings.HasPrefix(line, prefix) {
			p.freeze()
			return
		}
	}
}

func (p *Parser) freeze() {
	p.response = make([]string, len(p.lines))
	copy(p.response, p.lines)
}

// Response returns the captured response lines, or nil if no
// terminator line has been seen yet.
func (p *Parser) Response() []string {
	return p.response
}
