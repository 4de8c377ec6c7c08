// Package pppsession spawns and supervises a pppd process for the LTE
// link, grounded in original_source/src/pppd.py's PPPConnection. The
// construction blocks (as the original does) until pppd's stdout
// contains "ip-up finished", pppd exits, or a 30 second timeout
// elapses - at which point the process group is killed and a
// synthetic "timeout" exit code (100) is reported, mirroring the
// original's PPPD_RETURNCODES table entry for the same code.
package pppsession

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"syscall"
	"time"
)

// connectTimeout bounds how long Start waits for "ip-up finished"
// before killing pppd and reporting a timeout.
const connectTimeout = 30 * time.Second

// exitCodes maps pppd's documented exit codes to human messages, per
// original_source/src/pppd.py's PPPD_RETURNCODES.
var exitCodes = map[int]string{
	1:   "fatal error occurred",
	2:   "error processing options",
	3:   "not executed as root or setuid-root",
	4:   "no kernel support, PPP kernel driver not loaded",
	5:   "received SIGINT, SIGTERM or SIGHUP",
	6:   "modem could not be locked",
	7:   "modem could not be opened",
	8:   "connect script failed",
	9:   "pty argument command could not be run",
	10:  "PPP negotiation failed",
	11:  "peer failed (or refused) to authenticate",
	12:  "the link was terminated because it was idle",
	13:  "the link was terminated because the connection time limit was reached",
	14:  "callback negotiated",
	15:  "the link was terminated because the peer was not responding to echo requests",
	16:  "the link was terminated by the modem hanging up",
	17:  "PPP negotiation failed because serial loopback was detected",
	18:  "init script failed",
	19:  "failed to authenticate to the peer",
	100: "timeout",
}

// timeoutCode is the synthetic exit code Start/Connected use to signal
// a connect timeout or kill, since pppd itself never reports it.
const timeoutCode = 100

// Error reports a pppd exit with the offending exit code, its
// documented meaning, and whatever output pppd produced.
type Error struct {
	Code   int
	Output string
}

func (e *Error) Error() string {
	msg, ok := exitCodes[e.Code]
	if !ok {
		msg = "undocumented error"
	}
	return fmt.Sprintf("pppd exited %d: %s", e.Code, msg)
}

var (
	localAddrPattern  = regexp.MustCompile(`local  IP address ([\d.]+)`)
	remoteAddrPattern = regexp.MustCompile(`remote IP address ([\d.]+)`)
	dnsAddrPattern    = regexp.MustCompile(`DNS address (.*)`)
)

// Session is a running (or just-finished) pppd process.
type Session struct {
	cmd *exec.Cmd

	mu     sync.Mutex
	output strings.Builder

	exited     chan struct{}
	returncode int
}

// Start launches pppdPath with args plus the "nodetach debug" flags
// the original always appends, and blocks until link-layer comes up,
// pppd exits, or connectTimeout elapses.
func Start(pppdPath string, args []string) (*Session, error) {
	info, err := os.Stat(pppdPath)
	if err != nil || info.Mode()&0o111 == 0 {
		return nil, fmt.Errorf("pppsession: %s not found or not executable", pppdPath)
	}

	fullArgs := append(append([]string{}, args...), "nodetach", "debug")
	cmd := exec.Command(pppdPath, fullArgs...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pppsession: stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("pppsession: start %s: %w", pppdPath, err)
	}

	s := &Session{cmd: cmd, exited: make(chan struct{})}

	lineCh := make(chan string)
	go s.pump(stdout, lineCh)
	go s.waitForExit()

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	for {
		select {
		case line, ok := <-lineCh:
			if ok {
				s.append(line)
				if strings.Contains(line, "ip-up finished") {
					log.Printf("pppsession: link layer up (%s)", pppdPath)
					go func() {
						for line := range lineCh {
							s.append(line)
						}
					}()
					return s, nil
				}
				continue
			}
			// stdout closed; fall through to check exit status below
		case <-s.exited:
		case <-ctx.Done():
			log.Printf("pppsession: connect timeout, killing process group")
			s.kill()
			return nil, &Error{Code: timeoutCode, Output: s.Output()}
		}

		select {
		case <-s.exited:
			if s.returncode != 0 {
				return nil, &Error{Code: s.returncode, Output: s.Output()}
			}
		default:
			continue
		}
		if strings.Contains(s.Output(), "ip-up finished") {
			return s, nil
		}
		return nil, &Error{Code: s.returncode, Output: s.Output()}
	}
}

func (s *Session) pump(r io.Reader, lineCh chan<- string) {
	defer close(lineCh)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineCh <- scanner.Text() + "\n"
	}
}

func (s *Session) waitForExit() {
	err := s.cmd.Wait()
	code := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}
	s.mu.Lock()
	s.returncode = code
	s.mu.Unlock()
	close(s.exited)
}

func (s *Session) append(line string) {
	s.mu.Lock()
	s.output.WriteString(line)
	s.mu.Unlock()
}

// Output returns everything pppd has written to stdout/stderr so far.
func (s *Session) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output.String()
}

// Connected reports whether the link is still up. If pppd has exited
// with a code other than 0 (clean) or 5 (killed by us), it returns an
// error carrying that exit code, matching the original's distinction
// between an expected teardown and an unexpected one.
func (s *Session) Connected() (bool, error) {
	select {
	case <-s.exited:
		s.mu.Lock()
		code := s.returncode
		s.mu.Unlock()
		if code != 0 && code != 5 {
			return false, &Error{Code: code, Output: s.Output()}
		}
		return false, nil
	default:
	}
	return strings.Contains(s.Output(), "ip-up finished"), nil
}

// LocalAddr returns the negotiated local IP address, or "" if not yet
// seen in pppd's output.
func (s *Session) LocalAddr() string {
	if m := localAddrPattern.FindStringSubmatch(s.Output()); m != nil {
		return m[1]
	}
	return ""
}

// RemoteAddr returns the negotiated peer IP address, or "" if not yet
// seen in pppd's output.
func (s *Session) RemoteAddr() string {
	if m := remoteAddrPattern.FindStringSubmatch(s.Output()); m != nil {
		return m[1]
	}
	return ""
}

// DNS returns every "DNS address ..." line pppd reported.
func (s *Session) DNS() []string {
	matches := dnsAddrPattern.FindAllStringSubmatch(s.Output(), -1)
	dns := make([]string, 0, len(matches))
	for _, m := range matches {
		dns = append(dns, strings.TrimSpace(m[1]))
	}
	return dns
}

// Disconnect tears the session down if it's still connected.
func (s *Session) Disconnect() {
	if ok, err := s.Connected(); !ok && err == nil {
		return
	}
	s.kill()
}

// kill signals SIGHUP then SIGTERM to the whole process group, as
// original_source/src/pppd.py::kill_pppd does.
func (s *Session) kill() {
	pgid, err := syscall.Getpgid(s.cmd.Process.Pid)
	if err != nil {
		return
	}
	_ = syscall.Kill(-pgid, syscall.SIGHUP)
	_ = syscall.Kill(-pgid, syscall.SIGTERM)
}
