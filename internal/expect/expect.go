// Package expect drives interactive child processes: spawn in a pty, wait
// for output matching a pattern, send a line.
package expect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"sync"
	"time"

	"github.com/creack/pty"
)

var (
	// ErrTimeout is returned when a pattern does not appear in time.
	ErrTimeout = errors.New("expect: timed out waiting for pattern")

	// ErrEOF is returned when the child's output ends before a match.
	ErrEOF = errors.New("expect: output closed before pattern matched")

	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("expect: session closed")
)

// DefaultSendDelay is how long SendLine waits before writing. Programs
// often print a prompt before they turn terminal echo off, and a line sent
// inside that gap is echoed back.
const DefaultSendDelay = 50 * time.Millisecond

// Session is an interactive conversation with a child process.
type Session struct {
	rw     io.ReadWriteCloser
	cmd    *exec.Cmd
	chunks chan []byte
	done   chan struct{}
	buf    []byte

	// SendDelay is waited out before each SendLine. Zero sends at once.
	SendDelay time.Duration

	closeOnce sync.Once
	closeErr  error
}

// Spawn starts name in a new pty and returns a session attached to it.
func Spawn(ctx context.Context, name string, args ...string) (*Session, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	f, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %w", name, err)
	}

	s := NewSession(f)
	s.cmd = cmd
	return s, nil
}

// NewSession wraps an existing stream, such as one end of a net.Pipe.
func NewSession(rw io.ReadWriteCloser) *Session {
	s := &Session{
		rw:        rw,
		chunks:    make(chan []byte, 16),
		done:      make(chan struct{}),
		SendDelay: DefaultSendDelay,
	}
	go s.readLoop()
	return s
}

func (s *Session) readLoop() {
	defer close(s.chunks)
	for {
		b := make([]byte, 1024)
		n, err := s.rw.Read(b)
		if n > 0 {
			select {
			case s.chunks <- b[:n]:
			case <-s.done:
				return
			}
		}
		// A pty returns EIO once the child exits
		if err != nil {
			return
		}
	}
}

// Expect waits until the unread output matches re and returns the matched
// text. Output up to the end of the match is consumed.
func (s *Session) Expect(re *regexp.Regexp, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if loc := re.FindIndex(s.buf); loc != nil {
			match := string(s.buf[loc[0]:loc[1]])
			s.buf = s.buf[loc[1]:]
			return match, nil
		}

		select {
		case chunk, ok := <-s.chunks:
			if !ok {
				return "", fmt.Errorf("%w: %q", ErrEOF, re.String())
			}
			s.buf = append(s.buf, chunk...)
		case <-timer.C:
			return "", fmt.Errorf("%w: %q after %s", ErrTimeout, re.String(), timeout)
		case <-s.done:
			return "", ErrClosed
		}
	}
}

// SendLine waits SendDelay, then writes line followed by a newline.
func (s *Session) SendLine(line string) error {
	if s.SendDelay > 0 {
		t := time.NewTimer(s.SendDelay)
		select {
		case <-t.C:
		case <-s.done:
			t.Stop()
			return ErrClosed
		}
	}
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	if _, err := io.WriteString(s.rw, line+"\n"); err != nil {
		return fmt.Errorf("expect: send: %w", err)
	}
	return nil
}

// Close terminates the child, if any, and releases the stream.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.closeErr = s.rw.Close()
		if s.cmd != nil && s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
			_ = s.cmd.Wait()
		}
	})
	return s.closeErr
}
