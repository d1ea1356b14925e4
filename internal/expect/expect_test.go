package expect

import (
	"bufio"
	"errors"
	"net"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"
)

// pipeSession returns a session and the peer end playing the child.
func pipeSession(t *testing.T) (*Session, net.Conn) {
	t.Helper()
	local, peer := net.Pipe()
	s := NewSession(local)
	t.Cleanup(func() {
		s.Close()
		peer.Close()
	})
	return s, peer
}

func expectText(s *Session, text string, timeout time.Duration) error {
	_, err := s.Expect(regexp.MustCompile(regexp.QuoteMeta(text)), timeout)
	return err
}

func TestExpectAndSend(t *testing.T) {
	s, peer := pipeSession(t)

	got := make(chan string, 1)
	go func() {
		peer.Write([]byte("Enter password to decrypt token: "))
		line, _ := bufio.NewReader(peer).ReadString('\n')
		got <- line
	}()

	if err := expectText(s, "Enter password to decrypt token:", time.Second); err != nil {
		t.Fatalf("expect failed: %v", err)
	}
	if err := s.SendLine("1234"); err != nil {
		t.Fatalf("SendLine failed: %v", err)
	}

	select {
	case line := <-got:
		if line != "1234\n" {
			t.Errorf("child received %q", line)
		}
	case <-time.After(time.Second):
		t.Fatal("child never received the line")
	}
}

func TestExpectAcrossChunks(t *testing.T) {
	s, peer := pipeSession(t)

	go func() {
		peer.Write([]byte("Enter "))
		time.Sleep(10 * time.Millisecond)
		peer.Write([]byte("PIN:\r\n483920\r\n"))
	}()

	if err := expectText(s, "Enter PIN:", time.Second); err != nil {
		t.Fatalf("expect failed: %v", err)
	}
	code, err := s.Expect(regexp.MustCompile(`\d+`), time.Second)
	if err != nil {
		t.Fatalf("Expect failed: %v", err)
	}
	if code != "483920" {
		t.Errorf("code = %q, want 483920", code)
	}
}

func TestExpectConsumesOutput(t *testing.T) {
	s, peer := pipeSession(t)
	go peer.Write([]byte("password password"))

	re := regexp.MustCompile("password")
	for i := 0; i < 2; i++ {
		if _, err := s.Expect(re, time.Second); err != nil {
			t.Fatalf("match %d failed: %v", i, err)
		}
	}
	if _, err := s.Expect(re, 20*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Errorf("third match should time out, got %v", err)
	}
}

func TestExpectTimeout(t *testing.T) {
	s, peer := pipeSession(t)
	go peer.Write([]byte("something else"))

	start := time.Now()
	err := expectText(s, "Enter PIN:", 50*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Error("returned before the timeout")
	}
}

func TestExpectEOF(t *testing.T) {
	s, peer := pipeSession(t)
	go func() {
		peer.Write([]byte("bye"))
		peer.Close()
	}()

	err := expectText(s, "Enter PIN:", time.Second)
	if !errors.Is(err, ErrEOF) {
		t.Errorf("err = %v, want ErrEOF", err)
	}
}

func TestClosedSession(t *testing.T) {
	s, _ := pipeSession(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	s.Close()

	if err := s.SendLine("x"); !errors.Is(err, ErrClosed) {
		t.Errorf("SendLine after Close = %v, want ErrClosed", err)
	}
}

func TestSpawn(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	s, err := Spawn(testContext(t), "sh", "-c", `printf 'Enter PIN: '; read pin; echo "got-$pin"`)
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	defer s.Close()

	if err := expectText(s, "Enter PIN:", 5*time.Second); err != nil {
		t.Fatalf("expect failed: %v", err)
	}
	if err := s.SendLine("42"); err != nil {
		t.Fatalf("SendLine failed: %v", err)
	}
	match, err := s.Expect(regexp.MustCompile(`got-\d+`), 5*time.Second)
	if err != nil {
		t.Fatalf("Expect failed: %v", err)
	}
	if !strings.HasSuffix(match, "42") {
		t.Errorf("match = %q", match)
	}
}

func TestSendLineWaitsSendDelay(t *testing.T) {
	s, peer := pipeSession(t)
	if s.SendDelay != DefaultSendDelay {
		t.Errorf("SendDelay = %v, want %v", s.SendDelay, DefaultSendDelay)
	}
	s.SendDelay = 80 * time.Millisecond

	received := make(chan time.Time, 1)
	go func() {
		bufio.NewReader(peer).ReadString('\n')
		received <- time.Now()
	}()

	start := time.Now()
	if err := s.SendLine("1234"); err != nil {
		t.Fatalf("SendLine failed: %v", err)
	}
	select {
	case at := <-received:
		if at.Sub(start) < 80*time.Millisecond {
			t.Errorf("line arrived after %v, want at least 80ms", at.Sub(start))
		}
	case <-time.After(time.Second):
		t.Fatal("line never arrived")
	}
}

func TestSendLineClosedDuringDelay(t *testing.T) {
	s, _ := pipeSession(t)
	s.SendDelay = time.Minute

	errCh := make(chan error, 1)
	go func() { errCh <- s.SendLine("x") }()
	time.Sleep(10 * time.Millisecond)
	s.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("SendLine = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("SendLine kept waiting after Close")
	}
}
