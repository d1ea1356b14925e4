package vm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/apex/log"
	"github.com/javanstorm/sve/internal/model"
	"golang.org/x/crypto/ssh"
)

// ProbeStatus is the state of a connection attempt.
type ProbeStatus int

const (
	StatusProbing ProbeStatus = iota
	StatusReady
	StatusFailed
)

func (s ProbeStatus) String() string {
	switch s {
	case StatusProbing:
		return "probing"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ConnectionAttempt tracks readiness probing for one connect invocation.
type ConnectionAttempt struct {
	Port       string
	RetryCount int
	Status     ProbeStatus
}

// RetryPolicy bounds readiness probing.
type RetryPolicy struct {
	// MaxAttempts is the number of failed probes after which probing stops.
	MaxAttempts int

	// Interval is the wait between a failed probe and the next one.
	Interval time.Duration
}

// DefaultRetryPolicy returns three attempts five seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Interval: 5 * time.Second}
}

// Prober performs a single readiness probe. A nil error means ready.
type Prober interface {
	Probe(ctx context.Context, port string) error
}

// SSHProber observes SSH readiness by connecting and waiting for the server
// to offer a password prompt. It never sends credentials.
type SSHProber struct {
	Host    string        // defaults to 127.0.0.1
	User    string        // login name presented to the server
	Timeout time.Duration // per probe, defaults to 10s
}

var errPromptSeen = errors.New("password prompt observed")

// Probe connects to Host:port and returns nil once the server asks for a
// password, either directly or as a keyboard-interactive question.
func (p *SSHProber) Probe(ctx context.Context, port string) error {
	host := p.Host
	if host == "" {
		host = "127.0.0.1"
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	addr := net.JoinHostPort(host, port)

	var prompted atomic.Bool
	cfg := &ssh.ClientConfig{
		User: p.User,
		Auth: []ssh.AuthMethod{
			ssh.PasswordCallback(func() (string, error) {
				prompted.Store(true)
				return "", errPromptSeen
			}),
			ssh.KeyboardInteractive(func(name, instruction string, questions []string, echos []bool) ([]string, error) {
				for _, q := range questions {
					if strings.Contains(strings.ToLower(q), "password") {
						prompted.Store(true)
						return nil, errPromptSeen
					}
				}
				return nil, ErrNoPasswordPrompt
			}),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	// Bounds the banner exchange and key exchange as well as auth
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err == nil {
		// Server let us in without a password; it is certainly up
		ssh.NewClient(c, chans, reqs).Close()
		return nil
	}
	if prompted.Load() {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrNoPasswordPrompt, err)
}

// ReadinessCheck runs the bounded probing loop for a supervised VM.
type ReadinessCheck struct {
	Prober Prober
	Policy RetryPolicy
	Clock  Clock
	Logger model.Logger
}

// Wait probes port until it is ready, the VM exits, or the policy's retry
// bound is reached. The returned attempt reflects the final state.
func (c *ReadinessCheck) Wait(ctx context.Context, port string, alive func() bool) (*ConnectionAttempt, error) {
	policy := c.Policy
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	clock := c.Clock
	if clock == nil {
		clock = RealClock()
	}
	logger := c.Logger
	if logger == nil {
		logger = log.Log
	}

	attempt := &ConnectionAttempt{Port: port, Status: StatusProbing}

	for attempt.RetryCount < policy.MaxAttempts {
		if !alive() {
			attempt.Status = StatusFailed
			return attempt, ErrVMExited
		}

		err := c.Prober.Probe(ctx, port)
		if err == nil {
			attempt.Status = StatusReady
			return attempt, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			attempt.Status = StatusFailed
			return attempt, ctxErr
		}

		attempt.RetryCount++
		logger.Debugf("probe %d/%d on port %s failed: %v", attempt.RetryCount, policy.MaxAttempts, port, err)
		if attempt.RetryCount >= policy.MaxAttempts {
			break
		}

		logger.Info("Waiting for port to be up")
		select {
		case <-clock.After(policy.Interval):
		case <-ctx.Done():
			attempt.Status = StatusFailed
			return attempt, ctx.Err()
		}
	}

	attempt.Status = StatusFailed
	return attempt, ErrPortUnavailable
}
