package otp

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/javanstorm/sve/internal/expect"
	"github.com/javanstorm/sve/internal/model"
	"github.com/javanstorm/sve/internal/tools"
)

// Prompts printed by stoken. Other generators may need different values.
const (
	PasswordPrompt = "Enter password to decrypt token:"
	PinPrompt      = "Enter PIN:"
)

// StepTimeout bounds each step of the exchange.
const StepTimeout = 5 * time.Second

// codeLine matches a complete line of digits.
var codeLine = regexp.MustCompile(`(?m)^[0-9]+\r?\n`)

// Conversation is the subset of expect.Session the exchange needs.
type Conversation interface {
	Expect(re *regexp.Regexp, timeout time.Duration) (string, error)
	SendLine(line string) error
	Close() error
}

// Spawner starts the generator and returns a conversation with it.
type Spawner func(ctx context.Context, name string, args ...string) (Conversation, error)

// PinSource asks the operator for the PIN.
type PinSource func() (string, error)

// Provider drives the token generator through its prompt sequence.
type Provider struct {
	tool      string
	pin       string
	promptPin PinSource
	spawn     Spawner
	finder    *tools.Finder
	timeout   time.Duration
	logger    model.Logger
}

// Option configures a Provider.
type Option func(p *Provider)

// WithPinPrompt sets how a missing PIN is requested.
func WithPinPrompt(src PinSource) Option {
	return func(p *Provider) { p.promptPin = src }
}

// WithSpawner replaces the pty spawner.
func WithSpawner(spawn Spawner) Option {
	return func(p *Provider) { p.spawn = spawn }
}

// WithFinder replaces the tool finder.
func WithFinder(f *tools.Finder) Option {
	return func(p *Provider) { p.finder = f }
}

// WithStepTimeout overrides StepTimeout.
func WithStepTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// WithLogger configures the passed Logger.
func WithLogger(logger model.Logger) Option {
	return func(p *Provider) { p.logger = logger }
}

// NewProvider creates a Provider for the given command line. pin may be
// empty, in which case it is requested once per process.
func NewProvider(tool, pin string, opts ...Option) *Provider {
	p := &Provider{
		tool:    tool,
		pin:     pin,
		spawn:   spawnPty,
		finder:  tools.NewFinder(),
		timeout: StepTimeout,
		logger:  log.Log,
		promptPin: func() (string, error) {
			return "", errors.New("no PIN configured and no prompt available")
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func spawnPty(ctx context.Context, name string, args ...string) (Conversation, error) {
	s, err := expect.Spawn(ctx, name, args...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns a passcode or an Error result describing why the exchange
// failed. A non-nil error means the exchange was not attempted: the tool is
// missing or the PIN could not be read.
func (p *Provider) Get(ctx context.Context) (Result, error) {
	fields := strings.Fields(p.tool)
	if len(fields) == 0 {
		return Result{}, &tools.ToolMissingError{Tool: p.tool}
	}
	path, err := p.finder.Find(tools.OTP(fields[0]))
	if err != nil {
		return Result{}, err
	}

	if p.pin == "" {
		pin, err := p.promptPin()
		if err != nil {
			return Result{}, fmt.Errorf("read PIN: %w", err)
		}
		// Kept for this process only
		p.pin = pin
	}

	conv, err := p.spawn(ctx, path, fields[1:]...)
	if err != nil {
		p.logger.Debugf("spawn %s: %v", path, err)
		return Error(MsgUnknown), nil
	}
	defer conv.Close()

	payload, err := p.exchange(conv)
	if err != nil {
		p.logger.Debugf("OTP exchange failed: %v", err)
		if errors.Is(err, expect.ErrTimeout) {
			return Error(MsgTimeout), nil
		}
		return Error(MsgUnknown), nil
	}

	return Classify(payload), nil
}

func (p *Provider) exchange(conv Conversation) (string, error) {
	steps := []string{PasswordPrompt, PinPrompt}
	for _, prompt := range steps {
		if _, err := conv.Expect(regexp.MustCompile(regexp.QuoteMeta(prompt)), p.timeout); err != nil {
			return "", err
		}
		if err := conv.SendLine(p.pin); err != nil {
			return "", err
		}
	}

	echoSkipped := false
	for {
		line, err := conv.Expect(codeLine, p.timeout)
		if err != nil {
			return "", err
		}
		code := strings.TrimRight(line, "\r\n")
		// A PIN sent before the tool turned echo off comes back first
		if code == p.pin && !echoSkipped {
			echoSkipped = true
			continue
		}
		return code, nil
	}
}
