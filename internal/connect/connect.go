// Package connect wires configuration, the VM supervisor, the readiness
// probe, the OTP provider and the script builder into the three user
// operations: get an OTP, list connections and connect.
package connect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/javanstorm/sve/internal/config"
	"github.com/javanstorm/sve/internal/launch"
	"github.com/javanstorm/sve/internal/model"
	"github.com/javanstorm/sve/internal/otp"
	"github.com/javanstorm/sve/internal/script"
	"github.com/javanstorm/sve/internal/timing"
	"github.com/javanstorm/sve/internal/tools"
	"github.com/javanstorm/sve/internal/vm"
	"github.com/javanstorm/sve/pkg/hypervisor"
)

var (
	// ErrExampleProfile is returned for the reserved placeholder profiles.
	ErrExampleProfile = errors.New("connect: example profiles cannot be used")

	// ErrUnknownProfile is returned for a name not present in the config.
	ErrUnknownProfile = errors.New("connect: no such VPN profile")
)

// OTPSource produces one-time passcodes.
type OTPSource interface {
	Get(ctx context.Context) (otp.Result, error)
}

// Options configures a Manager. Only Config and Paths are required.
type Options struct {
	Config *config.Config
	Paths  *config.Paths

	// Debug passes emulator output through to the terminal.
	Debug bool

	Logger model.Logger

	// Launcher defaults to the one named by sve.launcher.
	Launcher launch.Launcher

	// OTP defaults to an otp.Provider for sve.otp_tool.
	OTP OTPSource

	// PinPrompt asks for the token PIN when sve.otp_pin is empty.
	PinPrompt otp.PinSource

	// Prober defaults to an SSH handshake as vm.vm_user.
	Prober vm.Prober
	Policy vm.RetryPolicy
	Clock  vm.Clock

	// NewDriver returns the emulator driver for one connect.
	NewDriver func() hypervisor.Driver

	Finder *tools.Finder
	Now    func() time.Time

	// Timer, when set, records connect phases and logs them at the end.
	Timer *timing.Timer
}

// Manager runs the sve operations against one loaded configuration.
type Manager struct {
	cfg       *config.Config
	paths     *config.Paths
	debug     bool
	logger    model.Logger
	launcher  launch.Launcher
	otp       OTPSource
	prober    vm.Prober
	policy    vm.RetryPolicy
	clock     vm.Clock
	newDriver func() hypervisor.Driver
	finder    *tools.Finder
	states    *vm.StateFile
	now       func() time.Time
	timer     *timing.Timer
}

// New creates a Manager, filling unset options with the production
// implementations.
func New(opts Options) (*Manager, error) {
	if opts.Config == nil || opts.Paths == nil {
		return nil, errors.New("connect: config and paths are required")
	}

	m := &Manager{
		cfg:       opts.Config,
		paths:     opts.Paths,
		debug:     opts.Debug,
		logger:    opts.Logger,
		launcher:  opts.Launcher,
		otp:       opts.OTP,
		prober:    opts.Prober,
		policy:    opts.Policy,
		clock:     opts.Clock,
		newDriver: opts.NewDriver,
		finder:    opts.Finder,
		states:    vm.NewStateFile(opts.Paths.StateFile),
		now:       opts.Now,
		timer:     opts.Timer,
	}

	if m.logger == nil {
		m.logger = log.Log
	}
	if m.finder == nil {
		m.finder = tools.NewFinder()
	}
	if m.launcher == nil {
		l, err := launch.New(m.cfg.SVE.Launcher)
		if err != nil {
			return nil, err
		}
		m.launcher = l
	}
	if m.otp == nil {
		providerOpts := []otp.Option{otp.WithFinder(m.finder), otp.WithLogger(m.logger)}
		if opts.PinPrompt != nil {
			providerOpts = append(providerOpts, otp.WithPinPrompt(opts.PinPrompt))
		}
		m.otp = otp.NewProvider(m.cfg.SVE.OTPTool, m.cfg.SVE.OTPPin, providerOpts...)
	}
	if m.prober == nil {
		m.prober = &vm.SSHProber{User: m.cfg.VM.User}
	}
	if m.policy.MaxAttempts <= 0 {
		m.policy = vm.DefaultRetryPolicy()
	}
	if m.clock == nil {
		m.clock = vm.RealClock()
	}
	if m.newDriver == nil {
		m.newDriver = hypervisor.NewDriver
	}
	if m.now == nil {
		m.now = time.Now
	}

	return m, nil
}

// GetOTP runs the token exchange once.
func (m *Manager) GetOTP(ctx context.Context) (otp.Result, error) {
	return m.otp.Get(ctx)
}

// ListConnections returns the configured profile names, sorted.
func (m *Manager) ListConnections() []string {
	return m.cfg.ProfileNames()
}

// ProfileStatus is a profile with what sve remembers about its port.
type ProfileStatus struct {
	Name string
	Port string // empty when the profile value is not usable

	// Record is nil when the port was never used.
	Record *vm.ConnectionRecord
}

// Status lists the profiles with their last recorded connection.
func (m *Manager) Status() ([]ProfileStatus, error) {
	state, err := m.states.Load()
	if err != nil {
		return nil, err
	}

	var out []ProfileStatus
	for _, name := range m.cfg.ProfileNames() {
		st := ProfileStatus{Name: name}
		if p, err := config.ParseProfile(name, m.cfg.VPN[name]); err == nil {
			st.Port = p.Port
			st.Record = state.Ports[p.Port]
		}
		out = append(out, st)
	}
	return out, nil
}

// resolve checks a profile reference without side effects.
func (m *Manager) resolve(name string) (config.Profile, error) {
	if config.IsExample(name) {
		return config.Profile{}, fmt.Errorf("%w: %s", ErrExampleProfile, name)
	}
	value, ok := m.cfg.LookupProfile(name)
	if !ok {
		return config.Profile{}, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	return config.ParseProfile(strings.ToLower(name), value)
}

// requiredTools resolves the emulator, ssh and expect, in that order.
func (m *Manager) requiredTools() (emulator, expect string, err error) {
	if emulator, err = m.finder.Find(tools.Emulator(m.cfg.VM.System)); err != nil {
		return "", "", err
	}
	if _, err = m.finder.Find(tools.SSH); err != nil {
		return "", "", err
	}
	if expect, err = m.finder.Find(tools.Expect); err != nil {
		return "", "", err
	}
	return emulator, expect, nil
}

// Connect brings up the VM for profile name, waits for its SSH server,
// fetches an OTP, writes the negotiation script and hands it to the
// launcher.
func (m *Manager) Connect(ctx context.Context, name string) error {
	profile, err := m.resolve(name)
	if err != nil {
		return err
	}
	emulator, expectPath, err := m.requiredTools()
	if err != nil {
		return err
	}
	// Working images, scripts and state all live here
	if err := m.paths.EnsureHome(); err != nil {
		return fmt.Errorf("create home dir: %w", err)
	}

	sup, err := vm.NewSupervisor(vm.SupervisorConfig{
		HomeDir:   m.paths.Home,
		BaseImage: m.cfg.SVE.BaseImage,
		Binary:    emulator,
		Memory:    m.cfg.VM.Memory,
		Port:      profile.Port,
		Debug:     m.debug,
		Driver:    m.newDriver(),
		Logger:    m.logger,
	})
	if err != nil {
		return err
	}
	if _, err := sup.Start(ctx); err != nil {
		return err
	}
	m.timer.Mark("vm")

	check := &vm.ReadinessCheck{
		Prober: m.prober,
		Policy: m.policy,
		Clock:  m.clock,
		Logger: m.logger,
	}
	attempt, err := check.Wait(ctx, profile.Port, sup.Alive)
	if err != nil {
		if ctx.Err() != nil {
			// Interrupted while booting: stop the VM this run started
			if kerr := sup.Kill(); kerr != nil {
				m.logger.Warnf("could not stop VM on port %s: %v", profile.Port, kerr)
			}
		}
		m.record(profile, attempt, outcomeOf(err))
		return err
	}
	m.timer.Mark("probe")

	m.logger.Info("Connecting to VM")

	code, err := m.otp.Get(ctx)
	if err != nil {
		m.record(profile, attempt, vm.OutcomeFailed)
		return err
	}
	m.timer.Mark("otp")

	s, err := script.Build(m.paths.Home, script.Params{
		Interpreter: expectPath,
		Port:        profile.Port,
		User:        m.cfg.VM.User,
		Password:    m.cfg.VM.Password,
		VPNCommand:  profile.Command,
		OTP:         code,
	})
	if err != nil {
		m.record(profile, attempt, vm.OutcomeFailed)
		return err
	}
	if err := s.Write(); err != nil {
		m.record(profile, attempt, vm.OutcomeFailed)
		return err
	}
	m.logger.Debugf("negotiation script written to %s", s.Path)

	if err := m.launcher.Launch(ctx, s.Path); err != nil {
		m.record(profile, attempt, vm.OutcomeFailed)
		return err
	}
	m.timer.Mark("launch")

	m.record(profile, attempt, vm.OutcomeConnected)
	m.timer.Report(m.logger)
	return nil
}

// record stores the outcome. Failing to do so never fails a connect.
func (m *Manager) record(profile config.Profile, attempt *vm.ConnectionAttempt, outcome string) {
	if attempt == nil {
		attempt = &vm.ConnectionAttempt{Port: profile.Port}
	}
	if err := m.states.Record(profile.Name, attempt, outcome, m.now()); err != nil {
		m.logger.Warnf("could not record connection state in %s: %v", m.states.Path(), err)
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, vm.ErrPortUnavailable):
		return vm.OutcomeUnavailable
	case errors.Is(err, vm.ErrVMExited):
		return vm.OutcomeVMExited
	default:
		return vm.OutcomeFailed
	}
}

// Guidance returns the operator hint for a connect failure, or "" when the
// error speaks for itself.
func Guidance(err error) string {
	switch {
	case errors.Is(err, ErrExampleProfile):
		return "Can't use example record"
	case errors.Is(err, ErrUnknownProfile):
		return "Maybe wrong VPN name?"
	case errors.Is(err, vm.ErrImageMissing):
		return "Maybe no base image?"
	case errors.Is(err, vm.ErrPortUnavailable), errors.Is(err, vm.ErrVMExited):
		return "No connection to VM, try to use -d or check VM manually"
	default:
		return ""
	}
}
