package vm

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/apex/log"
	"github.com/javanstorm/sve/internal/model"
	"github.com/javanstorm/sve/pkg/hypervisor"
)

// State represents the supervised VM lifecycle state.
type State int

const (
	StateNew     State = iota
	StateRunning       // Emulator started by this supervisor
	StateAdopted       // Port already served by a VM from an earlier run
	StateStopped       // Emulator exited
	StateError         // Start failed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateRunning:
		return "running"
	case StateAdopted:
		return "adopted"
	case StateStopped:
		return "stopped"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// SupervisorConfig holds configuration for a VM supervisor.
type SupervisorConfig struct {
	// HomeDir is where working images are stored.
	HomeDir string

	// BaseImage is the read-only template image.
	BaseImage string

	// Binary is the emulator executable.
	Binary string

	// Memory is the emulator memory size.
	Memory string

	// Port is the host port forwarded to the guest's SSH port.
	Port string

	// Debug passes emulator output through to Stdout/Stderr.
	Debug bool

	// Stdout and Stderr default to os.Stdout and os.Stderr in debug mode.
	Stdout io.Writer
	Stderr io.Writer

	// Driver runs the emulator. Defaults to hypervisor.NewDriver().
	Driver hypervisor.Driver

	Logger model.Logger
}

// Supervisor materializes the working image and runs the emulator for one port.
type Supervisor struct {
	cfg    SupervisorConfig
	images *ImageManager
	driver hypervisor.Driver
	logger model.Logger
	mu     sync.Mutex
	state  State
	image  Image
}

// NewSupervisor creates a supervisor for cfg.Port.
func NewSupervisor(cfg SupervisorConfig) (*Supervisor, error) {
	if _, err := parsePort(cfg.Port); err != nil {
		return nil, err
	}
	if cfg.Driver == nil {
		cfg.Driver = hypervisor.NewDriver()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Log
	}

	return &Supervisor{
		cfg:    cfg,
		images: NewImageManager(cfg.HomeDir, cfg.Logger),
		driver: cfg.Driver,
		logger: cfg.Logger,
		state:  StateNew,
	}, nil
}

// Image returns the image descriptor for the supervised port.
func (s *Supervisor) Image() Image {
	return s.images.Resolve(s.cfg.BaseImage, s.cfg.Port)
}

// Start ensures the working image exists and launches the emulator. If the
// host port is already bound, a VM from an earlier run is assumed to be
// serving it and no new emulator is started.
func (s *Supervisor) Start(ctx context.Context) (Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateNew {
		return s.image, fmt.Errorf("cannot start: invalid state %s", s.state)
	}

	img := s.Image()
	if _, err := s.images.EnsureWorkingCopy(img); err != nil {
		s.state = StateError
		return img, err
	}
	s.image = img

	port, _ := parsePort(s.cfg.Port)
	if portInUse(port) {
		s.logger.Infof("Port %d already in use, reusing the running VM", port)
		s.state = StateAdopted
		return img, nil
	}

	vmCfg := &hypervisor.VMConfig{
		Binary:       s.cfg.Binary,
		Memory:       s.cfg.Memory,
		DiskPath:     img.WorkingPath,
		PortForwards: map[int]int{port: 22},
	}
	if s.cfg.Debug {
		vmCfg.Stdout = s.cfg.Stdout
		vmCfg.Stderr = s.cfg.Stderr
		if vmCfg.Stdout == nil {
			vmCfg.Stdout = os.Stdout
		}
		if vmCfg.Stderr == nil {
			vmCfg.Stderr = os.Stderr
		}
	}

	if err := s.driver.Start(ctx, vmCfg); err != nil {
		s.state = StateError
		return img, fmt.Errorf("start VM: %w", err)
	}

	s.logger.Debugf("started %s on port %d with %s", s.cfg.Binary, port, img.WorkingPath)
	s.state = StateRunning
	return img, nil
}

// Alive reports whether the VM can still come up. It does not block.
func (s *Supervisor) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateAdopted:
		return true
	case StateRunning:
		if s.driver.Alive() {
			return true
		}
		s.state = StateStopped
		return false
	default:
		return false
	}
}

// State returns the current supervisor state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Kill terminates an emulator started by this supervisor. An adopted VM is
// left running.
func (s *Supervisor) Kill() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return nil
	}
	if err := s.driver.Kill(); err != nil {
		return fmt.Errorf("kill VM: %w", err)
	}
	s.state = StateStopped
	return nil
}

// parsePort validates a profile's local port.
func parsePort(port string) (int, error) {
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return 0, fmt.Errorf("invalid port %q", port)
	}
	return n, nil
}

// portInUse reports whether something already listens on port.
func portInUse(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return true
	}
	ln.Close()
	return false
}
