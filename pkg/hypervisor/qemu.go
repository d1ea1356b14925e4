package hypervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
)

// qemuDriver implements Driver by running the emulator as a child process.
type qemuDriver struct {
	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// validate checks that cfg is complete and that the emulator binary and the
// disk image are present.
func (d *qemuDriver) validate(cfg *VMConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := exec.LookPath(cfg.Binary); err != nil {
		return fmt.Errorf("qemuDriver: emulator not found: %w", err)
	}
	if _, err := os.Stat(cfg.DiskPath); err != nil {
		return fmt.Errorf("qemuDriver: disk image not found: %w", err)
	}
	return nil
}

func (d *qemuDriver) Start(ctx context.Context, cfg *VMConfig) error {
	if err := d.validate(cfg); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.done != nil && !isClosed(d.done) {
		return ErrAlreadyRunning
	}

	// Not bound to ctx: the VM outlives this invocation.
	cmd := exec.Command(cfg.Binary, cfg.Args()...)
	cmd.Stdout = cfg.Stdout
	cmd.Stderr = cfg.Stderr
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("qemuDriver: start %s: %w", cfg.Binary, err)
	}

	done := make(chan struct{})
	d.cmd = cmd
	d.done = done

	// Reaps the child so Alive sees it exit
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	return nil
}

func (d *qemuDriver) Alive() bool {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()

	if done == nil {
		return false
	}
	return !isClosed(done)
}

func (d *qemuDriver) Kill() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cmd == nil || d.cmd.Process == nil {
		return ErrNotStarted
	}
	if isClosed(d.done) {
		return nil
	}
	if err := d.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("qemuDriver: kill: %w", err)
	}
	return nil
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
