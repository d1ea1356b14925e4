// Package hypervisor runs an emulator binary (QEMU) as a supervised child
// process with host-to-guest port forwarding.
package hypervisor

import "context"

// Driver runs one emulator process.
type Driver interface {
	// Start launches the emulator. The process is detached from the
	// caller's process group and keeps running after sve exits.
	Start(ctx context.Context, cfg *VMConfig) error

	// Alive reports whether the emulator process is still running.
	// It never blocks.
	Alive() bool

	// Kill forcefully terminates the emulator.
	Kill() error
}
