package vm

import "errors"

var (
	// ErrImageMissing is returned when the base disk image is not configured
	// or does not exist. No emulator is started.
	ErrImageMissing = errors.New("vm: base image not found")

	// ErrPortUnavailable is returned when the forwarded SSH port did not
	// become ready within the retry policy.
	ErrPortUnavailable = errors.New("vm: no connection to VM")

	// ErrVMExited is returned when the emulator exits while probing.
	ErrVMExited = errors.New("vm: emulator exited before SSH became ready")

	// ErrNoPasswordPrompt is returned by a probe that reached an SSH server
	// which did not offer a password prompt.
	ErrNoPasswordPrompt = errors.New("vm: SSH server did not prompt for a password")
)
