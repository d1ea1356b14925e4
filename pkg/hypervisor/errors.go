package hypervisor

import "errors"

// Configuration errors
var (
	ErrMissingBinary  = errors.New("hypervisor: emulator binary is required")
	ErrMissingMemory  = errors.New("hypervisor: memory size is required")
	ErrMissingDisk    = errors.New("hypervisor: disk path is required")
	ErrInvalidForward = errors.New("hypervisor: port forward must map ports in 1-65535")
)

// Runtime errors
var (
	ErrNotStarted     = errors.New("hypervisor: VM not started")
	ErrAlreadyRunning = errors.New("hypervisor: VM is already running")
)
