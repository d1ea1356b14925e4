//go:build !darwin

package hypervisor

// DefaultAccel returns no accelerator flags; QEMU picks its default.
func DefaultAccel() []string {
	return []string{}
}
