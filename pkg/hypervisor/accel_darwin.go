package hypervisor

// DefaultAccel returns the Hypervisor.framework accelerator.
func DefaultAccel() []string {
	return []string{"-accel", "hvf"}
}
