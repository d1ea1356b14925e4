package hypervisor

// NewDriver creates a new QEMU process driver.
func NewDriver() Driver {
	return &qemuDriver{}
}
