package hypervisor

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// VMConfig holds emulator launch parameters.
type VMConfig struct {
	// Binary is the emulator executable, e.g. qemu-system-x86_64.
	Binary string

	// Memory is passed verbatim to -m ("512", "2G").
	Memory string

	// DiskPath is the path to the disk image booted with virtio.
	DiskPath string

	// Accel holds hardware-acceleration arguments. Nil uses the
	// platform default (see DefaultAccel).
	Accel []string

	// PortForwards maps host ports to guest ports on the user-mode NIC.
	// Example: {2201: 22} forwards host:2201 to guest:22
	PortForwards map[int]int

	// Stdout and Stderr receive emulator output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// Validate performs basic validation of the configuration.
func (c *VMConfig) Validate() error {
	if c.Binary == "" {
		return ErrMissingBinary
	}
	if strings.TrimSpace(c.Memory) == "" {
		return ErrMissingMemory
	}
	if c.DiskPath == "" {
		return ErrMissingDisk
	}
	for host, guest := range c.PortForwards {
		if host < 1 || host > 65535 || guest < 1 || guest > 65535 {
			return fmt.Errorf("%w: %d->%d", ErrInvalidForward, host, guest)
		}
	}
	return nil
}

// Args returns the emulator command line (without the binary).
func (c *VMConfig) Args() []string {
	args := []string{
		"-m", c.Memory,
		"-nographic",
		"-drive", fmt.Sprintf("file=%s,if=virtio", c.DiskPath),
	}

	accel := c.Accel
	if accel == nil {
		accel = DefaultAccel()
	}
	args = append(args, accel...)
	args = append(args, "-cpu", "host")

	if len(c.PortForwards) > 0 {
		args = append(args, "-nic", c.nicSpec())
	}
	return args
}

// nicSpec renders the user-mode NIC with one hostfwd per forward, sorted
// by host port so the command line is stable.
func (c *VMConfig) nicSpec() string {
	hosts := make([]int, 0, len(c.PortForwards))
	for host := range c.PortForwards {
		hosts = append(hosts, host)
	}
	sort.Ints(hosts)

	var b strings.Builder
	b.WriteString("user")
	for _, host := range hosts {
		fmt.Fprintf(&b, ",hostfwd=tcp::%d-:%d", host, c.PortForwards[host])
	}
	return b.String()
}
