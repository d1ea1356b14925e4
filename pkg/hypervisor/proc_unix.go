//go:build unix

package hypervisor

import (
	"os/exec"
	"syscall"
)

// detach puts the emulator in its own process group so terminal signals
// aimed at sve do not reach it.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
