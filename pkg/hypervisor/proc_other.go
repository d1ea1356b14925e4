//go:build !unix

package hypervisor

import "os/exec"

func detach(cmd *exec.Cmd) {}
