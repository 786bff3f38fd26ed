//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// Detach places cmd in a new session so it has no controlling terminal and
// leads its own process group.
func Detach(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true
}
