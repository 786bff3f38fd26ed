//go:build !windows

package process

import "os/exec"

// ShellCommand returns a command that interprets line with /bin/sh.
func ShellCommand(line string) *exec.Cmd {
	return exec.Command("/bin/sh", "-c", line)
}
