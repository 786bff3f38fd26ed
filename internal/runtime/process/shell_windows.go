//go:build windows

package process

import (
	"os"
	"os/exec"
	"syscall"
)

// ShellCommand returns a command that interprets line with the command
// processor. The raw command line is handed over unescaped so cmd.exe sees
// exactly what the user stored.
func ShellCommand(line string) *exec.Cmd {
	comspec := os.Getenv("ComSpec")
	if comspec == "" {
		comspec = "cmd.exe"
	}
	cmd := exec.Command(comspec)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CmdLine: syscall.EscapeArg(comspec) + " /C " + line,
	}
	return cmd
}
