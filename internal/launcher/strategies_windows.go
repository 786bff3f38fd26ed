//go:build windows

package launcher

import (
	"os/exec"
	"syscall"
)

// ConsoleHost opens a new console window that keeps running after the
// command finishes.
func ConsoleHost() Strategy {
	return &ExecStrategy{
		Label:   "console host",
		Program: "cmd.exe",
		Prepare: func(cmd *exec.Cmd, line string) {
			cmd.SysProcAttr = &syscall.SysProcAttr{
				CmdLine: `cmd.exe /c start "" cmd.exe /k ` + line,
			}
		},
	}
}

func platformStrategies(terminals []string) []Strategy {
	return append([]Strategy{ConsoleHost()}, TerminalEmulators(terminals)...)
}
