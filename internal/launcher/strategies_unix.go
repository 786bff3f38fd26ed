//go:build !windows && !darwin

package launcher

import "os"

func platformStrategies(terminals []string) []Strategy {
	return TerminalEmulators(emulatorOrder(terminals, os.Getenv("TERMINAL")))
}
