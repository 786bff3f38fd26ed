//go:build darwin

package launcher

func platformStrategies(terminals []string) []Strategy {
	return append([]Strategy{TerminalApp()}, TerminalEmulators(terminals)...)
}
