package launcher

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Paintersrp/cmdlaunch/internal/runtime/process"
)

// ErrUnavailable reports that a terminal mechanism does not exist on this host.
var ErrUnavailable = errors.New("terminal mechanism unavailable")

// HoldPrompt keeps an emulator window open after the command finishes.
const HoldPrompt = `; printf '\nPress Enter to close...'; read _`

// Strategy starts a command line inside a visible terminal session.
type Strategy interface {
	Name() string
	Start(ctx context.Context, commandLine string) error
}

// LookPathFunc resolves a program name to an executable path.
type LookPathFunc func(file string) (string, error)

// ExecStrategy launches a terminal program with arguments derived from the
// command line.
type ExecStrategy struct {
	Label   string
	Program string
	Args    func(commandLine string) []string

	// Prepare adjusts the command before it is started, for platform
	// specific attributes.
	Prepare func(cmd *exec.Cmd, commandLine string)

	LookPath LookPathFunc
}

func (s *ExecStrategy) Name() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Program
}

// Start resolves the program and starts it without waiting for the session
// to end. A missing program yields ErrUnavailable.
func (s *ExecStrategy) Start(ctx context.Context, commandLine string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lookPath := s.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath(s.Program)
	if err != nil {
		return fmt.Errorf("%s: %w", s.Program, ErrUnavailable)
	}

	var args []string
	if s.Args != nil {
		args = s.Args(commandLine)
	}
	cmd := exec.Command(path, args...)
	if s.Prepare != nil {
		s.Prepare(cmd, commandLine)
	}
	process.Detach(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", s.Name(), err)
	}
	// The session belongs to the user now; only reap it.
	go func() { _ = cmd.Wait() }()
	return nil
}

func holdShell(commandLine string) []string {
	return []string{"sh", "-c", commandLine + HoldPrompt}
}

// TerminalEmulator returns the strategy for a known Unix terminal emulator.
// Unknown names are assumed to accept "-e program args...".
func TerminalEmulator(name string) Strategy {
	name = strings.TrimSpace(name)
	switch name {
	case "gnome-terminal", "kgx", "ptyxis":
		return &ExecStrategy{Program: name, Args: func(line string) []string {
			return append([]string{"--"}, holdShell(line)...)
		}}
	case "xfce4-terminal", "mate-terminal", "terminator":
		return &ExecStrategy{Program: name, Args: func(line string) []string {
			return append([]string{"-x"}, holdShell(line)...)
		}}
	case "kitty", "foot", "wezterm":
		return &ExecStrategy{Program: name, Args: func(line string) []string {
			if name == "wezterm" {
				return append([]string{"start", "--"}, holdShell(line)...)
			}
			return holdShell(line)
		}}
	default:
		return &ExecStrategy{Program: name, Args: func(line string) []string {
			return append([]string{"-e"}, holdShell(line)...)
		}}
	}
}

// TerminalEmulators maps names to strategies, preserving order and skipping
// blanks and repeats.
func TerminalEmulators(names []string) []Strategy {
	seen := make(map[string]struct{}, len(names))
	out := make([]Strategy, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, TerminalEmulator(name))
	}
	return out
}

// emulatorOrder lists configured terminals first, then preferred (usually
// $TERMINAL), then DefaultEmulators. TerminalEmulators drops repeats.
func emulatorOrder(configured []string, preferred string) []string {
	out := make([]string, 0, len(configured)+1+len(DefaultEmulators))
	out = append(out, configured...)
	if preferred != "" {
		out = append(out, preferred)
	}
	return append(out, DefaultEmulators...)
}

// DefaultEmulators is the ordered candidate list for hosts without a single
// standard terminal.
var DefaultEmulators = []string{"gnome-terminal", "konsole", "xfce4-terminal", "xterm"}

// TerminalApp drives macOS Terminal.app through its scripting bridge.
func TerminalApp() Strategy {
	return &ExecStrategy{
		Label:   "Terminal.app",
		Program: "osascript",
		Args: func(line string) []string {
			return []string{
				"-e", `tell application "Terminal"`,
				"-e", "activate",
				"-e", "do script " + appleScriptString(line),
				"-e", "end tell",
			}
		},
	}
}

// appleScriptString renders s as an AppleScript string literal so the
// terminal receives the command line unchanged.
func appleScriptString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
