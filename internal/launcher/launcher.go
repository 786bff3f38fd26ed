// Package launcher starts saved commands either detached in the background or
// inside a visible terminal session.
//
// Command lines are handed to the shell or terminal verbatim. The launcher
// performs no quoting, filtering or sanitizing of its own: whoever can edit
// the stored command list can run arbitrary commands as the current user,
// exactly as if they had typed them.
package launcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Paintersrp/cmdlaunch/internal/command"
	"github.com/Paintersrp/cmdlaunch/internal/redact"
	"github.com/Paintersrp/cmdlaunch/internal/runtime"
	"github.com/Paintersrp/cmdlaunch/internal/runtime/process"
)

// LaunchError reports that a command could not be started at all.
type LaunchError struct {
	Name string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Name, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// StartFunc starts a background process for a command line.
type StartFunc func(name, commandLine string) (runtime.Controller, error)

func startProcess(name, commandLine string) (runtime.Controller, error) {
	p, err := process.Start(name, commandLine)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithStrategies replaces the interactive strategy list.
func WithStrategies(strategies ...Strategy) Option {
	return func(l *Launcher) {
		l.strategies = append([]Strategy(nil), strategies...)
	}
}

// WithTerminals builds the platform strategy list using the given emulator
// names as candidates.
func WithTerminals(names []string) Option {
	return func(l *Launcher) {
		l.strategies = platformStrategies(names)
	}
}

// WithStartFunc replaces the background process starter.
func WithStartFunc(fn StartFunc) Option {
	return func(l *Launcher) {
		if fn != nil {
			l.start = fn
		}
	}
}

// WithLogger attaches a logger to the launcher.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Launcher) {
		l.logger = logger.With().Str("component", "launcher").Logger()
	}
}

// Launcher decides how to start a command for the requested mode.
type Launcher struct {
	strategies []Strategy
	start      StartFunc
	logger     zerolog.Logger
}

// New constructs a Launcher with the platform's default strategies.
func New(opts ...Option) *Launcher {
	l := &Launcher{
		strategies: platformStrategies(nil),
		start:      startProcess,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Strategies returns the names of the interactive strategies in try order.
func (l *Launcher) Strategies() []string {
	names := make([]string, 0, len(l.strategies))
	for _, s := range l.strategies {
		names = append(names, s.Name())
	}
	return names
}

// Launch starts cmd. Background launches always return a handle on success.
// Interactive launches return no handle unless every terminal strategy failed
// and the launch degraded to a background process, in which case the handle
// is marked as a fallback.
func (l *Launcher) Launch(ctx context.Context, cmd command.Command, background bool) (*runtime.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LaunchError{Name: cmd.Name, Err: err}
	}
	if background {
		return l.launchBackground(cmd)
	}

	var attempts []error
	for _, strategy := range l.strategies {
		err := strategy.Start(ctx, cmd.CommandLine)
		if err == nil {
			l.logger.Info().
				Str("command", cmd.Name).
				Str("line", redact.CommandLine(cmd.CommandLine)).
				Str("terminal", strategy.Name()).
				Msg("started interactive session")
			return nil, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &LaunchError{Name: cmd.Name, Err: ctxErr}
		}
		event := l.logger.Debug()
		if !errors.Is(err, ErrUnavailable) {
			event = l.logger.Warn()
		}
		event.Err(err).Str("command", cmd.Name).Str("terminal", strategy.Name()).Msg("terminal strategy failed")
		attempts = append(attempts, err)
	}

	l.logger.Warn().
		Str("command", cmd.Name).
		Int("strategies", len(l.strategies)).
		Msg("no interactive terminal available, launching in background")

	handle, err := l.launchBackground(cmd)
	if err != nil {
		var launchErr *LaunchError
		if errors.As(err, &launchErr) && len(attempts) > 0 {
			launchErr.Err = errors.Join(append(attempts, launchErr.Err)...)
		}
		return nil, err
	}
	handle.Fallback = true
	return handle, nil
}

func (l *Launcher) launchBackground(cmd command.Command) (*runtime.Handle, error) {
	ctl, err := l.start(cmd.Name, cmd.CommandLine)
	if err != nil {
		l.logger.Error().Err(err).Str("command", cmd.Name).Msg("background launch failed")
		return nil, &LaunchError{Name: cmd.Name, Err: err}
	}
	handle := runtime.NewHandle(cmd, ctl)
	l.logger.Info().
		Str("command", cmd.Name).
		Str("line", redact.CommandLine(cmd.CommandLine)).
		Str("handle", handle.ID).
		Int("pid", ctl.Pid()).
		Msg("started background process")
	return handle, nil
}
