package launcher

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	stdruntime "runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paintersrp/cmdlaunch/internal/command"
	"github.com/Paintersrp/cmdlaunch/internal/runtime"
)

type fakeStrategy struct {
	name  string
	err   error
	mu    sync.Mutex
	lines []string
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Start(_ context.Context, line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, line)
	return f.err
}

func (f *fakeStrategy) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lines)
}

type fakeController struct{ pid int }

func (f *fakeController) Pid() int         { return f.pid }
func (f *fakeController) Exited() bool     { return false }
func (f *fakeController) Alive() bool      { return true }
func (f *fakeController) Interrupt() error { return nil }
func (f *fakeController) Kill() error      { return nil }

func fakeStart(started *[]string) StartFunc {
	var mu sync.Mutex
	return func(name, line string) (runtime.Controller, error) {
		mu.Lock()
		defer mu.Unlock()
		*started = append(*started, line)
		return &fakeController{pid: 1000 + len(*started)}, nil
	}
}

var sample = command.Command{ID: "id-1", Name: "list", CommandLine: "ls -la"}

func TestBackgroundLaunchReturnsHandle(t *testing.T) {
	var started []string
	l := New(WithStartFunc(fakeStart(&started)), WithStrategies())

	h, err := l.Launch(context.Background(), sample, true)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, "list", h.CommandName)
	assert.Equal(t, "ls -la", h.CommandLine)
	assert.Equal(t, 1001, h.Pid())
	assert.False(t, h.Fallback)
	assert.Equal(t, []string{"ls -la"}, started)
}

func TestBackgroundLaunchFailureIsLaunchError(t *testing.T) {
	cause := errors.New("fork: resource temporarily unavailable")
	l := New(WithStartFunc(func(string, string) (runtime.Controller, error) { return nil, cause }))

	h, err := l.Launch(context.Background(), sample, true)
	assert.Nil(t, h)
	var launchErr *LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.Equal(t, "list", launchErr.Name)
	assert.ErrorIs(t, err, cause)
}

func TestInteractiveFallsThroughStrategiesInOrder(t *testing.T) {
	missing := &fakeStrategy{name: "missing", err: fmt.Errorf("x: %w", ErrUnavailable)}
	broken := &fakeStrategy{name: "broken", err: errors.New("exec format error")}
	working := &fakeStrategy{name: "working"}
	never := &fakeStrategy{name: "never"}

	var started []string
	l := New(WithStrategies(missing, broken, working, never), WithStartFunc(fakeStart(&started)))

	h, err := l.Launch(context.Background(), sample, false)
	require.NoError(t, err)
	assert.Nil(t, h, "interactive launches are untracked")
	assert.Equal(t, 1, missing.calls())
	assert.Equal(t, 1, broken.calls())
	assert.Equal(t, []string{"ls -la"}, working.lines)
	assert.Zero(t, never.calls())
	assert.Empty(t, started)
	assert.Equal(t, []string{"missing", "broken", "working", "never"}, l.Strategies())
}

func TestInteractiveWithoutTerminalDegradesToBackground(t *testing.T) {
	a := &fakeStrategy{name: "a", err: ErrUnavailable}
	b := &fakeStrategy{name: "b", err: ErrUnavailable}
	var started []string
	l := New(WithStrategies(a, b), WithStartFunc(fakeStart(&started)))

	h, err := l.Launch(context.Background(), sample, false)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.True(t, h.Fallback)
	assert.Equal(t, []string{"ls -la"}, started)
}

func TestInteractiveFallbackFailureJoinsCauses(t *testing.T) {
	a := &fakeStrategy{name: "a", err: fmt.Errorf("a: %w", ErrUnavailable)}
	spawnErr := errors.New("no shell")
	l := New(WithStrategies(a), WithStartFunc(func(string, string) (runtime.Controller, error) {
		return nil, spawnErr
	}))

	_, err := l.Launch(context.Background(), sample, false)
	var launchErr *LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, spawnErr)
}

func TestLaunchHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var started []string
	l := New(WithStartFunc(fakeStart(&started)))

	_, err := l.Launch(ctx, sample, true)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, started)
}

func TestExecStrategyReportsMissingProgram(t *testing.T) {
	s := &ExecStrategy{
		Program:  "definitely-not-a-terminal",
		LookPath: func(string) (string, error) { return "", exec.ErrNotFound },
	}
	err := s.Start(context.Background(), "true")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestExecStrategyStartsProgram(t *testing.T) {
	if stdruntime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	var gotArgs []string
	s := &ExecStrategy{
		Program: "sh",
		Args: func(line string) []string {
			gotArgs = []string{"-c", line}
			return gotArgs
		},
	}
	require.NoError(t, s.Start(context.Background(), "exit 0"))
	assert.Equal(t, []string{"-c", "exit 0"}, gotArgs)
	assert.Equal(t, "sh", s.Name())
}

func TestRealBackgroundLaunch(t *testing.T) {
	if stdruntime.GOOS == "windows" {
		t.Skip("process runtime tests skipped on windows")
	}
	l := New()
	h, err := l.Launch(context.Background(), command.Command{Name: "sleep", CommandLine: "sleep 5"}, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Kill() })

	assert.Positive(t, h.Pid())
	assert.Equal(t, runtime.StateRunning, h.Poll())

	require.NoError(t, h.Kill())
	require.Eventually(t, func() bool { return h.Poll() == runtime.StateExited }, 5*time.Second, 20*time.Millisecond)
}

func TestTerminalEmulatorArguments(t *testing.T) {
	cases := map[string][]string{
		"gnome-terminal": {"--", "sh", "-c", "make test" + HoldPrompt},
		"konsole":        {"-e", "sh", "-c", "make test" + HoldPrompt},
		"xfce4-terminal": {"-x", "sh", "-c", "make test" + HoldPrompt},
		"xterm":          {"-e", "sh", "-c", "make test" + HoldPrompt},
		"kitty":          {"sh", "-c", "make test" + HoldPrompt},
		"wezterm":        {"start", "--", "sh", "-c", "make test" + HoldPrompt},
	}
	for name, want := range cases {
		s, ok := TerminalEmulator(name).(*ExecStrategy)
		require.True(t, ok)
		assert.Equal(t, name, s.Name())
		assert.Equal(t, want, s.Args("make test"), name)
	}
}

func TestTerminalEmulatorsDeduplicates(t *testing.T) {
	got := TerminalEmulators([]string{"xterm", " ", "konsole", "xterm"})
	require.Len(t, got, 2)
	assert.Equal(t, "xterm", got[0].Name())
	assert.Equal(t, "konsole", got[1].Name())
}

func TestEmulatorOrderPutsConfiguredFirst(t *testing.T) {
	got := emulatorOrder([]string{"kitty"}, "foot")
	assert.Equal(t, []string{"kitty", "foot"}, got[:2])
	assert.Equal(t, DefaultEmulators, got[2:])

	assert.Equal(t, DefaultEmulators, emulatorOrder(nil, ""))
}

func TestTerminalAppQuotesForAppleScript(t *testing.T) {
	s := TerminalApp().(*ExecStrategy)
	args := s.Args(`echo "hi" \ there`)
	assert.Equal(t, `do script "echo \"hi\" \\ there"`, args[5])
	assert.Equal(t, "osascript", s.Program)
}
