package runtime

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Paintersrp/cmdlaunch/internal/command"
)

// State is the observed lifecycle state of a tracked process.
type State int32

const (
	StateRunning State = iota
	StateExited
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// Controller is the OS-facing side of a background process.
type Controller interface {
	// Pid returns the operating system process identifier.
	Pid() int

	// Exited reports, without blocking, whether the launched process has
	// exited.
	Exited() bool

	// Alive reports whether any process started for the launch is still
	// running. On platforms with process groups this includes descendants
	// that outlived the shell.
	Alive() bool

	// Interrupt asks the process to stop. Implementations should not wait
	// for the process to exit.
	Interrupt() error

	// Kill forcefully stops the process and its descendants where the
	// platform allows it.
	Kill() error
}

// Handle is the record of a tracked background launch.
type Handle struct {
	ID          string
	CommandID   string
	CommandName string
	CommandLine string
	StartedAt   time.Time

	// Fallback is set when an interactive launch found no terminal and
	// degraded to a background launch.
	Fallback bool

	ctl   Controller
	state atomic.Int32
}

// NewHandle wraps a controller for the given command under a fresh identifier.
func NewHandle(cmd command.Command, ctl Controller) *Handle {
	return &Handle{
		ID:          uuid.NewString(),
		CommandID:   cmd.ID,
		CommandName: cmd.Name,
		CommandLine: cmd.CommandLine,
		StartedAt:   time.Now(),
		ctl:         ctl,
	}
}

// Pid returns the process identifier, or 0 when no controller is attached.
func (h *Handle) Pid() int {
	if h.ctl == nil {
		return 0
	}
	return h.ctl.Pid()
}

// State returns the last observed state without polling the process.
func (h *Handle) State() State {
	return State(h.state.Load())
}

// Poll performs a non-blocking liveness check and records the result.
func (h *Handle) Poll() State {
	if h.State() == StateExited {
		return StateExited
	}
	if h.ctl == nil || h.ctl.Exited() {
		h.state.Store(int32(StateExited))
		return StateExited
	}
	return StateRunning
}

// Alive reports whether anything started for this handle is still running.
func (h *Handle) Alive() bool {
	if h.ctl == nil {
		return false
	}
	return h.ctl.Alive()
}

// Interrupt delivers the graceful stop signal.
func (h *Handle) Interrupt() error {
	if h.ctl == nil {
		return nil
	}
	return h.ctl.Interrupt()
}

// Kill delivers the forceful stop signal.
func (h *Handle) Kill() error {
	if h.ctl == nil {
		return nil
	}
	return h.ctl.Kill()
}
