package api

import (
	stdcontext "context"
	"errors"
	"time"
)

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrAmbiguousCommand = errors.New("ambiguous command reference")
	ErrUnavailable      = errors.New("control API unavailable")
)

// CommandReport describes one saved command.
type CommandReport struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Command string `json:"command"`
}

// ProcessEntry describes one tracked background process.
type ProcessEntry struct {
	ID         string    `json:"id"`
	CommandID  string    `json:"command_id,omitempty"`
	Name       string    `json:"name"`
	Command    string    `json:"command"`
	PID        int       `json:"pid"`
	State      string    `json:"state"`
	StartedAt  time.Time `json:"started_at"`
	Age        string    `json:"age"`
	Fallback   bool      `json:"fallback,omitempty"`
	Memory     string    `json:"memory,omitempty"`
	CPUPercent float64   `json:"cpu_percent,omitempty"`
}

// ProcessReport aggregates the tracked process set.
type ProcessReport struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Count       int            `json:"count"`
	Processes   []ProcessEntry `json:"processes"`
}

// TerminateResult captures the outcome of a terminate-all request. Forced is
// only populated once Completed is true.
type TerminateResult struct {
	Requested   int       `json:"requested"`
	Terminated  int       `json:"terminated"`
	Forced      int       `json:"forced"`
	Failures    []string  `json:"failures,omitempty"`
	GracePeriod string    `json:"grace_period"`
	Completed   bool      `json:"completed"`
	RequestedAt time.Time `json:"requested_at"`
}

// Controller exposes the read and terminate operations served over HTTP.
// There is no launch operation.
type Controller interface {
	Commands(stdcontext.Context) ([]CommandReport, error)
	Command(stdcontext.Context, string) (*CommandReport, error)
	Processes(stdcontext.Context) (*ProcessReport, error)
	TerminateAll(ctx stdcontext.Context, wait bool) (*TerminateResult, error)
}
