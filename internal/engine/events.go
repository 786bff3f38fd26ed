package engine

import (
	"fmt"
	"time"

	"github.com/Paintersrp/cmdlaunch/internal/runtime"
)

// EventType captures lifecycle notifications emitted by the service, the
// reaper and the termination coordinator.
type EventType string

const (
	EventTypeLaunching         EventType = "launching"
	EventTypeLaunched          EventType = "launched"
	EventTypeSession           EventType = "session"
	EventTypeLaunchFailed      EventType = "launch_failed"
	EventTypeExited            EventType = "exited"
	EventTypeTerminating       EventType = "terminating"
	EventTypeTerminated        EventType = "terminated"
	EventTypeKilled            EventType = "killed"
	EventTypeTerminationFailed EventType = "termination_failed"
	EventTypeSweepDone         EventType = "sweep_done"
	EventTypeCount             EventType = "count"
)

// Event is a single notification for front ends. Count always carries the
// number of tracked background processes at the time the event was emitted.
type Event struct {
	Timestamp  time.Time
	Type       EventType
	HandleID   string
	Name       string
	PID        int
	Background bool
	Fallback   bool
	Message    string
	Err        error
	Count      int
}

func handleEvent(t EventType, h *runtime.Handle) Event {
	return Event{
		Timestamp:  time.Now(),
		Type:       t,
		HandleID:   h.ID,
		Name:       h.CommandName,
		PID:        h.Pid(),
		Background: true,
		Fallback:   h.Fallback,
	}
}

// Describe renders the event as a single line for front ends. Events with
// nothing worth showing return the empty string.
func (e Event) Describe() string {
	switch e.Type {
	case EventTypeLaunched:
		if e.Fallback {
			return fmt.Sprintf("%s: no terminal available, running in background (pid %d)", e.Name, e.PID)
		}
		return fmt.Sprintf("%s: started in background (pid %d)", e.Name, e.PID)
	case EventTypeSession:
		return fmt.Sprintf("%s: opened in a terminal", e.Name)
	case EventTypeLaunchFailed:
		return fmt.Sprintf("%s: failed to launch: %v", e.Name, e.Err)
	case EventTypeExited:
		return fmt.Sprintf("%s: exited (pid %d)", e.Name, e.PID)
	case EventTypeKilled:
		return fmt.Sprintf("%s: killed after grace period (pid %d)", e.Name, e.PID)
	case EventTypeTerminationFailed:
		return fmt.Sprintf("%s: could not be stopped: %v", e.Name, e.Err)
	case EventTypeSweepDone:
		return e.Message
	default:
		return ""
	}
}

// RunningStatus is shown while a batch of launches is in flight.
func RunningStatus(n int) string {
	return fmt.Sprintf("Running %d command(s)...", n)
}

// ReadyStatus is shown once launches settle or the process count changes.
func ReadyStatus(n int) string {
	return fmt.Sprintf("Ready - %d background process(es) running", n)
}

// TerminatedStatus is shown after terminate-all.
func TerminatedStatus(n int) string {
	return fmt.Sprintf("Terminated %d background process(es)", n)
}
