package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Paintersrp/cmdlaunch/internal/runtime"
)

// DefaultGracePeriod separates the graceful stop signal from the forced kill.
const DefaultGracePeriod = 3 * time.Second

const (
	PhaseGraceful = "graceful"
	PhaseForced   = "forced"
)

// TerminationFailure records a signal that could not be delivered to one
// process.
type TerminationFailure struct {
	HandleID string
	Name     string
	PID      int
	Phase    string
	Err      error
}

func (f TerminationFailure) Error() string {
	return fmt.Sprintf("%s stop of %s (pid %d): %v", f.Phase, f.Name, f.PID, f.Err)
}

func (f TerminationFailure) Unwrap() error {
	return f.Err
}

// TerminationSummary aggregates the outcome of a TerminateAll call.
type TerminationSummary struct {
	// Requested is the number of processes tracked when termination began.
	Requested int
	// Terminated counts processes that accepted the graceful stop signal.
	Terminated int
	// Forced counts processes still alive after the grace period that were
	// killed.
	Forced   int
	Failures []TerminationFailure
}

// Err joins every failure, or returns nil when there were none.
func (s TerminationSummary) Err() error {
	if len(s.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(s.Failures))
	for _, f := range s.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

// Termination tracks one TerminateAll call through its forced sweep.
type Termination struct {
	mu      sync.Mutex
	summary TerminationSummary
	done    chan struct{}
}

func newTermination(requested int) *Termination {
	return &Termination{
		summary: TerminationSummary{Requested: requested},
		done:    make(chan struct{}),
	}
}

// Summary returns a copy of the outcome so far. Forced is only final once
// Done is closed.
func (t *Termination) Summary() TerminationSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.summary
	out.Failures = append([]TerminationFailure(nil), t.summary.Failures...)
	return out
}

// Done is closed when the forced sweep has finished.
func (t *Termination) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the sweep finishes or ctx ends.
func (t *Termination) Wait(ctx context.Context) (TerminationSummary, error) {
	select {
	case <-t.done:
		return t.Summary(), nil
	case <-ctx.Done():
		return t.Summary(), ctx.Err()
	}
}

func (t *Termination) record(fn func(*TerminationSummary)) {
	t.mu.Lock()
	fn(&t.summary)
	t.mu.Unlock()
}

// AfterFunc schedules f to run after d.
type AfterFunc func(d time.Duration, f func())

func timeAfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

// Coordinator stops every tracked process, escalating to a forced kill for
// processes that survive the grace period.
type Coordinator struct {
	registry *Registry
	grace    time.Duration
	after    AfterFunc
	notify   func(Event)
	logger   zerolog.Logger

	mu      sync.Mutex
	pending map[*Termination]struct{}
}

// NewCoordinator constructs a coordinator over reg.
func NewCoordinator(reg *Registry, grace time.Duration, after AfterFunc, notify func(Event), logger zerolog.Logger) *Coordinator {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	if after == nil {
		after = timeAfterFunc
	}
	return &Coordinator{
		registry: reg,
		grace:    grace,
		after:    after,
		notify:   notify,
		logger:   logger.With().Str("component", "terminator").Logger(),
		pending:  make(map[*Termination]struct{}),
	}
}

// GracePeriod returns the delay before stragglers are killed.
func (c *Coordinator) GracePeriod() time.Duration {
	return c.grace
}

// TerminateAll signals every tracked process to stop and removes it from the
// registry. A per-process failure is recorded and never stops the batch. The
// forced sweep always runs after the grace period, whatever the graceful
// phase reported.
func (c *Coordinator) TerminateAll() *Termination {
	handles := c.registry.Snapshot()
	t := newTermination(len(handles))

	// Only leaders that were still running get their group probed and killed
	// by the sweep. A reaped leader's pgid may already belong to someone else.
	running := make(map[string]bool, len(handles))
	for _, h := range handles {
		running[h.ID] = h.Poll() == runtime.StateRunning
	}

	for _, h := range handles {
		c.emit(handleEvent(EventTypeTerminating, h))
		if err := h.Interrupt(); err != nil {
			failure := TerminationFailure{HandleID: h.ID, Name: h.CommandName, PID: h.Pid(), Phase: PhaseGraceful, Err: err}
			t.record(func(s *TerminationSummary) { s.Failures = append(s.Failures, failure) })
			c.logger.Warn().Err(err).Str("command", h.CommandName).Int("pid", h.Pid()).Msg("graceful stop failed")
			evt := handleEvent(EventTypeTerminationFailed, h)
			evt.Err = err
			c.emit(evt)
			continue
		}
		t.record(func(s *TerminationSummary) { s.Terminated++ })
	}

	for _, h := range handles {
		c.registry.Remove(h.ID)
	}

	if len(handles) == 0 {
		close(t.done)
		return t
	}

	c.logger.Info().
		Int("processes", len(handles)).
		Dur("grace", c.grace).
		Msg("graceful stop sent, scheduling forced sweep")
	c.track(t)
	c.after(c.grace, func() { c.sweep(t, handles, running) })
	return t
}

// Pending returns the terminations whose forced sweep has not finished.
func (c *Coordinator) Pending() []*Termination {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Termination, 0, len(c.pending))
	for t := range c.pending {
		out = append(out, t)
	}
	return out
}

func (c *Coordinator) track(t *Termination) {
	c.mu.Lock()
	c.pending[t] = struct{}{}
	c.mu.Unlock()
}

func (c *Coordinator) untrack(t *Termination) {
	c.mu.Lock()
	delete(c.pending, t)
	c.mu.Unlock()
}

func (c *Coordinator) sweep(t *Termination, handles []*runtime.Handle, running map[string]bool) {
	defer close(t.done)
	defer c.untrack(t)

	for _, h := range handles {
		if !running[h.ID] || !h.Alive() {
			c.emit(handleEvent(EventTypeTerminated, h))
			continue
		}
		if err := h.Kill(); err != nil {
			failure := TerminationFailure{HandleID: h.ID, Name: h.CommandName, PID: h.Pid(), Phase: PhaseForced, Err: err}
			t.record(func(s *TerminationSummary) { s.Failures = append(s.Failures, failure) })
			c.logger.Error().Err(err).Str("command", h.CommandName).Int("pid", h.Pid()).Msg("forced kill failed")
			evt := handleEvent(EventTypeTerminationFailed, h)
			evt.Err = err
			c.emit(evt)
			continue
		}
		t.record(func(s *TerminationSummary) { s.Forced++ })
		c.logger.Warn().Str("command", h.CommandName).Int("pid", h.Pid()).Msg("process ignored graceful stop and was killed")
		c.emit(handleEvent(EventTypeKilled, h))
	}

	summary := t.Summary()
	evt := Event{
		Timestamp: time.Now(),
		Type:      EventTypeSweepDone,
		Message:   fmt.Sprintf("terminated %d, forced %d, failed %d", summary.Terminated, summary.Forced, len(summary.Failures)),
	}
	c.emit(evt)
}

func (c *Coordinator) emit(evt Event) {
	if c.notify != nil {
		c.notify(evt)
	}
}
