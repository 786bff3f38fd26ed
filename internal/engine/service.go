package engine

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Paintersrp/cmdlaunch/internal/command"
	"github.com/Paintersrp/cmdlaunch/internal/metrics"
	"github.com/Paintersrp/cmdlaunch/internal/runtime"
)

// DefaultMaxConcurrentLaunches bounds how many commands start at once.
const DefaultMaxConcurrentLaunches = 8

const defaultEventBacklog = 256

// Launcher starts a single command. A nil handle with a nil error means the
// command was handed to an interactive terminal and is not tracked.
type Launcher interface {
	Launch(ctx context.Context, cmd command.Command, background bool) (*runtime.Handle, error)
}

// LaunchResult is the outcome of launching one command in a batch.
type LaunchResult struct {
	Command command.Command
	Handle  *runtime.Handle
	Err     error
}

// LaunchResults is the ordered outcome of a batch launch.
type LaunchResults []LaunchResult

// Err joins the errors of every failed launch.
func (r LaunchResults) Err() error {
	var errs []error
	for _, res := range r {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

// Failed counts launches that returned an error.
func (r LaunchResults) Failed() int {
	n := 0
	for _, res := range r {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// Tracked counts launches that produced a background handle.
func (r LaunchResults) Tracked() int {
	n := 0
	for _, res := range r {
		if res.Handle != nil {
			n++
		}
	}
	return n
}

// ProcessStatus is a point-in-time view of one tracked process.
type ProcessStatus struct {
	ID          string        `json:"id"`
	CommandID   string        `json:"commandId,omitempty"`
	Name        string        `json:"name"`
	CommandLine string        `json:"command"`
	PID         int           `json:"pid"`
	State       runtime.State `json:"-"`
	StateText   string        `json:"state"`
	StartedAt   time.Time     `json:"startedAt"`
	Fallback    bool          `json:"fallback,omitempty"`
}

// Option customises a Service.
type Option func(*Service)

// WithReapInterval overrides how often exited processes are reaped.
func WithReapInterval(d time.Duration) Option {
	return func(s *Service) { s.reapInterval = d }
}

// WithGracePeriod overrides the delay before the forced kill sweep.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Service) { s.grace = d }
}

// WithMaxConcurrentLaunches bounds the launch worker pool.
func WithMaxConcurrentLaunches(n int) Option {
	return func(s *Service) { s.maxConcurrent = n }
}

// WithAfterFunc replaces the timer used to schedule the forced sweep.
func WithAfterFunc(fn AfterFunc) Option {
	return func(s *Service) { s.after = fn }
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// Service ties a launcher, the process registry, the reaper and the
// termination coordinator together behind the operations a front end needs.
type Service struct {
	launcher      Launcher
	registry      *Registry
	reapInterval  time.Duration
	grace         time.Duration
	maxConcurrent int
	after         AfterFunc
	logger        zerolog.Logger

	reaper      *Reaper
	coordinator *Coordinator
	stream      *eventStream
}

// NewService constructs a service. A nil registry gets a fresh one.
func NewService(l Launcher, reg *Registry, opts ...Option) *Service {
	if reg == nil {
		reg = NewRegistry()
	}
	s := &Service{
		launcher:      l,
		registry:      reg,
		reapInterval:  DefaultReapInterval,
		grace:         DefaultGracePeriod,
		maxConcurrent: DefaultMaxConcurrentLaunches,
		logger:        zerolog.Nop(),
		stream:        newEventStream(defaultEventBacklog),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.maxConcurrent <= 0 {
		s.maxConcurrent = DefaultMaxConcurrentLaunches
	}
	s.logger = s.logger.With().Str("component", "service").Logger()
	s.reaper = NewReaper(reg, s.reapInterval, s.onReap, s.logger)
	s.coordinator = NewCoordinator(reg, s.grace, s.after, s.publish, s.logger)
	return s
}

// Registry exposes the underlying process registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// GracePeriod reports the delay between graceful stop and forced kill.
func (s *Service) GracePeriod() time.Duration {
	return s.coordinator.GracePeriod()
}

// Run reaps exited processes until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	s.reaper.Run(ctx)
}

// Reap runs one reap cycle immediately.
func (s *Service) Reap() []*runtime.Handle {
	return s.reaper.Cycle()
}

// Launch starts every command concurrently on a bounded worker pool. One
// failed launch never prevents the others; results keep the input order.
func (s *Service) Launch(ctx context.Context, cmds []command.Command, background bool) LaunchResults {
	results := make(LaunchResults, len(cmds))
	if len(cmds) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(s.maxConcurrent)
	for i, cmd := range cmds {
		i, cmd := i, cmd
		g.Go(func() error {
			results[i] = s.launchOne(ctx, cmd, background)
			return nil
		})
	}
	_ = g.Wait()

	s.publishCount()
	return results
}

func (s *Service) launchOne(ctx context.Context, cmd command.Command, background bool) LaunchResult {
	s.publish(Event{Timestamp: time.Now(), Type: EventTypeLaunching, Name: cmd.Name, Background: background})

	started := time.Now()
	h, err := s.launcher.Launch(ctx, cmd, background)
	elapsed := time.Since(started)

	mode := metrics.ModeInteractive
	if background {
		mode = metrics.ModeBackground
	}

	if err != nil {
		metrics.RecordLaunch(mode, false, elapsed)
		s.logger.Error().Err(err).Str("command", cmd.Name).Bool("background", background).Msg("launch failed")
		s.publish(Event{Timestamp: time.Now(), Type: EventTypeLaunchFailed, Name: cmd.Name, Background: background, Err: err})
		return LaunchResult{Command: cmd, Err: err}
	}

	if h == nil {
		metrics.RecordLaunch(mode, true, elapsed)
		s.logger.Info().Str("command", cmd.Name).Msg("opened in terminal")
		s.publish(Event{Timestamp: time.Now(), Type: EventTypeSession, Name: cmd.Name})
		return LaunchResult{Command: cmd}
	}

	if h.Fallback {
		mode = metrics.ModeFallback
	}
	metrics.RecordLaunch(mode, true, elapsed)
	s.registry.Add(h)
	s.logger.Info().
		Str("command", cmd.Name).
		Int("pid", h.Pid()).
		Bool("fallback", h.Fallback).
		Msg("background process started")

	evt := handleEvent(EventTypeLaunched, h)
	if h.Fallback {
		evt.Message = "no terminal available, running in background"
	}
	s.publish(evt)
	return LaunchResult{Command: cmd, Handle: h}
}

// TerminateAll stops every tracked process. The returned Termination carries
// the graceful phase outcome immediately and the forced count once Done.
func (s *Service) TerminateAll() *Termination {
	t := s.coordinator.TerminateAll()
	s.publishCount()
	return t
}

// Shutdown terminates everything still tracked, then waits for every forced
// sweep, including ones scheduled by earlier TerminateAll calls, or ctx.
func (s *Service) Shutdown(ctx context.Context) (TerminationSummary, error) {
	var started *Termination
	if s.registry.Len() > 0 {
		started = s.TerminateAll()
	}
	return s.waitSweeps(ctx, started)
}

// WaitSweeps blocks until every scheduled forced sweep has finished or ctx
// ends. The summary merges all of them.
func (s *Service) WaitSweeps(ctx context.Context) (TerminationSummary, error) {
	return s.waitSweeps(ctx, nil)
}

// SweepsPending reports how many forced sweeps have not finished yet.
func (s *Service) SweepsPending() int {
	return len(s.coordinator.Pending())
}

func (s *Service) waitSweeps(ctx context.Context, started *Termination) (TerminationSummary, error) {
	terms := s.coordinator.Pending()
	if started != nil && !slices.Contains(terms, started) {
		terms = append(terms, started)
	}

	var merged TerminationSummary
	var waitErr error
	for _, t := range terms {
		summary, err := t.Wait(ctx)
		merged.Requested += summary.Requested
		merged.Terminated += summary.Terminated
		merged.Forced += summary.Forced
		merged.Failures = append(merged.Failures, summary.Failures...)
		if err != nil && waitErr == nil {
			waitErr = err
		}
	}
	return merged, waitErr
}

// Snapshot reports every tracked process, polling state without blocking.
func (s *Service) Snapshot() []ProcessStatus {
	handles := s.registry.Snapshot()
	out := make([]ProcessStatus, 0, len(handles))
	for _, h := range handles {
		state := h.Poll()
		out = append(out, ProcessStatus{
			ID:          h.ID,
			CommandID:   h.CommandID,
			Name:        h.CommandName,
			CommandLine: h.CommandLine,
			PID:         h.Pid(),
			State:       state,
			StateText:   state.String(),
			StartedAt:   h.StartedAt,
			Fallback:    h.Fallback,
		})
	}
	return out
}

// Count reports the number of tracked processes.
func (s *Service) Count() int {
	return s.registry.Len()
}

// Subscribe returns a channel of events and a release function.
func (s *Service) Subscribe(buffer int) (<-chan Event, func()) {
	return s.stream.Subscribe(buffer)
}

// Close ends every subscription.
func (s *Service) Close() {
	s.stream.Close()
}

func (s *Service) onReap(exited []*runtime.Handle, _ int) {
	if len(exited) == 0 {
		return
	}
	for _, h := range exited {
		s.publish(handleEvent(EventTypeExited, h))
	}
	s.publishCount()
}

func (s *Service) publishCount() {
	s.publish(Event{Timestamp: time.Now(), Type: EventTypeCount})
}

func (s *Service) publish(evt Event) {
	evt.Count = s.registry.Len()
	switch evt.Type {
	case EventTypeCount:
		metrics.SetTrackedProcesses(evt.Count)
	case EventTypeTerminated:
		metrics.AddTerminations(metrics.TerminationGraceful, 1)
	case EventTypeKilled:
		metrics.AddTerminations(metrics.TerminationForced, 1)
	case EventTypeTerminationFailed:
		metrics.AddTerminations(metrics.TerminationFailed, 1)
	}
	s.stream.Publish(evt)
}
