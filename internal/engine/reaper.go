package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Paintersrp/cmdlaunch/internal/runtime"
)

// DefaultReapInterval is how often exited background processes are dropped
// from the registry.
const DefaultReapInterval = 5 * time.Second

// Reaper periodically removes exited processes from a registry.
type Reaper struct {
	registry *Registry
	interval time.Duration
	notify   func(exited []*runtime.Handle, remaining int)
	logger   zerolog.Logger
}

// NewReaper constructs a reaper. notify, when set, runs after every cycle
// with the handles removed in that cycle.
func NewReaper(reg *Registry, interval time.Duration, notify func([]*runtime.Handle, int), logger zerolog.Logger) *Reaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	return &Reaper{
		registry: reg,
		interval: interval,
		notify:   notify,
		logger:   logger.With().Str("component", "reaper").Logger(),
	}
}

// Run reaps on every tick until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Cycle()
		}
	}
}

// Cycle performs a single reap pass.
func (r *Reaper) Cycle() []*runtime.Handle {
	exited := r.registry.Reap()
	remaining := r.registry.Len()
	for _, h := range exited {
		r.logger.Debug().
			Str("command", h.CommandName).
			Str("handle", h.ID).
			Int("pid", h.Pid()).
			Msg("background process exited")
	}
	if r.notify != nil {
		r.notify(exited, remaining)
	}
	return exited
}
