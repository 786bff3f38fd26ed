package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Paintersrp/cmdlaunch/internal/api"
	"github.com/Paintersrp/cmdlaunch/internal/catalog"
	"github.com/Paintersrp/cmdlaunch/internal/command"
	"github.com/Paintersrp/cmdlaunch/internal/engine"
	"github.com/Paintersrp/cmdlaunch/internal/resources"
)

// ControlAPI exposes the command list and the tracked processes to the HTTP
// control plane.
type ControlAPI struct {
	catalog *catalog.Catalog
	service *engine.Service
	logger  zerolog.Logger
	now     func() time.Time
}

// NewControlAPI wires the catalog and service into an api.Controller.
func NewControlAPI(cat *catalog.Catalog, svc *engine.Service, logger zerolog.Logger) *ControlAPI {
	if cat == nil || svc == nil {
		return nil
	}
	return &ControlAPI{catalog: cat, service: svc, logger: logger, now: time.Now}
}

// Commands returns the saved commands, re-reading the store so edits made by
// other cmdlaunch invocations are visible.
func (c *ControlAPI) Commands(ctx stdcontext.Context) ([]api.CommandReport, error) {
	if c == nil {
		return nil, api.ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.reload()
	list := c.catalog.List()
	out := make([]api.CommandReport, 0, len(list))
	for _, cmd := range list {
		out = append(out, commandReport(cmd))
	}
	return out, nil
}

// Command resolves a single reference.
func (c *ControlAPI) Command(ctx stdcontext.Context, ref string) (*api.CommandReport, error) {
	if c == nil {
		return nil, api.ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.reload()
	cmd, err := c.catalog.Find(ref)
	switch {
	case errors.Is(err, command.ErrNotFound):
		return nil, fmt.Errorf("%w: %s", api.ErrUnknownCommand, ref)
	case errors.Is(err, command.ErrAmbiguous):
		return nil, fmt.Errorf("%w: %s", api.ErrAmbiguousCommand, ref)
	case err != nil:
		return nil, err
	}
	report := commandReport(cmd)
	return &report, nil
}

// Processes reports every tracked background process with its resource
// usage where the platform exposes it.
func (c *ControlAPI) Processes(ctx stdcontext.Context) (*api.ProcessReport, error) {
	if c == nil {
		return nil, api.ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := c.now()
	snapshot := c.service.Snapshot()
	entries := make([]api.ProcessEntry, 0, len(snapshot))
	for _, status := range snapshot {
		entry := api.ProcessEntry{
			ID:        status.ID,
			CommandID: status.CommandID,
			Name:      status.Name,
			Command:   status.CommandLine,
			PID:       status.PID,
			State:     status.StateText,
			StartedAt: status.StartedAt,
			Age:       resources.FormatAge(status.StartedAt, now),
			Fallback:  status.Fallback,
		}
		if usage, err := resources.Sample(ctx, status.PID); err == nil {
			entry.Memory = resources.FormatRSS(usage.RSS)
			entry.CPUPercent = usage.CPUPercent
		}
		entries = append(entries, entry)
	}
	return &api.ProcessReport{
		GeneratedAt: now.UTC(),
		Count:       len(entries),
		Processes:   entries,
	}, nil
}

// TerminateAll stops every tracked process. With wait set the call returns
// once the forced sweep has run.
func (c *ControlAPI) TerminateAll(ctx stdcontext.Context, wait bool) (*api.TerminateResult, error) {
	if c == nil {
		return nil, api.ErrUnavailable
	}
	requestedAt := c.now().UTC()
	term := c.service.TerminateAll()
	summary := term.Summary()
	completed := false
	if wait {
		var err error
		summary, err = term.Wait(ctx)
		if err != nil {
			return nil, err
		}
		completed = true
	} else {
		select {
		case <-term.Done():
			summary = term.Summary()
			completed = true
		default:
		}
	}

	result := &api.TerminateResult{
		Requested:   summary.Requested,
		Terminated:  summary.Terminated,
		Forced:      summary.Forced,
		GracePeriod: c.service.GracePeriod().String(),
		Completed:   completed,
		RequestedAt: requestedAt,
	}
	for _, failure := range summary.Failures {
		result.Failures = append(result.Failures, failure.Error())
	}
	return result, nil
}

func (c *ControlAPI) reload() {
	if err := c.catalog.Reload(); err != nil {
		c.logger.Warn().Err(err).Msg("reload command list, serving cached copy")
	}
}

func commandReport(cmd command.Command) api.CommandReport {
	return api.CommandReport{ID: cmd.ID, Name: cmd.Name, Command: cmd.CommandLine}
}
