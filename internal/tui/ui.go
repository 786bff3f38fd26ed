package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"

	"github.com/Paintersrp/cmdlaunch/internal/command"
	"github.com/Paintersrp/cmdlaunch/internal/engine"
	"github.com/Paintersrp/cmdlaunch/internal/resources"
)

const (
	commandsTitle   = "Commands"
	processesTitle  = "Background processes"
	activityTitle   = "Activity"
	mainPage        = "main"
	dialogPage      = "dialog"
	errorPage       = "error"
	maxActivity     = 200
	refreshInterval = time.Second
	shutdownSlack   = 5 * time.Second
)

// Catalog is the command list the UI edits.
type Catalog interface {
	List() command.List
	Add(name, commandLine string) (command.Command, error)
	Update(id, name, commandLine string) (command.Command, error)
	Remove(ids ...string) (int, error)
	Duplicate(id string) (command.Command, error)
	Save() error
}

// Service launches commands and tracks background processes.
type Service interface {
	Launch(ctx context.Context, cmds []command.Command, background bool) engine.LaunchResults
	TerminateAll() *engine.Termination
	Shutdown(ctx context.Context) (engine.TerminationSummary, error)
	WaitSweeps(ctx context.Context) (engine.TerminationSummary, error)
	Snapshot() []engine.ProcessStatus
	Count() int
	Subscribe(buffer int) (<-chan engine.Event, func())
	Run(ctx context.Context)
	GracePeriod() time.Duration
}

// Options configures the interactive front end.
type Options struct {
	Catalog         Catalog
	Service         Service
	Logger          zerolog.Logger
	Background      bool
	TerminateOnExit bool
	StorePath       string
}

// UI is the tview front end for managing and launching commands.
type UI struct {
	app       *tview.Application
	pages     *tview.Pages
	commands  *tview.Table
	processes *tview.Table
	activity  *tview.TextView
	status    *tview.TextView

	catalog         Catalog
	service         Service
	logger          zerolog.Logger
	terminateOnExit bool
	storePath       string

	mu            sync.Mutex
	background    bool
	marked        map[string]bool
	visible       []command.Command
	procs         []processRow
	statusText    string
	activityLines []string
	processFocus  bool

	runCtx   context.Context
	cancelMu sync.Mutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
	done     chan struct{}
}

type processRow struct {
	status engine.ProcessStatus
	memory string
}

// Run builds the UI and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	return New(opts).Run(ctx)
}

// New constructs the UI without starting it.
func New(opts Options) *UI {
	app := tview.NewApplication()

	commands := tview.NewTable().SetFixed(1, 0).SetSelectable(true, false)
	commands.SetBorder(true).SetTitle(commandsTitle)

	processes := tview.NewTable().SetFixed(1, 0).SetSelectable(true, false)
	processes.SetBorder(true).SetTitle(processesTitle)

	activity := tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	activity.SetBorder(true).SetTitle(activityTitle)

	status := tview.NewTextView().SetDynamicColors(true)

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(commands, 0, 3, true).
		AddItem(processes, 0, 2, false).
		AddItem(activity, 0, 2, false).
		AddItem(status, 2, 0, false)

	pages := tview.NewPages().AddPage(mainPage, flex, true, true)

	ui := &UI{
		app:             app,
		pages:           pages,
		commands:        commands,
		processes:       processes,
		activity:        activity,
		status:          status,
		catalog:         opts.Catalog,
		service:         opts.Service,
		logger:          opts.Logger.With().Str("component", "tui").Logger(),
		terminateOnExit: opts.TerminateOnExit,
		storePath:       opts.StorePath,
		background:      opts.Background,
		marked:          make(map[string]bool),
		runCtx:          context.Background(),
		done:            make(chan struct{}),
	}
	ui.statusText = engine.ReadyStatus(ui.service.Count())

	app.SetRoot(pages, true)
	app.SetInputCapture(ui.handleKey)

	ui.mu.Lock()
	ui.renderLocked()
	ui.mu.Unlock()

	return ui
}

// Done returns a channel that is closed when the UI stops.
func (u *UI) Done() <-chan struct{} {
	return u.done
}

// Run starts the application loop, the reaper and the event consumer. On
// exit tracked processes are terminated when configured and the command list
// is saved.
func (u *UI) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	u.cancelMu.Lock()
	u.cancel = cancel
	u.runCtx = ctx
	u.cancelMu.Unlock()

	events, release := u.service.Subscribe(256)
	defer release()

	u.wg.Add(2)
	go func() {
		defer u.wg.Done()
		u.service.Run(ctx)
	}()
	go func() {
		defer u.wg.Done()
		u.consumeEvents(ctx, events)
	}()

	go func() {
		<-ctx.Done()
		u.Stop()
	}()

	err := u.app.Run()

	u.Stop()
	cancel()
	u.wg.Wait()

	return errors.Join(err, u.shutdown())
}

// Stop terminates the application loop.
func (u *UI) Stop() {
	u.stopOnce.Do(func() {
		u.cancelMu.Lock()
		cancel := u.cancel
		u.cancel = nil
		u.cancelMu.Unlock()
		if cancel != nil {
			cancel()
		}
		u.app.Stop()
		close(u.done)
	})
}

func (u *UI) shutdown() error {
	var errs []error
	ctx, cancel := context.WithTimeout(context.Background(), u.service.GracePeriod()+shutdownSlack)
	defer cancel()
	// Sweeps scheduled from the UI must still run even when tracked processes
	// are left alone on exit.
	wait := u.service.WaitSweeps
	if u.terminateOnExit {
		wait = u.service.Shutdown
	}
	summary, err := wait(ctx)
	if summary.Requested > 0 {
		u.logger.Info().
			Int("requested", summary.Requested).
			Int("forced", summary.Forced).
			Msg("terminated background processes on exit")
	}
	errs = append(errs, err, summary.Err())
	if err := u.catalog.Save(); err != nil {
		u.logger.Error().Err(err).Msg("save command list on exit")
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (u *UI) runContext() context.Context {
	u.cancelMu.Lock()
	defer u.cancelMu.Unlock()
	return u.runCtx
}

func (u *UI) consumeEvents(ctx context.Context, events <-chan engine.Event) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			u.mu.Lock()
			u.applyEventLocked(evt)
			u.mu.Unlock()
			if evt.Type == engine.EventTypeCount {
				u.sampleProcesses(ctx)
			}
			u.queueRefresh()
		case <-ticker.C:
			u.sampleProcesses(ctx)
			u.queueRefresh()
		}
	}
}

func (u *UI) applyEventLocked(evt engine.Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	if evt.Type == engine.EventTypeCount {
		u.statusText = engine.ReadyStatus(evt.Count)
		return
	}
	if line := evt.Describe(); line != "" {
		u.appendActivityLocked(evt.Timestamp, line)
	}
}

func (u *UI) appendActivityLocked(ts time.Time, line string) {
	u.activityLines = append(u.activityLines, fmt.Sprintf("[gray]%s[-] %s", ts.Format("15:04:05"), tview.Escape(line)))
	if len(u.activityLines) > maxActivity {
		u.activityLines = append([]string(nil), u.activityLines[len(u.activityLines)-maxActivity:]...)
	}
}

// sampleProcesses refreshes the process rows, including resource usage,
// outside the UI goroutine.
func (u *UI) sampleProcesses(ctx context.Context) {
	snapshot := u.service.Snapshot()
	rows := make([]processRow, 0, len(snapshot))
	for _, status := range snapshot {
		row := processRow{status: status, memory: "-"}
		if usage, err := resources.Sample(ctx, status.PID); err == nil {
			row.memory = resources.FormatRSS(usage.RSS)
		}
		rows = append(rows, row)
	}
	u.mu.Lock()
	u.procs = rows
	u.mu.Unlock()
}

// queueRefresh is a no-op once the UI has stopped, since nothing drains the
// update queue after that.
func (u *UI) queueRefresh() {
	select {
	case <-u.done:
		return
	default:
	}
	u.app.QueueUpdateDraw(func() {
		u.mu.Lock()
		defer u.mu.Unlock()
		u.renderLocked()
	})
}

func (u *UI) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if name, _ := u.pages.GetFrontPage(); name != mainPage {
		return event
	}
	switch event.Key() {
	case tcell.KeyTab:
		u.toggleFocus()
		return nil
	case tcell.KeyEnter:
		if u.processFocus {
			return event
		}
		u.runTargets()
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q', 'Q':
			go u.Stop()
			return nil
		case 'a':
			u.showCommandForm(nil)
			return nil
		case 'e':
			if cmd, ok := u.currentCommand(); ok {
				u.showCommandForm(&cmd)
			}
			return nil
		case 'd':
			u.confirmDelete()
			return nil
		case 'c':
			u.duplicateCurrent()
			return nil
		case ' ':
			u.toggleMark()
			return nil
		case 'r':
			u.runTargets()
			return nil
		case 'R':
			u.runAll()
			return nil
		case 'b':
			u.toggleBackground()
			return nil
		case 't':
			u.confirmTerminate()
			return nil
		}
	}
	return event
}

func (u *UI) toggleFocus() {
	u.processFocus = !u.processFocus
	if u.processFocus {
		u.app.SetFocus(u.processes)
	} else {
		u.app.SetFocus(u.commands)
	}
}

func (u *UI) currentCommand() (command.Command, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.currentCommandLocked()
}

func (u *UI) currentCommandLocked() (command.Command, bool) {
	row, _ := u.commands.GetSelection()
	if row <= 0 || row-1 >= len(u.visible) {
		return command.Command{}, false
	}
	return u.visible[row-1], true
}

// targetsLocked returns the marked commands in list order, or the command
// under the cursor when nothing is marked.
func (u *UI) targetsLocked() []command.Command {
	if len(u.marked) > 0 {
		out := make([]command.Command, 0, len(u.marked))
		for _, cmd := range u.visible {
			if u.marked[cmd.ID] {
				out = append(out, cmd)
			}
		}
		return out
	}
	if cmd, ok := u.currentCommandLocked(); ok {
		return []command.Command{cmd}
	}
	return nil
}

func (u *UI) toggleMark() {
	u.mu.Lock()
	defer u.mu.Unlock()
	cmd, ok := u.currentCommandLocked()
	if !ok {
		return
	}
	if u.marked[cmd.ID] {
		delete(u.marked, cmd.ID)
	} else {
		u.marked[cmd.ID] = true
	}
	row, _ := u.commands.GetSelection()
	if row < len(u.visible) {
		u.commands.Select(row+1, 0)
	}
	u.renderLocked()
}

func (u *UI) toggleBackground() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.background = !u.background
	u.statusText = fmt.Sprintf("Launch mode: %s", modeLabel(u.background))
	u.renderLocked()
}

func (u *UI) runTargets() {
	u.mu.Lock()
	targets := u.targetsLocked()
	u.mu.Unlock()
	u.launch(targets)
}

func (u *UI) runAll() {
	u.mu.Lock()
	targets := append([]command.Command(nil), u.visible...)
	u.mu.Unlock()
	u.launch(targets)
}

func (u *UI) launch(targets []command.Command) {
	u.mu.Lock()
	if len(targets) == 0 {
		u.statusText = "No command selected"
		u.renderLocked()
		u.mu.Unlock()
		return
	}
	background := u.background
	u.statusText = engine.RunningStatus(len(targets))
	u.renderLocked()
	u.mu.Unlock()

	ctx := u.runContext()
	go func() {
		results := u.service.Launch(ctx, targets, background)
		if failed := results.Failed(); failed > 0 {
			u.logger.Warn().Err(results.Err()).Int("failed", failed).Msg("launch batch had failures")
			u.mu.Lock()
			u.statusText = fmt.Sprintf("%d of %d command(s) failed to launch - %s", failed, len(results), engine.ReadyStatus(u.service.Count()))
			u.mu.Unlock()
			u.queueRefresh()
		}
	}()
}

func (u *UI) confirmDelete() {
	u.mu.Lock()
	targets := u.targetsLocked()
	u.mu.Unlock()
	if len(targets) == 0 {
		return
	}
	text := fmt.Sprintf("Delete %q?", targets[0].Name)
	if len(targets) > 1 {
		text = fmt.Sprintf("Delete %d commands?", len(targets))
	}
	u.showConfirm(text, "Delete", func() {
		u.performDelete(targets)
	})
}

func (u *UI) performDelete(targets []command.Command) {
	ids := make([]string, 0, len(targets))
	for _, cmd := range targets {
		ids = append(ids, cmd.ID)
	}
	n, err := u.catalog.Remove(ids...)
	if err != nil {
		u.showError(fmt.Sprintf("Could not delete: %v", err))
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, id := range ids {
		delete(u.marked, id)
	}
	u.statusText = fmt.Sprintf("Deleted %d command(s)", n)
	u.renderLocked()
}

func (u *UI) duplicateCurrent() {
	cmd, ok := u.currentCommand()
	if !ok {
		return
	}
	copied, err := u.catalog.Duplicate(cmd.ID)
	if err != nil {
		u.showError(fmt.Sprintf("Could not duplicate: %v", err))
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.statusText = fmt.Sprintf("Added %s", copied.Name)
	u.renderLocked()
	u.selectCommandLocked(copied.ID)
}

// submitCommand adds a new command, or updates id when it is not empty.
func (u *UI) submitCommand(id, name, line string) error {
	var (
		saved command.Command
		err   error
	)
	if id == "" {
		saved, err = u.catalog.Add(name, line)
	} else {
		saved, err = u.catalog.Update(id, name, line)
	}
	if err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if id == "" {
		u.statusText = fmt.Sprintf("Added %s", saved.Name)
	} else {
		u.statusText = fmt.Sprintf("Updated %s", saved.Name)
	}
	u.renderLocked()
	u.selectCommandLocked(saved.ID)
	return nil
}

func (u *UI) confirmTerminate() {
	n := u.service.Count()
	if n == 0 {
		u.mu.Lock()
		u.statusText = "No background processes running"
		u.renderLocked()
		u.mu.Unlock()
		return
	}
	u.showConfirm(fmt.Sprintf("Terminate %d background process(es)?", n), "Terminate", u.performTerminate)
}

func (u *UI) performTerminate() {
	term := u.service.TerminateAll()
	summary := term.Summary()
	u.logger.Info().Int("requested", summary.Requested).Msg("terminate-all requested")

	u.mu.Lock()
	defer u.mu.Unlock()
	u.statusText = engine.TerminatedStatus(summary.Requested)
	for _, failure := range summary.Failures {
		u.appendActivityLocked(time.Now(), failure.Error())
	}
	u.procs = nil
	u.renderLocked()
}

func (u *UI) selectCommandLocked(id string) {
	for i, cmd := range u.visible {
		if cmd.ID == id {
			u.commands.Select(i+1, 0)
			return
		}
	}
}

func (u *UI) renderLocked() {
	u.renderCommandsLocked()
	u.renderProcessesLocked()
	u.renderActivityLocked()
	u.renderStatusLocked()
}

func (u *UI) renderCommandsLocked() {
	row, _ := u.commands.GetSelection()
	u.visible = u.catalog.List()

	present := make(map[string]bool, len(u.visible))
	for _, cmd := range u.visible {
		present[cmd.ID] = true
	}
	for id := range u.marked {
		if !present[id] {
			delete(u.marked, id)
		}
	}

	u.commands.Clear()
	setHeader(u.commands, " ", "ID", "NAME", "COMMAND")
	for i, cmd := range u.visible {
		mark := " "
		if u.marked[cmd.ID] {
			mark = "*"
		}
		line := cmd.CommandLine
		if len(line) > 120 {
			line = line[:117] + "..."
		}
		values := []string{mark, cmd.ShortID(), cmd.Name, line}
		for col, value := range values {
			cell := tview.NewTableCell(tview.Escape(value))
			if col == 0 {
				cell.SetTextColor(tcell.ColorYellow)
			}
			u.commands.SetCell(i+1, col, cell)
		}
	}

	title := fmt.Sprintf("%s (%d)", commandsTitle, len(u.visible))
	if len(u.marked) > 0 {
		title = fmt.Sprintf("%s, %d marked", title, len(u.marked))
	}
	if u.storePath != "" {
		title = fmt.Sprintf("%s - %s", title, tview.Escape(u.storePath))
	}
	u.commands.SetTitle(title)

	switch {
	case len(u.visible) == 0:
		u.commands.Select(0, 0)
	case row < 1:
		u.commands.Select(1, 0)
	case row > len(u.visible):
		u.commands.Select(len(u.visible), 0)
	}
}

func (u *UI) renderProcessesLocked() {
	u.processes.Clear()
	setHeader(u.processes, "NAME", "PID", "STATE", "AGE", "MEM", "")
	now := time.Now()
	for i, row := range u.procs {
		note := ""
		if row.status.Fallback {
			note = "no terminal"
		}
		values := []string{
			row.status.Name,
			fmt.Sprintf("%d", row.status.PID),
			row.status.StateText,
			resources.FormatAge(row.status.StartedAt, now),
			row.memory,
			note,
		}
		for col, value := range values {
			u.processes.SetCell(i+1, col, tview.NewTableCell(tview.Escape(value)))
		}
	}
	u.processes.SetTitle(fmt.Sprintf("%s (%d)", processesTitle, len(u.procs)))
}

func (u *UI) renderActivityLocked() {
	u.activity.SetText(strings.Join(u.activityLines, "\n"))
	u.activity.ScrollToEnd()
}

func (u *UI) renderStatusLocked() {
	u.status.SetText(fmt.Sprintf("[::b]%s[::-]  mode: %s\n[gray]a add  e edit  d delete  c copy  space mark  r/enter run  R run all  b mode  t terminate  tab focus  q quit[-]",
		tview.Escape(u.statusText), modeLabel(u.background)))
}

func setHeader(table *tview.Table, headers ...string) {
	for col, header := range headers {
		table.SetCell(0, col, tview.NewTableCell(header).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold))
	}
}

func modeLabel(background bool) string {
	if background {
		return "background"
	}
	return "terminal"
}
