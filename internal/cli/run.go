package cli

import (
	stdcontext "context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/cmdlaunch/internal/command"
	"github.com/Paintersrp/cmdlaunch/internal/engine"
)

const shutdownSlack = 5 * time.Second

func newRunCmd(ctx *context) *cobra.Command {
	var (
		all        bool
		background bool
		foreground bool
		wait       bool
		jsonOut    bool
	)
	cmd := &cobra.Command{
		Use:   "run [REF...]",
		Short: "Launch saved commands in a terminal or in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			if background && foreground {
				return errors.New("--background and --foreground are mutually exclusive")
			}
			selected, err := selectCommands(ctx, args, all)
			if err != nil {
				return err
			}

			bg := ctx.config().Launch.Background
			if cmd.Flags().Changed("background") {
				bg = background
			}
			if foreground {
				bg = false
			}

			svc := ctx.getService()
			printer := newEventPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), jsonOut)

			events, release := svc.Subscribe(4*len(selected) + 16)
			defer release()

			printer.status(engine.RunningStatus(len(selected)))
			results := svc.Launch(cmd.Context(), selected, bg)
			printer.drain(events)
			printer.status(engine.ReadyStatus(svc.Count()))

			if svc.Count() == 0 {
				return results.Err()
			}
			if !wait {
				printer.status("Background processes keep running after cmdlaunch exits; use --wait to supervise them.")
				return results.Err()
			}
			return errors.Join(results.Err(), superviseUntilDone(cmd.Context(), ctx, svc, events, printer))
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Run every saved command")
	cmd.Flags().BoolVarP(&background, "background", "b", false, "Run detached in the background instead of a terminal")
	cmd.Flags().BoolVar(&foreground, "foreground", false, "Open each command in a terminal even if background is the configured default")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Stay attached until background processes exit; Ctrl-C terminates them")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print events as JSON lines")
	return cmd
}

func selectCommands(ctx *context, refs []string, all bool) ([]command.Command, error) {
	cat, err := ctx.getCatalog()
	if err != nil {
		return nil, err
	}
	if all {
		if len(refs) > 0 {
			return nil, errors.New("--all cannot be combined with command references")
		}
		cmds := cat.List()
		if len(cmds) == 0 {
			return nil, fmt.Errorf("no commands saved in %s", ctx.getStore().Path())
		}
		return cmds, nil
	}
	if len(refs) == 0 {
		return nil, errors.New("no commands selected: pass one or more references or --all")
	}
	return cat.Resolve(refs)
}

// superviseUntilDone reaps background processes until none remain or ctx is
// cancelled, in which case every tracked process is terminated.
func superviseUntilDone(ctx stdcontext.Context, cliCtx *context, svc *engine.Service, events <-chan engine.Event, printer *eventPrinter) error {
	runCtx, cancel := stdcontext.WithCancel(ctx)
	defer cancel()
	go svc.Run(runCtx)

	for {
		select {
		case <-ctx.Done():
			if !cliCtx.config().Terminate.OnExit {
				printer.status(fmt.Sprintf("Leaving %d background process(es) running", svc.Count()))
				return nil
			}
			return terminateAndReport(svc, svc.Shutdown, printer)
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			printer.event(evt)
			if evt.Type == engine.EventTypeCount && evt.Count == 0 {
				return nil
			}
		}
	}
}

// terminateAndReport runs stop, either Shutdown or WaitSweeps, and prints
// what it did.
func terminateAndReport(svc *engine.Service, stop func(stdcontext.Context) (engine.TerminationSummary, error), printer *eventPrinter) error {
	shutdownCtx, cancel := stdcontext.WithTimeout(stdcontext.Background(), svc.GracePeriod()+shutdownSlack)
	defer cancel()
	summary, err := stop(shutdownCtx)
	if summary.Requested == 0 {
		return errors.Join(err, summary.Err())
	}
	printer.status(engine.TerminatedStatus(summary.Requested))
	if summary.Forced > 0 {
		printer.status(fmt.Sprintf("%d process(es) ignored the stop signal and were killed", summary.Forced))
	}
	return errors.Join(err, summary.Err())
}

// eventPrinter writes service events either as human readable lines or as
// JSON records.
type eventPrinter struct {
	out    io.Writer
	stderr io.Writer
	enc    *json.Encoder
}

func newEventPrinter(out, stderr io.Writer, jsonOut bool) *eventPrinter {
	p := &eventPrinter{out: out, stderr: stderr}
	if jsonOut {
		p.enc = json.NewEncoder(out)
	}
	return p
}

func (p *eventPrinter) event(evt engine.Event) {
	if p.enc != nil {
		encodeEvent(p.enc, p.stderr, evt)
		return
	}
	if line := describeEvent(evt); line != "" {
		fmt.Fprintln(p.out, line)
	}
}

func (p *eventPrinter) status(line string) {
	if p.enc != nil {
		return
	}
	fmt.Fprintln(p.out, line)
}

// drain prints the events already buffered, skipping count notifications.
func (p *eventPrinter) drain(events <-chan engine.Event) {
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			if evt.Type == engine.EventTypeCount {
				if p.enc != nil {
					p.event(evt)
				}
				continue
			}
			p.event(evt)
		default:
			return
		}
	}
}
