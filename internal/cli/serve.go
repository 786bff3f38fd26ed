package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/cmdlaunch/internal/api"
	apihttp "github.com/Paintersrp/cmdlaunch/internal/api/http"
	"github.com/Paintersrp/cmdlaunch/internal/command"
	"github.com/Paintersrp/cmdlaunch/internal/engine"
)

var newAPIServer = apihttp.NewServer

func newServeCmd(ctx *context) *cobra.Command {
	var (
		apiAddr string
		all     bool
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "serve [REF...]",
		Short: "Host background processes behind the HTTP control API",
		Long: "Start the given commands in the background, keep reaping them and serve the\n" +
			"control API until interrupted. The API lists commands and processes and can\n" +
			"terminate everything; it cannot launch commands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var selected []command.Command
			if all || len(args) > 0 {
				var err error
				selected, err = selectCommands(ctx, args, all)
				if err != nil {
					return err
				}
			}
			cat, err := ctx.getCatalog()
			if err != nil {
				return err
			}

			addr := ctx.config().API.Addr
			if cmd.Flags().Changed("api") {
				addr = apiAddr
			}

			svc := ctx.getService()
			control := NewControlAPI(cat, svc, ctx.log())
			if control == nil {
				return api.ErrUnavailable
			}
			server, err := newAPIServer(apihttp.Config{Addr: addr, Controller: control, Logger: ctx.log()})
			if err != nil {
				return err
			}

			printer := newEventPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), jsonOut)
			events, release := svc.Subscribe(4*len(selected) + 64)
			defer release()

			runCtx, cancel := stdcontext.WithCancel(cmd.Context())
			defer cancel()

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Run(runCtx)
			}()
			readyTimer := time.NewTimer(200 * time.Millisecond)
			defer readyTimer.Stop()
			select {
			case err := <-errCh:
				return err
			case <-readyTimer.C:
			case <-runCtx.Done():
				return nil
			}
			printer.status(fmt.Sprintf("Control API listening on %s", server.Addr()))

			if len(selected) > 0 {
				printer.status(engine.RunningStatus(len(selected)))
				results := svc.Launch(runCtx, selected, true)
				if err := results.Err(); err != nil {
					logger := ctx.log()
					logger.Warn().Err(err).Int("failed", results.Failed()).Msg("some commands failed to launch")
				}
			}
			go svc.Run(runCtx)

			var (
				serveErr   error
				serverDone bool
			)
		loop:
			for {
				select {
				case <-runCtx.Done():
					break loop
				case err := <-errCh:
					serveErr, serverDone = err, true
					break loop
				case evt, ok := <-events:
					if !ok {
						break loop
					}
					printer.event(evt)
				}
			}

			cancel()
			var shutdownErr error
			if ctx.config().Terminate.OnExit {
				shutdownErr = terminateAndReport(svc, svc.Shutdown, printer)
			} else {
				shutdownErr = terminateAndReport(svc, svc.WaitSweeps, printer)
			}
			if !serverDone {
				serveErr = <-errCh
			}
			if errors.Is(serveErr, http.ErrServerClosed) || errors.Is(serveErr, stdcontext.Canceled) {
				serveErr = nil
			}
			return errors.Join(serveErr, shutdownErr)
		},
	}
	cmd.Flags().StringVar(&apiAddr, "api", "", "Address for the HTTP control API (default: api.addr from config)")
	cmd.Flags().BoolVar(&all, "all", false, "Start every saved command")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print events as JSON lines")
	return cmd
}
