package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/cmdlaunch/internal/tui"
)

func newTuiCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Manage and launch commands from an interactive interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !supportsInteractiveOutput(cmd) {
				return fmt.Errorf("tui requires an interactive terminal")
			}

			if ctx.config().Log.File == "" {
				if err := ctx.redirectLogs(ctx.defaultLogFile()); err != nil {
					return err
				}
			}

			cat, err := ctx.getCatalog()
			if err != nil {
				return err
			}
			cfg := ctx.config()
			return tui.Run(cmd.Context(), tui.Options{
				Catalog:         cat,
				Service:         ctx.getService(),
				Logger:          ctx.log(),
				Background:      cfg.Launch.Background,
				TerminateOnExit: cfg.Terminate.OnExit,
				StorePath:       ctx.getStore().Path(),
			})
		},
	}

	return cmd
}
