package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/cmdlaunch/internal/config"
	"github.com/Paintersrp/cmdlaunch/internal/launcher"
)

func newConfigCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect cmdlaunch configuration",
	}
	cmd.AddCommand(newConfigShowCmd(ctx))
	cmd.AddCommand(newConfigPathsCmd())
	return cmd
}

func newConfigShowCmd(ctx *context) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := ctx.config().YAML()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := out.Write(data); err != nil {
				return err
			}
			l := launcher.New(launcher.WithTerminals(ctx.config().Launch.Terminals))
			fmt.Fprintf(out, "# terminal strategies, in order: %v\n", l.Strategies())
			return nil
		},
	}
}

func newConfigPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "List the directories searched for cmdlaunch.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, dir := range config.SearchPaths() {
				fmt.Fprintln(cmd.OutOrStdout(), dir)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "environment overrides use the %s_ prefix\n", config.EnvPrefix)
			return nil
		},
	}
}
