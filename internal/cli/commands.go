package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/cmdlaunch/internal/command"
	"github.com/Paintersrp/cmdlaunch/internal/redact"
)

func newListCmd(ctx *context) *cobra.Command {
	var (
		full   bool
		masked bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show saved commands",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := ctx.getCatalog()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			cmds := cat.List()
			if len(cmds) == 0 {
				fmt.Fprintf(out, "No commands saved in %s\n", ctx.getStore().Path())
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCOMMAND")
			for _, c := range cmds {
				id := c.ShortID()
				if full {
					id = c.ID
				}
				line := c.CommandLine
				if masked {
					line = redact.CommandLine(line)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", id, c.Name, line)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&full, "full-id", false, "Show complete identifiers")
	cmd.Flags().BoolVar(&masked, "redact", false, "Mask passwords and tokens in command lines")
	return cmd
}

func newAddCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add NAME COMMAND...",
		Short: "Save a new command",
		Long: "Save a new command. Words after NAME are joined with spaces and stored verbatim;\n" +
			"quote the command or separate it with -- to keep flags away from cmdlaunch.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := ctx.getCatalog()
			if err != nil {
				return err
			}
			created, err := cat.Add(args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", created.Name, created.ShortID())
			return nil
		},
	}
	return cmd
}

func newEditCmd(ctx *context) *cobra.Command {
	var name, line string
	cmd := &cobra.Command{
		Use:   "edit REF",
		Short: "Change the name or command line of a saved command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("name") && !cmd.Flags().Changed("command") {
				return errors.New("nothing to change: pass --name and/or --command")
			}
			cat, err := ctx.getCatalog()
			if err != nil {
				return err
			}
			current, err := cat.Find(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("name") {
				name = current.Name
			}
			if !cmd.Flags().Changed("command") {
				line = current.CommandLine
			}
			updated, err := cat.Update(current.ID, name, line)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%s)\n", updated.Name, updated.ShortID())
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New display name")
	cmd.Flags().StringVar(&line, "command", "", "New command line")
	return cmd
}

func newRemoveCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rm REF...",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete saved commands",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := ctx.getCatalog()
			if err != nil {
				return err
			}
			targets, err := cat.Resolve(args)
			if err != nil {
				return err
			}
			n, err := cat.Remove(commandIDs(targets)...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d command(s)\n", n)
			return nil
		},
	}
	return cmd
}

func newDuplicateCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dup REF",
		Aliases: []string{"duplicate", "cp"},
		Short:   "Copy a saved command under a new name",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := ctx.getCatalog()
			if err != nil {
				return err
			}
			source, err := cat.Find(args[0])
			if err != nil {
				return err
			}
			copied, err := cat.Duplicate(source.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", copied.Name, copied.ShortID())
			return nil
		},
	}
	return cmd
}

func commandIDs(cmds []command.Command) []string {
	ids := make([]string, 0, len(cmds))
	for _, c := range cmds {
		ids = append(ids, c.ID)
	}
	return ids
}
