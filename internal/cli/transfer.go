package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/cmdlaunch/internal/store"
)

func newExportCmd(ctx *context) *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write saved commands as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := resolveFormat(format, output)
			if err != nil {
				return err
			}
			cat, err := ctx.getCatalog()
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				return store.Encode(cmd.OutOrStdout(), cat.List(), f)
			}

			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			defer file.Close()
			buf := bufio.NewWriter(file)
			if err := store.Encode(buf, cat.List(), f); err != nil {
				return err
			}
			if err := buf.Flush(); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d command(s) to %s\n", cat.Len(), output)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Output format: json or yaml (default: from -o extension, else json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}

func newImportCmd(ctx *context) *cobra.Command {
	var (
		format  string
		replace bool
	)
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Add commands from a JSON or YAML file",
		Long:  "Add commands from a JSON or YAML file. Use - to read from stdin.\nImported identifiers that clash with saved ones are regenerated.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := resolveFormat(format, path)
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if path != "-" {
				file, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("open %s: %w", path, err)
				}
				defer file.Close()
				r = file
			}
			cmds, err := store.Decode(r, f)
			if err != nil {
				return err
			}

			cat, err := ctx.getCatalog()
			if err != nil {
				return err
			}
			if replace {
				err = cat.Replace(cmds)
			} else {
				err = cat.Append(cmds)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d command(s); %d saved\n", len(cmds), cat.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Input format: json or yaml (default: from file extension, else json)")
	cmd.Flags().BoolVar(&replace, "replace", false, "Replace the saved list instead of appending")
	return cmd
}

func resolveFormat(flag, path string) (store.Format, error) {
	if flag != "" {
		return store.ParseFormat(flag)
	}
	if path == "" || path == "-" {
		return store.FormatJSON, nil
	}
	return store.FormatFromPath(path), nil
}
