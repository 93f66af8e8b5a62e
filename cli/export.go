// ABOUTME: CSV export and import commands
// ABOUTME: Writes marked leads to a spreadsheet-friendly file and reads them back
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/harperreed/leadsync/app"
	"github.com/harperreed/leadsync/export"
)

func (e *env) exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export marked leads to CSV",
		Args:  cobra.NoArgs,
		RunE: e.oneShot(func(cmd *cobra.Command, args []string, a *app.App) error {
			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				if output == "auto" {
					output = export.FileName(a.Now())
				}
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			n, err := a.ExportCSV(w)
			if err != nil {
				return fmt.Errorf("failed to export: %w", err)
			}
			if output != "" {
				success(cmd.OutOrStdout(), "Exported %d lead(s) to %s", n, output)
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file ('auto' for a dated name; default: stdout)")
	return cmd
}

func (e *env) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file.csv]",
		Short: "Import leads from a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: e.oneShot(func(cmd *cobra.Command, args []string, a *app.App) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			imported, skipped, err := a.ImportCSV(cmd.Context(), f)
			if err != nil {
				return fmt.Errorf("failed to import: %w", err)
			}
			success(cmd.OutOrStdout(), "Imported %d lead(s), skipped %d", imported, skipped)
			return nil
		}),
	}
}
