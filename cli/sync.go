// ABOUTME: Sync and config maintenance commands
// ABOUTME: Reports remote sync state and writes a starter config file
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harperreed/leadsync/app"
	"github.com/harperreed/leadsync/config"
)

func (e *env) syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Shared store synchronization",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show remote sync status",
		Args:  cobra.NoArgs,
		RunE: e.oneShot(func(cmd *cobra.Command, args []string, a *app.App) error {
			st := a.Status()
			out := cmd.OutOrStdout()
			loaded := red.Sprint("not loaded")
			if st.RemoteLoaded {
				loaded = green.Sprint("loaded")
			}
			fmt.Fprintf(out, "Remote:    %s (%s)\n", st.Remote, loaded)
			fmt.Fprintf(out, "User:      %s (%s)\n", a.Viewer().Name, a.Viewer().Role)
			fmt.Fprintf(out, "Session:   %s\n", st.Session)
			fmt.Fprintf(out, "Leads:     %d\n", st.Leads)
			fmt.Fprintf(out, "Pending:   %d upload(s), %d detail lookup(s)\n", st.PendingUploads, st.PendingDetails)
			fmt.Fprintf(out, "Exports:   %d sink(s)\n", st.Sinks)
			if !a.SearchEnabled() {
				fmt.Fprintln(out, yellow.Sprint("Search is disabled: set places.apiKey"))
			}
			return nil
		}),
	})
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultPath()
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Wrote config to %s", path)
			fmt.Fprintln(cmd.OutOrStdout(), "  Set user.name and places.apiKey before searching")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the default config path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.DefaultPath())
		},
	})
	return cmd
}
