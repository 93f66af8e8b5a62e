// ABOUTME: Long-running surfaces: the HTTP server and the terminal UI
// ABOUTME: Both stop on interrupt and flush pending uploads before exit
package cli

import (
	"github.com/spf13/cobra"

	"github.com/harperreed/leadsync/app"
	"github.com/harperreed/leadsync/metrics"
	"github.com/harperreed/leadsync/tui"
	"github.com/harperreed/leadsync/web"
)

func (e *env) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API, dashboard page and /metrics",
		Args:  cobra.NoArgs,
		RunE: e.session(func(cmd *cobra.Command, args []string, a *app.App) error {
			s, err := web.NewServer(a)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.Config().Server.Addr
			}
			success(cmd.OutOrStdout(), "Serving leads at http://localhost%s as %s", addr, a.Viewer().Name)
			return s.Start(cmd.Context(), addr)
		}, app.WithMetrics(metrics.New())),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr)")
	return cmd
}

func (e *env) tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive lead list",
		Args:  cobra.NoArgs,
		RunE: e.session(func(cmd *cobra.Command, args []string, a *app.App) error {
			return tui.Run(cmd.Context(), a)
		}),
	}
}
