// ABOUTME: Visualization CLI commands
// ABOUTME: Handles viz dashboard and graph generation commands
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harperreed/leadsync/app"
	"github.com/harperreed/leadsync/views"
	"github.com/harperreed/leadsync/viz"
)

func (e *env) vizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "viz",
		Short: "Pipeline graphs and the terminal dashboard",
	}

	var format, output string
	graph := &cobra.Command{
		Use:       "graph [pipeline|team]",
		Short:     "Render a GraphViz graph of the pipeline or team activity",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"pipeline", "team"},
		RunE: e.oneShot(func(cmd *cobra.Command, args []string, a *app.App) error {
			f, err := viz.ParseFormat(format)
			if err != nil {
				return err
			}
			generator := viz.NewGraphGenerator(a.Leads(views.Filters{}, views.SortNewest))

			kind := "pipeline"
			if len(args) == 1 {
				kind = args[0]
			}
			var out string
			switch kind {
			case "pipeline":
				out, err = generator.GeneratePipelineGraph(cmd.Context(), f)
			case "team":
				out, err = generator.GenerateTeamGraph(cmd.Context(), f)
			default:
				return fmt.Errorf("unknown graph type: %s (valid types: pipeline, team)", kind)
			}
			if err != nil {
				return err
			}

			if output != "" {
				if err := os.WriteFile(output, []byte(out), 0644); err != nil {
					return err
				}
				success(cmd.OutOrStdout(), "Wrote %s graph to %s", kind, output)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		}),
	}
	graph.Flags().StringVar(&format, "format", "dot", "dot, svg or png")
	graph.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")

	dashboard := &cobra.Command{
		Use:   "dashboard",
		Short: "Print the pipeline dashboard",
		Args:  cobra.NoArgs,
		RunE: e.oneShot(func(cmd *cobra.Command, args []string, a *app.App) error {
			leads := a.Leads(views.Filters{}, views.SortNewest)
			fmt.Fprint(cmd.OutOrStdout(), viz.RenderDashboard(viz.GenerateDashboardStats(leads, a.Now())))
			return nil
		}),
	}

	cmd.AddCommand(graph, dashboard)
	return cmd
}
