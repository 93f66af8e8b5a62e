// ABOUTME: MCP server subcommand
// ABOUTME: Starts the MCP server on stdio for agent integration
package cli

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/harperreed/leadsync/app"
	"github.com/harperreed/leadsync/handlers"
)

func (e *env) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: e.session(func(cmd *cobra.Command, args []string, a *app.App) error {
			log := a.Logger()
			log.Info().Msg("starting MCP server")
			return NewMCPServer(a, e.version).Run(cmd.Context(), &mcp.StdioTransport{})
		}),
	}
}

// NewMCPServer registers every lead tool, prompt and resource on a new server.
func NewMCPServer(a *app.App, version string) *mcp.Server {
	leadHandlers := handlers.NewLeadHandlers(a)
	vizHandlers := handlers.NewVizHandlers(a)
	promptHandlers := handlers.NewPromptHandlers(a)
	resourceHandlers := handlers.NewResourceHandlers(a)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "leadsync",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_leads",
		Description: "Search an area for local businesses of a category and add them to the shared list",
	}, leadHandlers.SearchLeads)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_leads",
		Description: "List leads with filters for status, activity, team member, missing website or phone, and review count",
	}, leadHandlers.ListLeads)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_lead",
		Description: "Update a lead's status, sales-lead mark, assignment or contact fields, optionally appending a note",
	}, leadHandlers.UpdateLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "log_call",
		Description: "Record a call with its outcome, optionally moving the lead to a new status",
	}, leadHandlers.LogCall)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_lead",
		Description: "Add a lead by hand; rejected when the phone or name and address match an existing lead",
	}, leadHandlers.AddLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_social_lead",
		Description: "Create a lead from the text of a social media post, extracting phone, email, website and address",
	}, leadHandlers.AddSocialLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_lead",
		Description: "Delete a lead for the whole team",
	}, leadHandlers.DeleteLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "lead_stats",
		Description: "Pipeline counts by status plus per-member call and add activity",
	}, leadHandlers.LeadStats)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_graph",
		Description: "Generate a GraphViz DOT graph of the pipeline or team activity",
	}, vizHandlers.GenerateGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dashboard",
		Description: "Render the text dashboard with pipeline overview, hot leads and stale callbacks",
	}, vizHandlers.Dashboard)

	for _, p := range promptHandlers.Prompts() {
		server.AddPrompt(p, promptHandlers.GetPrompt)
	}
	for _, r := range resourceHandlers.Resources() {
		server.AddResource(r, resourceHandlers.ReadResource)
	}
	server.AddResourceTemplate(resourceHandlers.Template(), resourceHandlers.ReadResource)

	return server
}
