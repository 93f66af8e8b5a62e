// ABOUTME: GraphViz visualization MCP handlers
// ABOUTME: Provides generate_graph and dashboard tools for agents
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/leadsync/app"
	"github.com/harperreed/leadsync/views"
	"github.com/harperreed/leadsync/viz"
)

type VizHandlers struct {
	app *app.App
}

func NewVizHandlers(a *app.App) *VizHandlers {
	return &VizHandlers{app: a}
}

type GenerateGraphInput struct {
	Type string `json:"type" jsonschema:"Graph type: pipeline or team"`
}

type GenerateGraphOutput struct {
	GraphType string `json:"graph_type"`
	DOTSource string `json:"dot_source"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (h *VizHandlers) GenerateGraph(ctx context.Context, request *mcp.CallToolRequest, input GenerateGraphInput) (*mcp.CallToolResult, GenerateGraphOutput, error) {
	generator := viz.NewGraphGenerator(h.app.Leads(views.Filters{}, views.SortNewest))

	var (
		dot string
		err error
	)
	switch input.Type {
	case "", "pipeline":
		input.Type = "pipeline"
		dot, err = generator.GeneratePipelineGraph(ctx, graphviz.XDOT)
	case "team":
		dot, err = generator.GenerateTeamGraph(ctx, graphviz.XDOT)
	default:
		return nil, GenerateGraphOutput{}, fmt.Errorf("unknown graph type: %s (valid types: pipeline, team)", input.Type)
	}
	if err != nil {
		return nil, GenerateGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	return nil, GenerateGraphOutput{
		GraphType: input.Type,
		DOTSource: dot,
		NodeCount: strings.Count(dot, "[label="),
		EdgeCount: strings.Count(dot, "->"),
	}, nil
}

type DashboardInput struct{}

type DashboardOutput struct {
	Text string `json:"text"`
}

func (h *VizHandlers) Dashboard(_ context.Context, request *mcp.CallToolRequest, input DashboardInput) (*mcp.CallToolResult, DashboardOutput, error) {
	leads := h.app.Leads(views.Filters{}, views.SortNewest)
	text := viz.RenderDashboard(viz.GenerateDashboardStats(leads, h.app.Now()))
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, DashboardOutput{Text: text}, nil
}
