// ABOUTME: MCP resource handlers for exposing lead data
// ABOUTME: Provides read-only access to leads, marked leads, stats and single records via leads:// URIs
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/leadsync/app"
	"github.com/harperreed/leadsync/views"
)

const scheme = "leads://"

type ResourceHandlers struct {
	app *app.App
}

func NewResourceHandlers(a *app.App) *ResourceHandlers {
	return &ResourceHandlers{app: a}
}

// Resources lists the fixed resources; single leads use the leads://lead/{id} template.
func (h *ResourceHandlers) Resources() []*mcp.Resource {
	return []*mcp.Resource{
		{URI: scheme + "all", Name: "All leads", MIMEType: "application/json"},
		{URI: scheme + "marked", Name: "Marked sales leads", MIMEType: "application/json"},
		{URI: scheme + "stats", Name: "Pipeline stats", MIMEType: "application/json"},
	}
}

func (h *ResourceHandlers) Template() *mcp.ResourceTemplate {
	return &mcp.ResourceTemplate{
		URITemplate: scheme + "lead/{id}",
		Name:        "Lead",
		MIMEType:    "application/json",
	}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, scheme) {
		return nil, fmt.Errorf("invalid URI scheme: expected %s", scheme)
	}

	parts := strings.Split(strings.TrimPrefix(uri, scheme), "/")
	var v any
	switch parts[0] {
	case "all":
		v = outputs(h.app.Leads(views.Filters{}, views.SortNewest))
	case "marked":
		v = outputs(h.app.Leads(views.Filters{OnlyLeads: true}, views.SortNewest))
	case "stats":
		v = h.app.Stats()
	case "lead":
		if len(parts) < 2 || parts[1] == "" {
			return nil, fmt.Errorf("lead id is required")
		}
		l, err := h.app.Lead(parts[1])
		if err != nil {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		v = l
	default:
		return nil, mcp.ResourceNotFoundError(uri)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{URI: uri, MIMEType: "application/json", Text: string(data)},
	}}, nil
}
