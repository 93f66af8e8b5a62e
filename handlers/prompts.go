// ABOUTME: MCP prompt handlers for reusable sales workflow templates
// ABOUTME: Provides call-prep, pipeline-review and follow-up-suggestions prompts
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/leadsync/app"
	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/places"
	"github.com/harperreed/leadsync/views"
)

type PromptHandlers struct {
	app *app.App
}

func NewPromptHandlers(a *app.App) *PromptHandlers {
	return &PromptHandlers{app: a}
}

// Prompts lists every prompt GetPrompt can render.
func (h *PromptHandlers) Prompts() []*mcp.Prompt {
	return []*mcp.Prompt{
		{
			Name:        "call-prep",
			Description: "Prepare for a sales call with one lead",
			Arguments: []*mcp.PromptArgument{
				{Name: "lead_id", Description: "Lead ID", Required: true},
			},
		},
		{
			Name:        "pipeline-review",
			Description: "Review pipeline health across statuses and team members",
		},
		{
			Name:        "follow-up-suggestions",
			Description: "Suggest which callbacks and interested leads to work next",
		},
	}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch request.Params.Name {
	case "call-prep":
		return h.callPrep(request.Params.Arguments)
	case "pipeline-review":
		return h.pipelineReview()
	case "follow-up-suggestions":
		return h.followUps()
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: text}},
		},
	}
}

func (h *PromptHandlers) callPrep(args map[string]string) (*mcp.GetPromptResult, error) {
	id, ok := args["lead_id"]
	if !ok || id == "" {
		return nil, fmt.Errorf("lead_id is required")
	}
	l, err := h.app.Lead(id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lead: %w", err)
	}

	var b strings.Builder
	b.WriteString("I'm about to call this business:\n\n")
	fmt.Fprintf(&b, "Name: %s\n", l.Name)
	fmt.Fprintf(&b, "Category: %s\n", places.CategoryLabel(l.BusinessType))
	fmt.Fprintf(&b, "Address: %s\n", l.Address)
	if l.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", l.Phone)
	}
	if l.Website == "" {
		b.WriteString("Website: none\n")
	} else {
		fmt.Fprintf(&b, "Website: %s\n", l.Website)
	}
	fmt.Fprintf(&b, "Reviews: %d", l.Reviews())
	if l.Rating != nil {
		fmt.Fprintf(&b, " (rating %.1f)", *l.Rating)
	}
	fmt.Fprintf(&b, "\nStatus: %s, score %d/100\n", l.Status.Label(), views.LeadScore(l))

	if len(l.CallHistory) > 0 {
		b.WriteString("\nPrevious calls:\n")
		for _, c := range l.CallHistory {
			fmt.Fprintf(&b, "  - %s by %s: %s", c.Time().Format("2006-01-02"), c.User, c.Outcome)
			if c.Notes != "" {
				fmt.Fprintf(&b, " (%s)", c.Notes)
			}
			b.WriteString("\n")
		}
	}
	if l.Notes != "" {
		fmt.Fprintf(&b, "\nNotes:\n%s\n", l.Notes)
	}

	b.WriteString("\nPlease give me:")
	b.WriteString("\n1. A short opening line tailored to this business")
	b.WriteString("\n2. The likely pain points given their online presence")
	b.WriteString("\n3. How to handle the objections from earlier calls, if any")

	return userPrompt(fmt.Sprintf("Call prep for %s", l.Name), b.String()), nil
}

func (h *PromptHandlers) pipelineReview() (*mcp.GetPromptResult, error) {
	st := h.app.Stats()

	var b strings.Builder
	b.WriteString("Please review our sales pipeline:\n\n")
	fmt.Fprintf(&b, "Total businesses: %d (%d marked as leads)\n", st.Total, st.Marked)
	fmt.Fprintf(&b, "Calls: %d total, %d today\n\n", st.TotalCalls, st.CallsToday)
	b.WriteString("By status:\n")
	for _, s := range models.Statuses {
		fmt.Fprintf(&b, "  - %s: %d\n", s.Label(), st.ByStatus[s])
	}
	if len(st.Members) > 0 {
		b.WriteString("\nTeam:\n")
		for _, m := range st.Members {
			fmt.Fprintf(&b, "  - %s: %d added, %d assigned, %d calls (%d today)\n", m.Name, m.Added, m.Assigned, m.Calls, m.CallsToday)
		}
	}

	b.WriteString("\nPlease provide:")
	b.WriteString("\n1. Analysis of pipeline health and conversion")
	b.WriteString("\n2. Where the team should focus this week")

	return userPrompt("Pipeline review", b.String()), nil
}

func (h *PromptHandlers) followUps() (*mcp.GetPromptResult, error) {
	leads := h.app.Leads(views.Filters{}, views.SortScore)

	var b strings.Builder
	b.WriteString("These leads are waiting on a follow-up:\n\n")
	n := 0
	for _, l := range leads {
		if l.Status != models.StatusCallback && l.Status != models.StatusInterested {
			continue
		}
		last := "never called"
		if k := len(l.CallHistory); k > 0 {
			c := l.CallHistory[k-1]
			last = fmt.Sprintf("last call %s (%s)", humanAge(c.Time()), c.Outcome)
		}
		fmt.Fprintf(&b, "- %s [%s] score %d, %s\n", l.Name, l.Status.Label(), views.LeadScore(l), last)
		n++
		if n == 20 {
			break
		}
	}
	if n == 0 {
		b.WriteString("(none)\n")
	}
	b.WriteString("\nSuggest an order to work through them and what to say to each.")

	return userPrompt("Follow-up suggestions", b.String()), nil
}

func humanAge(t time.Time) string {
	days := int(time.Since(t).Hours() / 24)
	switch {
	case days <= 0:
		return "today"
	case days == 1:
		return "yesterday"
	}
	return fmt.Sprintf("%d days ago", days)
}
