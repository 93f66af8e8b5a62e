// ABOUTME: Lead MCP tool handlers
// ABOUTME: Implements search_leads, list_leads, update_lead, log_call, add_lead, add_social_lead, delete_lead and lead_stats
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/leadsync/app"
	"github.com/harperreed/leadsync/intake"
	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/places"
	"github.com/harperreed/leadsync/store"
	"github.com/harperreed/leadsync/views"
)

const defaultListLimit = 25

type LeadHandlers struct {
	app *app.App
}

func NewLeadHandlers(a *app.App) *LeadHandlers {
	return &LeadHandlers{app: a}
}

type LeadOutput struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	Phone        string  `json:"phone,omitempty"`
	Website      string  `json:"website,omitempty"`
	Status       string  `json:"status"`
	IsLead       bool    `json:"is_lead"`
	BusinessType string  `json:"business_type,omitempty"`
	Notes        string  `json:"notes,omitempty"`
	AddedBy      string  `json:"added_by,omitempty"`
	AssignedTo   string  `json:"assigned_to,omitempty"`
	Reviews      int     `json:"reviews"`
	Rating       float64 `json:"rating,omitempty"`
	Score        int     `json:"score"`
	Calls        int     `json:"calls"`
	LastUpdated  string  `json:"last_updated"`
}

func leadToOutput(l models.Lead) LeadOutput {
	return LeadOutput{
		ID:           l.ID,
		Name:         l.Name,
		Address:      l.Address,
		Phone:        l.Phone,
		Website:      l.Website,
		Status:       string(l.Status),
		IsLead:       l.IsLead,
		BusinessType: l.BusinessType,
		Notes:        l.Notes,
		AddedBy:      l.AddedBy,
		AssignedTo:   l.AssignedTo,
		Reviews:      l.Reviews(),
		Rating:       l.RatingValue(),
		Score:        views.LeadScore(l),
		Calls:        len(l.CallHistory),
		LastUpdated:  time.UnixMilli(l.LastUpdated).UTC().Format(time.RFC3339),
	}
}

func outputs(leads []models.Lead) []LeadOutput {
	out := make([]LeadOutput, 0, len(leads))
	for _, l := range leads {
		out = append(out, leadToOutput(l))
	}
	return out
}

type SearchLeadsInput struct {
	Category     string  `json:"category,omitempty" jsonschema:"Business category such as plumber or roofing_contractor, or 'all' for every industry"`
	Text         string  `json:"text,omitempty" jsonschema:"Extra search text, e.g. a neighborhood"`
	Lat          float64 `json:"lat,omitempty" jsonschema:"Latitude of the search center"`
	Lng          float64 `json:"lng,omitempty" jsonschema:"Longitude of the search center"`
	RadiusMeters float64 `json:"radius_meters,omitempty" jsonschema:"Search radius in meters (defaults to config)"`
	LoadMore     bool    `json:"load_more,omitempty" jsonschema:"Append the next page of the previous search instead of starting a new one"`
}

type SearchLeadsOutput struct {
	Found   int  `json:"found"`
	Added   int  `json:"added"`
	HasMore bool `json:"has_more"`
}

func (h *LeadHandlers) SearchLeads(ctx context.Context, request *mcp.CallToolRequest, input SearchLeadsInput) (*mcp.CallToolResult, SearchLeadsOutput, error) {
	var (
		res app.SearchResult
		err error
	)
	if input.LoadMore {
		res, err = h.app.LoadMore(ctx)
	} else {
		res, err = h.app.Search(ctx, app.SearchRequest{
			Category: input.Category,
			Text:     input.Text,
			Lat:      input.Lat,
			Lng:      input.Lng,
			Radius:   input.RadiusMeters,
		})
	}
	if err != nil {
		return nil, SearchLeadsOutput{}, fmt.Errorf("%s: %w", places.UserMessage(err), err)
	}
	return nil, SearchLeadsOutput{Found: res.Found, Added: res.Added, HasMore: res.HasMore}, nil
}

type ListLeadsInput struct {
	Search     string `json:"search,omitempty" jsonschema:"Match name, address or phone"`
	Status     string `json:"status,omitempty" jsonschema:"NEW, CALLED, CALLBACK, INTERESTED, REJECTED or CLOSED"`
	Sort       string `json:"sort,omitempty" jsonschema:"newest, oldest, name, reviews-low, reviews-high, rating-low, rating-high, score, last-updated, calls, status or added-by"`
	Member     string `json:"member,omitempty" jsonschema:"Only leads added, assigned or called by this team member"`
	Activity   string `json:"activity,omitempty" jsonschema:"called, not-called or called-today"`
	Period     string `json:"period,omitempty" jsonschema:"today, yesterday, week or month"`
	NoWebsite  bool   `json:"no_website,omitempty" jsonschema:"Only businesses without a website"`
	NoPhone    bool   `json:"no_phone,omitempty" jsonschema:"Only businesses without a phone number"`
	NotCalled  bool   `json:"not_called,omitempty" jsonschema:"Only leads still in NEW status"`
	OnlyLeads  bool   `json:"only_leads,omitempty" jsonschema:"Only leads marked as sales leads"`
	MaxReviews int    `json:"max_reviews,omitempty" jsonschema:"Exclude businesses with more reviews than this"`
	Limit      int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 25)"`
}

type ListLeadsOutput struct {
	Leads []LeadOutput `json:"leads"`
	Total int          `json:"total"`
}

func (h *LeadHandlers) ListLeads(_ context.Context, request *mcp.CallToolRequest, input ListLeadsInput) (*mcp.CallToolResult, ListLeadsOutput, error) {
	f, sort, err := FiltersFrom(input)
	if err != nil {
		return nil, ListLeadsOutput{}, err
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	leads := h.app.Leads(f, sort)
	return nil, ListLeadsOutput{Total: len(leads), Leads: outputs(leads[:min(limit, len(leads))])}, nil
}

// FiltersFrom validates list input into view filters and a sort key.
func FiltersFrom(input ListLeadsInput) (views.Filters, views.Sort, error) {
	f := views.Filters{
		Search:     strings.TrimSpace(input.Search),
		NoWebsite:  input.NoWebsite,
		NoPhone:    input.NoPhone,
		NotCalled:  input.NotCalled,
		OnlyLeads:  input.OnlyLeads,
		MaxReviews: input.MaxReviews,
		Member:     strings.TrimSpace(input.Member),
		Activity:   views.Activity(input.Activity),
		Period:     views.Period(input.Period),
	}
	if input.Status != "" {
		st, err := models.ParseStatus(input.Status)
		if err != nil {
			return views.Filters{}, "", err
		}
		f.Status = st
	}
	sort, err := views.ParseSort(input.Sort)
	if err != nil {
		return views.Filters{}, "", err
	}
	return f, sort, nil
}

type UpdateLeadInput struct {
	ID           string  `json:"id" jsonschema:"Lead ID (required)"`
	Status       string  `json:"status,omitempty" jsonschema:"New pipeline status"`
	IsLead       *bool   `json:"is_lead,omitempty" jsonschema:"Mark or unmark as a sales lead"`
	Note         string  `json:"note,omitempty" jsonschema:"Timestamped note to append"`
	AssignedTo   *string `json:"assigned_to,omitempty" jsonschema:"Team member to assign; empty string unassigns"`
	Name         string  `json:"name,omitempty" jsonschema:"Updated business name"`
	Phone        string  `json:"phone,omitempty" jsonschema:"Updated phone number"`
	Address      string  `json:"address,omitempty" jsonschema:"Updated address"`
	Website      string  `json:"website,omitempty" jsonschema:"Updated website"`
	BusinessType string  `json:"business_type,omitempty" jsonschema:"Updated business category"`
}

func (h *LeadHandlers) UpdateLead(_ context.Context, request *mcp.CallToolRequest, input UpdateLeadInput) (*mcp.CallToolResult, LeadOutput, error) {
	if input.ID == "" {
		return nil, LeadOutput{}, fmt.Errorf("id is required")
	}

	var p store.Patch
	if input.Status != "" {
		st, err := models.ParseStatus(input.Status)
		if err != nil {
			return nil, LeadOutput{}, err
		}
		p.Status = &st
	}
	p.IsLead = input.IsLead
	p.AssignedTo = input.AssignedTo
	p.Name = optional(input.Name)
	p.Phone = optional(input.Phone)
	p.Address = optional(input.Address)
	p.Website = optional(input.Website)
	p.BusinessType = optional(input.BusinessType)

	l, err := h.app.Lead(input.ID)
	if err != nil {
		return nil, LeadOutput{}, fmt.Errorf("failed to update lead: %w", err)
	}
	if p != (store.Patch{}) {
		if l, err = h.app.Update(input.ID, p); err != nil {
			return nil, LeadOutput{}, fmt.Errorf("failed to update lead: %w", err)
		}
	}
	if strings.TrimSpace(input.Note) != "" {
		if l, err = h.app.AddNote(input.ID, input.Note); err != nil {
			return nil, LeadOutput{}, fmt.Errorf("failed to add note: %w", err)
		}
	}
	return nil, leadToOutput(l), nil
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s != "" {
		return &s
	}
	return nil
}

type LogCallInput struct {
	ID      string `json:"id" jsonschema:"Lead ID (required)"`
	Outcome string `json:"outcome" jsonschema:"What happened, e.g. no answer, left voicemail, interested"`
	Notes   string `json:"notes,omitempty" jsonschema:"Call notes"`
	Status  string `json:"status,omitempty" jsonschema:"Optionally move the lead to this status as well"`
}

func (h *LeadHandlers) LogCall(_ context.Context, request *mcp.CallToolRequest, input LogCallInput) (*mcp.CallToolResult, LeadOutput, error) {
	if input.ID == "" {
		return nil, LeadOutput{}, fmt.Errorf("id is required")
	}
	l, err := h.app.LogCall(input.ID, input.Outcome, input.Notes)
	if err != nil {
		return nil, LeadOutput{}, fmt.Errorf("failed to log call: %w", err)
	}
	if input.Status != "" {
		st, err := models.ParseStatus(input.Status)
		if err != nil {
			return nil, LeadOutput{}, err
		}
		if l, err = h.app.SetStatus(input.ID, st); err != nil {
			return nil, LeadOutput{}, fmt.Errorf("failed to set status: %w", err)
		}
	}
	return nil, leadToOutput(l), nil
}

type AddLeadInput struct {
	Name         string `json:"name" jsonschema:"Business name (required)"`
	Phone        string `json:"phone,omitempty" jsonschema:"Phone number"`
	Address      string `json:"address,omitempty" jsonschema:"Street address"`
	Website      string `json:"website,omitempty" jsonschema:"Website URL"`
	Email        string `json:"email,omitempty" jsonschema:"Contact email"`
	BusinessType string `json:"business_type,omitempty" jsonschema:"Business category"`
	Notes        string `json:"notes,omitempty" jsonschema:"Notes about the lead"`
}

func (h *LeadHandlers) AddLead(ctx context.Context, request *mcp.CallToolRequest, input AddLeadInput) (*mcp.CallToolResult, LeadOutput, error) {
	l, err := h.app.AddManual(ctx, intake.Manual{
		Name:         input.Name,
		Phone:        input.Phone,
		Address:      input.Address,
		Website:      input.Website,
		Email:        input.Email,
		BusinessType: input.BusinessType,
		Notes:        input.Notes,
	})
	if err != nil {
		return nil, LeadOutput{}, fmt.Errorf("failed to add lead: %w", err)
	}
	return nil, leadToOutput(l), nil
}

type AddSocialLeadInput struct {
	Post         string `json:"post" jsonschema:"Full text of the social media post (required)"`
	Group        string `json:"group,omitempty" jsonschema:"Group or page the post came from"`
	BusinessType string `json:"business_type,omitempty" jsonschema:"Business category"`
}

func (h *LeadHandlers) AddSocialLead(ctx context.Context, request *mcp.CallToolRequest, input AddSocialLeadInput) (*mcp.CallToolResult, LeadOutput, error) {
	if strings.TrimSpace(input.Post) == "" {
		return nil, LeadOutput{}, fmt.Errorf("post is required")
	}
	l, err := h.app.AddSocial(ctx, intake.Social{
		SocialPost:   intake.ParseSocialPost(input.Post),
		Group:        input.Group,
		BusinessType: input.BusinessType,
	})
	if err != nil {
		return nil, LeadOutput{}, fmt.Errorf("failed to add lead: %w", err)
	}
	return nil, leadToOutput(l), nil
}

type DeleteLeadInput struct {
	ID string `json:"id" jsonschema:"Lead ID (required)"`
}

type DeleteLeadOutput struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func (h *LeadHandlers) DeleteLead(ctx context.Context, request *mcp.CallToolRequest, input DeleteLeadInput) (*mcp.CallToolResult, DeleteLeadOutput, error) {
	if input.ID == "" {
		return nil, DeleteLeadOutput{}, fmt.Errorf("id is required")
	}
	if err := h.app.Delete(ctx, input.ID); err != nil {
		return nil, DeleteLeadOutput{}, fmt.Errorf("failed to delete lead: %w", err)
	}
	return nil, DeleteLeadOutput{ID: input.ID, Deleted: true}, nil
}

type LeadStatsInput struct{}

func (h *LeadHandlers) LeadStats(_ context.Context, request *mcp.CallToolRequest, input LeadStatsInput) (*mcp.CallToolResult, views.Stats, error) {
	return nil, h.app.Stats(), nil
}
