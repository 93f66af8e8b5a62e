// ABOUTME: Spreadsheet export payloads and the export trigger rule
// ABOUTME: One flat record per marked lead, shared by the webhook, sheets and AMQP sinks
package export

import (
	"time"

	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/places"
)

type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Payload is the record a spreadsheet receives for one lead event.
type Payload struct {
	Action       Action `json:"action"`
	PlaceID      string `json:"placeId"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	Status       string `json:"status"`
	BusinessType string `json:"businessType"`
	Notes        string `json:"notes"`
	MarkedBy     string `json:"markedBy"`
	Date         string `json:"date"`
	Reviews      int    `json:"reviews"`
	Session      string `json:"session,omitempty"`
}

// NewPayload flattens a lead. markedBy is the user triggering the export.
func NewPayload(action Action, l models.Lead, markedBy string, now time.Time) Payload {
	return Payload{
		Action:       action,
		PlaceID:      l.ID,
		Name:         l.Name,
		Phone:        phoneOrNA(l.Phone),
		Address:      l.Address,
		Status:       string(l.Status),
		BusinessType: places.CategoryLabel(l.BusinessType),
		Notes:        l.Notes,
		MarkedBy:     markedBy,
		Date:         now.UTC().Format(time.RFC3339Nano),
		Reviews:      l.Reviews(),
	}
}

// ShouldExport reports whether a mutation must reach the spreadsheet: the
// lead is marked and one of the exported fields changed.
func ShouldExport(before, after models.Lead) bool {
	if !after.IsLead {
		return false
	}
	return before.Name != after.Name ||
		before.Phone != after.Phone ||
		before.Address != after.Address ||
		before.Status != after.Status ||
		before.Notes != after.Notes ||
		before.BusinessType != after.BusinessType ||
		before.IsLead != after.IsLead
}

func phoneOrNA(phone string) string {
	if phone == "" {
		return "N/A"
	}
	return phone
}
