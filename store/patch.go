package store

import (
	"strings"

	"github.com/harperreed/leadsync/models"
)

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name         *string
	Address      *string
	Phone        *string
	Website      *string
	Email        *string
	BusinessType *string

	Status     *models.Status
	IsLead     *bool
	ToggleLead bool
	Notes      *string
	// AppendNote is added on its own line after any existing notes.
	AppendNote string
	Call       *models.CallLog
	AssignedTo *string

	// Details marks enrichment complete. Empty values do not clear known data.
	Details *Details
}

type Details struct {
	Phone   string
	Website string
}

// Change is the before and after image of a mutation.
type Change struct {
	Before models.Lead
	After  models.Lead
}

func (p Patch) apply(l *models.Lead) {
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.Address != nil {
		l.Address = *p.Address
	}
	if p.Phone != nil {
		l.Phone = *p.Phone
	}
	if p.Website != nil {
		l.Website = *p.Website
	}
	if p.Email != nil {
		if *p.Email == "" {
			l.Email = nil
		} else {
			l.Email = models.Ptr(*p.Email)
		}
	}
	if p.BusinessType != nil {
		l.BusinessType = *p.BusinessType
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
	if p.IsLead != nil {
		l.IsLead = *p.IsLead
	}
	if p.ToggleLead {
		l.IsLead = !l.IsLead
	}
	if p.Notes != nil {
		l.Notes = *p.Notes
	}
	if note := strings.TrimSpace(p.AppendNote); note != "" {
		if strings.TrimSpace(l.Notes) == "" {
			l.Notes = note
		} else {
			l.Notes = strings.TrimRight(l.Notes, "\n") + "\n" + note
		}
	}
	if p.Call != nil {
		l.CallHistory = append(l.CallHistory, *p.Call)
	}
	if p.AssignedTo != nil {
		l.AssignedTo = *p.AssignedTo
	}
	if p.Details != nil {
		if p.Details.Phone != "" {
			l.Phone = p.Details.Phone
		}
		if p.Details.Website != "" {
			l.Website = p.Details.Website
		}
		l.DetailsFetched = models.Ptr(true)
	}
}
