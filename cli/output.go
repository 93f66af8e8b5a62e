package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/places"
	"github.com/harperreed/leadsync/views"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	faint  = color.New(color.Faint)
)

func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", green.Sprint("✓"), fmt.Sprintf(format, args...))
}

func statusColor(s models.Status) *color.Color {
	switch s {
	case models.StatusInterested, models.StatusClosed:
		return green
	case models.StatusCallback:
		return yellow
	case models.StatusRejected:
		return red
	}
	return faint
}

func printLeads(w io.Writer, leads []models.Lead) {
	if len(leads) == 0 {
		fmt.Fprintln(w, "No leads found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tLEAD\tPHONE\tREVIEWS\tSCORE\tADDED BY")
	for _, l := range leads {
		star := ""
		if l.IsLead {
			star = "★"
		}
		phone := l.Phone
		if phone == "" {
			phone = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			l.ID, l.Name, statusColor(l.Status).Sprint(l.Status.Label()), star, phone, l.Reviews(), views.LeadScore(l), l.AddedBy)
	}
	_ = tw.Flush()
}

func printLead(w io.Writer, l models.Lead) {
	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "  %-12s %s\n", label+":", value)
		}
	}
	fmt.Fprintf(w, "%s  %s\n", l.Name, statusColor(l.Status).Sprint(l.Status.Label()))
	field("ID", l.ID)
	field("Category", places.CategoryLabel(l.BusinessType))
	field("Address", l.Address)
	field("Phone", l.Phone)
	field("Website", l.Website)
	if l.Email != nil {
		field("Email", *l.Email)
	}
	field("Group", l.SocialGroup)
	field("Post", l.SocialPostURL)
	if l.IsLead {
		field("Lead", "★ marked")
	}
	field("Added by", l.AddedBy)
	field("Assigned", l.AssignedTo)
	reviews := fmt.Sprintf("%d", l.Reviews())
	if l.Rating != nil {
		reviews += fmt.Sprintf(" (%.1f)", *l.Rating)
	}
	field("Reviews", reviews)
	field("Score", fmt.Sprintf("%d/100", views.LeadScore(l)))
	field("Updated", time.UnixMilli(l.LastUpdated).Format(time.DateTime))

	if len(l.CallHistory) > 0 {
		fmt.Fprintln(w, "\n  Calls:")
		for _, c := range l.CallHistory {
			fmt.Fprintf(w, "    %s  %-10s %s", c.Time().Format(time.DateTime), c.User, c.Outcome)
			if c.Notes != "" {
				fmt.Fprintf(w, " - %s", c.Notes)
			}
			fmt.Fprintln(w)
		}
	}
	if l.Notes != "" {
		fmt.Fprintf(w, "\n  Notes:\n%s\n", l.Notes)
	}
}
