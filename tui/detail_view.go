package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/leadsync/places"
	"github.com/harperreed/leadsync/views"
)

var (
	fieldLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Width(14)

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

func (m Model) renderDetailView() string {
	var s strings.Builder

	l, err := m.app.Lead(m.selectedID)
	if err != nil {
		s.WriteString(titleStyle.Render("LEAD"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Error loading lead: %v\n", err))
		s.WriteString(m.renderDetailHelp())
		return s.String()
	}

	title := l.Name
	if l.IsLead {
		title = "★ " + title
	}
	s.WriteString(titleStyle.Render(title))
	s.WriteString("\n\n")

	s.WriteString(m.renderField("Status", l.Status.Label()))
	s.WriteString(m.renderField("Category", places.CategoryLabel(l.BusinessType)))
	s.WriteString(m.renderField("Address", l.Address))
	s.WriteString(m.renderField("Phone", l.Phone))
	s.WriteString(m.renderField("Website", l.Website))
	reviews := fmt.Sprintf("%d", l.Reviews())
	if l.Rating != nil {
		reviews += fmt.Sprintf(" (%.1f★)", *l.Rating)
	}
	s.WriteString(m.renderField("Reviews", reviews))
	s.WriteString(m.renderField("Score", fmt.Sprintf("%d/100", views.LeadScore(l))))
	s.WriteString(m.renderField("Added by", l.AddedBy))
	s.WriteString(m.renderField("Assigned", l.AssignedTo))
	if l.SocialGroup != "" {
		s.WriteString(m.renderField("Group", l.SocialGroup))
	}

	if len(l.CallHistory) > 0 {
		s.WriteString("\n")
		s.WriteString(fieldLabelStyle.Render("Calls:"))
		s.WriteString("\n")
		for _, c := range l.CallHistory {
			line := fmt.Sprintf("  %s  %s: %s", c.Time().Format(time.DateTime), c.User, c.Outcome)
			if c.Notes != "" {
				line += " - " + c.Notes
			}
			s.WriteString(fieldValueStyle.Render(line))
			s.WriteString("\n")
		}
	}
	if l.Notes != "" {
		s.WriteString("\n")
		s.WriteString(fieldLabelStyle.Render("Notes:"))
		s.WriteString("\n")
		s.WriteString(fieldValueStyle.Render(l.Notes))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(m.renderStatusLine())
	s.WriteString("\n")
	s.WriteString(m.renderDetailHelp())

	return s.String()
}

func (m Model) renderField(label, value string) string {
	if value == "" {
		value = "-"
	}
	return fmt.Sprintf("%s %s\n",
		fieldLabelStyle.Render(label+":"),
		fieldValueStyle.Render(value))
}

func (m Model) renderDetailHelp() string {
	help := []string{
		"Esc: Back",
		"m: Mark",
		"s: Status",
		"n: Note",
		"c: Call",
		"d: Delete",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.prevMode = ViewDetail
	if msg.String() == "esc" {
		m.viewMode = ViewList
		m.prevMode = ViewList
		m.message = ""
		return m, nil
	}
	return m.handleLeadKeys(msg)
}
