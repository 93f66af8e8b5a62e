package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/leadsync/views"
	"github.com/harperreed/leadsync/viz"
)

func (m Model) renderDashboardView() string {
	var s strings.Builder

	leads := m.app.Leads(views.Filters{}, views.SortNewest)
	s.WriteString(lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")).
		Render(viz.RenderDashboard(viz.GenerateDashboardStats(leads, m.app.Now()))))

	s.WriteString("\n")
	s.WriteString(helpStyle.Render(strings.Join([]string{"Esc: Back", "q: Quit"}, " • ")))

	return s.String()
}

func (m Model) handleDashboardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" || msg.String() == "g" {
		m.viewMode = ViewList
	}
	return m, nil
}
