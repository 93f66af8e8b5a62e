// ABOUTME: Delete confirmation view for TUI
// ABOUTME: Asks before deleting a lead for everyone
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	confirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(1, 2).
			Width(60).
			Align(lipgloss.Center)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	confirmButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("9")).
				Padding(0, 2).
				MarginRight(2)

	cancelButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("8")).
				Padding(0, 2)
)

func (m Model) renderConfirmDeleteView() string {
	l, err := m.app.Lead(m.selectedID)
	if err != nil {
		return fmt.Sprintf("Error loading lead: %v", err)
	}
	title := warningStyle.Render("⚠  DELETE CONFIRMATION  ⚠")
	message := "Are you sure you want to delete this lead?"
	entityInfo := fmt.Sprintf("\nLEAD: %s\n%s\n", l.Name, l.Address)
	warning := "\nIt is removed for the whole team. This action cannot be undone!"

	buttons := lipgloss.JoinHorizontal(
		lipgloss.Left,
		confirmButtonStyle.Render("Yes, Delete (y)"),
		cancelButtonStyle.Render("Cancel (n/esc)"),
	)

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		"",
		message,
		entityInfo,
		warning,
		"",
		buttons,
	)

	box := confirmBoxStyle.Render(content)

	// Center the box on screen
	dialog := lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		box,
	)

	return dialog
}

func (m Model) handleConfirmDeleteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		l, _ := m.app.Lead(m.selectedID)
		if err := m.app.Delete(m.ctx, m.selectedID); err != nil {
			m.err = err
			m.message = ""
		} else {
			m.err = nil
			m.message = "Deleted: " + l.Name
			m.selectedID = ""
		}
		m.viewMode = ViewList
		m.prevMode = ViewList
		m.reload()
	case "n", "N", "esc":
		m.viewMode = m.prevMode
	}

	return m, nil
}
