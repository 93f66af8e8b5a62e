package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/leadsync/models"
)

type inputPurpose int

const (
	inputSearch inputPurpose = iota
	inputNote
	inputCall
)

func (p inputPurpose) prompt() string {
	switch p {
	case inputNote:
		return "Note: "
	case inputCall:
		return "Call outcome: "
	}
	return "Search: "
}

func (m *Model) startInput(p inputPurpose, value string) {
	ti := textinput.New()
	ti.Prompt = p.prompt()
	ti.CharLimit = 500
	ti.Width = max(m.width-20, 20)
	ti.SetValue(value)
	ti.Focus()
	m.input = ti
	m.purpose = p
	m.viewMode = ViewInput
}

func (m Model) renderInputView() string {
	var s strings.Builder
	switch m.purpose {
	case inputSearch:
		s.WriteString(titleStyle.Render("SEARCH LEADS"))
	default:
		if l, err := m.app.Lead(m.selectedID); err == nil {
			s.WriteString(titleStyle.Render(strings.ToUpper(l.Name)))
		}
	}
	s.WriteString("\n\n")
	s.WriteString(m.input.View())
	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Enter: Save • Esc: Cancel"))
	return s.String()
}

func (m Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.viewMode = m.prevMode
		return m, nil
	case tea.KeyEnter:
		m.submitInput(strings.TrimSpace(m.input.Value()))
		m.viewMode = m.prevMode
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submitInput(value string) {
	id := m.selectedID
	switch m.purpose {
	case inputSearch:
		m.searchQuery = value
		m.selectedRow = 0
		m.reload()
	case inputNote:
		m.apply("Added note", func() (models.Lead, error) { return m.app.AddNote(id, value) })
	case inputCall:
		m.apply("Logged call", func() (models.Lead, error) { return m.app.LogCall(id, value, "") })
	}
}
