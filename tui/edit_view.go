package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/leadsync/intake"
	"github.com/harperreed/leadsync/models"
)

// Quick-add form fields, in tab order.
const (
	fieldName = iota
	fieldPhone
	fieldAddress
	fieldWebsite
	fieldType
	fieldNotes
	fieldCount
)

func (m Model) renderEditView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("NEW LEAD"))
	s.WriteString("\n\n")

	for i, input := range m.formInputs {
		if i == m.focusIndex {
			s.WriteString("> ")
		} else {
			s.WriteString("  ")
		}
		s.WriteString(input.View())
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(m.renderStatusLine())
	s.WriteString("\n")
	s.WriteString(m.renderEditHelp())

	return s.String()
}

func (m Model) renderEditHelp() string {
	help := []string{
		"Tab: Next field",
		"Enter: Save",
		"Esc: Cancel",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.viewMode = ViewList
		m.err = nil
		return m, nil
	case "tab", "down":
		m.focusIndex = (m.focusIndex + 1) % len(m.formInputs)
		m.updateFormFocus()
		return m, nil
	case "shift+tab", "up":
		m.focusIndex = (m.focusIndex + len(m.formInputs) - 1) % len(m.formInputs)
		m.updateFormFocus()
		return m, nil
	case "enter":
		m.apply("Added lead", m.saveLead)
		if m.err == nil {
			m.viewMode = ViewList
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.formInputs[m.focusIndex], cmd = m.formInputs[m.focusIndex].Update(msg)
	return m, cmd
}

func (m *Model) initFormInputs() {
	placeholders := [fieldCount]string{
		fieldName:    "Business name (required)",
		fieldPhone:   "Phone",
		fieldAddress: "Address",
		fieldWebsite: "Website",
		fieldType:    "Business type, e.g. plumber",
		fieldNotes:   "Notes",
	}
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = placeholders[i]
		inputs[i].CharLimit = 200
	}
	inputs[fieldPhone].CharLimit = 30

	m.formInputs = inputs
	m.focusIndex = 0
	m.err = nil
	m.updateFormFocus()
}

func (m *Model) updateFormFocus() {
	for i := range m.formInputs {
		if i == m.focusIndex {
			m.formInputs[i].Focus()
		} else {
			m.formInputs[i].Blur()
		}
	}
}

func (m Model) saveLead() (models.Lead, error) {
	value := func(i int) string { return strings.TrimSpace(m.formInputs[i].Value()) }
	return m.app.AddManual(m.ctx, intake.Manual{
		Name:         value(fieldName),
		Phone:        value(fieldPhone),
		Address:      value(fieldAddress),
		Website:      value(fieldWebsite),
		BusinessType: value(fieldType),
		Notes:        value(fieldNotes),
	})
}
