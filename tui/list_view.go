package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/views"
)

func (m Model) renderListView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("LEADSYNC"))
	s.WriteString("\n\n")

	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	s.WriteString(m.renderTable())
	s.WriteString("\n")

	st := m.app.Status()
	sync := "synced"
	if !st.RemoteLoaded {
		sync = "connecting"
	} else if st.PendingUploads > 0 {
		sync = fmt.Sprintf("%d pending", st.PendingUploads)
	}
	info := fmt.Sprintf("%d shown • sort: %s • %s • %s", len(m.leads), sortCycle[m.sortIdx], sync, m.app.Viewer().Name)
	if m.searchQuery != "" {
		info += fmt.Sprintf(" • search: %q", m.searchQuery)
	}
	s.WriteString(helpStyle.Render(info))
	s.WriteString("\n")
	s.WriteString(m.renderStatusLine())
	s.WriteString("\n")

	s.WriteString(m.renderListHelp())

	return s.String()
}

func (m Model) renderTabs() string {
	var rendered []string
	for t := range tabCount {
		if t == m.tab {
			rendered = append(rendered, tabActiveStyle.Render(t.String()))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(t.String()))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderTable() string {
	if len(m.leads) == 0 {
		return "No leads yet. Press 'a' to add one or run a search."
	}

	columns := []table.Column{
		{Title: "", Width: 1},
		{Title: "Name", Width: 28},
		{Title: "Status", Width: 11},
		{Title: "Phone", Width: 14},
		{Title: "Reviews", Width: 7},
		{Title: "Score", Width: 5},
		{Title: "Calls", Width: 5},
		{Title: "Added by", Width: 10},
	}

	var rows []table.Row
	for _, l := range m.leads {
		star := ""
		if l.IsLead {
			star = "★"
		}
		rows = append(rows, table.Row{
			star,
			l.Name,
			l.Status.Label(),
			l.Phone,
			fmt.Sprintf("%d", l.Reviews()),
			fmt.Sprintf("%d", views.LeadScore(l)),
			fmt.Sprintf("%d", len(l.CallHistory)),
			l.AddedBy,
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(m.height-12, 5)),
	)
	t.SetCursor(m.selectedRow)

	return t.View()
}

func (m Model) renderListHelp() string {
	help := []string{
		"↑/↓: Navigate",
		"Tab: Filter",
		"Enter: Details",
		"/: Search",
		"o: Sort",
		"m: Mark",
		"s: Status",
		"n: Note",
		"c: Call",
		"a: Add",
		"d: Delete",
		"g: Dashboard",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.prevMode = ViewList
	switch msg.String() {
	case "up", "k":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "down", "j":
		if m.selectedRow < len(m.leads)-1 {
			m.selectedRow++
		}
	case "tab":
		m.tab = (m.tab + 1) % tabCount
		m.selectedRow = 0
		m.reload()
	case "o":
		m.sortIdx = (m.sortIdx + 1) % len(sortCycle)
		m.reload()
	case "r":
		m.reload()
	case "enter":
		if l, ok := m.selected(); ok {
			m.viewMode = ViewDetail
			m.selectedID = l.ID
		}
	case "/":
		m.startInput(inputSearch, m.searchQuery)
	case "a":
		m.initFormInputs()
		m.viewMode = ViewEdit
	case "g":
		m.viewMode = ViewDashboard
	default:
		return m.handleLeadKeys(msg)
	}
	return m, nil
}

// handleLeadKeys are the actions shared by the list and detail views.
func (m Model) handleLeadKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	id := m.currentID()
	if id == "" {
		return m, nil
	}
	switch msg.String() {
	case "m":
		m.apply("Toggled lead", func() (models.Lead, error) { return m.app.ToggleLead(id) })
	case "s":
		l, err := m.app.Lead(id)
		if err != nil {
			m.err = err
			break
		}
		next := nextStatus(l.Status)
		m.apply("Status "+next.Label(), func() (models.Lead, error) { return m.app.SetStatus(id, next) })
	case "n":
		m.selectedID = id
		m.startInput(inputNote, "")
	case "c":
		m.selectedID = id
		m.startInput(inputCall, "")
	case "d":
		m.selectedID = id
		m.viewMode = ViewConfirmDelete
	}
	return m, nil
}

func nextStatus(s models.Status) models.Status {
	for i, st := range models.Statuses {
		if st == s {
			return models.Statuses[(i+1)%len(models.Statuses)]
		}
	}
	return models.StatusNew
}
