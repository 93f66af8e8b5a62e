// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Provides interactive full-screen lead list with search, notes, calls and marking
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/leadsync/app"
	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/views"
)

// refreshEvery picks up remote edits and background enrichment.
const refreshEvery = 2 * time.Second

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
	ViewEdit
	ViewInput
	ViewDashboard
	ViewConfirmDelete
)

// Tab is a preset filter over the lead list.
type Tab int

const (
	TabAll Tab = iota
	TabLeads
	TabCallbacks
	TabNotCalled
	tabCount
)

func (t Tab) String() string {
	switch t {
	case TabLeads:
		return "Leads"
	case TabCallbacks:
		return "Callbacks"
	case TabNotCalled:
		return "Not Called"
	}
	return "All"
}

func (t Tab) filters(search string) views.Filters {
	f := views.Filters{Search: search}
	switch t {
	case TabLeads:
		f.OnlyLeads = true
	case TabCallbacks:
		f.Status = models.StatusCallback
	case TabNotCalled:
		f.NotCalled = true
	}
	return f
}

var sortCycle = []views.Sort{views.SortScore, views.SortNewest, views.SortName, views.SortReviewsLow, views.SortLastUpdated}

// Model is the main bubbletea model
type Model struct {
	app      *app.App
	ctx      context.Context
	viewMode ViewMode
	prevMode ViewMode
	tab      Tab
	sortIdx  int

	leads       []models.Lead
	selectedRow int
	searchQuery string

	// Detail and delete state
	selectedID string

	// Single-line prompt for search, notes and call outcomes
	input   textinput.Model
	purpose inputPurpose

	// Quick-add form
	formInputs []textinput.Model
	focusIndex int

	// UI state
	width   int
	height  int
	message string
	err     error
}

type refreshMsg struct{}

func NewModel(ctx context.Context, a *app.App) Model {
	m := Model{
		app:      a,
		ctx:      ctx,
		viewMode: ViewList,
		width:    80,
		height:   24,
	}
	m.reload()
	return m
}

// Run blocks until the user quits or ctx is canceled.
func Run(ctx context.Context, a *app.App) error {
	p := tea.NewProgram(NewModel(ctx, a), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(time.Time) tea.Msg { return refreshMsg{} })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case refreshMsg:
		m.reload()
		return m, tick()
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewList:
		return m.renderListView()
	case ViewDetail:
		return m.renderDetailView()
	case ViewEdit:
		return m.renderEditView()
	case ViewInput:
		return m.renderInputView()
	case ViewDashboard:
		return m.renderDashboardView()
	case ViewConfirmDelete:
		return m.renderConfirmDeleteView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Text entry views consume every other key
	switch m.viewMode {
	case ViewEdit:
		return m.handleEditKeys(msg)
	case ViewInput:
		return m.handleInputKeys(msg)
	}

	if msg.String() == "q" {
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewList:
		return m.handleListKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewDashboard:
		return m.handleDashboardKeys(msg)
	case ViewConfirmDelete:
		return m.handleConfirmDeleteKeys(msg)
	}

	return m, nil
}

// reload re-reads the visible leads, keeping the cursor in range.
func (m *Model) reload() {
	m.leads = m.app.Leads(m.tab.filters(m.searchQuery), sortCycle[m.sortIdx])
	if m.selectedRow >= len(m.leads) {
		m.selectedRow = max(len(m.leads)-1, 0)
	}
}

func (m Model) selected() (models.Lead, bool) {
	if m.selectedRow < len(m.leads) {
		return m.leads[m.selectedRow], true
	}
	return models.Lead{}, false
}

// currentID is the lead the detail view shows, or the list cursor.
func (m Model) currentID() string {
	if m.viewMode == ViewDetail || m.prevMode == ViewDetail {
		return m.selectedID
	}
	if l, ok := m.selected(); ok {
		return l.ID
	}
	return ""
}

// apply runs a mutation and reports its outcome in the status line.
func (m *Model) apply(done string, fn func() (models.Lead, error)) {
	l, err := fn()
	if err != nil {
		m.err = err
		m.message = ""
		return
	}
	m.err = nil
	m.message = done + ": " + l.Name
	m.reload()
}

func (m Model) renderStatusLine() string {
	if m.err != nil {
		return errorStyle.Render("Error: " + m.err.Error())
	}
	if m.message != "" {
		return messageStyle.Render(m.message)
	}
	return ""
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)
