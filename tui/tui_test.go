// ABOUTME: Tests for the lead list TUI model
// ABOUTME: Drives key presses against an app wired to in-memory backends
package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadsync/app"
	"github.com/harperreed/leadsync/config"
	"github.com/harperreed/leadsync/intake"
	"github.com/harperreed/leadsync/logging"
	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/remote"
)

func setupTestApp(t *testing.T) *app.App {
	t.Helper()
	cfg := &config.Config{
		User:   config.UserConfig{Name: "amy", Role: config.RoleAdmin},
		Remote: config.RemoteConfig{Backend: "memory"},
		Places: config.PlacesConfig{Backend: "google", BatchSize: 5, DefaultRadius: 5000},
		Cache:  config.CacheConfig{Backend: "memory"},
		Sync:   config.SyncConfig{Debounce: 5 * time.Millisecond},
	}
	a := app.New(cfg, app.WithRemote(remote.NewMemory()), app.WithSinks(), app.WithLogger(logging.Nop()))
	require.NoError(t, a.Init(context.Background()))
	t.Cleanup(func() { _ = a.Dispose(context.Background()) })
	require.NoError(t, a.WaitRemote(context.Background()))

	for _, name := range []string{"Ace Plumbing", "Luna Bakery"} {
		_, err := a.AddManual(context.Background(), intake.Manual{Name: name})
		require.NoError(t, err)
	}
	return a
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(Model)
	}
	return m
}

func typeText(m Model, text string) Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(Model)
}

func TestListViewRendering(t *testing.T) {
	m := NewModel(context.Background(), setupTestApp(t))

	out := m.View()
	assert.Contains(t, out, "LEADSYNC")
	assert.Contains(t, out, "Ace Plumbing")
	assert.Contains(t, out, "Luna Bakery")
	assert.Len(t, m.leads, 2)
}

func TestTabsFilterList(t *testing.T) {
	a := setupTestApp(t)
	m := NewModel(context.Background(), a)

	// Callbacks tab
	m = press(m, "tab", "tab")
	assert.Equal(t, TabCallbacks, m.tab)
	assert.Empty(t, m.leads)
	assert.Contains(t, m.View(), "No leads yet")

	m = press(m, "tab", "tab")
	assert.Equal(t, TabAll, m.tab)
	assert.Len(t, m.leads, 2)
}

func TestStatusAndMarkKeys(t *testing.T) {
	a := setupTestApp(t)
	m := NewModel(context.Background(), a)
	id := m.leads[0].ID

	m = press(m, "s")
	l, err := a.Lead(id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCalled, l.Status)
	assert.Contains(t, m.message, "Status Called")

	m = press(m, "m")
	l, _ = a.Lead(id)
	assert.False(t, l.IsLead)
	assert.Nil(t, m.err)
}

func TestNoteAndCallInput(t *testing.T) {
	a := setupTestApp(t)
	m := NewModel(context.Background(), a)
	id := m.leads[0].ID

	m = press(m, "enter")
	require.Equal(t, ViewDetail, m.viewMode)

	m = press(m, "n")
	require.Equal(t, ViewInput, m.viewMode)
	m = typeText(m, "ask for the owner")
	m = press(m, "enter")
	assert.Equal(t, ViewDetail, m.viewMode)

	m = press(m, "c")
	m = typeText(m, "voicemail")
	m = press(m, "enter")

	l, err := a.Lead(id)
	require.NoError(t, err)
	assert.Contains(t, l.Notes, "ask for the owner")
	require.Len(t, l.CallHistory, 1)
	assert.Equal(t, "voicemail", l.CallHistory[0].Outcome)
	assert.Contains(t, m.View(), "voicemail")

	// empty notes are rejected
	m = press(m, "n", "enter")
	assert.ErrorIs(t, m.err, app.ErrEmptyNote)
}

func TestSearchInput(t *testing.T) {
	m := NewModel(context.Background(), setupTestApp(t))
	m = press(m, "/")
	m = typeText(m, "luna")
	m = press(m, "enter")

	assert.Equal(t, ViewList, m.viewMode)
	require.Len(t, m.leads, 1)
	assert.Equal(t, "Luna Bakery", m.leads[0].Name)
}

func TestQuickAddForm(t *testing.T) {
	a := setupTestApp(t)
	m := NewModel(context.Background(), a)

	m = press(m, "a")
	require.Equal(t, ViewEdit, m.viewMode)
	// 'q' is text here, not quit
	m = typeText(m, "Quick Roofing")
	m = press(m, "tab")
	m = typeText(m, "312-555-0199")
	m = press(m, "enter")

	assert.Equal(t, ViewList, m.viewMode)
	assert.Len(t, m.leads, 3)
	assert.True(t, strings.HasPrefix(m.message, "Added lead"))

	m = press(m, "a", "enter")
	assert.ErrorIs(t, m.err, intake.ErrMissingName)
	assert.Equal(t, ViewEdit, m.viewMode)
}

func TestDeleteConfirmation(t *testing.T) {
	a := setupTestApp(t)
	m := NewModel(context.Background(), a)
	id := m.leads[0].ID

	m = press(m, "d")
	require.Equal(t, ViewConfirmDelete, m.viewMode)
	assert.Contains(t, m.View(), "DELETE CONFIRMATION")

	m = press(m, "n")
	assert.Equal(t, ViewList, m.viewMode)

	m = press(m, "d", "y")
	assert.Equal(t, ViewList, m.viewMode)
	_, err := a.Lead(id)
	assert.Error(t, err)
	assert.Len(t, m.leads, 1)
}

func TestDashboardView(t *testing.T) {
	m := NewModel(context.Background(), setupTestApp(t))
	m = press(m, "g")
	require.Equal(t, ViewDashboard, m.viewMode)
	assert.Contains(t, m.View(), "LEADSYNC DASHBOARD")
	m = press(m, "esc")
	assert.Equal(t, ViewList, m.viewMode)
}
