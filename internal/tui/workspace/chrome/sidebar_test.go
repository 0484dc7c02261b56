package chrome

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erpdesk/erpdesk/internal/catalog"
	"github.com/erpdesk/erpdesk/internal/tui"
)

func testMenu() []catalog.MenuEntry {
	return []catalog.MenuEntry{
		{Title: "Dashboard", Href: "/dashboard"},
		{Title: "Sales", Items: []catalog.MenuEntry{
			{Title: "Faktur", Href: "/dashboard/sales/faktur"},
			{Title: "Pelanggan", Href: "/dashboard/sales/pelanggan"},
		}},
		{Title: "Settings", Items: []catalog.MenuEntry{
			{Title: "Company", Href: "/dashboard/company"},
		}},
	}
}

func testSidebar() Sidebar {
	s := NewSidebar(tui.NewStyles(), testMenu())
	s.SetSize(30, 20)
	s.Focus()
	return s
}

func TestSidebar_CursorSkipsSections(t *testing.T) {
	s := testSidebar()
	assert.Equal(t, "/dashboard", s.Selected())

	s.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "/dashboard/sales/faktur", s.Selected())

	s.Update(tea.KeyMsg{Type: tea.KeyDown})
	s.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "/dashboard/company", s.Selected())

	s.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "/dashboard/company", s.Selected(), "cursor stays on last item")

	s.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	assert.Equal(t, "/dashboard", s.Selected())
}

func TestSidebar_EnterSelects(t *testing.T) {
	s := testSidebar()
	s.SetActive("/dashboard/sales/pelanggan")

	cmd := s.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg, ok := cmd().(SidebarSelectMsg)
	require.True(t, ok)
	assert.Equal(t, "/dashboard/sales/pelanggan", msg.Href)
}

func TestSidebar_IgnoresKeysWhenBlurred(t *testing.T) {
	s := testSidebar()
	s.Blur()
	assert.Nil(t, s.Update(tea.KeyMsg{Type: tea.KeyEnter}))
	assert.Equal(t, "/dashboard", s.Selected())
}

func TestSidebar_EscLeaves(t *testing.T) {
	s := testSidebar()
	cmd := s.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	_, ok := cmd().(SidebarBlurMsg)
	assert.True(t, ok)
}

func TestSidebar_ViewShowsSectionsAndItems(t *testing.T) {
	s := testSidebar()
	view := ansi.Strip(s.View())
	for _, want := range []string{"Dashboard", "Sales", "Faktur", "Pelanggan", "Settings", "Company"} {
		assert.Contains(t, view, want)
	}
}

func TestSidebar_ScrollsWithCursor(t *testing.T) {
	s := testSidebar()
	s.SetSize(30, 2)
	s.SetActive("/dashboard/company")

	view := ansi.Strip(s.View())
	assert.Contains(t, view, "Company")
	assert.NotContains(t, view, "Faktur")
}
