package chrome

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/erpdesk/erpdesk/internal/catalog"
	"github.com/erpdesk/erpdesk/internal/tui"
)

// SidebarSelectMsg is sent when a menu item is chosen.
type SidebarSelectMsg struct {
	Href string
}

// SidebarBlurMsg asks the workspace to move focus back to the content.
type SidebarBlurMsg struct{}

type sidebarRow struct {
	title   string
	href    string
	section bool
}

// Sidebar renders the catalog menu as a two-level tree. Only rows with an
// href can hold the cursor.
type Sidebar struct {
	styles  *tui.Styles
	rows    []sidebarRow
	cursor  int
	offset  int
	active  string
	focused bool
	width   int
	height  int

	up, down, top, bottom, open, leave key.Binding
}

// NewSidebar builds the tree from menu.
func NewSidebar(styles *tui.Styles, menu []catalog.MenuEntry) Sidebar {
	s := Sidebar{
		styles: styles,
		up:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
		down:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
		top:    key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		bottom: key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
		open:   key.NewBinding(key.WithKeys("enter", "l"), key.WithHelp("enter", "open")),
		leave:  key.NewBinding(key.WithKeys("esc", "tab"), key.WithHelp("esc", "back to content")),
	}
	for _, e := range menu {
		if len(e.Items) == 0 {
			s.rows = append(s.rows, sidebarRow{title: iconTitle(e), href: e.Href})
			continue
		}
		s.rows = append(s.rows, sidebarRow{title: iconTitle(e), section: true})
		for _, it := range e.Items {
			s.rows = append(s.rows, sidebarRow{title: iconTitle(it), href: it.Href})
		}
	}
	s.cursor = s.next(-1, 1)
	return s
}

func iconTitle(e catalog.MenuEntry) string {
	if e.Icon == "" {
		return e.Title
	}
	return e.Icon + " " + e.Title
}

// next returns the first selectable row after from in direction dir, or
// from itself when there is none.
func (s Sidebar) next(from, dir int) int {
	for i := from + dir; i >= 0 && i < len(s.rows); i += dir {
		if s.rows[i].href != "" {
			return i
		}
	}
	if from < 0 {
		return 0
	}
	return from
}

// SetActive marks href as the visible screen and moves the cursor to it.
func (s *Sidebar) SetActive(href string) {
	s.active = href
	for i, r := range s.rows {
		if r.href == href {
			s.cursor = i
			s.scrollToCursor()
			return
		}
	}
}

// Focus gives the sidebar keyboard focus.
func (s *Sidebar) Focus() { s.focused = true }

// Blur removes keyboard focus.
func (s *Sidebar) Blur() { s.focused = false }

// Focused reports whether the sidebar has keyboard focus.
func (s Sidebar) Focused() bool { return s.focused }

// Selected returns the href under the cursor.
func (s Sidebar) Selected() string {
	if s.cursor < len(s.rows) {
		return s.rows[s.cursor].href
	}
	return ""
}

// SetSize sets the sidebar dimensions.
func (s *Sidebar) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.scrollToCursor()
}

// ShortHelp returns the sidebar's bindings.
func (s Sidebar) ShortHelp() []key.Binding {
	return []key.Binding{s.down, s.up, s.open, s.leave}
}

// Update handles keys while the sidebar is focused.
func (s *Sidebar) Update(msg tea.Msg) tea.Cmd {
	km, ok := msg.(tea.KeyMsg)
	if !ok || !s.focused {
		return nil
	}
	switch {
	case key.Matches(km, s.up):
		s.cursor = s.next(s.cursor, -1)
	case key.Matches(km, s.down):
		s.cursor = s.next(s.cursor, 1)
	case key.Matches(km, s.top):
		s.cursor = s.next(-1, 1)
	case key.Matches(km, s.bottom):
		s.cursor = s.next(len(s.rows), -1)
	case key.Matches(km, s.open):
		if href := s.Selected(); href != "" {
			return func() tea.Msg { return SidebarSelectMsg{Href: href} }
		}
	case key.Matches(km, s.leave):
		return func() tea.Msg { return SidebarBlurMsg{} }
	}
	s.scrollToCursor()
	return nil
}

func (s *Sidebar) scrollToCursor() {
	if s.height <= 0 {
		return
	}
	if s.cursor < s.offset {
		s.offset = s.cursor
	}
	if s.cursor >= s.offset+s.height {
		s.offset = s.cursor - s.height + 1
	}
	// Keep a section header in view above its first item.
	if s.offset > 0 && s.offset == s.cursor && s.rows[s.offset-1].section {
		s.offset--
	}
}

// View renders the visible window of the tree.
func (s Sidebar) View() string {
	if s.width <= 0 {
		return ""
	}
	end := len(s.rows)
	if s.height > 0 {
		end = min(end, s.offset+s.height)
	}

	lines := make([]string, 0, end-s.offset)
	for i := s.offset; i < end; i++ {
		r := s.rows[i]
		style := s.styles.SidebarItem
		switch {
		case r.section:
			style = s.styles.SidebarSection
		case r.href == s.active:
			style = s.styles.SidebarActive
		}
		line := style.Render(ansi.Truncate(r.title, max(1, s.width-3), "…"))
		if s.focused && i == s.cursor {
			line = s.styles.Selected.Width(s.width).Render(ansi.Strip(line))
		}
		lines = append(lines, line)
	}

	box := lipgloss.NewStyle().Width(s.width).MaxWidth(s.width)
	if s.height > 0 {
		box = box.Height(s.height).MaxHeight(s.height)
	}
	return box.Render(strings.Join(lines, "\n"))
}
