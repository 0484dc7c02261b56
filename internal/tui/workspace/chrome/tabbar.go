package chrome

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/erpdesk/erpdesk/internal/tui"
)

// maxTabLabel caps a single tab label, in cells.
const maxTabLabel = 24

// TabItem is one rendered tab.
type TabItem struct {
	Title  string
	Icon   string
	Active bool
	Dirty  bool
}

// TabBar renders a single row of tabs. Feature tabs and data tabs use the
// same component with different styles.
type TabBar struct {
	styles *tui.Styles
	items  []TabItem
	width  int
	data   bool
}

// NewFeatureTabBar creates the top row of open features.
func NewFeatureTabBar(styles *tui.Styles) TabBar {
	return TabBar{styles: styles}
}

// NewDataTabBar creates the row of data tabs under a feature.
func NewDataTabBar(styles *tui.Styles) TabBar {
	return TabBar{styles: styles, data: true}
}

// SetItems replaces the tabs.
func (t *TabBar) SetItems(items []TabItem) {
	t.items = items
}

// SetWidth sets the available width.
func (t *TabBar) SetWidth(w int) {
	t.width = w
}

func (t TabBar) render(it TabItem, index int) string {
	label := it.Title
	if it.Icon != "" {
		label = it.Icon + " " + label
	}
	if !t.data && index < 9 {
		label = string(rune('1'+index)) + " " + label
	}
	label = ansi.Truncate(label, maxTabLabel, "…")

	style := t.styles.FeatureTab
	if t.data {
		style = t.styles.DataTab
	}
	if it.Active {
		style = t.styles.FeatureTabActive
		if t.data {
			style = t.styles.DataTabActive
		}
	}
	if it.Dirty {
		return style.Render(label + " " + t.styles.DirtyMark.Render("●"))
	}
	return style.Render(label)
}

// View renders the row. When the tabs overflow, the window slides to keep
// the active tab visible and arrows mark hidden tabs on either side.
func (t TabBar) View() string {
	if len(t.items) == 0 || t.width <= 0 {
		return ""
	}

	rendered := make([]string, len(t.items))
	active := 0
	for i, it := range t.items {
		rendered[i] = t.render(it, i)
		if it.Active {
			active = i
		}
	}

	start, end := 0, len(rendered)
	for start < end && t.rowWidth(rendered, start, end) > t.width {
		// Drop from whichever side is farther from the active tab.
		if active-start > end-1-active {
			start++
		} else {
			end--
		}
	}
	if start >= end {
		start, end = active, active+1
	}

	muted := lipgloss.NewStyle().Foreground(t.styles.Theme().Muted)
	var sb strings.Builder
	if start > 0 {
		sb.WriteString(muted.Render("‹ "))
	}
	sb.WriteString(strings.Join(rendered[start:end], " "))
	if end < len(rendered) {
		sb.WriteString(muted.Render(" ›"))
	}
	return ansi.Truncate(sb.String(), t.width, "")
}

func (t TabBar) rowWidth(rendered []string, start, end int) int {
	w := 0
	for i := start; i < end; i++ {
		w += lipgloss.Width(rendered[i])
	}
	w += end - start - 1
	if start > 0 {
		w += 2
	}
	if end < len(rendered) {
		w += 2
	}
	return w
}
