package chrome

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/erpdesk/erpdesk/internal/tui"
)

// Help is the full-screen key reference. Each binding group renders as a
// block; the current view's groups follow the global ones.
type Help struct {
	styles     *tui.Styles
	width      int
	height     int
	globalKeys [][]key.Binding
	viewTitle  string
	viewKeys   [][]key.Binding
	offset     int
}

// NewHelp creates a new help overlay component.
func NewHelp(styles *tui.Styles) Help {
	return Help{styles: styles}
}

// SetSize sets the available dimensions for the overlay.
func (h *Help) SetSize(width, height int) {
	h.width = width
	h.height = height
	h.clampOffset()
}

// SetGlobalKeys sets the global binding groups.
func (h *Help) SetGlobalKeys(keys [][]key.Binding) {
	h.globalKeys = keys
}

// SetViewTitle sets the header of the view section.
func (h *Help) SetViewTitle(title string) {
	h.viewTitle = title
}

// SetViewKeys sets the view-specific binding groups.
func (h *Help) SetViewKeys(keys [][]key.Binding) {
	h.viewKeys = keys
}

// Update scrolls the overlay. It reports true when the overlay should close.
func (h *Help) Update(msg tea.KeyMsg) (shouldClose bool, cmd tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "?":
		return true, nil
	case "j", "down":
		h.offset++
	case "k", "up":
		h.offset--
	case "ctrl+d":
		h.offset += h.visibleHeight() / 2
	case "ctrl+u":
		h.offset -= h.visibleHeight() / 2
	case "g", "home":
		h.offset = 0
	case "G", "end":
		h.offset = len(h.lines())
	default:
		return false, nil
	}
	h.clampOffset()
	return false, nil
}

// ResetScroll resets the scroll position to the top.
func (h *Help) ResetScroll() {
	h.offset = 0
}

// visibleHeight excludes vertical padding and the footer with its spacer.
func (h Help) visibleHeight() int {
	return max(1, h.height-4)
}

func (h *Help) clampOffset() {
	maxOffset := max(0, len(h.lines())-h.visibleHeight())
	h.offset = max(0, min(h.offset, maxOffset))
}

func (h Help) section(title string, groups [][]key.Binding) []string {
	theme := h.styles.Theme()
	keyCol := lipgloss.NewStyle().Foreground(theme.Primary).Width(16)
	descCol := lipgloss.NewStyle().Foreground(theme.Muted)

	lines := []string{lipgloss.NewStyle().Bold(true).Foreground(theme.Foreground).Render(title)}
	for i, group := range groups {
		if i > 0 && len(group) > 0 {
			lines = append(lines, "")
		}
		for _, k := range group {
			if !k.Enabled() {
				continue
			}
			help := k.Help()
			lines = append(lines, "  "+keyCol.Render(help.Key)+descCol.Render(help.Desc))
		}
	}
	return lines
}

func (h Help) lines() []string {
	theme := h.styles.Theme()
	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(theme.Primary).Render("Keys"),
		"",
	}
	lines = append(lines, h.section("Global", h.globalKeys)...)
	if h.viewTitle != "" && len(h.viewKeys) > 0 {
		lines = append(lines, "")
		lines = append(lines, h.section(h.viewTitle, h.viewKeys)...)
	}
	return lines
}

// View renders the help overlay.
func (h Help) View() string {
	lines := h.lines()
	visible := h.visibleHeight()
	overflows := len(lines) > visible
	if overflows {
		start := min(h.offset, len(lines))
		lines = lines[start:min(start+visible, len(lines))]
	}

	footerText := "esc close"
	if overflows {
		footerText = "j/k scroll  esc close"
	}
	footer := lipgloss.NewStyle().Foreground(h.styles.Theme().Muted).Render(footerText)

	return lipgloss.NewStyle().
		Width(h.width).
		Height(h.height).
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, strings.Join(lines, "\n"), "", footer))
}
