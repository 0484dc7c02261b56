// Package chrome provides always-visible shell components for the workspace.
package chrome

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/erpdesk/erpdesk/internal/tui"
)

// StatusBar renders the bottom line: the view's key hints on the left and,
// on the right, a status message, the global hints or the data source.
type StatusBar struct {
	styles      *tui.Styles
	width       int
	source      string
	status      string
	isError     bool
	statusGen   uint64
	keyHints    []key.Binding
	globalHints []key.Binding
}

// NewStatusBar creates a new status bar.
func NewStatusBar(styles *tui.Styles) StatusBar {
	return StatusBar{styles: styles}
}

// SetSource sets the name of where records come from (API host or mysql).
func (s *StatusBar) SetSource(name string) {
	s.source = name
}

// SetStatus sets a status message. Each call advances the generation so a
// delayed clear only removes the message it was scheduled for.
func (s *StatusBar) SetStatus(text string, isError bool) {
	s.status = text
	s.isError = isError
	s.statusGen++
}

// StatusGen returns the current status generation.
func (s *StatusBar) StatusGen() uint64 {
	return s.statusGen
}

// ClearStatus clears the status message.
func (s *StatusBar) ClearStatus() {
	s.status = ""
	s.isError = false
}

// SetKeyHints sets the view's key bindings shown on the left.
func (s *StatusBar) SetKeyHints(hints []key.Binding) {
	s.keyHints = hints
}

// SetGlobalHints sets the global bindings shown on the right when no
// status message is set.
func (s *StatusBar) SetGlobalHints(hints []key.Binding) {
	s.globalHints = hints
}

// SetWidth sets the available width.
func (s *StatusBar) SetWidth(w int) {
	s.width = w
}

func (s StatusBar) renderHints(bindings []key.Binding, budget int) string {
	theme := s.styles.Theme()
	keyStyle := lipgloss.NewStyle().Foreground(theme.Primary)
	descStyle := lipgloss.NewStyle().Foreground(theme.Muted)

	var parts []string
	used := 0
	for _, k := range bindings {
		if !k.Enabled() {
			continue
		}
		help := k.Help()
		hint := keyStyle.Render(help.Key) + descStyle.Render(" "+help.Desc)
		w := lipgloss.Width(hint)
		if len(parts) > 0 {
			w += 2
		}
		if budget >= 0 && used+w > budget {
			break
		}
		used += w
		parts = append(parts, hint)
	}
	return strings.Join(parts, "  ")
}

// View renders the status bar.
func (s StatusBar) View() string {
	if s.width <= 0 {
		return ""
	}

	theme := s.styles.Theme()
	barStyle := lipgloss.NewStyle().
		Width(s.width).
		MaxWidth(s.width).
		Foreground(theme.Secondary)

	left := s.renderHints(s.keyHints, s.width)

	var right string
	budget := s.width - lipgloss.Width(left) - 2
	switch {
	case s.status != "":
		style := lipgloss.NewStyle().Foreground(theme.Success)
		if s.isError {
			style = lipgloss.NewStyle().Foreground(theme.Error)
		}
		right = style.Render(truncateText(s.status, max(0, budget-1)))
	case len(s.globalHints) > 0:
		right = s.renderHints(s.globalHints, max(0, budget))
	case s.source != "":
		right = lipgloss.NewStyle().Foreground(theme.Muted).Render("[" + s.source + "]")
	}

	gap := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return barStyle.Render(left + strings.Repeat(" ", gap) + right)
}
