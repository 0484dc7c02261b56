package chrome

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/erpdesk/erpdesk/internal/tui"
)

const crumbSep = " › "

// Breadcrumb renders the menu trail of the visible screen, for example
// Sales › Faktur › Edit: INV-001.
type Breadcrumb struct {
	styles *tui.Styles
	crumbs []string
	width  int
}

// NewBreadcrumb creates a new breadcrumb component.
func NewBreadcrumb(styles *tui.Styles) Breadcrumb {
	return Breadcrumb{styles: styles}
}

// SetCrumbs replaces the trail.
func (b *Breadcrumb) SetCrumbs(crumbs []string) {
	b.crumbs = crumbs
}

// Crumbs returns the current trail.
func (b *Breadcrumb) Crumbs() []string {
	return b.crumbs
}

// SetWidth sets the available width.
func (b *Breadcrumb) SetWidth(w int) {
	b.width = w
}

// View renders the trail. Middle segments collapse to an ellipsis first,
// then the last segment is truncated.
func (b Breadcrumb) View() string {
	if len(b.crumbs) == 0 || b.width <= 0 {
		return ""
	}

	theme := b.styles.Theme()
	muted := lipgloss.NewStyle().Foreground(theme.Muted)
	current := lipgloss.NewStyle().Foreground(theme.Foreground).Bold(true)

	crumbs := b.crumbs
	render := func(cs []string, last string) string {
		var sb strings.Builder
		for _, c := range cs {
			sb.WriteString(muted.Render(c))
			sb.WriteString(muted.Render(crumbSep))
		}
		sb.WriteString(current.Render(last))
		return sb.String()
	}

	last := crumbs[len(crumbs)-1]
	head := crumbs[:len(crumbs)-1]
	line := render(head, last)

	if lipgloss.Width(line) > b.width && len(head) > 1 {
		head = []string{head[0], "…"}
		line = render(head, last)
	}
	if lipgloss.Width(line) > b.width {
		prefix := render(head, "")
		avail := b.width - lipgloss.Width(prefix) - 1
		if avail < 1 {
			// Not even the prefix fits; show only the current segment.
			prefix = ""
			head = nil
			avail = b.width - 1
		}
		line = render(head, truncateText(last, avail))
	}

	return lipgloss.NewStyle().Width(b.width).MaxWidth(b.width).Render(line)
}

// truncateText cuts s to at most maxLen runes and appends an ellipsis.
func truncateText(s string, maxLen int) string {
	if maxLen <= 0 {
		return "…"
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}
