package chrome

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/erpdesk/erpdesk/internal/tui"
)

// JumpItem is one menu destination offered by the jump overlay.
type JumpItem struct {
	Title   string
	Section string
	Href    string
}

// JumpCloseMsg is sent when the jump overlay wants to close itself.
type JumpCloseMsg struct{}

// JumpSelectMsg carries the href picked in the jump overlay.
type JumpSelectMsg struct {
	Href string
}

// Jump is the "go to" overlay: a text input over a filtered list of menu
// destinations. The workspace supplies the destinations.
type Jump struct {
	styles *tui.Styles

	input    textinput.Model
	items    []JumpItem
	filtered []JumpItem
	cursor   int

	width, height int
}

// NewJump creates a new jump overlay.
func NewJump(styles *tui.Styles) Jump {
	ti := textinput.New()
	ti.Placeholder = "Go to..."
	ti.CharLimit = 64
	ti.Prompt = "› "

	return Jump{
		styles: styles,
		input:  ti,
	}
}

// SetItems replaces the destination list.
func (j *Jump) SetItems(items []JumpItem) {
	j.items = items
	j.refilter()
}

// Focus activates the input and resets state for a fresh open.
func (j *Jump) Focus() tea.Cmd {
	j.input.SetValue("")
	j.cursor = 0
	j.refilter()
	return j.input.Focus()
}

// Blur deactivates the input.
func (j *Jump) Blur() {
	j.input.Blur()
}

// SetSize sets the available dimensions for the overlay.
func (j *Jump) SetSize(width, height int) {
	j.width = width
	j.height = height
	j.input.Width = max(0, width-8)
}

// Update handles key messages while the overlay is open.
func (j *Jump) Update(msg tea.Msg) tea.Cmd {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	switch km.String() {
	case "esc", "ctrl+p":
		return func() tea.Msg { return JumpCloseMsg{} }

	case "enter":
		if j.cursor < len(j.filtered) {
			href := j.filtered[j.cursor].Href
			return func() tea.Msg { return JumpSelectMsg{Href: href} }
		}
		return nil

	case "up", "ctrl+k":
		if j.cursor > 0 {
			j.cursor--
		}
		return nil

	case "down", "ctrl+j":
		if j.cursor < len(j.filtered)-1 {
			j.cursor++
		}
		return nil
	}

	var cmd tea.Cmd
	j.input, cmd = j.input.Update(km)
	j.refilter()
	return cmd
}

// Filtered returns the destinations matching the current query.
func (j *Jump) Filtered() []JumpItem {
	return j.filtered
}

// refilter keeps items whose title, section or href contains every word
// of the query.
func (j *Jump) refilter() {
	words := strings.Fields(strings.ToLower(j.input.Value()))
	j.filtered = j.filtered[:0]
	for _, it := range j.items {
		hay := strings.ToLower(it.Section + " " + it.Title + " " + it.Href)
		match := true
		for _, w := range words {
			if !strings.Contains(hay, w) {
				match = false
				break
			}
		}
		if match {
			j.filtered = append(j.filtered, it)
		}
	}
	j.cursor = max(0, min(j.cursor, len(j.filtered)-1))
}

const maxJumpRows = 12

// View renders the overlay centered horizontally.
func (j Jump) View() string {
	theme := j.styles.Theme()

	boxWidth := min(60, j.width-8)
	if boxWidth < 30 {
		boxWidth = 30
	}
	inner := boxWidth - 4

	sep := lipgloss.NewStyle().
		Foreground(theme.Border).
		Render(strings.Repeat("─", inner))

	start := 0
	if j.cursor >= maxJumpRows {
		start = j.cursor - maxJumpRows + 1
	}
	end := min(start+maxJumpRows, len(j.filtered))

	rows := make([]string, 0, maxJumpRows)
	for i, it := range j.filtered[start:end] {
		title := truncateText(it.Title, inner/2)
		section := ""
		if it.Section != "" {
			section = "  " + truncateText(it.Section, max(0, inner-lipgloss.Width(title)-3))
		}
		if i+start == j.cursor {
			bg := lipgloss.NewStyle().Background(theme.Border)
			rows = append(rows, bg.Width(inner).Render(
				bg.Foreground(theme.Primary).Bold(true).Render(title)+
					bg.Foreground(theme.Muted).Render(section)))
			continue
		}
		rows = append(rows,
			lipgloss.NewStyle().Foreground(theme.Foreground).Render(title)+
				lipgloss.NewStyle().Foreground(theme.Muted).Render(section))
	}
	if len(j.filtered) == 0 {
		rows = append(rows, lipgloss.NewStyle().Foreground(theme.Muted).Render("No matching menu"))
	}

	footer := lipgloss.NewStyle().Foreground(theme.Muted).
		Render(fmt.Sprintf("%d/%d", len(j.filtered), len(j.items)))

	sections := make([]string, 0, len(rows)+4)
	sections = append(sections, j.input.View(), sep)
	sections = append(sections, rows...)
	sections = append(sections, sep, footer)

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Primary).
		Padding(0, 1).
		Width(boxWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return lipgloss.NewStyle().
		Width(j.width).
		Align(lipgloss.Center).
		Render(box)
}
