// Package widget provides reusable sub-models for workspace views.
package widget

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/erpdesk/erpdesk/internal/tui"
	"github.com/erpdesk/erpdesk/internal/tui/empty"
	"github.com/erpdesk/erpdesk/internal/tui/workspace"
)

const (
	minColumnWidth = 4
	cursorWidth    = 2
)

// Column describes one table column. A zero Width shares the space left
// over by the fixed columns.
type Column struct {
	Title string
	Width int
	Right bool
}

// Row is one table row. Cells line up with the table's columns.
type Row struct {
	ID    string
	Cells []string
}

// Table is a scrolling, cursor-driven record table.
type Table struct {
	columns []Column
	rows    []Row
	cursor  int
	offset  int
	width   int
	height  int
	focused bool
	loading bool
	footer  string

	emptyMsg *empty.Message

	styles *tui.Styles
	keys   workspace.ListKeyMap
}

// NewTable creates an empty table.
func NewTable(styles *tui.Styles) *Table {
	return &Table{
		styles: styles,
		keys:   workspace.DefaultListKeyMap(),
	}
}

// SetColumns replaces the column layout.
func (t *Table) SetColumns(cols []Column) {
	t.columns = cols
}

// SetRows replaces the rows. The cursor stays on the same record when it
// is still present, otherwise it is clamped.
func (t *Table) SetRows(rows []Row) {
	var selected string
	if r := t.Selected(); r != nil {
		selected = r.ID
	}
	t.rows = rows
	if selected == "" || !t.SelectByID(selected) {
		t.cursor = max(0, min(t.cursor, len(rows)-1))
		t.clampOffset()
	}
}

// SetLoading marks a fetch in flight.
func (t *Table) SetLoading(loading bool) {
	t.loading = loading
}

// SetEmpty sets the message shown when there are no rows.
func (t *Table) SetEmpty(msg empty.Message) {
	t.emptyMsg = &msg
}

// SetFooter sets the status line under the rows.
func (t *Table) SetFooter(text string) {
	t.footer = text
}

// SetSize updates dimensions.
func (t *Table) SetSize(w, h int) {
	t.width = w
	t.height = h
	t.clampOffset()
}

// SetFocused sets focus state.
func (t *Table) SetFocused(focused bool) {
	t.focused = focused
}

// Selected returns the row under the cursor, or nil.
func (t *Table) Selected() *Row {
	if t.cursor < 0 || t.cursor >= len(t.rows) {
		return nil
	}
	r := t.rows[t.cursor]
	return &r
}

// SelectedIndex returns the cursor position.
func (t *Table) SelectedIndex() int {
	return t.cursor
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// SelectByID moves the cursor to the row with id.
func (t *Table) SelectByID(id string) bool {
	for i, r := range t.rows {
		if r.ID == id {
			t.cursor = i
			t.clampOffset()
			return true
		}
	}
	return false
}

// NearEnd reports whether the last row is on screen or at most threshold
// rows below it. An empty table is never near its end.
func (t *Table) NearEnd(threshold int) bool {
	n := len(t.rows)
	if n == 0 {
		return false
	}
	return t.offset+t.visibleHeight()+threshold >= n
}

// Update handles navigation keys. It returns nil; callers check NearEnd
// and Selected after each update.
func (t *Table) Update(msg tea.Msg) tea.Cmd {
	km, ok := msg.(tea.KeyMsg)
	if !ok || !t.focused || len(t.rows) == 0 {
		return nil
	}

	half := max(1, t.visibleHeight()/2)
	switch {
	case key.Matches(km, t.keys.Up):
		t.cursor--
	case key.Matches(km, t.keys.Down):
		t.cursor++
	case key.Matches(km, t.keys.Top):
		t.cursor = 0
	case key.Matches(km, t.keys.Bottom):
		t.cursor = len(t.rows) - 1
	case key.Matches(km, t.keys.PageDown):
		t.cursor += half
	case key.Matches(km, t.keys.PageUp):
		t.cursor -= half
	default:
		return nil
	}
	t.cursor = max(0, min(t.cursor, len(t.rows)-1))
	t.clampOffset()
	return nil
}

// visibleHeight is the number of row lines: the header takes two lines
// (title and rule) and the footer one.
func (t *Table) visibleHeight() int {
	h := t.height
	if h <= 0 {
		h = 10
	}
	return max(1, h-3)
}

func (t *Table) clampOffset() {
	vh := t.visibleHeight()
	if t.cursor < t.offset {
		t.offset = t.cursor
	}
	if t.cursor >= t.offset+vh {
		t.offset = t.cursor - vh + 1
	}
	t.offset = max(0, min(t.offset, len(t.rows)-vh))
}

// layout returns the width of each column for the current table width.
func (t *Table) layout() []int {
	widths := make([]int, len(t.columns))
	if len(t.columns) == 0 {
		return widths
	}
	avail := t.width - cursorWidth - (len(t.columns) - 1)
	flex := 0
	for i, c := range t.columns {
		if c.Width > 0 {
			widths[i] = c.Width
			avail -= c.Width
		} else {
			flex++
		}
	}
	if flex > 0 {
		share := max(minColumnWidth, avail/flex)
		for i := range widths {
			if widths[i] == 0 {
				widths[i] = share
			}
		}
	}
	return widths
}

func fit(s string, w int, right bool) string {
	s = runewidth.Truncate(s, w, "…")
	if right {
		return runewidth.FillLeft(s, w)
	}
	return runewidth.FillRight(s, w)
}

func (t *Table) renderCells(cells []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		parts[i] = fit(cell, w, t.columns[i].Right)
	}
	return strings.Join(parts, " ")
}

// View renders the table.
func (t *Table) View() string {
	if t.width <= 0 || t.height <= 0 {
		return ""
	}
	theme := t.styles.Theme()
	muted := lipgloss.NewStyle().Foreground(theme.Muted)

	if len(t.rows) == 0 {
		if t.loading {
			return muted.Width(t.width).Render("Loading…")
		}
		if t.emptyMsg != nil {
			return t.renderEmpty(theme)
		}
		return muted.Width(t.width).Render("No records")
	}

	widths := t.layout()
	titles := make([]string, len(t.columns))
	for i, c := range t.columns {
		titles[i] = c.Title
	}

	lines := []string{
		t.styles.TableHeader.MaxWidth(t.width).Render(strings.Repeat(" ", cursorWidth) + t.renderCells(titles, widths)),
	}

	end := min(len(t.rows), t.offset+t.visibleHeight())
	for i := t.offset; i < end; i++ {
		line := t.renderCells(t.rows[i].Cells, widths)
		if i == t.cursor && t.focused {
			lines = append(lines, t.styles.Cursor.Render("▸ ")+t.styles.Selected.Render(line))
			continue
		}
		lines = append(lines, "  "+line)
	}

	if t.footer != "" {
		lines = append(lines, muted.Render(Truncate(t.footer, t.width)))
	}
	return lipgloss.NewStyle().MaxWidth(t.width).Render(strings.Join(lines, "\n"))
}

func (t *Table) renderEmpty(theme tui.Theme) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(theme.Foreground)
	body := lipgloss.NewStyle().Foreground(theme.Muted)
	hint := lipgloss.NewStyle().Foreground(theme.Secondary)

	lines := []string{title.Render(t.emptyMsg.Title)}
	if t.emptyMsg.Body != "" {
		lines = append(lines, body.Render(t.emptyMsg.Body))
	}
	if len(t.emptyMsg.Hints) > 0 {
		lines = append(lines, "")
		for _, h := range t.emptyMsg.Hints {
			lines = append(lines, hint.Render("  "+h))
		}
	}
	return lipgloss.NewStyle().Width(t.width).Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
