package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-runewidth"

	"github.com/erpdesk/erpdesk/internal/format"
	"github.com/erpdesk/erpdesk/internal/tui"
)

// maxCellWidth caps a table cell; longer values are truncated with an ellipsis.
const maxCellWidth = 40

// Renderer handles styled terminal output.
type Renderer struct {
	width  int
	styled bool
	locale format.Locale

	Summary   lipgloss.Style
	Muted     lipgloss.Style
	Data      lipgloss.Style
	Error     lipgloss.Style
	Hint      lipgloss.Style
	Header    lipgloss.Style
	Cell      lipgloss.Style
	CellMuted lipgloss.Style
	Amount    lipgloss.Style
}

// NewRenderer creates a renderer with styles from the resolved theme.
// Styling is enabled when writing to a TTY, or when forceStyled is true.
func NewRenderer(w io.Writer, forceStyled bool) *Renderer {
	return NewRendererWithTheme(w, forceStyled, tui.ResolveTheme())
}

// NewRendererWithTheme creates a renderer with a specific theme.
func NewRendererWithTheme(w io.Writer, forceStyled bool, theme tui.Theme) *Renderer {
	width, tty := terminalInfo(w)
	r := &Renderer{
		width:  width,
		styled: tty || forceStyled,
		locale: format.DetectLocale(),
	}

	if !r.styled {
		plain := lipgloss.NewStyle()
		r.Summary, r.Muted, r.Data, r.Error, r.Hint = plain, plain, plain, plain, plain
		r.Header, r.Cell, r.CellMuted, r.Amount = plain, plain, plain, plain
		return r
	}

	// Output may be piped, so background detection is unreliable; use Dark.
	lipgloss.SetColorProfile(2)
	fg := func(c lipgloss.AdaptiveColor) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Dark))
	}
	r.Summary = fg(theme.Primary).Bold(true)
	r.Muted = fg(theme.Muted)
	r.Data = fg(theme.Foreground)
	r.Error = fg(theme.Error).Bold(true)
	r.Hint = fg(theme.Muted).Italic(true)
	r.Header = fg(theme.Foreground).Bold(true)
	r.Cell = fg(theme.Foreground)
	r.CellMuted = fg(theme.Muted)
	r.Amount = fg(theme.Success)
	return r
}

// terminalInfo returns the terminal width and whether the writer is a TTY.
func terminalInfo(w io.Writer) (width int, isTTY bool) {
	width = 100
	if f, ok := w.(*os.File); ok {
		if cols, _, err := term.GetSize(f.Fd()); err == nil && cols >= 40 {
			width = cols
		}
		isTTY = term.IsTerminal(f.Fd())
	}
	return width, isTTY
}

// RenderResponse renders a success response to the writer.
func (r *Renderer) RenderResponse(w io.Writer, resp *Response) error {
	var b strings.Builder

	if resp.Summary != "" {
		b.WriteString(r.Summary.Render(resp.Summary))
		b.WriteString("\n\n")
	}

	switch d := NormalizeData(resp.Data).(type) {
	case []map[string]any:
		if len(d) == 0 {
			b.WriteString(r.Muted.Render("(tidak ada data)") + "\n")
			break
		}
		r.renderTable(&b, d, resp.columns)
	case map[string]any:
		r.renderObject(&b, d)
	case nil:
		b.WriteString(r.Muted.Render("(tidak ada data)") + "\n")
	case []any:
		for _, item := range d {
			b.WriteString(r.Data.Render("• "+format.Text(item)) + "\n")
		}
	default:
		b.WriteString(r.Data.Render(fmt.Sprint(d)) + "\n")
	}

	if len(resp.Breadcrumbs) > 0 {
		b.WriteString("\n" + r.Muted.Render("Next:") + "\n")
		for _, bc := range resp.Breadcrumbs {
			line := "  " + bc.Cmd
			if bc.Description != "" {
				line += "  # " + bc.Description
			}
			b.WriteString(r.Muted.Render(line) + "\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderError renders an error response to the writer.
func (r *Renderer) RenderError(w io.Writer, resp *ErrorResponse) error {
	var b strings.Builder
	b.WriteString(r.Error.Render("Error: "+resp.Error) + "\n")
	for _, name := range sortedKeys(resp.Fields) {
		b.WriteString(r.Muted.Render(fmt.Sprintf("  %s: %s", name, resp.Fields[name])) + "\n")
	}
	if resp.Hint != "" {
		b.WriteString(r.Hint.Render("Hint: "+resp.Hint) + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Renderer) renderTable(b *strings.Builder, rows []map[string]any, cols []Column) {
	if len(cols) == 0 {
		cols = detectColumns(rows)
	}
	cols = fitColumns(cols, rows, r.locale, r.width)
	if len(cols) == 0 {
		return
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.Header
			}
			switch cols[col].Kind {
			case "currency":
				return r.Amount
			case "id":
				return r.CellMuted
			}
			return r.Cell
		})

	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.Header
	}
	t.Headers(headers...)

	for _, item := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = cell(r.locale, c, item)
		}
		t.Row(cells...)
	}

	b.WriteString(t.String())
	b.WriteString("\n")
}

func (r *Renderer) renderObject(b *strings.Builder, data map[string]any) {
	keys := scalarKeys(data)
	if len(keys) == 0 {
		b.WriteString(r.Muted.Render("(tidak ada data)") + "\n")
		return
	}
	maxLen := 0
	for _, k := range keys {
		maxLen = max(maxLen, runewidth.StringWidth(headerFor(k)))
	}
	for _, k := range keys {
		label := r.Muted.Render(runewidth.FillRight(headerFor(k), maxLen) + ": ")
		b.WriteString(label + r.Data.Render(format.Text(data[k])) + "\n")
	}
}

// MarkdownRenderer outputs literal Markdown syntax (portable, pipeable).
type MarkdownRenderer struct {
	locale format.Locale
}

// NewMarkdownRenderer creates a renderer for literal Markdown output.
func NewMarkdownRenderer(io.Writer) *MarkdownRenderer {
	return &MarkdownRenderer{locale: format.DetectLocale()}
}

// RenderResponse renders a success response as literal Markdown.
func (r *MarkdownRenderer) RenderResponse(w io.Writer, resp *Response) error {
	var b strings.Builder

	if resp.Summary != "" {
		b.WriteString("## " + resp.Summary + "\n\n")
	}

	switch d := NormalizeData(resp.Data).(type) {
	case []map[string]any:
		if len(d) == 0 {
			b.WriteString("*Tidak ada data*\n")
			break
		}
		cols := resp.columns
		if len(cols) == 0 {
			cols = detectColumns(d)
		}
		headers := make([]string, len(cols))
		seps := make([]string, len(cols))
		for i, c := range cols {
			headers[i] = c.Header
			seps[i] = "---"
		}
		b.WriteString("| " + strings.Join(headers, " | ") + " |\n")
		b.WriteString("| " + strings.Join(seps, " | ") + " |\n")
		for _, item := range d {
			cells := make([]string, len(cols))
			for i, c := range cols {
				cells[i] = strings.ReplaceAll(cell(r.locale, c, item), "|", `\|`)
			}
			b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		}
	case map[string]any:
		for _, k := range scalarKeys(d) {
			b.WriteString("- **" + headerFor(k) + ":** " + format.Text(d[k]) + "\n")
		}
	case nil:
		b.WriteString("*Tidak ada data*\n")
	case []any:
		for _, item := range d {
			b.WriteString("- " + format.Text(item) + "\n")
		}
	default:
		fmt.Fprintf(&b, "%v\n", d)
	}

	if len(resp.Breadcrumbs) > 0 {
		b.WriteString("\n### Next\n\n")
		for _, bc := range resp.Breadcrumbs {
			line := "- `" + bc.Cmd + "`"
			if bc.Description != "" {
				line += ": " + bc.Description
			}
			b.WriteString(line + "\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderError renders an error response as literal Markdown.
func (r *MarkdownRenderer) RenderError(w io.Writer, resp *ErrorResponse) error {
	var b strings.Builder
	b.WriteString("**Error:** " + resp.Error + "\n")
	for _, name := range sortedKeys(resp.Fields) {
		b.WriteString("- `" + name + "`: " + resp.Fields[name] + "\n")
	}
	if resp.Hint != "" {
		b.WriteString("\n*Hint: " + resp.Hint + "*\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// cell formats one value for a table, truncated to maxCellWidth columns.
func cell(l format.Locale, c Column, row map[string]any) string {
	return runewidth.Truncate(l.Value(c.Kind, row[c.Key]), maxCellWidth, "…")
}

// Column priority when no explicit columns are given (lower first).
var columnPriority = map[string]int{
	"id":     1,
	"code":   2,
	"number": 2,
	"name":   3,
	"date":   4,
	"status": 5,
	"total":  6,
}

// Internal bookkeeping fields never shown in tables.
var skipColumns = map[string]bool{
	"createdAt": true,
	"updatedAt": true,
	"deletedAt": true,
	"password":  true,
}

// detectColumns derives columns from the first row's scalar fields.
func detectColumns(rows []map[string]any) []Column {
	if len(rows) == 0 {
		return nil
	}
	keys := scalarKeys(rows[0])
	cols := make([]Column, 0, len(keys))
	for _, k := range keys {
		kind := ""
		if k == "id" {
			kind = "id"
		}
		cols = append(cols, Column{Key: k, Header: headerFor(k), Kind: kind})
	}
	return cols
}

// fitColumns drops trailing columns until the table fits width.
func fitColumns(cols []Column, rows []map[string]any, l format.Locale, width int) []Column {
	const padding = 2
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = runewidth.StringWidth(c.Header)
		for _, row := range rows {
			widths[i] = max(widths[i], runewidth.StringWidth(cell(l, c, row)))
		}
	}
	n := len(cols)
	for n > 1 {
		total := 0
		for _, w := range widths[:n] {
			total += w + padding
		}
		if total <= width {
			break
		}
		n--
	}
	return cols[:n]
}

// scalarKeys returns the non-nested, non-internal keys of m in priority
// order, then alphabetically.
func scalarKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if skipColumns[k] {
			continue
		}
		switch v.(type) {
		case map[string]any, []any, []map[string]any:
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, pj := priorityOf(keys[i]), priorityOf(keys[j])
		if pi != pj {
			return pi < pj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func priorityOf(key string) int {
	if p, ok := columnPriority[key]; ok {
		return p
	}
	return 50
}

// headerFor turns camelCase or snake_case keys into a title:
// "customerName" → "Customer Name".
func headerFor(key string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	for _, c := range key {
		switch {
		case c == '_' || c == '-' || c == ' ':
			flush()
		case c >= 'A' && c <= 'Z':
			flush()
			cur = append(cur, c)
		default:
			cur = append(cur, c)
		}
	}
	flush()
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
