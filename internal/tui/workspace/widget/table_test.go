package widget

import (
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erpdesk/erpdesk/internal/tui"
	"github.com/erpdesk/erpdesk/internal/tui/empty"
)

func testTable(height int) *Table {
	tb := NewTable(tui.NewStyles())
	tb.SetColumns([]Column{
		{Title: "Nomor", Width: 10},
		{Title: "Pelanggan"},
		{Title: "Total", Width: 14, Right: true},
	})
	tb.SetSize(60, height)
	tb.SetFocused(true)
	return tb
}

func sampleRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{
			ID:    fmt.Sprintf("%d", i+1),
			Cells: []string{fmt.Sprintf("INV-%03d", i+1), "PT Sumber Makmur", "Rp 1.250.000"},
		}
	}
	return rows
}

func downKey() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyDown} }
func upKey() tea.KeyMsg   { return tea.KeyMsg{Type: tea.KeyUp} }

func TestTable_SetRowsSelectsFirst(t *testing.T) {
	tb := testTable(20)
	tb.SetRows(sampleRows(3))

	sel := tb.Selected()
	require.NotNil(t, sel)
	assert.Equal(t, "1", sel.ID)
	assert.Equal(t, 3, tb.Len())
}

func TestTable_Navigation(t *testing.T) {
	tb := testTable(20)
	tb.SetRows(sampleRows(5))

	tb.Update(downKey())
	tb.Update(downKey())
	assert.Equal(t, 2, tb.SelectedIndex())

	tb.Update(upKey())
	assert.Equal(t, 1, tb.SelectedIndex())

	tb.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	assert.Equal(t, 4, tb.SelectedIndex())

	tb.Update(downKey())
	assert.Equal(t, 4, tb.SelectedIndex(), "cursor clamps at the last row")

	tb.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	assert.Equal(t, 0, tb.SelectedIndex())
}

func TestTable_UnfocusedIgnoresKeys(t *testing.T) {
	tb := testTable(20)
	tb.SetRows(sampleRows(5))
	tb.SetFocused(false)

	tb.Update(downKey())
	assert.Equal(t, 0, tb.SelectedIndex())
}

func TestTable_SetRowsKeepsCursorOnRecord(t *testing.T) {
	tb := testTable(20)
	tb.SetRows(sampleRows(5))
	tb.Update(downKey())
	tb.Update(downKey())

	// A page append keeps the same rows in front.
	tb.SetRows(sampleRows(10))
	assert.Equal(t, "3", tb.Selected().ID)

	// A reset to fewer rows clamps.
	tb.SelectByID("9")
	tb.SetRows(sampleRows(2))
	assert.Equal(t, 1, tb.SelectedIndex())
}

func TestTable_NearEnd(t *testing.T) {
	tb := testTable(8) // 5 visible rows
	assert.False(t, tb.NearEnd(2), "empty table is never near its end")

	tb.SetRows(sampleRows(20))
	assert.False(t, tb.NearEnd(2))

	for range 17 {
		tb.Update(downKey())
	}
	assert.True(t, tb.NearEnd(2))

	// Everything fits: near end as soon as the cursor is close.
	short := testTable(20)
	short.SetRows(sampleRows(3))
	assert.True(t, short.NearEnd(2))
}

func TestTable_ViewFitsWidth(t *testing.T) {
	tb := testTable(10)
	rows := sampleRows(3)
	rows[0].Cells[1] = "PT Sumber Makmur Sejahtera Abadi Jaya Sentosa"
	tb.SetRows(rows)
	tb.SetFooter("3 of 3")

	view := tb.View()
	for _, line := range splitLines(view) {
		assert.LessOrEqual(t, lipgloss.Width(line), 60)
	}
	plain := ansi.Strip(view)
	assert.Contains(t, plain, "Pelanggan")
	assert.Contains(t, plain, "INV-001")
	assert.Contains(t, plain, "Rp 1.250.000")
	assert.Contains(t, plain, "…")
	assert.Contains(t, plain, "3 of 3")
}

func TestTable_ScrollKeepsCursorVisible(t *testing.T) {
	tb := testTable(8)
	tb.SetRows(sampleRows(20))
	for range 10 {
		tb.Update(downKey())
	}
	plain := ansi.Strip(tb.View())
	assert.Contains(t, plain, "INV-011")
	assert.NotContains(t, plain, "INV-001")
}

func TestTable_EmptyStates(t *testing.T) {
	tb := testTable(10)
	tb.SetLoading(true)
	assert.Contains(t, tb.View(), "Loading…")

	tb.SetLoading(false)
	tb.SetEmpty(empty.NoRecords("Faktur"))
	assert.Contains(t, ansi.Strip(tb.View()), "No records yet")
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}
