package chrome

import (
	"fmt"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"

	"github.com/erpdesk/erpdesk/internal/tui"
)

func TestTabBar_FeatureTabsNumbered(t *testing.T) {
	bar := NewFeatureTabBar(tui.NewStyles())
	bar.SetWidth(80)
	bar.SetItems([]TabItem{
		{Title: "Faktur", Active: true},
		{Title: "Pelanggan"},
	})

	view := ansi.Strip(bar.View())
	assert.Contains(t, view, "1 Faktur")
	assert.Contains(t, view, "2 Pelanggan")
}

func TestTabBar_DataTabsDirtyMark(t *testing.T) {
	bar := NewDataTabBar(tui.NewStyles())
	bar.SetWidth(80)
	bar.SetItems([]TabItem{
		{Title: "List"},
		{Title: "Edit: INV-001", Active: true, Dirty: true},
	})

	view := ansi.Strip(bar.View())
	assert.Contains(t, view, "Edit: INV-001 ●")
	assert.NotContains(t, view, "1 List")
}

func TestTabBar_LongLabelTruncated(t *testing.T) {
	bar := NewDataTabBar(tui.NewStyles())
	bar.SetWidth(80)
	bar.SetItems([]TabItem{{Title: "Edit: PT Sumber Makmur Sejahtera Abadi Jaya", Active: true}})

	view := ansi.Strip(bar.View())
	assert.Contains(t, view, "…")
	assert.NotContains(t, view, "Abadi Jaya")
}

func TestTabBar_OverflowKeepsActiveVisible(t *testing.T) {
	bar := NewFeatureTabBar(tui.NewStyles())
	bar.SetWidth(40)
	var items []TabItem
	for i := range 12 {
		items = append(items, TabItem{Title: fmt.Sprintf("Feature%02d", i), Active: i == 10})
	}
	bar.SetItems(items)

	view := bar.View()
	assert.LessOrEqual(t, lipgloss.Width(view), 40)
	plain := ansi.Strip(view)
	assert.Contains(t, plain, "Feature10")
	assert.Contains(t, plain, "‹")
}

func TestTabBar_EmptyRendersNothing(t *testing.T) {
	bar := NewFeatureTabBar(tui.NewStyles())
	bar.SetWidth(40)
	assert.Empty(t, bar.View())
}
