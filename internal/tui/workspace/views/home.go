package views

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/erpdesk/erpdesk/internal/catalog"
	"github.com/erpdesk/erpdesk/internal/tui"
	"github.com/erpdesk/erpdesk/internal/tui/workspace"
	"github.com/erpdesk/erpdesk/internal/tui/workspace/widget"
)

// Home is the dashboard: every menu destination with what is open.
type Home struct {
	session *workspace.Session
	styles  *tui.Styles
	table   *widget.Table
	open    key.Binding

	width, height int
}

// NewHome creates the dashboard view.
func NewHome(session *workspace.Session) *Home {
	table := widget.NewTable(session.Styles())
	table.SetColumns([]widget.Column{
		{Title: "Menu"},
		{Title: "Section", Width: 16},
		{Title: "State", Width: 12},
	})
	table.SetFocused(true)
	return &Home{
		session: session,
		styles:  session.Styles(),
		table:   table,
		open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	}
}

func (v *Home) Title() string { return "Dashboard" }

func (v *Home) ShortHelp() []key.Binding { return []key.Binding{v.open} }

func (v *Home) FullHelp() [][]key.Binding {
	lk := workspace.DefaultListKeyMap()
	return [][]key.Binding{{lk.Up, lk.Top, lk.Bottom, v.open}}
}

func (v *Home) SetSize(w, h int) {
	v.width, v.height = w, h
	v.table.SetSize(w, max(1, h-2))
}

func (v *Home) Init() tea.Cmd {
	v.refresh()
	return nil
}

// refresh rebuilds the rows from the menu and the open feature tabs.
func (v *Home) refresh() {
	cat := v.session.Catalog()
	reg := v.session.Tabs()

	var rows []widget.Row
	var walk func(section string, entries []catalog.MenuEntry)
	walk = func(section string, entries []catalog.MenuEntry) {
		for _, e := range entries {
			if e.Href != "" && e.Href != workspace.HomePath {
				state := ""
				switch ft, ok := reg.FeatureTab(e.Href); {
				case ok && ft.Dirty():
					state = "open ●"
				case ok:
					state = "open"
				case !cat.IsRegistered(e.Href):
					state = "web only"
				}
				rows = append(rows, widget.Row{ID: e.Href, Cells: []string{e.Title, section, state}})
			}
			walk(e.Title, e.Items)
		}
	}
	walk("", cat.Menu)
	v.table.SetRows(rows)
	v.table.SetFooter("")
}

func (v *Home) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case workspace.TabsChangedMsg, workspace.FocusMsg, workspace.RefreshMsg:
		v.refresh()
	case tea.KeyMsg:
		if key.Matches(msg, v.open) {
			if row := v.table.Selected(); row != nil {
				return v, workspace.Navigate(row.ID)
			}
			return v, nil
		}
		v.table.Update(msg)
	}
	return v, nil
}

func (v *Home) View() string {
	header := v.styles.Title.Render("erpdesk") + "  " +
		v.styles.Muted.Render("pick a menu item, or press ctrl+p to jump")
	return lipgloss.JoinVertical(lipgloss.Left, header, "", v.table.View())
}
