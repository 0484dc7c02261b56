package views

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/erpdesk/erpdesk/internal/api"
	"github.com/erpdesk/erpdesk/internal/catalog"
	"github.com/erpdesk/erpdesk/internal/live"
	"github.com/erpdesk/erpdesk/internal/source"
	"github.com/erpdesk/erpdesk/internal/tui"
	"github.com/erpdesk/erpdesk/internal/tui/empty"
	"github.com/erpdesk/erpdesk/internal/tui/workspace"
	"github.com/erpdesk/erpdesk/internal/tui/workspace/data"
	"github.com/erpdesk/erpdesk/internal/tui/workspace/widget"
)

// loadAheadRows is how close to the last loaded row the cursor may get
// before the next page is requested.
const loadAheadRows = 3

// RecordList is the list tab of a feature: a paginated, searchable table
// of the feature's records.
type RecordList struct {
	session *workspace.Session
	feature catalog.Feature
	styles  *tui.Styles
	keys    listKeyMap

	table     *widget.Table
	search    textinput.Model
	searching bool
	filter    source.Filter
	fetcher   *data.Fetcher[api.Record]
	buildErr  error
	spinner   spinner.Model

	width, height int
}

// NewRecordList creates the list of f. Nothing is fetched until Init.
func NewRecordList(session *workspace.Session, f catalog.Feature) *RecordList {
	styles := session.Styles()

	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "search " + strings.ToLower(f.Title)
	ti.CharLimit = 120
	ti.Width = 40

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Theme().Primary)

	table := widget.NewTable(styles)
	table.SetColumns(tableColumns(f))
	table.SetFocused(true)

	return &RecordList{
		session: session,
		feature: f,
		styles:  styles,
		keys:    defaultListKeyMap(),
		table:   table,
		search:  ti,
		spinner: s,
	}
}

func tableColumns(f catalog.Feature) []widget.Column {
	cols := make([]widget.Column, len(f.Columns))
	for i, c := range f.Columns {
		col := widget.Column{Title: c.Title}
		switch c.Kind {
		case catalog.KindDate:
			col.Width = 12
		case catalog.KindStatus:
			col.Width = 11
		case catalog.KindCurrency:
			col.Width, col.Right = 18, true
		case catalog.KindNumber:
			col.Width, col.Right = 10, true
		}
		cols[i] = col
	}
	return cols
}

func (v *RecordList) Title() string { return v.feature.Title }

func (v *RecordList) ShortHelp() []key.Binding {
	if v.searching {
		return searchHints()
	}
	hints := []key.Binding{v.keys.Open, v.keys.Search}
	if len(v.feature.Statuses) > 0 {
		hints = append(hints, v.keys.Status)
	}
	if len(v.feature.Fields) > 0 {
		hints = append(hints, v.keys.New)
	}
	return hints
}

func (v *RecordList) FullHelp() [][]key.Binding {
	lk := workspace.DefaultListKeyMap()
	return [][]key.Binding{
		{lk.Up, lk.Top, lk.Bottom, lk.PageDown, lk.PageUp},
		{v.keys.Open, v.keys.New, v.keys.Copy},
		{v.keys.Search, v.keys.Status, v.keys.Refresh},
	}
}

// InputActive reports whether the search field has the keyboard.
func (v *RecordList) InputActive() bool { return v.searching }

func (v *RecordList) SetSize(w, h int) {
	v.width, v.height = w, h
	v.search.Width = max(10, w-4)
	v.table.SetSize(w, max(1, h-1))
}

// Filter returns the search and status currently applied.
func (v *RecordList) Filter() source.Filter { return v.filter }

// State returns the accumulated records.
func (v *RecordList) State() data.FetchState[api.Record] {
	if v.fetcher == nil {
		return data.FetchState[api.Record]{}
	}
	return v.fetcher.State()
}

func (v *RecordList) Init() tea.Cmd {
	return v.rebuild()
}

// rebuild replaces the fetcher after the filter changed. The old fetcher is
// cancelled so a late page cannot land in the new list.
func (v *RecordList) rebuild() tea.Cmd {
	if v.fetcher != nil {
		v.fetcher.Cancel()
	}
	pages, err := v.session.Source().Pages(v.feature, v.filter)
	if err != nil {
		v.fetcher, v.buildErr = nil, err
		v.syncTable()
		return nil
	}
	v.buildErr = nil
	v.fetcher = data.NewFetcher(v.feature.Href, pages, func(r api.Record) string { return r.ID() })
	return v.autoLoad()
}

// restart empties the list and loads the first page again.
func (v *RecordList) restart() tea.Cmd {
	if v.fetcher == nil {
		return v.rebuild()
	}
	v.fetcher.Reset()
	return v.autoLoad()
}

func (v *RecordList) autoLoad() tea.Cmd {
	cmd := v.fetcher.AutoLoad(v.session.Context())
	v.syncTable()
	if cmd == nil {
		return nil
	}
	return tea.Batch(cmd, v.spinner.Tick)
}

func (v *RecordList) loadMore() tea.Cmd {
	if v.fetcher == nil || !v.table.NearEnd(loadAheadRows) {
		return nil
	}
	cmd := v.fetcher.SentinelVisible(v.session.Context())
	if cmd == nil {
		return nil
	}
	v.syncTable()
	return tea.Batch(cmd, v.spinner.Tick)
}

func (v *RecordList) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case data.PageLoadedMsg:
		if msg.Key != v.feature.Href || v.fetcher == nil {
			return v, nil
		}
		v.syncTable()
		if msg.Err != nil {
			if len(v.fetcher.State().Items) > 0 {
				return v, workspace.ReportError(msg.Err, "loading "+v.feature.Title)
			}
			return v, nil
		}
		// A short first page may not fill the screen.
		return v, v.loadMore()

	case workspace.RefreshMsg:
		return v, v.restart()

	case workspace.RecordSavedMsg:
		if msg.FeatureID == v.feature.Href && msg.Err == nil {
			return v, v.restart()
		}

	case workspace.LiveEventMsg:
		if live.NormalizeResource(msg.Event.Resource) == live.NormalizeResource(v.feature.Endpoint) {
			return v, v.restart()
		}

	case spinner.TickMsg:
		if st := v.State(); st.Loading {
			var cmd tea.Cmd
			v.spinner, cmd = v.spinner.Update(msg)
			return v, cmd
		}

	case tea.KeyMsg:
		if v.searching {
			return v, v.updateSearch(msg)
		}
		return v, v.handleKey(msg)
	}
	return v, nil
}

func (v *RecordList) updateSearch(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		v.searching = false
		v.search.SetValue(v.filter.Search)
		v.search.Blur()
		return nil
	case "enter":
		v.searching = false
		v.search.Blur()
		query := strings.TrimSpace(v.search.Value())
		if query == v.filter.Search {
			return nil
		}
		v.filter.Search = query
		return v.rebuild()
	}
	var cmd tea.Cmd
	v.search, cmd = v.search.Update(msg)
	return cmd
}

func (v *RecordList) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keys.Search):
		v.searching = true
		return v.search.Focus()

	case key.Matches(msg, v.keys.Status):
		if len(v.feature.Statuses) == 0 {
			return nil
		}
		v.filter.Status = nextStatus(v.feature.Statuses, v.filter.Status)
		return v.rebuild()

	case key.Matches(msg, v.keys.New):
		if len(v.feature.Fields) == 0 {
			return nil
		}
		href := v.feature.Href
		return func() tea.Msg { return workspace.NewRecordMsg{FeatureID: href} }

	case key.Matches(msg, v.keys.Open):
		rec, ok := v.selectedRecord()
		if !ok || len(v.feature.Fields) == 0 {
			return nil
		}
		open := workspace.OpenRecordMsg{
			FeatureID: v.feature.Href,
			RecordID:  rec.ID(),
			Label:     v.feature.RecordLabel(rec),
		}
		return func() tea.Msg { return open }

	case key.Matches(msg, v.keys.Copy):
		row := v.table.Selected()
		if row == nil {
			return nil
		}
		if err := clipboard.WriteAll(row.ID); err != nil {
			return workspace.ReportError(err, "copying id")
		}
		return workspace.SetStatus("Copied "+row.ID, false)

	case key.Matches(msg, v.keys.Refresh):
		return v.restart()
	}

	v.table.Update(msg)
	return v.loadMore()
}

// nextStatus cycles "" → statuses[0] → … → statuses[n-1] → "".
func nextStatus(statuses []string, current string) string {
	if current == "" {
		return statuses[0]
	}
	for i, s := range statuses {
		if s == current && i+1 < len(statuses) {
			return statuses[i+1]
		}
	}
	return ""
}

func (v *RecordList) selectedRecord() (api.Record, bool) {
	row := v.table.Selected()
	if row == nil || v.fetcher == nil {
		return nil, false
	}
	for _, rec := range v.fetcher.State().Items {
		if rec.ID() == row.ID {
			return rec, true
		}
	}
	return nil, false
}

func (v *RecordList) syncTable() {
	st := v.State()
	locale := v.session.Locale()

	rows := make([]widget.Row, len(st.Items))
	for i, rec := range st.Items {
		cells := make([]string, len(v.feature.Columns))
		for j, c := range v.feature.Columns {
			cells[j] = locale.Value(c.Kind, rec[c.Key])
		}
		rows[i] = widget.Row{ID: rec.ID(), Cells: cells}
	}
	v.table.SetRows(rows)
	v.table.SetLoading(st.Loading && len(rows) == 0)

	switch {
	case v.buildErr != nil:
		v.table.SetEmpty(empty.LoadFailed(v.buildErr))
	case st.Err != nil:
		v.table.SetEmpty(empty.LoadFailed(st.Err))
	case v.filter != (source.Filter{}):
		v.table.SetEmpty(empty.NoMatches(v.filter.Search, v.filter.Status))
	default:
		v.table.SetEmpty(empty.NoRecords(v.feature.Title))
	}
	v.table.SetFooter(footerText(st))
}

func footerText(st data.FetchState[api.Record]) string {
	if len(st.Items) == 0 {
		return ""
	}
	text := fmt.Sprintf("%d", len(st.Items))
	if st.Total > 0 {
		text = fmt.Sprintf("%d of %d", len(st.Items), st.Total)
	}
	if st.HasMore && !st.Loading {
		text += " · more below"
	}
	return text
}

func (v *RecordList) View() string {
	var header string
	switch {
	case v.searching:
		header = v.search.View()
	default:
		var parts []string
		if v.filter.Search != "" {
			parts = append(parts, "search: "+v.filter.Search)
		}
		if v.filter.Status != "" {
			parts = append(parts, "status: "+v.filter.Status)
		}
		header = v.styles.Muted.Render(strings.Join(parts, "  "))
	}
	if st := v.State(); st.Loading {
		header = v.spinner.View() + " " + header
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, v.table.View())
}
