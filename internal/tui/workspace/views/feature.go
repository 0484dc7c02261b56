package views

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/erpdesk/erpdesk/internal/catalog"
	"github.com/erpdesk/erpdesk/internal/tabs"
	"github.com/erpdesk/erpdesk/internal/tui/workspace"
)

// Feature is the persistent view of a registered menu destination. It owns
// the feature's list and one form per open new or edit tab, and shows
// whichever data tab is active.
type Feature struct {
	session *workspace.Session
	feature catalog.Feature
	list    *RecordList
	forms   map[string]*RecordForm

	width, height int
}

// NewFeature creates the view for f.
func NewFeature(session *workspace.Session, f catalog.Feature) *Feature {
	return &Feature{
		session: session,
		feature: f,
		list:    NewRecordList(session, f),
		forms:   map[string]*RecordForm{},
	}
}

func (v *Feature) Title() string { return v.feature.Title }

func (v *Feature) ShortHelp() []key.Binding { return v.active().ShortHelp() }

func (v *Feature) FullHelp() [][]key.Binding { return v.active().FullHelp() }

func (v *Feature) InputActive() bool {
	if ic, ok := v.active().(workspace.InputCapturer); ok {
		return ic.InputActive()
	}
	return false
}

func (v *Feature) IsModal() bool {
	if m, ok := v.active().(workspace.ModalActive); ok {
		return m.IsModal()
	}
	return false
}

func (v *Feature) SetSize(w, h int) {
	v.width, v.height = w, h
	v.list.SetSize(w, h)
	for _, f := range v.forms {
		f.SetSize(w, h)
	}
}

// List returns the feature's list.
func (v *Feature) List() *RecordList { return v.list }

// Form returns the form of data tab tabID, if it is open.
func (v *Feature) Form(tabID string) (*RecordForm, bool) {
	f, ok := v.forms[tabID]
	return f, ok
}

// active returns the component of the active data tab. Until the registry
// has caught up, or when the active tab is the list, that is the list.
func (v *Feature) active() workspace.View {
	ft, ok := v.session.Tabs().FeatureTab(v.feature.Href)
	if !ok {
		return v.list
	}
	if f, ok := v.forms[ft.ActiveDataTabID]; ok {
		return f
	}
	return v.list
}

func (v *Feature) Init() tea.Cmd {
	return tea.Batch(v.list.Init(), v.reconcile())
}

// reconcile mounts a form for every new or edit tab the registry holds and
// drops forms whose tab was closed.
func (v *Feature) reconcile() tea.Cmd {
	ft, ok := v.session.Tabs().FeatureTab(v.feature.Href)
	if !ok {
		return nil
	}

	open := make(map[string]bool, len(ft.DataTabs))
	var cmds []tea.Cmd
	for _, t := range ft.DataTabs {
		if t.ID == tabs.ListTabID(v.feature.Href) {
			continue
		}
		open[t.ID] = true
		if _, ok := v.forms[t.ID]; ok {
			continue
		}
		form := NewRecordForm(v.session, v.feature, t.ID)
		form.SetSize(v.width, v.height)
		v.forms[t.ID] = form
		cmds = append(cmds, form.Init())
	}
	for id := range v.forms {
		if !open[id] {
			delete(v.forms, id)
		}
	}
	return tea.Batch(cmds...)
}

func (v *Feature) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case workspace.TabsChangedMsg:
		return v, v.reconcile()

	case tea.KeyMsg, workspace.RefreshMsg:
		_, cmd := v.active().Update(msg)
		return v, cmd
	}

	// Results and ticks go to every child, visible or not.
	var cmds []tea.Cmd
	_, cmd := v.list.Update(msg)
	cmds = append(cmds, cmd)
	for _, f := range v.forms {
		_, cmd := f.Update(msg)
		cmds = append(cmds, cmd)
	}
	return v, tea.Batch(cmds...)
}

func (v *Feature) View() string {
	return v.active().View()
}
