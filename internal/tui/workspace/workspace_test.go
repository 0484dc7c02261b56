package workspace

import (
	"errors"
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erpdesk/erpdesk/internal/api"
	"github.com/erpdesk/erpdesk/internal/catalog"
	"github.com/erpdesk/erpdesk/internal/live"
	"github.com/erpdesk/erpdesk/internal/tabs"
	"github.com/erpdesk/erpdesk/internal/tui/recents"
	"github.com/erpdesk/erpdesk/internal/tui/workspace/chrome"
	"github.com/erpdesk/erpdesk/internal/tui/workspace/data"
)

const (
	faktur    = "/dashboard/sales/faktur"
	pelanggan = "/dashboard/sales/pelanggan"
	company   = "/dashboard/company"
)

// testView satisfies View, InputCapturer, and ModalActive for workspace tests.
type testView struct {
	path        string
	msgs        []tea.Msg
	inits       int
	inputActive bool
	modalActive bool
}

func (v *testView) Init() tea.Cmd { v.inits++; return nil }
func (v *testView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	v.msgs = append(v.msgs, msg)
	return v, nil
}
func (v *testView) View() string              { return "view " + v.path }
func (v *testView) Title() string             { return v.path }
func (v *testView) ShortHelp() []key.Binding  { return nil }
func (v *testView) FullHelp() [][]key.Binding { return nil }
func (v *testView) SetSize(int, int)          {}
func (v *testView) InputActive() bool         { return v.inputActive }
func (v *testView) IsModal() bool             { return v.modalActive }

func (v *testView) received(match func(tea.Msg) bool) int {
	n := 0
	for _, m := range v.msgs {
		if match(m) {
			n++
		}
	}
	return n
}

type viewLog struct {
	views []*testView
}

func (l *viewLog) last(path string) *testView {
	for i := len(l.views) - 1; i >= 0; i-- {
		if l.views[i].path == path {
			return l.views[i]
		}
	}
	return nil
}

func (l *viewLog) count(path string) int {
	n := 0
	for _, v := range l.views {
		if v.path == path {
			n++
		}
	}
	return n
}

// testWorkspace returns an initialized workspace at the dashboard with a
// factory that records every view it builds.
func testWorkspace(t *testing.T) (*Workspace, *viewLog) {
	t.Helper()
	log := &viewLog{}
	session := NewTestSession(catalog.Default(), nil)
	t.Cleanup(session.Shutdown)

	w := New(session, func(path string, _ *Session) View {
		v := &testView{path: path}
		log.views = append(log.views, v)
		return v
	})
	w.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	w.Init()
	return w, log
}

func press(w *Workspace, s string) tea.Cmd {
	var msg tea.KeyMsg
	switch s {
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		msg = tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+w":
		msg = tea.KeyMsg{Type: tea.KeyCtrlW}
	case "ctrl+p":
		msg = tea.KeyMsg{Type: tea.KeyCtrlP}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	_, cmd := w.Update(msg)
	return cmd
}

func navigate(w *Workspace, path string) {
	w.Update(NavigateMsg{Path: path})
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestWorkspace_StartsOnRoutedDashboard(t *testing.T) {
	w, log := testWorkspace(t)

	assert.Equal(t, HomePath, w.Path())
	out := w.Outcome()
	assert.True(t, out.Routed)
	assert.Empty(t, out.Mounted)
	require.NotNil(t, log.last(HomePath))
	assert.Equal(t, 1, log.last(HomePath).inits)
}

func TestWorkspace_StartsOnRestoredActiveFeature(t *testing.T) {
	log := &viewLog{}
	session := NewTestSession(catalog.Default(), nil)
	session.Tabs().OpenFeatureTab(pelanggan)
	session.Tabs().OpenFeatureTab(faktur)
	w := New(session, func(path string, _ *Session) View {
		v := &testView{path: path}
		log.views = append(log.views, v)
		return v
	})
	t.Cleanup(session.Shutdown)
	w.Init()

	assert.Equal(t, faktur, w.Path())
	assert.ElementsMatch(t, []string{faktur, pelanggan}, w.Outcome().Mounted)
	assert.Equal(t, faktur, w.Outcome().Visible)
}

func TestWorkspace_NavigateRegisteredMountsFeature(t *testing.T) {
	w, log := testWorkspace(t)

	navigate(w, faktur)

	out := w.Outcome()
	assert.False(t, out.Routed)
	assert.Equal(t, faktur, out.Visible)
	assert.Equal(t, []string{faktur}, out.Mounted)
	assert.Equal(t, 1, log.last(faktur).inits)
	assert.Equal(t, faktur, w.session.Tabs().ActiveFeatureID())
}

func TestWorkspace_RoutedPathKeepsFeatureViewsAlive(t *testing.T) {
	w, log := testWorkspace(t)
	navigate(w, faktur)
	fakturView := log.last(faktur)

	navigate(w, company)
	out := w.Outcome()
	assert.True(t, out.Routed)
	assert.Empty(t, out.Visible)
	assert.Equal(t, []string{faktur}, out.Mounted)
	assert.Contains(t, ansi.Strip(w.View()), "view "+company)

	navigate(w, faktur)
	assert.Equal(t, 1, log.count(faktur), "returning must not rebuild the view")
	assert.Same(t, fakturView, log.last(faktur))
	assert.Equal(t, 1, fakturView.inits)
}

func TestWorkspace_FocusBlurOnVisibilityChange(t *testing.T) {
	w, log := testWorkspace(t)
	navigate(w, faktur)
	navigate(w, pelanggan)

	isFocus := func(m tea.Msg) bool { _, ok := m.(FocusMsg); return ok }
	isBlur := func(m tea.Msg) bool { _, ok := m.(BlurMsg); return ok }

	assert.Equal(t, 1, log.last(faktur).received(isFocus))
	assert.Equal(t, 1, log.last(faktur).received(isBlur))
	assert.Equal(t, 1, log.last(pelanggan).received(isFocus))
	assert.Equal(t, 0, log.last(pelanggan).received(isBlur))
}

func TestWorkspace_AsyncMessagesReachHiddenViews(t *testing.T) {
	w, log := testWorkspace(t)
	navigate(w, faktur)
	navigate(w, pelanggan)

	w.Update(data.PageLoadedMsg{Key: faktur})

	isPage := func(m tea.Msg) bool { _, ok := m.(data.PageLoadedMsg); return ok }
	assert.Equal(t, 1, log.last(faktur).received(isPage))
	assert.Equal(t, 1, log.last(pelanggan).received(isPage))
}

func TestWorkspace_KeysGoOnlyToVisibleView(t *testing.T) {
	w, log := testWorkspace(t)
	navigate(w, faktur)
	navigate(w, pelanggan)

	press(w, "j")

	isJ := func(m tea.Msg) bool { k, ok := m.(tea.KeyMsg); return ok && k.String() == "j" }
	assert.Equal(t, 1, log.last(pelanggan).received(isJ))
	assert.Equal(t, 0, log.last(faktur).received(isJ))
}

func TestWorkspace_FeatureCyclingAndNumbers(t *testing.T) {
	w, _ := testWorkspace(t)
	navigate(w, faktur)
	navigate(w, pelanggan)

	press(w, "]")
	assert.Equal(t, faktur, w.Outcome().Visible)
	press(w, "[")
	assert.Equal(t, pelanggan, w.Outcome().Visible)

	press(w, "1")
	assert.Equal(t, faktur, w.Outcome().Visible)
	assert.Equal(t, faktur, w.Path())

	press(w, "9")
	assert.Equal(t, faktur, w.Outcome().Visible, "missing tab number is a no-op")
}

func TestWorkspace_CloseFeatureFallsBack(t *testing.T) {
	w, log := testWorkspace(t)
	navigate(w, faktur)
	navigate(w, pelanggan)

	press(w, "X")
	out := w.Outcome()
	assert.Equal(t, []string{faktur}, out.Mounted)
	assert.Equal(t, faktur, out.Visible)
	assert.Equal(t, faktur, w.Path())

	press(w, "X")
	assert.Empty(t, w.Outcome().Mounted)
	assert.Equal(t, HomePath, w.Path())
	assert.True(t, w.Outcome().Routed)

	// Reopening builds a fresh view.
	navigate(w, faktur)
	assert.Equal(t, 2, log.count(faktur))
}

func TestWorkspace_CloseDirtyFeatureNeedsSecondPress(t *testing.T) {
	w, _ := testWorkspace(t)
	navigate(w, faktur)
	reg := w.session.Tabs()
	reg.OpenDataTab(faktur, tabs.NewTab[api.Record](faktur))
	reg.MarkDataTabDirty(faktur, tabs.NewTabID(faktur), true)

	press(w, "X")
	_, open := reg.FeatureTab(faktur)
	assert.True(t, open, "first press only warns")
	assert.True(t, w.toast.Visible())

	press(w, "j")
	press(w, "X")
	_, open = reg.FeatureTab(faktur)
	assert.True(t, open, "another key in between resets the confirmation")

	press(w, "X")
	_, open = reg.FeatureTab(faktur)
	assert.False(t, open)
}

func TestWorkspace_DataTabLifecycle(t *testing.T) {
	w, log := testWorkspace(t)
	navigate(w, faktur)
	reg := w.session.Tabs()

	w.Update(OpenRecordMsg{FeatureID: faktur, RecordID: "7", Label: "INV-007"})
	active, ok := reg.ActiveDataTab()
	require.True(t, ok)
	assert.Equal(t, tabs.EditTabID(faktur, "7"), active.ID)
	assert.Equal(t, "Edit: INV-007", active.Title)

	isTabs := func(m tea.Msg) bool { _, ok := m.(TabsChangedMsg); return ok }
	assert.Positive(t, log.last(faktur).received(isTabs))

	w.Update(NewRecordMsg{FeatureID: faktur})
	press(w, "<")
	active, _ = reg.ActiveDataTab()
	assert.Equal(t, tabs.EditTabID(faktur, "7"), active.ID)

	press(w, "ctrl+w")
	active, _ = reg.ActiveDataTab()
	assert.Equal(t, tabs.ListTabID(faktur), active.ID)

	press(w, "ctrl+w")
	f, _ := reg.FeatureTab(faktur)
	assert.Len(t, f.DataTabs, 2, "list tab is not closable")
	assert.True(t, w.toast.Visible())
}

func TestWorkspace_RecordSavedClosesTab(t *testing.T) {
	w, log := testWorkspace(t)
	navigate(w, faktur)
	reg := w.session.Tabs()
	w.Update(NewRecordMsg{FeatureID: faktur})

	w.Update(RecordSavedMsg{FeatureID: faktur, TabID: tabs.NewTabID(faktur), Err: errors.New("boom")})
	_, ok := reg.DataTab(faktur, tabs.NewTabID(faktur))
	assert.True(t, ok, "failed save keeps the tab")
	assert.Contains(t, ansi.Strip(w.toast.View()), "boom")

	w.Update(RecordSavedMsg{FeatureID: faktur, TabID: tabs.NewTabID(faktur), Message: "Faktur created"})
	_, ok = reg.DataTab(faktur, tabs.NewTabID(faktur))
	assert.False(t, ok)
	assert.Contains(t, ansi.Strip(w.toast.View()), "Faktur created")

	isSaved := func(m tea.Msg) bool { _, ok := m.(RecordSavedMsg); return ok }
	assert.Equal(t, 2, log.last(faktur).received(isSaved))
}

func TestWorkspace_BackNavigation(t *testing.T) {
	w, _ := testWorkspace(t)
	navigate(w, faktur)
	navigate(w, company)

	press(w, "esc")
	assert.Equal(t, faktur, w.Path())
	assert.Equal(t, faktur, w.Outcome().Visible)

	press(w, "esc")
	assert.Equal(t, HomePath, w.Path())
	assert.True(t, w.Outcome().Routed)

	assert.True(t, isQuit(press(w, "esc")), "esc at the root quits")
}

func TestWorkspace_BackSkipsClosedFeatures(t *testing.T) {
	w, _ := testWorkspace(t)
	navigate(w, pelanggan)
	navigate(w, faktur)
	w.closeFeature(pelanggan)

	press(w, "esc")
	assert.Equal(t, HomePath, w.Path())
}

func TestWorkspace_ModalEscGoesToView(t *testing.T) {
	w, log := testWorkspace(t)
	navigate(w, faktur)
	log.last(faktur).modalActive = true

	press(w, "esc")
	assert.Equal(t, faktur, w.Path())
	isEsc := func(m tea.Msg) bool { k, ok := m.(tea.KeyMsg); return ok && k.Type == tea.KeyEsc }
	assert.Equal(t, 1, log.last(faktur).received(isEsc))
}

func TestWorkspace_InputCaptureSkipsGlobals(t *testing.T) {
	w, log := testWorkspace(t)
	navigate(w, faktur)
	log.last(faktur).inputActive = true

	assert.False(t, isQuit(press(w, "q")))
	press(w, "X")
	_, open := w.session.Tabs().FeatureTab(faktur)
	assert.True(t, open)

	isQ := func(m tea.Msg) bool { k, ok := m.(tea.KeyMsg); return ok && k.String() == "q" }
	assert.Equal(t, 1, log.last(faktur).received(isQ))

	assert.True(t, isQuit(press(w, "ctrl+c")))
}

func TestWorkspace_QuitKey(t *testing.T) {
	w, _ := testWorkspace(t)
	assert.True(t, isQuit(press(w, "q")))
	assert.Empty(t, w.View())
}

func TestWorkspace_RefreshForwardsToVisibleView(t *testing.T) {
	w, log := testWorkspace(t)
	navigate(w, faktur)

	press(w, "r")
	isRefresh := func(m tea.Msg) bool { _, ok := m.(RefreshMsg); return ok }
	assert.Equal(t, 1, log.last(faktur).received(isRefresh))
}

func TestWorkspace_JumpNavigates(t *testing.T) {
	w, _ := testWorkspace(t)

	press(w, "ctrl+p")
	assert.True(t, w.showJump)

	w.Update(chrome.JumpSelectMsg{Href: pelanggan})
	assert.False(t, w.showJump)
	assert.Equal(t, pelanggan, w.Outcome().Visible)
}

func TestWorkspace_JumpOffersRecentFirst(t *testing.T) {
	w, _ := testWorkspace(t)
	w.session.SetRecents(recents.NewStore(t.TempDir()), "http://localhost:4000")

	navigate(w, company)
	navigate(w, pelanggan)
	assert.Equal(t, []string{pelanggan, company}, w.session.Recent(), "the dashboard is not recorded")

	press(w, "ctrl+p")
	items := w.jump.Filtered()
	require.GreaterOrEqual(t, len(items), 3)
	assert.Equal(t, pelanggan, items[0].Href)
	assert.Equal(t, company, items[1].Href)
	assert.Len(t, items, len(w.jumpItems))
}

func TestRecentFirst(t *testing.T) {
	items := []chrome.JumpItem{{Href: "/a"}, {Href: "/b"}, {Href: "/c"}}

	got := recentFirst(items, []string{"/c", "/gone", "/a"})
	assert.Equal(t, []chrome.JumpItem{{Href: "/c"}, {Href: "/a"}, {Href: "/b"}}, got)
	assert.Equal(t, items, recentFirst(items, nil))
}

func TestWorkspace_SidebarSelectNavigates(t *testing.T) {
	w, _ := testWorkspace(t)

	press(w, "m")
	assert.True(t, w.sidebarActive())
	assert.True(t, w.sidebar.Focused())

	w.Update(chrome.SidebarSelectMsg{Href: faktur})
	assert.False(t, w.sidebar.Focused())
	assert.Equal(t, faktur, w.Outcome().Visible)
	assert.Contains(t, ansi.Strip(w.View()), "Faktur")
}

func TestWorkspace_LiveEventsBroadcast(t *testing.T) {
	log := &viewLog{}
	session := NewTestSession(catalog.Default(), nil)
	broker := live.NewBroker[live.Event]()
	session.SetLive(broker)
	w := New(session, func(path string, _ *Session) View {
		v := &testView{path: path}
		log.views = append(log.views, v)
		return v
	})
	w.Init()
	navigate(w, faktur)
	require.Equal(t, 1, broker.ClientCount())

	cmd := w.listenLive()
	broker.Publish(live.Event{Type: live.RecordUpdated, Resource: "/fakturs", ID: "7"})
	msg := cmd()
	evt, ok := msg.(LiveEventMsg)
	require.True(t, ok)
	w.Update(evt)

	isLive := func(m tea.Msg) bool { _, ok := m.(LiveEventMsg); return ok }
	assert.Equal(t, 1, log.last(faktur).received(isLive))

	press(w, "q")
	assert.Equal(t, 0, broker.ClientCount())
}

func TestWorkspace_ChromeShowsTabsAndTrail(t *testing.T) {
	w, _ := testWorkspace(t)
	navigate(w, faktur)
	w.Update(OpenRecordMsg{FeatureID: faktur, RecordID: "7", Label: "INV-007"})

	assert.Equal(t, []string{"Penjualan", "Faktur", "Edit: INV-007"}, w.breadcrumb.Crumbs())
	view := ansi.Strip(w.View())
	assert.Regexp(t, `1 .*Faktur`, view)
	assert.Contains(t, view, "Edit: INV-007")
}

func TestMenuTrail(t *testing.T) {
	cat := catalog.Default()
	assert.Equal(t, []string{"Penjualan", "Pelanggan"}, menuTrail(cat, pelanggan))
	assert.Equal(t, []string{"/nowhere"}, menuTrail(cat, "/nowhere"))
}
