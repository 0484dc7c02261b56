package workspace

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/erpdesk/erpdesk/internal/api"
	"github.com/erpdesk/erpdesk/internal/catalog"
	"github.com/erpdesk/erpdesk/internal/live"
	"github.com/erpdesk/erpdesk/internal/tabs"
	"github.com/erpdesk/erpdesk/internal/tui"
	"github.com/erpdesk/erpdesk/internal/tui/workspace/chrome"
	"github.com/erpdesk/erpdesk/internal/tui/workspace/viewmgr"
)

// HomePath is the routed landing page.
const HomePath = "/dashboard"

// chromeHeight is the vertical space taken by the feature tab bar, the
// breadcrumb, the data tab bar, the divider (or toast) and the status bar.
const chromeHeight = 5

const (
	sidebarWidth    = 28
	sidebarMinWidth = 80
)

// themeLoadedMsg carries a theme re-read after the theme file changed.
type themeLoadedMsg struct {
	theme tui.Theme
}

// Workspace is the root tea.Model. Feature views live in the view manager
// for as long as their feature tab is open; routed content for
// unregistered paths lives in the router history.
type Workspace struct {
	session *Session
	router  *Router
	views   *viewmgr.Manager[View]
	styles  *tui.Styles
	keys    GlobalKeyMap
	factory ViewFactory

	// Chrome
	featureBar chrome.TabBar
	dataBar    chrome.TabBar
	breadcrumb chrome.Breadcrumb
	statusBar  chrome.StatusBar
	toast      chrome.Toast
	help       chrome.Help
	jump       chrome.Jump
	jumpItems  []chrome.JumpItem
	sidebar    chrome.Sidebar

	// State
	path         string
	showHelp     bool
	showJump     bool
	showSidebar  bool
	quitting     bool
	pendingClose string
	lastTitle    string

	liveID  int64
	liveCh  <-chan live.Event
	themeCh <-chan tui.Theme

	width, height int
}

// New creates a new Workspace model.
func New(session *Session, factory ViewFactory) *Workspace {
	styles := session.Styles()
	w := &Workspace{
		session:    session,
		router:     NewRouter(),
		styles:     styles,
		keys:       DefaultGlobalKeyMap(),
		factory:    factory,
		featureBar: chrome.NewFeatureTabBar(styles),
		dataBar:    chrome.NewDataTabBar(styles),
		breadcrumb: chrome.NewBreadcrumb(styles),
		statusBar:  chrome.NewStatusBar(styles),
		toast:      chrome.NewToast(styles),
		help:       chrome.NewHelp(styles),
		jump:       chrome.NewJump(styles),
		sidebar:    chrome.NewSidebar(styles, session.Catalog().Menu),
	}
	w.views = viewmgr.New[View](session.Catalog(), func(f viewmgr.Feature) View {
		return factory(f.Href, session)
	})
	w.jumpItems = jumpItems(session.Catalog().Menu)
	w.jump.SetItems(w.jumpItems)
	if src := session.Source(); src != nil {
		w.statusBar.SetSource(src.Name())
	}
	return w
}

// SetKeys replaces the global key bindings, e.g. with user overrides.
func (w *Workspace) SetKeys(keys GlobalKeyMap) {
	w.keys = keys
}

// Init opens the active feature of a restored session, or the dashboard.
func (w *Workspace) Init() tea.Cmd {
	start := HomePath
	if f, ok := w.session.Tabs().ActiveFeatureTab(); ok {
		start = f.Href
	}
	cmds := []tea.Cmd{w.navigate(start), w.listenLive()}
	if path := tui.ThemePath(); path != "" {
		w.themeCh = tui.WatchTheme(w.session.Context(), path)
		cmds = append(cmds, w.waitTheme())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model. Chrome is resynced after every message so
// dirty marks and titles follow edits made inside views.
func (w *Workspace) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := w.update(msg)
	w.syncChrome()
	return w, cmd
}

func (w *Workspace) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w.width = msg.Width
		w.height = msg.Height
		w.relayout()
		return nil

	case tea.KeyMsg:
		return w.handleKey(msg)

	case NavigateMsg:
		return w.navigate(msg.Path)

	case NavigateBackMsg:
		return w.goBack()

	case chrome.SidebarSelectMsg:
		w.sidebar.Blur()
		return w.navigate(msg.Href)

	case chrome.SidebarBlurMsg:
		w.sidebar.Blur()
		return nil

	case chrome.JumpSelectMsg:
		w.closeJump()
		return w.navigate(msg.Href)

	case chrome.JumpCloseMsg:
		w.closeJump()
		return nil

	case OpenRecordMsg:
		w.session.Tabs().OpenDataTab(msg.FeatureID, tabs.EditTab[api.Record](msg.FeatureID, msg.RecordID, msg.Label))
		return w.sync()

	case NewRecordMsg:
		w.session.Tabs().OpenDataTab(msg.FeatureID, tabs.NewTab[api.Record](msg.FeatureID))
		return w.sync()

	case ActivateDataTabMsg:
		w.session.Tabs().SetActiveDataTab(msg.FeatureID, msg.TabID)
		return w.sync()

	case CloseDataTabMsg:
		w.session.Tabs().CloseDataTab(msg.FeatureID, msg.TabID)
		return w.sync()

	case RecordSavedMsg:
		cmd := w.broadcast(msg)
		if msg.Err != nil {
			return tea.Batch(cmd, w.toast.Show("Save failed: "+msg.Err.Error(), true))
		}
		w.session.Tabs().CloseDataTab(msg.FeatureID, msg.TabID)
		text := msg.Message
		if text == "" {
			text = "Saved"
		}
		return tea.Batch(cmd, w.sync(), w.toast.Show(text, false))

	case LiveEventMsg:
		return tea.Batch(w.broadcast(msg), w.listenLive())

	case themeLoadedMsg:
		w.styles.UpdateTheme(msg.theme)
		return tea.Batch(w.broadcast(ThemeChangedMsg{}), w.waitTheme())

	case StatusMsg:
		w.statusBar.SetStatus(msg.Text, msg.IsError)
		return nil

	case ErrorMsg:
		text := msg.Err.Error()
		if msg.Context != "" {
			text = msg.Context + ": " + text
		}
		return w.toast.Show(text, true)
	}

	if cmd := w.toast.Update(msg); cmd != nil {
		return cmd
	}
	// Page results, spinner ticks and the like go to every mounted view
	// so hidden ones stay current.
	return w.broadcast(msg)
}

func (w *Workspace) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return w.quit()
	}

	if w.showHelp {
		closeHelp, cmd := w.help.Update(msg)
		if closeHelp {
			w.showHelp = false
		}
		return cmd
	}
	if w.showJump {
		return w.jump.Update(msg)
	}
	if w.sidebarActive() && w.sidebar.Focused() {
		if key.Matches(msg, w.keys.Jump) {
			return w.openJump()
		}
		return w.sidebar.Update(msg)
	}

	view := w.visibleView()
	if ic, ok := view.(InputCapturer); ok && ic.InputActive() {
		// Only ctrl chords are global while a view captures text.
		switch {
		case key.Matches(msg, w.keys.Jump):
			return w.openJump()
		case msg.String() == "ctrl+b":
			return w.toggleSidebar()
		case key.Matches(msg, w.keys.CloseDataTab):
			return w.closeActiveDataTab()
		}
		return w.updateVisible(msg)
	}

	if !key.Matches(msg, w.keys.CloseFeature) {
		w.pendingClose = ""
	}

	switch {
	case key.Matches(msg, w.keys.Quit):
		return w.quit()

	case key.Matches(msg, w.keys.Help):
		w.showHelp = true
		w.help.ResetScroll()
		return nil

	case key.Matches(msg, w.keys.Back):
		if ma, ok := view.(ModalActive); ok && ma.IsModal() {
			return w.updateVisible(msg)
		}
		if w.router.CanGoBack() {
			return w.goBack()
		}
		return w.quit()

	case key.Matches(msg, w.keys.Jump):
		return w.openJump()

	case key.Matches(msg, w.keys.Sidebar):
		return w.toggleSidebar()

	case key.Matches(msg, w.keys.SidebarFocus) && w.sidebarActive():
		w.sidebar.Focus()
		return nil

	case key.Matches(msg, w.keys.NextFeature):
		return w.cycleFeature(1)

	case key.Matches(msg, w.keys.PrevFeature):
		return w.cycleFeature(-1)

	case key.Matches(msg, w.keys.NextDataTab):
		return w.cycleDataTab(1)

	case key.Matches(msg, w.keys.PrevDataTab):
		return w.cycleDataTab(-1)

	case key.Matches(msg, w.keys.CloseDataTab):
		return w.closeActiveDataTab()

	case key.Matches(msg, w.keys.CloseFeature):
		return w.closeActiveFeature()

	case key.Matches(msg, w.keys.Refresh):
		return w.updateVisible(RefreshMsg{})
	}

	// 1-9 pick a feature tab.
	if msg.Type == tea.KeyRunes && len(msg.Runes) == 1 {
		if r := msg.Runes[0]; r >= '1' && r <= '9' {
			features := w.session.Tabs().FeatureTabs()
			if i := int(r - '1'); i < len(features) {
				return w.activateFeature(features[i].ID)
			}
			return nil
		}
	}

	return w.updateVisible(msg)
}

// navigate shows path. A registered path opens or re-activates its
// feature; anything else gets routed content.
func (w *Workspace) navigate(path string) tea.Cmd {
	if path == "" {
		return nil
	}
	w.pendingClose = ""
	if path != HomePath {
		w.session.Visited(path, w.session.Catalog().Title(path))
	}
	if w.session.Catalog().IsRegistered(path) {
		w.session.Tabs().OpenFeatureTab(path)
		w.path = path
		w.router.Push(path, nil)
		return w.sync()
	}

	view := w.factory(path, w.session)
	view.SetSize(w.contentSize())
	w.path = path
	w.router.Push(path, view)
	return tea.Batch(view.Init(), w.sync())
}

func (w *Workspace) activateFeature(id string) tea.Cmd {
	f, ok := w.session.Tabs().FeatureTab(id)
	if !ok {
		return nil
	}
	w.session.Tabs().SetActiveFeatureTab(id)
	w.path = f.Href
	w.router.Push(f.Href, nil)
	return w.sync()
}

func (w *Workspace) goBack() tea.Cmd {
	prev := w.router.Pop()
	if prev == "" {
		return nil
	}
	w.path = prev
	if w.session.Catalog().IsRegistered(prev) {
		w.session.Tabs().OpenFeatureTab(prev)
	}
	return w.sync()
}

func (w *Workspace) cycleFeature(delta int) tea.Cmd {
	features := w.session.Tabs().FeatureTabs()
	if len(features) == 0 {
		return nil
	}
	cur := -1
	if !w.views.Routed() {
		active := w.session.Tabs().ActiveFeatureID()
		for i, f := range features {
			if f.ID == active {
				cur = i
			}
		}
	}
	next := (cur + delta + len(features)) % len(features)
	if cur < 0 && delta < 0 {
		next = len(features) - 1
	}
	return w.activateFeature(features[next].ID)
}

func (w *Workspace) cycleDataTab(delta int) tea.Cmd {
	if w.views.Routed() {
		return nil
	}
	f, ok := w.session.Tabs().ActiveFeatureTab()
	if !ok || len(f.DataTabs) < 2 {
		return nil
	}
	cur := 0
	for i, t := range f.DataTabs {
		if t.ID == f.ActiveDataTabID {
			cur = i
		}
	}
	next := (cur + delta + len(f.DataTabs)) % len(f.DataTabs)
	w.session.Tabs().SetActiveDataTab(f.ID, f.DataTabs[next].ID)
	return w.sync()
}

func (w *Workspace) closeActiveDataTab() tea.Cmd {
	if w.views.Routed() {
		return nil
	}
	t, ok := w.session.Tabs().ActiveDataTab()
	if !ok {
		return nil
	}
	featureID := w.session.Tabs().ActiveFeatureID()
	if t.ID == tabs.ListTabID(featureID) {
		return w.toast.Show("The list tab stays open. X closes the feature.", false)
	}
	w.session.Tabs().CloseDataTab(featureID, t.ID)
	return w.sync()
}

// closeActiveFeature closes the visible feature. A feature with unsaved
// drafts needs a second press.
func (w *Workspace) closeActiveFeature() tea.Cmd {
	if w.views.Routed() {
		return nil
	}
	id := w.session.Tabs().ActiveFeatureID()
	if id == "" {
		return nil
	}
	if w.session.Tabs().Dirty(id) && w.pendingClose != id {
		w.pendingClose = id
		title := w.session.Catalog().Title(id)
		return w.toast.Show(fmt.Sprintf("%s has unsaved changes. Press X again to close.", title), true)
	}
	w.pendingClose = ""
	return w.closeFeature(id)
}

func (w *Workspace) closeFeature(id string) tea.Cmd {
	f, ok := w.session.Tabs().FeatureTab(id)
	if !ok {
		return nil
	}
	w.session.Tabs().CloseFeatureTab(id)
	w.router.Forget(f.Href)
	if w.router.CurrentPath() == f.Href {
		w.router.Reset()
	}
	if w.path != f.Href {
		return w.sync()
	}
	if next, ok := w.session.Tabs().ActiveFeatureTab(); ok {
		return w.activateFeature(next.ID)
	}
	return w.navigate(HomePath)
}

// sync reconciles mounted views with the registry and the current path.
func (w *Workspace) sync() tea.Cmd {
	reg := w.session.Tabs()
	open := reg.FeatureTabs()
	features := make([]viewmgr.Feature, len(open))
	for i, f := range open {
		features[i] = viewmgr.Feature{ID: f.ID, Href: f.Href}
	}

	prevID, _, _ := w.views.Visible()
	changes := w.views.Sync(w.path, features, reg.ActiveFeatureID())

	var cmds []tea.Cmd
	cw, ch := w.contentSize()
	for _, id := range changes.Mounted {
		if v, ok := w.views.View(id); ok {
			v.SetSize(cw, ch)
			cmds = append(cmds, v.Init())
		}
	}
	cmds = append(cmds, w.broadcast(TabsChangedMsg{}))

	if id, _, _ := w.views.Visible(); id != prevID {
		if v, ok := w.views.View(prevID); ok {
			cmds = append(cmds, w.send(prevID, v, BlurMsg{}))
		}
		if v, ok := w.views.View(id); ok {
			cmds = append(cmds, w.send(id, v, FocusMsg{}))
		}
	}
	if rv := w.router.Current(); rv != nil {
		rv.SetSize(cw, ch)
	}

	w.syncChrome()
	if title := w.currentTitle(); title != w.lastTitle {
		w.lastTitle = title
		cmds = append(cmds, chrome.SetTerminalTitle(title))
	}
	return tea.Batch(cmds...)
}

func (w *Workspace) send(id string, v View, msg tea.Msg) tea.Cmd {
	updated, cmd := v.Update(msg)
	w.views.Set(id, asView(updated, v))
	return cmd
}

// broadcast delivers msg to every mounted view and to the routed view on
// screen.
func (w *Workspace) broadcast(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	w.views.Each(func(_ string, v View) View {
		updated, cmd := v.Update(msg)
		cmds = append(cmds, cmd)
		return asView(updated, v)
	})
	if w.views.Routed() {
		if rv := w.router.Current(); rv != nil {
			updated, cmd := rv.Update(msg)
			w.router.Replace(asView(updated, rv))
			cmds = append(cmds, cmd)
		}
	}
	return tea.Batch(cmds...)
}

// visibleView returns the view on screen: the active feature's view for a
// registered path, routed content otherwise.
func (w *Workspace) visibleView() View {
	if !w.views.Routed() {
		if _, v, ok := w.views.Visible(); ok {
			return v
		}
		return nil
	}
	return w.router.Current()
}

func (w *Workspace) updateVisible(msg tea.Msg) tea.Cmd {
	if !w.views.Routed() {
		id, v, ok := w.views.Visible()
		if !ok {
			return nil
		}
		return w.send(id, v, msg)
	}
	rv := w.router.Current()
	if rv == nil {
		return nil
	}
	updated, cmd := rv.Update(msg)
	w.router.Replace(asView(updated, rv))
	return cmd
}

func asView(m tea.Model, fallback View) View {
	if v, ok := m.(View); ok {
		return v
	}
	return fallback
}

func (w *Workspace) listenLive() tea.Cmd {
	b := w.session.Live()
	if b == nil {
		return nil
	}
	if w.liveCh == nil {
		w.liveID, w.liveCh = b.Subscribe()
	}
	ch := w.liveCh
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return nil
		}
		return LiveEventMsg{Event: evt}
	}
}

func (w *Workspace) waitTheme() tea.Cmd {
	ch := w.themeCh
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		theme, ok := <-ch
		if !ok {
			return nil
		}
		return themeLoadedMsg{theme: theme}
	}
}

func (w *Workspace) quit() tea.Cmd {
	w.quitting = true
	if b := w.session.Live(); b != nil && w.liveCh != nil {
		b.Unsubscribe(w.liveID)
	}
	return tea.Quit
}

func (w *Workspace) openJump() tea.Cmd {
	w.showJump = true
	w.showHelp = false
	w.jump.SetItems(recentFirst(w.jumpItems, w.session.Recent()))
	return w.jump.Focus()
}

func (w *Workspace) closeJump() {
	w.showJump = false
	w.jump.Blur()
}

func (w *Workspace) toggleSidebar() tea.Cmd {
	w.showSidebar = !w.showSidebar
	if w.showSidebar {
		w.sidebar.Focus()
	} else {
		w.sidebar.Blur()
	}
	w.relayout()
	return nil
}

func (w *Workspace) sidebarActive() bool {
	return w.showSidebar && w.width >= sidebarMinWidth
}

// currentTitle names what is on screen for the window title.
func (w *Workspace) currentTitle() string {
	if v := w.visibleView(); v != nil {
		return v.Title()
	}
	return w.session.Catalog().Title(w.path)
}

func (w *Workspace) syncChrome() {
	reg := w.session.Tabs()
	routed := w.views.Routed()
	active := reg.ActiveFeatureID()

	features := reg.FeatureTabs()
	items := make([]chrome.TabItem, len(features))
	var current tabs.FeatureTab[api.Record]
	for i, f := range features {
		isActive := !routed && f.ID == active
		items[i] = chrome.TabItem{Title: f.Title, Icon: f.Icon, Active: isActive, Dirty: f.Dirty()}
		if isActive {
			current = f
		}
	}
	w.featureBar.SetItems(items)

	var dataItems []chrome.TabItem
	var tabTitle string
	for _, t := range current.DataTabs {
		isActive := t.ID == current.ActiveDataTabID
		dataItems = append(dataItems, chrome.TabItem{Title: t.Title, Active: isActive, Dirty: t.Dirty})
		if isActive && t.ID != tabs.ListTabID(current.ID) {
			tabTitle = t.Title
		}
	}
	w.dataBar.SetItems(dataItems)

	crumbs := menuTrail(w.session.Catalog(), w.path)
	if tabTitle != "" {
		crumbs = append(crumbs, tabTitle)
	}
	w.breadcrumb.SetCrumbs(crumbs)
	w.sidebar.SetActive(w.path)

	w.help.SetGlobalKeys(w.keys.FullHelp())
	w.statusBar.SetGlobalHints(w.keys.ShortHelp())
	if v := w.visibleView(); v != nil {
		w.statusBar.SetKeyHints(v.ShortHelp())
		w.help.SetViewTitle(v.Title())
		w.help.SetViewKeys(v.FullHelp())
	} else {
		w.statusBar.SetKeyHints(nil)
		w.help.SetViewKeys(nil)
	}
}

// menuTrail returns the menu section and title of href.
func menuTrail(cat *catalog.Catalog, href string) []string {
	for _, e := range cat.Menu {
		if e.Href == href {
			return []string{e.Title}
		}
		for _, it := range e.Items {
			if it.Href == href {
				return []string{e.Title, it.Title}
			}
		}
	}
	if t := cat.Title(href); t != "" {
		return []string{t}
	}
	return []string{href}
}

// jumpItems flattens the menu into jump destinations.
func jumpItems(menu []catalog.MenuEntry) []chrome.JumpItem {
	var out []chrome.JumpItem
	for _, e := range menu {
		if e.Href != "" {
			out = append(out, chrome.JumpItem{Title: e.Title, Href: e.Href})
		}
		for _, it := range e.Items {
			if it.Href != "" {
				out = append(out, chrome.JumpItem{Title: it.Title, Section: e.Title, Href: it.Href})
			}
		}
	}
	return out
}

// recentFirst moves recently visited destinations to the top, keeping menu
// order for the rest.
func recentFirst(items []chrome.JumpItem, recent []string) []chrome.JumpItem {
	if len(recent) == 0 {
		return items
	}
	byHref := make(map[string]chrome.JumpItem, len(items))
	for _, it := range items {
		byHref[it.Href] = it
	}
	out := make([]chrome.JumpItem, 0, len(items))
	seen := make(map[string]bool, len(recent))
	for _, href := range recent {
		if it, ok := byHref[href]; ok && !seen[href] {
			out = append(out, it)
			seen[href] = true
		}
	}
	for _, it := range items {
		if !seen[it.Href] {
			out = append(out, it)
		}
	}
	return out
}

func (w *Workspace) viewHeight() int {
	return max(1, w.height-chromeHeight)
}

// contentSize is the area left for views beside the sidebar.
func (w *Workspace) contentSize() (int, int) {
	cw := w.width
	if w.sidebarActive() {
		cw -= sidebarWidth + 1
	}
	return max(1, cw), w.viewHeight()
}

func (w *Workspace) relayout() {
	w.featureBar.SetWidth(w.width)
	w.dataBar.SetWidth(w.width)
	w.breadcrumb.SetWidth(w.width)
	w.statusBar.SetWidth(w.width)
	w.toast.SetWidth(w.width)
	w.help.SetSize(w.width, w.viewHeight())
	w.jump.SetSize(w.width, w.viewHeight())
	w.sidebar.SetSize(sidebarWidth, w.viewHeight())

	cw, ch := w.contentSize()
	w.views.Each(func(_ string, v View) View {
		v.SetSize(cw, ch)
		return v
	})
	if rv := w.router.Current(); rv != nil {
		rv.SetSize(cw, ch)
	}
}

// View implements tea.Model.
func (w *Workspace) View() string {
	if w.quitting {
		return ""
	}
	theme := w.styles.Theme()

	divider := lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(0, w.width)))
	if w.toast.Visible() {
		divider = w.toast.View()
	}

	var body string
	switch {
	case w.showJump:
		body = w.jump.View()
	case w.showHelp:
		body = w.help.View()
	default:
		if v := w.visibleView(); v != nil {
			body = v.View()
		}
		if w.sidebarActive() {
			rule := lipgloss.NewStyle().Foreground(theme.Border).
				Render(strings.TrimSuffix(strings.Repeat("│\n", w.viewHeight()), "\n"))
			body = lipgloss.JoinHorizontal(lipgloss.Top, w.sidebar.View(), rule, body)
		}
	}
	body = lipgloss.NewStyle().Height(w.viewHeight()).MaxHeight(w.viewHeight()).Render(body)

	dataBar := ""
	if !w.views.Routed() {
		dataBar = w.dataBar.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		w.featureBar.View(),
		w.breadcrumb.View(),
		dataBar,
		divider,
		body,
		w.statusBar.View(),
	)
}

// Outcome reports which view is on screen, for tests and diagnostics.
func (w *Workspace) Outcome() viewmgr.Outcome {
	return w.views.Outcome()
}

// Path returns the current path.
func (w *Workspace) Path() string {
	return w.path
}
