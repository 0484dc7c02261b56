// Package session runs the tab workspace without a terminal. The control
// server drives it: the same registry and view routing as the TUI, with one
// list fetcher per mounted feature standing in for the list view.
package session

import (
	"context"
	"slices"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/erpdesk/erpdesk/internal/api"
	"github.com/erpdesk/erpdesk/internal/catalog"
	"github.com/erpdesk/erpdesk/internal/live"
	"github.com/erpdesk/erpdesk/internal/output"
	"github.com/erpdesk/erpdesk/internal/source"
	"github.com/erpdesk/erpdesk/internal/tabs"
	"github.com/erpdesk/erpdesk/internal/tui/workspace/data"
	"github.com/erpdesk/erpdesk/internal/tui/workspace/viewmgr"
)

// HomePath is where the session starts and where it returns once the last
// feature is closed.
const HomePath = "/dashboard"

// ListState is a feature list as the control API reports it.
type ListState struct {
	FeatureID string       `json:"feature_id"`
	Search    string       `json:"search,omitempty"`
	Status    string       `json:"status,omitempty"`
	Items     []api.Record `json:"items"`
	Page      int          `json:"page"`
	Total     int          `json:"total"`
	HasMore   bool         `json:"has_more"`
	Loading   bool         `json:"loading"`
	Error     string       `json:"error,omitempty"`
}

// list is the headless stand-in for a feature's list view.
type list struct {
	feature catalog.Feature
	filter  source.Filter
	fetcher *data.Fetcher[api.Record]
	err     error
}

// Session is a headless workspace. It is safe for concurrent use.
type Session struct {
	catalog *catalog.Catalog
	src     source.Source
	tabs    *tabs.Registry[api.Record]
	events  *live.Broker[tabs.Event]

	mu    sync.Mutex
	views *viewmgr.Manager[*list]
	path  string

	// ctx outlives requests; background first-page loads run on it.
	ctx    context.Context
	cancel context.CancelFunc
	loads  sync.WaitGroup
}

// New creates a session over an existing registry, typically one restored
// from the session store.
func New(cat *catalog.Catalog, src source.Source, reg *tabs.Registry[api.Record]) *Session {
	s := &Session{
		catalog: cat,
		src:     src,
		tabs:    reg,
		events:  live.NewBroker[tabs.Event](),
		path:    HomePath,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.views = viewmgr.New(cat, s.newList)
	reg.OnChange(s.events.Publish)

	s.mu.Lock()
	s.followActiveLocked()
	s.mu.Unlock()
	return s
}

// Close stops background list loads and waits for them to return.
func (s *Session) Close() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	s.loads.Wait()
}

// NewRegistry returns a registry wired to the catalog's titles and icons.
func NewRegistry(cat *catalog.Catalog) *tabs.Registry[api.Record] {
	return tabs.NewRegistry(
		tabs.WithInfo[api.Record](cat),
		tabs.WithClone(func(r api.Record) api.Record { return cloneRecord(r) }),
	)
}

func cloneRecord(r api.Record) api.Record {
	if r == nil {
		return nil
	}
	out := make(api.Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func (s *Session) newList(f viewmgr.Feature) *list {
	feature, _ := s.catalog.Feature(f.Href)
	l := &list{feature: feature}
	l.rebuild(s.src)
	return l
}

func (l *list) rebuild(src source.Source) {
	pages, err := src.Pages(l.feature, l.filter)
	l.err = err
	if err != nil {
		pages = func(context.Context, int) (data.Page[api.Record], error) {
			return data.Page[api.Record]{}, err
		}
	}
	l.fetcher = data.NewFetcher(l.feature.Href, pages, func(r api.Record) string { return r.ID() })
}

// Tabs returns the session's registry.
func (s *Session) Tabs() *tabs.Registry[api.Record] { return s.tabs }

// Catalog returns the feature catalog.
func (s *Session) Catalog() *catalog.Catalog { return s.catalog }

// Events streams registry changes. Unsubscribe when done.
func (s *Session) Events() *live.Broker[tabs.Event] { return s.events }

// syncLocked re-runs view routing after the registry or the path changed.
func (s *Session) syncLocked() {
	fs := s.tabs.FeatureTabs()
	features := make([]viewmgr.Feature, len(fs))
	for i, f := range fs {
		features[i] = viewmgr.Feature{ID: f.ID, Href: f.Href}
	}
	ch := s.views.Sync(s.path, features, s.tabs.ActiveFeatureID())
	for _, id := range ch.Mounted {
		if l, ok := s.views.View(id); ok {
			s.run(s.autoLoadLocked(l))
		}
	}
}

// autoLoadLocked arms the first page of a list that has nothing yet, the
// way a list view does when it is shown. Nothing loads after Close.
func (s *Session) autoLoadLocked(l *list) tea.Cmd {
	if s.ctx.Err() != nil {
		return nil
	}
	return l.fetcher.AutoLoad(s.ctx)
}

// run executes a load in the background. The resulting message only
// mirrors the fetcher state, so it is dropped.
func (s *Session) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	s.loads.Add(1)
	go func() {
		defer s.loads.Done()
		cmd()
	}()
}

// followActiveLocked points the path at the active feature, or home.
func (s *Session) followActiveLocked() {
	if f, ok := s.tabs.ActiveFeatureTab(); ok {
		s.path = f.Href
	} else {
		s.path = HomePath
	}
	s.syncLocked()
}

// Navigate goes to path. A registered path opens (or re-activates) its
// feature tab; any other path shows routed content.
func (s *Session) Navigate(path string) viewmgr.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.catalog.IsRegistered(path) {
		s.tabs.OpenFeatureTab(path)
	}
	s.path = path
	s.syncLocked()
	return s.views.Outcome()
}

// Outcome reports the current routing decision.
func (s *Session) Outcome() viewmgr.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.views.Outcome()
}

// OpenFeature opens the feature tab for href and navigates to it.
func (s *Session) OpenFeature(href string) error {
	if !slices.Contains(s.catalog.Destinations(), href) && !s.catalog.IsRegistered(href) {
		return output.ErrNotFound("feature", href)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs.OpenFeatureTab(href)
	s.followActiveLocked()
	return nil
}

// CloseFeature closes a feature tab and its data tabs.
func (s *Session) CloseFeature(id string) error {
	if _, ok := s.tabs.FeatureTab(id); !ok {
		return output.ErrNotFound("feature tab", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs.CloseFeatureTab(id)
	s.followActiveLocked()
	return nil
}

// ActivateFeature switches to an open feature tab.
func (s *Session) ActivateFeature(id string) error {
	if _, ok := s.tabs.FeatureTab(id); !ok {
		return output.ErrNotFound("feature tab", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs.SetActiveFeatureTab(id)
	s.followActiveLocked()
	return nil
}

// OpenNew opens the new-document tab of a feature.
func (s *Session) OpenNew(featureID string) (tabs.DataTab[api.Record], error) {
	return s.openDataTab(featureID, tabs.NewTab[api.Record](featureID))
}

// OpenEdit opens the edit tab for a record. The label titles the tab; it
// defaults to the record id.
func (s *Session) OpenEdit(featureID, recordID, label string) (tabs.DataTab[api.Record], error) {
	if strings.TrimSpace(recordID) == "" {
		return tabs.DataTab[api.Record]{}, output.ErrUsage("record id is required")
	}
	return s.openDataTab(featureID, tabs.EditTab[api.Record](featureID, recordID, label))
}

func (s *Session) openDataTab(featureID string, tab tabs.DataTab[api.Record]) (tabs.DataTab[api.Record], error) {
	if !s.catalog.IsRegistered(featureID) {
		return tabs.DataTab[api.Record]{}, output.ErrNotFound("feature", featureID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs.OpenDataTab(featureID, tab)
	if s.tabs.ActiveFeatureID() == featureID {
		s.followActiveLocked()
	} else {
		s.syncLocked()
	}
	t, _ := s.tabs.DataTab(featureID, tab.ID)
	return t, nil
}

// CloseDataTab closes a data tab. The list tab stays.
func (s *Session) CloseDataTab(featureID, tabID string) {
	s.tabs.CloseDataTab(featureID, tabID)
}

// ActivateDataTab switches a feature's active data tab.
func (s *Session) ActivateDataTab(featureID, tabID string) error {
	if _, ok := s.tabs.DataTab(featureID, tabID); !ok {
		return output.ErrNotFound("data tab", tabID)
	}
	s.tabs.SetActiveDataTab(featureID, tabID)
	return nil
}

// UpdateDraft stores a draft and its dirty flag.
func (s *Session) UpdateDraft(featureID, tabID string, draft api.Record, dirty bool) error {
	if _, ok := s.tabs.DataTab(featureID, tabID); !ok {
		return output.ErrNotFound("data tab", tabID)
	}
	s.tabs.UpdateDataTabData(featureID, tabID, draft)
	s.tabs.MarkDataTabDirty(featureID, tabID, dirty)
	return nil
}

// SaveDraft sends a data tab's draft to the source, converted the way the
// form converts it. On success the tab is closed and the feature's list
// reloads, like submitting the form.
func (s *Session) SaveDraft(ctx context.Context, featureID, tabID string) (api.Record, string, error) {
	tab, ok := s.tabs.DataTab(featureID, tabID)
	if !ok {
		return nil, "", output.ErrNotFound("data tab", tabID)
	}
	feature, ok := s.catalog.Feature(featureID)
	if !ok {
		return nil, "", output.ErrNotFound("feature", featureID)
	}
	id, _ := strings.CutPrefix(tabID, tabs.EditTabID(featureID, ""))
	if id == tabID {
		id = ""
	}

	rec, msg, err := s.src.Save(ctx, feature, id, source.Payload(feature, tab.Data))
	if err != nil {
		return nil, "", err
	}
	s.tabs.CloseDataTab(featureID, tabID)
	s.resetLists(func(l *list) bool { return l.feature.Href == featureID })
	return rec, msg, nil
}

func (s *Session) mounted(featureID string) (*list, error) {
	l, ok := s.views.View(featureID)
	if !ok {
		return nil, output.ErrNotFoundHint("feature view", featureID, "Open the feature first")
	}
	return l, nil
}

// List reports a mounted feature's accumulated list.
func (s *Session) List(featureID string) (ListState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.mounted(featureID)
	if err != nil {
		return ListState{}, err
	}
	return l.state(), nil
}

func (l *list) state() ListState {
	st := l.fetcher.State()
	out := ListState{
		FeatureID: l.feature.Href,
		Search:    l.filter.Search,
		Status:    l.filter.Status,
		Items:     st.Items,
		Page:      st.Page,
		Total:     st.Total,
		HasMore:   st.HasMore,
		Loading:   st.Loading,
	}
	if out.Items == nil {
		out.Items = []api.Record{}
	}
	if st.Err != nil {
		out.Error = st.Err.Error()
	}
	return out
}

// LoadMore fetches the next page of a feature's list and waits for it. It
// is a no-op while another load is in flight or after the last page.
func (s *Session) LoadMore(ctx context.Context, featureID string) (ListState, error) {
	s.mu.Lock()
	l, err := s.mounted(featureID)
	var cmd tea.Cmd
	if err == nil {
		cmd = l.fetcher.LoadMore(ctx)
	}
	s.mu.Unlock()
	if err != nil {
		return ListState{}, err
	}
	if cmd != nil {
		cmd()
	}
	return l.state(), nil
}

// Filter replaces a list's search and status filter and starts over.
func (s *Session) Filter(featureID string, filter source.Filter) (ListState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.mounted(featureID)
	if err != nil {
		return ListState{}, err
	}
	l.fetcher.Reset()
	l.filter = filter
	l.rebuild(s.src)
	return s.reloadLocked(l), nil
}

// Refresh empties a list and reloads it from the first page.
func (s *Session) Refresh(featureID string) (ListState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.mounted(featureID)
	if err != nil {
		return ListState{}, err
	}
	l.fetcher.Reset()
	return s.reloadLocked(l), nil
}

// reloadLocked starts the first page of a freshly reset list and reports
// the list as it was when the load began.
func (s *Session) reloadLocked(l *list) ListState {
	cmd := s.autoLoadLocked(l)
	st := l.state()
	s.run(cmd)
	return st
}

// ApplyLive resets and reloads every list, visible or hidden, showing the
// event's resource. It returns the ids of the features it reset.
func (s *Session) ApplyLive(evt live.Event) []string {
	return s.resetLists(func(l *list) bool {
		return live.NormalizeResource(l.feature.Endpoint) == evt.Resource
	})
}

func (s *Session) resetLists(match func(*list) bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var reset []string
	s.views.Each(func(id string, l *list) *list {
		if match(l) {
			l.fetcher.Reset()
			s.run(s.autoLoadLocked(l))
			reset = append(reset, id)
		}
		return l
	})
	return reset
}
