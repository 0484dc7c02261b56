// Package tabs holds the two-level tab state of a workspace session: one
// feature tab per opened menu destination, and inside each feature an
// ordered row of data tabs (the list plus open documents).
//
// The Registry is the only writer of that state. Readers get copies.
package tabs

import (
	"slices"
	"sync"
)

// Data tab titles.
const (
	ListTitle = "Daftar"
	NewTitle  = "Data Baru"
)

// ListTabID returns the id of a feature's default list tab.
func ListTabID(featureID string) string { return featureID + "-list" }

// NewTabID returns the id of a feature's new-document tab.
func NewTabID(featureID string) string { return featureID + "-new" }

// EditTabID returns the id of the tab editing recordID.
func EditTabID(featureID, recordID string) string { return featureID + "-edit-" + recordID }

// EditTitle returns the title of an edit tab for a record labeled label.
func EditTitle(label string) string { return "Edit: " + label }

// DataTab is one document inside a feature: the list, a new document or an
// edit of an existing record.
type DataTab[T any] struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Href  string `json:"href"`

	// Data is the draft payload. HasData is false until something stores
	// a draft, so a form can tell an untouched tab from an empty draft.
	Data    T    `json:"data,omitempty"`
	HasData bool `json:"has_data,omitempty"`

	Dirty bool `json:"dirty"`
}

// ListTab returns the default list tab of featureID.
func ListTab[T any](featureID string) DataTab[T] {
	return DataTab[T]{ID: ListTabID(featureID), Title: ListTitle, Href: featureID}
}

// NewTab returns a new-document tab for featureID.
func NewTab[T any](featureID string) DataTab[T] {
	return DataTab[T]{ID: NewTabID(featureID), Title: NewTitle, Href: featureID}
}

// EditTab returns an edit tab for recordID, titled after label.
func EditTab[T any](featureID, recordID, label string) DataTab[T] {
	if label == "" {
		label = recordID
	}
	return DataTab[T]{ID: EditTabID(featureID, recordID), Title: EditTitle(label), Href: featureID}
}

// FeatureTab is an opened menu destination. Its ID is the href.
type FeatureTab[T any] struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Href            string       `json:"href"`
	Icon            string       `json:"icon,omitempty"`
	DataTabs        []DataTab[T] `json:"data_tabs"`
	ActiveDataTabID string       `json:"active_data_tab_id"`
}

// Dirty reports whether any of the feature's data tabs has unsaved edits.
func (f FeatureTab[T]) Dirty() bool {
	for _, t := range f.DataTabs {
		if t.Dirty {
			return true
		}
	}
	return false
}

// FeatureInfo supplies titles and icons for hrefs.
type FeatureInfo interface {
	Title(href string) string
	Icon(href string) string
}

// State is a full copy of the registry, used for session snapshots.
type State[T any] struct {
	Features        []FeatureTab[T] `json:"features"`
	ActiveFeatureID string          `json:"active_feature_id"`
}

// EventKind names what changed in a registry.
type EventKind string

const (
	FeatureOpened    EventKind = "feature.opened"
	FeatureClosed    EventKind = "feature.closed"
	FeatureActivated EventKind = "feature.activated"
	DataTabOpened    EventKind = "tab.opened"
	DataTabClosed    EventKind = "tab.closed"
	DataTabActivated EventKind = "tab.activated"
	DataTabUpdated   EventKind = "tab.updated"
	DataTabDirty     EventKind = "tab.dirty"
	DataTabRenamed   EventKind = "tab.renamed"
	Restored         EventKind = "restored"
)

// Event describes one change. TabID is empty for feature-level events.
type Event struct {
	Kind      EventKind `json:"kind"`
	FeatureID string    `json:"feature_id,omitempty"`
	TabID     string    `json:"tab_id,omitempty"`
}

// Option configures a Registry.
type Option[T any] func(*Registry[T])

// WithClone sets how draft payloads are copied on the way out, for payload
// types that share memory (maps, slices, pointers).
func WithClone[T any](clone func(T) T) Option[T] {
	return func(r *Registry[T]) { r.clone = clone }
}

// WithInfo sets where feature titles and icons come from.
func WithInfo[T any](info FeatureInfo) Option[T] {
	return func(r *Registry[T]) { r.info = info }
}

// Registry owns feature and data tab state. Operations naming an unknown
// feature or tab are no-ops. It is safe for concurrent use.
type Registry[T any] struct {
	mu       sync.RWMutex
	features []*FeatureTab[T]
	activeID string
	version  uint64

	info      FeatureInfo
	clone     func(T) T
	listeners []func(Event)
}

// NewRegistry creates an empty registry.
func NewRegistry[T any](opts ...Option[T]) *Registry[T] {
	r := &Registry[T]{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnChange registers fn to be called after every change. fn runs on the
// goroutine that made the change, after the registry lock is released.
func (r *Registry[T]) OnChange(fn func(Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Version increases on every change.
func (r *Registry[T]) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// mutate runs fn under the write lock and, if fn reports a change,
// notifies listeners once the lock is released.
func (r *Registry[T]) mutate(fn func() []Event) {
	r.mu.Lock()
	events := fn()
	if len(events) > 0 {
		r.version++
	}
	listeners := r.listeners
	r.mu.Unlock()

	for _, ev := range events {
		for _, l := range listeners {
			l(ev)
		}
	}
}

func (r *Registry[T]) find(featureID string) (int, *FeatureTab[T]) {
	for i, f := range r.features {
		if f.ID == featureID {
			return i, f
		}
	}
	return -1, nil
}

func (f *FeatureTab[T]) tab(tabID string) (int, *DataTab[T]) {
	for i := range f.DataTabs {
		if f.DataTabs[i].ID == tabID {
			return i, &f.DataTabs[i]
		}
	}
	return -1, nil
}

// newFeature builds a feature seeded with its list tab.
func (r *Registry[T]) newFeature(href string) *FeatureTab[T] {
	f := &FeatureTab[T]{ID: href, Href: href, Title: href}
	if r.info != nil {
		if t := r.info.Title(href); t != "" {
			f.Title = t
		}
		f.Icon = r.info.Icon(href)
	}
	list := ListTab[T](href)
	f.DataTabs = []DataTab[T]{list}
	f.ActiveDataTabID = list.ID
	return f
}

// OpenFeatureTab opens the feature for href, creating it with its list tab
// on first use, and makes it active.
func (r *Registry[T]) OpenFeatureTab(href string) {
	if href == "" {
		return
	}
	r.mutate(func() []Event {
		var events []Event
		if _, f := r.find(href); f == nil {
			r.features = append(r.features, r.newFeature(href))
			events = append(events, Event{Kind: FeatureOpened, FeatureID: href})
		}
		if r.activeID != href {
			r.activeID = href
			events = append(events, Event{Kind: FeatureActivated, FeatureID: href})
		}
		return events
	})
}

// CloseFeatureTab closes a feature and all its data tabs. Closing the
// active feature activates the last remaining one.
func (r *Registry[T]) CloseFeatureTab(featureID string) {
	r.mutate(func() []Event {
		i, f := r.find(featureID)
		if f == nil {
			return nil
		}
		r.features = slices.Delete(r.features, i, i+1)
		events := []Event{{Kind: FeatureClosed, FeatureID: featureID}}

		if r.activeID == featureID {
			r.activeID = ""
			if n := len(r.features); n > 0 {
				r.activeID = r.features[n-1].ID
				events = append(events, Event{Kind: FeatureActivated, FeatureID: r.activeID})
			}
		}
		return events
	})
}

// SetActiveFeatureTab activates an open feature.
func (r *Registry[T]) SetActiveFeatureTab(featureID string) {
	r.mutate(func() []Event {
		if _, f := r.find(featureID); f == nil || r.activeID == featureID {
			return nil
		}
		r.activeID = featureID
		return []Event{{Kind: FeatureActivated, FeatureID: featureID}}
	})
}

// ActiveFeatureID returns the active feature's id, or "".
func (r *Registry[T]) ActiveFeatureID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeID
}

// ActiveFeatureTab returns a copy of the active feature.
func (r *Registry[T]) ActiveFeatureTab() (FeatureTab[T], bool) {
	return r.FeatureTab(r.ActiveFeatureID())
}

// FeatureTab returns a copy of one feature.
func (r *Registry[T]) FeatureTab(featureID string) (FeatureTab[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, f := r.find(featureID); f != nil {
		return r.copyFeature(f), true
	}
	return FeatureTab[T]{}, false
}

// FeatureTabs returns copies of all features in opening order.
func (r *Registry[T]) FeatureTabs() []FeatureTab[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]FeatureTab[T], len(r.features))
	for i, f := range r.features {
		out[i] = r.copyFeature(f)
	}
	return out
}

// OpenDataTab adds tab to a feature unless a tab with its id is already
// there, and makes it the feature's active tab either way. A feature that
// is not open yet is created first with its list tab; it becomes the
// active feature only when no feature is active.
func (r *Registry[T]) OpenDataTab(featureID string, tab DataTab[T]) {
	if featureID == "" || tab.ID == "" {
		return
	}
	r.mutate(func() []Event {
		var events []Event
		_, f := r.find(featureID)
		if f == nil {
			f = r.newFeature(featureID)
			r.features = append(r.features, f)
			events = append(events, Event{Kind: FeatureOpened, FeatureID: featureID})
			if r.activeID == "" {
				r.activeID = featureID
				events = append(events, Event{Kind: FeatureActivated, FeatureID: featureID})
			}
		}

		if _, existing := f.tab(tab.ID); existing == nil {
			tab.Dirty = false
			if tab.Href == "" {
				tab.Href = f.Href
			}
			f.DataTabs = append(f.DataTabs, tab)
			events = append(events, Event{Kind: DataTabOpened, FeatureID: featureID, TabID: tab.ID})
		}
		if f.ActiveDataTabID != tab.ID {
			f.ActiveDataTabID = tab.ID
			events = append(events, Event{Kind: DataTabActivated, FeatureID: featureID, TabID: tab.ID})
		}
		return events
	})
}

// CloseDataTab removes a data tab. Closing the active tab falls back to
// the list tab, which itself cannot be closed.
func (r *Registry[T]) CloseDataTab(featureID, tabID string) {
	r.mutate(func() []Event {
		_, f := r.find(featureID)
		if f == nil || tabID == ListTabID(featureID) {
			return nil
		}
		i, t := f.tab(tabID)
		if t == nil {
			return nil
		}
		f.DataTabs = slices.Delete(f.DataTabs, i, i+1)
		events := []Event{{Kind: DataTabClosed, FeatureID: featureID, TabID: tabID}}

		if f.ActiveDataTabID == tabID {
			f.ActiveDataTabID = ListTabID(featureID)
			events = append(events, Event{Kind: DataTabActivated, FeatureID: featureID, TabID: f.ActiveDataTabID})
		}
		return events
	})
}

// SetActiveDataTab moves a feature's active pointer to an existing tab.
func (r *Registry[T]) SetActiveDataTab(featureID, tabID string) {
	r.mutate(func() []Event {
		_, f := r.find(featureID)
		if f == nil || f.ActiveDataTabID == tabID {
			return nil
		}
		if _, t := f.tab(tabID); t == nil {
			return nil
		}
		f.ActiveDataTabID = tabID
		return []Event{{Kind: DataTabActivated, FeatureID: featureID, TabID: tabID}}
	})
}

// ActiveDataTab returns the active tab of the active feature, falling back
// to its list tab when the pointer is unset or stale.
func (r *Registry[T]) ActiveDataTab() (DataTab[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, f := r.find(r.activeID)
	if f == nil {
		return DataTab[T]{}, false
	}
	if _, t := f.tab(f.ActiveDataTabID); t != nil {
		return r.copyTab(*t), true
	}
	if _, t := f.tab(ListTabID(f.ID)); t != nil {
		return r.copyTab(*t), true
	}
	return DataTab[T]{}, false
}

// DataTab returns a copy of one data tab.
func (r *Registry[T]) DataTab(featureID, tabID string) (DataTab[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, f := r.find(featureID); f != nil {
		if _, t := f.tab(tabID); t != nil {
			return r.copyTab(*t), true
		}
	}
	return DataTab[T]{}, false
}

// UpdateDataTabData replaces a tab's draft payload. The dirty flag is left
// alone.
func (r *Registry[T]) UpdateDataTabData(featureID, tabID string, data T) {
	r.mutate(func() []Event {
		t := r.tabLocked(featureID, tabID)
		if t == nil {
			return nil
		}
		t.Data = data
		t.HasData = true
		return []Event{{Kind: DataTabUpdated, FeatureID: featureID, TabID: tabID}}
	})
}

// MarkDataTabDirty sets a tab's dirty flag.
func (r *Registry[T]) MarkDataTabDirty(featureID, tabID string, dirty bool) {
	r.mutate(func() []Event {
		t := r.tabLocked(featureID, tabID)
		if t == nil || t.Dirty == dirty {
			return nil
		}
		t.Dirty = dirty
		return []Event{{Kind: DataTabDirty, FeatureID: featureID, TabID: tabID}}
	})
}

// RenameDataTab changes a tab's title, e.g. once a new document is saved.
func (r *Registry[T]) RenameDataTab(featureID, tabID, title string) {
	r.mutate(func() []Event {
		t := r.tabLocked(featureID, tabID)
		if t == nil || t.Title == title {
			return nil
		}
		t.Title = title
		return []Event{{Kind: DataTabRenamed, FeatureID: featureID, TabID: tabID}}
	})
}

// Dirty reports whether any tab of featureID has unsaved edits.
func (r *Registry[T]) Dirty(featureID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, f := r.find(featureID); f != nil {
		return f.Dirty()
	}
	return false
}

// CloseAll closes every feature.
func (r *Registry[T]) CloseAll() {
	r.mutate(func() []Event {
		events := make([]Event, 0, len(r.features))
		for _, f := range r.features {
			events = append(events, Event{Kind: FeatureClosed, FeatureID: f.ID})
		}
		r.features = nil
		r.activeID = ""
		return events
	})
}

// Snapshot returns a copy of the whole registry.
func (r *Registry[T]) Snapshot() State[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := State[T]{ActiveFeatureID: r.activeID, Features: make([]FeatureTab[T], len(r.features))}
	for i, f := range r.features {
		s.Features[i] = r.copyFeature(f)
	}
	return s
}

// Restore replaces the registry's contents with s, repairing anything a
// live registry could never hold: duplicate ids, a missing list tab and
// dangling active pointers.
func (r *Registry[T]) Restore(s State[T]) {
	r.mutate(func() []Event {
		r.features = r.features[:0]
		seen := map[string]bool{}
		for _, in := range s.Features {
			if in.ID == "" || seen[in.ID] {
				continue
			}
			seen[in.ID] = true

			f := r.newFeature(in.ID)
			if in.Title != "" {
				f.Title = in.Title
			}
			if in.Icon != "" {
				f.Icon = in.Icon
			}
			if in.Href != "" {
				f.Href = in.Href
			}
			seenTabs := map[string]bool{}
			for _, t := range in.DataTabs {
				if t.ID == "" || seenTabs[t.ID] {
					continue
				}
				seenTabs[t.ID] = true
				t = r.copyTab(t)
				if t.ID == ListTabID(f.ID) {
					f.DataTabs[0] = t
					continue
				}
				f.DataTabs = append(f.DataTabs, t)
			}
			if _, t := f.tab(in.ActiveDataTabID); t != nil {
				f.ActiveDataTabID = in.ActiveDataTabID
			}
			r.features = append(r.features, f)
		}

		r.activeID = ""
		if _, f := r.find(s.ActiveFeatureID); f != nil {
			r.activeID = f.ID
		} else if n := len(r.features); n > 0 {
			r.activeID = r.features[n-1].ID
		}
		return []Event{{Kind: Restored}}
	})
}

func (r *Registry[T]) tabLocked(featureID, tabID string) *DataTab[T] {
	if _, f := r.find(featureID); f != nil {
		_, t := f.tab(tabID)
		return t
	}
	return nil
}

func (r *Registry[T]) copyTab(t DataTab[T]) DataTab[T] {
	if r.clone != nil && t.HasData {
		t.Data = r.clone(t.Data)
	}
	return t
}

func (r *Registry[T]) copyFeature(f *FeatureTab[T]) FeatureTab[T] {
	out := *f
	out.DataTabs = make([]DataTab[T], len(f.DataTabs))
	for i, t := range f.DataTabs {
		out.DataTabs[i] = r.copyTab(t)
	}
	return out
}
