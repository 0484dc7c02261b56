// Package viewmgr keeps one view alive per opened feature and decides which
// of them, if any, is on screen for the current path.
//
// Views are mounted once, when their feature first appears with a
// registered href, and unmounted only when the feature is closed. Switching
// paths or features only flips visibility, so a hidden view keeps its
// cursor, its form fields and its in-flight requests.
package viewmgr

import "slices"

// PathRegistry reports which paths have a persistent view.
type PathRegistry interface {
	IsRegistered(path string) bool
}

// Feature is the part of an open feature tab the manager needs.
type Feature struct {
	ID   string
	Href string
}

// Factory builds the view for a feature the first time it is mounted.
type Factory[V any] func(f Feature) V

// Entry is a mounted view.
type Entry[V any] struct {
	Feature Feature
	View    V
	Visible bool
}

// Changes lists what a Sync mounted and unmounted, by feature id.
type Changes struct {
	Mounted   []string
	Unmounted []string
}

// Outcome describes the routing decision for the current path.
type Outcome struct {
	Path       string   `json:"path"`
	Registered bool     `json:"registered"`
	Routed     bool     `json:"routed"`
	Visible    string   `json:"visible,omitempty"`
	Mounted    []string `json:"mounted"`
}

// Manager is the arena of mounted views. It is not safe for concurrent
// use; the owning event loop serializes access.
type Manager[V any] struct {
	paths   PathRegistry
	factory Factory[V]

	order   []string
	entries map[string]*Entry[V]

	path     string
	activeID string
}

// New creates an empty manager.
func New[V any](paths PathRegistry, factory Factory[V]) *Manager[V] {
	return &Manager[V]{paths: paths, factory: factory, entries: map[string]*Entry[V]{}}
}

// Sync brings the arena in line with the open features, the active feature
// and the current path. Features with a registered href are mounted if
// new; mounted views whose feature is gone are unmounted.
func (m *Manager[V]) Sync(path string, features []Feature, activeID string) Changes {
	var ch Changes
	m.path = path
	m.activeID = activeID

	open := make(map[string]bool, len(features))
	for _, f := range features {
		open[f.ID] = true
		if _, mounted := m.entries[f.ID]; mounted || !m.paths.IsRegistered(f.Href) {
			continue
		}
		m.entries[f.ID] = &Entry[V]{Feature: f, View: m.factory(f)}
		m.order = append(m.order, f.ID)
		ch.Mounted = append(ch.Mounted, f.ID)
	}

	m.order = slices.DeleteFunc(m.order, func(id string) bool {
		if open[id] {
			return false
		}
		delete(m.entries, id)
		ch.Unmounted = append(ch.Unmounted, id)
		return true
	})

	routed := m.Routed()
	for id, e := range m.entries {
		e.Visible = !routed && id == activeID
	}
	return ch
}

// Routed reports whether the default routed content is shown, which is
// the case whenever the path has no persistent view.
func (m *Manager[V]) Routed() bool {
	return !m.paths.IsRegistered(m.path)
}

// Path returns the path of the last Sync.
func (m *Manager[V]) Path() string { return m.path }

// Visible returns the view on screen, if a persistent one is.
func (m *Manager[V]) Visible() (string, V, bool) {
	for _, id := range m.order {
		if e := m.entries[id]; e.Visible {
			return id, e.View, true
		}
	}
	var zero V
	return "", zero, false
}

// View returns a mounted view.
func (m *Manager[V]) View(id string) (V, bool) {
	if e, ok := m.entries[id]; ok {
		return e.View, true
	}
	var zero V
	return zero, false
}

// Set replaces a mounted view's value, as returned by its Update.
// Unmounted ids are ignored.
func (m *Manager[V]) Set(id string, v V) {
	if e, ok := m.entries[id]; ok {
		e.View = v
	}
}

// Entries returns the mounted views in mount order.
func (m *Manager[V]) Entries() []Entry[V] {
	out := make([]Entry[V], 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.entries[id])
	}
	return out
}

// Each calls fn for every mounted view, visible or not, storing what fn
// returns. Asynchronous results are delivered this way so hidden views
// keep up.
func (m *Manager[V]) Each(fn func(id string, v V) V) {
	for _, id := range m.order {
		e := m.entries[id]
		e.View = fn(id, e.View)
	}
}

// Outcome reports the current routing decision.
func (m *Manager[V]) Outcome() Outcome {
	o := Outcome{
		Path:       m.path,
		Registered: !m.Routed(),
		Routed:     m.Routed(),
		Mounted:    slices.Clone(m.order),
	}
	if id, _, ok := m.Visible(); ok {
		o.Visible = id
	}
	if o.Mounted == nil {
		o.Mounted = []string{}
	}
	return o
}
