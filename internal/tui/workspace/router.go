package workspace

// routerEntry is one visited path. Routed content keeps its view here;
// registered paths leave view nil because their feature view is owned by
// the view manager.
type routerEntry struct {
	path string
	view View
}

// Router records the navigation history so Esc can step back.
type Router struct {
	stack []routerEntry
}

// maxHistory bounds the history; the oldest entries are dropped.
const maxHistory = 50

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{}
}

// Reset clears the entire history.
func (r *Router) Reset() {
	r.stack = nil
}

// Push records a visit. Re-visiting the current path replaces its entry.
func (r *Router) Push(path string, view View) {
	if n := len(r.stack); n > 0 && r.stack[n-1].path == path {
		r.stack[n-1].view = view
		return
	}
	r.stack = append(r.stack, routerEntry{path: path, view: view})
	if len(r.stack) > maxHistory {
		r.stack = r.stack[len(r.stack)-maxHistory:]
	}
}

// Pop removes the current entry and returns the previous path.
// Returns "" if the stack has one or fewer entries (never pops the root).
func (r *Router) Pop() string {
	if len(r.stack) <= 1 {
		return ""
	}
	r.stack = r.stack[:len(r.stack)-1]
	return r.CurrentPath()
}

// Current returns the current routed view, or nil.
func (r *Router) Current() View {
	if len(r.stack) == 0 {
		return nil
	}
	return r.stack[len(r.stack)-1].view
}

// CurrentPath returns the current path, or "" if empty.
func (r *Router) CurrentPath() string {
	if len(r.stack) == 0 {
		return ""
	}
	return r.stack[len(r.stack)-1].path
}

// Replace swaps the current routed view, after the view returned an
// updated model.
func (r *Router) Replace(view View) {
	if len(r.stack) > 0 {
		r.stack[len(r.stack)-1].view = view
	}
}

// Depth returns the current history depth.
func (r *Router) Depth() int {
	return len(r.stack)
}

// CanGoBack returns true if there is a previous path to return to.
func (r *Router) CanGoBack() bool {
	return len(r.stack) > 1
}

// Forget drops every entry for path, e.g. after its feature tab closed.
// The root entry is kept.
func (r *Router) Forget(path string) {
	kept := r.stack[:0]
	for i, e := range r.stack {
		if i == 0 || e.path != path {
			kept = append(kept, e)
		}
	}
	// Collapse neighbours that became duplicates.
	out := kept[:0]
	for _, e := range kept {
		if len(out) > 0 && out[len(out)-1].path == e.path {
			continue
		}
		out = append(out, e)
	}
	r.stack = out
}
