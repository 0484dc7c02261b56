package workspace

import (
	"context"
	"sync"

	"github.com/erpdesk/erpdesk/internal/api"
	"github.com/erpdesk/erpdesk/internal/appctx"
	"github.com/erpdesk/erpdesk/internal/catalog"
	"github.com/erpdesk/erpdesk/internal/format"
	"github.com/erpdesk/erpdesk/internal/live"
	"github.com/erpdesk/erpdesk/internal/source"
	"github.com/erpdesk/erpdesk/internal/tabs"
	"github.com/erpdesk/erpdesk/internal/tui"
	"github.com/erpdesk/erpdesk/internal/tui/recents"
)

// Session holds the active workspace state: the tab registry, where
// records come from, and styles.
type Session struct {
	app     *appctx.App
	catalog *catalog.Catalog
	tabs    *tabs.Registry[api.Record]
	source  source.Source
	styles  *tui.Styles
	locale  format.Locale

	// Optional: backend record changes, when a live feed is configured.
	live *live.Broker[live.Event]

	// Optional: recently visited destinations, keyed by backend origin.
	recents *recents.Store
	origin  string

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession creates a session from the fully-initialized App. The
// registry may already hold a restored session.
func NewSession(app *appctx.App, reg *tabs.Registry[api.Record], src source.Source) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		app:     app,
		catalog: app.Catalog,
		tabs:    reg,
		source:  src,
		styles:  tui.NewStylesWithTheme(tui.ResolveTheme()),
		locale:  format.DetectLocale(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// NewTestSession returns a Session for use in external package tests:
// default styles, the given catalog and source, and an empty registry.
func NewTestSession(cat *catalog.Catalog, src source.Source) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		catalog: cat,
		tabs:    tabs.NewRegistry(tabs.WithInfo[api.Record](cat)),
		source:  src,
		styles:  tui.NewStyles(),
		locale:  format.NewLocale(format.DefaultLocale),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// App returns the underlying appctx.App. Nil in test sessions.
func (s *Session) App() *appctx.App {
	return s.app
}

// Catalog returns the feature catalog.
func (s *Session) Catalog() *catalog.Catalog {
	return s.catalog
}

// Tabs returns the tab registry.
func (s *Session) Tabs() *tabs.Registry[api.Record] {
	return s.tabs
}

// Source returns where list pages and saves go.
func (s *Session) Source() source.Source {
	return s.source
}

// Styles returns the current TUI styles.
func (s *Session) Styles() *tui.Styles {
	return s.styles
}

// Locale returns the conventions used to format money, numbers and dates.
func (s *Session) Locale() format.Locale {
	return s.locale
}

// SetLive attaches the broker the live feed publishes to.
func (s *Session) SetLive(b *live.Broker[live.Event]) {
	s.live = b
}

// SetRecents attaches the store of recently visited destinations for the
// backend at origin.
func (s *Session) SetRecents(store *recents.Store, origin string) {
	s.recents = store
	s.origin = origin
}

// Recent returns the hrefs visited last, most recent first.
func (s *Session) Recent() []string {
	if s.recents == nil {
		return nil
	}
	items := s.recents.Get(s.origin)
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Href
	}
	return out
}

// Visited records a navigation to href.
func (s *Session) Visited(href, title string) {
	if s.recents != nil {
		s.recents.Add(s.origin, recents.Item{Href: href, Title: title})
	}
}

// Live returns the live feed broker, or nil.
func (s *Session) Live() *live.Broker[live.Event] {
	return s.live
}

// Context returns the session's cancellable context for API operations.
// Canceled on shutdown, aborting in-flight requests.
// Thread-safe: may be called from Cmd goroutines.
func (s *Session) Context() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

// ReloadTheme re-reads the theme from disk and updates the shared Styles
// in place. All components holding *Styles see new colors on the next render.
func (s *Session) ReloadTheme() {
	s.styles.UpdateTheme(tui.ResolveTheme())
}

// Shutdown cancels the session context. Called on program exit.
func (s *Session) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
}
