// Package data holds the paginated record fetcher behind list views.
package data

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// PageLoadedMsg is sent when a fetcher applied, or failed to apply, a page.
// Views match on Key and then read the fetcher's State.
type PageLoadedMsg struct {
	Key string
	Err error
}

// Page is one page of results. Total is nil when the source does not
// report a total, in which case the previous total is kept.
type Page[T any] struct {
	Items    []T
	LastPage int
	Total    *int
}

// PageFunc fetches a page (1-based). It must honor ctx cancellation.
type PageFunc[T any] func(ctx context.Context, page int) (Page[T], error)

// FetchState is a point-in-time copy of a fetcher's accumulated list.
type FetchState[T any] struct {
	Items     []T
	Page      int
	HasMore   bool
	Loading   bool
	Err       error
	Total     int
	Attempted bool
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*fetcherConfig)

type fetcherConfig struct {
	initialPage int
}

// WithInitialPage sets the page a fresh or reset fetcher starts from.
func WithInitialPage(page int) FetcherOption {
	return func(c *fetcherConfig) {
		if page > 0 {
			c.initialPage = page
		}
	}
}

// Fetcher accumulates a paginated collection, dropping items whose id was
// already seen. At most one page request is current: starting a new one or
// resetting cancels the previous request, and a generation fence discards
// any result that arrives afterwards.
//
// LoadMore, AutoLoad and SentinelVisible return a tea.Cmd that performs the
// fetch; nil means there is nothing to do.
type Fetcher[T any] struct {
	mu          sync.Mutex
	key         string
	fetch       PageFunc[T]
	idOf        func(T) string
	initialPage int

	items      []T
	seen       map[string]struct{}
	page       int
	hasMore    bool
	loading    bool
	err        error
	total      int
	attempted  bool
	generation uint64
	cancel     context.CancelFunc
}

// NewFetcher creates a fetcher. A nil idOf uses DefaultID.
func NewFetcher[T any](key string, fetch PageFunc[T], idOf func(T) string, opts ...FetcherOption) *Fetcher[T] {
	cfg := fetcherConfig{initialPage: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	if idOf == nil {
		idOf = DefaultID[T]
	}
	return &Fetcher[T]{
		key:         key,
		fetch:       fetch,
		idOf:        idOf,
		initialPage: cfg.initialPage,
		seen:        map[string]struct{}{},
		page:        cfg.initialPage,
		hasMore:     true,
	}
}

// Key returns the fetcher's identifier.
func (f *Fetcher[T]) Key() string { return f.key }

// State returns a copy of the accumulated state.
func (f *Fetcher[T]) State() FetchState[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FetchState[T]{
		Items:     append([]T(nil), f.items...),
		Page:      f.page,
		HasMore:   f.hasMore,
		Loading:   f.loading,
		Err:       f.err,
		Total:     f.total,
		Attempted: f.attempted,
	}
}

// LoadMore starts fetching the current page. It returns nil while a fetch
// is in flight or once the last page has been applied.
func (f *Fetcher[T]) LoadMore(ctx context.Context) tea.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadMoreLocked(ctx)
}

func (f *Fetcher[T]) loadMoreLocked(ctx context.Context) tea.Cmd {
	if f.loading || !f.hasMore {
		return nil
	}
	if f.cancel != nil {
		f.cancel()
	}
	f.generation++
	gen := f.generation
	page := f.page

	reqCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.loading = true
	f.attempted = true
	f.err = nil

	return func() tea.Msg {
		defer cancel()
		result, err := f.fetch(reqCtx, page)
		return f.apply(gen, reqCtx, result, err)
	}
}

// apply folds a finished request into the state. Results from a request
// that is no longer current are dropped without a message.
func (f *Fetcher[T]) apply(gen uint64, reqCtx context.Context, result Page[T], err error) tea.Msg {
	f.mu.Lock()
	defer f.mu.Unlock()

	if gen != f.generation {
		return nil
	}
	f.loading = false
	f.cancel = nil

	if err != nil {
		if errors.Is(err, context.Canceled) || reqCtx.Err() != nil {
			return PageLoadedMsg{Key: f.key}
		}
		f.err = err
		return PageLoadedMsg{Key: f.key, Err: err}
	}

	for _, item := range result.Items {
		id := f.idOf(item)
		if _, dup := f.seen[id]; dup {
			continue
		}
		f.seen[id] = struct{}{}
		f.items = append(f.items, item)
	}
	if result.Total != nil {
		f.total = *result.Total
	}
	if f.page >= result.LastPage {
		f.hasMore = false
	} else {
		f.page++
	}
	return PageLoadedMsg{Key: f.key}
}

// Reset cancels any in-flight request and returns to an empty list at the
// initial page, re-arming AutoLoad.
func (f *Fetcher[T]) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generation++
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.items = nil
	f.seen = map[string]struct{}{}
	f.page = f.initialPage
	f.hasMore = true
	f.loading = false
	f.err = nil
	f.total = 0
	f.attempted = false
}

// Cancel aborts the in-flight request, if any, leaving accumulated items
// in place. The aborted request's result is discarded.
func (f *Fetcher[T]) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.loading {
		return
	}
	f.generation++
	f.cancel()
	f.cancel = nil
	f.loading = false
}

// AutoLoad fires the first LoadMore of a reset cycle: only when nothing has
// been attempted since the last reset, the list is empty and nothing is
// loading.
func (f *Fetcher[T]) AutoLoad(ctx context.Context) tea.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attempted || len(f.items) > 0 || f.loading {
		return nil
	}
	return f.loadMoreLocked(ctx)
}

// SentinelVisible is called when the end-of-list marker scrolls into view.
func (f *Fetcher[T]) SentinelVisible(ctx context.Context) tea.Cmd {
	return f.LoadMore(ctx)
}

// DefaultID reads an item's identifier: the "id" key of a map, or an ID,
// Id or id field of a struct. Items without one are keyed by their
// printed value.
func DefaultID[T any](item T) string {
	v := reflect.ValueOf(item)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String {
			if id := v.MapIndex(reflect.ValueOf("id").Convert(v.Type().Key())); id.IsValid() {
				return fmt.Sprint(id.Interface())
			}
		}
	case reflect.Struct:
		for _, name := range []string{"ID", "Id", "id"} {
			if fv := v.FieldByName(name); fv.IsValid() && fv.CanInterface() {
				return fmt.Sprint(fv.Interface())
			}
		}
	}
	return fmt.Sprint(item)
}
