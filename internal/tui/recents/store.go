// Package recents remembers which menu destinations were visited last, per
// backend, so the jump overlay can offer them first.
package recents

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultMax is how many destinations are kept per backend.
const DefaultMax = 8

// Item is one visited destination.
type Item struct {
	Href   string    `json:"href"`
	Title  string    `json:"title"`
	UsedAt time.Time `json:"used_at"`
}

// Store holds recent destinations keyed by backend origin and persists
// them to <cacheDir>/recents.json.
type Store struct {
	mu        sync.RWMutex
	items     map[string][]Item
	maxItems  int
	path      string
	lastError error
	now       func() time.Time
}

// NewStore loads the store under cacheDir. A missing or unreadable file
// starts empty.
func NewStore(cacheDir string) *Store {
	s := &Store{
		items:    make(map[string][]Item),
		maxItems: DefaultMax,
		path:     filepath.Join(cacheDir, "recents.json"),
		now:      time.Now,
	}
	s.load()
	return s
}

// Add moves href to the front of origin's list.
func (s *Store) Add(origin string, item Item) {
	var snapshot map[string][]Item
	func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		item.UsedAt = s.now()
		items := s.items[origin]
		kept := make([]Item, 0, len(items)+1)
		kept = append(kept, item)
		for _, existing := range items {
			if existing.Href != item.Href {
				kept = append(kept, existing)
			}
		}
		if len(kept) > s.maxItems {
			kept = kept[:s.maxItems]
		}
		s.items[origin] = kept
		snapshot = s.copyItems()
	}()

	s.saveSnapshot(snapshot)
}

// Get returns origin's destinations, most recent first. The slice is a copy.
func (s *Store) Get(origin string) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.items[origin]
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// Clear forgets origin's destinations.
func (s *Store) Clear(origin string) {
	var snapshot map[string][]Item
	func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.items, origin)
		snapshot = s.copyItems()
	}()
	s.saveSnapshot(snapshot)
}

// LastError returns the error of the last write, if any.
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// must be called with the lock held
func (s *Store) copyItems() map[string][]Item {
	out := make(map[string][]Item, len(s.items))
	for k, v := range s.items {
		c := make([]Item, len(v))
		copy(c, v)
		out[k] = c
	}
	return out
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path) //nolint:gosec // G304: path is under the cache dir
	if err != nil {
		return
	}
	var items map[string][]Item
	if err := json.Unmarshal(data, &items); err != nil {
		return
	}
	s.items = items
}

// saveSnapshot writes outside the lock. Failures are kept for LastError;
// recents are not worth interrupting anyone over.
func (s *Store) saveSnapshot(items map[string][]Item) {
	err := func() error {
		if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
			return err
		}
		data, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(s.path, data, 0600)
	}()

	s.mu.Lock()
	s.lastError = err
	s.mu.Unlock()
}
