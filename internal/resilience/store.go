// Package resilience guards calls to the ERP backend with a circuit breaker
// and a token bucket whose state is shared between erpdesk processes through
// a locked file in the cache directory.
package resilience

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"
)

// StateFileName is the state file inside the store directory.
const StateFileName = "state.json"

// LockTimeout bounds how long an operation waits for the file lock. Past it,
// the operation proceeds unlocked so a wedged process never hangs the CLI.
const LockTimeout = 100 * time.Millisecond

// Store reads and writes State under an exclusive file lock.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, or at the default cache location
// when dir is empty.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Store{dir: dir}
}

// DefaultDir returns $XDG_CACHE_HOME/erpdesk/resilience or the platform
// equivalent.
func DefaultDir() string {
	if cacheDir := os.Getenv("XDG_CACHE_HOME"); cacheDir != "" {
		return filepath.Join(cacheDir, "erpdesk", "resilience")
	}
	if cacheDir, err := os.UserCacheDir(); err == nil && cacheDir != "" {
		return filepath.Join(cacheDir, "erpdesk", "resilience")
	}
	return filepath.Join(os.TempDir(), "erpdesk", "resilience")
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the state file path.
func (s *Store) Path() string { return filepath.Join(s.dir, StateFileName) }

// lock returns a held lock, or nil when LockTimeout elapsed first.
func (s *Store) lock() (*flock.Flock, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, err
	}
	fl := flock.New(filepath.Join(s.dir, ".lock"))

	ctx, cancel := context.WithTimeout(context.Background(), LockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, nil
		}
		return nil, err
	}
	if !locked {
		return nil, nil
	}
	return fl, nil
}

func unlock(fl *flock.Flock) {
	if fl != nil {
		_ = fl.Unlock()
	}
}

// Load reads the state. A missing or corrupt file yields a fresh state.
func (s *Store) Load() (*State, error) {
	fl, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock(fl)
	return s.read()
}

// Update runs fn on the current state and saves the result, holding the
// lock for the whole read-modify-write.
func (s *Store) Update(fn func(*State) error) error {
	fl, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock(fl)

	state, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(state); err != nil {
		return err
	}
	return s.write(state)
}

// Clear removes the state file.
func (s *Store) Clear() error {
	fl, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock(fl)

	if err := os.Remove(s.Path()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) read() (*State, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil || state.Version != StateVersion {
		return NewState(), nil
	}
	if state.Origins == nil {
		state.Origins = map[string]*OriginState{}
	}
	return &state, nil
}

func (s *Store) write(state *State) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	state.Version = StateVersion

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	// Unique temp names keep unlocked writers from clobbering each other.
	tmp := fmt.Sprintf("%s.%d.%d.tmp", s.Path(), os.Getpid(), time.Now().UnixNano())
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if runtime.GOOS == "windows" {
		_ = os.Remove(s.Path())
	}
	if err := os.Rename(tmp, s.Path()); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
