// Package store persists the tab session between runs in a bbolt database.
//
// Sessions are keyed by backend origin so switching profiles never restores
// another backend's tabs. Values are JSON so the payload type stays generic.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/erpdesk/erpdesk/internal/tabs"
)

// FileName is the database file inside the cache directory.
const FileName = "session.db"

// SchemaVersion is bumped when the stored layout changes. Older sessions
// are ignored rather than migrated.
const SchemaVersion = 1

const bucketSessions = "sessions"

// ErrNoSession is returned by Load when nothing usable is stored for a key.
var ErrNoSession = errors.New("no saved session")

var initDB = map[string]func(*bolt.Tx) error{
	"initialize session table": func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketSessions))
		return err
	},
}

// Store is a session database.
type Store struct {
	db *bolt.DB
}

// DefaultPath returns the database path inside cacheDir.
func DefaultPath(cacheDir string) string {
	return filepath.Join(cacheDir, FileName)
}

// Open opens or creates the database at path. bbolt holds an exclusive
// lock, so a second client waits up to a second and then gives up.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating session dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening session db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for name, fn := range initDB {
			if err := fn(tx); err != nil {
				return fmt.Errorf("failed to %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type record[T any] struct {
	Version int           `json:"version"`
	SavedAt time.Time     `json:"saved_at"`
	State   tabs.State[T] `json:"state"`
}

// Save stores st under key, replacing what was there.
func Save[T any](s *Store, key string, st tabs.State[T]) error {
	data, err := json.Marshal(record[T]{Version: SchemaVersion, SavedAt: time.Now().UTC(), State: st})
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSessions)).Put([]byte(key), data)
	})
}

// Load returns the session stored under key and when it was saved.
// A missing, unreadable or outdated record yields ErrNoSession.
func Load[T any](s *Store, key string) (tabs.State[T], time.Time, error) {
	var rec record[T]
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketSessions)).Get([]byte(key))
		if v == nil {
			return ErrNoSession
		}
		if err := json.Unmarshal(v, &rec); err != nil || rec.Version != SchemaVersion {
			return ErrNoSession
		}
		return nil
	})
	if err != nil {
		return tabs.State[T]{}, time.Time{}, err
	}
	return rec.State, rec.SavedAt, nil
}

// Delete removes the session under key.
func (s *Store) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSessions)).Delete([]byte(key))
	})
}

// Keys lists the stored session keys in order.
func (s *Store) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSessions)).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	sort.Strings(keys)
	return keys, err
}
