package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/zalando/go-keyring"
)

const serviceName = "erpdesk"

// NoKeyringEnv disables the OS keyring; credentials go to a 0600 file.
const NoKeyringEnv = "ERPDESK_NO_KEYRING"

// Credentials holds the backend bearer token and who it belongs to.
type Credentials struct {
	Token   string    `json:"token"`
	UserID  string    `json:"user_id,omitempty"`
	Email   string    `json:"email,omitempty"`
	Name    string    `json:"name,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

// Store handles credential storage, preferring the system keychain.
type Store struct {
	useKeyring  bool
	fallbackDir string
}

// NewStore creates a credential store.
func NewStore(fallbackDir string) *Store {
	if os.Getenv(NoKeyringEnv) != "" {
		return &Store{fallbackDir: fallbackDir}
	}

	testKey := serviceName + "::probe"
	if err := keyring.Set(serviceName, testKey, "probe"); err == nil {
		_ = keyring.Delete(serviceName, testKey)
		return &Store{useKeyring: true, fallbackDir: fallbackDir}
	}
	fmt.Fprintf(os.Stderr, "warning: system keyring unavailable, credentials stored in plaintext at %s\n",
		filepath.Join(fallbackDir, "credentials.json"))
	return &Store{fallbackDir: fallbackDir}
}

// key returns the keyring key for an origin.
func key(origin string) string {
	return serviceName + "::" + origin
}

// Load retrieves credentials for the given origin.
func (s *Store) Load(origin string) (*Credentials, error) {
	if s.useKeyring {
		data, err := keyring.Get(serviceName, key(origin))
		if err != nil {
			return nil, fmt.Errorf("credentials not found: %w", err)
		}
		var creds Credentials
		if err := json.Unmarshal([]byte(data), &creds); err != nil {
			return nil, fmt.Errorf("invalid credentials: %w", err)
		}
		return &creds, nil
	}

	all, err := s.loadAllFromFile()
	if err != nil {
		return nil, err
	}
	creds, ok := all[origin]
	if !ok {
		return nil, fmt.Errorf("credentials not found for %s", origin)
	}
	return creds, nil
}

// Save stores credentials for the given origin.
func (s *Store) Save(origin string, creds *Credentials) error {
	if s.useKeyring {
		data, err := json.Marshal(creds)
		if err != nil {
			return err
		}
		return keyring.Set(serviceName, key(origin), string(data))
	}

	all, err := s.loadAllFromFile()
	if err != nil {
		return err
	}
	all[origin] = creds
	return s.saveAllToFile(all)
}

// Delete removes credentials for the given origin. Deleting credentials
// that do not exist is not an error.
func (s *Store) Delete(origin string) error {
	if s.useKeyring {
		if err := keyring.Delete(serviceName, key(origin)); err != nil && err != keyring.ErrNotFound {
			return err
		}
		return nil
	}

	all, err := s.loadAllFromFile()
	if err != nil {
		return err
	}
	if _, ok := all[origin]; !ok {
		return nil
	}
	delete(all, origin)
	return s.saveAllToFile(all)
}

// UsingKeyring returns true if the store is using the system keyring.
func (s *Store) UsingKeyring() bool {
	return s.useKeyring
}

func (s *Store) credentialsPath() string {
	return filepath.Join(s.fallbackDir, "credentials.json")
}

func (s *Store) loadAllFromFile() (map[string]*Credentials, error) {
	data, err := os.ReadFile(s.credentialsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*Credentials), nil
		}
		return nil, err
	}

	var all map[string]*Credentials
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	if all == nil {
		all = make(map[string]*Credentials)
	}
	return all, nil
}

// saveAllToFile writes through a temp file and rename so a crash never
// leaves a truncated credentials file behind.
func (s *Store) saveAllToFile(all map[string]*Credentials) error {
	if err := os.MkdirAll(s.fallbackDir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(s.fallbackDir, "credentials-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Chmod(0o600); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	destPath := s.credentialsPath()
	if err := os.Rename(tmpPath, destPath); err != nil {
		if runtime.GOOS == "windows" {
			_ = os.Remove(destPath)
			return os.Rename(tmpPath, destPath)
		}
		os.Remove(tmpPath)
		return err
	}
	return nil
}
