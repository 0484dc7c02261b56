// Package auth stores and hands out the bearer token used against the ERP
// backend.
package auth

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/erpdesk/erpdesk/internal/config"
	"github.com/erpdesk/erpdesk/internal/output"
)

// TokenEnv supplies a token directly, bypassing the store.
const TokenEnv = "ERPDESK_TOKEN"

// Manager resolves the bearer token for the configured backend.
type Manager struct {
	origin string
	store  *Store

	mu     sync.Mutex
	cached *Credentials
}

// NewManager creates a manager for cfg's backend, storing credentials in
// the global config directory when the keyring is unavailable.
func NewManager(cfg *config.Config) *Manager {
	return NewManagerWithStore(cfg, NewStore(config.GlobalConfigDir()))
}

// NewManagerWithStore creates a manager over an explicit store.
func NewManagerWithStore(cfg *config.Config, store *Store) *Manager {
	return &Manager{
		origin: config.NormalizeBaseURL(cfg.BaseURL),
		store:  store,
	}
}

// Origin returns the backend origin credentials are keyed by.
func (m *Manager) Origin() string {
	return m.origin
}

// AccessToken returns the token to send as "Authorization: Bearer".
// ERPDESK_TOKEN wins over stored credentials.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	if token := os.Getenv(TokenEnv); token != "" {
		return token, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached == nil {
		creds, err := m.store.Load(m.origin)
		if err != nil || creds.Token == "" {
			return "", output.ErrAuth("Not logged in")
		}
		m.cached = creds
	}
	return m.cached.Token, nil
}

// IsAuthenticated reports whether a token is available.
func (m *Manager) IsAuthenticated() bool {
	_, err := m.AccessToken(context.Background())
	return err == nil
}

// Save stores credentials obtained from a login.
func (m *Manager) Save(creds *Credentials) error {
	if creds.SavedAt.IsZero() {
		creds.SavedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Save(m.origin, creds); err != nil {
		return err
	}
	m.cached = creds
	return nil
}

// Current returns the stored credentials, if any.
func (m *Manager) Current() (*Credentials, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cached != nil {
		return m.cached, true
	}
	creds, err := m.store.Load(m.origin)
	if err != nil {
		return nil, false
	}
	m.cached = creds
	return creds, true
}

// Logout removes stored credentials.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = nil
	return m.store.Delete(m.origin)
}

// Invalidate drops the stored token after the backend rejected it, so the
// next command asks the user to log in again instead of retrying a dead token.
func (m *Manager) Invalidate() {
	if os.Getenv(TokenEnv) != "" {
		return
	}
	if err := m.Logout(); err != nil {
		slog.Debug("clearing rejected token failed", "origin", m.origin, "error", err)
	}
}
