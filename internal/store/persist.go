package store

import (
	"log/slog"
	"sync"
	"time"

	"github.com/erpdesk/erpdesk/internal/tabs"
)

// DefaultPersistDelay batches bursts of changes, such as typing into a
// form, into one write.
const DefaultPersistDelay = 500 * time.Millisecond

// Persister saves a registry's snapshot shortly after it changes.
type Persister[T any] struct {
	store *Store
	key   string
	reg   *tabs.Registry[T]
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool

	// writing is held for the whole of a write, so Flush waits out a
	// scheduled save that already started.
	writing sync.Mutex
	write   func() error
}

// Persist starts saving reg under key whenever it changes. Call Flush on
// shutdown to write any pending change.
func Persist[T any](s *Store, key string, reg *tabs.Registry[T], delay time.Duration) *Persister[T] {
	p := &Persister[T]{store: s, key: key, reg: reg, delay: delay}
	p.write = func() error { return Save(p.store, p.key, p.reg.Snapshot()) }
	reg.OnChange(func(tabs.Event) { p.schedule() })
	return p
}

func (p *Persister[T]) schedule() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	if p.timer != nil {
		p.timer.Reset(p.delay)
		return
	}
	p.timer = time.AfterFunc(p.delay, p.save)
}

func (p *Persister[T]) save() {
	p.writing.Lock()
	defer p.writing.Unlock()
	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		return
	}
	if err := p.write(); err != nil {
		slog.Warn("saving session failed", "error", err)
	}
}

// Flush stops the persister and writes the current snapshot once any save
// in progress has finished. Nothing is written after Flush returns.
func (p *Persister[T]) Flush() error {
	p.mu.Lock()
	p.stopped = true
	if p.timer != nil {
		p.timer.Stop()
	}
	p.mu.Unlock()

	p.writing.Lock()
	defer p.writing.Unlock()
	return p.write()
}
