package resilience

import "time"

// StateVersion is the current state schema version.
const StateVersion = 2

// State is persisted between erpdesk processes so a `list --all` running in
// one terminal and the TUI in another share one view of backend health.
// Each backend origin is tracked separately.
type State struct {
	Version   int                     `json:"version"`
	Origins   map[string]*OriginState `json:"origins"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// OriginState is the breaker and limiter state of one backend.
type OriginState struct {
	Breaker BreakerState `json:"breaker"`
	Limiter LimiterState `json:"limiter"`
}

// Circuit states.
const (
	CircuitClosed   = "closed"
	CircuitOpen     = "open"
	CircuitHalfOpen = "half_open"
)

// BreakerState tracks consecutive failures and the open/half-open window.
type BreakerState struct {
	State         string    `json:"state"`
	Failures      int       `json:"failures"`
	Successes     int       `json:"successes"`
	Probes        int       `json:"probes,omitempty"`
	LastProbeAt   time.Time `json:"last_probe_at"`
	LastFailureAt time.Time `json:"last_failure_at"`
	OpenedAt      time.Time `json:"opened_at"`
}

func (b *BreakerState) closed() bool   { return b.State == "" || b.State == CircuitClosed }
func (b *BreakerState) open() bool     { return b.State == CircuitOpen }
func (b *BreakerState) halfOpen() bool { return b.State == CircuitHalfOpen }

// LimiterState is a token bucket plus an optional Retry-After block.
type LimiterState struct {
	Tokens       float64   `json:"tokens"`
	LastRefillAt time.Time `json:"last_refill_at"`
	BlockedUntil time.Time `json:"blocked_until"`
}

// BlockedFor returns how long the Retry-After window still has to run.
func (l *LimiterState) BlockedFor(now time.Time) time.Duration {
	if l.BlockedUntil.IsZero() || !now.Before(l.BlockedUntil) {
		return 0
	}
	return l.BlockedUntil.Sub(now)
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		Version:   StateVersion,
		Origins:   map[string]*OriginState{},
		UpdatedAt: time.Now(),
	}
}

// origin returns the state for key, creating it on first use.
func (s *State) origin(key string) *OriginState {
	if s.Origins == nil {
		s.Origins = map[string]*OriginState{}
	}
	o, ok := s.Origins[key]
	if !ok {
		o = &OriginState{Breaker: BreakerState{State: CircuitClosed}}
		s.Origins[key] = o
	}
	return o
}
