package resilience

import "time"

// Limiter is a token bucket for one backend origin.
type Limiter struct {
	origin string
	config LimiterConfig
	store  *Store
	now    func() time.Time
}

// NewLimiter creates a limiter for origin. Zero config fields take defaults.
func NewLimiter(store *Store, origin string, config LimiterConfig) *Limiter {
	return &Limiter{origin: origin, config: config.withDefaults(), store: store, now: time.Now}
}

// refill tops up the bucket for the time elapsed since the last refill. The
// first call fills it.
func (l *Limiter) refill(st *LimiterState, now time.Time) {
	if st.LastRefillAt.IsZero() {
		st.Tokens = l.config.MaxTokens
		st.LastRefillAt = now
		return
	}
	st.Tokens += now.Sub(st.LastRefillAt).Seconds() * l.config.RefillRate
	st.LastRefillAt = now
	if st.Tokens > l.config.MaxTokens {
		st.Tokens = l.config.MaxTokens
	}
}

// Allow consumes a request's worth of tokens, reporting false when the
// bucket is empty or a Retry-After window is active. Storage errors allow
// the request.
func (l *Limiter) Allow() (bool, error) {
	var allowed bool
	err := l.store.Update(func(s *State) error {
		st := &s.origin(l.origin).Limiter
		now := l.now()
		if st.BlockedFor(now) > 0 {
			return nil
		}
		l.refill(st, now)
		if st.Tokens >= l.config.Cost {
			st.Tokens -= l.config.Cost
			allowed = true
		}
		s.UpdatedAt = now
		return nil
	})
	if err != nil {
		return true, nil //nolint:nilerr // fail open
	}
	return allowed, nil
}

// BlockFor refuses requests for d, as asked by a 429 Retry-After. An
// existing later block is kept.
func (l *Limiter) BlockFor(d time.Duration) error {
	until := l.now().Add(d)
	return l.store.Update(func(s *State) error {
		st := &s.origin(l.origin).Limiter
		if until.After(st.BlockedUntil) {
			st.BlockedUntil = until
			s.UpdatedAt = l.now()
		}
		return nil
	})
}

// Remaining returns the time left in the Retry-After window.
func (l *Limiter) Remaining() (time.Duration, error) {
	state, err := l.store.Load()
	if err != nil {
		return 0, err
	}
	return state.origin(l.origin).Limiter.BlockedFor(l.now()), nil
}

// Tokens returns the tokens currently in the bucket.
func (l *Limiter) Tokens() (float64, error) {
	var tokens float64
	err := l.store.Update(func(s *State) error {
		st := &s.origin(l.origin).Limiter
		l.refill(st, l.now())
		tokens = st.Tokens
		return nil
	})
	return tokens, err
}

// Reset refills the bucket and lifts any block.
func (l *Limiter) Reset() error {
	return l.store.Update(func(s *State) error {
		now := l.now()
		s.origin(l.origin).Limiter = LimiterState{Tokens: l.config.MaxTokens, LastRefillAt: now}
		s.UpdatedAt = now
		return nil
	})
}
