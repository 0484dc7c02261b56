package resilience

import "time"

// Breaker is a circuit breaker for one backend origin.
type Breaker struct {
	origin string
	config BreakerConfig
	store  *Store
	now    func() time.Time
}

// NewBreaker creates a breaker for origin. Zero config fields take defaults.
func NewBreaker(store *Store, origin string, config BreakerConfig) *Breaker {
	return &Breaker{origin: origin, config: config.withDefaults(), store: store, now: time.Now}
}

// Allow reports whether a request may proceed. Half-open probes reserve a
// slot that RecordSuccess or RecordFailure releases. Storage errors allow
// the request.
func (b *Breaker) Allow() (bool, error) {
	state, err := b.store.Load()
	if err != nil {
		return true, nil
	}
	if st := &state.origin(b.origin).Breaker; st.closed() {
		return true, nil
	} else if st.open() && b.now().Sub(st.OpenedAt) < b.config.OpenTimeout {
		return false, nil
	}

	allowed := true
	err = b.store.Update(func(s *State) error {
		st := &s.origin(b.origin).Breaker
		now := b.now()

		switch {
		case st.closed():
			return nil
		case st.open():
			if now.Sub(st.OpenedAt) < b.config.OpenTimeout {
				allowed = false
				return nil
			}
			st.State = CircuitHalfOpen
			st.Successes = 0
			st.Failures = 0
			st.Probes = 0
		}

		// A probe reserved by a process that died never gets released;
		// forget it once a full open window has passed.
		limit := b.config.HalfOpenMaxRequests
		if limit > 0 && st.Probes >= limit && !st.LastProbeAt.IsZero() &&
			now.Sub(st.LastProbeAt) >= b.config.OpenTimeout {
			st.Probes = 0
		}
		if limit > 0 && st.Probes >= limit {
			allowed = false
			return nil
		}
		st.Probes++
		st.LastProbeAt = now
		s.UpdatedAt = now
		return nil
	})
	if err != nil {
		return true, nil
	}
	return allowed, nil
}

// RecordSuccess records a successful request.
func (b *Breaker) RecordSuccess() error {
	return b.store.Update(func(s *State) error {
		st := &s.origin(b.origin).Breaker
		switch {
		case st.halfOpen():
			if st.Probes > 0 {
				st.Probes--
			}
			st.Successes++
			if st.Successes >= b.config.SuccessThreshold {
				*st = BreakerState{State: CircuitClosed, LastFailureAt: st.LastFailureAt}
			}
		case st.closed():
			st.Failures = 0
		}
		s.UpdatedAt = b.now()
		return nil
	})
}

// RecordFailure records a failed request, opening the circuit once the
// threshold is reached or immediately when a half-open probe fails.
func (b *Breaker) RecordFailure() error {
	return b.store.Update(func(s *State) error {
		st := &s.origin(b.origin).Breaker
		now := b.now()
		st.LastFailureAt = now

		switch {
		case st.closed():
			st.Failures++
			if st.Failures >= b.config.FailureThreshold {
				st.State = CircuitOpen
				st.OpenedAt = now
			}
		case st.halfOpen():
			st.State = CircuitOpen
			st.OpenedAt = now
			st.Successes = 0
			st.Probes = 0
			st.LastProbeAt = time.Time{}
		}
		s.UpdatedAt = now
		return nil
	})
}

// State returns the circuit state, reporting an expired open window as
// half-open.
func (b *Breaker) State() (string, error) {
	state, err := b.store.Load()
	if err != nil {
		return CircuitClosed, err
	}
	st := state.origin(b.origin).Breaker
	if st.open() && b.now().Sub(st.OpenedAt) >= b.config.OpenTimeout {
		return CircuitHalfOpen, nil
	}
	if st.State == "" {
		return CircuitClosed, nil
	}
	return st.State, nil
}

// Reset closes the circuit.
func (b *Breaker) Reset() error {
	return b.store.Update(func(s *State) error {
		s.origin(b.origin).Breaker = BreakerState{State: CircuitClosed}
		s.UpdatedAt = b.now()
		return nil
	})
}
