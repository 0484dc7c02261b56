package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erpdesk/erpdesk/internal/output"
)

// defaultRetryAfter applies to a 429 that carries no Retry-After header.
const defaultRetryAfter = 60 * time.Second

// Gate combines the limiter and breaker for one backend origin. Call
// Before ahead of each request and After with its outcome.
type Gate struct {
	breaker *Breaker
	limiter *Limiter
}

// NewGate creates a gate for origin backed by store.
func NewGate(store *Store, origin string, cfg *Config) *Gate {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Gate{
		breaker: NewBreaker(store, origin, cfg.Breaker),
		limiter: NewLimiter(store, origin, cfg.Limiter),
	}
}

// Breaker exposes the gate's circuit breaker.
func (g *Gate) Breaker() *Breaker { return g.breaker }

// Limiter exposes the gate's token bucket.
func (g *Gate) Limiter() *Limiter { return g.limiter }

// Before reports whether a request may be sent. The limiter is consulted
// first: the breaker reserves a half-open probe, and a probe reserved for a
// request the limiter then refuses would never be released.
func (g *Gate) Before(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ok, _ := g.limiter.Allow(); !ok {
		wait, _ := g.limiter.Remaining()
		return output.ErrRateLimit(int(wait.Round(time.Second).Seconds()))
	}
	if ok, _ := g.breaker.Allow(); !ok {
		return output.ErrUnavailable(fmt.Sprintf("Backend failing; retrying after %s", g.breaker.config.OpenTimeout))
	}
	return nil
}

// After records the outcome of a request that Before allowed. retryAfter
// is the parsed Retry-After header, zero when absent.
func (g *Gate) After(err error, retryAfter time.Duration) {
	if err == nil {
		_ = g.breaker.RecordSuccess()
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}

	e := output.AsError(err)
	if e.Code == output.CodeRateLimit {
		if retryAfter <= 0 {
			retryAfter = defaultRetryAfter
		}
		_ = g.limiter.BlockFor(retryAfter)
		return
	}
	if retryAfter > 0 {
		_ = g.limiter.BlockFor(retryAfter)
	}
	if TripsBreaker(err) {
		_ = g.breaker.RecordFailure()
	} else {
		// A 4xx still proves the backend is answering.
		_ = g.breaker.RecordSuccess()
	}
}

// TripsBreaker reports whether err indicates an unhealthy backend: network
// failures and 5xx responses do, client errors and rate limits do not.
func TripsBreaker(err error) bool {
	if err == nil {
		return false
	}
	var e *output.Error
	if !errors.As(err, &e) {
		return true
	}
	switch e.Code {
	case output.CodeNetwork:
		return true
	case output.CodeAPI:
		return e.HTTPStatus >= 500 || e.HTTPStatus == 0
	default:
		return false
	}
}
