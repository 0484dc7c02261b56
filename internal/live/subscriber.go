package live

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// TokenSource supplies the bearer token sent with the handshake.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Subscriber keeps a websocket connection to the feed open, reconnecting
// with backoff, and hands every decoded event to a handler.
type Subscriber struct {
	url    string
	tokens TokenSource

	minBackoff time.Duration
	maxBackoff time.Duration
}

// Option configures a Subscriber.
type Option func(*Subscriber)

// WithBackoff sets the reconnect delay bounds.
func WithBackoff(minDelay, maxDelay time.Duration) Option {
	return func(s *Subscriber) {
		s.minBackoff = minDelay
		s.maxBackoff = maxDelay
	}
}

// NewSubscriber creates a subscriber for the feed at url. tokens may be nil
// for an unauthenticated feed.
func NewSubscriber(url string, tokens TokenSource, opts ...Option) *Subscriber {
	s := &Subscriber{url: url, tokens: tokens, minBackoff: time.Second, maxBackoff: 30 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run follows the feed until ctx is done, calling handle for each event
// from the calling goroutine. It only returns ctx's error.
func (s *Subscriber) Run(ctx context.Context, handle func(Event)) error {
	delay := s.minBackoff
	for {
		connected, err := s.session(ctx, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			delay = s.minBackoff
		}
		slog.Debug("live feed disconnected", "url", s.url, "error", err, "retry_in", delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, s.maxBackoff)
	}
}

// session runs one connection. connected reports whether the handshake
// succeeded, which resets the backoff.
func (s *Subscriber) session(ctx context.Context, handle func(Event)) (connected bool, err error) {
	conn, err := s.dial(ctx)
	if err != nil {
		return false, err
	}
	slog.Debug("live feed connected", "url", s.url)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	for {
		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			return true, err
		}
		evt, err := Decode(data)
		if err != nil {
			slog.Debug("live feed: skipping frame", "error", err)
			continue
		}
		handle(evt)
	}
}

func (s *Subscriber) dial(ctx context.Context) (net.Conn, error) {
	dialer := ws.Dialer{Timeout: 10 * time.Second}
	if s.tokens != nil {
		token, err := s.tokens.AccessToken(ctx)
		if err != nil {
			return nil, err
		}
		dialer.Header = ws.HandshakeHeaderHTTP(http.Header{
			"Authorization": []string{"Bearer " + token},
		})
	}

	conn, _, _, err := dialer.Dial(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("live feed dial: %w", err)
	}
	return conn, nil
}
