// Package api provides an HTTP client for the ERP backend's REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/erpdesk/erpdesk/internal/config"
	"github.com/erpdesk/erpdesk/internal/output"
	"github.com/erpdesk/erpdesk/internal/resilience"
	"github.com/erpdesk/erpdesk/internal/version"
)

const (
	defaultMaxRetries = 4
	defaultBaseDelay  = 1 * time.Second
	maxJitter         = 100 * time.Millisecond
)

// TokenSource supplies the bearer token and is told when the backend
// rejects it.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	Invalidate()
}

// Client is an HTTP client for the ERP backend.
type Client struct {
	httpClient *http.Client
	tokens     TokenSource
	baseURL    string
	gate       *resilience.Gate
	maxRetries int
	baseDelay  time.Duration
}

// Response wraps an API response.
type Response struct {
	Data       json.RawMessage
	StatusCode int
	Headers    http.Header
}

// UnmarshalData unmarshals the response body into v.
func (r *Response) UnmarshalData(v any) error {
	return json.Unmarshal(r.Data, v)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithGate routes every request through a resilience gate.
func WithGate(g *resilience.Gate) Option {
	return func(c *Client) { c.gate = g }
}

// WithRetry sets the retry budget and the first backoff delay.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.baseDelay = baseDelay
	}
}

// NewClient creates a client for cfg's backend.
func NewClient(cfg *config.Config, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		tokens:     tokens,
		baseURL:    config.NormalizeBaseURL(cfg.BaseURL),
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL, without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get performs a GET request. query may be nil.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.do(ctx, http.MethodGet, c.buildURL(path, query), nil, true)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPost, c.buildURL(path, nil), body, true)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPut, c.buildURL(path, nil), body, true)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodDelete, c.buildURL(path, nil), nil, true)
}

// User is the account a login token belongs to.
type User struct {
	ID      any    `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role,omitempty"`
	Company string `json:"company,omitempty"`
}

// LoginResult is the body of a successful POST /auth/login.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Login exchanges email and password for a bearer token. It sends no
// token of its own.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body := map[string]string{"email": email, "password": password}
	resp, err := c.do(ctx, http.MethodPost, c.buildURL("/auth/login", nil), body, false)
	if err != nil {
		if e := output.AsError(err); e.Code == output.CodeAuth {
			return nil, &output.Error{Code: output.CodeAuth, Message: "Invalid email or password", HTTPStatus: 401}
		}
		return nil, err
	}
	var res LoginResult
	if err := resp.UnmarshalData(&res); err != nil {
		return nil, fmt.Errorf("failed to parse login response: %w", err)
	}
	if res.Token == "" {
		return nil, output.ErrAPI(resp.StatusCode, "Login response carried no token")
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, body any, authed bool) (*Response, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries+1; attempt++ {
		resp, retryAfter, rejected, err := c.gated(ctx, method, rawURL, body, authed)
		if err == nil {
			return resp, nil
		}
		if rejected {
			return nil, err
		}

		var apiErr *output.Error
		if !errors.As(err, &apiErr) || !apiErr.Retryable || attempt > c.maxRetries {
			return nil, err
		}
		lastErr = err

		delay := c.backoffDelay(attempt)
		if retryAfter > delay {
			delay = retryAfter
		}
		slog.Debug("retrying request", "method", method, "url", rawURL,
			"attempt", attempt, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("request failed after %d retries: %w", c.maxRetries, lastErr)
}

// gated wraps one attempt with the resilience gate, if any. A request the
// gate refuses is reported as rejected and never retried.
func (c *Client) gated(ctx context.Context, method, rawURL string, body any, authed bool) (resp *Response, retryAfter time.Duration, rejected bool, err error) {
	if c.gate != nil {
		if err := c.gate.Before(ctx); err != nil {
			return nil, 0, true, err
		}
	}
	resp, retryAfter, err = c.singleRequest(ctx, method, rawURL, body, authed)
	if c.gate != nil {
		c.gate.After(err, retryAfter)
	}
	return resp, retryAfter, false, err
}

func (c *Client) singleRequest(ctx context.Context, method, rawURL string, body any, authed bool) (*Response, time.Duration, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if authed {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return nil, 0, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, output.ErrNetwork(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, output.ErrNetwork(fmt.Errorf("failed to read response: %w", err))
	}
	slog.Debug("api request", "method", method, "url", rawURL,
		"status", resp.StatusCode, "duration", time.Since(start))

	retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return &Response{Data: respBody, StatusCode: resp.StatusCode, Headers: resp.Header}, 0, nil

	case resp.StatusCode == http.StatusUnauthorized:
		if !authed {
			return nil, 0, output.ErrAuth(errorMessage(respBody, "Authentication failed"))
		}
		// The stored token is dead; drop it so the next command prompts
		// for a fresh login.
		c.tokens.Invalidate()
		return nil, 0, output.ErrAuth("Session expired")

	case resp.StatusCode == http.StatusForbidden:
		return nil, 0, output.ErrForbidden(errorMessage(respBody, "Access denied"))

	case resp.StatusCode == http.StatusNotFound:
		return nil, 0, output.ErrNotFound("Resource", strings.TrimPrefix(req.URL.Path, "/"))

	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, 0, output.ErrValidation(errorMessage(respBody, "Validation error"), fieldErrors(respBody))

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, retryAfter, output.ErrRateLimit(int(retryAfter / time.Second))

	case resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		return nil, retryAfter, &output.Error{
			Code:       output.CodeAPI,
			Message:    fmt.Sprintf("Gateway error (%d)", resp.StatusCode),
			HTTPStatus: resp.StatusCode,
			Retryable:  true,
		}

	default:
		return nil, 0, output.ErrAPI(resp.StatusCode,
			errorMessage(respBody, fmt.Sprintf("Request failed (HTTP %d)", resp.StatusCode)))
	}
}

// errorMessage pulls "error" or "message" out of a JSON error body.
func errorMessage(body []byte, fallback string) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Message != "" {
			return e.Message
		}
	}
	return fallback
}

// fieldErrors extracts per-field messages from an "errors" member, which
// the backend sends either as {"field": "msg"} or as a list of
// {"path": ["field"], "message": "msg"}.
func fieldErrors(body []byte) map[string]string {
	var env struct {
		Errors json.RawMessage `json:"errors"`
	}
	if json.Unmarshal(body, &env) != nil || len(env.Errors) == 0 {
		return nil
	}

	var byName map[string]string
	if json.Unmarshal(env.Errors, &byName) == nil && len(byName) > 0 {
		return byName
	}

	var list []struct {
		Path    []any  `json:"path"`
		Field   string `json:"field"`
		Message string `json:"message"`
	}
	if json.Unmarshal(env.Errors, &list) != nil {
		return nil
	}
	fields := make(map[string]string, len(list))
	for _, item := range list {
		name := item.Field
		if name == "" && len(item.Path) > 0 {
			parts := make([]string, len(item.Path))
			for i, p := range item.Path {
				parts[i] = fmt.Sprint(p)
			}
			name = strings.Join(parts, ".")
		}
		if name != "" {
			fields[name] = item.Message
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func (c *Client) buildURL(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.baseDelay * time.Duration(1<<(attempt-1))
	jitter := time.Duration(rand.Int63n(int64(maxJitter))) //nolint:gosec // G404: jitter needs no crypto rand
	return delay + jitter
}

// parseRetryAfter parses a Retry-After header given in seconds.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 0
}
