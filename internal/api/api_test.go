package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erpdesk/erpdesk/internal/config"
	"github.com/erpdesk/erpdesk/internal/output"
	"github.com/erpdesk/erpdesk/internal/resilience"
)

type fakeTokens struct {
	token       string
	invalidated int
}

func (f *fakeTokens) AccessToken(context.Context) (string, error) {
	if f.token == "" {
		return "", output.ErrAuth("Not logged in")
	}
	return f.token, nil
}

func (f *fakeTokens) Invalidate() {
	f.invalidated++
	f.token = ""
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) (*Client, *fakeTokens) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	tokens := &fakeTokens{token: "tok"}
	opts = append([]Option{WithRetry(2, time.Millisecond)}, opts...)
	return NewClient(&config.Config{BaseURL: srv.URL + "/api/"}, tokens, opts...), tokens
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestListPageSendsParamsAndParsesMeta(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/fakturs" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("page") != "2" || q.Get("limit") != "20" || q.Get("search") != "INV" || q.Get("status") != "UNPAID" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Has("startDate") {
			t.Error("empty extra params should be omitted")
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		writeJSON(w, 200, map[string]any{
			"data": []map[string]any{{"id": 11, "number": "INV-011"}, {"id": "12", "number": "INV-012"}},
			"meta": map[string]any{"total": 41, "page": 2, "limit": 20, "last_page": 3},
		})
	})

	page, err := ListPage[Record](context.Background(), c, "/fakturs", ListParams{
		Page: 2, Limit: 20, Search: " INV ", Status: "UNPAID", Extra: map[string]string{"startDate": ""},
	})
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if len(page.Data) != 2 || page.Data[0].ID() != "11" || page.Data[1].ID() != "12" {
		t.Errorf("unexpected data %v", page.Data)
	}
	if page.Meta.Total == nil || *page.Meta.Total != 41 || page.Meta.LastPage != 3 {
		t.Errorf("unexpected meta %+v", page.Meta)
	}
}

func TestListPageMissingMeta(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"data": []any{}})
	})

	page, err := ListPage[Record](context.Background(), c, "units", ListParams{Page: 1})
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if page.Meta.Total != nil {
		t.Error("absent total should stay nil")
	}
	if page.Meta.LastPage != 1 {
		t.Errorf("LastPage = %d, want 1", page.Meta.LastPage)
	}
}

func TestUnauthorizedInvalidatesToken(t *testing.T) {
	c, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 401, map[string]any{"message": "jwt expired"})
	})

	_, err := c.Get(context.Background(), "/items", nil)
	if e := output.AsError(err); e.Code != output.CodeAuth {
		t.Fatalf("expected auth error, got %v", err)
	}
	if tokens.invalidated != 1 {
		t.Errorf("invalidated = %d, want 1", tokens.invalidated)
	}
}

func TestRetriesGatewayErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, 200, map[string]any{"data": map[string]any{"id": 1}})
	})

	rec, err := c.GetRecord(context.Background(), "/units", "1")
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if rec.ID() != "1" {
		t.Errorf("ID = %q", rec.ID())
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Get(context.Background(), "/units", nil)
	if e := output.AsError(err); e.HTTPStatus != 503 {
		t.Fatalf("expected 503, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 1 + 2 retries", calls.Load())
	}
}

func TestValidationErrorFields(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 400, map[string]any{
			"message": "Validation error",
			"errors": []map[string]any{
				{"path": []string{"name"}, "message": "Required"},
				{"path": []any{"items", 0, "qty"}, "message": "Must be positive"},
			},
		})
	})

	_, _, err := c.SaveRecord(context.Background(), "/customers", "", Record{"name": ""})
	e := output.AsError(err)
	if e.Code != output.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if e.Fields["name"] != "Required" || e.Fields["items.0.qty"] != "Must be positive" {
		t.Errorf("unexpected fields %v", e.Fields)
	}
	if e.Hint != "Check: items.0.qty, name" {
		t.Errorf("Hint = %q", e.Hint)
	}
}

func TestSaveRecordCreateAndUpdate(t *testing.T) {
	var methods []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method+" "+r.URL.Path)
		var body Record
		_ = json.NewDecoder(r.Body).Decode(&body)
		body["id"] = 5
		writeJSON(w, 201, map[string]any{"data": body, "message": "Satuan berhasil dibuat"})
	})

	rec, msg, err := c.SaveRecord(context.Background(), "/units", "", Record{"name": "PCS"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID() != "5" || msg != "Satuan berhasil dibuat" {
		t.Errorf("unexpected result %v %q", rec, msg)
	}
	if _, _, err := c.SaveRecord(context.Background(), "/units", "5", Record{"name": "BOX"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := c.DeleteRecord(context.Background(), "/units", "5"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	want := []string{"POST /api/units", "PUT /api/units/5", "DELETE /api/units/5"}
	if len(methods) != len(want) {
		t.Fatalf("methods = %v", methods)
	}
	for i := range want {
		if methods[i] != want[i] {
			t.Errorf("methods[%d] = %q, want %q", i, methods[i], want[i])
		}
	}
}

func TestLogin(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("login must not send a token")
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "rahasia" {
			writeJSON(w, 401, map[string]any{"message": "Invalid credentials"})
			return
		}
		writeJSON(w, 200, map[string]any{
			"token": "jwt-abc",
			"user":  map[string]any{"id": "u1", "name": "Admin", "email": body["email"]},
		})
	})

	res, err := c.Login(context.Background(), "admin@example.com", "rahasia")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token != "jwt-abc" || res.User.Email != "admin@example.com" {
		t.Errorf("unexpected result %+v", res)
	}

	_, err = c.Login(context.Background(), "admin@example.com", "salah")
	if e := output.AsError(err); e.Code != output.CodeAuth {
		t.Errorf("expected auth error, got %v", err)
	}
}

func TestGateStopsRequestsWhenOpen(t *testing.T) {
	var calls atomic.Int32
	gate := resilience.NewGate(resilience.NewStore(t.TempDir()), "test", &resilience.Config{
		Breaker: resilience.BreakerConfig{FailureThreshold: 1, OpenTimeout: time.Minute},
	})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, WithGate(gate))

	_, err := c.Get(context.Background(), "/items", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	_, err = c.Get(context.Background(), "/items", nil)
	if e := output.AsError(err); e.HTTPStatus != 503 {
		t.Errorf("expected fail-fast unavailable, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestRecordLabel(t *testing.T) {
	if got := (Record{"id": 3, "code": "GD-01"}).Label(); got != "GD-01" {
		t.Errorf("Label = %q", got)
	}
	if got := (Record{"id": 3.0}).Label(); got != "3" {
		t.Errorf("Label = %q", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("7"); got != 7*time.Second {
		t.Errorf("got %v", got)
	}
	if got := parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"); got != 0 {
		t.Errorf("HTTP dates are not honored, got %v", got)
	}
}
