package data

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID   string
	Name string
}

func intp(n int) *int { return &n }

// pages serves fixed pages, counting calls.
func pages(calls *atomic.Int32, data map[int]Page[row]) PageFunc[row] {
	return func(ctx context.Context, page int) (Page[row], error) {
		calls.Add(1)
		return data[page], nil
	}
}

func names(items []row) []string {
	out := make([]string, len(items))
	for i, r := range items {
		out[i] = r.ID + ":" + r.Name
	}
	return out
}

func TestFetcherTwoPagesWithOverlap(t *testing.T) {
	var calls atomic.Int32
	f := NewFetcher("fakturs", pages(&calls, map[int]Page[row]{
		1: {Items: []row{{"a", "A"}, {"b", "B1"}}, LastPage: 2, Total: intp(4)},
		2: {Items: []row{{"b", "B2"}, {"c", "C"}}, LastPage: 2, Total: intp(4)},
	}), nil)

	msg := f.LoadMore(context.Background())()
	assert.Equal(t, PageLoadedMsg{Key: "fakturs"}, msg)
	st := f.State()
	assert.Equal(t, []string{"a:A", "b:B1"}, names(st.Items))
	assert.True(t, st.HasMore)
	assert.Equal(t, 2, st.Page)
	assert.Equal(t, 4, st.Total)

	f.LoadMore(context.Background())()
	st = f.State()
	assert.Equal(t, []string{"a:A", "b:B1", "c:C"}, names(st.Items), "first occurrence wins")
	assert.False(t, st.HasMore)
	assert.Equal(t, 4, st.Total)
	assert.False(t, st.Loading)

	assert.Nil(t, f.LoadMore(context.Background()), "no more pages")
	assert.Nil(t, f.SentinelVisible(context.Background()))
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetcherLoadMoreWhileInFlightIsNoOp(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	f := NewFetcher("items", func(ctx context.Context, page int) (Page[row], error) {
		calls.Add(1)
		<-release
		return Page[row]{Items: []row{{"1", "x"}}, LastPage: 3}, nil
	}, nil)

	first := f.LoadMore(context.Background())
	require.NotNil(t, first)
	assert.Nil(t, f.LoadMore(context.Background()))
	assert.True(t, f.State().Loading)

	done := make(chan any)
	go func() { done <- first() }()
	close(release)
	<-done

	st := f.State()
	assert.Len(t, st.Items, 1)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetcherResetDiscardsStaleResponse(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var gen atomic.Int32
	f := NewFetcher("customers", func(ctx context.Context, page int) (Page[row], error) {
		if gen.Add(1) == 1 {
			// The stale request ignores cancellation and answers late.
			close(started)
			<-release
			return Page[row]{Items: []row{{"old", "stale"}}, LastPage: 1, Total: intp(99)}, nil
		}
		return Page[row]{Items: []row{{"new", "fresh"}}, LastPage: 5, Total: intp(1)}, nil
	}, nil)

	stale := f.LoadMore(context.Background())
	staleMsg := make(chan any)
	go func() { staleMsg <- stale() }()
	<-started

	f.Reset()
	f.AutoLoad(context.Background())()

	close(release)
	assert.Nil(t, <-staleMsg, "stale result produces no message")

	st := f.State()
	assert.Equal(t, []string{"new:fresh"}, names(st.Items))
	assert.Equal(t, 1, st.Total)
	assert.True(t, st.HasMore)
	assert.Equal(t, 2, st.Page)
}

func TestFetcherResetCancelsInFlight(t *testing.T) {
	started := make(chan struct{})
	var sawCancel atomic.Bool
	f := NewFetcher("units", func(ctx context.Context, page int) (Page[row], error) {
		close(started)
		<-ctx.Done()
		sawCancel.Store(true)
		return Page[row]{}, ctx.Err()
	}, nil)

	cmd := f.LoadMore(context.Background())
	msg := make(chan any)
	go func() { msg <- cmd() }()
	<-started

	f.Reset()
	assert.Nil(t, <-msg)
	assert.True(t, sawCancel.Load())

	st := f.State()
	assert.NoError(t, st.Err)
	assert.False(t, st.Loading)
	assert.False(t, st.Attempted)
	assert.True(t, st.HasMore)
	assert.Equal(t, 1, st.Page)
}

func TestFetcherParentCancellationIsNotAnError(t *testing.T) {
	f := NewFetcher("units", func(ctx context.Context, page int) (Page[row], error) {
		<-ctx.Done()
		return Page[row]{}, errors.Join(errors.New("request aborted"), ctx.Err())
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cmd := f.LoadMore(ctx)
	cancel()
	msg := cmd()

	assert.Equal(t, PageLoadedMsg{Key: "units"}, msg)
	st := f.State()
	assert.NoError(t, st.Err)
	assert.False(t, st.Loading)
	assert.True(t, st.HasMore)
}

func TestFetcherErrorKeepsHasMore(t *testing.T) {
	boom := errors.New("502 bad gateway")
	var calls atomic.Int32
	f := NewFetcher("items", func(ctx context.Context, page int) (Page[row], error) {
		if calls.Add(1) == 1 {
			return Page[row]{}, boom
		}
		return Page[row]{Items: []row{{"1", "x"}}, LastPage: 1}, nil
	}, nil)

	msg := f.LoadMore(context.Background())()
	assert.Equal(t, PageLoadedMsg{Key: "items", Err: boom}, msg)
	st := f.State()
	assert.ErrorIs(t, st.Err, boom)
	assert.False(t, st.Loading)
	assert.True(t, st.HasMore)
	assert.Equal(t, 1, st.Page)

	assert.Nil(t, f.AutoLoad(context.Background()), "failed attempt does not auto-retry")
	assert.Equal(t, int32(1), calls.Load())

	f.LoadMore(context.Background())()
	st = f.State()
	assert.NoError(t, st.Err, "manual retry clears the error")
	assert.Len(t, st.Items, 1)
	assert.False(t, st.HasMore)
}

func TestFetcherAutoLoadOncePerResetCycle(t *testing.T) {
	var calls atomic.Int32
	f := NewFetcher("warehouses", func(ctx context.Context, page int) (Page[row], error) {
		calls.Add(1)
		return Page[row]{LastPage: 1}, nil
	}, nil)

	cmd := f.AutoLoad(context.Background())
	require.NotNil(t, cmd)
	assert.Nil(t, f.AutoLoad(context.Background()), "in flight")
	cmd()
	assert.Nil(t, f.AutoLoad(context.Background()), "empty result does not re-trigger")

	f.Reset()
	cmd = f.AutoLoad(context.Background())
	require.NotNil(t, cmd, "reset re-arms")
	cmd()
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetcherMissingTotalKeepsPrevious(t *testing.T) {
	var calls atomic.Int32
	f := NewFetcher("items", pages(&calls, map[int]Page[row]{
		1: {Items: []row{{"a", ""}}, LastPage: 2, Total: intp(2)},
		2: {Items: []row{{"b", ""}}, LastPage: 2},
	}), nil)

	f.LoadMore(context.Background())()
	f.LoadMore(context.Background())()
	assert.Equal(t, 2, f.State().Total)
}

func TestFetcherCancelKeepsItems(t *testing.T) {
	var calls atomic.Int32
	f := NewFetcher("items", func(ctx context.Context, page int) (Page[row], error) {
		if calls.Add(1) == 1 {
			return Page[row]{Items: []row{{"a", ""}}, LastPage: 3}, nil
		}
		<-ctx.Done()
		return Page[row]{}, ctx.Err()
	}, nil)

	f.LoadMore(context.Background())()
	cmd := f.LoadMore(context.Background())
	msg := make(chan any)
	go func() { msg <- cmd() }()

	// Wait for the request to be in flight before canceling.
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)
	f.Cancel()
	assert.Nil(t, <-msg)

	st := f.State()
	assert.Len(t, st.Items, 1)
	assert.False(t, st.Loading)
	assert.Equal(t, 2, st.Page)
	assert.NotNil(t, f.LoadMore(context.Background()), "can load again after cancel")
}

func TestFetcherInitialPage(t *testing.T) {
	var got []int
	f := NewFetcher("x", func(ctx context.Context, page int) (Page[row], error) {
		got = append(got, page)
		return Page[row]{LastPage: 4}, nil
	}, nil, WithInitialPage(3))

	f.LoadMore(context.Background())()
	f.LoadMore(context.Background())()
	assert.Equal(t, []int{3, 4}, got)
	assert.False(t, f.State().HasMore)

	f.Reset()
	assert.Equal(t, 3, f.State().Page)
}

func TestDefaultID(t *testing.T) {
	type withId struct{ Id int }
	type lower struct{ id string }

	assert.Equal(t, "7", DefaultID(map[string]any{"id": 7}))
	assert.Equal(t, "INV-1", DefaultID(map[string]any{"id": "INV-1"}))
	assert.Equal(t, "a", DefaultID(row{ID: "a"}))
	assert.Equal(t, "5", DefaultID(&withId{Id: 5}))
	assert.Equal(t, "{x}", DefaultID(lower{id: "x"}), "unexported fields are not readable")
	assert.Equal(t, "plain", DefaultID("plain"))
	assert.Equal(t, "", DefaultID[*row](nil))
}

func TestFetcherCustomID(t *testing.T) {
	var calls atomic.Int32
	f := NewFetcher("x", pages(&calls, map[int]Page[row]{
		1: {Items: []row{{"1", "same"}, {"2", "same"}}, LastPage: 1},
	}), func(r row) string { return r.Name })

	f.LoadMore(context.Background())()
	assert.Len(t, f.State().Items, 1)
}
