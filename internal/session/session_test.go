package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erpdesk/erpdesk/internal/api"
	"github.com/erpdesk/erpdesk/internal/catalog"
	"github.com/erpdesk/erpdesk/internal/live"
	"github.com/erpdesk/erpdesk/internal/source"
	"github.com/erpdesk/erpdesk/internal/tabs"
	"github.com/erpdesk/erpdesk/internal/tui/workspace/data"
)

const (
	faktur    = "/dashboard/sales/faktur"
	pelanggan = "/dashboard/sales/pelanggan"
)

// fakeSource serves two pages of records per feature and remembers saves.
type fakeSource struct {
	mu      sync.Mutex
	calls   map[string]int
	filters []source.Filter
	saved   []api.Record
	saveErr error
}

func newFakeSource() *fakeSource { return &fakeSource{calls: map[string]int{}} }

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) Pages(f catalog.Feature, filter source.Filter) (data.PageFunc[api.Record], error) {
	s.mu.Lock()
	s.filters = append(s.filters, filter)
	s.mu.Unlock()
	return func(_ context.Context, page int) (data.Page[api.Record], error) {
		s.mu.Lock()
		s.calls[f.Href]++
		s.mu.Unlock()
		total := 4
		return data.Page[api.Record]{
			Items: []api.Record{
				{"id": fmt.Sprint(page*2 - 1)},
				{"id": fmt.Sprint(page * 2)},
			},
			LastPage: 2,
			Total:    &total,
		}, nil
	}, nil
}

func (s *fakeSource) Get(_ context.Context, _ catalog.Feature, id string) (api.Record, error) {
	return api.Record{"id": id, "name": "Record " + id}, nil
}

func (s *fakeSource) Save(_ context.Context, _ catalog.Feature, id string, rec api.Record) (api.Record, string, error) {
	if s.saveErr != nil {
		return nil, "", s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := api.Record{"id": id}
	for k, v := range rec {
		out[k] = v
	}
	s.saved = append(s.saved, out)
	return out, "saved", nil
}

func (s *fakeSource) count(href string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[href]
}

func newSession(t *testing.T) (*Session, *fakeSource) {
	t.Helper()
	cat := catalog.Default()
	src := newFakeSource()
	s := New(cat, src, NewRegistry(cat))
	t.Cleanup(s.Close)
	return s, src
}

// settle waits for background first-page loads.
func settle(s *Session) { s.loads.Wait() }

func TestStartsAtHome(t *testing.T) {
	s, _ := newSession(t)
	out := s.Outcome()
	assert.Equal(t, HomePath, out.Path)
	assert.True(t, out.Routed)
	assert.Empty(t, out.Mounted)
}

func TestNavigateMountsAndKeepsAlive(t *testing.T) {
	s, src := newSession(t)

	out := s.Navigate(faktur)
	assert.False(t, out.Routed)
	assert.Equal(t, faktur, out.Visible)
	settle(s)

	s.Navigate(pelanggan)
	out = s.Navigate("/dashboard/company")
	assert.True(t, out.Routed)
	assert.Empty(t, out.Visible)
	assert.ElementsMatch(t, []string{faktur, pelanggan}, out.Mounted)

	// The hidden faktur list kept its first page.
	s.Navigate(faktur)
	settle(s)
	st, err := s.List(faktur)
	require.NoError(t, err)
	assert.Len(t, st.Items, 2)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 1, src.count(faktur))
}

func TestMountLoadsFirstPage(t *testing.T) {
	s, src := newSession(t)

	s.Navigate(faktur)
	settle(s)

	st, err := s.List(faktur)
	require.NoError(t, err)
	assert.Len(t, st.Items, 2)
	assert.True(t, st.HasMore)
	assert.False(t, st.Loading)
	assert.Equal(t, 1, src.count(faktur))
}

func TestRestoredRegistryMountsFeatures(t *testing.T) {
	cat := catalog.Default()
	reg := NewRegistry(cat)
	reg.OpenFeatureTab(pelanggan)
	reg.OpenFeatureTab(faktur)

	src := newFakeSource()
	s := New(cat, src, reg)
	t.Cleanup(s.Close)
	out := s.Outcome()
	assert.Equal(t, faktur, out.Path)
	assert.Equal(t, faktur, out.Visible)
	assert.ElementsMatch(t, []string{faktur, pelanggan}, out.Mounted)

	settle(s)
	assert.Equal(t, 1, src.count(faktur))
	assert.Equal(t, 1, src.count(pelanggan))
}

func TestLoadMoreAccumulatesUntilLastPage(t *testing.T) {
	s, src := newSession(t)
	ctx := context.Background()
	s.Navigate(faktur)
	settle(s)

	st, err := s.LoadMore(ctx, faktur)
	require.NoError(t, err)
	assert.Len(t, st.Items, 4)
	assert.False(t, st.HasMore)

	st, err = s.LoadMore(ctx, faktur)
	require.NoError(t, err)
	assert.Len(t, st.Items, 4)
	assert.Equal(t, 2, src.count(faktur))
}

func TestListRequiresMountedFeature(t *testing.T) {
	s, _ := newSession(t)
	_, err := s.List(faktur)
	require.Error(t, err)
	_, err = s.LoadMore(context.Background(), faktur)
	require.Error(t, err)
}

func TestFilterStartsOver(t *testing.T) {
	s, src := newSession(t)
	ctx := context.Background()
	s.Navigate(faktur)
	settle(s)
	_, err := s.LoadMore(ctx, faktur)
	require.NoError(t, err)

	st, err := s.Filter(faktur, source.Filter{Search: "INV", Status: "PAID"})
	require.NoError(t, err)
	assert.Empty(t, st.Items)
	assert.True(t, st.Loading)
	assert.Equal(t, "INV", st.Search)
	assert.Equal(t, "PAID", st.Status)
	assert.Equal(t, source.Filter{Search: "INV", Status: "PAID"}, src.filters[len(src.filters)-1])

	settle(s)
	st, err = s.List(faktur)
	require.NoError(t, err)
	assert.Len(t, st.Items, 2)
	assert.Equal(t, 3, src.count(faktur))
}

func TestRefreshReloadsFirstPage(t *testing.T) {
	s, src := newSession(t)
	ctx := context.Background()
	s.Navigate(faktur)
	settle(s)
	_, err := s.LoadMore(ctx, faktur)
	require.NoError(t, err)

	st, err := s.Refresh(faktur)
	require.NoError(t, err)
	assert.Empty(t, st.Items)
	assert.Equal(t, 1, st.Page)
	assert.True(t, st.Loading)

	settle(s)
	st, err = s.List(faktur)
	require.NoError(t, err)
	assert.Len(t, st.Items, 2)
	assert.True(t, st.HasMore)
	assert.Equal(t, 3, src.count(faktur))
}

func TestFeatureLifecycle(t *testing.T) {
	s, _ := newSession(t)

	require.NoError(t, s.OpenFeature(faktur))
	require.NoError(t, s.OpenFeature(pelanggan))
	assert.Equal(t, pelanggan, s.Outcome().Path)

	require.NoError(t, s.ActivateFeature(faktur))
	assert.Equal(t, faktur, s.Outcome().Visible)

	require.NoError(t, s.CloseFeature(faktur))
	out := s.Outcome()
	assert.Equal(t, pelanggan, out.Path)
	assert.Equal(t, []string{pelanggan}, out.Mounted)

	require.NoError(t, s.CloseFeature(pelanggan))
	assert.Equal(t, HomePath, s.Outcome().Path)

	assert.Error(t, s.CloseFeature(pelanggan))
	assert.Error(t, s.ActivateFeature(pelanggan))
	assert.Error(t, s.OpenFeature("/nowhere"))
}

func TestDataTabs(t *testing.T) {
	s, _ := newSession(t)

	tab, err := s.OpenNew(faktur)
	require.NoError(t, err)
	assert.Equal(t, tabs.NewTabID(faktur), tab.ID)
	// Opening a data tab of a closed feature opens and shows the feature.
	assert.Equal(t, faktur, s.Outcome().Visible)

	edit, err := s.OpenEdit(faktur, "7", "INV-7")
	require.NoError(t, err)
	assert.Equal(t, "Edit: INV-7", edit.Title)

	active, ok := s.Tabs().ActiveDataTab()
	require.True(t, ok)
	assert.Equal(t, edit.ID, active.ID)

	require.NoError(t, s.ActivateDataTab(faktur, tab.ID))
	active, _ = s.Tabs().ActiveDataTab()
	assert.Equal(t, tab.ID, active.ID)

	require.NoError(t, s.UpdateDraft(faktur, edit.ID, api.Record{"fakturNumber": "INV-7b"}, true))
	assert.True(t, s.Tabs().Dirty(faktur))

	s.CloseDataTab(faktur, edit.ID)
	assert.False(t, s.Tabs().Dirty(faktur))

	_, err = s.OpenEdit(faktur, "", "")
	assert.Error(t, err)
	_, err = s.OpenNew("/dashboard/company")
	assert.Error(t, err)
	assert.Error(t, s.UpdateDraft(faktur, "missing", nil, true))
}

func TestSaveDraftClosesTabAndReloadsList(t *testing.T) {
	s, src := newSession(t)
	ctx := context.Background()
	s.Navigate(faktur)
	settle(s)
	_, err := s.LoadMore(ctx, faktur)
	require.NoError(t, err)

	edit, err := s.OpenEdit(faktur, "7", "")
	require.NoError(t, err)
	require.NoError(t, s.UpdateDraft(faktur, edit.ID, api.Record{"fakturNumber": "INV-7"}, true))

	rec, msg, err := s.SaveDraft(ctx, faktur, edit.ID)
	require.NoError(t, err)
	assert.Equal(t, "saved", msg)
	assert.Equal(t, "7", rec.ID())
	require.Len(t, src.saved, 1)

	_, ok := s.Tabs().DataTab(faktur, edit.ID)
	assert.False(t, ok)

	settle(s)
	st, err := s.List(faktur)
	require.NoError(t, err)
	assert.Len(t, st.Items, 2, "only the first page after the reload")
	assert.Equal(t, 3, src.count(faktur))
}

func TestSaveDraftConvertsLikeTheForm(t *testing.T) {
	s, src := newSession(t)
	tab, err := s.OpenNew(faktur)
	require.NoError(t, err)
	require.NoError(t, s.UpdateDraft(faktur, tab.ID, api.Record{
		"fakturNumber": " INV-8 ",
		"fakturDate":   "25/10/2026",
		"notes":        "",
		"unknown":      "x",
	}, true))

	_, _, err = s.SaveDraft(context.Background(), faktur, tab.ID)
	require.NoError(t, err)

	require.Len(t, src.saved, 1)
	assert.Equal(t, api.Record{"id": "", "fakturNumber": "INV-8", "fakturDate": "2026-10-25"}, src.saved[0])
}

func TestSaveDraftKeepsTabOnError(t *testing.T) {
	s, src := newSession(t)
	src.saveErr = fmt.Errorf("boom")
	tab, err := s.OpenNew(faktur)
	require.NoError(t, err)

	_, _, err = s.SaveDraft(context.Background(), faktur, tab.ID)
	require.Error(t, err)
	_, ok := s.Tabs().DataTab(faktur, tab.ID)
	assert.True(t, ok)
	assert.Empty(t, src.saved)
}

func TestApplyLiveReloadsMatchingLists(t *testing.T) {
	s, src := newSession(t)
	ctx := context.Background()
	s.Navigate(faktur)
	s.Navigate(pelanggan)
	settle(s)
	st, err := s.LoadMore(ctx, faktur)
	require.NoError(t, err)
	require.Len(t, st.Items, 4)

	reset := s.ApplyLive(live.Event{Type: live.RecordCreated, Resource: "/fakturs", ID: "9"})
	assert.Equal(t, []string{faktur}, reset)

	settle(s)
	st, _ = s.List(faktur)
	assert.Len(t, st.Items, 2, "the hidden list reloaded its first page")
	assert.Equal(t, 3, src.count(faktur))
	st, _ = s.List(pelanggan)
	assert.Len(t, st.Items, 2)
	assert.Equal(t, 1, src.count(pelanggan))
}

func TestCloseStopsBackgroundLoads(t *testing.T) {
	s, src := newSession(t)
	s.Close()

	s.Navigate(faktur)
	st, err := s.List(faktur)
	require.NoError(t, err)
	assert.Empty(t, st.Items)
	assert.False(t, st.Loading)
	assert.Zero(t, src.count(faktur))
}

func TestEventsStreamRegistryChanges(t *testing.T) {
	s, _ := newSession(t)
	id, ch := s.Events().Subscribe()
	defer s.Events().Unsubscribe(id)

	s.Navigate(faktur)
	evt := <-ch
	assert.Equal(t, tabs.FeatureOpened, evt.Kind)
	assert.Equal(t, faktur, evt.FeatureID)
}
