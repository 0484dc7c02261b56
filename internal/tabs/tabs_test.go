package tabs

import (
	"fmt"
	"math/rand"
	"maps"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type info map[string]string

func (i info) Title(href string) string { return i[href] }
func (i info) Icon(string) string       { return "•" }

const sales = "/dashboard/sales/faktur"

func ids[T any](f FeatureTab[T]) []string {
	out := make([]string, len(f.DataTabs))
	for i, t := range f.DataTabs {
		out[i] = t.ID
	}
	return out
}

func TestOpenDataTabCreatesFeatureWithListTab(t *testing.T) {
	r := NewRegistry[string](WithInfo[string](info{sales: "Faktur"}))

	r.OpenDataTab(sales, NewTab[string](sales))

	f, ok := r.FeatureTab(sales)
	require.True(t, ok)
	assert.Equal(t, "Faktur", f.Title)
	assert.Equal(t, "•", f.Icon)
	assert.Equal(t, []string{sales + "-list", sales + "-new"}, ids(f))
	assert.Equal(t, sales+"-new", f.ActiveDataTabID)
	assert.Equal(t, sales, r.ActiveFeatureID(), "first feature becomes active")

	active, ok := r.ActiveDataTab()
	require.True(t, ok)
	assert.Equal(t, NewTitle, active.Title)
	assert.Equal(t, sales, active.Href)
}

func TestOpenDataTabIsIdempotent(t *testing.T) {
	r := NewRegistry[string]()
	r.OpenDataTab("sales", DataTab[string]{ID: "sales-new", Title: "Data Baru"})
	r.UpdateDataTabData("sales", "sales-new", "draft")
	r.SetActiveDataTab("sales", "sales-list")

	r.OpenDataTab("sales", DataTab[string]{ID: "sales-new", Title: "Other title", Data: "ignored"})

	f, _ := r.FeatureTab("sales")
	assert.Equal(t, []string{"sales-list", "sales-new"}, ids(f))
	assert.Equal(t, "sales-new", f.ActiveDataTabID, "duplicate open moves the active pointer")

	tab, _ := r.DataTab("sales", "sales-new")
	assert.Equal(t, "Data Baru", tab.Title, "existing tab is not replaced")
	assert.Equal(t, "draft", tab.Data)
}

func TestOpenDataTabOnMissingFeatureKeepsActiveFeature(t *testing.T) {
	r := NewRegistry[string]()
	r.OpenFeatureTab("/a")
	r.OpenDataTab("/b", NewTab[string]("/b"))

	assert.Equal(t, "/a", r.ActiveFeatureID())
	f, ok := r.FeatureTab("/b")
	require.True(t, ok)
	assert.Equal(t, "/b-new", f.ActiveDataTabID)
}

func TestCloseDataTabFallsBackToList(t *testing.T) {
	r := NewRegistry[string]()
	r.OpenDataTab(sales, NewTab[string](sales))
	r.OpenDataTab(sales, EditTab[string](sales, "7", "INV-007"))
	r.SetActiveDataTab(sales, sales+"-new")

	r.CloseDataTab(sales, sales+"-edit-7")
	f, _ := r.FeatureTab(sales)
	assert.Equal(t, sales+"-new", f.ActiveDataTabID, "closing an inactive tab keeps the pointer")

	r.CloseDataTab(sales, sales+"-new")
	f, _ = r.FeatureTab(sales)
	assert.Equal(t, []string{sales + "-list"}, ids(f))
	assert.Equal(t, sales+"-list", f.ActiveDataTabID)
}

func TestListTabIsNotClosable(t *testing.T) {
	r := NewRegistry[string]()
	r.OpenFeatureTab(sales)
	v := r.Version()

	r.CloseDataTab(sales, ListTabID(sales))

	f, _ := r.FeatureTab(sales)
	assert.Equal(t, []string{sales + "-list"}, ids(f))
	assert.Equal(t, v, r.Version())
}

func TestUnknownIDsAreNoOps(t *testing.T) {
	r := NewRegistry[string]()
	var events []Event
	r.OnChange(func(e Event) { events = append(events, e) })

	assert.NotPanics(t, func() {
		r.CloseDataTab("nope", "nope-new")
		r.SetActiveDataTab("nope", "x")
		r.UpdateDataTabData("nope", "x", "data")
		r.MarkDataTabDirty("nope", "x", true)
		r.RenameDataTab("nope", "x", "y")
		r.CloseFeatureTab("nope")
		r.SetActiveFeatureTab("nope")
		r.OpenDataTab("", NewTab[string](""))
		r.OpenFeatureTab("")
	})
	assert.Empty(t, events)
	assert.Empty(t, r.FeatureTabs())

	_, ok := r.ActiveDataTab()
	assert.False(t, ok, "no active feature means no active tab")

	r.OpenFeatureTab(sales)
	r.SetActiveDataTab(sales, "missing")
	active, ok := r.ActiveDataTab()
	require.True(t, ok)
	assert.Equal(t, ListTabID(sales), active.ID)
}

func TestUpdateDoesNotTouchDirty(t *testing.T) {
	r := NewRegistry[string]()
	r.OpenDataTab(sales, NewTab[string](sales))
	id := NewTabID(sales)

	r.UpdateDataTabData(sales, id, "one")
	tab, _ := r.DataTab(sales, id)
	assert.False(t, tab.Dirty)
	assert.True(t, tab.HasData)

	r.MarkDataTabDirty(sales, id, true)
	r.UpdateDataTabData(sales, id, "two")
	tab, _ = r.DataTab(sales, id)
	assert.True(t, tab.Dirty)
	assert.Equal(t, "two", tab.Data, "last write wins")
	assert.True(t, r.Dirty(sales))

	r.MarkDataTabDirty(sales, id, false)
	tab, _ = r.DataTab(sales, id)
	assert.Equal(t, "two", tab.Data, "marking dirty leaves data alone")
	assert.False(t, r.Dirty(sales))
}

func TestCloseFeatureTabFallsBackToLastFeature(t *testing.T) {
	r := NewRegistry[string]()
	r.OpenFeatureTab("/a")
	r.OpenFeatureTab("/b")
	r.OpenFeatureTab("/c")
	r.SetActiveFeatureTab("/b")

	r.CloseFeatureTab("/b")
	assert.Equal(t, "/c", r.ActiveFeatureID())

	r.CloseFeatureTab("/a")
	assert.Equal(t, "/c", r.ActiveFeatureID())

	r.CloseFeatureTab("/c")
	assert.Equal(t, "", r.ActiveFeatureID())
	_, ok := r.ActiveFeatureTab()
	assert.False(t, ok)
}

func TestOpenFeatureTabActivatesExisting(t *testing.T) {
	r := NewRegistry[string]()
	r.OpenFeatureTab("/a")
	r.OpenDataTab("/a", NewTab[string]("/a"))
	r.OpenFeatureTab("/b")

	r.OpenFeatureTab("/a")

	assert.Equal(t, "/a", r.ActiveFeatureID())
	f, _ := r.FeatureTab("/a")
	assert.Len(t, f.DataTabs, 2, "reopening keeps data tabs")
	assert.Len(t, r.FeatureTabs(), 2)
}

func TestReadersGetCopies(t *testing.T) {
	r := NewRegistry(WithClone(func(m map[string]string) map[string]string { return maps.Clone(m) }))
	r.OpenDataTab(sales, NewTab[map[string]string](sales))
	r.UpdateDataTabData(sales, NewTabID(sales), map[string]string{"name": "PT Maju"})

	f, _ := r.FeatureTab(sales)
	f.DataTabs[0].Title = "hacked"
	f.DataTabs[1].Data["name"] = "changed"
	f.ActiveDataTabID = "x"

	again, _ := r.FeatureTab(sales)
	assert.Equal(t, ListTitle, again.DataTabs[0].Title)
	assert.Equal(t, "PT Maju", again.DataTabs[1].Data["name"])
	assert.Equal(t, NewTabID(sales), again.ActiveDataTabID)
}

func TestEventsAndVersion(t *testing.T) {
	r := NewRegistry[string]()
	var kinds []EventKind
	r.OnChange(func(e Event) { kinds = append(kinds, e.Kind) })

	r.OpenDataTab(sales, NewTab[string](sales))
	r.MarkDataTabDirty(sales, NewTabID(sales), true)
	r.MarkDataTabDirty(sales, NewTabID(sales), true) // unchanged
	r.CloseDataTab(sales, NewTabID(sales))

	assert.Equal(t, []EventKind{
		FeatureOpened, FeatureActivated, DataTabOpened, DataTabActivated,
		DataTabDirty, DataTabClosed, DataTabActivated,
	}, kinds)
	assert.Equal(t, uint64(3), r.Version())
}

func TestSnapshotRestoreRepairs(t *testing.T) {
	r := NewRegistry[string]()
	r.Restore(State[string]{
		ActiveFeatureID: "/gone",
		Features: []FeatureTab[string]{
			{ID: "/a", Title: "A", DataTabs: []DataTab[string]{
				{ID: "/a-new", Title: "Data Baru", Data: "x", HasData: true, Dirty: true},
				{ID: "/a-new", Title: "dup"},
			}, ActiveDataTabID: "/a-missing"},
			{ID: "/a"},
			{ID: "/b", ActiveDataTabID: "/b-list"},
		},
	})

	fs := r.FeatureTabs()
	require.Len(t, fs, 2)
	assert.Equal(t, []string{"/a-list", "/a-new"}, ids(fs[0]), "list tab is seeded and duplicates dropped")
	assert.Equal(t, "/a-list", fs[0].ActiveDataTabID)
	assert.True(t, fs[0].Dirty())
	assert.Equal(t, "/b", r.ActiveFeatureID(), "dangling active feature falls back to the last one")

	snap := r.Snapshot()
	other := NewRegistry[string]()
	other.Restore(snap)
	assert.Equal(t, snap, other.Snapshot())
}

func TestCloseAll(t *testing.T) {
	r := NewRegistry[string]()
	r.OpenFeatureTab("/a")
	r.OpenFeatureTab("/b")
	r.CloseAll()
	assert.Empty(t, r.FeatureTabs())
	assert.Equal(t, "", r.ActiveFeatureID())
}

// Random open/close sequences never produce duplicate ids or a dangling
// active pointer.
func TestRandomSequencesKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	r := NewRegistry[int]()
	features := []string{"/a", "/b"}

	for step := 0; step < 2000; step++ {
		f := features[rng.Intn(len(features))]
		id := fmt.Sprintf("%s-edit-%d", f, rng.Intn(5))
		switch rng.Intn(5) {
		case 0, 1:
			r.OpenDataTab(f, DataTab[int]{ID: id})
		case 2:
			r.CloseDataTab(f, id)
		case 3:
			r.SetActiveDataTab(f, id)
		case 4:
			r.CloseDataTab(f, ListTabID(f))
		}

		for _, ft := range r.FeatureTabs() {
			seen := map[string]bool{}
			active := false
			for _, tab := range ft.DataTabs {
				require.False(t, seen[tab.ID], "duplicate %s at step %d", tab.ID, step)
				seen[tab.ID] = true
				active = active || tab.ID == ft.ActiveDataTabID
			}
			require.True(t, active, "dangling pointer %s at step %d", ft.ActiveDataTabID, step)
			require.True(t, seen[ListTabID(ft.ID)], "list tab missing at step %d", step)
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	r := NewRegistry[int]()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			f := fmt.Sprintf("/f%d", g%3)
			for i := 0; i < 200; i++ {
				id := fmt.Sprintf("%s-edit-%d", f, i%4)
				r.OpenDataTab(f, DataTab[int]{ID: id})
				r.UpdateDataTabData(f, id, i)
				r.MarkDataTabDirty(f, id, i%2 == 0)
				_, _ = r.ActiveDataTab()
				r.CloseDataTab(f, id)
			}
		}(g)
	}
	wg.Wait()
	assert.Len(t, r.FeatureTabs(), 3)
}
