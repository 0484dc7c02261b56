package tabs

// Draft binds one form to its data tab: the form's fields live in the tab's
// payload so they survive tab switches and session restarts.
type Draft[T any] struct {
	reg       *Registry[T]
	featureID string
	tabID     string
	empty     T
	restored  bool
}

// NewDraft binds a form editing featureID/tabID. empty is the payload of a
// blank form.
func NewDraft[T any](reg *Registry[T], featureID, tabID string, empty T) *Draft[T] {
	return &Draft[T]{reg: reg, featureID: featureID, tabID: tabID, empty: empty}
}

// FeatureID returns the feature the form belongs to.
func (d *Draft[T]) FeatureID() string { return d.featureID }

// TabID returns the data tab the form edits.
func (d *Draft[T]) TabID() string { return d.tabID }

// Restore returns the stored draft the first time it is called, if the tab
// holds one. Later calls always report false so a remounted form does not
// clobber what the user typed since.
func (d *Draft[T]) Restore() (T, bool) {
	if d.restored {
		var zero T
		return zero, false
	}
	d.restored = true
	t, ok := d.reg.DataTab(d.featureID, d.tabID)
	if !ok || !t.HasData {
		var zero T
		return zero, false
	}
	return t.Data, true
}

// Change stores the whole draft and marks the tab dirty.
func (d *Draft[T]) Change(data T) {
	d.reg.UpdateDataTabData(d.featureID, d.tabID, data)
	d.reg.MarkDataTabDirty(d.featureID, d.tabID, true)
}

// Reset stores the blank draft and clears the dirty flag, e.g. after a
// successful save.
func (d *Draft[T]) Reset() T {
	d.reg.UpdateDataTabData(d.featureID, d.tabID, d.empty)
	d.reg.MarkDataTabDirty(d.featureID, d.tabID, false)
	return d.empty
}

// Dirty reports whether the tab has unsaved edits.
func (d *Draft[T]) Dirty() bool {
	t, ok := d.reg.DataTab(d.featureID, d.tabID)
	return ok && t.Dirty
}

// Discard closes the tab, dropping the draft.
func (d *Draft[T]) Discard() {
	d.reg.CloseDataTab(d.featureID, d.tabID)
}
