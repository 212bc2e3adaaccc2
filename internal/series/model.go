package series

import (
	"slices"
	"sort"

	"codeberg.org/mutker/sensorchart/internal/alert"
	"codeberg.org/mutker/sensorchart/internal/measurement"
)

// Model is the chart data of one variant. It is owned by a single goroutine;
// renderers read it through Snapshot.
type Model struct {
	variant   measurement.Variant
	entries   []Entry
	bounds    alert.Bounds
	hasBounds bool
}

func NewModel(variant measurement.Variant) *Model {
	return &Model{variant: variant}
}

// Snapshot is a read-only copy of a Model.
type Snapshot struct {
	Variant   measurement.Variant
	Entries   []Entry
	Bounds    alert.Bounds
	HasBounds bool
}

func (m *Model) Variant() measurement.Variant { return m.variant }

func (m *Model) Len() int { return len(m.entries) }

// Entries returns the backing slice. Callers must not modify it.
func (m *Model) Entries() []Entry { return m.entries }

// Bounds returns the alert bounds, if any.
func (m *Model) Bounds() (alert.Bounds, bool) { return m.bounds, m.hasBounds }

func (m *Model) SetBounds(b alert.Bounds, ok bool) {
	m.bounds, m.hasBounds = b, ok
}

// Replace swaps all entries, as done on a full reload.
func (m *Model) Replace(entries []Entry) {
	m.entries = slices.Clone(entries)
}

// Append inserts entries keeping the model ordered by x. Entries with an
// x equal to existing ones go after them, so appending in arrival order
// preserves arrival order among duplicates.
func (m *Model) Append(entries ...Entry) {
	for _, e := range entries {
		n := len(m.entries)
		if n == 0 || m.entries[n-1].X <= e.X {
			m.entries = append(m.entries, e)
			continue
		}
		i := sort.Search(n, func(i int) bool { return m.entries[i].X > e.X })
		m.entries = slices.Insert(m.entries, i, e)
	}
}

// Domain returns the x range covered by the model.
func (m *Model) Domain() (xmin, xmax float64, ok bool) {
	if len(m.entries) == 0 {
		return 0, 0, false
	}
	return m.entries[0].X, m.entries[len(m.entries)-1].X, true
}

// Nearest returns the entry closest to x. Ties resolve to the earlier entry.
func (m *Model) Nearest(x float64) (Entry, bool) {
	return Nearest(m.entries, x)
}

// Stats computes statistics over the window [xmin, xmax].
func (m *Model) Stats(xmin, xmax float64) (Stats, bool) {
	return ComputeStats(m.entries, xmin, xmax)
}

func (m *Model) Snapshot() Snapshot {
	return Snapshot{
		Variant:   m.variant,
		Entries:   slices.Clone(m.entries),
		Bounds:    m.bounds,
		HasBounds: m.hasBounds,
	}
}

// Nearest returns the entry of the x-ordered slice closest to x.
func Nearest(entries []Entry, x float64) (Entry, bool) {
	if len(entries) == 0 {
		return Entry{}, false
	}
	i := sort.Search(len(entries), func(i int) bool { return entries[i].X >= x })
	switch {
	case i == 0:
		return entries[0], true
	case i == len(entries):
		return entries[i-1], true
	}
	before, after := entries[i-1], entries[i]
	if x-before.X <= after.X-x {
		return before, true
	}
	return after, true
}
