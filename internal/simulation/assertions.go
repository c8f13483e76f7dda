package simulation

import (
	"testing"

	"github.com/nvandessel/contagion/internal/history"
	"github.com/nvandessel/contagion/internal/results"
)

// AssertMonotonic asserts that adopter counts never decrease.
func AssertMonotonic(t testing.TB, h history.History) {
	t.Helper()
	for i := 1; i < len(h.Points); i++ {
		if h.Points[i].Count < h.Points[i-1].Count {
			t.Errorf("AssertMonotonic: count drops from %d to %d at time %d",
				h.Points[i-1].Count, h.Points[i].Count, h.Points[i].Time)
		}
	}
}

// AssertDense asserts that times step by exactly one from the first point.
func AssertDense(t testing.TB, h history.History) {
	t.Helper()
	for i := 1; i < len(h.Points); i++ {
		if gap := h.Points[i].Time - h.Points[i-1].Time; gap != 1 {
			t.Errorf("AssertDense: gap of %d between times %d and %d",
				gap, h.Points[i-1].Time, h.Points[i].Time)
			return
		}
	}
}

// AssertSameHistory asserts point-for-point equality, axis included.
func AssertSameHistory(t testing.TB, got, want history.History) {
	t.Helper()
	if got.Axis != want.Axis {
		t.Errorf("AssertSameHistory: axis %q, want %q", got.Axis, want.Axis)
	}
	if len(got.Points) != len(want.Points) {
		t.Errorf("AssertSameHistory: %d points, want %d\n got %v\nwant %v",
			len(got.Points), len(want.Points), got.Points, want.Points)
		return
	}
	for i := range got.Points {
		if got.Points[i] != want.Points[i] {
			t.Errorf("AssertSameHistory: point %d = %+v, want %+v", i, got.Points[i], want.Points[i])
		}
	}
}

// AssertCountsWithin asserts that every count lies in [lo, hi].
func AssertCountsWithin(t testing.TB, h history.History, lo, hi int) {
	t.Helper()
	for _, p := range h.Points {
		if p.Count < lo || p.Count > hi {
			t.Errorf("AssertCountsWithin: count %d at time %d not in [%d, %d]", p.Count, p.Time, lo, hi)
		}
	}
}

// AssertReplicatesMonotonic asserts AssertMonotonic for every replicate of
// a result.
func AssertReplicatesMonotonic(t testing.TB, res *Result) {
	t.Helper()
	for _, rep := range res.Replicates {
		AssertMonotonic(t, rep.History)
	}
}

// AssertColumn asserts the values of one table column.
func AssertColumn(t testing.TB, tab *results.Table, name string, want []float64) {
	t.Helper()
	got, ok := tab.Column(name)
	if !ok {
		t.Errorf("AssertColumn: no column %q in %v", name, tab.Names())
		return
	}
	if len(got) != len(want) {
		t.Errorf("AssertColumn: column %q has %d values, want %d", name, len(got), len(want))
		return
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("AssertColumn: column %q row %d = %v, want %v", name, i, got[i], want[i])
		}
	}
}
