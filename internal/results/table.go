// Package results collects replicate adoption histories into a table keyed
// by time and writes it in the formats downstream tooling reads: split-orient
// JSON and Arrow IPC.
package results

import (
	"fmt"
	"slices"

	"github.com/nvandessel/contagion/internal/history"
)

// Summary column names added by Summarize.
const (
	ColMean   = "mean"
	ColMedian = "median"
	ColLow    = "p2.5"
	ColHigh   = "p97.5"
)

// Table is a time index, an optional key column and one numeric column per
// replicate. Every column added must share the first column's time axis.
type Table struct {
	axis    history.Axis
	index   []int
	keys    []int
	names   []string
	columns [][]float64

	ref *history.History
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// Add appends h as column name. The first history fixes the axis; later ones
// must match it point for point or ErrInconsistentTimeAxis is returned.
func (t *Table) Add(name string, h history.History) error {
	if slices.Contains(t.names, name) {
		return fmt.Errorf("results: duplicate column %q", name)
	}
	if t.ref == nil {
		ref := h.Clone()
		t.ref = &ref
		t.axis = h.Axis
		t.index = h.Times()
		if h.Axis.KeyName() != "" {
			t.keys = make([]int, len(h.Points))
			for i, p := range h.Points {
				t.keys[i] = p.Key
			}
		}
	} else if err := t.ref.CheckAxis(h); err != nil {
		return fmt.Errorf("column %q: %w", name, err)
	}

	col := make([]float64, len(h.Points))
	for i, p := range h.Points {
		col[i] = float64(p.Count)
	}
	t.names = append(t.names, name)
	t.columns = append(t.columns, col)
	return nil
}

// Axis returns the table's time axis.
func (t *Table) Axis() history.Axis { return t.axis }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.index) }

// Index returns the time index.
func (t *Table) Index() []int { return t.index }

// Keys returns the key column, or nil when the axis has none.
func (t *Table) Keys() []int { return t.keys }

// Names returns the value column names in insertion order.
func (t *Table) Names() []string { return t.names }

// Column returns the values of a named column.
func (t *Table) Column(name string) ([]float64, bool) {
	i := slices.Index(t.names, name)
	if i < 0 {
		return nil, false
	}
	return t.columns[i], true
}

// Replicates returns the names of the non-summary columns.
func (t *Table) Replicates() []string {
	var out []string
	for _, n := range t.names {
		switch n {
		case ColMean, ColMedian, ColLow, ColHigh:
		default:
			out = append(out, n)
		}
	}
	return out
}

// Row returns the values of row i across the replicate columns.
func (t *Table) Row(i int) []float64 {
	var out []float64
	for _, n := range t.Replicates() {
		col, _ := t.Column(n)
		out = append(out, col[i])
	}
	return out
}

// addColumn appends a precomputed column without axis checks.
func (t *Table) addColumn(name string, values []float64) {
	if i := slices.Index(t.names, name); i >= 0 {
		t.columns[i] = values
		return
	}
	t.names = append(t.names, name)
	t.columns = append(t.columns, values)
}
