package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/nvandessel/contagion/internal/history"
)

// ErrFormat marks a document that is not a readable result table.
var ErrFormat = errors.New("results: malformed table")

// splitDoc is the column-oriented layout: column names, the time index and
// one row of values per index entry.
type splitDoc struct {
	Columns []string     `json:"columns"`
	Index   []int        `json:"index"`
	Data    [][]*float64 `json:"data"`
}

// WriteJSON writes the table in split orient. The key column, when the axis
// has one, is the first column. NaN values are written as null.
func (t *Table) WriteJSON(w io.Writer) error {
	doc := splitDoc{Index: t.index}
	keyName := t.axis.KeyName()
	if keyName != "" {
		doc.Columns = append(doc.Columns, keyName)
	}
	doc.Columns = append(doc.Columns, t.names...)
	if doc.Index == nil {
		doc.Index = []int{}
	}

	doc.Data = make([][]*float64, len(t.index))
	for i := range t.index {
		row := make([]*float64, 0, len(doc.Columns))
		if keyName != "" {
			k := float64(t.keys[i])
			row = append(row, &k)
		}
		for _, col := range t.columns {
			v := col[i]
			if math.IsNaN(v) {
				row = append(row, nil)
				continue
			}
			row = append(row, &v)
		}
		doc.Data[i] = row
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode table: %w", err)
	}
	return nil
}

// ReadJSON reads a split-orient table. A "year" column selects the order
// axis; otherwise axis is used, defaulting to the day axis.
func ReadJSON(r io.Reader, axis history.Axis) (*Table, error) {
	var doc splitDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode table: %w: %w", err, ErrFormat)
	}
	if len(doc.Data) != len(doc.Index) {
		return nil, fmt.Errorf("%d rows for %d index entries: %w", len(doc.Data), len(doc.Index), ErrFormat)
	}

	t := NewTable()
	t.index = doc.Index
	cols := doc.Columns
	keyCol := -1
	if len(cols) > 0 && cols[0] == history.AxisOrder.KeyName() {
		t.axis = history.AxisOrder
		keyCol = 0
		t.keys = make([]int, len(doc.Index))
	} else if axis != "" {
		t.axis = axis
	} else {
		t.axis = history.AxisDay
	}

	for j, name := range cols {
		if j == keyCol {
			continue
		}
		t.names = append(t.names, name)
		t.columns = append(t.columns, make([]float64, len(doc.Index)))
	}
	for i, row := range doc.Data {
		if len(row) != len(cols) {
			return nil, fmt.Errorf("row %d has %d values for %d columns: %w", i, len(row), len(cols), ErrFormat)
		}
		c := 0
		for j, v := range row {
			val := math.NaN()
			if v != nil {
				val = *v
			}
			if j == keyCol {
				t.keys[i] = int(val)
				continue
			}
			t.columns[c][i] = val
			c++
		}
	}

	ref := history.History{Axis: t.axis, Points: make([]history.Point, len(t.index))}
	for i, ti := range t.index {
		ref.Points[i].Time = ti
		if t.keys != nil {
			ref.Points[i].Key = t.keys[i]
		}
	}
	t.ref = &ref
	return t, nil
}
