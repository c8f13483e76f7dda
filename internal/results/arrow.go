package results

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/nvandessel/contagion/internal/history"
)

const axisMetaKey = "contagion.axis"

func (t *Table) schema() *arrow.Schema {
	fields := []arrow.Field{{Name: t.axis.IndexName(), Type: arrow.PrimitiveTypes.Int64}}
	if k := t.axis.KeyName(); k != "" {
		fields = append(fields, arrow.Field{Name: k, Type: arrow.PrimitiveTypes.Int64})
	}
	for _, n := range t.names {
		fields = append(fields, arrow.Field{Name: n, Type: arrow.PrimitiveTypes.Float64, Nullable: true})
	}
	md := arrow.NewMetadata([]string{axisMetaKey}, []string{string(t.axis)})
	return arrow.NewSchema(fields, &md)
}

// WriteArrow writes the table as a single-record Arrow IPC file.
func (t *Table) WriteArrow(w io.Writer) error {
	mem := memory.NewGoAllocator()
	schema := t.schema()

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	field := 0
	toInt64 := func(vs []int) []int64 {
		out := make([]int64, len(vs))
		for i, v := range vs {
			out[i] = int64(v)
		}
		return out
	}
	b.Field(field).(*array.Int64Builder).AppendValues(toInt64(t.index), nil)
	field++
	if t.axis.KeyName() != "" {
		b.Field(field).(*array.Int64Builder).AppendValues(toInt64(t.keys), nil)
		field++
	}
	for _, col := range t.columns {
		b.Field(field).(*array.Float64Builder).AppendValues(col, nil)
		field++
	}

	rec := b.NewRecord()
	defer rec.Release()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("arrow writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return fmt.Errorf("arrow write: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("arrow close: %w", err)
	}
	return nil
}

// ReadArrow reads a table written by WriteArrow.
func ReadArrow(r ipc.ReadAtSeeker) (*Table, error) {
	mem := memory.NewGoAllocator()
	fr, err := ipc.NewFileReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("arrow reader: %w: %w", err, ErrFormat)
	}
	defer fr.Close()

	schema := fr.Schema()
	t := NewTable()
	md := schema.Metadata()
	if i := md.FindKey(axisMetaKey); i >= 0 {
		t.axis = history.Axis(md.Values()[i])
	} else {
		t.axis = history.AxisDay
	}
	hasKey := t.axis.KeyName() != ""
	first := 1
	if hasKey {
		first = 2
	}
	if len(schema.Fields()) < first {
		return nil, fmt.Errorf("arrow schema has %d fields: %w", len(schema.Fields()), ErrFormat)
	}
	for _, f := range schema.Fields()[first:] {
		t.names = append(t.names, f.Name)
		t.columns = append(t.columns, nil)
	}

	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.Record(i)
		if err != nil {
			return nil, fmt.Errorf("arrow record %d: %w", i, err)
		}
		idx, ok := rec.Column(0).(*array.Int64)
		if !ok {
			return nil, fmt.Errorf("index column is %s: %w", rec.Column(0).DataType(), ErrFormat)
		}
		for _, v := range idx.Int64Values() {
			t.index = append(t.index, int(v))
		}
		if hasKey {
			keys, ok := rec.Column(1).(*array.Int64)
			if !ok {
				return nil, fmt.Errorf("key column is %s: %w", rec.Column(1).DataType(), ErrFormat)
			}
			for _, v := range keys.Int64Values() {
				t.keys = append(t.keys, int(v))
			}
		}
		for j := range t.names {
			col, ok := rec.Column(first + j).(*array.Float64)
			if !ok {
				return nil, fmt.Errorf("column %q is %s: %w", t.names[j], rec.Column(first+j).DataType(), ErrFormat)
			}
			t.columns[j] = append(t.columns[j], col.Float64Values()...)
		}
	}

	ref := history.History{Axis: t.axis, Points: make([]history.Point, len(t.index))}
	for i, ti := range t.index {
		ref.Points[i].Time = ti
		if hasKey {
			ref.Points[i].Key = t.keys[i]
		}
	}
	t.ref = &ref
	return t, nil
}
