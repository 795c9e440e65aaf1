// Package dataset holds tabular data for estimation: a column-major
// float64 frame with CSV and sqlite round-trips, plus a synthetic
// structural-model sampler for examples and tests.
package dataset

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Frame is a column-major table of float64 values. All columns have the
// same length. Column order is preserved from construction.
type Frame struct {
	names   []string
	index   map[string]int
	columns [][]float64
}

// NewFrame returns an empty frame.
func NewFrame() *Frame {
	return &Frame{index: make(map[string]int)}
}

// AddColumn appends a named column. The first column fixes the row count.
func (f *Frame) AddColumn(name string, values []float64) error {
	if name == "" {
		return fmt.Errorf("column name must be non-empty")
	}
	if _, ok := f.index[name]; ok {
		return fmt.Errorf("duplicate column %q", name)
	}
	if len(f.columns) > 0 && len(values) != f.Rows() {
		return fmt.Errorf("column %q has %d rows, frame has %d", name, len(values), f.Rows())
	}
	f.index[name] = len(f.names)
	f.names = append(f.names, name)
	f.columns = append(f.columns, values)
	return nil
}

// Rows returns the number of rows.
func (f *Frame) Rows() int {
	if len(f.columns) == 0 {
		return 0
	}
	return len(f.columns[0])
}

// Columns returns the column names in frame order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.names...)
}

// HasColumn reports whether the frame has a column with this name.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the backing slice for a column. Callers must not modify
// the returned slice.
func (f *Frame) Column(name string) ([]float64, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	return f.columns[i], nil
}

// MustColumn is Column for callers that already validated the name.
func (f *Frame) MustColumn(name string) []float64 {
	col, err := f.Column(name)
	if err != nil {
		panic(err)
	}
	return col
}

// Select returns a new frame containing only the named columns, sharing
// backing slices with the receiver.
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := NewFrame()
	for _, n := range names {
		col, err := f.Column(n)
		if err != nil {
			return nil, err
		}
		if err := out.AddColumn(n, col); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ColumnStats summarises one column.
type ColumnStats struct {
	Name   string
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Stats returns per-column summary statistics, sorted by column name.
func (f *Frame) Stats() []ColumnStats {
	out := make([]ColumnStats, 0, len(f.names))
	for _, name := range f.names {
		col := f.columns[f.index[name]]
		s := ColumnStats{Name: name}
		if len(col) > 0 {
			s.Mean, s.StdDev = stat.MeanStdDev(col, nil)
			s.Min, s.Max = col[0], col[0]
			for _, v := range col {
				if v < s.Min {
					s.Min = v
				}
				if v > s.Max {
					s.Max = v
				}
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
