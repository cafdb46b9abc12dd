// Package frame holds the per-patient feature matrix shared by the feature
// builders, the fitted transforms and the classifier.
package frame

import (
	"fmt"
	"math"
	"sort"
)

// Frame is a row-major float64 matrix indexed by patient id. NaN marks a missing cell.
type Frame struct {
	Index   []string
	Columns []string
	Data    [][]float64

	rows map[string]int
	cols map[string]int
}

// New allocates a frame with every cell set to fill.
func New(index, columns []string, fill float64) *Frame {
	f := &Frame{
		Index:   append([]string(nil), index...),
		Columns: append([]string(nil), columns...),
		Data:    make([][]float64, len(index)),
	}
	for i := range f.Data {
		row := make([]float64, len(columns))
		for j := range row {
			row[j] = fill
		}
		f.Data[i] = row
	}
	f.Reindex()
	return f
}

// Reindex rebuilds lookup maps after Index or Columns were edited directly.
func (f *Frame) Reindex() {
	f.rows = make(map[string]int, len(f.Index))
	for i, id := range f.Index {
		f.rows[id] = i
	}
	f.cols = make(map[string]int, len(f.Columns))
	for j, c := range f.Columns {
		f.cols[c] = j
	}
}

func (f *Frame) Len() int { return len(f.Index) }

func (f *Frame) Width() int { return len(f.Columns) }

func (f *Frame) Row(patientID string) (int, bool) {
	i, ok := f.rows[patientID]
	return i, ok
}

func (f *Frame) Col(name string) (int, bool) {
	j, ok := f.cols[name]
	return j, ok
}

// Get returns the cell for (patient, column), NaN when either is absent.
func (f *Frame) Get(patientID, column string) float64 {
	i, ok := f.rows[patientID]
	if !ok {
		return math.NaN()
	}
	j, ok := f.cols[column]
	if !ok {
		return math.NaN()
	}
	return f.Data[i][j]
}

func (f *Frame) Set(patientID, column string, v float64) error {
	i, ok := f.rows[patientID]
	if !ok {
		return fmt.Errorf("patient %s not in frame", patientID)
	}
	j, ok := f.cols[column]
	if !ok {
		return fmt.Errorf("column %s not in frame", column)
	}
	f.Data[i][j] = v
	return nil
}

// Column copies one column out.
func (f *Frame) Column(name string) ([]float64, bool) {
	j, ok := f.cols[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(f.Data))
	for i, row := range f.Data {
		out[i] = row[j]
	}
	return out, true
}

// Select returns a copy restricted to columns, in the given order.
func (f *Frame) Select(columns []string) (*Frame, error) {
	pos := make([]int, len(columns))
	for k, c := range columns {
		j, ok := f.cols[c]
		if !ok {
			return nil, fmt.Errorf("column %s not in frame", c)
		}
		pos[k] = j
	}
	out := New(f.Index, columns, 0)
	for i, row := range f.Data {
		for k, j := range pos {
			out.Data[i][k] = row[j]
		}
	}
	return out, nil
}

// Drop returns a copy without the named columns. Every name must exist.
func (f *Frame) Drop(columns []string) (*Frame, error) {
	drop := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, ok := f.cols[c]; !ok {
			return nil, fmt.Errorf("column %s not in frame", c)
		}
		drop[c] = struct{}{}
	}
	keep := make([]string, 0, len(f.Columns))
	for _, c := range f.Columns {
		if _, ok := drop[c]; !ok {
			keep = append(keep, c)
		}
	}
	return f.Select(keep)
}

// Clone deep-copies the frame.
func (f *Frame) Clone() *Frame {
	out := New(f.Index, f.Columns, 0)
	for i, row := range f.Data {
		copy(out.Data[i], row)
	}
	return out
}

// JoinLeft appends right's columns to left, matching rows by patient id. Patients
// of left missing from right receive fill; patients only in right are dropped.
// Duplicate column names are an error.
func JoinLeft(left, right *Frame, fill float64) (*Frame, error) {
	for _, c := range right.Columns {
		if _, dup := left.cols[c]; dup {
			return nil, fmt.Errorf("duplicate column %s in join", c)
		}
	}
	columns := append(append([]string(nil), left.Columns...), right.Columns...)
	out := New(left.Index, columns, fill)
	w := left.Width()
	for i, id := range left.Index {
		copy(out.Data[i], left.Data[i])
		if r, ok := right.rows[id]; ok {
			copy(out.Data[i][w:], right.Data[r])
		}
	}
	return out, nil
}

// Rows returns the data as maps keyed by column, for serialisation.
func (f *Frame) Rows() []map[string]float64 {
	out := make([]map[string]float64, len(f.Data))
	for i, row := range f.Data {
		m := make(map[string]float64, len(f.Columns))
		for j, c := range f.Columns {
			m[c] = row[j]
		}
		out[i] = m
	}
	return out
}

// Median averages the two middle values of an even-length slice. gonum's
// stat.Quantile returns one of them instead. An empty slice gives NaN.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
