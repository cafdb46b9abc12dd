package transform

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/synaptica-ai/icu-features/pkg/common/errs"
	"github.com/synaptica-ai/icu-features/pkg/frame"
)

// StandardScaler centres and scales each column with parameters from the
// training cohort. A zero scale leaves the centred value unscaled.
type StandardScaler struct {
	Columns []string  `json:"columns"`
	Mean    []float64 `json:"mean"`
	Scale   []float64 `json:"scale"`
}

// FitStandardScaler uses the population standard deviation of each column.
func FitStandardScaler(f *frame.Frame) *StandardScaler {
	s := &StandardScaler{
		Columns: append([]string(nil), f.Columns...),
		Mean:    make([]float64, f.Width()),
		Scale:   make([]float64, f.Width()),
	}
	for j, c := range f.Columns {
		values, _ := f.Column(c)
		mean, variance := stat.PopMeanVariance(values, nil)
		s.Mean[j] = mean
		s.Scale[j] = math.Sqrt(variance)
	}
	return s
}

// Transform requires f to carry exactly the fitted columns; output follows the
// fitted order.
func (s *StandardScaler) Transform(f *frame.Frame) (*frame.Frame, error) {
	if len(s.Columns) == 0 || len(s.Mean) != len(s.Columns) || len(s.Scale) != len(s.Columns) {
		return nil, ErrNotFitted
	}
	if f.Width() != len(s.Columns) {
		return nil, errs.Schema("scaler", "", "frame has %d columns, scaler fitted on %d", f.Width(), len(s.Columns))
	}
	pos := make([]int, len(s.Columns))
	for k, c := range s.Columns {
		j, ok := f.Col(c)
		if !ok {
			return nil, errs.Schema("scaler", c, "column %s not in frame", c)
		}
		pos[k] = j
	}
	out := frame.New(f.Index, s.Columns, 0)
	for i, row := range f.Data {
		for k, j := range pos {
			scale := s.Scale[k]
			if scale == 0 {
				scale = 1
			}
			out.Data[i][k] = (row[j] - s.Mean[k]) / scale
		}
	}
	return out, nil
}

// DropColumns removes previously selected columns. Each must be present.
func DropColumns(f *frame.Frame, columns []string) (*frame.Frame, error) {
	out, err := f.Drop(columns)
	if err != nil {
		return nil, errs.Schema("drop_columns", "", "%v", err)
	}
	return out, nil
}
