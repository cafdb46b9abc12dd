package features

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/synaptica-ai/icu-features/pkg/frame"
)

// Summary statistics of one window. First and Last follow arrival order.
type Summary struct {
	Min    float64
	Max    float64
	Median float64
	First  float64
	Last   float64
	Count  int
}

// SummaryStats are the column suffixes in the order Summary.Values returns them.
var SummaryStats = []string{"min", "max", "med", "first", "last", "n"}

// Summarize skips missing values. With none left every statistic is missing and
// Count is zero.
func Summarize(values []float64) Summary {
	present := presentValues(values)
	if len(present) == 0 {
		nan := math.NaN()
		return Summary{Min: nan, Max: nan, Median: nan, First: nan, Last: nan}
	}
	return Summary{
		Min:    floats.Min(present),
		Max:    floats.Max(present),
		Median: frame.Median(present),
		First:  present[0],
		Last:   present[len(present)-1],
		Count:  len(present),
	}
}

func (s Summary) Values() []float64 {
	return []float64{s.Min, s.Max, s.Median, s.First, s.Last, float64(s.Count)}
}

func presentValues(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
