package events

import (
	"fmt"
	"math"
	"strings"
)

// Reducer collapses observations that share (patient, variable, time label).
// Missing values are skipped; an all-missing group reduces to NaN.
type Reducer string

const (
	ReduceMin   Reducer = "min"
	ReduceMax   Reducer = "max"
	ReduceMean  Reducer = "mean"
	ReduceFirst Reducer = "first"
	ReduceLast  Reducer = "last"
)

// DefaultReducer keeps the smallest duplicate reading.
const DefaultReducer = ReduceMin

func ParseReducer(name string) (Reducer, error) {
	if name == "" {
		return DefaultReducer, nil
	}
	r := Reducer(strings.ToLower(strings.TrimSpace(name)))
	switch r {
	case ReduceMin, ReduceMax, ReduceMean, ReduceFirst, ReduceLast:
		return r, nil
	}
	return "", fmt.Errorf("unknown reducer %q", name)
}

func (r Reducer) Reduce(values []float64) float64 {
	out := math.NaN()
	n := 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		n++
		if n == 1 {
			out = v
			continue
		}
		switch r {
		case ReduceMax:
			out = math.Max(out, v)
		case ReduceMean:
			out += v
		case ReduceFirst:
		case ReduceLast:
			out = v
		default:
			out = math.Min(out, v)
		}
	}
	if r == ReduceMean && n > 0 {
		out /= float64(n)
	}
	return out
}
