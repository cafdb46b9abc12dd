package features

import (
	"math"

	"github.com/synaptica-ai/icu-features/pkg/events"
	"github.com/synaptica-ai/icu-features/pkg/frame"
)

// ExtractStatic pivots the admission-time (00:00) readings of vars into one row
// per patient. Patients without any such reading are not in the result.
func ExtractStatic(evts []events.Event, vars []string, reducer events.Reducer) (*frame.Frame, error) {
	wanted := make(map[string]int, len(vars))
	for i, v := range vars {
		wanted[v] = i
	}

	var order []string
	collected := make(map[string][][]float64)
	for _, e := range evts {
		col, ok := wanted[e.Variable]
		if !ok {
			continue
		}
		hours, err := e.Hours()
		if err != nil {
			return nil, err
		}
		if hours != 0 {
			continue
		}
		cells, ok := collected[e.PatientID]
		if !ok {
			cells = make([][]float64, len(vars))
			order = append(order, e.PatientID)
		}
		cells[col] = append(cells[col], e.Value)
		collected[e.PatientID] = cells
	}

	out := frame.New(order, vars, math.NaN())
	for i, id := range order {
		for j, vals := range collected[id] {
			if len(vals) > 0 {
				out.Data[i][j] = reducer.Reduce(vals)
			}
		}
	}
	return out, nil
}
