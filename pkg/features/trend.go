package features

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/synaptica-ai/icu-features/pkg/events"
	"github.com/synaptica-ai/icu-features/pkg/frame"
)

// Slope fits value = intercept + slope*time by ordinary least squares over the
// pairs where both are present. Fewer than two pairs, or pairs that all share one
// time, leave the slope undetermined (NaN).
func Slope(times, values []float64) float64 {
	var xs, ys []float64
	for i := range times {
		if math.IsNaN(times[i]) || math.IsNaN(values[i]) {
			continue
		}
		xs = append(xs, times[i])
		ys = append(ys, values[i])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	if _, variance := stat.MeanVariance(xs, nil); variance == 0 {
		return math.NaN()
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)
	return beta
}

// Trends emits <var>_trend for each patient, the slope against elapsed hours.
func Trends(table *events.Table, patients []string, vars []string) (*frame.Frame, error) {
	cols, err := columnsFor(table, vars, "trend")
	if err != nil {
		return nil, err
	}
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v + "_trend"
	}

	groups := table.GroupIndex()
	out := frame.New(patients, names, math.NaN())
	for i, id := range patients {
		rows := groups[id]
		for k, col := range cols {
			hours, values := table.Series(rows, col)
			out.Data[i][k] = Slope(hours, values)
		}
	}
	return out, nil
}
