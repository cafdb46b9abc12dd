package features

import (
	"fmt"
	"math"

	"github.com/synaptica-ai/icu-features/pkg/common/errs"
	"github.com/synaptica-ai/icu-features/pkg/events"
	"github.com/synaptica-ai/icu-features/pkg/frame"
)

const (
	// DayWidth is the per-day window length in hours.
	DayWidth = 24
	// SyntheticFillHours is where a missing-valued filler row is placed for
	// patients with no observation after the first day. The filler carries no
	// values, so the second-day counts stay at zero.
	SyntheticFillHours = 47.9
)

func columnsFor(table *events.Table, vars []string, stage string) ([]int, error) {
	cols := make([]int, len(vars))
	for i, v := range vars {
		c, ok := table.Column(v)
		if !ok {
			return nil, errs.Schema(stage, v, "variable %s not in event table", v)
		}
		cols[i] = c
	}
	return cols, nil
}

// StaySummaries emits <var>_{min,max,med,first,last,n} over the whole stay for
// each patient in patients. Patients without rows get missing statistics and n=0.
func StaySummaries(table *events.Table, patients []string, vars []string) (*frame.Frame, error) {
	cols, err := columnsFor(table, vars, "stay_summary")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, v := range vars {
		for _, s := range SummaryStats {
			names = append(names, v+"_"+s)
		}
	}

	groups := table.GroupIndex()
	out := frame.New(patients, names, math.NaN())
	width := len(SummaryStats)
	for i, id := range patients {
		rows := groups[id]
		for k, col := range cols {
			_, values := table.Series(rows, col)
			copy(out.Data[i][k*width:], Summarize(values).Values())
		}
	}
	return out, nil
}

// DayColumns lists the per-day column names for vars: all first-day statistics
// of a variable followed by its second-day statistics.
func DayColumns(vars []string) []string {
	var names []string
	for _, v := range vars {
		for _, day := range []int{DayWidth, 2 * DayWidth} {
			for _, s := range SummaryStats {
				names = append(names, fmt.Sprintf("%s_%s_%d", v, s, day))
			}
		}
	}
	return names
}

// DaySummaries summarises each variable separately over hours (0, 24] and
// (24, 48]. Both windows are always emitted.
func DaySummaries(table *events.Table, patients []string, vars []string) (*frame.Frame, error) {
	cols, err := columnsFor(table, vars, "day_summary")
	if err != nil {
		return nil, err
	}

	groups := table.GroupIndex()
	out := frame.New(patients, DayColumns(vars), math.NaN())
	width := len(SummaryStats)

	for i, id := range patients {
		rows := groups[id]
		// values[k][d] collects variable k in day d, in arrival order.
		values := make([][2][]float64, len(cols))
		last := math.Inf(-1)
		for _, r := range rows {
			row := table.Rows[r]
			last = math.Max(last, row.Hours)
			ceiling, err := Assign(row.Hours, DayWidth, Hour)
			if err != nil {
				return nil, errs.Stage("day_summary", id, "", err)
			}
			day := int(ceiling/DayWidth) - 1
			for k, col := range cols {
				values[k][day] = append(values[k][day], row.Values[col])
			}
		}
		if len(rows) > 0 && last <= DayWidth {
			for k := range cols {
				values[k][1] = append(values[k][1], math.NaN())
			}
		}
		for k := range cols {
			for d := 0; d < 2; d++ {
				copy(out.Data[i][(2*k+d)*width:], Summarize(values[k][d]).Values())
			}
		}
	}
	return out, nil
}
