package features

import (
	"math"

	"github.com/synaptica-ai/icu-features/pkg/bounds"
	"github.com/synaptica-ai/icu-features/pkg/common/errs"
	"github.com/synaptica-ai/icu-features/pkg/events"
	"github.com/synaptica-ai/icu-features/pkg/frame"
)

// Abnormality levels.
const (
	CategoryMissing  = 0
	CategoryNormal   = 1
	CategoryAbnormal = 2
)

func Categorize(v float64, r bounds.Range) int {
	switch {
	case math.IsNaN(v):
		return CategoryMissing
	case r.Contains(v):
		return CategoryNormal
	default:
		return CategoryAbnormal
	}
}

// AbnormalCategories emits <var>_cats: the worst category seen during the stay.
func AbnormalCategories(table *events.Table, patients []string, vars []string, b bounds.VariableBounds) (*frame.Frame, error) {
	cols, err := columnsFor(table, vars, "abnormal_categories")
	if err != nil {
		return nil, err
	}
	ranges := make([]bounds.Range, len(vars))
	names := make([]string, len(vars))
	for i, v := range vars {
		r, ok := b.Range(v)
		if !ok {
			return nil, errs.Schema("abnormal_categories", v, "no reference range for %s", v)
		}
		ranges[i] = r
		names[i] = v + "_cats"
	}

	groups := table.GroupIndex()
	out := frame.New(patients, names, CategoryMissing)
	for i, id := range patients {
		for k, col := range cols {
			worst := CategoryMissing
			for _, r := range groups[id] {
				if c := Categorize(table.Rows[r].Values[col], ranges[k]); c > worst {
					worst = c
				}
			}
			out.Data[i][k] = float64(worst)
		}
	}
	return out, nil
}
