package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synaptica-ai/icu-features/pkg/bounds"
	"github.com/synaptica-ai/icu-features/pkg/common/errs"
	"github.com/synaptica-ai/icu-features/pkg/events"
)

func pivot(t *testing.T, evts []events.Event, vars ...string) *events.Table {
	t.Helper()
	table, err := events.Pivot(evts, vars, events.DefaultReducer)
	require.NoError(t, err)
	return table
}

func TestExtractStatic(t *testing.T) {
	evts := []events.Event{
		{PatientID: "a", Variable: "Age", Time: "00:00", Value: 54},
		{PatientID: "a", Variable: "Gender", Time: "00:00", Value: 0},
		{PatientID: "a", Variable: "Age", Time: "00:00", Value: 50},
		{PatientID: "b", Variable: "HR", Time: "00:00", Value: 80},
		{PatientID: "c", Variable: "Height", Time: "00:00", Value: 170},
		{PatientID: "c", Variable: "Age", Time: "01:00", Value: 70},
	}
	f, err := ExtractStatic(evts, []string{"Age", "Gender", "Height"}, events.DefaultReducer)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, f.Index)
	assert.Equal(t, 50.0, f.Get("a", "Age"))
	assert.Equal(t, 0.0, f.Get("a", "Gender"))
	assert.True(t, math.IsNaN(f.Get("c", "Age")))
	assert.Equal(t, 170.0, f.Get("c", "Height"))
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{math.NaN(), 7, 3, math.NaN(), 5, 9, math.NaN()})
	assert.Equal(t, Summary{Min: 3, Max: 9, Median: 6, First: 7, Last: 9, Count: 4}, s)

	empty := Summarize([]float64{math.NaN()})
	assert.Equal(t, 0, empty.Count)
	assert.True(t, math.IsNaN(empty.First))
	assert.True(t, math.IsNaN(empty.Median))
}

func TestStaySummaries(t *testing.T) {
	table := pivot(t, []events.Event{
		{PatientID: "a", Variable: "MAP", Time: "02:00", Value: 70},
		{PatientID: "a", Variable: "MAP", Time: "01:00", Value: 90},
		{PatientID: "a", Variable: "MAP", Time: "03:00", Value: 80},
	}, "MAP")

	f, err := StaySummaries(table, []string{"a", "ghost"}, []string{"MAP"})
	require.NoError(t, err)
	assert.Equal(t, []string{"MAP_min", "MAP_max", "MAP_med", "MAP_first", "MAP_last", "MAP_n"}, f.Columns)
	// first/last follow arrival order, not time order
	assert.Equal(t, []float64{70, 90, 80, 70, 80, 3}, f.Data[0])
	assert.Equal(t, 0.0, f.Get("ghost", "MAP_n"))
	assert.True(t, math.IsNaN(f.Get("ghost", "MAP_min")))

	_, err = StaySummaries(table, []string{"a"}, []string{"GCS"})
	assert.ErrorIs(t, err, errs.ErrSchema)
}

func TestDaySummariesFillsSecondDay(t *testing.T) {
	table := pivot(t, []events.Event{
		{PatientID: "early", Variable: "BUN", Time: "00:00", Value: 10},
		{PatientID: "early", Variable: "K", Time: "10:00", Value: 4},
		{PatientID: "full", Variable: "BUN", Time: "20:00", Value: 12},
		{PatientID: "full", Variable: "BUN", Time: "30:00", Value: 18},
		{PatientID: "full", Variable: "BUN", Time: "24:00", Value: 11},
	}, "BUN", "K")

	f, err := DaySummaries(table, []string{"early", "full"}, []string{"BUN", "K"})
	require.NoError(t, err)
	assert.Len(t, f.Columns, 24)
	assert.Equal(t, "BUN_min_24", f.Columns[0])
	assert.Equal(t, "BUN_min_48", f.Columns[6])
	assert.Equal(t, "K_n_48", f.Columns[23])

	assert.Equal(t, 1.0, f.Get("early", "BUN_n_24"))
	assert.Equal(t, 4.0, f.Get("early", "K_last_24"))
	for _, col := range []string{"BUN_n_48", "K_n_48"} {
		assert.Equal(t, 0.0, f.Get("early", col), col)
	}
	assert.True(t, math.IsNaN(f.Get("early", "BUN_min_48")))

	assert.Equal(t, 2.0, f.Get("full", "BUN_n_24"))
	assert.Equal(t, 11.0, f.Get("full", "BUN_last_24"))
	assert.Equal(t, 18.0, f.Get("full", "BUN_first_48"))
	assert.Equal(t, 0.0, f.Get("full", "K_n_24"))
}

func TestDaySummariesRejectsLateObservation(t *testing.T) {
	table := pivot(t, []events.Event{{PatientID: "late", Variable: "K", Time: "49:00", Value: 4}}, "K")
	_, err := DaySummaries(table, []string{"late"}, []string{"K"})
	assert.ErrorIs(t, err, errs.ErrOutOfHorizon)
	assert.Contains(t, err.Error(), "late")
}

func TestSlope(t *testing.T) {
	assert.InDelta(t, (90.0-80.0)/(4.0-1.5), Slope([]float64{1.5, 4}, []float64{80, 90}), 1e-12)
	assert.True(t, math.IsNaN(Slope([]float64{2}, []float64{80})))
	assert.True(t, math.IsNaN(Slope([]float64{1, 2}, []float64{80, math.NaN()})))
	assert.True(t, math.IsNaN(Slope([]float64{3, 3}, []float64{1, 2})))
	assert.InDelta(t, 2.0, Slope([]float64{0, 1, 2, 3}, []float64{1, 3, 5, 7}), 1e-12)
}

func TestTrends(t *testing.T) {
	table := pivot(t, []events.Event{
		{PatientID: "a", Variable: "HR", Time: "00:00", Value: 80},
		{PatientID: "a", Variable: "HR", Time: "04:00", Value: 90},
		{PatientID: "b", Variable: "HR", Time: "01:00", Value: 70},
	}, "HR")
	f, err := Trends(table, []string{"a", "b"}, []string{"HR"})
	require.NoError(t, err)
	assert.Equal(t, []string{"HR_trend"}, f.Columns)
	assert.InDelta(t, 2.5, f.Get("a", "HR_trend"), 1e-12)
	assert.True(t, math.IsNaN(f.Get("b", "HR_trend")))
}

func TestCategorize(t *testing.T) {
	albumin := bounds.Range{Lower: 3.4, Upper: 5.4}
	assert.Equal(t, CategoryNormal, Categorize(4.0, albumin))
	assert.Equal(t, CategoryAbnormal, Categorize(6.0, albumin))
	assert.Equal(t, CategoryMissing, Categorize(math.NaN(), albumin))
	assert.Equal(t, CategoryNormal, Categorize(3.4, albumin))
	assert.Equal(t, CategoryNormal, Categorize(5.4, albumin))
}

func TestAbnormalCategoriesTakesWorstReading(t *testing.T) {
	table := pivot(t, []events.Event{
		{PatientID: "a", Variable: "Albumin", Time: "01:00", Value: 4},
		{PatientID: "a", Variable: "Albumin", Time: "20:00", Value: 2.9},
		{PatientID: "a", Variable: "Albumin", Time: "30:00", Value: 4.1},
		{PatientID: "b", Variable: "Albumin", Time: "01:00", Value: 4},
		{PatientID: "c", Variable: "Lactate", Time: "01:00", Value: 1},
	}, "Albumin", "Lactate")
	b := bounds.VariableBounds{Ranges: bounds.DefaultRanges()}

	f, err := AbnormalCategories(table, []string{"a", "b", "c", "d"}, []string{"Albumin", "Lactate"}, b)
	require.NoError(t, err)
	assert.Equal(t, 2.0, f.Get("a", "Albumin_cats"))
	assert.Equal(t, 1.0, f.Get("b", "Albumin_cats"))
	assert.Equal(t, 0.0, f.Get("c", "Albumin_cats"))
	assert.Equal(t, 1.0, f.Get("c", "Lactate_cats"))
	assert.Equal(t, 0.0, f.Get("d", "Lactate_cats"))

	_, err = AbnormalCategories(table, []string{"a"}, []string{"Albumin"}, bounds.VariableBounds{})
	assert.ErrorIs(t, err, errs.ErrSchema)
}
