package events

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synaptica-ai/icu-features/pkg/common/errs"
)

func TestParseTimeLabel(t *testing.T) {
	cases := map[string]float64{
		"00:00": 0,
		"04:30": 4.5,
		"47:54": 47.9,
		"48:00": 48,
	}
	for label, want := range cases {
		got, err := ParseTimeLabel(label)
		require.NoError(t, err, label)
		assert.InDelta(t, want, got, 1e-9, label)
	}

	for _, bad := range []string{"", "12", "ab:cd", "12:", "1:2:3", "10:75", "-1:00"} {
		_, err := ParseTimeLabel(bad)
		assert.ErrorIs(t, err, errs.ErrMalformedTimestamp, bad)
	}
}

func TestReducers(t *testing.T) {
	vals := []float64{5, math.NaN(), 2, 8}
	assert.Equal(t, 2.0, ReduceMin.Reduce(vals))
	assert.Equal(t, 8.0, ReduceMax.Reduce(vals))
	assert.Equal(t, 5.0, ReduceMean.Reduce(vals))
	assert.Equal(t, 5.0, ReduceFirst.Reduce(vals))
	assert.Equal(t, 8.0, ReduceLast.Reduce(vals))
	assert.True(t, math.IsNaN(ReduceMin.Reduce([]float64{math.NaN()})))

	r, err := ParseReducer("")
	require.NoError(t, err)
	assert.Equal(t, ReduceMin, r)
	_, err = ParseReducer("mode")
	assert.Error(t, err)
}

func TestPivotCollapsesDuplicatesAndKeepsArrivalOrder(t *testing.T) {
	evts := []Event{
		{PatientID: "b", Variable: "HR", Time: "01:00", Value: 90},
		{PatientID: "a", Variable: "HR", Time: "00:30", Value: 80},
		{PatientID: "b", Variable: "HR", Time: "01:00", Value: 70},
		{PatientID: "b", Variable: "Temp", Time: "01:00", Value: 37},
		{PatientID: "b", Variable: "Cholesterol", Time: "02:00", Value: 180},
		{PatientID: "b", Variable: "HR", Time: "00:15", Value: 60},
	}
	table, err := Pivot(evts, []string{"HR", "Temp"}, DefaultReducer)
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)

	assert.Equal(t, "b", table.Rows[0].PatientID)
	assert.Equal(t, 70.0, table.Rows[0].Values[0])
	assert.Equal(t, 37.0, table.Rows[0].Values[1])
	assert.True(t, math.IsNaN(table.Rows[1].Values[1]))

	groups := table.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "b", groups[0].PatientID)
	assert.Equal(t, []int{0, 2}, groups[0].Rows)
	assert.Equal(t, []string{"b", "a"}, PatientIDs(evts))
}

func TestPivotRejectsMalformedTime(t *testing.T) {
	evts := []Event{{PatientID: "132539", Variable: "HR", Time: "7h", Value: 1}}
	_, err := Pivot(evts, []string{"HR"}, DefaultReducer)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrMalformedTimestamp))
	assert.Contains(t, err.Error(), "132539")
	assert.Contains(t, err.Error(), "HR")
}

func TestTableSentinelClipAndDerive(t *testing.T) {
	evts := []Event{
		{PatientID: "a", Variable: "PaO2", Time: "00:00", Value: 300},
		{PatientID: "a", Variable: "FiO2", Time: "00:00", Value: 0.5},
		{PatientID: "a", Variable: "PaO2", Time: "01:00", Value: -1},
		{PatientID: "a", Variable: "FiO2", Time: "01:00", Value: 0.4},
		{PatientID: "a", Variable: "PaO2", Time: "02:00", Value: 900},
	}
	table, err := Pivot(evts, []string{"PaO2", "FiO2"}, DefaultReducer)
	require.NoError(t, err)

	table.ReplaceSentinel(-1)
	assert.Equal(t, 1, table.ClipAbove("PaO2", 600))
	table.Derive("ratio", func(v []float64) float64 { return v[0] / v[1] })

	col, ok := table.Column("ratio")
	require.True(t, ok)
	assert.Equal(t, 600.0, table.Rows[0].Values[col])
	assert.True(t, math.IsNaN(table.Rows[1].Values[col]))
	assert.True(t, math.IsNaN(table.Rows[2].Values[col]))
}

func TestReadCSV(t *testing.T) {
	input := strings.Join([]string{
		"PATIENT_ID,Time,Parameter,Value",
		"132539,00:00,Age,54",
		"132539,00:07,HR,73",
		"132540,01:15,Temp,",
	}, "\n")
	evts, err := ReadCSV(strings.NewReader(input), DefaultColumns())
	require.NoError(t, err)
	require.Len(t, evts, 3)
	assert.Equal(t, Event{PatientID: "132539", Variable: "HR", Time: "00:07", Value: 73}, evts[1])
	assert.True(t, math.IsNaN(evts[2].Value))

	_, err = ReadCSV(strings.NewReader("PATIENT_ID,Time,Parameter,Value\n1,0700,HR,5\n"), DefaultColumns())
	assert.ErrorIs(t, err, errs.ErrMalformedTimestamp)

	_, err = ReadCSV(strings.NewReader("id,Time,Parameter,Value\n"), DefaultColumns())
	assert.Error(t, err)
}

func TestEventJSONCarriesMissingAsNull(t *testing.T) {
	payload, err := json.Marshal([]Event{
		{PatientID: "132539", Variable: "HR", Time: "01:00", Value: math.NaN()},
		{PatientID: "132539", Variable: "HR", Time: "02:00", Value: 80},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"patient_id": "132539", "variable": "HR", "time": "01:00", "value": null},
		{"patient_id": "132539", "variable": "HR", "time": "02:00", "value": 80}
	]`, string(payload))

	var decoded []Event
	require.NoError(t, json.Unmarshal([]byte(`[
		{"patient_id": "1", "variable": "ALP", "time": "01:00", "value": null},
		{"patient_id": "1", "variable": "ALP", "time": "02:00"},
		{"patient_id": "1", "variable": "ALP", "time": "03:00", "value": 0}
	]`), &decoded))
	require.Len(t, decoded, 3)
	assert.True(t, math.IsNaN(decoded[0].Value))
	assert.True(t, math.IsNaN(decoded[1].Value))
	assert.Equal(t, Event{PatientID: "1", Variable: "ALP", Time: "03:00", Value: 0}, decoded[2])
}
