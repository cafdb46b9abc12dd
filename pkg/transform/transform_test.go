package transform

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synaptica-ai/icu-features/pkg/common/errs"
	"github.com/synaptica-ai/icu-features/pkg/frame"
)

func trainingFrame() *frame.Frame {
	nan := math.NaN()
	f := frame.New([]string{"a", "b", "c", "d"}, []string{"Age", "Gender", "ICUType", "HR_trend"}, 0)
	f.Data = [][]float64{
		{54, 0, 4, 1.5},
		{76, 1, 2, nan},
		{nan, 1, 3, 0.5},
		{44, 0, 3, math.Inf(1)},
	}
	return f
}

func TestOneHotImputerFitTransform(t *testing.T) {
	enc := NewOneHotImputer([]string{"Gender", "ICUType"})
	_, err := enc.Transform(trainingFrame())
	assert.ErrorIs(t, err, ErrNotFitted)

	require.NoError(t, enc.Fit(trainingFrame()))
	assert.Equal(t, []string{
		"Gender_0", "Gender_1", "ICUType_2", "ICUType_3", "ICUType_4", "Age", "HR_trend",
	}, enc.FeatureNames())
	assert.Equal(t, []float64{54, 1}, enc.Medians)

	nan := math.NaN()
	input := frame.New([]string{"x", "y"}, []string{"HR_trend", "ICUType", "Gender", "Age", "Extra"}, 0)
	input.Data = [][]float64{
		{nan, 1, 1, nan, 9},
		{-2, 3, nan, 60, 9},
	}
	out, err := enc.Transform(input)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, out.Index)
	// ICUType 1 was never seen: all-zero indicators.
	assert.Equal(t, []float64{0, 1, 0, 0, 0, 54, 1}, out.Data[0])
	assert.Equal(t, []float64{0, 0, 0, 1, 0, 60, -2}, out.Data[1])

	again, err := enc.Transform(input)
	require.NoError(t, err)
	assert.Equal(t, out.Data, again.Data)
	assert.Equal(t, []float64{54, 1}, enc.Medians)
}

func TestOneHotImputerSchemaErrors(t *testing.T) {
	enc := NewOneHotImputer([]string{"Gender"})
	missing := frame.New([]string{"a"}, []string{"Age"}, 1)
	assert.ErrorIs(t, enc.Fit(missing), errs.ErrSchema)

	require.NoError(t, enc.Fit(trainingFrame()))
	noTrend := frame.New([]string{"a"}, []string{"Gender", "Age", "ICUType"}, 1)
	_, err := enc.Transform(noTrend)
	assert.ErrorIs(t, err, errs.ErrSchema)
	assert.Contains(t, err.Error(), "HR_trend")
}

func TestOneHotImputerAllMissingColumnImputesZero(t *testing.T) {
	f := frame.New([]string{"a", "b"}, []string{"Lactate_min"}, math.NaN())
	enc := NewOneHotImputer(nil)
	require.NoError(t, enc.Fit(f))
	out, err := enc.Transform(f)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0}, {0}}, out.Data)
}

func TestOneHotImputerRoundTripsThroughJSON(t *testing.T) {
	enc := NewOneHotImputer([]string{"Gender"})
	require.NoError(t, enc.Fit(trainingFrame()))
	payload, err := json.Marshal(enc)
	require.NoError(t, err)

	var loaded OneHotImputer
	require.NoError(t, json.Unmarshal(payload, &loaded))
	want, err := enc.Transform(trainingFrame())
	require.NoError(t, err)
	got, err := loaded.Transform(trainingFrame())
	require.NoError(t, err)
	assert.Equal(t, want.Data, got.Data)
}

func TestStandardScaler(t *testing.T) {
	f := frame.New([]string{"a", "b"}, []string{"x", "const"}, 0)
	f.Data = [][]float64{{1, 5}, {3, 5}}

	s := FitStandardScaler(f)
	assert.Equal(t, []float64{2, 5}, s.Mean)
	assert.Equal(t, []float64{1, 0}, s.Scale)

	out, err := s.Transform(f)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{-1, 0}, {1, 0}}, out.Data)

	reordered, err := f.Select([]string{"const", "x"})
	require.NoError(t, err)
	out, err = s.Transform(reordered)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "const"}, out.Columns)

	narrow, err := f.Select([]string{"x"})
	require.NoError(t, err)
	_, err = s.Transform(narrow)
	assert.ErrorIs(t, err, errs.ErrSchema)

	_, err = (&StandardScaler{}).Transform(f)
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestDropColumns(t *testing.T) {
	f := frame.New([]string{"a"}, []string{"x", "y"}, 0)
	out, err := DropColumns(f, []string{"y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, out.Columns)

	_, err = DropColumns(f, []string{"z"})
	assert.ErrorIs(t, err, errs.ErrSchema)
}
