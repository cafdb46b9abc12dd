package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synaptica-ai/icu-features/pkg/common/errs"
)

func TestAssignPartitionsStay(t *testing.T) {
	for _, w := range []float64{1, 2, 3, 4, 6, 8, 12, 16, 24, 48} {
		bins, err := Bins(w, Hour)
		require.NoError(t, err)
		assert.Len(t, bins, int(48/w))

		first, err := Assign(0, w, Hour)
		require.NoError(t, err)
		assert.Equal(t, w, first, "zero maps to first bin for width %v", w)

		counts := make(map[float64]int)
		for step := 1; step <= 480; step++ {
			v := float64(step) / 10
			ceiling, err := Assign(v, w, Hour)
			require.NoError(t, err)
			assert.True(t, ceiling-w < v && v <= ceiling, "v=%v w=%v ceiling=%v", v, w, ceiling)
			counts[ceiling]++
		}
		assert.Len(t, counts, len(bins))
	}
}

func TestAssignRightClosed(t *testing.T) {
	cases := []struct {
		v, want float64
	}{
		{0.01, 24}, {24, 24}, {24.01, 48}, {47.9, 48}, {48, 48},
	}
	for _, c := range cases {
		got, err := Assign(c.v, 24, Hour)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "v=%v", c.v)
	}
}

func TestAssignMinutes(t *testing.T) {
	bins, err := Bins(30, Minute)
	require.NoError(t, err)
	assert.Len(t, bins, 96)

	got, err := Assign(2880, 30, Minute)
	require.NoError(t, err)
	assert.Equal(t, 2880.0, got)
}

func TestAssignRejectsOutOfHorizon(t *testing.T) {
	_, err := Assign(48.5, 4, Hour)
	assert.ErrorIs(t, err, errs.ErrOutOfHorizon)

	_, err = Assign(-0.5, 4, Hour)
	assert.ErrorIs(t, err, errs.ErrOutOfHorizon)

	_, err = Assign(1, 0, Hour)
	assert.Error(t, err)

	_, err = Assign(1, 4, Unit("day"))
	assert.Error(t, err)
}
