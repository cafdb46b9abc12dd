package bounds

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synaptica-ai/icu-features/pkg/common/errs"
)

const sample = `
ranges:
  Albumin: [3.4, 5.4]
  Lactate: [-.inf, 2]
  pao2_fio2_r: [202, .inf]
clip:
  Age: 90
  HR: 160.5
`

func TestParse(t *testing.T) {
	b, err := Parse([]byte(sample))
	require.NoError(t, err)

	r, ok := b.Range("Lactate")
	require.True(t, ok)
	assert.True(t, math.IsInf(r.Lower, -1))
	assert.True(t, r.Contains(-3))
	assert.False(t, r.Contains(2.1))

	c, ok := b.Ceiling("HR")
	require.True(t, ok)
	assert.Equal(t, 160.5, c)
}

func TestParseRejectsBadInput(t *testing.T) {
	_, err := Parse([]byte("ranges:\n  ALP: [44]\nclip:\n  Age: 90\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("ranges:\n  ALP: [147, 44]\nclip:\n  Age: 90\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("ranges:\n  ALP: [44, 147]\n"))
	assert.Error(t, err)
}

func TestRequireReportsMissingEntries(t *testing.T) {
	b, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.NoError(t, b.Require([]string{"Albumin"}, []string{"Age"}))
	err = b.Require([]string{"ALP"}, []string{"Height"})
	assert.ErrorIs(t, err, errs.ErrSchema)
	assert.Contains(t, err.Error(), "range:ALP")
	assert.Contains(t, err.Error(), "clip:Height")
}

func TestLoad(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bounds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	b, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, b.Ranges, 3)
}

func TestDefaultRangesCoverSparseLabs(t *testing.T) {
	ranges := DefaultRanges()
	assert.Len(t, ranges, 9)
	assert.True(t, ranges["FiO2"].Contains(1e9))
}
