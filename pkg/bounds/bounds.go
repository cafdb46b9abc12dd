package bounds

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/synaptica-ai/icu-features/pkg/common/errs"
)

// Range is an inclusive normal range. Either side may be infinite.
type Range struct {
	Lower float64
	Upper float64
}

func (r Range) Contains(v float64) bool {
	return r.Lower <= v && v <= r.Upper
}

func (r *Range) UnmarshalYAML(node *yaml.Node) error {
	var pair []float64
	if err := node.Decode(&pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("line %d: range needs [lower, upper], got %d values", node.Line, len(pair))
	}
	if pair[0] > pair[1] {
		return fmt.Errorf("line %d: lower %v above upper %v", node.Line, pair[0], pair[1])
	}
	r.Lower, r.Upper = pair[0], pair[1]
	return nil
}

func (r Range) MarshalYAML() (interface{}, error) {
	return []float64{r.Lower, r.Upper}, nil
}

// VariableBounds is the static reference table for a run: abnormality ranges and
// the percentile ceilings above which readings are treated as outliers.
type VariableBounds struct {
	Ranges map[string]Range   `yaml:"ranges"`
	Clip   map[string]float64 `yaml:"clip"`
}

// Load reads bounds from a YAML file. Both sections must be present.
func Load(path string) (VariableBounds, error) {
	if path == "" {
		return VariableBounds{}, errors.New("bounds path not configured")
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return VariableBounds{}, err
	}
	return Parse(content)
}

func Parse(content []byte) (VariableBounds, error) {
	var b VariableBounds
	if err := yaml.Unmarshal(content, &b); err != nil {
		return VariableBounds{}, err
	}
	if len(b.Ranges) == 0 {
		return VariableBounds{}, errors.New("bounds: ranges section empty")
	}
	if len(b.Clip) == 0 {
		return VariableBounds{}, errors.New("bounds: clip section empty")
	}
	for name, ceiling := range b.Clip {
		if math.IsNaN(ceiling) {
			return VariableBounds{}, fmt.Errorf("bounds: clip ceiling for %s is NaN", name)
		}
	}
	return b, nil
}

func (b VariableBounds) Range(variable string) (Range, bool) {
	r, ok := b.Ranges[variable]
	return r, ok
}

func (b VariableBounds) Ceiling(variable string) (float64, bool) {
	c, ok := b.Clip[variable]
	return c, ok
}

// Require checks that every listed variable has a range and every clip variable
// has a ceiling.
func (b VariableBounds) Require(rangeVars, clipVars []string) error {
	var missing []string
	for _, v := range rangeVars {
		if _, ok := b.Ranges[v]; !ok {
			missing = append(missing, "range:"+v)
		}
	}
	for _, v := range clipVars {
		if _, ok := b.Clip[v]; !ok {
			missing = append(missing, "clip:"+v)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errs.Schema("bounds", "", "missing entries %v", missing)
	}
	return nil
}

// DefaultRanges are the normal ranges used for the sparse laboratory variables of
// the 2012 challenge data. There is no default for clip ceilings: they are
// percentiles of the training cohort and must come from the bounds file.
func DefaultRanges() map[string]Range {
	inf := math.Inf(1)
	return map[string]Range{
		"ALP":         {Lower: 44, Upper: 147},
		"ALT":         {Lower: 7, Upper: 56},
		"AST":         {Lower: 10, Upper: 40},
		"Albumin":     {Lower: 3.4, Upper: 5.4},
		"Bilirubin":   {Lower: 0.1, Upper: 1.2},
		"FiO2":        {Lower: -inf, Upper: inf},
		"Lactate":     {Lower: -inf, Upper: 2},
		"SaO2":        {Lower: 93, Upper: 97},
		"pao2_fio2_r": {Lower: 202, Upper: inf},
	}
}
