// Package transform holds the fitted, read-only stages applied to an assembled
// feature frame: one-hot encoding with median imputation, standard scaling and
// column dropping.
package transform

import (
	"errors"
	"math"
	"sort"
	"strconv"

	"github.com/synaptica-ai/icu-features/pkg/common/errs"
	"github.com/synaptica-ai/icu-features/pkg/common/logger"
	"github.com/synaptica-ai/icu-features/pkg/frame"
)

var ErrNotFitted = errors.New("transform not fitted")

// Vocabulary is the sorted category list learned for one categorical column.
type Vocabulary struct {
	Column     string    `json:"column"`
	Categories []float64 `json:"categories"`
}

// OneHotImputer one-hot encodes the categorical columns and median-imputes every
// other column. Fit learns the parameters once; Transform only reads them.
type OneHotImputer struct {
	OneHotColumns  []string     `json:"one_hot_columns"`
	Vocabularies   []Vocabulary `json:"vocabularies"`
	NumericColumns []string     `json:"numeric_columns"`
	Medians        []float64    `json:"medians"`
}

func NewOneHotImputer(oneHotColumns []string) *OneHotImputer {
	return &OneHotImputer{OneHotColumns: append([]string(nil), oneHotColumns...)}
}

func (e *OneHotImputer) Fitted() bool {
	return len(e.Vocabularies) == len(e.OneHotColumns) && len(e.Medians) == len(e.NumericColumns) &&
		(len(e.Vocabularies) > 0 || len(e.NumericColumns) > 0)
}

// Fit learns the category vocabulary of each one-hot column (missing values are
// not a category) and the median of every remaining column. A column with no
// value at all gets a median of zero.
func (e *OneHotImputer) Fit(f *frame.Frame) error {
	oneHot := make(map[string]struct{}, len(e.OneHotColumns))
	vocabs := make([]Vocabulary, 0, len(e.OneHotColumns))
	for _, c := range e.OneHotColumns {
		values, ok := f.Column(c)
		if !ok {
			return errs.Schema("encoder_fit", c, "one-hot column %s not in frame", c)
		}
		oneHot[c] = struct{}{}
		vocabs = append(vocabs, Vocabulary{Column: c, Categories: distinct(values)})
	}

	var numeric []string
	var medians []float64
	for _, c := range f.Columns {
		if _, ok := oneHot[c]; ok {
			continue
		}
		values, _ := f.Column(c)
		m := frame.Median(finite(values))
		if math.IsNaN(m) {
			logger.ForStage("encoder_fit").WithField("column", c).Warn("column has no values, imputing zero")
			m = 0
		}
		numeric = append(numeric, c)
		medians = append(medians, m)
	}

	e.Vocabularies = vocabs
	e.NumericColumns = numeric
	e.Medians = medians
	return nil
}

// FeatureNames lists the output columns: indicators first, then numeric columns,
// both in fit order.
func (e *OneHotImputer) FeatureNames() []string {
	var names []string
	for _, v := range e.Vocabularies {
		for _, c := range v.Categories {
			names = append(names, indicatorName(v.Column, c))
		}
	}
	return append(names, e.NumericColumns...)
}

// Transform encodes f with the fitted parameters. A fit-time column absent from f
// is a schema error; columns unknown at fit time are ignored. Unseen or missing
// categories encode as all zeros. Non-finite numeric cells take the fitted median.
func (e *OneHotImputer) Transform(f *frame.Frame) (*frame.Frame, error) {
	if !e.Fitted() {
		return nil, ErrNotFitted
	}
	src := make([]int, 0, len(e.Vocabularies)+len(e.NumericColumns))
	for _, v := range e.Vocabularies {
		j, ok := f.Col(v.Column)
		if !ok {
			return nil, errs.Schema("encoder_transform", v.Column, "one-hot column %s not in frame", v.Column)
		}
		src = append(src, j)
	}
	for _, c := range e.NumericColumns {
		j, ok := f.Col(c)
		if !ok {
			return nil, errs.Schema("encoder_transform", c, "column %s not in frame", c)
		}
		src = append(src, j)
	}

	out := frame.New(f.Index, e.FeatureNames(), 0)
	for i, row := range f.Data {
		pos := 0
		for k, v := range e.Vocabularies {
			value := row[src[k]]
			for _, c := range v.Categories {
				if value == c {
					out.Data[i][pos] = 1
				}
				pos++
			}
		}
		for k := range e.NumericColumns {
			value := row[src[len(e.Vocabularies)+k]]
			if math.IsNaN(value) || math.IsInf(value, 0) {
				value = e.Medians[k]
			}
			out.Data[i][pos] = value
			pos++
		}
	}
	return out, nil
}

func indicatorName(column string, category float64) string {
	return column + "_" + strconv.FormatFloat(category, 'g', -1, 64)
}

func distinct(values []float64) []float64 {
	seen := make(map[float64]struct{})
	var out []float64
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
