package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/synaptica-ai/icu-features/pkg/common/errs"
	"github.com/synaptica-ai/icu-features/pkg/events"
)

// SequenceGridWidth is the bin width, in hours, of every sequence grid. The
// interval passed to BinSequences only names the bin column.
const SequenceGridWidth = 4

// SequenceRow is one (patient, bin) cell of the sequence grid.
type SequenceRow struct {
	PatientID string
	Bin       float64
	Means     []float64
	Counts    []int
}

// SequenceTable holds every patient × bin pair, patients in the order requested and
// bins ascending.
type SequenceTable struct {
	Label     string
	Variables []string
	Bins      []float64
	Rows      []SequenceRow
}

func SequenceLabel(interval int) string {
	return fmt.Sprintf("Time_%d_hours", interval)
}

// MeanColumn is the name of a variable's bin-mean column and the key of its
// population sequence.
func MeanColumn(variable string) string { return variable + "_mean" }

func CountColumn(variable string) string { return variable + "_ns" }

// Patient returns the rows of one patient, nil if absent.
func (s *SequenceTable) Patient(patientID string) []SequenceRow {
	for i := 0; i+len(s.Bins) <= len(s.Rows); i += len(s.Bins) {
		if s.Rows[i].PatientID == patientID {
			return s.Rows[i : i+len(s.Bins)]
		}
	}
	return nil
}

// BinSequences materialises the full patients × bins grid for vars. Each cell holds
// the mean and count of the values landing in the bin; empty bins count zero and
// take the patient's own across-bin mean. A variable the patient never had stays
// missing for ImputeSequences.
func BinSequences(table *events.Table, patients []string, vars []string, interval int) (*SequenceTable, error) {
	cols, err := columnsFor(table, vars, "sequence")
	if err != nil {
		return nil, err
	}
	bins, err := Bins(SequenceGridWidth, Hour)
	if err != nil {
		return nil, err
	}
	out := &SequenceTable{
		Label:     SequenceLabel(interval),
		Variables: append([]string(nil), vars...),
		Bins:      bins,
	}

	groups := table.GroupIndex()
	for _, id := range patients {
		// cells[b][k] gathers the values of variable k in bin b.
		cells := make([][][]float64, len(bins))
		for b := range cells {
			cells[b] = make([][]float64, len(cols))
		}
		for _, r := range groups[id] {
			row := table.Rows[r]
			ceiling, err := Assign(row.Hours, SequenceGridWidth, Hour)
			if err != nil {
				return nil, errs.Stage("sequence", id, "", err)
			}
			b := int(ceiling/SequenceGridWidth) - 1
			for k, col := range cols {
				if v := row.Values[col]; !math.IsNaN(v) {
					cells[b][k] = append(cells[b][k], v)
				}
			}
		}

		start := len(out.Rows)
		for b, ceiling := range bins {
			row := SequenceRow{
				PatientID: id,
				Bin:       ceiling,
				Means:     make([]float64, len(cols)),
				Counts:    make([]int, len(cols)),
			}
			for k := range cols {
				row.Counts[k] = len(cells[b][k])
				row.Means[k] = math.NaN()
				if len(cells[b][k]) > 0 {
					row.Means[k] = stat.Mean(cells[b][k], nil)
				}
			}
			out.Rows = append(out.Rows, row)
		}
		imputeWithinPatient(out.Rows[start:], len(cols))
	}
	return out, nil
}

func imputeWithinPatient(rows []SequenceRow, nvars int) {
	for k := 0; k < nvars; k++ {
		var present []float64
		for _, r := range rows {
			if !math.IsNaN(r.Means[k]) {
				present = append(present, r.Means[k])
			}
		}
		if len(present) == 0 {
			continue
		}
		fill := stat.Mean(present, nil)
		for _, r := range rows {
			if math.IsNaN(r.Means[k]) {
				r.Means[k] = fill
			}
		}
	}
}

// ImputeSequences fills cells still missing after within-patient imputation from
// the population sequence keyed by MeanColumn(variable). Every variable needs a
// sequence with one value per bin.
func ImputeSequences(s *SequenceTable, population map[string][]float64) error {
	seqs := make([][]float64, len(s.Variables))
	for k, v := range s.Variables {
		seq, ok := population[MeanColumn(v)]
		if !ok {
			return errs.Schema("sequence_impute", v, "no population sequence %s", MeanColumn(v))
		}
		if len(seq) != len(s.Bins) {
			return errs.Schema("sequence_impute", v, "population sequence has %d values, grid has %d bins", len(seq), len(s.Bins))
		}
		seqs[k] = seq
	}
	for i := range s.Rows {
		b := i % len(s.Bins)
		for k := range s.Variables {
			if math.IsNaN(s.Rows[i].Means[k]) {
				s.Rows[i].Means[k] = seqs[k][b]
			}
		}
	}
	return nil
}
