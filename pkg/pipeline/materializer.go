package pipeline

import (
	"github.com/synaptica-ai/icu-features/pkg/common/models"
	"github.com/synaptica-ai/icu-features/pkg/features"
	"github.com/synaptica-ai/icu-features/pkg/frame"
)

// MaterializeFeatures converts a feature frame to its wire form.
func MaterializeFeatures(batchID string, f *frame.Frame) models.FeatureMatrix {
	out := models.FeatureMatrix{
		BatchID: batchID,
		Columns: append([]string(nil), f.Columns...),
		Rows:    make([]models.FeatureRow, f.Len()),
	}
	for i, row := range f.Rows() {
		out.Rows[i] = models.FeatureRow{
			PatientID: f.Index[i],
			Features:  models.NullableMap(row),
		}
	}
	return out
}

// MaterializeSequences flattens a sequence table to rows of <var>_mean and
// <var>_ns values.
func MaterializeSequences(s *features.SequenceTable) models.SequenceResponse {
	out := models.SequenceResponse{
		Label:     s.Label,
		Variables: append([]string(nil), s.Variables...),
		Rows:      make([]models.SequenceRow, len(s.Rows)),
	}
	for i, r := range s.Rows {
		values := make(map[string]*float64, 2*len(s.Variables))
		for k, v := range s.Variables {
			values[features.MeanColumn(v)] = models.Nullable(r.Means[k])
			values[features.CountColumn(v)] = models.Nullable(float64(r.Counts[k]))
		}
		out.Rows[i] = models.SequenceRow{PatientID: r.PatientID, Bin: r.Bin, Values: values}
	}
	return out
}
