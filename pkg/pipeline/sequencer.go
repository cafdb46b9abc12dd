package pipeline

import (
	"context"
	"time"

	"github.com/synaptica-ai/icu-features/pkg/common/errs"
	"github.com/synaptica-ai/icu-features/pkg/common/logger"
	"github.com/synaptica-ai/icu-features/pkg/events"
	"github.com/synaptica-ai/icu-features/pkg/features"
	"github.com/synaptica-ai/icu-features/pkg/observability/metrics"
)

// Sequencer builds the imputed per-interval sequence table for the sequence
// variables. Readings are used as recorded, without sentinel or clip cleaning.
type Sequencer struct {
	vars       []string
	interval   int
	reducer    events.Reducer
	population map[string][]float64
}

// NewSequencer checks that population holds a full-length mean sequence for every
// sequence variable.
func NewSequencer(cfg Config, population map[string][]float64) (*Sequencer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reducer, err := events.ParseReducer(cfg.Reducer)
	if err != nil {
		return nil, err
	}
	bins, err := features.Bins(features.SequenceGridWidth, features.Hour)
	if err != nil {
		return nil, err
	}
	for _, v := range cfg.SeqVars {
		seq, ok := population[features.MeanColumn(v)]
		if !ok {
			return nil, errs.Schema("sequence_impute", v, "no population sequence %s", features.MeanColumn(v))
		}
		if len(seq) != len(bins) {
			return nil, errs.Schema("sequence_impute", v, "population sequence has %d values, grid has %d bins", len(seq), len(bins))
		}
	}
	return &Sequencer{
		vars:       append([]string(nil), cfg.SeqVars...),
		interval:   cfg.SequenceInterval,
		reducer:    reducer,
		population: population,
	}, nil
}

// Sequences emits every bin for every patient present in evts.
func (s *Sequencer) Sequences(ctx context.Context, evts []events.Event) (*features.SequenceTable, error) {
	start := time.Now()
	table, err := events.Pivot(evts, s.vars, s.reducer)
	if err != nil {
		metrics.ObserveStage("sequence", start, err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seq, err := features.BinSequences(table, events.PatientIDs(evts), s.vars, s.interval)
	if err != nil {
		metrics.ObserveStage("sequence", start, err)
		return nil, err
	}
	if err := features.ImputeSequences(seq, s.population); err != nil {
		metrics.ObserveStage("sequence", start, err)
		return nil, err
	}
	metrics.ObserveStage("sequence", start, nil)
	metrics.ObservePatients("sequence_table", len(seq.Rows)/len(seq.Bins))
	logger.ForStage("sequence").WithField("rows", len(seq.Rows)).Info("built sequence table")
	return seq, nil
}
