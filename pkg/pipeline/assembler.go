// Package pipeline turns a batch of ICU measurement events into the per-patient
// feature matrix, the per-interval sequence table and mortality predictions.
package pipeline

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/synaptica-ai/icu-features/pkg/bounds"
	"github.com/synaptica-ai/icu-features/pkg/common/logger"
	"github.com/synaptica-ai/icu-features/pkg/events"
	"github.com/synaptica-ai/icu-features/pkg/features"
	"github.com/synaptica-ai/icu-features/pkg/frame"
	"github.com/synaptica-ai/icu-features/pkg/observability/metrics"
)

// Assembler builds the raw (unencoded, unscaled) feature matrix. It holds no
// per-batch state and is safe for concurrent use.
type Assembler struct {
	cfg     Config
	bounds  bounds.VariableBounds
	reducer events.Reducer
}

func NewAssembler(cfg Config, b bounds.VariableBounds) (*Assembler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reducer, err := events.ParseReducer(cfg.Reducer)
	if err != nil {
		return nil, err
	}
	if err := b.Require(cfg.StaySparse, concat(cfg.KeepVars, cfg.StaticClip)); err != nil {
		return nil, err
	}
	return &Assembler{cfg: cfg, bounds: b, reducer: reducer}, nil
}

func (a *Assembler) Config() Config { return a.cfg }

// Assemble returns one row per patient with an admission-time static reading, in
// order of first appearance. Column order: static, per-day summaries, stay
// summaries, abnormality categories, trends.
func (a *Assembler) Assemble(ctx context.Context, evts []events.Event) (*frame.Frame, error) {
	runID := uuid.New().String()
	log := logger.WithFields(logrus.Fields{"run_id": runID, "stage": "assemble"})
	start := time.Now()

	table, err := a.timeTable(evts)
	if err != nil {
		metrics.ObserveStage("pivot", start, err)
		return nil, err
	}
	metrics.ObserveStage("pivot", start, nil)

	static, err := a.static(evts)
	if err != nil {
		return nil, err
	}
	patients := static.Index

	var day, stay, cats, trends *frame.Frame
	var g errgroup.Group
	g.Go(func() (err error) {
		defer observe("day_summary", time.Now(), &err)
		day, err = features.DaySummaries(table, patients, a.cfg.DayFeatureVars())
		return err
	})
	g.Go(func() (err error) {
		defer observe("stay_summary", time.Now(), &err)
		stay, err = features.StaySummaries(table, patients, a.cfg.StayDense)
		return err
	})
	g.Go(func() (err error) {
		defer observe("abnormal_categories", time.Now(), &err)
		cats, err = features.AbnormalCategories(table, patients, a.cfg.StaySparse, a.bounds)
		return err
	})
	g.Go(func() (err error) {
		defer observe("trend", time.Now(), &err)
		trends, err = features.Trends(table, patients, a.cfg.TrendVars())
		return err
	})
	if err := g.Wait(); err != nil {
		log.WithError(err).Error("feature aggregation failed")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := static
	for _, part := range []*frame.Frame{day, stay, cats, trends} {
		if out, err = frame.JoinLeft(out, part, math.NaN()); err != nil {
			return nil, err
		}
	}
	metrics.ObserveStage("assemble", start, nil)
	metrics.ObservePatients("feature_matrix", out.Len())
	log.WithFields(logrus.Fields{
		"patients": out.Len(),
		"columns":  out.Width(),
		"events":   len(evts),
	}).Info("assembled feature matrix")
	return out, nil
}

// timeTable pivots the time-series variables and cleans them: sentinel values and
// readings above their clip ceiling become missing, then the ratio is derived.
func (a *Assembler) timeTable(evts []events.Event) (*events.Table, error) {
	table, err := events.Pivot(evts, a.cfg.KeepVars, a.reducer)
	if err != nil {
		return nil, err
	}
	table.ReplaceSentinel(a.cfg.MissingSentinel)
	for _, v := range a.cfg.KeepVars {
		ceiling, _ := a.bounds.Ceiling(v)
		n := table.ClipAbove(v, ceiling)
		metrics.ObserveCleared(v, n)
		if n > 0 {
			logger.ForStage("clip").WithFields(logrus.Fields{"variable": v, "cleared": n}).Debug("cleared readings above ceiling")
		}
	}
	if r := a.cfg.Ratio; r.Name != "" {
		num, _ := table.Column(r.Numerator)
		den, _ := table.Column(r.Denominator)
		table.Derive(r.Name, func(values []float64) float64 {
			return ratio(values[num], values[den])
		})
	}
	return table, nil
}

// static extracts the admission readings and applies the static cleaning rules.
func (a *Assembler) static(evts []events.Event) (*frame.Frame, error) {
	start := time.Now()
	f, err := features.ExtractStatic(evts, a.cfg.StaticVars, a.reducer)
	if err != nil {
		metrics.ObserveStage("static", start, err)
		return nil, err
	}
	for _, row := range f.Data {
		for j, v := range row {
			if v == a.cfg.MissingSentinel {
				row[j] = math.NaN()
			}
		}
	}
	for _, v := range a.cfg.StaticClip {
		ceiling, _ := a.bounds.Ceiling(v)
		j, _ := f.Col(v)
		cleared := 0
		for _, row := range f.Data {
			if row[j] > ceiling {
				row[j] = math.NaN()
				cleared++
			}
		}
		metrics.ObserveCleared(v, cleared)
	}
	for v, fill := range a.cfg.StaticDefaults {
		j, _ := f.Col(v)
		for _, row := range f.Data {
			if math.IsNaN(row[j]) {
				row[j] = fill
			}
		}
	}
	if len(a.cfg.DropStatic) > 0 {
		if f, err = f.Drop(a.cfg.DropStatic); err != nil {
			metrics.ObserveStage("static", start, err)
			return nil, err
		}
	}
	metrics.ObserveStage("static", start, nil)
	return f, nil
}

// ratio is missing when either operand is missing or the denominator is zero.
func ratio(num, den float64) float64 {
	if math.IsNaN(num) || math.IsNaN(den) || den == 0 {
		return math.NaN()
	}
	return num / den
}

func observe(stage string, start time.Time, err *error) {
	metrics.ObserveStage(stage, start, *err)
}
