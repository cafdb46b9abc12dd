package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/synaptica-ai/icu-features/pkg/artifacts"
	"github.com/synaptica-ai/icu-features/pkg/common/logger"
	"github.com/synaptica-ai/icu-features/pkg/common/models"
	"github.com/synaptica-ai/icu-features/pkg/events"
	"github.com/synaptica-ai/icu-features/pkg/frame"
	"github.com/synaptica-ai/icu-features/pkg/ml/linear"
	"github.com/synaptica-ai/icu-features/pkg/observability/metrics"
	"github.com/synaptica-ai/icu-features/pkg/transform"
)

// Classifier scores the rows of a fully transformed frame.
type Classifier interface {
	Predict(model string, f *frame.Frame) ([]float64, error)
	Threshold(model string) float64
}

// Predictor runs assemble, encode, scale, drop and classify strictly in order.
type Predictor struct {
	assembler  *Assembler
	encoder    *transform.OneHotImputer
	scaler     *transform.StandardScaler
	drop       []string
	classifier Classifier
	model      string
}

func NewPredictor(a *Assembler, bundle *artifacts.Bundle, classifier Classifier) (*Predictor, error) {
	switch {
	case bundle == nil:
		return nil, fmt.Errorf("predictor: no artifacts")
	case bundle.Encoder == nil || !bundle.Encoder.Fitted():
		return nil, fmt.Errorf("predictor: encoder: %w", transform.ErrNotFitted)
	case bundle.Scaler == nil:
		return nil, fmt.Errorf("predictor: scaler: %w", transform.ErrNotFitted)
	case bundle.DropColumns == nil:
		return nil, fmt.Errorf("predictor: drop list missing")
	case classifier == nil:
		return nil, fmt.Errorf("predictor: no classifier")
	}
	return &Predictor{
		assembler:  a,
		encoder:    bundle.Encoder,
		scaler:     bundle.Scaler,
		drop:       bundle.DropColumns,
		classifier: classifier,
		model:      a.Config().ModelName,
	}, nil
}

// Transform returns the classifier-ready matrix.
func (p *Predictor) Transform(ctx context.Context, evts []events.Event) (*frame.Frame, error) {
	raw, err := p.assembler.Assemble(ctx, evts)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	encoded, err := p.encoder.Transform(raw)
	metrics.ObserveStage("encode", start, err)
	if err != nil {
		return nil, err
	}
	start = time.Now()
	scaled, err := p.scaler.Transform(encoded)
	metrics.ObserveStage("scale", start, err)
	if err != nil {
		return nil, err
	}
	return transform.DropColumns(scaled, p.drop)
}

// Predict returns one prediction per patient in feature matrix order.
func (p *Predictor) Predict(ctx context.Context, evts []events.Event) ([]models.Prediction, error) {
	f, err := p.Transform(ctx, evts)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	probs, err := p.classifier.Predict(p.model, f)
	metrics.ObserveStage("classify", start, err)
	if err != nil {
		return nil, err
	}
	if len(probs) != f.Len() {
		return nil, fmt.Errorf("classifier returned %d scores for %d patients", len(probs), f.Len())
	}
	threshold := p.classifier.Threshold(p.model)
	out := make([]models.Prediction, f.Len())
	for i, id := range f.Index {
		out[i] = models.Prediction{
			PatientID:   id,
			ModelName:   p.model,
			Probability: probs[i],
			Label:       linear.Classify(probs[i], threshold),
			Threshold:   threshold,
		}
	}
	metrics.ObservePatients("prediction", len(out))
	logger.ForStage("classify").WithField("patients", len(out)).Info("scored batch")
	return out, nil
}

// FitEncoder assembles evts and fits a fresh encoder on the result.
func FitEncoder(ctx context.Context, a *Assembler, evts []events.Event) (*transform.OneHotImputer, error) {
	raw, err := a.Assemble(ctx, evts)
	if err != nil {
		return nil, err
	}
	enc := transform.NewOneHotImputer(a.Config().OneHotColumns)
	if err := enc.Fit(raw); err != nil {
		return nil, err
	}
	return enc, nil
}
