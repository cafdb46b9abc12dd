package predictor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/synaptica-ai/icu-features/pkg/common/errs"
	"github.com/synaptica-ai/icu-features/pkg/frame"
	"github.com/synaptica-ai/icu-features/pkg/ml/linear"
)

type Artifact struct {
	Model struct {
		Type         string         `json:"type"`
		Algorithm    string         `json:"algorithm"`
		FeatureNames []string       `json:"feature_names"`
		Threshold    float64        `json:"threshold"`
		Weights      linear.Weights `json:"weights"`
	} `json:"model"`
}

// Predictor serves previously fitted classifiers stored as <model>_latest.json.
// An artifact is reloaded when its modification time changes.
type Predictor struct {
	dir   string
	cache map[string]cachedArtifact
	mu    sync.RWMutex
}

type cachedArtifact struct {
	artifact Artifact
	modTime  int64
}

func NewPredictor(dir string) *Predictor {
	return &Predictor{
		dir:   dir,
		cache: make(map[string]cachedArtifact),
	}
}

// Predict scores every row of f, selecting the model's features by name.
func (p *Predictor) Predict(model string, f *frame.Frame) ([]float64, error) {
	artifact, err := p.loadArtifact(model)
	if err != nil {
		return nil, err
	}
	names := artifact.Model.FeatureNames
	if len(names) == 0 {
		return nil, fmt.Errorf("artifact %s missing feature names", model)
	}
	selected, err := f.Select(names)
	if err != nil {
		return nil, errs.Schema("classifier", "", "%v", err)
	}
	out := make([]float64, selected.Len())
	for i, row := range selected.Data {
		out[i] = linear.Predict(artifact.Model.Weights, row)
	}
	return out, nil
}

// Threshold returns the model's decision threshold, defaulting to 0.5.
func (p *Predictor) Threshold(model string) float64 {
	artifact, err := p.loadArtifact(model)
	if err != nil || artifact.Model.Threshold <= 0 || artifact.Model.Threshold >= 1 {
		return linear.DefaultThreshold
	}
	return artifact.Model.Threshold
}

func (p *Predictor) loadArtifact(model string) (Artifact, error) {
	latest := filepath.Join(p.dir, fmt.Sprintf("%s_latest.json", model))
	info, err := os.Stat(latest)
	if err != nil {
		return Artifact{}, err
	}
	mod := info.ModTime().UnixNano()

	p.mu.RLock()
	cached, ok := p.cache[model]
	p.mu.RUnlock()
	if ok && cached.modTime == mod {
		return cached.artifact, nil
	}

	content, err := os.ReadFile(latest)
	if err != nil {
		return Artifact{}, err
	}
	var artifact Artifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return Artifact{}, err
	}
	if err := artifact.Model.Weights.Validate(len(artifact.Model.FeatureNames)); err != nil {
		return Artifact{}, fmt.Errorf("artifact %s: %w", model, err)
	}
	p.mu.Lock()
	p.cache[model] = cachedArtifact{artifact: artifact, modTime: mod}
	p.mu.Unlock()
	return artifact, nil
}
