package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/synaptica-ai/icu-features/pkg/events"
)

// Event bus models
type Envelope struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"` // event_batch, feature_matrix, prediction
	Source    string            `json:"source"`
	Data      json.RawMessage   `json:"data"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

const (
	EnvelopeEventBatch    = "event_batch"
	EnvelopeFeatureMatrix = "feature_matrix"
	EnvelopePrediction    = "prediction"
)

func NewEnvelope(kind, source string, data interface{}) (Envelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return Envelope{
		ID:        uuid.New().String(),
		Type:      kind,
		Source:    source,
		Data:      payload,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Decode unmarshals the payload into dst.
func (e Envelope) Decode(dst interface{}) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("envelope %s has no payload", e.ID)
	}
	return json.Unmarshal(e.Data, dst)
}

// EventBatch is a complete set of measurement events for one or more stays.
type EventBatch struct {
	BatchID string         `json:"batch_id"`
	Events  []events.Event `json:"events"`
}

// Feature models. Missing values serialise as null.
type FeatureRow struct {
	PatientID string              `json:"patient_id"`
	Features  map[string]*float64 `json:"features"`
}

type FeatureMatrix struct {
	BatchID string       `json:"batch_id,omitempty"`
	Columns []string     `json:"columns"`
	Rows    []FeatureRow `json:"rows"`
}

type SequenceRow struct {
	PatientID string              `json:"patient_id"`
	Bin       float64             `json:"bin"`
	Values    map[string]*float64 `json:"values"`
}

type SequenceResponse struct {
	Label     string        `json:"label"`
	Variables []string      `json:"variables"`
	Rows      []SequenceRow `json:"rows"`
}

// Prediction models
type Prediction struct {
	PatientID   string  `json:"patient_id"`
	ModelName   string  `json:"model_name"`
	Probability float64 `json:"probability"`
	Label       int     `json:"label"`
	Threshold   float64 `json:"threshold"`
}

type PredictionResponse struct {
	BatchID     string        `json:"batch_id,omitempty"`
	Predictions []Prediction  `json:"predictions"`
	Latency     time.Duration `json:"latency"`
}

// Nullable maps NaN and infinities to nil.
func Nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func NullableMap(values map[string]float64) map[string]*float64 {
	out := make(map[string]*float64, len(values))
	for k, v := range values {
		out[k] = Nullable(v)
	}
	return out
}

// Float reverses Nullable.
func Float(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
