package ingestion

import (
	"github.com/synaptica-ai/icu-features/pkg/common/models"
	"github.com/synaptica-ai/icu-features/pkg/events"
)

// EventWrapper accepts null for a missing value.
type EventWrapper struct {
	PatientID string   `json:"patient_id"`
	Variable  string   `json:"variable"`
	Time      string   `json:"time"`
	Value     *float64 `json:"value"`
}

type RequestWrapper struct {
	BatchID string         `json:"batch_id,omitempty"`
	Events  []EventWrapper `json:"events"`
}

func (r RequestWrapper) ToModel() models.EventBatch {
	evts := make([]events.Event, len(r.Events))
	for i, e := range r.Events {
		evts[i] = events.Event{
			PatientID: e.PatientID,
			Variable:  e.Variable,
			Time:      e.Time,
			Value:     models.Float(e.Value),
		}
	}
	return models.EventBatch{BatchID: r.BatchID, Events: evts}
}
