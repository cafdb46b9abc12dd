package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullableEncodesMissingAsNull(t *testing.T) {
	row := FeatureRow{
		PatientID: "132539",
		Features:  NullableMap(map[string]float64{"Age": 54, "HR_trend": math.NaN()}),
	}
	content, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"patient_id":"132539","features":{"Age":54,"HR_trend":null}}`, string(content))

	var decoded FeatureRow
	require.NoError(t, json.Unmarshal(content, &decoded))
	assert.Equal(t, 54.0, Float(decoded.Features["Age"]))
	assert.True(t, math.IsNaN(Float(decoded.Features["HR_trend"])))
}

func TestEnvelopeCarriesBatch(t *testing.T) {
	batch := EventBatch{BatchID: "b1"}
	env, err := NewEnvelope(EnvelopeEventBatch, "bedside", batch)
	require.NoError(t, err)
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, EnvelopeEventBatch, env.Type)
	assert.False(t, env.Timestamp.IsZero())

	var decoded EventBatch
	require.NoError(t, env.Decode(&decoded))
	assert.Equal(t, "b1", decoded.BatchID)

	assert.Error(t, Envelope{ID: "empty"}.Decode(&decoded))
}
