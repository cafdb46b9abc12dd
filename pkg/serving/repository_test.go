package serving

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/synaptica-ai/icu-features/pkg/common/models"
)

func TestRecordPredictions(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	repo := NewRepository(db)
	require.NoError(t, repo.AutoMigrate())
	ctx := context.Background()

	resp := models.PredictionResponse{
		BatchID: "batch-1",
		Predictions: []models.Prediction{
			{PatientID: "132539", ModelName: "mortality", Probability: 0.2, Threshold: 0.5},
			{PatientID: "132540", ModelName: "mortality", Probability: 0.9, Label: 1, Threshold: 0.5},
		},
		Latency: 1500 * time.Microsecond,
	}
	require.NoError(t, repo.RecordPredictions(ctx, resp))
	require.NoError(t, repo.RecordPredictions(ctx, models.PredictionResponse{}))

	logs, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	labels := map[string]int{}
	for _, l := range logs {
		labels[l.PatientID] = l.Label
		assert.Equal(t, "batch-1", l.BatchID)
		assert.InDelta(t, 1.5, l.LatencyMs, 1e-9)
	}
	assert.Equal(t, map[string]int{"132539": 0, "132540": 1}, labels)
}
