package storage

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/synaptica-ai/icu-features/pkg/common/models"
)

type memoryClient struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemoryClient() *memoryClient {
	return &memoryClient{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryClient) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.values[key] = string(value.([]byte))
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryClient) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func sampleMatrix() models.FeatureMatrix {
	return models.FeatureMatrix{
		BatchID: "batch-1",
		Columns: []string{"Age", "HR_trend"},
		Rows: []models.FeatureRow{
			{PatientID: "132539", Features: map[string]*float64{"Age": models.Nullable(54), "HR_trend": nil}},
			{PatientID: "132540", Features: map[string]*float64{"Age": models.Nullable(76), "HR_trend": models.Nullable(-0.5)}},
		},
	}
}

func TestFeatureStoreRoundTrip(t *testing.T) {
	client := newMemoryClient()
	store := NewFeatureStore(client, "icu-features", time.Minute)
	ctx := context.Background()

	require.NoError(t, store.MaterializeHotFeatures(ctx, sampleMatrix()))
	assert.Equal(t, time.Minute, client.ttls["features:icu-features:132539"])

	row, ok, err := store.GetFeatures(ctx, "132539")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 54.0, *row.Features["Age"])
	assert.Nil(t, row.Features["HR_trend"])

	_, ok, err = store.GetFeatures(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOfflineStore(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	store := NewOfflineStore(db)
	require.NoError(t, store.AutoMigrate())
	ctx := context.Background()

	require.NoError(t, store.SaveFeatures(ctx, sampleMatrix()))
	require.NoError(t, store.SaveFeatures(ctx, models.FeatureMatrix{}))

	history, err := store.History(ctx, "132540", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 76.0, *history[0].Features["Age"])
	assert.Equal(t, -0.5, *history[0].Features["HR_trend"])

	history, err = store.History(ctx, "132539", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].Features["HR_trend"])
}
