package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/synaptica-ai/icu-features/pkg/common/logger"
	"github.com/synaptica-ai/icu-features/pkg/common/models"
	"github.com/synaptica-ai/icu-features/pkg/observability/metrics"
)

// OnlineClient is the subset of the Redis client used by the online store.
type OnlineClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// FeatureStore caches the latest feature row of each patient in Redis.
type FeatureStore struct {
	client   OnlineClient
	prefix   string
	cacheTTL time.Duration
}

func NewFeatureStore(client OnlineClient, prefix string, ttl time.Duration) *FeatureStore {
	return &FeatureStore{client: client, prefix: prefix, cacheTTL: ttl}
}

func (f *FeatureStore) key(patientID string) string {
	return fmt.Sprintf("features:%s:%s", f.prefix, patientID)
}

// MaterializeHotFeatures writes every row of the matrix, replacing older rows.
func (f *FeatureStore) MaterializeHotFeatures(ctx context.Context, matrix models.FeatureMatrix) error {
	for _, row := range matrix.Rows {
		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		key := f.key(row.PatientID)
		if err := f.client.Set(ctx, key, data, f.cacheTTL).Err(); err != nil {
			return fmt.Errorf("cache features %s: %w", key, err)
		}
		logger.Log.WithFields(map[string]interface{}{
			"key":  key,
			"size": len(data),
		}).Debug("Caching features")
	}
	metrics.ObservePersisted("redis", len(matrix.Rows))
	return nil
}

// GetFeatures reports false when the patient has no cached row.
func (f *FeatureStore) GetFeatures(ctx context.Context, patientID string) (models.FeatureRow, bool, error) {
	key := f.key(patientID)
	data, err := f.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.FeatureRow{}, false, nil
	}
	if err != nil {
		return models.FeatureRow{}, false, err
	}
	var row models.FeatureRow
	if err := json.Unmarshal(data, &row); err != nil {
		return models.FeatureRow{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return row, true, nil
}
