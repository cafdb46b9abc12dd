package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "8090", cfg.ServerPort)
	assert.Equal(t, 0, cfg.SequenceInterval)
	assert.Equal(t, "config/bounds.yaml", cfg.BoundsPath)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("FEATURE_CACHE_TTL", "90s")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("SEQUENCE_INTERVAL_HOURS", "not-a-number")

	cfg := Load()
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 90*time.Second, cfg.FeatureCacheTTL)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, 0, cfg.SequenceInterval)
}
