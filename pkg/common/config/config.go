package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64
	MaxBatchEvents int
	LogLevel       string

	// Database
	PostgresHost        string
	PostgresPort        string
	PostgresUser        string
	PostgresPassword    string
	PostgresDB          string
	PostgresSSLMode     string
	OfflineStoreEnabled bool

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers     []string
	KafkaGroupID     string
	KafkaEventsTopic string
	KafkaOutputTopic string
	KafkaEnabled     bool

	// Feature Store
	FeatureOnlinePrefix string
	FeatureCacheTTL     time.Duration

	// Pipeline. Zero values defer to the pipeline config file.
	PipelineConfigPath string
	BoundsPath         string
	ArtifactDir        string
	ClassifierName     string
	SequenceInterval   int
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8090"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 60*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 64*1024*1024)),
		MaxBatchEvents: getIntEnv("MAX_BATCH_EVENTS", 2000000),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		PostgresHost:        getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:        getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:        getEnv("POSTGRES_USER", "synaptica"),
		PostgresPassword:    getEnv("POSTGRES_PASSWORD", "synaptica123"),
		PostgresDB:          getEnv("POSTGRES_DB", "synaptica"),
		PostgresSSLMode:     getEnv("POSTGRES_SSLMODE", "disable"),
		OfflineStoreEnabled: getBoolEnv("OFFLINE_STORE_ENABLED", false),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:     getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "icu-feature-service"),
		KafkaEventsTopic: getEnv("KAFKA_EVENTS_TOPIC", "icu-event-batches"),
		KafkaOutputTopic: getEnv("KAFKA_OUTPUT_TOPIC", "icu-predictions"),
		KafkaEnabled:     getBoolEnv("KAFKA_ENABLED", false),

		FeatureOnlinePrefix: getEnv("FEATURE_ONLINE_PREFIX", "icu-features"),
		FeatureCacheTTL:     getDuration("FEATURE_CACHE_TTL", 30*time.Minute),

		PipelineConfigPath: getEnv("PIPELINE_CONFIG_PATH", ""),
		BoundsPath:         getEnv("BOUNDS_PATH", "config/bounds.yaml"),
		ArtifactDir:        getEnv("ARTIFACT_DIR", "artifacts"),
		ClassifierName:     getEnv("CLASSIFIER_NAME", ""),
		SequenceInterval:   getIntEnv("SEQUENCE_INTERVAL_HOURS", 0),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
