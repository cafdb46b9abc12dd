package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/synaptica-ai/icu-features/pkg/artifacts"
	"github.com/synaptica-ai/icu-features/pkg/bounds"
	"github.com/synaptica-ai/icu-features/pkg/common/config"
	"github.com/synaptica-ai/icu-features/pkg/common/database"
	"github.com/synaptica-ai/icu-features/pkg/common/kafka"
	"github.com/synaptica-ai/icu-features/pkg/common/logger"
	"github.com/synaptica-ai/icu-features/pkg/common/middleware"
	"github.com/synaptica-ai/icu-features/pkg/ingestion"
	"github.com/synaptica-ai/icu-features/pkg/observability/metrics"
	"github.com/synaptica-ai/icu-features/pkg/pipeline"
	"github.com/synaptica-ai/icu-features/pkg/serving"
	"github.com/synaptica-ai/icu-features/pkg/serving/predictor"
	"github.com/synaptica-ai/icu-features/pkg/storage"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	pipeCfg, err := pipeline.LoadConfig(cfg.PipelineConfigPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load pipeline config")
	}
	if cfg.ClassifierName != "" {
		pipeCfg.ModelName = cfg.ClassifierName
	}
	if cfg.SequenceInterval > 0 {
		pipeCfg.SequenceInterval = cfg.SequenceInterval
	}

	variableBounds, err := bounds.Load(cfg.BoundsPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load variable bounds")
	}
	assembler, err := pipeline.NewAssembler(pipeCfg, variableBounds)
	if err != nil {
		logger.Log.WithError(err).Fatal("Invalid pipeline configuration")
	}

	opts := ingestion.Options{MaxEvents: cfg.MaxBatchEvents}
	if redisClient := database.GetRedis(cfg); redisClient != nil {
		opts.Online = storage.NewFeatureStore(redisClient, cfg.FeatureOnlinePrefix, cfg.FeatureCacheTTL)
	}
	if cfg.OfflineStoreEnabled {
		db, err := database.GetPostgres(cfg)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to connect to database")
		}
		offline := storage.NewOfflineStore(db)
		if err := offline.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Fatal("Failed to migrate feature tables")
		}
		repo := serving.NewRepository(db)
		if err := repo.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Fatal("Failed to migrate prediction tables")
		}
		opts.Offline = offline
		opts.Predictions = repo
	}

	var producer *kafka.Producer
	if cfg.KafkaEnabled {
		producer = kafka.NewProducer(cfg, cfg.KafkaOutputTopic)
		opts.Publisher = producer
	}

	service, err := ingestion.NewService(assembler, artifacts.NewStore(cfg.ArtifactDir), predictor.NewPredictor(cfg.ArtifactDir), opts)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialise feature service")
	}

	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging)
	router.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	ingestion.NewHTTPHandler(service, cfg.MaxRequestBody).Register(router.PathPrefix("/api/v1").Subrouter())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	consumeCtx, stopConsumer := context.WithCancel(context.Background())
	var consumer *kafka.Consumer
	if cfg.KafkaEnabled {
		consumer = kafka.NewConsumer(cfg, cfg.KafkaEventsTopic)
		go func() {
			logger.Log.WithField("topic", cfg.KafkaEventsTopic).Info("Consuming event batches")
			if err := consumer.Consume(consumeCtx, service.HandleEnvelope); err != nil && err != context.Canceled {
				// Exit so the group redelivers from the last committed offset.
				logger.Log.WithError(err).Error("Event batch consumer stopped")
				select {
				case quit <- syscall.SIGTERM:
				default:
				}
			}
		}()
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Feature Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-quit

	logger.Log.Info("Shutting down Feature Service...")
	stopConsumer()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close consumer")
		}
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close producer")
		}
	}
	if err := database.ClosePostgres(); err != nil {
		logger.Log.WithError(err).Warn("Failed to close database")
	}
	if err := database.CloseRedis(); err != nil {
		logger.Log.WithError(err).Warn("Failed to close redis")
	}

	logger.Log.Info("Feature Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
