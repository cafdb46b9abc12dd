package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/synaptica-ai/icu-features/pkg/artifacts"
	"github.com/synaptica-ai/icu-features/pkg/common/errs"
	"github.com/synaptica-ai/icu-features/pkg/common/logger"
	"github.com/synaptica-ai/icu-features/pkg/common/models"
	"github.com/synaptica-ai/icu-features/pkg/pipeline"
)

// ErrUnavailable is returned when the artifacts a stage needs are not loaded.
var ErrUnavailable = errors.New("stage unavailable")

type OnlineStore interface {
	MaterializeHotFeatures(ctx context.Context, matrix models.FeatureMatrix) error
	GetFeatures(ctx context.Context, patientID string) (models.FeatureRow, bool, error)
}

type OfflineStore interface {
	SaveFeatures(ctx context.Context, matrix models.FeatureMatrix) error
}

type PredictionLog interface {
	RecordPredictions(ctx context.Context, resp models.PredictionResponse) error
}

type Publisher interface {
	Publish(ctx context.Context, kind, source, key string, data interface{}) error
}

// Options carries the optional collaborators of the service. Nil fields are skipped.
type Options struct {
	Online      OnlineStore
	Offline     OfflineStore
	Predictions PredictionLog
	Publisher   Publisher
	MaxEvents   int
}

// Service turns event batches into feature matrices, sequence tables and
// predictions, persisting and publishing the results.
type Service struct {
	validator  *Validator
	assembler  *pipeline.Assembler
	store      *artifacts.Store
	classifier pipeline.Classifier
	opts       Options

	mu        sync.RWMutex
	sequencer *pipeline.Sequencer
	predictor *pipeline.Predictor
}

func NewService(assembler *pipeline.Assembler, store *artifacts.Store, classifier pipeline.Classifier, opts Options) (*Service, error) {
	s := &Service{
		validator:  NewValidator(opts.MaxEvents),
		assembler:  assembler,
		store:      store,
		classifier: classifier,
		opts:       opts,
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload rebuilds the sequencer and predictor from the artifact directory. A
// stage whose artifacts are absent stays unavailable.
func (s *Service) Reload() error {
	bundle, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("loading artifacts: %w", err)
	}
	cfg := s.assembler.Config()
	log := logger.ForStage("reload")

	var sequencer *pipeline.Sequencer
	if bundle.MeanSequence != nil {
		if sequencer, err = pipeline.NewSequencer(cfg, bundle.MeanSequence); err != nil {
			return err
		}
	} else {
		log.Warn("no population sequence, sequence output disabled")
	}

	var predictor *pipeline.Predictor
	if bundle.Encoder != nil && bundle.Scaler != nil && bundle.DropColumns != nil && s.classifier != nil {
		if predictor, err = pipeline.NewPredictor(s.assembler, bundle, s.classifier); err != nil {
			return err
		}
	} else {
		log.Warn("fitted transforms incomplete, prediction disabled")
	}

	s.mu.Lock()
	s.sequencer = sequencer
	s.predictor = predictor
	s.mu.Unlock()
	return nil
}

func (s *Service) prepare(batch *models.EventBatch) error {
	if err := s.validator.Validate(*batch); err != nil {
		return err
	}
	if batch.BatchID == "" {
		batch.BatchID = uuid.New().String()
	}
	return nil
}

// Features assembles the raw feature matrix and stores it online and offline.
func (s *Service) Features(ctx context.Context, batch models.EventBatch) (*models.FeatureMatrix, error) {
	if err := s.prepare(&batch); err != nil {
		return nil, err
	}
	f, err := s.assembler.Assemble(ctx, batch.Events)
	if err != nil {
		return nil, err
	}
	matrix := pipeline.MaterializeFeatures(batch.BatchID, f)
	if s.opts.Online != nil {
		if err := s.opts.Online.MaterializeHotFeatures(ctx, matrix); err != nil {
			logger.Log.WithError(err).WithField("batch_id", batch.BatchID).Warn("failed to cache features")
		}
	}
	if s.opts.Offline != nil {
		if err := s.opts.Offline.SaveFeatures(ctx, matrix); err != nil {
			return nil, fmt.Errorf("persisting features: %w", err)
		}
	}
	return &matrix, nil
}

// CachedFeatures reads the latest cached row of one patient.
func (s *Service) CachedFeatures(ctx context.Context, patientID string) (models.FeatureRow, bool, error) {
	if s.opts.Online == nil {
		return models.FeatureRow{}, false, fmt.Errorf("online store: %w", ErrUnavailable)
	}
	return s.opts.Online.GetFeatures(ctx, patientID)
}

func (s *Service) Sequences(ctx context.Context, batch models.EventBatch) (*models.SequenceResponse, error) {
	if err := s.prepare(&batch); err != nil {
		return nil, err
	}
	s.mu.RLock()
	sequencer := s.sequencer
	s.mu.RUnlock()
	if sequencer == nil {
		return nil, fmt.Errorf("sequences: %w", ErrUnavailable)
	}
	seq, err := sequencer.Sequences(ctx, batch.Events)
	if err != nil {
		return nil, err
	}
	resp := pipeline.MaterializeSequences(seq)
	return &resp, nil
}

// FitEncoder fits the one-hot imputer on the batch, saves it and reloads.
func (s *Service) FitEncoder(ctx context.Context, batch models.EventBatch) ([]string, error) {
	if err := s.prepare(&batch); err != nil {
		return nil, err
	}
	enc, err := pipeline.FitEncoder(ctx, s.assembler, batch.Events)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveEncoder(enc); err != nil {
		return nil, fmt.Errorf("saving encoder: %w", err)
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	logger.ForStage("encoder_fit").WithField("features", len(enc.FeatureNames())).Info("encoder fitted")
	return enc.FeatureNames(), nil
}

// Predict scores the batch, logs the predictions and publishes them.
func (s *Service) Predict(ctx context.Context, batch models.EventBatch) (*models.PredictionResponse, error) {
	start := time.Now()
	if err := s.prepare(&batch); err != nil {
		return nil, err
	}
	s.mu.RLock()
	predictor := s.predictor
	s.mu.RUnlock()
	if predictor == nil {
		return nil, fmt.Errorf("predictions: %w", ErrUnavailable)
	}
	preds, err := predictor.Predict(ctx, batch.Events)
	if err != nil {
		return nil, err
	}
	resp := &models.PredictionResponse{
		BatchID:     batch.BatchID,
		Predictions: preds,
		Latency:     time.Since(start),
	}
	if s.opts.Predictions != nil {
		if err := s.opts.Predictions.RecordPredictions(ctx, *resp); err != nil {
			logger.Log.WithError(err).WithField("batch_id", batch.BatchID).Warn("failed to log predictions")
		}
	}
	if s.opts.Publisher != nil {
		if err := s.opts.Publisher.Publish(ctx, models.EnvelopePrediction, "icu-feature-service", batch.BatchID, resp); err != nil {
			return nil, fmt.Errorf("publishing predictions: %w", err)
		}
	}
	return resp, nil
}

// HandleEnvelope processes an event batch delivered over the bus. Batches are
// scored when a predictor is loaded and only featurised otherwise. Batches that
// can never succeed are logged and acknowledged.
func (s *Service) HandleEnvelope(ctx context.Context, env models.Envelope) error {
	err := s.handleEnvelope(ctx, env)
	if err != nil && IsRejected(err) {
		logger.Log.WithError(err).WithField("envelope_id", env.ID).Error("rejected event batch")
		return nil
	}
	return err
}

// IsRejected reports errors caused by the batch content rather than the service.
func IsRejected(err error) bool {
	return IsValidationError(err) ||
		errors.Is(err, errs.ErrSchema) ||
		errors.Is(err, errs.ErrMalformedTimestamp) ||
		errors.Is(err, errs.ErrOutOfHorizon)
}

func (s *Service) handleEnvelope(ctx context.Context, env models.Envelope) error {
	if env.Type != models.EnvelopeEventBatch {
		logger.Log.WithField("type", env.Type).Debug("ignoring envelope")
		return nil
	}
	var batch models.EventBatch
	if err := env.Decode(&batch); err != nil {
		return ValidationError{reason: fmt.Errorf("decoding batch %s: %w", env.ID, err)}
	}
	if batch.BatchID == "" {
		batch.BatchID = env.ID
	}
	s.mu.RLock()
	ready := s.predictor != nil
	s.mu.RUnlock()
	if ready {
		_, err := s.Predict(ctx, batch)
		return err
	}
	matrix, err := s.Features(ctx, batch)
	if err != nil {
		return err
	}
	if s.opts.Publisher != nil {
		return s.opts.Publisher.Publish(ctx, models.EnvelopeFeatureMatrix, "icu-feature-service", batch.BatchID, matrix)
	}
	return nil
}
