package serving

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/synaptica-ai/icu-features/pkg/common/models"
	"github.com/synaptica-ai/icu-features/pkg/observability/metrics"
)

// PredictionLog is the persistence model for served predictions.
type PredictionLog struct {
	ID          uuid.UUID `gorm:"primaryKey;column:id"`
	BatchID     string    `gorm:"column:batch_id;index"`
	PatientID   string    `gorm:"column:patient_id;index"`
	ModelName   string    `gorm:"column:model_name"`
	Probability float64   `gorm:"column:probability"`
	Label       int       `gorm:"column:label"`
	Threshold   float64   `gorm:"column:threshold"`
	LatencyMs   float64   `gorm:"column:latency_ms"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

// TableName overrides gorm naming.
func (PredictionLog) TableName() string {
	return "prediction_logs"
}

// Repository handles prediction log queries.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&PredictionLog{})
}

func (r *Repository) RecordPredictions(ctx context.Context, resp models.PredictionResponse) error {
	if len(resp.Predictions) == 0 {
		return nil
	}
	now := time.Now().UTC()
	logs := make([]PredictionLog, len(resp.Predictions))
	for i, p := range resp.Predictions {
		logs[i] = PredictionLog{
			ID:          uuid.New(),
			BatchID:     resp.BatchID,
			PatientID:   p.PatientID,
			ModelName:   p.ModelName,
			Probability: p.Probability,
			Label:       p.Label,
			Threshold:   p.Threshold,
			LatencyMs:   float64(resp.Latency.Microseconds()) / 1000.0,
			CreatedAt:   now,
		}
	}
	if err := r.db.WithContext(ctx).Create(&logs).Error; err != nil {
		return err
	}
	metrics.ObservePersisted("prediction_logs", len(logs))
	return nil
}

// Recent returns the most recent prediction logs up to limit.
func (r *Repository) Recent(ctx context.Context, limit int) ([]PredictionLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []PredictionLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
