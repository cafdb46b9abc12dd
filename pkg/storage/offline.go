package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/synaptica-ai/icu-features/pkg/common/models"
	"github.com/synaptica-ai/icu-features/pkg/observability/metrics"
)

// FeatureRowModel is one assembled feature row of a batch.
type FeatureRowModel struct {
	ID        uuid.UUID         `gorm:"primaryKey;column:id"`
	BatchID   string            `gorm:"column:batch_id;index"`
	PatientID string            `gorm:"column:patient_id;index"`
	Features  datatypes.JSONMap `gorm:"column:features"`
	CreatedAt time.Time         `gorm:"column:created_at"`
}

func (FeatureRowModel) TableName() string {
	return "feature_rows"
}

// OfflineStore keeps every feature matrix ever produced, for audit and retraining.
type OfflineStore struct {
	db *gorm.DB
}

func NewOfflineStore(db *gorm.DB) *OfflineStore {
	return &OfflineStore{db: db}
}

func (s *OfflineStore) AutoMigrate() error {
	return s.db.AutoMigrate(&FeatureRowModel{})
}

func (s *OfflineStore) SaveFeatures(ctx context.Context, matrix models.FeatureMatrix) error {
	if len(matrix.Rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]FeatureRowModel, len(matrix.Rows))
	for i, r := range matrix.Rows {
		rows[i] = FeatureRowModel{
			ID:        uuid.New(),
			BatchID:   matrix.BatchID,
			PatientID: r.PatientID,
			Features:  toJSONMap(r.Features),
			CreatedAt: now,
		}
	}
	if err := s.db.WithContext(ctx).CreateInBatches(rows, 200).Error; err != nil {
		return err
	}
	metrics.ObservePersisted("offline_features", len(rows))
	return nil
}

// History returns the stored rows of a patient, newest first.
func (s *OfflineStore) History(ctx context.Context, patientID string, limit int) ([]models.FeatureRow, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []FeatureRowModel
	err := s.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.FeatureRow, len(rows))
	for i, r := range rows {
		out[i] = models.FeatureRow{PatientID: r.PatientID, Features: fromJSONMap(r.Features)}
	}
	return out, nil
}

func toJSONMap(features map[string]*float64) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(features))
	for k, v := range features {
		if v == nil {
			out[k] = nil
			continue
		}
		out[k] = *v
	}
	return out
}

func fromJSONMap(m datatypes.JSONMap) map[string]*float64 {
	out := make(map[string]*float64, len(m))
	for k, v := range m {
		switch n := v.(type) {
		case float64:
			out[k] = &n
		case json.Number:
			if f, err := n.Float64(); err == nil {
				out[k] = &f
				continue
			}
			out[k] = nil
		default:
			out[k] = nil
		}
	}
	return out
}
