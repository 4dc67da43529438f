package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/galafis/Anomaly-Detection-System/internal/database/models"
	"github.com/galafis/Anomaly-Detection-System/pkg/detector"
)

// ErrNotFound is returned when a lookup by ID matches no record.
var ErrNotFound = errors.New("record not found")

// Store is the GORM-backed implementation of the engine's append-only
// persistence surface.
type Store struct {
	db *gorm.DB
}

// NewStore creates a store on an open connection.
func NewStore(conn *Connection) *Store {
	return &Store{db: conn.DB()}
}

var _ detector.Store = (*Store)(nil)

// SaveResult appends a detection result. The feature vector is serialized as
// JSON at full float64 precision.
func (s *Store) SaveResult(ctx context.Context, result *detector.AnomalyResult) error {
	features, err := json.Marshal(result.Features)
	if err != nil {
		return fmt.Errorf("encoding feature vector: %w", err)
	}
	record := &models.Anomaly{
		ID:           result.ID,
		Timestamp:    result.Timestamp,
		Algorithm:    string(result.Algorithm),
		IsAnomaly:    result.IsAnomaly,
		Confidence:   result.Confidence,
		AnomalyScore: result.AnomalyScore,
		FeaturesJSON: string(features),
		AlertLevel:   string(result.AlertLevel),
		Description:  result.Description,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("inserting anomaly record: %w", err)
	}
	result.ID = record.ID
	return nil
}

// SaveMetrics appends one training run's validation metrics.
func (s *Store) SaveMetrics(ctx context.Context, metrics *detector.ModelMetrics) error {
	record := &models.ModelMetric{
		ID:             metrics.ID,
		Algorithm:      string(metrics.Algorithm),
		Precision:      metrics.Precision,
		Recall:         metrics.Recall,
		F1Score:        metrics.F1Score,
		Accuracy:       metrics.Accuracy,
		TrainingTime:   metrics.TrainingTime,
		PredictionTime: metrics.PredictionTime,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("inserting metrics record: %w", err)
	}
	metrics.ID = record.ID
	return nil
}

// SaveFeedback appends a reviewer verdict.
func (s *Store) SaveFeedback(ctx context.Context, feedback *detector.FeedbackRecord) error {
	record := &models.Feedback{
		ID:           feedback.ID,
		AnomalyID:    feedback.AnomalyID,
		FeedbackType: feedback.FeedbackType,
		UserComment:  feedback.UserComment,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("inserting feedback record: %w", err)
	}
	feedback.ID = record.ID
	feedback.CreatedAt = record.CreatedAt
	return nil
}

// ListResults returns stored results newest first, optionally filtered by
// algorithm. A non-positive limit falls back to 100.
func (s *Store) ListResults(ctx context.Context, limit int, algorithm detector.Algorithm) ([]*detector.AnomalyResult, error) {
	if limit <= 0 {
		limit = 100
	}
	query := s.db.WithContext(ctx).
		Model(&models.Anomaly{}).
		Order("timestamp DESC").
		Limit(limit)
	if algorithm != "" {
		query = query.Where("algorithm = ?", string(algorithm))
	}

	var records []models.Anomaly
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("listing anomaly records: %w", err)
	}

	results := make([]*detector.AnomalyResult, 0, len(records))
	for i := range records {
		result, err := toResult(&records[i])
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// GetResult looks up one result by ID.
func (s *Store) GetResult(ctx context.Context, id uuid.UUID) (*detector.AnomalyResult, error) {
	var record models.Anomaly
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: anomaly %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("loading anomaly record: %w", err)
	}
	return toResult(&record)
}

// CountResults returns the total number of stored results.
func (s *Store) CountResults(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Anomaly{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting anomaly records: %w", err)
	}
	return count, nil
}

// ListMetrics returns stored metrics newest first.
func (s *Store) ListMetrics(ctx context.Context) ([]*detector.ModelMetrics, error) {
	var records []models.ModelMetric
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("listing metrics records: %w", err)
	}

	metrics := make([]*detector.ModelMetrics, 0, len(records))
	for i := range records {
		r := &records[i]
		metrics = append(metrics, &detector.ModelMetrics{
			ID:             r.ID,
			Algorithm:      detector.Algorithm(r.Algorithm),
			Precision:      r.Precision,
			Recall:         r.Recall,
			F1Score:        r.F1Score,
			Accuracy:       r.Accuracy,
			TrainingTime:   r.TrainingTime,
			PredictionTime: r.PredictionTime,
			LastUpdated:    r.CreatedAt,
		})
	}
	return metrics, nil
}

func toResult(record *models.Anomaly) (*detector.AnomalyResult, error) {
	var features []float64
	if err := json.Unmarshal([]byte(record.FeaturesJSON), &features); err != nil {
		return nil, fmt.Errorf("decoding feature vector for %s: %w", record.ID, err)
	}
	return &detector.AnomalyResult{
		ID:           record.ID,
		Timestamp:    record.Timestamp,
		Algorithm:    detector.Algorithm(record.Algorithm),
		IsAnomaly:    record.IsAnomaly,
		Confidence:   record.Confidence,
		AnomalyScore: record.AnomalyScore,
		Features:     features,
		AlertLevel:   detector.AlertLevel(record.AlertLevel),
		Description:  record.Description,
	}, nil
}
