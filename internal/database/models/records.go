// Package models defines the GORM records persisted by the detection
// engine. All three tables are append-only: corrections arrive as new
// feedback rows, never as updates.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Anomaly is a persisted detection result. The feature vector is stored as
// JSON so the full-precision input can be reproduced for audit.
type Anomaly struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Timestamp    time.Time `gorm:"index;not null"`
	Algorithm    string    `gorm:"index;size:64;not null"`
	IsAnomaly    bool      `gorm:"not null"`
	Confidence   float64   `gorm:"not null"`
	AnomalyScore float64   `gorm:"not null"`
	FeaturesJSON string    `gorm:"type:text;not null"`
	AlertLevel   string    `gorm:"size:16;not null"`
	Description  string    `gorm:"type:text"`
	CreatedAt    time.Time
}

// BeforeCreate assigns an identifier when the caller did not.
func (a *Anomaly) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ModelMetric is one training run's validation metrics for one algorithm.
type ModelMetric struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Algorithm      string    `gorm:"index;size:64;not null"`
	Precision      float64   `gorm:"not null"`
	Recall         float64   `gorm:"not null"`
	F1Score        float64   `gorm:"not null"`
	Accuracy       float64   `gorm:"not null"`
	TrainingTime   float64   `gorm:"not null"`
	PredictionTime float64   `gorm:"not null"`
	CreatedAt      time.Time
}

// BeforeCreate assigns an identifier when the caller did not.
func (m *ModelMetric) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Feedback links a reviewer verdict to a stored anomaly. Referential
// integrity is expected but not enforced across restarts, so no foreign key
// constraint is declared.
type Feedback struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	AnomalyID    uuid.UUID `gorm:"type:uuid;index;not null"`
	FeedbackType string    `gorm:"size:64;not null"`
	UserComment  string    `gorm:"type:text"`
	CreatedAt    time.Time
}

// BeforeCreate assigns an identifier when the caller did not.
func (f *Feedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
