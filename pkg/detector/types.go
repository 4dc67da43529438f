// Package detector implements the core anomaly detection engine: the
// per-algorithm scoring models, the ensemble vote, the alert severity
// classifier, the model lifecycle and the facade that ties them to the
// result store and alert dispatcher.
package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Algorithm identifies a detection method.
type Algorithm string

const (
	AlgorithmIsolationForest Algorithm = "isolation_forest"
	AlgorithmOneClassSVM     Algorithm = "one_class_svm"
	AlgorithmStatistical     Algorithm = "statistical"
	AlgorithmEnsemble        Algorithm = "ensemble"
)

// Algorithms lists the individual scoring methods, excluding the ensemble
// pseudo-algorithm.
func Algorithms() []Algorithm {
	return []Algorithm{AlgorithmIsolationForest, AlgorithmOneClassSVM, AlgorithmStatistical}
}

// ParseAlgorithm maps a request tag to an Algorithm. An empty tag selects
// the ensemble.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case "", AlgorithmEnsemble:
		return AlgorithmEnsemble, nil
	case AlgorithmIsolationForest:
		return AlgorithmIsolationForest, nil
	case AlgorithmOneClassSVM:
		return AlgorithmOneClassSVM, nil
	case AlgorithmStatistical:
		return AlgorithmStatistical, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
}

// AlertLevel is the discrete severity of a detection result.
type AlertLevel string

const (
	AlertLow      AlertLevel = "low"
	AlertMedium   AlertLevel = "medium"
	AlertHigh     AlertLevel = "high"
	AlertCritical AlertLevel = "critical"
)

// Rank orders alert levels: low < medium < high < critical.
func (l AlertLevel) Rank() int {
	switch l {
	case AlertMedium:
		return 1
	case AlertHigh:
		return 2
	case AlertCritical:
		return 3
	default:
		return 0
	}
}

// ScoreResult is a single model's verdict for one feature vector.
type ScoreResult struct {
	IsAnomaly bool

	// RawScore is on the algorithm's native scale: negated path-length
	// score for the isolation forest, signed boundary distance for the
	// one-class SVM, max |z| for the statistical method.
	RawScore float64

	// Confidence is |RawScore| for the trained models and is therefore
	// not bounded to [0,1]; only the statistical method guarantees that
	// range.
	Confidence float64
}

// AnomalyResult is an immutable detection outcome. It is assigned an ID
// when persisted and never mutated afterwards; corrections arrive as
// separate feedback records.
type AnomalyResult struct {
	ID           uuid.UUID  `json:"id"`
	Timestamp    time.Time  `json:"timestamp"`
	Algorithm    Algorithm  `json:"algorithm"`
	IsAnomaly    bool       `json:"is_anomaly"`
	Confidence   float64    `json:"confidence"`
	AnomalyScore float64    `json:"anomaly_score"`
	Features     []float64  `json:"features"`
	AlertLevel   AlertLevel `json:"alert_level"`
	Description  string     `json:"description"`
}

// ModelMetrics holds one training run's validation metrics for one
// algorithm, computed against a held-out split.
type ModelMetrics struct {
	ID             uuid.UUID `json:"id"`
	Algorithm      Algorithm `json:"algorithm"`
	Precision      float64   `json:"precision"`
	Recall         float64   `json:"recall"`
	F1Score        float64   `json:"f1_score"`
	Accuracy       float64   `json:"accuracy"`
	TrainingTime   float64   `json:"training_time"`
	PredictionTime float64   `json:"prediction_time"`
	LastUpdated    time.Time `json:"last_updated"`
}

// FeedbackRecord links a reviewer verdict to a stored result.
type FeedbackRecord struct {
	ID           uuid.UUID `json:"id"`
	AnomalyID    uuid.UUID `json:"anomaly_id"`
	FeedbackType string    `json:"feedback_type"`
	UserComment  string    `json:"user_comment,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Model is the contract every detection algorithm implements. Fit and Score
// must be safe for concurrent use; Score before a successful Fit returns
// ErrModelNotTrained.
type Model interface {
	Algorithm() Algorithm
	Fit(data [][]float64) error
	Score(features []float64) (ScoreResult, error)
	Trained() bool

	// Save and Load serialize trained model state for persistence
	// across restarts.
	Save() ([]byte, error)
	Load(data []byte) error
}

// Store is the append-only persistence surface the engine requires. No
// update or delete operations exist; results and metrics are retained until
// externally pruned.
type Store interface {
	SaveResult(ctx context.Context, result *AnomalyResult) error
	SaveMetrics(ctx context.Context, metrics *ModelMetrics) error
	SaveFeedback(ctx context.Context, feedback *FeedbackRecord) error
	ListResults(ctx context.Context, limit int, algorithm Algorithm) ([]*AnomalyResult, error)
	GetResult(ctx context.Context, id uuid.UUID) (*AnomalyResult, error)
	CountResults(ctx context.Context) (int64, error)
	ListMetrics(ctx context.Context) ([]*ModelMetrics, error)
}

// AlertDispatcher is the narrow interface of the external notification
// transport. The engine invokes it only for HIGH and CRITICAL results;
// failures are logged and never propagated to the Detect caller.
type AlertDispatcher interface {
	Notify(ctx context.Context, result *AnomalyResult) error
}

// TrainingStatus reports retraining state to external observers.
type TrainingStatus struct {
	IsTraining bool    `json:"is_training"`
	Progress   float64 `json:"progress"`
}
