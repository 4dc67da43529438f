package api

import "github.com/galafis/Anomaly-Detection-System/pkg/detector"

// DetectRequest is the body of POST /api/detect.
type DetectRequest struct {
	// Features is the fixed-length feature vector to score.
	Features []float64 `json:"features" binding:"required"`

	// Algorithm selects a single method; empty selects the ensemble.
	Algorithm string `json:"algorithm"`
}

// BatchDetectRequest is the body of POST /api/batch-detect.
type BatchDetectRequest struct {
	// Data holds one feature vector per row, scored in order.
	Data [][]float64 `json:"data" binding:"required"`

	// Algorithm selects a single method for every row; empty selects the
	// ensemble.
	Algorithm string `json:"algorithm"`
}

// BatchDetectResponse carries the per-row results plus totals.
type BatchDetectResponse struct {
	Results        []*detector.AnomalyResult `json:"results"`
	TotalProcessed int                       `json:"total_processed"`
	AnomaliesFound int                       `json:"anomalies_found"`
}

// TrainRequest is the body of POST /api/train. Both fields are optional:
// when Data is omitted the engine trains on a fresh synthetic baseline, and
// when Algorithm is omitted every model retrains.
type TrainRequest struct {
	Data      [][]float64 `json:"data"`
	Algorithm string      `json:"algorithm"`
}

// FeedbackRequest is the body of POST /api/feedback.
type FeedbackRequest struct {
	AnomalyID    string `json:"anomaly_id" binding:"required"`
	FeedbackType string `json:"feedback_type" binding:"required"`
	UserComment  string `json:"user_comment"`
}

// errorResponse is the uniform error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

// messageResponse acknowledges accepted work.
type messageResponse struct {
	Message string `json:"message"`
}
