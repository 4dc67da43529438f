package detector

import (
	"errors"
	"fmt"
)

// Sentinel errors for the detection engine. Validation and lookup errors
// surface synchronously with no side effects; per-member ensemble failures
// are logged and skipped.
var (
	// ErrModelNotTrained is returned when a model is scored before Fit.
	ErrModelNotTrained = errors.New("model not trained")

	// ErrUnknownAlgorithm is returned for an unregistered algorithm tag.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")

	// ErrNoAlgorithmAvailable is returned when every ensemble member
	// failed to produce a score.
	ErrNoAlgorithmAvailable = errors.New("no algorithm available for detection")

	// ErrTrainingInProgress is returned when a retrain request arrives
	// while another run is active.
	ErrTrainingInProgress = errors.New("training already in progress")
)

// DimensionError reports a feature vector or training matrix whose width
// does not match the configured feature count.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("expected %d features, got %d", e.Want, e.Got)
}

// ValueError reports a non-finite feature value.
type ValueError struct {
	Index int
	Value float64
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("feature %d is not finite (%v)", e.Index, e.Value)
}

// TrainingError reports a failed retrain target. Other targets in the same
// run are unaffected.
type TrainingError struct {
	Algorithm Algorithm
	Err       error
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("training %s failed: %v", e.Algorithm, e.Err)
}

func (e *TrainingError) Unwrap() error {
	return e.Err
}
