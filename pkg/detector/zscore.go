package detector

import "math"

// zScoreThreshold is the number of standard deviations beyond which a
// feature is considered anomalous.
const zScoreThreshold = 3.0

// StatisticalZScore flags vectors whose maximum per-dimension z-score
// exceeds the threshold. It is stateless: the mean and population standard
// deviation are computed from the scored vector itself, so two calls on the
// same input always agree.
type StatisticalZScore struct{}

// NewStatisticalZScore creates the stateless z-score detector.
func NewStatisticalZScore() *StatisticalZScore {
	return &StatisticalZScore{}
}

// Algorithm returns the statistical method tag.
func (z *StatisticalZScore) Algorithm() Algorithm {
	return AlgorithmStatistical
}

// Trained always reports true: there is no trained state.
func (z *StatisticalZScore) Trained() bool {
	return true
}

// Fit is a no-op: the method has no parameters to learn.
func (z *StatisticalZScore) Fit(data [][]float64) error {
	return nil
}

// Score computes the vector's own mean and population standard deviation,
// then the maximum absolute z-score across dimensions. A constant vector
// has zero deviation everywhere and scores as normal.
func (z *StatisticalZScore) Score(features []float64) (ScoreResult, error) {
	mean, std := meanStd(features)

	if std == 0 {
		return ScoreResult{IsAnomaly: false, RawScore: 0, Confidence: 0}, nil
	}

	var maxZ float64
	for _, v := range features {
		if zv := math.Abs((v - mean) / std); zv > maxZ {
			maxZ = zv
		}
	}

	return ScoreResult{
		IsAnomaly:  maxZ > zScoreThreshold,
		RawScore:   maxZ,
		Confidence: math.Min(maxZ/zScoreThreshold, 1.0),
	}, nil
}

// Save returns an empty payload: there is no state to persist.
func (z *StatisticalZScore) Save() ([]byte, error) {
	return []byte{}, nil
}

// Load is a no-op counterpart of Save.
func (z *StatisticalZScore) Load(data []byte) error {
	return nil
}
