package detector

import "math"

// validateVector rejects inputs before any scoring work: the vector must
// have exactly dim elements and every element must be finite.
func validateVector(features []float64, dim int) error {
	if len(features) != dim {
		return &DimensionError{Want: dim, Got: len(features)}
	}
	for i, v := range features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ValueError{Index: i, Value: v}
		}
	}
	return nil
}

// validateMatrix checks a training matrix: at least one row, every row of
// width dim with finite values.
func validateMatrix(data [][]float64, dim int) error {
	if len(data) == 0 {
		return &DimensionError{Want: dim, Got: 0}
	}
	for _, row := range data {
		if err := validateVector(row, dim); err != nil {
			return err
		}
	}
	return nil
}
