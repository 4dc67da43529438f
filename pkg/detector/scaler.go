package detector

import "math"

// standardScaler standardizes features to zero mean and unit variance,
// fitted per feature on the training matrix. A zero-variance feature maps
// to 0 rather than dividing by zero.
type standardScaler struct {
	Means []float64
	Stds  []float64
}

// fitScaler computes per-feature mean and population standard deviation.
func fitScaler(data [][]float64) *standardScaler {
	nFeatures := len(data[0])
	n := float64(len(data))

	means := make([]float64, nFeatures)
	for _, row := range data {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= n
	}

	stds := make([]float64, nFeatures)
	for _, row := range data {
		for j, v := range row {
			d := v - means[j]
			stds[j] += d * d
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / n)
	}

	return &standardScaler{Means: means, Stds: stds}
}

// transform standardizes one vector into a new slice.
func (s *standardScaler) transform(features []float64) []float64 {
	out := make([]float64, len(features))
	for j, v := range features {
		if s.Stds[j] == 0 {
			out[j] = 0
			continue
		}
		out[j] = (v - s.Means[j]) / s.Stds[j]
	}
	return out
}

// transformAll standardizes every row of a matrix.
func (s *standardScaler) transformAll(data [][]float64) [][]float64 {
	out := make([][]float64, len(data))
	for i, row := range data {
		out[i] = s.transform(row)
	}
	return out
}
