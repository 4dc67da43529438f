package detector

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math"
	"math/rand"
	"sync"
)

// OneClassSVM learns a decision boundary around the training distribution
// with a Gaussian kernel over a subsample of support vectors. Inputs are
// standardized through a per-feature scaler fitted on the training matrix;
// the offset rho is calibrated so roughly the nu fraction of training
// points fall outside the boundary.
type OneClassSVM struct {
	mu sync.RWMutex

	nu         float64
	gamma      float64 // 0 means auto-scale from training variance
	sampleSize int
	seed       int64

	scaler   *standardScaler
	supports [][]float64
	rho      float64
	gammaFit float64
	trained  bool
}

// OneClassSVMOption configures a OneClassSVM.
type OneClassSVMOption func(*OneClassSVM)

// WithNu sets the expected fraction of training outliers.
func WithNu(nu float64) OneClassSVMOption {
	return func(m *OneClassSVM) {
		m.nu = nu
	}
}

// WithGamma fixes the kernel coefficient instead of auto-scaling it.
func WithGamma(gamma float64) OneClassSVMOption {
	return func(m *OneClassSVM) {
		m.gamma = gamma
	}
}

// WithSupportSampleSize bounds the support vector subsample.
func WithSupportSampleSize(n int) OneClassSVMOption {
	return func(m *OneClassSVM) {
		m.sampleSize = n
	}
}

// WithSVMSeed seeds the support subsample selection.
func WithSVMSeed(seed int64) OneClassSVMOption {
	return func(m *OneClassSVM) {
		m.seed = seed
	}
}

// NewOneClassSVM creates a OneClassSVM with the given options.
func NewOneClassSVM(opts ...OneClassSVMOption) *OneClassSVM {
	m := &OneClassSVM{
		nu:         0.1,
		sampleSize: 256,
		seed:       42,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Algorithm returns the one-class SVM tag.
func (m *OneClassSVM) Algorithm() Algorithm {
	return AlgorithmOneClassSVM
}

// Trained reports whether Fit has completed.
func (m *OneClassSVM) Trained() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trained
}

// Fit standardizes the training matrix, selects the support subsample and
// calibrates the decision offset from the nu quantile of the training
// points' own decision values.
func (m *OneClassSVM) Fit(data [][]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(data) == 0 {
		return errors.New("empty training data")
	}

	scaler := fitScaler(data)
	scaled := scaler.transformAll(data)
	nFeatures := len(scaled[0])

	gamma := m.gamma
	if gamma == 0 {
		// Auto-scaled coefficient: 1 / (n_features * variance), with
		// unit variance after standardization.
		gamma = 1.0 / float64(nFeatures)
	}

	sampleSize := m.sampleSize
	if sampleSize > len(scaled) {
		sampleSize = len(scaled)
	}
	rng := rand.New(rand.NewSource(m.seed))
	indices := rng.Perm(len(scaled))[:sampleSize]
	supports := make([][]float64, sampleSize)
	for i, idx := range indices {
		supports[i] = scaled[idx]
	}

	// Decision values of the training data against the fitted kernel;
	// the nu quantile becomes the boundary offset.
	values := make([]float64, len(scaled))
	for i, row := range scaled {
		values[i] = kernelDensity(row, supports, gamma)
	}
	rho := percentile(values, m.nu*100)

	m.scaler = scaler
	m.supports = supports
	m.gammaFit = gamma
	m.rho = rho
	m.trained = true

	return nil
}

// Score transforms the input through the training scaler and evaluates the
// kernel decision function. RawScore is the signed distance from the
// boundary; negative means outside (anomalous).
func (m *OneClassSVM) Score(features []float64) (ScoreResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.trained {
		return ScoreResult{}, ErrModelNotTrained
	}

	scaled := m.scaler.transform(features)
	raw := kernelDensity(scaled, m.supports, m.gammaFit) - m.rho

	return ScoreResult{
		IsAnomaly:  raw < 0,
		RawScore:   raw,
		Confidence: math.Abs(raw),
	}, nil
}

// kernelDensity is the mean Gaussian kernel response of x against the
// support vectors.
func kernelDensity(x []float64, supports [][]float64, gamma float64) float64 {
	var sum float64
	for _, s := range supports {
		sum += math.Exp(-gamma * squaredDistance(x, s))
	}
	return sum / float64(len(supports))
}

// oneClassSVMState is the gob envelope for Save and Load.
type oneClassSVMState struct {
	Nu         float64
	Gamma      float64
	GammaFit   float64
	SampleSize int
	Seed       int64
	Rho        float64
	Scaler     *standardScaler
	Supports   [][]float64
}

// Save serializes the trained model, including the feature scaler.
func (m *OneClassSVM) Save() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.trained {
		return nil, ErrModelNotTrained
	}

	var buf bytes.Buffer
	state := oneClassSVMState{
		Nu:         m.nu,
		Gamma:      m.gamma,
		GammaFit:   m.gammaFit,
		SampleSize: m.sampleSize,
		Seed:       m.seed,
		Rho:        m.rho,
		Scaler:     m.scaler,
		Supports:   m.supports,
	}
	if err := gob.NewEncoder(&buf).Encode(&state); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Load deserializes a trained model.
func (m *OneClassSVM) Load(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var state oneClassSVMState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return err
	}
	if state.Scaler == nil || len(state.Supports) == 0 {
		return errors.New("invalid one-class svm state")
	}

	m.nu = state.Nu
	m.gamma = state.Gamma
	m.gammaFit = state.GammaFit
	m.sampleSize = state.SampleSize
	m.seed = state.Seed
	m.rho = state.Rho
	m.scaler = state.Scaler
	m.supports = state.Supports
	m.trained = true

	return nil
}
