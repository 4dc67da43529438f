package detector

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/galafis/Anomaly-Detection-System/pkg/logger"
)

// Params carries the tunables for model construction and training.
type Params struct {
	// FeatureCount is the fixed dimensionality D of every feature vector.
	FeatureCount int

	// RandomSeed seeds training, the validation split and the synthetic
	// bootstrap, so repeated runs over the same data produce the same
	// models.
	RandomSeed int64

	// Isolation forest parameters.
	Trees         int
	SampleSize    int
	Contamination float64

	// One-class SVM parameters. Gamma 0 selects the auto scale.
	Nu    float64
	Gamma float64

	// ModelsDir is where trained model artifacts are persisted.
	ModelsDir string

	// BootstrapSamples is the size of the synthetic training set generated
	// when no persisted models can be loaded at startup.
	BootstrapSamples int
}

// DefaultParams mirrors the service defaults.
func DefaultParams() Params {
	return Params{
		FeatureCount:     1000,
		RandomSeed:       42,
		Trees:            100,
		SampleSize:       256,
		Contamination:    0.1,
		Nu:               0.1,
		ModelsDir:        "models",
		BootstrapSamples: 1000,
	}
}

// Manager owns the model lifecycle: loading persisted artifacts at startup,
// bootstrapping from synthetic data when none exist, retraining on demand and
// swapping the active model set atomically. At most one training run is in
// flight at a time; a second request is rejected with ErrTrainingInProgress.
type Manager struct {
	params    Params
	log       *logger.Logger
	store     Store
	artifacts *artifactStore

	active   atomic.Pointer[modelSet]
	training atomic.Bool
	progress atomic.Pointer[progressTracker]

	// newModel builds a fresh untrained model for an algorithm. Replaced
	// in tests to inject controllable stand-ins.
	newModel func(Algorithm) Model

	// validationOffset displaces held-out vectors to synthesize labeled
	// anomalies for the validation metrics.
	validationOffset float64
}

// NewManager creates a lifecycle manager. The store may be nil, in which case
// validation metrics are computed but not persisted.
func NewManager(params Params, store Store, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	m := &Manager{
		params:           params,
		log:              log.WithField("component", "lifecycle"),
		store:            store,
		artifacts:        newArtifactStore(params.ModelsDir),
		validationOffset: 6.0,
	}
	m.newModel = m.buildModel
	return m
}

func (m *Manager) buildModel(algorithm Algorithm) Model {
	switch algorithm {
	case AlgorithmIsolationForest:
		return NewIsolationForest(
			WithTrees(m.params.Trees),
			WithSampleSize(m.params.SampleSize),
			WithContamination(m.params.Contamination),
			WithSeed(m.params.RandomSeed),
		)
	case AlgorithmOneClassSVM:
		opts := []OneClassSVMOption{WithNu(m.params.Nu), WithSVMSeed(m.params.RandomSeed)}
		if m.params.Gamma > 0 {
			opts = append(opts, WithGamma(m.params.Gamma))
		}
		return NewOneClassSVM(opts...)
	case AlgorithmStatistical:
		return NewStatisticalZScore()
	default:
		return nil
	}
}

// Init restores persisted models, falling back to a synthetic bootstrap when
// any trained model is missing or corrupt. It must be called once before the
// first detection.
func (m *Manager) Init(ctx context.Context) error {
	loaded := make([]Model, 0, len(Algorithms()))
	needTraining := false

	for _, alg := range Algorithms() {
		model := m.newModel(alg)
		if alg == AlgorithmStatistical {
			// Stateless; nothing to restore.
			loaded = append(loaded, model)
			continue
		}
		outcome, err := m.artifacts.load(model)
		switch outcome {
		case LoadOutcomeLoaded:
			m.log.Info("restored persisted %s model", alg)
			loaded = append(loaded, model)
		case LoadOutcomeNotFound:
			m.log.Info("no persisted %s model found", alg)
			needTraining = true
		case LoadOutcomeCorrupt:
			m.log.Warn("persisted %s model is corrupt, will retrain: %v", alg, err)
			needTraining = true
		}
	}

	if !needTraining {
		m.active.Store(newModelSet(loaded...))
		return nil
	}

	m.log.Info("bootstrapping models from synthetic baseline (%d samples x %d features)",
		m.params.BootstrapSamples, m.params.FeatureCount)
	data := m.syntheticBaseline()
	if err := m.Train(ctx, data); err != nil {
		return fmt.Errorf("bootstrap training failed: %w", err)
	}
	return nil
}

// syntheticBaseline generates a seeded standard-normal training set.
func (m *Manager) syntheticBaseline() [][]float64 {
	rng := rand.New(rand.NewSource(m.params.RandomSeed))
	data := make([][]float64, m.params.BootstrapSamples)
	for i := range data {
		row := make([]float64, m.params.FeatureCount)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
		data[i] = row
	}
	return data
}

// resolveTargets expands a retrain target list. No targets means every
// scoring algorithm; explicit targets must name individual algorithms and are
// returned deduplicated in the canonical order.
func resolveTargets(targets []Algorithm) ([]Algorithm, error) {
	if len(targets) == 0 {
		return Algorithms(), nil
	}
	wanted := make(map[Algorithm]bool, len(targets))
	for _, target := range targets {
		switch target {
		case AlgorithmIsolationForest, AlgorithmOneClassSVM, AlgorithmStatistical:
			wanted[target] = true
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, target)
		}
	}
	out := make([]Algorithm, 0, len(wanted))
	for _, alg := range Algorithms() {
		if wanted[alg] {
			out = append(out, alg)
		}
	}
	return out, nil
}

// Train retrains the targeted models on the given data, computes validation
// metrics against a held-out split, persists the artifacts and swaps the
// active set. No targets retrains every variant; models outside the target
// list carry over into the new set untouched. A concurrent call returns
// ErrTrainingInProgress. Detection stays available on the previous set for
// the whole run.
func (m *Manager) Train(ctx context.Context, data [][]float64, targets ...Algorithm) error {
	if !m.training.CompareAndSwap(false, true) {
		return ErrTrainingInProgress
	}
	defer m.training.Store(false)
	return m.train(ctx, data, targets)
}

// TrainAsync starts a training run in the background. The in-flight check and
// input validation are synchronous, so a caller holding a stale view cannot
// start a second run and a bad request fails before a goroutine spawns; the
// run itself is handed to a goroutine and its result delivered to done, which
// may be nil.
func (m *Manager) TrainAsync(ctx context.Context, data [][]float64, done func(error), targets ...Algorithm) error {
	if !m.training.CompareAndSwap(false, true) {
		return ErrTrainingInProgress
	}
	if _, err := resolveTargets(targets); err != nil {
		m.training.Store(false)
		return err
	}
	if err := validateMatrix(data, m.params.FeatureCount); err != nil {
		m.training.Store(false)
		return err
	}
	go func() {
		err := func() error {
			defer m.training.Store(false)
			return m.train(ctx, data, targets)
		}()
		if err != nil {
			m.log.Error("background training run failed: %v", err)
		}
		if done != nil {
			done(err)
		}
	}()
	return nil
}

func (m *Manager) train(ctx context.Context, data [][]float64, targets []Algorithm) error {
	resolved, err := resolveTargets(targets)
	if err != nil {
		return err
	}
	if err := validateMatrix(data, m.params.FeatureCount); err != nil {
		return err
	}

	// Progress spans only the targeted algorithms.
	tracker := newProgressTracker(len(resolved))
	m.progress.Store(tracker)

	rng := rand.New(rand.NewSource(m.params.RandomSeed))
	train, holdout := splitTrainHoldout(data, rng)

	prior := m.active.Load()
	selected := make(map[Algorithm]bool, len(resolved))
	next := make([]Model, 0, len(Algorithms()))
	var firstErr error

	for _, alg := range resolved {
		selected[alg] = true
		model, err := m.trainOne(ctx, alg, train, holdout)
		if err != nil {
			m.log.Error("training %s failed: %v", alg, err)
			if firstErr == nil {
				firstErr = &TrainingError{Algorithm: alg, Err: err}
			}
			// Keep the previously trained model, if any.
			if prior != nil {
				if old, ok := prior.get(alg); ok {
					next = append(next, old)
				}
			}
		} else {
			next = append(next, model)
		}
		tracker.step()
	}

	// Models outside the target list survive the swap unchanged.
	if prior != nil {
		for _, alg := range Algorithms() {
			if selected[alg] {
				continue
			}
			if old, ok := prior.get(alg); ok {
				next = append(next, old)
			}
		}
	}

	m.active.Store(newModelSet(next...))
	if firstErr != nil {
		return firstErr
	}
	return nil
}

func (m *Manager) trainOne(ctx context.Context, algorithm Algorithm, train, holdout [][]float64) (Model, error) {
	model := m.newModel(algorithm)
	if model == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}

	start := time.Now()
	if err := model.Fit(train); err != nil {
		return nil, err
	}
	trainingTime := time.Since(start).Seconds()

	metrics, err := m.evaluate(model, holdout)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	metrics.TrainingTime = trainingTime

	m.log.Info("%s trained in %.2fs (precision=%.3f recall=%.3f f1=%.3f)",
		algorithm, trainingTime, metrics.Precision, metrics.Recall, metrics.F1Score)

	if m.store != nil {
		if err := m.store.SaveMetrics(ctx, &metrics); err != nil {
			m.log.Warn("failed to persist %s training metrics: %v", algorithm, err)
		}
	}

	if algorithm != AlgorithmStatistical {
		if err := m.artifacts.save(model); err != nil {
			m.log.Warn("failed to persist %s model artifact: %v", algorithm, err)
		}
	}
	return model, nil
}

// evaluate scores the held-out normal vectors and a synthetic anomaly batch
// derived from them, and computes confusion-matrix metrics. The anomaly batch
// is each held-out vector displaced far outside the training distribution.
func (m *Manager) evaluate(model Model, holdout [][]float64) (ModelMetrics, error) {
	metrics := ModelMetrics{
		Algorithm:   model.Algorithm(),
		LastUpdated: time.Now(),
	}

	var tp, fp, tn, fn int
	start := time.Now()

	for _, row := range holdout {
		res, err := model.Score(row)
		if err != nil {
			return metrics, err
		}
		if res.IsAnomaly {
			fp++
		} else {
			tn++
		}
	}

	anomaly := make([]float64, m.params.FeatureCount)
	for _, row := range holdout {
		for j, v := range row {
			anomaly[j] = v + m.validationOffset
		}
		res, err := model.Score(anomaly)
		if err != nil {
			return metrics, err
		}
		if res.IsAnomaly {
			tp++
		} else {
			fn++
		}
	}

	scored := 2 * len(holdout)
	if scored > 0 {
		metrics.PredictionTime = time.Since(start).Seconds() / float64(scored)
		metrics.Accuracy = float64(tp+tn) / float64(scored)
	}
	if tp+fp > 0 {
		metrics.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		metrics.Recall = float64(tp) / float64(tp+fn)
	}
	if metrics.Precision+metrics.Recall > 0 {
		metrics.F1Score = 2 * metrics.Precision * metrics.Recall /
			(metrics.Precision + metrics.Recall)
	}
	return metrics, nil
}

// splitTrainHoldout shuffles the data and splits off 20% for validation.
// At least one row stays on each side when there are two or more rows.
func splitTrainHoldout(data [][]float64, rng *rand.Rand) (train, holdout [][]float64) {
	shuffled := make([][]float64, len(data))
	copy(shuffled, data)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	cut := len(shuffled) * 4 / 5
	if cut < 1 {
		cut = 1
	}
	if cut >= len(shuffled) && len(shuffled) > 1 {
		cut = len(shuffled) - 1
	}
	return shuffled[:cut], shuffled[cut:]
}

// Status reports whether a training run is in flight and its progress. The
// progress of the last completed run is retained until the next one starts.
func (m *Manager) Status() TrainingStatus {
	status := TrainingStatus{IsTraining: m.training.Load()}
	if tracker := m.progress.Load(); tracker != nil {
		status.Progress = tracker.value()
	}
	return status
}

// snapshot returns the active model set, or nil before Init.
func (m *Manager) snapshot() *modelSet {
	return m.active.Load()
}
