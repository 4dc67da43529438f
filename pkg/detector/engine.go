package detector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/galafis/Anomaly-Detection-System/pkg/logger"
)

// EngineOptions tunes facade behavior beyond the model parameters.
type EngineOptions struct {
	// IncludeStatisticalInEnsemble adds the stateless z-score method to
	// the ensemble vote.
	IncludeStatisticalInEnsemble bool
}

// Engine is the detection facade. It validates incoming vectors, routes them
// to a single model or the ensemble, classifies the alert severity, persists
// the result and hands severe results to the alert dispatcher. All methods
// are safe for concurrent use.
type Engine struct {
	manager    *Manager
	store      Store
	dispatcher AlertDispatcher
	log        *logger.Logger
	tracer     trace.Tracer
	opts       EngineOptions

	wg sync.WaitGroup
}

// NewEngine wires the facade. The dispatcher may be nil to disable alert
// notifications.
func NewEngine(manager *Manager, store Store, dispatcher AlertDispatcher, log *logger.Logger, opts EngineOptions) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		manager:    manager,
		store:      store,
		dispatcher: dispatcher,
		log:        log.WithField("component", "engine"),
		tracer:     otel.Tracer("detector.engine"),
		opts:       opts,
	}
}

// Init loads or bootstraps the models. Must be called before Detect.
func (e *Engine) Init(ctx context.Context) error {
	return e.manager.Init(ctx)
}

// Detect scores one feature vector. An empty algorithm tag selects the
// ensemble. A result is returned only after it has been persisted; if the
// store write fails the detection fails, so every returned result is also
// queryable by ID.
func (e *Engine) Detect(ctx context.Context, features []float64, algorithmTag string) (*AnomalyResult, error) {
	ctx, span := e.tracer.Start(ctx, "engine.detect")
	defer span.End()

	algorithm, err := ParseAlgorithm(algorithmTag)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("detector.algorithm", string(algorithm)))

	if err := validateVector(features, e.manager.params.FeatureCount); err != nil {
		return nil, err
	}

	set := e.manager.snapshot()
	if set == nil {
		return nil, ErrModelNotTrained
	}

	result := &AnomalyResult{
		ID:        uuid.New(),
		Timestamp: time.Now().UTC(),
		Algorithm: algorithm,
		Features:  append([]float64(nil), features...),
	}

	if algorithm == AlgorithmEnsemble {
		outcome, err := scoreEnsemble(set.members(e.opts.IncludeStatisticalInEnsemble), features, e.log)
		if err != nil {
			return nil, err
		}
		result.IsAnomaly = outcome.IsAnomaly
		result.Confidence = outcome.Confidence
		result.AnomalyScore = outcome.Score
		result.Description = fmt.Sprintf("Ensemble detection: %d/%d algorithms detected anomaly",
			outcome.Votes, outcome.Members)
	} else {
		model, ok := set.get(algorithm)
		if !ok {
			return nil, ErrModelNotTrained
		}
		res, err := model.Score(features)
		if err != nil {
			return nil, err
		}
		result.IsAnomaly = res.IsAnomaly
		result.Confidence = res.Confidence
		result.AnomalyScore = res.RawScore
		if res.IsAnomaly {
			result.Description = fmt.Sprintf("%s detected anomaly with %.1f%% confidence",
				algorithm, res.Confidence*100)
		} else {
			result.Description = fmt.Sprintf("%s classified as normal", algorithm)
		}
	}

	result.AlertLevel = ClassifyAlert(result.Confidence, result.IsAnomaly)
	span.SetAttributes(
		attribute.Bool("detector.is_anomaly", result.IsAnomaly),
		attribute.String("detector.alert_level", string(result.AlertLevel)),
	)

	if err := e.store.SaveResult(ctx, result); err != nil {
		return nil, fmt.Errorf("persisting detection result: %w", err)
	}

	if result.AlertLevel.Rank() >= AlertHigh.Rank() {
		e.notify(ctx, result)
	}
	return result, nil
}

// notify hands a severe result to the dispatcher without blocking the
// detection path. Dispatch failures are logged, never propagated.
func (e *Engine) notify(ctx context.Context, result *AnomalyResult) {
	if e.dispatcher == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.dispatcher.Notify(ctx, result); err != nil {
			e.log.Warn("alert dispatch failed for %s: %v", result.ID, err)
		}
	}()
}

// trainTargets maps a request tag to a retrain target list. An empty or
// ensemble tag retrains every variant.
func trainTargets(algorithmTag string) ([]Algorithm, error) {
	algorithm, err := ParseAlgorithm(algorithmTag)
	if err != nil {
		return nil, err
	}
	if algorithm == AlgorithmEnsemble {
		return nil, nil
	}
	return []Algorithm{algorithm}, nil
}

// Train retrains synchronously. Nil data trains on a fresh synthetic
// baseline; an empty algorithm tag retrains every variant, a specific tag
// retrains only that model and carries the rest over unchanged.
func (e *Engine) Train(ctx context.Context, data [][]float64, algorithmTag string) error {
	targets, err := trainTargets(algorithmTag)
	if err != nil {
		return err
	}
	if data == nil {
		data = e.manager.syntheticBaseline()
	}
	return e.manager.Train(ctx, data, targets...)
}

// TrainAsync starts a background training run, scoped the same way as Train.
// It returns ErrTrainingInProgress immediately if one is already running.
func (e *Engine) TrainAsync(ctx context.Context, data [][]float64, algorithmTag string) error {
	targets, err := trainTargets(algorithmTag)
	if err != nil {
		return err
	}
	if data == nil {
		data = e.manager.syntheticBaseline()
	}
	ctx = context.WithoutCancel(ctx)
	e.wg.Add(1)
	err = e.manager.TrainAsync(ctx, data, func(error) { e.wg.Done() }, targets...)
	if err != nil {
		e.wg.Done()
	}
	return err
}

// TrainingStatus reports the in-flight flag and progress percentage.
func (e *Engine) TrainingStatus() TrainingStatus {
	return e.manager.Status()
}

// History returns stored results, newest first. An empty algorithm tag
// returns all algorithms.
func (e *Engine) History(ctx context.Context, limit int, algorithmTag string) ([]*AnomalyResult, error) {
	var algorithm Algorithm
	if algorithmTag != "" {
		parsed, err := ParseAlgorithm(algorithmTag)
		if err != nil {
			return nil, err
		}
		algorithm = parsed
	}
	return e.store.ListResults(ctx, limit, algorithm)
}

// Metrics returns the persisted validation metrics, newest first.
func (e *Engine) Metrics(ctx context.Context) ([]*ModelMetrics, error) {
	return e.store.ListMetrics(ctx)
}

// Feedback records a reviewer verdict against a stored result. The result
// must exist; feedback never mutates it.
func (e *Engine) Feedback(ctx context.Context, anomalyID uuid.UUID, feedbackType, comment string) (*FeedbackRecord, error) {
	if feedbackType == "" {
		return nil, fmt.Errorf("feedback type is required")
	}
	if _, err := e.store.GetResult(ctx, anomalyID); err != nil {
		return nil, fmt.Errorf("looking up result %s: %w", anomalyID, err)
	}
	record := &FeedbackRecord{
		ID:           uuid.New(),
		AnomalyID:    anomalyID,
		FeedbackType: feedbackType,
		UserComment:  comment,
		CreatedAt:    time.Now().UTC(),
	}
	if err := e.store.SaveFeedback(ctx, record); err != nil {
		return nil, fmt.Errorf("persisting feedback: %w", err)
	}
	return record, nil
}

// ServiceStatus is a point-in-time health summary.
type ServiceStatus struct {
	ModelsTrained   bool           `json:"models_trained"`
	Algorithms      []Algorithm    `json:"algorithms"`
	TotalDetections int64          `json:"total_detections"`
	Training        TrainingStatus `json:"training"`
}

// Status summarizes engine health for the status endpoint.
func (e *Engine) Status(ctx context.Context) (*ServiceStatus, error) {
	status := &ServiceStatus{Training: e.manager.Status()}
	if set := e.manager.snapshot(); set != nil {
		status.Algorithms = set.algorithms()
		status.ModelsTrained = len(status.Algorithms) > 0
	}
	count, err := e.store.CountResults(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting results: %w", err)
	}
	status.TotalDetections = count
	return status, nil
}

// Shutdown waits for in-flight background work (alert dispatches, async
// training) to finish, or for the context to expire.
func (e *Engine) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
