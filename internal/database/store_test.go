package database

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galafis/Anomaly-Detection-System/pkg/detector"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "test.db")
	cfg.LogLevel = "silent"

	conn, err := NewConnection(&cfg)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewStore(conn)
}

func sampleResult(algorithm detector.Algorithm, ts time.Time) *detector.AnomalyResult {
	return &detector.AnomalyResult{
		ID:           uuid.New(),
		Timestamp:    ts,
		Algorithm:    algorithm,
		IsAnomaly:    true,
		Confidence:   0.91,
		AnomalyScore: -0.42,
		Features:     []float64{math.Pi, -math.E, 1e-17, 0.1},
		AlertLevel:   detector.AlertCritical,
		Description:  "isolation_forest detected anomaly with 91.0% confidence",
	}
}

func TestStoreResultRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := sampleResult(detector.AlgorithmIsolationForest, time.Now().UTC())
	require.NoError(t, store.SaveResult(ctx, want))

	got, err := store.GetResult(ctx, want.ID)
	require.NoError(t, err)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Algorithm, got.Algorithm)
	assert.Equal(t, want.IsAnomaly, got.IsAnomaly)
	assert.Equal(t, want.Confidence, got.Confidence)
	assert.Equal(t, want.AnomalyScore, got.AnomalyScore)
	assert.Equal(t, want.Features, got.Features, "feature values survive at full precision")
	assert.Equal(t, want.AlertLevel, got.AlertLevel)
	assert.Equal(t, want.Description, got.Description)
}

func TestStoreGetResultNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetResult(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreListResults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	older := sampleResult(detector.AlgorithmIsolationForest, base.Add(-2*time.Minute))
	mid := sampleResult(detector.AlgorithmOneClassSVM, base.Add(-time.Minute))
	newest := sampleResult(detector.AlgorithmEnsemble, base)
	for _, r := range []*detector.AnomalyResult{older, mid, newest} {
		require.NoError(t, store.SaveResult(ctx, r))
	}

	t.Run("newest first", func(t *testing.T) {
		results, err := store.ListResults(ctx, 10, "")
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, newest.ID, results[0].ID)
		assert.Equal(t, older.ID, results[2].ID)
	})

	t.Run("algorithm filter", func(t *testing.T) {
		results, err := store.ListResults(ctx, 10, detector.AlgorithmOneClassSVM)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, mid.ID, results[0].ID)
	})

	t.Run("limit", func(t *testing.T) {
		results, err := store.ListResults(ctx, 2, "")
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	count, err := store.CountResults(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestStoreMetricsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := &detector.ModelMetrics{
		Algorithm:      detector.AlgorithmOneClassSVM,
		Precision:      0.92,
		Recall:         0.88,
		F1Score:        0.8995555555555556,
		Accuracy:       0.9,
		TrainingTime:   1.25,
		PredictionTime: 0.0004,
	}
	require.NoError(t, store.SaveMetrics(ctx, want))
	assert.NotEqual(t, uuid.Nil, want.ID, "an identifier is assigned on insert")

	metrics, err := store.ListMetrics(ctx)
	require.NoError(t, err)
	require.Len(t, metrics, 1)

	got := metrics[0]
	assert.Equal(t, want.Algorithm, got.Algorithm)
	assert.Equal(t, want.Precision, got.Precision)
	assert.Equal(t, want.Recall, got.Recall)
	assert.Equal(t, want.F1Score, got.F1Score)
	assert.Equal(t, want.Accuracy, got.Accuracy)
	assert.Equal(t, want.TrainingTime, got.TrainingTime)
	assert.Equal(t, want.PredictionTime, got.PredictionTime)
}

func TestStoreFeedback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	result := sampleResult(detector.AlgorithmEnsemble, time.Now().UTC())
	require.NoError(t, store.SaveResult(ctx, result))

	feedback := &detector.FeedbackRecord{
		AnomalyID:    result.ID,
		FeedbackType: "false_positive",
		UserComment:  "scheduled maintenance window",
	}
	require.NoError(t, store.SaveFeedback(ctx, feedback))
	assert.NotEqual(t, uuid.Nil, feedback.ID)
	assert.False(t, feedback.CreatedAt.IsZero())
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Driver = "oracle"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Path = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Driver = DriverPostgres
	cfg.Host = ""
	assert.Error(t, cfg.Validate())
}
