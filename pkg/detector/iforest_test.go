package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsolationForestSeparatesOutliers(t *testing.T) {
	forest := NewIsolationForest(
		WithTrees(50),
		WithSampleSize(64),
		WithContamination(0.1),
		WithSeed(1),
	)
	require.False(t, forest.Trained())

	data := gaussianMatrix(1, 400, 4)
	require.NoError(t, forest.Fit(data))
	require.True(t, forest.Trained())

	inlier, err := forest.Score([]float64{0.05, -0.1, 0.02, 0.08})
	require.NoError(t, err)
	assert.False(t, inlier.IsAnomaly, "a point near the cluster center is normal")

	outlier, err := forest.Score([]float64{40, -40, 40, -40})
	require.NoError(t, err)
	assert.True(t, outlier.IsAnomaly, "a point far from the cluster is anomalous")

	// More negative raw score means more anomalous.
	assert.Less(t, outlier.RawScore, inlier.RawScore)
}

func TestIsolationForestScoreBeforeFit(t *testing.T) {
	forest := NewIsolationForest()

	_, err := forest.Score([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrModelNotTrained)
}

func TestIsolationForestFitEmptyData(t *testing.T) {
	forest := NewIsolationForest()
	assert.Error(t, forest.Fit(nil))
}

func TestIsolationForestDeterministic(t *testing.T) {
	data := gaussianMatrix(7, 300, 3)
	probe := []float64{2.5, -2.5, 2.5}

	a := NewIsolationForest(WithTrees(25), WithSampleSize(64), WithSeed(99))
	b := NewIsolationForest(WithTrees(25), WithSampleSize(64), WithSeed(99))
	require.NoError(t, a.Fit(data))
	require.NoError(t, b.Fit(data))

	resA, err := a.Score(probe)
	require.NoError(t, err)
	resB, err := b.Score(probe)
	require.NoError(t, err)

	assert.Equal(t, resA, resB, "same seed and data must give the same model")
	assert.Equal(t, a.Threshold(), b.Threshold())
}

func TestIsolationForestSaveLoad(t *testing.T) {
	forest := NewIsolationForest(WithTrees(25), WithSampleSize(64), WithSeed(3))
	data := gaussianMatrix(3, 300, 4)
	require.NoError(t, forest.Fit(data))

	payload, err := forest.Save()
	require.NoError(t, err)
	require.NotEmpty(t, payload)

	restored := NewIsolationForest()
	require.NoError(t, restored.Load(payload))
	require.True(t, restored.Trained())
	assert.Equal(t, forest.Threshold(), restored.Threshold())

	for _, probe := range [][]float64{
		{0, 0, 0, 0},
		{30, 30, 30, 30},
		{-1.2, 0.4, 2.1, -0.3},
	} {
		want, err := forest.Score(probe)
		require.NoError(t, err)
		got, err := restored.Score(probe)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestIsolationForestSaveBeforeFit(t *testing.T) {
	forest := NewIsolationForest()
	_, err := forest.Save()
	assert.ErrorIs(t, err, ErrModelNotTrained)
}

func TestIsolationForestLoadCorrupt(t *testing.T) {
	forest := NewIsolationForest()
	assert.Error(t, forest.Load([]byte("not a gob payload")))
	assert.False(t, forest.Trained())
}
