package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneClassSVMSeparatesOutliers(t *testing.T) {
	svm := NewOneClassSVM(WithNu(0.1), WithSVMSeed(1))
	require.False(t, svm.Trained())

	data := gaussianMatrix(11, 400, 4)
	require.NoError(t, svm.Fit(data))
	require.True(t, svm.Trained())

	inlier, err := svm.Score([]float64{0.05, -0.1, 0.02, 0.08})
	require.NoError(t, err)
	assert.False(t, inlier.IsAnomaly, "a point near the cluster center is inside the boundary")
	assert.Greater(t, inlier.RawScore, 0.0)

	outlier, err := svm.Score([]float64{50, -50, 50, -50})
	require.NoError(t, err)
	assert.True(t, outlier.IsAnomaly, "a point far from the cluster falls outside the boundary")
	assert.Less(t, outlier.RawScore, 0.0)
}

func TestOneClassSVMScoreBeforeFit(t *testing.T) {
	svm := NewOneClassSVM()
	_, err := svm.Score([]float64{1, 2})
	assert.ErrorIs(t, err, ErrModelNotTrained)
}

func TestOneClassSVMFitEmptyData(t *testing.T) {
	svm := NewOneClassSVM()
	assert.Error(t, svm.Fit(nil))
}

func TestOneClassSVMSaveLoad(t *testing.T) {
	svm := NewOneClassSVM(WithNu(0.1), WithSVMSeed(5), WithSupportSampleSize(128))
	data := gaussianMatrix(5, 300, 3)
	require.NoError(t, svm.Fit(data))

	payload, err := svm.Save()
	require.NoError(t, err)
	require.NotEmpty(t, payload)

	restored := NewOneClassSVM()
	require.NoError(t, restored.Load(payload))
	require.True(t, restored.Trained())

	for _, probe := range [][]float64{
		{0, 0, 0},
		{25, -25, 25},
		{-0.7, 1.1, 0.3},
	} {
		want, err := svm.Score(probe)
		require.NoError(t, err)
		got, err := restored.Score(probe)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestOneClassSVMSaveBeforeFit(t *testing.T) {
	svm := NewOneClassSVM()
	_, err := svm.Save()
	assert.ErrorIs(t, err, ErrModelNotTrained)
}

func TestOneClassSVMLoadCorrupt(t *testing.T) {
	svm := NewOneClassSVM()
	assert.Error(t, svm.Load([]byte("garbage")))
	assert.False(t, svm.Trained())
}

func TestStandardScaler(t *testing.T) {
	data := [][]float64{
		{0, 10, 7},
		{2, 10, 9},
		{4, 10, 11},
	}
	scaler := fitScaler(data)

	assert.InDelta(t, 2.0, scaler.Means[0], 1e-9)
	assert.InDelta(t, 10.0, scaler.Means[1], 1e-9)
	assert.Zero(t, scaler.Stds[1], "constant feature has zero deviation")

	out := scaler.transform([]float64{4, 999, 9})
	assert.InDelta(t, (4.0-2.0)/scaler.Stds[0], out[0], 1e-9)
	assert.Zero(t, out[1], "zero-variance feature maps to 0 instead of dividing by zero")
	assert.Zero(t, out[2])
}
