package evaluate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassificationMetricsKnownValues(t *testing.T) {
	yTrue := []string{"a", "a", "a", "b", "b"}
	yPred := []string{"a", "a", "b", "b", "b"}

	res, err := ClassificationMetrics(yTrue, yPred)
	require.NoError(t, err)

	assert.InDelta(t, 0.8, res.Metrics[MetricAccuracy], 1e-9)
	assert.InDelta(t, 0.8, res.Metrics[MetricRecall], 1e-9)
	assert.InDelta(t, 0.8, res.Metrics[MetricF1], 1e-9)
	// Weighted precision: class a contributes 3/5 * 1.0, class b 2/5 * 2/3.
	assert.InDelta(t, 13.0/15.0, res.Metrics[MetricPrecision], 1e-9)

	require.NotNil(t, res.ConfusionMatrix)
	assert.Equal(t, []string{"a", "b"}, res.ConfusionMatrix.Labels)
	assert.Equal(t, [][]int{{2, 1}, {0, 2}}, res.ConfusionMatrix.Matrix)
}

func TestClassificationMetricsPerfect(t *testing.T) {
	y := []string{"x", "y", "z", "x"}
	res, err := ClassificationMetrics(y, y)
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.Metrics[MetricAccuracy])
	assert.Equal(t, 1.0, res.Metrics[MetricF1])
}

func TestClassificationMetricsLengthMismatch(t *testing.T) {
	_, err := ClassificationMetrics([]string{"a"}, []string{"a", "b"})
	assert.Error(t, err)
}

func TestRegressionMetricsKnownValues(t *testing.T) {
	yTrue := []float64{1, 2, 3, 4}
	yPred := []float64{1.5, 2.5, 2.5, 3.5}

	res, err := RegressionMetrics(yTrue, yPred)
	require.NoError(t, err)

	assert.InDelta(t, 0.8, res.Metrics[MetricR2], 1e-9)
	assert.InDelta(t, 0.25, res.Metrics[MetricMSE], 1e-9)
	assert.InDelta(t, 0.5, res.Metrics[MetricRMSE], 1e-9)
	assert.InDelta(t, 0.5, res.Metrics[MetricMAE], 1e-9)
	assert.InDelta(t, 0.5, res.Metrics[MetricMaxError], 1e-9)
	assert.InDelta(t, 26.0417, res.Metrics[MetricMAPE], 1e-3)
}

func TestRegressionMetricsConstantTruth(t *testing.T) {
	res, err := RegressionMetrics([]float64{2, 2, 2}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Metrics[MetricR2])
}

func TestRegressionMetricsMAPESkipsZeros(t *testing.T) {
	res, err := RegressionMetrics([]float64{0, 2}, []float64{1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 50.0, res.Metrics[MetricMAPE], 1e-9)
}

func TestBinaryAUCPerfectSeparation(t *testing.T) {
	auc, ok := BinaryAUC([]string{"neg", "neg", "pos", "pos"}, "pos", []float64{0.1, 0.2, 0.8, 0.9})
	require.True(t, ok)
	assert.InDelta(t, 1.0, auc, 1e-9)
}

func TestBinaryAUCAllTied(t *testing.T) {
	auc, ok := BinaryAUC([]string{"neg", "neg", "pos", "pos"}, "pos", []float64{0.5, 0.5, 0.5, 0.5})
	require.True(t, ok)
	assert.InDelta(t, 0.5, auc, 1e-9)
}

func TestBinaryAUCSingleClass(t *testing.T) {
	_, ok := BinaryAUC([]string{"pos", "pos"}, "pos", []float64{0.5, 0.6})
	assert.False(t, ok)
}

func TestKFoldPartitions(t *testing.T) {
	folds, err := KFold(23, 5)
	require.NoError(t, err)
	require.Len(t, folds, 5)

	seen := make(map[int]bool)
	for _, fold := range folds {
		for _, i := range fold {
			assert.False(t, seen[i])
			seen[i] = true
		}
	}
	assert.Len(t, seen, 23)

	train, test := TrainTestFold(folds, 2)
	assert.Len(t, test, len(folds[2]))
	assert.Len(t, train, 23-len(folds[2]))
}

func TestKFoldRejectsTooFewRows(t *testing.T) {
	_, err := KFold(3, 5)
	assert.Error(t, err)
}
