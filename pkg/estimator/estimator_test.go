package estimator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// separableBlobs returns two well-separated 2D clusters.
func separableBlobs(n int) ([][]float64, []string) {
	rng := rand.New(rand.NewSource(3))
	X := make([][]float64, n)
	y := make([]string, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			X[i] = []float64{rng.NormFloat64() * 0.3, rng.NormFloat64() * 0.3}
			y[i] = "a"
		} else {
			X[i] = []float64{5 + rng.NormFloat64()*0.3, 5 + rng.NormFloat64()*0.3}
			y[i] = "b"
		}
	}
	return X, y
}

// noisyLine returns samples of y = 2x1 - 3x2 + 1 with small noise.
func noisyLine(n int) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(4))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x1, x2 := rng.Float64()*10, rng.Float64()*10
		X[i] = []float64{x1, x2}
		y[i] = 2*x1 - 3*x2 + 1 + rng.NormFloat64()*0.01
	}
	return X, y
}

func classifierAccuracy(t *testing.T, c Classifier, X [][]float64, y []string) float64 {
	t.Helper()
	require.NoError(t, c.Fit(X, y))
	pred, err := c.Predict(X)
	require.NoError(t, err)
	correct := 0
	for i := range y {
		if pred[i] == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y))
}

func TestClassificationCatalogSeparatesBlobs(t *testing.T) {
	X, y := separableBlobs(200)
	for _, spec := range ClassificationCatalog(false) {
		t.Run(spec.Name, func(t *testing.T) {
			acc := classifierAccuracy(t, spec.New(Params{}), X, y)
			assert.GreaterOrEqual(t, acc, 0.95, "model %s", spec.Name)
		})
	}
}

func TestNaiveBayesOnCounts(t *testing.T) {
	// Non-negative count features, the multinomial assumption.
	X := [][]float64{
		{5, 0}, {4, 1}, {6, 0},
		{0, 5}, {1, 4}, {0, 6},
	}
	y := []string{"spam", "spam", "spam", "ham", "ham", "ham"}

	acc := classifierAccuracy(t, NewMultinomialNB(Params{}), X, y)
	assert.Equal(t, 1.0, acc)
}

func TestNaiveBayesRejectsNegativeFeatures(t *testing.T) {
	nb := NewMultinomialNB(Params{})
	err := nb.Fit([][]float64{{-1, 2}}, []string{"a"})
	assert.Error(t, err)
}

func TestRegressionCatalogFitsLine(t *testing.T) {
	X, y := noisyLine(300)
	for _, spec := range RegressionCatalog() {
		t.Run(spec.Name, func(t *testing.T) {
			r := spec.New(Params{})
			require.NoError(t, r.Fit(X, y))
			pred, err := r.Predict(X)
			require.NoError(t, err)

			var ssRes, ssTot, mean float64
			for _, v := range y {
				mean += v
			}
			mean /= float64(len(y))
			for i := range y {
				ssRes += (y[i] - pred[i]) * (y[i] - pred[i])
				ssTot += (y[i] - mean) * (y[i] - mean)
			}
			r2 := 1 - ssRes/ssTot
			assert.Greater(t, r2, 0.85, "model %s", spec.Name)
		})
	}
}

func TestLinearRegressionRecoversCoefficients(t *testing.T) {
	X, y := noisyLine(500)
	lr := NewLinearRegression(Params{})
	require.NoError(t, lr.Fit(X, y))

	pred, err := lr.Predict([][]float64{{1, 1}})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, pred[0], 0.05) // 2 - 3 + 1
}

func TestPredictBeforeFit(t *testing.T) {
	_, err := NewLogisticRegression(Params{}).Predict([][]float64{{1, 2}})
	assert.ErrorIs(t, err, ErrNotFitted)

	_, err = NewLinearRegression(Params{}).Predict([][]float64{{1, 2}})
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestFitRejectsNaN(t *testing.T) {
	X := [][]float64{{1, math.NaN()}, {2, 3}, {4, 5}, {6, 7}, {8, 9}}
	y := []string{"a", "b", "a", "b", "a"}

	for _, spec := range ClassificationCatalog(false) {
		err := spec.New(Params{}).Fit(X, y)
		assert.Error(t, err, "model %s accepted NaN input", spec.Name)
	}
}

func TestFitRejectsRaggedMatrix(t *testing.T) {
	X := [][]float64{{1, 2}, {3}}
	err := NewDecisionTreeClassifier(Params{}).Fit(X, []string{"a", "b"})
	assert.Error(t, err)
}

func TestPredictProbaSumsToOne(t *testing.T) {
	X, y := separableBlobs(100)
	models := []ProbabilityClassifier{
		fitProba(t, NewLogisticRegression(Params{}), X, y),
		fitProba(t, NewRandomForestClassifier(Params{}), X, y),
		fitProba(t, NewDecisionTreeClassifier(Params{}), X, y),
		fitProba(t, NewGradientBoostingClassifier(Params{}), X, y),
	}
	for _, m := range models {
		probs, err := m.PredictProba(X[:10])
		require.NoError(t, err)
		for _, p := range probs {
			var sum float64
			for _, v := range p {
				sum += v
			}
			assert.InDelta(t, 1.0, sum, 1e-6)
		}
	}
}

func fitProba(t *testing.T, c Classifier, X [][]float64, y []string) ProbabilityClassifier {
	t.Helper()
	require.NoError(t, c.Fit(X, y))
	p, ok := c.(ProbabilityClassifier)
	require.True(t, ok)
	return p
}

func TestFeatureImportanceLength(t *testing.T) {
	X, y := separableBlobs(100)
	rf := NewRandomForestClassifier(Params{})
	require.NoError(t, rf.Fit(X, y))
	assert.Len(t, rf.FeatureImportance(), 2)

	Xr, yr := noisyLine(100)
	gb := NewGradientBoostingRegressor(Params{})
	require.NoError(t, gb.Fit(Xr, yr))
	assert.Len(t, gb.FeatureImportance(), 2)
}

func TestKNNDeterministicTies(t *testing.T) {
	X := [][]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	y := []string{"a", "b", "a", "b"}
	knn := NewKNNClassifier(Params{"k": 4})
	require.NoError(t, knn.Fit(X, y))

	p1, err := knn.Predict([][]float64{{0.5, 0.5}})
	require.NoError(t, err)
	p2, err := knn.Predict([][]float64{{0.5, 0.5}})
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestParamsOverrides(t *testing.T) {
	p := Params{"max_depth": 3, "n_estimators": 20}
	assert.Equal(t, 3, p.GetInt("max_depth", 10))
	assert.Equal(t, 20, p.GetInt("n_estimators", 50))
	assert.Equal(t, 0.1, p.Get("learning_rate", 0.1))
}
