package artifacts

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/estimator"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/logging"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/preprocess"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(t.TempDir(), logging.Global())
}

func fittedModel(t *testing.T) *estimator.KNNClassifier {
	t.Helper()
	X := [][]float64{{0, 0}, {0, 1}, {5, 5}, {5, 6}, {0, 0.5}, {5, 5.5}}
	y := []string{"a", "a", "b", "b", "a", "b"}
	m := estimator.NewKNNClassifier(estimator.Params{"k": 3})
	require.NoError(t, m.Fit(X, y))
	return m
}

func testPrep() *preprocess.Artifacts {
	return &preprocess.Artifacts{
		DataType:     preprocess.DataTypeTabular,
		TargetColumn: "label",
		Tabular: &preprocess.TabularTransformer{
			NumericColumns: []string{"x", "y"},
			Imputer: &preprocess.Imputer{
				NumericMeans:     map[string]float64{"x": 2.5, "y": 3.0},
				CategoricalModes: map[string]string{},
			},
			Encoders: map[string]*preprocess.CategoricalEncoder{},
			Scaler: &preprocess.StandardScaler{
				Mean: map[string]float64{"x": 2.5, "y": 3.0},
				Std:  map[string]float64{"x": 2.5, "y": 2.5},
			},
			FeatureNames: []string{"x", "y"},
		},
		FeatureNames: []string{"x", "y"},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := newTestManager(t)
	model := fittedModel(t)

	meta := &FeatureMetadata{
		ModelName:    "knn",
		TaskType:     "classification",
		DataType:     "tabular",
		TargetColumn: "label",
		FeatureNames: []string{"x", "y"},
		FeatureCount: 2,
	}
	saved, err := m.Save("knn", model, testPrep(), meta, map[string]any{"accuracy": 1.0})
	require.NoError(t, err)
	require.NotEmpty(t, saved.RunID)

	loaded, err := m.Load(saved.RunID)
	require.NoError(t, err)

	restored, ok := loaded.Model.(*estimator.KNNClassifier)
	require.True(t, ok)

	// The restored model predicts identically to the original.
	points := [][]float64{{0.2, 0.3}, {5.1, 5.2}}
	want, err := model.Predict(points)
	require.NoError(t, err)
	got, err := restored.Predict(points)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	assert.Equal(t, "knn", loaded.Metadata.ModelName)
	assert.Equal(t, []string{"x", "y"}, loaded.Preprocessing.FeatureNames)
	assert.Equal(t, 1.0, loaded.Metrics["accuracy"])
}

func TestPreprocessingBundleRoundTrip(t *testing.T) {
	m := newTestManager(t)

	saved, err := m.Save("knn", fittedModel(t), testPrep(), &FeatureMetadata{}, nil)
	require.NoError(t, err)

	loaded, err := m.Load(saved.RunID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Preprocessing)

	// The loaded bundle transforms raw rows with the fitted statistics.
	X, err := loaded.Preprocessing.Transform([]map[string]any{
		{"x": 5.0, "y": 3.0},
	})
	require.NoError(t, err)
	require.Len(t, X, 1)
	assert.InDelta(t, 1.0, X[0][0], 1e-9)
	assert.InDelta(t, 0.0, X[0][1], 1e-9)
}

func TestSavePublishesAllFiles(t *testing.T) {
	m := newTestManager(t)

	saved, err := m.Save("knn", fittedModel(t), testPrep(), &FeatureMetadata{}, map[string]any{})
	require.NoError(t, err)

	dir := filepath.Join(m.Root, saved.RunID)
	for _, name := range []string{ModelFile, PreprocessingFile, FeatureMetaFile, MetricsFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, "missing %s", name)
	}

	// No staging leftovers after a successful publish.
	entries, err := os.ReadDir(filepath.Join(m.Root, stagingDirName))
	if err == nil {
		assert.Empty(t, entries)
	}
}

func TestSaveFailureLeavesNoRunDirectory(t *testing.T) {
	m := newTestManager(t)

	// A channel is not gob-encodable, so the model write fails.
	_, err := m.Save("bad", make(chan int), testPrep(), &FeatureMetadata{}, nil)
	require.Error(t, err)

	entries, err := os.ReadDir(m.Root)
	require.NoError(t, err)
	for _, e := range entries {
		if e.Name() == stagingDirName {
			staged, err := os.ReadDir(filepath.Join(m.Root, stagingDirName))
			require.NoError(t, err)
			assert.Empty(t, staged)
			continue
		}
		t.Errorf("unexpected published entry %q after failed save", e.Name())
	}
}

func TestLoadUnknownRun(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Load("20240101_000000_deadbeef")
	assert.Error(t, err)
}

func TestSweepStaging(t *testing.T) {
	m := newTestManager(t)
	stale := filepath.Join(m.Root, stagingDirName, "orphan")
	require.NoError(t, os.MkdirAll(stale, 0o755))

	require.NoError(t, m.SweepStaging(0))

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestSanitize(t *testing.T) {
	in := map[string]any{
		"r2":    math.NaN(),
		"inf":   math.Inf(1),
		"count": 42.0,
		"f1":    0.91,
		"nested": map[string]float64{
			"mae": math.Inf(-1),
			"mse": 2.0,
		},
		"list": []float64{1.0, math.NaN()},
	}
	out := Sanitize(in).(map[string]any)

	assert.Nil(t, out["r2"])
	assert.Nil(t, out["inf"])
	assert.Equal(t, int64(42), out["count"])
	assert.Equal(t, 0.91, out["f1"])

	nested := out["nested"].(map[string]any)
	assert.Nil(t, nested["mae"])
	assert.Equal(t, int64(2), nested["mse"])

	list := out["list"].([]any)
	assert.Equal(t, int64(1), list[0])
	assert.Nil(t, list[1])
}

func TestNewRunIDFormat(t *testing.T) {
	m := newTestManager(t)
	id, err := m.NewRunID()
	require.NoError(t, err)
	assert.Regexp(t, `^\d{8}_\d{6}_[0-9a-f]{8}$`, id)
}
