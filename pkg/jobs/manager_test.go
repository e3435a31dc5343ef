package jobs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/artifacts"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/dataset"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/logging"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/pipeline"
)

func newTestManager(t *testing.T) (*Manager, *artifacts.Manager) {
	t.Helper()
	arts := artifacts.NewManager(t.TempDir(), logging.Global())
	runner := pipeline.NewRunner(arts, 2, logging.Global())
	m := NewManager(NewMemoryStore(), runner, arts, 2, time.Hour, logging.Global())
	t.Cleanup(m.Shutdown)
	return m, arts
}

func classificationDataset(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	rows := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		label := "no"
		x := float64(i % 10)
		if x >= 5 {
			label = "yes"
		}
		rows[i] = map[string]any{
			"x1":    x,
			"x2":    float64(i % 3),
			"churn": label,
		}
	}
	ds, err := dataset.FromRows("churn", rows)
	require.NoError(t, err)
	return ds
}

func waitTerminal(t *testing.T, m *Manager, jobID string) StatusView {
	t.Helper()
	var view StatusView
	require.Eventually(t, func() bool {
		v, err := m.GetStatus(jobID)
		if err != nil {
			return false
		}
		view = v
		return v.Status.Terminal()
	}, 60*time.Second, 50*time.Millisecond)
	return view
}

func TestSubmitRejectsInvalidConfig(t *testing.T) {
	m, _ := newTestManager(t)
	ds := classificationDataset(t, 40)

	_, err := m.Submit(ds, pipeline.Config{TaskType: "classification"})
	assert.Error(t, err)

	_, err = m.Submit(ds, pipeline.Config{TargetColumn: "churn", TaskType: "clustering"})
	assert.Error(t, err)
}

func TestJobLifecycleClassification(t *testing.T) {
	m, arts := newTestManager(t)
	ds := classificationDataset(t, 80)

	jobID, err := m.Submit(ds, pipeline.Config{
		TargetColumn: "churn",
		TaskType:     "classification",
	})
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	view := waitTerminal(t, m, jobID)
	require.Equal(t, StatusCompleted, view.Status, "job error: %s", view.Error)
	assert.Equal(t, 100, view.Progress)
	assert.NotEmpty(t, view.BestModel)
	assert.NotEmpty(t, view.TrainedModels)

	result, err := m.GetResult(jobID)
	require.NoError(t, err)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "classification", result.TaskType)
	assert.Equal(t, "tabular", result.DataType)
	assert.NotEmpty(t, result.Metrics)
	assert.NotEmpty(t, result.EvaluationResults)

	// The published run directory holds all four artifact files.
	dir := filepath.Join(arts.Root, result.RunID)
	for _, name := range []string{artifacts.ModelFile, artifacts.PreprocessingFile, artifacts.FeatureMetaFile, artifacts.MetricsFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, "missing artifact %s", name)
	}

	// The loaded bundle predicts on new rows.
	loaded, err := arts.Load(result.RunID)
	require.NoError(t, err)
	X, err := loaded.Preprocessing.Transform(ds.Rows[:4])
	require.NoError(t, err)
	assert.Len(t, X, 4)
}

func TestJobFailureLeavesNoArtifacts(t *testing.T) {
	m, arts := newTestManager(t)

	// Regression against a string target fails during preprocessing.
	ds := classificationDataset(t, 40)

	jobID, err := m.Submit(ds, pipeline.Config{
		TargetColumn: "churn",
		TaskType:     "regression",
	})
	require.NoError(t, err)

	view := waitTerminal(t, m, jobID)
	assert.Equal(t, StatusError, view.Status)
	assert.NotEmpty(t, view.Error)

	_, err = m.GetResult(jobID)
	assert.Error(t, err)

	// No run directory was published.
	entries, err := os.ReadDir(arts.Root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, ".staging", e.Name())
	}
}

func TestGetResultBeforeCompletion(t *testing.T) {
	m, _ := newTestManager(t)
	ds := classificationDataset(t, 2000)

	jobID, err := m.Submit(ds, pipeline.Config{
		TargetColumn: "churn",
		TaskType:     "classification",
		Tuning:       true,
		SearchMethod: "grid",
	})
	require.NoError(t, err)

	// Immediately after submit the job cannot be completed yet.
	_, err = m.GetResult(jobID)
	assert.Error(t, err)

	waitTerminal(t, m, jobID)
}

func TestCancelUnknownJob(t *testing.T) {
	m, _ := newTestManager(t)
	err := m.Cancel("no-such-job")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestCancelTerminalJob(t *testing.T) {
	m, _ := newTestManager(t)
	ds := classificationDataset(t, 60)

	jobID, err := m.Submit(ds, pipeline.Config{
		TargetColumn: "churn",
		TaskType:     "classification",
	})
	require.NoError(t, err)
	waitTerminal(t, m, jobID)

	err = m.Cancel(jobID)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrJobNotFound)
}

func TestListNewestFirst(t *testing.T) {
	m, _ := newTestManager(t)
	ds := classificationDataset(t, 40)

	first, err := m.Submit(ds, pipeline.Config{TargetColumn: "churn", TaskType: "classification"})
	require.NoError(t, err)
	waitTerminal(t, m, first)

	second, err := m.Submit(ds, pipeline.Config{TargetColumn: "churn", TaskType: "classification"})
	require.NoError(t, err)
	waitTerminal(t, m, second)

	views, err := m.List()
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, second, views[0].JobID)
	assert.Equal(t, first, views[1].JobID)
}
