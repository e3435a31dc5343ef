package pipeline

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/artifacts"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/dataset"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/logging"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	store := artifacts.NewManager(t.TempDir(), logging.Global())
	return NewRunner(store, 2, logging.Global())
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
			"x2":    float64(i % 4),
			"churn": label,
		}
	}
	ds, err := dataset.FromRows("churn", rows)
	require.NoError(t, err)
	return ds
}

func regressionDataset(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	rows := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		x := float64(i)
		rows[i] = map[string]any{
			"x":     x,
			"noise": float64(i % 7),
			"price": 3*x + 10,
		}
	}
	ds, err := dataset.FromRows("prices", rows)
	require.NoError(t, err)
	return ds
}

func TestRunClassification(t *testing.T) {
	r := newTestRunner(t)
	ds := classificationDataset(t, 100)

	var stages []string
	progress := func(stage string, pct int) { stages = append(stages, stage) }

	result, err := r.Run(context.Background(), ds, Config{
		TargetColumn: "churn",
		TaskType:     "classification",
	}, progress)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.NotEmpty(t, result.BestModelName)
	assert.Equal(t, "classification", result.TaskType)
	assert.Equal(t, "tabular", result.DataType)
	assert.NotEmpty(t, result.TrainedModels)
	assert.NotEmpty(t, result.EvaluationResults)
	assert.NotNil(t, result.ConfusionMatrix)
	assert.Contains(t, result.Metrics, "f1_score")

	assert.Contains(t, stages, StageSampling)
	assert.Contains(t, stages, StagePreprocessing)
	assert.Contains(t, stages, StageTraining)
	assert.Contains(t, stages, StageEvaluating)
	assert.Contains(t, stages, StagePersisting)
	assert.NotContains(t, stages, StageFeatureSelection)
	assert.NotContains(t, stages, StageTuning)
}

func TestRunRegression(t *testing.T) {
	r := newTestRunner(t)
	ds := regressionDataset(t, 100)

	result, err := r.Run(context.Background(), ds, Config{
		TargetColumn: "price",
		TaskType:     "regression",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "regression", result.TaskType)
	assert.Contains(t, result.Metrics, "r2_score")
	assert.Nil(t, result.ConfusionMatrix)
}

func TestRunWithFeatureSelection(t *testing.T) {
	r := newTestRunner(t)
	ds := regressionDataset(t, 100)

	result, err := r.Run(context.Background(), ds, Config{
		TargetColumn:     "price",
		TaskType:         "regression",
		FeatureSelection: true,
	}, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, result.SelectedFeatures)
	assert.Equal(t, len(result.SelectedFeatures), result.SelectedFeatureCount)
	assert.Contains(t, result.SelectedFeatures, "x")
}

func TestRunWithTuning(t *testing.T) {
	r := newTestRunner(t)
	ds := classificationDataset(t, 80)

	result, err := r.Run(context.Background(), ds, Config{
		TargetColumn: "churn",
		TaskType:     "classification",
		Tuning:       true,
		SearchMethod: "random",
	}, nil)
	require.NoError(t, err)

	require.NotNil(t, result.TunedModel)
	assert.Equal(t, result.BestModelName, result.TunedModel.ModelName)
}

func TestRunSamplingBound(t *testing.T) {
	r := newTestRunner(t)
	ds := classificationDataset(t, 400)

	result, err := r.Run(context.Background(), ds, Config{
		TargetColumn:  "churn",
		TaskType:      "classification",
		MaxSampleRows: 100,
	}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, result.RunID)
}

func TestRunDeterministicSelection(t *testing.T) {
	ds := classificationDataset(t, 100)
	cfg := Config{TargetColumn: "churn", TaskType: "classification"}

	a, err := newTestRunner(t).Run(context.Background(), ds, cfg, nil)
	require.NoError(t, err)
	b, err := newTestRunner(t).Run(context.Background(), ds, cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, a.BestModelName, b.BestModelName)
	assert.Equal(t, a.Metrics, b.Metrics)
}

func TestRunCancelledBeforeStart(t *testing.T) {
	r := newTestRunner(t)
	ds := classificationDataset(t, 60)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, ds, Config{TargetColumn: "churn", TaskType: "classification"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunAllCandidatesFail(t *testing.T) {
	r := newTestRunner(t)

	// Infinite cells survive imputation and scale to NaN, so every
	// candidate rejects the matrix during fit.
	rows := make([]map[string]any, 40)
	for i := range rows {
		rows[i] = map[string]any{
			"x":     math.Inf(1),
			"churn": fmt.Sprintf("c%d", i%2),
		}
	}
	ds, err := dataset.FromRows("broken", rows)
	require.NoError(t, err)

	_, err = r.Run(context.Background(), ds, Config{
		TargetColumn: "churn",
		TaskType:     "classification",
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all candidate models failed")
}

func TestConfigValidate(t *testing.T) {
	valid := Config{TargetColumn: "y", TaskType: "classification"}
	assert.NoError(t, valid.Validate())

	assert.Error(t, Config{TaskType: "classification"}.Validate())
	assert.Error(t, Config{TargetColumn: "y", TaskType: "ranking"}.Validate())
	assert.Error(t, Config{TargetColumn: "y", TaskType: "classification", DataTypeOverride: "audio"}.Validate())
	assert.Error(t, Config{TargetColumn: "y", TaskType: "classification", Tuning: true, SearchMethod: "genetic"}.Validate())
	assert.Error(t, Config{TargetColumn: "y", TaskType: "classification", MaxSampleRows: -1}.Validate())

	// Empty search method defaults to grid.
	assert.NoError(t, Config{TargetColumn: "y", TaskType: "classification", Tuning: true}.Validate())
}
