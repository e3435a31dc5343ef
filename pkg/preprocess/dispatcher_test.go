package preprocess

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/automlerrors"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/dataset"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/logging"
)

func newTestDispatcher() *Dispatcher {
	return NewDispatcher(logging.Global())
}

func tabularDataset(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	rows := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		label := "no"
		if i%2 == 0 {
			label = "yes"
		}
		rows[i] = map[string]any{
			"age":   float64(20 + i),
			"city":  []string{"london", "paris", "berlin"}[i%3],
			"churn": label,
		}
	}
	ds, err := dataset.FromRows("customers", rows)
	require.NoError(t, err)
	return ds
}

func TestDetectTabular(t *testing.T) {
	ds := tabularDataset(t, 20)
	assert.Equal(t, DataTypeTabular, Detect(ds, "churn"))
}

func TestDetectTimeSeries(t *testing.T) {
	rows := make([]map[string]any, 20)
	for i := range rows {
		rows[i] = map[string]any{
			"date":  fmt.Sprintf("2024-03-%02d", i+1),
			"sales": float64(i),
		}
	}
	ds, err := dataset.FromRows("sales", rows)
	require.NoError(t, err)
	assert.Equal(t, DataTypeTimeSeries, Detect(ds, "sales"))
}

func TestDetectText(t *testing.T) {
	rows := make([]map[string]any, 20)
	for i := range rows {
		rows[i] = map[string]any{
			"review":    fmt.Sprintf("this product number %d completely changed how my kitchen works every day", i),
			"sentiment": []string{"pos", "neg"}[i%2],
		}
	}
	ds, err := dataset.FromRows("reviews", rows)
	require.NoError(t, err)
	assert.Equal(t, DataTypeText, Detect(ds, "sentiment"))
}

func TestProcessRejectsMissingTarget(t *testing.T) {
	ds := tabularDataset(t, 20)
	_, _, err := newTestDispatcher().Process(ds, "missing", TaskClassification, DataTypeAuto)

	var verr *automlerrors.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestProcessRejectsUnknownDataType(t *testing.T) {
	_, err := ParseDataType("audio")
	var derr *automlerrors.UnsupportedDataTypeError
	assert.True(t, errors.As(err, &derr))
}

func TestProcessTabularSplitShapes(t *testing.T) {
	ds := tabularDataset(t, 100)
	splits, arts, err := newTestDispatcher().Process(ds, "churn", TaskClassification, DataTypeAuto)
	require.NoError(t, err)

	assert.Equal(t, DataTypeTabular, arts.DataType)
	assert.Equal(t, "churn", arts.TargetColumn)
	assert.NotNil(t, arts.Tabular)

	total := len(splits.XTrain) + len(splits.XVal) + len(splits.XTest)
	assert.Equal(t, 100, total)
	assert.Equal(t, len(splits.XTrain), splits.YTrain.Len())
	assert.Equal(t, len(splits.XTest), splits.YTest.Len())
	assert.InDelta(t, 70, len(splits.XTrain), 2)
}

func TestProcessDropsNullTargetRows(t *testing.T) {
	ds := tabularDataset(t, 40)
	ds.Rows[3]["churn"] = nil
	ds.Rows[17]["churn"] = ""

	splits, _, err := newTestDispatcher().Process(ds, "churn", TaskClassification, DataTypeAuto)
	require.NoError(t, err)

	total := len(splits.XTrain) + len(splits.XVal) + len(splits.XTest)
	assert.Equal(t, 38, total)
}

func TestProcessRegressionRejectsNonNumericTarget(t *testing.T) {
	ds := tabularDataset(t, 20)
	_, _, err := newTestDispatcher().Process(ds, "churn", TaskRegression, DataTypeAuto)

	var verr *automlerrors.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestArtifactsTransformMatchesTraining(t *testing.T) {
	ds := tabularDataset(t, 60)
	splits, arts, err := newTestDispatcher().Process(ds, "churn", TaskClassification, DataTypeAuto)
	require.NoError(t, err)

	X, err := arts.Transform(ds.Rows[:5])
	require.NoError(t, err)
	require.Len(t, X, 5)
	assert.Len(t, X[0], len(splits.FeatureNames))
}

func TestArtifactsTransformAppliesSelection(t *testing.T) {
	ds := tabularDataset(t, 60)
	_, arts, err := newTestDispatcher().Process(ds, "churn", TaskClassification, DataTypeAuto)
	require.NoError(t, err)

	arts.SelectedIndices = []int{0}
	arts.SelectedNames = arts.FeatureNames[:1]

	X, err := arts.Transform(ds.Rows[:3])
	require.NoError(t, err)
	assert.Len(t, X[0], 1)
	assert.Equal(t, arts.FeatureNames[:1], arts.ActiveFeatureNames())
}
