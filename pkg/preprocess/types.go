// Package preprocess routes a dataset to a type-specific transform and
// returns the feature matrix splits plus the fitted transformer state needed
// for inference and persistence.
package preprocess

import (
	"fmt"

	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/automlerrors"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/dataset"
)

// DataType selects the preprocessing path. The set is closed; anything else
// is rejected by ParseDataType before a split is computed.
type DataType string

const (
	DataTypeAuto       DataType = ""
	DataTypeTabular    DataType = "tabular"
	DataTypeText       DataType = "text"
	DataTypeTimeSeries DataType = "timeseries"
	DataTypeImage      DataType = "image"
)

// ParseDataType validates a data-type override.
func ParseDataType(s string) (DataType, error) {
	switch DataType(s) {
	case DataTypeAuto, DataTypeTabular, DataTypeText, DataTypeTimeSeries, DataTypeImage:
		return DataType(s), nil
	default:
		return DataTypeAuto, &automlerrors.UnsupportedDataTypeError{DataType: s}
	}
}

// TaskType distinguishes classification from regression runs.
type TaskType string

const (
	TaskClassification TaskType = "classification"
	TaskRegression     TaskType = "regression"
)

// ParseTaskType validates a task type string.
func ParseTaskType(s string) (TaskType, error) {
	switch TaskType(s) {
	case TaskClassification, TaskRegression:
		return TaskType(s), nil
	default:
		return "", fmt.Errorf("unknown task type %q", s)
	}
}

// Target holds the supervised signal for one partition. Labels is populated
// for classification, Values for regression.
type Target struct {
	Labels []string  `json:"labels,omitempty"`
	Values []float64 `json:"values,omitempty"`
}

// Len returns the number of target entries.
func (t Target) Len() int {
	if len(t.Labels) > 0 {
		return len(t.Labels)
	}
	return len(t.Values)
}

// Splits is the feature matrix partition shared by every candidate model in
// a run. It is computed exactly once and never re-split per model.
type Splits struct {
	XTrain [][]float64
	XVal   [][]float64
	XTest  [][]float64
	YTrain Target
	YVal   Target
	YTest  Target

	FeatureNames []string
}

// Artifacts is the fitted transformer bundle for one run. Variant fields are
// nil when the data type does not use them. Immutable once the run completes.
type Artifacts struct {
	DataType     DataType
	TargetColumn string

	Tabular    *TabularTransformer
	Vectorizer *TfidfVectorizer
	TextColumn string
	Lags       *LagTransformer
	Image      *ImageTransformer

	FeatureNames    []string
	SelectedIndices []int
	SelectedNames   []string
}

// Transform applies the fitted preprocessing to new raw rows, reproducing
// the training-time feature construction, including any feature-selection
// column subset.
func (a *Artifacts) Transform(rows []map[string]any) ([][]float64, error) {
	var (
		X   [][]float64
		err error
	)
	switch a.DataType {
	case DataTypeTabular:
		X, err = a.Tabular.Transform(rows)
	case DataTypeText:
		X, err = a.transformText(rows)
	case DataTypeTimeSeries:
		X, _, err = a.Lags.Transform(rows)
	case DataTypeImage:
		X, err = a.Image.Transform(rows)
	default:
		return nil, &automlerrors.UnsupportedDataTypeError{DataType: string(a.DataType)}
	}
	if err != nil {
		return nil, err
	}
	if len(a.SelectedIndices) > 0 {
		X = SelectColumns(X, a.SelectedIndices)
	}
	return X, nil
}

func (a *Artifacts) transformText(rows []map[string]any) ([][]float64, error) {
	docs := make([]string, len(rows))
	for i, row := range rows {
		docs[i] = dataset.AsString(row[a.TextColumn])
	}
	return a.Vectorizer.Transform(docs), nil
}

// ActiveFeatureNames returns the names of the columns the model actually
// consumes, honoring feature selection when it ran.
func (a *Artifacts) ActiveFeatureNames() []string {
	if len(a.SelectedNames) > 0 {
		return a.SelectedNames
	}
	return a.FeatureNames
}

// SelectColumns keeps the given column subset of a matrix, in order.
func SelectColumns(X [][]float64, indices []int) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		sub := make([]float64, len(indices))
		for j, idx := range indices {
			sub[j] = row[idx]
		}
		out[i] = sub
	}
	return out
}
