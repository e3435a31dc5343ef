// Package pipeline orchestrates one run: sampling, preprocessing, feature
// selection, candidate training, evaluation, selection, tuning, and
// artifact persistence.
package pipeline

import (
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/automlerrors"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/evaluate"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/preprocess"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/tuner"
)

// Config describes one run request. It is immutable once submitted.
type Config struct {
	TargetColumn     string `json:"target_column"`
	TaskType         string `json:"task_type"`
	DataTypeOverride string `json:"data_type,omitempty"`
	FeatureSelection bool   `json:"feature_selection"`
	Tuning           bool   `json:"hyperparameter_tuning"`
	SearchMethod     string `json:"search_method,omitempty"`
	MaxSampleRows    int    `json:"max_sample_rows,omitempty"`
}

// Validate rejects malformed configs before a job starts.
func (c Config) Validate() error {
	if c.TargetColumn == "" {
		return automlerrors.NewValidationError("target_column", "must not be empty")
	}
	if _, err := preprocess.ParseTaskType(c.TaskType); err != nil {
		return automlerrors.NewValidationError("task_type", err.Error())
	}
	if _, err := preprocess.ParseDataType(c.DataTypeOverride); err != nil {
		return err
	}
	if c.Tuning {
		if _, err := tuner.ParseMethod(c.SearchMethod); err != nil {
			return automlerrors.NewValidationError("search_method", err.Error())
		}
	}
	if c.MaxSampleRows < 0 {
		return automlerrors.NewValidationError("max_sample_rows", "must be zero or positive")
	}
	return nil
}

// EvalSummary is the JSON-safe per-candidate metrics entry.
type EvalSummary struct {
	Metrics map[string]any `json:"metrics"`
}

// RunResult is the JSON-safe outcome of a completed run. It references
// artifacts by path only and never embeds live estimator or transformer
// objects.
type RunResult struct {
	RunID                string                    `json:"run_id"`
	ModelType            string                    `json:"model_type"`
	BestModelName        string                    `json:"best_model_name"`
	ModelPath            string                    `json:"model_path"`
	ArtifactsPath        string                    `json:"artifacts_path"`
	PreprocessingPath    string                    `json:"preprocessing_path"`
	Metrics              map[string]any            `json:"metrics"`
	TaskType             string                    `json:"task_type"`
	DataType             string                    `json:"data_type"`
	FeatureCount         int                       `json:"feature_count"`
	SelectedFeatureCount int                       `json:"selected_feature_count,omitempty"`
	ConfusionMatrix      *evaluate.ConfusionMatrix `json:"confusion_matrix,omitempty"`
	FeatureImportance    []evaluate.FeatureWeight  `json:"feature_importance,omitempty"`
	TrainedModels        []string                  `json:"trained_models"`
	EvaluationResults    map[string]EvalSummary    `json:"evaluation_results"`
	TunedModel           *tuner.Outcome            `json:"tuned_model,omitempty"`
	SelectedFeatures     []string                  `json:"selected_features,omitempty"`
}
