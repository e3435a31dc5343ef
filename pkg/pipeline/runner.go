package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/artifacts"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/automlerrors"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/dataset"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/estimator"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/evaluate"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/featsel"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/logging"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/preprocess"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/tuner"
)

// Stage names reported through the progress callback.
const (
	StageSampling         = "sampling"
	StagePreprocessing    = "preprocessing"
	StageFeatureSelection = "feature_selection"
	StageTraining         = "training"
	StageEvaluating       = "evaluating"
	StageTuning           = "tuning"
	StagePersisting       = "persisting"
)

// ProgressFunc receives stage advances. May be nil.
type ProgressFunc func(stage string, progress int)

// Runner executes pipeline runs. Runs share no mutable state; each gets its
// own artifact directory.
type Runner struct {
	TrainWorkers int

	dispatcher *preprocess.Dispatcher
	store      *artifacts.Manager
	log        *logging.Logger
}

// NewRunner creates a runner persisting artifacts under artifactsDir.
func NewRunner(store *artifacts.Manager, trainWorkers int, log *logging.Logger) *Runner {
	if trainWorkers < 1 {
		trainWorkers = 1
	}
	return &Runner{
		TrainWorkers: trainWorkers,
		dispatcher:   preprocess.NewDispatcher(log),
		store:        store,
		log:          log.Component("pipeline"),
	}
}

func report(progress ProgressFunc, stage string, pct int) {
	if progress != nil {
		progress(stage, pct)
	}
}

func cancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Run executes the full chain for one dataset and config. Cancellation is
// cooperative: the context is checked at every stage boundary.
func (r *Runner) Run(ctx context.Context, ds *dataset.Dataset, cfg Config, progress ProgressFunc) (*RunResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ds.Validate(); err != nil {
		return nil, automlerrors.NewValidationError("dataset", err.Error())
	}
	task, _ := preprocess.ParseTaskType(cfg.TaskType)
	override, _ := preprocess.ParseDataType(cfg.DataTypeOverride)

	// Sampling.
	if err := cancelled(ctx); err != nil {
		return nil, err
	}
	report(progress, StageSampling, 10)
	stratify := ""
	if task == preprocess.TaskClassification {
		stratify = cfg.TargetColumn
	}
	sampled, err := dataset.NewSampler(cfg.MaxSampleRows).Sample(ds, stratify)
	if err != nil {
		return nil, automlerrors.NewPipelineError(StageSampling, err)
	}
	if sampled.RowCount != ds.RowCount {
		r.log.Info("dataset sampled",
			logging.Int("original_rows", ds.RowCount),
			logging.Int("sampled_rows", sampled.RowCount))
	}

	// Preprocessing.
	if err := cancelled(ctx); err != nil {
		return nil, err
	}
	report(progress, StagePreprocessing, 25)
	splits, arts, err := r.dispatcher.Process(sampled, cfg.TargetColumn, task, override)
	if err != nil {
		return nil, err
	}
	featureCount := len(splits.FeatureNames)

	// Feature selection.
	if cfg.FeatureSelection {
		if err := cancelled(ctx); err != nil {
			return nil, err
		}
		report(progress, StageFeatureSelection, 35)
		sel, err := featsel.New(r.log).Select(splits.XTrain, splits.YTrain, splits.FeatureNames)
		if err != nil {
			return nil, automlerrors.NewPipelineError(StageFeatureSelection, err)
		}
		splits.XTrain = preprocess.SelectColumns(splits.XTrain, sel.Indices)
		splits.XVal = preprocess.SelectColumns(splits.XVal, sel.Indices)
		splits.XTest = preprocess.SelectColumns(splits.XTest, sel.Indices)
		splits.FeatureNames = sel.Names
		arts.SelectedIndices = sel.Indices
		arts.SelectedNames = sel.Names
	}

	// Training and evaluation.
	if err := cancelled(ctx); err != nil {
		return nil, err
	}
	report(progress, StageTraining, 50)

	var outcome *runOutcome
	if task == preprocess.TaskClassification {
		outcome, err = r.runClassification(ctx, cfg, splits, arts, progress)
	} else {
		outcome, err = r.runRegression(ctx, cfg, splits, arts, progress)
	}
	if err != nil {
		return nil, err
	}

	// Persistence.
	if err := cancelled(ctx); err != nil {
		return nil, err
	}
	report(progress, StagePersisting, 90)

	meta := &artifacts.FeatureMetadata{
		ModelName:    outcome.bestName,
		TaskType:     string(task),
		DataType:     string(arts.DataType),
		TargetColumn: cfg.TargetColumn,
		FeatureNames: arts.FeatureNames,
		FeatureCount: featureCount,
	}
	if len(arts.SelectedNames) > 0 {
		meta.SelectedFeatures = arts.SelectedNames
		meta.SelectedFeatureCount = len(arts.SelectedNames)
	}

	saved, err := r.store.Save(outcome.bestName, outcome.bestModel, arts, meta, artifacts.SanitizeMetrics(outcome.bestResult.Metrics))
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		RunID:             saved.RunID,
		ModelType:         outcome.bestName,
		BestModelName:     outcome.bestName,
		ModelPath:         saved.ModelPath,
		ArtifactsPath:     saved.ArtifactsPath,
		PreprocessingPath: saved.PreprocessingPath,
		Metrics:           artifacts.SanitizeMetrics(outcome.bestResult.Metrics),
		TaskType:          string(task),
		DataType:          string(arts.DataType),
		FeatureCount:      featureCount,
		ConfusionMatrix:   outcome.bestResult.ConfusionMatrix,
		FeatureImportance: outcome.bestResult.FeatureImportance,
		TrainedModels:     outcome.trainedNames,
		EvaluationResults: outcome.evaluations,
		TunedModel:        outcome.tuned,
	}
	if len(arts.SelectedNames) > 0 {
		result.SelectedFeatureCount = len(arts.SelectedNames)
		result.SelectedFeatures = arts.SelectedNames
	}
	r.log.Info("run complete",
		logging.RunID(saved.RunID),
		logging.String("best_model", outcome.bestName))
	return result, nil
}

// runOutcome carries the training/evaluation/selection/tuning results back
// to the persistence stage.
type runOutcome struct {
	bestName     string
	bestModel    any
	bestResult   *evaluate.Result
	trainedNames []string
	evaluations  map[string]EvalSummary
	tuned        *tuner.Outcome
}

func (r *Runner) runClassification(ctx context.Context, cfg Config, splits *preprocess.Splits, arts *preprocess.Artifacts, progress ProgressFunc) (*runOutcome, error) {
	specs := estimator.ClassificationCatalog(arts.DataType == preprocess.DataTypeText)

	type trained struct {
		idx   int
		model estimator.Classifier
	}
	models := make([]*trained, len(specs))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, r.TrainWorkers)

	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec estimator.ClassifierSpec) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			defer func() {
				if p := recover(); p != nil {
					r.logCandidateFailure(spec.Name, fmt.Errorf("panic: %v", p))
				}
			}()
			model := spec.New(estimator.Params{})
			if err := model.Fit(splits.XTrain, splits.YTrain.Labels); err != nil {
				r.logCandidateFailure(spec.Name, err)
				return
			}
			mu.Lock()
			models[i] = &trained{idx: i, model: model}
			mu.Unlock()
		}(i, spec)
	}
	wg.Wait()

	if err := cancelled(ctx); err != nil {
		return nil, err
	}
	report(progress, StageEvaluating, 70)

	out := &runOutcome{evaluations: make(map[string]EvalSummary)}
	var candidates []evaluate.Candidate
	results := make(map[string]*evaluate.Result)
	modelsByName := make(map[string]estimator.Classifier)
	for i, spec := range specs {
		if models[i] == nil {
			continue
		}
		res, err := evaluate.EvaluateClassifier(models[i].model, splits.XTest, splits.YTest.Labels, splits.FeatureNames)
		if err != nil {
			r.logCandidateFailure(spec.Name, err)
			continue
		}
		out.trainedNames = append(out.trainedNames, spec.Name)
		out.evaluations[spec.Name] = EvalSummary{Metrics: artifacts.SanitizeMetrics(res.Metrics)}
		results[spec.Name] = res
		modelsByName[spec.Name] = models[i].model
		candidates = append(candidates, evaluate.Candidate{Name: spec.Name, CatalogIndex: i, Result: res})
	}
	if len(candidates) == 0 {
		return nil, automlerrors.NewPipelineError(StageTraining, fmt.Errorf("all candidate models failed to train"))
	}

	best, err := evaluate.SelectBest(preprocess.TaskClassification, candidates)
	if err != nil {
		return nil, automlerrors.NewPipelineError(StageEvaluating, err)
	}
	out.bestName = best.Name
	out.bestModel = modelsByName[best.Name]
	out.bestResult = results[best.Name]

	if cfg.Tuning {
		if err := cancelled(ctx); err != nil {
			return nil, err
		}
		report(progress, StageTuning, 80)
		method, _ := tuner.ParseMethod(cfg.SearchMethod)
		var spec estimator.ClassifierSpec
		for i := range specs {
			if specs[i].Name == best.Name {
				spec = specs[i]
			}
		}
		model, outcome, err := tuner.New(method, r.log).TuneClassifier(spec, splits.XTrain, splits.YTrain.Labels)
		if err != nil {
			return nil, automlerrors.NewPipelineError(StageTuning, err)
		}
		res, err := evaluate.EvaluateClassifier(model, splits.XTest, splits.YTest.Labels, splits.FeatureNames)
		if err != nil {
			return nil, automlerrors.NewPipelineError(StageTuning, err)
		}
		out.bestModel = model
		out.bestResult = res
		out.tuned = outcome
	}
	return out, nil
}

func (r *Runner) runRegression(ctx context.Context, cfg Config, splits *preprocess.Splits, arts *preprocess.Artifacts, progress ProgressFunc) (*runOutcome, error) {
	specs := estimator.RegressionCatalog()

	type trained struct {
		idx   int
		model estimator.Regressor
	}
	models := make([]*trained, len(specs))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, r.TrainWorkers)

	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec estimator.RegressorSpec) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			defer func() {
				if p := recover(); p != nil {
					r.logCandidateFailure(spec.Name, fmt.Errorf("panic: %v", p))
				}
			}()
			model := spec.New(estimator.Params{})
			if err := model.Fit(splits.XTrain, splits.YTrain.Values); err != nil {
				r.logCandidateFailure(spec.Name, err)
				return
			}
			mu.Lock()
			models[i] = &trained{idx: i, model: model}
			mu.Unlock()
		}(i, spec)
	}
	wg.Wait()

	if err := cancelled(ctx); err != nil {
		return nil, err
	}
	report(progress, StageEvaluating, 70)

	out := &runOutcome{evaluations: make(map[string]EvalSummary)}
	var candidates []evaluate.Candidate
	results := make(map[string]*evaluate.Result)
	modelsByName := make(map[string]estimator.Regressor)
	for i, spec := range specs {
		if models[i] == nil {
			continue
		}
		res, err := evaluate.EvaluateRegressor(models[i].model, splits.XTest, splits.YTest.Values, splits.FeatureNames)
		if err != nil {
			r.logCandidateFailure(spec.Name, err)
			continue
		}
		out.trainedNames = append(out.trainedNames, spec.Name)
		out.evaluations[spec.Name] = EvalSummary{Metrics: artifacts.SanitizeMetrics(res.Metrics)}
		results[spec.Name] = res
		modelsByName[spec.Name] = models[i].model
		candidates = append(candidates, evaluate.Candidate{Name: spec.Name, CatalogIndex: i, Result: res})
	}
	if len(candidates) == 0 {
		return nil, automlerrors.NewPipelineError(StageTraining, fmt.Errorf("all candidate models failed to train"))
	}

	best, err := evaluate.SelectBest(preprocess.TaskRegression, candidates)
	if err != nil {
		return nil, automlerrors.NewPipelineError(StageEvaluating, err)
	}
	out.bestName = best.Name
	out.bestModel = modelsByName[best.Name]
	out.bestResult = results[best.Name]

	if cfg.Tuning {
		if err := cancelled(ctx); err != nil {
			return nil, err
		}
		report(progress, StageTuning, 80)
		method, _ := tuner.ParseMethod(cfg.SearchMethod)
		var spec estimator.RegressorSpec
		for i := range specs {
			if specs[i].Name == best.Name {
				spec = specs[i]
			}
		}
		model, outcome, err := tuner.New(method, r.log).TuneRegressor(spec, splits.XTrain, splits.YTrain.Values)
		if err != nil {
			return nil, automlerrors.NewPipelineError(StageTuning, err)
		}
		res, err := evaluate.EvaluateRegressor(model, splits.XTest, splits.YTest.Values, splits.FeatureNames)
		if err != nil {
			return nil, automlerrors.NewPipelineError(StageTuning, err)
		}
		out.bestModel = model
		out.bestResult = res
		out.tuned = outcome
	}
	return out, nil
}

// logCandidateFailure records a recovered single-candidate failure; the run
// continues with the surviving candidates.
func (r *Runner) logCandidateFailure(name string, err error) {
	cerr := &automlerrors.CandidateTrainingError{Model: name, Cause: err}
	r.log.Warn("candidate excluded", logging.String("model", name), logging.Err(cerr))
}
