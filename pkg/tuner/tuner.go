package tuner

import (
	"fmt"
	"math/rand"

	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/estimator"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/evaluate"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/logging"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/preprocess"
)

const (
	defaultBudget = 20
	defaultFolds  = 5
	warmupDraws   = 5
	tunerSeed     = 99
)

// Outcome reports the best assignment a search found.
type Outcome struct {
	ModelName  string             `json:"model_name"`
	BestParams map[string]float64 `json:"best_params"`
	BestScore  float64            `json:"best_score"`
}

// Tuner searches the selected estimator class' predefined space. The
// untuned default assignment is always evaluated first, so the returned
// score never falls below the baseline on the same folds.
type Tuner struct {
	Method Method
	Budget int
	Folds  int

	log *logging.Logger
}

// New creates a tuner with the platform budget and fold defaults.
func New(method Method, log *logging.Logger) *Tuner {
	return &Tuner{
		Method: method,
		Budget: defaultBudget,
		Folds:  defaultFolds,
		log:    log.Component("tuner"),
	}
}

// scoreFunc evaluates one parameter assignment by cross-validation and
// returns the primary metric mean.
type scoreFunc func(p estimator.Params) (float64, error)

// TuneClassifier searches the space of the named classifier and returns the
// winning refit model plus the search outcome.
func (t *Tuner) TuneClassifier(spec estimator.ClassifierSpec, X [][]float64, y []string) (estimator.Classifier, *Outcome, error) {
	folds, err := evaluate.KFold(len(X), t.Folds)
	if err != nil {
		return nil, nil, err
	}
	score := func(p estimator.Params) (float64, error) {
		var total float64
		for held := range folds {
			trainIdx, testIdx := evaluate.TrainTestFold(folds, held)
			model := spec.New(p)
			if err := model.Fit(pick(X, trainIdx), pickStr(y, trainIdx)); err != nil {
				return 0, err
			}
			pred, err := model.Predict(pick(X, testIdx))
			if err != nil {
				return 0, err
			}
			res, err := evaluate.ClassificationMetrics(pickStr(y, testIdx), pred)
			if err != nil {
				return 0, err
			}
			total += res.Metrics[evaluate.PrimaryMetric(preprocess.TaskClassification)]
		}
		return total / float64(len(folds)), nil
	}

	best, err := t.search(spec.Name, score)
	if err != nil {
		return nil, nil, err
	}
	model := spec.New(best.params)
	if err := model.Fit(X, y); err != nil {
		return nil, nil, err
	}
	return model, &Outcome{ModelName: spec.Name, BestParams: best.params, BestScore: best.score}, nil
}

// TuneRegressor searches the space of the named regressor.
func (t *Tuner) TuneRegressor(spec estimator.RegressorSpec, X [][]float64, y []float64) (estimator.Regressor, *Outcome, error) {
	folds, err := evaluate.KFold(len(X), t.Folds)
	if err != nil {
		return nil, nil, err
	}
	score := func(p estimator.Params) (float64, error) {
		var total float64
		for held := range folds {
			trainIdx, testIdx := evaluate.TrainTestFold(folds, held)
			model := spec.New(p)
			if err := model.Fit(pick(X, trainIdx), pickFloat(y, trainIdx)); err != nil {
				return 0, err
			}
			pred, err := model.Predict(pick(X, testIdx))
			if err != nil {
				return 0, err
			}
			res, err := evaluate.RegressionMetrics(pickFloat(y, testIdx), pred)
			if err != nil {
				return 0, err
			}
			total += res.Metrics[evaluate.MetricR2]
		}
		return total / float64(len(folds)), nil
	}

	best, err := t.search(spec.Name, score)
	if err != nil {
		return nil, nil, err
	}
	model := spec.New(best.params)
	if err := model.Fit(X, y); err != nil {
		return nil, nil, err
	}
	return model, &Outcome{ModelName: spec.Name, BestParams: best.params, BestScore: best.score}, nil
}

type evaluated struct {
	params estimator.Params
	score  float64
}

// search runs the configured strategy over the algorithm's space. The first
// evaluation is always the default (empty) assignment.
func (t *Tuner) search(algorithm string, score scoreFunc) (*evaluated, error) {
	space := SearchSpace(algorithm)

	baseline, err := score(estimator.Params{})
	if err != nil {
		return nil, fmt.Errorf("baseline cross-validation failed: %w", err)
	}
	best := &evaluated{params: estimator.Params{}, score: baseline}
	if len(space) == 0 {
		return best, nil
	}

	var candidates []estimator.Params
	switch t.Method {
	case MethodGrid:
		candidates = gridCandidates(space)
	case MethodRandom:
		candidates = randomCandidates(space, t.Budget)
	case MethodBayesian:
		return t.bayesian(space, score, best)
	default:
		return nil, fmt.Errorf("unknown search method %q", t.Method)
	}

	for _, p := range candidates {
		s, err := score(p)
		if err != nil {
			t.log.Warn("tuning candidate failed", logging.String("algorithm", algorithm), logging.Err(err))
			continue
		}
		if s > best.score {
			best = &evaluated{params: p, score: s}
		}
	}
	t.log.Info("tuning complete",
		logging.String("algorithm", algorithm),
		logging.String("method", string(t.Method)),
		logging.Float("baseline_score", baseline),
		logging.Float("best_score", best.score))
	return best, nil
}

func gridCandidates(space []ParamRange) []estimator.Params {
	out := []estimator.Params{{}}
	for _, r := range space {
		var next []estimator.Params
		for _, base := range out {
			for _, v := range r.gridValues() {
				p := estimator.Params{}
				for k, val := range base {
					p[k] = val
				}
				p[r.Name] = v
				next = append(next, p)
			}
		}
		out = next
	}
	return out
}

func randomCandidates(space []ParamRange, budget int) []estimator.Params {
	rng := rand.New(rand.NewSource(tunerSeed))
	out := make([]estimator.Params, 0, budget)
	for i := 0; i < budget; i++ {
		p := estimator.Params{}
		for _, r := range space {
			p[r.Name] = r.sample(rng)
		}
		out = append(out, p)
	}
	return out
}

// bayesian runs a sequential history-informed search: random warm-up draws,
// then proposals perturbed around the incumbent with a radius that shrinks
// as the budget is spent.
func (t *Tuner) bayesian(space []ParamRange, score scoreFunc, best *evaluated) (*evaluated, error) {
	rng := rand.New(rand.NewSource(tunerSeed))

	evalOne := func(p estimator.Params) {
		s, err := score(p)
		if err != nil {
			t.log.Warn("tuning candidate failed", logging.Err(err))
			return
		}
		if s > best.score {
			best = &evaluated{params: p, score: s}
		}
	}

	for i := 0; i < warmupDraws && i < t.Budget; i++ {
		p := estimator.Params{}
		for _, r := range space {
			p[r.Name] = r.sample(rng)
		}
		evalOne(p)
	}

	for i := warmupDraws; i < t.Budget; i++ {
		radius := 0.5 * (1 - float64(i)/float64(t.Budget))
		p := estimator.Params{}
		for _, r := range space {
			center, ok := best.params[r.Name]
			if !ok {
				center = r.sample(rng)
			}
			offset := (rng.Float64()*2 - 1) * radius * r.span()
			p[r.Name] = r.clamp(center + offset)
		}
		evalOne(p)
	}
	return best, nil
}

func pick(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}

func pickStr(y []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}

func pickFloat(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}
