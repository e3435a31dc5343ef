// Package tuner searches the selected model's hyperparameter space with
// grid, random, or bayesian strategies, scoring assignments by k-fold
// cross-validation on the training partition.
package tuner

import (
	"fmt"
	"math/rand"
)

// Method selects the search strategy.
type Method string

const (
	MethodGrid     Method = "grid"
	MethodRandom   Method = "random"
	MethodBayesian Method = "bayesian"
)

// ParseMethod validates a search method string. Empty defaults to grid.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case "":
		return MethodGrid, nil
	case MethodGrid, MethodRandom, MethodBayesian:
		return Method(s), nil
	default:
		return "", fmt.Errorf("unknown search method %q", s)
	}
}

// ParamRange describes one tunable parameter: either an explicit value list
// or an arithmetic Min/Max/Step range. Integer rounds sampled values.
type ParamRange struct {
	Name    string
	Values  []float64
	Min     float64
	Max     float64
	Step    float64
	Integer bool
}

// gridValues enumerates the range for grid search.
func (r ParamRange) gridValues() []float64 {
	if len(r.Values) > 0 {
		return r.Values
	}
	var out []float64
	for v := r.Min; v <= r.Max+1e-12; v += r.Step {
		out = append(out, v)
	}
	return out
}

// sample draws one value for random search.
func (r ParamRange) sample(rng *rand.Rand) float64 {
	if len(r.Values) > 0 {
		return r.Values[rng.Intn(len(r.Values))]
	}
	v := r.Min + rng.Float64()*(r.Max-r.Min)
	if r.Integer {
		return float64(int(v + 0.5))
	}
	return v
}

// clamp keeps a perturbed value inside the range, snapping list-valued
// parameters to the nearest declared value.
func (r ParamRange) clamp(v float64) float64 {
	if len(r.Values) > 0 {
		best, bestDist := r.Values[0], -1.0
		for _, c := range r.Values {
			d := v - c
			if d < 0 {
				d = -d
			}
			if bestDist < 0 || d < bestDist {
				best, bestDist = c, d
			}
		}
		return best
	}
	if v < r.Min {
		v = r.Min
	}
	if v > r.Max {
		v = r.Max
	}
	if r.Integer {
		return float64(int(v + 0.5))
	}
	return v
}

// span returns the width of the range, used to scale bayesian perturbation.
func (r ParamRange) span() float64 {
	if len(r.Values) > 0 {
		return r.Values[len(r.Values)-1] - r.Values[0]
	}
	return r.Max - r.Min
}

// SearchSpace returns the predefined parameter space for an algorithm.
// Unknown algorithms get an empty space and tuning becomes a no-op.
func SearchSpace(algorithm string) []ParamRange {
	switch algorithm {
	case "logistic_regression":
		return []ParamRange{
			{Name: "learning_rate", Values: []float64{0.01, 0.05, 0.1, 0.2}},
			{Name: "epochs", Min: 100, Max: 300, Step: 100, Integer: true},
		}
	case "decision_tree":
		return []ParamRange{
			{Name: "max_depth", Values: []float64{3, 5, 10, 15}, Integer: true},
			{Name: "min_samples_split", Values: []float64{2, 5, 10}, Integer: true},
			{Name: "min_samples_leaf", Values: []float64{1, 2, 4}, Integer: true},
		}
	case "random_forest":
		return []ParamRange{
			{Name: "n_estimators", Values: []float64{20, 50, 100}, Integer: true},
			{Name: "max_depth", Values: []float64{5, 10, 15}, Integer: true},
		}
	case "gradient_boosting":
		return []ParamRange{
			{Name: "n_estimators", Values: []float64{25, 50, 100}, Integer: true},
			{Name: "learning_rate", Values: []float64{0.05, 0.1, 0.2}},
			{Name: "max_depth", Values: []float64{2, 3, 4}, Integer: true},
		}
	case "svm":
		return []ParamRange{
			{Name: "learning_rate", Values: []float64{0.005, 0.01, 0.05}},
			{Name: "lambda", Values: []float64{1e-5, 1e-4, 1e-3}},
			{Name: "epochs", Values: []float64{50, 100, 200}, Integer: true},
		}
	case "knn":
		return []ParamRange{
			{Name: "k", Min: 3, Max: 11, Step: 2, Integer: true},
		}
	case "naive_bayes":
		return []ParamRange{
			{Name: "alpha", Values: []float64{0.1, 0.5, 1.0, 2.0}},
		}
	case "linear_regression":
		return []ParamRange{
			{Name: "ridge", Values: []float64{0, 0.001, 0.01, 0.1}},
		}
	default:
		return nil
	}
}
