package estimator

import (
	"fmt"
	"math"
)

// GradientBoostingRegressor boosts shallow regression trees on squared
// loss residuals.
type GradientBoostingRegressor struct {
	NEstimators  int
	LearningRate float64
	MaxDepth     int

	Initial float64
	Trees   []*DecisionTreeRegressor
}

// NewGradientBoostingRegressor creates a booster with the platform defaults.
func NewGradientBoostingRegressor(p Params) *GradientBoostingRegressor {
	return &GradientBoostingRegressor{
		NEstimators:  p.GetInt("n_estimators", 50),
		LearningRate: p.Get("learning_rate", 0.1),
		MaxDepth:     p.GetInt("max_depth", 3),
	}
}

// Fit boosts residuals starting from the target mean.
func (g *GradientBoostingRegressor) Fit(X [][]float64, y []float64) error {
	if err := checkMatrix(X, len(y)); err != nil {
		return err
	}
	var mean float64
	for _, v := range y {
		mean += v
	}
	g.Initial = mean / float64(len(y))

	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = g.Initial
	}

	g.Trees = make([]*DecisionTreeRegressor, 0, g.NEstimators)
	residual := make([]float64, len(y))
	for t := 0; t < g.NEstimators; t++ {
		for i := range y {
			residual[i] = y[i] - pred[i]
		}
		tree := NewDecisionTreeRegressor(Params{
			"max_depth": float64(g.MaxDepth),
			"seed":      float64(42 + t),
		})
		if err := tree.Fit(X, residual); err != nil {
			return err
		}
		update, err := tree.Predict(X)
		if err != nil {
			return err
		}
		for i := range pred {
			pred[i] += g.LearningRate * update[i]
		}
		g.Trees = append(g.Trees, tree)
	}
	return nil
}

// Predict sums the initial value and the shrunken tree outputs.
func (g *GradientBoostingRegressor) Predict(X [][]float64) ([]float64, error) {
	if len(g.Trees) == 0 {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(X))
	for i := range out {
		out[i] = g.Initial
	}
	for _, tree := range g.Trees {
		update, err := tree.Predict(X)
		if err != nil {
			return nil, err
		}
		for i := range out {
			out[i] += g.LearningRate * update[i]
		}
	}
	return out, nil
}

// FeatureImportance averages the member trees' importances.
func (g *GradientBoostingRegressor) FeatureImportance() []float64 {
	if len(g.Trees) == 0 {
		return nil
	}
	var avg []float64
	for _, tree := range g.Trees {
		imp := tree.FeatureImportance()
		if avg == nil {
			avg = make([]float64, len(imp))
		}
		for j, v := range imp {
			avg[j] += v
		}
	}
	return absNormalize(avg)
}

// GradientBoostingClassifier boosts logistic loss one-vs-rest: one additive
// model per class, trees fitted to probability residuals.
type GradientBoostingClassifier struct {
	NEstimators  int
	LearningRate float64
	MaxDepth     int

	Classes  []string
	Initials []float64
	Trees    [][]*DecisionTreeRegressor // per class
}

// NewGradientBoostingClassifier creates a booster with the platform
// defaults.
func NewGradientBoostingClassifier(p Params) *GradientBoostingClassifier {
	return &GradientBoostingClassifier{
		NEstimators:  p.GetInt("n_estimators", 50),
		LearningRate: p.Get("learning_rate", 0.1),
		MaxDepth:     p.GetInt("max_depth", 3),
	}
}

// Fit boosts one binary logistic model per class.
func (g *GradientBoostingClassifier) Fit(X [][]float64, y []string) error {
	if err := checkMatrix(X, len(y)); err != nil {
		return err
	}
	g.Classes = uniqueClasses(y)
	if len(g.Classes) < 2 {
		return fmt.Errorf("need at least 2 classes, got %d", len(g.Classes))
	}

	g.Initials = make([]float64, len(g.Classes))
	g.Trees = make([][]*DecisionTreeRegressor, len(g.Classes))

	for c, class := range g.Classes {
		target := make([]float64, len(y))
		var positives float64
		for i, label := range y {
			if label == class {
				target[i] = 1
				positives++
			}
		}
		// Log-odds prior, clamped away from degenerate classes.
		prior := positives / float64(len(y))
		if prior <= 0 {
			prior = 1e-6
		}
		if prior >= 1 {
			prior = 1 - 1e-6
		}
		g.Initials[c] = math.Log(prior / (1 - prior))

		score := make([]float64, len(y))
		for i := range score {
			score[i] = g.Initials[c]
		}
		residual := make([]float64, len(y))
		for t := 0; t < g.NEstimators; t++ {
			for i := range y {
				residual[i] = target[i] - sigmoid(score[i])
			}
			tree := NewDecisionTreeRegressor(Params{
				"max_depth": float64(g.MaxDepth),
				"seed":      float64(42 + t),
			})
			if err := tree.Fit(X, residual); err != nil {
				return err
			}
			update, err := tree.Predict(X)
			if err != nil {
				return err
			}
			for i := range score {
				score[i] += g.LearningRate * update[i]
			}
			g.Trees[c] = append(g.Trees[c], tree)
		}
	}
	return nil
}

func (g *GradientBoostingClassifier) classScores(X [][]float64) ([][]float64, error) {
	scores := make([][]float64, len(X))
	for i := range scores {
		scores[i] = make([]float64, len(g.Classes))
	}
	for c := range g.Classes {
		for i := range X {
			scores[i][c] = g.Initials[c]
		}
		for _, tree := range g.Trees[c] {
			update, err := tree.Predict(X)
			if err != nil {
				return nil, err
			}
			for i := range X {
				scores[i][c] += g.LearningRate * update[i]
			}
		}
	}
	return scores, nil
}

// Predict returns the class with the highest boosted score.
func (g *GradientBoostingClassifier) Predict(X [][]float64) ([]string, error) {
	if len(g.Trees) == 0 {
		return nil, ErrNotFitted
	}
	scores, err := g.classScores(X)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(X))
	for i := range X {
		best, bestScore := "", math.Inf(-1)
		for c, class := range g.Classes {
			if scores[i][c] > bestScore {
				best, bestScore = class, scores[i][c]
			}
		}
		out[i] = best
	}
	return out, nil
}

// PredictProba returns normalized per-class sigmoid scores.
func (g *GradientBoostingClassifier) PredictProba(X [][]float64) ([]map[string]float64, error) {
	if len(g.Trees) == 0 {
		return nil, ErrNotFitted
	}
	scores, err := g.classScores(X)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]float64, len(X))
	for i := range X {
		probs := make(map[string]float64, len(g.Classes))
		var total float64
		for c, class := range g.Classes {
			p := sigmoid(scores[i][c])
			probs[class] = p
			total += p
		}
		if total > 0 {
			for class := range probs {
				probs[class] /= total
			}
		}
		out[i] = probs
	}
	return out, nil
}

// FeatureImportance averages importances over every boosted tree.
func (g *GradientBoostingClassifier) FeatureImportance() []float64 {
	var avg []float64
	for _, trees := range g.Trees {
		for _, tree := range trees {
			imp := tree.FeatureImportance()
			if avg == nil {
				avg = make([]float64, len(imp))
			}
			for j, v := range imp {
				avg[j] += v
			}
		}
	}
	return absNormalize(avg)
}
