// Package estimator implements the baseline model catalog the trainer fits
// for every run. All estimators keep exported state so the fitted model can
// be serialized and reloaded for inference.
package estimator

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Classifier is the common contract for classification estimators.
type Classifier interface {
	Fit(X [][]float64, y []string) error
	Predict(X [][]float64) ([]string, error)
}

// Regressor is the common contract for regression estimators.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) ([]float64, error)
}

// ProbabilityClassifier is implemented by classifiers that expose class
// probabilities; required for AUC.
type ProbabilityClassifier interface {
	PredictProba(X [][]float64) ([]map[string]float64, error)
}

// FeatureImporter is implemented by estimators that expose a per-feature
// importance ranking (tree impurity decrease or linear coefficients).
type FeatureImporter interface {
	FeatureImportance() []float64
}

// Params carries hyperparameter assignments by name. Missing keys fall back
// to the estimator's default.
type Params map[string]float64

// Get returns the named parameter or the fallback.
func (p Params) Get(name string, fallback float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return fallback
}

// GetInt returns the named parameter rounded to int, or the fallback.
func (p Params) GetInt(name string, fallback int) int {
	if v, ok := p[name]; ok {
		return int(math.Round(v))
	}
	return fallback
}

// ClassifierSpec is one classification catalog entry. Catalog order is the
// deterministic final tie-break during model selection.
type ClassifierSpec struct {
	Name string
	New  func(p Params) Classifier
}

// RegressorSpec is one regression catalog entry.
type RegressorSpec struct {
	Name string
	New  func(p Params) Regressor
}

// ClassificationCatalog returns the baseline classifiers in fixed order.
// The naive bayes candidate only joins text runs, where its non-negative
// count assumption holds.
func ClassificationCatalog(textRun bool) []ClassifierSpec {
	specs := []ClassifierSpec{
		{Name: "logistic_regression", New: func(p Params) Classifier { return NewLogisticRegression(p) }},
		{Name: "decision_tree", New: func(p Params) Classifier { return NewDecisionTreeClassifier(p) }},
		{Name: "random_forest", New: func(p Params) Classifier { return NewRandomForestClassifier(p) }},
		{Name: "gradient_boosting", New: func(p Params) Classifier { return NewGradientBoostingClassifier(p) }},
		{Name: "svm", New: func(p Params) Classifier { return NewLinearSVM(p) }},
		{Name: "knn", New: func(p Params) Classifier { return NewKNNClassifier(p) }},
	}
	if textRun {
		specs = append(specs, ClassifierSpec{Name: "naive_bayes", New: func(p Params) Classifier { return NewMultinomialNB(p) }})
	}
	return specs
}

// RegressionCatalog returns the baseline regressors in fixed order.
func RegressionCatalog() []RegressorSpec {
	return []RegressorSpec{
		{Name: "linear_regression", New: func(p Params) Regressor { return NewLinearRegression(p) }},
		{Name: "decision_tree", New: func(p Params) Regressor { return NewDecisionTreeRegressor(p) }},
		{Name: "random_forest", New: func(p Params) Regressor { return NewRandomForestRegressor(p) }},
		{Name: "gradient_boosting", New: func(p Params) Regressor { return NewGradientBoostingRegressor(p) }},
		{Name: "knn", New: func(p Params) Regressor { return NewKNNRegressor(p) }},
	}
}

// ErrNotFitted is returned when Predict runs before Fit.
var ErrNotFitted = errors.New("estimator is not fitted")

func checkMatrix(X [][]float64, y int) error {
	if len(X) == 0 {
		return fmt.Errorf("empty feature matrix")
	}
	if y >= 0 && len(X) != y {
		return fmt.Errorf("feature matrix has %d rows but target has %d", len(X), y)
	}
	width := len(X[0])
	if width == 0 {
		return fmt.Errorf("feature matrix has zero width")
	}
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("row %d has %d features, expected %d", i, len(row), width)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("row %d feature %d is not finite", i, j)
			}
		}
	}
	return nil
}

func uniqueClasses(y []string) []string {
	seen := make(map[string]bool)
	var classes []string
	for _, label := range y {
		if !seen[label] {
			seen[label] = true
			classes = append(classes, label)
		}
	}
	sort.Strings(classes)
	return classes
}

func argmax(scores map[string]float64, order []string) string {
	best, bestScore := "", math.Inf(-1)
	for _, class := range order {
		if s := scores[class]; s > bestScore {
			best, bestScore = class, s
		}
	}
	return best
}
