package evaluate

import (
	"fmt"

	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/preprocess"
)

// Candidate pairs a model name with its evaluation. CatalogIndex records the
// declaration position in the estimator catalog and is the final tie-break,
// keeping selection independent of training completion order.
type Candidate struct {
	Name         string
	CatalogIndex int
	Result       *Result
}

// SelectBest deterministically picks the winning candidate.
// Classification ranks by weighted F1, then accuracy, then weighted
// precision; regression by R², then MAE ascending. Exact ties resolve by
// catalog order.
func SelectBest(task preprocess.TaskType, candidates []Candidate) (Candidate, error) {
	if len(candidates) == 0 {
		return Candidate{}, fmt.Errorf("no surviving candidates to select from")
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if better(task, c, best) {
			best = c
		}
	}
	return best, nil
}

func better(task preprocess.TaskType, a, b Candidate) bool {
	if task == preprocess.TaskRegression {
		if a.Result.Metrics[MetricR2] != b.Result.Metrics[MetricR2] {
			return a.Result.Metrics[MetricR2] > b.Result.Metrics[MetricR2]
		}
		if a.Result.Metrics[MetricMAE] != b.Result.Metrics[MetricMAE] {
			return a.Result.Metrics[MetricMAE] < b.Result.Metrics[MetricMAE]
		}
		return a.CatalogIndex < b.CatalogIndex
	}

	for _, key := range []string{MetricF1, MetricAccuracy, MetricPrecision} {
		if a.Result.Metrics[key] != b.Result.Metrics[key] {
			return a.Result.Metrics[key] > b.Result.Metrics[key]
		}
	}
	return a.CatalogIndex < b.CatalogIndex
}
