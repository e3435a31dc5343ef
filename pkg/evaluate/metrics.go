// Package evaluate computes candidate metrics on the held-out test
// partition and deterministically selects the winning model.
package evaluate

import (
	"fmt"
	"math"
	"sort"

	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/estimator"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/preprocess"
)

// Primary metric keys used for candidate ranking.
const (
	MetricF1        = "f1_score"
	MetricAccuracy  = "accuracy"
	MetricPrecision = "precision"
	MetricRecall    = "recall"
	MetricAUC       = "auc"
	MetricR2        = "r2_score"
	MetricMSE       = "mse"
	MetricRMSE      = "rmse"
	MetricMAE       = "mae"
	MetricMAPE      = "mape"
	MetricMaxError  = "max_error"
)

// ConfusionMatrix counts predictions per true/predicted label pair. Rows are
// the true labels, columns the predicted ones, in Labels order.
type ConfusionMatrix struct {
	Matrix [][]int  `json:"matrix"`
	Labels []string `json:"labels"`
}

// FeatureWeight is one entry of a feature importance ranking.
type FeatureWeight struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Result holds one candidate's evaluation.
type Result struct {
	Metrics           map[string]float64 `json:"metrics"`
	ConfusionMatrix   *ConfusionMatrix   `json:"confusion_matrix,omitempty"`
	FeatureImportance []FeatureWeight    `json:"feature_importance,omitempty"`
}

// ClassificationMetrics computes accuracy and weighted precision, recall,
// and F1 over the observed label set, plus the confusion matrix.
func ClassificationMetrics(yTrue, yPred []string) (*Result, error) {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("prediction length %d does not match truth length %d", len(yPred), len(yTrue))
	}

	labelSet := make(map[string]bool)
	for _, l := range yTrue {
		labelSet[l] = true
	}
	for _, l := range yPred {
		labelSet[l] = true
	}
	labels := make([]string, 0, len(labelSet))
	for l := range labelSet {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	labelIdx := make(map[string]int, len(labels))
	for i, l := range labels {
		labelIdx[l] = i
	}

	cm := &ConfusionMatrix{Labels: labels, Matrix: make([][]int, len(labels))}
	for i := range cm.Matrix {
		cm.Matrix[i] = make([]int, len(labels))
	}
	correct := 0
	for i := range yTrue {
		cm.Matrix[labelIdx[yTrue[i]]][labelIdx[yPred[i]]]++
		if yTrue[i] == yPred[i] {
			correct++
		}
	}

	// Weighted averages: each class contributes in proportion to its
	// support in the truth.
	var precision, recall, f1 float64
	total := float64(len(yTrue))
	for i := range labels {
		tp := float64(cm.Matrix[i][i])
		var fp, fn float64
		for j := range labels {
			if j != i {
				fp += float64(cm.Matrix[j][i])
				fn += float64(cm.Matrix[i][j])
			}
		}
		support := tp + fn
		if support == 0 {
			continue
		}
		var p, r float64
		if tp+fp > 0 {
			p = tp / (tp + fp)
		}
		if tp+fn > 0 {
			r = tp / (tp + fn)
		}
		var f float64
		if p+r > 0 {
			f = 2 * p * r / (p + r)
		}
		w := support / total
		precision += w * p
		recall += w * r
		f1 += w * f
	}

	return &Result{
		Metrics: map[string]float64{
			MetricAccuracy:  float64(correct) / total,
			MetricPrecision: precision,
			MetricRecall:    recall,
			MetricF1:        f1,
		},
		ConfusionMatrix: cm,
	}, nil
}

// RegressionMetrics computes R², MSE, RMSE, MAE, MAPE, and max error.
func RegressionMetrics(yTrue, yPred []float64) (*Result, error) {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("prediction length %d does not match truth length %d", len(yPred), len(yTrue))
	}

	var mean float64
	for _, v := range yTrue {
		mean += v
	}
	mean /= float64(len(yTrue))

	var ssRes, ssTot, absSum, mapeSum, maxErr float64
	mapeN := 0
	for i := range yTrue {
		d := yTrue[i] - yPred[i]
		ssRes += d * d
		t := yTrue[i] - mean
		ssTot += t * t
		ad := math.Abs(d)
		absSum += ad
		if ad > maxErr {
			maxErr = ad
		}
		if yTrue[i] != 0 {
			mapeSum += math.Abs(d / yTrue[i])
			mapeN++
		}
	}

	n := float64(len(yTrue))
	r2 := 0.0
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}
	mse := ssRes / n
	metrics := map[string]float64{
		MetricR2:       r2,
		MetricMSE:      mse,
		MetricRMSE:     math.Sqrt(mse),
		MetricMAE:      absSum / n,
		MetricMaxError: maxErr,
	}
	if mapeN > 0 {
		metrics[MetricMAPE] = mapeSum / float64(mapeN) * 100
	}
	return &Result{Metrics: metrics}, nil
}

// BinaryAUC computes the ROC AUC for a binary problem given the probability
// of the positive class. Returns false when the truth is single-class.
func BinaryAUC(yTrue []string, positive string, probs []float64) (float64, bool) {
	type scored struct {
		prob float64
		pos  bool
	}
	items := make([]scored, len(yTrue))
	var nPos, nNeg float64
	for i := range yTrue {
		pos := yTrue[i] == positive
		items[i] = scored{prob: probs[i], pos: pos}
		if pos {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0, false
	}
	sort.Slice(items, func(a, b int) bool { return items[a].prob < items[b].prob })

	// Rank-sum formulation with midranks for ties.
	var rankSum float64
	i := 0
	for i < len(items) {
		j := i
		for j < len(items) && items[j].prob == items[i].prob {
			j++
		}
		midrank := float64(i+j+1) / 2 // average of 1-based ranks i+1..j
		for k := i; k < j; k++ {
			if items[k].pos {
				rankSum += midrank
			}
		}
		i = j
	}
	return (rankSum - nPos*(nPos+1)/2) / (nPos * nNeg), true
}

// EvaluateClassifier scores one trained classifier on the test partition,
// attaching AUC for binary probability-capable models and importance when
// the model exposes it.
func EvaluateClassifier(model estimator.Classifier, X [][]float64, yTrue []string, featureNames []string) (*Result, error) {
	yPred, err := model.Predict(X)
	if err != nil {
		return nil, err
	}
	res, err := ClassificationMetrics(yTrue, yPred)
	if err != nil {
		return nil, err
	}

	if len(res.ConfusionMatrix.Labels) == 2 {
		if pc, ok := model.(estimator.ProbabilityClassifier); ok {
			if probs, err := pc.PredictProba(X); err == nil {
				positive := res.ConfusionMatrix.Labels[1]
				p := make([]float64, len(probs))
				for i := range probs {
					p[i] = probs[i][positive]
				}
				if auc, ok := BinaryAUC(yTrue, positive, p); ok {
					res.Metrics[MetricAUC] = auc
				}
			}
		}
	}

	res.FeatureImportance = importanceRanking(model, featureNames)
	return res, nil
}

// EvaluateRegressor scores one trained regressor on the test partition.
func EvaluateRegressor(model estimator.Regressor, X [][]float64, yTrue []float64, featureNames []string) (*Result, error) {
	yPred, err := model.Predict(X)
	if err != nil {
		return nil, err
	}
	res, err := RegressionMetrics(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	res.FeatureImportance = importanceRanking(model, featureNames)
	return res, nil
}

// importanceRanking extracts a sorted importance list when the estimator
// exposes one; models without importances get none, not a zero-filled list.
func importanceRanking(model any, featureNames []string) []FeatureWeight {
	fi, ok := model.(estimator.FeatureImporter)
	if !ok {
		return nil
	}
	values := fi.FeatureImportance()
	if len(values) == 0 || len(values) != len(featureNames) {
		return nil
	}
	out := make([]FeatureWeight, len(values))
	for i, v := range values {
		out[i] = FeatureWeight{Feature: featureNames[i], Importance: v}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	return out
}

// PrimaryMetric returns the ranking metric key for a task type.
func PrimaryMetric(task preprocess.TaskType) string {
	if task == preprocess.TaskRegression {
		return MetricR2
	}
	return MetricF1
}
