package estimator

import (
	"math"
	"sort"
)

// KNNClassifier predicts by majority vote among the k nearest training
// rows (Euclidean distance). It keeps the training data and exposes no
// feature importance.
type KNNClassifier struct {
	K int

	XTrain  [][]float64
	YTrain  []string
	Classes []string
}

// NewKNNClassifier creates a k-nearest-neighbours classifier.
func NewKNNClassifier(p Params) *KNNClassifier {
	return &KNNClassifier{K: p.GetInt("k", 5)}
}

// Fit stores the training data.
func (m *KNNClassifier) Fit(X [][]float64, y []string) error {
	if err := checkMatrix(X, len(y)); err != nil {
		return err
	}
	m.XTrain = X
	m.YTrain = y
	m.Classes = uniqueClasses(y)
	return nil
}

type neighbour struct {
	dist  float64
	index int
}

func nearest(XTrain [][]float64, row []float64, k int) []neighbour {
	ns := make([]neighbour, len(XTrain))
	for i, train := range XTrain {
		var d float64
		for j, v := range row {
			diff := v - train[j]
			d += diff * diff
		}
		ns[i] = neighbour{dist: d, index: i}
	}
	sort.Slice(ns, func(a, b int) bool {
		if ns[a].dist != ns[b].dist {
			return ns[a].dist < ns[b].dist
		}
		return ns[a].index < ns[b].index
	})
	if k > len(ns) {
		k = len(ns)
	}
	return ns[:k]
}

// Predict returns the majority class among the nearest neighbours.
func (m *KNNClassifier) Predict(X [][]float64) ([]string, error) {
	if m.XTrain == nil {
		return nil, ErrNotFitted
	}
	out := make([]string, len(X))
	for i, row := range X {
		votes := make(map[string]float64)
		for _, n := range nearest(m.XTrain, row, m.K) {
			votes[m.YTrain[n.index]]++
		}
		out[i] = argmax(votes, m.Classes)
	}
	return out, nil
}

// PredictProba returns neighbour vote shares.
func (m *KNNClassifier) PredictProba(X [][]float64) ([]map[string]float64, error) {
	if m.XTrain == nil {
		return nil, ErrNotFitted
	}
	out := make([]map[string]float64, len(X))
	for i, row := range X {
		ns := nearest(m.XTrain, row, m.K)
		probs := make(map[string]float64, len(m.Classes))
		for _, class := range m.Classes {
			probs[class] = 0
		}
		for _, n := range ns {
			probs[m.YTrain[n.index]] += 1 / float64(len(ns))
		}
		out[i] = probs
	}
	return out, nil
}

// KNNRegressor predicts the mean target of the k nearest training rows.
type KNNRegressor struct {
	K int

	XTrain [][]float64
	YTrain []float64
}

// NewKNNRegressor creates a k-nearest-neighbours regressor.
func NewKNNRegressor(p Params) *KNNRegressor {
	return &KNNRegressor{K: p.GetInt("k", 5)}
}

// Fit stores the training data.
func (m *KNNRegressor) Fit(X [][]float64, y []float64) error {
	if err := checkMatrix(X, len(y)); err != nil {
		return err
	}
	m.XTrain = X
	m.YTrain = y
	return nil
}

// Predict averages the nearest neighbours' targets.
func (m *KNNRegressor) Predict(X [][]float64) ([]float64, error) {
	if m.XTrain == nil {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(X))
	for i, row := range X {
		ns := nearest(m.XTrain, row, m.K)
		var sum float64
		for _, n := range ns {
			sum += m.YTrain[n.index]
		}
		out[i] = sum / math.Max(1, float64(len(ns)))
	}
	return out, nil
}
