package estimator

import (
	"fmt"
	"math"
	"math/rand"
)

// LinearSVM is a hinge-loss linear classifier trained with SGD, one-vs-rest
// for multiclass problems.
type LinearSVM struct {
	LearningRate float64
	Lambda       float64
	Epochs       int
	Seed         int64

	Classes    []string
	Weights    [][]float64
	Intercepts []float64
}

// NewLinearSVM creates a linear SVM with the platform defaults.
func NewLinearSVM(p Params) *LinearSVM {
	return &LinearSVM{
		LearningRate: p.Get("learning_rate", 0.01),
		Lambda:       p.Get("lambda", 1e-4),
		Epochs:       p.GetInt("epochs", 100),
		Seed:         int64(p.Get("seed", 42)),
	}
}

// Fit trains one hinge-loss separator per class with SGD over shuffled rows.
func (m *LinearSVM) Fit(X [][]float64, y []string) error {
	if err := checkMatrix(X, len(y)); err != nil {
		return err
	}
	m.Classes = uniqueClasses(y)
	if len(m.Classes) < 2 {
		return fmt.Errorf("need at least 2 classes, got %d", len(m.Classes))
	}
	d := len(X[0])
	rng := rand.New(rand.NewSource(m.Seed))

	m.Weights = make([][]float64, len(m.Classes))
	m.Intercepts = make([]float64, len(m.Classes))

	order := make([]int, len(X))
	for i := range order {
		order[i] = i
	}

	for c, class := range m.Classes {
		w := make([]float64, d)
		var b float64
		for epoch := 0; epoch < m.Epochs; epoch++ {
			rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
			lr := m.LearningRate / (1 + float64(epoch)*0.01)
			for _, i := range order {
				target := -1.0
				if y[i] == class {
					target = 1.0
				}
				margin := b
				for j, v := range X[i] {
					margin += w[j] * v
				}
				margin *= target
				if margin < 1 {
					for j, v := range X[i] {
						w[j] += lr * (target*v - m.Lambda*w[j])
					}
					b += lr * target
				} else {
					for j := range w {
						w[j] -= lr * m.Lambda * w[j]
					}
				}
			}
		}
		m.Weights[c] = w
		m.Intercepts[c] = b
	}
	return nil
}

// Predict returns the class with the largest decision margin.
func (m *LinearSVM) Predict(X [][]float64) ([]string, error) {
	if m.Weights == nil {
		return nil, ErrNotFitted
	}
	out := make([]string, len(X))
	for i, row := range X {
		scores := make(map[string]float64, len(m.Classes))
		for c, class := range m.Classes {
			z := m.Intercepts[c]
			for j, v := range row {
				z += m.Weights[c][j] * v
			}
			scores[class] = z
		}
		out[i] = argmax(scores, m.Classes)
	}
	return out, nil
}

// FeatureImportance averages absolute weights across the per-class
// separators.
func (m *LinearSVM) FeatureImportance() []float64 {
	if len(m.Weights) == 0 {
		return nil
	}
	avg := make([]float64, len(m.Weights[0]))
	for _, w := range m.Weights {
		for j, v := range w {
			avg[j] += math.Abs(v)
		}
	}
	return absNormalize(avg)
}
