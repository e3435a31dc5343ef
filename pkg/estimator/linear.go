package estimator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// LinearRegression fits ordinary least squares through the normal
// equations, with a small ridge term added when the system is singular.
type LinearRegression struct {
	Ridge float64

	Coefficients []float64
	Intercept    float64
}

// NewLinearRegression creates an OLS regressor.
func NewLinearRegression(p Params) *LinearRegression {
	return &LinearRegression{Ridge: p.Get("ridge", 0)}
}

// Fit solves (XᵀX + λI)β = Xᵀy with an intercept column.
func (m *LinearRegression) Fit(X [][]float64, y []float64) error {
	if err := checkMatrix(X, len(y)); err != nil {
		return err
	}
	n, d := len(X), len(X[0])

	// Design matrix with a leading ones column for the intercept.
	data := make([]float64, n*(d+1))
	for i, row := range X {
		data[i*(d+1)] = 1
		copy(data[i*(d+1)+1:], row)
	}
	A := mat.NewDense(n, d+1, data)
	b := mat.NewVecDense(n, append([]float64{}, y...))

	var ata mat.Dense
	ata.Mul(A.T(), A)
	var atb mat.VecDense
	atb.MulVec(A.T(), b)

	lambda := m.Ridge
	for attempt := 0; ; attempt++ {
		sys := mat.DenseCopyOf(&ata)
		if lambda > 0 {
			for i := 0; i <= d; i++ {
				sys.Set(i, i, sys.At(i, i)+lambda)
			}
		}
		var beta mat.VecDense
		if err := beta.SolveVec(sys, &atb); err == nil {
			m.Intercept = beta.AtVec(0)
			m.Coefficients = make([]float64, d)
			for j := 0; j < d; j++ {
				m.Coefficients[j] = beta.AtVec(j + 1)
			}
			return nil
		}
		if attempt >= 1 {
			return fmt.Errorf("normal equations are singular even with ridge %g", lambda)
		}
		lambda = 1e-3
	}
}

// Predict returns ŷ = Xβ + intercept.
func (m *LinearRegression) Predict(X [][]float64) ([]float64, error) {
	if m.Coefficients == nil {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(X))
	for i, row := range X {
		s := m.Intercept
		for j, v := range row {
			s += m.Coefficients[j] * v
		}
		out[i] = s
	}
	return out, nil
}

// FeatureImportance returns absolute coefficient magnitudes.
func (m *LinearRegression) FeatureImportance() []float64 {
	return absNormalize(m.Coefficients)
}

// LogisticRegression is a gradient-descent classifier, one-vs-rest for
// multiclass problems.
type LogisticRegression struct {
	LearningRate float64
	Epochs       int
	L2           float64

	Classes    []string
	Weights    [][]float64 // per class
	Intercepts []float64
}

// NewLogisticRegression creates a logistic classifier with the platform
// defaults.
func NewLogisticRegression(p Params) *LogisticRegression {
	return &LogisticRegression{
		LearningRate: p.Get("learning_rate", 0.1),
		Epochs:       p.GetInt("epochs", 200),
		L2:           p.Get("l2", 1e-4),
	}
}

func sigmoid(z float64) float64 {
	if z < -30 {
		return 0
	}
	if z > 30 {
		return 1
	}
	return 1 / (1 + math.Exp(-z))
}

// Fit trains one binary logistic model per class.
func (m *LogisticRegression) Fit(X [][]float64, y []string) error {
	if err := checkMatrix(X, len(y)); err != nil {
		return err
	}
	m.Classes = uniqueClasses(y)
	if len(m.Classes) < 2 {
		return fmt.Errorf("need at least 2 classes, got %d", len(m.Classes))
	}
	d := len(X[0])
	n := float64(len(X))

	m.Weights = make([][]float64, len(m.Classes))
	m.Intercepts = make([]float64, len(m.Classes))

	for c, class := range m.Classes {
		target := make([]float64, len(y))
		for i, label := range y {
			if label == class {
				target[i] = 1
			}
		}
		w := make([]float64, d)
		var b float64
		for epoch := 0; epoch < m.Epochs; epoch++ {
			gradW := make([]float64, d)
			var gradB float64
			for i, row := range X {
				z := b
				for j, v := range row {
					z += w[j] * v
				}
				err := sigmoid(z) - target[i]
				for j, v := range row {
					gradW[j] += err * v
				}
				gradB += err
			}
			for j := range w {
				w[j] -= m.LearningRate * (gradW[j]/n + m.L2*w[j])
			}
			b -= m.LearningRate * gradB / n
		}
		m.Weights[c] = w
		m.Intercepts[c] = b
	}
	return nil
}

func (m *LogisticRegression) scores(row []float64) map[string]float64 {
	out := make(map[string]float64, len(m.Classes))
	for c, class := range m.Classes {
		z := m.Intercepts[c]
		for j, v := range row {
			z += m.Weights[c][j] * v
		}
		out[class] = sigmoid(z)
	}
	return out
}

// Predict returns the argmax class per row.
func (m *LogisticRegression) Predict(X [][]float64) ([]string, error) {
	if m.Weights == nil {
		return nil, ErrNotFitted
	}
	out := make([]string, len(X))
	for i, row := range X {
		out[i] = argmax(m.scores(row), m.Classes)
	}
	return out, nil
}

// PredictProba returns normalized one-vs-rest probabilities.
func (m *LogisticRegression) PredictProba(X [][]float64) ([]map[string]float64, error) {
	if m.Weights == nil {
		return nil, ErrNotFitted
	}
	out := make([]map[string]float64, len(X))
	for i, row := range X {
		scores := m.scores(row)
		var total float64
		for _, s := range scores {
			total += s
		}
		if total == 0 {
			total = 1
		}
		for class := range scores {
			scores[class] /= total
		}
		out[i] = scores
	}
	return out, nil
}

// FeatureImportance averages absolute weights across the per-class models.
func (m *LogisticRegression) FeatureImportance() []float64 {
	if len(m.Weights) == 0 {
		return nil
	}
	d := len(m.Weights[0])
	avg := make([]float64, d)
	for _, w := range m.Weights {
		for j, v := range w {
			avg[j] += math.Abs(v)
		}
	}
	for j := range avg {
		avg[j] /= float64(len(m.Weights))
	}
	return absNormalize(avg)
}

// absNormalize maps values to non-negative weights summing to 1.
func absNormalize(v []float64) []float64 {
	if len(v) == 0 {
		return nil
	}
	out := make([]float64, len(v))
	var total float64
	for i, x := range v {
		out[i] = math.Abs(x)
		total += out[i]
	}
	if total > 0 {
		for i := range out {
			out[i] /= total
		}
	}
	return out
}
