package estimator

import (
	"fmt"
	"math"
)

// MultinomialNB is a multinomial naive Bayes classifier for non-negative
// count-like features (tf-idf text runs). Laplace-smoothed.
type MultinomialNB struct {
	Alpha float64

	Classes        []string
	ClassLogPrior  []float64
	FeatureLogProb [][]float64
}

// NewMultinomialNB creates a naive Bayes classifier with Laplace smoothing.
func NewMultinomialNB(p Params) *MultinomialNB {
	return &MultinomialNB{Alpha: p.Get("alpha", 1.0)}
}

// Fit accumulates smoothed per-class feature frequencies.
func (m *MultinomialNB) Fit(X [][]float64, y []string) error {
	if err := checkMatrix(X, len(y)); err != nil {
		return err
	}
	m.Classes = uniqueClasses(y)
	d := len(X[0])

	classIdx := make(map[string]int, len(m.Classes))
	for i, class := range m.Classes {
		classIdx[class] = i
	}

	counts := make([][]float64, len(m.Classes))
	totals := make([]float64, len(m.Classes))
	docCounts := make([]float64, len(m.Classes))
	for i := range counts {
		counts[i] = make([]float64, d)
	}

	for i, row := range X {
		c := classIdx[y[i]]
		docCounts[c]++
		for j, v := range row {
			if v < 0 {
				return fmt.Errorf("naive bayes requires non-negative features, got %g at row %d", v, i)
			}
			counts[c][j] += v
			totals[c] += v
		}
	}

	m.ClassLogPrior = make([]float64, len(m.Classes))
	m.FeatureLogProb = make([][]float64, len(m.Classes))
	n := float64(len(X))
	for c := range m.Classes {
		m.ClassLogPrior[c] = math.Log(docCounts[c] / n)
		m.FeatureLogProb[c] = make([]float64, d)
		denom := totals[c] + m.Alpha*float64(d)
		for j := 0; j < d; j++ {
			m.FeatureLogProb[c][j] = math.Log((counts[c][j] + m.Alpha) / denom)
		}
	}
	return nil
}

func (m *MultinomialNB) logScores(row []float64) []float64 {
	scores := make([]float64, len(m.Classes))
	for c := range m.Classes {
		s := m.ClassLogPrior[c]
		for j, v := range row {
			if v != 0 {
				s += v * m.FeatureLogProb[c][j]
			}
		}
		scores[c] = s
	}
	return scores
}

// Predict returns the class with the highest posterior.
func (m *MultinomialNB) Predict(X [][]float64) ([]string, error) {
	if m.FeatureLogProb == nil {
		return nil, ErrNotFitted
	}
	out := make([]string, len(X))
	for i, row := range X {
		scores := m.logScores(row)
		best, bestScore := "", math.Inf(-1)
		for c, class := range m.Classes {
			if scores[c] > bestScore {
				best, bestScore = class, scores[c]
			}
		}
		out[i] = best
	}
	return out, nil
}

// PredictProba exponentiates and normalizes the log posteriors.
func (m *MultinomialNB) PredictProba(X [][]float64) ([]map[string]float64, error) {
	if m.FeatureLogProb == nil {
		return nil, ErrNotFitted
	}
	out := make([]map[string]float64, len(X))
	for i, row := range X {
		scores := m.logScores(row)
		max := math.Inf(-1)
		for _, s := range scores {
			if s > max {
				max = s
			}
		}
		probs := make(map[string]float64, len(m.Classes))
		var total float64
		for c, class := range m.Classes {
			p := math.Exp(scores[c] - max)
			probs[class] = p
			total += p
		}
		for class := range probs {
			probs[class] /= total
		}
		out[i] = probs
	}
	return out, nil
}
