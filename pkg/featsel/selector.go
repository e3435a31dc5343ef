// Package featsel ranks features by relevance to the target and prunes the
// transformed matrix to the strongest subset.
package featsel

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/logging"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/preprocess"
)

const (
	miBins = 10

	correlationWeight = 0.5
	mutualInfoWeight  = 0.5
)

// Selector scores features with a blend of absolute Pearson correlation and
// normalized mutual information against the target.
type Selector struct {
	// TopK bounds the retained feature count. Zero means half the features.
	TopK int
	// Threshold keeps every feature scoring at or above it, overriding TopK
	// when more features qualify.
	Threshold float64

	log *logging.Logger
}

// Result maps the retained matrix positions back to original features.
type Result struct {
	Indices []int
	Names   []string
	Scores  []float64
}

// New creates a selector with default retention (top half of the features).
func New(log *logging.Logger) *Selector {
	return &Selector{log: log.Component("featsel")}
}

// Select ranks the training features and returns the retained subset. The
// identical column subset must then be applied to validation and test via
// preprocess.SelectColumns.
func (s *Selector) Select(XTrain [][]float64, y preprocess.Target, names []string) (*Result, error) {
	if len(XTrain) == 0 {
		return nil, fmt.Errorf("cannot select features from an empty matrix")
	}
	nFeatures := len(XTrain[0])
	if nFeatures == 0 {
		return nil, fmt.Errorf("cannot select features from a zero-width matrix")
	}
	if len(names) != nFeatures {
		return nil, fmt.Errorf("feature name count %d does not match matrix width %d", len(names), nFeatures)
	}

	target := targetAsFloats(y)
	if len(target) != len(XTrain) {
		return nil, fmt.Errorf("target length %d does not match matrix rows %d", len(target), len(XTrain))
	}

	scores := make([]float64, nFeatures)
	col := make([]float64, len(XTrain))
	for j := 0; j < nFeatures; j++ {
		for i := range XTrain {
			col[i] = XTrain[i][j]
		}
		corr := stat.Correlation(col, target, nil)
		if math.IsNaN(corr) {
			corr = 0
		}
		mi := normalizedMutualInfo(col, target)
		scores[j] = correlationWeight*math.Abs(corr) + mutualInfoWeight*mi
	}

	order := make([]int, nFeatures)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	keep := s.TopK
	if keep <= 0 {
		keep = nFeatures / 2
	}
	if keep < 1 {
		keep = 1
	}
	if keep > nFeatures {
		keep = nFeatures
	}
	if s.Threshold > 0 {
		above := 0
		for _, sc := range scores {
			if sc >= s.Threshold {
				above++
			}
		}
		if above > keep {
			keep = above
		}
	}

	retained := append([]int{}, order[:keep]...)
	sort.Ints(retained)

	res := &Result{Indices: retained}
	for _, idx := range retained {
		res.Names = append(res.Names, names[idx])
		res.Scores = append(res.Scores, scores[idx])
	}
	s.log.Info("feature selection complete",
		logging.Int("candidates", nFeatures),
		logging.Int("retained", len(retained)))
	return res, nil
}

func targetAsFloats(y preprocess.Target) []float64 {
	if len(y.Values) > 0 {
		return y.Values
	}
	// Class labels become ordinal codes; mutual information is unaffected
	// and correlation still surfaces monotone association.
	codes := make(map[string]float64)
	var classes []string
	for _, l := range y.Labels {
		if _, ok := codes[l]; !ok {
			classes = append(classes, l)
		}
		codes[l] = 0
	}
	sort.Strings(classes)
	for i, c := range classes {
		codes[c] = float64(i)
	}
	out := make([]float64, len(y.Labels))
	for i, l := range y.Labels {
		out[i] = codes[l]
	}
	return out
}

// normalizedMutualInfo bins both variables into equal-width bins and
// returns MI / sqrt(H(x)·H(y)), in [0,1].
func normalizedMutualInfo(x, y []float64) float64 {
	bx := binify(x, miBins)
	by := binify(y, miBins)

	n := float64(len(x))
	joint := make(map[[2]int]float64)
	px := make(map[int]float64)
	py := make(map[int]float64)
	for i := range x {
		joint[[2]int{bx[i], by[i]}]++
		px[bx[i]]++
		py[by[i]]++
	}

	var mi float64
	for key, c := range joint {
		pxy := c / n
		mi += pxy * math.Log(pxy/((px[key[0]]/n)*(py[key[1]]/n)))
	}

	hx := entropy(px, n)
	hy := entropy(py, n)
	if hx == 0 || hy == 0 {
		return 0
	}
	nmi := mi / math.Sqrt(hx*hy)
	if nmi < 0 {
		return 0
	}
	if nmi > 1 {
		return 1
	}
	return nmi
}

func entropy(counts map[int]float64, n float64) float64 {
	var h float64
	for _, c := range counts {
		p := c / n
		h -= p * math.Log(p)
	}
	return h
}

func binify(v []float64, bins int) []int {
	min, max := v[0], v[0]
	for _, x := range v {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	out := make([]int, len(v))
	if max == min {
		return out
	}
	width := (max - min) / float64(bins)
	for i, x := range v {
		b := int((x - min) / width)
		if b >= bins {
			b = bins - 1
		}
		out[i] = b
	}
	return out
}
