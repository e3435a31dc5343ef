package estimator

import (
	"math"
	"math/rand"
)

// RandomForestClassifier bags CART trees over bootstrap samples with
// per-split feature subsampling.
type RandomForestClassifier struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	Seed            int64

	Trees   []*DecisionTreeClassifier
	Classes []string
}

// NewRandomForestClassifier creates a forest with the platform defaults.
func NewRandomForestClassifier(p Params) *RandomForestClassifier {
	return &RandomForestClassifier{
		NEstimators:     p.GetInt("n_estimators", 50),
		MaxDepth:        p.GetInt("max_depth", 10),
		MinSamplesSplit: p.GetInt("min_samples_split", 2),
		Seed:            int64(p.Get("seed", 42)),
	}
}

func bootstrap(rng *rand.Rand, n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.Intn(n)
	}
	return idx
}

// Fit trains NEstimators trees on bootstrap resamples.
func (f *RandomForestClassifier) Fit(X [][]float64, y []string) error {
	if err := checkMatrix(X, len(y)); err != nil {
		return err
	}
	f.Classes = uniqueClasses(y)
	rng := rand.New(rand.NewSource(f.Seed))
	maxFeatures := int(math.Sqrt(float64(len(X[0]))))
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	f.Trees = make([]*DecisionTreeClassifier, 0, f.NEstimators)
	for t := 0; t < f.NEstimators; t++ {
		idx := bootstrap(rng, len(X))
		bx := make([][]float64, len(idx))
		by := make([]string, len(idx))
		for i, j := range idx {
			bx[i] = X[j]
			by[i] = y[j]
		}
		tree := NewDecisionTreeClassifier(Params{
			"max_depth":         float64(f.MaxDepth),
			"min_samples_split": float64(f.MinSamplesSplit),
			"max_features":      float64(maxFeatures),
			"seed":              float64(f.Seed + int64(t)),
		})
		if err := tree.Fit(bx, by); err != nil {
			return err
		}
		f.Trees = append(f.Trees, tree)
	}
	return nil
}

func (f *RandomForestClassifier) votes(row []float64) map[string]float64 {
	counts := make(map[string]float64, len(f.Classes))
	for _, tree := range f.Trees {
		counts[tree.predictOne(row).Class]++
	}
	for class := range counts {
		counts[class] /= float64(len(f.Trees))
	}
	return counts
}

// Predict returns the majority vote per row.
func (f *RandomForestClassifier) Predict(X [][]float64) ([]string, error) {
	if len(f.Trees) == 0 {
		return nil, ErrNotFitted
	}
	out := make([]string, len(X))
	for i, row := range X {
		out[i] = argmax(f.votes(row), f.Classes)
	}
	return out, nil
}

// PredictProba returns vote shares per class.
func (f *RandomForestClassifier) PredictProba(X [][]float64) ([]map[string]float64, error) {
	if len(f.Trees) == 0 {
		return nil, ErrNotFitted
	}
	out := make([]map[string]float64, len(X))
	for i, row := range X {
		probs := f.votes(row)
		for _, class := range f.Classes {
			if _, ok := probs[class]; !ok {
				probs[class] = 0
			}
		}
		out[i] = probs
	}
	return out, nil
}

// FeatureImportance averages the member trees' importances.
func (f *RandomForestClassifier) FeatureImportance() []float64 {
	if len(f.Trees) == 0 {
		return nil
	}
	var avg []float64
	for _, tree := range f.Trees {
		imp := tree.FeatureImportance()
		if avg == nil {
			avg = make([]float64, len(imp))
		}
		for j, v := range imp {
			avg[j] += v
		}
	}
	for j := range avg {
		avg[j] /= float64(len(f.Trees))
	}
	return absNormalize(avg)
}

// RandomForestRegressor bags regression trees over bootstrap samples.
type RandomForestRegressor struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	Seed            int64

	Trees []*DecisionTreeRegressor
}

// NewRandomForestRegressor creates a forest with the platform defaults.
func NewRandomForestRegressor(p Params) *RandomForestRegressor {
	return &RandomForestRegressor{
		NEstimators:     p.GetInt("n_estimators", 50),
		MaxDepth:        p.GetInt("max_depth", 10),
		MinSamplesSplit: p.GetInt("min_samples_split", 2),
		Seed:            int64(p.Get("seed", 42)),
	}
}

// Fit trains NEstimators regression trees on bootstrap resamples.
func (f *RandomForestRegressor) Fit(X [][]float64, y []float64) error {
	if err := checkMatrix(X, len(y)); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(f.Seed))
	maxFeatures := len(X[0]) / 3
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	f.Trees = make([]*DecisionTreeRegressor, 0, f.NEstimators)
	for t := 0; t < f.NEstimators; t++ {
		idx := bootstrap(rng, len(X))
		bx := make([][]float64, len(idx))
		by := make([]float64, len(idx))
		for i, j := range idx {
			bx[i] = X[j]
			by[i] = y[j]
		}
		tree := NewDecisionTreeRegressor(Params{
			"max_depth":         float64(f.MaxDepth),
			"min_samples_split": float64(f.MinSamplesSplit),
			"max_features":      float64(maxFeatures),
			"seed":              float64(f.Seed + int64(t)),
		})
		if err := tree.Fit(bx, by); err != nil {
			return err
		}
		f.Trees = append(f.Trees, tree)
	}
	return nil
}

// Predict averages the member trees' outputs.
func (f *RandomForestRegressor) Predict(X [][]float64) ([]float64, error) {
	if len(f.Trees) == 0 {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(X))
	for i, row := range X {
		var sum float64
		for _, tree := range f.Trees {
			node := tree.Root
			for !node.IsLeaf {
				if row[node.Feature] <= node.Threshold {
					node = node.Left
				} else {
					node = node.Right
				}
			}
			sum += node.Value
		}
		out[i] = sum / float64(len(f.Trees))
	}
	return out, nil
}

// FeatureImportance averages the member trees' importances.
func (f *RandomForestRegressor) FeatureImportance() []float64 {
	if len(f.Trees) == 0 {
		return nil
	}
	var avg []float64
	for _, tree := range f.Trees {
		imp := tree.FeatureImportance()
		if avg == nil {
			avg = make([]float64, len(imp))
		}
		for j, v := range imp {
			avg[j] += v
		}
	}
	for j := range avg {
		avg[j] /= float64(len(f.Trees))
	}
	return absNormalize(avg)
}
