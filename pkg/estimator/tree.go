package estimator

import (
	"math"
	"math/rand"
	"sort"
)

// TreeNode is one node of a fitted CART tree. Fields stay exported so the
// tree serializes with the artifact bundle.
type TreeNode struct {
	Feature     int
	Threshold   float64
	Left        *TreeNode
	Right       *TreeNode
	IsLeaf      bool
	Class       string
	ClassCounts map[string]int
	Value       float64
	Samples     int
}

// treeConfig is shared by the classification and regression trees.
type treeConfig struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 means all features
	Seed            int64
	featureCount    int
	importanceAccum []float64
	totalSamples    int
	rng             *rand.Rand
}

type splitCandidate struct {
	feature   int
	threshold float64
	gain      float64
	leftIdx   []int
	rightIdx  []int
}

// candidateFeatures returns the feature set to scan for one split, randomly
// subsampled when MaxFeatures is set (random forest behavior).
func (c *treeConfig) candidateFeatures() []int {
	all := make([]int, c.featureCount)
	for i := range all {
		all[i] = i
	}
	if c.MaxFeatures <= 0 || c.MaxFeatures >= c.featureCount {
		return all
	}
	c.rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	sub := all[:c.MaxFeatures]
	sort.Ints(sub)
	return sub
}

// thresholds returns the midpoints between consecutive unique sorted values.
func thresholds(values []float64) []float64 {
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)
	var out []float64
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			out = append(out, (sorted[i]+sorted[i-1])/2)
		}
	}
	return out
}

func giniImpurity(counts map[string]int, total int) float64 {
	if total == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		g -= p * p
	}
	return g
}

func classCounts(y []string, idx []int) map[string]int {
	counts := make(map[string]int)
	for _, i := range idx {
		counts[y[i]]++
	}
	return counts
}

func majorityClass(counts map[string]int) string {
	best, bestCount := "", -1
	for class, count := range counts {
		if count > bestCount || (count == bestCount && class < best) {
			best, bestCount = class, count
		}
	}
	return best
}

// DecisionTreeClassifier is a CART tree splitting on Gini impurity.
type DecisionTreeClassifier struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	Seed            int64

	Root        *TreeNode
	Classes     []string
	Importances []float64
}

// NewDecisionTreeClassifier creates a classifier tree with the platform
// defaults.
func NewDecisionTreeClassifier(p Params) *DecisionTreeClassifier {
	return &DecisionTreeClassifier{
		MaxDepth:        p.GetInt("max_depth", 10),
		MinSamplesSplit: p.GetInt("min_samples_split", 2),
		MinSamplesLeaf:  p.GetInt("min_samples_leaf", 1),
		MaxFeatures:     p.GetInt("max_features", 0),
		Seed:            int64(p.Get("seed", 42)),
	}
}

// Fit builds the tree on the training partition.
func (t *DecisionTreeClassifier) Fit(X [][]float64, y []string) error {
	if err := checkMatrix(X, len(y)); err != nil {
		return err
	}
	t.Classes = uniqueClasses(y)

	cfg := &treeConfig{
		MaxDepth:        t.MaxDepth,
		MinSamplesSplit: t.MinSamplesSplit,
		MinSamplesLeaf:  t.MinSamplesLeaf,
		MaxFeatures:     t.MaxFeatures,
		featureCount:    len(X[0]),
		importanceAccum: make([]float64, len(X[0])),
		totalSamples:    len(X),
		rng:             rand.New(rand.NewSource(t.Seed)),
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	t.Root = buildClassificationTree(cfg, X, y, idx, 0)
	t.Importances = absNormalize(cfg.importanceAccum)
	return nil
}

func buildClassificationTree(cfg *treeConfig, X [][]float64, y []string, idx []int, depth int) *TreeNode {
	counts := classCounts(y, idx)
	node := &TreeNode{Samples: len(idx), ClassCounts: counts}

	if depth >= cfg.MaxDepth || len(idx) < cfg.MinSamplesSplit || len(counts) == 1 {
		node.IsLeaf = true
		node.Class = majorityClass(counts)
		return node
	}

	best := bestClassificationSplit(cfg, X, y, idx, counts)
	if best == nil {
		node.IsLeaf = true
		node.Class = majorityClass(counts)
		return node
	}

	cfg.importanceAccum[best.feature] += best.gain * float64(len(idx)) / float64(cfg.totalSamples)
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Left = buildClassificationTree(cfg, X, y, best.leftIdx, depth+1)
	node.Right = buildClassificationTree(cfg, X, y, best.rightIdx, depth+1)
	return node
}

func bestClassificationSplit(cfg *treeConfig, X [][]float64, y []string, idx []int, parentCounts map[string]int) *splitCandidate {
	parentGini := giniImpurity(parentCounts, len(idx))
	var best *splitCandidate

	for _, feature := range cfg.candidateFeatures() {
		values := make([]float64, len(idx))
		for i, r := range idx {
			values[i] = X[r][feature]
		}
		for _, th := range thresholds(values) {
			var left, right []int
			for _, r := range idx {
				if X[r][feature] <= th {
					left = append(left, r)
				} else {
					right = append(right, r)
				}
			}
			if len(left) < cfg.MinSamplesLeaf || len(right) < cfg.MinSamplesLeaf {
				continue
			}
			gLeft := giniImpurity(classCounts(y, left), len(left))
			gRight := giniImpurity(classCounts(y, right), len(right))
			weighted := (float64(len(left))*gLeft + float64(len(right))*gRight) / float64(len(idx))
			gain := parentGini - weighted
			if gain <= 0 {
				continue
			}
			if best == nil || gain > best.gain {
				best = &splitCandidate{feature: feature, threshold: th, gain: gain, leftIdx: left, rightIdx: right}
			}
		}
	}
	return best
}

func (t *DecisionTreeClassifier) predictOne(row []float64) *TreeNode {
	node := t.Root
	for !node.IsLeaf {
		if row[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}

// Predict returns the leaf majority class per row.
func (t *DecisionTreeClassifier) Predict(X [][]float64) ([]string, error) {
	if t.Root == nil {
		return nil, ErrNotFitted
	}
	out := make([]string, len(X))
	for i, row := range X {
		out[i] = t.predictOne(row).Class
	}
	return out, nil
}

// PredictProba returns leaf class frequencies.
func (t *DecisionTreeClassifier) PredictProba(X [][]float64) ([]map[string]float64, error) {
	if t.Root == nil {
		return nil, ErrNotFitted
	}
	out := make([]map[string]float64, len(X))
	for i, row := range X {
		leaf := t.predictOne(row)
		probs := make(map[string]float64, len(t.Classes))
		for _, class := range t.Classes {
			probs[class] = float64(leaf.ClassCounts[class]) / float64(leaf.Samples)
		}
		out[i] = probs
	}
	return out, nil
}

// FeatureImportance returns normalized impurity-decrease importances.
func (t *DecisionTreeClassifier) FeatureImportance() []float64 {
	return t.Importances
}

// DecisionTreeRegressor is a CART tree splitting on variance reduction.
type DecisionTreeRegressor struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	Seed            int64

	Root        *TreeNode
	Importances []float64
}

// NewDecisionTreeRegressor creates a regression tree with the platform
// defaults.
func NewDecisionTreeRegressor(p Params) *DecisionTreeRegressor {
	return &DecisionTreeRegressor{
		MaxDepth:        p.GetInt("max_depth", 10),
		MinSamplesSplit: p.GetInt("min_samples_split", 2),
		MinSamplesLeaf:  p.GetInt("min_samples_leaf", 1),
		MaxFeatures:     p.GetInt("max_features", 0),
		Seed:            int64(p.Get("seed", 42)),
	}
}

func variance(y []float64, idx []int) (mean, v float64) {
	if len(idx) == 0 {
		return 0, 0
	}
	for _, i := range idx {
		mean += y[i]
	}
	mean /= float64(len(idx))
	for _, i := range idx {
		d := y[i] - mean
		v += d * d
	}
	return mean, v / float64(len(idx))
}

// Fit builds the tree on the training partition.
func (t *DecisionTreeRegressor) Fit(X [][]float64, y []float64) error {
	if err := checkMatrix(X, len(y)); err != nil {
		return err
	}
	cfg := &treeConfig{
		MaxDepth:        t.MaxDepth,
		MinSamplesSplit: t.MinSamplesSplit,
		MinSamplesLeaf:  t.MinSamplesLeaf,
		MaxFeatures:     t.MaxFeatures,
		featureCount:    len(X[0]),
		importanceAccum: make([]float64, len(X[0])),
		totalSamples:    len(X),
		rng:             rand.New(rand.NewSource(t.Seed)),
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	t.Root = buildRegressionTree(cfg, X, y, idx, 0)
	t.Importances = absNormalize(cfg.importanceAccum)
	return nil
}

func buildRegressionTree(cfg *treeConfig, X [][]float64, y []float64, idx []int, depth int) *TreeNode {
	mean, v := variance(y, idx)
	node := &TreeNode{Samples: len(idx), Value: mean}

	if depth >= cfg.MaxDepth || len(idx) < cfg.MinSamplesSplit || v == 0 {
		node.IsLeaf = true
		return node
	}

	best := bestRegressionSplit(cfg, X, y, idx, v)
	if best == nil {
		node.IsLeaf = true
		return node
	}

	cfg.importanceAccum[best.feature] += best.gain * float64(len(idx)) / float64(cfg.totalSamples)
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Left = buildRegressionTree(cfg, X, y, best.leftIdx, depth+1)
	node.Right = buildRegressionTree(cfg, X, y, best.rightIdx, depth+1)
	return node
}

func bestRegressionSplit(cfg *treeConfig, X [][]float64, y []float64, idx []int, parentVar float64) *splitCandidate {
	var best *splitCandidate
	for _, feature := range cfg.candidateFeatures() {
		values := make([]float64, len(idx))
		for i, r := range idx {
			values[i] = X[r][feature]
		}
		for _, th := range thresholds(values) {
			var left, right []int
			for _, r := range idx {
				if X[r][feature] <= th {
					left = append(left, r)
				} else {
					right = append(right, r)
				}
			}
			if len(left) < cfg.MinSamplesLeaf || len(right) < cfg.MinSamplesLeaf {
				continue
			}
			_, vLeft := variance(y, left)
			_, vRight := variance(y, right)
			weighted := (float64(len(left))*vLeft + float64(len(right))*vRight) / float64(len(idx))
			gain := parentVar - weighted
			if gain <= 0 || math.IsNaN(gain) {
				continue
			}
			if best == nil || gain > best.gain {
				best = &splitCandidate{feature: feature, threshold: th, gain: gain, leftIdx: left, rightIdx: right}
			}
		}
	}
	return best
}

// Predict returns the leaf mean per row.
func (t *DecisionTreeRegressor) Predict(X [][]float64) ([]float64, error) {
	if t.Root == nil {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(X))
	for i, row := range X {
		node := t.Root
		for !node.IsLeaf {
			if row[node.Feature] <= node.Threshold {
				node = node.Left
			} else {
				node = node.Right
			}
		}
		out[i] = node.Value
	}
	return out, nil
}

// FeatureImportance returns normalized variance-reduction importances.
func (t *DecisionTreeRegressor) FeatureImportance() []float64 {
	return t.Importances
}
