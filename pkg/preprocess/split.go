package preprocess

import (
	"fmt"
	"math/rand"
	"sort"
)

// Partition ratios shared by every preprocessing path.
const (
	trainRatio = 0.70
	valRatio   = 0.15
)

// splitSeed keeps the partition reproducible for a given dataset and config.
const splitSeed = 42

// partition holds the row indices of the three splits.
type partition struct {
	train []int
	val   []int
	test  []int
}

// splitIndices partitions n rows 70/15/15. With labels it stratifies per
// class so each class appears in the training partition; without labels it
// shuffles uniformly. Sequential (shuffle=false) keeps temporal order.
func splitIndices(n int, labels []string, shuffle bool) (partition, error) {
	if n < 5 {
		return partition{}, fmt.Errorf("need at least 5 rows to split, got %d", n)
	}

	if !shuffle {
		trainEnd := int(float64(n) * trainRatio)
		valEnd := trainEnd + int(float64(n)*valRatio)
		if valEnd == trainEnd {
			valEnd++
		}
		if valEnd >= n {
			valEnd = n - 1
		}
		return partition{
			train: sequence(0, trainEnd),
			val:   sequence(trainEnd, valEnd),
			test:  sequence(valEnd, n),
		}, nil
	}

	rng := rand.New(rand.NewSource(splitSeed))

	if len(labels) == 0 {
		perm := rng.Perm(n)
		trainEnd := int(float64(n) * trainRatio)
		valEnd := trainEnd + int(float64(n)*valRatio)
		if valEnd == trainEnd {
			valEnd++
		}
		if valEnd >= n {
			valEnd = n - 1
		}
		return partition{
			train: perm[:trainEnd],
			val:   perm[trainEnd:valEnd],
			test:  perm[valEnd:],
		}, nil
	}

	// Stratified: split each class with the same ratios so class proportions
	// survive in every partition. Small classes always land at least one row
	// in train and, when they have two or more rows, one in test.
	byClass := make(map[string][]int)
	var classes []string
	for i, label := range labels {
		if _, ok := byClass[label]; !ok {
			classes = append(classes, label)
		}
		byClass[label] = append(byClass[label], i)
	}
	sort.Strings(classes)

	var p partition
	for _, class := range classes {
		idx := byClass[class]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		trainEnd := int(float64(len(idx)) * trainRatio)
		if trainEnd == 0 {
			trainEnd = 1
		}
		valEnd := trainEnd + int(float64(len(idx))*valRatio)
		if valEnd > len(idx) {
			valEnd = len(idx)
		}
		p.train = append(p.train, idx[:trainEnd]...)
		p.val = append(p.val, idx[trainEnd:valEnd]...)
		p.test = append(p.test, idx[valEnd:]...)
	}

	// Keep deterministic order independent of class iteration.
	sort.Ints(p.train)
	sort.Ints(p.val)
	sort.Ints(p.test)
	return p, nil
}

func sequence(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

func pickRows(rows []map[string]any, idx []int) []map[string]any {
	out := make([]map[string]any, len(idx))
	for i, j := range idx {
		out[i] = rows[j]
	}
	return out
}

func pickMatrix(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}

func pickTarget(t Target, idx []int) Target {
	var out Target
	if len(t.Labels) > 0 {
		out.Labels = make([]string, len(idx))
		for i, j := range idx {
			out.Labels[i] = t.Labels[j]
		}
	}
	if len(t.Values) > 0 {
		out.Values = make([]float64, len(idx))
		for i, j := range idx {
			out.Values[i] = t.Values[j]
		}
	}
	return out
}
