package evaluate

import (
	"fmt"
	"math/rand"
)

// cvSeed fixes the fold assignment so every tuning candidate scores on the
// same folds.
const cvSeed = 7

// KFold splits n row indices into k folds. The last fold absorbs the
// remainder.
func KFold(n, k int) ([][]int, error) {
	if k < 2 {
		return nil, fmt.Errorf("need at least 2 folds, got %d", k)
	}
	if n < k {
		return nil, fmt.Errorf("cannot split %d rows into %d folds", n, k)
	}

	rng := rand.New(rand.NewSource(cvSeed))
	perm := rng.Perm(n)

	foldSize := n / k
	folds := make([][]int, k)
	for f := 0; f < k; f++ {
		start := f * foldSize
		end := start + foldSize
		if f == k-1 {
			end = n
		}
		folds[f] = perm[start:end]
	}
	return folds, nil
}

// TrainTestFold returns the train indices (all folds but held) and the held
// fold for one CV round.
func TrainTestFold(folds [][]int, held int) (train, test []int) {
	for f, fold := range folds {
		if f == held {
			test = fold
			continue
		}
		train = append(train, fold...)
	}
	return train, test
}
