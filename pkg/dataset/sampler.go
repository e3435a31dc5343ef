package dataset

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
)

// Sampler draws a bounded row subset from a dataset before preprocessing.
// The seed is derived from the dataset name and the row budget, so the same
// dataset and config always produce the same sample.
type Sampler struct {
	MaxRows int
}

// NewSampler creates a sampler with the given row budget. A budget of 0
// disables sampling.
func NewSampler(maxRows int) *Sampler {
	return &Sampler{MaxRows: maxRows}
}

// Sample returns the dataset unchanged when sampling is disabled or the
// dataset already fits the budget. Otherwise it draws exactly MaxRows rows:
// stratified by stratifyColumn when one is given, uniformly otherwise.
func (s *Sampler) Sample(ds *Dataset, stratifyColumn string) (*Dataset, error) {
	if s.MaxRows <= 0 || ds.RowCount <= s.MaxRows {
		return ds, nil
	}
	if stratifyColumn != "" && !ds.HasColumn(stratifyColumn) {
		return nil, fmt.Errorf("stratify column %q not in dataset", stratifyColumn)
	}

	rng := rand.New(rand.NewSource(s.seed(ds)))

	var rows []map[string]any
	if stratifyColumn != "" {
		rows = s.stratifiedDraw(ds, stratifyColumn, rng)
	} else {
		rows = s.uniformDraw(ds, rng)
	}
	return ds.WithRows(rows)
}

func (s *Sampler) seed(ds *Dataset) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s:%d:%d", ds.Name, ds.RowCount, s.MaxRows)
	return int64(h.Sum64())
}

func (s *Sampler) uniformDraw(ds *Dataset, rng *rand.Rand) []map[string]any {
	perm := rng.Perm(ds.RowCount)[:s.MaxRows]
	sort.Ints(perm)
	rows := make([]map[string]any, 0, s.MaxRows)
	for _, i := range perm {
		rows = append(rows, ds.Rows[i])
	}
	return rows
}

// stratifiedDraw preserves each class's share of the sample using
// largest-remainder rounding. Every non-empty class keeps at least one row
// while the budget allows.
func (s *Sampler) stratifiedDraw(ds *Dataset, column string, rng *rand.Rand) []map[string]any {
	byClass := make(map[string][]int)
	var classes []string
	for i, row := range ds.Rows {
		label := AsString(row[column])
		if _, ok := byClass[label]; !ok {
			classes = append(classes, label)
		}
		byClass[label] = append(byClass[label], i)
	}
	sort.Strings(classes)

	type share struct {
		label     string
		count     int
		remainder float64
	}
	shares := make([]share, 0, len(classes))
	allocated := 0
	for _, label := range classes {
		exact := float64(len(byClass[label])) * float64(s.MaxRows) / float64(ds.RowCount)
		count := int(exact)
		if count == 0 && allocated < s.MaxRows {
			count = 1
		}
		if count > len(byClass[label]) {
			count = len(byClass[label])
		}
		allocated += count
		shares = append(shares, share{label: label, count: count, remainder: exact - float64(int(exact))})
	}

	// Distribute the leftover budget to the largest remainders.
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].remainder > shares[j].remainder })
	for allocated < s.MaxRows {
		grew := false
		for i := range shares {
			if allocated >= s.MaxRows {
				break
			}
			if shares[i].count < len(byClass[shares[i].label]) {
				shares[i].count++
				allocated++
				grew = true
			}
		}
		if !grew {
			break
		}
	}
	// Trim overshoot from the smallest remainders.
	for i := len(shares) - 1; allocated > s.MaxRows && i >= 0; i-- {
		sh := &shares[i]
		if sh.count > 1 {
			sh.count--
			allocated--
		}
	}

	var picked []int
	for _, sh := range shares {
		idx := byClass[sh.label]
		perm := rng.Perm(len(idx))
		for _, p := range perm[:sh.count] {
			picked = append(picked, idx[p])
		}
	}
	sort.Ints(picked)

	rows := make([]map[string]any, 0, len(picked))
	for _, i := range picked {
		rows = append(rows, ds.Rows[i])
	}
	return rows
}
