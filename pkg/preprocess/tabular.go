package preprocess

import (
	"fmt"
	"math"
	"sort"

	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/dataset"
)

// oneHotMaxCategories caps one-hot expansion; wider columns fall back to
// ordinal label encoding.
const oneHotMaxCategories = 10

// Imputer fills missing cells with statistics computed from the training
// partition only.
type Imputer struct {
	NumericMeans     map[string]float64
	CategoricalModes map[string]string
}

// StandardScaler standardizes numeric columns to zero mean and unit
// variance using training-partition statistics.
type StandardScaler struct {
	Mean map[string]float64
	Std  map[string]float64
}

// Scale standardizes one value of the named column.
func (s *StandardScaler) Scale(column string, v float64) float64 {
	std := s.Std[column]
	if std == 0 {
		std = 1
	}
	return (v - s.Mean[column]) / std
}

// CategoricalEncoder encodes one categorical column, one-hot for narrow
// columns and ordinal otherwise. Unseen categories map to a reserved index.
type CategoricalEncoder struct {
	Column     string
	Categories []string
	OneHot     bool

	index map[string]int
}

func (e *CategoricalEncoder) lookup(cat string) (int, bool) {
	if e.index == nil {
		e.index = make(map[string]int, len(e.Categories))
		for i, c := range e.Categories {
			e.index[c] = i
		}
	}
	i, ok := e.index[cat]
	return i, ok
}

// Width returns the number of feature columns this encoder emits.
func (e *CategoricalEncoder) Width() int {
	if e.OneHot {
		return len(e.Categories)
	}
	return 1
}

// Encode appends the encoded representation of one cell to out.
func (e *CategoricalEncoder) Encode(cat string, out []float64) []float64 {
	if e.OneHot {
		vec := make([]float64, len(e.Categories))
		if i, ok := e.lookup(cat); ok {
			vec[i] = 1
		}
		return append(out, vec...)
	}
	if i, ok := e.lookup(cat); ok {
		return append(out, float64(i))
	}
	// Reserved index for categories unseen during training.
	return append(out, float64(len(e.Categories)))
}

// TabularTransformer is the fitted preprocessing state for tabular data:
// train-partition imputation statistics, categorical encoders, and the
// numeric standard scaler.
type TabularTransformer struct {
	NumericColumns     []string
	CategoricalColumns []string
	Imputer            *Imputer
	Encoders           map[string]*CategoricalEncoder
	Scaler             *StandardScaler
	FeatureNames       []string
}

// fitTabular learns imputation, encoding, and scaling state from the
// training rows only.
func fitTabular(cols []dataset.ColumnMetadata, trainRows []map[string]any, target string) (*TabularTransformer, error) {
	t := &TabularTransformer{
		Imputer: &Imputer{
			NumericMeans:     make(map[string]float64),
			CategoricalModes: make(map[string]string),
		},
		Encoders: make(map[string]*CategoricalEncoder),
		Scaler: &StandardScaler{
			Mean: make(map[string]float64),
			Std:  make(map[string]float64),
		},
	}

	for _, col := range cols {
		if col.Name == target {
			continue
		}
		if col.IsNumeric {
			t.NumericColumns = append(t.NumericColumns, col.Name)
		} else if !col.IsDateTime {
			t.CategoricalColumns = append(t.CategoricalColumns, col.Name)
		}
	}
	if len(t.NumericColumns)+len(t.CategoricalColumns) == 0 {
		return nil, fmt.Errorf("no usable feature columns besides target %q", target)
	}

	for _, col := range t.NumericColumns {
		mean, std := trainColumnStats(trainRows, col)
		t.Imputer.NumericMeans[col] = mean
		t.Scaler.Mean[col] = mean
		t.Scaler.Std[col] = std
		t.FeatureNames = append(t.FeatureNames, col)
	}

	for _, col := range t.CategoricalColumns {
		counts := make(map[string]int)
		for _, row := range trainRows {
			if dataset.IsNull(row[col]) {
				continue
			}
			counts[dataset.AsString(row[col])]++
		}
		mode, best := "", -1
		cats := make([]string, 0, len(counts))
		for cat, n := range counts {
			cats = append(cats, cat)
			if n > best || (n == best && cat < mode) {
				mode, best = cat, n
			}
		}
		sort.Strings(cats)
		t.Imputer.CategoricalModes[col] = mode

		enc := &CategoricalEncoder{
			Column:     col,
			Categories: cats,
			OneHot:     len(cats) <= oneHotMaxCategories,
		}
		t.Encoders[col] = enc
		if enc.OneHot {
			for _, cat := range cats {
				t.FeatureNames = append(t.FeatureNames, col+"="+cat)
			}
		} else {
			t.FeatureNames = append(t.FeatureNames, col)
		}
	}
	return t, nil
}

// trainColumnStats computes mean and population std over non-null values.
func trainColumnStats(rows []map[string]any, col string) (mean, std float64) {
	var sum float64
	var n int
	for _, row := range rows {
		if f, ok := dataset.AsFloat(row[col]); ok {
			sum += f
			n++
		}
	}
	if n == 0 {
		return 0, 1
	}
	mean = sum / float64(n)
	var ss float64
	for _, row := range rows {
		if f, ok := dataset.AsFloat(row[col]); ok {
			d := f - mean
			ss += d * d
		}
	}
	std = math.Sqrt(ss / float64(n))
	return mean, std
}

// Transform builds the feature matrix for raw rows using the fitted state.
func (t *TabularTransformer) Transform(rows []map[string]any) ([][]float64, error) {
	X := make([][]float64, len(rows))
	for i, row := range rows {
		features := make([]float64, 0, len(t.FeatureNames))
		for _, col := range t.NumericColumns {
			v, ok := dataset.AsFloat(row[col])
			if !ok {
				v = t.Imputer.NumericMeans[col]
			}
			features = append(features, t.Scaler.Scale(col, v))
		}
		for _, col := range t.CategoricalColumns {
			cat := dataset.AsString(row[col])
			if dataset.IsNull(row[col]) {
				cat = t.Imputer.CategoricalModes[col]
			}
			features = t.Encoders[col].Encode(cat, features)
		}
		X[i] = features
	}
	return X, nil
}
