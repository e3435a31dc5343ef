package preprocess

import (
	"fmt"
	"sort"
	"time"

	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/dataset"
)

// defaultLags is the number of past observations of each numeric feature
// appended as lag features for time-series runs.
const defaultLags = 3

// LagTransformer builds lag features over the numeric feature columns of
// time-series data. Rows are sorted by the temporal column before lag
// construction; splits over the result must preserve order.
type LagTransformer struct {
	TimeColumn     string
	TargetColumn   string
	NumericColumns []string
	NLags          int
	FeatureNames   []string
}

func fitTimeSeries(cols []dataset.ColumnMetadata, target string) (*LagTransformer, error) {
	t := &LagTransformer{NLags: defaultLags, TargetColumn: target}
	for _, col := range cols {
		if col.Name == target {
			continue
		}
		if col.IsDateTime && t.TimeColumn == "" {
			t.TimeColumn = col.Name
			continue
		}
		if col.IsNumeric {
			t.NumericColumns = append(t.NumericColumns, col.Name)
		}
	}
	if t.TimeColumn == "" {
		return nil, fmt.Errorf("no temporal column found for time-series preprocessing")
	}
	if len(t.NumericColumns) == 0 {
		return nil, fmt.Errorf("time-series preprocessing needs at least one numeric feature column besides the target")
	}
	t.FeatureNames = append([]string{}, t.NumericColumns...)
	for _, col := range t.NumericColumns {
		for lag := 1; lag <= t.NLags; lag++ {
			t.FeatureNames = append(t.FeatureNames, fmt.Sprintf("%s_lag_%d", col, lag))
		}
	}
	return t, nil
}

// Transform sorts rows by the temporal column, builds current numeric
// features plus NLags lagged values of each numeric feature, and drops the
// warm-up rows that have no full lag window. The aligned target values are
// returned for training; rows without a numeric target yield a nil target
// slice, which lets fitted state transform unlabeled input for inference.
func (t *LagTransformer) Transform(rows []map[string]any) ([][]float64, []float64, error) {
	if len(rows) <= t.NLags {
		return nil, nil, fmt.Errorf("need more than %d rows for %d lag features, got %d", t.NLags, t.NLags, len(rows))
	}

	sorted := make([]map[string]any, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return timeKey(sorted[i][t.TimeColumn]).Before(timeKey(sorted[j][t.TimeColumn]))
	})

	series := make(map[string][]float64, len(t.NumericColumns))
	for _, col := range t.NumericColumns {
		vals := make([]float64, len(sorted))
		for i, row := range sorted {
			vals[i], _ = dataset.AsFloat(row[col])
		}
		series[col] = vals
	}

	targets := make([]float64, len(sorted))
	hasTarget := true
	for i, row := range sorted {
		v, ok := dataset.AsFloat(row[t.TargetColumn])
		if !ok {
			hasTarget = false
			break
		}
		targets[i] = v
	}

	var X [][]float64
	var y []float64
	for i := t.NLags; i < len(sorted); i++ {
		features := make([]float64, 0, len(t.FeatureNames))
		for _, col := range t.NumericColumns {
			features = append(features, series[col][i])
		}
		for _, col := range t.NumericColumns {
			for lag := 1; lag <= t.NLags; lag++ {
				features = append(features, series[col][i-lag])
			}
		}
		X = append(X, features)
		if hasTarget {
			y = append(y, targets[i])
		}
	}
	return X, y, nil
}

func timeKey(v any) time.Time {
	switch tv := v.(type) {
	case time.Time:
		return tv
	case string:
		if ts, ok := dataset.ParseTime(tv); ok {
			return ts
		}
	case float64:
		return time.Unix(int64(tv), 0)
	}
	return time.Time{}
}
