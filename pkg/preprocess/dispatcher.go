package preprocess

import (
	"fmt"

	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/automlerrors"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/dataset"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/logging"
)

// text-likeness thresholds for data type detection.
const (
	textMinAvgLength   = 20.0
	textMinUniqueRatio = 0.5
)

// Dispatcher routes a dataset to the preprocessing path for its data type
// and returns the split matrices plus the fitted transformer bundle.
type Dispatcher struct {
	log *logging.Logger
}

// NewDispatcher creates a dispatcher logging through the given logger.
func NewDispatcher(log *logging.Logger) *Dispatcher {
	return &Dispatcher{log: log.Component("preprocess")}
}

type processFunc func(*dataset.Dataset, string, TaskType) (*Splits, *Artifacts, error)

// Process validates the target and data type, then runs the type-specific
// transform. The split is computed exactly once; each candidate model later
// consumes the identical partitions.
func (d *Dispatcher) Process(ds *dataset.Dataset, target string, task TaskType, override DataType) (*Splits, *Artifacts, error) {
	if !ds.HasColumn(target) {
		return nil, nil, automlerrors.NewValidationError("target_column", fmt.Sprintf("column %q not found in dataset", target))
	}

	dt := override
	if dt == DataTypeAuto {
		dt = Detect(ds, target)
	}

	dispatch := map[DataType]processFunc{
		DataTypeTabular:    d.processTabular,
		DataTypeText:       d.processText,
		DataTypeTimeSeries: d.processTimeSeries,
		DataTypeImage:      d.processImage,
	}
	fn, ok := dispatch[dt]
	if !ok {
		return nil, nil, &automlerrors.UnsupportedDataTypeError{DataType: string(dt)}
	}

	d.log.Info("preprocessing dataset",
		logging.String("data_type", string(dt)),
		logging.String("target", target),
		logging.Int("rows", ds.RowCount))
	splits, arts, err := fn(ds, target, task)
	if err != nil {
		return nil, nil, err
	}
	arts.DataType = dt
	arts.TargetColumn = target
	d.log.Info("preprocessing complete",
		logging.Int("train_rows", len(splits.XTrain)),
		logging.Int("val_rows", len(splits.XVal)),
		logging.Int("test_rows", len(splits.XTest)),
		logging.Int("features", len(splits.FeatureNames)))
	return splits, arts, nil
}

// Detect picks the preprocessing path from the dataset's schema: an image
// column wins, then a temporal column, then a text-like string column;
// everything else is tabular.
func Detect(ds *dataset.Dataset, target string) DataType {
	for _, col := range ds.Columns {
		if col.Name == "image" && col.Name != target {
			return DataTypeImage
		}
	}
	for _, col := range ds.Columns {
		if col.IsDateTime && col.Name != target {
			return DataTypeTimeSeries
		}
	}
	if textColumn(ds, target) != "" {
		return DataTypeText
	}
	return DataTypeTabular
}

// textColumn returns the best text-like column, or "" when none qualifies.
// A column qualifies when its values are long on average and mostly unique.
func textColumn(ds *dataset.Dataset, target string) string {
	best, bestLen := "", 0.0
	for _, col := range ds.Columns {
		if col.Name == target || col.DataType != dataset.TypeString {
			continue
		}
		if float64(col.UniqueCount) < textMinUniqueRatio*float64(ds.RowCount-col.NullCount) {
			continue
		}
		var total float64
		var n int
		for _, row := range ds.Rows {
			if dataset.IsNull(row[col.Name]) {
				continue
			}
			total += float64(len(dataset.AsString(row[col.Name])))
			n++
		}
		if n == 0 {
			continue
		}
		avg := total / float64(n)
		if avg >= textMinAvgLength && avg > bestLen {
			best, bestLen = col.Name, avg
		}
	}
	return best
}

// buildTarget extracts the supervised signal, dropping rows whose target
// cell is missing. Returns the kept rows and their targets.
func buildTarget(rows []map[string]any, target string, task TaskType) ([]map[string]any, Target, error) {
	kept := make([]map[string]any, 0, len(rows))
	var t Target
	for _, row := range rows {
		if dataset.IsNull(row[target]) {
			continue
		}
		if task == TaskRegression {
			v, ok := dataset.AsFloat(row[target])
			if !ok {
				return nil, Target{}, automlerrors.NewValidationError("target_column",
					fmt.Sprintf("column %q has non-numeric value %v for regression", target, row[target]))
			}
			t.Values = append(t.Values, v)
		} else {
			t.Labels = append(t.Labels, dataset.AsString(row[target]))
		}
		kept = append(kept, row)
	}
	if len(kept) == 0 {
		return nil, Target{}, automlerrors.NewValidationError("target_column", fmt.Sprintf("column %q has no non-null values", target))
	}
	return kept, t, nil
}

func (d *Dispatcher) processTabular(ds *dataset.Dataset, target string, task TaskType) (*Splits, *Artifacts, error) {
	rows, y, err := buildTarget(ds.Rows, target, task)
	if err != nil {
		return nil, nil, err
	}
	p, err := splitIndices(len(rows), y.Labels, true)
	if err != nil {
		return nil, nil, err
	}

	transformer, err := fitTabular(ds.Columns, pickRows(rows, p.train), target)
	if err != nil {
		return nil, nil, err
	}

	splits := &Splits{FeatureNames: transformer.FeatureNames}
	if splits.XTrain, err = transformer.Transform(pickRows(rows, p.train)); err != nil {
		return nil, nil, err
	}
	if splits.XVal, err = transformer.Transform(pickRows(rows, p.val)); err != nil {
		return nil, nil, err
	}
	if splits.XTest, err = transformer.Transform(pickRows(rows, p.test)); err != nil {
		return nil, nil, err
	}
	splits.YTrain = pickTarget(y, p.train)
	splits.YVal = pickTarget(y, p.val)
	splits.YTest = pickTarget(y, p.test)

	arts := &Artifacts{Tabular: transformer, FeatureNames: transformer.FeatureNames}
	return splits, arts, nil
}

func (d *Dispatcher) processText(ds *dataset.Dataset, target string, task TaskType) (*Splits, *Artifacts, error) {
	col := textColumn(ds, target)
	if col == "" {
		// Fall back to any non-target string column.
		for _, c := range ds.Columns {
			if c.Name != target && c.DataType == dataset.TypeString {
				col = c.Name
				break
			}
		}
	}
	if col == "" {
		return nil, nil, automlerrors.NewValidationError("data_type", "no text column found for text preprocessing")
	}

	rows, y, err := buildTarget(ds.Rows, target, task)
	if err != nil {
		return nil, nil, err
	}
	p, err := splitIndices(len(rows), y.Labels, true)
	if err != nil {
		return nil, nil, err
	}

	docs := func(idx []int) []string {
		out := make([]string, len(idx))
		for i, j := range idx {
			out[i] = dataset.AsString(rows[j][col])
		}
		return out
	}

	vec := NewTfidfVectorizer()
	vec.Fit(docs(p.train))
	if len(vec.Vocabulary) == 0 {
		return nil, nil, fmt.Errorf("text column %q produced an empty vocabulary", col)
	}

	splits := &Splits{
		FeatureNames: vec.FeatureNames(),
		XTrain:       vec.Transform(docs(p.train)),
		XVal:         vec.Transform(docs(p.val)),
		XTest:        vec.Transform(docs(p.test)),
		YTrain:       pickTarget(y, p.train),
		YVal:         pickTarget(y, p.val),
		YTest:        pickTarget(y, p.test),
	}
	arts := &Artifacts{Vectorizer: vec, TextColumn: col, FeatureNames: vec.FeatureNames()}
	return splits, arts, nil
}

func (d *Dispatcher) processTimeSeries(ds *dataset.Dataset, target string, task TaskType) (*Splits, *Artifacts, error) {
	transformer, err := fitTimeSeries(ds.Columns, target)
	if err != nil {
		return nil, nil, err
	}
	X, yVals, err := transformer.Transform(ds.Rows)
	if err != nil {
		return nil, nil, err
	}
	if len(yVals) != len(X) {
		return nil, nil, automlerrors.NewValidationError("target_column",
			fmt.Sprintf("time-series target %q must be numeric in every row", target))
	}

	var y Target
	if task == TaskClassification {
		y.Labels = make([]string, len(yVals))
		for i, v := range yVals {
			y.Labels[i] = dataset.AsString(v)
		}
	} else {
		y.Values = yVals
	}

	// Temporal order must survive the split; no shuffling.
	p, err := splitIndices(len(X), nil, false)
	if err != nil {
		return nil, nil, err
	}
	splits := &Splits{
		FeatureNames: transformer.FeatureNames,
		XTrain:       pickMatrix(X, p.train),
		XVal:         pickMatrix(X, p.val),
		XTest:        pickMatrix(X, p.test),
		YTrain:       pickTarget(y, p.train),
		YVal:         pickTarget(y, p.val),
		YTest:        pickTarget(y, p.test),
	}
	arts := &Artifacts{Lags: transformer, FeatureNames: transformer.FeatureNames}
	return splits, arts, nil
}

func (d *Dispatcher) processImage(ds *dataset.Dataset, target string, task TaskType) (*Splits, *Artifacts, error) {
	if !ds.HasColumn("image") {
		return nil, nil, automlerrors.NewValidationError("data_type", "image preprocessing requires an \"image\" column")
	}
	rows, y, err := buildTarget(ds.Rows, target, task)
	if err != nil {
		return nil, nil, err
	}
	p, err := splitIndices(len(rows), y.Labels, true)
	if err != nil {
		return nil, nil, err
	}

	transformer := fitImage("image")
	splits := &Splits{FeatureNames: transformer.FeatureNames}
	if splits.XTrain, err = transformer.Transform(pickRows(rows, p.train)); err != nil {
		return nil, nil, err
	}
	if splits.XVal, err = transformer.Transform(pickRows(rows, p.val)); err != nil {
		return nil, nil, err
	}
	if splits.XTest, err = transformer.Transform(pickRows(rows, p.test)); err != nil {
		return nil, nil, err
	}
	splits.YTrain = pickTarget(y, p.train)
	splits.YVal = pickTarget(y, p.val)
	splits.YTest = pickTarget(y, p.test)

	arts := &Artifacts{Image: transformer, FeatureNames: transformer.FeatureNames}
	return splits, arts, nil
}
