// Package dataset defines the in-memory table handed to the pipeline and the
// row sampler that optionally shrinks it before processing.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Column data types recognised by the type detector.
const (
	TypeNumeric  = "numeric"
	TypeString   = "string"
	TypeDateTime = "datetime"
	TypeBoolean  = "boolean"
	TypeMixed    = "mixed"
)

// Dataset is a generic rows-by-named-columns table. Pipeline stages never
// mutate a Dataset in place; every stage derives a new one.
type Dataset struct {
	Name        string           `json:"name"`
	Columns     []ColumnMetadata `json:"columns"`
	ColumnCount int              `json:"column_count"`
	Rows        []map[string]any `json:"rows"`
	RowCount    int              `json:"row_count"`
}

// ColumnMetadata describes a column's characteristics
type ColumnMetadata struct {
	Name        string       `json:"name"`
	Index       int          `json:"index"`
	DataType    string       `json:"data_type"`
	IsNumeric   bool         `json:"is_numeric"`
	IsDateTime  bool         `json:"is_datetime"`
	HasNulls    bool         `json:"has_nulls"`
	NullCount   int          `json:"null_count"`
	UniqueCount int          `json:"unique_count"`
	Stats       *ColumnStats `json:"stats,omitempty"`
}

// ColumnStats contains statistical information for numeric columns
type ColumnStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Sum   float64 `json:"sum"`
	Count int     `json:"count"`
}

var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
}

// FromRows builds a dataset from generic row maps, inferring the schema.
// Column order follows first appearance across the rows.
func FromRows(name string, rows []map[string]any) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("dataset %q is empty", name)
	}

	var order []string
	seen := make(map[string]bool)
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				order = append(order, k)
			}
		}
	}

	ds := &Dataset{
		Name:        name,
		Rows:        rows,
		RowCount:    len(rows),
		ColumnCount: len(order),
	}
	for i, col := range order {
		ds.Columns = append(ds.Columns, profileColumn(col, i, rows))
	}
	return ds, nil
}

// FromCSV parses CSV input with a header row into a dataset. Cells that
// parse as numbers become float64 values; empty cells become nil.
func FromCSV(name string, r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var rows []map[string]any
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", len(rows)+2, err)
		}
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i >= len(record) {
				row[col] = nil
				continue
			}
			row[col] = parseCell(record[i])
		}
		rows = append(rows, row)
	}
	return FromRows(name, rows)
}

func parseCell(cell string) any {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	return cell
}

func profileColumn(name string, index int, rows []map[string]any) ColumnMetadata {
	meta := ColumnMetadata{Name: name, Index: index}

	numeric, datetime, boolean, str := 0, 0, 0, 0
	unique := make(map[string]bool)
	stats := &ColumnStats{Min: math.Inf(1), Max: math.Inf(-1)}

	for _, row := range rows {
		v, ok := row[name]
		if !ok || IsNull(v) {
			meta.NullCount++
			continue
		}
		unique[fmt.Sprintf("%v", v)] = true

		if f, ok := AsFloat(v); ok {
			numeric++
			stats.Sum += f
			stats.Count++
			if f < stats.Min {
				stats.Min = f
			}
			if f > stats.Max {
				stats.Max = f
			}
			continue
		}
		switch v.(type) {
		case bool:
			boolean++
			continue
		case time.Time:
			datetime++
			continue
		}
		s := fmt.Sprintf("%v", v)
		if isDateTimeString(s) {
			datetime++
		} else {
			str++
		}
	}

	nonNull := len(rows) - meta.NullCount
	meta.HasNulls = meta.NullCount > 0
	meta.UniqueCount = len(unique)

	switch {
	case nonNull == 0:
		meta.DataType = TypeString
	case numeric == nonNull:
		meta.DataType = TypeNumeric
		meta.IsNumeric = true
		stats.Mean = stats.Sum / float64(stats.Count)
		meta.Stats = stats
	case datetime == nonNull:
		meta.DataType = TypeDateTime
		meta.IsDateTime = true
	case boolean == nonNull:
		meta.DataType = TypeBoolean
	case str == nonNull:
		meta.DataType = TypeString
	default:
		meta.DataType = TypeMixed
	}
	return meta
}

func isDateTimeString(s string) bool {
	_, ok := ParseTime(s)
	return ok
}

// ParseTime parses a timestamp string against the layouts the type
// detector recognises.
func ParseTime(s string) (time.Time, bool) {
	for _, layout := range datetimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// Column returns the metadata for a named column.
func (ds *Dataset) Column(name string) (ColumnMetadata, bool) {
	for _, c := range ds.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnMetadata{}, false
}

// HasColumn reports whether the dataset contains the named column.
func (ds *Dataset) HasColumn(name string) bool {
	_, ok := ds.Column(name)
	return ok
}

// WithRows derives a new dataset holding the given row subset. The schema is
// re-profiled so per-column statistics reflect the subset.
func (ds *Dataset) WithRows(rows []map[string]any) (*Dataset, error) {
	return FromRows(ds.Name, rows)
}

// Validate checks that the dataset can enter a pipeline run.
func (ds *Dataset) Validate() error {
	if ds.RowCount == 0 {
		return fmt.Errorf("dataset is empty (0 rows)")
	}
	if ds.ColumnCount < 2 {
		return fmt.Errorf("dataset needs at least one feature column and one target column")
	}
	return nil
}

// IsNull reports whether a cell value counts as missing.
func IsNull(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(strings.ToLower(t))
		return s == "" || s == "nan" || s == "null" || s == "none" || s == "na"
	case float64:
		return math.IsNaN(t)
	case float32:
		return math.IsNaN(float64(t))
	}
	return false
}

// AsFloat converts a cell value to float64 when it is numeric.
func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) {
			return 0, false
		}
		return t, true
	case float32:
		if math.IsNaN(float64(t)) {
			return 0, false
		}
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// AsString converts a cell value to its categorical string form.
func AsString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}
