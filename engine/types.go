package engine

import (
	"strconv"
	"strings"
)

// ============================================================================
// TALLY ENGINE TYPES — Schema, Records, Datasets, Summary Rows
// ============================================================================
// Record keeps the dimension/measure split: text columns live in Dimensions,
// numeric columns in Measures. A measure cell is an optional Number so a
// missing value never reads as zero.
// ============================================================================

// ============================================================================
// SCHEMA
// ============================================================================

// Kind is the semantic type of a column.
type Kind string

const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindFloat   Kind = "float"
	KindMulti   Kind = "multi" // delimiter-separated list of tags
)

// IsNumeric reports whether values of this kind are stored as measures.
func (k Kind) IsNumeric() bool {
	return k == KindInteger || k == KindFloat
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindString, KindInteger, KindFloat, KindMulti:
		return true
	}
	return false
}

// Column is one named, typed column of a Schema.
type Column struct {
	Name      string `json:"name" yaml:"name"`
	Kind      Kind   `json:"kind" yaml:"kind"`
	Delimiter string `json:"delimiter,omitempty" yaml:"delimiter,omitempty"` // only for KindMulti
}

// Schema is the ordered column list shared by every record of a Dataset.
type Schema []Column

// Lookup returns the column with the given name.
func (s Schema) Lookup(name string) (Column, bool) {
	for _, c := range s {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Has reports whether the schema contains a column.
func (s Schema) Has(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// Names returns column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// with returns a copy of the schema with col replacing any column of the same name,
// or appended when absent.
func (s Schema) with(col Column) Schema {
	out := make(Schema, 0, len(s)+1)
	replaced := false
	for _, c := range s {
		if c.Name == col.Name {
			out = append(out, col)
			replaced = true
			continue
		}
		out = append(out, c)
	}
	if !replaced {
		out = append(out, col)
	}
	return out
}

// ============================================================================
// RECORD
// ============================================================================

// Record is a single data row with text dimensions and optional numeric measures.
//
// Records are treated as immutable once they are part of a Dataset. Operations
// that need a changed record clone it first.
type Record struct {
	Dimensions map[string]string `json:"dimensions"`
	Measures   map[string]Number `json:"measures"`
}

// NewRecord creates an empty record with initialised maps.
func NewRecord() Record {
	return Record{
		Dimensions: make(map[string]string),
		Measures:   make(map[string]Number),
	}
}

// Text returns a column value as text. Measures are formatted without
// trailing zeros; missing measures return "".
func (r Record) Text(column string) string {
	if v, ok := r.Dimensions[column]; ok {
		return v
	}
	if n, ok := r.Measures[column]; ok {
		if v, ok := n.Get(); ok {
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// Number returns the measure for column; absent columns are missing.
func (r Record) Number(column string) Number {
	return r.Measures[column]
}

// Clone returns a deep copy; the clone shares no maps with r.
func (r Record) Clone() Record {
	c := Record{
		Dimensions: make(map[string]string, len(r.Dimensions)),
		Measures:   make(map[string]Number, len(r.Measures)),
	}
	for k, v := range r.Dimensions {
		c.Dimensions[k] = v
	}
	for k, v := range r.Measures {
		c.Measures[k] = v
	}
	return c
}

// ============================================================================
// DATASET
// ============================================================================

// Dataset is an ordered sequence of records sharing a schema.
// Every engine operation returns a new Dataset and leaves its input untouched.
type Dataset struct {
	schema  Schema
	records []Record
}

// NewDataset builds a Dataset. The records slice is copied; records themselves
// are shared and must not be mutated afterwards.
func NewDataset(schema Schema, records []Record) Dataset {
	rs := make([]Record, len(records))
	copy(rs, records)
	sc := make(Schema, len(schema))
	copy(sc, schema)
	return Dataset{schema: sc, records: rs}
}

func (d Dataset) Len() int { return len(d.records) }

// Schema returns a copy of the dataset schema.
func (d Dataset) Schema() Schema {
	sc := make(Schema, len(d.schema))
	copy(sc, d.schema)
	return sc
}

// Record returns the record at index i.
func (d Dataset) Record(i int) Record { return d.records[i] }

// Records returns a copy of the record slice.
func (d Dataset) Records() []Record {
	rs := make([]Record, len(d.records))
	copy(rs, d.records)
	return rs
}

// Values collects the non-missing values of a numeric column, in record order.
func (d Dataset) Values(column string) []float64 {
	vals := make([]float64, 0, len(d.records))
	for _, r := range d.records {
		if v, ok := r.Number(column).Get(); ok {
			vals = append(vals, v)
		}
	}
	return vals
}

// ============================================================================
// GROUP KEY + SUMMARY ROW
// ============================================================================

// KeyPart is one (column, value) component of a GroupKey.
type KeyPart struct {
	Column string `json:"column"`
	Value  string `json:"value"`

	// Numeric marks a key taken from an integer or float column; such keys
	// sort by value, not as text.
	Numeric bool `json:"-"`
}

// GroupKey identifies a partition. Parts follow grouping column order.
type GroupKey []KeyPart

// String joins the key values; an empty key is the whole dataset.
func (k GroupKey) String() string {
	if len(k) == 0 {
		return "Total"
	}
	vals := make([]string, len(k))
	for i, p := range k {
		vals[i] = p.Value
	}
	return strings.Join(vals, " / ")
}

// Get returns the key value for a grouping column.
func (k GroupKey) Get(column string) (string, bool) {
	for _, p := range k {
		if p.Column == column {
			return p.Value, true
		}
	}
	return "", false
}

func (k GroupKey) part(column string) (KeyPart, bool) {
	for _, p := range k {
		if p.Column == column {
			return p, true
		}
	}
	return KeyPart{}, false
}

// SummaryRow is one aggregated output row.
type SummaryRow struct {
	Key    GroupKey          `json:"key"`
	Count  int               `json:"count"` // partition size
	Values map[string]Number `json:"values"`
	Rank   int               `json:"rank,omitempty"` // 0 = not ranked
}

// Metric resolves a named metric: "count", "rank" or an aggregation name.
func (r SummaryRow) Metric(name string) Number {
	switch name {
	case MetricCount:
		return Some(float64(r.Count))
	case MetricRank:
		if r.Rank == 0 {
			return None()
		}
		return Some(float64(r.Rank))
	}
	return r.Values[name]
}

// clone copies the row so sorting and ranking never alias caller data.
func (r SummaryRow) clone() SummaryRow {
	c := r
	c.Key = append(GroupKey(nil), r.Key...)
	c.Values = make(map[string]Number, len(r.Values))
	for k, v := range r.Values {
		c.Values[k] = v
	}
	return c
}

// Reserved metric names understood by SummaryRow.Metric.
const (
	MetricCount = "count"
	MetricRank  = "rank"
)

// ============================================================================
// TABLE TYPES — render-ready output
// ============================================================================

// TableData defines how to render a table.
type TableData struct {
	Title   string     `json:"title"`
	Columns []TableCol `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// TableCol defines a table column.
type TableCol struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number"
	Align string `json:"align"` // "left", "right"
}

// Headers returns column labels in order.
func (t TableData) Headers() []string {
	h := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		h[i] = c.Label
	}
	return h
}

// ============================================================================
// CHART TYPES
// ============================================================================

// ChartConfig describes a chart for a rendering collaborator.
type ChartConfig struct {
	ChartType string        `json:"chartType"` // "bar", "line", "scatter", "box"
	Title     string        `json:"title"`
	XAxis     string        `json:"xAxis,omitempty"`
	YAxis     string        `json:"yAxis,omitempty"`
	Series    []ChartSeries `json:"series,omitempty"`
	Boxes     []BoxSummary  `json:"boxes,omitempty"`
	Colors    []string      `json:"colors,omitempty"`
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name  string       `json:"name"`
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint is a single point. X is set only for scatter charts.
type ChartPoint struct {
	Label string  `json:"label"`
	X     float64 `json:"x,omitempty"`
	Value float64 `json:"value"`
}

// BoxSummary is the five-number summary of one group's values.
type BoxSummary struct {
	Label  string  `json:"label"`
	N      int     `json:"n"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}
