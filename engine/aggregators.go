package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
)

// ============================================================================
// AGGREGATORS — Grouping, Aggregation, and Sorting
// ============================================================================
// GroupSummarize partitions a Dataset by exact key equality and computes the
// requested aggregations per partition. Numeric aggregations only ever see
// present values; a partition with none yields a missing Number, never zero.
// ============================================================================

// AggOp names an aggregation function.
type AggOp string

const (
	AggCount   AggOp = "count"    // partition size
	AggCountOf AggOp = "count_of" // present values of a column
	AggMean    AggOp = "mean"
	AggMax     AggOp = "max"
	AggMin     AggOp = "min"
	AggSum     AggOp = "sum"
	AggMedian  AggOp = "median"
	AggRatio   AggOp = "ratio" // mean aggregation / mean aggregation
)

// Aggregation is one requested summary value.
type Aggregation struct {
	Name        string `json:"name" yaml:"name" koanf:"name"`
	Op          AggOp  `json:"op" yaml:"op" koanf:"op"`
	Column      string `json:"column,omitempty" yaml:"column,omitempty" koanf:"column"`
	Numerator   string `json:"numerator,omitempty" yaml:"numerator,omitempty" koanf:"numerator"`
	Denominator string `json:"denominator,omitempty" yaml:"denominator,omitempty" koanf:"denominator"`
}

// Count counts the records of each partition.
func Count() Aggregation { return Aggregation{Name: MetricCount, Op: AggCount} }

// CountOf counts the present values of column.
func CountOf(column string) Aggregation { return numericAgg(AggCountOf, column) }

// Mean averages the present values of column.
func Mean(column string) Aggregation { return numericAgg(AggMean, column) }

// Max is the largest present value of column.
func Max(column string) Aggregation { return numericAgg(AggMax, column) }

// Min is the smallest present value of column.
func Min(column string) Aggregation { return numericAgg(AggMin, column) }

// Sum adds the present values of column.
func Sum(column string) Aggregation { return numericAgg(AggSum, column) }

// Median is the median of the present values of column.
func Median(column string) Aggregation { return numericAgg(AggMedian, column) }

// Ratio divides two mean aggregations that appear earlier in the same request.
func Ratio(name, numerator, denominator string) Aggregation {
	return Aggregation{Name: name, Op: AggRatio, Numerator: numerator, Denominator: denominator}
}

func numericAgg(op AggOp, column string) Aggregation {
	return Aggregation{Name: string(op) + "_" + column, Op: op, Column: column}
}

// As renames the aggregation output.
func (a Aggregation) As(name string) Aggregation {
	a.Name = name
	return a
}

// resolvedName fills the default name for aggregations declared without one.
func (a Aggregation) resolvedName() string {
	switch {
	case a.Name != "":
		return a.Name
	case a.Op == AggCount:
		return MetricCount
	case a.Op == AggRatio:
		return a.Numerator + "_per_" + a.Denominator
	}
	return string(a.Op) + "_" + a.Column
}

// ============================================================================
// GROUPING
// ============================================================================

// Grouping produces the GroupKey of a record.
type Grouping struct {
	columns []string
	name    string
	fn      func(Record) string
}

// GroupBy partitions on the exact values of one or more columns.
// GroupBy() with no columns produces a single "Total" partition.
func GroupBy(columns ...string) Grouping {
	return Grouping{columns: append([]string(nil), columns...)}
}

// GroupByFunc partitions on a derived value; name labels the key part.
func GroupByFunc(name string, fn func(Record) string) Grouping {
	return Grouping{name: name, fn: fn}
}

// Columns returns the grouping column names (or the derived key name).
func (g Grouping) Columns() []string {
	if g.fn != nil {
		return []string{g.name}
	}
	return append([]string(nil), g.columns...)
}

func (g Grouping) key(r Record, numeric map[string]bool) GroupKey {
	if g.fn != nil {
		return GroupKey{{Column: g.name, Value: g.fn(r)}}
	}
	key := make(GroupKey, len(g.columns))
	for i, c := range g.columns {
		key[i] = KeyPart{Column: c, Value: r.Text(c), Numeric: numeric[c]}
	}
	return key
}

func (g Grouping) validate(schema Schema) error {
	if g.fn != nil {
		if g.name == "" {
			return fmt.Errorf("%w: derived grouping needs a name", ErrInvalidAnalysis)
		}
		return nil
	}
	for _, c := range g.columns {
		if _, err := requireColumn(schema, "group", c); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
// GROUP + SUMMARISE
// ============================================================================

type partition struct {
	key     GroupKey
	records []Record
}

// GroupSummarize partitions ds by g and computes aggs for each partition.
// Rows come out in first-seen key order. Every column reference is checked
// before any record is touched; on error no rows are returned.
func GroupSummarize(ds Dataset, g Grouping, aggs ...Aggregation) ([]SummaryRow, error) {
	if err := g.validate(ds.schema); err != nil {
		return nil, err
	}
	if err := validateAggregations(ds.schema, aggs); err != nil {
		return nil, err
	}

	parts := partitionRecords(ds, g)
	rows := make([]SummaryRow, 0, len(parts))
	for _, p := range parts {
		rows = append(rows, summarise(p, aggs))
	}
	return rows, nil
}

func partitionRecords(ds Dataset, g Grouping) []*partition {
	index := make(map[string]*partition)
	order := make([]*partition, 0)

	if len(g.columns) == 0 && g.fn == nil {
		p := &partition{key: GroupKey{}}
		p.records = append(p.records, ds.records...)
		if len(p.records) == 0 {
			return nil
		}
		return []*partition{p}
	}

	numeric := make(map[string]bool, len(g.columns))
	for _, c := range g.columns {
		if col, ok := ds.schema.Lookup(c); ok && col.Kind.IsNumeric() {
			numeric[c] = true
		}
	}

	for _, r := range ds.records {
		key := g.key(r, numeric)
		id := keyID(key)
		p, ok := index[id]
		if !ok {
			p = &partition{key: key}
			index[id] = p
			order = append(order, p)
		}
		p.records = append(p.records, r)
	}
	return order
}

// keyID joins key values with a unit separator so ("a b","c") and ("a","b c") differ.
func keyID(k GroupKey) string {
	vals := make([]string, len(k))
	for i, p := range k {
		vals[i] = p.Value
	}
	return strings.Join(vals, "\x1f")
}

func summarise(p *partition, aggs []Aggregation) SummaryRow {
	row := SummaryRow{
		Key:    p.key,
		Count:  len(p.records),
		Values: make(map[string]Number, len(aggs)),
	}

	for _, a := range aggs {
		name := a.resolvedName()
		switch a.Op {
		case AggCount:
			row.Values[name] = Some(float64(len(p.records)))
		case AggRatio:
			row.Values[name] = divide(row.Values[a.Numerator], row.Values[a.Denominator])
		default:
			row.Values[name] = aggregateValues(a.Op, presentValues(p.records, a.Column))
		}
	}
	return row
}

func presentValues(records []Record, column string) []float64 {
	vals := make([]float64, 0, len(records))
	for _, r := range records {
		if v, ok := r.Number(column).Get(); ok {
			vals = append(vals, v)
		}
	}
	return vals
}

// aggregateValues applies op to present values. An empty input is missing,
// except for count_of which is a plain count.
func aggregateValues(op AggOp, vals []float64) Number {
	if op == AggCountOf {
		return Some(float64(len(vals)))
	}
	if len(vals) == 0 {
		return None()
	}

	var (
		v   float64
		err error
	)
	switch op {
	case AggMean:
		v, err = stats.Mean(vals)
	case AggMax:
		v, err = stats.Max(vals)
	case AggMin:
		v, err = stats.Min(vals)
	case AggSum:
		v, err = stats.Sum(vals)
	case AggMedian:
		v, err = stats.Median(vals)
	default:
		return None()
	}
	if err != nil {
		return None()
	}
	return Some(v)
}

func divide(num, den Number) Number {
	n, ok1 := num.Get()
	d, ok2 := den.Get()
	if !ok1 || !ok2 || d == 0 {
		return None()
	}
	return Some(n / d)
}

// validateAggregations checks columns, names and ratio references.
func validateAggregations(schema Schema, aggs []Aggregation) error {
	seen := make(map[string]AggOp, len(aggs))
	for _, a := range aggs {
		name := a.resolvedName()
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate aggregation name %q", ErrInvalidAnalysis, name)
		}
		if name == MetricRank {
			return fmt.Errorf("%w: aggregation name %q is reserved", ErrInvalidAnalysis, name)
		}

		switch a.Op {
		case AggCount:
		case AggCountOf, AggMean, AggMax, AggMin, AggSum, AggMedian:
			if a.Column == "" {
				return fmt.Errorf("%w: aggregation %q needs a column", ErrInvalidAnalysis, name)
			}
			if err := requireNumeric(schema, string(a.Op), a.Column); err != nil {
				return err
			}
		case AggRatio:
			for _, ref := range []string{a.Numerator, a.Denominator} {
				op, ok := seen[ref]
				if !ok {
					return fmt.Errorf("%w: ratio %q references %q, which is not an earlier aggregation", ErrInvalidAnalysis, name, ref)
				}
				if op != AggMean {
					return fmt.Errorf("%w: ratio %q references %q, which is not a mean", ErrInvalidAnalysis, name, ref)
				}
			}
		default:
			return fmt.Errorf("%w: unknown aggregation op %q", ErrInvalidAnalysis, a.Op)
		}
		seen[name] = a.Op
	}
	return nil
}

// ============================================================================
// SORTING
// ============================================================================

// SortBy returns rows stably sorted by key. The key is a grouping column
// (numeric columns by value, text case-insensitively), "count", "rank" or
// an aggregation name. Missing metric values go last in either direction; ties keep their
// prior relative order.
func SortBy(rows []SummaryRow, key string, descending bool) []SummaryRow {
	out := cloneRows(rows)
	sort.SliceStable(out, func(i, j int) bool {
		return rowLess(out[i], out[j], key, descending)
	})
	return out
}

func rowLess(a, b SummaryRow, key string, descending bool) bool {
	if ap, ok := a.Key.part(key); ok {
		bp, _ := b.Key.part(key)
		if ap.Numeric {
			return numberLess(ParseNumber(ap.Value), ParseNumber(bp.Value), descending)
		}
		c := strings.Compare(strings.ToLower(ap.Value), strings.ToLower(bp.Value))
		if descending {
			return c > 0
		}
		return c < 0
	}
	return numberLess(a.Metric(key), b.Metric(key), descending)
}

// numberLess orders present values before missing ones in either direction.
func numberLess(a, b Number, descending bool) bool {
	av, aok := a.Get()
	bv, bok := b.Get()
	switch {
	case !aok && !bok:
		return false
	case !aok:
		return false
	case !bok:
		return true
	}
	if descending {
		return av > bv
	}
	return av < bv
}

// Limit returns the first n rows; n <= 0 returns all.
func Limit(rows []SummaryRow, n int) []SummaryRow {
	if n <= 0 || n >= len(rows) {
		return cloneRows(rows)
	}
	return cloneRows(rows[:n])
}

func cloneRows(rows []SummaryRow) []SummaryRow {
	out := make([]SummaryRow, len(rows))
	for i, r := range rows {
		out[i] = r.clone()
	}
	return out
}

// ============================================================================
// FORMATTING UTILITIES
// ============================================================================

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", FormatInt(n/1000), n%1000)
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// UniqueValues returns distinct non-empty values of a column in first-seen order.
func UniqueValues(ds Dataset, column string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, r := range ds.records {
		val := r.Text(column)
		if val != "" && !seen[val] {
			seen[val] = true
			result = append(result, val)
		}
	}
	return result
}

// LabelFor turns a column or metric key into a display label.
// "cal_fat" → "Cal Fat".
func LabelFor(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// LabelForAggregation returns a human-readable label for an aggregation.
func LabelForAggregation(a Aggregation) string {
	if a.Name != "" && a.Name != a.resolvedDefault() {
		return LabelFor(a.Name)
	}
	switch a.Op {
	case AggCount:
		return "Count"
	case AggCountOf:
		return LabelFor(a.Column) + " (n)"
	case AggMean:
		return "Mean " + LabelFor(a.Column)
	case AggMax:
		return "Max " + LabelFor(a.Column)
	case AggMin:
		return "Min " + LabelFor(a.Column)
	case AggSum:
		return "Total " + LabelFor(a.Column)
	case AggMedian:
		return "Median " + LabelFor(a.Column)
	}
	return LabelFor(a.resolvedName())
}

func (a Aggregation) resolvedDefault() string {
	a.Name = ""
	return a.resolvedName()
}
