package engine

import (
	"fmt"
	"strings"
)

// ============================================================================
// FILTERS — Predicates over Records
// ============================================================================
// Filter returns a new Dataset holding the matching subsequence. Predicates
// are plain functions so callers can pass anything; Where and Filters cover
// the declarative cases and are checked against the schema before use.
// ============================================================================

// Predicate reports whether a record should be kept.
type Predicate func(Record) bool

// Filter returns the records of ds satisfying pred, in their original order.
// An empty result is valid. A nil predicate keeps everything.
func Filter(ds Dataset, pred Predicate) Dataset {
	if pred == nil {
		return NewDataset(ds.schema, ds.records)
	}
	kept := make([]Record, 0, len(ds.records))
	for _, r := range ds.records {
		if pred(r) {
			kept = append(kept, r)
		}
	}
	return Dataset{schema: ds.Schema(), records: kept}
}

// And is true when every predicate is true. And() is always true.
func And(preds ...Predicate) Predicate {
	return func(r Record) bool {
		for _, p := range preds {
			if p != nil && !p(r) {
				return false
			}
		}
		return true
	}
}

// Or is true when any predicate is true. Or() is always false.
func Or(preds ...Predicate) Predicate {
	return func(r Record) bool {
		for _, p := range preds {
			if p != nil && p(r) {
				return true
			}
		}
		return false
	}
}

// Not negates p.
func Not(p Predicate) Predicate {
	return func(r Record) bool { return !p(r) }
}

// ============================================================================
// DECLARATIVE CONDITIONS
// ============================================================================

// Op is a comparison operator for Condition.
type Op string

const (
	OpEq       Op = "eq"
	OpNe       Op = "ne"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpIn       Op = "in"
	OpContains Op = "contains"
	OpMissing  Op = "missing"
	OpPresent  Op = "present"
)

// Condition is a single declarative comparison. Conditions in a list are ANDed.
//
// Numeric columns compare Value as a number; a missing cell never satisfies
// a comparison (only OpMissing). Text columns compare case-insensitively.
type Condition struct {
	Column string   `json:"column" yaml:"column" koanf:"column"`
	Op     Op       `json:"op" yaml:"op" koanf:"op"`
	Value  string   `json:"value,omitempty" yaml:"value,omitempty" koanf:"value"`
	Values []string `json:"values,omitempty" yaml:"values,omitempty" koanf:"values"`
}

// Compile checks the condition against schema and returns its predicate.
func (c Condition) Compile(schema Schema) (Predicate, error) {
	col, err := requireColumn(schema, "filter", c.Column)
	if err != nil {
		return nil, err
	}
	name := c.Column

	switch c.Op {
	case OpMissing:
		if col.Kind.IsNumeric() {
			return func(r Record) bool { return !r.Number(name).Valid() }, nil
		}
		return func(r Record) bool { return strings.TrimSpace(r.Dimensions[name]) == "" }, nil
	case OpPresent:
		if col.Kind.IsNumeric() {
			return func(r Record) bool { return r.Number(name).Valid() }, nil
		}
		return func(r Record) bool { return strings.TrimSpace(r.Dimensions[name]) != "" }, nil
	case OpIn:
		if len(c.Values) == 0 {
			return nil, fmt.Errorf("%w: filter on %q: op in needs values", ErrInvalidAnalysis, name)
		}
		set := toLowerSet(c.Values)
		return func(r Record) bool { return set[strings.ToLower(r.Text(name))] }, nil
	case OpContains:
		needle := strings.ToLower(c.Value)
		return func(r Record) bool { return strings.Contains(strings.ToLower(r.Text(name)), needle) }, nil
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
	default:
		return nil, fmt.Errorf("%w: filter on %q: unknown op %q", ErrInvalidAnalysis, name, c.Op)
	}

	if col.Kind.IsNumeric() {
		want, ok := ParseNumber(c.Value).Get()
		if !ok {
			return nil, fmt.Errorf("%w: filter on %q: %q is not a number", ErrInvalidAnalysis, name, c.Value)
		}
		return Where(name, c.Op, want), nil
	}

	want := strings.ToLower(c.Value)
	cmp := func(r Record) int { return strings.Compare(strings.ToLower(r.Dimensions[name]), want) }
	return compareWith(c.Op, cmp), nil
}

// Where compares a numeric column against a constant.
// Missing values never match.
func Where(column string, op Op, value float64) Predicate {
	return func(r Record) bool {
		v, ok := r.Number(column).Get()
		if !ok {
			return false
		}
		return compareWith(op, func(Record) int {
			switch {
			case v < value:
				return -1
			case v > value:
				return 1
			}
			return 0
		})(r)
	}
}

func compareWith(op Op, cmp func(Record) int) Predicate {
	return func(r Record) bool {
		c := cmp(r)
		switch op {
		case OpEq:
			return c == 0
		case OpNe:
			return c != 0
		case OpGt:
			return c > 0
		case OpGte:
			return c >= 0
		case OpLt:
			return c < 0
		case OpLte:
			return c <= 0
		}
		return false
	}
}

// CompileConditions ANDs a list of conditions. The first invalid condition
// aborts compilation.
func CompileConditions(schema Schema, conds []Condition) (Predicate, error) {
	preds := make([]Predicate, 0, len(conds))
	for _, c := range conds {
		p, err := c.Compile(schema)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return And(preds...), nil
}

// ============================================================================
// ALLOW-LIST FILTERS
// ============================================================================

// Filters define which records to include by allowed text values.
// Keys are column names. OR within a column, AND across columns. Empty = all.
type Filters struct {
	Dimensions map[string][]string `json:"dimensions" yaml:"dimensions" koanf:"dimensions"`
}

// HasFilter returns true if a specific column filter is set.
func (f Filters) HasFilter(column string) bool {
	if f.Dimensions == nil {
		return false
	}
	vals, ok := f.Dimensions[column]
	return ok && len(vals) > 0
}

// IsEmpty returns true if no filters are set.
func (f Filters) IsEmpty() bool {
	for _, vals := range f.Dimensions {
		if len(vals) > 0 {
			return false
		}
	}
	return true
}

// Predicate compiles the allow-lists, checking every column against schema.
func (f Filters) Predicate(schema Schema) (Predicate, error) {
	if f.IsEmpty() {
		return And(), nil
	}

	sets := make(map[string]map[string]bool)
	for col, allowed := range f.Dimensions {
		if len(allowed) == 0 {
			continue
		}
		if _, err := requireColumn(schema, "filter", col); err != nil {
			return nil, err
		}
		sets[col] = toLowerSet(allowed)
	}

	return func(r Record) bool {
		for col, set := range sets {
			if !set[strings.ToLower(r.Text(col))] {
				return false
			}
		}
		return true
	}, nil
}

// toLowerSet converts a string slice to a lowercase lookup set.
func toLowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(item)] = true
	}
	return set
}
