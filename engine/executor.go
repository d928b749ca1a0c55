package engine

import (
	"fmt"
	"slices"
)

// ============================================================================
// EXECUTOR — Declarative Analysis → Result
// ============================================================================
// Entry point: Execute(analysis, dataset, opts...)
//
// Pipeline:
//   1. Compile: check every column reference against the evolving schema
//      (fail fast, nothing computed on error)
//   2. Flatten the multi-valued column, if any
//   3. Derive classification columns
//   4. Filter
//   5. Group and summarise
//   6. Sort, rank, limit
//   7. Build table (and chart)
//
// Execute is pure: the input Dataset is never modified and the same input
// always yields the same Result.
// ============================================================================

// Analysis declares one derived table.
type Analysis struct {
	Name         string         `json:"name" yaml:"name" koanf:"name"`
	Title        string         `json:"title,omitempty" yaml:"title,omitempty" koanf:"title"`
	Dataset      string         `json:"dataset,omitempty" yaml:"dataset,omitempty" koanf:"dataset"`
	Flatten      *FlattenStep   `json:"flatten,omitempty" yaml:"flatten,omitempty" koanf:"flatten"`
	Classify     []ClassifyStep `json:"classify,omitempty" yaml:"classify,omitempty" koanf:"classify"`
	Where        []Condition    `json:"where,omitempty" yaml:"where,omitempty" koanf:"where"`
	Only         Filters        `json:"only,omitempty" yaml:"only,omitempty" koanf:"only"`
	GroupBy      []string       `json:"groupBy,omitempty" yaml:"group_by,omitempty" koanf:"group_by"`
	Aggregations []Aggregation  `json:"aggregations,omitempty" yaml:"aggregations,omitempty" koanf:"aggregations"`
	Sort         *SortStep      `json:"sort,omitempty" yaml:"sort,omitempty" koanf:"sort"`
	Rank         *RankStep      `json:"rank,omitempty" yaml:"rank,omitempty" koanf:"rank"`
	Limit        int            `json:"limit,omitempty" yaml:"limit,omitempty" koanf:"limit"`
	Chart        *ChartSpec     `json:"chart,omitempty" yaml:"chart,omitempty" koanf:"chart"`
}

// FlattenStep expands a multi-valued column before anything else runs.
type FlattenStep struct {
	Column    string `json:"column" yaml:"column" koanf:"column"`
	Delimiter string `json:"delimiter,omitempty" yaml:"delimiter,omitempty" koanf:"delimiter"`
}

// ClassifyStep derives column As from the bands of numeric Column.
type ClassifyStep struct {
	Column    string `json:"column" yaml:"column" koanf:"column"`
	As        string `json:"as" yaml:"as" koanf:"as"`
	Bands     []Band `json:"bands" yaml:"bands" koanf:"bands"`
	Otherwise string `json:"otherwise" yaml:"otherwise" koanf:"otherwise"`
	Missing   string `json:"missing,omitempty" yaml:"missing,omitempty" koanf:"missing"`
}

func (s ClassifyStep) bands() Bands {
	return Bands{Bands: s.Bands, Otherwise: s.Otherwise, Missing: s.Missing}
}

// SortStep orders the summary rows.
type SortStep struct {
	By         string `json:"by" yaml:"by" koanf:"by"`
	Descending bool   `json:"descending,omitempty" yaml:"descending,omitempty" koanf:"descending"`
}

// RankStep adds a dense rank by a metric.
type RankStep struct {
	By        string    `json:"by" yaml:"by" koanf:"by"`
	Direction Direction `json:"direction,omitempty" yaml:"direction,omitempty" koanf:"direction"`
}

// ChartSpec requests a chart description alongside the table.
//
//	bar, line: X = grouping column (default: first), Y = metric
//	scatter:   X and Y = metrics, one point per row
//	box:       X = grouping column, Value = numeric source column
type ChartSpec struct {
	Type  string `json:"type" yaml:"type" koanf:"type"`
	X     string `json:"x,omitempty" yaml:"x,omitempty" koanf:"x"`
	Y     string `json:"y,omitempty" yaml:"y,omitempty" koanf:"y"`
	Value string `json:"value,omitempty" yaml:"value,omitempty" koanf:"value"`
}

// Result is the engine's render-ready output for one Analysis.
type Result struct {
	Name         string        `json:"name"`
	Title        string        `json:"title"`
	GroupBy      []string      `json:"groupBy"`
	Aggregations []Aggregation `json:"aggregations"`
	Ranked       bool          `json:"ranked"`
	InputRecords int           `json:"inputRecords"` // after flatten
	Records      int           `json:"records"`      // after filter
	Rows         []SummaryRow  `json:"rows"`
	Table        *TableData    `json:"table"`
	Chart        *ChartConfig  `json:"chart,omitempty"`
}

// plan is an Analysis checked against a schema.
type plan struct {
	analysis Analysis
	pred     Predicate
	grouping Grouping
	aggs     []Aggregation
}

// Validate checks a against schema without computing anything.
func (a Analysis) Validate(schema Schema) error {
	_, err := a.compile(schema)
	return err
}

func (a Analysis) compile(schema Schema) (*plan, error) {
	wrap := func(err error) error { return fmt.Errorf("analysis %q: %w", a.Name, err) }

	if a.Name == "" {
		return nil, fmt.Errorf("%w: analysis has no name", ErrInvalidAnalysis)
	}

	// The schema evolves as flatten and classify steps run.
	sc := append(Schema(nil), schema...)

	if f := a.Flatten; f != nil {
		col, err := requireColumn(sc, "flatten", f.Column)
		if err != nil {
			return nil, wrap(err)
		}
		if col.Kind.IsNumeric() {
			return nil, wrap(wrongKind("flatten", f.Column, col.Kind, "string or multi"))
		}
		sc = sc.with(Column{Name: f.Column, Kind: KindString})
	}

	for _, step := range a.Classify {
		if err := requireNumeric(sc, "classify", step.Column); err != nil {
			return nil, wrap(err)
		}
		if step.As == "" {
			return nil, wrap(fmt.Errorf("%w: classification of %q needs a target column", ErrInvalidAnalysis, step.Column))
		}
		if err := step.bands().Validate(); err != nil {
			return nil, wrap(err)
		}
		sc = sc.with(Column{Name: step.As, Kind: KindString})
	}

	conds, err := CompileConditions(sc, a.Where)
	if err != nil {
		return nil, wrap(err)
	}
	only, err := a.Only.Predicate(sc)
	if err != nil {
		return nil, wrap(err)
	}

	grouping := GroupBy(a.GroupBy...)
	if err := grouping.validate(sc); err != nil {
		return nil, wrap(err)
	}

	aggs := a.Aggregations
	if len(aggs) == 0 {
		aggs = []Aggregation{Count()}
	}
	if err := validateAggregations(sc, aggs); err != nil {
		return nil, wrap(err)
	}

	metrics := []string{MetricCount}
	for _, ag := range aggs {
		metrics = append(metrics, ag.resolvedName())
	}

	if r := a.Rank; r != nil {
		if !slices.Contains(metrics, r.By) {
			return nil, wrap(fmt.Errorf("%w: rank by %q: not a metric of this analysis", ErrInvalidAnalysis, r.By))
		}
		if r.Direction != "" && r.Direction != Ascending && r.Direction != Descending {
			return nil, wrap(fmt.Errorf("%w: rank direction %q", ErrInvalidAnalysis, r.Direction))
		}
	}

	if s := a.Sort; s != nil {
		known := slices.Contains(metrics, s.By) || slices.Contains(a.GroupBy, s.By) ||
			(s.By == MetricRank && a.Rank != nil)
		if !known {
			return nil, wrap(fmt.Errorf("%w: sort by %q: not a grouping column or metric", ErrInvalidAnalysis, s.By))
		}
	}

	if c := a.Chart; c != nil {
		if err := validateChart(*c, sc, a.GroupBy, metrics); err != nil {
			return nil, wrap(err)
		}
	}

	return &plan{
		analysis: a,
		pred:     And(conds, only),
		grouping: grouping,
		aggs:     aggs,
	}, nil
}

// Execute runs an Analysis against ds and returns a render-ready Result.
func Execute(a Analysis, ds Dataset, opts ...Option) (*Result, error) {
	cfg := applyOptions(opts)
	log := cfg.Logger.With("analysis", a.Name)

	p, err := a.compile(ds.schema)
	if err != nil {
		return nil, err
	}

	work := ds
	if f := a.Flatten; f != nil {
		work, err = Flatten(work, f.Column, f.Delimiter)
		if err != nil {
			return nil, fmt.Errorf("analysis %q: %w", a.Name, err)
		}
		log.Debug("flattened", "column", f.Column, "from", ds.Len(), "to", work.Len())
	}

	for _, step := range a.Classify {
		work, err = WithClassification(work, step.Column, step.As, step.bands())
		if err != nil {
			return nil, fmt.Errorf("analysis %q: %w", a.Name, err)
		}
	}

	filtered := Filter(work, p.pred)
	log.Debug("filtered", "records", filtered.Len(), "from", work.Len())

	rows, err := GroupSummarize(filtered, p.grouping, p.aggs...)
	if err != nil {
		return nil, fmt.Errorf("analysis %q: %w", a.Name, err)
	}

	if a.Rank != nil {
		dir := a.Rank.Direction
		if dir == "" {
			dir = Descending
		}
		rows = Rank(rows, a.Rank.By, dir)
	}
	if a.Sort != nil {
		rows = SortBy(rows, a.Sort.By, a.Sort.Descending)
	}
	rows = Limit(rows, a.Limit)

	title := a.Title
	if title == "" {
		title = LabelFor(a.Name)
	}

	result := &Result{
		Name:         a.Name,
		Title:        title,
		GroupBy:      append([]string(nil), a.GroupBy...),
		Aggregations: append([]Aggregation(nil), p.aggs...),
		Ranked:       a.Rank != nil,
		InputRecords: work.Len(),
		Records:      filtered.Len(),
		Rows:         rows,
	}
	result.Table = BuildTable(result, cfg)

	if a.Chart != nil {
		result.Chart = BuildChart(*a.Chart, result, filtered)
	}

	log.Info("analysis complete", "groups", len(rows), "records", filtered.Len())
	return result, nil
}
