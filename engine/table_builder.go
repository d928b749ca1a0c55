package engine

import "strconv"

// ============================================================================
// TABLE BUILDER — Produces TableData from a Result
// ============================================================================
// Columns: grouping columns, then one per aggregation, then rank if ranked.
// Missing values render as the configured missing label, never as 0.
// ============================================================================

// BuildTable renders the rows of r as text cells.
func BuildTable(r *Result, cfg *config) *TableData {
	if cfg == nil {
		cfg = applyOptions(nil)
	}

	columns := make([]TableCol, 0, len(r.GroupBy)+len(r.Aggregations)+1)
	if len(r.GroupBy) == 0 {
		columns = append(columns, TableCol{Key: "group", Label: "Group", Type: "text", Align: "left"})
	}
	for _, g := range r.GroupBy {
		columns = append(columns, TableCol{Key: g, Label: LabelFor(g), Type: "text", Align: "left"})
	}
	for _, a := range r.Aggregations {
		columns = append(columns, TableCol{
			Key:   a.resolvedName(),
			Label: LabelForAggregation(a),
			Type:  "number",
			Align: "right",
		})
	}
	if r.Ranked {
		columns = append(columns, TableCol{Key: MetricRank, Label: "Rank", Type: "number", Align: "right"})
	}

	rows := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		cells := make([]string, 0, len(columns))
		if len(r.GroupBy) == 0 {
			cells = append(cells, row.Key.String())
		}
		for _, g := range r.GroupBy {
			v, _ := row.Key.Get(g)
			cells = append(cells, v)
		}
		for _, a := range r.Aggregations {
			cells = append(cells, row.Values[a.resolvedName()].Format(cfg.Precision, cfg.MissingLabel))
		}
		if r.Ranked {
			cells = append(cells, strconv.Itoa(row.Rank))
		}
		rows = append(rows, cells)
	}

	return &TableData{
		Title:   r.Title,
		Columns: columns,
		Rows:    rows,
	}
}

// BuildProfileTable renders Describe output.
func BuildProfileTable(title string, profiles []ColumnProfile, opts ...Option) *TableData {
	cfg := applyOptions(opts)
	columns := []TableCol{
		{Key: "column", Label: "Column", Type: "text", Align: "left"},
		{Key: "kind", Label: "Kind", Type: "text", Align: "left"},
		{Key: "count", Label: "Count", Type: "number", Align: "right"},
		{Key: "missing", Label: "Missing", Type: "number", Align: "right"},
		{Key: "distinct", Label: "Distinct", Type: "number", Align: "right"},
		{Key: "mean", Label: "Mean", Type: "number", Align: "right"},
		{Key: "std", Label: "Std", Type: "number", Align: "right"},
		{Key: "min", Label: "Min", Type: "number", Align: "right"},
		{Key: "median", Label: "Median", Type: "number", Align: "right"},
		{Key: "max", Label: "Max", Type: "number", Align: "right"},
	}

	f := func(n Number) string { return n.Format(cfg.Precision, cfg.MissingLabel) }
	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		rows = append(rows, []string{
			p.Column,
			string(p.Kind),
			strconv.Itoa(p.Count),
			strconv.Itoa(p.Missing),
			strconv.Itoa(p.Distinct),
			f(p.Mean), f(p.Std), f(p.Min), f(p.Median), f(p.Max),
		})
	}
	return &TableData{Title: title, Columns: columns, Rows: rows}
}
