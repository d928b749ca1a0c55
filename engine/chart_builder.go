package engine

import (
	"fmt"
	"slices"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ============================================================================
// CHART BUILDER — Produces ChartConfig from a Result
// ============================================================================
// The config is technology-neutral: a renderer draws it however it likes.
// ============================================================================

// Default color palette for chart series.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

func validateChart(c ChartSpec, schema Schema, groupBy, metrics []string) error {
	switch c.Type {
	case "bar", "line":
		if c.X != "" && !slices.Contains(groupBy, c.X) {
			return fmt.Errorf("%w: chart x %q is not a grouping column", ErrInvalidAnalysis, c.X)
		}
		if c.Y != "" && !slices.Contains(metrics, c.Y) {
			return fmt.Errorf("%w: chart y %q is not a metric", ErrInvalidAnalysis, c.Y)
		}
	case "scatter":
		if !slices.Contains(metrics, c.X) || !slices.Contains(metrics, c.Y) {
			return fmt.Errorf("%w: scatter chart needs two metrics, got x=%q y=%q", ErrInvalidAnalysis, c.X, c.Y)
		}
	case "box":
		if c.X != "" && !slices.Contains(groupBy, c.X) {
			return fmt.Errorf("%w: chart x %q is not a grouping column", ErrInvalidAnalysis, c.X)
		}
		if err := requireNumeric(schema, "box chart", c.Value); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown chart type %q", ErrInvalidAnalysis, c.Type)
	}
	return nil
}

// BuildChart produces a ChartConfig for r. filtered is the dataset the rows
// were summarised from; box charts read raw values from it.
func BuildChart(spec ChartSpec, r *Result, filtered Dataset) *ChartConfig {
	config := &ChartConfig{
		ChartType: spec.Type,
		Title:     r.Title,
	}

	x := spec.X
	if x == "" && len(r.GroupBy) > 0 {
		x = r.GroupBy[0]
	}

	switch spec.Type {
	case "box":
		config.XAxis = LabelFor(x)
		config.YAxis = LabelFor(spec.Value)
		config.Boxes = buildBoxes(filtered, r.GroupBy, x, spec.Value, r.Rows)
	case "scatter":
		config.XAxis = LabelFor(spec.X)
		config.YAxis = LabelFor(spec.Y)
		config.Series = []ChartSeries{buildScatterSeries(r.Rows, spec.X, spec.Y)}
	default:
		y := spec.Y
		if y == "" && len(r.Aggregations) > 0 {
			y = r.Aggregations[0].resolvedName()
		}
		config.XAxis = LabelFor(x)
		config.YAxis = LabelFor(y)
		config.Series = []ChartSeries{buildSingleSeries(r.Rows, x, y)}
	}

	config.Colors = assignColors(max(len(config.Series), len(config.Boxes)))
	return config
}

// ============================================================================
// SERIES BUILDERS
// ============================================================================

func buildSingleSeries(rows []SummaryRow, x, y string) ChartSeries {
	points := make([]ChartPoint, 0, len(rows))
	for _, row := range rows {
		v, ok := row.Metric(y).Get()
		if !ok {
			continue // nothing to draw for a missing value
		}
		label, found := row.Key.Get(x)
		if !found {
			label = row.Key.String()
		}
		points = append(points, ChartPoint{Label: label, Value: RoundTo2(v)})
	}
	return ChartSeries{Name: LabelFor(y), Data: points}
}

func buildScatterSeries(rows []SummaryRow, x, y string) ChartSeries {
	points := make([]ChartPoint, 0, len(rows))
	for _, row := range rows {
		xv, ok1 := row.Metric(x).Get()
		yv, ok2 := row.Metric(y).Get()
		if !ok1 || !ok2 {
			continue
		}
		points = append(points, ChartPoint{Label: row.Key.String(), X: RoundTo2(xv), Value: RoundTo2(yv)})
	}
	return ChartSeries{Name: LabelFor(y) + " vs " + LabelFor(x), Data: points}
}

// buildBoxes computes five-number summaries per group, in row order.
// Records are bucketed by the full group key. A single grouping column
// labels boxes with its value (or x), several with the joined key.
// Groups with no present values are skipped.
func buildBoxes(ds Dataset, groupBy []string, x, valueCol string, rows []SummaryRow) []BoxSummary {
	byGroup := make(map[string][]float64)
	key := make(GroupKey, len(groupBy))
	for _, rec := range ds.records {
		v, ok := rec.Number(valueCol).Get()
		if !ok {
			continue
		}
		for i, c := range groupBy {
			key[i] = KeyPart{Column: c, Value: rec.Text(c)}
		}
		id := keyID(key)
		byGroup[id] = append(byGroup[id], v)
	}

	boxes := make([]BoxSummary, 0, len(rows))
	for _, row := range rows {
		vals := byGroup[keyID(row.Key)]
		if len(vals) == 0 {
			continue
		}
		label := row.Key.String()
		if len(groupBy) == 1 {
			if v, ok := row.Key.Get(x); ok {
				label = v
			}
		}
		boxes = append(boxes, FiveNumber(label, vals))
	}
	return boxes
}

// FiveNumber summarises vals with empirical quantiles. vals is not modified.
func FiveNumber(label string, vals []float64) BoxSummary {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	q := func(p float64) float64 { return RoundTo2(stat.Quantile(p, stat.Empirical, sorted, nil)) }
	return BoxSummary{
		Label:  label,
		N:      len(sorted),
		Min:    RoundTo2(sorted[0]),
		Q1:     q(0.25),
		Median: q(0.5),
		Q3:     q(0.75),
		Max:    RoundTo2(sorted[len(sorted)-1]),
	}
}

func assignColors(n int) []string {
	colors := make([]string, n)
	for i := range colors {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}
