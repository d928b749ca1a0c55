package engine

import (
	"strings"

	"github.com/montanaflynn/stats"
)

// ============================================================================
// DESCRIBE — Per-column profile of a Dataset
// ============================================================================

// ColumnProfile summarises one column. Numeric statistics are missing for
// text columns and for numeric columns with no present values.
type ColumnProfile struct {
	Column   string `json:"column"`
	Kind     Kind   `json:"kind"`
	Count    int    `json:"count"`   // present values
	Missing  int    `json:"missing"` // blank or unparseable cells
	Distinct int    `json:"distinct"`
	Mean     Number `json:"mean"`
	Std      Number `json:"std"` // sample standard deviation
	Min      Number `json:"min"`
	Median   Number `json:"median"`
	Max      Number `json:"max"`
}

// Describe profiles every column of ds in schema order.
func Describe(ds Dataset) []ColumnProfile {
	profiles := make([]ColumnProfile, 0, len(ds.schema))
	for _, col := range ds.schema {
		profiles = append(profiles, describeColumn(ds, col))
	}
	return profiles
}

func describeColumn(ds Dataset, col Column) ColumnProfile {
	p := ColumnProfile{Column: col.Name, Kind: col.Kind}
	distinct := make(map[string]bool)

	if !col.Kind.IsNumeric() {
		for _, r := range ds.records {
			v := r.Dimensions[col.Name]
			if strings.TrimSpace(v) == "" {
				p.Missing++
				continue
			}
			p.Count++
			distinct[v] = true
		}
		p.Distinct = len(distinct)
		return p
	}

	vals := make([]float64, 0, len(ds.records))
	for _, r := range ds.records {
		v, ok := r.Number(col.Name).Get()
		if !ok {
			p.Missing++
			continue
		}
		vals = append(vals, v)
		distinct[r.Text(col.Name)] = true
	}
	p.Count = len(vals)
	p.Distinct = len(distinct)

	p.Mean = aggregateValues(AggMean, vals)
	p.Min = aggregateValues(AggMin, vals)
	p.Median = aggregateValues(AggMedian, vals)
	p.Max = aggregateValues(AggMax, vals)
	if len(vals) > 1 {
		if sd, err := stats.StandardDeviationSample(vals); err == nil {
			p.Std = Some(sd)
		}
	}
	return p
}
