// Package tally computes grouped summaries over tabular datasets.
//
// Usage:
//
//	import "github.com/spektr-org/tally/engine"
//
//	rows, err := engine.GroupSummarize(ds, engine.GroupBy("restaurant"),
//	    engine.Count(),
//	    engine.Mean("calories"),
//	)
//
// Datasets come from the helpers package (CSV, TSV, XLSX) typed by a
// schema.Config, which is declared by hand, picked from a preset or
// discovered from the file. The report package runs declarative YAML
// analyses end to end and renders the tables.
//
// All computation is local. Nothing calls an external service.
package tally
