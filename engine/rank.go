package engine

import "sort"

// Direction says which end of a metric ranks first.
type Direction string

const (
	Descending Direction = "descending" // larger values rank first
	Ascending  Direction = "ascending"  // smaller values rank first
)

// Rank assigns a dense rank (1 = best) to each row by metric.
//
// Equal values share a rank and the next distinct value gets the following
// integer, so [50, 50, 30] descending ranks [1, 1, 2]. Rows with a missing
// metric share the rank after the last present value. The returned rows keep
// the input order; sort by "rank" to reorder them.
//
// metric must be "count" or an aggregation computed on rows. Rank does not
// check it: any other name reads as missing on every row, so all rows share
// rank 1. Analysis.Validate rejects such names before Execute ranks.
func Rank(rows []SummaryRow, metric string, dir Direction) []SummaryRow {
	out := cloneRows(rows)
	if len(out) == 0 {
		return out
	}

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	desc := dir != Ascending
	sort.SliceStable(idx, func(a, b int) bool {
		return rowLess(out[idx[a]], out[idx[b]], metric, desc)
	})

	rank := 0
	var prev Number
	for pos, i := range idx {
		cur := out[i].Metric(metric)
		if pos == 0 || !sameValue(prev, cur) {
			rank++
		}
		out[i].Rank = rank
		prev = cur
	}
	return out
}

func sameValue(a, b Number) bool {
	av, aok := a.Get()
	bv, bok := b.Get()
	if aok != bok {
		return false
	}
	return !aok || av == bv
}

// TopN ranks rows by metric and returns the n best in rank order, ties
// broken by input order.
func TopN(rows []SummaryRow, metric string, dir Direction, n int) []SummaryRow {
	ranked := Rank(rows, metric, dir)
	return Limit(SortBy(ranked, MetricRank, false), n)
}
