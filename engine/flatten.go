package engine

import (
	"fmt"
	"strings"
)

// DefaultDelimiter separates tags when neither the caller nor the schema names one.
const DefaultDelimiter = ","

// Flatten expands every record of ds into one record per tag of column.
//
// Tags are trimmed and empty tags dropped. A record with no tags is kept once
// with an empty value, so no source row disappears. Each expansion is an
// independent clone. The column becomes a plain string column.
//
// delim overrides the schema's delimiter; when both are empty "," is used.
func Flatten(ds Dataset, column, delim string) (Dataset, error) {
	col, err := requireColumn(ds.schema, "flatten", column)
	if err != nil {
		return Dataset{}, err
	}
	if col.Kind.IsNumeric() {
		return Dataset{}, wrongKind("flatten", column, col.Kind, "string or multi")
	}
	if delim == "" {
		delim = col.Delimiter
	}
	if delim == "" {
		delim = DefaultDelimiter
	}

	out := make([]Record, 0, len(ds.records))
	for _, r := range ds.records {
		tags := SplitTags(r.Dimensions[column], delim)
		if len(tags) == 0 {
			c := r.Clone()
			c.Dimensions[column] = ""
			out = append(out, c)
			continue
		}
		for _, tag := range tags {
			c := r.Clone()
			c.Dimensions[column] = tag
			out = append(out, c)
		}
	}

	return Dataset{schema: ds.schema.with(Column{Name: column, Kind: KindString}), records: out}, nil
}

// SplitTags splits a multi-valued cell, trimming blanks and dropping empties.
func SplitTags(cell, delim string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	parts := strings.Split(cell, delim)
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// TagCounts counts how many records carry each tag of a multi-valued column,
// in first-seen order. It is Flatten followed by a count per tag.
func TagCounts(ds Dataset, column, delim string) ([]SummaryRow, error) {
	flat, err := Flatten(ds, column, delim)
	if err != nil {
		return nil, fmt.Errorf("tag counts: %w", err)
	}
	return GroupSummarize(flat, GroupBy(column), Count())
}
