package schema

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/spektr-org/tally/engine"
)

// ============================================================================
// AUTO-DISCOVERY — Heuristic column typing
// ============================================================================
// Inspects raw CSV and generates a schema.Config automatically.
//
// Kind inference per column, on non-missing sample values:
//   1. every value parses as an integer      → integer
//   2. at least 80% parse as numbers          → float
//   3. at least 30% contain the tag separator → multi
//   4. otherwise                              → string
//
// Columns that are entirely empty in the sample are kept as optional strings.
// ============================================================================

// Discovery thresholds.
const (
	NumericThreshold = 0.8
	MultiThreshold   = 0.3
)

// DiscoverOptions controls discovery behavior.
type DiscoverOptions struct {
	SampleSize   int    // Max rows to inspect (0 = all). Default: 1000
	Name         string // Dataset name override
	TagSeparator string // Separator that marks a multi column. Default: ", "
}

// DefaultDiscoverOptions returns sensible defaults.
func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{
		SampleSize:   1000,
		TagSeparator: ", ",
	}
}

// DiscoverFromCSV generates a schema.Config by inspecting CSV data.
func DiscoverFromCSV(data []byte, opts ...DiscoverOptions) (*Config, error) {
	opt := DefaultDiscoverOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}
	if opt.TagSeparator == "" {
		opt.TagSeparator = ", "
	}

	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1

	// 1. Read headers
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("CSV has no columns")
	}

	// 2. Read sample rows
	var rows [][]string
	limit := opt.SampleSize
	if limit <= 0 {
		limit = 100000 // safety cap
	}
	for i := 0; i < limit; i++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV has no data rows")
	}

	// 3. Analyze each column
	config := &Config{
		Name:           opt.Name,
		DiscoveredFrom: "CSV",
	}
	if config.Name == "" {
		config.Name = "discovered"
	}

	seen := make(map[string]int)
	for i, header := range headers {
		col := analyzeColumn(header, i, rows, opt.TagSeparator)
		// Duplicate headers get a numeric suffix so keys stay unique.
		base := col.key
		if n := seen[base]; n > 0 {
			col.key = fmt.Sprintf("%s_%d", base, n+1)
		}
		seen[base]++
		config.Columns = append(config.Columns, col.toMeta(opt.TagSeparator))
	}

	return config, nil
}

// ============================================================================
// COLUMN ANALYSIS
// ============================================================================

type columnAnalysis struct {
	header string
	key    string
	index  int
	kind   engine.Kind

	nullCount  int
	sampleVals []string
}

// analyzeColumn inspects all values in a column and infers its kind.
func analyzeColumn(header string, index int, rows [][]string, sep string) columnAnalysis {
	col := columnAnalysis{
		header: header,
		key:    ToSnakeCase(strings.TrimSpace(strings.TrimPrefix(header, bom))),
		index:  index,
		kind:   engine.KindString,
	}

	values := make([]string, 0, len(rows))
	uniqueSet := make(map[string]bool)
	for _, row := range rows {
		if index >= len(row) || engine.IsMissingToken(row[index]) {
			col.nullCount++
			continue
		}
		val := strings.TrimSpace(row[index])
		values = append(values, val)
		uniqueSet[val] = true
	}

	if len(values) == 0 {
		return col
	}

	col.sampleVals = collectSamples(uniqueSet, 5)
	col.kind = detectKind(values, sep)
	return col
}

func (col columnAnalysis) toMeta(sep string) ColumnMeta {
	meta := ColumnMeta{
		Key:          col.key,
		DisplayName:  ToDisplayName(strings.TrimPrefix(col.header, bom)),
		Type:         col.kind,
		Optional:     len(col.sampleVals) == 0,
		SampleValues: col.sampleVals,
	}
	if col.kind == engine.KindMulti {
		meta.Delimiter = strings.TrimSpace(sep)
	}
	return meta
}

// ============================================================================
// TYPE DETECTION
// ============================================================================

// detectKind applies the inference rules to the non-missing values of a column.
func detectKind(values []string, sep string) engine.Kind {
	if len(values) == 0 {
		return engine.KindString
	}

	intCount, numCount, tagCount := 0, 0, 0
	for _, v := range values {
		if isInteger(v) {
			intCount++
		}
		if engine.ParseNumber(v).Valid() {
			numCount++
		}
		if strings.Contains(v, sep) && !isDate(v) {
			tagCount++
		}
	}

	n := float64(len(values))
	switch {
	case intCount == len(values):
		return engine.KindInteger
	case float64(numCount) >= n*NumericThreshold:
		return engine.KindFloat
	case float64(tagCount) >= n*MultiThreshold:
		return engine.KindMulti
	default:
		return engine.KindString
	}
}

func isInteger(s string) bool {
	if !engine.ParseNumber(s).Valid() {
		return false
	}
	_, err := strconv.ParseInt(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 10, 64)
	return err == nil
}

// Dates such as "September 25, 2021" contain the tag separator but are
// single values.
var dateFormats = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"Monday, January 2, 2006",
	"Mon, 02 Jan 2006",
}

func isDate(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// ============================================================================
// STRING UTILITIES
// ============================================================================

const bom = "\ufeff"

// ToSnakeCase converts "Column Name" or "columnName" → "column_name".
func ToSnakeCase(s string) string {
	// Handle camelCase: insert underscore before uppercase letters
	var result strings.Builder
	var prev rune
	for i, r := range s {
		if unicode.IsUpper(r) && i > 0 && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
			result.WriteRune('_')
		}
		result.WriteRune(r)
		prev = r
	}

	s = strings.ToLower(result.String())
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}

// ToDisplayName cleans a header for human display.
// "total_fat" → "Total Fat", "Release Year" stays as is.
func ToDisplayName(s string) string {
	if strings.Contains(s, " ") {
		return strings.TrimSpace(s)
	}

	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")

	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// collectSamples picks up to maxSamples representative values.
func collectSamples(uniqueSet map[string]bool, maxSamples int) []string {
	samples := make([]string, 0, len(uniqueSet))
	for v := range uniqueSet {
		samples = append(samples, v)
	}

	// Sort for deterministic output
	sort.Strings(samples)

	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	return samples
}
