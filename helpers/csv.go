package helpers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spektr-org/tally/engine"
	"github.com/spektr-org/tally/schema"
)

// ============================================================================
// CSV HELPER — Parses CSV data into an engine.Dataset
// ============================================================================
// Consumer reads the CSV from wherever it lives (file, stdin, HTTP body).
// This helper validates the header against the schema, then converts each
// row into a typed Record. Numeric cells that do not parse become missing.
// ============================================================================

// LoadStats reports what a loader skipped or coerced.
type LoadStats struct {
	Rows        int // Records produced
	SkippedRows int // Malformed rows dropped
	BadCells    int // Non-blank numeric cells that failed to parse
}

// ParseCSV parses CSV bytes into a Dataset typed by cfg.
func ParseCSV(data []byte, cfg schema.Config) (engine.Dataset, error) {
	ds, _, err := ReadCSV(bytes.NewReader(data), cfg, ',')
	return ds, err
}

// ReadCSV reads delimited text from r. comma is the field separator.
func ReadCSV(r io.Reader, cfg schema.Config, comma rune) (engine.Dataset, LoadStats, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return engine.Dataset{}, LoadStats{}, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	b, err := newRowBuilder(headers, cfg)
	if err != nil {
		return engine.Dataset{}, LoadStats{}, err
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				b.stats.SkippedRows++
				continue
			}
			return engine.Dataset{}, b.stats, fmt.Errorf("failed to read CSV: %w", err)
		}
		b.add(row)
	}

	return b.dataset(), b.stats, nil
}

// ParseCSVAuto discovers a schema from the data, then parses with it.
// Consumers can use this for quick looks before writing a schema.
func ParseCSVAuto(data []byte) (engine.Dataset, *schema.Config, error) {
	cfg, err := schema.DiscoverFromCSV(data)
	if err != nil {
		return engine.Dataset{}, nil, err
	}
	ds, err := ParseCSV(data, *cfg)
	if err != nil {
		return engine.Dataset{}, nil, err
	}
	return ds, cfg, nil
}

// ============================================================================
// ROW BUILDER — shared by every tabular loader
// ============================================================================

type rowBuilder struct {
	cfg       schema.Config
	positions map[string]int
	records   []engine.Record
	stats     LoadStats
}

func newRowBuilder(headers []string, cfg schema.Config) (*rowBuilder, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	positions, err := schema.Validate(headers, cfg)
	if err != nil {
		return nil, err
	}
	return &rowBuilder{cfg: cfg, positions: positions}, nil
}

func (b *rowBuilder) add(row []string) {
	if isBlankRow(row) {
		return
	}

	rec := engine.NewRecord()
	for _, col := range b.cfg.Columns {
		cell := ""
		if i := b.positions[col.Key]; i >= 0 && i < len(row) {
			cell = strings.TrimSpace(row[i])
		}

		if col.Type.IsNumeric() {
			n := engine.ParseNumber(cell)
			if !n.Valid() && !engine.IsMissingToken(cell) {
				b.stats.BadCells++
			}
			rec.Measures[col.Key] = n
			continue
		}
		rec.Dimensions[col.Key] = cell
	}

	b.records = append(b.records, rec)
	b.stats.Rows++
}

func (b *rowBuilder) dataset() engine.Dataset {
	return engine.NewDataset(b.cfg.ToEngine(), b.records)
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
