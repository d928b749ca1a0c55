package helpers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/spektr-org/tally/engine"
	"github.com/spektr-org/tally/schema"
)

// ParseXLSX reads one sheet of a workbook. An empty sheet name selects the
// first sheet. The first row is the header.
func ParseXLSX(path, sheet string, cfg schema.Config) (engine.Dataset, LoadStats, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return engine.Dataset{}, LoadStats{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return engine.Dataset{}, LoadStats{}, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return engine.Dataset{}, LoadStats{}, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return engine.Dataset{}, LoadStats{}, fmt.Errorf("sheet %q is empty", sheet)
	}

	b, err := newRowBuilder(rows[0], cfg)
	if err != nil {
		return engine.Dataset{}, LoadStats{}, err
	}
	for _, row := range rows[1:] {
		b.add(row)
	}
	return b.dataset(), b.stats, nil
}

// LoadFile loads a dataset, choosing the reader from the file extension:
// .csv, .tsv, .txt (comma separated) or .xlsx. sheet only applies to
// workbooks.
func LoadFile(path, sheet string, cfg schema.Config) (engine.Dataset, LoadStats, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		return ParseXLSX(path, sheet, cfg)
	case ".csv", ".tsv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return engine.Dataset{}, LoadStats{}, err
		}
		defer f.Close()

		comma := ','
		if ext == ".tsv" {
			comma = '\t'
		}
		ds, stats, err := ReadCSV(f, cfg, comma)
		if err != nil {
			return engine.Dataset{}, stats, fmt.Errorf("%s: %w", path, err)
		}
		return ds, stats, nil
	default:
		return engine.Dataset{}, LoadStats{}, fmt.Errorf("unsupported file type %q: %s", ext, path)
	}
}
