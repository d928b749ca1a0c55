package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/xuri/excelize/v2"

	"github.com/spektr-org/tally/engine"
)

// ============================================================================
// RENDERERS — Report → text, markdown, json, csv, xlsx
// ============================================================================

// Format names an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatXLSX     Format = "xlsx"
)

// Formats lists the supported output formats.
var Formats = []Format{FormatText, FormatMarkdown, FormatJSON, FormatCSV, FormatXLSX}

// ParseFormat accepts a format name or a common alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt", "table":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unknown output format %q (want one of %v)", s, Formats)
}

// FormatFromPath picks a format from an output file extension. It returns
// false when the extension is not recognised.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return FormatMarkdown, true
	case ".json":
		return FormatJSON, true
	case ".csv":
		return FormatCSV, true
	case ".xlsx":
		return FormatXLSX, true
	case ".txt":
		return FormatText, true
	}
	return "", false
}

// Render writes rep to w in format.
func Render(w io.Writer, rep *Report, format Format) error {
	switch format {
	case FormatText:
		return renderText(w, rep)
	case FormatMarkdown:
		return renderMarkdown(w, rep)
	case FormatJSON:
		return renderJSON(w, rep)
	case FormatCSV:
		return renderCSV(w, rep)
	case FormatXLSX:
		return renderXLSX(w, rep)
	}
	return fmt.Errorf("unknown output format %q", format)
}

// RenderTable writes a single table, such as a column profile, in format.
func RenderTable(w io.Writer, td *engine.TableData, format Format) error {
	switch format {
	case FormatText:
		t := newTableWriter(td)
		t.SetTitle(td.Title)
		_, err := io.WriteString(w, t.Render()+"\n")
		return err
	case FormatMarkdown:
		_, err := fmt.Fprintf(w, "## %s\n\n%s\n", td.Title, newTableWriter(td).RenderMarkdown())
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(td)
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(td.Headers()); err != nil {
			return err
		}
		if err := cw.WriteAll(td.Rows); err != nil {
			return err
		}
		return cw.Error()
	case FormatXLSX:
		f := excelize.NewFile()
		defer f.Close()
		bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return err
		}
		name := sheetName(td.Title, map[string]bool{})
		if err := f.SetSheetName("Sheet1", name); err != nil {
			return err
		}
		if err := writeSheet(f, name, td, bold); err != nil {
			return err
		}
		_, err = f.WriteTo(w)
		return err
	}
	return fmt.Errorf("unknown output format %q", format)
}

// ============================================================================
// TEXT / MARKDOWN (go-pretty)
// ============================================================================

func newTableWriter(td *engine.TableData) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(td.Columns))
	configs := make([]table.ColumnConfig, 0, len(td.Columns))
	for i, col := range td.Columns {
		header[i] = col.Label
		if col.Align == "right" {
			configs = append(configs, table.ColumnConfig{
				Number:      i + 1,
				Align:       text.AlignRight,
				AlignHeader: text.AlignRight,
			})
		}
	}
	t.AppendHeader(header)
	t.SetColumnConfigs(configs)

	for _, cells := range td.Rows {
		row := make(table.Row, len(cells))
		for i, c := range cells {
			row[i] = c
		}
		t.AppendRow(row)
	}
	return t
}

func boxTable(chart *engine.ChartConfig) *engine.TableData {
	td := &engine.TableData{
		Title: chart.Title + " (" + chart.YAxis + " distribution)",
		Columns: []engine.TableCol{
			{Key: "group", Label: chart.XAxis, Align: "left"},
			{Key: "n", Label: "N", Align: "right"},
			{Key: "min", Label: "Min", Align: "right"},
			{Key: "q1", Label: "Q1", Align: "right"},
			{Key: "median", Label: "Median", Align: "right"},
			{Key: "q3", Label: "Q3", Align: "right"},
			{Key: "max", Label: "Max", Align: "right"},
		},
	}
	if td.Columns[0].Label == "" {
		td.Columns[0].Label = "Group"
	}
	f := func(v float64) string { return engine.Some(v).Format(2, "") }
	for _, b := range chart.Boxes {
		td.Rows = append(td.Rows, []string{
			b.Label, strconv.Itoa(b.N), f(b.Min), f(b.Q1), f(b.Median), f(b.Q3), f(b.Max),
		})
	}
	return td
}

func renderText(w io.Writer, rep *Report) error {
	var b strings.Builder
	b.WriteString(rep.Title)
	b.WriteString("\n")

	for _, r := range rep.Results {
		b.WriteString("\n")
		t := newTableWriter(r.Table)
		t.SetTitle(r.Table.Title)
		b.WriteString(t.Render())
		fmt.Fprintf(&b, "\n(%d rows from %d records)\n", len(r.Table.Rows), r.Records)

		if r.Chart != nil && len(r.Chart.Boxes) > 0 {
			box := boxTable(r.Chart)
			bt := newTableWriter(box)
			bt.SetTitle(box.Title)
			b.WriteString("\n")
			b.WriteString(bt.Render())
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderMarkdown(w io.Writer, rep *Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", rep.Title)

	for _, r := range rep.Results {
		fmt.Fprintf(&b, "\n## %s\n\n", r.Table.Title)
		b.WriteString(newTableWriter(r.Table).RenderMarkdown())
		b.WriteString("\n")

		if r.Chart != nil && len(r.Chart.Boxes) > 0 {
			box := boxTable(r.Chart)
			fmt.Fprintf(&b, "\n### %s\n\n", box.Title)
			b.WriteString(newTableWriter(box).RenderMarkdown())
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// ============================================================================
// JSON / CSV
// ============================================================================

func renderJSON(w io.Writer, rep *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// renderCSV writes one block per analysis: a title line, the header and the
// rows, with an empty line between blocks.
func renderCSV(w io.Writer, rep *Report) error {
	cw := csv.NewWriter(w)
	for i, r := range rep.Results {
		if i > 0 {
			if err := cw.Write(nil); err != nil {
				return err
			}
		}
		if err := cw.Write([]string{"# " + r.Table.Title}); err != nil {
			return err
		}
		if err := cw.Write(r.Table.Headers()); err != nil {
			return err
		}
		if err := cw.WriteAll(r.Table.Rows); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ============================================================================
// XLSX (excelize) — one sheet per analysis
// ============================================================================

const maxSheetName = 31

func renderXLSX(w io.Writer, rep *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	used := make(map[string]bool)
	for i, r := range rep.Results {
		name := sheetName(r.Name, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}
		if err := writeSheet(f, name, r.Table, bold); err != nil {
			return fmt.Errorf("sheet %q: %w", name, err)
		}
	}

	_, err = f.WriteTo(w)
	return err
}

func writeSheet(f *excelize.File, sheet string, td *engine.TableData, headerStyle int) error {
	header := make([]any, len(td.Columns))
	for i, col := range td.Columns {
		header[i] = col.Label
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if len(td.Columns) > 0 {
		last, err := excelize.CoordinatesToCellName(len(td.Columns), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return err
		}
	}

	for r, cells := range td.Rows {
		row := make([]any, len(cells))
		for i, c := range cells {
			row[i] = c
			if td.Columns[i].Type == "number" {
				if v, err := strconv.ParseFloat(c, 64); err == nil {
					row[i] = v
				}
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// sheetName makes name a valid, unique worksheet name.
func sheetName(name string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, name)
	if clean == "" {
		clean = "Sheet"
	}
	if len([]rune(clean)) > maxSheetName {
		clean = string([]rune(clean)[:maxSheetName])
	}

	candidate := clean
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf("_%d", n)
		base := []rune(clean)
		if len(base)+len(suffix) > maxSheetName {
			base = base[:maxSheetName-len(suffix)]
		}
		candidate = string(base) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}
