package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spektr-org/tally/engine"
	"github.com/spektr-org/tally/helpers"
	"github.com/spektr-org/tally/internal/config"
	"github.com/spektr-org/tally/report"
	"github.com/spektr-org/tally/schema"
)

func newDescribeCommand() *cobra.Command {
	var (
		preset string
		sheet  string
	)

	cmd := &cobra.Command{
		Use:   "describe <file>",
		Short: "Profile every column of a dataset",
		Long: `Load a dataset and print count, missing, distinct, mean, standard deviation,
min, median and max for each column.

CSV files without --preset are typed by auto-discovery. XLSX files need a preset.`,
		Example: `  tally describe testdata/fastfood.csv --preset fastfood
  tally describe testdata/netflix_titles.csv -o markdown`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := settings(cmd)
			path := args[0]

			format, err := outputFormat(cfg)
			if err != nil {
				return err
			}

			sch, err := describeSchema(path, preset)
			if err != nil {
				return err
			}

			ds, stats, err := helpers.LoadFile(path, sheet, sch)
			if err != nil {
				return err
			}
			logger.Info("dataset loaded", "file", path, "records", stats.Rows, "schema", sch.Name)
			if stats.SkippedRows > 0 || stats.BadCells > 0 {
				logger.Warn("dataset had unreadable data",
					"skipped_rows", stats.SkippedRows, "bad_cells", stats.BadCells)
			}

			var opts []engine.Option
			if cfg.MissingLabel != "" {
				opts = append(opts, engine.WithMissingLabel(cfg.MissingLabel))
			}
			if cfg.Precision != config.KeepPrecision {
				opts = append(opts, engine.WithPrecision(cfg.Precision))
			}

			title := fmt.Sprintf("%s (%d records)", sch.Name, ds.Len())
			td := engine.BuildProfileTable(title, engine.Describe(ds), opts...)

			return withOutput(cmd, cfg, func(w io.Writer) error {
				return report.RenderTable(w, td, format)
			})
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Built-in schema ("+strings.Join(schema.PresetNames(), ", ")+")")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet to read from an XLSX file (default: first)")

	return cmd
}

func describeSchema(path, preset string) (schema.Config, error) {
	if preset != "" {
		return schema.Preset(preset)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".csv" {
		return schema.Config{}, fmt.Errorf("%s files need --preset", ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.Config{}, fmt.Errorf("failed to read file: %w", err)
	}
	opts := schema.DefaultDiscoverOptions()
	opts.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	sch, err := schema.DiscoverFromCSV(data, opts)
	if err != nil {
		return schema.Config{}, fmt.Errorf("auto-detect failed: %w", err)
	}
	return *sch, nil
}
