package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/tally/report"
	"github.com/spektr-org/tally/schema"
)

func newDiscoverCommand() *cobra.Command {
	var (
		name       string
		sampleSize int
		separator  string
	)

	cmd := &cobra.Command{
		Use:   "discover <file.csv>",
		Short: "Print the schema detected for a CSV file",
		Long: `Inspect a CSV file and print a schema (YAML by default, JSON with -o json)
that can be pasted into a report's dataset section.`,
		Example: `  tally discover testdata/netflix_titles.csv
  tally discover data.csv --name sales --out sales_schema.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := settings(cmd)
			path := args[0]

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}

			opts := schema.DefaultDiscoverOptions()
			opts.SampleSize = sampleSize
			opts.TagSeparator = separator
			opts.Name = name
			if opts.Name == "" {
				opts.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			}

			sch, err := schema.DiscoverFromCSV(data, opts)
			if err != nil {
				return fmt.Errorf("auto-detect failed: %w", err)
			}
			logger.Debug("schema discovered", "file", path, "columns", len(sch.Columns))
			fmt.Fprintf(cmd.ErrOrStderr(), "🔍 Auto-Detect: %s (%d columns)\n", sch.Name, len(sch.Columns))

			format := cfg.Output
			if cfg.Out != "" && format == "text" {
				if f, ok := report.FormatFromPath(cfg.Out); ok && f == report.FormatJSON {
					format = string(report.FormatJSON)
				}
			}

			return withOutput(cmd, cfg, func(w io.Writer) error {
				if format == string(report.FormatJSON) {
					enc := json.NewEncoder(w)
					enc.SetIndent("", "  ")
					return enc.Encode(sch)
				}
				enc := yaml.NewEncoder(w)
				enc.SetIndent(2)
				if err := enc.Encode(sch); err != nil {
					return err
				}
				return enc.Close()
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Schema name (default: file name)")
	cmd.Flags().IntVar(&sampleSize, "sample-size", 1000, "Rows to inspect (0 = all)")
	cmd.Flags().StringVar(&separator, "separator", ", ", "Separator that marks a multi-valued column")

	return cmd
}
