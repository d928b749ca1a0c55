package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/spektr-org/tally/internal/config"
	"github.com/spektr-org/tally/report"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run [report.yaml]",
		Short: "Run every analysis of a report file",
		Long: `Load the datasets a report declares, validate all of its analyses and print
one summary table per analysis.

The report path defaults to the "report" config key.`,
		Example: `  tally run testdata/fastfood.yaml
  tally run testdata/netflix.yaml -o markdown
  tally run testdata/fastfood.yaml --out fastfood.xlsx`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := settings(cmd)

			path := cfg.Report
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no report file given (pass one or set \"report\" in tally.yaml)")
			}

			format, err := outputFormat(cfg)
			if err != nil {
				return err
			}

			spec, err := report.LoadSpec(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "📋 Loaded report: %s (%d datasets, %d analyses)\n",
				path, len(spec.Datasets), len(spec.Analyses))

			opts := []report.Option{
				report.WithLogger(logger),
				report.WithMissingLabel(cfg.MissingLabel),
			}
			if cfg.Precision != config.KeepPrecision {
				opts = append(opts, report.WithPrecision(cfg.Precision))
			}

			rep, err := report.Run(cmd.Context(), spec, opts...)
			if err != nil {
				return err
			}
			for _, d := range rep.Datasets {
				fmt.Fprintf(cmd.ErrOrStderr(), "📊 %s: %d records (schema %s)\n", d.Name, d.Records, d.Schema)
			}

			return withOutput(cmd, cfg, func(w io.Writer) error {
				return report.Render(w, rep, format)
			})
		},
	}
}
