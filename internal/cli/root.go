// Package cli provides the command-line interface for tally.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/spektr-org/tally/internal/config"
	"github.com/spektr-org/tally/internal/logging"
	"github.com/spektr-org/tally/report"
)

// Version information (set at build time).
var Version = "0.3.0"

type stateKey struct{}

// state is shared by all commands through the command context.
type state struct {
	cfg    *config.Config
	logger *slog.Logger
	close  func()
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "tally",
		Short: "tally - grouped summaries for tabular datasets",
		Long: `tally loads CSV, TSV or XLSX datasets, filters, classifies and groups their
records, and prints summary tables as text, markdown, JSON, CSV or XLSX.

Analyses are declared in a YAML report file and run with "tally run".`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			level, err := logging.ParseLevel(cfg.Log.Level)
			if err != nil {
				return err
			}
			logger, closeFn := logging.SetupLogger(cmd.ErrOrStderr(), level, cfg.Log.SeqURL)
			if cfg.File != "" {
				logger.Debug("using config file", "path", cfg.File)
			}

			ctx := context.WithValue(cmd.Context(), stateKey{}, &state{cfg: cfg, logger: logger, close: closeFn})
			cmd.SetContext(ctx)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if st := getState(cmd.Context()); st != nil && st.close != nil {
				st.close()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./tally.yaml)")
	pf.StringP("output", "o", config.DefaultOutput, "Output format (text|markdown|json|csv|xlsx)")
	pf.String("out", "", "Write output to file instead of stdout")
	pf.String("log-level", config.DefaultLogLevel, "Log level (debug|info|warn|error)")
	pf.String("seq-url", "", "Also send logs to this Seq server")
	pf.String("missing-label", "", "Text shown for missing values")
	pf.Int("precision", config.KeepPrecision, "Decimal places for numbers (-1 keeps the report's)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, len(report.Formats))
		for i, f := range report.Formats {
			names[i] = string(f)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newDiscoverCommand())
	rootCmd.AddCommand(newDescribeCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func getState(ctx context.Context) *state {
	if ctx == nil {
		return nil
	}
	st, _ := ctx.Value(stateKey{}).(*state)
	return st
}

// settings returns the loaded config and logger, with defaults when the
// command runs without the root pre-run hook.
func settings(cmd *cobra.Command) (*config.Config, *slog.Logger) {
	if st := getState(cmd.Context()); st != nil {
		return st.cfg, st.logger
	}
	return &config.Config{
		Output:    config.DefaultOutput,
		Precision: config.KeepPrecision,
		Log:       config.LogConfig{Level: config.DefaultLogLevel},
	}, slog.New(slog.NewTextHandler(io.Discard, nil))
}

// outputFormat picks the format from --output, falling back to the --out
// file extension when no format was chosen explicitly.
func outputFormat(cfg *config.Config) (report.Format, error) {
	if cfg.Out != "" && (cfg.Output == "" || cfg.Output == config.DefaultOutput) {
		if f, ok := report.FormatFromPath(cfg.Out); ok {
			return f, nil
		}
	}
	format, err := report.ParseFormat(cfg.Output)
	if err != nil {
		return "", err
	}
	if format == report.FormatXLSX && cfg.Out == "" {
		return "", fmt.Errorf("xlsx output needs --out")
	}
	return format, nil
}

// withOutput calls fn with stdout or the --out file.
func withOutput(cmd *cobra.Command, cfg *config.Config, fn func(io.Writer) error) error {
	if cfg.Out == "" {
		return fn(cmd.OutOrStdout())
	}

	f, err := os.Create(cfg.Out)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "📄 Output written to %s\n", cfg.Out)
	return nil
}
