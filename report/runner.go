package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spektr-org/tally/engine"
	"github.com/spektr-org/tally/helpers"
	"github.com/spektr-org/tally/schema"
)

// ============================================================================
// RUNNER — Spec → Report
// ============================================================================
// 1. Load every declared dataset once (sorted by name)
// 2. Validate every analysis against its dataset schema (fail fast)
// 3. Execute the analyses in declaration order
// ============================================================================

// Report is the outcome of running a Spec.
type Report struct {
	Title    string           `json:"title"`
	Datasets []DatasetSummary `json:"datasets"`
	Results  []*engine.Result `json:"results"`
}

// DatasetSummary records what was loaded for one dataset.
type DatasetSummary struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Schema      string `json:"schema"`
	Records     int    `json:"records"`
	SkippedRows int    `json:"skippedRows,omitempty"`
	BadCells    int    `json:"badCells,omitempty"`
}

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	logger       *slog.Logger
	missingLabel string
	precision    *int
}

// WithLogger routes progress logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMissingLabel overrides the spec's missing label.
func WithMissingLabel(label string) Option {
	return func(c *runConfig) {
		if label != "" {
			c.missingLabel = label
		}
	}
}

// WithPrecision overrides the spec's decimal precision.
func WithPrecision(digits int) Option {
	return func(c *runConfig) {
		c.precision = &digits
	}
}

// Run loads the datasets of spec, validates all analyses and executes them.
// No analysis runs if any analysis is invalid.
func Run(ctx context.Context, spec *Spec, opts ...Option) (*Report, error) {
	cfg := &runConfig{
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		missingLabel: spec.MissingLabel,
		precision:    spec.Precision,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	log := cfg.logger

	if err := spec.Check(); err != nil {
		return nil, err
	}

	rep := &Report{Title: spec.Title}
	if rep.Title == "" {
		rep.Title = "Report"
	}

	// 1. Load datasets
	names := make([]string, 0, len(spec.Datasets))
	for name := range spec.Datasets {
		names = append(names, name)
	}
	sort.Strings(names)

	loaded := make(map[string]engine.Dataset, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ds, summary, err := loadDataset(spec, name)
		if err != nil {
			return nil, fmt.Errorf("dataset %q: %w", name, err)
		}
		loaded[name] = ds
		rep.Datasets = append(rep.Datasets, summary)

		log.Info("dataset loaded", "dataset", name, "records", summary.Records, "schema", summary.Schema)
		if summary.SkippedRows > 0 || summary.BadCells > 0 {
			log.Warn("dataset had unreadable data", "dataset", name,
				"skipped_rows", summary.SkippedRows, "bad_cells", summary.BadCells)
		}
	}

	// 2. Validate everything before computing anything
	for _, a := range spec.Analyses {
		dsName, _ := spec.datasetFor(a)
		if err := a.Validate(loaded[dsName].Schema()); err != nil {
			return nil, err
		}
	}

	// 3. Execute
	engineOpts := []engine.Option{
		engine.WithLogger(log),
	}
	if cfg.missingLabel != "" {
		engineOpts = append(engineOpts, engine.WithMissingLabel(cfg.missingLabel))
	}
	if cfg.precision != nil {
		engineOpts = append(engineOpts, engine.WithPrecision(*cfg.precision))
	}

	for _, a := range spec.Analyses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dsName, _ := spec.datasetFor(a)
		result, err := engine.Execute(a, loaded[dsName], engineOpts...)
		if err != nil {
			return nil, err
		}
		rep.Results = append(rep.Results, result)
	}

	return rep, nil
}

func loadDataset(spec *Spec, name string) (engine.Dataset, DatasetSummary, error) {
	d := spec.Datasets[name]
	path := spec.resolvePath(d.Path)

	cfg, err := resolveSchema(d, path)
	if err != nil {
		return engine.Dataset{}, DatasetSummary{}, err
	}

	ds, stats, err := helpers.LoadFile(path, d.Sheet, cfg)
	if err != nil {
		return engine.Dataset{}, DatasetSummary{}, err
	}

	return ds, DatasetSummary{
		Name:        name,
		Path:        d.Path,
		Schema:      cfg.Name,
		Records:     stats.Rows,
		SkippedRows: stats.SkippedRows,
		BadCells:    stats.BadCells,
	}, nil
}

func resolveSchema(d DatasetSpec, path string) (schema.Config, error) {
	switch {
	case d.Schema != nil:
		return *d.Schema, nil
	case d.Preset != "":
		return schema.Preset(d.Preset)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" {
		return schema.Config{}, fmt.Errorf("no schema or preset given and %s files cannot be discovered", ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.Config{}, err
	}
	cfg, err := schema.DiscoverFromCSV(data, schema.DiscoverOptions{
		Name:         strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		TagSeparator: ", ",
	})
	if err != nil {
		return schema.Config{}, err
	}
	return *cfg, nil
}
