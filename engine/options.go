package engine

import (
	"io"
	"log/slog"
)

// ============================================================================
// ENGINE OPTIONS — Functional options for Execute()
// ============================================================================

// Option configures engine behavior via functional options pattern.
type Option func(*config)

type config struct {
	Logger       *slog.Logger
	MissingLabel string // table cell text for missing values
	Precision    int    // decimals for non-integral table values
}

// WithLogger routes engine progress logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithMissingLabel sets how missing values render in tables.
func WithMissingLabel(label string) Option {
	return func(c *config) {
		c.MissingLabel = label
	}
}

// WithPrecision sets the decimals used for non-integral table values.
func WithPrecision(digits int) Option {
	return func(c *config) {
		if digits >= 0 {
			c.Precision = digits
		}
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		MissingLabel: "NA",
		Precision:    2,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
