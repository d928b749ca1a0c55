// Package report runs a declared set of analyses over one or more datasets
// and renders the results.
package report

import (
	"fmt"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/spektr-org/tally/engine"
	"github.com/spektr-org/tally/schema"
)

// Spec is a report file: datasets to load and the analyses to run on them.
type Spec struct {
	Title        string                 `koanf:"title" yaml:"title" json:"title"`
	MissingLabel string                 `koanf:"missing_label" yaml:"missing_label,omitempty" json:"missingLabel,omitempty"`
	Precision    *int                   `koanf:"precision" yaml:"precision,omitempty" json:"precision,omitempty"`
	Datasets     map[string]DatasetSpec `koanf:"datasets" yaml:"datasets" json:"datasets"`
	Analyses     []engine.Analysis      `koanf:"analyses" yaml:"analyses" json:"analyses"`

	// BaseDir anchors relative dataset paths. LoadSpec sets it to the
	// directory of the report file.
	BaseDir string `koanf:"-" yaml:"-" json:"-"`
}

// DatasetSpec says where a dataset lives and how to type its columns.
// Schema wins over Preset; with neither, the schema is discovered from the
// file (CSV only).
type DatasetSpec struct {
	Path   string         `koanf:"path" yaml:"path" json:"path"`
	Sheet  string         `koanf:"sheet" yaml:"sheet,omitempty" json:"sheet,omitempty"`
	Preset string         `koanf:"preset" yaml:"preset,omitempty" json:"preset,omitempty"`
	Schema *schema.Config `koanf:"schema" yaml:"schema,omitempty" json:"schema,omitempty"`
}

// LoadSpec reads a YAML report file.
func LoadSpec(path string) (*Spec, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("error reading report %s: %w", path, err)
	}

	var spec Spec
	if err := k.Unmarshal("", &spec); err != nil {
		return nil, fmt.Errorf("unable to decode report %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	spec.BaseDir = filepath.Dir(abs)

	if err := spec.Check(); err != nil {
		return nil, fmt.Errorf("report %s: %w", path, err)
	}
	return &spec, nil
}

// Check validates the structure of the spec: datasets exist, analyses are
// named uniquely and point at a declared dataset. Column references are
// checked later, against loaded schemas.
func (s *Spec) Check() error {
	if len(s.Datasets) == 0 {
		return fmt.Errorf("%w: no datasets declared", engine.ErrInvalidAnalysis)
	}
	if len(s.Analyses) == 0 {
		return fmt.Errorf("%w: no analyses declared", engine.ErrInvalidAnalysis)
	}
	for name, ds := range s.Datasets {
		if ds.Path == "" {
			return fmt.Errorf("%w: dataset %q has no path", engine.ErrInvalidAnalysis, name)
		}
	}

	seen := make(map[string]bool, len(s.Analyses))
	for i, a := range s.Analyses {
		if a.Name == "" {
			return fmt.Errorf("%w: analysis %d has no name", engine.ErrInvalidAnalysis, i+1)
		}
		if seen[a.Name] {
			return fmt.Errorf("%w: duplicate analysis %q", engine.ErrInvalidAnalysis, a.Name)
		}
		seen[a.Name] = true
		if _, err := s.datasetFor(a); err != nil {
			return err
		}
	}
	return nil
}

// datasetFor resolves the dataset an analysis reads. An analysis may omit
// the dataset when exactly one is declared.
func (s *Spec) datasetFor(a engine.Analysis) (string, error) {
	if a.Dataset == "" {
		if len(s.Datasets) == 1 {
			for name := range s.Datasets {
				return name, nil
			}
		}
		return "", fmt.Errorf("%w: analysis %q must name one of %d datasets", engine.ErrInvalidAnalysis, a.Name, len(s.Datasets))
	}
	if _, ok := s.Datasets[a.Dataset]; !ok {
		return "", fmt.Errorf("%w: analysis %q reads unknown dataset %q", engine.ErrInvalidAnalysis, a.Name, a.Dataset)
	}
	return a.Dataset, nil
}

func (s *Spec) resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || s.BaseDir == "" {
		return p
	}
	return filepath.Join(s.BaseDir, p)
}
