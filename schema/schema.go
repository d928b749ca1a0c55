package schema

import (
	"fmt"
	"strings"

	"github.com/spektr-org/tally/engine"
)

// ============================================================================
// SCHEMA — Expected shape of an input file
// ============================================================================
// Declared by hand, loaded from a report file, or auto-discovered from CSV.
// Loaders validate a file header against it before parsing any row.
// ============================================================================

// Config describes the columns a dataset file must provide.
type Config struct {
	Name        string       `json:"name" yaml:"name" koanf:"name"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty" koanf:"description"`
	Columns     []ColumnMeta `json:"columns" yaml:"columns" koanf:"columns"`

	// Auto-discovery metadata
	DiscoveredFrom string `json:"discoveredFrom,omitempty" yaml:"discovered_from,omitempty" koanf:"discovered_from"`
}

// ColumnMeta describes one expected column.
type ColumnMeta struct {
	Key          string      `json:"key" yaml:"key" koanf:"key"`
	DisplayName  string      `json:"displayName,omitempty" yaml:"display_name,omitempty" koanf:"display_name"`
	Type         engine.Kind `json:"type" yaml:"type" koanf:"type"`
	Delimiter    string      `json:"delimiter,omitempty" yaml:"delimiter,omitempty" koanf:"delimiter"`
	Optional     bool        `json:"optional,omitempty" yaml:"optional,omitempty" koanf:"optional"`
	SampleValues []string    `json:"sampleValues,omitempty" yaml:"sample_values,omitempty" koanf:"sample_values"`
}

// Keys returns all column keys in order.
func (c Config) Keys() []string {
	keys := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		keys[i] = col.Key
	}
	return keys
}

// Column returns the column with the given key.
func (c Config) Column(key string) (ColumnMeta, bool) {
	for _, col := range c.Columns {
		if col.Key == key {
			return col, true
		}
	}
	return ColumnMeta{}, false
}

// Check reports declarations the engine cannot use: empty or duplicate keys
// and unknown types.
func (c Config) Check() error {
	seen := make(map[string]bool, len(c.Columns))
	for i, col := range c.Columns {
		if col.Key == "" {
			return fmt.Errorf("schema %q: column %d has no key", c.Name, i)
		}
		if seen[col.Key] {
			return fmt.Errorf("schema %q: duplicate column %q", c.Name, col.Key)
		}
		seen[col.Key] = true
		if !col.Type.Valid() {
			return fmt.Errorf("schema %q: column %q has unknown type %q", c.Name, col.Key, col.Type)
		}
	}
	return nil
}

// ToEngine converts the declaration into an engine schema.
func (c Config) ToEngine() engine.Schema {
	sc := make(engine.Schema, 0, len(c.Columns))
	for _, col := range c.Columns {
		ec := engine.Column{Name: col.Key, Kind: col.Type}
		if col.Type == engine.KindMulti {
			ec.Delimiter = col.Delimiter
			if ec.Delimiter == "" {
				ec.Delimiter = engine.DefaultDelimiter
			}
		}
		sc = append(sc, ec)
	}
	return sc
}

// Validate checks a file header against c. Header cells are normalised to
// snake_case before matching, so "Total Fat" satisfies key "total_fat".
// Repeated headers are keyed as discovery keys them: "x", "x_2", "x_3".
// It returns the column index of each declared key (-1 for absent optional
// columns) or a SchemaError naming the first missing required column.
func Validate(header []string, c Config) (map[string]int, error) {
	index := make(map[string]int, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		base := ToSnakeCase(strings.TrimSpace(strings.TrimPrefix(h, bom)))
		key := base
		if n := seen[base]; n > 0 {
			key = fmt.Sprintf("%s_%d", base, n+1)
		}
		seen[base]++
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	positions := make(map[string]int, len(c.Columns))
	var missing []string
	for _, col := range c.Columns {
		i, ok := index[col.Key]
		switch {
		case ok:
			positions[col.Key] = i
		case col.Optional:
			positions[col.Key] = -1
		default:
			missing = append(missing, col.Key)
		}
	}

	if len(missing) > 0 {
		return nil, &engine.SchemaError{
			Op:     "load " + c.Name,
			Column: missing[0],
			Err:    engine.ErrUnknownColumn,
			Detail: "header lacks " + strings.Join(missing, ", "),
		}
	}
	return positions, nil
}

// String builds a ColumnMeta for a text column.
func String(key string) ColumnMeta {
	return ColumnMeta{Key: key, DisplayName: ToDisplayName(key), Type: engine.KindString}
}

// Integer builds a ColumnMeta for an integer column.
func Integer(key string) ColumnMeta {
	return ColumnMeta{Key: key, DisplayName: ToDisplayName(key), Type: engine.KindInteger}
}

// Float builds a ColumnMeta for a float column.
func Float(key string) ColumnMeta {
	return ColumnMeta{Key: key, DisplayName: ToDisplayName(key), Type: engine.KindFloat}
}

// Multi builds a ColumnMeta for a delimiter-separated tag column.
func Multi(key, delim string) ColumnMeta {
	return ColumnMeta{Key: key, DisplayName: ToDisplayName(key), Type: engine.KindMulti, Delimiter: delim}
}
