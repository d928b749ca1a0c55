package engine

import "fmt"

// Band is one labelled interval: values below Below (and at or above the
// previous band's Below) get Label.
type Band struct {
	Label string  `json:"label" yaml:"label" koanf:"label"`
	Below float64 `json:"below" yaml:"below" koanf:"below"`
}

// Bands is an ordered set of half-open intervals plus a catch-all.
type Bands struct {
	Bands     []Band `json:"bands" yaml:"bands" koanf:"bands"`
	Otherwise string `json:"otherwise" yaml:"otherwise" koanf:"otherwise"` // at or above the last boundary
	Missing   string `json:"missing,omitempty" yaml:"missing,omitempty" koanf:"missing"`
}

// DefaultMissingLabel labels records whose value is missing.
const DefaultMissingLabel = "Unknown"

// Validate requires at least one band, a catch-all label and strictly
// ascending boundaries.
func (b Bands) Validate() error {
	if len(b.Bands) == 0 {
		return fmt.Errorf("%w: no bands", ErrInvalidBands)
	}
	if b.Otherwise == "" {
		return fmt.Errorf("%w: missing catch-all label", ErrInvalidBands)
	}
	for i, band := range b.Bands {
		if band.Label == "" {
			return fmt.Errorf("%w: band %d has no label", ErrInvalidBands, i)
		}
		if i > 0 && band.Below <= b.Bands[i-1].Below {
			return fmt.Errorf("%w: boundary %v does not follow %v", ErrInvalidBands, band.Below, b.Bands[i-1].Below)
		}
	}
	return nil
}

// Classify maps v to the first band with v < Below, else Otherwise.
// A value equal to a boundary belongs to the band that boundary opens.
func Classify(v float64, b Bands) string {
	for _, band := range b.Bands {
		if v < band.Below {
			return band.Label
		}
	}
	return b.Otherwise
}

// ClassifyNumber classifies an optional value; missing gets the Missing label.
func ClassifyNumber(n Number, b Bands) string {
	v, ok := n.Get()
	if !ok {
		if b.Missing != "" {
			return b.Missing
		}
		return DefaultMissingLabel
	}
	return Classify(v, b)
}

// ClassifyRecord classifies the value of column in r.
func ClassifyRecord(r Record, column string, b Bands) string {
	return ClassifyNumber(r.Number(column), b)
}

// WithClassification returns a copy of ds with a new string column target
// holding each record's band label for source. Records are cloned, so the
// input dataset is not modified.
func WithClassification(ds Dataset, source, target string, b Bands) (Dataset, error) {
	if err := requireNumeric(ds.schema, "classify", source); err != nil {
		return Dataset{}, err
	}
	if target == "" {
		return Dataset{}, fmt.Errorf("%w: classification of %q needs a target column", ErrInvalidAnalysis, source)
	}
	if err := b.Validate(); err != nil {
		return Dataset{}, err
	}

	records := make([]Record, len(ds.records))
	for i, r := range ds.records {
		c := r.Clone()
		delete(c.Measures, target)
		c.Dimensions[target] = ClassifyRecord(r, source, b)
		records[i] = c
	}
	return Dataset{schema: ds.schema.with(Column{Name: target, Kind: KindString}), records: records}, nil
}
