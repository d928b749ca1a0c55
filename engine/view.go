package engine

// ============================================================================
// DOMAIN ADAPTER — Typed structs → Dataset
// ============================================================================
//
// Usage:
//
//	adapter := engine.NewDomainAdapter[MenuItem]().
//	    Dimension("restaurant", func(m MenuItem) string { return m.Restaurant }).
//	    Measure("calories", engine.KindInteger, func(m MenuItem) engine.Number { return engine.Some(m.Calories) })
//
//	ds := adapter.Bind(items)
//	rows, err := engine.GroupSummarize(ds, engine.GroupBy("restaurant"), engine.Mean("calories"))
//
// ============================================================================

// DomainAdapter builds a Dataset from typed structs.
// Declare once, bind many times.
type DomainAdapter[T any] struct {
	schema Schema
	dims   map[string]func(T) string
	meas   map[string]func(T) Number
}

// NewDomainAdapter creates a new adapter for type T.
func NewDomainAdapter[T any]() *DomainAdapter[T] {
	return &DomainAdapter[T]{
		dims: make(map[string]func(T) string),
		meas: make(map[string]func(T) Number),
	}
}

// Dimension registers a string column accessor.
func (a *DomainAdapter[T]) Dimension(key string, fn func(T) string) *DomainAdapter[T] {
	a.schema = a.schema.with(Column{Name: key, Kind: KindString})
	delete(a.meas, key)
	a.dims[key] = fn
	return a
}

// Tags registers a multi-valued column accessor. Flatten splits it on delim.
func (a *DomainAdapter[T]) Tags(key, delim string, fn func(T) string) *DomainAdapter[T] {
	a.schema = a.schema.with(Column{Name: key, Kind: KindMulti, Delimiter: delim})
	delete(a.meas, key)
	a.dims[key] = fn
	return a
}

// Measure registers a numeric column accessor.
func (a *DomainAdapter[T]) Measure(key string, kind Kind, fn func(T) Number) *DomainAdapter[T] {
	if !kind.IsNumeric() {
		kind = KindFloat
	}
	a.schema = a.schema.with(Column{Name: key, Kind: kind})
	delete(a.dims, key)
	a.meas[key] = fn
	return a
}

// Schema returns the columns registered so far.
func (a *DomainAdapter[T]) Schema() Schema {
	return append(Schema(nil), a.schema...)
}

// Bind evaluates the accessors over data and returns a Dataset.
// Accessors run once per item; later changes to data are not observed.
func (a *DomainAdapter[T]) Bind(data []T) Dataset {
	records := make([]Record, len(data))
	for i, item := range data {
		rec := NewRecord()
		for key, fn := range a.dims {
			rec.Dimensions[key] = fn(item)
		}
		for key, fn := range a.meas {
			rec.Measures[key] = fn(item)
		}
		records[i] = rec
	}
	return Dataset{schema: a.Schema(), records: records}
}
