package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownColumn is matched by SchemaErrors for columns absent from the schema.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrColumnKind is matched by SchemaErrors for columns of the wrong kind.
	ErrColumnKind = errors.New("column has wrong kind")
	// ErrInvalidBands reports classification bands that are empty or not ascending.
	ErrInvalidBands = errors.New("invalid classification bands")
	// ErrInvalidAnalysis reports a malformed declarative analysis.
	ErrInvalidAnalysis = errors.New("invalid analysis")
)

// SchemaError reports a reference to a column the dataset cannot serve.
// It is raised before any computation starts.
type SchemaError struct {
	Op     string // operation that referenced the column
	Column string
	Err    error // ErrUnknownColumn or ErrColumnKind
	Detail string
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("%s: column %q: %v", e.Op, e.Column, e.Err)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *SchemaError) Unwrap() error { return e.Err }

func unknownColumn(op, column string) error {
	return &SchemaError{Op: op, Column: column, Err: ErrUnknownColumn}
}

func wrongKind(op, column string, got Kind, want string) error {
	return &SchemaError{Op: op, Column: column, Err: ErrColumnKind, Detail: fmt.Sprintf("is %s, need %s", got, want)}
}

// requireColumn checks that column exists in schema.
func requireColumn(schema Schema, op, column string) (Column, error) {
	col, ok := schema.Lookup(column)
	if !ok {
		return Column{}, unknownColumn(op, column)
	}
	return col, nil
}

// requireNumeric checks that column exists and holds measures.
func requireNumeric(schema Schema, op, column string) error {
	col, err := requireColumn(schema, op, column)
	if err != nil {
		return err
	}
	if !col.Kind.IsNumeric() {
		return wrongKind(op, column, col.Kind, "integer or float")
	}
	return nil
}
