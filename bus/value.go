package bus

import "time"

// Value is one bound parameter in a command's tuple. It is a closed set of
// variants (int64, string, arbitrary JSON, and timestamp) rather than a
// bare interface{}, so bindUnnest can type-switch exhaustively instead of
// guessing at reflection time.
type Value interface {
	isValue()
}

// Int wraps a bigint-typed parameter.
type Int int64

// Str wraps a text-typed parameter.
type Str string

// JSON wraps a value that will be marshaled to JSON text and bound as
// text, relying on an explicit ::jsonb / ::jsonb[] cast in the SQL text
// itself to reach the jsonb column.
type JSON struct{ Value any }

// Timestamp wraps a timestamptz-typed parameter.
type Timestamp time.Time

func (Int) isValue()       {}
func (Str) isValue()       {}
func (JSON) isValue()      {}
func (Timestamp) isValue() {}
