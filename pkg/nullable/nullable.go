// Package nullable distinguishes a JSON field that was omitted from one that
// was sent as an explicit null.
package nullable

import (
	"bytes"
	"encoding/json"
)

// Field is a tri-state JSON value: absent (Set false), null (Set true, Null
// true) or present (Set true, Null false, Value holding the decoded value).
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Of returns a present field.
func Of[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Null returns an explicitly-null field.
func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

// UnmarshalJSON is only invoked for keys present in the document, which is
// what makes Set meaningful.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Null = true
		var zero T
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set || f.Null {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Present reports whether the field carries a non-null value.
func (f Field[T]) Present() bool {
	return f.Set && !f.Null
}
