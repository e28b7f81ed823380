package core

import (
	"bytes"
	"encoding/json"
)

// Optional records whether a JSON field was present in a request body and,
// if so, whether it was null. It lets patch structs apply only the fields a
// client actually sent.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some is a present, non-null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null is a present Optional explicitly set to null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// IsNull reports an explicit null.
func (o Optional[T]) IsNull() bool { return o.Set && o.Value == nil }

// applyNullable overwrites dst when the field was sent.
func applyNullable[T any](dst **T, o Optional[T]) {
	if !o.Set {
		return
	}
	if o.Value == nil {
		*dst = nil
		return
	}
	v := *o.Value
	*dst = &v
}

// applyRequired overwrites dst when the field was sent with a value. An
// explicit null is rejected for columns that cannot be empty.
func applyRequired[T any](dst *T, o Optional[T], field string) error {
	if !o.Set {
		return nil
	}
	if o.Value == nil {
		return NewValidationError("El campo " + field + " no puede ser nulo")
	}
	*dst = *o.Value
	return nil
}
