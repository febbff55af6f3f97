package marshal

import (
	"errors"
	"fmt"
)

// ErrArityOrConversion is the class of every marshaling fault.
var ErrArityOrConversion = errors.New("arity or conversion fault")

// ArityError reports a sequence of the wrong length.
type ArityError struct {
	Want int
	Got  int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("expected %d values, got %d", e.Want, e.Got)
}

// Unwrap allows errors.Is(err, ErrArityOrConversion).
func (e *ArityError) Unwrap() error {
	return ErrArityOrConversion
}

// ConversionError reports a value that cannot be converted.
// Index is -1 for scalar conversions.
type ConversionError struct {
	Index  int
	Value  any
	Target string
}

func (e *ConversionError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("cannot convert %v (%T) to %s", e.Value, e.Value, e.Target)
	}
	return fmt.Sprintf("element %d: cannot convert %v (%T) to %s", e.Index, e.Value, e.Value, e.Target)
}

// Unwrap allows errors.Is(err, ErrArityOrConversion).
func (e *ConversionError) Unwrap() error {
	return ErrArityOrConversion
}
