package lua

import "errors"

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrNoMethod is returned when an object lacks the requested method.
	ErrNoMethod = errors.New("no such method")

	// ErrNotCallable is returned when calling a nil value.
	ErrNotCallable = errors.New("value is not callable")
)
