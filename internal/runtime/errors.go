package runtime

import (
	"errors"
	"fmt"
)

// Runtime host errors.
var (
	// ErrRuntimeBootstrap is matched by every failure to bring the runtime
	// up. It is the only fault that fails a start.
	ErrRuntimeBootstrap = errors.New("runtime bootstrap failed")

	// ErrLibraryNotFound is returned when no runtime library candidate can
	// be opened.
	ErrLibraryNotFound = errors.New("runtime library not found")

	// ErrDuplicateModule is returned when two builtin modules share a name.
	ErrDuplicateModule = errors.New("builtin module already registered")
)

// BootstrapStage names the step of Start that failed.
type BootstrapStage string

// Bootstrap stages, in order.
const (
	StageLibrary BootstrapStage = "library"
	StageBuiltin BootstrapStage = "builtin"
	StageInit    BootstrapStage = "init"
)

// BootstrapError reports a failed start.
type BootstrapError struct {
	Stage BootstrapStage
	Err   error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("runtime bootstrap: %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *BootstrapError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrRuntimeBootstrap.
func (e *BootstrapError) Is(target error) bool {
	return target == ErrRuntimeBootstrap
}
