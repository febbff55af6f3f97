package plugin

import (
	"errors"
	"fmt"
)

// Plugin system errors.
var (
	// ErrModuleLoad is matched by every fault that rejects a module during
	// discovery.
	ErrModuleLoad = errors.New("module load fault")

	// ErrNoEntry is returned when a module file does not define the entry
	// construct. Such files are skipped, not counted as faults.
	ErrNoEntry = errors.New("module has no entry construct")

	// ErrNotInstantiable is returned when the entry construct cannot be called.
	ErrNotInstantiable = errors.New("entry construct is not instantiable")

	// ErrNoStartHook is returned when an instance lacks XPluginStart.
	ErrNoStartHook = errors.New("instance has no XPluginStart")

	// ErrBadIdentity is returned when XPluginStart does not report exactly
	// three strings.
	ErrBadIdentity = errors.New("XPluginStart did not return name, signature and description")

	// ErrGuestCallable is matched by every fault raised by a guest hook or
	// callback after startup.
	ErrGuestCallable = errors.New("guest callable fault")
)

// LoadStage names the step of Load that failed.
type LoadStage string

// Load stages, in order.
const (
	StageImport      LoadStage = "import"
	StageLookup      LoadStage = "lookup"
	StageInstantiate LoadStage = "instantiate"
	StageStart       LoadStage = "start"
	StageValidate    LoadStage = "validate"
)

// LoadError reports a module rejected during discovery.
type LoadError struct {
	File  string
	Stage LoadStage
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s: %v", e.File, e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrModuleLoad. A file skipped for having no
// entry construct is not a load fault.
func (e *LoadError) Is(target error) bool {
	return target == ErrModuleLoad && !errors.Is(e.Err, ErrNoEntry)
}

// HookError reports a fault raised by a guest lifecycle hook.
type HookError struct {
	Module string
	Hook   string
	Err    error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Module, e.Hook, e.Err)
}

// Unwrap returns the underlying error.
func (e *HookError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrGuestCallable.
func (e *HookError) Is(target error) bool {
	return target == ErrGuestCallable
}

// ProtocolViolation reports a hook that completed but returned a value of
// the wrong shape. It is logged and never counted as a fault.
type ProtocolViolation struct {
	Module string
	Hook   string
	Want   string
	Got    string
}

func (e *ProtocolViolation) Error() string {
	return fmt.Sprintf("%s %s returned %s rather than %s", e.Module, e.Hook, e.Got, e.Want)
}
