package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dshills/xplua/internal/fault"
	plua "github.com/dshills/xplua/internal/plugin/lua"
)

// DefaultEntryName is the global a module file must define.
const DefaultEntryName = "PluginInterface"

// Loader discovers module files, instantiates them and inserts them into
// a Registry.
type Loader struct {
	state    *plua.State
	registry *Registry
	entry    string
	logger   *zap.Logger
	faults   *fault.Counter
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithEntryName sets the global looked up in each module.
func WithEntryName(name string) LoaderOption {
	return func(l *Loader) {
		if name != "" {
			l.entry = name
		}
	}
}

// WithLoaderLogger sets the logger.
func WithLoaderLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithLoaderFaults sets the counter incremented for each rejected module.
func WithLoaderFaults(c *fault.Counter) LoaderOption {
	return func(l *Loader) {
		l.faults = c
	}
}

// NewLoader creates a loader that runs modules in state and fills registry.
func NewLoader(state *plua.State, registry *Registry, opts ...LoaderOption) *Loader {
	l := &Loader{
		state:    state,
		registry: registry,
		entry:    DefaultEntryName,
		logger:   zap.NewNop(),
		faults:   &fault.Counter{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Scan loads every file in dir whose name matches pattern, in directory
// order. A module that fails is logged and skipped; the scan always moves
// on to the next file. Returns the number of modules inserted. The error
// is non-nil only when dir cannot be read.
func (l *Loader) Scan(dir string, pattern *regexp.Regexp) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		l.logger.Warn("can't open directory to scan for modules",
			zap.String("dir", dir), zap.Error(err))
		return 0, err
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !pattern.MatchString(entry.Name()) {
			continue
		}
		file := filepath.Join(dir, entry.Name())

		var key ModuleKey
		var g Guest
		err := fault.Guard(func() error {
			var loadErr error
			key, g, loadErr = l.Load(file)
			return loadErr
		})
		switch {
		case err == nil:
			l.registry.Insert(key, g)
			loaded++
		case errors.Is(err, ErrNoEntry):
			l.logger.Info("skipping file without entry construct",
				zap.String("file", file), zap.String("entry", l.entry))
		default:
			l.faults.Inc()
			fields := []zap.Field{zap.String("file", file), zap.Error(err)}
			var le *LoadError
			if errors.As(err, &le) {
				fields = append(fields, zap.String("stage", string(le.Stage)))
			}
			l.logger.Error("unable to load module", fields...)
		}
	}
	return loaded, nil
}

// Load imports file, instantiates its entry construct and runs
// XPluginStart. It does not touch the registry.
func (l *Loader) Load(file string) (ModuleKey, Guest, error) {
	fail := func(stage LoadStage, err error) (ModuleKey, Guest, error) {
		return ModuleKey{}, nil, &LoadError{File: file, Stage: stage, Err: err}
	}

	var env *lua.LTable
	err := l.state.WithOwner(file, func() error {
		var importErr error
		env, importErr = l.state.Import(file)
		return importErr
	})
	if err != nil {
		return fail(StageImport, err)
	}

	entry := l.state.Field(env, l.entry)
	if entry == lua.LNil {
		return fail(StageLookup, ErrNoEntry)
	}

	instance, err := l.instantiate(file, entry)
	if err != nil {
		return fail(StageInstantiate, err)
	}

	g := NewLuaGuest(l.state, file, instance)
	id, err := g.Start()
	if err != nil {
		if errors.Is(err, ErrBadIdentity) {
			return fail(StageValidate, err)
		}
		return fail(StageStart, err)
	}

	l.logger.Info("module initialized",
		zap.String("file", file),
		zap.String("name", id.Name),
		zap.String("signature", id.Signature),
		zap.String("description", id.Description))

	key := ModuleKey{
		Name:        id.Name,
		Signature:   id.Signature,
		Description: id.Description,
		SourceFile:  file,
	}
	return key, g, nil
}

// instantiate builds an instance from the entry construct. A table with a
// callable new field is treated as a class and new is called with the
// table as self; anything else callable is called with no arguments.
func (l *Loader) instantiate(file string, entry lua.LValue) (lua.LValue, error) {
	var fn lua.LValue
	var args []lua.LValue

	if t, ok := entry.(*lua.LTable); ok {
		if ctor := l.state.Field(t, "new"); ctor != lua.LNil && l.state.Callable(ctor) {
			fn, args = ctor, []lua.LValue{t}
		}
	}
	if fn == nil {
		if !l.state.Callable(entry) {
			return nil, fmt.Errorf("%w: %s is a %s", ErrNotInstantiable, l.entry, entry.Type())
		}
		fn = entry
	}

	var res []lua.LValue
	err := l.state.WithOwner(file, func() error {
		var callErr error
		res, callErr = l.state.Call(fn, args...)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	if len(res) == 0 || res[0] == lua.LNil {
		return nil, fmt.Errorf("%w: constructor returned nothing", ErrNotInstantiable)
	}
	return res[0], nil
}
