// Package runtime owns the embedded Lua runtime: library acquisition,
// builtin module registration and teardown.
package runtime

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dshills/xplua/internal/fault"
	plua "github.com/dshills/xplua/internal/plugin/lua"
)

// Module is a builtin module guests reach with require(Name()).
type Module interface {
	// Name returns the module name (e.g., "XPLMCamera").
	Name() string

	// Register builds the module table in state. It runs once per start,
	// before the runtime library.
	Register(state *plua.State) (*lua.LTable, error)

	// Cleanup drops everything the module registered on behalf of guests.
	// It runs once per stop.
	Cleanup() error
}

// Config configures a Host.
type Config struct {
	// Libraries are the runtime library candidates, tried in order.
	Libraries []string

	// SearchPaths are appended to package.path so modules can require
	// files next to them.
	SearchPaths []string

	// CallStackSize is the Lua call stack depth; zero means the default.
	CallStackSize int
}

// Host brings the runtime up and down. At most one runtime is live at a
// time; Start and Stop bracket it.
type Host struct {
	config  Config
	open    OpenFunc
	modules []Module
	names   map[string]bool
	logger  *zap.Logger
	faults  *fault.Counter

	state     *plua.State
	library   *Library
	sessionID string
}

// Option configures a Host.
type Option func(*Host)

// WithOpener replaces the library opener.
func WithOpener(open OpenFunc) Option {
	return func(h *Host) {
		h.open = open
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithFaults sets the counter incremented for each failed cleanup.
func WithFaults(c *fault.Counter) Option {
	return func(h *Host) {
		h.faults = c
	}
}

// NewHost creates a stopped host.
func NewHost(config Config, opts ...Option) *Host {
	h := &Host{
		config: config,
		open:   OpenLibrary,
		names:  make(map[string]bool),
		logger: zap.NewNop(),
		faults: &fault.Counter{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds a builtin module. Modules are registered and cleaned up in
// the order they were added.
func (h *Host) Register(m Module) error {
	if h.names[m.Name()] {
		return fmt.Errorf("%w: %s", ErrDuplicateModule, m.Name())
	}
	h.names[m.Name()] = true
	h.modules = append(h.modules, m)
	return nil
}

// Modules returns the registered builtin module names in order.
func (h *Host) Modules() []string {
	names := make([]string, len(h.modules))
	for i, m := range h.modules {
		names[i] = m.Name()
	}
	return names
}

// Started reports whether a runtime is live.
func (h *Host) Started() bool {
	return h.state != nil
}

// State returns the live runtime state, or nil.
func (h *Host) State() *plua.State {
	return h.state
}

// SessionID returns the id passed to the current Start.
func (h *Host) SessionID() string {
	return h.sessionID
}

// Library returns the path of the library in use, or "".
func (h *Host) Library() string {
	if h.library == nil {
		return ""
	}
	return h.library.Path
}

// Start acquires the runtime library, creates the state, preloads every
// builtin module, extends the search path and runs the library. Any
// failure leaves the host stopped and returns a *BootstrapError. Calling
// Start on a started host returns the live state.
func (h *Host) Start(sessionID string) (*plua.State, error) {
	if h.state != nil {
		h.logger.Debug("runtime already started")
		return h.state, nil
	}

	lib, err := probe(h.open, h.config.Libraries)
	if err != nil {
		return nil, &BootstrapError{Stage: StageLibrary, Err: err}
	}
	h.logger.Info("runtime library loaded", zap.String("library", lib.Path))

	var opts []plua.StateOption
	if h.config.CallStackSize > 0 {
		opts = append(opts, plua.WithCallStackSize(h.config.CallStackSize))
	}
	state := plua.NewState(opts...)

	for _, m := range h.modules {
		tbl, err := h.registerModule(state, m)
		if err != nil {
			state.Close()
			return nil, &BootstrapError{Stage: StageBuiltin, Err: fmt.Errorf("%s: %w", m.Name(), err)}
		}
		state.Preload(m.Name(), func(L *lua.LState) int {
			L.Push(tbl)
			return 1
		})
	}

	for _, dir := range h.config.SearchPaths {
		state.AppendPath(dir)
	}

	if err := state.DoSource(lib.Path, lib.Source); err != nil {
		state.Close()
		return nil, &BootstrapError{Stage: StageInit, Err: err}
	}

	h.state = state
	h.library = lib
	h.sessionID = sessionID
	return state, nil
}

func (h *Host) registerModule(state *plua.State, m Module) (tbl *lua.LTable, err error) {
	err = fault.Guard(func() error {
		var regErr error
		tbl, regErr = m.Register(state)
		return regErr
	})
	if err == nil && tbl == nil {
		err = errors.New("no module table")
	}
	return tbl, err
}

// Stop runs every builtin cleanup hook, closes the state and releases the
// library. A failing cleanup is logged and counted and the rest still run.
// Stop on a stopped host is a no-op.
func (h *Host) Stop() error {
	if h.state == nil {
		return nil
	}

	var errs error
	for _, m := range h.modules {
		if err := fault.Guard(m.Cleanup); err != nil {
			h.faults.Inc()
			h.logger.Error("failed during cleanup of builtin module",
				zap.String("module", m.Name()), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("cleanup %s: %w", m.Name(), err))
		}
	}

	h.state.Close()
	h.state = nil
	h.library = nil
	h.sessionID = ""
	return errs
}
