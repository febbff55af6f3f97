package lua

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/xplua/internal/fault"
)

// DefaultCallStackSize is the Lua call stack depth given to a new state.
const DefaultCallStackSize = 240

// State wraps a gopher-lua state shared by every guest module.
//
// gopher-lua's LState is not goroutine-safe and State adds no locking: the
// host drives the bridge from a single thread and so does every method here.
type State struct {
	L *lua.LState

	callStackSize int

	// owner is the guest currently executing, passed through verbatim to
	// registrations made from inside the call.
	owner any

	closed bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithCallStackSize sets the Lua call stack depth.
func WithCallStackSize(n int) StateOption {
	return func(s *State) {
		if n > 0 {
			s.callStackSize = n
		}
	}
}

// NewState creates a Lua state with the full standard library open.
func NewState(opts ...StateOption) *State {
	s := &State{callStackSize: DefaultCallStackSize}
	for _, opt := range opts {
		opt(s)
	}
	s.L = lua.NewState(lua.Options{
		CallStackSize:       s.callStackSize,
		IncludeGoStackTrace: false,
	})
	return s
}

// LuaState returns the underlying gopher-lua state.
func (s *State) LuaState() *lua.LState {
	return s.L
}

// AppendPath adds dir to package.path so guests can require modules that
// live next to them.
func (s *State) AppendPath(dir string) {
	pkg, ok := s.L.GetGlobal("package").(*lua.LTable)
	if !ok {
		return
	}
	entry := filepath.ToSlash(filepath.Join(dir, "?.lua"))
	cur := lua.LVAsString(pkg.RawGetString("path"))
	for _, p := range strings.Split(cur, ";") {
		if p == entry {
			return
		}
	}
	if cur != "" {
		cur += ";"
	}
	pkg.RawSetString("path", lua.LString(cur+entry))
}

// Preload registers a module loader so require(name) returns the module.
func (s *State) Preload(name string, loader lua.LGFunction) {
	s.L.PreloadModule(name, loader)
}

// DoSource runs a chunk of Lua source in the global environment.
func (s *State) DoSource(name string, src []byte) error {
	if s.closed {
		return ErrStateClosed
	}
	fn, err := s.L.Load(bytes.NewReader(src), name)
	if err != nil {
		return fmt.Errorf("compile %s: %w", name, err)
	}
	_, err = s.Call(fn)
	return err
}

// DoString runs a Lua string in the global environment.
func (s *State) DoString(code string) error {
	return s.DoSource("<string>", []byte(code))
}

// Import runs the file at path as an independent module. The chunk gets its
// own environment table that falls back to the globals for reads, so two
// modules defining the same global name do not see each other. The module
// environment is returned.
func (s *State) Import(path string) (*lua.LTable, error) {
	if s.closed {
		return nil, ErrStateClosed
	}
	fn, err := s.L.LoadFile(path)
	if err != nil {
		return nil, err
	}

	env := s.L.NewTable()
	mt := s.L.NewTable()
	mt.RawSetString("__index", s.L.G.Global)
	s.L.SetMetatable(env, mt)
	env.RawSetString("__file__", lua.LString(path))
	fn.Env = env

	if _, err := s.Call(fn); err != nil {
		return nil, err
	}
	return env, nil
}

// Call calls fn in protected mode and returns every value it returns.
// Returns an empty slice (not nil) if fn returns nothing.
func (s *State) Call(fn lua.LValue, args ...lua.LValue) ([]lua.LValue, error) {
	if s.closed {
		return nil, ErrStateClosed
	}
	if fn == nil || fn == lua.LNil {
		return nil, ErrNotCallable
	}

	top := s.L.GetTop()
	err := fault.Guard(func() error {
		s.L.Push(fn)
		for _, arg := range args {
			s.L.Push(arg)
		}
		return s.L.PCall(len(args), lua.MultRet, nil)
	})
	if err != nil {
		s.L.SetTop(top)
		return nil, err
	}

	n := s.L.GetTop() - top
	if n <= 0 {
		return []lua.LValue{}, nil
	}
	results := make([]lua.LValue, n)
	for i := 0; i < n; i++ {
		results[i] = s.L.Get(top + i + 1)
	}
	s.L.Pop(n)
	return results, nil
}

// Field reads obj[name], honouring __index metamethods.
func (s *State) Field(obj lua.LValue, name string) lua.LValue {
	var v lua.LValue = lua.LNil
	_ = fault.Guard(func() error {
		v = s.L.GetField(obj, name)
		return nil
	})
	return v
}

// CallMethod calls obj:name(args...). A missing method yields an error
// wrapping ErrNoMethod.
func (s *State) CallMethod(obj lua.LValue, name string, args ...lua.LValue) ([]lua.LValue, error) {
	fn := s.Field(obj, name)
	if fn == lua.LNil {
		return nil, fmt.Errorf("%w: %s", ErrNoMethod, name)
	}
	return s.Call(fn, append([]lua.LValue{obj}, args...)...)
}

// HasMethod reports whether obj has a non-nil field called name.
func (s *State) HasMethod(obj lua.LValue, name string) bool {
	return s.Field(obj, name) != lua.LNil
}

// Callable reports whether v can be called: a function or a value whose
// metatable defines __call.
func (s *State) Callable(v lua.LValue) bool {
	if v.Type() == lua.LTFunction {
		return true
	}
	return s.L.GetMetaField(v, "__call") != lua.LNil
}

// Owner returns the guest currently executing, or nil.
func (s *State) Owner() any {
	return s.owner
}

// WithOwner runs fn with owner recorded as the executing guest.
func (s *State) WithOwner(owner any, fn func() error) error {
	prev := s.owner
	s.owner = owner
	defer func() { s.owner = prev }()
	return fn()
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	return s.closed
}

// Close releases the Lua state. Further calls return ErrStateClosed.
func (s *State) Close() {
	if s.closed {
		return
	}
	s.L.Close()
	s.closed = true
}
