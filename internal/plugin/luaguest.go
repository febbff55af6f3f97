package plugin

import (
	"fmt"
	"math"
	"strings"

	lua "github.com/yuin/gopher-lua"

	plua "github.com/dshills/xplua/internal/plugin/lua"
)

// LuaGuest adapts a Lua instance to the Guest interface. Hooks are looked up
// on the instance and called as methods.
type LuaGuest struct {
	state    *plua.State
	bridge   *plua.Bridge
	file     string
	instance lua.LValue
}

// NewLuaGuest wraps instance, created from file, as a Guest.
func NewLuaGuest(state *plua.State, file string, instance lua.LValue) *LuaGuest {
	return &LuaGuest{
		state:    state,
		bridge:   plua.NewBridge(state.LuaState()),
		file:     file,
		instance: instance,
	}
}

// String identifies the guest in diagnostics.
func (g *LuaGuest) String() string {
	return g.file
}

// call invokes hook with the guest recorded as owner. ok is false when the
// instance does not define the hook.
func (g *LuaGuest) call(hook string, args ...lua.LValue) (res []lua.LValue, ok bool, err error) {
	if !g.state.HasMethod(g.instance, hook) {
		return nil, false, nil
	}
	err = g.state.WithOwner(g, func() error {
		var callErr error
		res, callErr = g.state.CallMethod(g.instance, hook, args...)
		return callErr
	})
	return res, true, err
}

// Start implements Guest.
func (g *LuaGuest) Start() (Identity, error) {
	res, ok, err := g.call(HookStart)
	if !ok {
		return Identity{}, ErrNoStartHook
	}
	if err != nil {
		return Identity{}, err
	}
	return g.identity(res)
}

// identity accepts three string results, or one sequence table holding
// exactly three strings.
func (g *LuaGuest) identity(res []lua.LValue) (Identity, error) {
	vals := res
	if len(res) == 1 {
		if t, ok := res[0].(*lua.LTable); ok {
			seq, isSeq := g.bridge.Sequence(t)
			if !isSeq || len(seq) != 3 {
				return Identity{}, fmt.Errorf("%w: got %s", ErrBadIdentity, describe(res))
			}
			vals = []lua.LValue{t.RawGetInt(1), t.RawGetInt(2), t.RawGetInt(3)}
		}
	}
	if len(vals) != 3 {
		return Identity{}, fmt.Errorf("%w: got %s", ErrBadIdentity, describe(res))
	}
	var out [3]string
	for i, v := range vals {
		s, ok := v.(lua.LString)
		if !ok {
			return Identity{}, fmt.Errorf("%w: got %s", ErrBadIdentity, describe(res))
		}
		out[i] = string(s)
	}
	return Identity{Name: out[0], Signature: out[1], Description: out[2]}, nil
}

// Enable implements Guest. The hook must return one integer.
func (g *LuaGuest) Enable() error {
	res, ok, err := g.call(HookEnable)
	if !ok || err != nil {
		return err
	}
	if len(res) == 1 {
		if n, isNum := res[0].(lua.LNumber); isNum && float64(n) == math.Trunc(float64(n)) {
			return nil
		}
	}
	return g.violation(HookEnable, "an integer", res)
}

// Disable implements Guest.
func (g *LuaGuest) Disable() error {
	return g.callVoid(HookDisable)
}

// Stop implements Guest.
func (g *LuaGuest) Stop() error {
	return g.callVoid(HookStop)
}

// ReceiveMessage implements Guest.
func (g *LuaGuest) ReceiveMessage(from, message int, param any) error {
	return g.callVoid(HookReceiveMessage, lua.LNumber(from), lua.LNumber(message), g.bridge.ToLua(param))
}

func (g *LuaGuest) callVoid(hook string, args ...lua.LValue) error {
	res, ok, err := g.call(hook, args...)
	if !ok || err != nil {
		return err
	}
	if len(res) == 0 || (len(res) == 1 && res[0] == lua.LNil) {
		return nil
	}
	return g.violation(hook, "nil", res)
}

func (g *LuaGuest) violation(hook, want string, res []lua.LValue) error {
	return &ProtocolViolation{Module: g.file, Hook: hook, Want: want, Got: describe(res)}
}

func describe(res []lua.LValue) string {
	if len(res) == 0 {
		return "nothing"
	}
	parts := make([]string, len(res))
	for i, v := range res {
		parts[i] = fmt.Sprintf("'%s' (%s)", v.String(), v.Type())
	}
	return strings.Join(parts, ", ")
}
