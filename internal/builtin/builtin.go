// Package builtin implements the host modules guests reach with require:
// XPLMCamera, XPLMPlugin, XPUIGraphics, XPLuaLog and XPLua.
//
// Modules that hand guest callables to the host keep them in a
// handle.Registry and pass only the handle across as the native refcon.
// The native-facing callback resolves the handle, calls the guest and
// contains any fault: the host never sees a guest error.
package builtin

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dshills/xplua/internal/fault"
	"github.com/dshills/xplua/internal/marshal"
)

// Module names.
const (
	CameraModule     = "XPLMCamera"
	PluginModule     = "XPLMPlugin"
	UIGraphicsModule = "XPUIGraphics"
	LogModule        = "XPLuaLog"
	XPLuaModule      = "XPLua"
)

// registration is what a guest handed over together with a callable: the
// owner executing at registration time, the callable and its refcon.
type registration struct {
	owner  any
	fn     lua.LValue
	refcon lua.LValue
}

// Options are shared by every builtin.
type Options struct {
	Logger *zap.Logger
	Faults *fault.Counter
}

func (o Options) withDefaults(name string) Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	o.Logger = o.Logger.Named(name)
	if o.Faults == nil {
		o.Faults = &fault.Counter{}
	}
	return o
}

// newModule builds a module table holding funcs and integer constants.
func newModule(L *lua.LState, funcs map[string]lua.LGFunction, consts map[string]int) *lua.LTable {
	mod := L.NewTable()
	L.SetFuncs(mod, funcs)
	for name, v := range consts {
		mod.RawSetString(name, lua.LNumber(v))
	}
	return mod
}

// intArgs checks that the call has exactly n number arguments and converts
// each to an int, raising a Lua error otherwise.
func intArgs(L *lua.LState, fn string, n int) []int {
	if top := L.GetTop(); top != n {
		L.RaiseError("%s takes %d arguments (%d given)", fn, n, top)
		return nil
	}
	out := make([]int, n)
	for i := range out {
		num, ok := L.Get(i + 1).(lua.LNumber)
		if !ok {
			L.ArgError(i+1, fmt.Sprintf("%s: number expected, got %s", fn, L.Get(i+1).Type()))
			return nil
		}
		v, err := marshal.Int(float64(num))
		if err != nil {
			L.ArgError(i+1, fmt.Sprintf("%s: %v", fn, err))
			return nil
		}
		out[i] = v
	}
	return out
}

// truthy converts a Lua value to a Go bool the way the native SDK reads an
// int flag: numbers are true when non-zero, booleans as-is.
func truthy(L *lua.LState, n int) bool {
	v := L.Get(n)
	switch b := v.(type) {
	case lua.LBool:
		return bool(b)
	case lua.LNumber:
		return b != 0
	default:
		return lua.LVAsBool(v)
	}
}

func boolNumber(b bool) lua.LNumber {
	if b {
		return 1
	}
	return 0
}
