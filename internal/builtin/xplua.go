package builtin

import (
	lua "github.com/yuin/gopher-lua"

	plua "github.com/dshills/xplua/internal/plugin/lua"
)

// Info is what the XPLua module tells guests about the bridge.
type Info struct {
	Version             string
	PluginsPath         string
	InternalPluginsPath string

	// SessionID returns the id of the current start; nil reports "".
	SessionID func() string
}

// XPLua implements the XPLua module.
type XPLua struct {
	info Info
}

// NewXPLua creates the XPLua module.
func NewXPLua(info Info) *XPLua {
	return &XPLua{info: info}
}

// Name implements runtime.Module.
func (x *XPLua) Name() string {
	return XPLuaModule
}

// Register implements runtime.Module.
func (x *XPLua) Register(state *plua.State) (*lua.LTable, error) {
	mod := newModule(state.LuaState(), map[string]lua.LGFunction{
		"getSessionID": x.getSessionID,
	}, nil)
	mod.RawSetString("VERSION", lua.LString(x.info.Version))
	mod.RawSetString("PLUGINSPATH", lua.LString(x.info.PluginsPath))
	mod.RawSetString("INTERNALPLUGINSPATH", lua.LString(x.info.InternalPluginsPath))
	return mod, nil
}

// Cleanup implements runtime.Module.
func (x *XPLua) Cleanup() error {
	return nil
}

func (x *XPLua) getSessionID(L *lua.LState) int {
	id := ""
	if x.info.SessionID != nil {
		id = x.info.SessionID()
	}
	L.Push(lua.LString(id))
	return 1
}
