// Package lua wraps gopher-lua for the guest runtime.
//
// A single State is shared by every guest module for the lifetime of one
// start/stop cycle. Each module file is imported into its own environment
// table so globals defined by one module are invisible to the others, while
// the standard library and the preloaded host modules stay reachable through
// the shared globals:
//
//	state := lua.NewState()
//	defer state.Close()
//
//	env, err := state.Import("PI_hello.lua")
//	if err != nil {
//	    return err
//	}
//	entry := state.Field(env, "PluginInterface")
//
// # Calls
//
// Call and CallMethod run in protected mode. A Lua error or a Go panic
// raised by a host function comes back as an error and leaves the stack
// balanced, so callers can log it and carry on.
//
// # Bridge
//
// The Bridge converts values in both directions. Lua numbers always become
// float64 and tables keyed exactly 1..n become []any. Any other table,
// including one with holes, becomes map[string]any:
//
//	bridge := lua.NewBridge(state.LuaState())
//	vals, ok := bridge.Sequence(tbl)
package lua
