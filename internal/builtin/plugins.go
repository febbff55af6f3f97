package builtin

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dshills/xplua/internal/fault"
	"github.com/dshills/xplua/internal/handle"
	plua "github.com/dshills/xplua/internal/plugin/lua"
	"github.com/dshills/xplua/internal/xplm"
)

// Plugins implements the XPLMPlugin module.
type Plugins struct {
	sdk       xplm.Plugins
	opts      Options
	state     *plua.State
	callbacks *handle.Registry[registration]
}

// NewPlugins creates the XPLMPlugin module over sdk.
func NewPlugins(sdk xplm.Plugins, opts Options) *Plugins {
	return &Plugins{
		sdk:       sdk,
		opts:      opts.withDefaults(PluginModule),
		callbacks: handle.NewRegistry[registration](handle.KindFeature),
	}
}

// Name implements runtime.Module.
func (p *Plugins) Name() string {
	return PluginModule
}

// Register implements runtime.Module.
func (p *Plugins) Register(state *plua.State) (*lua.LTable, error) {
	p.state = state
	return newModule(state.LuaState(), map[string]lua.LGFunction{
		"XPLMGetMyID":               p.getMyID,
		"XPLMCountPlugins":          p.countPlugins,
		"XPLMGetNthPlugin":          p.getNthPlugin,
		"XPLMFindPluginByPath":      p.findPluginByPath,
		"XPLMFindPluginBySignature": p.findPluginBySignature,
		"XPLMGetPluginInfo":         p.getPluginInfo,
		"XPLMIsPluginEnabled":       p.isPluginEnabled,
		"XPLMEnablePlugin":          p.enablePlugin,
		"XPLMDisablePlugin":         p.disablePlugin,
		"XPLMReloadPlugins":         p.reloadPlugins,
		"XPLMSendMessageToPlugin":   p.sendMessageToPlugin,
		"XPLMHasFeature":            p.hasFeature,
		"XPLMIsFeatureEnabled":      p.isFeatureEnabled,
		"XPLMEnableFeature":         p.enableFeature,
		"XPLMEnumerateFeatures":     p.enumerateFeatures,
	}, map[string]int{
		"XPLM_NO_PLUGIN_ID":               int(xplm.NoPluginID),
		"XPLM_MSG_PLANE_CRASHED":          xplm.MsgPlaneCrashed,
		"XPLM_MSG_PLANE_LOADED":           xplm.MsgPlaneLoaded,
		"XPLM_MSG_AIRPORT_LOADED":         xplm.MsgAirportLoaded,
		"XPLM_MSG_SCENERY_LOADED":         xplm.MsgSceneryLoaded,
		"XPLM_MSG_AIRPLANE_COUNT_CHANGED": xplm.MsgAirplaneCountChanged,
		"XPLM_MSG_PLANE_UNLOADED":         xplm.MsgPlaneUnloaded,
		"XPLM_MSG_WILL_WRITE_PREFS":       xplm.MsgWillWritePrefs,
		"XPLM_MSG_LIVERY_LOADED":          xplm.MsgLiveryLoaded,
		"XPLM_MSG_ENTERED_VR":             xplm.MsgEnteredVR,
		"XPLM_MSG_EXITING_VR":             xplm.MsgExitingVR,
		"XPLM_MSG_RELEASE_PLANES":         xplm.MsgReleasePlanes,
	}), nil
}

// Cleanup implements runtime.Module.
func (p *Plugins) Cleanup() error {
	p.callbacks.Clear()
	return nil
}

// Registrations returns the number of live enumerator registrations.
func (p *Plugins) Registrations() int {
	return p.callbacks.Len()
}

func pushID(L *lua.LState, id xplm.PluginID) int {
	L.Push(lua.LNumber(id))
	return 1
}

// XPLMGetMyID() -> id
func (p *Plugins) getMyID(L *lua.LState) int {
	return pushID(L, p.sdk.GetMyID())
}

// XPLMCountPlugins() -> n
func (p *Plugins) countPlugins(L *lua.LState) int {
	L.Push(lua.LNumber(p.sdk.CountPlugins()))
	return 1
}

// XPLMGetNthPlugin(index) -> id
func (p *Plugins) getNthPlugin(L *lua.LState) int {
	return pushID(L, p.sdk.GetNthPlugin(L.CheckInt(1)))
}

// XPLMFindPluginByPath(path) -> id
func (p *Plugins) findPluginByPath(L *lua.LState) int {
	return pushID(L, p.sdk.FindPluginByPath(L.CheckString(1)))
}

// XPLMFindPluginBySignature(signature) -> id
func (p *Plugins) findPluginBySignature(L *lua.LState) int {
	return pushID(L, p.sdk.FindPluginBySignature(L.CheckString(1)))
}

// XPLMGetPluginInfo(id) -> {name, filePath, signature, description}
func (p *Plugins) getPluginInfo(L *lua.LState) int {
	info := p.sdk.GetPluginInfo(xplm.PluginID(L.CheckInt(1)))
	tbl := L.CreateTable(0, 4)
	tbl.RawSetString("name", lua.LString(info.Name))
	tbl.RawSetString("filePath", lua.LString(info.FilePath))
	tbl.RawSetString("signature", lua.LString(info.Signature))
	tbl.RawSetString("description", lua.LString(info.Description))
	L.Push(tbl)
	return 1
}

// XPLMIsPluginEnabled(id) -> 0|1
func (p *Plugins) isPluginEnabled(L *lua.LState) int {
	L.Push(boolNumber(p.sdk.IsPluginEnabled(xplm.PluginID(L.CheckInt(1)))))
	return 1
}

// XPLMEnablePlugin(id) -> 0|1
func (p *Plugins) enablePlugin(L *lua.LState) int {
	L.Push(boolNumber(p.sdk.EnablePlugin(xplm.PluginID(L.CheckInt(1)))))
	return 1
}

// XPLMDisablePlugin(id)
func (p *Plugins) disablePlugin(L *lua.LState) int {
	p.sdk.DisablePlugin(xplm.PluginID(L.CheckInt(1)))
	return 0
}

// XPLMReloadPlugins()
func (p *Plugins) reloadPlugins(L *lua.LState) int {
	p.opts.Logger.Info("host plugin reload requested")
	p.sdk.ReloadPlugins()
	return 0
}

// XPLMSendMessageToPlugin(id, message[, param]). The param may be nil, a
// number (sent as an int) or a string; anything else drops the message.
func (p *Plugins) sendMessageToPlugin(L *lua.LState) int {
	id := xplm.PluginID(L.CheckInt(1))
	msg := L.CheckInt(2)

	var param any
	switch v := L.Get(3).(type) {
	case *lua.LNilType:
	case lua.LNumber:
		param = int(v)
	case lua.LString:
		param = string(v)
	default:
		p.opts.Logger.Warn("unsupported message parameter, message not sent",
			zap.Int("plugin", int(id)), zap.Int("message", msg),
			zap.String("type", v.Type().String()))
		return 0
	}
	p.sdk.SendMessageToPlugin(id, msg, param)
	return 0
}

// XPLMHasFeature(name) -> 0|1
func (p *Plugins) hasFeature(L *lua.LState) int {
	L.Push(boolNumber(p.sdk.HasFeature(L.CheckString(1))))
	return 1
}

// XPLMIsFeatureEnabled(name) -> 0|1
func (p *Plugins) isFeatureEnabled(L *lua.LState) int {
	L.Push(boolNumber(p.sdk.IsFeatureEnabled(L.CheckString(1))))
	return 1
}

// XPLMEnableFeature(name, enable). The bridge depends on the native path
// and widget window features, so guests may not turn them off.
func (p *Plugins) enableFeature(L *lua.LState) int {
	feature := L.CheckString(1)
	enable := truthy(L, 2)
	if !enable && (feature == xplm.FeatureNativePaths || feature == xplm.FeatureNativeWidgetWindows) {
		L.RaiseError("feature %s cannot be disabled", feature)
		return 0
	}
	p.sdk.EnableFeature(feature, enable)
	return 0
}

// XPLMEnumerateFeatures(fn[, refcon]) calls fn(name, refcon) once per
// feature the host knows.
func (p *Plugins) enumerateFeatures(L *lua.LState) int {
	fn := L.CheckAny(1)
	if !p.state.Callable(fn) {
		L.ArgError(1, "function expected")
		return 0
	}
	h := p.callbacks.Register(registration{owner: p.state.Owner(), fn: fn, refcon: L.Get(2)})
	p.sdk.EnumerateFeatures(p.enumerate, xplm.Refcon(h))
	return 0
}

// enumerate is the native feature enumerator callback.
func (p *Plugins) enumerate(feature string, refcon xplm.Refcon) {
	h := handle.Handle(refcon)
	rec, err := p.callbacks.Resolve(h)
	if err != nil {
		p.opts.Logger.Warn("couldn't find feature enumerator callback",
			zap.Stringer("kind", p.callbacks.Kind()), zap.Uint64("handle", uint64(h)), zap.Error(err))
		return
	}
	err = fault.Guard(func() error {
		return p.state.WithOwner(rec.owner, func() error {
			_, callErr := p.state.Call(rec.fn, lua.LString(feature), rec.refcon)
			return callErr
		})
	})
	if err != nil {
		p.opts.Faults.Inc()
		p.opts.Logger.Error("error during feature enumerator callback",
			zap.Stringer("kind", p.callbacks.Kind()),
			zap.Uint64("handle", uint64(h)),
			zap.String("feature", feature),
			zap.Error(err))
	}
}
