package builtin

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dshills/xplua/internal/fault"
	"github.com/dshills/xplua/internal/handle"
	"github.com/dshills/xplua/internal/marshal"
	plua "github.com/dshills/xplua/internal/plugin/lua"
	"github.com/dshills/xplua/internal/xplm"
)

// Camera implements the XPLMCamera module.
type Camera struct {
	sdk       xplm.Camera
	opts      Options
	state     *plua.State
	bridge    *plua.Bridge
	callbacks *handle.Registry[registration]
}

// NewCamera creates the XPLMCamera module over sdk.
func NewCamera(sdk xplm.Camera, opts Options) *Camera {
	return &Camera{
		sdk:       sdk,
		opts:      opts.withDefaults(CameraModule),
		callbacks: handle.NewRegistry[registration](handle.KindCamera),
	}
}

// Name implements runtime.Module.
func (c *Camera) Name() string {
	return CameraModule
}

// Register implements runtime.Module.
func (c *Camera) Register(state *plua.State) (*lua.LTable, error) {
	c.state = state
	c.bridge = plua.NewBridge(state.LuaState())
	return newModule(state.LuaState(), map[string]lua.LGFunction{
		"XPLMControlCamera":           c.controlCamera,
		"XPLMDontControlCamera":       c.dontControlCamera,
		"XPLMIsCameraBeingControlled": c.isCameraBeingControlled,
		"XPLMReadCameraPosition":      c.readCameraPosition,
	}, map[string]int{
		"xplm_ControlCameraUntilViewChanges": int(xplm.ControlCameraUntilViewChanges),
		"xplm_ControlCameraForever":          int(xplm.ControlCameraForever),
	}), nil
}

// Cleanup implements runtime.Module. It drops every registration; a
// callback the host still holds resolves to nothing afterwards.
func (c *Camera) Cleanup() error {
	c.callbacks.Clear()
	return nil
}

// Registrations returns the number of live camera registrations.
func (c *Camera) Registrations() int {
	return c.callbacks.Len()
}

// XPLMControlCamera(howLong, fn, refcon)
func (c *Camera) controlCamera(L *lua.LState) int {
	howLong := L.CheckInt(1)
	fn := L.CheckAny(2)
	if !c.state.Callable(fn) {
		L.ArgError(2, "function expected")
		return 0
	}

	h := c.callbacks.Register(registration{owner: c.state.Owner(), fn: fn, refcon: L.Get(3)})
	c.opts.Logger.Debug("camera control requested",
		zap.Uint64("handle", uint64(h)), zap.Int("duration", howLong))
	c.sdk.ControlCamera(xplm.CameraControlDuration(howLong), c.control, xplm.Refcon(h))
	return 0
}

// XPLMDontControlCamera()
func (c *Camera) dontControlCamera(L *lua.LState) int {
	c.sdk.DontControlCamera()
	return 0
}

// XPLMIsCameraBeingControlled() -> isControlled, duration
func (c *Camera) isCameraBeingControlled(L *lua.LState) int {
	controlled, dur := c.sdk.IsCameraBeingControlled()
	L.Push(boolNumber(controlled))
	L.Push(lua.LNumber(dur))
	return 2
}

// XPLMReadCameraPosition([list]) appends the seven position values to list
// (a new one when omitted) and returns it.
func (c *Camera) readCameraPosition(L *lua.LState) int {
	list := L.OptTable(1, L.NewTable())
	n := list.Len()
	for i, v := range marshal.CameraPositionToGeneric(c.sdk.ReadCameraPosition()) {
		list.RawSetInt(n+i+1, lua.LNumber(v))
	}
	L.Push(list)
	return 1
}

// control is the native camera callback. pos is handed to the guest as a
// seven-number list it may edit in place; the edits are applied only if
// the whole list is still valid. The return value is the guest's result
// coerced to an int, or 0 on any fault.
func (c *Camera) control(pos *xplm.CameraPosition, isLosingControl bool, refcon xplm.Refcon) int {
	h := handle.Handle(refcon)
	rc := 0
	if err := fault.Guard(func() error {
		rc = c.dispatch(h, pos, isLosingControl)
		return nil
	}); err != nil {
		c.fault("camera control callback panicked", h, err)
		return 0
	}
	return rc
}

func (c *Camera) dispatch(h handle.Handle, pos *xplm.CameraPosition, isLosingControl bool) int {
	rec, err := c.callbacks.Resolve(h)
	if err != nil {
		c.opts.Logger.Warn("couldn't find camera control callback",
			zap.Stringer("kind", c.callbacks.Kind()), zap.Uint64("handle", uint64(h)), zap.Error(err))
		return 0
	}

	var list *lua.LTable
	var posArg lua.LValue = lua.LNil
	if !isLosingControl && pos != nil {
		list = c.bridge.FloatList(marshal.CameraPositionToGeneric(*pos))
		posArg = list
	}

	var res []lua.LValue
	err = c.state.WithOwner(rec.owner, func() error {
		var callErr error
		res, callErr = c.state.Call(rec.fn, posArg, boolNumber(isLosingControl), rec.refcon)
		return callErr
	})
	if err != nil {
		c.fault("error during camera control callback", h, err)
		return 0
	}

	if list != nil {
		if err := c.apply(pos, list); err != nil {
			c.fault("camera position not applied", h, err)
			return 0
		}
	}

	if isLosingControl {
		return 0
	}
	var ret any
	if len(res) > 0 {
		ret = c.bridge.ToGo(res[0])
	}
	code, err := marshal.Int(ret)
	if err != nil {
		c.fault("camera control callback did not return an integer", h, err)
		return 0
	}
	return code
}

func (c *Camera) apply(pos *xplm.CameraPosition, list *lua.LTable) error {
	vals, ok := c.bridge.Sequence(list)
	if !ok {
		return fmt.Errorf("%w: position is not a list", marshal.ErrArityOrConversion)
	}
	return marshal.ApplyCameraPosition(pos, vals)
}

func (c *Camera) fault(msg string, h handle.Handle, err error) {
	c.opts.Faults.Inc()
	c.opts.Logger.Error(msg,
		zap.Stringer("kind", c.callbacks.Kind()),
		zap.Uint64("handle", uint64(h)),
		zap.Error(err))
}
