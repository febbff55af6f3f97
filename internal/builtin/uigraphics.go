package builtin

import (
	lua "github.com/yuin/gopher-lua"

	plua "github.com/dshills/xplua/internal/plugin/lua"
	"github.com/dshills/xplua/internal/xplm"
)

var windowStyles = map[string]int{
	"xpWindow_Help":       0,
	"xpWindow_MainWindow": 1,
	"xpWindow_SubWindow":  2,
	"xpWindow_Screen":     4,
	"xpWindow_ListView":   5,
}

var elementStyles = map[string]int{
	"xpElement_TextField":                  6,
	"xpElement_CheckBox":                   9,
	"xpElement_CheckBoxLit":                10,
	"xpElement_WindowCloseBox":             14,
	"xpElement_WindowCloseBoxPressed":      15,
	"xpElement_PushButton":                 16,
	"xpElement_PushButtonLit":              17,
	"xpElement_OilPlatform":                24,
	"xpElement_OilPlatformSmall":           25,
	"xpElement_Ship":                       26,
	"xpElement_ILSGlideScope":              27,
	"xpElement_MarkerLeft":                 28,
	"xpElement_Airport":                    29,
	"xpElement_Waypoint":                   30,
	"xpElement_NDB":                        31,
	"xpElement_VOR":                        32,
	"xpElement_RadioTower":                 33,
	"xpElement_AircraftCarrier":            34,
	"xpElement_Fire":                       35,
	"xpElement_MarkerRight":                36,
	"xpElement_CustomObject":               37,
	"xpElement_CoolingTower":               38,
	"xpElement_SmokeStack":                 39,
	"xpElement_Building":                   40,
	"xpElement_PowerLine":                  41,
	"xpElement_CopyButtons":                45,
	"xpElement_CopyButtonsWithEditingGrid": 46,
	"xpElement_EditingGrid":                47,
	"xpElement_ScrollBar":                  48,
	"xpElement_VORWithCompassRose":         49,
	"xpElement_Zoomer":                     51,
	"xpElement_TextFieldMiddle":            52,
	"xpElement_LittleDownArrow":            53,
	"xpElement_LittleUpArrow":              54,
	"xpElement_WindowDragBar":              61,
	"xpElement_WindowDragBarSmooth":        62,
}

var trackStyles = map[string]int{
	"xpTrack_ScrollBar": 0,
	"xpTrack_Slider":    1,
	"xpTrack_Progress":  2,
}

// UIGraphics implements the XPUIGraphics module. Every function takes a
// fixed number of integer arguments; flags are passed as 0 or 1.
type UIGraphics struct {
	sdk  xplm.UIGraphics
	opts Options
}

// NewUIGraphics creates the XPUIGraphics module over sdk.
func NewUIGraphics(sdk xplm.UIGraphics, opts Options) *UIGraphics {
	return &UIGraphics{sdk: sdk, opts: opts.withDefaults(UIGraphicsModule)}
}

// Name implements runtime.Module.
func (u *UIGraphics) Name() string {
	return UIGraphicsModule
}

// Register implements runtime.Module.
func (u *UIGraphics) Register(state *plua.State) (*lua.LTable, error) {
	consts := make(map[string]int, len(windowStyles)+len(elementStyles)+len(trackStyles))
	for _, m := range []map[string]int{windowStyles, elementStyles, trackStyles} {
		for k, v := range m {
			consts[k] = v
		}
	}
	return newModule(state.LuaState(), map[string]lua.LGFunction{
		"XPDrawWindow":                  u.drawWindow,
		"XPGetWindowDefaultDimensions":  u.getWindowDefaultDimensions,
		"XPDrawElement":                 u.drawElement,
		"XPGetElementDefaultDimensions": u.getElementDefaultDimensions,
		"XPDrawTrack":                   u.drawTrack,
		"XPGetTrackDefaultDimensions":   u.getTrackDefaultDimensions,
		"XPGetTrackMetrics":             u.getTrackMetrics,
	}, consts), nil
}

// Cleanup implements runtime.Module.
func (u *UIGraphics) Cleanup() error {
	return nil
}

// XPDrawWindow(x1, y1, x2, y2, style)
func (u *UIGraphics) drawWindow(L *lua.LState) int {
	a := intArgs(L, "XPDrawWindow", 5)
	u.sdk.DrawWindow(a[0], a[1], a[2], a[3], a[4])
	return 0
}

// XPGetWindowDefaultDimensions(style) -> width, height
func (u *UIGraphics) getWindowDefaultDimensions(L *lua.LState) int {
	a := intArgs(L, "XPGetWindowDefaultDimensions", 1)
	w, h := u.sdk.GetWindowDefaultDimensions(a[0])
	L.Push(lua.LNumber(w))
	L.Push(lua.LNumber(h))
	return 2
}

// XPDrawElement(x1, y1, x2, y2, style, lit)
func (u *UIGraphics) drawElement(L *lua.LState) int {
	a := intArgs(L, "XPDrawElement", 6)
	u.sdk.DrawElement(a[0], a[1], a[2], a[3], a[4], a[5] != 0)
	return 0
}

// XPGetElementDefaultDimensions(style) -> width, height, canBeLit
func (u *UIGraphics) getElementDefaultDimensions(L *lua.LState) int {
	a := intArgs(L, "XPGetElementDefaultDimensions", 1)
	w, h, lit := u.sdk.GetElementDefaultDimensions(a[0])
	L.Push(lua.LNumber(w))
	L.Push(lua.LNumber(h))
	L.Push(boolNumber(lit))
	return 3
}

// XPDrawTrack(x1, y1, x2, y2, min, max, value, style, lit)
func (u *UIGraphics) drawTrack(L *lua.LState) int {
	a := intArgs(L, "XPDrawTrack", 9)
	u.sdk.DrawTrack(a[0], a[1], a[2], a[3], a[4], a[5], a[6], a[7], a[8] != 0)
	return 0
}

// XPGetTrackDefaultDimensions(style) -> width, canBeLit
func (u *UIGraphics) getTrackDefaultDimensions(L *lua.LState) int {
	a := intArgs(L, "XPGetTrackDefaultDimensions", 1)
	w, lit := u.sdk.GetTrackDefaultDimensions(a[0])
	L.Push(lua.LNumber(w))
	L.Push(boolNumber(lit))
	return 2
}

// XPGetTrackMetrics(x1, y1, x2, y2, min, max, value, style) -> metrics
func (u *UIGraphics) getTrackMetrics(L *lua.LState) int {
	a := intArgs(L, "XPGetTrackMetrics", 8)
	m := u.sdk.GetTrackMetrics(a[0], a[1], a[2], a[3], a[4], a[5], a[6], a[7])
	tbl := L.CreateTable(0, 6)
	tbl.RawSetString("isVertical", lua.LNumber(m.IsVertical))
	tbl.RawSetString("downBtnSize", lua.LNumber(m.DownBtnSize))
	tbl.RawSetString("downPageSize", lua.LNumber(m.DownPageSize))
	tbl.RawSetString("thumbSize", lua.LNumber(m.ThumbSize))
	tbl.RawSetString("upPageSize", lua.LNumber(m.UpPageSize))
	tbl.RawSetString("upBtnSize", lua.LNumber(m.UpBtnSize))
	L.Push(tbl)
	return 1
}
