// Package xplm describes the host SDK boundary.
//
// The host owns every event source and calls into the bridge synchronously
// from a single thread. The interfaces here are the subset of the host SDK the
// bridge and its builtin modules use; internal/xplm/sim provides an in-process
// implementation for tests and the CLI.
package xplm

// Refcon is the single pointer-sized value a native callback carries.
type Refcon uintptr

// PluginID identifies a plugin loaded by the host.
type PluginID int

// NoPluginID is returned by lookups that find nothing.
const NoPluginID PluginID = -1

// CameraPosition is the native camera pose: position, orientation and zoom.
type CameraPosition struct {
	X       float32
	Y       float32
	Z       float32
	Pitch   float32
	Heading float32
	Roll    float32
	Zoom    float32
}

// CameraControlDuration says how long a camera controller keeps control.
type CameraControlDuration int

// Camera control durations.
const (
	ControlCameraUntilViewChanges CameraControlDuration = 1
	ControlCameraForever          CameraControlDuration = 2
)

// CameraControlFunc is the native camera callback. pos is nil when the
// controller is losing control. A non-zero return keeps control.
type CameraControlFunc func(pos *CameraPosition, isLosingControl bool, refcon Refcon) int

// FeatureEnumeratorFunc receives one feature name per call.
type FeatureEnumeratorFunc func(feature string, refcon Refcon)

// CommandRef identifies a host command.
type CommandRef int

// CommandPhase is the phase of a command invocation.
type CommandPhase int

// Command phases.
const (
	CommandBegin CommandPhase = iota
	CommandContinue
	CommandEnd
)

// CommandHandlerFunc handles a host command. Returning 0 stops further
// processing of the command by the host.
type CommandHandlerFunc func(cmd CommandRef, phase CommandPhase, refcon Refcon) int

// PluginInfo describes a host plugin.
type PluginInfo struct {
	Name        string
	FilePath    string
	Signature   string
	Description string
}

// Inter-plugin message IDs sent by the host.
const (
	MsgPlaneCrashed         = 101
	MsgPlaneLoaded          = 102
	MsgAirportLoaded        = 103
	MsgSceneryLoaded        = 104
	MsgAirplaneCountChanged = 105
	MsgPlaneUnloaded        = 106
	MsgWillWritePrefs       = 107
	MsgLiveryLoaded         = 108
	MsgEnteredVR            = 109
	MsgExitingVR            = 110
	MsgReleasePlanes        = 111
)

// Host features the bridge turns on at start and guests may not turn off.
const (
	FeatureNativePaths         = "XPLM_USE_NATIVE_PATHS"
	FeatureNativeWidgetWindows = "XPLM_USE_NATIVE_WIDGET_WINDOWS"
)

// TrackMetrics describes the geometry of a scroll bar or slider.
type TrackMetrics struct {
	IsVertical   int
	DownBtnSize  int
	DownPageSize int
	ThumbSize    int
	UpPageSize   int
	UpBtnSize    int
}

// Camera is the camera control surface.
type Camera interface {
	ControlCamera(howLong CameraControlDuration, fn CameraControlFunc, refcon Refcon)
	DontControlCamera()
	IsCameraBeingControlled() (bool, CameraControlDuration)
	ReadCameraPosition() CameraPosition
}

// Plugins is the plugin, feature and messaging surface.
type Plugins interface {
	GetMyID() PluginID
	CountPlugins() int
	GetNthPlugin(index int) PluginID
	FindPluginByPath(path string) PluginID
	FindPluginBySignature(signature string) PluginID
	GetPluginInfo(id PluginID) PluginInfo
	IsPluginEnabled(id PluginID) bool
	EnablePlugin(id PluginID) bool
	DisablePlugin(id PluginID)
	ReloadPlugins()
	SendMessageToPlugin(id PluginID, message int, param any)

	HasFeature(feature string) bool
	IsFeatureEnabled(feature string) bool
	EnableFeature(feature string, enable bool)
	EnumerateFeatures(fn FeatureEnumeratorFunc, refcon Refcon)
}

// Commands is the command surface.
type Commands interface {
	CreateCommand(name, description string) CommandRef
	RegisterCommandHandler(cmd CommandRef, fn CommandHandlerFunc, before bool, refcon Refcon)
	UnregisterCommandHandler(cmd CommandRef, before bool, refcon Refcon)
}

// UIGraphics is the widget drawing surface.
type UIGraphics interface {
	DrawWindow(x1, y1, x2, y2, style int)
	GetWindowDefaultDimensions(style int) (width, height int)
	DrawElement(x1, y1, x2, y2, style int, lit bool)
	GetElementDefaultDimensions(style int) (width, height int, canBeLit bool)
	DrawTrack(x1, y1, x2, y2, min, max, value, style int, lit bool)
	GetTrackDefaultDimensions(style int) (width int, canBeLit bool)
	GetTrackMetrics(x1, y1, x2, y2, min, max, value, style int) TrackMetrics
}

// SDK is the full host surface used by the bridge.
type SDK interface {
	Camera
	Plugins
	Commands
	UIGraphics
}
