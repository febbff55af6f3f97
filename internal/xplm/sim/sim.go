// Package sim provides an in-process host that implements xplm.SDK.
//
// The simulated host is single threaded like the real one: every callback it
// delivers runs synchronously on the goroutine that drives it. Tests and the
// CLI use it to fire camera frames, run commands and inspect what guests did.
package sim

import (
	"fmt"
	"sort"

	"github.com/dshills/xplua/internal/xplm"
)

// Message is an inter-plugin message recorded by the host.
type Message struct {
	To      xplm.PluginID
	Message int
	Param   any
}

type camera struct {
	fn       xplm.CameraControlFunc
	refcon   xplm.Refcon
	duration xplm.CameraControlDuration
}

type command struct {
	name        string
	description string
	handlers    []commandHandler
}

type commandHandler struct {
	fn     xplm.CommandHandlerFunc
	before bool
	refcon xplm.Refcon
}

type plugin struct {
	info    xplm.PluginInfo
	enabled bool
}

// Host is a simulated host.
type Host struct {
	position   xplm.CameraPosition
	controller *camera

	myID    xplm.PluginID
	plugins []plugin

	features map[string]bool

	commands []*command

	// Messages records every message sent through SendMessageToPlugin.
	Messages []Message

	// Draws records every UI drawing call.
	Draws []string

	reloads int
}

// Option configures a Host.
type Option func(*Host)

// WithPlugin adds a host plugin. The first plugin added is the bridge itself.
func WithPlugin(info xplm.PluginInfo, enabled bool) Option {
	return func(h *Host) {
		h.plugins = append(h.plugins, plugin{info: info, enabled: enabled})
	}
}

// WithFeature declares a host feature.
func WithFeature(name string, enabled bool) Option {
	return func(h *Host) {
		h.features[name] = enabled
	}
}

// WithCameraPosition sets the initial camera position.
func WithCameraPosition(pos xplm.CameraPosition) Option {
	return func(h *Host) {
		h.position = pos
	}
}

// New creates a simulated host. Without options it knows one plugin (the
// bridge) and the two native features, both disabled.
func New(opts ...Option) *Host {
	h := &Host{
		features: map[string]bool{
			xplm.FeatureNativePaths:         false,
			xplm.FeatureNativeWidgetWindows: false,
		},
		position: xplm.CameraPosition{Zoom: 1},
	}
	for _, opt := range opts {
		opt(h)
	}
	if len(h.plugins) == 0 {
		h.plugins = append(h.plugins, plugin{
			info: xplm.PluginInfo{
				Name:      "XPLua",
				FilePath:  "Resources/plugins/XPLua/lin_x64/XPLua.xpl",
				Signature: "dshills.xplua",
			},
			enabled: true,
		})
	}
	return h
}

var _ xplm.SDK = (*Host)(nil)

// ControlCamera installs a camera controller, replacing any previous one.
func (h *Host) ControlCamera(howLong xplm.CameraControlDuration, fn xplm.CameraControlFunc, refcon xplm.Refcon) {
	h.controller = &camera{fn: fn, refcon: refcon, duration: howLong}
}

// DontControlCamera removes the camera controller without notifying it.
func (h *Host) DontControlCamera() {
	h.controller = nil
}

// IsCameraBeingControlled reports whether a controller is installed.
func (h *Host) IsCameraBeingControlled() (bool, xplm.CameraControlDuration) {
	if h.controller == nil {
		return false, 0
	}
	return true, h.controller.duration
}

// ReadCameraPosition returns the current camera position.
func (h *Host) ReadCameraPosition() xplm.CameraPosition {
	return h.position
}

// CameraFrame runs one camera frame. The controller may rewrite the
// position; a zero return releases control. It reports the controller's
// return code and whether a controller was installed.
func (h *Host) CameraFrame() (int, bool) {
	if h.controller == nil {
		return 0, false
	}
	c := h.controller
	pos := h.position
	rc := c.fn(&pos, false, c.refcon)
	h.position = pos
	if rc == 0 {
		h.controller = nil
	}
	return rc, true
}

// ChangeView simulates the user switching views. A controller installed
// until the view changes is told it is losing control and removed.
func (h *Host) ChangeView() {
	if h.controller == nil || h.controller.duration != xplm.ControlCameraUntilViewChanges {
		return
	}
	c := h.controller
	h.controller = nil
	c.fn(nil, true, c.refcon)
}

// GetMyID returns the bridge's plugin ID.
func (h *Host) GetMyID() xplm.PluginID {
	return h.myID
}

// CountPlugins returns the number of host plugins.
func (h *Host) CountPlugins() int {
	return len(h.plugins)
}

// GetNthPlugin returns the plugin at index.
func (h *Host) GetNthPlugin(index int) xplm.PluginID {
	if index < 0 || index >= len(h.plugins) {
		return xplm.NoPluginID
	}
	return xplm.PluginID(index)
}

// FindPluginByPath looks a plugin up by file path.
func (h *Host) FindPluginByPath(path string) xplm.PluginID {
	for i, p := range h.plugins {
		if p.info.FilePath == path {
			return xplm.PluginID(i)
		}
	}
	return xplm.NoPluginID
}

// FindPluginBySignature looks a plugin up by signature.
func (h *Host) FindPluginBySignature(signature string) xplm.PluginID {
	for i, p := range h.plugins {
		if p.info.Signature == signature {
			return xplm.PluginID(i)
		}
	}
	return xplm.NoPluginID
}

// GetPluginInfo returns plugin information, or the zero value for unknown IDs.
func (h *Host) GetPluginInfo(id xplm.PluginID) xplm.PluginInfo {
	if p := h.plugin(id); p != nil {
		return p.info
	}
	return xplm.PluginInfo{}
}

// IsPluginEnabled reports whether the plugin is enabled.
func (h *Host) IsPluginEnabled(id xplm.PluginID) bool {
	if p := h.plugin(id); p != nil {
		return p.enabled
	}
	return false
}

// EnablePlugin enables a plugin.
func (h *Host) EnablePlugin(id xplm.PluginID) bool {
	p := h.plugin(id)
	if p == nil {
		return false
	}
	p.enabled = true
	return true
}

// DisablePlugin disables a plugin.
func (h *Host) DisablePlugin(id xplm.PluginID) {
	if p := h.plugin(id); p != nil {
		p.enabled = false
	}
}

// ReloadPlugins counts a host-wide plugin reload request.
func (h *Host) ReloadPlugins() {
	h.reloads++
}

// Reloads returns the number of ReloadPlugins calls.
func (h *Host) Reloads() int {
	return h.reloads
}

// SendMessageToPlugin records the message.
func (h *Host) SendMessageToPlugin(id xplm.PluginID, message int, param any) {
	h.Messages = append(h.Messages, Message{To: id, Message: message, Param: param})
}

func (h *Host) plugin(id xplm.PluginID) *plugin {
	if id < 0 || int(id) >= len(h.plugins) {
		return nil
	}
	return &h.plugins[id]
}

// HasFeature reports whether the host knows the feature.
func (h *Host) HasFeature(feature string) bool {
	_, ok := h.features[feature]
	return ok
}

// IsFeatureEnabled reports whether the feature is enabled.
func (h *Host) IsFeatureEnabled(feature string) bool {
	return h.features[feature]
}

// EnableFeature toggles a known feature. Unknown features are ignored.
func (h *Host) EnableFeature(feature string, enable bool) {
	if _, ok := h.features[feature]; ok {
		h.features[feature] = enable
	}
}

// EnumerateFeatures calls fn once per feature in name order.
func (h *Host) EnumerateFeatures(fn xplm.FeatureEnumeratorFunc, refcon xplm.Refcon) {
	names := make([]string, 0, len(h.features))
	for name := range h.features {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fn(name, refcon)
	}
}

// CreateCommand creates a command or returns the existing one with that name.
func (h *Host) CreateCommand(name, description string) xplm.CommandRef {
	if ref, ok := h.FindCommand(name); ok {
		return ref
	}
	h.commands = append(h.commands, &command{name: name, description: description})
	return xplm.CommandRef(len(h.commands) - 1)
}

// FindCommand returns the command with the given name.
func (h *Host) FindCommand(name string) (xplm.CommandRef, bool) {
	for i, c := range h.commands {
		if c.name == name {
			return xplm.CommandRef(i), true
		}
	}
	return 0, false
}

// RegisterCommandHandler attaches a handler to a command.
func (h *Host) RegisterCommandHandler(cmd xplm.CommandRef, fn xplm.CommandHandlerFunc, before bool, refcon xplm.Refcon) {
	c := h.command(cmd)
	if c == nil {
		return
	}
	c.handlers = append(c.handlers, commandHandler{fn: fn, before: before, refcon: refcon})
}

// UnregisterCommandHandler detaches the handler registered with the same
// placement and refcon.
func (h *Host) UnregisterCommandHandler(cmd xplm.CommandRef, before bool, refcon xplm.Refcon) {
	c := h.command(cmd)
	if c == nil {
		return
	}
	for i, hd := range c.handlers {
		if hd.before == before && hd.refcon == refcon {
			c.handlers = append(c.handlers[:i], c.handlers[i+1:]...)
			return
		}
	}
}

// HandlerCount returns the number of handlers attached to the named command.
func (h *Host) HandlerCount(name string) int {
	ref, ok := h.FindCommand(name)
	if !ok {
		return 0
	}
	return len(h.commands[ref].handlers)
}

// RunCommand runs the named command once: a begin phase followed by an end
// phase, delivered to every handler in registration order.
func (h *Host) RunCommand(name string) error {
	ref, ok := h.FindCommand(name)
	if !ok {
		return fmt.Errorf("command %q not found", name)
	}
	for _, phase := range []xplm.CommandPhase{xplm.CommandBegin, xplm.CommandEnd} {
		handlers := append([]commandHandler(nil), h.commands[ref].handlers...)
		for _, hd := range handlers {
			if hd.fn(ref, phase, hd.refcon) == 0 {
				break
			}
		}
	}
	return nil
}

func (h *Host) command(ref xplm.CommandRef) *command {
	if ref < 0 || int(ref) >= len(h.commands) {
		return nil
	}
	return h.commands[ref]
}

// DrawWindow records a window draw.
func (h *Host) DrawWindow(x1, y1, x2, y2, style int) {
	h.Draws = append(h.Draws, fmt.Sprintf("window(%d,%d,%d,%d,%d)", x1, y1, x2, y2, style))
}

// GetWindowDefaultDimensions returns fixed dimensions derived from style.
func (h *Host) GetWindowDefaultDimensions(style int) (int, int) {
	return 100 + style, 50 + style
}

// DrawElement records an element draw.
func (h *Host) DrawElement(x1, y1, x2, y2, style int, lit bool) {
	h.Draws = append(h.Draws, fmt.Sprintf("element(%d,%d,%d,%d,%d,%t)", x1, y1, x2, y2, style, lit))
}

// GetElementDefaultDimensions returns fixed dimensions derived from style.
func (h *Host) GetElementDefaultDimensions(style int) (int, int, bool) {
	return 16 + style, 16 + style, style%2 == 0
}

// DrawTrack records a track draw.
func (h *Host) DrawTrack(x1, y1, x2, y2, min, max, value, style int, lit bool) {
	h.Draws = append(h.Draws, fmt.Sprintf("track(%d,%d,%d,%d,%d,%d,%d,%d,%t)", x1, y1, x2, y2, min, max, value, style, lit))
}

// GetTrackDefaultDimensions returns fixed dimensions derived from style.
func (h *Host) GetTrackDefaultDimensions(style int) (int, bool) {
	return 12 + style, true
}

// GetTrackMetrics computes simple metrics for a horizontal or vertical track.
func (h *Host) GetTrackMetrics(x1, y1, x2, y2, min, max, value, style int) xplm.TrackMetrics {
	vertical := 0
	length := x2 - x1
	if y2-y1 > length {
		vertical = 1
		length = y2 - y1
	}
	thumb := 10
	span := max - min
	down := 0
	if span > 0 {
		down = (length - thumb) * (value - min) / span
	}
	return xplm.TrackMetrics{
		IsVertical:   vertical,
		DownBtnSize:  style,
		DownPageSize: down,
		ThumbSize:    thumb,
		UpPageSize:   length - thumb - down,
		UpBtnSize:    style,
	}
}
