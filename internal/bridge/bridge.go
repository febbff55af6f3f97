// Package bridge is the host-facing side of xplua: the native plugin entry
// points, the three script commands and the shutdown summary.
//
// Every method must be called from the host thread.
package bridge

import (
	"fmt"
	"io"
	"regexp"

	"go.uber.org/zap"

	"github.com/dshills/xplua/internal/builtin"
	"github.com/dshills/xplua/internal/config"
	"github.com/dshills/xplua/internal/fault"
	"github.com/dshills/xplua/internal/logging"
	"github.com/dshills/xplua/internal/plugin"
	"github.com/dshills/xplua/internal/runtime"
	"github.com/dshills/xplua/internal/watch"
	"github.com/dshills/xplua/internal/xplm"
)

// Version is the bridge version reported in the banner and to guests.
const Version = "1.0.0"

// Identity reported to the host.
const (
	Name        = "XPLua"
	Signature   = "dshills.xplua"
	Description = "X-Plane interface for Lua"
)

// Host commands.
const (
	CommandDisable = "XPLua/disableScripts"
	CommandEnable  = "XPLua/enableScripts"
	CommandReload  = "XPLua/reloadScripts"
)

var nativeFeatures = []string{xplm.FeatureNativePaths, xplm.FeatureNativeWidgetWindows}

type command struct {
	name        string
	description string
	run         func()
	ref         xplm.CommandRef
}

// Bridge connects the host to the guest modules.
type Bridge struct {
	sdk    xplm.SDK
	cfg    config.Config
	logger *zap.Logger
	output io.Writer
	stream *logging.Stream
	faults *fault.Counter

	runtime    *runtime.Host
	controller *plugin.Controller
	commands   []*command
	watcher    *watch.Watcher
	started    bool
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger instead of opening the configured log file.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithOutput sets where guest output goes. It defaults to the log stream.
func WithOutput(w io.Writer) Option {
	return func(b *Bridge) {
		b.output = w
	}
}

// New wires a bridge over sdk. Unless WithLogger is given it opens the log
// stream described by cfg.
func New(sdk xplm.SDK, cfg config.Config, opts ...Option) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &Bridge{sdk: sdk, cfg: cfg, faults: &fault.Counter{}}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.stream = logging.Open(logging.Options{
			Path:     cfg.LogFile,
			Preserve: cfg.PreserveLog,
			Level:    cfg.Level(),
			Name:     "xplua",
		})
		b.logger = b.stream.Logger()
	}
	if b.output == nil {
		if b.stream != nil {
			b.output = b.stream
		} else {
			b.output = io.Discard
		}
	}

	b.runtime = runtime.NewHost(runtime.Config{
		Libraries:     cfg.Libraries(),
		SearchPaths:   []string{cfg.InternalPluginsPath, cfg.PluginsPath},
		CallStackSize: cfg.CallStackSize,
	}, runtime.WithLogger(b.logger.Named("runtime")), runtime.WithFaults(b.faults))

	b.controller = plugin.NewController(b.runtime, plugin.ControllerConfig{
		Sources: []plugin.Source{
			{Dir: cfg.InternalPluginsPath, Pattern: regexp.MustCompile(cfg.InternalPluginPattern)},
			{Dir: cfg.PluginsPath, Pattern: regexp.MustCompile(cfg.PluginPattern)},
		},
		EntryName: cfg.EntryName,
		Logger:    b.logger.Named("plugins"),
		Faults:    b.faults,
	})

	bopts := builtin.Options{Logger: b.logger.Named("builtin"), Faults: b.faults}
	for _, m := range []runtime.Module{
		builtin.NewCamera(sdk, bopts),
		builtin.NewPlugins(sdk, bopts),
		builtin.NewUIGraphics(sdk, bopts),
		builtin.NewLog(b.output, bopts),
		builtin.NewXPLua(builtin.Info{
			Version:             Version,
			PluginsPath:         cfg.PluginsPath,
			InternalPluginsPath: cfg.InternalPluginsPath,
			SessionID:           b.controller.SessionID,
		}),
	} {
		if err := b.runtime.Register(m); err != nil {
			return nil, err
		}
	}

	b.commands = []*command{
		{name: CommandDisable, description: "Disable Lua scripts", run: b.controller.Disable},
		{name: CommandEnable, description: "Enable Lua scripts", run: b.controller.Enable},
		{name: CommandReload, description: "Reload Lua scripts", run: b.reload},
	}
	return b, nil
}

// Controller returns the lifecycle controller.
func (b *Bridge) Controller() *plugin.Controller {
	return b.controller
}

// Faults returns the number of contained faults so far.
func (b *Bridge) Faults() int {
	return b.faults.Count()
}

// XPluginStart starts the bridge: native features, host commands, the
// runtime and every module. A runtime bootstrap failure is returned and
// leaves nothing registered with the host.
func (b *Bridge) XPluginStart() (plugin.Identity, error) {
	b.logger.Info(fmt.Sprintf("XPLua version %s started", Version))

	for _, f := range nativeFeatures {
		if !b.sdk.HasFeature(f) {
			b.logger.Warn("host does not support feature", zap.String("feature", f))
			continue
		}
		b.sdk.EnableFeature(f, true)
	}

	for _, c := range b.commands {
		c.ref = b.sdk.CreateCommand(c.name, c.description)
		b.sdk.RegisterCommandHandler(c.ref, b.handleCommand, true, 0)
	}

	if err := b.controller.Start(); err != nil {
		b.unregisterCommands()
		b.logger.Error("XPLua failed to start", zap.Error(err))
		return plugin.Identity{}, err
	}
	b.started = true

	if b.cfg.AutoReload {
		b.startWatcher()
	}

	return plugin.Identity{Name: Name, Signature: Signature, Description: Description}, nil
}

func (b *Bridge) startWatcher() {
	w, err := watch.New([]watch.Target{
		{Dir: b.cfg.InternalPluginsPath, Pattern: regexp.MustCompile(b.cfg.InternalPluginPattern)},
		{Dir: b.cfg.PluginsPath, Pattern: regexp.MustCompile(b.cfg.PluginPattern)},
	}, watch.WithDebounce(b.cfg.ReloadDebounce.Duration()), watch.WithLogger(b.logger.Named("watch")))
	if err != nil {
		b.logger.Warn("auto reload unavailable", zap.Error(err))
		return
	}
	b.watcher = w
}

// XPluginStop stops every module, tears the runtime down and writes the
// shutdown summary.
func (b *Bridge) XPluginStop() {
	if b.watcher != nil {
		if err := b.watcher.Close(); err != nil {
			b.logger.Warn("closing watcher", zap.Error(err))
		}
		b.watcher = nil
	}
	b.controller.Stop()
	if b.started {
		b.unregisterCommands()
		b.started = false
	}

	if n := b.faults.Count(); n > 0 {
		b.logger.Error("total errors encountered", zap.Int("errors", n))
	}
	b.logger.Info("XPLua stopped")

	if b.stream != nil {
		_ = b.stream.Close()
	}
}

// XPluginEnable forwards the host's enable to every module and always
// accepts.
func (b *Bridge) XPluginEnable() int {
	b.controller.EnableModules()
	return 1
}

// XPluginDisable forwards the host's disable to every module.
func (b *Bridge) XPluginDisable() {
	b.controller.DisableModules()
}

// XPluginReceiveMessage forwards an inter-plugin message to every module.
func (b *Bridge) XPluginReceiveMessage(from xplm.PluginID, message int, param any) {
	b.controller.ReceiveMessage(int(from), message, param)
}

// FlightLoop runs once per host frame. It performs a reload requested by
// the file watcher.
func (b *Bridge) FlightLoop() {
	if b.watcher == nil {
		return
	}
	files := b.watcher.Pending()
	if files == nil || !b.controller.State().IsRunning() {
		return
	}
	b.logger.Info("module files changed", zap.Strings("files", files))
	b.reload()
}

func (b *Bridge) reload() {
	if err := b.controller.Reload(); err != nil {
		b.logger.Error("reload failed", zap.Error(err))
	}
}

// handleCommand acts on the begin phase of the script commands. It always
// returns 0: the command is handled here.
func (b *Bridge) handleCommand(ref xplm.CommandRef, phase xplm.CommandPhase, _ xplm.Refcon) int {
	if phase != xplm.CommandBegin {
		return 0
	}
	for _, c := range b.commands {
		if c.ref == ref {
			b.logger.Debug("command", zap.String("name", c.name))
			c.run()
			break
		}
	}
	return 0
}

func (b *Bridge) unregisterCommands() {
	for _, c := range b.commands {
		b.sdk.UnregisterCommandHandler(c.ref, true, 0)
	}
}
