package plugin

import (
	"errors"
	"regexp"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/xplua/internal/fault"
	plua "github.com/dshills/xplua/internal/plugin/lua"
)

// Runtime brings the embedded runtime up and down around a start/stop
// cycle. Stop must be idempotent.
type Runtime interface {
	Start(sessionID string) (*plua.State, error)
	Stop() error
}

// Source is one directory scanned for modules.
type Source struct {
	Dir     string
	Pattern *regexp.Regexp
}

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	// Sources are scanned in order on every start. Internal modules come
	// first so they are loaded entirely before user modules.
	Sources []Source

	// EntryName is the global each module defines. Defaults to
	// DefaultEntryName.
	EntryName string

	Logger *zap.Logger
	Faults *fault.Counter
}

// Controller owns the module registry and drives the global lifecycle.
//
// Every method must be called from the host thread.
type Controller struct {
	runtime  Runtime
	config   ControllerConfig
	registry *Registry
	logger   *zap.Logger
	faults   *fault.Counter

	state     State
	sessionID string
}

// NewController creates a stopped controller.
func NewController(rt Runtime, config ControllerConfig) *Controller {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Faults == nil {
		config.Faults = &fault.Counter{}
	}
	if config.EntryName == "" {
		config.EntryName = DefaultEntryName
	}
	return &Controller{
		runtime:  rt,
		config:   config,
		registry: NewRegistry(),
		logger:   config.Logger,
		faults:   config.Faults,
		state:    StateStopped,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// SessionID returns the id of the current start/stop cycle, or "" when
// stopped.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// Faults returns the process-wide fault counter.
func (c *Controller) Faults() *fault.Counter {
	return c.faults
}

// Modules returns the loaded modules in broadcast order.
func (c *Controller) Modules() []Module {
	return c.registry.Snapshot()
}

// Start brings the runtime up and loads every module. On a runtime
// bootstrap failure nothing is left running and the error is returned.
// Starting twice is a no-op.
func (c *Controller) Start() error {
	if c.state.IsRunning() {
		c.logger.Debug("already started")
		return nil
	}

	sessionID := uuid.NewString()
	state, err := c.runtime.Start(sessionID)
	if err != nil {
		c.logger.Error("failed to start runtime", zap.Error(err))
		if stopErr := c.runtime.Stop(); stopErr != nil {
			c.logger.Warn("runtime teardown after failed start", zap.Error(stopErr))
		}
		return err
	}
	c.sessionID = sessionID

	loader := NewLoader(state, c.registry,
		WithEntryName(c.config.EntryName),
		WithLoaderLogger(c.logger.Named("loader")),
		WithLoaderFaults(c.faults),
	)
	for _, src := range c.config.Sources {
		n, _ := loader.Scan(src.Dir, src.Pattern)
		c.logger.Debug("scanned module directory",
			zap.String("dir", src.Dir), zap.Int("loaded", n))
	}

	c.state = StateEnabled
	c.logger.Info("started",
		zap.String("session", sessionID),
		zap.Int("modules", c.registry.Len()))
	return nil
}

// Stop calls XPluginStop on every module in insertion order, drops them
// and tears the runtime down. Stopping twice is a no-op.
func (c *Controller) Stop() {
	if !c.state.IsRunning() {
		return
	}

	c.broadcast(HookStop, func(g Guest) error { return g.Stop() })
	c.registry.Clear()

	if err := c.runtime.Stop(); err != nil {
		c.logger.Warn("runtime teardown incomplete", zap.Error(err))
	}
	c.state = StateStopped
	c.sessionID = ""
}

// Disable is the disable-all command: broadcast XPluginDisable and stop
// delivering events until Enable.
func (c *Controller) Disable() {
	if c.state != StateEnabled {
		c.logger.Info("already disabled", zap.Stringer("state", c.state))
		return
	}
	c.broadcast(HookDisable, func(g Guest) error { return g.Disable() })
	c.state = StateDisabled
	c.logger.Info("disabled scripts")
}

// Enable is the enable-all command.
func (c *Controller) Enable() {
	if c.state != StateDisabled {
		c.logger.Info("already enabled", zap.Stringer("state", c.state))
		return
	}
	c.state = StateEnabled
	c.broadcast(HookEnable, func(g Guest) error { return g.Enable() })
	c.logger.Info("enabled scripts")
}

// Reload is the reload-all command. It always rebuilds every instance and
// ends enabled unless the runtime cannot be restarted.
func (c *Controller) Reload() error {
	if c.state == StateEnabled {
		c.broadcast(HookDisable, func(g Guest) error { return g.Disable() })
	}
	c.Stop()
	c.logger.Info("reloading scripts")

	if err := c.Start(); err != nil {
		return err
	}
	c.broadcast(HookEnable, func(g Guest) error { return g.Enable() })
	return nil
}

// EnableModules broadcasts XPluginEnable without changing state. It is the
// host's enable entry point and does nothing while disabled by command.
func (c *Controller) EnableModules() {
	if c.state != StateEnabled {
		return
	}
	c.broadcast(HookEnable, func(g Guest) error { return g.Enable() })
}

// DisableModules broadcasts XPluginDisable without changing state.
func (c *Controller) DisableModules() {
	if c.state != StateEnabled {
		return
	}
	c.broadcast(HookDisable, func(g Guest) error { return g.Disable() })
}

// ReceiveMessage delivers a message to every module. Messages arriving
// while not enabled are dropped.
func (c *Controller) ReceiveMessage(from, message int, param any) {
	if c.state != StateEnabled {
		return
	}
	c.broadcast(HookReceiveMessage, func(g Guest) error {
		return g.ReceiveMessage(from, message, param)
	})
}

// broadcast calls fn for every module in insertion order. A fault is
// logged and counted and the loop goes on.
func (c *Controller) broadcast(hook string, fn func(Guest) error) {
	for _, m := range c.registry.Snapshot() {
		err := fault.Guard(func() error { return fn(m.Guest) })
		if err == nil {
			continue
		}

		var pv *ProtocolViolation
		if errors.As(err, &pv) {
			c.logger.Warn(pv.Error(), zap.String("module", m.Key.SourceFile), zap.String("hook", hook))
			continue
		}

		c.faults.Inc()
		herr := &HookError{Module: m.Key.SourceFile, Hook: hook, Err: err}
		c.logger.Error("error during hook",
			zap.String("module", m.Key.SourceFile),
			zap.String("hook", hook),
			zap.Error(herr))
	}
}
