// Package config loads the bridge configuration.
//
// Values are layered: Default, then an optional TOML file, then XPLUA_*
// environment variables. Validate runs last.
//
//	log_file = "XPLua.log"
//	plugins_path = "Resources/plugins/LuaPlugins"
//	plugin_pattern = '^PI_.*\.lua$'
//	auto_reload = true
//	reload_debounce = "500ms"
package config

import (
	"fmt"
	"regexp"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	"github.com/dshills/xplua/internal/runtime"
)

// EnvPrefix prefixes every environment variable the bridge reads.
const EnvPrefix = "XPLUA_"

// Duration is a time.Duration read from text such as "250ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Duration returns d as a time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the bridge configuration.
type Config struct {
	// LogFile is the log stream path.
	LogFile string `toml:"log_file" env:"LOG"`

	// PreserveLog appends to LogFile instead of truncating it. The
	// environment sets it through XPLUA_PRESERVE with any value.
	PreserveLog bool `toml:"preserve_log"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level" env:"LOG_LEVEL"`

	PluginsPath           string `toml:"plugins_path" env:"PLUGINS_PATH"`
	InternalPluginsPath   string `toml:"internal_plugins_path" env:"INTERNAL_PLUGINS_PATH"`
	PluginPattern         string `toml:"plugin_pattern" env:"PLUGIN_PATTERN"`
	InternalPluginPattern string `toml:"internal_plugin_pattern" env:"INTERNAL_PLUGIN_PATTERN"`

	// EntryName is the global each module defines as its entry construct.
	EntryName string `toml:"entry_name" env:"ENTRY_NAME"`

	// RuntimeLibraries are the runtime library candidates. Empty means the
	// platform default under InternalPluginsPath.
	RuntimeLibraries []string `toml:"runtime_libraries" env:"RUNTIME_LIBRARIES" envSeparator:","`

	// CallStackSize is the Lua call stack depth; zero means the default.
	CallStackSize int `toml:"call_stack_size" env:"CALL_STACK_SIZE"`

	AutoReload     bool     `toml:"auto_reload" env:"AUTO_RELOAD"`
	ReloadDebounce Duration `toml:"reload_debounce" env:"RELOAD_DEBOUNCE"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogFile:               "XPLua.log",
		LogLevel:              "info",
		PluginsPath:           "./Resources/plugins/LuaPlugins",
		InternalPluginsPath:   "./Resources/plugins/XPLua",
		PluginPattern:         `^PI_.*\.lua$`,
		InternalPluginPattern: `^I_PI_.*\.lua$`,
		EntryName:             "PluginInterface",
		ReloadDebounce:        Duration(500 * time.Millisecond),
	}
}

// Libraries returns the runtime library candidates in probe order.
func (c Config) Libraries() []string {
	if len(c.RuntimeLibraries) > 0 {
		return c.RuntimeLibraries
	}
	return runtime.DefaultLibraries(c.InternalPluginsPath)
}

// Level returns the parsed log level. Validate reports a bad value.
func (c Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// Validate reports every invalid value.
func (c Config) Validate() error {
	var errs error
	check := func(ok bool, key string, value any, msg string) {
		if !ok {
			errs = multierr.Append(errs, &ValidationError{Key: key, Value: value, Message: msg})
		}
	}

	check(c.LogFile != "", "log_file", c.LogFile, "must not be empty")
	_, err := zapcore.ParseLevel(c.LogLevel)
	check(err == nil, "log_level", c.LogLevel, "must be debug, info, warn or error")
	check(c.PluginsPath != "", "plugins_path", c.PluginsPath, "must not be empty")
	check(c.InternalPluginsPath != "", "internal_plugins_path", c.InternalPluginsPath, "must not be empty")
	for _, p := range []struct{ key, pattern string }{
		{"plugin_pattern", c.PluginPattern},
		{"internal_plugin_pattern", c.InternalPluginPattern},
	} {
		_, err := regexp.Compile(p.pattern)
		check(p.pattern != "" && err == nil, p.key, p.pattern, "must be a regular expression")
	}
	check(c.EntryName != "", "entry_name", c.EntryName, "must not be empty")
	check(c.CallStackSize >= 0, "call_stack_size", c.CallStackSize, "must not be negative")
	check(c.ReloadDebounce >= 0, "reload_debounce", time.Duration(c.ReloadDebounce), "must not be negative")

	if errs != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errs)
	}
	return nil
}
