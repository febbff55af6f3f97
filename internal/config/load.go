package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// Load builds the configuration: Default, then the TOML file at path (or
// at $XPLUA_CONFIG when path is empty), then the environment. The result
// is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := loadFile(&cfg, path); err != nil {
			return cfg, err
		}
	}

	if err := loadEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return decode(cfg, path, data)
}

// decode merges TOML data over cfg. Keys absent from data keep their value.
func decode(cfg *Config, source string, data []byte) error {
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		pe := &ParseError{Path: source, Err: err}
		var de *toml.DecodeError
		if errors.As(err, &de) {
			pe.Line, pe.Column = de.Position()
		}
		return pe
	}
	return nil
}

// loadEnv overlays XPLUA_* variables. XPLUA_PRESERVE turns on PreserveLog
// whatever its value.
func loadEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if _, ok := os.LookupEnv(EnvPrefix + "PRESERVE"); ok {
		cfg.PreserveLog = true
	}
	return nil
}
