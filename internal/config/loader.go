// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/lootsurvivor/internal/log"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath string
	version    string
	// environ replaces the process environment when non-nil.
	environ map[string]string
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// WithEnvironment makes the loader read variables from m instead of the process.
func (l *Loader) WithEnvironment(m map[string]string) *Loader {
	l.environ = m
	return l
}

// Load loads configuration with precedence: ENV > File > Defaults
// It enforces Strict Validated Order: Parse File (Strict) -> Apply Env -> Validate
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Environment: l.environ}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.Storage.Path == "" && (cfg.Storage.Backend == "badger" || cfg.Storage.Backend == "sqlite") {
		cfg.Storage.Path = filepath.Join(cfg.DataDir, "session."+cfg.Storage.Backend)
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	logger := log.WithComponent("config")
	logger.Debug().
		Str("chain_id", string(cfg.ChainID)).
		Str("platform", cfg.Platform).
		Str("store_backend", cfg.Storage.Backend).
		Str(log.FieldSource, sourceLabel(l.configPath)).
		Msg("configuration loaded")
	return cfg, nil
}

func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: Ensure no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func sourceLabel(path string) string {
	if path == "" {
		return "defaults+env"
	}
	return "file+env"
}
