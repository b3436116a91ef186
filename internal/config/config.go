package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the service configuration loaded from an optional TOML file.
type Config struct {
	Server ServerConfig
	Files  FilesConfig
	Scad   ScadConfig
	Slicer SlicerConfig
}

type ServerConfig struct {
	Listen string `toml:"listen"`
}

type FilesConfig struct {
	Uploads string `toml:"uploads"`
	Results string `toml:"results"`
}

// ScadConfig configures the external CSG engine (OpenSCAD).
type ScadConfig struct {
	Binary     string `toml:"binary"`
	TimeoutSec int64  `toml:"timeout_sec"`
}

// SlicerConfig configures the external slicing engine (CuraEngine).
// Time estimation is skipped entirely unless Enabled is set.
type SlicerConfig struct {
	Enabled        bool   `toml:"enabled"`
	Binary         string `toml:"binary"`
	DefinitionsDir string `toml:"definitions_dir"`
	TimeoutSec     int64  `toml:"timeout_sec"`
}

// Default returns a configuration that works with both engines on PATH
// and the slicer disabled.
func Default() Config {
	return Config{
		Server: ServerConfig{Listen: ":8080"},
		Files: FilesConfig{
			Uploads: "files/uploads",
			Results: "files/results",
		},
		Scad: ScadConfig{
			Binary:     "openscad",
			TimeoutSec: 120,
		},
		Slicer: SlicerConfig{
			Enabled:        false,
			Binary:         "CuraEngine",
			DefinitionsDir: "definitions",
			TimeoutSec:     180,
		},
	}
}

// Load reads the TOML file at path on top of the defaults. A missing file
// is not an error: the defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.Scad.Binary == "" {
		return fmt.Errorf("scad.binary cannot be empty")
	}

	if c.Scad.TimeoutSec <= 0 {
		return fmt.Errorf("scad.timeout_sec must be positive, got %d", c.Scad.TimeoutSec)
	}

	if c.Slicer.Enabled && c.Slicer.Binary == "" {
		return fmt.Errorf("slicer.binary cannot be empty when the slicer is enabled")
	}

	if c.Slicer.TimeoutSec <= 0 {
		return fmt.Errorf("slicer.timeout_sec must be positive, got %d", c.Slicer.TimeoutSec)
	}

	return nil
}

// ScadTimeout returns the OpenSCAD subprocess timeout as a duration.
func (c Config) ScadTimeout() time.Duration {
	return time.Duration(c.Scad.TimeoutSec) * time.Second
}

// SlicerTimeout returns the CuraEngine subprocess timeout as a duration.
func (c Config) SlicerTimeout() time.Duration {
	return time.Duration(c.Slicer.TimeoutSec) * time.Second
}
