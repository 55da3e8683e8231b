package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// config holds the nitfinfo settings.
type config struct {
	// Workers is the number of subheaders decoded in parallel, 0 means GOMAXPROCS.
	Workers int
	// Sorted prints the fields of each section in lexical order.
	Sorted bool
	// Color enables colored output when stdout is a terminal.
	Color bool
	// Verbosity is the logr verbosity, 1 logs the decode phases, 2 every subheader.
	Verbosity int
}

func defaultConfig() config {
	return config{Color: true}
}

// config.toml keys.
type fileConfig struct {
	Workers   int  `toml:"workers"`
	Sorted    bool `toml:"sorted"`
	Color     bool `toml:"color"`
	Verbosity int  `toml:"verbosity"`
}

// loadConfig overlays the keys defined in the TOML file at path onto cfg.
func loadConfig(path string, cfg config) (config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("workers") {
		if raw.Workers < 0 {
			return config{}, fmt.Errorf("load config: workers must be >= 0, got %d", raw.Workers)
		}
		cfg.Workers = raw.Workers
	}
	if meta.IsDefined("sorted") {
		cfg.Sorted = raw.Sorted
	}
	if meta.IsDefined("color") {
		cfg.Color = raw.Color
	}
	if meta.IsDefined("verbosity") {
		if raw.Verbosity < 0 {
			return config{}, fmt.Errorf("load config: verbosity must be >= 0, got %d", raw.Verbosity)
		}
		cfg.Verbosity = raw.Verbosity
	}

	return cfg, nil
}
