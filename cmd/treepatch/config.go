package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/treepatch/schema"
)

type config struct {
	Limits      schema.Limits
	StrictStash bool
	LogLevel    string
	LogJSON     bool
}

func defaultConfig() config {
	return config{
		Limits:   schema.DefaultLimits(),
		LogLevel: "warn",
	}
}

type fileConfig struct {
	Limits struct {
		MaxBytes        int `toml:"max_bytes"`
		MaxChanges      int `toml:"max_changes"`
		MaxDecoderDepth int `toml:"max_decoder_depth"`
		MaxDecoderNodes int `toml:"max_decoder_nodes"`
	} `toml:"limits"`
	Apply struct {
		StrictStash bool `toml:"strict_stash"`
	} `toml:"apply"`
	Log struct {
		Level string `toml:"level"`
		JSON  bool   `toml:"json"`
	} `toml:"log"`
}

// loadConfig reads a TOML file over the defaults. Keys missing from the
// file keep their default values.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return config{}, fmt.Errorf("load config: unknown key %s", undecoded[0])
	}

	if meta.IsDefined("limits", "max_bytes") {
		if raw.Limits.MaxBytes < 0 {
			return config{}, fmt.Errorf("limits.max_bytes must not be negative")
		}
		cfg.Limits.MaxBytes = raw.Limits.MaxBytes
	}
	if meta.IsDefined("limits", "max_changes") {
		if raw.Limits.MaxChanges < 0 {
			return config{}, fmt.Errorf("limits.max_changes must not be negative")
		}
		cfg.Limits.MaxChanges = raw.Limits.MaxChanges
	}
	if meta.IsDefined("limits", "max_decoder_depth") {
		if raw.Limits.MaxDecoderDepth < 0 {
			return config{}, fmt.Errorf("limits.max_decoder_depth must not be negative")
		}
		cfg.Limits.MaxDecoderDepth = raw.Limits.MaxDecoderDepth
	}
	if meta.IsDefined("limits", "max_decoder_nodes") {
		if raw.Limits.MaxDecoderNodes < 0 {
			return config{}, fmt.Errorf("limits.max_decoder_nodes must not be negative")
		}
		cfg.Limits.MaxDecoderNodes = raw.Limits.MaxDecoderNodes
	}

	if meta.IsDefined("apply", "strict_stash") {
		cfg.StrictStash = raw.Apply.StrictStash
	}

	if meta.IsDefined("log", "level") {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(raw.Log.Level))
	}
	if meta.IsDefined("log", "json") {
		cfg.LogJSON = raw.Log.JSON
	}

	return cfg, nil
}
