package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/lazyload/manifest"
)

type fileConfig struct {
	Snapshot   string `toml:"snapshot"`
	Registry   string `toml:"registry"`
	PublicPath string `toml:"public_path"`
	Out        string `toml:"out"`
	Verbose    bool   `toml:"verbose"`
}

// buildConfig drives the manifest subcommand. A nil PublicPath keeps the
// compilation's own public path.
type buildConfig struct {
	PublicPath *string
	Snapshot   string
	Registry   string
	Out        string
	Verbose    bool
}

func defaultBuildConfig() buildConfig {
	return buildConfig{Out: manifest.DefaultFilename}
}

func loadBuildConfig(path string) (buildConfig, error) {
	cfg := defaultBuildConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return buildConfig{}, fmt.Errorf("load lazyctl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return buildConfig{}, fmt.Errorf("load lazyctl config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("snapshot") {
		cfg.Snapshot = strings.TrimSpace(raw.Snapshot)
	}
	if meta.IsDefined("registry") {
		cfg.Registry = strings.TrimSpace(raw.Registry)
	}
	if meta.IsDefined("public_path") {
		p := raw.PublicPath
		cfg.PublicPath = &p
	}
	if meta.IsDefined("out") {
		if out := strings.TrimSpace(raw.Out); out != "" {
			cfg.Out = out
		}
	}
	if meta.IsDefined("verbose") {
		cfg.Verbose = raw.Verbose
	}
	return cfg, nil
}

func (c buildConfig) validate() error {
	if c.Snapshot == "" {
		return fmt.Errorf("snapshot path is required")
	}
	if c.Registry == "" {
		return fmt.Errorf("registry path is required")
	}
	if c.Out == "" {
		return fmt.Errorf("output path is required")
	}
	return nil
}
