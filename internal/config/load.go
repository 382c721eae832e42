package config

import (
	"fmt"

	"github.com/yndnr/securestore/internal/infra/confloader"
)

// Load builds the effective configuration: defaults, then the YAML file at
// path (optional when path is the default location), then SECURESTORE_*
// environment variables, then overrides.
func Load(path string, overrides map[string]any) (*Config, *confloader.Loader, error) {
	opts := []confloader.Option{
		confloader.WithDefaults(DefaultMap()),
		confloader.WithOverrides(overrides),
	}
	if path == "" {
		path = DefaultConfigPath()
		opts = append(opts, confloader.WithOptionalFile())
	}
	opts = append(opts, confloader.WithConfigFile(path))

	loader := confloader.NewLoader(opts...)
	cfg := &Config{}
	if err := loader.Load(cfg); err != nil {
		return nil, nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, loader, nil
}

// Reload re-reads every source of loader.
func Reload(loader *confloader.Loader) (*Config, error) {
	cfg := &Config{}
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
