package confloader

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "SECURESTORE_"

// Layer names, lowest priority first.
const (
	LayerDefaults  = "defaults"
	LayerFile      = "file"
	LayerEnv       = "env"
	LayerOverrides = "overrides"
)

// Loader merges defaults, a YAML file, prefixed environment variables and
// explicit overrides, in that order, into one koanf tree.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	optional  bool
	defaults  map[string]any
	overrides map[string]any
	applied   []string
}

type Option func(*Loader)

func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) { l.envPrefix = prefix }
}

func WithConfigFile(path string) Option {
	return func(l *Loader) { l.filePath = path }
}

// WithOptionalFile makes a missing configuration file a no-op.
func WithOptionalFile() Option {
	return func(l *Loader) { l.optional = true }
}

// WithDefaults sets the lowest layer, keyed "section.key".
func WithDefaults(defaults map[string]any) Option {
	return func(l *Loader) { l.defaults = defaults }
}

// WithOverrides sets the highest layer, keyed "section.key".
func WithOverrides(overrides map[string]any) Option {
	return func(l *Loader) { l.overrides = overrides }
}

func NewLoader(opts ...Option) *Loader {
	l := &Loader{k: koanf.New("."), envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type layer struct {
	name   string
	skip   bool
	source koanf.Provider
	parser koanf.Parser
}

func (l *Loader) layers() []layer {
	return []layer{
		{name: LayerDefaults, skip: len(l.defaults) == 0, source: mapProvider(l.defaults)},
		{name: LayerFile, skip: l.filePath == "", source: file.Provider(l.filePath), parser: yaml.Parser()},
		{name: LayerEnv, source: env.Provider(l.envPrefix, ".", l.envKey)},
		{name: LayerOverrides, skip: len(l.overrides) == 0, source: mapProvider(l.overrides)},
	}
}

// Load rebuilds the tree from every layer and unmarshals it into target
// using koanf struct tags. Each call starts empty, so Load also reloads.
func (l *Loader) Load(target any) error {
	k := koanf.New(".")
	var applied []string

	for _, ly := range l.layers() {
		if ly.skip {
			continue
		}
		if err := k.Load(ly.source, ly.parser); err != nil {
			if ly.name == LayerFile && l.optional && errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s layer: %w", ly.name, err)
		}
		applied = append(applied, ly.name)
	}

	if err := k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	l.k = k
	l.applied = applied
	return nil
}

// envKey maps SECURESTORE_STORAGE_DEVICE_DIR to storage.device_dir: the
// first underscore separates the section, the rest belong to the key.
func (l *Loader) envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, l.envPrefix))
	if section, key, ok := strings.Cut(s, "_"); ok {
		return section + "." + key
	}
	return s
}

// FilePath returns the configured file path, whether or not it exists.
func (l *Loader) FilePath() string { return l.filePath }

// Layers lists the layers the last successful Load applied.
func (l *Loader) Layers() []string { return l.applied }

// IsLoaded reports whether Load has succeeded at least once.
func (l *Loader) IsLoaded() bool { return l.applied != nil }

// GetString reads one merged value by dotted key.
func (l *Loader) GetString(key string) string { return l.k.String(key) }
