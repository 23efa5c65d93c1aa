package confloader

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "REDISWIRE_"

// envNestingSeparator separates nesting levels in environment variable names.
const envNestingSeparator = "__"

// Loader loads configuration from defaults, a YAML file, the environment
// and overrides. It is safe for concurrent use.
type Loader struct {
	envPrefix    string
	filePath     string
	fileOptional bool
	defaults     map[string]any
	overrides    map[string]any

	mu     sync.RWMutex
	k      *koanf.Koanf
	loaded bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file. Load fails if it is missing.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
		l.fileOptional = false
	}
}

// WithOptionalConfigFile sets a configuration file that may not exist yet.
func WithOptionalConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
		l.fileOptional = true
	}
}

// WithDefaults sets the lowest-priority values.
func WithDefaults(defaults map[string]any) Option {
	return func(l *Loader) {
		l.defaults = defaults
	}
}

// WithOverrides sets the highest-priority values, typically the flags the
// user set explicitly.
func WithOverrides(overrides map[string]any) Option {
	return func(l *Loader) {
		l.overrides = overrides
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FilePath returns the configuration file path, if any.
func (l *Loader) FilePath() string {
	return l.filePath
}

// Load reads every source in priority order and unmarshals into target.
// Each call starts from scratch, so Load also serves as a reload.
func (l *Loader) Load(target any) error {
	k := koanf.New(".")

	if len(l.defaults) > 0 {
		if err := k.Load(mapProvider(l.defaults), nil); err != nil {
			return fmt.Errorf("load defaults: %w", err)
		}
	}
	if l.filePath != "" {
		if err := loadFile(k, l.filePath); err != nil {
			if !l.fileOptional || !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load config file: %w", err)
			}
		}
	}
	if err := loadEnv(k, l.envPrefix); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	if len(l.overrides) > 0 {
		if err := k.Load(mapProvider(l.overrides), nil); err != nil {
			return fmt.Errorf("load overrides: %w", err)
		}
	}

	if target != nil {
		if err := k.Unmarshal("", target); err != nil {
			return fmt.Errorf("unmarshal config: %w", err)
		}
	}

	l.mu.Lock()
	l.k = k
	l.loaded = true
	l.mu.Unlock()
	return nil
}

// LoadFile merges a YAML file into the current configuration.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return loadFile(l.k, path)
}

// LoadEnv merges environment variables into the current configuration.
func (l *Loader) LoadEnv() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return loadEnv(l.k, l.envPrefix)
}

// LoadMap merges a map into the current configuration.
func (l *Loader) LoadMap(data map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.k.Load(mapProvider(data), nil); err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	return nil
}

func loadFile(k *koanf.Koanf, path string) error {
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}
	return nil
}

// loadEnv maps REDISWIRE_TLS__CA_FILE to tls.ca_file.
func loadEnv(k *koanf.Koanf, prefix string) error {
	transform := func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, prefix))
		return strings.ReplaceAll(s, envNestingSeparator, ".")
	}
	return k.Load(env.Provider(prefix, ".", transform), nil)
}

// Unmarshal unmarshals the current configuration into target.
func (l *Loader) Unmarshal(target any) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.k.Unmarshal("", target)
}

// Get returns a value from the configuration by key.
func (l *Loader) Get(key string) any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.k.Get(key)
}

// GetString returns a string value from the configuration.
func (l *Loader) GetString(key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.k.String(key)
}

// GetInt returns an int value from the configuration.
func (l *Loader) GetInt(key string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.k.Int(key)
}

// GetBool returns a bool value from the configuration.
func (l *Loader) GetBool(key string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.k.Bool(key)
}

// IsLoaded reports whether Load has succeeded at least once.
func (l *Loader) IsLoaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// All returns all configuration as a flat map.
func (l *Loader) All() map[string]any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.k.All()
}

// Keys returns all configuration keys.
func (l *Loader) Keys() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.k.Keys()
}
