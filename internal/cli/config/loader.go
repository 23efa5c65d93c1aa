package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/rediswire/internal/infra/confloader"
	"github.com/yndnr/rediswire/pkg/connection"
)

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".rediswire", "cli.yaml")
}

// NewLoader returns the loader for the CLI configuration at path: defaults,
// then the file if it exists, then REDISWIRE_ environment variables.
func NewLoader(path string) *confloader.Loader {
	if path == "" {
		path = DefaultConfigPath()
	}
	d := Default()
	return confloader.NewLoader(
		confloader.WithOptionalConfigFile(path),
		confloader.WithDefaults(map[string]any{
			"default_profile": d.DefaultProfile,
			"output":          d.Output,
			"log.level":       d.Log.Level,
			"log.format":      d.Log.Format,
		}),
	)
}

// Load loads the CLI configuration from path. A missing file yields the
// defaults.
func Load(path string) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	if err := NewLoader(path).Load(cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills the fields a hand-written file may leave out.
func (c *CLIConfig) applyDefaults() {
	if len(c.Profiles) == 0 {
		c.Profiles = map[string]Profile{DefaultProfileName: DefaultProfile()}
	}
	for name, p := range c.Profiles {
		if p.Kind == "" {
			p.Kind = "stream"
		}
		kind, err := connection.ParseKind(p.Kind)
		if err == nil && kind != connection.KindLocal && p.Port == 0 {
			p.Port = 6379
		}
		if p.ChannelMode == "" {
			p.ChannelMode = "current"
		}
		if p.Timeout == 0 {
			p.Timeout = connection.DefaultTimeout
		}
		c.Profiles[name] = p
	}
}

// Save writes the configuration to path with mode 0600. The file is
// replaced atomically.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cli-*.yaml")
	if err != nil {
		return fmt.Errorf("config: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("config: chmod: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("config: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("config: rename: %w", err)
	}
	return nil
}
