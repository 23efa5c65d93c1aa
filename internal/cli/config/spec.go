package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yndnr/rediswire/internal/telemetry/logger"
	"github.com/yndnr/rediswire/pkg/client"
	"github.com/yndnr/rediswire/pkg/connection"
	"github.com/yndnr/rediswire/pkg/transporter"
)

// DefaultProfileName is the profile used when none is selected.
const DefaultProfileName = "default"

var (
	// ErrProfileNotFound is returned for an unknown profile name.
	ErrProfileNotFound = errors.New("config: profile not found")

	// ErrInvalidConfig wraps validation failures.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// CLIConfig is the configuration for rediswire-cli.
type CLIConfig struct {
	DefaultProfile string `yaml:"default_profile" koanf:"default_profile"`
	Output         string `yaml:"output" koanf:"output"` // text, json, yaml
	NoColor        bool   `yaml:"no_color,omitempty" koanf:"no_color"`
	HistoryFile    string `yaml:"history_file,omitempty" koanf:"history_file"`

	Log LogConfig `yaml:"log" koanf:"log"`

	Profiles map[string]Profile `yaml:"profiles" koanf:"profiles"`
}

// LogConfig selects the CLI log output. Logs go to stderr.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}

// Profile stores the connection settings of one server.
type Profile struct {
	Kind string `yaml:"kind" koanf:"kind"` // stream, secure, local
	Host string `yaml:"host,omitempty" koanf:"host"`
	Port int    `yaml:"port,omitempty" koanf:"port"`
	// Path is the unix socket path of a local profile.
	Path string `yaml:"path,omitempty" koanf:"path"`
	DB   int    `yaml:"db,omitempty" koanf:"db"`

	Username string `yaml:"username,omitempty" koanf:"username"`
	Password string `yaml:"password,omitempty" koanf:"password"` // sealed at rest

	ChannelMode string        `yaml:"channel_mode,omitempty" koanf:"channel_mode"`
	Timeout     time.Duration `yaml:"timeout,omitempty" koanf:"timeout"`

	TLS TLSConfig `yaml:"tls,omitempty" koanf:"tls"`
}

// TLSConfig holds the TLS settings of a secure profile.
type TLSConfig struct {
	CAFile             string `yaml:"ca_file,omitempty" koanf:"ca_file"`
	CertFile           string `yaml:"cert_file,omitempty" koanf:"cert_file"`
	KeyFile            string `yaml:"key_file,omitempty" koanf:"key_file"`
	ServerName         string `yaml:"server_name,omitempty" koanf:"server_name"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify,omitempty" koanf:"insecure_skip_verify"`
}

// Default returns the configuration used when no file exists.
func Default() *CLIConfig {
	return &CLIConfig{
		DefaultProfile: DefaultProfileName,
		Output:         "text",
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Profiles: map[string]Profile{
			DefaultProfileName: DefaultProfile(),
		},
	}
}

// DefaultProfile returns a profile for a local Redis on the standard port.
func DefaultProfile() Profile {
	return Profile{
		Kind:        "stream",
		Host:        "127.0.0.1",
		Port:        6379,
		ChannelMode: "current",
		Timeout:     connection.DefaultTimeout,
	}
}

// Profile returns the named profile, or the default profile when name is
// empty.
func (c *CLIConfig) Profile(name string) (Profile, error) {
	if name == "" {
		name = c.DefaultProfile
	}
	if name == "" {
		name = DefaultProfileName
	}
	p, ok := c.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}
	return p, nil
}

// SetProfile adds or replaces a profile.
func (c *CLIConfig) SetProfile(name string, p Profile) {
	if c.Profiles == nil {
		c.Profiles = make(map[string]Profile)
	}
	c.Profiles[name] = p
}

// DeleteProfile removes a profile. The default profile cannot be removed
// while it is selected.
func (c *CLIConfig) DeleteProfile(name string) error {
	if _, ok := c.Profiles[name]; !ok {
		return fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}
	if name == c.DefaultProfile {
		return fmt.Errorf("%w: profile %q is the default profile", ErrInvalidConfig, name)
	}
	delete(c.Profiles, name)
	return nil
}

// ProfileNames returns the profile names in sorted order.
func (c *CLIConfig) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the whole configuration.
func (c *CLIConfig) Validate() error {
	var errs []error

	switch strings.ToLower(c.Output) {
	case "", "text", "json", "yaml", "raw":
	default:
		errs = append(errs, fmt.Errorf("output: unknown format %q", c.Output))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	if c.DefaultProfile != "" {
		if _, ok := c.Profiles[c.DefaultProfile]; !ok {
			errs = append(errs, fmt.Errorf("default_profile: %q is not defined", c.DefaultProfile))
		}
	}
	for _, name := range c.ProfileNames() {
		if err := c.Profiles[name].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("profiles.%s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Validate checks one profile.
func (p Profile) Validate() error {
	kind, err := connection.ParseKind(p.Kind)
	if err != nil {
		return err
	}
	if _, err := transporter.ParseChannelMode(p.ChannelMode); err != nil {
		return err
	}

	switch kind {
	case connection.KindLocal:
		if p.Path == "" {
			return errors.New("local profile requires path")
		}
	default:
		if p.Host == "" {
			return errors.New("host is required")
		}
		if p.Port <= 0 || p.Port > 65535 {
			return fmt.Errorf("port %d out of range", p.Port)
		}
	}
	if p.DB < 0 {
		return fmt.Errorf("db %d is negative", p.DB)
	}
	if p.Timeout < 0 {
		return fmt.Errorf("timeout %s is negative", p.Timeout)
	}
	if (p.TLS.CertFile == "") != (p.TLS.KeyFile == "") {
		return errors.New("tls.cert_file and tls.key_file must be set together")
	}
	return nil
}

// ClientOptions converts the profile to client options. password is the
// opened (plaintext) password.
func (p Profile) ClientOptions(password string) (client.Options, error) {
	if err := p.Validate(); err != nil {
		return client.Options{}, err
	}
	kind, _ := connection.ParseKind(p.Kind)
	mode, _ := transporter.ParseChannelMode(p.ChannelMode)

	opts := client.Options{
		Kind:        kind,
		Host:        p.Host,
		Port:        p.Port,
		Username:    p.Username,
		Password:    password,
		DB:          p.DB,
		ChannelMode: mode,
		Timeout:     p.Timeout,
	}
	if kind == connection.KindLocal {
		opts.Host = p.Path
		opts.Port = 0
	}
	if kind == connection.KindSecure {
		opts.TLS = connection.TLSOptions{
			CAFile:             p.TLS.CAFile,
			CertFile:           p.TLS.CertFile,
			KeyFile:            p.TLS.KeyFile,
			ReloadClientCert:   p.TLS.CertFile != "",
			ServerName:         p.TLS.ServerName,
			InsecureSkipVerify: p.TLS.InsecureSkipVerify,
		}
	}
	return opts, nil
}
