package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/rediswire/internal/cli/config"
	"github.com/yndnr/rediswire/internal/cli/output"
	"github.com/yndnr/rediswire/internal/telemetry/logger"
	"github.com/yndnr/rediswire/pkg/client"
	"github.com/yndnr/rediswire/pkg/transporter"
)

const envKey = "env"

// Env is the state shared by every command of one invocation: the loaded
// configuration, the output printer, the logger and the lazily connected
// client.
type Env struct {
	ConfigPath string
	Config     *config.CLIConfig
	Printer    *output.Printer
	Logger     logger.Logger
	In         io.Reader
	Out        io.Writer
	Err        io.Writer

	// Metrics is passed to clients created after it is set.
	Metrics transporter.Metrics

	flags *cli.Context

	mu     sync.Mutex
	client *client.Client
}

func before(c *cli.Context) error {
	path := c.String("config")
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}

	format := cfg.Output
	if c.IsSet("output") {
		format = c.String("output")
	}
	f, err := output.ParseFormat(format)
	if err != nil {
		return err
	}

	logCfg := logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	}
	if c.IsSet("log-level") {
		logCfg.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		logCfg.Format = c.String("log-format")
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return err
	}
	logger.SetDefault(log)

	env := &Env{
		ConfigPath: path,
		Config:     cfg,
		Printer:    output.NewPrinter(c.App.Writer, f, cfg.NoColor || c.Bool("no-color")),
		Logger:     log,
		In:         c.App.Reader,
		Out:        c.App.Writer,
		Err:        c.App.ErrWriter,
		flags:      c,
	}
	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[envKey] = env
	return nil
}

func after(c *cli.Context) error {
	if env, ok := c.App.Metadata[envKey].(*Env); ok {
		env.Close()
	}
	return nil
}

// envFrom returns the Env set up by the root Before hook.
func envFrom(c *cli.Context) (*Env, error) {
	env, ok := c.App.Metadata[envKey].(*Env)
	if !ok {
		return nil, errors.New("command environment not initialized")
	}
	return env, nil
}

// ProfileName returns the name of the selected profile.
func (e *Env) ProfileName() string {
	if name := e.flags.String("profile"); name != "" {
		return name
	}
	if e.Config.DefaultProfile != "" {
		return e.Config.DefaultProfile
	}
	return config.DefaultProfileName
}

// Context returns ctx carrying the logger, the profile name and the
// server address of this invocation, for logger.L.
func (e *Env) Context(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithProfile(logger.WithLogger(ctx, e.Logger), e.ProfileName())
	if p, err := e.Config.Profile(e.ProfileName()); err == nil {
		if p, _, err = applyFlags(e.flags, p, ""); err == nil {
			ctx = logger.WithAddress(ctx, profileAddress(p))
		}
	}
	return ctx
}

// Profile returns the selected profile with the connection flags applied,
// and the plaintext password.
func (e *Env) Profile() (config.Profile, string, error) {
	name := e.ProfileName()
	p, err := e.Config.Profile(name)
	if err != nil {
		return config.Profile{}, "", err
	}

	password, err := e.openPassword(name, p.Password)
	if err != nil {
		return config.Profile{}, "", err
	}
	p.Password = ""

	if p, password, err = applyFlags(e.flags, p, password); err != nil {
		return config.Profile{}, "", err
	}
	return p, password, nil
}

func (e *Env) openPassword(profile, value string) (string, error) {
	if !config.IsSealed(value) {
		return value, nil
	}
	k, err := config.LoadKeyring(config.KeyPath(e.ConfigPath))
	if err != nil {
		return "", err
	}
	plain, err := k.Open(profile, value)
	if err != nil {
		return "", fmt.Errorf("profile %q password: %w", profile, err)
	}
	return plain, nil
}

// ClientOptions returns the options for a new client of the selected
// profile.
func (e *Env) ClientOptions() (client.Options, error) {
	p, password, err := e.Profile()
	if err != nil {
		return client.Options{}, err
	}
	opts, err := p.ClientOptions(password)
	if err != nil {
		return client.Options{}, fmt.Errorf("profile %q: %w", e.ProfileName(), err)
	}
	opts.Logger = e.Logger.Slog()
	opts.Metrics = e.Metrics
	return opts, nil
}

// NewClient creates and connects a client that the caller must close.
func (e *Env) NewClient() (*client.Client, error) {
	opts, err := e.ClientOptions()
	if err != nil {
		return nil, err
	}
	cl, err := client.New(opts)
	if err != nil {
		return nil, err
	}
	if err := cl.Connect(); err != nil {
		cl.Close()
		return nil, fmt.Errorf("connect %s: %w", address(opts), err)
	}
	e.Logger.Debug("connected", "address", address(opts), "db", opts.DB, "profile", e.ProfileName())
	return cl, nil
}

// Client returns the shared client, connecting on first use. Close
// releases it.
func (e *Env) Client() (*client.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		return e.client, nil
	}
	cl, err := e.NewClient()
	if err != nil {
		return nil, err
	}
	e.client = cl
	return cl, nil
}

// Close closes the shared client.
func (e *Env) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		e.client.Close()
		e.client = nil
	}
}

func profileAddress(p config.Profile) string {
	if p.Kind == "local" {
		return p.Path
	}
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

func address(opts client.Options) string {
	if opts.Port == 0 {
		return opts.Host
	}
	return fmt.Sprintf("%s:%d", opts.Host, opts.Port)
}

// applyFlags overrides profile fields with the connection flags that were
// set. The URI is applied first so that explicit flags win over it.
func applyFlags(c *cli.Context, p config.Profile, password string) (config.Profile, string, error) {
	if uri := c.String("uri"); uri != "" {
		var err error
		if p, password, err = applyURI(p, password, uri); err != nil {
			return p, password, err
		}
	}

	if c.IsSet("host") {
		p.Host = c.String("host")
	}
	if c.IsSet("port") {
		p.Port = c.Int("port")
	}
	if c.IsSet("socket") {
		p.Kind = "local"
		p.Path = c.String("socket")
	}
	if c.Bool("tls") {
		p.Kind = "secure"
	}
	if c.IsSet("cacert") {
		p.TLS.CAFile = c.String("cacert")
	}
	if c.IsSet("cert") {
		p.TLS.CertFile = c.String("cert")
	}
	if c.IsSet("key") {
		p.TLS.KeyFile = c.String("key")
	}
	if c.IsSet("sni") {
		p.TLS.ServerName = c.String("sni")
	}
	if c.Bool("insecure") {
		p.TLS.InsecureSkipVerify = true
	}
	if c.IsSet("db") {
		p.DB = c.Int("db")
	}
	if c.IsSet("user") {
		p.Username = c.String("user")
	}
	if c.IsSet("pass") {
		password = c.String("pass")
	}
	if c.IsSet("channel-mode") {
		p.ChannelMode = c.String("channel-mode")
	}
	if c.IsSet("timeout") {
		p.Timeout = c.Duration("timeout")
	}
	return p, password, nil
}

// applyURI applies a redis://, rediss:// or unix:// URI.
func applyURI(p config.Profile, password, raw string) (config.Profile, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return p, password, fmt.Errorf("invalid uri: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "redis":
		p.Kind = "stream"
	case "rediss":
		p.Kind = "secure"
	case "unix":
		p.Kind = "local"
		p.Path = u.Path
		if db := u.Query().Get("db"); db != "" {
			if p.DB, err = strconv.Atoi(db); err != nil {
				return p, password, fmt.Errorf("invalid uri db %q", db)
			}
		}
		return p, password, nil
	default:
		return p, password, fmt.Errorf("invalid uri scheme %q", u.Scheme)
	}

	if host := u.Hostname(); host != "" {
		p.Host = host
	}
	if port := u.Port(); port != "" {
		if p.Port, err = strconv.Atoi(port); err != nil {
			return p, password, fmt.Errorf("invalid uri port %q", port)
		}
	}
	if u.User != nil {
		if pw, ok := u.User.Password(); ok {
			p.Username = u.User.Username()
			password = pw
		} else {
			password = u.User.Username()
		}
	}
	if db := strings.Trim(u.Path, "/"); db != "" {
		if p.DB, err = strconv.Atoi(db); err != nil {
			return p, password, fmt.Errorf("invalid uri db %q", db)
		}
	}
	return p, password, nil
}
