package command

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/rediswire/internal/cli/config"
	"github.com/yndnr/rediswire/internal/cli/output"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "CLI configuration and connection profiles (use CONFIG or exec for the server command)",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: configShow,
			},
			{
				Name:   "path",
				Usage:  "Show the config and key file paths",
				Action: configPath,
			},
			{
				Name:   "validate",
				Usage:  "Validate the configuration",
				Action: configValidate,
			},
			{
				Name:   "seal",
				Usage:  "Encrypt plaintext profile passwords in the config file",
				Action: configSeal,
			},
			{
				Name:  "profile",
				Usage: "Manage connection profiles",
				Subcommands: []*cli.Command{
					{
						Name:    "list",
						Aliases: []string{"ls"},
						Usage:   "List profiles",
						Action:  profileList,
					},
					{
						Name:      "set",
						Usage:     "Create or update a profile",
						ArgsUsage: "NAME",
						Flags:     profileFlags(),
						Action:    profileSet,
					},
					{
						Name:      "delete",
						Aliases:   []string{"rm"},
						Usage:     "Delete a profile",
						ArgsUsage: "NAME",
						Action:    profileDelete,
					},
					{
						Name:      "use",
						Usage:     "Make a profile the default",
						ArgsUsage: "NAME",
						Action:    profileUse,
					},
				},
			},
		},
	}
}

func profileFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "kind", Usage: "stream, secure or local"},
		&cli.StringFlag{Name: "host", Usage: "Server host"},
		&cli.IntFlag{Name: "port", Usage: "Server port"},
		&cli.StringFlag{Name: "path", Usage: "Unix socket path of a local profile"},
		&cli.IntFlag{Name: "db", Usage: "Database number"},
		&cli.StringFlag{Name: "user", Usage: "ACL user name"},
		&cli.StringFlag{Name: "password", Usage: "Password, stored encrypted"},
		&cli.StringFlag{Name: "channel-mode", Usage: "current or separate"},
		&cli.DurationFlag{Name: "timeout", Usage: "Connect and reply timeout"},
		&cli.StringFlag{Name: "ca-file", Usage: "CA certificate file"},
		&cli.StringFlag{Name: "cert-file", Usage: "Client certificate file"},
		&cli.StringFlag{Name: "key-file", Usage: "Client private key file"},
		&cli.StringFlag{Name: "server-name", Usage: "Server name for TLS verification"},
		&cli.BoolFlag{Name: "insecure", Usage: "Skip TLS certificate verification"},
	}
}

func configShow(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	shown := *env.Config
	shown.Profiles = make(map[string]config.Profile, len(env.Config.Profiles))
	for name, p := range env.Config.Profiles {
		if p.Password != "" {
			p.Password = "********"
		}
		shown.Profiles[name] = p
	}
	if env.Printer.Format() == output.FormatJSON {
		return env.Printer.Print(shown)
	}
	return (&output.YAMLFormatter{}).Format(env.Out, shown)
}

func configPath(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	return env.Printer.Print(map[string]string{
		"config": env.ConfigPath,
		"key":    config.KeyPath(env.ConfigPath),
	})
}

func configValidate(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	if err := env.Config.Validate(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(env.Out, "configuration is valid: %s\n", env.ConfigPath)
	return err
}

func configSeal(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	k, err := config.LoadKeyring(config.KeyPath(env.ConfigPath))
	if err != nil {
		return err
	}
	if err := config.SealPasswords(env.Config, k); err != nil {
		return err
	}
	return save(env)
}

func profileList(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	t := output.NewTable("NAME", "KIND", "ADDRESS", "DB", "CHANNEL_MODE", "DEFAULT")
	for _, name := range env.Config.ProfileNames() {
		p := env.Config.Profiles[name]
		def := ""
		if name == env.Config.DefaultProfile {
			def = "*"
		}
		t.AddRow(name, p.Kind, profileAddress(p), strconv.Itoa(p.DB), p.ChannelMode, def)
	}
	return env.Printer.Print(t)
}

func profileSet(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return errors.New("profile name required")
	}
	env, err := envFrom(c)
	if err != nil {
		return err
	}

	p, ok := env.Config.Profiles[name]
	if !ok {
		p = config.DefaultProfile()
	}
	if c.IsSet("kind") {
		p.Kind = c.String("kind")
	}
	if c.IsSet("host") {
		p.Host = c.String("host")
	}
	if c.IsSet("port") {
		p.Port = c.Int("port")
	}
	if c.IsSet("path") {
		p.Path = c.String("path")
	}
	if c.IsSet("db") {
		p.DB = c.Int("db")
	}
	if c.IsSet("user") {
		p.Username = c.String("user")
	}
	if c.IsSet("channel-mode") {
		p.ChannelMode = c.String("channel-mode")
	}
	if c.IsSet("timeout") {
		p.Timeout = c.Duration("timeout")
	}
	if c.IsSet("ca-file") {
		p.TLS.CAFile = c.String("ca-file")
	}
	if c.IsSet("cert-file") {
		p.TLS.CertFile = c.String("cert-file")
	}
	if c.IsSet("key-file") {
		p.TLS.KeyFile = c.String("key-file")
	}
	if c.IsSet("server-name") {
		p.TLS.ServerName = c.String("server-name")
	}
	if c.IsSet("insecure") {
		p.TLS.InsecureSkipVerify = c.Bool("insecure")
	}
	if c.IsSet("password") {
		p.Password = c.String("password")
		if p.Password != "" {
			k, err := config.LoadKeyring(config.KeyPath(env.ConfigPath))
			if err != nil {
				return err
			}
			if p.Password, err = k.Seal(name, p.Password); err != nil {
				return err
			}
		}
	}

	if err := p.Validate(); err != nil {
		return fmt.Errorf("profile %q: %w", name, err)
	}
	env.Config.SetProfile(name, p)
	if err := save(env); err != nil {
		return err
	}
	_, err = fmt.Fprintf(env.Out, "profile %q saved\n", name)
	return err
}

func profileDelete(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return errors.New("profile name required")
	}
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	if err := env.Config.DeleteProfile(name); err != nil {
		return err
	}
	if err := save(env); err != nil {
		return err
	}
	_, err = fmt.Fprintf(env.Out, "profile %q deleted\n", name)
	return err
}

func profileUse(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return errors.New("profile name required")
	}
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	if _, err := env.Config.Profile(name); err != nil {
		return err
	}
	env.Config.DefaultProfile = name
	if err := save(env); err != nil {
		return err
	}
	_, err = fmt.Fprintf(env.Out, "default profile is now %q\n", name)
	return err
}

func save(env *Env) error {
	if err := env.Config.Validate(); err != nil {
		return err
	}
	if err := config.Save(env.Config, env.ConfigPath); err != nil {
		return err
	}
	env.Logger.Debug("config saved", "path", env.ConfigPath)
	return nil
}
