package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/rediswire/internal/infra/buildinfo"
	"github.com/yndnr/rediswire/pkg/connection"
)

// App creates the CLI application.
func App() *cli.App {
	app := &cli.App{
		Name:      "rediswire-cli",
		Usage:     "Redis command-line client",
		UsageText: "rediswire-cli [global options] [COMMAND [ARG ...]]\n   rediswire-cli [global options] command [command options] [arguments...]",
		Description: "Run a Redis command given on the command line, or start an interactive\n" +
			"session when none is given. Server commands whose names clash with a\n" +
			"subcommand (CONFIG, INFO, PING) can be sent in upper case or via exec.",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Before:  before,
		After:   after,
		Action:  execAction,
		Commands: []*cli.Command{
			ExecCommand(),
			PingCommand(),
			InfoCommand(),
			PublishCommand(),
			SPublishCommand(),
			SubscribeCommand(),
			PSubscribeCommand(),
			SSubscribeCommand(),
			ReplCommand(),
			BenchCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
	}
	return app
}

// globalFlags returns the global CLI flags. Connection flags override the
// selected profile.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "CLI config file",
			EnvVars: []string{"REDISWIRE_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "profile",
			Aliases: []string{"P"},
			Usage:   "Connection profile (default: default_profile from the config)",
			EnvVars: []string{"REDISWIRE_PROFILE"},
		},
		&cli.StringFlag{
			Name:    "uri",
			Aliases: []string{"u"},
			Usage:   "Server URI: redis://[user:pass@]host[:port][/db], rediss://... or unix:///path",
		},
		&cli.StringFlag{
			Name:    "host",
			Aliases: []string{"H"},
			Usage:   "Server host",
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Server port",
		},
		&cli.StringFlag{
			Name:    "socket",
			Aliases: []string{"s"},
			Usage:   "Server unix socket (overrides host and port)",
		},
		&cli.BoolFlag{
			Name:  "tls",
			Usage: "Connect with TLS",
		},
		&cli.StringFlag{
			Name:  "cacert",
			Usage: "CA certificate file to verify the server with",
		},
		&cli.StringFlag{
			Name:  "cert",
			Usage: "Client certificate file",
		},
		&cli.StringFlag{
			Name:  "key",
			Usage: "Client private key file",
		},
		&cli.StringFlag{
			Name:  "sni",
			Usage: "Server name for TLS verification",
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "Skip TLS certificate verification",
		},
		&cli.IntFlag{
			Name:    "db",
			Aliases: []string{"n"},
			Usage:   "Database number",
		},
		&cli.StringFlag{
			Name:  "user",
			Usage: "ACL user name",
		},
		&cli.StringFlag{
			Name:    "pass",
			Aliases: []string{"a"},
			Usage:   "Password",
			EnvVars: []string{"REDISWIRE_AUTH", "REDISCLI_AUTH"},
		},
		&cli.StringFlag{
			Name:  "channel-mode",
			Usage: "Pub/sub connection: current or separate",
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Aliases: []string{"t"},
			Usage:   "Connect and reply timeout",
			Value:   connection.DefaultTimeout,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: text, raw, json, yaml",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "Disable colored output",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: text, json",
		},
	}
}
