package command

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/rediswire/internal/cli/output"
	"github.com/yndnr/rediswire/internal/infra/buildinfo"
	"github.com/yndnr/rediswire/pkg/client"
	"github.com/yndnr/rediswire/pkg/resp"
)

// PingCommand returns the ping command.
func PingCommand() *cli.Command {
	return &cli.Command{
		Name:      "ping",
		Usage:     "Ping the server and report the round-trip time",
		ArgsUsage: "[MESSAGE]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"c"},
				Usage:   "Number of pings",
				Value:   1,
			},
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Wait between pings",
				Value:   time.Second,
			},
		},
		Action: pingAction,
	}
}

// pingResult is one ping round trip.
type pingResult struct {
	Seq     int     `json:"seq" yaml:"seq"`
	Reply   string  `json:"reply" yaml:"reply"`
	Latency float64 `json:"latency_ms" yaml:"latency_ms"`
}

type pingResults []pingResult

func (r pingResults) Table() *output.Table {
	t := output.NewTable("SEQ", "REPLY", "LATENCY")
	for _, p := range r {
		t.AddRow(strconv.Itoa(p.Seq), p.Reply, fmt.Sprintf("%.3f ms", p.Latency))
	}
	return t
}

func pingAction(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	cl, err := env.Client()
	if err != nil {
		return err
	}

	args := []any{"PING"}
	if msg := c.Args().First(); msg != "" {
		args = append(args, msg)
	}

	count := max(c.Int("count"), 1)
	results := make(pingResults, 0, count)
	for i := 0; i < count; i++ {
		if i > 0 {
			select {
			case <-c.Context.Done():
				return env.Printer.Print(results)
			case <-time.After(c.Duration("interval")):
			}
		}
		start := time.Now()
		r, err := cl.Do(args...)
		if err != nil {
			return err
		}
		if err := r.Err(); err != nil {
			return err
		}
		results = append(results, pingResult{
			Seq:     i + 1,
			Reply:   r.Str(),
			Latency: float64(time.Since(start).Microseconds()) / 1000,
		})
	}

	if env.Printer.Format().Structured() || count > 1 {
		return env.Printer.Print(results)
	}
	_, err = fmt.Fprintf(env.Out, "%s (%.3f ms)\n", results[0].Reply, results[0].Latency)
	return err
}

// InfoCommand returns the info command.
func InfoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Show server information",
		ArgsUsage: "[SECTION]",
		Action:    infoAction,
	}
}

// infoTable renders parsed INFO sections as SECTION FIELD VALUE rows.
type infoTable client.Info

func (i infoTable) Table() *output.Table {
	t := output.NewTable("SECTION", "FIELD", "VALUE")
	sections := make([]string, 0, len(i))
	for s := range i {
		sections = append(sections, s)
	}
	sort.Strings(sections)
	for _, s := range sections {
		fields := make([]string, 0, len(i[s]))
		for f := range i[s] {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			t.AddRow(s, f, i[s][f])
		}
	}
	return t
}

func infoAction(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	cl, err := env.Client()
	if err != nil {
		return err
	}
	info, err := cl.Info(c.Args().First())
	if err != nil {
		return err
	}
	return env.Printer.Print(infoTable(info))
}

// PublishCommand returns the publish command.
func PublishCommand() *cli.Command {
	return &cli.Command{
		Name:      "publish",
		Usage:     "Post a message to a channel",
		ArgsUsage: "CHANNEL MESSAGE",
		Action: func(c *cli.Context) error {
			return publishAction(c, (*client.Client).Publish)
		},
	}
}

// SPublishCommand returns the spublish command.
func SPublishCommand() *cli.Command {
	return &cli.Command{
		Name:      "spublish",
		Usage:     "Post a message to a shard channel",
		ArgsUsage: "SHARDCHANNEL MESSAGE",
		Action: func(c *cli.Context) error {
			return publishAction(c, (*client.Client).SPublish)
		},
	}
}

func publishAction(c *cli.Context, publish func(*client.Client, string, string) (int64, error)) error {
	if c.NArg() != 2 {
		return errors.New("expected a channel and a message")
	}
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	cl, err := env.Client()
	if err != nil {
		return err
	}
	n, err := publish(cl, c.Args().Get(0), c.Args().Get(1))
	if err != nil {
		return err
	}
	return env.Printer.PrintReply(resp.Integer(n))
}

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			env, err := envFrom(c)
			if err != nil {
				return err
			}
			info := buildinfo.Get()
			if env.Printer.Format().Structured() {
				return env.Printer.Print(info)
			}
			_, err = fmt.Fprintf(env.Out, "rediswire-cli %s\n", buildinfo.String())
			return err
		},
	}
}
