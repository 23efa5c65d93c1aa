package command

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/rediswire/internal/cli/config"
	"github.com/yndnr/rediswire/internal/infra/confloader"
	"github.com/yndnr/rediswire/internal/infra/shutdown"
	"github.com/yndnr/rediswire/internal/telemetry/logger"
	"github.com/yndnr/rediswire/internal/telemetry/metric"
	"github.com/yndnr/rediswire/pkg/client"
	"github.com/yndnr/rediswire/pkg/transporter"
)

// shutdownTimeout bounds the unsubscribe and server shutdown hooks.
const shutdownTimeout = 5 * time.Second

type subscribeFunc func(*client.Client, ...string) (*client.Subscription, error)

func subscribeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"c"},
			Usage:   "Exit after N messages (0 = until interrupted)",
		},
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "Serve Prometheus metrics on this address, e.g. :9121",
		},
		&cli.BoolFlag{
			Name:  "watch-config",
			Usage: "Apply log level changes from the config file while running",
		},
	}
}

// SubscribeCommand returns the subscribe command.
func SubscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Usage:     "Print the messages published to channels",
		ArgsUsage: "CHANNEL [CHANNEL ...]",
		Flags:     subscribeFlags(),
		Action: func(c *cli.Context) error {
			return subscribeAction(c, (*client.Client).Subscribe)
		},
	}
}

// PSubscribeCommand returns the psubscribe command.
func PSubscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "psubscribe",
		Usage:     "Print the messages published to channels matching patterns",
		ArgsUsage: "PATTERN [PATTERN ...]",
		Flags:     subscribeFlags(),
		Action: func(c *cli.Context) error {
			return subscribeAction(c, (*client.Client).PSubscribe)
		},
	}
}

// SSubscribeCommand returns the ssubscribe command.
func SSubscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "ssubscribe",
		Usage:     "Print the messages published to shard channels",
		ArgsUsage: "SHARDCHANNEL [SHARDCHANNEL ...]",
		Flags:     subscribeFlags(),
		Action: func(c *cli.Context) error {
			return subscribeAction(c, (*client.Client).SSubscribe)
		},
	}
}

func subscribeAction(c *cli.Context, subscribe subscribeFunc) error {
	names := c.Args().Slice()
	if len(names) == 0 {
		return errors.New("at least one channel is required")
	}
	env, err := envFrom(c)
	if err != nil {
		return err
	}

	var reg *metric.Registry
	if c.String("metrics-addr") != "" {
		reg = metric.NewRegistry()
		env.Metrics = reg
	}

	cl, err := env.Client()
	if err != nil {
		return err
	}
	sub, err := subscribe(cl, names...)
	if err != nil {
		return err
	}

	h := shutdown.NewHandler(shutdownTimeout)
	h.OnShutdown(func(context.Context) error {
		return sub.Close()
	})

	if reg != nil {
		srv, err := serveMetrics(env, reg, cl, c.String("metrics-addr"))
		if err != nil {
			_ = sub.Close()
			return err
		}
		h.OnShutdown(srv.Shutdown)
	}

	if c.Bool("watch-config") {
		w, err := watchConfig(env, !c.IsSet("log-level"))
		if err != nil {
			env.Logger.Warn("config watch disabled", "path", env.ConfigPath, "error", err)
		} else {
			h.OnShutdown(func(context.Context) error { return w.Stop() })
		}
	}

	if !env.Printer.Format().Structured() {
		fmt.Fprintln(env.Err, "Reading messages... (press Ctrl-C to quit)")
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- h.Wait(c.Context) }()

	count, received := c.Int("count"), 0
	for {
		select {
		case m, ok := <-sub.C:
			if !ok {
				h.Trigger()
				return <-waitErr
			}
			if err := env.Printer.PrintMessage(m); err != nil {
				env.Logger.Warn("print message", "channel", m.Channel, "error", err)
			}
			received++
			if count > 0 && received >= count {
				h.Trigger()
				return <-waitErr
			}
		case <-h.Done():
			return <-waitErr
		}
	}
}

// serveMetrics exposes reg on addr, with the state of cl as gauges.
func serveMetrics(env *Env, reg *metric.Registry, cl *client.Client, addr string) (*http.Server, error) {
	if err := reg.Register(metric.NewStateCollector(env.ProfileName(), cl.Transporter(), cl.Router())); err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			env.Logger.Error("metrics server", "error", err)
		}
	}()
	env.Logger.Info("serving metrics", "address", ln.Addr().String())
	return srv, nil
}

// watchConfig reloads the config file on change. The log level follows the
// file unless it was fixed on the command line.
func watchConfig(env *Env, followLevel bool) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(env.Logger.Slog()))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(env.ConfigPath); err != nil {
		_ = w.Stop()
		return nil, err
	}
	w.OnChange(func(path string) {
		cfg, err := config.Load(path)
		if err != nil {
			env.Logger.Warn("config reload failed", "path", path, "error", err)
			return
		}
		if followLevel {
			if err := logger.SetLevel(cfg.Log.Level); err != nil {
				env.Logger.Warn("config reload: log level unchanged", "error", err)
			}
		}
		env.Logger.Info("config reloaded", "path", path, "log_level", logger.GetLevel())
	})
	w.StartAsync()
	return w, nil
}

var _ metric.StateSource = (*transporter.Transporter)(nil)
