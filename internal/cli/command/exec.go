package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/rediswire/internal/telemetry/logger"
)

// ErrServerReply is returned when the last reply of a one-shot command is
// a server error. The reply itself has already been printed.
var ErrServerReply = errors.New("server replied with an error")

// ExecCommand returns the exec command.
func ExecCommand() *cli.Command {
	return &cli.Command{
		Name:      "exec",
		Aliases:   []string{"x"},
		Usage:     "Send one command and print the reply",
		ArgsUsage: "COMMAND [ARG ...]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "repeat",
				Aliases: []string{"r"},
				Usage:   "Send the command N times, -1 for until interrupted",
				Value:   1,
			},
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Wait between repeats",
			},
			&cli.BoolFlag{
				Name:  "stdin",
				Usage: "Read the last argument from standard input",
			},
		},
		Action: func(c *cli.Context) error {
			args := c.Args().Slice()
			if len(args) == 0 {
				return errors.New("exec: command required")
			}
			env, err := envFrom(c)
			if err != nil {
				return err
			}
			if c.Bool("stdin") {
				data, err := io.ReadAll(env.In)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				args = append(args, string(data))
			}
			return runCommand(env.Context(c.Context), env, args, c.Int("repeat"), c.Duration("interval"))
		},
	}
}

// execAction is the root action: run the arguments as one command, or
// start the REPL when there are none.
func execAction(c *cli.Context) error {
	args := c.Args().Slice()
	if len(args) == 0 {
		return replAction(c)
	}
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	return runCommand(env.Context(c.Context), env, args, 1, 0)
}

func runCommand(ctx context.Context, env *Env, args []string, repeat int, interval time.Duration) error {
	switch strings.ToLower(args[0]) {
	case "subscribe", "psubscribe", "ssubscribe":
		return fmt.Errorf("use the %s command to receive messages", strings.ToLower(args[0]))
	}

	cl, err := env.Client()
	if err != nil {
		return err
	}

	cmd := make([]any, len(args))
	for i, a := range args {
		cmd[i] = a
	}

	var lastErr error
	for i := 0; repeat < 0 || i < repeat; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(interval):
			}
		} else if ctx.Err() != nil {
			return nil
		}

		reply, err := cl.Do(cmd...)
		if err != nil {
			logger.L(ctx).Debug("command failed", "args", logger.RedactCommand(args), "error", err)
			return err
		}
		if err := env.Printer.PrintReply(reply); err != nil {
			return err
		}
		lastErr = nil
		if reply.IsError() {
			lastErr = ErrServerReply
		}
	}
	return lastErr
}
