package command

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/rediswire/internal/cli/repl"
)

// ReplCommand returns the repl command.
func ReplCommand() *cli.Command {
	return &cli.Command{
		Name:   "repl",
		Usage:  "Start an interactive session",
		Action: replAction,
	}
}

func replAction(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	cl, err := env.Client()
	if err != nil {
		return err
	}
	opts, err := env.ClientOptions()
	if err != nil {
		return err
	}

	historyPath := env.Config.HistoryFile
	if historyPath == "" {
		historyPath = repl.DefaultHistoryPath()
	}
	history := repl.NewHistory(historyPath, repl.DefaultHistorySize)
	if err := history.Load(); err != nil {
		env.Logger.Warn("load history", "path", historyPath, "error", err)
	}
	defer func() {
		if err := history.Save(); err != nil {
			env.Logger.Warn("save history", "path", historyPath, "error", err)
		}
	}()

	var prompt func() string
	if interactive(env.In) {
		prompt = func() string {
			return repl.Prompt(opts.Host, opts.Port, cl.SelectedDB())
		}
	}

	r := repl.New(cl, env.Printer,
		repl.WithInput(env.In),
		repl.WithPrompt(prompt),
		repl.WithHistory(history),
		repl.WithLogger(env.Logger.Slog()),
	)
	return r.Run()
}

// interactive reports whether in is a terminal.
func interactive(in any) bool {
	f, ok := in.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
