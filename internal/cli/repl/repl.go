package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/yndnr/rediswire/internal/cli/output"
	"github.com/yndnr/rediswire/internal/telemetry/logger"
	"github.com/yndnr/rediswire/pkg/resp"
	"github.com/yndnr/rediswire/pkg/transporter"
)

// Executor runs one command. *client.Client satisfies it.
type Executor interface {
	Do(args ...any) (resp.Reply, error)
}

// Reconnector is implemented by executors that can re-establish a lost
// connection.
type Reconnector interface {
	Reconnect() error
}

// DefaultPrompt is shown when no prompt function is set.
const DefaultPrompt = "rediswire> "

// Option configures a REPL.
type Option func(*REPL)

// WithInput sets the input. Defaults to os.Stdin.
func WithInput(in io.Reader) Option {
	return func(r *REPL) { r.input = in }
}

// WithPrompt sets the prompt function. nil disables the prompt, which is
// what a non-interactive input wants.
func WithPrompt(fn func() string) Option {
	return func(r *REPL) { r.prompt = fn }
}

// WithHistory sets the history.
func WithHistory(h *History) Option {
	return func(r *REPL) { r.history = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *REPL) { r.logger = l }
}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	exec      Executor
	printer   *output.Printer
	input     io.Reader
	output    io.Writer
	prompt    func() string
	completer *Completer
	history   *History
	logger    *slog.Logger
}

// New creates a new REPL that runs commands on exec and prints replies
// with printer.
func New(exec Executor, printer *output.Printer, opts ...Option) *REPL {
	r := &REPL{
		exec:      exec,
		printer:   printer,
		input:     strings.NewReader(""),
		output:    printer.Writer(),
		prompt:    func() string { return DefaultPrompt },
		completer: NewCompleter(),
		history:   NewHistory("", DefaultHistorySize),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Prompt formats the redis-cli style prompt: "host:port> ", with "[db]"
// when a database other than 0 is selected, or "redis path> " for a unix
// socket.
func Prompt(host string, port, db int) string {
	addr := fmt.Sprintf("%s:%d", host, port)
	if port == 0 {
		addr = "redis " + host
	}
	if db > 0 {
		addr += fmt.Sprintf("[%d]", db)
	}
	return addr + "> "
}

// History returns the REPL history.
func (r *REPL) History() *History {
	return r.history
}

// Run reads and executes lines until exit, quit or the end of input.
func (r *REPL) Run() error {
	reader := bufio.NewReader(r.input)

	for {
		if r.prompt != nil {
			fmt.Fprint(r.output, r.prompt())
		}

		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		atEOF := err != nil

		if line = strings.TrimSpace(line); line != "" {
			if r.execute(line) {
				return nil
			}
		}
		if atEOF {
			if r.prompt != nil {
				fmt.Fprintln(r.output)
			}
			return nil
		}
	}
}

// execute runs one line and reports whether the REPL should stop.
func (r *REPL) execute(line string) bool {
	args, err := SplitArgs(line)
	if err != nil {
		r.printErr(err)
		return false
	}
	if len(args) == 0 {
		return false
	}
	r.history.Add(line)

	// "N CMD ..." runs CMD N times.
	repeat := 1
	if n, err := strconv.Atoi(args[0]); err == nil && len(args) > 1 {
		if n <= 0 {
			return false
		}
		repeat, args = n, args[1:]
	}

	switch strings.ToLower(args[0]) {
	case "exit", "quit":
		return true
	case "help":
		r.help(args[1:])
		return false
	case "history":
		for i, e := range r.history.Entries() {
			fmt.Fprintf(r.output, "%4d  %s\n", i+1, e)
		}
		return false
	case "clear":
		fmt.Fprint(r.output, "\033[H\033[2J")
		return false
	case "subscribe", "psubscribe", "ssubscribe", "monitor":
		r.printErr(fmt.Errorf("%s is not supported in interactive mode; use the %s command",
			strings.ToUpper(args[0]), strings.ToLower(args[0])))
		return false
	}

	cmd := make([]any, len(args))
	for i, a := range args {
		cmd[i] = a
	}
	for i := 0; i < repeat; i++ {
		reply, err := r.do(cmd)
		if err != nil {
			r.logger.Debug("command failed", "args", logger.RedactCommand(args), "error", err)
			r.printErr(err)
			continue
		}
		if err := r.printer.PrintReply(reply); err != nil {
			r.logger.Warn("print reply", "error", err)
		}
	}
	return false
}

// do runs cmd, reconnecting once when the connection was lost.
func (r *REPL) do(cmd []any) (resp.Reply, error) {
	reply, err := r.exec.Do(cmd...)
	if !errors.Is(err, transporter.ErrNotConnected) {
		return reply, err
	}
	rc, ok := r.exec.(Reconnector)
	if !ok {
		return reply, err
	}
	r.logger.Info("connection lost, reconnecting")
	if rerr := rc.Reconnect(); rerr != nil {
		return resp.Reply{}, fmt.Errorf("reconnect: %w", rerr)
	}
	return r.exec.Do(cmd...)
}

func (r *REPL) help(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(r.output, "Type \"help <command>\" for a command, \"help @<group>\" for a group.")
		fmt.Fprintf(r.output, "Groups: @%s\n", strings.Join(r.completer.Groups(), ", @"))
		return
	}

	if strings.HasPrefix(args[0], "@") {
		docs := r.completer.Group(args[0])
		if len(docs) == 0 {
			r.printErr(fmt.Errorf("unknown group %q", args[0]))
			return
		}
		for _, d := range docs {
			r.printDoc(d)
		}
		return
	}

	if d, ok := r.completer.Lookup(args[0]); ok {
		r.printDoc(d)
		return
	}
	if matches := r.completer.Complete(args[0]); len(matches) > 0 {
		fmt.Fprintf(r.output, "Did you mean: %s\n", strings.Join(matches, " "))
		return
	}
	r.printErr(fmt.Errorf("no help for %q", args[0]))
}

func (r *REPL) printDoc(d CommandDoc) {
	fmt.Fprintf(r.output, "\n  %s %s\n  summary: %s\n  group: %s\n", d.Name, d.Args, d.Summary, d.Group)
}

func (r *REPL) printErr(err error) {
	if perr := r.printer.PrintError(err); perr != nil {
		r.logger.Warn("print error", "error", perr)
	}
}
