package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// ErrUsage reports a command invoked with the wrong arguments.
var ErrUsage = errors.New("usage")

// Command is a shell command.
type Command struct {
	Name  string
	Usage string
	Help  string

	// Args is the number of arguments the command accepts. With Rest set,
	// the last argument takes the remainder of the line verbatim so JSON
	// values may contain spaces.
	MinArgs int
	Args    int
	Rest    bool

	Run func(ctx context.Context, w io.Writer, args []string) error
}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	prompt    string
	commands  map[string]Command
	completer *Completer
	history   *History
}

// Option configures a REPL.
type Option func(*REPL)

// WithIO sets the input and output streams.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *REPL) {
		r.input = in
		r.output = out
	}
}

// WithPrompt sets the prompt.
func WithPrompt(prompt string) Option {
	return func(r *REPL) {
		r.prompt = prompt
	}
}

// WithHistory sets the command history.
func WithHistory(h *History) Option {
	return func(r *REPL) {
		r.history = h
	}
}

// New creates a new REPL instance.
func New(opts ...Option) *REPL {
	r := &REPL{
		input:    os.Stdin,
		output:   os.Stdout,
		prompt:   "securestore> ",
		commands: make(map[string]Command),
		history:  NewHistory(""),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.completer = NewCompleter(r.Names)
	r.Register(Command{
		Name:    "help",
		Usage:   "help [command]",
		Help:    "Show commands",
		Args:    1,
		Run:     r.help,
	})
	r.Register(Command{
		Name:  "history",
		Usage: "history",
		Help:  "Show command history",
		Run: func(_ context.Context, w io.Writer, _ []string) error {
			for i, e := range r.history.Entries() {
				fmt.Fprintf(w, "%4d  %s\n", i+1, e)
			}
			return nil
		},
	})
	return r
}

// Register adds a command, replacing any command with the same name.
func (r *REPL) Register(cmd Command) {
	r.commands[cmd.Name] = cmd
}

// Names returns the registered command names, sorted.
func (r *REPL) Names() []string {
	names := make([]string, 0, len(r.commands)+2)
	for name := range r.commands {
		names = append(names, name)
	}
	names = append(names, "exit", "quit")
	sort.Strings(names)
	return names
}

// Completer returns the shell completer.
func (r *REPL) Completer() *Completer {
	return r.completer
}

// Run reads and executes lines until exit, EOF, or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	reader := bufio.NewReader(r.input)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		fmt.Fprint(r.output, r.prompt)

		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := errors.Is(err, io.EOF)

		line = strings.TrimSpace(line)
		if line == "" {
			if eof {
				fmt.Fprintln(r.output)
				return nil
			}
			continue
		}

		r.history.Add(line)

		if line == "exit" || line == "quit" {
			return nil
		}

		if err := r.Execute(ctx, line); err != nil {
			fmt.Fprintf(r.output, "Error: %v\n", err)
		}
		if eof {
			return nil
		}
	}
}

// Execute runs one command line.
func (r *REPL) Execute(ctx context.Context, line string) error {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	cmd, ok := r.commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q (try help)", name)
	}

	args, err := splitArgs(strings.TrimSpace(rest), cmd.Args, cmd.Rest)
	if err != nil {
		return err
	}
	if len(args) < cmd.MinArgs || len(args) > cmd.Args {
		return fmt.Errorf("%w: %s", ErrUsage, cmd.Usage)
	}
	return cmd.Run(ctx, r.output, args)
}

func (r *REPL) help(_ context.Context, w io.Writer, args []string) error {
	if len(args) == 1 {
		cmd, ok := r.commands[args[0]]
		if !ok {
			return fmt.Errorf("unknown command %q", args[0])
		}
		fmt.Fprintf(w, "%s\n  %s\n", cmd.Usage, cmd.Help)
		return nil
	}
	for _, name := range r.Names() {
		cmd, ok := r.commands[name]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "  %-28s %s\n", cmd.Usage, cmd.Help)
	}
	fmt.Fprintf(w, "  %-28s %s\n", "exit", "Leave the shell (ends the session)")
	return nil
}

// splitArgs splits s into whitespace-separated arguments, honouring single
// and double quotes. With rest set and max > 0, the max-th argument is the
// remainder of s verbatim.
func splitArgs(s string, max int, rest bool) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quote   rune
		inArg   bool
	)

	for i, c := range s {
		if rest && max > 0 && len(args) == max-1 && !inArg && quote == 0 {
			return append(args, strings.TrimSpace(s[i:])), nil
		}
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				current.WriteRune(c)
			}
		case c == '"' || c == '\'':
			quote = c
			inArg = true
		case c == ' ' || c == '\t':
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}
		default:
			current.WriteRune(c)
			inArg = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inArg {
		args = append(args, current.String())
	}
	return args, nil
}
