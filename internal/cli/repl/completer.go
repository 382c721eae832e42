package repl

import (
	"sort"
	"strings"
)

// Completer provides prefix completion for commands and their first
// argument (a stored key).
type Completer struct {
	commands func() []string
	keys     func() []string
}

// NewCompleter creates a Completer over a command name source.
func NewCompleter(commands func() []string) *Completer {
	return &Completer{commands: commands}
}

// SetKeySource sets the source of key names used to complete arguments.
func (c *Completer) SetKeySource(keys func() []string) {
	c.keys = keys
}

// Complete returns full-line suggestions for line.
func (c *Completer) Complete(line string) []string {
	name, arg, hasArg := strings.Cut(line, " ")
	if !hasArg {
		return withPrefix(c.commands(), name, "")
	}
	if c.keys == nil || strings.Contains(arg, " ") {
		return nil
	}
	return withPrefix(c.keys(), arg, name+" ")
}

func withPrefix(candidates []string, prefix, lead string) []string {
	var out []string
	for _, s := range candidates {
		if strings.HasPrefix(s, prefix) {
			out = append(out, lead+s)
		}
	}
	sort.Strings(out)
	return out
}
