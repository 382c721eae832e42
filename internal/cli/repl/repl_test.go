package repl

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

func newTestREPL(input string) (*REPL, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return New(WithIO(strings.NewReader(input), out), WithPrompt("> ")), out
}

func echo() Command {
	return Command{
		Name:    "echo",
		Usage:   "echo KEY [JSON]",
		Help:    "Print arguments",
		MinArgs: 1,
		Args:    2,
		Rest:    true,
		Run: func(_ context.Context, w io.Writer, args []string) error {
			_, err := io.WriteString(w, strings.Join(args, "|")+"\n")
			return err
		},
	}
}

func TestREPL_Run_Exit(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"exit command", "exit\n"},
		{"quit command", "quit\n"},
		{"EOF", ""},
		{"empty lines then exit", "\n\n  \nexit\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestREPL(tt.input)
			if err := r.Run(context.Background()); err != nil {
				t.Errorf("Run() returned error: %v", err)
			}
		})
	}
}

func TestREPL_Run_Dispatch(t *testing.T) {
	r, out := newTestREPL("echo prefs {\"theme\": \"dark\"}\nbogus\necho\nexit\n")
	r.Register(echo())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{
		`prefs|{"theme": "dark"}`,
		`Error: unknown command "bogus"`,
		"Error: usage: echo KEY [JSON]",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestREPL_Run_LastLineWithoutNewline(t *testing.T) {
	r, out := newTestREPL("echo k 1")
	r.Register(echo())
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "k|1") {
		t.Errorf("output = %q", out.String())
	}
}

func TestREPL_Run_CancelledContext(t *testing.T) {
	r, out := newTestREPL("echo k 1\n")
	r.Register(echo())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("cancelled shell produced output %q", out.String())
	}
}

func TestREPL_Help(t *testing.T) {
	r, out := newTestREPL("")
	r.Register(echo())

	if err := r.Execute(context.Background(), "help"); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"echo KEY [JSON]", "Print arguments", "exit"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("help missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	r.Execute(context.Background(), "help echo")
	if !strings.HasPrefix(out.String(), "echo KEY [JSON]") {
		t.Errorf("help echo = %q", out.String())
	}
	if err := r.Execute(context.Background(), "help nope"); err == nil {
		t.Error("help for unknown command should fail")
	}
}

func TestREPL_HistoryCommand(t *testing.T) {
	r, out := newTestREPL("help\nhistory\nexit\n")
	r.Run(context.Background())
	if !strings.Contains(out.String(), "   1  help") {
		t.Errorf("history output:\n%s", out.String())
	}
}

func TestREPL_CommandError(t *testing.T) {
	r, out := newTestREPL("fail\n")
	r.Register(Command{Name: "fail", Usage: "fail", Run: func(context.Context, io.Writer, []string) error {
		return errors.New("boom")
	}})
	r.Run(context.Background())
	if !strings.Contains(out.String(), "Error: boom") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		max     int
		rest    bool
		want    []string
		wantErr bool
	}{
		{"empty", "", 2, false, nil, false},
		{"plain", "a b  c", 3, false, []string{"a", "b", "c"}, false},
		{"double quotes", `a "b c"`, 2, false, []string{"a", "b c"}, false},
		{"single quotes", `'x y' z`, 2, false, []string{"x y", "z"}, false},
		{"rest keeps json", `prefs {"a": [1, 2]}`, 2, true, []string{"prefs", `{"a": [1, 2]}`}, false},
		{"rest keeps quoted string", `k "hello world"`, 2, true, []string{"k", `"hello world"`}, false},
		{"rest single arg", `{"a": 1}`, 1, true, []string{`{"a": 1}`}, false},
		{"rest with fewer args", "k", 2, true, []string{"k"}, false},
		{"unterminated", `a "b`, 2, false, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := splitArgs(tt.in, tt.max, tt.rest)
			if (err != nil) != tt.wantErr {
				t.Fatalf("splitArgs() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitArgs() = %q, want %q", got, tt.want)
			}
		})
	}
}
