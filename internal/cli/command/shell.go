package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/securestore/internal/cli/output"
	"github.com/yndnr/securestore/internal/cli/repl"
	"github.com/yndnr/securestore/internal/config"
	"github.com/yndnr/securestore/internal/infra/confloader"
	"github.com/yndnr/securestore/internal/telemetry/logger"
)

// MetricView is one metric sample.
type MetricView struct {
	Name   string  `json:"name"`
	Labels string  `json:"labels"`
	Value  float64 `json:"value"`
}

// ShellCommand returns the shell command.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Interactive shell (the shell process is one session)",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not read or write the history file",
			},
		},
		Action: runShell,
	}
}

func runShell(c *cli.Context) error {
	rt, err := EnsureRuntime(c)
	if err != nil {
		return err
	}
	log := getLogger(c)

	ctx, stop := rt.Context(c.Context)
	defer stop()

	history := repl.NewHistory("")
	if !c.Bool("no-history") {
		history = repl.NewHistory(repl.DefaultHistoryFile())
		if err := history.Load(); err != nil {
			log.Warn("failed to load shell history", "error", err)
		}
	}

	r := repl.New(repl.WithIO(c.App.Reader, c.App.Writer), repl.WithHistory(history))
	registerShellCommands(r, rt, formatter(c))
	r.Completer().SetKeySource(func() []string {
		return rt.Storage.Keys(ctx)
	})

	if loader := getLoader(c); loader != nil {
		if w := watchConfig(loader, log); w != nil {
			defer w.Stop()
		}
	}

	fmt.Fprintf(c.App.Writer, "securestore %s, provider %s. Type help for commands.\n",
		c.App.Version, rt.Provider.Name())
	err = r.Run(ctx)

	if serr := history.Save(); serr != nil {
		log.Warn("failed to save shell history", "error", serr)
	}
	return err
}

// watchConfig reloads the log level when the configuration file changes.
// It returns nil when there is no file to watch.
func watchConfig(loader *confloader.Loader, log logger.Logger) *confloader.Watcher {
	path := loader.FilePath()
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(logger.Slog(log)))
	if err != nil {
		log.Warn("config watcher unavailable", "error", err)
		return nil
	}
	if err := w.Watch(path); err != nil {
		log.Warn("config watcher unavailable", "path", path, "error", err)
		w.Stop()
		return nil
	}
	w.OnChange(func(string) {
		reloadLogLevel(loader, log)
	})
	w.StartAsync()
	return w
}

func reloadLogLevel(loader *confloader.Loader, log logger.Logger) {
	cfg, err := config.Reload(loader)
	if err != nil {
		log.Warn("config reload failed", "error", err)
		return
	}
	if cfg.Log.Level != logger.GetLevel() {
		logger.SetLevel(cfg.Log.Level)
		log.Info("log level changed", "level", cfg.Log.Level)
	}
}

func registerShellCommands(r *repl.REPL, rt *Runtime, f output.Formatter) {
	r.Register(repl.Command{
		Name:    "set",
		Usage:   "set KEY JSON",
		Help:    "Store a JSON value",
		MinArgs: 2,
		Args:    2,
		Rest:    true,
		Run: func(ctx context.Context, w io.Writer, args []string) error {
			view, err := rt.set(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return f.Format(w, view)
		},
	})
	r.Register(repl.Command{
		Name:    "get",
		Usage:   "get KEY",
		Help:    "Read a value",
		MinArgs: 1,
		Args:    1,
		Run: func(ctx context.Context, w io.Writer, args []string) error {
			view := rt.get(ctx, args[0])
			if !view.Found {
				_, err := fmt.Fprintln(w, "(nil)")
				return err
			}
			_, err := fmt.Fprintln(w, string(view.Value))
			return err
		},
	})
	r.Register(repl.Command{
		Name:    "rm",
		Usage:   "rm KEY",
		Help:    "Remove an entry",
		MinArgs: 1,
		Args:    1,
		Run: func(ctx context.Context, w io.Writer, args []string) error {
			rt.Storage.RemoveItem(ctx, args[0])
			_, err := fmt.Fprintln(w, "OK")
			return err
		},
	})
	r.Register(repl.Command{
		Name:  "clear",
		Usage: "clear",
		Help:  "Remove every envelope written by the store",
		Run: func(ctx context.Context, w io.Writer, _ []string) error {
			n := rt.Storage.Clear(ctx)
			_, err := fmt.Fprintf(w, "removed %d entries\n", n)
			return err
		},
	})
	r.Register(repl.Command{
		Name:  "keys",
		Usage: "keys",
		Help:  "List stored keys",
		Run: func(ctx context.Context, w io.Writer, _ []string) error {
			for _, k := range rt.Storage.Keys(ctx) {
				fmt.Fprintln(w, k)
			}
			return nil
		},
	})
	r.Register(repl.Command{
		Name:    "raw",
		Usage:   "raw KEY",
		Help:    "Show the stored envelope of an entry",
		MinArgs: 1,
		Args:    1,
		Run: func(ctx context.Context, w io.Writer, args []string) error {
			raw, ok := rt.Storage.Raw(ctx, args[0])
			if !ok {
				raw = "(nil)"
			}
			_, err := fmt.Fprintln(w, raw)
			return err
		},
	})
	r.Register(repl.Command{
		Name:    "import",
		Usage:   "import KEY ENVELOPE",
		Help:    "Store an envelope verbatim, e.g. one written by an older version",
		MinArgs: 2,
		Args:    2,
		Rest:    true,
		Run: func(ctx context.Context, w io.Writer, args []string) error {
			if err := rt.Volatile.Set(ctx, args[0], args[1]); err != nil {
				return err
			}
			_, err := fmt.Fprintln(w, "OK")
			return err
		},
	})
	r.Register(repl.Command{
		Name:    "inspect",
		Usage:   "inspect KEY|ENVELOPE",
		Help:    "Classify a stored entry or a literal envelope",
		MinArgs: 1,
		Args:    1,
		Rest:    true,
		Run: func(ctx context.Context, w io.Writer, args []string) error {
			raw, ok := rt.Storage.Raw(ctx, args[0])
			if !ok {
				raw = args[0]
			}
			return f.Format(w, inspect(raw))
		},
	})
	r.Register(repl.Command{
		Name:  "fingerprint",
		Usage: "fingerprint",
		Help:  "Show the current environment fingerprint",
		Run: func(_ context.Context, w io.Writer, _ []string) error {
			return f.Format(w, rt.fingerprint())
		},
	})
	r.Register(repl.Command{
		Name:  "metrics",
		Usage: "metrics",
		Help:  "Show store metrics",
		Run: func(_ context.Context, w io.Writer, _ []string) error {
			views, err := rt.metrics()
			if err != nil {
				return err
			}
			return f.Format(w, views)
		},
	})
	r.Register(repl.Command{
		Name:  "complete",
		Usage: "complete PREFIX",
		Help:  "List completions for a partial command line",
		Args:  1,
		Rest:  true,
		Run: func(_ context.Context, w io.Writer, args []string) error {
			line := ""
			if len(args) > 0 {
				line = args[0]
			}
			for _, s := range r.Completer().Complete(line) {
				fmt.Fprintln(w, s)
			}
			return nil
		},
	})
}

func (r *Runtime) metrics() ([]MetricView, error) {
	samples, err := r.Metrics.Snapshot()
	if err != nil {
		return nil, err
	}
	views := make([]MetricView, 0, len(samples))
	for _, s := range samples {
		pairs := make([]string, 0, len(s.Labels))
		for k, v := range s.Labels {
			pairs = append(pairs, k+"="+v)
		}
		sort.Strings(pairs)
		views = append(views, MetricView{
			Name:   s.Name,
			Labels: strings.Join(pairs, ","),
			Value:  s.Value,
		})
	}
	return views, nil
}
