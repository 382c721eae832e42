package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/securestore/internal/cli/output"
	"github.com/yndnr/securestore/internal/config"
	"github.com/yndnr/securestore/internal/core/domain"
	"github.com/yndnr/securestore/internal/infra/buildinfo"
	"github.com/yndnr/securestore/internal/infra/confloader"
	"github.com/yndnr/securestore/internal/telemetry/logger"
)

// Metadata keys.
const (
	metaConfig  = "config"
	metaLoader  = "loader"
	metaLogger  = "logger"
	metaRuntime = "runtime"
)

// App creates the CLI application.
func App() *cli.App {
	app := &cli.App{
		Name:    "securestore",
		Usage:   "Session-scoped encrypted key/value storage",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			SetCommand(),
			GetCommand(),
			RoundtripCommand(),
			InspectCommand(),
			FingerprintCommand(),
			DeviceIDCommand(),
			ConfigCommand(),
			VersionCommand(),
			ShellCommand(),
		},
		Before: before,
		After:  after,
	}

	return app
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Configuration file (default: " + config.DefaultConfigPath() + ")",
			EnvVars: []string{"SECURESTORE_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "device-dir",
			Usage: "Persistent device store directory (empty keeps it in memory)",
		},
		&cli.BoolFlag{
			Name:  "no-crypto",
			Usage: "Run without a crypto provider (basic fallback only)",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Config string

	// Output format
	Output string // table, json, yaml
	Wide   bool

	LogLevel  string
	DeviceDir string
	NoCrypto  bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Config:    c.String("config"),
		Output:    c.String("output"),
		Wide:      c.Bool("wide"),
		LogLevel:  c.String("log-level"),
		DeviceDir: c.String("device-dir"),
		NoCrypto:  c.Bool("no-crypto"),
	}
}

// overrides maps explicitly set flags onto configuration keys.
func overrides(c *cli.Context) map[string]any {
	flags := ParseGlobalFlags(c)
	out := make(map[string]any)
	if c.IsSet("log-level") {
		out["log.level"] = flags.LogLevel
	}
	if c.IsSet("device-dir") {
		out["storage.device_dir"] = flags.DeviceDir
	}
	if flags.NoCrypto {
		out["crypto.provider"] = "none"
	}
	return out
}

func before(c *cli.Context) error {
	if _, err := output.ParseFormat(c.String("output")); err != nil {
		return err
	}

	cfg, loader, err := config.Load(c.String("config"), overrides(c))
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)
	log.Debug("config loaded", "path", loader.FilePath(), "layers", loader.Layers())

	c.App.Metadata[metaConfig] = cfg
	c.App.Metadata[metaLoader] = loader
	c.App.Metadata[metaLogger] = log
	return nil
}

func after(c *cli.Context) error {
	if rt, ok := c.App.Metadata[metaRuntime].(*Runtime); ok {
		delete(c.App.Metadata, metaRuntime)
		return rt.Close()
	}
	return nil
}

// GetConfig retrieves the effective configuration from context.
func GetConfig(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[metaConfig].(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

func getLoader(c *cli.Context) *confloader.Loader {
	loader, _ := c.App.Metadata[metaLoader].(*confloader.Loader)
	return loader
}

func getLogger(c *cli.Context) logger.Logger {
	if l, ok := c.App.Metadata[metaLogger].(logger.Logger); ok {
		return l
	}
	return logger.Default()
}

// EnsureRuntime returns the runtime of this invocation, building it on
// first use. It is closed by the App's After hook.
func EnsureRuntime(c *cli.Context) (*Runtime, error) {
	if rt, ok := c.App.Metadata[metaRuntime].(*Runtime); ok {
		return rt, nil
	}
	rt, err := NewRuntime(GetConfig(c), getLogger(c))
	if err != nil {
		return nil, err
	}
	c.App.Metadata[metaRuntime] = rt
	return rt, nil
}

// formatter returns the formatter selected by --output.
func formatter(c *cli.Context) output.Formatter {
	flags := ParseGlobalFlags(c)
	format, err := output.ParseFormat(flags.Output)
	if err != nil {
		format = output.FormatTable
	}
	return output.NewFormatter(format, flags.Wide)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}

// ExitCode maps err to a process exit status: 2 for bad data or input,
// 3 for an unusable environment, 1 otherwise.
func ExitCode(err error) int {
	switch domain.ClassOf(err) {
	case domain.ClassData:
		return 2
	case domain.ClassEnvironment:
		return 3
	default:
		return 1
	}
}
