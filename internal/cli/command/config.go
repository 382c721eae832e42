package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/securestore/internal/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration (secrets masked)",
				Action: configShow,
			},
			{
				Name:   "path",
				Usage:  "Show the configuration file in use",
				Action: configPath,
			},
			{
				Name:      "validate",
				Usage:     "Validate a configuration file",
				ArgsUsage: "FILE",
				Action:    configValidate,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	return formatter(c).Format(c.App.Writer, config.Sanitize(GetConfig(c)))
}

func configPath(c *cli.Context) error {
	path := config.DefaultConfigPath()
	if loader := getLoader(c); loader != nil && loader.FilePath() != "" {
		path = loader.FilePath()
	}
	_, err := fmt.Fprintln(c.App.Writer, path)
	return err
}

func configValidate(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("config file required")
	}
	if _, _, err := config.Load(path, nil); err != nil {
		return err
	}
	_, err := fmt.Fprintf(c.App.Writer, "%s: OK\n", path)
	return err
}
