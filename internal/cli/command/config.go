package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tagurl-go/internal/cli/config"
)

// ConfigCommand returns the config command group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect the CLI configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the effective configuration (secrets masked)",
				Action: func(c *cli.Context) error {
					return printResult(c, cliConfig(c).Sanitized())
				},
			},
			{
				Name:  "path",
				Usage: "Print the config file path in use",
				Action: func(c *cli.Context) error {
					path := c.String("config")
					if path == "" {
						path = config.DefaultConfigPath()
					}
					_, err := fmt.Fprintln(c.App.Writer, path)
					return err
				},
			},
		},
	}
}
