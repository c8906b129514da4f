package command

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tagurl-go/internal/cli/config"
	"github.com/yndnr/tagurl-go/internal/cli/output"
	"github.com/yndnr/tagurl-go/internal/infra/buildinfo"
	"github.com/yndnr/tagurl-go/internal/telemetry/logger"
)

const (
	configKey = "config"
	loggerKey = "logger"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "tagurl-cli",
		Usage:   "Encode, verify and manage NFC smart-tag URLs",
		Version: buildinfo.Get().Version,
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			EncodeCommand(),
			DecodeCommand(),
			KeygenCommand(),
			KeysCommand(),
			StationCommand(),
			RemoteCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return fmt.Errorf("load cli config: %w", err)
			}
			if c.App.Metadata == nil {
				c.App.Metadata = map[string]any{}
			}
			c.App.Metadata[configKey] = cfg

			level := "warn"
			if c.Bool("verbose") {
				level = "debug"
			}
			l, err := logger.New(logger.Config{Level: level, Format: "text", Output: c.App.ErrWriter})
			if err != nil {
				return err
			}
			c.App.Metadata[loggerKey] = l
			return nil
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "CLI config file (default ~/.tagurl/cli.yaml)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Log debug messages to stderr",
		},
	}
}

// GlobalFlags are the flags available to all commands, resolved against
// the CLI config.
type GlobalFlags struct {
	Output output.Format
	Wide   bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) (*GlobalFlags, error) {
	name := c.String("output")
	if name == "" {
		name = cliConfig(c).Output
	}
	format, err := output.ParseFormat(name)
	if err != nil {
		return nil, err
	}
	return &GlobalFlags{Output: format, Wide: c.Bool("wide")}, nil
}

// cliConfig returns the configuration loaded in App's Before hook, or the
// defaults when a command runs outside App.
func cliConfig(c *cli.Context) *config.CLIConfig {
	if c.App != nil {
		if cfg, ok := c.App.Metadata[configKey].(*config.CLIConfig); ok {
			return cfg
		}
	}
	return config.Default()
}

// cliLogger returns the logger set up in App's Before hook.
func cliLogger(c *cli.Context) *slog.Logger {
	if c.App != nil {
		if l, ok := c.App.Metadata[loggerKey].(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}

// printResult writes data in the selected output format.
func printResult(c *cli.Context, data any) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}
	return output.NewFormatter(flags.Output, flags.Wide).Format(c.App.Writer, data)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
