package command

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tagurl-go/internal/cli/connection"
	"github.com/yndnr/tagurl-go/internal/server/httpserver/handler"
)

// RemoteCommand returns the remote command group, which calls a running
// tagurl-server.
func RemoteCommand() *cli.Command {
	tagFlag := func() cli.Flag {
		return &cli.StringFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Tag ID (16 hex digits)", Required: true}
	}

	return &cli.Command{
		Name:  "remote",
		Usage: "Call a running tagurl-server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Aliases: []string{"s"}, Usage: "Server address (default from CLI config)"},
			&cli.StringFlag{Name: "admin-token", Usage: "Bearer token for /admin/v1", EnvVars: []string{"TAGURL_ADMIN_TOKEN"}},
		},
		Subcommands: []*cli.Command{
			{
				Name:  "health",
				Usage: "Show server health",
				Action: func(c *cli.Context) error {
					out, err := client(c).Health(c.Context)
					if err != nil {
						return err
					}
					return printResult(c, out)
				},
			},
			{
				Name:      "verify",
				Usage:     "Verify a tag URL on the server",
				ArgsUsage: "<token|url>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return errors.New("verify takes exactly one token or URL")
					}
					out, err := client(c).Verify(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					return printResult(c, out)
				},
			},
			{
				Name:  "tags",
				Usage: "List tags with keys",
				Action: func(c *cli.Context) error {
					tags, err := client(c).Tags(c.Context)
					if err != nil {
						return err
					}
					return printResult(c, tags)
				},
			},
			{
				Name:  "keys",
				Usage: "Manage the server's keys",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "List the keys of a tag",
						Flags: []cli.Flag{tagFlag()},
						Action: func(c *cli.Context) error {
							keys, err := client(c).Keys(c.Context, c.String("tag"))
							if err != nil {
								return err
							}
							return printResult(c, keys)
						},
					},
					{
						Name:  "add",
						Usage: "Add a key to a tag (generated by the server when --key is omitted)",
						Flags: []cli.Flag{
							tagFlag(),
							&cli.StringFlag{Name: "key", Aliases: []string{"k"}, Usage: "Tag key as 32 hex digits, or - to read it from stdin"},
							&cli.StringFlag{Name: "label", Usage: "Free-form label"},
						},
						Action: runRemoteKeysAdd,
					},
					{
						Name:      "remove",
						Aliases:   []string{"rm"},
						Usage:     "Remove a key from a tag",
						ArgsUsage: "<key-id>",
						Flags:     []cli.Flag{tagFlag()},
						Action: func(c *cli.Context) error {
							if c.NArg() != 1 {
								return errors.New("remove takes exactly one key id")
							}
							id := c.Args().First()
							if err := client(c).RemoveKey(c.Context, c.String("tag"), id); err != nil {
								return err
							}
							fmt.Fprintf(c.App.Writer, "removed key %s from tag %s\n", id, c.String("tag"))
							return nil
						},
					},
				},
			},
			{
				Name:  "issue",
				Usage: "Issue a tag URL with the tag's newest key",
				Flags: []cli.Flag{
					tagFlag(),
					&cli.StringFlag{Name: "idm", Usage: "Card IDm (16 hex digits)", Value: "0000000000000000"},
					&cli.Uint64Flag{Name: "counter", Aliases: []string{"n"}, Usage: "Tag counter (default: next stored counter)"},
					&cli.StringFlag{Name: "payload-hex", Usage: "Raw payload bytes in hex"},
				},
				Action: runRemoteIssue,
			},
		},
	}
}

// client builds a connection.Client from the remote flags and CLI config.
func client(c *cli.Context) *connection.Client {
	cfg := cliConfig(c)
	server, token := c.String("server"), c.String("admin-token")
	if server == "" {
		server = cfg.Server
	}
	if token == "" {
		token = cfg.AdminToken
	}
	return connection.NewClient(server, token)
}

func runRemoteKeysAdd(c *cli.Context) error {
	var key string
	if v := c.String("key"); v != "" {
		k, err := readKey(c, v)
		if err != nil {
			return err
		}
		key = k.Hex()
	}

	out, err := client(c).AddKey(c.Context, c.String("tag"), key, c.String("label"))
	if err != nil {
		return err
	}
	return printResult(c, out)
}

func runRemoteIssue(c *cli.Context) error {
	req := handler.IssueURLRequest{
		IDm:        c.String("idm"),
		PayloadHex: c.String("payload-hex"),
	}
	if c.IsSet("counter") {
		v := c.Uint64("counter")
		if v > 0xffffffff {
			return errors.New("--counter exceeds 32 bits")
		}
		n := uint32(v)
		req.Counter = &n
	}

	out, err := client(c).Issue(c.Context, c.String("tag"), req)
	if err != nil {
		return err
	}
	return printResult(c, out)
}
