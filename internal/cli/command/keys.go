package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tagurl-go/internal/core/domain"
	"github.com/yndnr/tagurl-go/internal/server/httpserver/handler"
	"github.com/yndnr/tagurl-go/internal/storage/keystore"
)

// TagSummary is a row of keys list without --tag.
type TagSummary struct {
	TagID string `json:"tag_id"`
	Keys  int    `json:"keys"`
}

// KeysCommand returns the keys command group, which edits a key table file.
func KeysCommand() *cli.Command {
	tagFlag := func(required bool) cli.Flag {
		return &cli.StringFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Tag ID (16 hex digits)", Required: required}
	}

	return &cli.Command{
		Name:  "keys",
		Usage: "Manage a key table file",
		Flags: []cli.Flag{keyTableFlag()},
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List tags, or the keys of one tag",
				Flags:  []cli.Flag{tagFlag(false)},
				Action: runKeysList,
			},
			{
				Name:  "add",
				Usage: "Add a key to a tag (generated when --key is omitted)",
				Flags: []cli.Flag{
					tagFlag(true),
					&cli.StringFlag{Name: "key", Aliases: []string{"k"}, Usage: "Tag key as 32 hex digits, or - to read it from stdin"},
					&cli.StringFlag{Name: "label", Usage: "Free-form label"},
				},
				Action: runKeysAdd,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove a key from a tag",
				ArgsUsage: "<key-id>",
				Flags:     []cli.Flag{tagFlag(true)},
				Action:    runKeysRemove,
			},
		},
	}
}

// openTable opens the key table named by --keys or the CLI config.
func openTable(c *cli.Context, opts ...keystore.FileOption) (*keystore.File, error) {
	opts = append(opts, keystore.WithFileLogger(cliLogger(c)))
	table, err := keystore.OpenFile(keyTablePath(c), opts...)
	if err != nil {
		return nil, fmt.Errorf("open key table: %w", err)
	}
	return table, nil
}

func runKeysList(c *cli.Context) error {
	table, err := openTable(c)
	if err != nil {
		return err
	}
	defer table.Close()

	if c.String("tag") == "" {
		tags, err := table.Tags(c.Context)
		if err != nil {
			return err
		}
		out := make([]TagSummary, 0, len(tags))
		for _, id := range tags {
			entries, err := table.List(c.Context, id)
			if err != nil {
				return err
			}
			out = append(out, TagSummary{TagID: id.String(), Keys: len(entries)})
		}
		return printResult(c, out)
	}

	tagID, err := domain.ParseTagID(c.String("tag"))
	if err != nil {
		return err
	}
	entries, err := table.List(c.Context, tagID)
	if err != nil {
		return err
	}
	out := make([]handler.KeyResponse, len(entries))
	for i, e := range entries {
		out[i] = handler.KeyResponse{ID: e.ID, Label: e.Label, CreatedAt: e.CreatedAt}
	}
	return printResult(c, out)
}

func runKeysAdd(c *cli.Context) error {
	tagID, err := domain.ParseTagID(c.String("tag"))
	if err != nil {
		return err
	}

	var (
		key       domain.TagKey
		generated bool
	)
	if v := c.String("key"); v != "" {
		key, err = readKey(c, v)
	} else {
		key, err = domain.GenerateTagKey()
		generated = true
	}
	if err != nil {
		return err
	}

	table, err := openTable(c, keystore.WithCreate())
	if err != nil {
		return err
	}
	defer table.Close()

	entry, err := table.Add(c.Context, tagID, key, c.String("label"))
	if err != nil {
		return err
	}

	resp := handler.AddKeyResponse{
		KeyResponse: handler.KeyResponse{ID: entry.ID, Label: entry.Label, CreatedAt: entry.CreatedAt},
		TagID:       tagID.String(),
	}
	if generated {
		resp.Key = key.Hex()
	}
	return printResult(c, resp)
}

func runKeysRemove(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("remove takes exactly one key id")
	}
	tagID, err := domain.ParseTagID(c.String("tag"))
	if err != nil {
		return err
	}

	table, err := openTable(c)
	if err != nil {
		return err
	}
	defer table.Close()

	id := c.Args().First()
	if err := table.Remove(c.Context, tagID, id); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "removed key %s from tag %s\n", id, tagID)
	return nil
}
