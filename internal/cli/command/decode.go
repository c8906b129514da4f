package command

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tagurl-go/internal/core/codec"
	"github.com/yndnr/tagurl-go/internal/core/payload"
	"github.com/yndnr/tagurl-go/internal/server/httpserver/handler"
)

// DecodeCommand returns the decode command.
func DecodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Aliases:   []string{"verify"},
		Usage:     "Verify a tag URL offline and print the reading",
		ArgsUsage: "<token|url>",
		Description: `Accepts a bare token or a full tag URL. Keys come from --key, or else
the key table. Use - to read the token from stdin.`,
		Flags: []cli.Flag{
			keyFlag(),
			keyTableFlag(),
			&cli.StringFlag{Name: "payload", Usage: "Payload parser: raw or station", Value: "raw"},
			&cli.IntFlag{Name: "parallelism", Usage: "Keys tried concurrently (0 tries them one by one)"},
		},
		Action: runDecode,
	}
}

func runDecode(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("decode takes exactly one token or URL")
	}
	input := c.Args().First()
	if input == "-" {
		if containsStdinKey(c) {
			return errors.New("cannot read both the token and the key from stdin")
		}
		line, err := readLine(c.App.Reader)
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		input = line
	}

	token, err := codec.TokenFromURL(input)
	if err != nil {
		return err
	}
	parser, err := payload.ParserByName(c.String("payload"))
	if err != nil {
		return err
	}
	lookup, closeLookup, err := keyLookup(c)
	if err != nil {
		return err
	}
	defer closeLookup()

	dec := codec.NewDecoder(
		codec.WithPayloadParser(parser),
		codec.WithParallelism(c.Int("parallelism")),
	)
	res, err := dec.Decode(c.Context, token, lookup)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return printResult(c, handler.NewReadingResponse(res))
}

func containsStdinKey(c *cli.Context) bool {
	for _, v := range c.StringSlice("key") {
		if v == "-" {
			return true
		}
	}
	return false
}
