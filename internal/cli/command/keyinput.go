package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/yndnr/tagurl-go/internal/core/codec"
	"github.com/yndnr/tagurl-go/internal/core/domain"
	"github.com/yndnr/tagurl-go/internal/storage/keystore"
)

func keyFlag() *cli.StringSliceFlag {
	return &cli.StringSliceFlag{
		Name:    "key",
		Aliases: []string{"k"},
		Usage:   "Tag key as 32 hex digits, or - to read it from stdin (repeat for several keys, newest first)",
	}
}

func keyTableFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "keys",
		Usage: "Key table file (default from CLI config)",
	}
}

// keyTablePath resolves --keys against the CLI config.
func keyTablePath(c *cli.Context) string {
	if p := c.String("keys"); p != "" {
		return p
	}
	return cliConfig(c).KeyTable
}

// readKey parses a hex key. "-" reads it from stdin, without echo when
// stdin is a terminal.
func readKey(c *cli.Context, value string) (domain.TagKey, error) {
	if value != "-" {
		return domain.ParseTagKey(value)
	}

	if f, ok := c.App.Reader.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(c.App.ErrWriter, "Tag key (hex): ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.App.ErrWriter)
		if err != nil {
			return domain.TagKey{}, fmt.Errorf("read key: %w", err)
		}
		return domain.ParseTagKey(strings.TrimSpace(string(b)))
	}

	line, err := readLine(c.App.Reader)
	if err != nil {
		return domain.TagKey{}, fmt.Errorf("read key: %w", err)
	}
	return domain.ParseTagKey(line)
}

// readLine reads one line from r without the line ending.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readKeys parses every --key value. At most one may be "-".
func readKeys(c *cli.Context) ([]domain.TagKey, error) {
	values := c.StringSlice("key")
	keys := make([]domain.TagKey, 0, len(values))
	stdin := false
	for _, v := range values {
		if v == "-" {
			if stdin {
				return nil, errors.New("--key - may only be given once")
			}
			stdin = true
		}
		k, err := readKey(c, v)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// keyLookup returns the keys given with --key, or the key table.
func keyLookup(c *cli.Context) (codec.KeyLookup, func(), error) {
	keys, err := readKeys(c)
	if err != nil {
		return nil, nil, err
	}
	if len(keys) > 0 {
		return codec.Fixed(keys...), func() {}, nil
	}

	table, err := keystore.OpenFile(keyTablePath(c), keystore.WithFileLogger(cliLogger(c)))
	if err != nil {
		return nil, nil, fmt.Errorf("open key table: %w", err)
	}
	return table, func() { table.Close() }, nil
}
