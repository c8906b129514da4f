package command

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tagurl-go/internal/core/domain"
	"github.com/yndnr/tagurl-go/pkg/token"
)

// KeygenResult is one generated key.
type KeygenResult struct {
	Key string `json:"key"`
}

// AdminTokenResult is a generated admin token and the digest to put in the
// server's admin_token setting.
type AdminTokenResult struct {
	Token  string `json:"token"`
	Digest string `json:"digest"`
}

// KeygenCommand returns the keygen command.
func KeygenCommand() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "Generate random tag keys",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "Number of keys", Value: 1},
			&cli.BoolFlag{Name: "admin-token", Usage: "Generate admin tokens instead of tag keys"},
		},
		Action: func(c *cli.Context) error {
			n := c.Int("count")
			if n < 1 || n > 1000 {
				return errors.New("--count must be between 1 and 1000")
			}

			if c.Bool("admin-token") {
				out := make([]AdminTokenResult, n)
				for i := range out {
					tok, err := token.Generate()
					if err != nil {
						return err
					}
					out[i] = AdminTokenResult{Token: tok, Digest: token.Hash(tok)}
				}
				return printResult(c, out)
			}

			out := make([]KeygenResult, n)
			for i := range out {
				k, err := domain.GenerateTagKey()
				if err != nil {
					return err
				}
				out[i] = KeygenResult{Key: k.Hex()}
			}
			return printResult(c, out)
		},
	}
}
