package command

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tagurl-go/internal/core/codec"
	"github.com/yndnr/tagurl-go/internal/core/domain"
	"github.com/yndnr/tagurl-go/internal/core/payload"
	"github.com/yndnr/tagurl-go/internal/storage/keystore"
)

// EncodeResult is printed by the encode command.
type EncodeResult struct {
	TagID   string `json:"tag_id"`
	Counter uint32 `json:"counter"`
	Token   string `json:"token"`
	URL     string `json:"url"`
}

// stationFlags map --station-* flags to StationInfo fields.
var stationFlags = []struct {
	name  string
	usage string
	field func(*payload.StationInfo) *uint32
}{
	{"station-watchdog", "Watchdog reset count", func(s *payload.StationInfo) *uint32 { return &s.Watchdog }},
	{"station-external-reset", "External reset count", func(s *payload.StationInfo) *uint32 { return &s.ExternalReset }},
	{"station-power-reset", "Power-on reset count", func(s *payload.StationInfo) *uint32 { return &s.PowerReset }},
	{"station-serial-failure", "Serial failure count", func(s *payload.StationInfo) *uint32 { return &s.SerialFailure }},
	{"station-brown-out", "Brown-out reset count", func(s *payload.StationInfo) *uint32 { return &s.BrownOut }},
	{"station-battery", "Battery voltage in mV", func(s *payload.StationInfo) *uint32 { return &s.BatteryVoltage }},
}

// EncodeCommand returns the encode command.
func EncodeCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "tag-id", Aliases: []string{"t"}, Usage: "Tag ID (16 hex digits)", Required: true},
		&cli.StringFlag{Name: "idm", Usage: "Card IDm (16 hex digits)", Value: "0000000000000000"},
		&cli.Uint64Flag{Name: "counter", Aliases: []string{"n"}, Usage: "Tag counter", Required: true},
		keyFlag(),
		keyTableFlag(),
		&cli.StringFlag{Name: "payload-hex", Usage: "Raw payload bytes in hex"},
		&cli.StringFlag{Name: "base-url", Usage: "URL prefix (default from CLI config)"},
	}
	for _, sf := range stationFlags {
		flags = append(flags, &cli.UintFlag{Name: sf.name, Usage: sf.usage + " (embeds a station record)", Category: "Station payload"})
	}

	return &cli.Command{
		Name:      "encode",
		Usage:     "Build a tag URL",
		ArgsUsage: " ",
		Description: `Encodes a reading the way the tag firmware does. The key is taken from
--key, or else the newest key of the tag in the key table.`,
		Flags:  flags,
		Action: runEncode,
	}
}

func runEncode(c *cli.Context) error {
	tagID, err := domain.ParseTagID(c.String("tag-id"))
	if err != nil {
		return err
	}
	idm, err := domain.ParseIDm(c.String("idm"))
	if err != nil {
		return err
	}
	counter := c.Uint64("counter")
	if counter > 0xffffffff {
		return domain.ErrInvalidArgument.WithDetails("counter exceeds 32 bits")
	}
	body, err := encodePayload(c)
	if err != nil {
		return err
	}
	key, err := encodeKey(c, tagID)
	if err != nil {
		return err
	}

	reading := domain.Reading{TagID: tagID, IDm: idm, Counter: uint32(counter), Payload: body}
	token, err := codec.Encode(reading, key)
	if err != nil {
		return err
	}

	base := c.String("base-url")
	if base == "" {
		base = cliConfig(c).BaseURL
	}
	return printResult(c, EncodeResult{
		TagID:   tagID.String(),
		Counter: reading.Counter,
		Token:   token,
		URL:     codec.URL(base, token),
	})
}

func encodePayload(c *cli.Context) ([]byte, error) {
	var (
		info    payload.StationInfo
		station bool
	)
	for _, sf := range stationFlags {
		if c.IsSet(sf.name) {
			v := c.Uint(sf.name)
			if uint64(v) > 0xffffffff {
				return nil, domain.ErrInvalidArgument.WithDetails("--" + sf.name + " exceeds 32 bits")
			}
			*sf.field(&info) = uint32(v)
			station = true
		}
	}

	raw := c.String("payload-hex")
	switch {
	case station && raw != "":
		return nil, errors.New("--payload-hex cannot be combined with --station-* flags")
	case station:
		return payload.Marshal(info), nil
	case raw != "":
		b, err := hex.DecodeString(raw)
		if err != nil {
			return nil, domain.ErrInvalidArgument.WithDetails("payload-hex is not hex")
		}
		return b, nil
	}
	return nil, nil
}

func encodeKey(c *cli.Context, tagID domain.TagID) (domain.TagKey, error) {
	keys, err := readKeys(c)
	if err != nil {
		return domain.TagKey{}, err
	}
	if len(keys) > 1 {
		return domain.TagKey{}, errors.New("encode takes a single --key")
	}
	if len(keys) == 1 {
		return keys[0], nil
	}

	table, err := keystore.OpenFile(keyTablePath(c), keystore.WithFileLogger(cliLogger(c)))
	if err != nil {
		return domain.TagKey{}, fmt.Errorf("open key table: %w", err)
	}
	defer table.Close()

	tableKeys, err := table.Keys(c.Context, tagID)
	if err != nil {
		return domain.TagKey{}, err
	}
	if len(tableKeys) == 0 {
		return domain.TagKey{}, domain.ErrUnknownTag.WithDetails("no key for tag " + tagID.String() + " in " + table.Path())
	}
	return tableKeys[0], nil
}
