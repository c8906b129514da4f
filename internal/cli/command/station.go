package command

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tagurl-go/internal/cli/output"
	"github.com/yndnr/tagurl-go/internal/core/domain"
	"github.com/yndnr/tagurl-go/internal/station"
	"github.com/yndnr/tagurl-go/internal/storage"
	"github.com/yndnr/tagurl-go/internal/storage/counter"
)

// TouchResult is printed for every card presented to the station.
type TouchResult struct {
	URL string `json:"url"`
}

// ReaderInfo is a row of station readers.
type ReaderInfo struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// StationCommand returns the station command group.
func StationCommand() *cli.Command {
	touchFlags := []cli.Flag{
		&cli.StringFlag{Name: "tag-id", Aliases: []string{"t"}, Usage: "Tag ID (16 hex digits)", Required: true},
		keyFlag(),
		keyTableFlag(),
		&cli.IntFlag{Name: "reader", Aliases: []string{"r"}, Usage: "PC/SC reader index (default from CLI config)"},
		&cli.BoolFlag{Name: "no-reader", Usage: "Do not use a reader; every touch uses a zero IDm"},
		&cli.StringFlag{Name: "data-dir", Usage: "Directory of the persistent tag counter", Value: defaultStationDir()},
		&cli.Uint64Flag{Name: "start-counter", Usage: "Move the stored counter forward to this value first"},
		&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "Number of touches, 0 until interrupted", Value: 1},
		&cli.StringFlag{Name: "base-url", Usage: "URL prefix (default from CLI config)"},
		&cli.StringFlag{Name: "payload-hex", Usage: "Raw payload bytes in hex"},
	}
	for _, sf := range stationFlags {
		touchFlags = append(touchFlags, &cli.UintFlag{Name: sf.name, Usage: sf.usage + " (embeds a station record)", Category: "Station payload"})
	}

	return &cli.Command{
		Name:  "station",
		Usage: "Emulate a tag base station with a PC/SC reader",
		Subcommands: []*cli.Command{
			{
				Name:  "readers",
				Usage: "List attached PC/SC readers",
				Action: func(c *cli.Context) error {
					names, err := station.ListReaders()
					if err != nil {
						return err
					}
					out := make([]ReaderInfo, len(names))
					for i, n := range names {
						out[i] = ReaderInfo{Index: i, Name: n}
					}
					return printResult(c, out)
				},
			},
			{
				Name:  "touch",
				Usage: "Issue a tag URL for every card presented to the reader",
				Description: `Reads the IDm of each presented card, takes the next value of the
persistent tag counter and prints the resulting tag URL.`,
				Flags:  touchFlags,
				Action: runStationTouch,
			},
		},
	}
}

func defaultStationDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tagurl-station"
	}
	return filepath.Join(home, ".tagurl", "station")
}

func runStationTouch(c *cli.Context) error {
	tagID, err := domain.ParseTagID(c.String("tag-id"))
	if err != nil {
		return err
	}
	key, err := encodeKey(c, tagID)
	if err != nil {
		return err
	}
	body, err := encodePayload(c)
	if err != nil {
		return err
	}
	count := c.Int("count")
	if count < 0 {
		return errors.New("--count must not be negative")
	}

	log := cliLogger(c)
	kv, err := storage.NewBadgerEngine(storage.KVConfig{Dir: c.String("data-dir")}, log)
	if err != nil {
		return fmt.Errorf("open counter store: %w", err)
	}
	defer kv.Close()
	counters := counter.New(kv)

	if c.IsSet("start-counter") {
		v := c.Uint64("start-counter")
		if v > 0xffffffff {
			return domain.ErrInvalidArgument.WithDetails("start-counter exceeds 32 bits")
		}
		err := counters.Set(c.Context, tagID, uint32(v))
		if errors.Is(err, counter.ErrRewind) {
			cur, cerr := counters.Current(c.Context, tagID)
			if cerr != nil {
				return cerr
			}
			return domain.ErrInvalidArgument.WithDetails(
				fmt.Sprintf("start-counter %d is not ahead of the stored counter %d", v, cur))
		}
		if err != nil {
			return err
		}
	}

	var (
		reader     station.Reader
		readerName string
	)
	if !c.Bool("no-reader") {
		index := cliConfig(c).Reader
		if c.IsSet("reader") {
			index = c.Int("reader")
		}
		pcsc, err := station.OpenPCSC(index)
		if err != nil {
			return err
		}
		defer pcsc.Close()
		reader, readerName = pcsc, pcsc.Name()
	}

	base := c.String("base-url")
	if base == "" {
		base = cliConfig(c).BaseURL
	}
	st, err := station.New(station.Config{
		TagID:   tagID,
		Key:     key,
		BaseURL: base,
		Payload: func() []byte { return body },
	}, reader, counters, nil, log)
	if err != nil {
		return err
	}

	for i := 0; count == 0 || i < count; i++ {
		url, err := touchOnce(c, st, readerName)
		if err != nil {
			return err
		}
		if err := printResult(c, TouchResult{URL: url}); err != nil {
			return err
		}
	}
	return nil
}

// touchOnce runs one touch, animating a spinner while a reader waits for
// a card.
func touchOnce(c *cli.Context, st *station.Station, readerName string) (string, error) {
	if readerName == "" {
		return st.Touch(c.Context)
	}

	sp := output.NewSpinner(c.App.ErrWriter, "Waiting for a card on "+readerName)
	sp.Start()
	url, err := st.Touch(c.Context)
	if err != nil {
		sp.Fail(err.Error())
		return "", err
	}
	sp.Stop()
	return url, nil
}
