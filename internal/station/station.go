package station

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yndnr/tagurl-go/internal/core/codec"
	"github.com/yndnr/tagurl-go/internal/core/domain"
	"github.com/yndnr/tagurl-go/internal/core/payload"
	"github.com/yndnr/tagurl-go/internal/telemetry/metric"
)

// CounterSource hands out the next counter for a tag.
type CounterSource interface {
	Next(ctx context.Context, tagID domain.TagID) (uint32, error)
}

// Config describes one emulated tag.
type Config struct {
	TagID   domain.TagID
	Key     domain.TagKey
	BaseURL string

	// Payload returns the bytes embedded in the next URL. Nil embeds an
	// empty payload.
	Payload func() []byte
}

// Station produces tag URLs for the cards presented to its reader.
type Station struct {
	cfg      Config
	reader   Reader
	counters CounterSource
	metrics  *metric.Registry
	logger   *slog.Logger
}

// New creates a Station. reader may be nil (zero IDm); metrics may be nil.
func New(cfg Config, reader Reader, counters CounterSource, metrics *metric.Registry, logger *slog.Logger) (*Station, error) {
	if counters == nil {
		return nil, errors.New("station: counter source is required")
	}
	if reader == nil {
		reader = NoReader{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Station{cfg: cfg, reader: reader, counters: counters, metrics: metrics, logger: logger}, nil
}

// Touch reads the presented card, takes the next counter and returns the
// tag URL. The counter is consumed before encoding so a failed touch never
// reuses it.
func (s *Station) Touch(ctx context.Context) (string, error) {
	url, err := s.touch(ctx)
	if s.metrics != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		s.metrics.RecordStationTouch(result)
	}
	return url, err
}

func (s *Station) touch(ctx context.Context) (string, error) {
	idm, err := s.reader.ReadIDm(ctx)
	if err != nil {
		return "", fmt.Errorf("read IDm: %w", err)
	}

	counter, err := s.counters.Next(ctx, s.cfg.TagID)
	if err != nil {
		return "", fmt.Errorf("next counter: %w", err)
	}

	var body []byte
	if s.cfg.Payload != nil {
		body = s.cfg.Payload()
	}

	token, err := codec.Encode(domain.Reading{
		TagID:   s.cfg.TagID,
		IDm:     idm,
		Counter: counter,
		Payload: body,
	}, s.cfg.Key)
	if err != nil {
		return "", err
	}

	s.logger.Info("station touch", "tag_id", s.cfg.TagID.String(), "counter", counter)
	return codec.URL(s.cfg.BaseURL, token), nil
}

// DiagnosticsPayload returns a Payload func that embeds info, the base-station
// diagnostic record.
func DiagnosticsPayload(info func() payload.StationInfo) func() []byte {
	return func() []byte {
		return payload.Marshal(info())
	}
}
