package service

import (
	"context"
	"errors"
	"time"

	"github.com/yndnr/tagurl-go/internal/core/codec"
	"github.com/yndnr/tagurl-go/internal/core/domain"
	"github.com/yndnr/tagurl-go/internal/telemetry/logger"
	"github.com/yndnr/tagurl-go/internal/telemetry/metric"
)

// CounterSource hands out per-tag counters for issued URLs.
type CounterSource interface {
	Next(ctx context.Context, tagID domain.TagID) (uint32, error)
}

// TagServiceConfig holds configuration for TagService.
type TagServiceConfig struct {
	// Parser is applied to authenticated payloads (default: raw bytes).
	Parser codec.PayloadParser

	// Parallelism is the number of keys tried at once (default: 1).
	Parallelism int

	// ReplayProtection rejects readings whose counter does not advance.
	ReplayProtection bool

	// ReplayCacheSize is the number of tags tracked (default: 100,000).
	ReplayCacheSize int

	// ReplayTTL is how long a tag's last counter is remembered (0: forever).
	ReplayTTL time.Duration

	// BaseURL prefixes issued tokens (default: codec.DefaultBaseURL).
	BaseURL string
}

// DefaultTagServiceConfig returns default configuration.
func DefaultTagServiceConfig() *TagServiceConfig {
	return &TagServiceConfig{
		Parser:          codec.RawPayload,
		Parallelism:     1,
		ReplayCacheSize: 100000,
		ReplayTTL:       24 * time.Hour,
		BaseURL:         codec.DefaultBaseURL,
	}
}

// TagService decodes and issues tag URLs against a key lookup.
type TagService struct {
	lookup   codec.KeyLookup
	counters CounterSource
	decoder  *codec.Decoder
	guard    *CounterGuard
	metrics  *metric.Registry
	baseURL  string
}

// NewTagService creates a TagService. counters may be nil, in which case
// Issue requires an explicit counter. metrics may be nil.
func NewTagService(lookup codec.KeyLookup, counters CounterSource, metrics *metric.Registry, cfg *TagServiceConfig) *TagService {
	if cfg == nil {
		cfg = DefaultTagServiceConfig()
	}

	s := &TagService{
		lookup:   lookup,
		counters: counters,
		decoder: codec.NewDecoder(
			codec.WithPayloadParser(cfg.Parser),
			codec.WithParallelism(cfg.Parallelism),
		),
		metrics: metrics,
		baseURL: cfg.BaseURL,
	}
	if cfg.ReplayProtection {
		s.guard = NewCounterGuard(cfg.ReplayCacheSize, cfg.ReplayTTL)
	}
	return s
}

// Decode authenticates token and returns the reading it carries. With
// replay protection on, a reading whose counter does not advance past the
// last accepted one for its tag fails with domain.ErrReplay.
func (s *TagService) Decode(ctx context.Context, token string) (*codec.Result, error) {
	start := time.Now()

	res, err := s.decoder.Decode(ctx, token, s.lookup)
	if err == nil && s.guard != nil {
		err = s.guard.Accept(res.Reading.TagID, res.Reading.Counter)
	}

	tried := 0
	if res != nil {
		tried = res.KeyIndex + 1
	}
	outcome := Outcome(err)
	if s.metrics != nil {
		s.metrics.ObserveDecode(outcome, tried, time.Since(start).Seconds())
	}

	log := logger.L(ctx)
	if err != nil {
		attrs := []any{"outcome", outcome, "error_code", domain.Code(err)}
		if res != nil {
			attrs = append(attrs, "tag_id", res.Reading.TagID.String(), "counter", res.Reading.Counter)
		}
		if errors.Is(err, domain.ErrKeyLookupFailed) || errors.Is(err, domain.ErrConfiguration) {
			log.Error("tag url decode failed", append(attrs, "error", err)...)
		} else {
			log.Info("tag url rejected", attrs...)
		}
		return nil, err
	}

	log.Debug("tag url decoded",
		"tag_id", res.Reading.TagID.String(),
		"counter", res.Reading.Counter,
		"key_index", res.KeyIndex,
		"candidates", res.Candidates,
	)
	return res, nil
}

// IssueRequest contains parameters for issuing a tag URL.
type IssueRequest struct {
	TagID   domain.TagID
	IDm     domain.IDm
	Payload []byte

	// Counter is used as-is when set; otherwise the next stored counter
	// for the tag is taken.
	Counter *uint32
}

// IssueResponse contains an issued tag URL.
type IssueResponse struct {
	URL     string `json:"url"`
	Token   string `json:"token"`
	Counter uint32 `json:"counter"`
}

// Issue encodes a reading with the newest key of the tag, the same way the
// tag firmware does on every encounter.
func (s *TagService) Issue(ctx context.Context, req *IssueRequest) (*IssueResponse, error) {
	keys, err := s.lookup.Keys(ctx, req.TagID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTagIdentifier) {
			return nil, err
		}
		return nil, domain.ErrKeyLookupFailed.WithCause(err)
	}
	if len(keys) == 0 {
		return nil, domain.ErrUnknownTag
	}

	var counter uint32
	switch {
	case req.Counter != nil:
		counter = *req.Counter
	case s.counters != nil:
		if counter, err = s.counters.Next(ctx, req.TagID); err != nil {
			return nil, domain.ErrStorageError.WithCause(err)
		}
	default:
		return nil, domain.ErrMissingArgument.WithDetails("counter")
	}

	token, err := codec.Encode(domain.Reading{
		TagID:   req.TagID,
		IDm:     req.IDm,
		Counter: counter,
		Payload: req.Payload,
	}, keys[0])
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncURLsIssued()
	}
	logger.L(ctx).Info("tag url issued", "tag_id", req.TagID.String(), "counter", counter)

	return &IssueResponse{URL: codec.URL(s.baseURL, token), Token: token, Counter: counter}, nil
}

// Outcome names the result of a decode for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrMalformedInput):
		return "malformed_input"
	case errors.Is(err, domain.ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, domain.ErrUnknownTag):
		return "unknown_tag"
	case errors.Is(err, domain.ErrNoMatchingKey):
		return "no_matching_key"
	case errors.Is(err, domain.ErrReplay):
		return "replay"
	case errors.Is(err, domain.ErrInvalidTagIdentifier):
		return "invalid_tag_id"
	case errors.Is(err, domain.ErrKeyLookupFailed):
		return "lookup_failed"
	case errors.Is(err, domain.ErrConfiguration):
		return "configuration"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
