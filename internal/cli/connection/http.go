package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yndnr/tagurl-go/internal/core/codec"
	"github.com/yndnr/tagurl-go/internal/core/domain"
	"github.com/yndnr/tagurl-go/internal/core/service"
	"github.com/yndnr/tagurl-go/internal/infra/buildinfo"
	"github.com/yndnr/tagurl-go/internal/server/httpserver/handler"
)

// DefaultTimeout bounds every request made by a Client.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes bounds response bodies read by a Client.
const maxResponseBytes = 1 << 20

// APIError is an error envelope returned by the server.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("[%s] %s (request %s)", e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Is matches domain errors by code, so errors.Is(err, domain.ErrKeyNotFound)
// works across the wire.
func (e *APIError) Is(target error) bool {
	var de *domain.DomainError
	if errors.As(target, &de) {
		return de.Code == e.Code
	}
	return false
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithParam sets the query parameter carrying tokens on GET /nfc.
func WithParam(name string) Option {
	return func(c *Client) { c.param = name }
}

// Client calls the tagurl-server HTTP API.
type Client struct {
	baseURL   string
	token     string
	param     string
	userAgent string
	http      *http.Client
}

// UnixScheme prefixes a server address that is a local admin socket path.
const UnixScheme = "unix://"

// NewClient creates a client for server. A scheme-less address gets
// http://; unix:///path/to/admin.sock dials the server's local admin
// socket. token authenticates admin calls and may be empty for the public
// endpoints and the local socket.
func NewClient(server, token string, opts ...Option) *Client {
	hc := &http.Client{Timeout: DefaultTimeout}
	base := strings.TrimRight(server, "/")

	switch {
	case strings.HasPrefix(base, UnixScheme):
		path := strings.TrimPrefix(base, UnixScheme)
		hc.Transport = &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", path)
			},
		}
		base = "http://localhost"
	case !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://"):
		base = "http://" + base
	}

	c := &Client{
		baseURL:   base,
		token:     token,
		param:     codec.TokenParam,
		userAgent: "tagurl-cli/" + buildinfo.Get().Version,
		http:      hc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

// Verify decodes a token (or a full tag URL) on the server.
func (c *Client) Verify(ctx context.Context, tokenOrURL string) (*handler.ReadingResponse, error) {
	token, err := codec.TokenFromURL(tokenOrURL)
	if err != nil {
		return nil, err
	}
	q := url.Values{c.param: {token}}

	var out handler.ReadingResponse
	if err := c.do(ctx, http.MethodGet, "/nfc?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Tags lists the tags known to the server's key store.
func (c *Client) Tags(ctx context.Context) ([]string, error) {
	var out handler.ListTagsResponse
	if err := c.do(ctx, http.MethodGet, "/admin/v1/tags", nil, &out); err != nil {
		return nil, err
	}
	return out.Tags, nil
}

// Keys lists the key entries of a tag.
func (c *Client) Keys(ctx context.Context, tagID string) ([]handler.KeyResponse, error) {
	var out handler.ListKeysResponse
	if err := c.do(ctx, http.MethodGet, tagPath(tagID, "keys"), nil, &out); err != nil {
		return nil, err
	}
	return out.Keys, nil
}

// AddKey registers a key for a tag. An empty key asks the server to
// generate one, which is returned in the response.
func (c *Client) AddKey(ctx context.Context, tagID, key, label string) (*handler.AddKeyResponse, error) {
	var out handler.AddKeyResponse
	req := handler.AddKeyRequest{Key: key, Label: label}
	if err := c.do(ctx, http.MethodPost, tagPath(tagID, "keys"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveKey deletes one key entry.
func (c *Client) RemoveKey(ctx context.Context, tagID, keyID string) error {
	return c.do(ctx, http.MethodDelete, tagPath(tagID, "keys", keyID), nil, nil)
}

// Issue asks the server to encode a URL with the tag's newest key.
func (c *Client) Issue(ctx context.Context, tagID string, req handler.IssueURLRequest) (*service.IssueResponse, error) {
	var out service.IssueResponse
	if err := c.do(ctx, http.MethodPost, tagPath(tagID, "urls"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func tagPath(tagID string, parts ...string) string {
	p := "/admin/v1/tags/" + url.PathEscape(tagID)
	for _, s := range parts {
		p += "/" + url.PathEscape(s)
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, body, target any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return parseResponse(resp, target)
}

// envelope mirrors handler.Response with the data left undecoded.
type envelope struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

func parseResponse(resp *http.Response, target any) error {
	var env envelope
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&env)

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{
			Status:    resp.StatusCode,
			Code:      resp.Header.Get("X-Error-Code"),
			Message:   http.StatusText(resp.StatusCode),
			RequestID: resp.Header.Get(handler.RequestIDHeader),
		}
		if decodeErr == nil {
			if env.Code != "" {
				apiErr.Code = env.Code
			}
			if env.Message != "" {
				apiErr.Message = env.Message
			}
			if env.RequestID != "" {
				apiErr.RequestID = env.RequestID
			}
		}
		return apiErr
	}

	if decodeErr != nil {
		return fmt.Errorf("parse response: %w", decodeErr)
	}
	if target == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return fmt.Errorf("parse response data: %w", err)
	}
	return nil
}
