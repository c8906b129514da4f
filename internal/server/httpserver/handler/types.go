package handler

import (
	"encoding/hex"
	"time"

	"github.com/yndnr/tagurl-go/internal/core/codec"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// ReadingResponse is the response body for GET /nfc.
type ReadingResponse struct {
	TagID      string `json:"tag_id"`
	IDm        string `json:"idm"`
	Counter    uint32 `json:"counter"`
	PayloadHex string `json:"payload_hex"`
	Station    any    `json:"station,omitempty"`
	KeyIndex   int    `json:"key_index"`
}

// NewReadingResponse converts a decode result.
func NewReadingResponse(res *codec.Result) ReadingResponse {
	return ReadingResponse{
		TagID:      res.Reading.TagID.String(),
		IDm:        res.Reading.IDm.String(),
		Counter:    res.Reading.Counter,
		PayloadHex: hex.EncodeToString(res.Reading.Payload),
		Station:    res.Reading.Station,
		KeyIndex:   res.KeyIndex,
	}
}

// KeyResponse describes one key entry. Key material is never listed.
type KeyResponse struct {
	ID        string    `json:"id"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListKeysResponse is the response body for GET /admin/v1/tags/{tag_id}/keys.
type ListKeysResponse struct {
	TagID string        `json:"tag_id"`
	Keys  []KeyResponse `json:"keys"`
}

// ListTagsResponse is the response body for GET /admin/v1/tags.
type ListTagsResponse struct {
	Tags []string `json:"tags"`
}

// AddKeyRequest is the request body for POST /admin/v1/tags/{tag_id}/keys.
// A key is generated when Key is empty.
type AddKeyRequest struct {
	Key   string `json:"key,omitempty"`
	Label string `json:"label,omitempty"`
}

// AddKeyResponse is the response body for POST /admin/v1/tags/{tag_id}/keys.
// Key is only set when the server generated it.
type AddKeyResponse struct {
	KeyResponse
	TagID string `json:"tag_id"`
	Key   string `json:"key,omitempty"`
}

// IssueURLRequest is the request body for POST /admin/v1/tags/{tag_id}/urls.
type IssueURLRequest struct {
	IDm        string  `json:"idm"`
	PayloadHex string  `json:"payload_hex,omitempty"`
	Counter    *uint32 `json:"counter,omitempty"`
}
