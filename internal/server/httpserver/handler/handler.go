package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yndnr/tagurl-go/internal/core/codec"
	"github.com/yndnr/tagurl-go/internal/core/domain"
	"github.com/yndnr/tagurl-go/internal/core/service"
	"github.com/yndnr/tagurl-go/internal/storage/keystore"
	"github.com/yndnr/tagurl-go/internal/telemetry/logger"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// rejectMessage is returned for every authentication failure so that an
// unknown tag cannot be told apart from a wrong key.
const rejectMessage = "tag url rejected"

// Config holds the dependencies of a Handler.
type Config struct {
	// Tags decodes and issues tag URLs. Required.
	Tags *service.TagService

	// Keys is the key table behind Tags. Admin routes are registered only
	// when it is set.
	Keys keystore.Store

	// Param is the query parameter holding the token (default: "nv").
	Param string

	// Ready reports whether the server can serve decodes. nil means always.
	Ready func(ctx context.Context) error

	Logger *slog.Logger
}

// Handler serves the HTTP API.
type Handler struct {
	tags   *service.TagService
	keys   keystore.Store
	ready  func(ctx context.Context) error
	param  string
	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates a Handler with its routes registered.
func New(cfg Config) *Handler {
	h := &Handler{
		tags:   cfg.Tags,
		keys:   cfg.Keys,
		ready:  cfg.Ready,
		param:  cfg.Param,
		logger: cfg.Logger,
		mux:    http.NewServeMux(),
	}
	if h.param == "" {
		h.param = codec.TokenParam
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// AdminEnabled reports whether the admin routes are registered.
func (h *Handler) AdminEnabled() bool {
	return h.keys != nil
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	h.mux.HandleFunc("GET /nfc", h.handleDecode)

	if h.keys != nil {
		h.mux.HandleFunc("GET /admin/v1/tags", h.handleListTags)
		h.mux.HandleFunc("GET /admin/v1/tags/{tag_id}/keys", h.handleListKeys)
		h.mux.HandleFunc("POST /admin/v1/tags/{tag_id}/keys", h.handleAddKey)
		h.mux.HandleFunc("DELETE /admin/v1/tags/{tag_id}/keys/{key_id}", h.handleRemoveKey)
		h.mux.HandleFunc("POST /admin/v1/tags/{tag_id}/urls", h.handleIssue)
	}
}

// writeJSON writes a JSON response with the standard envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := getRequestID(r)
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(RequestIDHeader, requestID)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with the standard envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID := getRequestID(r)
	response := NewErrorResponse(requestID, code, message)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.Header().Set(RequestIDHeader, requestID)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		logger.L(r.Context()).Error("internal error", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, domain.ErrInternalServer.Code, domain.ErrInternalServer.Message)
		return
	}

	status := de.Status()
	switch {
	case errors.Is(err, domain.ErrUnknownTag), errors.Is(err, domain.ErrNoMatchingKey):
		h.writeError(w, r, status, domain.ErrUnknownTag.Code, rejectMessage)
	case status >= http.StatusInternalServerError:
		logger.L(r.Context()).Error("request failed", "code", de.Code, "error", err)
		h.writeError(w, r, status, de.Code, de.Message)
	default:
		message := de.Message
		if de.Details != "" {
			message += ": " + de.Details
		}
		h.writeError(w, r, status, de.Code, message)
	}
}

// getRequestID extracts the request id set by the RequestID middleware.
func getRequestID(r *http.Request) string {
	if id := logger.RequestIDFromContext(r.Context()); id != "" {
		return id
	}
	return r.Header.Get(RequestIDHeader)
}
