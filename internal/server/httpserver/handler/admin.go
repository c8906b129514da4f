package handler

import (
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/yndnr/tagurl-go/internal/core/domain"
	"github.com/yndnr/tagurl-go/internal/core/service"
	"github.com/yndnr/tagurl-go/internal/telemetry/logger"
)

// maxBodyBytes bounds admin request bodies.
const maxBodyBytes = 64 << 10

// handleListTags handles GET /admin/v1/tags.
func (h *Handler) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.keys.Tags(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.String()
	}
	h.writeJSON(w, r, http.StatusOK, ListTagsResponse{Tags: out})
}

// handleListKeys handles GET /admin/v1/tags/{tag_id}/keys.
func (h *Handler) handleListKeys(w http.ResponseWriter, r *http.Request) {
	tagID, ok := h.tagIDFromPath(w, r)
	if !ok {
		return
	}

	entries, err := h.keys.List(r.Context(), tagID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	items := make([]KeyResponse, len(entries))
	for i, e := range entries {
		items[i] = KeyResponse{ID: e.ID, Label: e.Label, CreatedAt: e.CreatedAt}
	}
	h.writeJSON(w, r, http.StatusOK, ListKeysResponse{TagID: tagID.String(), Keys: items})
}

// handleAddKey handles POST /admin/v1/tags/{tag_id}/keys.
func (h *Handler) handleAddKey(w http.ResponseWriter, r *http.Request) {
	tagID, ok := h.tagIDFromPath(w, r)
	if !ok {
		return
	}

	var req AddKeyRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	var (
		key       domain.TagKey
		generated bool
		err       error
	)
	if req.Key == "" {
		key, err = domain.GenerateTagKey()
		generated = true
	} else {
		key, err = domain.ParseTagKey(req.Key)
	}
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	entry, err := h.keys.Add(r.Context(), tagID, key, req.Label)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	logger.L(r.Context()).Info("tag key added", "tag_id", tagID.String(), "key_id", entry.ID)

	resp := AddKeyResponse{
		KeyResponse: KeyResponse{ID: entry.ID, Label: entry.Label, CreatedAt: entry.CreatedAt},
		TagID:       tagID.String(),
	}
	if generated {
		resp.Key = key.Hex()
	}
	h.writeJSON(w, r, http.StatusCreated, resp)
}

// handleRemoveKey handles DELETE /admin/v1/tags/{tag_id}/keys/{key_id}.
func (h *Handler) handleRemoveKey(w http.ResponseWriter, r *http.Request) {
	tagID, ok := h.tagIDFromPath(w, r)
	if !ok {
		return
	}
	keyID := r.PathValue("key_id")

	if err := h.keys.Remove(r.Context(), tagID, keyID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	logger.L(r.Context()).Info("tag key removed", "tag_id", tagID.String(), "key_id", keyID)

	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"tag_id":  tagID.String(),
		"removed": keyID,
	})
}

// handleIssue handles POST /admin/v1/tags/{tag_id}/urls.
func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	tagID, ok := h.tagIDFromPath(w, r)
	if !ok {
		return
	}

	var req IssueURLRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	idm, err := domain.ParseIDm(req.IDm)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	payload, err := hex.DecodeString(req.PayloadHex)
	if err != nil {
		h.handleServiceError(w, r, domain.ErrInvalidArgument.WithDetails("payload_hex is not hex"))
		return
	}

	resp, err := h.tags.Issue(r.Context(), &service.IssueRequest{
		TagID:   tagID,
		IDm:     idm,
		Payload: payload,
		Counter: req.Counter,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, resp)
}

func (h *Handler) tagIDFromPath(w http.ResponseWriter, r *http.Request) (domain.TagID, bool) {
	tagID, err := domain.ParseTagID(r.PathValue("tag_id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return tagID, false
	}
	return tagID, true
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		h.writeError(w, r, http.StatusBadRequest, domain.ErrBadRequest.Code, "invalid request body")
		return false
	}
	return true
}
