package handler

import (
	"net/http"

	"github.com/yndnr/tagurl-go/internal/core/domain"
)

// handleDecode handles GET /nfc?nv=<token>.
func (h *Handler) handleDecode(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get(h.param)
	if token == "" {
		h.handleServiceError(w, r, domain.ErrMalformedInput.WithDetails("missing "+h.param+" parameter"))
		return
	}

	res, err := h.tags.Decode(r.Context(), token)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, NewReadingResponse(res))
}
