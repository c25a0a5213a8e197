package handlers

import (
	"net/http"
	"strings"
)

type openURLRequest struct {
	URL string `json:"url"`
}

// HandleOpenURL handles POST /api/v1/open-url. The desktop shell uses it to
// open map links in the system browser; only http(s) URLs are accepted.
func (h *Handler) HandleOpenURL(w http.ResponseWriter, r *http.Request) {
	if h.OpenURL == nil {
		h.writeError(w, http.StatusNotImplemented, "NOT_SUPPORTED", "Opening links is not available", nil)
		return
	}

	var req openURLRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.URL == "" {
		h.handleValidationError(w, "URL is required")
		return
	}
	if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
		h.handleValidationError(w, "Only HTTP/HTTPS URLs are allowed")
		return
	}

	if err := h.OpenURL(req.URL); err != nil {
		h.logger().Error("failed to open url", "url", req.URL, "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to open URL", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
