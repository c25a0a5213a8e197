package handlers

import (
	"net/http"

	"roamfree/internal/geocoding"
)

const maxPredictions = 5

// HandlePlaceSearch handles GET /api/v1/places. Short queries and upstream
// failures both yield an empty list.
func (h *Handler) HandlePlaceSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	results := []geocoding.Prediction{}
	if len([]rune(query)) >= geocoding.MinQueryLength {
		found, err := h.Places.Search(r.Context(), query, maxPredictions)
		if err != nil {
			h.logger().Warn("place search failed", "query", query, "error", err)
		} else if found != nil {
			results = found
		}
	}

	if h.isHTMX(r) {
		h.renderTemplate(w, "place_suggestions.html", results)
		return
	}
	h.writeJSON(w, http.StatusOK, results)
}
