package handlers

import (
	"net/http"

	"roamfree/internal/planning"
)

// HandleGenerateAction handles POST /api/v1/actions/generate.
// Failures are reported in the body's error field with status 200.
func (h *Handler) HandleGenerateAction(w http.ResponseWriter, r *http.Request) {
	var in planning.GenerateInput
	if !h.decodeJSON(w, r, &in) {
		return
	}
	h.writeJSON(w, http.StatusOK, h.Actions.GenerateExplorationRoute(r.Context(), in))
}

// HandleSummarizeAction handles POST /api/v1/actions/summarize
func (h *Handler) HandleSummarizeAction(w http.ResponseWriter, r *http.Request) {
	var in planning.SummarizeInput
	if !h.decodeJSON(w, r, &in) {
		return
	}
	h.writeJSON(w, http.StatusOK, h.Actions.SummarizeGeneratedRoute(r.Context(), in))
}

// HandleAdjustAction handles POST /api/v1/actions/adjust
func (h *Handler) HandleAdjustAction(w http.ResponseWriter, r *http.Request) {
	var in planning.AdjustInput
	if !h.decodeJSON(w, r, &in) {
		return
	}
	h.writeJSON(w, http.StatusOK, h.Actions.AdjustExplorationRoute(r.Context(), in))
}
