package handlers

import (
	"net/http"

	"roamfree/internal/geo"
	"roamfree/internal/models"
	"roamfree/internal/session"
	"roamfree/internal/validation"
)

// sessionResponse is a snapshot with the notices drained in the same call
type sessionResponse struct {
	session.Snapshot
	Notices []models.Notice `json:"notices"`
}

// positionRequest carries either a fix or a geolocation failure
type positionRequest struct {
	Lat   *float64          `json:"lat"`
	Lng   *float64          `json:"lng"`
	Error *positionErrorReq `json:"error"`
}

type positionErrorReq struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type placeStartRequest struct {
	PlaceID string `json:"placeId"`
}

// currentSession loads or creates the caller's session
func (h *Handler) currentSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := h.Sessions.Get(r.Context(), ProfileID(r.Context()))
	if err != nil {
		h.handleInternalError(w, err)
		return nil, false
	}
	return sess, true
}

// HandleGetSession handles GET /api/v1/session
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	snap := sess.Snapshot()
	h.writeJSON(w, http.StatusOK, sessionResponse{Snapshot: snap, Notices: sess.DrainNotices()})
}

// HandleGenerate handles POST /api/v1/session/generate
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	form := session.DefaultGenerateForm
	if !h.decodeJSON(w, r, &form) {
		return
	}
	if err := sess.SubmitGenerate(r.Context(), form); err != nil {
		h.handleSessionError(w, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, sess.Snapshot())
}

// HandleAdjust handles POST /api/v1/session/adjust
func (h *Handler) HandleAdjust(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	var form session.AdjustForm
	if !h.decodeJSON(w, r, &form) {
		return
	}
	if err := sess.SubmitAdjust(r.Context(), form); err != nil {
		h.handleSessionError(w, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, sess.Snapshot())
}

// HandleReportPosition handles POST /api/v1/session/position
func (h *Handler) HandleReportPosition(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	var req positionRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if req.Error != nil {
		kind, err := geo.ParseErrorKind(req.Error.Code)
		if err != nil {
			h.handleValidationError(w, err.Error())
			return
		}
		sess.ReportPositionError(geo.NewPositionError(kind, req.Error.Message))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if req.Lat == nil || req.Lng == nil {
		h.handleValidationError(w, "lat and lng are required")
		return
	}
	pos := models.Coordinates{Lat: *req.Lat, Lng: *req.Lng}
	if err := validation.Struct(pos); err != nil {
		h.handleSessionError(w, err)
		return
	}
	sess.ReportPosition(pos)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetCustomStart handles PUT /api/v1/session/start
func (h *Handler) HandleSetCustomStart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	var pos models.Coordinates
	if !h.decodeJSON(w, r, &pos) {
		return
	}
	if err := validation.Struct(pos); err != nil {
		h.handleSessionError(w, err)
		return
	}
	sess.SetCustomStart(pos)
	h.writeJSON(w, http.StatusOK, pos)
}

// HandleClearCustomStart handles DELETE /api/v1/session/start
func (h *Handler) HandleClearCustomStart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	sess.ClearCustomStart()
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetStartFromPlace handles POST /api/v1/session/start/place
func (h *Handler) HandleSetStartFromPlace(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	var req placeStartRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.PlaceID == "" {
		h.handleValidationError(w, "placeId is required")
		return
	}
	pos, err := sess.SetCustomStartFromPlace(r.Context(), req.PlaceID)
	if err != nil {
		h.handleSessionError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, pos)
}

// HandleMapView handles GET /api/v1/session/map
func (h *Handler) HandleMapView(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, sess.MapView())
}
