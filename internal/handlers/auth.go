package handlers

import (
	"net/http"
)

type authStatus struct {
	Authorized bool `json:"authorized"`
}

// HandleLogin handles POST /api/v1/auth/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	profile := ProfileID(r.Context())
	if err := h.Auth.Login(r.Context(), h.Sessions.KV(profile)); err != nil {
		h.handleInternalError(w, err)
		return
	}
	h.logger().Info("profile signed in", "profile", profile)

	if h.isHTMX(r) {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, authStatus{Authorized: true})
}

// HandleLogout handles POST /api/v1/auth/logout. The profile's session is
// dropped so its background work stops.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	profile := ProfileID(r.Context())
	if err := h.Auth.Logout(r.Context(), h.Sessions.KV(profile)); err != nil {
		h.handleInternalError(w, err)
		return
	}
	h.Sessions.Delete(profile)
	h.logger().Info("profile signed out", "profile", profile)

	if h.isHTMX(r) {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, authStatus{Authorized: false})
}

// HandleAuthStatus handles GET /api/v1/auth/status
func (h *Handler) HandleAuthStatus(w http.ResponseWriter, r *http.Request) {
	ok, err := h.Auth.Authorized(r.Context(), h.Sessions.KV(ProfileID(r.Context())))
	if err != nil {
		h.handleInternalError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, authStatus{Authorized: ok})
}
