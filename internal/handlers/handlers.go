package handlers

import (
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"roamfree/internal/actions"
	"roamfree/internal/auth"
	"roamfree/internal/database"
	"roamfree/internal/geocoding"
	"roamfree/internal/session"
	"roamfree/internal/validation"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// TemplateSet holds base templates and page templates separately
type TemplateSet struct {
	Base  *template.Template
	Pages map[string]string
	Funcs template.FuncMap
}

// Handler provides common handler utilities and dependencies
type Handler struct {
	Store     database.Store
	Sessions  *session.Manager
	Actions   actions.Actions
	Places    geocoding.PlaceSearch
	Auth      auth.Provider
	Templates *TemplateSet
	Logger    *slog.Logger
	// OpenURL opens a link in the system browser. Nil disables /api/v1/open-url.
	OpenURL func(url string) error
	// SecureCookies marks the profile cookie Secure; leave false for plain-http loopback use.
	SecureCookies bool
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// isHTMX checks if the request is an htmx request
func (h *Handler) isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	h.writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// decodeJSON reads a JSON body into v, answering 400 on failure
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.handleValidationError(w, "Invalid request body")
		return false
	}
	return true
}

// handleNotFound handles 404 errors
func (h *Handler) handleNotFound(w http.ResponseWriter, message string) {
	h.writeError(w, http.StatusNotFound, "NOT_FOUND", message, nil)
}

// handleValidationError handles 400 errors
func (h *Handler) handleValidationError(w http.ResponseWriter, message string) {
	h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", message, nil)
}

// handleInternalError handles 500 errors
func (h *Handler) handleInternalError(w http.ResponseWriter, err error) {
	h.logger().Error("internal error", "error", err)
	h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An error occurred. Please try again.", nil)
}

// handleSessionError maps session and validation errors to responses
func (h *Handler) handleSessionError(w http.ResponseWriter, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error(), verr.Fields)
	case errors.Is(err, session.ErrLocationUnavailable):
		h.writeError(w, http.StatusUnprocessableEntity, "LOCATION_UNAVAILABLE",
			"Your current location is required. Enable location services or set a custom start.", nil)
	case errors.Is(err, session.ErrNoActiveRoute):
		h.writeError(w, http.StatusConflict, "NO_ACTIVE_ROUTE", "A route must be generated first.", nil)
	case errors.Is(err, session.ErrRouteNotFound):
		h.handleNotFound(w, "Route not found in wishlist")
	case errors.Is(err, session.ErrPlaceResolutionFailed):
		h.writeError(w, http.StatusUnprocessableEntity, "PLACE_RESOLUTION_FAILED",
			"Could not get coordinates for the selected place.", nil)
	default:
		h.handleInternalError(w, err)
	}
}

// renderTemplate renders an HTML template
func (h *Handler) renderTemplate(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	// Always clone to avoid "cannot Clone after executed" error
	tmpl, err := h.Templates.Base.Clone()
	if err != nil {
		h.logger().Error("template clone error", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if pageContent, ok := h.Templates.Pages[name]; ok {
		// Page templates define "content" and render inside layout.html
		if _, err := tmpl.New(name).Parse(pageContent); err != nil {
			h.logger().Error("template parse error", "template", name, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if err := tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
			h.logger().Error("template execute error", "template", name, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	if err := tmpl.ExecuteTemplate(w, name, data); err != nil {
		h.logger().Error("template partial error", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
