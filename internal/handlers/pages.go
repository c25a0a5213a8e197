package handlers

import (
	"net/http"

	"roamfree/internal/models"
	"roamfree/internal/session"
)

// PageData is passed to the page templates
type PageData struct {
	Title       string
	ActivePage  string
	Snapshot    session.Snapshot
	Form        session.GenerateForm
	Preferences []PreferenceOption
}

// PreferenceOption is a checkbox on the generate form
type PreferenceOption struct {
	Value models.AttractionPreference `json:"value"`
	Label string                      `json:"label"`
}

func preferenceOptions() []PreferenceOption {
	out := make([]PreferenceOption, 0, len(models.AllPreferences))
	for _, p := range models.AllPreferences {
		out = append(out, PreferenceOption{Value: p, Label: p.Label()})
	}
	return out
}

// HandleIndexPage handles GET /
func (h *Handler) HandleIndexPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	h.renderTemplate(w, "index.html", PageData{
		Title:       "Plan",
		ActivePage:  "index",
		Snapshot:    sess.Snapshot(),
		Form:        session.DefaultGenerateForm,
		Preferences: preferenceOptions(),
	})
}

// HandleLoginPage handles GET /login. Signed-in profiles go straight to the planner.
func (h *Handler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	ok, err := h.Auth.Authorized(r.Context(), h.Sessions.KV(ProfileID(r.Context())))
	if err != nil {
		h.logger().Error("auth check failed", "error", err)
	}
	if ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.renderTemplate(w, "login.html", PageData{Title: "Sign in", ActivePage: "login"})
}

// HandleListPreferences handles GET /api/v1/preferences
func (h *Handler) HandleListPreferences(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, preferenceOptions())
}
