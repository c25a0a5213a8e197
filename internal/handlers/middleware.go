package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProfileCookie names the cookie identifying a browser profile.
const ProfileCookie = "roamfree_profile"

const profileCookieMaxAge = 365 * 24 * time.Hour

type profileKey struct{}

// ProfileID returns the profile attached by WithProfile
func ProfileID(ctx context.Context) string {
	id, _ := ctx.Value(profileKey{}).(string)
	return id
}

// WithProfile attaches the caller's profile id, issuing a new cookie when
// the request has none or an invalid one.
func (h *Handler) WithProfile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(ProfileCookie); err == nil {
			if parsed, err := uuid.Parse(c.Value); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     ProfileCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int(profileCookieMaxAge.Seconds()),
				HttpOnly: true,
				Secure:   h.SecureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), profileKey{}, id)))
	})
}

// RequireAuth rejects signed-out profiles. Pages redirect to /login and
// API calls get 401.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, err := h.Auth.Authorized(r.Context(), h.Sessions.KV(ProfileID(r.Context())))
		if err != nil {
			h.handleInternalError(w, err)
			return
		}
		if ok {
			next.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			h.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Sign in to continue.", nil)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
}
