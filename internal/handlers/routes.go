package handlers

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Version is reported by the health endpoint and the CLI. It is overridden at build time.
var Version = "dev"

// Routes wires every page and API endpoint. Global middleware, static
// files and metrics are mounted by the server.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.WithProfile)

	r.Get("/login", h.HandleLoginPage)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.HandleHealthCheck)
		r.Get("/preferences", h.HandleListPreferences)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.HandleLogin)
			r.Post("/logout", h.HandleLogout)
			r.Get("/status", h.HandleAuthStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)

			r.Route("/session", func(r chi.Router) {
				r.Get("/", h.HandleGetSession)
				r.Post("/generate", h.HandleGenerate)
				r.Post("/adjust", h.HandleAdjust)
				r.Post("/position", h.HandleReportPosition)
				r.Put("/start", h.HandleSetCustomStart)
				r.Delete("/start", h.HandleClearCustomStart)
				r.Post("/start/place", h.HandleSetStartFromPlace)
				r.Get("/map", h.HandleMapView)
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", h.HandleListWishlist)
				r.Post("/", h.HandleAddToWishlist)
				r.Delete("/{id}", h.HandleRemoveFromWishlist)
				r.Post("/{id}/select", h.HandleSelectWishlistItem)
			})

			r.Get("/places", h.HandlePlaceSearch)
			r.With(middleware.AllowContentType("application/json")).Post("/open-url", h.HandleOpenURL)

			r.Route("/actions", func(r chi.Router) {
				r.Post("/generate", h.HandleGenerateAction)
				r.Post("/summarize", h.HandleSummarizeAction)
				r.Post("/adjust", h.HandleAdjustAction)
			})
		})
	})

	r.With(h.RequireAuth).Get("/", h.HandleIndexPage)

	return r
}
