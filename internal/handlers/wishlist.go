package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// HandleListWishlist handles GET /api/v1/wishlist
func (h *Handler) HandleListWishlist(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, sess.Snapshot().Wishlist)
}

// HandleAddToWishlist handles POST /api/v1/wishlist. The active route is saved.
func (h *Handler) HandleAddToWishlist(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	if err := sess.AddToWishlist(r.Context()); err != nil {
		h.handleSessionError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sess.Snapshot().Wishlist)
}

// HandleRemoveFromWishlist handles DELETE /api/v1/wishlist/{id}
func (h *Handler) HandleRemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	if err := sess.RemoveFromWishlist(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSelectWishlistItem handles POST /api/v1/wishlist/{id}/select
func (h *Handler) HandleSelectWishlistItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	if err := sess.SelectWishlistItem(chi.URLParam(r, "id")); err != nil {
		h.handleSessionError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sess.Snapshot())
}
