// Package wishlist persists saved routes under the "wishlist" key.
package wishlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"roamfree/internal/database"
	"roamfree/internal/models"
)

// ErrPersistenceCorrupt is reported when the stored wishlist cannot be parsed.
// Load recovers from it by discarding the record.
var ErrPersistenceCorrupt = errors.New("persisted wishlist is corrupt")

// Repository reads and writes the wishlist through a KV store.
type Repository struct {
	kv     database.KV
	logger *slog.Logger
}

// NewRepository creates a repository over kv.
func NewRepository(kv database.KV, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{kv: kv, logger: logger}
}

// Load returns the stored wishlist. A missing record yields an empty list.
// A corrupt record is logged, deleted, and replaced by an empty list; the
// returned error is nil in that case so callers can carry on.
func (r *Repository) Load(ctx context.Context) ([]models.SavedRoute, error) {
	var routes []models.SavedRoute
	err := database.GetJSON(ctx, r.kv, database.KeyWishlist, &routes)

	var corrupt *database.CorruptValueError
	switch {
	case err == nil:
	case errors.Is(err, database.ErrNotFound):
		return []models.SavedRoute{}, nil
	case errors.As(err, &corrupt):
		r.logger.Warn("discarding corrupt wishlist",
			"error", fmt.Errorf("%w: %v", ErrPersistenceCorrupt, corrupt.Err))
		if derr := r.kv.Delete(ctx, database.KeyWishlist); derr != nil {
			r.logger.Warn("failed to delete corrupt wishlist", "error", derr)
		}
		return []models.SavedRoute{}, nil
	default:
		return nil, fmt.Errorf("wishlist.Load: %w", err)
	}

	if routes == nil {
		routes = []models.SavedRoute{}
	}
	return dedupe(routes), nil
}

// Save replaces the stored wishlist.
func (r *Repository) Save(ctx context.Context, routes []models.SavedRoute) error {
	if routes == nil {
		routes = []models.SavedRoute{}
	}
	if err := database.SetJSON(ctx, r.kv, database.KeyWishlist, routes); err != nil {
		return fmt.Errorf("wishlist.Save: %w", err)
	}
	return nil
}

// Contains reports whether a route with id is in routes.
func Contains(routes []models.SavedRoute, id string) bool {
	return indexOf(routes, id) >= 0
}

// Find returns the saved route with id.
func Find(routes []models.SavedRoute, id string) (models.SavedRoute, bool) {
	if i := indexOf(routes, id); i >= 0 {
		return routes[i], true
	}
	return models.SavedRoute{}, false
}

// Without returns routes minus the entry with id, and whether anything was removed.
func Without(routes []models.SavedRoute, id string) ([]models.SavedRoute, bool) {
	out := make([]models.SavedRoute, 0, len(routes))
	removed := false
	for _, r := range routes {
		if r.ID == id {
			removed = true
			continue
		}
		out = append(out, r)
	}
	return out, removed
}

func indexOf(routes []models.SavedRoute, id string) int {
	for i, r := range routes {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// dedupe keeps the first entry for each id, which preserves its savedAt.
func dedupe(routes []models.SavedRoute) []models.SavedRoute {
	seen := make(map[string]bool, len(routes))
	out := routes[:0]
	for _, r := range routes {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out
}
