package session

import "errors"

var (
	// ErrLocationUnavailable is returned when neither a custom start nor a
	// device position is known.
	ErrLocationUnavailable = errors.New("start location unavailable")
	// ErrNoActiveRoute is returned by operations that need a current route.
	ErrNoActiveRoute = errors.New("no active route")
	// ErrRouteNotFound is returned when a wishlist id is unknown.
	ErrRouteNotFound = errors.New("route not found in wishlist")
	// ErrPlaceResolutionFailed is returned when a place prediction cannot be
	// turned into coordinates. The custom start is left unchanged.
	ErrPlaceResolutionFailed = errors.New("place resolution failed")
)
