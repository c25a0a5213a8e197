package models

import (
	"fmt"
	"strings"
	"time"
)

// Coordinates represents a geographic point
type Coordinates struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// DefaultCenter is used by the map when no other point is known (New York City)
var DefaultCenter = Coordinates{Lat: 40.7128, Lng: -74.0060}

// RouteLocation is a single stop suggested by the planning service
type RouteLocation struct {
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Description string  `json:"description"`
}

// Coords returns the location as Coordinates
func (l RouteLocation) Coords() Coordinates {
	return Coordinates{Lat: l.Latitude, Lng: l.Longitude}
}

// GeneratedRoute is the result of one successful generation.
// Locations are in visit order. TotalEstimatedTime is in minutes.
type GeneratedRoute struct {
	ID                 string          `json:"id"`
	RouteDescription   string          `json:"routeDescription"`
	Locations          []RouteLocation `json:"locations"`
	TotalEstimatedTime int             `json:"totalEstimatedTime"`
}

// Coordinates returns the visit-ordered points of the route
func (r *GeneratedRoute) Coordinates() []Coordinates {
	points := make([]Coordinates, 0, len(r.Locations))
	for _, loc := range r.Locations {
		points = append(points, loc.Coords())
	}
	return points
}

// Clone returns a deep copy so callers can hand routes out without sharing the slice
func (r *GeneratedRoute) Clone() *GeneratedRoute {
	if r == nil {
		return nil
	}
	c := *r
	if r.Locations != nil {
		c.Locations = make([]RouteLocation, len(r.Locations))
		copy(c.Locations, r.Locations)
	}
	return &c
}

// RouteSummary is a short narrative for a route
type RouteSummary struct {
	Summary string `json:"summary"`
}

// RouteAdjustment holds alternative route suggestions. The three sequences
// are index-aligned: position i in each describes the same alternative.
type RouteAdjustment struct {
	AlternativeRoutes     []string `json:"alternativeRoutes"`
	EstimatedArrivalTimes []string `json:"estimatedArrivalTimes"`
	ReasonsForSuggestion  []string `json:"reasonsForSuggestion"`
}

// Alternative is one row of a RouteAdjustment
type Alternative struct {
	Route       string `json:"route"`
	ArrivalTime string `json:"arrivalTime"`
	Reason      string `json:"reason"`
}

// Alternatives zips the three sequences by index. Missing secondary entries are left empty.
func (a *RouteAdjustment) Alternatives() []Alternative {
	out := make([]Alternative, len(a.AlternativeRoutes))
	for i, route := range a.AlternativeRoutes {
		out[i].Route = route
		if i < len(a.EstimatedArrivalTimes) {
			out[i].ArrivalTime = a.EstimatedArrivalTimes[i]
		}
		if i < len(a.ReasonsForSuggestion) {
			out[i].Reason = a.ReasonsForSuggestion[i]
		}
	}
	return out
}

// Clone returns a deep copy of the adjustment
func (a *RouteAdjustment) Clone() *RouteAdjustment {
	if a == nil {
		return nil
	}
	return &RouteAdjustment{
		AlternativeRoutes:     append([]string(nil), a.AlternativeRoutes...),
		EstimatedArrivalTimes: append([]string(nil), a.EstimatedArrivalTimes...),
		ReasonsForSuggestion:  append([]string(nil), a.ReasonsForSuggestion...),
	}
}

// SavedRoute is a wishlist entry. Identity is the embedded route ID.
type SavedRoute struct {
	GeneratedRoute
	SavedAt string `json:"savedAt"`
}

// NewSavedRoute stamps a route with the given save time
func NewSavedRoute(route GeneratedRoute, at time.Time) SavedRoute {
	return SavedRoute{
		GeneratedRoute: *route.Clone(),
		SavedAt:        at.UTC().Format(time.RFC3339),
	}
}

// NoticeVariant controls how a notice is rendered
type NoticeVariant string

const (
	NoticeDefault     NoticeVariant = "default"
	NoticeDestructive NoticeVariant = "destructive"
)

// Notice is a transient, dismissible message for the user
type Notice struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Variant     NoticeVariant `json:"variant"`
}

// AttractionPreference is one of the interests a user can pick on the generate form
type AttractionPreference string

const (
	PreferenceMonuments       AttractionPreference = "monuments"
	PreferenceMalls           AttractionPreference = "malls"
	PreferenceParks           AttractionPreference = "parks"
	PreferenceRestaurants     AttractionPreference = "restaurants"
	PreferenceMuseums         AttractionPreference = "museums"
	PreferenceCafes           AttractionPreference = "cafes"
	PreferenceHistoricalSites AttractionPreference = "historical_sites"
)

var preferenceLabels = map[AttractionPreference]string{
	PreferenceMonuments:       "Monuments",
	PreferenceMalls:           "Malls",
	PreferenceParks:           "Parks",
	PreferenceRestaurants:     "Restaurants",
	PreferenceMuseums:         "Museums",
	PreferenceCafes:           "Cafes",
	PreferenceHistoricalSites: "Historical Sites",
}

// AllPreferences lists preferences in display order
var AllPreferences = []AttractionPreference{
	PreferenceMonuments,
	PreferenceMalls,
	PreferenceParks,
	PreferenceRestaurants,
	PreferenceMuseums,
	PreferenceCafes,
	PreferenceHistoricalSites,
}

// Label returns the human-readable name, or the raw value for unknown preferences
func (p AttractionPreference) Label() string {
	if label, ok := preferenceLabels[p]; ok {
		return label
	}
	return string(p)
}

// Valid reports whether p is a known preference
func (p AttractionPreference) Valid() bool {
	_, ok := preferenceLabels[p]
	return ok
}

// JoinPreferenceLabels renders preferences as "Parks, Cafes"
func JoinPreferenceLabels(prefs []AttractionPreference) string {
	labels := make([]string, 0, len(prefs))
	for _, p := range prefs {
		labels = append(labels, p.Label())
	}
	return strings.Join(labels, ", ")
}

// FormatDuration renders minutes as "1hr 30min". Non-positive values render as "N/A".
func FormatDuration(minutes int) string {
	if minutes <= 0 {
		return "N/A"
	}
	hours := minutes / 60
	mins := minutes % 60
	switch {
	case hours == 0:
		return fmt.Sprintf("%dmin", mins)
	case mins == 0:
		return fmt.Sprintf("%dhr", hours)
	default:
		return fmt.Sprintf("%dhr %dmin", hours, mins)
	}
}

// FormatDistance renders meters as km with one decimal, or meters below 1 km
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}
