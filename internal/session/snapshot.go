package session

import "roamfree/internal/models"

// Snapshot is a read-only copy of the session state.
type Snapshot struct {
	Generating     bool                          `json:"generating"`
	Summarizing    bool                          `json:"summarizing"`
	Adjusting      bool                          `json:"adjusting"`
	PlanState      PlanState                     `json:"planState"`
	Route          *models.GeneratedRoute        `json:"route"`
	Summary        *models.RouteSummary          `json:"summary"`
	Adjustment     *models.RouteAdjustment       `json:"adjustment"`
	Alternatives   []models.Alternative          `json:"alternatives"`
	InWishlist     bool                          `json:"inWishlist"`
	Wishlist       []models.SavedRoute           `json:"wishlist"`
	Preferences    []models.AttractionPreference `json:"preferences"`
	CustomStart    *models.Coordinates           `json:"customStart"`
	DeviceLocation *models.Coordinates           `json:"deviceLocation"`
	LocationError  string                        `json:"locationError,omitempty"`
	Notices        []models.Notice               `json:"notices"`
}

// Snapshot copies the current state. Notices are included but not drained.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Generating:  s.plan.Generating(),
		Summarizing: s.plan.Summarizing(),
		Adjusting:   s.adjust.Adjusting(),
		PlanState:   s.plan.State(),
		Route:       s.route.Clone(),
		Adjustment:  s.adjustment.Clone(),
		Wishlist:    append([]models.SavedRoute{}, s.wishlist...),
		Preferences: append([]models.AttractionPreference{}, s.preferences...),
		Notices:     append([]models.Notice{}, s.notices...),
	}
	if s.summary != nil {
		summary := *s.summary
		snap.Summary = &summary
	}
	if s.adjustment != nil {
		snap.Alternatives = s.adjustment.Alternatives()
	}
	if s.route != nil {
		for _, saved := range s.wishlist {
			if saved.ID == s.route.ID {
				snap.InWishlist = true
				break
			}
		}
	}
	if s.customStart != nil {
		c := *s.customStart
		snap.CustomStart = &c
	}
	if pos, ok := s.position.Position(); ok {
		snap.DeviceLocation = &pos
	}
	if err := s.position.LastError(); err != nil {
		snap.LocationError = err.Error()
	}
	return snap
}

// Map zoom levels: DefaultZoom when nothing is known, FocusZoom otherwise.
const (
	DefaultZoom = 12
	FocusZoom   = 14
)

// MapView is what the map widget renders.
type MapView struct {
	CenterPoint       models.Coordinates     `json:"centerPoint"`
	Zoom              int                    `json:"zoom"`
	Markers           []models.RouteLocation `json:"markers"`
	UserMarker        *models.Coordinates    `json:"userMarker,omitempty"`
	CustomStartMarker *models.Coordinates    `json:"customStartMarker,omitempty"`
}

// MapView centers on the custom start, then the device, then the first
// stop, then DefaultCenter.
func (s *Session) MapView() MapView {
	snap := s.Snapshot()

	view := MapView{
		CenterPoint:       models.DefaultCenter,
		Zoom:              DefaultZoom,
		Markers:           []models.RouteLocation{},
		UserMarker:        snap.DeviceLocation,
		CustomStartMarker: snap.CustomStart,
	}
	if snap.Route != nil {
		view.Markers = snap.Route.Locations
	}

	switch {
	case snap.CustomStart != nil:
		view.CenterPoint = *snap.CustomStart
	case snap.DeviceLocation != nil:
		view.CenterPoint = *snap.DeviceLocation
	case len(view.Markers) > 0:
		view.CenterPoint = view.Markers[0].Coords()
	default:
		return view
	}
	view.Zoom = FocusZoom
	return view
}
