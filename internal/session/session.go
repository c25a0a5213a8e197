// Package session holds the per-profile planning state: the active route and
// its summary and adjustment, the wishlist, the start location and the
// notices waiting to be shown. Long-running model calls run in the
// background and apply their results when they finish.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"roamfree/internal/actions"
	"roamfree/internal/distance"
	"roamfree/internal/geo"
	"roamfree/internal/geocoding"
	"roamfree/internal/models"
	"roamfree/internal/planning"
	"roamfree/internal/wishlist"
)

// distanceTimeout bounds the optional distance lookup between generate and summarize.
const distanceTimeout = 10 * time.Second

// Deps are the collaborators shared by every session.
type Deps struct {
	Actions  actions.Actions
	Places   geocoding.PlaceSearch
	Distance distance.Estimator
	Logger   *slog.Logger
	Now      func() time.Time
	NewID    func() string
}

func (d *Deps) setDefaults() {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	if d.Distance == nil {
		d.Distance = distance.Disabled{}
	}
}

// Session is the state of one profile.
type Session struct {
	id     string
	deps   Deps
	repo   *wishlist.Repository
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	plan        PlanMachine
	adjust      AdjustMachine
	route       *models.GeneratedRoute
	summary     *models.RouteSummary
	adjustment  *models.RouteAdjustment
	preferences []models.AttractionPreference
	wishlist    []models.SavedRoute
	customStart *models.Coordinates
	position    *geo.ReportedSource
	notices     []models.Notice
}

// New creates a session and loads its wishlist from repo.
func New(ctx context.Context, id string, deps Deps, repo *wishlist.Repository) (*Session, error) {
	deps.setDefaults()
	if deps.Actions == nil {
		return nil, errors.New("session.New: actions are required")
	}

	saved, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("session.New: %w", err)
	}

	bg, cancel := context.WithCancel(context.Background())
	return &Session{
		id:       id,
		deps:     deps,
		repo:     repo,
		logger:   deps.Logger.With("session", id),
		ctx:      bg,
		cancel:   cancel,
		wishlist: saved,
		position: geo.NewReportedSource(),
	}, nil
}

// ID returns the profile id
func (s *Session) ID() string { return s.id }

// Close cancels background work and waits for it to finish.
func (s *Session) Close() {
	s.cancel()
	s.wg.Wait()
}

// Wait blocks until in-flight background work finishes.
func (s *Session) Wait() {
	s.wg.Wait()
}

// startLocation returns the custom start if set, otherwise asks the device source.
func (s *Session) startLocation(ctx context.Context) (models.Coordinates, error) {
	s.mu.Lock()
	custom := s.customStart
	s.mu.Unlock()
	if custom != nil {
		return *custom, nil
	}

	pos, err := s.position.CurrentPosition(ctx)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	return pos, nil
}

// SubmitGenerate validates the form and starts the generate -> summarize chain.
// It returns once the chain is running; results land in the session state.
func (s *Session) SubmitGenerate(ctx context.Context, form GenerateForm) error {
	if err := form.Validate(); err != nil {
		return err
	}

	start, err := s.startLocation(ctx)
	if err != nil {
		s.mu.Lock()
		s.pushError("Location Needed", "Your current location is required to generate a route. Please enable location services.")
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.route = nil
	s.summary = nil
	s.adjustment = nil
	s.preferences = append([]models.AttractionPreference(nil), form.Preferences...)
	seq := s.plan.Start()
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("route generation started", "seq", seq, "radius_km", form.Radius, "time_limit_h", form.TimeLimit)
	go s.runPlan(seq, form, start)
	return nil
}

func (s *Session) runPlan(seq uint64, form GenerateForm, start models.Coordinates) {
	defer s.wg.Done()

	res := s.deps.Actions.GenerateExplorationRoute(s.ctx, form.Input(start))

	s.mu.Lock()
	if !s.plan.Current(seq) {
		s.mu.Unlock()
		s.logger.Debug("discarding stale generation", "seq", seq)
		return
	}
	if res.Failed() {
		s.plan.GenerateFailed(seq)
		s.pushError("Route Generation Failed", res.Error)
		s.mu.Unlock()
		return
	}
	route := res.Route.ToRoute(s.deps.NewID())
	s.route = route.Clone()
	s.plan.Generated(seq)
	s.push("Route Generated!", "Explore your new adventure.")
	s.mu.Unlock()

	s.logger.Info("route generated", "seq", seq, "route_id", route.ID, "locations", len(route.Locations))

	summaryInput := planning.SummarizeInput{
		RouteDescription:      route.RouteDescription,
		EstimatedTime:         fmt.Sprintf("%d minutes", route.TotalEstimatedTime),
		EstimatedDistance:     s.estimateDistance(start, &route),
		AttractionPreferences: models.JoinPreferenceLabels(form.Preferences),
	}
	sum := s.deps.Actions.SummarizeGeneratedRoute(s.ctx, summaryInput)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.plan.Summarized(seq) {
		s.logger.Debug("discarding stale summary", "seq", seq)
		return
	}
	if s.route == nil || s.route.ID != route.ID {
		// The user switched to another route while the summary was pending.
		return
	}
	if sum.Failed() {
		s.pushError("Route Summary Failed", sum.Error)
		return
	}
	s.summary = sum.Summary
}

// estimateDistance walks from start through every stop. An empty string
// means no distance is known.
func (s *Session) estimateDistance(start models.Coordinates, route *models.GeneratedRoute) string {
	if len(route.Locations) == 0 {
		return ""
	}
	ctx, cancel := context.WithTimeout(s.ctx, distanceTimeout)
	defer cancel()

	points := append([]models.Coordinates{start}, route.Coordinates()...)
	meters, err := s.deps.Distance.RouteDistance(ctx, points)
	if err != nil {
		if !errors.Is(err, distance.ErrDisabled) {
			s.logger.Warn("distance estimate unavailable", "route_id", route.ID, "error", err)
		}
		return ""
	}
	return models.FormatDistance(meters)
}

// SubmitAdjust asks for alternatives to the active route.
func (s *Session) SubmitAdjust(ctx context.Context, form AdjustForm) error {
	if err := form.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	hasRoute := s.route != nil
	s.mu.Unlock()

	var rejected error
	if !hasRoute {
		rejected = ErrNoActiveRoute
	} else if _, err := s.startLocation(ctx); err != nil {
		rejected = err
	}

	s.mu.Lock()
	if rejected == nil && s.route == nil {
		rejected = ErrNoActiveRoute
	}
	if rejected != nil {
		s.pushError("Cannot Adjust Route", "A route must be generated first, and your location is required.")
		s.mu.Unlock()
		return rejected
	}

	route := s.route.Clone()
	s.adjustment = nil
	seq := s.adjust.Start()
	s.wg.Add(1)
	s.mu.Unlock()

	input := planning.AdjustInput{
		CurrentRoute:      route.RouteDescription,
		TrafficConditions: form.TrafficConditions,
		TimeConstraints:   form.TimeConstraints,
		Radius:            adjustRadius(route),
	}
	s.logger.Info("route adjustment started", "seq", seq, "route_id", route.ID, "radius_m", input.Radius)
	go s.runAdjust(seq, route.ID, input)
	return nil
}

func (s *Session) runAdjust(seq uint64, routeID string, input planning.AdjustInput) {
	defer s.wg.Done()

	res := s.deps.Actions.AdjustExplorationRoute(s.ctx, input)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.adjust.Done(seq) {
		s.logger.Debug("discarding stale adjustment", "seq", seq)
		return
	}
	if s.route == nil || s.route.ID != routeID {
		s.logger.Debug("discarding adjustment for inactive route", "route_id", routeID)
		return
	}
	if res.Failed() {
		s.pushError("Route Adjustment Failed", res.Error)
		return
	}
	s.adjustment = res.Adjustment
	s.push("Route Adjustments Suggested", "Check out the alternative plans.")
}

// AddToWishlist saves the active route. Saving a route twice keeps the
// original entry and its timestamp.
func (s *Session) AddToWishlist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.route == nil {
		s.pushError("No Route to Save", "Generate a route before adding it to your wishlist.")
		return ErrNoActiveRoute
	}
	if wishlist.Contains(s.wishlist, s.route.ID) {
		s.push("Already in Wishlist", "This route is already saved in your wishlist.")
		return nil
	}

	next := append(append([]models.SavedRoute(nil), s.wishlist...), models.NewSavedRoute(*s.route, s.deps.Now()))
	if err := s.repo.Save(ctx, next); err != nil {
		s.pushError("Wishlist Not Saved", "Your wishlist could not be saved. Please try again.")
		return err
	}
	s.wishlist = next
	s.push("Added to Wishlist", "You can find this route in your wishlist.")
	return nil
}

// RemoveFromWishlist deletes a saved route. Removing the active route also
// clears it from the view.
func (s *Session) RemoveFromWishlist(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, removed := wishlist.Without(s.wishlist, id)
	if !removed {
		return ErrRouteNotFound
	}
	if err := s.repo.Save(ctx, next); err != nil {
		s.pushError("Wishlist Not Saved", "Your wishlist could not be saved. Please try again.")
		return err
	}
	s.wishlist = next
	if s.route != nil && s.route.ID == id {
		s.route = nil
		s.summary = nil
		s.adjustment = nil
	}
	s.push("Removed from Wishlist", "The route was removed from your wishlist.")
	return nil
}

// SelectWishlistItem makes a saved route active again.
func (s *Session) SelectWishlistItem(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved, ok := wishlist.Find(s.wishlist, id)
	if !ok {
		return ErrRouteNotFound
	}
	s.route = saved.GeneratedRoute.Clone()
	s.summary = &models.RouteSummary{Summary: "Saved route: " + saved.RouteDescription}
	s.adjustment = nil
	s.customStart = nil
	return nil
}

// SetCustomStart overrides the device position for the next submission.
func (s *Session) SetCustomStart(c models.Coordinates) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customStart = &c
}

// ClearCustomStart goes back to the device position.
func (s *Session) ClearCustomStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customStart = nil
}

// SetCustomStartFromPlace resolves a place prediction and uses it as the
// custom start. On failure the current override is kept.
func (s *Session) SetCustomStartFromPlace(ctx context.Context, placeID string) (models.Coordinates, error) {
	var coords models.Coordinates
	err := errors.New("place search is not configured")
	if s.deps.Places != nil {
		coords, err = s.deps.Places.Resolve(ctx, placeID)
	}
	if err != nil {
		s.logger.Warn("place resolution failed", "place_id", placeID, "error", err)
		s.mu.Lock()
		s.pushError("Place Not Found", "Could not get coordinates for the selected place.")
		s.mu.Unlock()
		return models.Coordinates{}, fmt.Errorf("%w: %w", ErrPlaceResolutionFailed, err)
	}

	s.SetCustomStart(coords)
	return coords, nil
}

// ReportPosition records a device fix.
func (s *Session) ReportPosition(c models.Coordinates) {
	s.position.Report(c)
}

// ReportPositionError records why the device could not report a fix.
func (s *Session) ReportPositionError(err *geo.PositionError) {
	s.position.ReportError(err)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushError("Geolocation Error", err.Error())
}

// DrainNotices returns pending notices and clears the queue.
func (s *Session) DrainNotices() []models.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.notices
	s.notices = nil
	if out == nil {
		out = []models.Notice{}
	}
	return out
}
