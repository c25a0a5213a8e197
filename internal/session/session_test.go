package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roamfree/internal/actions"
	"roamfree/internal/database"
	"roamfree/internal/geo"
	"roamfree/internal/geocoding"
	"roamfree/internal/models"
	"roamfree/internal/planning"
	"roamfree/internal/validation"
	"roamfree/internal/wishlist"
)

type fakeActions struct {
	mu             sync.Mutex
	generate       func(ctx context.Context, in planning.GenerateInput) actions.GenerateResult
	summarize      func(ctx context.Context, in planning.SummarizeInput) actions.SummarizeResult
	adjust         func(ctx context.Context, in planning.AdjustInput) actions.AdjustResult
	generateCalls  []planning.GenerateInput
	summarizeCalls []planning.SummarizeInput
	adjustCalls    []planning.AdjustInput
}

func (f *fakeActions) GenerateExplorationRoute(ctx context.Context, in planning.GenerateInput) actions.GenerateResult {
	f.mu.Lock()
	f.generateCalls = append(f.generateCalls, in)
	fn := f.generate
	f.mu.Unlock()
	if fn == nil {
		return actions.GenerateResult{Route: sampleOutput("A loop past the river")}
	}
	return fn(ctx, in)
}

func (f *fakeActions) SummarizeGeneratedRoute(ctx context.Context, in planning.SummarizeInput) actions.SummarizeResult {
	f.mu.Lock()
	f.summarizeCalls = append(f.summarizeCalls, in)
	fn := f.summarize
	f.mu.Unlock()
	if fn == nil {
		return actions.SummarizeResult{Summary: &models.RouteSummary{Summary: "A pleasant walk."}}
	}
	return fn(ctx, in)
}

func (f *fakeActions) AdjustExplorationRoute(ctx context.Context, in planning.AdjustInput) actions.AdjustResult {
	f.mu.Lock()
	f.adjustCalls = append(f.adjustCalls, in)
	fn := f.adjust
	f.mu.Unlock()
	if fn == nil {
		return actions.AdjustResult{Adjustment: &models.RouteAdjustment{
			AlternativeRoutes:     []string{"via the market"},
			EstimatedArrivalTimes: []string{"10:45"},
			ReasonsForSuggestion:  []string{"avoids the bridge"},
		}}
	}
	return fn(ctx, in)
}

func (f *fakeActions) summarizeInputs() []planning.SummarizeInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]planning.SummarizeInput(nil), f.summarizeCalls...)
}

func (f *fakeActions) adjustInputs() []planning.AdjustInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]planning.AdjustInput(nil), f.adjustCalls...)
}

func sampleOutput(desc string) *planning.GenerateOutput {
	return &planning.GenerateOutput{
		RouteDescription: desc,
		Locations: []models.RouteLocation{
			{Name: "Riverside Park", Latitude: 40.001, Longitude: -75.001, Description: "Park"},
			{Name: "Old Mill", Latitude: 40.003, Longitude: -75.004, Description: "Historic mill"},
		},
		TotalEstimatedTime: 90,
	}
}

type fakePlaces struct {
	coords models.Coordinates
	err    error
}

func (p *fakePlaces) Search(ctx context.Context, query string, limit int) ([]geocoding.Prediction, error) {
	return nil, nil
}

func (p *fakePlaces) Resolve(ctx context.Context, placeID string) (models.Coordinates, error) {
	return p.coords, p.err
}

type fakeDistance struct {
	meters float64
	err    error
	points []models.Coordinates
}

func (d *fakeDistance) RouteDistance(ctx context.Context, points []models.Coordinates) (float64, error) {
	d.points = points
	return d.meters, d.err
}

// failingKV fails every write.
type failingKV struct{ database.KV }

func (failingKV) Set(ctx context.Context, key string, value []byte) error {
	return errors.New("disk full")
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func sequentialIDs() func() string {
	var n int32
	return func() string {
		return fmt.Sprintf("route-%d", atomic.AddInt32(&n, 1))
	}
}

func newTestSession(t *testing.T, fa *fakeActions, kv database.KV, mutate ...func(*Deps)) *Session {
	t.Helper()
	deps := Deps{
		Actions: fa,
		Now:     func() time.Time { return fixedNow },
		NewID:   sequentialIDs(),
	}
	for _, m := range mutate {
		m(&deps)
	}
	sess, err := New(context.Background(), "test", deps, wishlist.NewRepository(kv, nil))
	require.NoError(t, err)
	t.Cleanup(sess.Close)
	return sess
}

func validForm() GenerateForm {
	return GenerateForm{
		Prompt:      "quiet parks and coffee",
		Radius:      2,
		TimeLimit:   2,
		Preferences: []models.AttractionPreference{models.PreferenceParks, models.PreferenceCafes},
	}
}

func noticeTitles(notices []models.Notice) []string {
	titles := make([]string, 0, len(notices))
	for _, n := range notices {
		titles = append(titles, n.Title)
	}
	return titles
}

func TestGenerateAndSummarizeChain(t *testing.T) {
	fa := &fakeActions{}
	sess := newTestSession(t, fa, database.NewMemoryStore())
	sess.ReportPosition(models.Coordinates{Lat: 40, Lng: -75})

	require.NoError(t, sess.SubmitGenerate(context.Background(), validForm()))
	sess.Wait()

	snap := sess.Snapshot()
	assert.False(t, snap.Generating)
	assert.False(t, snap.Summarizing)
	assert.Equal(t, PlanIdle, snap.PlanState)
	require.NotNil(t, snap.Route)
	assert.Equal(t, "route-1", snap.Route.ID)
	assert.Equal(t, "A loop past the river", snap.Route.RouteDescription)
	assert.Len(t, snap.Route.Locations, 2)
	require.NotNil(t, snap.Summary)
	assert.Equal(t, "A pleasant walk.", snap.Summary.Summary)
	assert.Equal(t, []string{"Route Generated!"}, noticeTitles(snap.Notices))

	require.Len(t, fa.generateCalls, 1)
	in := fa.generateCalls[0]
	assert.Equal(t, "quiet parks and coffee User is interested in: Parks, Cafes.", in.Prompt)
	assert.Equal(t, 2000.0, in.Radius)
	assert.Equal(t, 120.0, in.TimeLimit)
	assert.Equal(t, models.Coordinates{Lat: 40, Lng: -75}, in.CurrentLocation)

	sums := fa.summarizeInputs()
	require.Len(t, sums, 1)
	assert.Equal(t, "A loop past the river", sums[0].RouteDescription)
	assert.Equal(t, "90 minutes", sums[0].EstimatedTime)
	assert.Equal(t, "Parks, Cafes", sums[0].AttractionPreferences)
	assert.Empty(t, sums[0].EstimatedDistance, "no estimator configured")
}

func TestGeneratePromptWithoutPreferences(t *testing.T) {
	fa := &fakeActions{}
	sess := newTestSession(t, fa, database.NewMemoryStore())
	sess.SetCustomStart(models.Coordinates{Lat: 1, Lng: 2})

	form := validForm()
	form.Preferences = nil
	require.NoError(t, sess.SubmitGenerate(context.Background(), form))
	sess.Wait()

	assert.Equal(t, "quiet parks and coffee", fa.generateCalls[0].Prompt)
}

func TestGenerateRaisesBothFlagsWhileRunning(t *testing.T) {
	release := make(chan struct{})
	fa := &fakeActions{
		generate: func(ctx context.Context, in planning.GenerateInput) actions.GenerateResult {
			<-release
			return actions.GenerateResult{Route: sampleOutput("x")}
		},
	}
	sess := newTestSession(t, fa, database.NewMemoryStore())
	sess.SetCustomStart(models.Coordinates{Lat: 1, Lng: 2})

	require.NoError(t, sess.SubmitGenerate(context.Background(), validForm()))

	snap := sess.Snapshot()
	assert.True(t, snap.Generating)
	assert.True(t, snap.Summarizing)
	assert.Equal(t, PlanGenerating, snap.PlanState)
	assert.Nil(t, snap.Route)

	close(release)
	sess.Wait()
	assert.False(t, sess.Snapshot().Summarizing)
}

func TestGenerateRequiresLocation(t *testing.T) {
	fa := &fakeActions{}
	sess := newTestSession(t, fa, database.NewMemoryStore())
	sess.ReportPositionError(geo.NewPositionError(geo.PermissionDenied, ""))
	sess.DrainNotices()

	err := sess.SubmitGenerate(context.Background(), validForm())

	assert.ErrorIs(t, err, ErrLocationUnavailable)
	snap := sess.Snapshot()
	assert.False(t, snap.Generating)
	assert.False(t, snap.Summarizing)
	assert.Equal(t, []string{"Location Needed"}, noticeTitles(snap.Notices))
	assert.Equal(t, models.NoticeDestructive, snap.Notices[0].Variant)
	assert.Empty(t, fa.generateCalls)
}

func TestCustomStartTakesPriority(t *testing.T) {
	fa := &fakeActions{}
	sess := newTestSession(t, fa, database.NewMemoryStore())
	sess.ReportPosition(models.Coordinates{Lat: 40, Lng: -75})
	sess.SetCustomStart(models.Coordinates{Lat: 48.85, Lng: 2.35})

	require.NoError(t, sess.SubmitGenerate(context.Background(), validForm()))
	sess.Wait()
	assert.Equal(t, models.Coordinates{Lat: 48.85, Lng: 2.35}, fa.generateCalls[0].CurrentLocation)

	sess.ClearCustomStart()
	require.NoError(t, sess.SubmitGenerate(context.Background(), validForm()))
	sess.Wait()
	assert.Equal(t, models.Coordinates{Lat: 40, Lng: -75}, fa.generateCalls[1].CurrentLocation)
}

func TestGenerateFailure(t *testing.T) {
	fa := &fakeActions{
		generate: func(ctx context.Context, in planning.GenerateInput) actions.GenerateResult {
			return actions.GenerateResult{Error: actions.MsgGenerateFailed}
		},
	}
	sess := newTestSession(t, fa, database.NewMemoryStore())
	sess.SetCustomStart(models.Coordinates{Lat: 1, Lng: 2})

	require.NoError(t, sess.SubmitGenerate(context.Background(), validForm()))
	sess.Wait()

	snap := sess.Snapshot()
	assert.False(t, snap.Generating)
	assert.False(t, snap.Summarizing)
	assert.Nil(t, snap.Route)
	require.Len(t, snap.Notices, 1)
	assert.Equal(t, "Route Generation Failed", snap.Notices[0].Title)
	assert.Equal(t, actions.MsgGenerateFailed, snap.Notices[0].Description)
	assert.Empty(t, fa.summarizeInputs(), "summary is never requested after a failed generation")
}

func TestSummaryFailureKeepsRoute(t *testing.T) {
	fa := &fakeActions{
		summarize: func(ctx context.Context, in planning.SummarizeInput) actions.SummarizeResult {
			return actions.SummarizeResult{Error: actions.MsgSummarizeFailed}
		},
	}
	sess := newTestSession(t, fa, database.NewMemoryStore())
	sess.SetCustomStart(models.Coordinates{Lat: 1, Lng: 2})

	require.NoError(t, sess.SubmitGenerate(context.Background(), validForm()))
	sess.Wait()

	snap := sess.Snapshot()
	assert.NotNil(t, snap.Route)
	assert.Nil(t, snap.Summary)
	assert.False(t, snap.Summarizing)
	assert.Equal(t, []string{"Route Generated!", "Route Summary Failed"}, noticeTitles(snap.Notices))
}

func TestStaleGenerationIsDiscarded(t *testing.T) {
	releaseFirst := make(chan struct{})
	var calls int32
	fa := &fakeActions{
		generate: func(ctx context.Context, in planning.GenerateInput) actions.GenerateResult {
			if atomic.AddInt32(&calls, 1) == 1 {
				<-releaseFirst
				return actions.GenerateResult{Route: sampleOutput("first")}
			}
			return actions.GenerateResult{Route: sampleOutput("second")}
		},
	}
	sess := newTestSession(t, fa, database.NewMemoryStore())
	sess.SetCustomStart(models.Coordinates{Lat: 1, Lng: 2})

	require.NoError(t, sess.SubmitGenerate(context.Background(), validForm()))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, sess.SubmitGenerate(context.Background(), validForm()))
	require.Eventually(t, func() bool {
		snap := sess.Snapshot()
		return snap.Summary != nil && !snap.Summarizing
	}, time.Second, time.Millisecond)

	close(releaseFirst)
	sess.Wait()

	snap := sess.Snapshot()
	require.NotNil(t, snap.Route)
	assert.Equal(t, "second", snap.Route.RouteDescription)
	assert.False(t, snap.Generating)
	assert.False(t, snap.Summarizing)
	assert.Len(t, fa.summarizeInputs(), 1, "stale generation never chains a summary")
	assert.Equal(t, []string{"Route Generated!"}, noticeTitles(snap.Notices))
}

func TestStaleFailureDoesNotClearNewerFlags(t *testing.T) {
	releaseFirst := make(chan struct{})
	releaseSecond := make(chan struct{})
	var calls int32
	fa := &fakeActions{
		generate: func(ctx context.Context, in planning.GenerateInput) actions.GenerateResult {
			if atomic.AddInt32(&calls, 1) == 1 {
				<-releaseFirst
				return actions.GenerateResult{Error: actions.MsgGenerateFailed}
			}
			<-releaseSecond
			return actions.GenerateResult{Route: sampleOutput("second")}
		},
	}
	sess := newTestSession(t, fa, database.NewMemoryStore())
	sess.SetCustomStart(models.Coordinates{Lat: 1, Lng: 2})

	require.NoError(t, sess.SubmitGenerate(context.Background(), validForm()))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)
	require.NoError(t, sess.SubmitGenerate(context.Background(), validForm()))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, time.Second, time.Millisecond)

	close(releaseFirst)
	// The stale failure must not lower the flags owned by the second run.
	time.Sleep(20 * time.Millisecond)
	snap := sess.Snapshot()
	assert.True(t, snap.Generating)
	assert.True(t, snap.Summarizing)
	assert.Empty(t, snap.Notices)

	close(releaseSecond)
	sess.Wait()
	assert.Equal(t, "second", sess.Snapshot().Route.RouteDescription)
}

func TestSummaryUsesEstimatedDistance(t *testing.T) {
	fa := &fakeActions{}
	dist := &fakeDistance{meters: 2412}
	sess := newTestSession(t, fa, database.NewMemoryStore(), func(d *Deps) { d.Distance = dist })
	sess.SetCustomStart(models.Coordinates{Lat: 40, Lng: -75})

	require.NoError(t, sess.SubmitGenerate(context.Background(), validForm()))
	sess.Wait()

	assert.Equal(t, "2.4 km", fa.summarizeInputs()[0].EstimatedDistance)
	require.Len(t, dist.points, 3, "start plus both stops")
	assert.Equal(t, models.Coordinates{Lat: 40, Lng: -75}, dist.points[0])
}

func TestSummaryWithoutDistanceOnEstimatorFailure(t *testing.T) {
	fa := &fakeActions{}
	dist := &fakeDistance{err: errors.New("osrm down")}
	sess := newTestSession(t, fa, database.NewMemoryStore(), func(d *Deps) { d.Distance = dist })
	sess.SetCustomStart(models.Coordinates{Lat: 40, Lng: -75})

	require.NoError(t, sess.SubmitGenerate(context.Background(), validForm()))
	sess.Wait()

	assert.Empty(t, fa.summarizeInputs()[0].EstimatedDistance)
	assert.NotNil(t, sess.Snapshot().Summary)
}

func TestFormValidation(t *testing.T) {
	sess := newTestSession(t, &fakeActions{}, database.NewMemoryStore())
	sess.SetCustomStart(models.Coordinates{Lat: 1, Lng: 2})

	tests := []struct {
		name  string
		form  GenerateForm
		field string
	}{
		{"short prompt", GenerateForm{Prompt: "  parks   ", Radius: 2, TimeLimit: 2}, "prompt"},
		{"radius too small", GenerateForm{Prompt: "a long enough prompt", Radius: 0.4, TimeLimit: 2}, "radius"},
		{"radius too large", GenerateForm{Prompt: "a long enough prompt", Radius: 11, TimeLimit: 2}, "radius"},
		{"time limit too large", GenerateForm{Prompt: "a long enough prompt", Radius: 2, TimeLimit: 6.5}, "timeLimit"},
		{"unknown preference", GenerateForm{Prompt: "a long enough prompt", Radius: 2, TimeLimit: 2, Preferences: []models.AttractionPreference{"zoos"}}, "preferences[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sess.SubmitGenerate(context.Background(), tt.form)

			var verr *validation.Error
			require.True(t, errors.As(err, &verr), "got %v", err)
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
		})
	}

	assert.False(t, sess.Snapshot().Generating)

	err := sess.SubmitAdjust(context.Background(), AdjustForm{TrafficConditions: "jam", TimeConstraints: "back by 6pm"})
	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "trafficConditions", verr.Fields[0].Field)
}

func generated(t *testing.T, sess *Session) *models.GeneratedRoute {
	t.Helper()
	require.NoError(t, sess.SubmitGenerate(context.Background(), validForm()))
	sess.Wait()
	route := sess.Snapshot().Route
	require.NotNil(t, route)
	sess.DrainNotices()
	return route
}

var adjustForm = AdjustForm{TrafficConditions: "heavy traffic downtown", TimeConstraints: "back by 6pm"}

func TestAdjustRoute(t *testing.T) {
	fa := &fakeActions{}
	sess := newTestSession(t, fa, database.NewMemoryStore())
	sess.SetCustomStart(models.Coordinates{Lat: 1, Lng: 2})
	generated(t, sess)

	require.NoError(t, sess.SubmitAdjust(context.Background(), adjustForm))
	sess.Wait()

	snap := sess.Snapshot()
	assert.False(t, snap.Adjusting)
	require.NotNil(t, snap.Adjustment)
	assert.Equal(t, []models.Alternative{{Route: "via the market", ArrivalTime: "10:45", Reason: "avoids the bridge"}}, snap.Alternatives)
	assert.Equal(t, []string{"Route Adjustments Suggested"}, noticeTitles(snap.Notices))

	in := fa.adjustInputs()[0]
	assert.Equal(t, "A loop past the river", in.CurrentRoute)
	assert.Equal(t, "heavy traffic downtown", in.TrafficConditions)
	assert.Equal(t, 5000.0, in.Radius)
}

func TestAdjustRadiusFallsBackWithoutLocations(t *testing.T) {
	fa := &fakeActions{
		generate: func(ctx context.Context, in planning.GenerateInput) actions.GenerateResult {
			return actions.GenerateResult{Route: &planning.GenerateOutput{RouteDescription: "wander", Locations: []models.RouteLocation{}, TotalEstimatedTime: 30}}
		},
	}
	sess := newTestSession(t, fa, database.NewMemoryStore())
	sess.SetCustomStart(models.Coordinates{Lat: 1, Lng: 2})
	generated(t, sess)

	require.NoError(t, sess.SubmitAdjust(context.Background(), adjustForm))
	sess.Wait()

	assert.Equal(t, 2000.0, fa.adjustInputs()[0].Radius)
}

func TestAdjustRequiresRouteAndLocation(t *testing.T) {
	fa := &fakeActions{}
	sess := newTestSession(t, fa, database.NewMemoryStore())

	err := sess.SubmitAdjust(context.Background(), adjustForm)
	assert.ErrorIs(t, err, ErrNoActiveRoute)

	sess.SetCustomStart(models.Coordinates{Lat: 1, Lng: 2})
	generated(t, sess)
	sess.ClearCustomStart()

	err = sess.SubmitAdjust(context.Background(), adjustForm)
	assert.ErrorIs(t, err, ErrLocationUnavailable)

	snap := sess.Snapshot()
	assert.False(t, snap.Adjusting)
	assert.Equal(t, []string{"Cannot Adjust Route"}, noticeTitles(snap.Notices))
	assert.Empty(t, fa.adjustInputs())
}

func TestAdjustFailure(t *testing.T) {
	fa := &fakeActions{
		adjust: func(ctx context.Context, in planning.AdjustInput) actions.AdjustResult {
			return actions.AdjustResult{Error: actions.MsgAdjustFailed}
		},
	}
	sess := newTestSession(t, fa, database.NewMemoryStore())
	sess.SetCustomStart(models.Coordinates{Lat: 1, Lng: 2})
	route := generated(t, sess)

	require.NoError(t, sess.SubmitAdjust(context.Background(), adjustForm))
	sess.Wait()

	snap := sess.Snapshot()
	assert.False(t, snap.Adjusting)
	assert.Nil(t, snap.Adjustment)
	assert.Equal(t, route.ID, snap.Route.ID, "route untouched")
	assert.Equal(t, []string{"Route Adjustment Failed"}, noticeTitles(snap.Notices))
}

func TestAdjustIndependentOfPlan(t *testing.T) {
	release := make(chan struct{})
	fa := &fakeActions{}
	sess := newTestSession(t, fa, database.NewMemoryStore())
	sess.SetCustomStart(models.Coordinates{Lat: 1, Lng: 2})
	generated(t, sess)

	fa.mu.Lock()
	fa.summarize = func(ctx context.Context, in planning.SummarizeInput) actions.SummarizeResult {
		<-release
		return actions.SummarizeResult{Summary: &models.RouteSummary{Summary: "late"}}
	}
	fa.mu.Unlock()

	require.NoError(t, sess.SubmitAdjust(context.Background(), adjustForm))
	sess.Wait()
	assert.NotNil(t, sess.Snapshot().Adjustment)

	require.NoError(t, sess.SubmitGenerate(context.Background(), validForm()))
	require.Eventually(t, func() bool {
		snap := sess.Snapshot()
		return !snap.Generating && snap.Summarizing
	}, time.Second, time.Millisecond)

	require.NoError(t, sess.SubmitAdjust(context.Background(), adjustForm), "adjusting while summarizing is allowed")
	require.Eventually(t, func() bool { return !sess.Snapshot().Adjusting }, time.Second, time.Millisecond)
	assert.True(t, sess.Snapshot().Summarizing)

	close(release)
	sess.Wait()
}

func TestAdjustmentForInactiveRouteIsDiscarded(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	fa := &fakeActions{
		adjust: func(ctx context.Context, in planning.AdjustInput) actions.AdjustResult {
			<-release
			return actions.AdjustResult{Adjustment: &models.RouteAdjustment{AlternativeRoutes: []string{"old"}, EstimatedArrivalTimes: []string{}, ReasonsForSuggestion: []string{}}}
		},
	}
	sess := newTestSession(t, fa, database.NewMemoryStore())
	sess.SetCustomStart(models.Coordinates{Lat: 1, Lng: 2})
	route := generated(t, sess)
	require.NoError(t, sess.AddToWishlist(ctx))

	require.NoError(t, sess.SubmitAdjust(ctx, adjustForm))
	require.NoError(t, sess.RemoveFromWishlist(ctx, route.ID))
	sess.DrainNotices()

	close(release)
	sess.Wait()

	snap := sess.Snapshot()
	assert.Nil(t, snap.Route)
	assert.Nil(t, snap.Adjustment)
	assert.False(t, snap.Adjusting)
	assert.Empty(t, snap.Notices)
}

func TestWishlistSetSemantics(t *testing.T) {
	ctx := context.Background()
	kv := database.NewMemoryStore()
	now := fixedNow
	sess := newTestSession(t, &fakeActions{}, kv, func(d *Deps) {
		d.Now = func() time.Time { return now }
	})
	sess.SetCustomStart(models.Coordinates{Lat: 1, Lng: 2})
	route := generated(t, sess)

	require.NoError(t, sess.AddToWishlist(ctx))
	now = fixedNow.Add(time.Hour)
	require.NoError(t, sess.AddToWishlist(ctx))

	snap := sess.Snapshot()
	require.Len(t, snap.Wishlist, 1)
	assert.Equal(t, route.ID, snap.Wishlist[0].ID)
	assert.Equal(t, "2024-05-01T12:00:00Z", snap.Wishlist[0].SavedAt)
	assert.True(t, snap.InWishlist)
	assert.Equal(t, []string{"Added to Wishlist", "Already in Wishlist"}, noticeTitles(snap.Notices))

	persisted, err := wishlist.NewRepository(kv, nil).Load(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, "2024-05-01T12:00:00Z", persisted[0].SavedAt)
}

func TestAddToWishlistWithoutRoute(t *testing.T) {
	sess := newTestSession(t, &fakeActions{}, database.NewMemoryStore())

	assert.ErrorIs(t, sess.AddToWishlist(context.Background()), ErrNoActiveRoute)
	assert.Empty(t, sess.Snapshot().Wishlist)
}

func TestWishlistPersistsAcrossSessions(t *testing.T) {
	ctx := context.Background()
	kv := database.NewMemoryStore()
	sess := newTestSession(t, &fakeActions{}, kv)
	sess.SetCustomStart(models.Coordinates{Lat: 1, Lng: 2})
	route := generated(t, sess)
	require.NoError(t, sess.AddToWishlist(ctx))

	reloaded := newTestSession(t, &fakeActions{}, kv)

	snap := reloaded.Snapshot()
	require.Len(t, snap.Wishlist, 1)
	assert.Equal(t, route.ID, snap.Wishlist[0].ID)
	assert.Equal(t, route.Locations, snap.Wishlist[0].Locations)
}

func TestWishlistWriteFailureLeavesStateUntouched(t *testing.T) {
	sess := newTestSession(t, &fakeActions{}, failingKV{database.NewMemoryStore()})
	sess.SetCustomStart(models.Coordinates{Lat: 1, Lng: 2})
	generated(t, sess)

	err := sess.AddToWishlist(context.Background())

	assert.Error(t, err)
	snap := sess.Snapshot()
	assert.Empty(t, snap.Wishlist)
	assert.False(t, snap.InWishlist)
	assert.Equal(t, []string{"Wishlist Not Saved"}, noticeTitles(snap.Notices))
}

func TestRemoveActiveRouteClearsView(t *testing.T) {
	ctx := context.Background()
	kv := database.NewMemoryStore()
	sess := newTestSession(t, &fakeActions{}, kv)
	sess.SetCustomStart(models.Coordinates{Lat: 1, Lng: 2})
	route := generated(t, sess)
	require.NoError(t, sess.AddToWishlist(ctx))
	require.NoError(t, sess.SubmitAdjust(ctx, adjustForm))
	sess.Wait()

	require.NoError(t, sess.RemoveFromWishlist(ctx, route.ID))

	snap := sess.Snapshot()
	assert.Empty(t, snap.Wishlist)
	assert.Nil(t, snap.Route)
	assert.Nil(t, snap.Summary)
	assert.Nil(t, snap.Adjustment)

	persisted, err := wishlist.NewRepository(kv, nil).Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, persisted)

	assert.ErrorIs(t, sess.RemoveFromWishlist(ctx, route.ID), ErrRouteNotFound)
}

func TestRemoveOtherRouteKeepsActive(t *testing.T) {
	ctx := context.Background()
	sess := newTestSession(t, &fakeActions{}, database.NewMemoryStore())
	sess.SetCustomStart(models.Coordinates{Lat: 1, Lng: 2})
	first := generated(t, sess)
	require.NoError(t, sess.AddToWishlist(ctx))
	second := generated(t, sess)

	require.NoError(t, sess.RemoveFromWishlist(ctx, first.ID))

	snap := sess.Snapshot()
	require.NotNil(t, snap.Route)
	assert.Equal(t, second.ID, snap.Route.ID)
	assert.NotNil(t, snap.Summary)
}

func TestSelectWishlistItem(t *testing.T) {
	ctx := context.Background()
	sess := newTestSession(t, &fakeActions{}, database.NewMemoryStore())
	sess.SetCustomStart(models.Coordinates{Lat: 1, Lng: 2})
	first := generated(t, sess)
	require.NoError(t, sess.AddToWishlist(ctx))
	generated(t, sess)
	require.NoError(t, sess.SubmitAdjust(ctx, adjustForm))
	sess.Wait()

	require.NoError(t, sess.SelectWishlistItem(first.ID))

	snap := sess.Snapshot()
	require.NotNil(t, snap.Route)
	assert.Equal(t, first.ID, snap.Route.ID)
	require.NotNil(t, snap.Summary)
	assert.Equal(t, "Saved route: A loop past the river", snap.Summary.Summary)
	assert.Nil(t, snap.Adjustment)
	assert.Nil(t, snap.CustomStart)

	assert.ErrorIs(t, sess.SelectWishlistItem("missing"), ErrRouteNotFound)
}

func TestCustomStartFromPlace(t *testing.T) {
	places := &fakePlaces{coords: models.Coordinates{Lat: 51.5, Lng: -0.12}}
	sess := newTestSession(t, &fakeActions{}, database.NewMemoryStore(), func(d *Deps) { d.Places = places })

	coords, err := sess.SetCustomStartFromPlace(context.Background(), "N1")
	require.NoError(t, err)
	assert.Equal(t, models.Coordinates{Lat: 51.5, Lng: -0.12}, coords)
	assert.Equal(t, &coords, sess.Snapshot().CustomStart)

	places.err = &geocoding.ErrPlaceResolutionFailed{PlaceID: "N2", Reason: "no results found"}
	_, err = sess.SetCustomStartFromPlace(context.Background(), "N2")

	assert.ErrorIs(t, err, ErrPlaceResolutionFailed)
	assert.ErrorIs(t, err, geocoding.ErrPlaceResolution)
	snap := sess.Snapshot()
	assert.Equal(t, models.Coordinates{Lat: 51.5, Lng: -0.12}, *snap.CustomStart, "override unchanged")
	assert.Equal(t, []string{"Place Not Found"}, noticeTitles(snap.Notices))
}

func TestCustomStartFromPlaceWithoutSearch(t *testing.T) {
	sess := newTestSession(t, &fakeActions{}, database.NewMemoryStore())

	_, err := sess.SetCustomStartFromPlace(context.Background(), "N1")

	assert.ErrorIs(t, err, ErrPlaceResolutionFailed)
	assert.Nil(t, sess.Snapshot().CustomStart)
}

func TestCustomStartDoesNotCancelInFlightWork(t *testing.T) {
	release := make(chan struct{})
	fa := &fakeActions{
		generate: func(ctx context.Context, in planning.GenerateInput) actions.GenerateResult {
			<-release
			return actions.GenerateResult{Route: sampleOutput("kept")}
		},
	}
	sess := newTestSession(t, fa, database.NewMemoryStore())
	sess.SetCustomStart(models.Coordinates{Lat: 1, Lng: 2})
	require.NoError(t, sess.SubmitGenerate(context.Background(), validForm()))

	sess.SetCustomStart(models.Coordinates{Lat: 3, Lng: 4})
	sess.ClearCustomStart()
	close(release)
	sess.Wait()

	assert.Equal(t, "kept", sess.Snapshot().Route.RouteDescription)
}

func TestPositionReports(t *testing.T) {
	sess := newTestSession(t, &fakeActions{}, database.NewMemoryStore())

	sess.ReportPositionError(geo.NewPositionError(geo.Timeout, ""))
	snap := sess.Snapshot()
	assert.Equal(t, "The request to get user location timed out.", snap.LocationError)
	assert.Equal(t, []string{"Geolocation Error"}, noticeTitles(snap.Notices))

	sess.ReportPosition(models.Coordinates{Lat: 10, Lng: 20})
	snap = sess.Snapshot()
	assert.Empty(t, snap.LocationError)
	assert.Equal(t, &models.Coordinates{Lat: 10, Lng: 20}, snap.DeviceLocation)
}

func TestDrainNotices(t *testing.T) {
	sess := newTestSession(t, &fakeActions{}, database.NewMemoryStore())
	for i := 0; i < maxNotices+5; i++ {
		sess.ReportPositionError(geo.NewPositionError(geo.Timeout, fmt.Sprintf("timeout %d", i)))
	}

	notices := sess.DrainNotices()
	require.Len(t, notices, maxNotices)
	assert.Equal(t, "timeout 5", notices[0].Description, "oldest notices are dropped first")
	assert.Empty(t, sess.DrainNotices())
}

func TestMapViewCenterPriority(t *testing.T) {
	sess := newTestSession(t, &fakeActions{}, database.NewMemoryStore())

	view := sess.MapView()
	assert.Equal(t, models.DefaultCenter, view.CenterPoint)
	assert.Equal(t, DefaultZoom, view.Zoom)
	assert.Empty(t, view.Markers)
	assert.Nil(t, view.UserMarker)

	sess.SetCustomStart(models.Coordinates{Lat: 1, Lng: 2})
	generated(t, sess)
	sess.ClearCustomStart()
	view = sess.MapView()
	assert.Equal(t, models.Coordinates{Lat: 40.001, Lng: -75.001}, view.CenterPoint, "first route stop")
	assert.Len(t, view.Markers, 2)
	assert.Equal(t, FocusZoom, view.Zoom)

	sess.ReportPosition(models.Coordinates{Lat: 5, Lng: 6})
	view = sess.MapView()
	assert.Equal(t, models.Coordinates{Lat: 5, Lng: 6}, view.CenterPoint)
	assert.Equal(t, &models.Coordinates{Lat: 5, Lng: 6}, view.UserMarker)

	sess.SetCustomStart(models.Coordinates{Lat: 7, Lng: 8})
	view = sess.MapView()
	assert.Equal(t, models.Coordinates{Lat: 7, Lng: 8}, view.CenterPoint)
	assert.Equal(t, &models.Coordinates{Lat: 7, Lng: 8}, view.CustomStartMarker)
}

func TestCorruptWishlistLoadsEmpty(t *testing.T) {
	kv := database.NewMemoryStore()
	require.NoError(t, kv.Set(context.Background(), database.KeyWishlist, []byte("not json")))

	sess := newTestSession(t, &fakeActions{}, kv)

	assert.Empty(t, sess.Snapshot().Wishlist)
}
