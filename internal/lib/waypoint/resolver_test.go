package waypoint

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripmapper/internal/models"
)

// fakeGeocoder returns scripted candidate lists per query
type fakeGeocoder struct {
	results map[string][]Candidate
	errs    map[string]error
	calls   []string
}

func (f *fakeGeocoder) Geocode(ctx context.Context, query string, limit int) ([]Candidate, error) {
	f.calls = append(f.calls, query)
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	return f.results[query], nil
}

func newTestRoute(names ...string) *models.Route {
	r := models.NewRoute("test")
	for _, n := range names {
		r.AddWaypoint(n)
	}
	return r
}

func TestBatch_SingleCandidateAutoAccepts(t *testing.T) {
	gc := &fakeGeocoder{results: map[string][]Candidate{
		"Leh": {{Lat: 34.1526, Lng: 77.5771, DisplayName: "Leh, Ladakh, India"}},
	}}
	route := newTestRoute("Leh")

	batch := NewResolver(gc, 0).NewBatch(route)
	res, err := batch.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Done())
	assert.Equal(t, 1, res.Resolved)
	assert.Equal(t, 1, res.Attempted)

	wp := route.Waypoints[0]
	assert.Equal(t, 34.1526, wp.Lat)
	assert.Equal(t, 77.5771, wp.Lng)
	assert.Equal(t, "Leh, Ladakh, India", wp.DisplayName)
	assert.Equal(t, "Leh", wp.Name)
}

func TestBatch_SuspendsOnAmbiguityThenManualOverride(t *testing.T) {
	gc := &fakeGeocoder{results: map[string][]Candidate{
		"Springfield": {
			{Lat: 39.78, Lng: -89.65, DisplayName: "Springfield, Illinois"},
			{Lat: 42.10, Lng: -72.59, DisplayName: "Springfield, Massachusetts"},
			{Lat: 37.21, Lng: -93.29, DisplayName: "Springfield, Missouri"},
		},
	}}
	route := newTestRoute("Springfield")

	batch := NewResolver(gc, 0).NewBatch(route)
	res, err := batch.Run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, res.Pending, "Batch must suspend on multiple candidates")
	assert.Len(t, res.Pending.Candidates, 3)
	assert.False(t, route.Waypoints[0].Geocoded())

	res, err = batch.Decide(context.Background(), Decision{
		Action: ActionManual,
		Lat:    39.78,
		Lng:    -89.65,
	})
	require.NoError(t, err)
	assert.True(t, res.Done())

	wp := route.Waypoints[0]
	assert.Equal(t, "Springfield", wp.Name, "Typed name survives manual entry")
	assert.Equal(t, "Manual: 39.7800, -89.6500", wp.DisplayName)
	assert.Equal(t, 39.78, wp.Lat)
}

func TestBatch_EmptyResultSuspendsForManualEntry(t *testing.T) {
	gc := &fakeGeocoder{results: map[string][]Candidate{}}
	route := newTestRoute("Nowhere Pass")

	batch := NewResolver(gc, 0).NewBatch(route)
	res, err := batch.Run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, res.Pending)
	assert.Empty(t, res.Pending.Candidates, "Zero candidates still suspends, for the manual path")
}

func TestBatch_GeocoderFailureBehavesLikeEmpty(t *testing.T) {
	gc := &fakeGeocoder{
		errs: map[string]error{"Leh": context.DeadlineExceeded},
		results: map[string][]Candidate{
			"Kargil": {{Lat: 34.5539, Lng: 76.1349, DisplayName: "Kargil, Ladakh"}},
		},
	}
	route := newTestRoute("Leh", "Kargil")

	batch := NewResolver(gc, 0).NewBatch(route)
	res, err := batch.Run(context.Background())
	require.NoError(t, err)

	// Failure on the first waypoint suspends it like a zero-candidate result
	require.NotNil(t, res.Pending)
	assert.Empty(t, res.Pending.Candidates)

	// Skipping it lets the batch continue to the next waypoint
	res, err = batch.Decide(context.Background(), Decision{Action: ActionSkip})
	require.NoError(t, err)
	assert.True(t, res.Done())
	assert.Equal(t, 1, res.Resolved)
	assert.Equal(t, 1, res.Skipped)
	assert.False(t, route.Waypoints[0].Geocoded())
	assert.True(t, route.Waypoints[1].Geocoded())
}

func TestBatch_RequeryLoopsBackIntoStateMachine(t *testing.T) {
	gc := &fakeGeocoder{results: map[string][]Candidate{
		"Padum":          {},
		"Padum, Zanskar": {{Lat: 33.4661, Lng: 76.8867, DisplayName: "Padum, Zanskar, India"}},
	}}
	route := newTestRoute("Padum")

	batch := NewResolver(gc, 0).NewBatch(route)
	res, err := batch.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.Pending)

	res, err = batch.Decide(context.Background(), Decision{
		Action: ActionRequery,
		Query:  "Padum, Zanskar",
	})
	require.NoError(t, err)
	assert.True(t, res.Done())
	assert.Equal(t, "Padum, Zanskar, India", route.Waypoints[0].DisplayName)
	assert.Equal(t, "Padum", route.Waypoints[0].Name)
}

func TestBatch_SkipsAlreadyGeocodedWaypoints(t *testing.T) {
	gc := &fakeGeocoder{results: map[string][]Candidate{
		"Kargil": {{Lat: 34.5539, Lng: 76.1349, DisplayName: "Kargil, Ladakh"}},
	}}
	route := newTestRoute("Leh", "Kargil")
	route.Waypoints[0].Lat, route.Waypoints[0].Lng = 34.1526, 77.5771

	batch := NewResolver(gc, 0).NewBatch(route)
	res, err := batch.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Done())
	assert.Equal(t, 1, res.Attempted, "Resolved waypoints are not re-geocoded")
	assert.Equal(t, []string{"Kargil"}, gc.calls)
}

func TestBatch_CancellationKeepsPartialProgress(t *testing.T) {
	gc := &fakeGeocoder{results: map[string][]Candidate{
		"Leh":    {{Lat: 34.1526, Lng: 77.5771, DisplayName: "Leh, Ladakh, India"}},
		"Kargil": {{Lat: 34.5539, Lng: 76.1349, DisplayName: "Kargil, Ladakh"}},
	}}
	route := newTestRoute("Leh", "Kargil")

	// Spacing forces the batch to wait before the second call, giving the
	// cancel a window to land between calls.
	ctx, cancel := context.WithCancel(context.Background())
	resolver := NewResolver(gc, 50*time.Millisecond)
	batch := resolver.NewBatch(route)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := batch.Run(ctx)
	assert.Error(t, err)
	assert.True(t, route.Waypoints[0].Geocoded(), "Already-resolved waypoints are kept on cancel")
}

func TestBatch_RequeryCancellationKeepsPendingDecision(t *testing.T) {
	gc := &fakeGeocoder{results: map[string][]Candidate{
		"Springfield": {
			{Lat: 39.7817, Lng: -89.6501, DisplayName: "Springfield, Illinois"},
			{Lat: 42.1015, Lng: -72.5898, DisplayName: "Springfield, Massachusetts"},
		},
	}}
	route := newTestRoute("Springfield")
	batch := NewResolver(gc, 0).NewBatch(route)

	res, err := batch.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.Pending)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = batch.Decide(ctx, Decision{Action: ActionRequery, Query: "Springfield, Oregon"})
	assert.ErrorIs(t, err, context.Canceled)

	// The original decision is still open; it was not replaced by a bogus
	// zero-candidate result
	pending := batch.Pending()
	require.NotNil(t, pending)
	assert.Equal(t, "Springfield", pending.Query)
	assert.Len(t, pending.Candidates, 2)
}

func TestBatch_DecideWithoutPendingFails(t *testing.T) {
	gc := &fakeGeocoder{results: map[string][]Candidate{}}
	route := newTestRoute()
	batch := NewResolver(gc, 0).NewBatch(route)

	_, err := batch.Decide(context.Background(), Decision{Action: ActionSkip})
	assert.ErrorIs(t, err, ErrNoPendingDecision)
}

func TestApplyManual_RejectsOutOfRange(t *testing.T) {
	wp := models.NewWaypoint("x", 0)
	assert.ErrorIs(t, ApplyManual(&wp, 91, 0), ErrInvalidCoordinates)
	assert.ErrorIs(t, ApplyManual(&wp, 0, 181), ErrInvalidCoordinates)
	assert.ErrorIs(t, ApplyManual(&wp, -91, 0), ErrInvalidCoordinates)
	assert.NoError(t, ApplyManual(&wp, -45.5, 170.2))
}

func TestResolver_PacingDelaysSecondCall(t *testing.T) {
	gc := &fakeGeocoder{results: map[string][]Candidate{
		"A": {{Lat: 1, Lng: 1, DisplayName: "A"}},
		"B": {{Lat: 2, Lng: 2, DisplayName: "B"}},
	}}
	route := newTestRoute("A", "B")

	resolver := NewResolver(gc, 40*time.Millisecond)
	start := time.Now()
	_, err := resolver.NewBatch(route).Run(context.Background())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond,
		"Second geocode call must wait out the mandatory spacing")
}
