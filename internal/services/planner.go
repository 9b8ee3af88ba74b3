package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tripmapper/internal/lib/itinerary"
	"tripmapper/internal/lib/routing"
	"tripmapper/internal/lib/trip"
	"tripmapper/internal/lib/waypoint"
	"tripmapper/internal/metrics"
	"tripmapper/internal/models"
	"tripmapper/internal/store"
)

var (
	// ErrResolutionInProgress is returned when a second resolution run is
	// requested while one is still awaiting a decision. Geocoding is paced
	// globally, so only one resolution pipeline runs at a time.
	ErrResolutionInProgress = errors.New("a waypoint resolution run is already in progress")
	// ErrNoActiveResolution is returned for decisions without a pending run
	ErrNoActiveResolution = errors.New("no waypoint resolution run is active for this route")
)

// ResolutionStatus is what a resolution step hands back to the caller:
// progress counters, the decision the run is suspended on (nil when the
// run completed), and the route as mutated so far.
type ResolutionStatus struct {
	Result  waypoint.BatchResult      `json:"result"`
	Pending *waypoint.PendingDecision `json:"pending,omitempty"`
	Done    bool                      `json:"done"`
	Route   *models.Route             `json:"route"`
}

// WaypointUpdateResult reports the outcome of a waypoint edit. When a
// rename produced several geocoding candidates, Candidates is populated
// and no coordinates have been changed yet.
type WaypointUpdateResult struct {
	Route      *models.Route        `json:"route"`
	Candidates []waypoint.Candidate `json:"candidates,omitempty"`
	Applied    bool                 `json:"applied"`
}

// WaypointUpdate describes an edit to one waypoint. Nil fields are left
// untouched. Supplying coordinates places the waypoint manually and wins
// over any rename-triggered search.
type WaypointUpdate struct {
	Name *string  `json:"name,omitempty"`
	Lat  *float64 `json:"lat,omitempty"`
	Lng  *float64 `json:"lng,omitempty"`
}

// Planner coordinates the full trip pipeline over persisted routes:
// itinerary extraction, waypoint resolution, segment computation, and
// day assignment. All mutations are written through to the store.
type Planner struct {
	store     *store.Store
	resolver  *waypoint.Resolver
	engine    *routing.Engine
	extractor itinerary.Extractor
	collector *metrics.Collector
	autosave  *Autosave

	mu      sync.Mutex
	session *resolutionSession
}

// resolutionSession serializes all batch steps for one run. Planner.mu only
// guards the session pointer; holding it across a paced geocode call would
// stall unrelated routes, so batch mutations lock the session instead.
type resolutionSession struct {
	mu      sync.Mutex
	routeID string
	route   *models.Route
	batch   *waypoint.Batch
}

// NewPlanner creates the orchestrator. The extractor may be nil when no
// LLM credentials are configured; extraction calls then fail cleanly.
func NewPlanner(st *store.Store, resolver *waypoint.Resolver, engine *routing.Engine, extractor itinerary.Extractor, collector *metrics.Collector) *Planner {
	return &Planner{
		store:     st,
		resolver:  resolver,
		engine:    engine,
		extractor: extractor,
		collector: collector,
	}
}

// SetAutosave attaches a debounced autosaver. Mutations then queue a
// background snapshot write instead of writing through synchronously, and
// reads overlay pending snapshots so nothing looks stale in between.
func (p *Planner) SetAutosave(a *Autosave) {
	p.autosave = a
}

// CreateRoute makes and persists an empty route
func (p *Planner) CreateRoute(name string) (*models.Route, error) {
	route := models.NewRoute(name)
	return p.save(route)
}

// GetRoute loads one route by id, preferring a pending autosave snapshot
func (p *Planner) GetRoute(id string) (*models.Route, error) {
	if p.autosave != nil {
		if snap := p.autosave.Pending(id); snap != nil {
			return snap, nil
		}
	}
	return p.store.Get(id)
}

// ListRoutes returns all stored routes with pending snapshots overlaid
func (p *Planner) ListRoutes() ([]*models.Route, error) {
	routes, err := p.store.GetAll()
	if err != nil {
		return nil, err
	}
	if p.autosave == nil {
		return routes, nil
	}
	stored := make(map[string]int, len(routes))
	for i, route := range routes {
		stored[route.ID] = i
	}
	for _, snap := range p.autosave.PendingAll() {
		if i, ok := stored[snap.ID]; ok {
			routes[i] = snap
		} else {
			// Created within the debounce window, not yet on disk
			routes = append(routes, snap)
		}
	}
	return routes, nil
}

// DeleteRoute removes a route and any in-memory resolution session for it
func (p *Planner) DeleteRoute(id string) (bool, error) {
	p.mu.Lock()
	if p.session != nil && p.session.routeID == id {
		p.session = nil
	}
	p.mu.Unlock()

	// A route created inside the debounce window exists only as a snapshot
	hadPending := false
	if p.autosave != nil {
		hadPending = p.autosave.Pending(id) != nil
		p.autosave.Drop(id)
	}

	deleted, err := p.store.Delete(id)
	if err == nil {
		p.refreshStoredGauge()
	}
	return deleted || hadPending, err
}

// SaveRoute persists caller-side edits to a route (name, start date, notes)
func (p *Planner) SaveRoute(route *models.Route) (*models.Route, error) {
	return p.save(route)
}

// ExtractItinerary runs LLM extraction over free-form trip text and
// replaces the route's waypoints with the extracted, ungeocoded list.
// Segments are cleared; day assignments resync to the new segment count.
func (p *Planner) ExtractItinerary(ctx context.Context, routeID, text string) (*models.Route, error) {
	if p.extractor == nil {
		return nil, errors.New("itinerary extraction is not configured")
	}

	route, err := p.GetRoute(routeID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	extracted, err := p.extractor.ExtractWaypoints(ctx, text)
	p.collector.ExtractDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		p.collector.ExtractRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("itinerary extraction failed: %w", err)
	}
	p.collector.ExtractRequests.WithLabelValues("ok").Inc()

	route.ItineraryText = text
	route.Waypoints = nil
	route.Segments = nil
	for _, wp := range extracted {
		route.AddWaypoint(wp.Name)
	}
	route.SegmentDays = trip.SyncDays(route.SegmentDays, 0)

	logrus.WithFields(logrus.Fields{
		"route_id":  routeID,
		"waypoints": len(route.Waypoints),
	}).Info("Replaced route waypoints from itinerary extraction")

	return p.save(route)
}

// StartResolution begins a batch geocoding run over the route's
// ungeocoded waypoints. The run either completes or suspends on the
// first waypoint needing a decision.
func (p *Planner) StartResolution(ctx context.Context, routeID string) (*ResolutionStatus, error) {
	p.mu.Lock()
	if p.session != nil {
		p.mu.Unlock()
		return nil, ErrResolutionInProgress
	}
	route, err := p.GetRoute(routeID)
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	session := &resolutionSession{
		routeID: routeID,
		route:   route,
		batch:   p.resolver.NewBatch(route),
	}
	p.session = session
	p.mu.Unlock()

	session.mu.Lock()
	defer session.mu.Unlock()
	result, err := session.batch.Run(ctx)
	return p.advance(session, result, err)
}

// Decide answers the decision the active run is suspended on and resumes it
func (p *Planner) Decide(ctx context.Context, routeID string, decision waypoint.Decision) (*ResolutionStatus, error) {
	p.mu.Lock()
	session := p.session
	if session == nil || session.routeID != routeID {
		p.mu.Unlock()
		return nil, ErrNoActiveResolution
	}
	p.mu.Unlock()

	// Serialize on the session: a double-submitted decision waits here and
	// then fails cleanly with ErrNoPendingDecision instead of racing
	session.mu.Lock()
	defer session.mu.Unlock()
	result, err := session.batch.Decide(ctx, decision)
	if result == nil && err != nil {
		return nil, err
	}
	return p.advance(session, result, err)
}

// CancelResolution abandons the active run. Waypoints already resolved
// stay resolved; the route keeps its partial progress.
func (p *Planner) CancelResolution(routeID string) (*models.Route, error) {
	p.mu.Lock()
	session := p.session
	if session == nil || session.routeID != routeID {
		p.mu.Unlock()
		return nil, ErrNoActiveResolution
	}
	p.session = nil
	p.mu.Unlock()

	// An in-flight decision still owns the session lock; wait for it so the
	// saved route is not mutated mid-write
	session.mu.Lock()
	defer session.mu.Unlock()
	return p.save(session.route)
}

// advance persists progress and packages the run state. Called after every
// batch step so a crash mid-run loses at most the in-flight waypoint.
func (p *Planner) advance(session *resolutionSession, result *waypoint.BatchResult, runErr error) (*ResolutionStatus, error) {
	status := &ResolutionStatus{
		Result:  *result,
		Pending: session.batch.Pending(),
		Done:    result.Done(),
	}
	if status.Pending != nil {
		p.collector.DecisionsSuspended.Inc()
	}

	// A cancelled or completed run releases the pipeline; partial progress
	// already applied to the route is kept either way
	if status.Done || runErr != nil {
		p.mu.Lock()
		p.session = nil
		p.mu.Unlock()
	}

	route, err := p.save(session.route)
	if err != nil {
		return nil, err
	}
	status.Route = route

	return status, runErr
}

// RecalculateSegments recomputes every segment from scratch and resyncs
// day assignments to the new segment count
func (p *Planner) RecalculateSegments(ctx context.Context, routeID string, progress routing.Progress) (*models.Route, *routing.Summary, error) {
	route, err := p.GetRoute(routeID)
	if err != nil {
		return nil, nil, err
	}

	summary, err := p.engine.Recalculate(ctx, route, progress)
	if err != nil && !errors.Is(err, context.Canceled) {
		return nil, summary, err
	}
	p.collector.WaypointsAdjusted.Add(float64(summary.Adjusted))

	route.SegmentDays = trip.SyncDays(route.SegmentDays, len(route.Segments))
	saved, saveErr := p.save(route)
	if saveErr != nil {
		return nil, summary, saveErr
	}
	// A cancelled recalculation still persists partial progress
	return saved, summary, err
}

// AddWaypoint appends a named, ungeocoded waypoint
func (p *Planner) AddWaypoint(routeID, name string) (*models.Route, error) {
	route, err := p.GetRoute(routeID)
	if err != nil {
		return nil, err
	}
	route.AddWaypoint(name)
	return p.save(route)
}

// RemoveWaypoint deletes a waypoint, its segments, and renumbers the rest.
// The now-adjacent neighbors are re-joined with a fresh segment.
func (p *Planner) RemoveWaypoint(ctx context.Context, routeID, waypointID string) (*models.Route, error) {
	route, err := p.GetRoute(routeID)
	if err != nil {
		return nil, err
	}
	removed := route.RemoveWaypoint(waypointID)
	if !removed {
		return nil, fmt.Errorf("waypoint %s not found in route %s", waypointID, routeID)
	}

	if _, err := p.engine.Recalculate(ctx, route, nil); err != nil {
		if errors.Is(err, routing.ErrNotEnoughWaypoints) {
			// Too few geocoded waypoints remain for any segment
			route.Segments = nil
		} else if !errors.Is(err, context.Canceled) {
			return nil, err
		}
	}
	route.SegmentDays = trip.SyncDays(route.SegmentDays, len(route.Segments))
	return p.save(route)
}

// UpdateWaypoint applies an edit to one waypoint. Manual coordinates are
// authoritative and take effect immediately. A rename without coordinates
// triggers a geocode search: a single candidate is adopted outright,
// anything else is returned for the caller to choose from.
func (p *Planner) UpdateWaypoint(ctx context.Context, routeID, waypointID string, update WaypointUpdate) (*WaypointUpdateResult, error) {
	route, err := p.GetRoute(routeID)
	if err != nil {
		return nil, err
	}
	wp := route.WaypointByID(waypointID)
	if wp == nil {
		return nil, fmt.Errorf("waypoint %s not found in route %s", waypointID, routeID)
	}

	if update.Name != nil {
		wp.Name = *update.Name
	}

	switch {
	case update.Lat != nil && update.Lng != nil:
		if err := waypoint.ApplyManual(wp, *update.Lat, *update.Lng); err != nil {
			return nil, err
		}
	case update.Name != nil:
		candidates := p.resolver.Search(ctx, wp.Name)
		if len(candidates) != 1 {
			// Nothing applied yet; the caller picks or places manually
			saved, saveErr := p.save(route)
			if saveErr != nil {
				return nil, saveErr
			}
			return &WaypointUpdateResult{Route: saved, Candidates: candidates}, nil
		}
		waypoint.ApplyCandidate(wp, candidates[0])
	default:
		return nil, errors.New("waypoint update must change a name or coordinates")
	}

	if err := p.recalculateAround(ctx, route, waypointID); err != nil {
		return nil, err
	}
	saved, err := p.save(route)
	if err != nil {
		return nil, err
	}
	return &WaypointUpdateResult{Route: saved, Applied: true}, nil
}

// PickWaypointCandidate adopts one of the candidates returned by a prior
// rename search and recomputes the affected segments
func (p *Planner) PickWaypointCandidate(ctx context.Context, routeID, waypointID string, candidate waypoint.Candidate) (*models.Route, error) {
	route, err := p.GetRoute(routeID)
	if err != nil {
		return nil, err
	}
	wp := route.WaypointByID(waypointID)
	if wp == nil {
		return nil, fmt.Errorf("waypoint %s not found in route %s", waypointID, routeID)
	}
	waypoint.ApplyCandidate(wp, candidate)

	if err := p.recalculateAround(ctx, route, waypointID); err != nil {
		return nil, err
	}
	return p.save(route)
}

func (p *Planner) recalculateAround(ctx context.Context, route *models.Route, waypointID string) error {
	summary, err := p.engine.RecalculateAffected(ctx, route, waypointID)
	if err != nil && !errors.Is(err, routing.ErrNotEnoughWaypoints) {
		return err
	}
	if summary != nil {
		p.collector.WaypointsAdjusted.Add(float64(summary.Adjusted))
	}
	route.SegmentDays = trip.SyncDays(route.SegmentDays, len(route.Segments))
	return nil
}

// SetSegmentDay assigns a segment to a trip day, cascading later segments
// forward so day numbers stay non-decreasing
func (p *Planner) SetSegmentDay(routeID string, segmentIndex, day int) (*models.Route, error) {
	route, err := p.GetRoute(routeID)
	if err != nil {
		return nil, err
	}
	if err := trip.SetDay(route.SegmentDays, segmentIndex, day); err != nil {
		return nil, err
	}
	return p.save(route)
}

// SetDayNote attaches free text to a trip day; blank text removes the note
func (p *Planner) SetDayNote(routeID string, day int, note string) (*models.Route, error) {
	route, err := p.GetRoute(routeID)
	if err != nil {
		return nil, err
	}
	if route.DayNotes == nil {
		route.DayNotes = map[string]string{}
	}
	trip.SetDayNote(route.DayNotes, day, note)
	return p.save(route)
}

// SearchPlaces runs a one-off paced geocode search, used for place
// autocomplete outside any resolution run
func (p *Planner) SearchPlaces(ctx context.Context, query string) []waypoint.Candidate {
	return p.resolver.Search(ctx, query)
}

// Calendar builds the day-by-day trip view for a route
func (p *Planner) Calendar(routeID string) ([]trip.DayEntry, error) {
	route, err := p.GetRoute(routeID)
	if err != nil {
		return nil, err
	}
	return trip.BuildCalendar(route.SegmentDays, route.TripStartDate, route.DayNotes)
}

// FlushPending forces pending autosave snapshots to disk. Export and
// import go through here so documents always reflect the latest edits.
func (p *Planner) FlushPending() {
	if p.autosave != nil {
		p.autosave.FlushAll()
	}
	p.refreshStoredGauge()
}

func (p *Planner) save(route *models.Route) (*models.Route, error) {
	route.UpdatedAt = time.Now().UTC()
	if p.autosave != nil && p.autosave.Queue(route) {
		return route, nil
	}
	saved, err := p.store.Put(route)
	if err != nil {
		return nil, err
	}
	p.refreshStoredGauge()
	return saved, nil
}

func (p *Planner) refreshStoredGauge() {
	if count, err := p.store.Count(); err == nil {
		p.collector.RoutesStored.Set(float64(count))
	}
}
