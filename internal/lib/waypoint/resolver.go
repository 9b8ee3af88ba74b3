package waypoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"tripmapper/internal/models"
)

// DefaultCandidateLimit caps how many geocoding candidates are presented
const DefaultCandidateLimit = 5

// ErrNoPendingDecision is returned when Decide is called on a batch that is
// not suspended
var ErrNoPendingDecision = errors.New("batch has no pending decision")

// ErrInvalidCoordinates rejects manual entry outside the legal ranges
var ErrInvalidCoordinates = errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")

// Resolver turns waypoint names into verified coordinates. The external
// geocoder enforces a minimum spacing between calls, so all geocoding is
// strictly serial and the resolver owns the pacing.
type Resolver struct {
	geocoder    Geocoder
	minInterval time.Duration
	limit       int
	lastCall    time.Time
}

// NewResolver creates a resolver. minInterval is the mandatory delay between
// consecutive geocode calls; the public Nominatim policy is 1 second.
func NewResolver(geocoder Geocoder, minInterval time.Duration) *Resolver {
	return &Resolver{
		geocoder:    geocoder,
		minInterval: minInterval,
		limit:       DefaultCandidateLimit,
	}
}

// pace blocks until the mandatory inter-call spacing has elapsed
func (r *Resolver) pace(ctx context.Context) error {
	if r.minInterval <= 0 || r.lastCall.IsZero() {
		r.lastCall = time.Now()
		return nil
	}
	wait := r.minInterval - time.Since(r.lastCall)
	if wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	r.lastCall = time.Now()
	return nil
}

// Search geocodes a single query string, respecting call spacing. A geocoder
// failure is downgraded to an empty candidate list so one flaky lookup never
// kills a batch.
func (r *Resolver) Search(ctx context.Context, query string) []Candidate {
	if err := r.pace(ctx); err != nil {
		return nil
	}
	candidates, err := r.geocoder.Geocode(ctx, query, r.limit)
	if err != nil {
		logrus.WithError(err).WithField("query", query).Warn("geocode failed, treating as zero candidates")
		return nil
	}
	return candidates
}

// ApplyCandidate resolves a waypoint with a picked geocoding candidate.
// The full geocoded label is adopted as the display name; the user-typed
// name is kept as the stable short name.
func ApplyCandidate(wp *models.Waypoint, c Candidate) {
	wp.Lat = c.Lat
	wp.Lng = c.Lng
	wp.DisplayName = c.DisplayName
	wp.Adjusted = false
	wp.OriginalCoordinates = nil
}

// ApplyManual resolves a waypoint with user-supplied coordinates. Manual
// entry has no authoritative place name, so the typed name stays and the
// display name only records the coordinates.
func ApplyManual(wp *models.Waypoint, lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return ErrInvalidCoordinates
	}
	wp.Lat = lat
	wp.Lng = lng
	wp.DisplayName = fmt.Sprintf("Manual: %.4f, %.4f", lat, lng)
	wp.Adjusted = false
	wp.OriginalCoordinates = nil
	return nil
}

// Batch is a resumable geocoding run over a route's waypoints. It walks the
// list in order, suspends at the first ambiguity and waits for a Decision
// before continuing. Only one batch mutates a route at a time.
type Batch struct {
	resolver *Resolver
	route    *models.Route
	cursor   int
	pending  *PendingDecision
	result   BatchResult
}

// NewBatch starts a batch over the route's currently ungeocoded waypoints
func (r *Resolver) NewBatch(route *models.Route) *Batch {
	return &Batch{resolver: r, route: route}
}

// Run advances the batch until it completes or suspends on an ambiguity.
// Cancelling the context abandons the batch; waypoints already resolved
// stay resolved, partial state is valid state.
func (b *Batch) Run(ctx context.Context) (*BatchResult, error) {
	if b.pending != nil {
		res := b.result
		res.Pending = b.pending
		return &res, nil
	}

	for b.cursor < len(b.route.Waypoints) {
		if err := ctx.Err(); err != nil {
			res := b.result
			return &res, err
		}

		wp := &b.route.Waypoints[b.cursor]
		if wp.Geocoded() {
			b.cursor++
			continue
		}

		b.result.Attempted++
		candidates := b.resolver.Search(ctx, wp.Name)
		if err := ctx.Err(); err != nil {
			res := b.result
			return &res, err
		}

		if len(candidates) == 1 {
			// Single match auto-accepts, no decision needed
			ApplyCandidate(wp, candidates[0])
			b.result.Resolved++
			b.cursor++
			continue
		}

		// Zero or many candidates: suspend and wait for the caller
		b.pending = &PendingDecision{
			WaypointID: wp.ID,
			Query:      wp.Name,
			Candidates: candidates,
		}
		res := b.result
		res.Pending = b.pending
		return &res, nil
	}

	res := b.result
	return &res, nil
}

// Pending returns the decision the batch is suspended on, or nil
func (b *Batch) Pending() *PendingDecision {
	return b.pending
}

// Decide applies the caller's decision to the suspended waypoint and resumes
// the batch. A requery re-enters the same state machine with the new string
// and may suspend again on the same waypoint.
func (b *Batch) Decide(ctx context.Context, d Decision) (*BatchResult, error) {
	if b.pending == nil {
		return nil, ErrNoPendingDecision
	}

	wp := b.route.WaypointByID(b.pending.WaypointID)
	if wp == nil {
		return nil, fmt.Errorf("pending waypoint %s no longer exists", b.pending.WaypointID)
	}

	switch d.Action {
	case ActionPick:
		if d.CandidateIndex < 0 || d.CandidateIndex >= len(b.pending.Candidates) {
			return nil, fmt.Errorf("candidate index %d out of range", d.CandidateIndex)
		}
		ApplyCandidate(wp, b.pending.Candidates[d.CandidateIndex])
		b.result.Resolved++
		b.pending = nil
		b.cursor++

	case ActionManual:
		if err := ApplyManual(wp, d.Lat, d.Lng); err != nil {
			return nil, err
		}
		b.result.Resolved++
		b.pending = nil
		b.cursor++

	case ActionRequery:
		if d.Query == "" {
			return nil, errors.New("requery requires a non-empty query string")
		}
		candidates := b.resolver.Search(ctx, d.Query)
		if err := ctx.Err(); err != nil {
			// Cancellation, not a genuine zero-candidate result; the old
			// pending decision stays in place
			res := b.result
			res.Pending = b.pending
			return &res, err
		}
		if len(candidates) == 1 {
			ApplyCandidate(wp, candidates[0])
			b.result.Resolved++
			b.pending = nil
			b.cursor++
		} else {
			b.pending = &PendingDecision{
				WaypointID: wp.ID,
				Query:      d.Query,
				Candidates: candidates,
			}
			res := b.result
			res.Pending = b.pending
			return &res, nil
		}

	case ActionSkip:
		// Waypoint stays unresolved; segment calculation will skip it
		b.result.Skipped++
		b.pending = nil
		b.cursor++

	default:
		return nil, fmt.Errorf("unknown decision action %q", d.Action)
	}

	return b.Run(ctx)
}
