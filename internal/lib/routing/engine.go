package routing

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"tripmapper/internal/lib/geo"
	"tripmapper/internal/models"
)

// Engine computes directed segments between consecutive geocoded waypoints.
// All routing calls are serial; the route is mutated by one engine run at a
// time by caller contract.
type Engine struct {
	router   Router
	geo      geo.GeoUtils
	stepSize float64
}

// NewEngine creates a segment engine. stepSize parameterizes the fallback
// search increment; pass 0 for the default.
func NewEngine(router Router, stepSize float64) *Engine {
	if stepSize <= 0 {
		stepSize = DefaultStepSize
	}
	return &Engine{
		router:   router,
		geo:      geo.NewGeoUtils(),
		stepSize: stepSize,
	}
}

// Recalculate rebuilds the whole segment list from the currently geocoded
// waypoints. Ungeocoded waypoints are skipped, not errors. Individual
// segment failures never abort the batch; the summary reports how many of
// the attempted pairs succeeded. Cancellation keeps segments computed so
// far.
func (e *Engine) Recalculate(ctx context.Context, route *models.Route, progress Progress) (*Summary, error) {
	geocoded := route.GeocodedWaypoints()
	if len(geocoded) < 2 {
		// Precondition failure: existing segments are left untouched
		return nil, ErrNotEnoughWaypoints
	}

	total := len(geocoded) - 1
	summary := &Summary{Attempted: total}
	segments := make([]models.Segment, 0, total)

	for i := 0; i < total; i++ {
		if progress != nil {
			progress(i+1, total)
		}
		if err := ctx.Err(); err != nil {
			route.Segments = segments
			return summary, err
		}

		seg, adjusted, err := e.computePair(ctx, route, &geocoded[i], &geocoded[i+1])
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"from": geocoded[i].Name,
				"to":   geocoded[i+1].Name,
			}).Warn("segment calculation failed, skipping")
			continue
		}
		if adjusted {
			summary.Adjusted++
		}
		segments = append(segments, *seg)
		summary.Succeeded++
	}

	route.Segments = segments
	return summary, nil
}

// RecalculateAffected recomputes only the segments adjacent to an edited
// waypoint: the one ending at it and the one starting at it, at most two.
// Existing entries are matched by (fromWaypointId, toWaypointId) and
// replaced in place; a new adjacency is inserted at its pair position.
// Segments not adjacent to the edit are never touched.
func (e *Engine) RecalculateAffected(ctx context.Context, route *models.Route, waypointID string) (*Summary, error) {
	geocoded := route.GeocodedWaypoints()
	if len(geocoded) < 2 {
		return nil, ErrNotEnoughWaypoints
	}

	gi := -1
	for i, w := range geocoded {
		if w.ID == waypointID {
			gi = i
			break
		}
	}
	if gi == -1 {
		return nil, fmt.Errorf("waypoint %s is not in the geocoded list", waypointID)
	}

	type pair struct{ fromIdx, toIdx int }
	var pairs []pair
	if gi > 0 {
		pairs = append(pairs, pair{gi - 1, gi})
	}
	if gi < len(geocoded)-1 {
		pairs = append(pairs, pair{gi, gi + 1})
	}

	summary := &Summary{Attempted: len(pairs)}
	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		from, to := &geocoded[p.fromIdx], &geocoded[p.toIdx]
		seg, adjusted, err := e.computePair(ctx, route, from, to)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"from": from.Name,
				"to":   to.Name,
			}).Warn("affected segment calculation failed, skipping")
			continue
		}
		if adjusted {
			summary.Adjusted++
		}
		e.upsertSegment(route, *seg, p.fromIdx)
		summary.Succeeded++
	}

	return summary, nil
}

// computePair routes one waypoint pair, invoking the fallback search when
// the failure is the no-route-nearby class. On fallback success the
// destination waypoint is moved to the routable substitute and the retry
// result is authoritative.
func (e *Engine) computePair(ctx context.Context, route *models.Route, from, to *models.Waypoint) (*models.Segment, bool, error) {
	result, err := e.router.RouteBetween(ctx, from.Point(), to.Point())
	if err == nil {
		return &models.Segment{
			FromWaypointID: from.ID,
			ToWaypointID:   to.ID,
			Polyline:       result.Polyline,
			DistanceMeters: result.DistanceMeters,
		}, false, nil
	}
	if !errors.Is(err, ErrNoRouteNearby) {
		return nil, false, err
	}

	fb, fbErr := e.FindRoutableCoordinate(ctx, from.Point(), to.Point(), e.stepSize)
	if fbErr != nil {
		return nil, false, fmt.Errorf("fallback search failed after no-route error: %w", fbErr)
	}

	logrus.WithFields(logrus.Fields{
		"waypoint": to.Name,
		"attempts": fb.Attempts,
	}).Info("moved waypoint to routable substitute coordinate")

	// Preserve the original position, then overwrite the live coordinates.
	// Later segments computed against this waypoint use the adjusted point.
	e.adjustWaypoint(route, to, fb.Candidate)

	result, err = e.router.RouteBetween(ctx, from.Point(), to.Point())
	if err != nil {
		return nil, true, fmt.Errorf("retry after adjustment failed: %w", err)
	}
	return &models.Segment{
		FromWaypointID: from.ID,
		ToWaypointID:   to.ID,
		Polyline:       result.Polyline,
		DistanceMeters: result.DistanceMeters,
	}, true, nil
}

// adjustWaypoint applies a fallback substitute to both the route's waypoint
// and the local geocoded copy used for the remaining pairs
func (e *Engine) adjustWaypoint(route *models.Route, local *models.Waypoint, candidate geo.Point) {
	if wp := route.WaypointByID(local.ID); wp != nil {
		if wp.OriginalCoordinates == nil {
			wp.OriginalCoordinates = &models.Coordinates{Lat: wp.Lat, Lng: wp.Lng}
		}
		wp.Adjusted = true
		wp.Lat = candidate.Latitude
		wp.Lng = candidate.Longitude
	}
	if local.OriginalCoordinates == nil {
		local.OriginalCoordinates = &models.Coordinates{Lat: local.Lat, Lng: local.Lng}
	}
	local.Adjusted = true
	local.Lat = candidate.Latitude
	local.Lng = candidate.Longitude
}

// upsertSegment replaces the segment matching the id pair, or inserts at
// the pair-index position when no match exists. Index is only an insertion
// hint; identity is always the id pair.
func (e *Engine) upsertSegment(route *models.Route, seg models.Segment, pairIdx int) {
	for i := range route.Segments {
		if route.Segments[i].FromWaypointID == seg.FromWaypointID &&
			route.Segments[i].ToWaypointID == seg.ToWaypointID {
			route.Segments[i] = seg
			return
		}
	}

	pos := pairIdx
	if pos > len(route.Segments) {
		pos = len(route.Segments)
	}
	route.Segments = append(route.Segments, models.Segment{})
	copy(route.Segments[pos+1:], route.Segments[pos:])
	route.Segments[pos] = seg
}
