package routing

import (
	"context"
	"errors"

	"tripmapper/internal/lib/geo"
)

// RouteResult is a successful directions computation between two points
type RouteResult struct {
	Polyline       []geo.Point `json:"polyline"`
	DistanceMeters float64     `json:"distanceMeters"`
}

// ErrNoRouteNearby is the structured "no route found within the snapping
// threshold" failure class. Only this class triggers the fallback search;
// transport errors and invalid input never do.
var ErrNoRouteNearby = errors.New("no route found near coordinates")

// ErrNotEnoughWaypoints is the precondition failure for segment calculation
var ErrNotEnoughWaypoints = errors.New("at least 2 geocoded waypoints required")

// Router is the directions capability the segment engine consumes
type Router interface {
	RouteBetween(ctx context.Context, from, to geo.Point) (*RouteResult, error)
}

// Progress reports incremental segment calculation progress (1-based
// current over total). Segment counts can be large and each call can take
// seconds, so callers render this.
type Progress func(current, total int)

// Summary reports the partial-failure outcome of a calculation batch
type Summary struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Adjusted  int `json:"adjusted"` // waypoints moved by the fallback search
}

// FallbackResult is a successful routable-coordinate search
type FallbackResult struct {
	Candidate geo.Point `json:"candidate"`
	Attempts  int       `json:"attempts"`
}
