package models

import (
	"time"

	"github.com/google/uuid"

	"tripmapper/internal/lib/geo"
)

// Waypoint is a named stop in sequence order. Lat/Lng of (0,0) is the
// sentinel for "not yet geocoded"; (0,0) is not a legal stop in this domain.
type Waypoint struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Order       int     `json:"order"`
	DisplayName string  `json:"displayName,omitempty"`
	Adjusted    bool    `json:"adjusted,omitempty"`

	// Pre-adjustment coordinates, set when the fallback search moved the
	// waypoint to a routable substitute.
	OriginalCoordinates *Coordinates `json:"originalCoordinates,omitempty"`
}

// Coordinates is a bare lat/lng pair
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geocoded reports whether the waypoint has real coordinates
func (w Waypoint) Geocoded() bool {
	return w.Lat != 0 || w.Lng != 0
}

// Point returns the waypoint position as a geo.Point
func (w Waypoint) Point() geo.Point {
	return geo.Point{Latitude: w.Lat, Longitude: w.Lng}
}

// NewWaypoint creates an ungeocoded waypoint with a fresh id
func NewWaypoint(name string, order int) Waypoint {
	return Waypoint{
		ID:    uuid.NewString(),
		Name:  name,
		Order: order,
	}
}

// Segment is a directed, routed edge between two consecutive geocoded
// waypoints. Endpoints are joined by waypoint id, never by list index.
type Segment struct {
	FromWaypointID string      `json:"fromWaypointId"`
	ToWaypointID   string      `json:"toWaypointId"`
	Polyline       []geo.Point `json:"polyline"`
	DistanceMeters float64     `json:"distanceMeters"`
}

// Route is the persisted trip entity. Waypoints and segments are embedded,
// there is no separate storage for them.
type Route struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	ItineraryText string            `json:"itineraryText"`
	Waypoints     []Waypoint        `json:"waypoints"`
	Segments      []Segment         `json:"segments"`
	SegmentDays   []int             `json:"segmentDays"`
	TripStartDate string            `json:"tripStartDate,omitempty"` // YYYY-MM-DD
	DayNotes      map[string]string `json:"dayNotes,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// NewRoute creates an empty in-memory route. The id is assigned here and
// never changes; persistence keys on it.
func NewRoute(name string) *Route {
	now := time.Now().UTC()
	return &Route{
		ID:        uuid.NewString(),
		Name:      name,
		DayNotes:  map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NormalizeOrder rewrites waypoint Order values to a contiguous 0..N-1
// sequence in current list order. Call after any insert, remove or reorder.
func (r *Route) NormalizeOrder() {
	for i := range r.Waypoints {
		r.Waypoints[i].Order = i
	}
}

// WaypointByID returns a pointer to the waypoint with the given id, or nil
func (r *Route) WaypointByID(id string) *Waypoint {
	for i := range r.Waypoints {
		if r.Waypoints[i].ID == id {
			return &r.Waypoints[i]
		}
	}
	return nil
}

// GeocodedWaypoints returns the waypoints that have real coordinates, in
// sequence order. Sentinel waypoints are skipped, not errors.
func (r *Route) GeocodedWaypoints() []Waypoint {
	var out []Waypoint
	for _, w := range r.Waypoints {
		if w.Geocoded() {
			out = append(out, w)
		}
	}
	return out
}

// AddWaypoint appends a waypoint and renormalizes ordering
func (r *Route) AddWaypoint(name string) *Waypoint {
	w := NewWaypoint(name, len(r.Waypoints))
	r.Waypoints = append(r.Waypoints, w)
	r.NormalizeOrder()
	return &r.Waypoints[len(r.Waypoints)-1]
}

// RemoveWaypoint deletes the waypoint with the given id and renormalizes
// ordering. Returns false if no such waypoint exists.
func (r *Route) RemoveWaypoint(id string) bool {
	for i := range r.Waypoints {
		if r.Waypoints[i].ID == id {
			r.Waypoints = append(r.Waypoints[:i], r.Waypoints[i+1:]...)
			r.NormalizeOrder()
			return true
		}
	}
	return false
}

// FlatPolyline concatenates all segment polylines in order. Purely derived,
// never independently mutated.
func (r *Route) FlatPolyline() []geo.Point {
	var flat []geo.Point
	for _, s := range r.Segments {
		flat = append(flat, s.Polyline...)
	}
	return flat
}

// Clone returns a deep copy suitable for snapshotting
func (r *Route) Clone() *Route {
	cp := *r
	cp.Waypoints = make([]Waypoint, len(r.Waypoints))
	copy(cp.Waypoints, r.Waypoints)
	for i, w := range r.Waypoints {
		if w.OriginalCoordinates != nil {
			oc := *w.OriginalCoordinates
			cp.Waypoints[i].OriginalCoordinates = &oc
		}
	}
	cp.Segments = make([]Segment, len(r.Segments))
	for i, s := range r.Segments {
		cp.Segments[i] = s
		cp.Segments[i].Polyline = make([]geo.Point, len(s.Polyline))
		copy(cp.Segments[i].Polyline, s.Polyline)
	}
	cp.SegmentDays = make([]int, len(r.SegmentDays))
	copy(cp.SegmentDays, r.SegmentDays)
	if r.DayNotes != nil {
		cp.DayNotes = make(map[string]string, len(r.DayNotes))
		for k, v := range r.DayNotes {
			cp.DayNotes[k] = v
		}
	}
	return &cp
}
