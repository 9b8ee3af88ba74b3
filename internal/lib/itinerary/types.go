package itinerary

import (
	"context"
)

// ExtractedWaypoint is one stop pulled out of free-text itinerary
type ExtractedWaypoint struct {
	Name     string `json:"name"`
	Sequence int    `json:"sequence"`
	Context  string `json:"context,omitempty"`
}

// Extractor interface defines LLM-powered waypoint extraction from raw
// itinerary text. Output is sorted by sequence regardless of model order.
type Extractor interface {
	// Extract waypoints from itinerary text. Malformed model output fails
	// the whole call; no partial list is ever returned.
	ExtractWaypoints(ctx context.Context, text string) ([]ExtractedWaypoint, error)

	// Health check for the LLM service
	HealthCheck(ctx context.Context) error
}

// NewExtractor is implemented in extractor.go
