package waypoint

import (
	"context"
)

// Candidate is one geocoding result, ordered by relevance
type Candidate struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance,omitempty"`
}

// Geocoder is the geocoding capability the resolution engine consumes.
// An empty candidate list is a normal outcome, not an error.
type Geocoder interface {
	Geocode(ctx context.Context, query string, limit int) ([]Candidate, error)
}

// State is the resolution state of a single waypoint within a batch
type State string

const (
	StateUnresolved State = "unresolved"
	StateAwaiting   State = "awaiting_decision"
	StateResolved   State = "resolved"
	StateSkipped    State = "skipped"
)

// DecisionAction selects how a suspended waypoint is resolved
type DecisionAction string

const (
	ActionPick    DecisionAction = "pick"    // accept one of the presented candidates
	ActionManual  DecisionAction = "manual"  // user-supplied coordinates
	ActionRequery DecisionAction = "requery" // geocode again with a different string
	ActionSkip    DecisionAction = "skip"    // leave unresolved, move on
)

// Decision is the caller's answer to a pending ambiguity
type Decision struct {
	Action         DecisionAction `json:"action"`
	CandidateIndex int            `json:"candidate_index,omitempty"`
	Lat            float64        `json:"lat,omitempty"`
	Lng            float64        `json:"lng,omitempty"`
	Query          string         `json:"query,omitempty"`
}

// PendingDecision describes the ambiguity a batch is suspended on.
// Zero candidates means the manual-entry path; more than one means a pick.
type PendingDecision struct {
	WaypointID string      `json:"waypoint_id"`
	Query      string      `json:"query"`
	Candidates []Candidate `json:"candidates"`
}

// BatchResult summarizes a batch run up to completion or suspension
type BatchResult struct {
	Attempted int              `json:"attempted"`
	Resolved  int              `json:"resolved"`
	Skipped   int              `json:"skipped"`
	Pending   *PendingDecision `json:"pending,omitempty"`
}

// Done reports whether the batch ran out of waypoints to resolve
func (r *BatchResult) Done() bool {
	return r.Pending == nil
}
