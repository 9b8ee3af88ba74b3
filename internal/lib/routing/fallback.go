package routing

import (
	"context"
	"errors"
	"fmt"

	"tripmapper/internal/lib/geo"
)

// DefaultStepSize is the probing increment in meters. Callers tuning for
// sparse road networks typically pass a larger value, e.g. 1000.
const DefaultStepSize = 100

// ErrFallbackExhausted means no routable substitute was found within half
// the pair distance; the caller falls back to ordinary error handling.
var ErrFallbackExhausted = errors.New("no routable coordinate found within search bound")

// FindRoutableCoordinate probes for a coordinate near b that is routable
// from a, backing off from b toward a in stepSize increments. The search
// never crosses the halfway point: beyond that the failure is treated as a
// genuine routing impossibility rather than a snapping precision issue.
func (e *Engine) FindRoutableCoordinate(ctx context.Context, a, b geo.Point, stepSize float64) (*FallbackResult, error) {
	if stepSize <= 0 {
		return nil, fmt.Errorf("step size must be positive, got %f", stepSize)
	}

	d, err := e.geo.PointToPoint(a, b)
	if err != nil {
		return nil, fmt.Errorf("failed to measure pair distance: %w", err)
	}
	maxSearch := d / 2

	attempts := 0
	for step := stepSize; step <= maxSearch; step += stepSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candidate, err := e.geo.PointTowards(a, b, step)
		if err != nil {
			return nil, fmt.Errorf("failed to compute probe coordinate: %w", err)
		}

		attempts++
		if _, err := e.router.RouteBetween(ctx, a, candidate); err == nil {
			return &FallbackResult{Candidate: candidate, Attempts: attempts}, nil
		}
	}

	return nil, ErrFallbackExhausted
}
