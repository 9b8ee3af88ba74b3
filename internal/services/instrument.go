package services

import (
	"context"
	"errors"
	"time"

	"tripmapper/internal/lib/geo"
	"tripmapper/internal/lib/routing"
	"tripmapper/internal/lib/waypoint"
	"tripmapper/internal/metrics"
)

// InstrumentGeocoder wraps a geocoder with request counters and latency
// observation. The pipeline itself stays metrics-free.
func InstrumentGeocoder(inner waypoint.Geocoder, collector *metrics.Collector) waypoint.Geocoder {
	return &instrumentedGeocoder{inner: inner, collector: collector}
}

type instrumentedGeocoder struct {
	inner     waypoint.Geocoder
	collector *metrics.Collector
}

func (g *instrumentedGeocoder) Geocode(ctx context.Context, query string, limit int) ([]waypoint.Candidate, error) {
	start := time.Now()
	candidates, err := g.inner.Geocode(ctx, query, limit)
	g.collector.GeocodeDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		g.collector.GeocodeRequests.WithLabelValues("error").Inc()
	case len(candidates) == 0:
		g.collector.GeocodeRequests.WithLabelValues("empty").Inc()
	default:
		g.collector.GeocodeRequests.WithLabelValues("ok").Inc()
	}
	return candidates, err
}

// InstrumentRouter wraps a router the same way. Fallback probes surface
// here as additional requests, most with the no_route outcome.
func InstrumentRouter(inner routing.Router, collector *metrics.Collector) routing.Router {
	return &instrumentedRouter{inner: inner, collector: collector}
}

type instrumentedRouter struct {
	inner     routing.Router
	collector *metrics.Collector
}

func (r *instrumentedRouter) RouteBetween(ctx context.Context, from, to geo.Point) (*routing.RouteResult, error) {
	start := time.Now()
	result, err := r.inner.RouteBetween(ctx, from, to)
	r.collector.RouteDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, routing.ErrNoRouteNearby):
		r.collector.RouteRequests.WithLabelValues("no_route").Inc()
	case err != nil:
		r.collector.RouteRequests.WithLabelValues("error").Inc()
	default:
		r.collector.RouteRequests.WithLabelValues("ok").Inc()
	}
	return result, err
}
