package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can create collectors
// without colliding on the global default registry.
type Collector struct {
	reg *prometheus.Registry

	RoutesStored prometheus.Gauge

	GeocodeRequests *prometheus.CounterVec // outcome label: ok|empty|error
	RouteRequests   *prometheus.CounterVec // outcome label: ok|no_route|error
	ExtractRequests *prometheus.CounterVec // outcome label: ok|error

	WaypointsAdjusted  prometheus.Counter
	DecisionsSuspended prometheus.Counter

	GeocodeDuration prometheus.Histogram
	RouteDuration   prometheus.Histogram
	ExtractDuration prometheus.Histogram
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		RoutesStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripmapper_routes_stored",
			Help: "Number of routes currently persisted.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripmapper_geocode_requests_total",
			Help: "Total geocoding requests by outcome.",
		}, []string{"outcome"}),
		RouteRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripmapper_route_requests_total",
			Help: "Total road routing requests by outcome.",
		}, []string{"outcome"}),
		ExtractRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripmapper_extract_requests_total",
			Help: "Total itinerary extraction requests by outcome.",
		}, []string{"outcome"}),
		WaypointsAdjusted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripmapper_waypoints_adjusted_total",
			Help: "Total waypoints moved to a nearby routable coordinate.",
		}),
		DecisionsSuspended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripmapper_resolution_suspensions_total",
			Help: "Total times batch resolution suspended awaiting a user decision.",
		}),
		GeocodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripmapper_geocode_duration_seconds",
			Help:    "Duration of geocoding requests including mandatory pacing.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		RouteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripmapper_route_duration_seconds",
			Help:    "Duration of road routing requests.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		ExtractDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripmapper_extract_duration_seconds",
			Help:    "Duration of itinerary extraction calls.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}

	reg.MustRegister(
		c.RoutesStored,
		c.GeocodeRequests, c.RouteRequests, c.ExtractRequests,
		c.WaypointsAdjusted, c.DecisionsSuspended,
		c.GeocodeDuration, c.RouteDuration, c.ExtractDuration,
	)

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }
