package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"tripmapper/internal/clients/osrm"
	"tripmapper/internal/lib/geo"
	"tripmapper/internal/lib/routing"
)

// Manual check against a live OSRM instance, including the fallback
// search behavior for unroutable coordinates.
func main() {
	baseURL := flag.String("base-url", "https://router.project-osrm.org", "OSRM base URL")
	profile := flag.String("profile", "driving", "OSRM routing profile")
	fromLat := flag.Float64("from-lat", 34.1526, "Origin latitude")
	fromLng := flag.Float64("from-lng", 77.5771, "Origin longitude")
	toLat := flag.Float64("to-lat", 34.5539, "Destination latitude")
	toLng := flag.Float64("to-lng", 76.1349, "Destination longitude")
	stepSize := flag.Int("step-size", 100, "Fallback search step in meters")
	flag.Parse()

	client := osrm.NewClient(*baseURL, *profile)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	from, err := geo.NewPoint(*fromLat, *fromLng)
	if err != nil {
		log.Fatalf("invalid origin: %v", err)
	}
	to, err := geo.NewPoint(*toLat, *toLng)
	if err != nil {
		log.Fatalf("invalid destination: %v", err)
	}

	result, err := client.RouteBetween(ctx, from, to)
	if err == nil {
		fmt.Printf("Route found: %.1f km, %d polyline points\n", result.DistanceMeters/1000, len(result.Polyline))
		return
	}

	if !errors.Is(err, routing.ErrNoRouteNearby) {
		log.Fatalf("routing failed: %v", err)
	}

	fmt.Printf("No route near destination, probing toward origin (step %dm)\n", *stepSize)
	engine := routing.NewEngine(client, float64(*stepSize))
	fallback, ferr := engine.FindRoutableCoordinate(ctx, from, to, float64(*stepSize))
	if ferr != nil {
		log.Fatalf("fallback search failed: %v", ferr)
	}
	fmt.Printf("Routable substitute after %d attempts: lat=%.6f lng=%.6f\n",
		fallback.Attempts, fallback.Candidate.Latitude, fallback.Candidate.Longitude)
}
