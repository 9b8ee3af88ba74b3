package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"tripmapper/internal/clients/nominatim"
)

// Manual check against the live Nominatim API. Respect the usage policy:
// one request per run, identifiable user agent.
func main() {
	baseURL := flag.String("base-url", "https://nominatim.openstreetmap.org", "Nominatim base URL")
	limit := flag.Int("limit", 5, "Maximum candidates to request")
	flag.Parse()

	query := strings.Join(flag.Args(), " ")
	if query == "" {
		fmt.Println("Usage: test-geocode [flags] <place name>")
		fmt.Println("Example: test-geocode Leh, Ladakh")
		os.Exit(1)
	}

	client := nominatim.NewClient(*baseURL, "tripmapper-test/1.0")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	candidates, err := client.Geocode(ctx, query, *limit)
	if err != nil {
		log.Fatalf("geocode failed: %v", err)
	}

	fmt.Printf("Query: %q\n", query)
	fmt.Printf("Candidates: %d\n\n", len(candidates))
	for i, c := range candidates {
		fmt.Printf("%d. %s\n", i+1, c.DisplayName)
		fmt.Printf("   lat=%.6f lng=%.6f importance=%.3f\n", c.Lat, c.Lng, c.Importance)
	}
}
