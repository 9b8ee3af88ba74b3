package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tripmapper/internal/lib/geo"
	"tripmapper/internal/lib/routing"
)

// HTTPDoer abstracts the HTTP client for testing
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client provides access to an OSRM-compatible directions service
type Client struct {
	baseURL    string
	profile    string
	httpClient HTTPDoer
	geo        geo.GeoUtils
}

// NewClient creates a routing client for the given profile (e.g. "driving")
func NewClient(baseURL, profile string) *Client {
	return &Client{
		baseURL: baseURL,
		profile: profile,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		geo: geo.NewGeoUtils(),
	}
}

// NewClientWithHTTPDoer creates a client with a custom HTTP implementation
func NewClientWithHTTPDoer(baseURL, profile string, doer HTTPDoer) *Client {
	return &Client{baseURL: baseURL, profile: profile, httpClient: doer, geo: geo.NewGeoUtils()}
}

// osrmResponse is the wire shape of a route computation
type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Routes  []struct {
		Geometry string  `json:"geometry"`
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

// RouteBetween computes a road route between two coordinates. The OSRM
// codes NoRoute and NoSegment map to routing.ErrNoRouteNearby, the failure
// class the fallback search keys on; every other failure is generic.
func (c *Client) RouteBetween(ctx context.Context, from, to geo.Point) (*routing.RouteResult, error) {
	url := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?overview=full",
		c.baseURL, c.profile,
		from.Longitude, from.Latitude,
		to.Longitude, to.Latitude)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	// OSRM reports routing failures as HTTP 400 with a code in the body,
	// so decode before checking the status
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed osrmResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("routing error %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	switch parsed.Code {
	case "Ok":
	case "NoRoute", "NoSegment":
		return nil, fmt.Errorf("%w: %s", routing.ErrNoRouteNearby, parsed.Code)
	default:
		return nil, fmt.Errorf("routing error %s: %s", parsed.Code, parsed.Message)
	}

	if len(parsed.Routes) == 0 {
		return nil, fmt.Errorf("no routes in response")
	}

	points, err := c.geo.DecodePolyline(parsed.Routes[0].Geometry)
	if err != nil {
		return nil, fmt.Errorf("failed to decode route geometry: %w", err)
	}

	return &routing.RouteResult{
		Polyline:       points,
		DistanceMeters: parsed.Routes[0].Distance,
	}, nil
}
