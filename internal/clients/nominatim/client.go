package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tripmapper/internal/lib/waypoint"
)

// AutocompleteLimit is the smaller result cap used for incremental-typing
// lookups; full geocoding uses the caller-supplied limit
const AutocompleteLimit = 5

// HTTPDoer abstracts the HTTP client for testing
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client provides access to a Nominatim-compatible geocoding service.
// Callers own call pacing: the public endpoint requires at least 1 second
// between requests.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient HTTPDoer
}

// NewClient creates a geocoding client. Nominatim requires an identifying
// User-Agent on every request.
func NewClient(baseURL, userAgent string) *Client {
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// NewClientWithHTTPDoer creates a client with a custom HTTP implementation
func NewClientWithHTTPDoer(baseURL, userAgent string, doer HTTPDoer) *Client {
	return &Client{baseURL: baseURL, userAgent: userAgent, httpClient: doer}
}

// nominatimResult is one entry of the search response. Coordinates arrive
// as strings on the wire.
type nominatimResult struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
}

// Geocode resolves a place-name query to candidate coordinates, ordered by
// relevance. An empty list is a normal outcome for unknown names.
func (c *Client) Geocode(ctx context.Context, query string, limit int) ([]waypoint.Candidate, error) {
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("geocoder rate limit exceeded")
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("geocoder error %d: %s", resp.StatusCode, string(body))
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	candidates := make([]waypoint.Candidate, 0, len(results))
	for _, r := range results {
		lat, err := strconv.ParseFloat(r.Lat, 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(r.Lon, 64)
		if err != nil {
			continue
		}
		candidates = append(candidates, waypoint.Candidate{
			Lat:         lat,
			Lng:         lon,
			DisplayName: r.DisplayName,
			Importance:  r.Importance,
		})
	}

	return candidates, nil
}

// Autocomplete is the incremental-typing variant of Geocode: identical
// contract, smaller result cap for a faster round trip
func (c *Client) Autocomplete(ctx context.Context, query string) ([]waypoint.Candidate, error) {
	return c.Geocode(ctx, query, AutocompleteLimit)
}
