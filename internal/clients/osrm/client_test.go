package osrm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tripmapper/internal/lib/geo"
	"tripmapper/internal/lib/routing"
)

// MockHTTPDoer is a mock implementation of HTTPDoer
type MockHTTPDoer struct {
	mock.Mock
}

func (m *MockHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	return args.Get(0).(*http.Response), args.Error(1)
}

func createMockResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

// Geometry encodes (38.5, -120.2), (40.7, -120.95), (43.252, -126.453)
const okResponse = `{
	"code": "Ok",
	"routes": [{"geometry": "_p~iF~ps|U_ulLnnqC_mqNvxq` + "`" + `@", "distance": 42318.5, "duration": 3620.2}]
}`

func TestRouteBetween_Success(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(
		createMockResponse(200, okResponse), nil)

	client := NewClientWithHTTPDoer("https://router.example.org", "driving", mockHTTP)

	result, err := client.RouteBetween(context.Background(),
		geo.Point{Latitude: 38.5, Longitude: -120.2},
		geo.Point{Latitude: 43.252, Longitude: -126.453})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, 42318.5, result.DistanceMeters)
	require.Len(t, result.Polyline, 3)
	assert.InDelta(t, 38.5, result.Polyline[0].Latitude, 0.00001)

	// OSRM expects lng,lat pair ordering in the path
	req := mockHTTP.Calls[0].Arguments.Get(0).(*http.Request)
	assert.Contains(t, req.URL.Path, "/route/v1/driving/-120.200000,38.500000;")
	assert.Equal(t, "full", req.URL.Query().Get("overview"))
}

func TestRouteBetween_NoRouteIsStructuredError(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(
		createMockResponse(400, `{"code": "NoRoute", "message": "Impossible route between points"}`), nil)

	client := NewClientWithHTTPDoer("https://router.example.org", "driving", mockHTTP)

	_, err := client.RouteBetween(context.Background(),
		geo.Point{Latitude: 34.15, Longitude: 77.57},
		geo.Point{Latitude: 34.30, Longitude: 77.30})
	assert.ErrorIs(t, err, routing.ErrNoRouteNearby)
}

func TestRouteBetween_NoSegmentIsStructuredError(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(
		createMockResponse(400, `{"code": "NoSegment", "message": "Could not find a matching segment"}`), nil)

	client := NewClientWithHTTPDoer("https://router.example.org", "driving", mockHTTP)

	_, err := client.RouteBetween(context.Background(),
		geo.Point{Latitude: 34.15, Longitude: 77.57},
		geo.Point{Latitude: 34.30, Longitude: 77.30})
	assert.ErrorIs(t, err, routing.ErrNoRouteNearby)
}

func TestRouteBetween_GenericFailuresAreNotNoRoute(t *testing.T) {
	cases := []struct {
		name string
		resp *http.Response
		err  error
	}{
		{"server error", createMockResponse(500, "upstream exploded"), nil},
		{"invalid query", createMockResponse(400, `{"code": "InvalidQuery", "message": "bad coords"}`), nil},
		{"transport failure", createMockResponse(0, ""), errors.New("connection refused")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockHTTP := &MockHTTPDoer{}
			mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(tc.resp, tc.err)

			client := NewClientWithHTTPDoer("https://router.example.org", "driving", mockHTTP)

			_, err := client.RouteBetween(context.Background(),
				geo.Point{Latitude: 34.15, Longitude: 77.57},
				geo.Point{Latitude: 34.30, Longitude: 77.30})
			require.Error(t, err)
			assert.False(t, errors.Is(err, routing.ErrNoRouteNearby),
				"Only NoRoute/NoSegment may map to the fallback-trigger class")
		})
	}
}

func TestRouteBetween_EmptyRouteList(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(
		createMockResponse(200, `{"code": "Ok", "routes": []}`), nil)

	client := NewClientWithHTTPDoer("https://router.example.org", "driving", mockHTTP)

	_, err := client.RouteBetween(context.Background(),
		geo.Point{Latitude: 34.15, Longitude: 77.57},
		geo.Point{Latitude: 34.30, Longitude: 77.30})
	assert.Error(t, err)
}
