package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/twpayne/go-kml"

	"tripmapper/internal/models"
)

// exportKML renders a route as a KML document: one placemark per geocoded
// waypoint plus one line string per computed segment.
func (s *Server) exportKML(c *gin.Context) {
	route, err := s.planner.GetRoute(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	doc := buildKML(route)
	c.Header("Content-Type", "application/vnd.google-earth.kml+xml")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", route.Name+".kml"))
	c.Status(http.StatusOK)
	if err := doc.WriteIndent(c.Writer, "", "  "); err != nil {
		fail(c, err)
	}
}

func buildKML(route *models.Route) kml.Element {
	children := []kml.Element{kml.Name(route.Name)}

	for _, wp := range route.GeocodedWaypoints() {
		name := wp.Name
		if wp.DisplayName != "" {
			name = wp.DisplayName
		}
		children = append(children, kml.Placemark(
			kml.Name(name),
			kml.Point(kml.Coordinates(kml.Coordinate{Lon: wp.Lng, Lat: wp.Lat})),
		))
	}

	for i, seg := range route.Segments {
		coords := make([]kml.Coordinate, 0, len(seg.Polyline))
		for _, pt := range seg.Polyline {
			coords = append(coords, kml.Coordinate{Lon: pt.Longitude, Lat: pt.Latitude})
		}
		children = append(children, kml.Placemark(
			kml.Name(fmt.Sprintf("Segment %d", i+1)),
			kml.Description(fmt.Sprintf("%.1f km", seg.DistanceMeters/1000)),
			kml.LineString(
				kml.Tessellate(true),
				kml.Coordinates(coords...),
			),
		))
	}

	return kml.KML(kml.Document(children...))
}
