package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tripmapper/internal/lib/itinerary"
	"tripmapper/internal/lib/routing"
	"tripmapper/internal/lib/trip"
	"tripmapper/internal/lib/waypoint"
	"tripmapper/internal/services"
	"tripmapper/internal/store"
)

// fail maps domain errors onto HTTP statuses in one place
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrResolutionInProgress),
		errors.Is(err, services.ErrNoActiveResolution):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, waypoint.ErrInvalidCoordinates),
		errors.Is(err, waypoint.ErrNoPendingDecision),
		errors.Is(err, trip.ErrDayIndexOutOfRange),
		errors.Is(err, routing.ErrNotEnoughWaypoints),
		errors.Is(err, itinerary.ErrEmptyItinerary),
		errors.Is(err, itinerary.ErrMalformedExtraction):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logrus.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) listRoutes(c *gin.Context) {
	routes, err := s.planner.ListRoutes()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"routes": routes})
}

type createRouteRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) createRoute(c *gin.Context) {
	var req createRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	route, err := s.planner.CreateRoute(req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, route)
}

func (s *Server) getRoute(c *gin.Context) {
	route, err := s.planner.GetRoute(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

type updateRouteRequest struct {
	Name          *string `json:"name"`
	TripStartDate *string `json:"tripStartDate"`
}

func (s *Server) updateRoute(c *gin.Context) {
	var req updateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	route, err := s.planner.GetRoute(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if req.Name != nil {
		route.Name = *req.Name
	}
	if req.TripStartDate != nil {
		if *req.TripStartDate != "" {
			if _, err := time.Parse("2006-01-02", *req.TripStartDate); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "tripStartDate must be YYYY-MM-DD"})
				return
			}
		}
		route.TripStartDate = *req.TripStartDate
	}
	saved, err := s.planner.SaveRoute(route)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (s *Server) deleteRoute(c *gin.Context) {
	deleted, err := s.planner.DeleteRoute(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

type extractRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) extractItinerary(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	route, err := s.planner.ExtractItinerary(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

func (s *Server) startResolution(c *gin.Context) {
	status, err := s.planner.StartResolution(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) decideResolution(c *gin.Context) {
	var decision waypoint.Decision
	if err := c.ShouldBindJSON(&decision); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := s.planner.Decide(c.Request.Context(), c.Param("id"), decision)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) cancelResolution(c *gin.Context) {
	route, err := s.planner.CancelResolution(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

func (s *Server) recalculateSegments(c *gin.Context) {
	route, summary, err := s.planner.RecalculateSegments(c.Request.Context(), c.Param("id"), nil)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": route, "summary": summary})
}

type addWaypointRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) addWaypoint(c *gin.Context) {
	var req addWaypointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	route, err := s.planner.AddWaypoint(c.Param("id"), req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, route)
}

func (s *Server) updateWaypoint(c *gin.Context) {
	var update services.WaypointUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := s.planner.UpdateWaypoint(c.Request.Context(), c.Param("id"), c.Param("wid"), update)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) removeWaypoint(c *gin.Context) {
	route, err := s.planner.RemoveWaypoint(c.Request.Context(), c.Param("id"), c.Param("wid"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

func (s *Server) pickCandidate(c *gin.Context) {
	var candidate waypoint.Candidate
	if err := c.ShouldBindJSON(&candidate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	route, err := s.planner.PickWaypointCandidate(c.Request.Context(), c.Param("id"), c.Param("wid"), candidate)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

type setDayRequest struct {
	Day int `json:"day" binding:"required"`
}

func (s *Server) setSegmentDay(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "segment index must be an integer"})
		return
	}
	var req setDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	route, err := s.planner.SetSegmentDay(c.Param("id"), index, req.Day)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

type setDayNoteRequest struct {
	Note string `json:"note"`
}

func (s *Server) setDayNote(c *gin.Context) {
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "day must be an integer"})
		return
	}
	var req setDayNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	route, err := s.planner.SetDayNote(c.Param("id"), day, req.Note)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

func (s *Server) calendar(c *gin.Context) {
	entries, err := s.planner.Calendar(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": entries})
}

func (s *Server) searchPlaces(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}
	candidates := s.planner.SearchPlaces(c.Request.Context(), query)
	c.JSON(http.StatusOK, gin.H{"candidates": candidates})
}
