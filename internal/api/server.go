package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tripmapper/internal/metrics"
	"tripmapper/internal/services"
	"tripmapper/internal/store"
)

// Server wires the HTTP surface to the planner and the store
type Server struct {
	planner    *services.Planner
	store      *store.Store
	collector  *metrics.Collector
	appVersion string
	backupDir  string
}

// NewServer creates the API server
func NewServer(planner *services.Planner, st *store.Store, collector *metrics.Collector, appVersion, backupDir string) *Server {
	return &Server{
		planner:    planner,
		store:      st,
		collector:  collector,
		appVersion: appVersion,
		backupDir:  backupDir,
	}
}

// Router builds the gin engine with all routes registered
func (s *Server) Router(corsOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(corsOrigins))

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(s.collector.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/routes", s.listRoutes)
		v1.POST("/routes", s.createRoute)
		v1.GET("/routes/:id", s.getRoute)
		v1.PUT("/routes/:id", s.updateRoute)
		v1.DELETE("/routes/:id", s.deleteRoute)

		v1.POST("/routes/:id/extract", s.extractItinerary)
		v1.POST("/routes/:id/resolve", s.startResolution)
		v1.POST("/routes/:id/resolve/decision", s.decideResolution)
		v1.DELETE("/routes/:id/resolve", s.cancelResolution)
		v1.POST("/routes/:id/segments", s.recalculateSegments)

		v1.POST("/routes/:id/waypoints", s.addWaypoint)
		v1.PUT("/routes/:id/waypoints/:wid", s.updateWaypoint)
		v1.DELETE("/routes/:id/waypoints/:wid", s.removeWaypoint)
		v1.POST("/routes/:id/waypoints/:wid/pick", s.pickCandidate)

		v1.PUT("/routes/:id/days/:index", s.setSegmentDay)
		v1.PUT("/routes/:id/day-notes/:day", s.setDayNote)
		v1.GET("/routes/:id/calendar", s.calendar)
		v1.GET("/routes/:id/kml", s.exportKML)

		v1.GET("/export", s.exportRoutes)
		v1.POST("/import", s.importRoutes)
		v1.GET("/geocode/search", s.searchPlaces)
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.appVersion})
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	allowAll := len(origins) == 0
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
