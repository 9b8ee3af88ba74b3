package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tripmapper/internal/store"
)

// exportRoutes serves the full local route set as a portable JSON document
func (s *Server) exportRoutes(c *gin.Context) {
	// Pending autosave snapshots must land before the snapshot is taken
	s.planner.FlushPending()

	doc, err := s.store.Export(s.appVersion)
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="tripmapper-export.json"`)
	c.JSON(http.StatusOK, doc)
}

// importRoutes applies an uploaded export document. The mode query
// parameter selects replace, new-only, or merge; merge is the default.
func (s *Server) importRoutes(c *gin.Context) {
	mode := store.ImportMode(c.DefaultQuery("mode", string(store.ModeMerge)))

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := store.ParseExportDocument(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.planner.FlushPending()

	result, err := s.store.Import(doc, mode, s.backupDir, s.appVersion)
	if err != nil {
		if errors.Is(err, store.ErrUnknownImportMode) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		fail(c, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"mode":    mode,
		"added":   result.Added,
		"updated": result.Updated,
		"skipped": result.Skipped,
	}).Info("Imported route document")

	c.JSON(http.StatusOK, result)
}
