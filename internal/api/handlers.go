// Package api contains the HTTP handlers for the monitoring service.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"snakemon/backend/internal/logging"
	"snakemon/backend/internal/repository"
	"snakemon/backend/internal/services"
)

// Server holds the dependencies for the API server.
type Server struct {
	Registry repository.Registry
	Ingest   *services.IngestService
	Logger   *logging.Logger
}

// NewServer creates a new Server.
func NewServer(registry repository.Registry, ingest *services.IngestService, logger *logging.Logger) *Server {
	return &Server{Registry: registry, Ingest: ingest, Logger: logger}
}

// Register mounts all routes on the echo instance.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/service-info", s.ServiceInfo)

	e.GET("/workflows", s.ListWorkflows)
	e.GET("/workflows/:id", s.GetWorkflow)
	e.POST("/workflows", s.CreateWorkflow)
	e.PUT("/workflows/:id", s.UpdateWorkflowMetadata)

	// Reporter-facing endpoints. The singular /workflow path is the legacy
	// completion signal from the older client generation.
	e.POST("/workflow-events", s.HandleWorkflowEvent)
	e.PUT("/workflow/:id", s.LegacyCompletion)

	e.GET("/openapi.yaml", s.Spec)
	e.GET("/docs", s.Docs)
}

// ServiceInfo reports that the monitoring service is up.
// (GET /service-info)
func (s *Server) ServiceInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "running"})
}
