package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"snakemon/backend/internal/repository"
	"snakemon/backend/pkg/models"
)

// ListWorkflows returns all workflows, newest first, with nested logs.
// (GET /workflows)
func (s *Server) ListWorkflows(c echo.Context) error {
	ctx := c.Request().Context()

	workflows, err := s.Registry.List(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if workflows == nil {
		workflows = []*models.Workflow{}
	}
	return c.JSON(http.StatusOK, workflows)
}

// GetWorkflow returns a single workflow with its logs.
// (GET /workflows/:id)
func (s *Server) GetWorkflow(c echo.Context) error {
	ctx := c.Request().Context()

	workflow, err := s.Registry.Get(ctx, c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "workflow not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, workflow)
}

// CreateWorkflow registers a new workflow run and returns its id.
// (POST /workflows)
func (s *Server) CreateWorkflow(c echo.Context) error {
	ctx := c.Request().Context()

	workflow, err := s.Registry.Create(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create workflow: "+err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"id": workflow.ID})
}

// UpdateWorkflowMetadata applies a sparse metadata update and returns the
// refreshed workflow. Only keys present in the body are touched.
// (PUT /workflows/:id)
func (s *Server) UpdateWorkflowMetadata(c echo.Context) error {
	ctx := c.Request().Context()

	var patch models.WorkflowPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}

	workflow, err := s.Registry.UpdateMetadata(ctx, c.Param("id"), patch)
	if errors.Is(err, repository.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "workflow not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update workflow: "+err.Error())
	}
	return c.JSON(http.StatusOK, workflow)
}
