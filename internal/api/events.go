package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"snakemon/backend/internal/repository"
	"snakemon/backend/internal/services"
)

// HandleWorkflowEvent ingests one reported event. The body is form-encoded
// with fields id, timestamp (asctime string), and msg (raw text or a JSON
// envelope).
//
// This endpoint always answers 200 with a diagnostic status string, malformed
// input included: the reporting client cannot handle error responses, and a
// 4xx/5xx here would only provoke retry storms.
// (POST /workflow-events)
func (s *Server) HandleWorkflowEvent(c echo.Context) error {
	id := c.FormValue("id")
	timestamp := c.FormValue("timestamp")
	msg := c.FormValue("msg")

	if id == "" {
		return c.JSON(http.StatusOK, services.Ack{Status: "error: missing required field 'id'"})
	}
	if timestamp == "" {
		return c.JSON(http.StatusOK, services.Ack{Status: "error: missing required field 'timestamp'"})
	}
	if msg == "" {
		return c.JSON(http.StatusOK, services.Ack{Status: "error: missing required field 'msg'"})
	}

	ack := s.Ingest.Ingest(c.Request().Context(), id, timestamp, msg)
	return c.JSON(http.StatusOK, ack)
}

// LegacyCompletion handles the payload-less completion ping sent by the older
// reporting-client generation.
// (PUT /workflow/:id)
func (s *Server) LegacyCompletion(c echo.Context) error {
	ack, err := s.Ingest.SignalCompletion(c.Request().Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "workflow not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ack)
}
