package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"snakemon/backend/internal/logging"
	"snakemon/backend/internal/repository"
	"snakemon/backend/internal/status"
	"snakemon/backend/pkg/models"
)

// Ack is the acknowledgment returned to a reporting client. Status is a
// diagnostic string only; the reporter cannot react to errors, so the
// transport always wraps an Ack in a 200 response.
type Ack struct {
	Status string `json:"status"`
}

// legacyCompletionMessage is the synthetic log line recorded for the bare
// completion ping, which carries no payload of its own.
const legacyCompletionMessage = "workflow finished (legacy completion signal)"

// IngestService orchestrates one reported event through the message parser,
// the status transition engine, and the registry's atomic write.
type IngestService struct {
	registry repository.Registry
	logger   *logging.Logger
	now      func() time.Time

	eventsIngested metric.Int64Counter
	transitions    metric.Int64Counter
	unknownDropped metric.Int64Counter
}

// NewIngestService creates a new IngestService.
func NewIngestService(registry repository.Registry, logger *logging.Logger) *IngestService {
	meter := otel.Meter("snakemon/backend/internal/services")
	eventsIngested, _ := meter.Int64Counter("snakemon.ingest.events",
		metric.WithDescription("Reported events accepted by the ingestion endpoint"))
	transitions, _ := meter.Int64Counter("snakemon.ingest.transitions",
		metric.WithDescription("Workflow status transitions applied"))
	unknownDropped, _ := meter.Int64Counter("snakemon.ingest.unknown_dropped",
		metric.WithDescription("Events discarded because the workflow id is unknown"))

	return &IngestService{
		registry:       registry,
		logger:         logger,
		now:            time.Now,
		eventsIngested: eventsIngested,
		transitions:    transitions,
		unknownDropped: unknownDropped,
	}
}

// Ingest applies one reported event. It never returns an error: the reporting
// client cannot usefully react to one, so every outcome collapses into a
// diagnostic acknowledgment. The log entry stores the original raw message
// for audit fidelity; classification ran on the unwrapped text.
func (s *IngestService) Ingest(ctx context.Context, workflowID, rawTimestamp, rawMessage string) Ack {
	s.eventsIngested.Add(ctx, 1)

	ev := status.Parse(rawMessage, rawTimestamp, s.now().UTC())
	if ev.TimestampFallback {
		s.logger.Warn("unparsable timestamp %q for workflow %s, using ingestion time", rawTimestamp, workflowID)
	}

	entry := models.WorkflowLog{Timestamp: ev.Timestamp, Message: rawMessage}
	res, err := s.registry.ApplyIngestion(ctx, workflowID, entry, func(current models.Status) (models.Status, bool) {
		r := status.Next(current, ev)
		return r.Next, r.Changed
	})
	if errors.Is(err, repository.ErrNotFound) {
		s.unknownDropped.Add(ctx, 1)
		s.logger.Debug("discarding event for unknown workflow %s", workflowID)
		return Ack{Status: "unknown workflow, log discarded"}
	}
	if err != nil {
		// Dropping a log line beats destabilizing the reporter.
		s.logger.Error("ingest for workflow %s: %v", workflowID, err)
		return Ack{Status: "log not recorded, store unavailable"}
	}

	if res.Changed {
		s.transitions.Add(ctx, 1)
		return Ack{Status: "log recorded"}
	}
	if res.Previous.Terminal() {
		return Ack{Status: "log recorded, workflow already finished"}
	}
	return Ack{Status: "log recorded"}
}

// SignalCompletion handles the legacy bare completion ping: a synthetic log
// entry is always appended, and a still-running workflow moves to
// finished (unknown) with end_time set to the ingestion time. Unlike Ingest,
// the unknown-id case surfaces as repository.ErrNotFound because this older
// client generation does handle a 404.
func (s *IngestService) SignalCompletion(ctx context.Context, workflowID string) (Ack, error) {
	entry := models.WorkflowLog{Timestamp: s.now().UTC(), Message: legacyCompletionMessage}
	res, err := s.registry.ApplyIngestion(ctx, workflowID, entry, func(current models.Status) (models.Status, bool) {
		r := status.CompleteUnknown(current)
		return r.Next, r.Changed
	})
	if err != nil {
		return Ack{}, err
	}
	if res.Changed {
		s.transitions.Add(ctx, 1)
		return Ack{Status: "workflow marked finished (unknown)"}, nil
	}
	return Ack{Status: "log recorded, workflow already finished"}, nil
}
