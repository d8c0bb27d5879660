package repository

import (
	"context"
	"errors"

	"snakemon/backend/pkg/models"
)

// ErrNotFound indicates the referenced workflow does not exist.
var ErrNotFound = errors.New("workflow not found")

// DecideFunc computes the next status from the current one. The registry
// evaluates it while the workflow row is locked, so concurrent ingestions for
// the same workflow apply the transition engine's priority order rather than
// whichever write lands last.
type DecideFunc func(current models.Status) (next models.Status, changed bool)

// Registry is the persistence surface for workflow runs and their logs.
type Registry interface {
	// Create allocates a fresh workflow in the running state.
	Create(ctx context.Context) (*models.Workflow, error)
	// Get returns a workflow with its logs in insertion order, or ErrNotFound.
	Get(ctx context.Context, id string) (*models.Workflow, error)
	// List returns all workflows ordered by start time descending, each with
	// its logs eagerly attached.
	List(ctx context.Context) ([]*models.Workflow, error)
	// UpdateMetadata applies a sparse metadata update and returns the
	// refreshed workflow, or ErrNotFound.
	UpdateMetadata(ctx context.Context, id string, patch models.WorkflowPatch) (*models.Workflow, error)
	// ApplyIngestion atomically appends a log entry and, when decide reports
	// a change, updates the workflow status (setting end_time on a transition
	// into a terminal state). Returns ErrNotFound if the workflow is absent,
	// in which case nothing is stored.
	ApplyIngestion(ctx context.Context, id string, entry models.WorkflowLog, decide DecideFunc) (IngestionResult, error)
}

// IngestionResult reports what an ApplyIngestion call did.
type IngestionResult struct {
	Previous models.Status
	Next     models.Status
	Changed  bool
}
