package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"snakemon/backend/internal/logging"
	"snakemon/backend/pkg/models"
)

//go:embed schema.sql
var schemaSQL string

// PostgresWorkflowStore is the PostgreSQL implementation of Registry.
type PostgresWorkflowStore struct {
	db     *pgxpool.Pool
	logger *logging.Logger
}

// NewPostgresWorkflowStore creates a new PostgresWorkflowStore.
func NewPostgresWorkflowStore(db *pgxpool.Pool, logger *logging.Logger) *PostgresWorkflowStore {
	return &PostgresWorkflowStore{db: db, logger: logger}
}

// EnsureSchema creates the workflow tables if they do not exist yet.
func (s *PostgresWorkflowStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const workflowColumns = "id, name, status, start_time, end_time, workdir, snakefile_path, arguments_json"

// Create allocates a fresh workflow in the running state. The id space is a
// random UUID, so collisions are not a practical concern.
func (s *PostgresWorkflowStore) Create(ctx context.Context) (*models.Workflow, error) {
	wf := &models.Workflow{
		ID:        uuid.New().String(),
		Status:    models.Running,
		StartTime: time.Now().UTC(),
		Logs:      []models.WorkflowLog{},
	}
	_, err := s.db.Exec(ctx,
		"INSERT INTO workflow (id, status, start_time) VALUES ($1, $2, $3)",
		wf.ID, wf.Status.String(), wf.StartTime,
	)
	if err != nil {
		return nil, fmt.Errorf("insert workflow: %w", err)
	}
	return wf, nil
}

// Get returns a workflow with its logs in insertion order.
func (s *PostgresWorkflowStore) Get(ctx context.Context, id string) (*models.Workflow, error) {
	row := s.db.QueryRow(ctx, "SELECT "+workflowColumns+" FROM workflow WHERE id = $1", id)
	wf, err := scanWorkflow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow: %w", err)
	}

	rows, err := s.db.Query(ctx,
		"SELECT id, workflow_id, timestamp, message FROM workflow_log WHERE workflow_id = $1 ORDER BY id",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("get workflow logs: %w", err)
	}
	defer rows.Close()
	wf.Logs, err = scanLogs(rows)
	if err != nil {
		return nil, err
	}
	return wf, nil
}

// List returns all workflows ordered by start time descending. Logs are
// fetched in a single second query and grouped in memory, so listing never
// degenerates into one query per workflow.
func (s *PostgresWorkflowStore) List(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := s.db.Query(ctx, "SELECT "+workflowColumns+" FROM workflow ORDER BY start_time DESC, id")
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []*models.Workflow
	byID := make(map[string]*models.Workflow)
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("list workflows: %w", err)
		}
		workflows = append(workflows, wf)
		byID[wf.ID] = wf
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}

	logRows, err := s.db.Query(ctx, "SELECT id, workflow_id, timestamp, message FROM workflow_log ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list workflow logs: %w", err)
	}
	defer logRows.Close()
	logs, err := scanLogs(logRows)
	if err != nil {
		return nil, err
	}
	for _, entry := range logs {
		if wf, ok := byID[entry.WorkflowID]; ok {
			wf.Logs = append(wf.Logs, entry)
		}
	}
	return workflows, nil
}

// UpdateMetadata applies only the fields present in the patch. Present-but-
// null fields clear the column; absent fields are left untouched.
func (s *PostgresWorkflowStore) UpdateMetadata(ctx context.Context, id string, patch models.WorkflowPatch) (*models.Workflow, error) {
	if patch.Empty() {
		return s.Get(ctx, id)
	}

	var (
		assignments []string
		args        []any
	)
	set := func(column string, field models.StringField) {
		if !field.Set {
			return
		}
		args = append(args, field.Value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	set("name", patch.Name)
	set("workdir", patch.Workdir)
	set("snakefile_path", patch.SnakefilePath)
	set("arguments_json", patch.ArgumentsJSON)

	args = append(args, id)
	query := fmt.Sprintf("UPDATE workflow SET %s WHERE id = $%d", strings.Join(assignments, ", "), len(args))
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update workflow metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

// ApplyIngestion appends a log entry and conditionally updates the workflow
// status as one transaction. The workflow row is locked before decide runs,
// serializing concurrent ingestions per workflow id; an aborted call leaves
// no partial state.
func (s *PostgresWorkflowStore) ApplyIngestion(ctx context.Context, id string, entry models.WorkflowLog, decide DecideFunc) (IngestionResult, error) {
	var result IngestionResult

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("begin ingestion tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var rawStatus string
	err = tx.QueryRow(ctx, "SELECT status FROM workflow WHERE id = $1 FOR UPDATE", id).Scan(&rawStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return result, ErrNotFound
	}
	if err != nil {
		return result, fmt.Errorf("lock workflow: %w", err)
	}
	current, err := models.ParseStatus(rawStatus)
	if err != nil {
		return result, fmt.Errorf("stored status: %w", err)
	}

	_, err = tx.Exec(ctx,
		"INSERT INTO workflow_log (workflow_id, timestamp, message) VALUES ($1, $2, $3)",
		id, entry.Timestamp, entry.Message,
	)
	if err != nil {
		return result, fmt.Errorf("insert workflow log: %w", err)
	}

	next, changed := decide(current)
	result = IngestionResult{Previous: current, Next: next, Changed: changed}
	if changed {
		if next.Terminal() {
			_, err = tx.Exec(ctx,
				"UPDATE workflow SET status = $1, end_time = $2 WHERE id = $3",
				next.String(), entry.Timestamp, id,
			)
		} else {
			_, err = tx.Exec(ctx,
				"UPDATE workflow SET status = $1 WHERE id = $2",
				next.String(), id,
			)
		}
		if err != nil {
			return result, fmt.Errorf("update workflow status: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("commit ingestion tx: %w", err)
	}
	if changed {
		s.logger.Info("workflow %s status updated to %s", id, next)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		wf        models.Workflow
		rawStatus string
	)
	err := row.Scan(&wf.ID, &wf.Name, &rawStatus, &wf.StartTime, &wf.EndTime,
		&wf.Workdir, &wf.SnakefilePath, &wf.ArgumentsJSON)
	if err != nil {
		return nil, err
	}
	wf.Status, err = models.ParseStatus(rawStatus)
	if err != nil {
		return nil, fmt.Errorf("stored status: %w", err)
	}
	wf.Logs = []models.WorkflowLog{}
	return &wf, nil
}

func scanLogs(rows pgx.Rows) ([]models.WorkflowLog, error) {
	// Non-nil so an empty history serializes as [] rather than null.
	logs := []models.WorkflowLog{}
	for rows.Next() {
		var entry models.WorkflowLog
		if err := rows.Scan(&entry.ID, &entry.WorkflowID, &entry.Timestamp, &entry.Message); err != nil {
			return nil, fmt.Errorf("scan workflow log: %w", err)
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan workflow logs: %w", err)
	}
	return logs, nil
}
