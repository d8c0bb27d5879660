package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snakemon/backend/internal/logging"
	"snakemon/backend/internal/repository"
	"snakemon/backend/pkg/models"
)

// fakeRegistry is an in-memory Registry with optional fault injection.
type fakeRegistry struct {
	mu        sync.Mutex
	workflows map[string]*models.Workflow
	nextLogID int64
	// failIngestion makes the next ApplyIngestion fail after recording
	// nothing, mimicking a transaction rollback.
	failIngestion error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{workflows: make(map[string]*models.Workflow)}
}

func (f *fakeRegistry) Create(ctx context.Context) (*models.Workflow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wf := &models.Workflow{
		ID:        uuid.New().String(),
		Status:    models.Running,
		StartTime: time.Now().UTC(),
		Logs:      []models.WorkflowLog{},
	}
	f.workflows[wf.ID] = wf
	return wf, nil
}

func (f *fakeRegistry) Get(ctx context.Context, id string) (*models.Workflow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wf, ok := f.workflows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *wf
	return &copied, nil
}

func (f *fakeRegistry) List(ctx context.Context) ([]*models.Workflow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Workflow, 0, len(f.workflows))
	for _, wf := range f.workflows {
		copied := *wf
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeRegistry) UpdateMetadata(ctx context.Context, id string, patch models.WorkflowPatch) (*models.Workflow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wf, ok := f.workflows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if patch.Name.Set {
		wf.Name = patch.Name.Value
	}
	if patch.Workdir.Set {
		wf.Workdir = patch.Workdir.Value
	}
	if patch.SnakefilePath.Set {
		wf.SnakefilePath = patch.SnakefilePath.Value
	}
	if patch.ArgumentsJSON.Set {
		wf.ArgumentsJSON = patch.ArgumentsJSON.Value
	}
	copied := *wf
	return &copied, nil
}

func (f *fakeRegistry) ApplyIngestion(ctx context.Context, id string, entry models.WorkflowLog, decide repository.DecideFunc) (repository.IngestionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result repository.IngestionResult
	if f.failIngestion != nil {
		err := f.failIngestion
		f.failIngestion = nil
		return result, err
	}
	wf, ok := f.workflows[id]
	if !ok {
		return result, repository.ErrNotFound
	}
	f.nextLogID++
	entry.ID = f.nextLogID
	entry.WorkflowID = id
	wf.Logs = append(wf.Logs, entry)

	next, changed := decide(wf.Status)
	result = repository.IngestionResult{Previous: wf.Status, Next: next, Changed: changed}
	if changed {
		wf.Status = next
		if next.Terminal() {
			ts := entry.Timestamp
			wf.EndTime = &ts
		}
	}
	return result, nil
}

func newTestService(t *testing.T) (*IngestService, *fakeRegistry) {
	t.Helper()
	reg := newFakeRegistry()
	svc := NewIngestService(reg, logging.NewLogger())
	return svc, reg
}

const asctime = "Wed Jun 30 21:48:08 2021"

func TestIngestProgressAndCompletion(t *testing.T) {
	ctx := context.Background()
	svc, reg := newTestService(t)
	wf, err := reg.Create(ctx)
	require.NoError(t, err)

	ack := svc.Ingest(ctx, wf.ID, asctime, "42% done")
	assert.Equal(t, "log recorded", ack.Status)
	got, err := reg.Get(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunningAt(42), got.Status)
	assert.Nil(t, got.EndTime)

	ack = svc.Ingest(ctx, wf.ID, asctime, "100% done")
	assert.Equal(t, "log recorded", ack.Status)
	got, err = reg.Get(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Success, got.Status)
	require.NotNil(t, got.EndTime)
	assert.True(t, got.EndTime.Equal(time.Date(2021, time.June, 30, 21, 48, 8, 0, time.UTC)))
}

func TestIngestTerminalStateIsFinal(t *testing.T) {
	ctx := context.Background()
	svc, reg := newTestService(t)
	wf, err := reg.Create(ctx)
	require.NoError(t, err)

	svc.Ingest(ctx, wf.ID, asctime, "Error in rule align:")
	ack := svc.Ingest(ctx, wf.ID, asctime, "100% done")
	assert.Equal(t, "log recorded, workflow already finished", ack.Status)

	got, err := reg.Get(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Failed, got.Status)
	assert.Len(t, got.Logs, 2)
}

func TestIngestUnknownWorkflow(t *testing.T) {
	ctx := context.Background()
	svc, reg := newTestService(t)

	ack := svc.Ingest(ctx, "no-such-id", asctime, "42% done")
	assert.Equal(t, "unknown workflow, log discarded", ack.Status)

	// No workflow was conjured into existence.
	workflows, err := reg.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, workflows)
}

func TestIngestTimestampFallback(t *testing.T) {
	ctx := context.Background()
	svc, reg := newTestService(t)
	ingestTime := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return ingestTime }

	wf, err := reg.Create(ctx)
	require.NoError(t, err)

	ack := svc.Ingest(ctx, wf.ID, "not-a-date", "hello")
	assert.Equal(t, "log recorded", ack.Status)

	got, err := reg.Get(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, got.Logs, 1)
	assert.True(t, got.Logs[0].Timestamp.Equal(ingestTime))
}

func TestIngestStoresRawEnvelope(t *testing.T) {
	ctx := context.Background()
	svc, reg := newTestService(t)
	wf, err := reg.Create(ctx)
	require.NoError(t, err)

	raw := `{"level": "progress", "msg": "42% done"}`
	svc.Ingest(ctx, wf.ID, asctime, raw)

	got, err := reg.Get(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, got.Logs, 1)
	assert.Equal(t, raw, got.Logs[0].Message)
	assert.Equal(t, models.RunningAt(42), got.Status)
}

func TestIngestStoreFailureStillAcks(t *testing.T) {
	ctx := context.Background()
	svc, reg := newTestService(t)
	wf, err := reg.Create(ctx)
	require.NoError(t, err)

	reg.failIngestion = errors.New("connection refused")
	ack := svc.Ingest(ctx, wf.ID, asctime, "42% done")
	assert.Equal(t, "log not recorded, store unavailable", ack.Status)

	// Nothing was partially applied; the retry lands normally.
	ack = svc.Ingest(ctx, wf.ID, asctime, "42% done")
	assert.Equal(t, "log recorded", ack.Status)
	got, err := reg.Get(ctx, wf.ID)
	require.NoError(t, err)
	assert.Len(t, got.Logs, 1)
	assert.Equal(t, models.RunningAt(42), got.Status)
}

func TestSignalCompletion(t *testing.T) {
	ctx := context.Background()
	svc, reg := newTestService(t)
	callTime := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return callTime }

	wf, err := reg.Create(ctx)
	require.NoError(t, err)

	ack, err := svc.SignalCompletion(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, "workflow marked finished (unknown)", ack.Status)

	got, err := reg.Get(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FinishedUnknown, got.Status)
	require.NotNil(t, got.EndTime)
	assert.True(t, got.EndTime.Equal(callTime))

	// Pinging again still records a log but is a status no-op.
	svc.now = func() time.Time { return callTime.Add(time.Hour) }
	ack, err = svc.SignalCompletion(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, "log recorded, workflow already finished", ack.Status)

	got, err = reg.Get(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FinishedUnknown, got.Status)
	assert.True(t, got.EndTime.Equal(callTime))
	assert.Len(t, got.Logs, 2)
}

func TestSignalCompletionUnknownWorkflow(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.SignalCompletion(ctx, "no-such-id")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
