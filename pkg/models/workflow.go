package models

import (
	"time"
)

// Workflow represents one tracked execution of an external pipeline.
type Workflow struct {
	ID            string        `json:"id"` // registry-assigned, immutable
	Name          *string       `json:"name"`
	Status        Status        `json:"status"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       *time.Time    `json:"end_time"` // set once, when status first turns terminal
	Workdir       *string       `json:"workdir"`
	SnakefilePath *string       `json:"snakefile_path"`
	ArgumentsJSON *string       `json:"arguments_json"` // opaque blob, never interpreted
	Logs          []WorkflowLog `json:"logs"`
}

// WorkflowLog is one reported log line. The id is a store-assigned sequence,
// so ordering by id reproduces arrival order regardless of timestamps.
// The wire name message_repr matches what the dashboard client expects.
type WorkflowLog struct {
	ID         int64     `json:"id"`
	WorkflowID string    `json:"workflow_id"`
	Timestamp  time.Time `json:"timestamp"`
	Message    string    `json:"message_repr"`
}
