package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// StatusKind enumerates the closed set of workflow states.
type StatusKind string

const (
	KindRunning         StatusKind = "running"
	KindSuccess         StatusKind = "success"
	KindFailed          StatusKind = "failed"
	KindFinishedUnknown StatusKind = "finished (unknown)"
)

// Status is a workflow's lifecycle state. Progress carries the last reported
// completion percentage and is meaningful only while the workflow is running.
type Status struct {
	Kind     StatusKind
	Progress int
}

// Running is the initial status of every workflow.
var Running = Status{Kind: KindRunning}

// RunningAt returns a running status with the given progress percentage.
func RunningAt(percent int) Status {
	return Status{Kind: KindRunning, Progress: percent}
}

// Success, Failed and FinishedUnknown are the terminal statuses.
var (
	Success         = Status{Kind: KindSuccess}
	Failed          = Status{Kind: KindFailed}
	FinishedUnknown = Status{Kind: KindFinishedUnknown}
)

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	return s.Kind != KindRunning
}

// String renders the status in the wire vocabulary the dashboard and the
// reporting clients already speak: "running", "running:42", "success",
// "failed", "finished (unknown)".
func (s Status) String() string {
	if s.Kind == KindRunning && s.Progress > 0 {
		return fmt.Sprintf("%s:%d", KindRunning, s.Progress)
	}
	return string(s.Kind)
}

// ParseStatus decodes a stored or wire status string. It tolerates the older
// reporter vocabulary ("error") so databases written by previous service
// versions stay readable.
func ParseStatus(raw string) (Status, error) {
	switch raw {
	case string(KindRunning):
		return Running, nil
	case string(KindSuccess):
		return Success, nil
	case string(KindFailed), "error":
		return Failed, nil
	case string(KindFinishedUnknown):
		return FinishedUnknown, nil
	}
	if rest, ok := strings.CutPrefix(raw, string(KindRunning)+":"); ok {
		percent, err := strconv.Atoi(rest)
		if err != nil {
			return Status{}, fmt.Errorf("parse status %q: %w", raw, err)
		}
		return RunningAt(percent), nil
	}
	return Status{}, fmt.Errorf("parse status: unknown value %q", raw)
}

// MarshalJSON encodes the status as its wire string.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a wire status string.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
