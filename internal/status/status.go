// Package status holds the pure core of the monitoring service: parsing
// free-text reporter messages into normalized events and deciding status
// transitions. Nothing here touches the store or the transport, which keeps
// the state machine exhaustively testable and safe to re-run on retries.
package status

import (
	"snakemon/backend/pkg/models"
)

// Result is the outcome of applying one event to a workflow's current status.
type Result struct {
	Next    models.Status
	Changed bool
	// Terminal reports that this transition just reached a terminal state,
	// so the workflow's end_time must be set to the event's timestamp.
	Terminal bool
}

// Next computes the status transition for an event. It is pure and
// deterministic: the same (current, event) pair always yields the same
// result.
//
// Terminal states are final. A late, duplicate, or out-of-order message can
// never revive a finished workflow; its log line is still recorded by the
// caller, but the status implication is ignored entirely.
func Next(current models.Status, ev Event) Result {
	if current.Terminal() {
		return Result{Next: current}
	}
	switch ev.Tag {
	case TagError:
		return Result{Next: models.Failed, Changed: true, Terminal: true}
	case TagCompletion:
		return Result{Next: models.Success, Changed: true, Terminal: true}
	case TagProgress:
		// 100% without a completion signal (the legacy "0 of 0 steps" line)
		// carries no status implication.
		if ev.Progress >= 100 {
			return Result{Next: current}
		}
		next := models.RunningAt(ev.Progress)
		return Result{Next: next, Changed: next != current}
	default:
		return Result{Next: current}
	}
}

// CompleteUnknown handles the legacy bare completion ping, which carries no
// message to distinguish success from failure. A non-terminal workflow moves
// to finished (unknown); a terminal one stays put.
func CompleteUnknown(current models.Status) Result {
	if current.Terminal() {
		return Result{Next: current}
	}
	return Result{Next: models.FinishedUnknown, Changed: true, Terminal: true}
}
