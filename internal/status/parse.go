package status

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Tag classifies what one reported log line implies for workflow status.
type Tag int

const (
	// TagUnclassified means the message carries no status implication.
	TagUnclassified Tag = iota
	// TagError means the message signals a failure.
	TagError
	// TagCompletion means the message signals successful completion.
	TagCompletion
	// TagProgress means the message reports a completion percentage below 100.
	TagProgress
)

// Event is the normalized form of one reported log line.
type Event struct {
	Tag      Tag
	Progress int // percent, valid when Tag == TagProgress
	// Timestamp is the reported event time, or the ingestion time when the
	// raw timestamp could not be parsed (TimestampFallback is then true).
	Timestamp         time.Time
	TimestampFallback bool
	// Message is the unwrapped text used for classification.
	Message string
}

var (
	// Legacy reporter format: "10 of 10 steps (100.0%) done".
	stepsDoneRe = regexp.MustCompile(`(\d+) of (\d+) steps \((\d+)(?:\.\d+)?%\) done`)
	// Current reporter format: "42% done".
	percentDoneRe = regexp.MustCompile(`(\d+)% done`)
)

// Parse normalizes a raw reported message plus its raw asctime-formatted
// timestamp into an Event. It never fails: an unparsable timestamp falls back
// to now, an unparsable JSON envelope falls back to the raw string, and
// unrecognized content is simply unclassified.
func Parse(rawMessage, rawTimestamp string, now time.Time) Event {
	ev := Event{Message: unwrapEnvelope(rawMessage)}

	// Reporters send asctime strings such as "Wed Jun 30 21:48:08 2021".
	if ts, err := time.Parse(time.ANSIC, strings.TrimSpace(rawTimestamp)); err == nil {
		ev.Timestamp = ts
	} else {
		ev.Timestamp = now
		ev.TimestampFallback = true
	}

	ev.Tag, ev.Progress = classify(ev.Message)
	return ev
}

// classify maps message text to a status implication. Error indicators are
// checked first so a line reporting both a failure and 100% progress resolves
// to an error.
func classify(msg string) (Tag, int) {
	lower := strings.ToLower(msg)

	if strings.Contains(lower, "error") || strings.Contains(lower, "failed") {
		return TagError, 0
	}
	if strings.Contains(lower, "nothing to be done") {
		return TagCompletion, 0
	}
	if m := stepsDoneRe.FindStringSubmatch(msg); m != nil {
		done, _ := strconv.Atoi(m[1])
		total, _ := strconv.Atoi(m[2])
		if done == total && done > 0 {
			return TagCompletion, 0
		}
		percent, _ := strconv.Atoi(m[3])
		return TagProgress, percent
	}
	if m := percentDoneRe.FindStringSubmatch(msg); m != nil {
		percent, _ := strconv.Atoi(m[1])
		if percent == 100 {
			return TagCompletion, 0
		}
		if percent > 100 {
			// Out of range; carries no status implication.
			return TagUnclassified, 0
		}
		return TagProgress, percent
	}
	return TagUnclassified, 0
}

// unwrapEnvelope extracts the real message from the JSON object some
// reporters wrap it in (under a "msg" key). Anything that does not decode to
// such an object is returned as-is.
func unwrapEnvelope(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return raw
	}
	var envelope map[string]any
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
		return raw
	}
	if inner, ok := envelope["msg"].(string); ok {
		return inner
	}
	return raw
}
