package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var ingestTime = time.Date(2021, time.June, 30, 22, 0, 0, 0, time.UTC)

func TestParseTimestamp(t *testing.T) {
	ev := Parse("5 of 10 steps (50%) done", "Wed Jun 30 21:48:08 2021", ingestTime)
	assert.False(t, ev.TimestampFallback)
	assert.Equal(t, time.Date(2021, time.June, 30, 21, 48, 8, 0, time.UTC), ev.Timestamp)
}

func TestParseTimestampFallback(t *testing.T) {
	ev := Parse("hello", "not-a-date", ingestTime)
	assert.True(t, ev.TimestampFallback)
	assert.Equal(t, ingestTime, ev.Timestamp)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		msg      string
		tag      Tag
		progress int
	}{
		{"error in rule", "Error in rule align_reads:", TagError, 0},
		{"error in group", "Error in group mapping:", TagError, 0},
		{"lowercase failed", "job 12 failed, retrying", TagError, 0},
		{"nothing to be done", "Nothing to be done.", TagCompletion, 0},
		{"plain progress", "42% done", TagProgress, 42},
		{"plain progress complete", "100% done", TagCompletion, 0},
		{"plain progress out of range", "142% done", TagUnclassified, 0},
		{"legacy steps partial", "5 of 10 steps (50%) done", TagProgress, 50},
		{"legacy steps complete", "10 of 10 steps (100.0%) done", TagCompletion, 0},
		{"legacy steps zero of zero", "0 of 0 steps (100%) done", TagProgress, 100},
		{"unrecognized", "Building DAG of jobs...", TagUnclassified, 0},
		{"empty", "", TagUnclassified, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := Parse(tc.msg, "Wed Jun 30 21:48:08 2021", ingestTime)
			assert.Equal(t, tc.tag, ev.Tag)
			assert.Equal(t, tc.progress, ev.Progress)
		})
	}
}

// A line carrying both a failure indicator and 100% progress must resolve to
// an error: error indicators take priority.
func TestClassifyErrorBeatsCompletion(t *testing.T) {
	ev := Parse("10 of 10 steps (100%) done, but 1 job failed", "Wed Jun 30 21:48:08 2021", ingestTime)
	assert.Equal(t, TagError, ev.Tag)
}

func TestUnwrapEnvelope(t *testing.T) {
	ev := Parse(`{"level": "progress", "msg": "42% done"}`, "Wed Jun 30 21:48:08 2021", ingestTime)
	assert.Equal(t, "42% done", ev.Message)
	assert.Equal(t, TagProgress, ev.Tag)
	assert.Equal(t, 42, ev.Progress)
}

func TestUnwrapEnvelopeMalformed(t *testing.T) {
	// Broken JSON falls back to the raw string.
	ev := Parse(`{"msg": "42% done`, "Wed Jun 30 21:48:08 2021", ingestTime)
	assert.Equal(t, `{"msg": "42% done`, ev.Message)

	// A JSON object without a string msg key is classified as-is.
	ev = Parse(`{"other": 1}`, "Wed Jun 30 21:48:08 2021", ingestTime)
	assert.Equal(t, `{"other": 1}`, ev.Message)
	assert.Equal(t, TagUnclassified, ev.Tag)
}
