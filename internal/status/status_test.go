package status

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"snakemon/backend/pkg/models"
)

func TestNextTransitions(t *testing.T) {
	cases := []struct {
		name     string
		current  models.Status
		ev       Event
		next     models.Status
		changed  bool
		terminal bool
	}{
		{"error fails", models.Running, Event{Tag: TagError}, models.Failed, true, true},
		{"completion succeeds", models.Running, Event{Tag: TagCompletion}, models.Success, true, true},
		{"progress updates", models.Running, Event{Tag: TagProgress, Progress: 42}, models.RunningAt(42), true, false},
		{"progress from earlier progress", models.RunningAt(10), Event{Tag: TagProgress, Progress: 42}, models.RunningAt(42), true, false},
		{"repeated progress is a no-op", models.RunningAt(42), Event{Tag: TagProgress, Progress: 42}, models.RunningAt(42), false, false},
		{"progress at 100 without completion is ignored", models.Running, Event{Tag: TagProgress, Progress: 100}, models.Running, false, false},
		{"unclassified keeps running", models.Running, Event{Tag: TagUnclassified}, models.Running, false, false},
		{"unclassified keeps progress", models.RunningAt(42), Event{Tag: TagUnclassified}, models.RunningAt(42), false, false},
		{"error from progress", models.RunningAt(99), Event{Tag: TagError}, models.Failed, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Next(tc.current, tc.ev)
			assert.Equal(t, tc.next, got.Next)
			assert.Equal(t, tc.changed, got.Changed)
			assert.Equal(t, tc.terminal, got.Terminal)
		})
	}
}

// Once terminal, no event of any kind changes the status again.
func TestNextMonotonicity(t *testing.T) {
	terminals := []models.Status{models.Success, models.Failed, models.FinishedUnknown}
	events := []Event{
		{Tag: TagError},
		{Tag: TagCompletion},
		{Tag: TagProgress, Progress: 10},
		{Tag: TagUnclassified},
	}
	for _, current := range terminals {
		for _, ev := range events {
			got := Next(current, ev)
			assert.Equal(t, current, got.Next)
			assert.False(t, got.Changed)
			assert.False(t, got.Terminal)
		}
	}
}

// Replaying a whole event stream after a terminal state is reached leaves the
// outcome fixed, which is what makes at-least-once delivery safe.
func TestNextReplayAfterTerminal(t *testing.T) {
	stream := []Event{
		{Tag: TagProgress, Progress: 50},
		{Tag: TagError},
		{Tag: TagCompletion},
		{Tag: TagProgress, Progress: 100},
	}
	current := models.Running
	for _, ev := range stream {
		current = Next(current, ev).Next
	}
	assert.Equal(t, models.Failed, current)

	for _, ev := range stream {
		res := Next(current, ev)
		assert.Equal(t, models.Failed, res.Next)
		assert.False(t, res.Changed)
	}
}

func TestCompleteUnknown(t *testing.T) {
	res := CompleteUnknown(models.Running)
	assert.Equal(t, models.FinishedUnknown, res.Next)
	assert.True(t, res.Changed)
	assert.True(t, res.Terminal)

	res = CompleteUnknown(models.RunningAt(80))
	assert.Equal(t, models.FinishedUnknown, res.Next)
	assert.True(t, res.Changed)

	// A second ping on the now-terminal workflow is a no-op.
	res = CompleteUnknown(models.FinishedUnknown)
	assert.Equal(t, models.FinishedUnknown, res.Next)
	assert.False(t, res.Changed)
	assert.False(t, res.Terminal)

	res = CompleteUnknown(models.Success)
	assert.Equal(t, models.Success, res.Next)
	assert.False(t, res.Changed)
}
