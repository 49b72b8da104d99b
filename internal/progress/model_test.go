package progress

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusRunning, true},
		{StatusPending, StatusCompleted, true},
		{StatusRunning, StatusCompleted, true},
		{StatusRunning, StatusFailed, true},
		{StatusRunning, StatusPending, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusCompleted, false},
		{StatusCompleted, StatusRunning, false},
		{StatusRunning, Status("paused"), false},
	}
	for _, tc := range tests {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.from.CanTransition(tc.to))
		})
	}

	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusRunning.Terminal())
}

func TestAggregateStatus(t *testing.T) {
	t.Parallel()

	task := NewTask("ses_1", "Processing images")
	assert.Equal(t, StatusPending, task.AggregateStatus())

	a := task.AddSubTask("a")
	b := task.AddSubTask("b")
	assert.Equal(t, StatusPending, task.AggregateStatus())

	a.Status = StatusCompleted
	assert.Equal(t, StatusRunning, task.AggregateStatus(), "one of two done")

	b.Status = StatusCompleted
	assert.Equal(t, StatusCompleted, task.AggregateStatus())

	b.Status = StatusFailed
	assert.Equal(t, StatusFailed, task.AggregateStatus())
}

func TestIDsAndClone(t *testing.T) {
	t.Parallel()

	s := NewSession("bookmark-1")
	assert.True(t, strings.HasPrefix(s.ID, "ses_"))
	assert.Equal(t, "bookmark-1", s.RefID)

	task := NewTask(s.ID, "Summarizing content")
	assert.True(t, strings.HasPrefix(task.ID, "tsk_"))
	sub := task.AddSubTask("Summarizing content")
	assert.True(t, strings.HasPrefix(sub.ID, "sub_"))

	cp := task.Clone()
	cp.SubTasks[sub.ID].Status = StatusFailed
	assert.Equal(t, StatusPending, task.SubTasks[sub.ID].Status)
}
