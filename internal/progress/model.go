package progress

import (
	"github.com/google/uuid"
)

// Status is the lifecycle state of a Task or SubTask.
type Status string

// Supported statuses.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusRunning:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	}
	return -1
}

// Terminal reports whether s is completed or failed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next keeps the lifecycle
// monotonic.
func (s Status) CanTransition(next Status) bool {
	return next.rank() > s.rank()
}

// Session identifies one enrichment run. RefID is the bookmark id.
type Session struct {
	ID    string `json:"sessionId"`
	RefID string `json:"refId"`
}

// NewSession creates a session with a fresh time-ordered id.
func NewSession(refID string) Session {
	return Session{ID: newID("ses"), RefID: refID}
}

// SubTask is a unit of work inside a Task.
type SubTask struct {
	ID     string `json:"taskId"`
	Name   string `json:"name"`
	Status Status `json:"status"`
}

// Task is one workflow stage.
type Task struct {
	SessionID string              `json:"sessionId"`
	ID        string              `json:"taskId"`
	Name      string              `json:"name"`
	Status    Status              `json:"status"`
	SubTasks  map[string]*SubTask `json:"subTasks"`
	Error     string              `json:"error,omitempty"`
}

// NewTask creates a pending task for the session.
func NewTask(sessionID, name string) *Task {
	return &Task{
		SessionID: sessionID,
		ID:        newID("tsk"),
		Name:      name,
		Status:    StatusPending,
		SubTasks:  make(map[string]*SubTask),
	}
}

// AddSubTask attaches a pending subtask and returns it.
func (t *Task) AddSubTask(name string) *SubTask {
	st := &SubTask{ID: newID("sub"), Name: name, Status: StatusPending}
	t.SubTasks[st.ID] = st
	return st
}

// AggregateStatus derives the task status from its subtasks. A task
// without subtasks reports its own status.
func (t *Task) AggregateStatus() Status {
	if len(t.SubTasks) == 0 {
		return t.Status
	}

	completed := 0
	started := false
	for _, st := range t.SubTasks {
		switch st.Status {
		case StatusFailed:
			return StatusFailed
		case StatusCompleted:
			completed++
			started = true
		case StatusRunning:
			started = true
		}
	}
	switch {
	case completed == len(t.SubTasks):
		return StatusCompleted
	case started:
		return StatusRunning
	}
	return StatusPending
}

// Clone returns a deep copy safe to hand to other goroutines.
func (t *Task) Clone() *Task {
	cp := *t
	cp.SubTasks = make(map[string]*SubTask, len(t.SubTasks))
	for id, st := range t.SubTasks {
		s := *st
		cp.SubTasks[id] = &s
	}
	return &cp
}

func newID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return prefix + "_" + id.String()
}
