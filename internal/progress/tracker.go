package progress

import (
	"context"
	"log/slog"
	"sync"

	"github.com/phrazzld/bookmark-enricher/internal/events"
	"github.com/phrazzld/bookmark-enricher/internal/redact"
)

// SessionResult is the payload of session.completed and session.error.
type SessionResult struct {
	Session
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// TaskUpdate is the payload of task.updated.
type TaskUpdate struct {
	Task   *Task `json:"task"`
	Detail any   `json:"detail,omitempty"`
}

// Tracker publishes the progress of one session. Events are addressed to
// the session's RefID.
type Tracker struct {
	pub     events.Publisher
	session Session
	logger  *slog.Logger
}

// NewTracker creates a Tracker for session.
func NewTracker(pub events.Publisher, session Session, logger *slog.Logger) *Tracker {
	return &Tracker{
		pub:     pub,
		session: session,
		logger:  logger.With("session_id", session.ID),
	}
}

// Session returns the tracked session.
func (t *Tracker) Session() Session {
	return t.session
}

// Publish sends an arbitrary event for the session's entity. Failures are
// logged; progress reporting never fails the workflow.
func (t *Tracker) Publish(ctx context.Context, typ events.Type, data any) {
	if err := t.pub.PublishToEntity(ctx, t.session.RefID, typ, data); err != nil {
		t.logger.Error("failed to publish progress event", "event_type", typ, "error", err)
	}
}

// SessionStarted publishes session.started.
func (t *Tracker) SessionStarted(ctx context.Context) {
	t.Publish(ctx, events.SessionStarted, t.session)
}

// SessionCompleted publishes session.completed with data.
func (t *Tracker) SessionCompleted(ctx context.Context, data any) {
	t.Publish(ctx, events.SessionCompleted, SessionResult{Session: t.session, Data: data})
}

// SessionFailed publishes session.error with a redacted error message.
func (t *Tracker) SessionFailed(ctx context.Context, err error) {
	t.Publish(ctx, events.SessionError, SessionResult{Session: t.session, Error: redact.Error(err)})
}

// StartStage creates a task with a single subtask, marks both running and
// publishes task.started.
func (t *Tracker) StartStage(ctx context.Context, taskName, subTaskName string) *Stage {
	task := NewTask(t.session.ID, taskName)
	sub := task.AddSubTask(subTaskName)
	task.Status = StatusRunning
	sub.Status = StatusRunning

	s := &Stage{tracker: t, task: task, sub: sub}
	t.logger.Debug("stage started", "task", taskName, "task_id", task.ID)
	t.Publish(ctx, events.TaskStarted, task.Clone())
	return s
}

// RunStage runs fn inside a stage, completing it on success and failing it
// on error. The error from fn is returned unchanged.
func (t *Tracker) RunStage(ctx context.Context, taskName, subTaskName string, fn func(ctx context.Context, s *Stage) error) error {
	s := t.StartStage(ctx, taskName, subTaskName)
	if err := fn(ctx, s); err != nil {
		s.Fail(ctx, err)
		return err
	}
	s.Complete(ctx)
	return nil
}

// Stage is a running task and its subtask. It is safe for concurrent use.
type Stage struct {
	tracker *Tracker

	mu   sync.Mutex
	task *Task
	sub  *SubTask
}

// Task returns a snapshot of the stage's task.
func (s *Stage) Task() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task.Clone()
}

// Update publishes task.updated with detail.
func (s *Stage) Update(ctx context.Context, detail any) {
	s.mu.Lock()
	snapshot := s.task.Clone()
	s.mu.Unlock()
	s.tracker.Publish(ctx, events.TaskUpdated, TaskUpdate{Task: snapshot, Detail: detail})
}

// Complete marks the subtask completed and publishes task.completed. It is
// a no-op once the stage has finished.
func (s *Stage) Complete(ctx context.Context) {
	s.finish(ctx, StatusCompleted, nil)
}

// Fail marks the subtask and task failed and publishes task.failed with
// the redacted error. It is a no-op once the stage has finished.
func (s *Stage) Fail(ctx context.Context, err error) {
	s.finish(ctx, StatusFailed, err)
}

func (s *Stage) finish(ctx context.Context, status Status, err error) {
	s.mu.Lock()
	if !s.sub.Status.CanTransition(status) {
		s.mu.Unlock()
		return
	}
	s.sub.Status = status
	s.task.Status = s.task.AggregateStatus()
	if err != nil {
		s.task.Error = redact.Error(err)
	}
	snapshot := s.task.Clone()
	s.mu.Unlock()

	typ := events.TaskCompleted
	if snapshot.Status == StatusFailed {
		typ = events.TaskFailed
		s.tracker.logger.Warn("stage failed", "task", snapshot.Name, "task_id", snapshot.ID, "error", err)
	} else {
		s.tracker.logger.Debug("stage completed", "task", snapshot.Name, "task_id", snapshot.ID)
	}
	s.tracker.Publish(ctx, typ, snapshot)
}
