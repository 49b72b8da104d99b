package progress

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/bookmark-enricher/internal/events"
)

type recorded struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorded) sink() events.Sink {
	return events.SinkFunc(func(_ context.Context, evt events.Event) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, evt)
		return nil
	})
}

func (r *recorded) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recorded) last() events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func newTestTracker() (*Tracker, *recorded) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := &recorded{}
	bus := events.NewBus(logger, events.WithSinks(rec.sink()))
	return NewTracker(bus, NewSession("bookmark-1"), logger), rec
}

func TestTrackerSessionEvents(t *testing.T) {
	t.Parallel()

	tracker, rec := newTestTracker()
	ctx := context.Background()

	tracker.SessionStarted(ctx)
	tracker.SessionFailed(ctx, errors.New("dial postgres://app:hunter2@db:5432/app failed"))

	assert.Equal(t, []events.Type{events.SessionStarted, events.SessionError}, rec.types())

	last := rec.last()
	assert.Equal(t, "bookmark-1", last.EntityID)
	result, ok := last.Data.(SessionResult)
	require.True(t, ok)
	assert.Equal(t, tracker.Session(), result.Session)
	assert.NotContains(t, result.Error, "hunter2")
}

func TestRunStageSuccess(t *testing.T) {
	t.Parallel()

	tracker, rec := newTestTracker()
	ctx := context.Background()

	err := tracker.RunStage(ctx, "Summarizing content", "Summarizing content", func(ctx context.Context, s *Stage) error {
		assert.Equal(t, StatusRunning, s.Task().Status)
		s.Update(ctx, map[string]int{"chars": 10})
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []events.Type{events.TaskStarted, events.TaskUpdated, events.TaskCompleted}, rec.types())
	task := rec.last().Data.(*Task)
	assert.Equal(t, StatusCompleted, task.Status)
	assert.Equal(t, tracker.Session().ID, task.SessionID)
	for _, st := range task.SubTasks {
		assert.Equal(t, StatusCompleted, st.Status)
	}
}

func TestRunStageFailure(t *testing.T) {
	t.Parallel()

	tracker, rec := newTestTracker()
	cause := errors.New("tags did not validate")

	err := tracker.RunStage(context.Background(), "Generating metadata", "Generating tags", func(context.Context, *Stage) error {
		return cause
	})
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, []events.Type{events.TaskStarted, events.TaskFailed}, rec.types())
	task := rec.last().Data.(*Task)
	assert.Equal(t, StatusFailed, task.Status)
	assert.Equal(t, "tags did not validate", task.Error)
}

func TestStageFinishIsMonotonic(t *testing.T) {
	t.Parallel()

	tracker, rec := newTestTracker()
	ctx := context.Background()

	s := tracker.StartStage(ctx, "Categorizing bookmark", "Categorizing bookmark")
	s.Complete(ctx)
	s.Fail(ctx, errors.New("late failure"))
	s.Complete(ctx)

	assert.Equal(t, []events.Type{events.TaskStarted, events.TaskCompleted}, rec.types())
	assert.Equal(t, StatusCompleted, s.Task().Status)
}

func TestPublishedSnapshotsAreIndependent(t *testing.T) {
	t.Parallel()

	tracker, rec := newTestTracker()
	ctx := context.Background()

	s := tracker.StartStage(ctx, "Processing images", "Curating images")
	started := rec.last().Data.(*Task)
	s.Complete(ctx)

	assert.Equal(t, StatusRunning, started.Status, "earlier snapshot unchanged")
}
