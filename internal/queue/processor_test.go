package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testQueue = "bookmarks"

// hookGateway wraps a MemoryGateway so tests can observe acks and inject
// poll failures.
type hookGateway struct {
	*MemoryGateway
	popErrs   atomic.Int32
	deletes   atomic.Int32
	onArchive func(id int64)
}

func (g *hookGateway) PopBatch(ctx context.Context, queue string, max int) ([]Message, error) {
	if g.popErrs.Load() > 0 {
		g.popErrs.Add(-1)
		return nil, errors.New("connection refused")
	}
	return g.MemoryGateway.PopBatch(ctx, queue, max)
}

func (g *hookGateway) Delete(ctx context.Context, queue string, id int64) error {
	g.deletes.Add(1)
	return g.MemoryGateway.Delete(ctx, queue, id)
}

func (g *hookGateway) Archive(ctx context.Context, queue string, id int64) error {
	if g.onArchive != nil {
		g.onArchive(id)
	}
	return g.MemoryGateway.Archive(ctx, queue, id)
}

func newHookGateway() *hookGateway {
	// zero visibility makes failed messages reappear on the next poll
	return &hookGateway{MemoryGateway: NewMemoryGateway(0)}
}

func testConfig(maxRetries int) ProcessorConfig {
	return ProcessorConfig{Queues: []QueueOptions{{
		Name:         testQueue,
		BatchSize:    10,
		PollInterval: 5 * time.Millisecond,
		MaxRetries:   maxRetries,
	}}}
}

func startProcessor(t *testing.T, gw Gateway, registry *Registry, cfg ProcessorConfig, opts ...Option) *Processor {
	t.Helper()
	p, err := NewProcessor(gw, registry, cfg, discardLogger(), opts...)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() { _ = p.Stop(time.Second) })
	return p
}

func send(t *testing.T, gw Gateway, payload any) int64 {
	t.Helper()
	id, err := gw.Send(context.Background(), testQueue, payload, 0)
	require.NoError(t, err)
	return id
}

func TestNewProcessorValidation(t *testing.T) {
	t.Parallel()

	gw := NewMemoryGateway(time.Second)
	registry := NewRegistry()

	tests := []struct {
		name string
		gw   Gateway
		reg  *Registry
		cfg  ProcessorConfig
	}{
		{"nil gateway", nil, registry, testConfig(1)},
		{"nil registry", gw, nil, testConfig(1)},
		{"no queues", gw, registry, ProcessorConfig{}},
		{"zero batch", gw, registry, ProcessorConfig{Queues: []QueueOptions{{Name: "q", PollInterval: time.Second}}}},
		{"zero poll", gw, registry, ProcessorConfig{Queues: []QueueOptions{{Name: "q", BatchSize: 1}}}},
		{"duplicate", gw, registry, ProcessorConfig{Queues: []QueueOptions{DefaultQueueOptions("q"), DefaultQueueOptions("q")}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewProcessor(tc.gw, tc.reg, tc.cfg, discardLogger())
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestProcessorDeletesHandledMessages(t *testing.T) {
	t.Parallel()

	gw := newHookGateway()
	var handled atomic.Int32
	registry := NewRegistry(&funcHandler{
		types: []string{"bookmark_process"},
		handleFn: func(ctx context.Context, msg Message) error {
			handled.Add(1)
			return nil
		},
	})
	for i := 0; i < 3; i++ {
		send(t, gw, map[string]any{"type": "bookmark_process"})
	}

	p := startProcessor(t, gw, registry, testConfig(3))

	require.Eventually(t, func() bool { return gw.Pending(testQueue) == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 3, handled.Load())
	assert.EqualValues(t, 3, gw.deletes.Load())
	assert.Empty(t, gw.Archived(testQueue))
	assert.Equal(t, 0, p.tracker.Len())
}

func TestProcessorArchivesAfterRetryBudget(t *testing.T) {
	t.Parallel()

	gw := newHookGateway()
	var calls atomic.Int32
	var callsAtArchive atomic.Int32
	gw.onArchive = func(int64) { callsAtArchive.Store(calls.Load()) }

	registry := NewRegistry(&funcHandler{
		types: []string{"bookmark_process"},
		handleFn: func(ctx context.Context, msg Message) error {
			calls.Add(1)
			return errors.New("llm unavailable")
		},
	})
	send(t, gw, map[string]any{"type": "bookmark_process"})

	p := startProcessor(t, gw, registry, testConfig(2))

	require.Eventually(t, func() bool { return len(gw.Archived(testQueue)) == 1 }, 2*time.Second, 5*time.Millisecond)

	assert.EqualValues(t, 3, callsAtArchive.Load(), "archived on the third failure")
	assert.EqualValues(t, 0, gw.deletes.Load())
	assert.Equal(t, 0, p.tracker.Len())

	// nothing left to retry
	time.Sleep(30 * time.Millisecond)
	assert.EqualValues(t, 3, calls.Load())
}

func TestProcessorArchivesPermanentFailuresImmediately(t *testing.T) {
	t.Parallel()

	gw := newHookGateway()
	var calls atomic.Int32
	registry := NewRegistry(&funcHandler{
		types: []string{"bookmark_process"},
		handleFn: func(ctx context.Context, msg Message) error {
			calls.Add(1)
			return Permanent(errors.New("bookmark not found"))
		},
	})
	send(t, gw, map[string]any{"type": "bookmark_process"})

	p := startProcessor(t, gw, registry, testConfig(5))

	require.Eventually(t, func() bool { return len(gw.Archived(testQueue)) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, 0, p.tracker.Len())
}

func TestProcessorRoutesUnknownTypesToCatchAll(t *testing.T) {
	t.Parallel()

	gw := newHookGateway()
	var handled atomic.Int32
	registry := NewRegistry(
		&funcHandler{
			types: []string{"bookmark_process"},
			handleFn: func(ctx context.Context, msg Message) error {
				handled.Add(1)
				return nil
			},
		},
		NewCatchAllHandler(discardLogger()),
	)

	unknown := send(t, gw, map[string]any{"type": "mystery"})

	startProcessor(t, gw, registry, testConfig(3))

	require.Eventually(t, func() bool { return len(gw.Archived(testQueue)) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, unknown, gw.Archived(testQueue)[0].ID)

	// the loop keeps consuming after the fallback
	send(t, gw, map[string]any{"type": "bookmark_process"})
	require.Eventually(t, func() bool { return handled.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestProcessorArchivesWhenNoHandlerMatches(t *testing.T) {
	t.Parallel()

	gw := newHookGateway()
	send(t, gw, map[string]any{"data": "untyped"})

	startProcessor(t, gw, NewRegistry(), testConfig(3))

	require.Eventually(t, func() bool { return len(gw.Archived(testQueue)) == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestProcessorIsolatesFailuresWithinBatch(t *testing.T) {
	t.Parallel()

	gw := newHookGateway()
	registry := NewRegistry(&funcHandler{
		types: []string{"ok", "fail"},
		handleFn: func(ctx context.Context, msg Message) error {
			if msg.Type() == "fail" {
				return Permanent(errors.New("bad"))
			}
			time.Sleep(10 * time.Millisecond)
			return nil
		},
	})
	send(t, gw, map[string]any{"type": "ok"})
	bad := send(t, gw, map[string]any{"type": "fail"})
	send(t, gw, map[string]any{"type": "ok"})

	startProcessor(t, gw, registry, testConfig(3))

	require.Eventually(t, func() bool { return gw.Pending(testQueue) == 0 }, 2*time.Second, 5*time.Millisecond)
	archived := gw.Archived(testQueue)
	require.Len(t, archived, 1)
	assert.Equal(t, bad, archived[0].ID)
	assert.EqualValues(t, 2, gw.deletes.Load())
}

func TestProcessorDispatchesBatchConcurrently(t *testing.T) {
	t.Parallel()

	gw := newHookGateway()
	const n = 4
	var inFlight, peak atomic.Int32
	release := make(chan struct{})
	registry := NewRegistry(&funcHandler{
		types: []string{"bookmark_process"},
		handleFn: func(ctx context.Context, msg Message) error {
			cur := inFlight.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			<-release
			inFlight.Add(-1)
			return nil
		},
	})
	for i := 0; i < n; i++ {
		send(t, gw, map[string]any{"type": "bookmark_process"})
	}

	startProcessor(t, gw, registry, testConfig(3))

	require.Eventually(t, func() bool { return peak.Load() == n }, 2*time.Second, 5*time.Millisecond)
	close(release)
	require.Eventually(t, func() bool { return gw.Pending(testQueue) == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestProcessorRecoversFromHandlerPanic(t *testing.T) {
	t.Parallel()

	gw := newHookGateway()
	var calls atomic.Int32
	registry := NewRegistry(&funcHandler{
		types: []string{"bookmark_process"},
		handleFn: func(ctx context.Context, msg Message) error {
			if calls.Add(1) == 1 {
				panic("nil map write")
			}
			return nil
		},
	})
	send(t, gw, map[string]any{"type": "bookmark_process"})

	p := startProcessor(t, gw, registry, testConfig(3))

	require.Eventually(t, func() bool { return gw.Pending(testQueue) == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 2, calls.Load())
	assert.EqualValues(t, 1, gw.deletes.Load())
	assert.Equal(t, 0, p.tracker.Len())
}

func TestProcessorSurvivesPollErrors(t *testing.T) {
	t.Parallel()

	gw := newHookGateway()
	gw.popErrs.Store(3)
	registry := NewRegistry(&funcHandler{types: []string{"bookmark_process"}})
	send(t, gw, map[string]any{"type": "bookmark_process"})

	rec := &countingRecorder{}
	startProcessor(t, gw, registry, testConfig(3), WithRecorder(rec))

	require.Eventually(t, func() bool { return gw.Pending(testQueue) == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 3, rec.pollFailures.Load())
}

func TestProcessorPollsEveryQueue(t *testing.T) {
	t.Parallel()

	gw := newHookGateway()
	var mu sync.Mutex
	seen := map[string]bool{}
	registry := NewRegistry(&funcHandler{
		types: []string{"bookmark_process"},
		handleFn: func(ctx context.Context, msg Message) error {
			mu.Lock()
			defer mu.Unlock()
			seen[string(msg.Payload)] = true
			return nil
		},
	})
	_, err := gw.Send(context.Background(), "a", json.RawMessage(`{"type":"bookmark_process","q":"a"}`), 0)
	require.NoError(t, err)
	_, err = gw.Send(context.Background(), "b", json.RawMessage(`{"type":"bookmark_process","q":"b"}`), 0)
	require.NoError(t, err)

	cfg := ProcessorConfig{Queues: []QueueOptions{
		{Name: "a", BatchSize: 1, PollInterval: 5 * time.Millisecond, MaxRetries: 1},
		{Name: "b", BatchSize: 1, PollInterval: 5 * time.Millisecond, MaxRetries: 1},
	}}
	startProcessor(t, gw, registry, cfg)

	require.Eventually(t, func() bool {
		return gw.Pending("a") == 0 && gw.Pending("b") == 0
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 2)
}

func TestProcessorStartTwice(t *testing.T) {
	t.Parallel()

	p := startProcessor(t, newHookGateway(), NewRegistry(), testConfig(1))
	assert.True(t, p.Running())
	assert.ErrorIs(t, p.Start(context.Background()), ErrAlreadyRunning)
}

func TestProcessorStopDrainsInFlight(t *testing.T) {
	t.Parallel()

	gw := newHookGateway()
	started := make(chan struct{})
	registry := NewRegistry(&funcHandler{
		types: []string{"bookmark_process"},
		handleFn: func(ctx context.Context, msg Message) error {
			close(started)
			time.Sleep(50 * time.Millisecond)
			return nil
		},
	})
	send(t, gw, map[string]any{"type": "bookmark_process"})

	p, err := NewProcessor(gw, registry, testConfig(3), discardLogger())
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	<-started
	require.NoError(t, p.Stop(time.Second))
	assert.False(t, p.Running())
	assert.Equal(t, 0, gw.Pending(testQueue))

	// stopping again is a no-op
	assert.NoError(t, p.Stop(time.Second))
}

func TestProcessorStopTimeout(t *testing.T) {
	t.Parallel()

	gw := newHookGateway()
	started := make(chan struct{})
	cancelled := make(chan struct{})
	registry := NewRegistry(&funcHandler{
		types: []string{"bookmark_process"},
		handleFn: func(ctx context.Context, msg Message) error {
			close(started)
			<-ctx.Done()
			close(cancelled)
			return ctx.Err()
		},
	})
	send(t, gw, map[string]any{"type": "bookmark_process"})

	p, err := NewProcessor(gw, registry, testConfig(0), discardLogger())
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	<-started
	err = p.Stop(20 * time.Millisecond)
	assert.ErrorIs(t, err, ErrShutdownTimeout)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("handler context was not cancelled after timeout")
	}

	// interrupted work is left for redelivery, even with no retries left
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, gw.Pending(testQueue))
	assert.Empty(t, gw.Archived(testQueue))
}

func TestProcessorRestartAfterStopTimeout(t *testing.T) {
	t.Parallel()

	gw := newHookGateway()
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	liveCtx := make(chan error, 1)
	registry := NewRegistry(&funcHandler{
		types: []string{"bookmark_process"},
		handleFn: func(ctx context.Context, msg Message) error {
			if calls.Add(1) == 1 {
				close(started)
				<-ctx.Done()
				<-release
				return ctx.Err()
			}
			select {
			case liveCtx <- ctx.Err():
			default:
			}
			return nil
		},
	})
	send(t, gw, map[string]any{"type": "bookmark_process"})

	p, err := NewProcessor(gw, registry, testConfig(0), discardLogger())
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	<-started
	require.ErrorIs(t, p.Stop(20*time.Millisecond), ErrShutdownTimeout)

	// the abandoned handler is still running while the second run starts
	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() { _ = p.Stop(time.Second) })

	select {
	case err := <-liveCtx:
		assert.NoError(t, err, "second run must not inherit the cancelled context")
	case <-time.After(time.Second):
		t.Fatal("redelivered message was not handled after restart")
	}
	close(release)

	assert.Eventually(t, func() bool { return gw.Pending(testQueue) == 0 },
		time.Second, 5*time.Millisecond)
	assert.Empty(t, gw.Archived(testQueue))
}

func TestProcessorStopsWithParentContext(t *testing.T) {
	t.Parallel()

	p, err := NewProcessor(newHookGateway(), NewRegistry(), testConfig(1), discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.Start(ctx))
	cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loops did not exit after parent cancellation")
	}
	assert.NoError(t, p.Stop(time.Second))
}

type countingRecorder struct {
	nopRecorder
	pollFailures atomic.Int32
}

func (r *countingRecorder) PollFailed(string) { r.pollFailures.Add(1) }
