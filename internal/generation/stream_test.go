package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStreamDeliversPartsInOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	parts := NewStream(ctx, 2, func(ctx context.Context, emit Emitter) error {
		for _, s := range []string{"Rust ", "async ", "is fun"} {
			if !emit.Emit(TextPart(s)) {
				return nil
			}
		}
		emit.Emit(Part{Type: PartUsage, Usage: &Usage{InputTokens: 10, OutputTokens: 3, TotalTokens: 13}})
		return nil
	})

	var seen []string
	res, err := Collect(ctx, parts, func(p Part, text string) {
		if p.Type == PartText {
			seen = append(seen, text)
		}
	})

	require.NoError(t, err)
	assert.Equal(t, "Rust async is fun", res.Text)
	assert.Equal(t, []string{"Rust ", "Rust async ", "Rust async is fun"}, seen)
	assert.Equal(t, int32(13), res.Usage.TotalTokens)
}

func TestNewStreamProducerErrorBecomesPart(t *testing.T) {
	t.Parallel()

	boom := errors.New("upstream reset")
	parts := NewStream(context.Background(), 0, func(ctx context.Context, emit Emitter) error {
		emit.Emit(TextPart("partial"))
		return boom
	})

	res, err := Collect(context.Background(), parts, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "partial", res.Text)
}

func TestNewStreamStopsProducerOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	parts := NewStream(ctx, 1, func(ctx context.Context, emit Emitter) error {
		defer close(stopped)
		for {
			if !emit.Emit(TextPart("x")) {
				return ctx.Err()
			}
		}
	})

	<-parts
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("producer kept running after cancellation")
	}

	// the channel is closed without an error part
	for p := range parts {
		assert.NotEqual(t, PartError, p.Type)
	}
}

func TestCollectHonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	never := make(chan Part)
	_, err := Collect(ctx, never, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectGathersToolCalls(t *testing.T) {
	t.Parallel()

	ch := make(chan Part, 2)
	ch <- Part{Type: PartTool, Tool: &ToolCall{CallID: "c1", Name: "lookup", Status: ToolCompleted}}
	ch <- TextPart("ok")
	close(ch)

	res, err := Collect(context.Background(), ch, nil)
	require.NoError(t, err)
	require.Len(t, res.Tools, 1)
	assert.Equal(t, "lookup", res.Tools[0].Name)
}
