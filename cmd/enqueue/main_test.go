package main

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/bookmark-enricher/internal/platform/logger"
	"github.com/phrazzld/bookmark-enricher/internal/queue"
	"github.com/phrazzld/bookmark-enricher/internal/queue/handlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	bookmarkID = "3f1c7c36-8b0e-4f4e-9c51-0f5b3b0a6a11"
	userID     = "8a7e2f0c-5d1b-4b8e-a6a4-2c9f1e3d7b22"
)

func TestParseFlags(t *testing.T) {
	t.Parallel()

	base := []string{"-database-url", "postgres://localhost/app", "-bookmark", bookmarkID, "-user", userID}

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		opts, err := parseFlags(base, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, "bookmarks", opts.queueName)
		assert.Equal(t, bookmarkID, opts.bookmarkID.String())
		assert.Nil(t, opts.collectionID)
		assert.Equal(t, handlers.PriorityMedium, opts.priority)
		assert.Zero(t, opts.delay)
	})

	t.Run("all flags", func(t *testing.T) {
		t.Parallel()
		args := append(append([]string{}, base...),
			"-queue", "priority", "-url", "https://example.com/a",
			"-collection", userID, "-priority", "high", "-delay", "2s")
		opts, err := parseFlags(args, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, "priority", opts.queueName)
		assert.Equal(t, "https://example.com/a", opts.sourceURL)
		require.NotNil(t, opts.collectionID)
		assert.Equal(t, handlers.PriorityHigh, opts.priority)
		assert.Equal(t, 2*time.Second, opts.delay)
	})

	invalid := map[string][]string{
		"missing bookmark": {"-database-url", "x", "-user", userID},
		"bad user":         {"-database-url", "x", "-bookmark", bookmarkID, "-user", "nope"},
		"bad collection":   append(append([]string{}, base...), "-collection", "nope"),
		"unknown priority": append(append([]string{}, base...), "-priority", "urgent"),
		"negative delay":   append(append([]string{}, base...), "-delay", "-1s"),
		"unknown flag":     append(append([]string{}, base...), "-force"),
	}
	for name, args := range invalid {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := parseFlags(args, io.Discard)
			assert.Error(t, err)
		})
	}
}

func TestEnqueue(t *testing.T) {
	t.Parallel()

	log, buf := logger.NewTestLogger(t)
	gateway := queue.NewMemoryGateway(time.Minute)
	opts := options{
		queueName:  "bookmarks",
		bookmarkID: uuid.MustParse(bookmarkID),
		userID:     uuid.MustParse(userID),
		sourceURL:  "https://example.com/a",
		priority:   handlers.PriorityLow,
	}

	require.NoError(t, enqueue(context.Background(), gateway, opts, log))

	msgs, err := gateway.PopBatch(context.Background(), "bookmarks", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, handlers.TypeBookmarkProcess, msgs[0].Type())

	var payload handlers.BookmarkPayload
	require.NoError(t, msgs[0].Decode(&payload))
	assert.Equal(t, bookmarkID, payload.Data.BookmarkID)
	assert.Equal(t, userID, payload.Data.UserID)
	assert.Equal(t, "cli", payload.Metadata.Source)
	assert.Equal(t, handlers.PriorityLow, payload.Metadata.Priority)

	logger.AssertLogContains(t, buf, "bookmark enqueued")
}
