package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryTracker(t *testing.T) {
	t.Parallel()

	tracker := NewRetryTracker()
	assert.Equal(t, 0, tracker.Attempts("bookmarks", 1))

	assert.Equal(t, 1, tracker.Increment("bookmarks", 1))
	assert.Equal(t, 2, tracker.Increment("bookmarks", 1))

	// same id on another queue is tracked separately
	assert.Equal(t, 1, tracker.Increment("other", 1))
	assert.Equal(t, 2, tracker.Len())

	tracker.Clear("bookmarks", 1)
	assert.Equal(t, 0, tracker.Attempts("bookmarks", 1))
	assert.Equal(t, 1, tracker.Attempts("other", 1))
	assert.Equal(t, 1, tracker.Len())
}

func TestRetryTrackerConcurrentIncrements(t *testing.T) {
	t.Parallel()

	tracker := NewRetryTracker()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Increment("bookmarks", 42)
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, tracker.Attempts("bookmarks", 42))
}
