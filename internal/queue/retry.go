package queue

import "sync"

type retryKey struct {
	queue string
	id    int64
}

// RetryTracker counts failed attempts per (queue, message id). It is safe
// for concurrent use.
type RetryTracker struct {
	mu       sync.Mutex
	attempts map[retryKey]int
}

// NewRetryTracker creates an empty tracker.
func NewRetryTracker() *RetryTracker {
	return &RetryTracker{attempts: make(map[retryKey]int)}
}

// Attempts returns the failures recorded so far.
func (t *RetryTracker) Attempts(queue string, id int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts[retryKey{queue, id}]
}

// Increment records one more failure and returns the new count.
func (t *RetryTracker) Increment(queue string, id int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := retryKey{queue, id}
	t.attempts[k]++
	return t.attempts[k]
}

// Clear forgets the message.
func (t *RetryTracker) Clear(queue string, id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.attempts, retryKey{queue, id})
}

// Len returns the number of tracked messages.
func (t *RetryTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.attempts)
}
