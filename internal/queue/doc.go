// Package queue consumes work items from a durable message queue.
//
// A Processor runs one polling loop per configured queue. Each loop claims a
// batch through a Gateway, dispatches every message concurrently to the
// first matching Handler in a Registry, and then acknowledges the outcome:
// successful messages are deleted, failed ones are left to reappear after
// the queue's visibility timeout until the retry budget is spent, at which
// point they are archived (dead-lettered).
//
// Retry counts live in memory in a RetryTracker. Losing them on restart only
// means a message may get a few extra attempts; the queue's re-delivery is
// the source of truth.
package queue
