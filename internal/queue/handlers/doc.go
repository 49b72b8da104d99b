// Package handlers contains the queue.Handler implementations registered by
// the worker and the payload constructors producers use to enqueue work
// for them.
package handlers
