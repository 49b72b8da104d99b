// Package progress models an enrichment run as a Session of Tasks, each
// holding SubTasks, and publishes their lifecycle on the event bus.
//
// Status only moves forward: pending, running, then completed or failed.
// A Task counts as completed only when every SubTask has completed; any
// failed SubTask fails the Task.
package progress
