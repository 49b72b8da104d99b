// Package events streams enrichment progress to interested parties.
//
// A Bus keeps one set of subscriber channels per entity (a bookmark id).
// Publishing never blocks the workflow: subscribers with full buffers miss
// the event, and sink failures are logged rather than returned. Sinks see
// every event regardless of subscribers and forward them to logs, metrics
// or an external broker.
package events
