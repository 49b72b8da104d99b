// Package api exposes the worker's operational HTTP surface: a health
// endpoint, the Prometheus scrape endpoint and a server-sent events stream
// of enrichment progress per bookmark.
//
// Bookmarks are created elsewhere; this package never writes them. The
// progress stream relays whatever the event bus publishes for a bookmark id
// and ends when the enrichment session completes or fails.
package api
