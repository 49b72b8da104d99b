// Package store defines the persistence contracts the worker depends on:
// bookmarks and scraped content, the category forest, and image chunks.
// Implementations live under internal/platform.
package store
