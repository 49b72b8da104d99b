// Package domain contains the entities the enrichment worker reads and
// writes: bookmarks and their enrichment fields, scraped page content,
// stored image chunks and the per-user category forest.
package domain
