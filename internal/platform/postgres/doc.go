// Package postgres provides PostgreSQL implementations of the store
// interfaces on top of pgx: bookmarks and scraped content, the category
// forest and image chunks. It also owns the embedded goose migrations.
package postgres
