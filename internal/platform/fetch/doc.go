// Package fetch downloads images referenced by scraped pages. HTTPFetcher
// refuses private and loopback destinations, caps response size and
// retries transient failures; Limited bounds how many downloads run at once
// across every caller sharing it.
package fetch
