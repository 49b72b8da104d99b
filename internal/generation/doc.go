// Package generation is the boundary between the enrichment workflow and
// language model backends. Providers stream completions as Parts over a
// bounded channel and produce structured JSON results decoded into Go
// values and validated with struct tags.
package generation
