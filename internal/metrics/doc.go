// Package metrics owns the worker's Prometheus collectors. Collectors are
// registered against an explicit Registerer so tests can use isolated
// registries.
package metrics
