// Package progress provides the event primitives and emitter interfaces the
// crawl pipeline uses to report progress. Events are delivered synchronously,
// in emission order, to pluggable sinks such as structured logs or
// Prometheus metrics.
package progress
