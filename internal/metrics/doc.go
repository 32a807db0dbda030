// Package metrics defines the Prometheus instrumentation for the thumbnail
// cache, the batch workers, and the model service client, plus an optional
// HTTP listener exposing /metrics and /stats.
package metrics
