// Package metrics defines the Prometheus instrumentation for the relay:
// transport counters, session lifecycle, turn outcomes and per-stage
// pipeline latencies.
package metrics
