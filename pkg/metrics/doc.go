// Package metrics defines the Prometheus collectors exported on /metrics and
// an HTTP middleware that records request counts and latency per route.
package metrics
