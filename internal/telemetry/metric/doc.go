// Package metric provides Prometheus metrics for rediswire clients.
//
//   - prometheus.go: Registry, which implements transporter.Metrics, and
//     the /metrics HTTP handler
//   - collector.go: StateCollector, scrape-time gauges for connection and
//     subscription state
//
// Metric names are prefixed with "rediswire_".
package metric
