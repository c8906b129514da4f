// Package metric provides Prometheus metrics for tagurl.
//
// A Registry owns a private prometheus.Registry with the Go runtime and
// process collectors plus the tagurl metrics:
//
//   - decode attempts, outcomes by error kind, keys tried and latency
//   - URLs issued and station touches
//   - HTTP requests and latency, rate-limited requests
//   - key store size (KeyStoreCollector) and reloads
//
// Metrics are exposed at /metrics in Prometheus text format.
package metric
