// Package server provides the optional monitoring surface for a
// running receiver session: a /status JSON endpoint, Prometheus
// metrics on /metrics, and a WebSocket endpoint on /stream that
// broadcasts decoded sample batches as binary frames.
package server
