// Package metric provides Prometheus metrics for the secure store.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: registry, seal/open/derive instruments, HTTP handler
//   - collector.go: scrape-time collector for volatile store occupancy
//
// Metrics include:
//
//   - Seal outcomes by protection mode (aes-gcm, basic, plain)
//   - Open outcomes by envelope kind and result
//   - Key derivation latency and failures by purpose
//   - Store write failures and volatile store size
package metric
