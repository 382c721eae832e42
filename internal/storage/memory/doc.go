// Package memory provides the volatile in-memory store for envelopes.
//
// Values live in a sharded concurrent map and are lost when the process
// exits, which matches the one-process-one-session lifetime of derived
// keys. An optional byte quota mirrors the bounded capacity of a browser
// session store: writes that would exceed it fail with ErrQuotaExceeded.
//
// Thread Safety:
//
// Reads are lock-free per shard. Writes take a store-level mutex so the
// quota accounting stays exact.
package memory
