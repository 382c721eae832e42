// Package cmap provides a sharded concurrent map keyed by strings.
//
// It backs the volatile store: keys are storage key names, values are the
// serialized envelopes. Each shard has its own RWMutex, so readers of
// different keys never contend.
//
// Usage:
//
//	m := cmap.New[string]()
//	m.Set("prefs", raw)
//	val, ok := m.Get("prefs")
//
// Iteration (Range, Keys) locks one shard at a time and is therefore not a
// consistent snapshot across shards.
package cmap
