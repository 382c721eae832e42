// Package storage defines the string key/value stores used by the secure
// store and provides the Badger-backed persistent implementation.
//
// Two store roles exist:
//
//   - Volatile: session-scoped envelopes, enumerable, lost on exit
//   - Persistent: long-lived values (the DeviceId), survives restarts
//
// The in-memory Volatile implementation lives in storage/memory.
// BadgerStore satisfies both interfaces and is used as the Persistent
// store by the CLI.
package storage
