// Package service provides the secure storage facade.
//
// SecureStorage is the only entry point callers need: it turns values into
// JSON, seals them through the encryption engine, and keeps the encoded
// envelopes in a volatile, session-scoped store.
//
//   - SetItem: serialize, seal, encode, write
//   - GetItem / GetRaw: read, parse, open, deserialize
//   - RemoveItem / Clear / Keys: housekeeping
//
// Reads never fail: absent, tampered and unreadable entries all read as
// "no value". Writes only fail for values that cannot be serialized.
//
// The facade spawns no goroutines and holds no lock of its own; concurrent
// writes to the same key are last-writer-wins at the store.
package service
