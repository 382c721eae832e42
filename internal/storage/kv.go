package storage

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("kv store closed")
)

// Persistent is a long-lived string key/value store.
//
// Only the DeviceId is kept here. Implementations must be safe for
// concurrent use; concurrent Set calls on the same key are last-writer-wins.
type Persistent interface {
	// Get returns ErrKeyNotFound if key doesn't exist.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a key-value pair.
	Set(ctx context.Context, key, value string) error
}

// Volatile is the session-scoped string key/value store holding envelopes.
//
// It is shared global state: any caller may read or write any key.
type Volatile interface {
	// Get returns ErrKeyNotFound if key doesn't exist.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a key-value pair, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns every key currently stored, sorted.
	Keys(ctx context.Context) ([]string, error)

	// Len returns the number of stored keys.
	Len(ctx context.Context) int
}

// KVStats contains storage engine statistics.
type KVStats struct {
	// TotalKeys is the number of keys under the store namespace.
	TotalKeys uint64

	// TotalSize is the total disk usage in bytes.
	TotalSize uint64

	// LSMSize is the LSM tree size.
	LSMSize uint64

	// ValueLogSize is the value log size.
	ValueLogSize uint64

	// LastGCTime is the last GC run timestamp (Unix milliseconds).
	LastGCTime int64

	// GCRuns is the number of successful value log rewrites.
	GCRuns uint64
}

// KVConfig configures the embedded KV store.
type KVConfig struct {
	// Dir is the storage directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps all data in memory (tests, --device-dir "").
	InMemory bool

	// Namespace prefixes every key written by this store.
	// Default: "securestore/"
	Namespace string

	// Badger-specific configuration
	Badger BadgerConfig
}

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	// GCInterval is the interval between automatic GC runs.
	// Default: 10m
	GCInterval string

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 8MB (the store only holds a handful of keys)
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 16MB
	ValueLogFileSize int64

	// SyncWrites enables sync writes (fsync after each write).
	// Default: true, the DeviceId must survive a crash right after creation.
	SyncWrites bool
}

// DefaultKVConfig returns the default KV configuration.
func DefaultKVConfig(dir string) KVConfig {
	return KVConfig{
		Dir:       dir,
		InMemory:  dir == "",
		Namespace: "securestore/",
		Badger:    DefaultBadgerConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       "10m",
		GCThreshold:      0.5,
		CacheSize:        8 << 20,  // 8MB
		ValueLogFileSize: 16 << 20, // 16MB
		SyncWrites:       true,
	}
}
