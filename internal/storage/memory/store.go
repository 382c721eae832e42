package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/yndnr/securestore/internal/storage"
	"github.com/yndnr/securestore/pkg/cmap"
)

// DefaultQuotaBytes is the default capacity (keys plus values), 5 MiB.
const DefaultQuotaBytes = 5 << 20

// ErrQuotaExceeded is returned by Set when the write would exceed the quota.
var ErrQuotaExceeded = errors.New("memory: quota exceeded")

// Store is a volatile string key/value store.
type Store struct {
	entries *cmap.Map[string]

	// Configuration
	quota int64 // <= 0 means unlimited

	// Guards used and serializes writers.
	mu   sync.Mutex
	used int64
}

// Option configures the Store.
type Option func(*Store)

// WithQuota sets the byte quota. Zero or negative disables the limit.
func WithQuota(bytes int64) Option {
	return func(s *Store) {
		s.quota = bytes
	}
}

// New creates a new in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		entries: cmap.New[string](),
		quota:   DefaultQuotaBytes,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func entrySize(key, value string) int64 {
	return int64(len(key) + len(value))
}

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) (string, error) {
	v, ok := s.entries.Get(key)
	if !ok {
		return "", storage.ErrKeyNotFound
	}
	return v, nil
}

// Set stores a value, replacing any previous one.
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delta := entrySize(key, value)
	if old, ok := s.entries.Get(key); ok {
		delta -= entrySize(key, old)
	}
	if s.quota > 0 && s.used+delta > s.quota {
		return ErrQuotaExceeded
	}

	s.entries.Set(key, value)
	s.used += delta
	return nil
}

// Delete removes a key. Removing an absent key is a no-op.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries.Pop(key); ok {
		s.used -= entrySize(key, old)
	}
	return nil
}

// Keys returns all keys, sorted.
func (s *Store) Keys(_ context.Context) ([]string, error) {
	return s.entries.Keys(), nil
}

// Len returns the number of stored keys.
func (s *Store) Len(_ context.Context) int {
	return s.entries.Count()
}

// Used returns the number of bytes currently accounted against the quota.
func (s *Store) Used() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}

// Reset drops every entry.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries.Clear()
	s.used = 0
}

var (
	_ storage.Volatile   = (*Store)(nil)
	_ storage.Persistent = (*Store)(nil)
)
