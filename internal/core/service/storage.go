package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/securestore/internal/core/domain"
	"github.com/yndnr/securestore/internal/core/engine"
	"github.com/yndnr/securestore/internal/core/envelope"
	"github.com/yndnr/securestore/internal/storage"
	"github.com/yndnr/securestore/internal/telemetry/logger"
	"github.com/yndnr/securestore/internal/telemetry/metric"
)

// Sealer protects and recovers JSON payloads for named entries.
// *engine.Engine implements it.
type Sealer interface {
	Seal(ctx context.Context, payload json.RawMessage, name string) (envelope.Envelope, engine.Mode, error)
	Open(ctx context.Context, env envelope.Envelope, name string) (json.RawMessage, error)
}

// SecureStorage stores values as sealed envelopes in a volatile store.
type SecureStorage struct {
	store   storage.Volatile
	sealer  Sealer
	logger  logger.Logger
	metrics *metric.Registry

	warnings rate.Sometimes
}

// Option configures a SecureStorage.
type Option func(*SecureStorage)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *SecureStorage) {
		s.logger = l
	}
}

// WithMetrics enables store write and clear metrics.
func WithMetrics(m *metric.Registry) Option {
	return func(s *SecureStorage) {
		s.metrics = m
	}
}

// New creates a SecureStorage over store.
func New(store storage.Volatile, sealer Sealer, opts ...Option) *SecureStorage {
	s := &SecureStorage{
		store:    store,
		sealer:   sealer,
		logger:   logger.Default(),
		warnings: rate.Sometimes{First: 3, Interval: time.Minute},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SecureStorage) log(ctx context.Context) logger.Logger {
	return logger.LOr(ctx, s.logger)
}

func (s *SecureStorage) warn(ctx context.Context, msg string, args ...any) {
	s.warnings.Do(func() {
		s.log(ctx).Warn(msg, args...)
	})
}

// SetItem seals value under key.
//
// It returns (false, ErrSerialization) when value cannot be encoded as
// JSON. Every other failure is reported as (false, nil) after making sure
// no stale or partial value is left under key.
func (s *SecureStorage) SetItem(ctx context.Context, key string, value any) (ok bool, err error) {
	ctx = logger.WithOperation(ctx, "set")
	defer func() {
		if r := recover(); r != nil {
			s.warn(ctx, "set recovered from panic", "name", key, "panic", fmt.Sprint(r))
			s.discard(ctx, key)
			ok, err = false, nil
		}
	}()

	payload, err := json.Marshal(value)
	if err != nil {
		return false, domain.ErrSerialization.WithCause(err)
	}

	env, mode, err := s.sealer.Seal(ctx, payload, key)
	if err != nil {
		if errors.Is(err, domain.ErrSerialization) {
			return false, err
		}
		s.warn(ctx, "seal failed", "name", key, "error", err)
		return false, nil
	}

	raw, err := envelope.Encode(env)
	if err != nil {
		s.warn(ctx, "envelope encoding failed", "name", key, "error", err)
		return false, nil
	}

	if err := s.store.Set(ctx, key, raw); err != nil {
		s.warn(ctx, "store write failed", "name", key, "error", domain.ErrStorageWrite.WithCause(err))
		if s.metrics != nil {
			s.metrics.IncStoreWriteFailure()
		}
		s.discard(ctx, key)
		return false, nil
	}

	s.log(ctx).Debug("item stored", "name", key, "mode", mode, "kind", env.Kind)
	return true, nil
}

// discard removes key after a failed write.
func (s *SecureStorage) discard(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.log(ctx).Debug("cleanup after failed write", "name", key, "error", err)
	}
}

// GetItem reads key into dst, which must be a non-nil pointer. It reports
// whether a value was found and decoded; dst is left untouched otherwise.
func (s *SecureStorage) GetItem(ctx context.Context, key string, dst any) bool {
	payload, ok := s.GetRaw(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		s.log(ctx).Debug("stored value does not fit destination", "name", key, "error", err)
		return false
	}
	return true
}

// GetRaw returns the JSON payload stored under key.
func (s *SecureStorage) GetRaw(ctx context.Context, key string) (out json.RawMessage, ok bool) {
	ctx = logger.WithOperation(ctx, "get")
	defer func() {
		if r := recover(); r != nil {
			s.warn(ctx, "get recovered from panic", "name", key, "panic", fmt.Sprint(r))
			out, ok = nil, false
		}
	}()

	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			if s.metrics != nil {
				s.metrics.ObserveOpen("none", metric.ResultAbsent)
			}
		} else {
			s.log(ctx).Debug("store read failed", "name", key, "error", err)
		}
		return nil, false
	}

	env := envelope.Parse(raw)
	payload, err := s.sealer.Open(ctx, env, key)
	if err != nil {
		if errors.Is(err, domain.ErrIntegrityViolation) {
			s.warn(ctx, "integrity check failed", "name", key, "kind", env.Kind, "code", domain.GetErrorCode(err))
		} else {
			s.log(ctx).Debug("stored value unreadable", "name", key, "kind", env.Kind, "error", err)
		}
		return nil, false
	}
	return payload, true
}

// RemoveItem deletes key. Removing an absent key is a no-op.
func (s *SecureStorage) RemoveItem(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.log(ctx).Debug("remove failed", "name", key, "error", err)
	}
}

// Clear removes every entry written by this subsystem and returns how many
// were removed. Entries written by other code in the shared store,
// including legacy unversioned envelopes, are left alone.
func (s *SecureStorage) Clear(ctx context.Context) int {
	ctx = logger.WithOperation(ctx, "clear")

	keys, err := s.store.Keys(ctx)
	if err != nil {
		s.log(ctx).Warn("clear: listing keys failed", "error", err)
		return 0
	}

	removed := 0
	for _, key := range keys {
		raw, err := s.store.Get(ctx, key)
		if err != nil || !envelope.IsManaged(raw) {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			s.log(ctx).Debug("clear: delete failed", "name", key, "error", err)
			continue
		}
		removed++
	}

	if s.metrics != nil {
		s.metrics.AddClearRemoved(removed)
	}
	s.log(ctx).Info("secure storage cleared", "removed", removed)
	return removed
}

// Keys returns every key in the volatile store, sorted.
func (s *SecureStorage) Keys(ctx context.Context) []string {
	keys, err := s.store.Keys(ctx)
	if err != nil {
		return nil
	}
	sort.Strings(keys)
	return keys
}

// Occupancy reports the number of keys in the volatile store and how many
// of them hold envelopes written by this subsystem.
func (s *SecureStorage) Occupancy() (keys, managed int) {
	ctx := context.Background()
	all, err := s.store.Keys(ctx)
	if err != nil {
		return 0, 0
	}
	for _, key := range all {
		if raw, err := s.store.Get(ctx, key); err == nil && envelope.IsManaged(raw) {
			managed++
		}
	}
	return len(all), managed
}

// Raw returns the stored envelope string for key without opening it.
func (s *SecureStorage) Raw(ctx context.Context, key string) (string, bool) {
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		return "", false
	}
	return raw, true
}
