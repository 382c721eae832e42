package keyderiv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/yndnr/securestore/internal/core/domain"
	"github.com/yndnr/securestore/internal/storage"
	"github.com/yndnr/securestore/internal/telemetry/logger"
	"github.com/yndnr/securestore/internal/telemetry/metric"
	"github.com/yndnr/securestore/pkg/crypto/provider"
	"github.com/yndnr/securestore/pkg/token"
)

// Key purposes.
const (
	PurposeIntegrity  = "integrity_check"
	PurposeEncryption = "encryption"
)

const (
	// MinIterations is the PBKDF2 iteration floor.
	MinIterations = 10000

	// DefaultSaltPrefix starts every salt built by BuildSalt.
	DefaultSaltPrefix = "securestore:v3"

	// DefaultLegacySalt is the fixed salt used by v1/v2 era writers.
	DefaultLegacySalt = "DSBlog_SecureSaltValue_7821"

	// DeviceIDKey is the persistent store key holding the DeviceId.
	DeviceIDKey = "securestore.device_id"
)

// murmur3 seeds for the two halves of the system key.
const (
	systemSeedLo uint32 = 0x5ec0de01
	systemSeedHi uint32 = 0x5ec0de02
)

// FingerprintSource yields the current fingerprint.
type FingerprintSource interface {
	Fingerprint() string
}

// Config holds derivation parameters.
type Config struct {
	// Iterations is the PBKDF2 cost; values below MinIterations are raised.
	Iterations int

	// SaltPrefix is the fixed first component of every salt.
	SaltPrefix string

	// LegacySalt is the fixed salt for reading pre-v3 envelopes.
	LegacySalt string
}

// DefaultConfig returns the default derivation parameters.
func DefaultConfig() Config {
	return Config{
		Iterations: MinIterations,
		SaltPrefix: DefaultSaltPrefix,
		LegacySalt: DefaultLegacySalt,
	}
}

// Service derives keys for one IdentityContext.
type Service struct {
	provider    provider.Provider
	identity    *IdentityContext
	fingerprint FingerprintSource
	persistent  storage.Persistent
	cfg         Config
	logger      logger.Logger
	metrics     *metric.Registry
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets derivation parameters.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithMetrics enables derivation metrics.
func WithMetrics(m *metric.Registry) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a key derivation service.
//
// persistent may be nil, in which case the DeviceId lives only as long as
// the process.
func NewService(p provider.Provider, identity *IdentityContext, fp FingerprintSource, persistent storage.Persistent, opts ...Option) *Service {
	s := &Service{
		provider:    p,
		identity:    identity,
		fingerprint: fp,
		persistent:  persistent,
		cfg:         DefaultConfig(),
		logger:      logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.SaltPrefix == "" {
		s.cfg.SaltPrefix = DefaultSaltPrefix
	}
	if s.cfg.LegacySalt == "" {
		s.cfg.LegacySalt = DefaultLegacySalt
	}
	return s
}

// Identity returns the identity context.
func (s *Service) Identity() *IdentityContext {
	return s.identity
}

// Iterations returns the effective PBKDF2 iteration count.
func (s *Service) Iterations() int {
	return max(s.cfg.Iterations, MinIterations)
}

// GetOrCreateDeviceID returns the persisted DeviceId, creating it on first
// use. Concurrent callers within the process converge on one value.
//
// Persistent store failures never reach the caller: the id is then
// process-local and a warning is logged.
func (s *Service) GetOrCreateDeviceID(ctx context.Context) string {
	id := s.identity
	id.mu.Lock()
	defer id.mu.Unlock()

	if id.deviceID != "" {
		return id.deviceID
	}

	if s.persistent != nil {
		v, err := s.persistent.Get(ctx, DeviceIDKey)
		switch {
		case err == nil && token.IsHex(v, token.DeviceIDLength):
			id.deviceID = v
			return v
		case err == nil:
			s.logger.Warn("persisted device id is malformed, replacing")
		case !errors.Is(err, storage.ErrKeyNotFound):
			s.logger.Warn("device id lookup failed, using process-local id", "error", err)
			id.deviceID = newDeviceID()
			return id.deviceID
		}
	}

	deviceID := newDeviceID()
	if s.persistent != nil {
		if err := s.persistent.Set(ctx, DeviceIDKey, deviceID); err != nil {
			s.logger.Warn("device id not persisted, using process-local id", "error", err)
		}
	}
	id.deviceID = deviceID
	return deviceID
}

func newDeviceID() string {
	if v, err := token.NewDeviceID(); err == nil {
		return v
	}
	return token.Hash(fmt.Sprintf("%d:%d:device", time.Now().UnixNano(), os.Getpid()))[:token.DeviceIDLength*2]
}

func (s *Service) currentFingerprint() string {
	if s.fingerprint == nil {
		return ""
	}
	return s.fingerprint.Fingerprint()
}

// BuildSalt returns prefix:purpose:fingerprint:deviceId:sessionId.
func (s *Service) BuildSalt(ctx context.Context, purpose string) string {
	return strings.Join([]string{
		s.cfg.SaltPrefix,
		purpose,
		s.currentFingerprint(),
		s.GetOrCreateDeviceID(ctx),
		s.identity.SessionID(),
	}, ":")
}

// DeriveKey derives a 32-byte key for secret and purpose.
//
// It returns domain.ErrProviderUnavailable when the provider is missing and
// domain.ErrKeyDerivation when the inputs are rejected.
func (s *Service) DeriveKey(ctx context.Context, secret, purpose string) (key []byte, err error) {
	if purpose == "" {
		return nil, domain.ErrKeyDerivation.WithDetails("empty purpose")
	}
	return s.pbkdf2(ctx, purpose, []byte(secret), []byte(s.BuildSalt(ctx, purpose)))
}

// DeriveLegacyKey derives a key with the fixed legacy salt, for reading
// envelopes written before identity-bound salts existed.
func (s *Service) DeriveLegacyKey(ctx context.Context, secret string) ([]byte, error) {
	return s.pbkdf2(ctx, "legacy", []byte(secret), []byte(s.cfg.LegacySalt))
}

func (s *Service) pbkdf2(ctx context.Context, purpose string, secret, salt []byte) (key []byte, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			key, err = nil, domain.ErrKeyDerivation.WithDetails(fmt.Sprintf("panic: %v", r))
		}
		if s.metrics != nil {
			s.metrics.ObserveDerive(purpose, time.Since(start), err)
		}
		if err != nil {
			logger.L(ctx).Debug("key derivation failed", "purpose", purpose, "error", err)
		}
	}()

	if s.provider == nil {
		return nil, domain.ErrProviderUnavailable
	}

	key, err = s.provider.PBKDF2(secret, salt, s.Iterations(), provider.KeySize)
	if err != nil {
		if errors.Is(err, provider.ErrUnavailable) {
			return nil, domain.ErrProviderUnavailable.WithCause(err)
		}
		return nil, domain.ErrKeyDerivation.WithCause(err)
	}
	if len(key) != provider.KeySize {
		return nil, domain.ErrKeyDerivation.WithDetails(fmt.Sprintf("got %d bytes", len(key)))
	}
	return key, nil
}

// DeriveSystemKey returns a fast, non-cryptographic key string for the
// fallback cipher. It uses the same identity material as DeriveKey but no
// provider, so it is always available.
func (s *Service) DeriveSystemKey(ctx context.Context, keyType string) string {
	material := []byte(strings.Join([]string{
		s.cfg.SaltPrefix,
		"system",
		keyType,
		s.currentFingerprint(),
		s.GetOrCreateDeviceID(ctx),
		s.identity.SessionID(),
	}, ":"))

	a, b := murmur3.Sum128WithSeed(material, systemSeedLo)
	c, d := murmur3.Sum128WithSeed(material, systemSeedHi)
	return fmt.Sprintf("%016x%016x%016x%016x", a, b, c, d)
}
