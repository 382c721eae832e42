package engine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/securestore/internal/core/domain"
	"github.com/yndnr/securestore/internal/core/envelope"
	"github.com/yndnr/securestore/internal/core/fallback"
	"github.com/yndnr/securestore/internal/core/keyderiv"
	"github.com/yndnr/securestore/internal/telemetry/logger"
	"github.com/yndnr/securestore/internal/telemetry/metric"
	"github.com/yndnr/securestore/pkg/crypto/provider"
	"github.com/yndnr/securestore/pkg/token"
)

// Mode is the protection applied by Seal.
type Mode string

const (
	ModeAESGCM Mode = "aes-gcm"
	ModeBasic  Mode = "basic"
	ModePlain  Mode = "plain"
)

// KeyDeriver derives the keys the engine needs.
type KeyDeriver interface {
	DeriveKey(ctx context.Context, secret, purpose string) ([]byte, error)
	DeriveLegacyKey(ctx context.Context, secret string) ([]byte, error)
}

// Engine seals and opens envelopes for named storage entries.
type Engine struct {
	provider provider.Provider
	keys     KeyDeriver
	fallback *fallback.Cipher
	logger   logger.Logger
	metrics  *metric.Registry
	now      func() time.Time
	newID    func() (string, error)

	sealChain []sealStrategy

	// Degraded-path warnings are rate limited per engine.
	warnings rate.Sometimes
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMetrics enables seal/open metrics.
func WithMetrics(m *metric.Registry) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock overrides the clock used for envelope timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine.
func New(p provider.Provider, keys KeyDeriver, fb *fallback.Cipher, opts ...Option) *Engine {
	e := &Engine{
		provider: p,
		keys:     keys,
		fallback: fb,
		logger:   logger.Default(),
		now:      time.Now,
		newID:    token.NewStorageID,
		warnings: rate.Sometimes{First: 3, Interval: time.Minute},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sealChain = []sealStrategy{
		{ModeAESGCM, e.sealAESGCM},
		{ModeBasic, e.sealBasic},
		{ModePlain, e.sealPlain},
	}
	return e
}

func (e *Engine) log(ctx context.Context) logger.Logger {
	return logger.LOr(ctx, e.logger)
}

// warn logs a degraded-path warning, rate limited.
func (e *Engine) warn(ctx context.Context, msg string, args ...any) {
	e.warnings.Do(func() {
		e.log(ctx).Warn(msg, args...)
	})
}

func (e *Engine) observeSeal(mode Mode) {
	if e.metrics != nil {
		e.metrics.ObserveSeal(string(mode))
	}
}

func (e *Engine) observeOpen(kind envelope.Kind, err error) {
	if e.metrics == nil {
		return
	}
	result := metric.ResultOK
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrIntegrityViolation):
		result = metric.ResultIntegrity
	case errors.Is(err, domain.ErrMalformedEnvelope):
		result = metric.ResultMalformed
	default:
		result = metric.ResultError
	}
	e.metrics.ObserveOpen(kind.String(), result)
}

// sign returns the base64 HMAC of data under the integrity key for name.
func (e *Engine) sign(ctx context.Context, name, data string) (string, error) {
	key, err := e.keys.DeriveKey(ctx, name, keyderiv.PurposeIntegrity)
	if err != nil {
		return "", err
	}
	defer clear(key)

	mac, err := e.provider.HMACSign(key, []byte(data))
	if err != nil {
		return "", providerErr(err)
	}
	return base64.StdEncoding.EncodeToString(mac), nil
}

// verify checks a base64 signature over data with key.
func (e *Engine) verify(key []byte, data, signature string) error {
	mac, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return domain.ErrIntegrityViolation.WithDetails("signature is not base64")
	}
	ok, err := e.provider.HMACVerify(key, []byte(data), mac)
	if err != nil {
		return providerErr(err)
	}
	if !ok {
		return domain.ErrIntegrityViolation.WithDetails("hmac mismatch")
	}
	return nil
}

// providerErr maps provider errors onto the domain taxonomy.
func providerErr(err error) error {
	if errors.Is(err, provider.ErrUnavailable) {
		return domain.ErrProviderUnavailable.WithCause(err)
	}
	return domain.ErrKeyDerivation.WithCause(err)
}

// validJSON returns data as a RawMessage when it is valid JSON.
func validJSON(data []byte) (json.RawMessage, error) {
	if !json.Valid(data) {
		return nil, domain.ErrMalformedEnvelope.WithDetails("payload is not JSON")
	}
	return json.RawMessage(data), nil
}

func recovered(r any) error {
	return domain.ErrMalformedEnvelope.WithDetails(fmt.Sprintf("panic: %v", r))
}
