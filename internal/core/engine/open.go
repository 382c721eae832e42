package engine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/yndnr/securestore/internal/core/domain"
	"github.com/yndnr/securestore/internal/core/envelope"
	"github.com/yndnr/securestore/internal/core/keyderiv"
	"github.com/yndnr/securestore/pkg/crypto/provider"
)

// Legacy secret suffixes, appended to the entry name by pre-v3 writers.
const (
	legacyIntegritySuffix  = "_integrity_check"
	legacyEncryptionSuffix = "_encryption"
)

type openStrategy struct {
	name string
	open func(ctx context.Context) (json.RawMessage, error)
}

// runChain tries strategies in order and returns the first success.
// Integrity violations stop the chain: a value that was decrypted but
// fails its signature must not be reinterpreted by a weaker strategy.
func (e *Engine) runChain(ctx context.Context, chain []openStrategy) (json.RawMessage, error) {
	var lastErr error
	for _, s := range chain {
		out, err := s.open(ctx)
		if err == nil {
			return out, nil
		}
		e.log(ctx).Debug("open strategy failed", "strategy", s.name, "error", err)
		if errors.Is(err, domain.ErrIntegrityViolation) {
			return nil, err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = domain.ErrMalformedEnvelope
	}
	return nil, lastErr
}

// Open returns the JSON payload protected by env for the entry name.
//
// Errors are domain errors: ErrIntegrityViolation for tampered data,
// ErrMalformedEnvelope for unreadable data, and ErrProviderUnavailable or
// ErrKeyDerivation when a v3 envelope cannot be opened in this environment.
// Open never panics.
func (e *Engine) Open(ctx context.Context, env envelope.Envelope, name string) (out json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, recovered(r)
		}
		e.observeOpen(env.Kind, err)
	}()

	switch env.Kind {
	case envelope.KindBasic:
		return e.openBasic(ctx, env.Basic, name)
	case envelope.KindV3:
		return e.openV3(ctx, env.V3, name)
	case envelope.KindV2:
		return e.openV2(ctx, env.V2, name)
	case envelope.KindV1:
		return e.openV1(ctx, env.V1, name)
	default:
		return e.openUnknown(ctx, env)
	}
}

// openBasic decodes a fallback envelope. A signature, when present, is
// verified if the integrity key is derivable now.
func (e *Engine) openBasic(ctx context.Context, b *envelope.Basic, name string) (json.RawMessage, error) {
	if e.fallback == nil {
		return nil, domain.ErrMalformedEnvelope.WithDetails("no fallback cipher")
	}
	plain, err := e.fallback.Decode(ctx, b.Data, name)
	if err != nil {
		return nil, err
	}

	inner, ok := envelope.ParseInner(plain)
	if !ok {
		// Fallback payload without the inner wrapper.
		return validJSON(plain)
	}
	if inner.Signature != "" {
		if err := e.verifyInner(ctx, inner, name, false); err != nil {
			return nil, err
		}
	}
	return validJSON([]byte(inner.Data))
}

// openV3 decrypts with the re-derived encryption key and verifies the
// inner signature with the re-derived integrity key.
func (e *Engine) openV3(ctx context.Context, v *envelope.V3, name string) (json.RawMessage, error) {
	ciphertext, iv, err := decodeCiphertext(v.Encrypted, v.IV)
	if err != nil {
		return nil, err
	}

	plain, err := e.decrypt(ctx, name, keyderiv.PurposeEncryption, ciphertext, iv)
	if err != nil {
		return nil, err
	}

	inner, ok := envelope.ParseInner(plain)
	if !ok {
		return nil, domain.ErrMalformedEnvelope.WithDetails("v3 inner payload")
	}
	if err := e.verifyInner(ctx, inner, name, true); err != nil {
		return nil, err
	}
	return validJSON([]byte(inner.Data))
}

// openV2 reads the legacy AES envelope on a best-effort basis.
func (e *Engine) openV2(ctx context.Context, v *envelope.V2, name string) (json.RawMessage, error) {
	ciphertext, iv, decodeErr := decodeCiphertext(v.Encrypted, v.IV)

	chain := []openStrategy{
		{"v3-key", func(ctx context.Context) (json.RawMessage, error) {
			if decodeErr != nil {
				return nil, decodeErr
			}
			plain, err := e.decrypt(ctx, name, keyderiv.PurposeEncryption, ciphertext, iv)
			if err != nil {
				// Wrong key for this envelope, not tampering.
				return nil, domain.ErrMalformedEnvelope.WithCause(err)
			}
			return e.legacyPlaintext(ctx, plain, name)
		}},
		{"legacy-salt", func(ctx context.Context) (json.RawMessage, error) {
			if decodeErr != nil {
				return nil, decodeErr
			}
			if e.provider == nil {
				return nil, domain.ErrProviderUnavailable
			}
			key, err := e.keys.DeriveLegacyKey(ctx, name+legacyEncryptionSuffix)
			if err != nil {
				return nil, err
			}
			defer clear(key)
			plain, err := e.provider.Open(key, iv, ciphertext, nil)
			if err != nil {
				return nil, domain.ErrMalformedEnvelope.WithCause(err)
			}
			return e.legacyPlaintext(ctx, plain, name)
		}},
		{"base64-json", func(context.Context) (json.RawMessage, error) {
			return decodeBase64JSON(v.Encrypted)
		}},
	}

	out, err := e.runChain(ctx, chain)
	if err != nil {
		e.warn(ctx, "legacy v2 envelope unreadable", "name", name, "error", err)
		return nil, err
	}
	e.warn(ctx, "read legacy v2 envelope", "name", name)
	return out, nil
}

// legacyPlaintext interprets decrypted v2 plaintext: a signed inner
// payload is verified leniently, anything else must be JSON.
func (e *Engine) legacyPlaintext(ctx context.Context, plain []byte, name string) (json.RawMessage, error) {
	if inner, ok := envelope.ParseInner(plain); ok && inner.Signature != "" {
		if err := e.verifyLegacy(ctx, inner, name); err != nil {
			return nil, err
		}
		return validJSON([]byte(inner.Data))
	}
	return validJSON(plain)
}

// openV1 verifies a plaintext envelope. When no integrity key can be
// derived the data is returned unverified.
func (e *Engine) openV1(ctx context.Context, v *envelope.Inner, name string) (json.RawMessage, error) {
	if err := e.verifyLegacy(ctx, *v, name); err != nil {
		return nil, err
	}
	return validJSON([]byte(v.Data))
}

// openUnknown runs the oldest read strategies: raw JSON, then base64 JSON.
// Objects carrying subsystem markers are malformed envelopes, not values.
func (e *Engine) openUnknown(ctx context.Context, env envelope.Envelope) (json.RawMessage, error) {
	if env.Marked {
		return nil, domain.ErrMalformedEnvelope.WithDetails("unrecognised envelope shape")
	}
	return e.runChain(ctx, []openStrategy{
		{"raw-json", func(context.Context) (json.RawMessage, error) {
			return validJSON([]byte(env.Raw))
		}},
		{"base64-json", func(context.Context) (json.RawMessage, error) {
			return decodeBase64JSON(env.Raw)
		}},
	})
}

// verifyInner checks the signature of a v3 or basic inner payload with
// the current integrity key. If strict, an underivable key is an error;
// otherwise the payload is accepted with a warning.
func (e *Engine) verifyInner(ctx context.Context, inner envelope.Inner, name string, strict bool) error {
	key, err := e.keys.DeriveKey(ctx, name, keyderiv.PurposeIntegrity)
	if err != nil {
		if strict {
			return err
		}
		e.warn(ctx, "integrity key unavailable, returning unverified data", "name", name)
		return nil
	}
	defer clear(key)
	return e.verify(key, inner.Data, inner.Signature)
}

// verifyLegacy checks a v1-style signature against the current integrity
// key and the legacy fixed-salt key; either may match. If no key can be
// derived, or HMAC itself is unavailable, the data is accepted unverified
// with a warning.
func (e *Engine) verifyLegacy(ctx context.Context, inner envelope.Inner, name string) error {
	candidates := []func() ([]byte, error){
		func() ([]byte, error) { return e.keys.DeriveKey(ctx, name, keyderiv.PurposeIntegrity) },
		func() ([]byte, error) { return e.keys.DeriveLegacyKey(ctx, name+legacyIntegritySuffix) },
	}

	var violation error
	for _, derive := range candidates {
		key, err := derive()
		if err != nil {
			continue
		}
		err = e.verify(key, inner.Data, inner.Signature)
		clear(key)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrIntegrityViolation) {
			violation = err
		}
	}

	if violation != nil {
		return violation
	}
	e.warn(ctx, "integrity key unavailable, returning unverified legacy data", "name", name)
	return nil
}

// decrypt opens ciphertext with the key derived for purpose.
func (e *Engine) decrypt(ctx context.Context, name, purpose string, ciphertext, iv []byte) ([]byte, error) {
	if e.provider == nil {
		return nil, domain.ErrProviderUnavailable
	}
	key, err := e.keys.DeriveKey(ctx, name, purpose)
	if err != nil {
		return nil, err
	}
	defer clear(key)

	plain, err := e.provider.Open(key, iv, ciphertext, nil)
	switch {
	case err == nil:
		return plain, nil
	case errors.Is(err, provider.ErrUnavailable):
		return nil, domain.ErrProviderUnavailable.WithCause(err)
	case errors.Is(err, provider.ErrInvalidNonce):
		return nil, domain.ErrMalformedEnvelope.WithCause(err)
	default:
		return nil, domain.ErrIntegrityViolation.WithCause(err)
	}
}

func decodeCiphertext(encrypted, iv string) ([]byte, []byte, error) {
	ct, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil || len(ct) == 0 {
		return nil, nil, domain.ErrMalformedEnvelope.WithDetails("encrypted is not base64")
	}
	nonce, err := base64.StdEncoding.DecodeString(iv)
	if err != nil || len(nonce) == 0 {
		return nil, nil, domain.ErrMalformedEnvelope.WithDetails("iv is not base64")
	}
	return ct, nonce, nil
}

func decodeBase64JSON(s string) (json.RawMessage, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, domain.ErrMalformedEnvelope.WithCause(err)
	}
	return validJSON(b)
}
