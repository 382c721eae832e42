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

type sealStrategy struct {
	mode Mode
	seal func(ctx context.Context, st *sealState) (envelope.Envelope, error)
}

// sealState carries the inner payload between strategies, so a signature
// computed by an earlier strategy is kept by the fallback.
type sealState struct {
	name    string
	payload json.RawMessage
	inner   envelope.Inner
}

// Seal protects payload (JSON) for the storage entry name.
//
// The only error is domain.ErrSerialization for invalid JSON, or the last
// strategy's error if every strategy failed.
func (e *Engine) Seal(ctx context.Context, payload json.RawMessage, name string) (envelope.Envelope, Mode, error) {
	if !json.Valid(payload) {
		return envelope.Envelope{}, "", domain.ErrSerialization.WithDetails("payload is not valid JSON")
	}

	st := &sealState{
		name:    name,
		payload: payload,
		inner:   envelope.Inner{Data: string(payload), Timestamp: e.now().UnixMilli()},
	}

	var lastErr error
	for _, s := range e.sealChain {
		env, err := e.runSeal(ctx, s, st)
		if err == nil {
			e.observeSeal(s.mode)
			if s.mode != ModeAESGCM {
				e.warn(ctx, "value stored with degraded protection", "name", name, "mode", s.mode, "reason", lastErr)
			}
			return env, s.mode, nil
		}
		e.log(ctx).Debug("seal strategy failed", "name", name, "mode", s.mode, "error", err)
		lastErr = err
	}
	return envelope.Envelope{}, "", lastErr
}

func (e *Engine) runSeal(ctx context.Context, s sealStrategy, st *sealState) (env envelope.Envelope, err error) {
	defer func() {
		if r := recover(); r != nil {
			env, err = envelope.Envelope{}, recovered(r)
		}
	}()
	return s.seal(ctx, st)
}

// sealAESGCM produces a v3 envelope.
func (e *Engine) sealAESGCM(ctx context.Context, st *sealState) (envelope.Envelope, error) {
	if e.provider == nil {
		return envelope.Envelope{}, domain.ErrProviderUnavailable
	}

	sig, err := e.sign(ctx, st.name, st.inner.Data)
	if err != nil {
		return envelope.Envelope{}, err
	}
	st.inner.Signature = sig

	encKey, err := e.keys.DeriveKey(ctx, st.name, keyderiv.PurposeEncryption)
	if err != nil {
		return envelope.Envelope{}, err
	}
	defer clear(encKey)

	plaintext, err := json.Marshal(st.inner)
	if err != nil {
		return envelope.Envelope{}, domain.ErrSerialization.WithCause(err)
	}

	// Fresh IV on every call; never derived or reused.
	iv, err := e.provider.RandomBytes(provider.NonceSize)
	if err != nil {
		return envelope.Envelope{}, providerErr(err)
	}

	ciphertext, err := e.provider.Seal(encKey, iv, plaintext, nil)
	if err != nil {
		return envelope.Envelope{}, providerErr(err)
	}

	storageID, err := e.newID()
	if err != nil {
		// Observability only; a missing id does not block the write.
		storageID = ""
	}

	return envelope.FromV3(envelope.V3{
		Encrypted: base64.StdEncoding.EncodeToString(ciphertext),
		IV:        base64.StdEncoding.EncodeToString(iv),
		Timestamp: st.inner.Timestamp,
		StorageID: storageID,
	}), nil
}

// sealBasic produces a basic envelope over the inner payload.
func (e *Engine) sealBasic(ctx context.Context, st *sealState) (envelope.Envelope, error) {
	if e.fallback == nil {
		return envelope.Envelope{}, errors.New("engine: no fallback cipher")
	}
	data, err := e.fallback.EncodeValue(ctx, st.inner, st.name)
	if err != nil {
		return envelope.Envelope{}, err
	}
	return envelope.FromBasic(envelope.Basic{
		Data:      data,
		Timestamp: st.inner.Timestamp,
	}), nil
}

// sealPlain stores base64(JSON) of the payload.
func (e *Engine) sealPlain(_ context.Context, st *sealState) (envelope.Envelope, error) {
	return envelope.FromRaw(base64.StdEncoding.EncodeToString(st.payload)), nil
}
