// Package fallback implements the low-assurance reversible transform used
// when no cryptographic provider is available.
//
// Encode XORs the plaintext with a repeating key from the system key
// source and base64-encodes the result. This is obfuscation only: it keeps
// values from being stored as readable plaintext, nothing more.
package fallback

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/yndnr/securestore/internal/core/domain"
)

// KeySource yields the repeating key for a key type.
type KeySource interface {
	DeriveSystemKey(ctx context.Context, keyType string) string
}

// Cipher is the fallback XOR cipher.
type Cipher struct {
	keys KeySource
}

// New creates a Cipher.
func New(keys KeySource) *Cipher {
	return &Cipher{keys: keys}
}

// Encode XORs plaintext with the system key for keyType and base64 encodes it.
func (c *Cipher) Encode(ctx context.Context, plaintext []byte, keyType string) string {
	key := c.key(ctx, keyType)
	return base64.StdEncoding.EncodeToString(xor(plaintext, key))
}

// EncodeValue JSON-encodes v and then encodes it. A value JSON cannot
// represent is domain.ErrSerialization.
func (c *Cipher) EncodeValue(ctx context.Context, v any, keyType string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", domain.ErrSerialization.WithCause(err)
	}
	return c.Encode(ctx, data, keyType), nil
}

// Decode reverses Encode and returns the JSON plaintext.
//
// When the XOR output is not valid JSON the base64 payload itself is tried
// as JSON, which reads the unkeyed base64(JSON) format. Anything else is
// domain.ErrMalformedEnvelope. Decode never panics.
func (c *Cipher) Decode(ctx context.Context, encoded, keyType string) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, domain.ErrMalformedEnvelope.WithDetails(fmt.Sprintf("fallback decode panic: %v", r))
		}
	}()

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, domain.ErrMalformedEnvelope.WithCause(err)
	}

	if plain := xor(raw, c.key(ctx, keyType)); json.Valid(plain) {
		return plain, nil
	}
	if json.Valid(raw) {
		return raw, nil
	}
	return nil, domain.ErrMalformedEnvelope.WithDetails("fallback payload is not JSON")
}

func (c *Cipher) key(ctx context.Context, keyType string) []byte {
	if c.keys == nil {
		return nil
	}
	return []byte(c.keys.DeriveSystemKey(ctx, keyType))
}

// xor returns data XORed with the repeating key. An empty key is the identity.
func xor(data, key []byte) []byte {
	out := make([]byte, len(data))
	if len(key) == 0 {
		copy(out, data)
		return out
	}
	for i := range data {
		out[i] = data[i] ^ key[i%len(key)]
	}
	return out
}
