// Package provider abstracts the platform cryptographic primitives used by
// the secure store.
//
// A Provider exposes exactly the operations the store needs:
//
//   - RandomBytes: CSPRNG output (IVs, identifiers)
//   - PBKDF2: password-based key derivation (HMAC-SHA256 core)
//   - HMACSign / HMACVerify: detached integrity tags
//   - Seal / Open: AES-GCM with caller-supplied 96-bit nonce
//   - Digest: SHA-256
//
// Every call may fail. Native implements the provider on Go's crypto
// packages and golang.org/x/crypto/pbkdf2; Unavailable fails every call
// with ErrUnavailable and models an environment with no provider at all.
package provider
