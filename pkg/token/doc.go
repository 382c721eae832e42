// Package token provides identifier generation and hashing utilities.
//
// Identifier formats:
//
//   - Hex identifiers: lowercase hex of N random bytes (DeviceId uses 24
//     bytes, SessionId uses 32 bytes)
//   - Storage IDs: lowercase ULID (26 characters), time-ordered, used to
//     tag v3 envelopes for debugging only
//
// Hashing:
//
//   - SHA-256, hex encoded
//   - Constant-time comparison for verification
//
// All randomness comes from crypto/rand.
package token
