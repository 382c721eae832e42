// Package domain defines the error taxonomy shared by the secure store.
//
// Every failure inside the store maps to one of:
//
//   - ErrProviderUnavailable: no platform cryptographic provider
//   - ErrKeyDerivation: derivation rejected its inputs
//   - ErrIntegrityViolation: HMAC or AEAD tag mismatch on read
//   - ErrMalformedEnvelope: stored bytes match no known shape
//   - ErrSerialization: caller value is not JSON-serializable
//   - ErrStorageWrite: the backing store refused a write
//
// Only ErrSerialization is ever returned across the public storage API;
// the others are converted to fallbacks or absent results at the boundary
// of the operation that produced them.
package domain
