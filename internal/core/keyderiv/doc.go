// Package keyderiv turns identity material into symmetric keys.
//
// Every key is bound to four inputs: the caller's secret material (the
// storage key name), a purpose tag, the current fingerprint and the
// DeviceId/SessionId pair held by an IdentityContext. Keys are derived
// with PBKDF2-HMAC-SHA256 through the crypto provider, are 32 bytes long
// and are never cached or serialized.
//
// The package also produces the fast, non-cryptographic system key used
// by the fallback cipher when no provider is available, and the legacy
// fixed-salt key needed to read older envelopes.
//
// Derivation never panics and never returns a partially valid key;
// failures surface as domain.ErrProviderUnavailable or
// domain.ErrKeyDerivation so callers can fall back.
package keyderiv
