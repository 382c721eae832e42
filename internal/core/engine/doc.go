// Package engine seals values into envelopes and opens them again.
//
// Sealing runs an ordered strategy chain and stops at the first success:
//
//  1. aes-gcm: HMAC-sign the JSON payload, AES-GCM seal the signed inner
//     payload under a fresh 96-bit IV, emit a v3 envelope
//  2. basic: fallback cipher over the inner payload, emit a basic envelope
//  3. plain: base64 of the JSON payload
//
// Opening dispatches on the envelope kind and, for legacy kinds, runs a
// read chain newest-first so every historical shape stays readable without
// a migration step. Integrity failures are final for the value concerned;
// provider failures fall through to the next strategy.
package engine
