// Package envelope (de)serializes the stored representation of a value.
//
// Four on-disk shapes exist, discriminated by the fields they carry:
//
//	v1     {data, signature, timestamp}                       plaintext + detached HMAC
//	v2     {encrypted, iv, timestamp[, version: 2]}           AES with fixed salt
//	v3     {encrypted, iv, timestamp, storageId, version: 3}  current
//	basic  {data, isBasicEncryption: true, timestamp}         fallback cipher
//
// Parse probes the discriminants once and returns an Envelope whose Kind
// selects the populated variant; anything else is KindUnknown with the raw
// string kept for the oldest read strategies. New data is always written
// as v3 (or basic when no provider is available).
package envelope
