// Package fingerprint derives a quasi-stable identifier from ambient
// environment signals.
//
// The fingerprint is a SHA-256 hex digest over the user id (when known),
// platform, terminal size, timezone, locale and the current hour bucket,
// so it changes at most once per hour for a given environment. It is
// recomputed on demand and never persisted.
//
// Fingerprint never fails. A signal that cannot be read contributes an
// empty string; when no signal can be read at all a fresh random value is
// returned instead, trading determinism for availability.
package fingerprint
