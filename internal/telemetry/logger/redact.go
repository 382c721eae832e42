package logger

import (
	"log/slog"
	"strings"
)

// Sensitive key patterns that should be redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"key",
	"salt",
	"signature",
	"encrypted",
	"iv",
	"device_id",
	"session_id",
	"fingerprint",
}

// Lengths (in hex characters) of identity material that is masked even
// when logged under a harmless key: 24-byte DeviceId and 32-byte
// SessionId / SHA-256 fingerprint.
var sensitiveHexLengths = []int{48, 64}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive checks if an attribute contains sensitive data
// and redacts it if necessary.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()

		// If key name suggests sensitive data and value is non-empty, fully redact
		if strVal != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}

		// Identity-shaped values get a partial mask
		if IsSensitiveValue(strVal) {
			return slog.String(a.Key, maskValue(strVal))
		}
	}

	// Handle nested groups recursively
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// maskValue partially masks a sensitive value.
// Format: first 3 chars + "..." + last 3 chars
func maskValue(value string) string {
	if len(value) <= 6 {
		return "***"
	}
	return value[:3] + "..." + value[len(value)-3:]
}

// RedactString manually redacts a string value.
// Use this when you need to redact a value before printing it.
func RedactString(value string) string {
	if IsSensitiveValue(value) {
		return maskValue(value)
	}
	return value
}

// IsSensitiveKey checks if a key name suggests sensitive content.
//
// Matching is by word: "iv" matches "iv" and "nonce_iv" but not "derivation".
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	words := strings.FieldsFunc(keyLower, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(pattern, "_") {
			if strings.Contains(keyLower, pattern) {
				return true
			}
			continue
		}
		for _, w := range words {
			if w == pattern {
				return true
			}
		}
	}
	return false
}

// IsSensitiveValue reports whether value looks like identity material
// (lowercase hex of a DeviceId, SessionId, or fingerprint length).
func IsSensitiveValue(value string) bool {
	lengthMatch := false
	for _, n := range sensitiveHexLengths {
		if len(value) == n {
			lengthMatch = true
			break
		}
	}
	if !lengthMatch {
		return false
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
