package config

import "strings"

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for displaying and logging configuration.
func Sanitize(cfg *Config) *Config {
	sanitized := *cfg

	if sanitized.Crypto.LegacySalt != "" {
		sanitized.Crypto.LegacySalt = maskSecret(sanitized.Crypto.LegacySalt)
	}
	if sanitized.Fingerprint.UserID != "" {
		sanitized.Fingerprint.UserID = maskSecret(sanitized.Fingerprint.UserID)
	}

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
