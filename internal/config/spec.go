package config

import "time"

// Config is the root configuration.
type Config struct {
	Crypto      CryptoSection      `koanf:"crypto" json:"crypto" yaml:"crypto"`
	Storage     StorageSection     `koanf:"storage" json:"storage" yaml:"storage"`
	Fingerprint FingerprintSection `koanf:"fingerprint" json:"fingerprint" yaml:"fingerprint"`
	Log         LogSection         `koanf:"log" json:"log" yaml:"log"`
}

// CryptoSection configures key derivation and the crypto provider.
type CryptoSection struct {
	// Provider selects the crypto provider: "native" or "none".
	Provider string `koanf:"provider" json:"provider" yaml:"provider"`

	// Iterations is the PBKDF2 iteration count. Values below 10000 are
	// raised to 10000 at derivation time.
	Iterations int `koanf:"iterations" json:"iterations" yaml:"iterations"`

	SaltPrefix string `koanf:"salt_prefix" json:"salt_prefix" yaml:"salt_prefix"`

	// LegacySalt is the fixed salt of pre-v3 envelopes.
	LegacySalt string `koanf:"legacy_salt" json:"legacy_salt" yaml:"legacy_salt"`
}

// StorageSection configures the persistent and volatile stores.
type StorageSection struct {
	// DeviceDir holds the persistent device store. Empty keeps it in memory.
	DeviceDir string `koanf:"device_dir" json:"device_dir" yaml:"device_dir"`

	// VolatileQuotaBytes caps the volatile store. Zero disables the cap.
	VolatileQuotaBytes int64 `koanf:"volatile_quota_bytes" json:"volatile_quota_bytes" yaml:"volatile_quota_bytes"`

	GCInterval time.Duration `koanf:"gc_interval" json:"gc_interval" yaml:"gc_interval"`
}

// FingerprintSection configures fingerprint signals.
type FingerprintSection struct {
	// UserID is mixed into the fingerprint when set.
	UserID string `koanf:"user_id" json:"user_id" yaml:"user_id"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Format string `koanf:"format" json:"format" yaml:"format"`
}
