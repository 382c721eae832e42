package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default configuration values.
const (
	DefaultProvider   = "native"
	DefaultIterations = 10000
	DefaultSaltPrefix = "securestore:v3"
	DefaultLegacySalt = "DSBlog_SecureSaltValue_7821"

	DefaultVolatileQuota = 5 << 20
	DefaultGCInterval    = 10 * time.Minute

	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"
)

// DefaultDeviceDir returns the default persistent store directory.
func DefaultDeviceDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "securestore", "device")
	}
	return ""
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "securestore", "securestore.yaml")
	}
	return "securestore.yaml"
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Crypto: CryptoSection{
			Provider:   DefaultProvider,
			Iterations: DefaultIterations,
			SaltPrefix: DefaultSaltPrefix,
			LegacySalt: DefaultLegacySalt,
		},
		Storage: StorageSection{
			DeviceDir:          DefaultDeviceDir(),
			VolatileQuotaBytes: DefaultVolatileQuota,
			GCInterval:         DefaultGCInterval,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// DefaultMap returns Default as a flat "section.key" map for the loader.
func DefaultMap() map[string]any {
	d := Default()
	return map[string]any{
		"crypto.provider":              d.Crypto.Provider,
		"crypto.iterations":            d.Crypto.Iterations,
		"crypto.salt_prefix":           d.Crypto.SaltPrefix,
		"crypto.legacy_salt":           d.Crypto.LegacySalt,
		"storage.device_dir":           d.Storage.DeviceDir,
		"storage.volatile_quota_bytes": d.Storage.VolatileQuotaBytes,
		"storage.gc_interval":          d.Storage.GCInterval.String(),
		"fingerprint.user_id":          d.Fingerprint.UserID,
		"log.level":                    d.Log.Level,
		"log.format":                   d.Log.Format,
	}
}
