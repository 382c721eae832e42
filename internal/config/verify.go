package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yndnr/securestore/internal/telemetry/logger"
)

// Verify validates the configuration.
func Verify(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	return errors.Join(
		verifyCrypto(&cfg.Crypto),
		verifyStorage(&cfg.Storage),
		verifyLog(&cfg.Log),
	)
}

func verifyCrypto(c *CryptoSection) error {
	switch c.Provider {
	case "native", "none":
	default:
		return fmt.Errorf("crypto.provider must be native or none, got %q", c.Provider)
	}
	if c.Iterations < 0 {
		return errors.New("crypto.iterations must not be negative")
	}
	if strings.TrimSpace(c.SaltPrefix) == "" {
		return errors.New("crypto.salt_prefix is required")
	}
	if strings.HasSuffix(c.SaltPrefix, ":") {
		return errors.New("crypto.salt_prefix must not end with ':'")
	}
	if c.LegacySalt == "" {
		return errors.New("crypto.legacy_salt is required")
	}
	return nil
}

func verifyStorage(s *StorageSection) error {
	if s.VolatileQuotaBytes < 0 {
		return errors.New("storage.volatile_quota_bytes must not be negative")
	}
	if s.GCInterval < 0 {
		return errors.New("storage.gc_interval must not be negative")
	}
	return nil
}

func verifyLog(l *LogSection) error {
	if _, err := logger.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if l.Format == "" || !logger.ValidFormat(l.Format) {
		return fmt.Errorf("log.format must be json, text or console, got %q", l.Format)
	}
	return nil
}
