// Package confloader loads layered configuration with koanf.
//
// Sources, lowest priority first:
//
//  1. Defaults (a flat map, usually built from the config package)
//  2. A YAML file
//  3. Environment variables under a prefix (SECURESTORE_ by default)
//  4. Overrides (a flat map, usually built from CLI flags)
//
// Environment variables name a section and a key: SECURESTORE_CRYPTO_SALT_PREFIX
// maps to crypto.salt_prefix. Only the first underscore after the prefix is
// a path separator, so keys may contain underscores.
//
// Watcher reports debounced writes to a configuration file through fsnotify,
// which the interactive shell uses to re-apply the log level live.
package confloader
